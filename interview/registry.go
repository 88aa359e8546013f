package interview

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/types"
)

// Mirror receives session snapshots outside the registry locks, e.g. to
// expose live sessions to other instances.
type Mirror interface {
	SaveSession(ctx context.Context, s Session) error
	DeleteSession(ctx context.Context, id string) error
}

type entry struct {
	mu      sync.Mutex
	session Session
}

// Registry is the process-wide table of live sessions.
//
// The map lock is held only to look up, insert or remove an entry. Each
// entry has its own mutex, held while a single mutation runs, so sessions
// never block one another.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry

	mirror        Mirror
	mirrorTimeout time.Duration
	logger        *zap.Logger

	trackMu sync.Mutex
	cancels map[uint64]context.CancelFunc
	nextID  uint64
	wg      sync.WaitGroup
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMirror forwards snapshots to m after every change.
func WithMirror(m Mirror, timeout time.Duration) RegistryOption {
	return func(r *Registry) {
		r.mirror = m
		if timeout > 0 {
			r.mirrorTimeout = timeout
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		entries:       make(map[string]*entry),
		mirrorTimeout: 2 * time.Second,
		logger:        logger.With(zap.String("component", "session_registry")),
		cancels:       make(map[uint64]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create registers s. The returned release func removes it and is safe to
// call more than once.
func (r *Registry) Create(s Session) (func(), error) {
	if s.ID == "" {
		return nil, types.NewError(types.ErrInvalidRequest, "session id is required")
	}
	snap := s.Clone()

	r.mu.Lock()
	if _, exists := r.entries[s.ID]; exists {
		r.mu.Unlock()
		return nil, types.NewError(types.ErrSessionExists, "session already registered: "+s.ID)
	}
	r.entries[s.ID] = &entry{session: snap}
	r.mu.Unlock()

	r.mirrorSave(snap)

	var once sync.Once
	return func() { once.Do(func() { r.Delete(s.ID) }) }, nil
}

func (r *Registry) lookup(id string) (*entry, bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	return e, ok
}

// Get returns a copy of the session.
func (r *Registry) Get(id string) (Session, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return Session{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), true
}

// Update applies fn to the session under the entry's lock.
func (r *Registry) Update(id string, fn func(*Session)) error {
	e, ok := r.lookup(id)
	if !ok {
		return types.NewError(types.ErrNotFound, "session not found: "+id)
	}
	e.mu.Lock()
	fn(&e.session)
	snap := e.session.Clone()
	e.mu.Unlock()

	r.mirrorSave(snap)
	return nil
}

// Delete removes the session. It reports whether an entry was present.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok && r.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.mirrorTimeout)
		defer cancel()
		if err := r.mirror.DeleteSession(ctx, id); err != nil {
			r.logger.Warn("mirror delete failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	return ok
}

// List returns copies of every live session, oldest first.
func (r *Registry) List() []Session {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]Session, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.session.Clone())
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Track registers a connection's cancel func for shutdown. The returned
// func must be called when the connection finishes.
func (r *Registry) Track(cancel context.CancelFunc) func() {
	r.trackMu.Lock()
	id := r.nextID
	r.nextID++
	r.cancels[id] = cancel
	r.wg.Add(1)
	r.trackMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.trackMu.Lock()
			delete(r.cancels, id)
			r.trackMu.Unlock()
			r.wg.Done()
		})
	}
}

// CancelAll cancels every tracked connection.
func (r *Registry) CancelAll() {
	r.trackMu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.cancels))
	for _, c := range r.cancels {
		cancels = append(cancels, c)
	}
	r.trackMu.Unlock()

	for _, c := range cancels {
		c()
	}
}

// Wait blocks until every tracked connection has finished or ctx is done.
func (r *Registry) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) mirrorSave(s Session) {
	if r.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.mirrorTimeout)
	defer cancel()
	if err := r.mirror.SaveSession(ctx, s); err != nil {
		r.logger.Warn("mirror save failed", zap.String("session_id", s.ID), zap.Error(err))
	}
}
