package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/types"
)

// ErrSessionEnded is returned once the interview reached its terminal phase
// and all closing messages were delivered.
var ErrSessionEnded = errors.New("interview: session ended")

const (
	DefaultFallbackUtterance = "Could you repeat that?"
	DefaultFallbackGreeting  = "Hello! Let's get started."
	DefaultGoodbye           = "Thank you for your time today. We'll review and be in touch soon."
	defaultStage             = "intro"
)

// Config tunes one engine instance.
type Config struct {
	Mode Mode

	SilenceThreshold  float64
	SilenceDuration   time.Duration
	Cooldown          time.Duration
	PlaybackMargin    time.Duration
	BytesPerSecond    int
	MaxUtteranceBytes int

	// GracePeriod is the pause after the goodbye line and again after the
	// evaluation result, before the channel closes.
	GracePeriod time.Duration
	// CallTimeout bounds each collaborator call. Zero means no bound.
	CallTimeout time.Duration

	FallbackUtterance string
	FallbackGreeting  string
	Goodbye           string
}

// DefaultConfig returns the defaults for the given mode.
func DefaultConfig(mode Mode) Config {
	cfg := Config{
		Mode:              mode,
		SilenceThreshold:  500,
		SilenceDuration:   1200 * time.Millisecond,
		Cooldown:          time.Second,
		PlaybackMargin:    500 * time.Millisecond,
		BytesPerSecond:    DefaultBytesPerSecond,
		MaxUtteranceBytes: 60 * DefaultBytesPerSecond,
		GracePeriod:       3 * time.Second,
		CallTimeout:       60 * time.Second,
		FallbackUtterance: DefaultFallbackUtterance,
		FallbackGreeting:  DefaultFallbackGreeting,
		Goodbye:           DefaultGoodbye,
	}
	if mode == ModeText {
		cfg.GracePeriod = time.Second
	}
	return cfg
}

// Dependencies are the external collaborators an engine calls. Transcriber
// and Synthesizer are only needed in voice mode; Evaluator and Reports are
// optional.
type Dependencies struct {
	Loader      ContextLoader
	Policy      DialoguePolicy
	Transcriber Transcriber
	Synthesizer Synthesizer
	Evaluator   Evaluator
	Reports     ReportSink
}

// StartRequest carries the handshake-derived session parameters.
type StartRequest struct {
	SessionID string
	Kind      Kind
	UserID    string
	JobID     string
}

// Engine is the per-session turn state machine. All methods except Phase,
// Accepting and Snapshot must be called from a single goroutine.
type Engine struct {
	cfg      Config
	deps     Dependencies
	emitter  Emitter
	registry *Registry
	logger   *zap.Logger
	metrics  Metrics
	tracer   trace.Tracer
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	detector Detector
	buffer   *UtteranceBuffer
	cooldown *Cooldown

	phase     atomic.Value // Phase
	accepting atomic.Bool

	snapMu  sync.RWMutex
	session Session

	release     func()
	releaseOnce sync.Once
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithRegistry publishes the session to r for its lifetime.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithClock replaces time.Now and the context-aware sleep.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// NewEngine creates an engine in PhaseIdle.
func NewEngine(cfg Config, deps Dependencies, emitter Emitter, opts ...Option) *Engine {
	if cfg.Mode == "" {
		cfg.Mode = ModeVoice
	}
	if cfg.FallbackUtterance == "" {
		cfg.FallbackUtterance = DefaultFallbackUtterance
	}
	if cfg.FallbackGreeting == "" {
		cfg.FallbackGreeting = DefaultFallbackGreeting
	}
	if cfg.Goodbye == "" {
		cfg.Goodbye = DefaultGoodbye
	}
	e := &Engine{
		cfg:      cfg,
		deps:     deps,
		emitter:  emitter,
		logger:   zap.NewNop(),
		metrics:  noopMetrics{},
		tracer:   otel.Tracer("github.com/Adhikkesh/Erflog/interview"),
		now:      time.Now,
		sleep:    sleepContext,
		detector: Detector{Threshold: cfg.SilenceThreshold},
		buffer:   NewUtteranceBuffer(cfg.SilenceDuration, cfg.MaxUtteranceBytes),
		cooldown: NewCooldown(cfg.Cooldown, cfg.PlaybackMargin, cfg.BytesPerSecond),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "interview_engine"), zap.String("mode", string(cfg.Mode)))
	e.phase.Store(PhaseIdle)
	e.session.Phase = PhaseIdle
	e.session.Mode = cfg.Mode
	return e
}

// Phase returns the current phase. Safe for concurrent use.
func (e *Engine) Phase() Phase {
	return e.phase.Load().(Phase)
}

// Accepting reports whether inbound audio would currently be considered.
// Channel readers use it to drop frames on arrival. Safe for concurrent use.
func (e *Engine) Accepting() bool {
	return e.accepting.Load()
}

// Snapshot returns a copy of the session. Safe for concurrent use.
func (e *Engine) Snapshot() Session {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.session.Clone()
}

// BufferedBytes returns the size of the in-progress utterance.
func (e *Engine) BufferedBytes() int { return e.buffer.Len() }

// Start performs the handshake transition: it loads the interview context,
// announces the session and delivers the opening greeting.
func (e *Engine) Start(ctx context.Context, req StartRequest) error {
	if from := e.Phase(); from != PhaseIdle {
		return &ErrInvalidTransition{From: from, To: PhaseThinking}
	}
	if e.deps.Loader == nil || e.deps.Policy == nil {
		return types.NewError(types.ErrInternalError, "engine requires a context loader and a dialogue policy")
	}

	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	now := e.now()
	e.mutate(func(s *Session) {
		s.ID = id
		s.Kind = req.Kind
		if s.Kind == "" {
			s.Kind = KindTechnical
		}
		s.UserID = req.UserID
		s.JobID = req.JobID
		s.CreatedAt = now
		s.UpdatedAt = now
	})
	e.logger = e.logger.With(zap.String("session_id", id))

	if err := e.transition(PhaseThinking); err != nil {
		return err
	}

	var profile *Profile
	err := e.call(ctx, "context_loader", func(ctx context.Context) error {
		var err error
		profile, err = e.deps.Loader.LoadContext(ctx, req.UserID, req.JobID)
		return err
	})
	if err == nil && profile == nil {
		err = errors.New("no profile returned")
	}
	if err != nil {
		e.logger.Error("context load failed", zap.String("user_id", req.UserID), zap.String("job_id", req.JobID), zap.Error(err))
		_ = e.emit(ctx, ErrorMessage("Failed to load interview context: "+err.Error()))
		e.abort("context_error")
		return types.NewError(types.ErrContextLoadFailed, "failed to load interview context").WithCause(err)
	}
	e.mutate(func(s *Session) { s.Profile = profile })

	if e.registry != nil {
		release, err := e.registry.Create(e.Snapshot())
		if err != nil {
			_ = e.emit(ctx, ErrorMessage(err.Error()))
			e.abort("registry_error")
			return err
		}
		e.release = release
	}

	e.logger.Info("interview started",
		zap.String("interview_type", string(req.Kind)),
		zap.String("job_title", profile.JobTitle()),
		zap.String("job_id", req.JobID))

	if err := e.emit(ctx, configMessage(e.Snapshot())); err != nil {
		return err
	}
	if e.cfg.Mode == ModeVoice {
		if err := e.emit(ctx, audioStateEvent(PhaseThinking)); err != nil {
			return err
		}
	}
	return e.runTurn(ctx, "")
}

// Resume restores a previously stored session that is waiting for input.
// It is used by transports that do not hold a connection between turns.
func (e *Engine) Resume(s Session) error {
	if from := e.Phase(); from != PhaseIdle {
		return &ErrInvalidTransition{From: from, To: s.Phase}
	}
	switch s.Phase {
	case PhaseListening:
	case PhaseEnded:
		return ErrSessionEnded
	default:
		return types.NewError(types.ErrInvalidTransition, fmt.Sprintf("cannot resume session in phase %s", s.Phase))
	}
	if err := s.CheckHistory(false); err != nil {
		return types.NewError(types.ErrInvalidRequest, "stored session is inconsistent").WithCause(err)
	}
	s.Mode = e.cfg.Mode
	e.snapMu.Lock()
	e.session = s.Clone()
	e.snapMu.Unlock()
	e.cooldown.Arm(s.LastResponseAt)
	e.buffer.Reset()
	e.phase.Store(PhaseListening)
	e.accepting.Store(true)
	e.logger = e.logger.With(zap.String("session_id", s.ID))
	return nil
}

// HandleFrame feeds one inbound audio frame. Frames are dropped unless the
// engine is listening and the cooldown has elapsed.
func (e *Engine) HandleFrame(ctx context.Context, frame []byte) error {
	if e.cfg.Mode != ModeVoice {
		return types.NewError(types.ErrInvalidRequest, "audio frames are not accepted on a text session")
	}
	switch e.Phase() {
	case PhaseEnded:
		return ErrSessionEnded
	case PhaseListening:
	default:
		e.metrics.RecordFrameDropped(string(e.cfg.Mode), "phase")
		return nil
	}
	if !e.accepting.Load() {
		e.metrics.RecordFrameDropped(string(e.cfg.Mode), "phase")
		return nil
	}
	now := e.now()
	if !e.cooldown.Open(now) {
		e.metrics.RecordFrameDropped(string(e.cfg.Mode), "cooldown")
		return nil
	}
	if !e.buffer.Push(frame, e.detector.IsSpeech(frame), now) {
		return nil
	}

	audio := e.buffer.Take()
	e.accepting.Store(false)
	e.logger.Debug("end of utterance", zap.Int("bytes", len(audio)))
	if err := e.emit(ctx, audioStateEvent(PhaseThinking)); err != nil {
		return err
	}

	var text string
	err := e.call(ctx, "transcription", func(ctx context.Context) error {
		if e.deps.Transcriber == nil {
			return errors.New("no transcriber configured")
		}
		var err error
		text, err = e.deps.Transcriber.Transcribe(ctx, audio)
		return err
	})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if err != nil {
			e.logger.Warn("transcription failed", zap.Error(err))
		} else {
			e.logger.Info("empty transcription, back to listening")
		}
		if err := e.transition(PhaseListening); err != nil {
			return err
		}
		e.armCooldown()
		return e.emit(ctx, audioStateEvent(PhaseListening))
	}

	e.logger.Info("user utterance", zap.String("text", preview(text)))
	if err := e.transition(PhaseThinking); err != nil {
		return err
	}
	return e.runTurn(ctx, text)
}

// HandleText feeds one complete text utterance. Blank input is ignored.
func (e *Engine) HandleText(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	switch p := e.Phase(); p {
	case PhaseEnded:
		return ErrSessionEnded
	case PhaseListening:
	default:
		e.metrics.RecordFrameDropped(string(e.cfg.Mode), "phase")
		return nil
	}
	e.logger.Info("user message", zap.String("text", preview(text)))
	if err := e.transition(PhaseThinking); err != nil {
		return err
	}
	return e.runTurn(ctx, text)
}

// Close tears the session down after a disconnect. It is idempotent.
func (e *Engine) Close() {
	e.buffer.Reset()
	e.accepting.Store(false)
	if e.Phase() != PhaseEnded {
		e.abort("disconnect")
		return
	}
	e.releaseRegistry()
}

// runTurn is entered in PhaseThinking. An empty userText asks for the greeting.
func (e *Engine) runTurn(ctx context.Context, userText string) error {
	greeting := userText == ""
	if !greeting {
		at := e.now()
		e.mutate(func(s *Session) { s.History = append(s.History, Turn{Role: RoleUser, Text: userText, At: at}) })
	}

	if err := e.emit(ctx, thinkingEvent("start")); err != nil {
		return err
	}
	res := e.nextUtterance(ctx, greeting)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.emit(ctx, thinkingEvent("end")); err != nil {
		return err
	}

	if err := e.transition(PhaseSpeaking); err != nil {
		return err
	}
	if e.cfg.Mode == ModeVoice {
		if err := e.emit(ctx, audioStateEvent(PhaseSpeaking)); err != nil {
			return err
		}
	}

	utterance := res.Utterance
	var audio []byte
	if e.cfg.Mode == ModeVoice {
		var err error
		audio, err = e.synthesize(ctx, utterance)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn("synthesis failed, substituting fallback", zap.Error(err))
			utterance = e.cfg.FallbackUtterance
			res.Ending = false
			res.Stage = e.Snapshot().Stage
			res.ContextToken = e.Snapshot().ContextToken
			if res.Stage == "" {
				res.Stage = defaultStage
			}
			if audio, err = e.synthesize(ctx, utterance); err != nil {
				e.logger.Warn("fallback synthesis failed", zap.Error(err))
				audio = nil
			}
		}
	}

	at := e.now()
	e.mutate(func(s *Session) {
		s.History = append(s.History, Turn{Role: RoleAssistant, Text: utterance, At: at})
		if greeting {
			s.Greeted = true
		} else {
			s.TurnCount++
		}
		s.Stage = res.Stage
		s.ContextToken = res.ContextToken
	})
	snap := e.Snapshot()
	if err := snap.CheckHistory(false); err != nil {
		e.logger.Error("history invariant violated", zap.Error(err))
	}
	e.syncRegistry()

	if err := e.emit(ctx, stageEvent(snap.Stage)); err != nil {
		return err
	}
	if err := e.emit(ctx, assistantMessage(utterance)); err != nil {
		return err
	}
	if e.cfg.Mode == ModeVoice {
		if len(audio) > 0 {
			if err := e.emitter.EmitAudio(ctx, audio); err != nil {
				return err
			}
		}
		wait := e.cooldown.PlaybackWait(len(audio))
		e.logger.Debug("waiting for playback",
			zap.Duration("audio", e.cooldown.PlaybackDuration(len(audio))),
			zap.Duration("wait", wait))
		if err := e.sleep(ctx, wait); err != nil {
			return err
		}
	}
	e.armCooldown()
	if !greeting {
		e.metrics.RecordTurn(string(e.cfg.Mode), string(snap.Kind))
	}
	e.logger.Info("turn complete", zap.String("stage", snap.Stage), zap.Int("turn", snap.TurnCount))

	if res.Ending || snap.Stage == StageEnd {
		return e.finish(ctx)
	}
	if err := e.transition(PhaseListening); err != nil {
		return err
	}
	if e.cfg.Mode == ModeVoice {
		return e.emit(ctx, audioStateEvent(PhaseListening))
	}
	return nil
}

// nextUtterance calls the policy and substitutes a fallback on failure, so
// a turn always produces a reply.
func (e *Engine) nextUtterance(ctx context.Context, greeting bool) PolicyResult {
	snap := e.Snapshot()
	req := PolicyRequest{
		Kind:         snap.Kind,
		History:      snap.History,
		Stage:        snap.Stage,
		ContextToken: snap.ContextToken,
		Profile:      snap.Profile,
	}
	var res *PolicyResult
	err := e.call(ctx, "dialogue_policy", func(ctx context.Context) error {
		var err error
		res, err = e.deps.Policy.Next(ctx, req)
		return err
	})
	if err == nil && (res == nil || strings.TrimSpace(res.Utterance) == "") {
		err = errors.New("empty policy result")
	}
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("dialogue policy failed, substituting fallback", zap.Error(err))
		}
		fallback := PolicyResult{
			Utterance:    e.cfg.FallbackUtterance,
			Stage:        snap.Stage,
			ContextToken: snap.ContextToken,
		}
		if greeting {
			fallback.Utterance = e.cfg.FallbackGreeting
		}
		if fallback.Stage == "" {
			fallback.Stage = defaultStage
		}
		return fallback
	}
	out := *res
	if out.Stage == "" {
		out.Stage = snap.Stage
		if out.Stage == "" {
			out.Stage = defaultStage
		}
	}
	return out
}

// finish runs the terminal sequence: goodbye, evaluation, feedback, close.
func (e *Engine) finish(ctx context.Context) error {
	if err := e.transition(PhaseEnded); err != nil {
		return err
	}
	e.logger.Info("interview ending")

	if e.cfg.Mode == ModeVoice {
		e.speak(ctx, e.cfg.Goodbye)
		if err := e.sleep(ctx, e.cfg.GracePeriod); err != nil {
			return err
		}
	}

	report := e.evaluate(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if report != nil {
		e.logger.Info("feedback ready", zap.String("verdict", report.Verdict), zap.Int("score", report.Score))
		if err := e.emit(ctx, feedbackMessage(report)); err != nil {
			return err
		}
		if e.cfg.Mode == ModeVoice {
			e.speak(ctx, fmt.Sprintf("%s. Score: %d. We'll be in touch soon.", report.Verdict, report.Score))
		} else {
			if err := e.emit(ctx, assistantMessage(ResultsText(report))); err != nil {
				return err
			}
		}
		e.saveReport(ctx, report)
	}

	if err := e.sleep(ctx, e.cfg.GracePeriod); err != nil {
		return err
	}
	e.metrics.RecordSessionEnded(string(e.cfg.Mode), "completed")
	e.releaseRegistry()
	return ErrSessionEnded
}

// ResultsText formats the closing message shown on text channels.
func ResultsText(r *FeedbackReport) string {
	verdict := r.Verdict
	if verdict == "" {
		verdict = "Thank you"
	}
	summary := r.Summary
	if summary == "" {
		summary = "We appreciate your time."
	}
	return fmt.Sprintf("\n\n**Interview Results**\n\n%s. Your interview score is %d out of 100.\n\n%s", verdict, r.Score, summary)
}

func (e *Engine) evaluate(ctx context.Context) *FeedbackReport {
	if e.deps.Evaluator == nil {
		return nil
	}
	snap := e.Snapshot()
	var report *FeedbackReport
	err := e.call(ctx, "evaluation", func(ctx context.Context) error {
		var err error
		report, err = e.deps.Evaluator.Evaluate(ctx, EvaluationRequest{
			History: snap.History,
			UserID:  snap.UserID,
			JobID:   snap.JobID,
			Kind:    snap.Kind,
			Profile: snap.Profile,
		})
		return err
	})
	if err != nil {
		e.logger.Error("evaluation failed", zap.Error(err))
		return nil
	}
	if report == nil {
		e.logger.Warn("no feedback returned from evaluation")
	}
	return report
}

func (e *Engine) saveReport(ctx context.Context, report *FeedbackReport) {
	if e.deps.Reports == nil {
		return
	}
	snap := e.Snapshot()
	rec := ReportRecord{
		ID:         uuid.NewString(),
		SessionID:  snap.ID,
		UserID:     snap.UserID,
		JobID:      snap.JobID,
		Kind:       snap.Kind,
		Report:     *report,
		Transcript: snap.History,
		CreatedAt:  e.now(),
	}
	if err := e.call(ctx, "report_sink", func(ctx context.Context) error {
		return e.deps.Reports.SaveReport(ctx, rec)
	}); err != nil {
		e.logger.Error("saving report failed", zap.Error(err))
	}
}

// speak synthesizes and sends a closing line. Failures are logged only.
func (e *Engine) speak(ctx context.Context, text string) {
	audio, err := e.synthesize(ctx, text)
	if err != nil {
		e.logger.Warn("closing synthesis failed", zap.Error(err))
		return
	}
	if len(audio) > 0 {
		if err := e.emitter.EmitAudio(ctx, audio); err != nil {
			e.logger.Debug("closing audio not delivered", zap.Error(err))
		}
	}
}

func (e *Engine) synthesize(ctx context.Context, text string) ([]byte, error) {
	if e.deps.Synthesizer == nil {
		return nil, errors.New("no synthesizer configured")
	}
	var audio []byte
	err := e.call(ctx, "synthesis", func(ctx context.Context) error {
		var err error
		audio, err = e.deps.Synthesizer.Synthesize(ctx, text)
		return err
	})
	return audio, err
}

// call wraps a collaborator call with a span, a timeout and metrics.
func (e *Engine) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, "interview."+name, trace.WithAttributes(
		attribute.String("interview.session_id", e.session.ID),
		attribute.String("interview.mode", string(e.cfg.Mode)),
	))
	defer span.End()

	if e.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.CallTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	e.metrics.RecordCollaboratorCall(name, status, time.Since(start))
	return err
}

func (e *Engine) transition(to Phase) error {
	from := e.Phase()
	if !CanTransition(from, to) {
		return &ErrInvalidTransition{From: from, To: to}
	}
	if to == PhaseListening {
		e.buffer.Reset()
	}
	now := e.now()
	e.mutate(func(s *Session) {
		s.Phase = to
		s.UpdatedAt = now
	})
	e.phase.Store(to)
	e.accepting.Store(to == PhaseListening)
	e.metrics.RecordPhaseTransition(string(e.cfg.Mode), string(from), string(to))
	e.logger.Debug("phase transition", zap.String("from", string(from)), zap.String("to", string(to)))
	e.syncRegistry()
	return nil
}

func (e *Engine) armCooldown() {
	now := e.now()
	e.cooldown.Arm(now)
	e.mutate(func(s *Session) { s.LastResponseAt = now })
}

// abort ends the session without evaluation.
func (e *Engine) abort(reason string) {
	if e.Phase() != PhaseEnded {
		if err := e.transition(PhaseEnded); err != nil {
			e.logger.Warn("abort transition rejected", zap.Error(err))
		}
		e.metrics.RecordSessionEnded(string(e.cfg.Mode), reason)
		e.logger.Info("session aborted", zap.String("reason", reason))
	}
	e.releaseRegistry()
}

func (e *Engine) mutate(fn func(*Session)) {
	e.snapMu.Lock()
	fn(&e.session)
	e.snapMu.Unlock()
}

func (e *Engine) syncRegistry() {
	if e.registry == nil || e.release == nil {
		return
	}
	snap := e.Snapshot()
	if err := e.registry.Update(snap.ID, func(s *Session) { *s = snap }); err != nil {
		e.logger.Debug("registry update skipped", zap.Error(err))
	}
}

func (e *Engine) releaseRegistry() {
	if e.release == nil {
		return
	}
	e.releaseOnce.Do(e.release)
}

func (e *Engine) emit(ctx context.Context, msg Message) error {
	if e.emitter == nil {
		return nil
	}
	return e.emitter.Emit(ctx, msg)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func preview(s string) string {
	const limit = 50
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
