package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/api"
	"github.com/Adhikkesh/Erflog/internal/ctxkeys"
	"github.com/Adhikkesh/Erflog/interview"
	"github.com/Adhikkesh/Erflog/storage"
	"github.com/Adhikkesh/Erflog/types"
)

// =============================================================================
// 🎤 面试接口 Handler
// =============================================================================

const maxJobTitleRunes = 120

// InterviewHandler 面试历史与 HTTP 对话处理器
type InterviewHandler struct {
	history       storage.HistoryReader
	chats         storage.ChatStore
	deps          interview.Dependencies
	engineConfig  func(mode interview.Mode) interview.Config
	defaultUserID string
	metrics       interview.Metrics
	tracer        trace.Tracer
	turns         *turnLocks
	logger        *zap.Logger
}

// InterviewOption configures an InterviewHandler.
type InterviewOption func(*InterviewHandler)

// WithEngineConfig sets the engine tuning used for chat turns.
func WithEngineConfig(fn func(mode interview.Mode) interview.Config) InterviewOption {
	return func(h *InterviewHandler) {
		if fn != nil {
			h.engineConfig = fn
		}
	}
}

// WithDefaultUserID is used when the request carries no authenticated user.
func WithDefaultUserID(id string) InterviewOption {
	return func(h *InterviewHandler) { h.defaultUserID = id }
}

func WithEngineMetrics(m interview.Metrics) InterviewOption {
	return func(h *InterviewHandler) { h.metrics = m }
}

func WithEngineTracer(t trace.Tracer) InterviewOption {
	return func(h *InterviewHandler) { h.tracer = t }
}

// NewInterviewHandler 创建面试处理器。deps 为文本模式协作者，Loader 会按请求
// 的 job_context 替换。history 可为 nil，此时历史接口返回 503。
func NewInterviewHandler(history storage.HistoryReader, chats storage.ChatStore, deps interview.Dependencies, logger *zap.Logger, opts ...InterviewOption) *InterviewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if chats == nil {
		chats = storage.NewMemoryChatStore(0)
	}
	h := &InterviewHandler{
		history:      history,
		chats:        chats,
		deps:         deps,
		engineConfig: interview.DefaultConfig,
		turns:        newTurnLocks(),
		logger:       logger.With(zap.String("component", "interview_handler")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleHistory 返回用户最近的面试记录
// @Summary 面试历史
// @Description 按创建时间倒序返回用户最近 20 次面试及评估报告
// @Tags 面试
// @Produce json
// @Param user_id path string true "用户 ID"
// @Success 200 {array} storage.InterviewSummary "面试记录"
// @Failure 400 {object} Response "无效请求"
// @Failure 500 {object} Response "内部错误"
// @Router /api/v1/interviews/{user_id} [get]
func (h *InterviewHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("user_id"))
	if userID == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "user_id is required", h.logger)
		return
	}
	if h.history == nil {
		WriteErrorMessage(w, r, http.StatusServiceUnavailable, types.ErrServiceUnavailable, "interview history is not configured", h.logger)
		return
	}

	items, err := h.history.ListInterviews(r.Context(), userID, storage.DefaultHistoryLimit)
	if err != nil {
		if _, ok := types.AsError(err); !ok {
			err = types.NewError(types.ErrInternalError, "failed to fetch interview history").WithCause(err)
		}
		WriteError(w, r, err, h.logger)
		return
	}
	if items == nil {
		items = []storage.InterviewSummary{}
	}
	WriteJSON(w, http.StatusOK, items)
}

// HandleChat 执行一轮文本面试
// @Summary 面试对话
// @Description 提交候选人发言并返回面试官回复；user_message 为空时开始新面试
// @Tags 面试
// @Accept json
// @Produce json
// @Param request body api.ChatTurnRequest true "对话请求"
// @Success 200 {object} api.ChatTurnResponse "面试官回复"
// @Failure 400 {object} Response "无效请求"
// @Failure 409 {object} Response "面试已结束"
// @Failure 502 {object} Response "上游失败"
// @Security ApiKeyAuth
// @Router /api/v1/interview/chat [post]
func (h *InterviewHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}
	var req api.ChatTurnRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "session_id is required", h.logger)
		return
	}
	if strings.TrimSpace(req.JobContext) == "" {
		WriteErrorMessage(w, r, http.StatusBadRequest, types.ErrInvalidRequest, "job_context is required", h.logger)
		return
	}

	ctx := ctxkeys.WithSessionID(r.Context(), req.SessionID)
	resp, err := h.chatTurn(ctx, req)
	if err != nil {
		WriteError(w, r, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// chatTurn runs one turn under the session's turn lock. The save is
// version-checked so a writer on another instance cannot be overwritten.
func (h *InterviewHandler) chatTurn(ctx context.Context, req api.ChatTurnRequest) (*api.ChatTurnResponse, error) {
	logger := h.logger.With(zap.String("session_id", req.SessionID))
	userID := h.userID(ctx)
	message := strings.TrimSpace(req.UserMessage)

	unlock, err := h.turns.acquire(ctx, req.SessionID)
	if err != nil {
		return nil, types.NewError(types.ErrServiceUnavailable, "chat session is busy").WithCause(err)
	}
	defer unlock()

	s, version, ok, err := h.chats.LoadChat(ctx, req.SessionID)
	if err != nil {
		return nil, types.NewError(types.ErrServiceUnavailable, "chat session store unavailable").WithCause(err).WithRetryable(true)
	}
	var stored *interview.Session
	switch {
	case ok && message != "":
		stored = s
	case !ok && message != "":
		logger.Info("unknown chat session, starting a new interview")
	}

	emitter := &interview.MemoryEmitter{}
	cfg := h.engineConfig(interview.ModeText)
	cfg.Mode = interview.ModeText
	cfg.GracePeriod = 0
	deps := h.deps
	deps.Loader = jobContextLoader(req.JobContext, userID)

	opts := []interview.Option{interview.WithLogger(logger), interview.WithTracer(h.tracer)}
	if h.metrics != nil {
		opts = append(opts, interview.WithMetrics(h.metrics))
	}
	engine := interview.NewEngine(cfg, deps, emitter, opts...)

	if stored == nil {
		err = engine.Start(ctx, interview.StartRequest{
			SessionID: req.SessionID,
			Kind:      interview.ParseKind(req.InterviewType),
			UserID:    userID,
		})
		if err == nil && message != "" {
			emitter.Reset()
			err = engine.HandleText(ctx, message)
		}
	} else {
		if err := engine.Resume(*stored); err != nil {
			if errors.Is(err, interview.ErrSessionEnded) {
				return nil, types.NewError(types.ErrSessionEnded, "interview has already ended; send an empty user_message to start again")
			}
			return nil, err
		}
		err = engine.HandleText(ctx, message)
	}
	if err != nil && !errors.Is(err, interview.ErrSessionEnded) {
		return nil, err
	}

	snap := engine.Snapshot()
	if err := h.chats.SaveChat(ctx, snap, version); err != nil {
		if errors.Is(err, storage.ErrChatConflict) {
			logger.Warn("chat session changed during turn, discarding result")
			return nil, types.NewError(types.ErrSessionConflict, "chat session was updated by another request; retry with the latest state").WithCause(err)
		}
		logger.Error("saving chat session failed", zap.Error(err))
	}

	return &api.ChatTurnResponse{
		Status:       "success",
		Response:     assistantText(emitter.Messages()),
		Stage:        snap.Stage,
		MessageCount: len(snap.History),
	}, nil
}

func (h *InterviewHandler) userID(ctx context.Context) string {
	if id, ok := ctxkeys.UserID(ctx); ok && id != "" {
		return id
	}
	return h.defaultUserID
}

// assistantText concatenates the assistant messages of one turn. The results
// message carries its own leading blank lines.
func assistantText(msgs []interview.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Type == interview.MessageText && m.Role == interview.RoleAssistant {
			b.WriteString(m.Content)
		}
	}
	return b.String()
}

// jobContextLoader 把自由文本的 job_context 转为面试上下文：首行作为岗位名称，
// 全文作为岗位描述。
func jobContextLoader(jobContext, userID string) interview.ContextLoader {
	jobContext = strings.TrimSpace(jobContext)
	title, _, _ := strings.Cut(jobContext, "\n")
	title = strings.TrimSpace(title)
	if r := []rune(title); len(r) > maxJobTitleRunes {
		title = string(r[:maxJobTitleRunes])
	}
	profile := &interview.Profile{
		Job:       interview.Job{Title: title},
		Candidate: interview.Candidate{ID: userID},
	}
	if jobContext != title {
		profile.Job.Description = jobContext
	}
	return interview.StaticContext(profile)
}

// =============================================================================
// 🔒 会话级轮次锁
// =============================================================================

// turnLocks 按 session_id 串行化 chat 轮次，条目在无人等待时回收
type turnLocks struct {
	mu sync.Mutex
	m  map[string]*turnLock
}

type turnLock struct {
	ch   chan struct{}
	refs int
}

func newTurnLocks() *turnLocks {
	return &turnLocks{m: make(map[string]*turnLock)}
}

// acquire blocks until the session's lock is held or ctx is done.
func (l *turnLocks) acquire(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	e, ok := l.m[id]
	if !ok {
		e = &turnLock{ch: make(chan struct{}, 1)}
		l.m[id] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
		return func() {
			<-e.ch
			l.release(id, e)
		}, nil
	case <-ctx.Done():
		l.release(id, e)
		return nil, ctx.Err()
	}
}

func (l *turnLocks) release(id string, e *turnLock) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.m, id)
	}
	l.mu.Unlock()
}

// active returns the number of sessions holding or waiting on a lock.
func (l *turnLocks) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
