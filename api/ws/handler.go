package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Adhikkesh/Erflog/internal/channel"
	"github.com/Adhikkesh/Erflog/internal/ctxkeys"
	"github.com/Adhikkesh/Erflog/interview"
	"github.com/Adhikkesh/Erflog/interview/textutil"
)

// 客户端可见的错误文案
const (
	msgAuthTimeout      = "Auth timeout"
	msgInvalidJobID     = "Invalid job ID"
	msgInvalidHandshake = "Invalid handshake message"
)

var errHandshakeTimeout = errors.New("ws: handshake timeout")

// Config 适配器配置
type Config struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	FrameQueueSize   int
	DefaultUserID    string
	MaxMessageBytes  int64
	// OriginPatterns 为空时只接受同源请求
	OriginPatterns []string
}

// DefaultConfig returns the adapter defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		FrameQueueSize:   256,
		DefaultUserID:    "1",
		MaxMessageBytes:  1 << 20,
	}
}

// Metrics is the subset of the collector the adapter records to.
type Metrics interface {
	interview.Metrics
	SessionOpened(mode string) func()
}

// EngineConfigFunc returns the engine tuning for a new session. It is
// called once per connection so configuration reloads apply to new
// sessions only.
type EngineConfigFunc func(mode interview.Mode) interview.Config

// Handler serves the voice and text interview channels.
type Handler struct {
	cfg          Config
	engineConfig EngineConfigFunc
	voice        interview.Dependencies
	text         interview.Dependencies
	registry     *interview.Registry
	metrics      Metrics
	tracer       trace.Tracer
	logger       *zap.Logger
}

// Option configures a Handler.
type Option func(*Handler)

func WithMetrics(m Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) { h.tracer = t }
}

// WithEngineConfig overrides interview.DefaultConfig.
func WithEngineConfig(fn EngineConfigFunc) Option {
	return func(h *Handler) {
		if fn != nil {
			h.engineConfig = fn
		}
	}
}

// NewHandler creates the channel handler. voice and text carry the
// collaborators for each channel variant.
func NewHandler(cfg Config, voice, text interview.Dependencies, registry *interview.Registry, logger *zap.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.FrameQueueSize <= 0 {
		cfg.FrameQueueSize = defaults.FrameQueueSize
	}
	if cfg.DefaultUserID == "" {
		cfg.DefaultUserID = defaults.DefaultUserID
	}
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = defaults.MaxMessageBytes
	}
	if registry == nil {
		registry = interview.NewRegistry(logger)
	}
	h := &Handler{
		cfg:          cfg,
		engineConfig: interview.DefaultConfig,
		voice:        voice,
		text:         text,
		registry:     registry,
		logger:       logger.With(zap.String("component", "ws_handler")),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeVoice handles GET /ws/interview/{job_id}.
func (h *Handler) ServeVoice(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, interview.ModeVoice)
}

// ServeText handles GET /ws/interview/text/{job_id}.
func (h *Handler) ServeText(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, interview.ModeText)
}

// =============================================================================
// 🔌 连接生命周期
// =============================================================================

type handshakeMessage struct {
	InterviewType string          `json:"interview_type"`
	UserID        json.RawMessage `json:"user_id,omitempty"`
}

type textMessage struct {
	Message string `json:"message"`
}

type inbound struct {
	audio []byte
	text  string
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, mode interview.Mode) {
	rawJobID := r.PathValue("job_id")

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.cfg.OriginPatterns})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	c.SetReadLimit(h.cfg.MaxMessageBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	done := h.registry.Track(cancel)
	defer done()

	sessionID := uuid.NewString()
	ctx = ctxkeys.WithSessionID(ctx, sessionID)
	logger := h.logger.With(
		zap.String("session_id", sessionID),
		zap.String("mode", string(mode)),
		zap.String("raw_job_id", rawJobID))
	conn := NewConn(c, h.cfg.WriteTimeout, logger)

	if h.metrics != nil {
		closeGauge := h.metrics.SessionOpened(string(mode))
		defer closeGauge()
	}

	hs, err := h.handshake(ctx, conn)
	if err != nil {
		if errors.Is(err, errHandshakeTimeout) {
			logger.Warn("handshake timed out")
			h.reject(ctx, conn, msgAuthTimeout)
			return
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			logger.Warn("invalid handshake", zap.Error(err))
			h.reject(ctx, conn, msgInvalidHandshake)
			return
		}
		logger.Debug("connection lost during handshake", zap.Error(err))
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	var jobID string
	if mode == interview.ModeVoice {
		id, ok := textutil.NormalizeJobID(rawJobID)
		if !ok {
			logger.Warn("rejecting job id without digits")
			h.reject(ctx, conn, msgInvalidJobID)
			return
		}
		jobID = id
	} else {
		jobID = textutil.JobIDOrRaw(rawJobID)
	}

	req := interview.StartRequest{
		SessionID: sessionID,
		Kind:      interview.ParseKind(hs.InterviewType),
		UserID:    h.resolveUserID(r.Context(), hs),
		JobID:     jobID,
	}
	ctx = ctxkeys.WithUserID(ctx, req.UserID)
	logger = logger.With(zap.String("user_id", req.UserID), zap.String("job_id", jobID))
	logger.Info("interview connection accepted", zap.String("interview_type", string(req.Kind)))

	h.run(ctx, conn, mode, req, logger)
}

// handshake waits for the first message. The read runs on the connection
// context; a canceled read context would tear the socket down before the
// timeout error could be delivered.
func (h *Handler) handshake(ctx context.Context, conn *Conn) (handshakeMessage, error) {
	type result struct {
		msg handshakeMessage
		err error
	}
	ch := make(chan result, 1)
	go func() {
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				ch <- result{err: err}
				return
			}
			if typ != websocket.MessageText {
				continue
			}
			var msg handshakeMessage
			if len(strings.TrimSpace(string(data))) > 0 {
				if err := json.Unmarshal(data, &msg); err != nil {
					ch <- result{err: err}
					return
				}
			}
			ch <- result{msg: msg}
			return
		}
	}()

	timer := time.NewTimer(h.cfg.HandshakeTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.msg, res.err
	case <-timer.C:
		return handshakeMessage{}, errHandshakeTimeout
	case <-ctx.Done():
		return handshakeMessage{}, ctx.Err()
	}
}

// resolveUserID: JWT subject, then the handshake user_id, then the default.
func (h *Handler) resolveUserID(ctx context.Context, hs handshakeMessage) string {
	if id, ok := ctxkeys.UserID(ctx); ok && id != "" {
		return id
	}
	if id := scalar(hs.UserID); id != "" {
		return id
	}
	return h.cfg.DefaultUserID
}

// scalar accepts "7" as well as 7.
func scalar(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func (h *Handler) reject(ctx context.Context, conn *Conn, reason string) {
	if err := conn.Emit(ctx, interview.ErrorMessage(reason)); err != nil {
		h.logger.Debug("error message not delivered", zap.Error(err))
	}
	conn.Close(websocket.StatusPolicyViolation, reason)
}

func (h *Handler) run(ctx context.Context, conn *Conn, mode interview.Mode, req interview.StartRequest, logger *zap.Logger) {
	deps := h.voice
	if mode == interview.ModeText {
		deps = h.text
	}
	opts := []interview.Option{
		interview.WithLogger(logger),
		interview.WithRegistry(h.registry),
		interview.WithTracer(h.tracer),
	}
	if h.metrics != nil {
		opts = append(opts, interview.WithMetrics(h.metrics))
	}
	engine := interview.NewEngine(h.engineConfig(mode), deps, conn, opts...)
	defer engine.Close()

	if err := engine.Start(ctx, req); err != nil {
		if errors.Is(err, interview.ErrSessionEnded) {
			conn.Close(websocket.StatusNormalClosure, "interview complete")
			return
		}
		logger.Warn("interview start failed", zap.Error(err))
		conn.Close(websocket.StatusNormalClosure, "")
		return
	}

	queue := channel.NewQueue[inbound](h.cfg.FrameQueueSize)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer queue.Close()
		return h.readLoop(gctx, conn, mode, engine, queue, logger)
	})

	g.Go(func() error {
		for {
			in, err := queue.Receive(gctx)
			if err != nil {
				if errors.Is(err, channel.ErrClosed) {
					return nil
				}
				return err
			}
			if mode == interview.ModeVoice {
				err = engine.HandleFrame(gctx, in.audio)
			} else {
				err = engine.HandleText(gctx, in.text)
			}
			if errors.Is(err, interview.ErrSessionEnded) {
				logger.Info("interview complete, closing channel")
				conn.Close(websocket.StatusNormalClosure, "interview complete")
				return err
			}
			if err != nil {
				return err
			}
		}
	})

	if err := g.Wait(); err != nil && !isDisconnect(err) {
		logger.Warn("interview connection ended with error", zap.Error(err))
	} else {
		logger.Info("interview connection closed")
	}
	dropped := queue.Drain()
	if dropped > 0 {
		logger.Debug("discarded queued input", zap.Int("items", dropped))
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// readLoop 读取入站消息。语音帧在引擎不接收时到达即丢弃，队列满时同样丢弃；
// 文本消息按序阻塞入队。
func (h *Handler) readLoop(ctx context.Context, conn *Conn, mode interview.Mode, engine *interview.Engine, queue *channel.Queue[inbound], logger *zap.Logger) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		switch mode {
		case interview.ModeVoice:
			if typ != websocket.MessageBinary {
				logger.Debug("ignoring text message on voice channel")
				continue
			}
			if !engine.Accepting() {
				h.recordDrop(mode, "phase")
				continue
			}
			if !queue.TrySend(inbound{audio: data}) {
				h.recordDrop(mode, "queue_full")
			}
		default:
			if typ != websocket.MessageText {
				continue
			}
			var msg textMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				logger.Debug("ignoring malformed text message", zap.Error(err))
				continue
			}
			if strings.TrimSpace(msg.Message) == "" {
				continue
			}
			if err := queue.Send(ctx, inbound{text: msg.Message}); err != nil {
				return err
			}
		}
	}
}

func (h *Handler) recordDrop(mode interview.Mode, reason string) {
	if h.metrics != nil {
		h.metrics.RecordFrameDropped(string(mode), reason)
	}
}

func isDisconnect(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, interview.ErrSessionEnded) || errors.Is(err, net.ErrClosed) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
		return true
	}
	return false
}
