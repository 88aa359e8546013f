package ws

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Adhikkesh/Erflog/internal/ctxkeys"
	"github.com/Adhikkesh/Erflog/interview"
)

// =============================================================================
// 🧪 测试替身
// =============================================================================

type recordingLoader struct {
	mu    sync.Mutex
	calls [][2]string
	err   error
}

func (l *recordingLoader) LoadContext(_ context.Context, userID, jobID string) (*interview.Profile, error) {
	l.mu.Lock()
	l.calls = append(l.calls, [2]string{userID, jobID})
	l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return &interview.Profile{
		Job:       interview.Job{ID: jobID, Title: "Backend Engineer"},
		Candidate: interview.Candidate{ID: userID, Name: "Ada"},
	}, nil
}

func (l *recordingLoader) last() [2]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.calls) == 0 {
		return [2]string{}
	}
	return l.calls[len(l.calls)-1]
}

type stepPolicy struct {
	mu      sync.Mutex
	results []interview.PolicyResult
	n       int
}

func (p *stepPolicy) Next(_ context.Context, _ interview.PolicyRequest) (*interview.PolicyResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	res := p.results[len(p.results)-1]
	if p.n < len(p.results) {
		res = p.results[p.n]
	}
	p.n++
	return &res, nil
}

type fixedEvaluator struct{}

func (fixedEvaluator) Evaluate(context.Context, interview.EvaluationRequest) (*interview.FeedbackReport, error) {
	return &interview.FeedbackReport{Score: 82, Verdict: "Strong Hire", Summary: "Clear answers."}, nil
}

type fixedTranscriber struct {
	mu    sync.Mutex
	calls int
}

func (f *fixedTranscriber) Transcribe(context.Context, []byte) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return "I build services in Go.", nil
}

func (f *fixedTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func twoTurnPolicy() *stepPolicy {
	return &stepPolicy{results: []interview.PolicyResult{
		{Utterance: "Hi Ada, tell me about yourself.", Stage: "intro"},
		{Utterance: "Thanks, that's all for today.", Stage: interview.StageEnd, Ending: true},
	}}
}

func fastEngineConfig(mode interview.Mode) interview.Config {
	cfg := interview.DefaultConfig(mode)
	cfg.GracePeriod = 0
	cfg.Cooldown = 0
	cfg.PlaybackMargin = 0
	cfg.SilenceDuration = 0
	cfg.SilenceThreshold = 500
	return cfg
}

type fixture struct {
	server   *httptest.Server
	registry *interview.Registry
	loader   *recordingLoader
}

func newFixture(t *testing.T, cfg Config, deps interview.Dependencies, wrap func(http.Handler) http.Handler) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	loader := &recordingLoader{}
	if deps.Loader == nil {
		deps.Loader = loader
	}
	registry := interview.NewRegistry(logger)
	h := NewHandler(cfg, deps, deps, registry, logger, WithEngineConfig(fastEngineConfig))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/interview/text/{job_id}", h.ServeText)
	mux.HandleFunc("GET /ws/interview/{job_id}", h.ServeVoice)
	var handler http.Handler = mux
	if wrap != nil {
		handler = wrap(mux)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &fixture{server: srv, registry: registry, loader: loader}
}

func (f *fixture) dial(t *testing.T, ctx context.Context, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + path
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return c
}

func send(t *testing.T, ctx context.Context, c *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, c.Write(ctx, websocket.MessageText, data))
}

// next returns the next JSON message, skipping binary audio.
func next(t *testing.T, ctx context.Context, c *websocket.Conn) interview.Message {
	t.Helper()
	for {
		typ, data, err := c.Read(ctx)
		require.NoError(t, err)
		if typ == websocket.MessageBinary {
			continue
		}
		var msg interview.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	}
}

// waitFor reads until a message satisfies match.
func waitFor(t *testing.T, ctx context.Context, c *websocket.Conn, match func(interview.Message) bool) interview.Message {
	t.Helper()
	for {
		msg := next(t, ctx, c)
		if match(msg) {
			return msg
		}
	}
}

func isAssistant(m interview.Message) bool {
	return m.Type == interview.MessageText && m.Role == interview.RoleAssistant
}

func pcm(amplitude int16, samples int) []byte {
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(amplitude))
	}
	return out
}

func readUntilClosed(ctx context.Context, c *websocket.Conn) error {
	for {
		if _, _, err := c.Read(ctx); err != nil {
			return err
		}
	}
}

// =============================================================================
// 🔐 握手
// =============================================================================

func TestHandler_HandshakeTimeout(t *testing.T) {
	f := newFixture(t, Config{HandshakeTimeout: 50 * time.Millisecond}, interview.Dependencies{Policy: twoTurnPolicy()}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := f.dial(t, ctx, "/ws/interview/text/7")
	msg := next(t, ctx, c)
	assert.Equal(t, interview.MessageError, msg.Type)
	assert.Equal(t, "Auth timeout", msg.Message)

	err := readUntilClosed(ctx, c)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
	assert.Equal(t, 0, f.registry.Len())
	assert.Empty(t, f.loader.calls)
}

func TestHandler_VoiceRejectsJobIDWithoutDigits(t *testing.T) {
	f := newFixture(t, Config{}, interview.Dependencies{Policy: twoTurnPolicy()}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := f.dial(t, ctx, "/ws/interview/draft")
	send(t, ctx, c, map[string]any{"interview_type": "technical"})

	msg := next(t, ctx, c)
	assert.Equal(t, interview.MessageError, msg.Type)
	assert.Equal(t, "Invalid job ID", msg.Message)
	assert.Empty(t, f.loader.calls)
}

func TestHandler_InvalidHandshake(t *testing.T) {
	f := newFixture(t, Config{}, interview.Dependencies{Policy: twoTurnPolicy()}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := f.dial(t, ctx, "/ws/interview/text/7")
	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{not json")))

	msg := next(t, ctx, c)
	assert.Equal(t, interview.MessageError, msg.Type)
	assert.Equal(t, "Invalid handshake message", msg.Message)
}

func TestHandler_ContextFailure(t *testing.T) {
	loader := &recordingLoader{err: errors.New("job 7 not found")}
	f := newFixture(t, Config{}, interview.Dependencies{Loader: loader, Policy: twoTurnPolicy()}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := f.dial(t, ctx, "/ws/interview/text/7")
	send(t, ctx, c, map[string]any{"interview_type": "HR"})

	msg := waitFor(t, ctx, c, func(m interview.Message) bool { return m.Type == interview.MessageError })
	assert.Equal(t, "Failed to load interview context: job 7 not found", msg.Message)
	_ = readUntilClosed(ctx, c)
	assert.Equal(t, 0, f.registry.Len())
}

func TestHandler_UserIDResolution(t *testing.T) {
	tests := []struct {
		name      string
		handshake map[string]any
		jwtUser   string
		want      string
	}{
		{name: "numeric handshake id", handshake: map[string]any{"user_id": 42}, want: "42"},
		{name: "string handshake id", handshake: map[string]any{"user_id": "u-9"}, want: "u-9"},
		{name: "default", handshake: map[string]any{}, want: "1"},
		{name: "jwt subject wins", handshake: map[string]any{"user_id": 42}, jwtUser: "sub-1", want: "sub-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var wrap func(http.Handler) http.Handler
			if tt.jwtUser != "" {
				wrap = func(next http.Handler) http.Handler {
					return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						next.ServeHTTP(w, r.WithContext(ctxkeys.WithUserID(r.Context(), tt.jwtUser)))
					})
				}
			}
			f := newFixture(t, Config{}, interview.Dependencies{Policy: twoTurnPolicy()}, wrap)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			c := f.dial(t, ctx, "/ws/interview/text/job_7")
			send(t, ctx, c, tt.handshake)
			waitFor(t, ctx, c, isAssistant)

			assert.Equal(t, [2]string{tt.want, "7"}, f.loader.last())
		})
	}
}

// =============================================================================
// 💬 文本通道
// =============================================================================

func TestHandler_TextInterviewEndToEnd(t *testing.T) {
	f := newFixture(t, Config{}, interview.Dependencies{
		Policy:    twoTurnPolicy(),
		Evaluator: fixedEvaluator{},
	}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := f.dial(t, ctx, "/ws/interview/text/job_7")
	send(t, ctx, c, map[string]any{"interview_type": "hr", "user_id": "u1"})

	cfg := next(t, ctx, c)
	require.Equal(t, interview.MessageConfig, cfg.Type)
	assert.Equal(t, interview.KindHR, cfg.InterviewType)
	assert.Equal(t, "Backend Engineer", cfg.JobTitle)
	assert.Equal(t, "Ada", cfg.UserName)
	assert.NotEmpty(t, cfg.SessionID)

	greeting := waitFor(t, ctx, c, isAssistant)
	assert.Equal(t, "Hi Ada, tell me about yourself.", greeting.Content)

	live, ok := f.registry.Get(cfg.SessionID)
	require.True(t, ok)
	assert.Equal(t, interview.PhaseListening, live.Phase)

	send(t, ctx, c, map[string]string{"message": "I write Go."})
	closing := waitFor(t, ctx, c, isAssistant)
	assert.Equal(t, "Thanks, that's all for today.", closing.Content)

	feedback := waitFor(t, ctx, c, func(m interview.Message) bool { return m.Type == interview.MessageFeedback })
	assert.NotNil(t, feedback.Data)

	results := waitFor(t, ctx, c, isAssistant)
	assert.Contains(t, results.Content, "**Interview Results**")
	assert.Contains(t, results.Content, "Strong Hire. Your interview score is 82 out of 100.")

	err := readUntilClosed(ctx, c)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
	assert.Eventually(t, func() bool { return f.registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_DisconnectReleasesSession(t *testing.T) {
	f := newFixture(t, Config{}, interview.Dependencies{Policy: twoTurnPolicy()}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := f.dial(t, ctx, "/ws/interview/text/7")
	send(t, ctx, c, map[string]any{})
	waitFor(t, ctx, c, isAssistant)
	require.Equal(t, 1, f.registry.Len())

	require.NoError(t, c.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return f.registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// =============================================================================
// 🎙️ 语音通道
// =============================================================================

func TestHandler_VoiceTurn(t *testing.T) {
	stt := &fixedTranscriber{}
	synth := interview.SynthesizerFunc(func(_ context.Context, text string) ([]byte, error) {
		return pcm(0, 32), nil
	})
	f := newFixture(t, Config{}, interview.Dependencies{
		Policy:      twoTurnPolicy(),
		Transcriber: stt,
		Synthesizer: synth,
	}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := f.dial(t, ctx, "/ws/interview/job_12")
	send(t, ctx, c, map[string]any{"interview_type": "technical"})

	var sawAudio bool
	for {
		typ, data, err := c.Read(ctx)
		require.NoError(t, err)
		if typ == websocket.MessageBinary {
			sawAudio = true
			continue
		}
		var msg interview.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Event == interview.EventAudioState && msg.State == string(interview.PhaseListening) {
			break
		}
	}
	assert.True(t, sawAudio)
	assert.Equal(t, [2]string{"1", "12"}, f.loader.last())

	require.NoError(t, c.Write(ctx, websocket.MessageBinary, pcm(4000, 160)))
	require.NoError(t, c.Write(ctx, websocket.MessageBinary, pcm(0, 160)))

	msg := waitFor(t, ctx, c, isAssistant)
	assert.Equal(t, "Thanks, that's all for today.", msg.Content)
	assert.Equal(t, 1, stt.Calls())
}
