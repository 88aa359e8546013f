package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/api"
	"github.com/Adhikkesh/Erflog/internal/ctxkeys"
	"github.com/Adhikkesh/Erflog/interview"
	"github.com/Adhikkesh/Erflog/storage"
)

type chatPolicy struct {
	mu       sync.Mutex
	replies  []interview.PolicyResult
	requests []interview.PolicyRequest
}

func (p *chatPolicy) Next(_ context.Context, req interview.PolicyRequest) (*interview.PolicyResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.requests)
	p.requests = append(p.requests, req)
	if i >= len(p.replies) {
		i = len(p.replies) - 1
	}
	res := p.replies[i]
	return &res, nil
}

type staticEvaluator struct{}

func (staticEvaluator) Evaluate(context.Context, interview.EvaluationRequest) (*interview.FeedbackReport, error) {
	return &interview.FeedbackReport{Score: 64, Verdict: "Hire", Summary: "Solid fundamentals."}, nil
}

func chatReplies() []interview.PolicyResult {
	return []interview.PolicyResult{
		{Utterance: "Welcome! Tell me about yourself.", Stage: "intro"},
		{Utterance: "What was your hardest bug?", Stage: "experience"},
		{Utterance: "Thanks, we are done.", Stage: interview.StageEnd, Ending: true},
	}
}

func newChatHandler(policy *chatPolicy) (*InterviewHandler, *storage.MemoryChatStore) {
	chats := storage.NewMemoryChatStore(time.Hour)
	h := NewInterviewHandler(nil, chats, interview.Dependencies{
		Policy:    policy,
		Evaluator: staticEvaluator{},
	}, zap.NewNop(), WithDefaultUserID("1"))
	return h, chats
}

func postChat(t *testing.T, h *InterviewHandler, body any, ctx context.Context) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/interview/chat", bytes.NewReader(data))
	r.Header.Set("Content-Type", "application/json")
	if ctx != nil {
		r = r.WithContext(ctx)
	}
	w := httptest.NewRecorder()
	h.HandleChat(w, r)
	return w
}

func decodeChat(t *testing.T, w *httptest.ResponseRecorder) api.ChatTurnResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp api.ChatTurnResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp
}

func TestInterviewHandler_ChatValidation(t *testing.T) {
	h, _ := newChatHandler(&chatPolicy{replies: chatReplies()})

	tests := []struct {
		name string
		body api.ChatTurnRequest
		want string
	}{
		{name: "missing session", body: api.ChatTurnRequest{JobContext: "Go Engineer"}, want: "session_id is required"},
		{name: "missing job context", body: api.ChatTurnRequest{SessionID: "s1"}, want: "job_context is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postChat(t, h, tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp Response
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, "INVALID_REQUEST", resp.Error.Code)
			assert.Equal(t, tt.want, resp.Error.Message)
		})
	}
}

func TestInterviewHandler_ChatConversation(t *testing.T) {
	policy := &chatPolicy{replies: chatReplies()}
	h, chats := newChatHandler(policy)

	start := decodeChat(t, postChat(t, h, api.ChatTurnRequest{
		SessionID:  "s1",
		JobContext: "Senior Go Engineer\nBuild the interview platform.",
	}, nil))
	assert.Equal(t, "success", start.Status)
	assert.Equal(t, "Welcome! Tell me about yourself.", start.Response)
	assert.Equal(t, "intro", start.Stage)
	assert.Equal(t, 1, start.MessageCount)

	require.Len(t, policy.requests, 1)
	profile := policy.requests[0].Profile
	require.NotNil(t, profile)
	assert.Equal(t, "Senior Go Engineer", profile.Job.Title)
	assert.Equal(t, "Senior Go Engineer\nBuild the interview platform.", profile.Job.Description)
	assert.Equal(t, "1", profile.Candidate.ID)

	turn := decodeChat(t, postChat(t, h, api.ChatTurnRequest{
		SessionID: "s1", UserMessage: "I build APIs.", JobContext: "Senior Go Engineer",
	}, nil))
	assert.Equal(t, "What was your hardest bug?", turn.Response)
	assert.Equal(t, "experience", turn.Stage)
	assert.Equal(t, 3, turn.MessageCount)

	stored, _, ok, err := chats.LoadChat(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, interview.PhaseListening, stored.Phase)
	assert.Len(t, stored.History, 3)

	final := decodeChat(t, postChat(t, h, api.ChatTurnRequest{
		SessionID: "s1", UserMessage: "A race in a cache.", JobContext: "Senior Go Engineer",
	}, nil))
	assert.Equal(t, interview.StageEnd, final.Stage)
	assert.Contains(t, final.Response, "Thanks, we are done.")
	assert.Contains(t, final.Response, "**Interview Results**")
	assert.Contains(t, final.Response, "Hire. Your interview score is 64 out of 100.")

	w := postChat(t, h, api.ChatTurnRequest{SessionID: "s1", UserMessage: "Hello?", JobContext: "Senior Go Engineer"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	restart := decodeChat(t, postChat(t, h, api.ChatTurnRequest{SessionID: "s1", JobContext: "Senior Go Engineer"}, nil))
	assert.Equal(t, 1, restart.MessageCount)
}

func TestInterviewHandler_ChatUnknownSessionStartsFresh(t *testing.T) {
	policy := &chatPolicy{replies: chatReplies()}
	h, _ := newChatHandler(policy)

	ctx := ctxkeys.WithUserID(context.Background(), "user-7")
	resp := decodeChat(t, postChat(t, h, api.ChatTurnRequest{
		SessionID: "fresh", UserMessage: "Hi there", JobContext: "HR Partner", InterviewType: "hr",
	}, ctx))

	assert.Equal(t, "What was your hardest bug?", resp.Response)
	assert.Equal(t, 3, resp.MessageCount)
	require.Len(t, policy.requests, 2)
	assert.Equal(t, interview.KindHR, policy.requests[0].Kind)
	assert.Equal(t, "user-7", policy.requests[0].Profile.Candidate.ID)
}

type fakeHistory struct {
	items  []storage.InterviewSummary
	err    error
	userID string
	limit  int
}

func (f *fakeHistory) ListInterviews(_ context.Context, userID string, limit int) ([]storage.InterviewSummary, error) {
	f.userID, f.limit = userID, limit
	return f.items, f.err
}

func getHistory(h *InterviewHandler, userID string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/interviews/"+userID, nil)
	r.SetPathValue("user_id", userID)
	w := httptest.NewRecorder()
	h.HandleHistory(w, r)
	return w
}

func TestInterviewHandler_History(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reader := &fakeHistory{items: []storage.InterviewSummary{{
		ID:             "iv-1",
		CreatedAt:      created,
		FeedbackReport: storage.ParseFailedReport,
		InterviewType:  "TECHNICAL",
		JobID:          "7",
	}}}
	h := NewInterviewHandler(reader, nil, interview.Dependencies{}, zap.NewNop())

	w := getHistory(h, "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", reader.userID)
	assert.Equal(t, storage.DefaultHistoryLimit, reader.limit)

	var items []map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "iv-1", items[0]["id"])
	assert.Equal(t, map[string]any{"score": float64(0), "verdict": "Error", "summary": "Failed to parse feedback"}, items[0]["feedback_report"])
}

func TestInterviewHandler_HistoryEdgeCases(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		h := NewInterviewHandler(&fakeHistory{}, nil, interview.Dependencies{}, zap.NewNop())
		w := getHistory(h, "u1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, "[]", w.Body.String())
	})
	t.Run("store failure", func(t *testing.T) {
		h := NewInterviewHandler(&fakeHistory{err: errors.New("connection reset")}, nil, interview.Dependencies{}, zap.NewNop())
		w := getHistory(h, "u1")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "connection reset")
	})
	t.Run("not configured", func(t *testing.T) {
		h := NewInterviewHandler(nil, nil, interview.Dependencies{}, zap.NewNop())
		w := getHistory(h, "u1")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

// slowPolicy 在每次调用时停顿，放大并发轮次之间的窗口
type slowPolicy struct {
	chatPolicy
	delay time.Duration
}

func (p *slowPolicy) Next(ctx context.Context, req interview.PolicyRequest) (*interview.PolicyResult, error) {
	time.Sleep(p.delay)
	return p.chatPolicy.Next(ctx, req)
}

func TestInterviewHandler_ConcurrentTurnsAreSerialized(t *testing.T) {
	policy := &slowPolicy{
		chatPolicy: chatPolicy{replies: []interview.PolicyResult{
			{Utterance: "Welcome!", Stage: "intro"},
			{Utterance: "Go on.", Stage: "experience"},
		}},
		delay: 50 * time.Millisecond,
	}
	chats := storage.NewMemoryChatStore(time.Hour)
	h := NewInterviewHandler(nil, chats, interview.Dependencies{Policy: policy, Evaluator: staticEvaluator{}}, zap.NewNop())

	decodeChat(t, postChat(t, h, api.ChatTurnRequest{SessionID: "s1", JobContext: "Go Engineer"}, nil))

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, answer := range []string{"answer A", "answer B"} {
		wg.Add(1)
		go func(i int, answer string) {
			defer wg.Done()
			codes[i] = postChat(t, h, api.ChatTurnRequest{SessionID: "s1", UserMessage: answer, JobContext: "Go Engineer"}, nil).Code
		}(i, answer)
	}
	wg.Wait()
	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)

	stored, _, ok, err := chats.LoadChat(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, stored.TurnCount)
	require.Len(t, stored.History, 5)
	var answers []string
	for _, turn := range stored.History {
		if turn.Role == interview.RoleUser {
			answers = append(answers, turn.Text)
		}
	}
	assert.ElementsMatch(t, []string{"answer A", "answer B"}, answers)

	// 第二轮的策略调用看到了第一轮的结果
	require.Len(t, policy.requests, 3)
	assert.Len(t, policy.requests[1].History, 2)
	assert.Len(t, policy.requests[2].History, 4)
	assert.Zero(t, h.turns.active())
}

// racingChatStore 在 Load 与 Save 之间模拟另一实例的写入
type racingChatStore struct {
	*storage.MemoryChatStore
}

func (s racingChatStore) SaveChat(ctx context.Context, sess interview.Session, version int64) error {
	other := sess.Clone()
	other.Stage = "written-elsewhere"
	if err := s.MemoryChatStore.SaveChat(ctx, other, version); err != nil {
		return err
	}
	return s.MemoryChatStore.SaveChat(ctx, sess, version)
}

func TestInterviewHandler_ChatConflictFromAnotherWriter(t *testing.T) {
	chats := racingChatStore{storage.NewMemoryChatStore(time.Hour)}
	h := NewInterviewHandler(nil, chats, interview.Dependencies{
		Policy:    &chatPolicy{replies: chatReplies()},
		Evaluator: staticEvaluator{},
	}, zap.NewNop())

	w := postChat(t, h, api.ChatTurnRequest{SessionID: "s1", JobContext: "Go Engineer"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SESSION_CONFLICT", resp.Error.Code)

	stored, _, ok, err := chats.LoadChat(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "written-elsewhere", stored.Stage)
}

func TestTurnLocks(t *testing.T) {
	locks := newTurnLocks()
	unlock, err := locks.acquire(context.Background(), "s1")
	require.NoError(t, err)

	// 其他会话不受影响
	other, err := locks.acquire(context.Background(), "s2")
	require.NoError(t, err)
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.acquire(ctx, "s1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, locks.active())

	unlock()
	assert.Zero(t, locks.active())
	again, err := locks.acquire(context.Background(), "s1")
	require.NoError(t, err)
	again()
}
