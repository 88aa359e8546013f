package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Adhikkesh/Erflog/interview"
	"github.com/Adhikkesh/Erflog/llm"
	"github.com/Adhikkesh/Erflog/testutil"
	"github.com/Adhikkesh/Erflog/testutil/fixtures"
	"github.com/Adhikkesh/Erflog/testutil/mocks"
	"github.com/Adhikkesh/Erflog/types"
)

func TestParseReport(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		score   int
		verdict string
		wantErr bool
	}{
		{name: "plain", input: `{"score": 72, "verdict": "Hire", "summary": "ok"}`, score: 72, verdict: "Hire"},
		{name: "fenced", input: "```json\n{\"score\": 91}\n```", score: 91, verdict: VerdictStrongHire},
		{name: "float score", input: `{"score": 55.6}`, score: 56, verdict: VerdictHire},
		{name: "clamped high", input: `{"score": 140}`, score: 100, verdict: VerdictStrongHire},
		{name: "clamped low", input: `{"score": -5}`, score: 0, verdict: VerdictNoHire},
		{name: "no json", input: "I cannot evaluate this.", wantErr: true},
		{name: "bad score", input: `{"score": "high"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseReport(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.score, r.Score)
			assert.Equal(t, tt.verdict, r.Verdict)
		})
	}
}

func TestEvaluator_Evaluate(t *testing.T) {
	prov := mocks.NewMockProvider().WithReplies(`{"score": 81, "verdict": "Strong Hire", "summary": "Solid.", "strengths": ["Go", " "], "improvements": ["SQL"]}`)
	ev := NewEvaluator(prov, Config{Model: "m"}, zaptest.NewLogger(t))

	report, err := ev.Evaluate(testutil.TestContext(t), interview.EvaluationRequest{
		Kind:    interview.KindTechnical,
		Profile: testProfile,
		History: []interview.Turn{
			{Role: interview.RoleAssistant, Text: "Tell me about Go."},
			{Role: interview.RoleUser, Text: "I build services with it."},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 81, report.Score)
	assert.Equal(t, []string{"Go"}, report.Strengths)

	req := prov.LastRequest()
	assert.True(t, req.JSONMode)
	assert.Contains(t, req.Messages[1].Content, "Asha: I build services with it.")
}

func TestEvaluator_NoAnswersNoReport(t *testing.T) {
	prov := mocks.NewMockProvider()
	ev := NewEvaluator(prov, Config{}, zaptest.NewLogger(t))
	report, err := ev.Evaluate(testutil.TestContext(t), interview.EvaluationRequest{
		History: []interview.Turn{{Role: interview.RoleAssistant, Text: "Hello?"}},
	})
	assert.NoError(t, err)
	assert.Nil(t, report)
	assert.Nil(t, prov.LastRequest())
}

func TestEvaluator_GarbageIsEvaluationFailure(t *testing.T) {
	ev := NewEvaluator(mocks.NewMockProvider().WithReplies("n/a"), Config{}, zaptest.NewLogger(t))
	_, err := ev.Evaluate(testutil.TestContext(t), interview.EvaluationRequest{
		History: []interview.Turn{{Role: interview.RoleUser, Text: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrEvaluationFailed))
}

func TestEvaluator_TranscriptCoversWholeConversation(t *testing.T) {
	prov := mocks.NewMockProvider().WithReplies(`{"score": 64}`)
	ev := NewEvaluator(prov, Config{Model: "m"}, zaptest.NewLogger(t))

	report, err := ev.Evaluate(testutil.TestContext(t), interview.EvaluationRequest{
		Kind:    interview.KindHR,
		Profile: fixtures.BackendProfile(),
		History: fixtures.Conversation(3),
	})
	require.NoError(t, err)
	assert.Equal(t, VerdictFor(64), report.Verdict)

	req := prov.LastRequest()
	testutil.AssertMessageRoles(t, req.Messages, llm.RoleSystem, llm.RoleUser)
	transcript := req.Messages[1].Content
	assert.Contains(t, transcript, "Interviewer: Question 1?")
	assert.Contains(t, transcript, "Asha: Answer 3.")
	assert.Contains(t, req.Messages[0].Content, "Backend Engineer")
	assert.Equal(t, 1, prov.CallCount())
}
