package policy

import (
	"errors"
	"strings"
	"testing"
	"time"

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

var testProfile = fixtures.BackendProfile()

func newTestPolicy(t *testing.T, p llm.Provider, mode interview.Mode) *LLMPolicy {
	t.Helper()
	return NewLLMPolicy(p, Config{Model: "gpt-4o-mini", MaxTokens: 200, Mode: mode}, zaptest.NewLogger(t))
}

func TestLLMPolicy_GreetingStartsAtIntro(t *testing.T) {
	prov := mocks.NewMockProvider().WithReplies("Hi Asha, welcome! Could you introduce yourself?")
	pol := newTestPolicy(t, prov, interview.ModeText)

	res, err := pol.Next(testutil.TestContext(t), interview.PolicyRequest{
		Kind:    interview.KindTechnical,
		Profile: testProfile,
	})
	require.NoError(t, err)
	assert.Equal(t, "intro", res.Stage)
	assert.False(t, res.Ending)
	assert.NotEmpty(t, res.ContextToken)

	req := prov.LastRequest()
	require.NotNil(t, req)
	testutil.AssertMessageRoles(t, req.Messages, llm.RoleSystem, llm.RoleUser)
	require.Len(t, req.Messages, 2)
	assert.Contains(t, req.Messages[0].Content, "Backend Engineer")
	assert.Contains(t, req.Messages[0].Content, "Asha")
	assert.Contains(t, req.Messages[0].Content, "Current stage: intro")
	assert.Equal(t, kickoffMessage, req.Messages[1].Content)
}

// walk drives the policy through a whole interview and returns the stages seen.
func walk(t *testing.T, kind interview.Kind) []string {
	t.Helper()
	pol := newTestPolicy(t, mocks.NewMockProvider(), interview.ModeText)
	ctx := testutil.TestContext(t)

	var (
		history []interview.Turn
		stages  []string
		stage   string
		token   string
	)
	for i := 0; i < 30; i++ {
		res, err := pol.Next(ctx, interview.PolicyRequest{
			Kind: kind, History: history, Stage: stage, ContextToken: token, Profile: testProfile,
		})
		require.NoError(t, err)
		stages = append(stages, res.Stage)
		if res.Ending {
			return stages
		}
		stage, token = res.Stage, res.ContextToken
		history = append(history,
			interview.Turn{Role: interview.RoleAssistant, Text: res.Utterance, At: time.Now()},
			interview.Turn{Role: interview.RoleUser, Text: "answer", At: time.Now()},
		)
	}
	t.Fatalf("interview never ended: %v", stages)
	return nil
}

func TestLLMPolicy_WalksTechnicalPlan(t *testing.T) {
	stages := walk(t, interview.KindTechnical)
	assert.Equal(t, []string{
		"intro",
		"experience", "experience",
		"technical", "technical", "technical",
		"problem_solving", "problem_solving",
		"closing",
		interview.StageEnd,
	}, stages)
}

func TestLLMPolicy_WalksHRPlan(t *testing.T) {
	stages := walk(t, interview.KindHR)
	assert.Equal(t, "intro", stages[0])
	assert.Contains(t, stages, "behavioral")
	assert.Contains(t, stages, "culture")
	assert.Equal(t, interview.StageEnd, stages[len(stages)-1])
}

func TestLLMPolicy_RebuildsFromStageWithoutToken(t *testing.T) {
	pol := newTestPolicy(t, mocks.NewMockProvider(), interview.ModeText)
	res, err := pol.Next(testutil.TestContext(t), interview.PolicyRequest{
		Kind:         interview.KindTechnical,
		Stage:        "closing",
		ContextToken: "not-a-token!",
		History: []interview.Turn{
			{Role: interview.RoleAssistant, Text: "Any questions?"},
			{Role: interview.RoleUser, Text: "No, thanks."},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, interview.StageEnd, res.Stage)
	assert.True(t, res.Ending)
}

func TestLLMPolicy_EmptyReplyIsPolicyFailure(t *testing.T) {
	pol := newTestPolicy(t, mocks.NewMockProvider().WithReplies("   "), interview.ModeText)
	_, err := pol.Next(testutil.TestContext(t), interview.PolicyRequest{Kind: interview.KindHR})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrPolicyFailed))
}

func TestLLMPolicy_ProviderErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	pol := newTestPolicy(t, mocks.NewMockProvider().WithError(boom), interview.ModeText)
	_, err := pol.Next(testutil.TestContext(t), interview.PolicyRequest{Kind: interview.KindHR})
	assert.ErrorIs(t, err, boom)
}

func TestLLMPolicy_VoiceModeStripsMarkdown(t *testing.T) {
	prov := mocks.NewMockProvider().WithReplies("Interviewer: **Great**, tell me about _Go_.")
	pol := newTestPolicy(t, prov, interview.ModeVoice)
	res, err := pol.Next(testutil.TestContext(t), interview.PolicyRequest{Kind: interview.KindTechnical})
	require.NoError(t, err)
	assert.Equal(t, "Great, tell me about Go.", res.Utterance)
	assert.Contains(t, prov.LastRequest().Messages[0].Content, "spoken aloud")
}

func TestLLMPolicy_HistoryTrimmedToBudget(t *testing.T) {
	prov := mocks.NewMockProvider()
	pol := NewLLMPolicy(prov, Config{Model: "unknown-model", HistoryTokenBudget: 120}, zaptest.NewLogger(t))

	var history []interview.Turn
	for i := 0; i < 40; i++ {
		history = append(history,
			interview.Turn{Role: interview.RoleAssistant, Text: strings.Repeat("question ", 10)},
			interview.Turn{Role: interview.RoleUser, Text: strings.Repeat("answer ", 10)},
		)
	}
	_, err := pol.Next(testutil.TestContext(t), interview.PolicyRequest{Kind: interview.KindTechnical, History: history})
	require.NoError(t, err)

	msgs := prov.LastRequest().Messages
	assert.Less(t, len(msgs), len(history)+2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, kickoffMessage, msgs[1].Content)
	assert.Equal(t, history[len(history)-1].Text, msgs[len(msgs)-1].Content)
}

func TestCursor_TokenRoundTripAndKindMismatch(t *testing.T) {
	plan := PlanFor(interview.KindTechnical)
	c := cursor{Kind: interview.KindTechnical, Stage: 2, Asked: 1, Turns: 4}

	token, err := c.encode()
	require.NoError(t, err)

	got, ok := resume(plan, token, "")
	require.True(t, ok)
	assert.Equal(t, c, got)

	_, ok = resume(PlanFor(interview.KindHR), token, "behavioral")
	assert.False(t, ok)

	_, err = decodeCursor("%%not-base64%%")
	assert.ErrorContains(t, err, "decode continuation token")
}

func TestCursor_TurnCapForcesEnd(t *testing.T) {
	plan := PlanFor(interview.KindTechnical)
	c := cursor{Kind: plan.Kind, Stage: 1, Turns: plan.MaxTurns - 1}
	c = c.advance(plan)
	assert.Equal(t, len(plan.Stages)-1, c.Stage)
}
