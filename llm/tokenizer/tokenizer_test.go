package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimator_CountTokens(t *testing.T) {
	e := NewEstimator()
	assert.Equal(t, 0, e.CountTokens(""))
	assert.Equal(t, 1, e.CountTokens("hi"))
	assert.Equal(t, 4, e.CountTokens("sixteen chars!!!"))
	assert.Equal(t, 2, e.CountTokens("你好吗"))
	assert.Equal(t, "estimator", e.Name())
}

func TestForModel(t *testing.T) {
	assert.Equal(t, "tiktoken[o200k_base]", ForModel("gpt-4o-mini", nil).Name())
	assert.Equal(t, "tiktoken[cl100k_base]", ForModel("GPT-4-turbo", nil).Name())
	assert.Equal(t, "estimator", ForModel("gemini-2.0-flash", nil).Name())
}

func TestCountMessages(t *testing.T) {
	e := NewEstimator()
	msgs := []Message{
		{Role: "system", Content: strings.Repeat("a", 40)},
		{Role: "user", Content: strings.Repeat("b", 8)},
	}
	// 3 + (4 + 1 + 10) + (4 + 1 + 2)
	assert.Equal(t, 25, CountMessages(e, msgs))
}

func TestTrimToBudget(t *testing.T) {
	e := NewEstimator()
	msgs := []Message{
		{Role: "system", Content: strings.Repeat("s", 40)},
		{Role: "assistant", Content: strings.Repeat("1", 40)},
		{Role: "user", Content: strings.Repeat("2", 40)},
		{Role: "assistant", Content: strings.Repeat("3", 40)},
		{Role: "user", Content: strings.Repeat("4", 40)},
	}

	t.Run("fits", func(t *testing.T) {
		out := TrimToBudget(e, msgs, 1000, 1)
		assert.Equal(t, msgs, out)
	})

	t.Run("drops oldest after head", func(t *testing.T) {
		// each message costs 4+role(~2)+10 = ~16; total ~83
		out := TrimToBudget(e, msgs, 55, 1)
		require.NotEmpty(t, out)
		assert.Equal(t, "system", out[0].Role)
		assert.Equal(t, msgs[len(msgs)-1], out[len(out)-1])
		assert.Less(t, len(out), len(msgs))
		assert.LessOrEqual(t, CountMessages(e, out), 55)
	})

	t.Run("keeps last even when over budget", func(t *testing.T) {
		out := TrimToBudget(e, msgs, 1, 1)
		require.Len(t, out, 2)
		assert.Equal(t, "system", out[0].Role)
		assert.Equal(t, msgs[4], out[1])
	})

	t.Run("zero budget disables trimming", func(t *testing.T) {
		assert.Equal(t, msgs, TrimToBudget(e, msgs, 0, 1))
	})
}
