package tokenizer

import (
	"strings"

	"go.uber.org/zap"
)

// Tokenizer 统一的 token 计数接口
type Tokenizer interface {
	// CountTokens 返回文本的 token 数
	CountTokens(text string) int
	// Name 返回分词器名称
	Name() string
}

// Message 是 tokenizer 使用的轻量消息，避免依赖 llm 包
type Message struct {
	Role    string
	Content string
}

const (
	messageOverhead      = 4
	conversationOverhead = 3
)

// CountMessages 统计消息列表的总 token 数，包含每条消息的角色与分隔符开销
func CountMessages(t Tokenizer, messages []Message) int {
	total := conversationOverhead
	for _, m := range messages {
		total += messageOverhead + t.CountTokens(m.Role) + t.CountTokens(m.Content)
	}
	return total
}

// TrimToBudget 从最早的消息开始丢弃，直到总量不超过 budget。
// 前 keep 条消息（通常是 system 提示）始终保留，最后一条也始终保留。
func TrimToBudget(t Tokenizer, messages []Message, budget, keep int) []Message {
	if budget <= 0 || len(messages) == 0 {
		return messages
	}
	if keep > len(messages)-1 {
		keep = len(messages) - 1
	}
	if keep < 0 {
		keep = 0
	}

	head := messages[:keep]
	tail := messages[keep:]
	total := CountMessages(t, messages)
	for total > budget && len(tail) > 1 {
		dropped := tail[0]
		tail = tail[1:]
		total -= messageOverhead + t.CountTokens(dropped.Role) + t.CountTokens(dropped.Content)
	}

	out := make([]Message, 0, len(head)+len(tail))
	out = append(out, head...)
	return append(out, tail...)
}

// ForModel 返回模型对应的分词器：OpenAI 系列使用 tiktoken，
// 其余模型（如 Gemini）或编码不可用时回退到估算器。
func ForModel(model string, logger *zap.Logger) Tokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if enc, ok := encodingFor(model); ok {
		return NewTiktoken(enc, logger)
	}
	return NewEstimator()
}

func encodingFor(model string) (string, bool) {
	model = strings.ToLower(model)
	for _, m := range modelEncodings {
		if strings.HasPrefix(model, m.prefix) {
			return m.encoding, true
		}
	}
	return "", false
}

// 按前缀匹配，长前缀在前
var modelEncodings = []struct {
	prefix   string
	encoding string
}{
	{"gpt-4o", "o200k_base"},
	{"gpt-4.1", "o200k_base"},
	{"o1", "o200k_base"},
	{"o3", "o200k_base"},
	{"gpt-4", "cl100k_base"},
	{"gpt-3.5", "cl100k_base"},
}
