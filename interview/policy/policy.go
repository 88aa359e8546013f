package policy

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/config"
	"github.com/Adhikkesh/Erflog/interview"
	"github.com/Adhikkesh/Erflog/interview/textutil"
	"github.com/Adhikkesh/Erflog/llm"
	"github.com/Adhikkesh/Erflog/llm/tokenizer"
	"github.com/Adhikkesh/Erflog/types"
)

// Config 对话策略参数
type Config struct {
	Model       string
	Temperature float32
	MaxTokens   int
	// HistoryTokenBudget 超出时裁剪最早的历史轮次，<=0 不裁剪
	HistoryTokenBudget int
	// Mode 决定提示词是否要求口语化输出
	Mode interview.Mode
}

// ConfigFrom 从 LLM 配置派生策略参数
func ConfigFrom(cfg config.LLMConfig, mode interview.Mode) Config {
	return Config{
		Model:              cfg.Model,
		Temperature:        cfg.Temperature,
		MaxTokens:          cfg.MaxTokens,
		HistoryTokenBudget: cfg.HistoryTokenBudget,
		Mode:               mode,
	}
}

// LLMPolicy 按阶段计划驱动 LLM 生成面试官的下一句
type LLMPolicy struct {
	provider  llm.Provider
	config    Config
	tokenizer tokenizer.Tokenizer
	logger    *zap.Logger
}

// NewLLMPolicy 创建对话策略
func NewLLMPolicy(provider llm.Provider, cfg Config, logger *zap.Logger) *LLMPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMPolicy{
		provider:  provider,
		config:    cfg,
		tokenizer: tokenizer.ForModel(cfg.Model, logger),
		logger:    logger.With(zap.String("component", "dialogue_policy")),
	}
}

// Next implements interview.DialoguePolicy.
func (p *LLMPolicy) Next(ctx context.Context, req interview.PolicyRequest) (*interview.PolicyResult, error) {
	plan := PlanFor(req.Kind)

	var cur cursor
	if len(req.History) == 0 {
		cur = cursor{Kind: plan.Kind}
	} else {
		var ok bool
		cur, ok = resume(plan, req.ContextToken, req.Stage)
		if !ok {
			p.logger.Debug("continuation token unusable, rebuilt from stage",
				zap.String("stage", req.Stage))
		}
		cur = cur.advance(plan)
	}
	stage := plan.Stages[cur.Stage]

	messages := p.buildMessages(plan, stage, req)
	resp, err := p.provider.Completion(ctx, &llm.ChatRequest{
		Model:       p.config.Model,
		Messages:    messages,
		MaxTokens:   p.config.MaxTokens,
		Temperature: p.config.Temperature,
	})
	if err != nil {
		return nil, err
	}

	text := cleanUtterance(resp.Text(), p.config.Mode)
	if text == "" {
		return nil, types.NewError(types.ErrPolicyFailed, "model returned an empty utterance").
			WithProvider(p.provider.Name())
	}

	cur.Asked++
	token, err := cur.encode()
	if err != nil {
		return nil, types.NewError(types.ErrPolicyFailed, "failed to encode continuation token").WithCause(err)
	}
	p.logger.Debug("policy step",
		zap.String("stage", stage.Name),
		zap.Int("asked", cur.Asked),
		zap.Int("turns", cur.Turns))

	return &interview.PolicyResult{
		Utterance:    text,
		Stage:        stage.Name,
		Ending:       stage.Name == interview.StageEnd,
		ContextToken: token,
	}, nil
}

func (p *LLMPolicy) buildMessages(plan Plan, stage Stage, req interview.PolicyRequest) []llm.Message {
	msgs := make([]tokenizer.Message, 0, len(req.History)+2)
	msgs = append(msgs,
		tokenizer.Message{Role: string(llm.RoleSystem), Content: systemPrompt(plan, stage, req.Profile, p.config.Mode)},
		tokenizer.Message{Role: string(llm.RoleUser), Content: kickoffMessage},
	)
	for _, t := range req.History {
		role := llm.RoleUser
		if t.Role == interview.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, tokenizer.Message{Role: string(role), Content: t.Text})
	}

	trimmed := tokenizer.TrimToBudget(p.tokenizer, msgs, p.config.HistoryTokenBudget, 2)
	if len(trimmed) < len(msgs) {
		p.logger.Debug("history trimmed",
			zap.Int("before", len(msgs)),
			zap.Int("after", len(trimmed)))
	}

	out := make([]llm.Message, len(trimmed))
	for i, m := range trimmed {
		out[i] = llm.Message{Role: llm.Role(m.Role), Content: m.Content}
	}
	return out
}

// cleanUtterance 去掉模型偶尔附带的说话人前缀和引号
func cleanUtterance(text string, mode interview.Mode) string {
	text = strings.TrimSpace(text)
	for _, prefix := range []string{"Interviewer:", "interviewer:", "Assistant:", "assistant:"} {
		text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
	}
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = strings.TrimSpace(text[1 : len(text)-1])
	}
	if mode == interview.ModeVoice {
		text = strings.TrimSpace(textutil.StripMarkdown(text))
	}
	return text
}
