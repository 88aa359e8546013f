package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/interview"
	"github.com/Adhikkesh/Erflog/llm"
	"github.com/Adhikkesh/Erflog/types"
)

// Verdicts, highest first.
const (
	VerdictStrongHire = "Strong Hire"
	VerdictHire       = "Hire"
	VerdictMaybe      = "Maybe"
	VerdictNoHire     = "No Hire"
)

// Evaluator 以 JSON 模式请求 LLM 对完整面试记录打分
type Evaluator struct {
	provider llm.Provider
	config   Config
	logger   *zap.Logger
}

// NewEvaluator 创建评估器
func NewEvaluator(provider llm.Provider, cfg Config, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		provider: provider,
		config:   cfg,
		logger:   logger.With(zap.String("component", "evaluator")),
	}
}

// Evaluate implements interview.Evaluator. A transcript without any
// candidate answer yields no report.
func (e *Evaluator) Evaluate(ctx context.Context, req interview.EvaluationRequest) (*interview.FeedbackReport, error) {
	if !hasAnswer(req.History) {
		e.logger.Info("no candidate answers, skipping evaluation", zap.String("user_id", req.UserID))
		return nil, nil
	}

	system := fmt.Sprintf(evaluationPrompt, strings.ToLower(string(req.Kind)), req.Profile.JobTitle())
	resp, err := e.provider.Completion(ctx, &llm.ChatRequest{
		Model: e.config.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: system},
			{Role: llm.RoleUser, Content: "Transcript:\n" + transcriptText(req.History, req.Profile.CandidateName())},
		},
		MaxTokens: e.config.MaxTokens,
		JSONMode:  true,
	})
	if err != nil {
		return nil, err
	}

	report, err := ParseReport(resp.Text())
	if err != nil {
		return nil, types.NewError(types.ErrEvaluationFailed, "unparseable evaluation").
			WithCause(err).
			WithProvider(e.provider.Name())
	}
	e.logger.Info("interview evaluated",
		zap.String("user_id", req.UserID),
		zap.String("job_id", req.JobID),
		zap.Int("score", report.Score),
		zap.String("verdict", report.Verdict))
	return report, nil
}

func hasAnswer(history []interview.Turn) bool {
	for _, t := range history {
		if t.Role == interview.RoleUser && strings.TrimSpace(t.Text) != "" {
			return true
		}
	}
	return false
}

// ParseReport 解析模型输出的报告，容忍 ```json 代码块和前后杂文。
// 分数截断到 0..100，缺失的结论按分数推导。
func ParseReport(text string) (*interview.FeedbackReport, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in evaluation output")
	}

	var raw struct {
		Score        json.Number `json:"score"`
		Verdict      string      `json:"verdict"`
		Summary      string      `json:"summary"`
		Strengths    []string    `json:"strengths"`
		Improvements []string    `json:"improvements"`
	}
	dec := json.NewDecoder(strings.NewReader(text[start : end+1]))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}

	score := 0
	if raw.Score != "" {
		f, err := raw.Score.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid score %q: %w", raw.Score, err)
		}
		score = clampScore(int(f + 0.5))
	}

	verdict := strings.TrimSpace(raw.Verdict)
	if verdict == "" {
		verdict = VerdictFor(score)
	}
	return &interview.FeedbackReport{
		Score:        score,
		Verdict:      verdict,
		Summary:      strings.TrimSpace(raw.Summary),
		Strengths:    nonEmpty(raw.Strengths),
		Improvements: nonEmpty(raw.Improvements),
	}, nil
}

// VerdictFor maps a score to the default verdict.
func VerdictFor(score int) string {
	switch {
	case score >= 80:
		return VerdictStrongHire
	case score >= 60:
		return VerdictHire
	case score >= 40:
		return VerdictMaybe
	default:
		return VerdictNoHire
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func nonEmpty(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
