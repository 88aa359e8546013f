package interview

import (
	"context"
	"time"
)

// Job is the position the candidate is interviewing for.
type Job struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Company      string   `json:"company,omitempty"`
	Description  string   `json:"description,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
}

// Candidate is the interviewee profile.
type Candidate struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	Summary    string   `json:"summary,omitempty"`
	Experience string   `json:"experience,omitempty"`
}

// Profile is the {job, user} bundle returned by a ContextLoader.
type Profile struct {
	Job       Job       `json:"job"`
	Candidate Candidate `json:"user"`
}

func (p Profile) clone() Profile {
	out := p
	out.Job.Requirements = append([]string(nil), p.Job.Requirements...)
	out.Candidate.Skills = append([]string(nil), p.Candidate.Skills...)
	return out
}

// JobTitle returns the display title, "Unknown" when absent.
func (p *Profile) JobTitle() string {
	if p == nil || p.Job.Title == "" {
		return "Unknown"
	}
	return p.Job.Title
}

// CandidateName returns the display name, "Candidate" when absent.
func (p *Profile) CandidateName() string {
	if p == nil || p.Candidate.Name == "" {
		return "Candidate"
	}
	return p.Candidate.Name
}

// ContextLoader fetches the job and candidate profile for a session.
type ContextLoader interface {
	LoadContext(ctx context.Context, userID, jobID string) (*Profile, error)
}

// ContextLoaderFunc adapts a function to ContextLoader.
type ContextLoaderFunc func(ctx context.Context, userID, jobID string) (*Profile, error)

func (f ContextLoaderFunc) LoadContext(ctx context.Context, userID, jobID string) (*Profile, error) {
	return f(ctx, userID, jobID)
}

// StaticContext returns a loader that always yields p.
func StaticContext(p *Profile) ContextLoader {
	return ContextLoaderFunc(func(context.Context, string, string) (*Profile, error) {
		return p, nil
	})
}

// Transcriber turns one utterance of PCM audio into text. An empty string
// means no speech was recognized and is not an error.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// PolicyRequest is the input to one dialogue-policy step. An empty History
// asks for the opening greeting.
type PolicyRequest struct {
	Kind         Kind
	History      []Turn
	Stage        string
	ContextToken string
	Profile      *Profile
}

// PolicyResult is the next system utterance and the updated stage.
type PolicyResult struct {
	Utterance    string
	Stage        string
	Ending       bool
	ContextToken string
}

// DialoguePolicy decides what the interviewer says next.
type DialoguePolicy interface {
	Next(ctx context.Context, req PolicyRequest) (*PolicyResult, error)
}

// Synthesizer renders text as 16 kHz 16-bit mono PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, text string) ([]byte, error)

func (f SynthesizerFunc) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return f(ctx, text)
}

// FeedbackReport is the evaluation produced once an interview ends.
type FeedbackReport struct {
	Score        int      `json:"score"`
	Verdict      string   `json:"verdict"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
}

// EvaluationRequest carries the finished transcript to an Evaluator.
type EvaluationRequest struct {
	History []Turn
	UserID  string
	JobID   string
	Kind    Kind
	Profile *Profile
}

// Evaluator scores a finished interview. A nil report with a nil error
// means no report could be produced.
type Evaluator interface {
	Evaluate(ctx context.Context, req EvaluationRequest) (*FeedbackReport, error)
}

// ReportRecord is a persisted evaluation.
type ReportRecord struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	UserID     string         `json:"user_id"`
	JobID      string         `json:"job_id"`
	Kind       Kind           `json:"interview_type"`
	Report     FeedbackReport `json:"feedback_report"`
	Transcript []Turn         `json:"transcript,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ReportSink persists evaluation reports.
type ReportSink interface {
	SaveReport(ctx context.Context, rec ReportRecord) error
}

// Metrics receives engine instrumentation. Implementations must be safe for
// concurrent use by many engines.
type Metrics interface {
	RecordPhaseTransition(mode, from, to string)
	RecordFrameDropped(mode, reason string)
	RecordTurn(mode, kind string)
	RecordCollaboratorCall(collaborator, status string, d time.Duration)
	RecordSessionEnded(mode, reason string)
}

type noopMetrics struct{}

func (noopMetrics) RecordPhaseTransition(string, string, string)         {}
func (noopMetrics) RecordFrameDropped(string, string)                    {}
func (noopMetrics) RecordTurn(string, string)                            {}
func (noopMetrics) RecordCollaboratorCall(string, string, time.Duration) {}
func (noopMetrics) RecordSessionEnded(string, string)                    {}
