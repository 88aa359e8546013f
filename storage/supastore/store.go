package supastore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"github.com/Adhikkesh/Erflog/interview"
	"github.com/Adhikkesh/Erflog/storage"
	"github.com/Adhikkesh/Erflog/types"
)

// Config holds Supabase connection configuration.
type Config struct {
	URL    string
	APIKey string
}

type jobRow struct {
	ID           json.RawMessage `json:"id"`
	Title        string          `json:"title"`
	Company      string          `json:"company"`
	Description  string          `json:"description"`
	Requirements json.RawMessage `json:"requirements"`
}

type profileRow struct {
	UserID     string          `json:"user_id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Skills     json.RawMessage `json:"skills"`
	Summary    string          `json:"summary"`
	Experience string          `json:"experience"`
}

type interviewRow struct {
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	FeedbackReport json.RawMessage `json:"feedback_report"`
	InterviewType  string          `json:"interview_type"`
	JobID          json.RawMessage `json:"job_id"`
}

type interviewInsert struct {
	ID             string                   `json:"id"`
	SessionID      string                   `json:"session_id"`
	UserID         string                   `json:"user_id"`
	JobID          string                   `json:"job_id"`
	InterviewType  string                   `json:"interview_type"`
	FeedbackReport interview.FeedbackReport `json:"feedback_report"`
	Transcript     []interview.Turn         `json:"transcript"`
	CreatedAt      time.Time                `json:"created_at"`
}

// Store implements storage.Store using Supabase.
type Store struct {
	client *supabase.Client
	logger *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// New creates a Supabase-backed store.
func New(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("supabase API key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return &Store{
		client: client,
		logger: logger.With(zap.String("component", "supastore")),
	}, nil
}

// LoadContext implements interview.ContextLoader.
func (s *Store) LoadContext(ctx context.Context, userID, jobID string) (*interview.Profile, error) {
	if !isNumeric(jobID) {
		return nil, types.NewError(types.ErrInvalidJobID, fmt.Sprintf("invalid job id %q", jobID))
	}

	var jobs []jobRow
	_, err := s.client.From("jobs").
		Select("id, title, company, description, requirements", "", false).
		Eq("id", jobID).
		Limit(1, "").
		ExecuteTo(&jobs)
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	if len(jobs) == 0 {
		return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("job %s not found", jobID))
	}
	job := jobs[0]

	profile := &interview.Profile{
		Job: interview.Job{
			ID:           scalarString(job.ID),
			Title:        job.Title,
			Company:      job.Company,
			Description:  job.Description,
			Requirements: listColumn(job.Requirements),
		},
		Candidate: interview.Candidate{ID: userID},
	}
	if userID == "" {
		return profile, nil
	}

	var profiles []profileRow
	_, err = s.client.From("profiles").
		Select("user_id, name, email, skills, summary, experience", "", false).
		Eq("user_id", userID).
		Limit(1, "").
		ExecuteTo(&profiles)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", userID, err)
	}
	if len(profiles) == 0 {
		s.logger.Debug("profile not found", zap.String("user_id", userID))
		return profile, nil
	}
	p := profiles[0]
	profile.Candidate = interview.Candidate{
		ID:         userID,
		Name:       p.Name,
		Email:      p.Email,
		Skills:     listColumn(p.Skills),
		Summary:    p.Summary,
		Experience: p.Experience,
	}
	return profile, nil
}

// SaveReport implements interview.ReportSink.
func (s *Store) SaveReport(ctx context.Context, rec interview.ReportRecord) error {
	row := interviewInsert{
		ID:             rec.ID,
		SessionID:      rec.SessionID,
		UserID:         rec.UserID,
		JobID:          rec.JobID,
		InterviewType:  string(rec.Kind),
		FeedbackReport: rec.Report,
		Transcript:     rec.Transcript,
		CreatedAt:      rec.CreatedAt.UTC(),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.Transcript == nil {
		row.Transcript = []interview.Turn{}
	}

	_, _, err := s.client.From("interviews").
		Insert(row, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to insert interview %s: %w", row.ID, err)
	}
	s.logger.Info("interview report saved",
		zap.String("id", row.ID),
		zap.String("user_id", row.UserID))
	return nil
}

// ListInterviews implements storage.HistoryReader.
func (s *Store) ListInterviews(ctx context.Context, userID string, limit int) ([]storage.InterviewSummary, error) {
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}
	var rows []interviewRow
	_, err := s.client.From("interviews").
		Select("id, created_at, feedback_report, interview_type, job_id", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews for %s: %w", userID, err)
	}

	out := make([]storage.InterviewSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, storage.InterviewSummary{
			ID:             r.ID,
			CreatedAt:      r.CreatedAt,
			FeedbackReport: storage.ParseFeedback(r.FeedbackReport),
			InterviewType:  r.InterviewType,
			JobID:          scalarString(r.JobID),
		})
	}
	return out, nil
}

// listColumn decodes a list stored as a JSON array or as a JSON string.
func listColumn(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		return storage.SplitList(storage.JoinList(items))
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return storage.SplitList(text)
	}
	return nil
}

// scalarString renders a JSON number or string column as text.
func scalarString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return s
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
