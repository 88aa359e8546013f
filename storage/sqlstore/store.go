package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Adhikkesh/Erflog/interview"
	"github.com/Adhikkesh/Erflog/storage"
	"github.com/Adhikkesh/Erflog/types"
)

// Store 基于 gorm 的面试数据存储
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// New 创建存储
func New(db *gorm.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		db:     db,
		logger: logger.With(zap.String("component", "sqlstore")),
		now:    time.Now,
	}
}

var _ storage.Store = (*Store)(nil)

// LoadContext implements interview.ContextLoader. A missing job is an error;
// a missing profile yields a candidate with only the user id.
func (s *Store) LoadContext(ctx context.Context, userID, jobID string) (*interview.Profile, error) {
	id, err := strconv.ParseUint(jobID, 10, 64)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidJobID, fmt.Sprintf("invalid job id %q", jobID))
	}

	var job JobModel
	if err := s.db.WithContext(ctx).First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("job %s not found", jobID))
		}
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}

	profile := &interview.Profile{
		Job: interview.Job{
			ID:           strconv.FormatUint(job.ID, 10),
			Title:        job.Title,
			Company:      job.Company,
			Description:  job.Description,
			Requirements: storage.SplitList(job.Requirements),
		},
		Candidate: interview.Candidate{ID: userID},
	}

	if userID == "" {
		return profile, nil
	}
	var p ProfileModel
	err = s.db.WithContext(ctx).Where("id = ?", userID).Take(&p).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Debug("profile not found", zap.String("user_id", userID))
	case err != nil:
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	default:
		profile.Candidate = interview.Candidate{
			ID:         p.ID,
			Name:       p.Name,
			Email:      p.Email,
			Skills:     storage.SplitList(p.Skills),
			Summary:    p.Summary,
			Experience: p.Experience,
		}
	}
	return profile, nil
}

// SaveReport implements interview.ReportSink.
func (s *Store) SaveReport(ctx context.Context, rec interview.ReportRecord) error {
	m, err := toInterviewModel(rec, s.now)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("save interview %s: %w", m.ID, err)
	}
	s.logger.Info("interview report saved",
		zap.String("id", m.ID),
		zap.String("user_id", m.UserID),
		zap.String("session_id", m.SessionID))
	return nil
}

// ListInterviews implements storage.HistoryReader.
func (s *Store) ListInterviews(ctx context.Context, userID string, limit int) ([]storage.InterviewSummary, error) {
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}
	var rows []InterviewModel
	err := s.db.WithContext(ctx).
		Select("id", "created_at", "feedback_report", "interview_type", "job_id").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list interviews for %s: %w", userID, err)
	}

	out := make([]storage.InterviewSummary, 0, len(rows))
	for _, r := range rows {
		var raw []byte
		if r.FeedbackReport != nil {
			raw = []byte(*r.FeedbackReport)
		}
		out = append(out, storage.InterviewSummary{
			ID:             r.ID,
			CreatedAt:      r.CreatedAt,
			FeedbackReport: storage.ParseFeedback(raw),
			InterviewType:  r.InterviewType,
			JobID:          r.JobID,
		})
	}
	return out, nil
}

// SaveJob 新增或更新岗位
func (s *Store) SaveJob(ctx context.Context, job interview.Job) (string, error) {
	m := JobModel{
		Title:        job.Title,
		Company:      job.Company,
		Description:  job.Description,
		Requirements: storage.JoinList(job.Requirements),
	}
	if job.ID != "" {
		id, err := strconv.ParseUint(job.ID, 10, 64)
		if err != nil {
			return "", types.NewError(types.ErrInvalidJobID, fmt.Sprintf("invalid job id %q", job.ID))
		}
		m.ID = id
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "company", "description", "requirements"}),
	}).Create(&m).Error
	if err != nil {
		return "", fmt.Errorf("save job: %w", err)
	}
	return strconv.FormatUint(m.ID, 10), nil
}

// SaveProfile 新增或更新候选人档案
func (s *Store) SaveProfile(ctx context.Context, c interview.Candidate) error {
	if c.ID == "" {
		return types.NewError(types.ErrInvalidRequest, "candidate id is required")
	}
	m := ProfileModel{
		ID:         c.ID,
		Name:       c.Name,
		Email:      c.Email,
		Skills:     storage.JoinList(c.Skills),
		Summary:    c.Summary,
		Experience: c.Experience,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "skills", "summary", "experience", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("save profile %s: %w", c.ID, err)
	}
	return nil
}

func toInterviewModel(rec interview.ReportRecord, now func() time.Time) (*InterviewModel, error) {
	report, err := json.Marshal(rec.Report)
	if err != nil {
		return nil, fmt.Errorf("encode feedback report: %w", err)
	}
	transcript := rec.Transcript
	if transcript == nil {
		transcript = []interview.Turn{}
	}
	tdata, err := json.Marshal(transcript)
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = now()
	}
	fr := string(report)
	return &InterviewModel{
		ID:             id,
		SessionID:      rec.SessionID,
		UserID:         rec.UserID,
		JobID:          rec.JobID,
		InterviewType:  string(rec.Kind),
		FeedbackReport: &fr,
		Transcript:     string(tdata),
		CreatedAt:      created.UTC(),
	}, nil
}
