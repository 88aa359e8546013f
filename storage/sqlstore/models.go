package sqlstore

import "time"

// JobModel 岗位表
type JobModel struct {
	ID           uint64    `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Company      string    `gorm:"not null;default:''" json:"company"`
	Description  string    `gorm:"type:text;not null;default:''" json:"description"`
	Requirements string    `gorm:"type:text;not null;default:''" json:"requirements"` // JSON 数组或逐行文本
	CreatedAt    time.Time `json:"created_at"`
}

func (JobModel) TableName() string { return "jobs" }

// ProfileModel 候选人档案表，主键即 user_id
type ProfileModel struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"not null;default:''" json:"name"`
	Email      string    `gorm:"not null;default:''" json:"email"`
	Skills     string    `gorm:"not null;default:'[]'" json:"skills"`
	Summary    string    `gorm:"type:text;not null;default:''" json:"summary"`
	Experience string    `gorm:"type:text;not null;default:''" json:"experience"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (ProfileModel) TableName() string { return "profiles" }

// InterviewModel 面试记录表
type InterviewModel struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	SessionID      string    `gorm:"not null" json:"session_id"`
	UserID         string    `gorm:"not null;index:idx_interviews_user_created" json:"user_id"`
	JobID          string    `gorm:"not null;default:''" json:"job_id"`
	InterviewType  string    `gorm:"not null" json:"interview_type"`
	FeedbackReport *string   `json:"feedback_report"`
	Transcript     string    `gorm:"not null;default:'[]'" json:"transcript"`
	CreatedAt      time.Time `gorm:"index:idx_interviews_user_created" json:"created_at"`
}

func (InterviewModel) TableName() string { return "interviews" }

// Models lists every table model, for AutoMigrate in tests.
func Models() []any {
	return []any{&JobModel{}, &ProfileModel{}, &InterviewModel{}}
}
