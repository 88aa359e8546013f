package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/Adhikkesh/Erflog/interview"
)

// DefaultHistoryLimit is the number of interviews returned by a history query.
const DefaultHistoryLimit = 20

// InterviewSummary is one row of a user's interview history.
type InterviewSummary struct {
	ID             string                   `json:"id"`
	CreatedAt      time.Time                `json:"created_at"`
	FeedbackReport interview.FeedbackReport `json:"feedback_report"`
	InterviewType  string                   `json:"interview_type"`
	JobID          string                   `json:"job_id"`
}

// HistoryReader lists past interviews of a user, newest first.
type HistoryReader interface {
	ListInterviews(ctx context.Context, userID string, limit int) ([]InterviewSummary, error)
}

// Store is a complete persistence backend.
type Store interface {
	interview.ContextLoader
	interview.ReportSink
	HistoryReader
}

// ParseFailedReport replaces a stored report that cannot be decoded.
var ParseFailedReport = interview.FeedbackReport{Score: 0, Verdict: "Error", Summary: "Failed to parse feedback"}

// ParseFeedback decodes a stored feedback_report column. The column may hold
// a JSON object or a JSON string that itself contains the object.
func ParseFeedback(raw []byte) interview.FeedbackReport {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return interview.FeedbackReport{}
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return ParseFailedReport
		}
		raw = []byte(strings.TrimSpace(inner))
	}
	var report interview.FeedbackReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return ParseFailedReport
	}
	return report
}

// SplitList decodes a list column stored either as a JSON array or as
// newline/comma separated text.
func SplitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var items []string
		if err := json.Unmarshal([]byte(s), &items); err == nil {
			return trimAll(items)
		}
	}
	return trimAll(strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == ',' }))
}

// JoinList encodes a list column as a JSON array.
func JoinList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
