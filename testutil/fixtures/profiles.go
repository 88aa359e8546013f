// Package fixtures 提供面试测试数据样例。
package fixtures

import (
	"fmt"
	"time"

	"github.com/Adhikkesh/Erflog/interview"
)

// BackendProfile 返回一个技术面试用的岗位与候选人
func BackendProfile() *interview.Profile {
	return &interview.Profile{
		Job: interview.Job{
			ID:           "42",
			Title:        "Backend Engineer",
			Company:      "Acme",
			Description:  "Own the payments API.",
			Requirements: []string{"Go", "SQL"},
		},
		Candidate: interview.Candidate{
			ID:     "u1",
			Name:   "Asha",
			Email:  "asha@example.com",
			Skills: []string{"Go"},
		},
	}
}

// Conversation 构造 n 轮问答历史，从面试官开始交替
func Conversation(n int) []interview.Turn {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	turns := make([]interview.Turn, 0, 2*n)
	for i := 0; i < n; i++ {
		turns = append(turns,
			interview.Turn{Role: interview.RoleAssistant, Text: fmt.Sprintf("Question %d?", i+1), At: start.Add(time.Duration(2*i) * time.Minute)},
			interview.Turn{Role: interview.RoleUser, Text: fmt.Sprintf("Answer %d.", i+1), At: start.Add(time.Duration(2*i+1) * time.Minute)},
		)
	}
	return turns
}
