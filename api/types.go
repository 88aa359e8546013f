package api

// =============================================================================
// 💬 HTTP 面试对话
// =============================================================================

// ChatTurnRequest 一次 HTTP 面试对话请求。
// @Description 文本面试的单轮请求；user_message 为空时开始面试
type ChatTurnRequest struct {
	// 会话 ID，由客户端生成并在后续请求中复用
	SessionID string `json:"session_id" example:"chat-7f3a" binding:"required"`
	// 候选人本轮发言
	UserMessage string `json:"user_message" example:"I have five years of Go experience."`
	// 岗位标题或描述
	JobContext string `json:"job_context" example:"Senior Backend Engineer" binding:"required"`
	// 面试类型（TECHNICAL 或 HR），默认 TECHNICAL
	InterviewType string `json:"interview_type,omitempty" example:"TECHNICAL"`
}

// ChatTurnResponse 一次 HTTP 面试对话的回复。
// @Description 面试官回复与当前阶段
type ChatTurnResponse struct {
	Status       string `json:"status" example:"success"`
	Response     string `json:"response"`
	Stage        string `json:"stage" example:"technical"`
	MessageCount int    `json:"message_count" example:"4"`
}

// =============================================================================
// 📡 会话
// =============================================================================

// SessionList 在线会话列表
// @Description 当前进程内的会话快照
type SessionList struct {
	Sessions []SessionSummary `json:"sessions"`
	Total    int              `json:"total"`
}

// SessionSummary 会话摘要，不含对话内容
type SessionSummary struct {
	ID            string `json:"id"`
	Mode          string `json:"mode"`
	InterviewType string `json:"interview_type"`
	UserID        string `json:"user_id"`
	JobID         string `json:"job_id"`
	Phase         string `json:"phase"`
	Stage         string `json:"stage"`
	TurnCount     int    `json:"turn_count"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}
