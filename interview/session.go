package interview

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the interview category chosen at handshake.
type Kind string

const (
	KindTechnical Kind = "TECHNICAL"
	KindHR        Kind = "HR"
)

// ParseKind upper-cases s and defaults to KindTechnical when blank.
func ParseKind(s string) Kind {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return KindTechnical
	}
	return Kind(s)
}

// Mode selects the channel variant driving the engine.
type Mode string

const (
	ModeVoice Mode = "voice"
	ModeText  Mode = "text"
)

// Role tags a turn in the transcript.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StageEnd is the stage marker that terminates an interview.
const StageEnd = "end"

// Turn is one utterance in the conversation history.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the per-connection interview state.
type Session struct {
	ID             string    `json:"id"`
	Mode           Mode      `json:"mode"`
	Kind           Kind      `json:"interview_type"`
	Phase          Phase     `json:"phase"`
	Stage          string    `json:"stage"`
	History        []Turn    `json:"history"`
	TurnCount      int       `json:"turn_count"`
	Greeted        bool      `json:"greeted"`
	LastResponseAt time.Time `json:"last_response_at"`
	ContextToken   string    `json:"context_token,omitempty"`
	UserID         string    `json:"user_id"`
	JobID          string    `json:"job_id"`
	Profile        *Profile  `json:"profile,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no mutable state with s.
func (s Session) Clone() Session {
	out := s
	if s.History != nil {
		out.History = append([]Turn(nil), s.History...)
	}
	if s.Profile != nil {
		p := s.Profile.clone()
		out.Profile = &p
	}
	return out
}

// CheckHistory verifies len(History) == 2*TurnCount (+1 with a greeting).
// With pending set, one trailing user turn awaiting a reply is tolerated.
func (s Session) CheckHistory(pending bool) error {
	want := 2 * s.TurnCount
	if s.Greeted {
		want++
	}
	got := len(s.History)
	if got == want {
		return nil
	}
	if pending && got == want+1 && s.History[got-1].Role == RoleUser {
		return nil
	}
	return fmt.Errorf("history length %d does not match turn count %d (greeted=%t)", got, s.TurnCount, s.Greeted)
}

// LastAssistantText returns the most recent system utterance.
func (s Session) LastAssistantText() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleAssistant {
			return s.History[i].Text
		}
	}
	return ""
}
