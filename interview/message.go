package interview

import (
	"context"
	"fmt"
	"sync"
)

// MessageType is the discriminator of a structured channel message.
type MessageType string

const (
	MessageConfig   MessageType = "config"
	MessageEvent    MessageType = "event"
	MessageText     MessageType = "message"
	MessageFeedback MessageType = "feedback"
	MessageError    MessageType = "error"
)

// Event names carried by MessageEvent.
const (
	EventAudioState  = "audio_state"
	EventStageChange = "stage_change"
	EventThinking    = "thinking"
)

// Message is one structured message sent to the client.
type Message struct {
	Type          MessageType `json:"type"`
	Event         string      `json:"event,omitempty"`
	State         string      `json:"state,omitempty"`
	Stage         string      `json:"stage,omitempty"`
	Status        string      `json:"status,omitempty"`
	Role          Role        `json:"role,omitempty"`
	Content       string      `json:"content,omitempty"`
	Data          any         `json:"data,omitempty"`
	Message       string      `json:"message,omitempty"`
	InterviewType Kind        `json:"interview_type,omitempty"`
	JobTitle      string      `json:"job_title,omitempty"`
	UserName      string      `json:"user_name,omitempty"`
	SessionID     string      `json:"session_id,omitempty"`
}

// String renders the message compactly, e.g. "event:stage_change:intro".
func (m Message) String() string {
	switch m.Type {
	case MessageEvent:
		switch m.Event {
		case EventAudioState:
			return fmt.Sprintf("event:%s:%s", m.Event, m.State)
		case EventStageChange:
			return fmt.Sprintf("event:%s:%s", m.Event, m.Stage)
		case EventThinking:
			return fmt.Sprintf("event:%s:%s", m.Event, m.Status)
		}
		return "event:" + m.Event
	case MessageText:
		return "message:" + string(m.Role)
	}
	return string(m.Type)
}

func configMessage(s Session) Message {
	return Message{
		Type:          MessageConfig,
		InterviewType: s.Kind,
		JobTitle:      s.Profile.JobTitle(),
		UserName:      s.Profile.CandidateName(),
		SessionID:     s.ID,
	}
}

func audioStateEvent(p Phase) Message {
	return Message{Type: MessageEvent, Event: EventAudioState, State: string(p)}
}

func stageEvent(stage string) Message {
	return Message{Type: MessageEvent, Event: EventStageChange, Stage: stage}
}

func thinkingEvent(status string) Message {
	return Message{Type: MessageEvent, Event: EventThinking, Status: status}
}

func assistantMessage(text string) Message {
	return Message{Type: MessageText, Role: RoleAssistant, Content: text}
}

func feedbackMessage(r *FeedbackReport) Message {
	return Message{Type: MessageFeedback, Data: r}
}

// ErrorMessage builds the message that precedes channel closure.
func ErrorMessage(reason string) Message {
	return Message{Type: MessageError, Message: reason}
}

// Emitter delivers engine output to the client channel.
type Emitter interface {
	Emit(ctx context.Context, msg Message) error
	EmitAudio(ctx context.Context, audio []byte) error
}

// MemoryEmitter records everything emitted. It backs the HTTP chat endpoint.
type MemoryEmitter struct {
	mu       sync.Mutex
	messages []Message
	audio    [][]byte
}

func (m *MemoryEmitter) Emit(_ context.Context, msg Message) error {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
	return nil
}

func (m *MemoryEmitter) EmitAudio(_ context.Context, audio []byte) error {
	m.mu.Lock()
	m.audio = append(m.audio, append([]byte(nil), audio...))
	m.mu.Unlock()
	return nil
}

// Messages returns a copy of the emitted messages in order.
func (m *MemoryEmitter) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// Audio returns the emitted audio payloads in order.
func (m *MemoryEmitter) Audio() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.audio...)
}

// Reset clears recorded output.
func (m *MemoryEmitter) Reset() {
	m.mu.Lock()
	m.messages = nil
	m.audio = nil
	m.mu.Unlock()
}
