package interview

import "fmt"

// Phase 定义面试会话的对话阶段
type Phase string

const (
	PhaseIdle      Phase = "idle"      // 握手前
	PhaseThinking  Phase = "thinking"  // waiting on the dialogue policy
	PhaseSpeaking  Phase = "speaking"  // system utterance in flight
	PhaseListening Phase = "listening" // accepting user input
	PhaseEnded     Phase = "ended"     // terminal
)

// validTransitions 定义合法的阶段转换
var validTransitions = map[Phase][]Phase{
	PhaseIdle:      {PhaseThinking, PhaseEnded},
	PhaseThinking:  {PhaseSpeaking, PhaseEnded},
	PhaseSpeaking:  {PhaseListening, PhaseEnded},
	PhaseListening: {PhaseThinking, PhaseListening, PhaseEnded}, // listening -> listening: empty transcript
	PhaseEnded:     {},
}

// Phases returns every defined phase in lifecycle order.
func Phases() []Phase {
	return []Phase{PhaseIdle, PhaseThinking, PhaseSpeaking, PhaseListening, PhaseEnded}
}

// Valid reports whether p is one of the defined phases.
func (p Phase) Valid() bool {
	_, ok := validTransitions[p]
	return ok
}

// Terminal reports whether no transition leaves p.
func (p Phase) Terminal() bool {
	return p == PhaseEnded
}

// CanTransition 检查阶段转换是否合法
func CanTransition(from, to Phase) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, p := range allowed {
		if p == to {
			return true
		}
	}
	return false
}

// ErrInvalidTransition 非法阶段转换错误
type ErrInvalidTransition struct {
	From Phase
	To   Phase
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid phase transition: %s -> %s", e.From, e.To)
}
