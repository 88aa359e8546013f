package interview

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"
)

type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

type scriptedPolicy struct {
	mu      sync.Mutex
	results []*PolicyResult
	errs    []error
	calls   []PolicyRequest
}

func (p *scriptedPolicy) Next(_ context.Context, req PolicyRequest) (*PolicyResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.calls)
	p.calls = append(p.calls, req)
	if i < len(p.errs) && p.errs[i] != nil {
		return nil, p.errs[i]
	}
	if i < len(p.results) {
		return p.results[i], nil
	}
	return &PolicyResult{Utterance: "Tell me more.", Stage: "technical"}, nil
}

func (p *scriptedPolicy) Calls() []PolicyRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PolicyRequest(nil), p.calls...)
}

type fakeTranscriber struct {
	mu    sync.Mutex
	texts []string
	errs  []error
	calls [][]byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, append([]byte(nil), audio...))
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.texts) {
		return f.texts[i], nil
	}
	return "I have five years of Go experience.", nil
}

func (f *fakeTranscriber) Calls() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.calls...)
}

// oneSecondSynth returns one second of silence per call unless failing.
type oneSecondSynth struct {
	mu    sync.Mutex
	fail  map[string]bool
	texts []string
}

func (s *oneSecondSynth) Synthesize(_ context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	if s.fail[text] || s.fail["*"] {
		return nil, errors.New("tts unavailable")
	}
	return make([]byte, DefaultBytesPerSecond), nil
}

func (s *oneSecondSynth) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type fakeEvaluator struct {
	report *FeedbackReport
	err    error
	calls  []EvaluationRequest
}

func (f *fakeEvaluator) Evaluate(_ context.Context, req EvaluationRequest) (*FeedbackReport, error) {
	f.calls = append(f.calls, req)
	return f.report, f.err
}

type memoryReports struct {
	mu   sync.Mutex
	recs []ReportRecord
}

func (m *memoryReports) SaveReport(_ context.Context, rec ReportRecord) error {
	m.mu.Lock()
	m.recs = append(m.recs, rec)
	m.mu.Unlock()
	return nil
}

type transition struct{ from, to string }

type recordingMetrics struct {
	mu          sync.Mutex
	transitions []transition
	drops       map[string]int
	turns       int
	ended       []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{drops: make(map[string]int)}
}

func (m *recordingMetrics) RecordPhaseTransition(_, from, to string) {
	m.mu.Lock()
	m.transitions = append(m.transitions, transition{from, to})
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordFrameDropped(_, reason string) {
	m.mu.Lock()
	m.drops[reason]++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordTurn(string, string) {
	m.mu.Lock()
	m.turns++
	m.mu.Unlock()
}

func (m *recordingMetrics) RecordCollaboratorCall(string, string, time.Duration) {}

func (m *recordingMetrics) RecordSessionEnded(_, reason string) {
	m.mu.Lock()
	m.ended = append(m.ended, reason)
	m.mu.Unlock()
}

func testProfile() *Profile {
	return &Profile{
		Job:       Job{ID: "18", Title: "Backend Engineer", Company: "Acme"},
		Candidate: Candidate{ID: "u-1", Name: "Ada", Skills: []string{"go", "postgres"}},
	}
}

// pcmFrame builds a frame of n samples all at amplitude a.
func pcmFrame(n int, a int16) []byte {
	out := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(a))
	}
	return out
}

const frameSamples = 320 // 20ms at 16 kHz

func loudFrame() []byte  { return pcmFrame(frameSamples, 3000) }
func quietFrame() []byte { return pcmFrame(frameSamples, 10) }

func kinds(msgs []Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.String())
	}
	return out
}
