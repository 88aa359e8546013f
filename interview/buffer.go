package interview

import "time"

// UtteranceBuffer accumulates the audio of the in-progress user turn and
// tracks whether speech has started and when the current silence began.
//
// Silence that precedes the first speech frame is not buffered. Once speech
// has been seen, every frame is kept until end-of-utterance.
type UtteranceBuffer struct {
	data         []byte
	speaking     bool
	silenceSince time.Time

	silenceDuration time.Duration
	maxBytes        int
}

// NewUtteranceBuffer creates a buffer that ends an utterance after
// silenceDuration of continuous silence. maxBytes <= 0 disables the size cap.
func NewUtteranceBuffer(silenceDuration time.Duration, maxBytes int) *UtteranceBuffer {
	return &UtteranceBuffer{silenceDuration: silenceDuration, maxBytes: maxBytes}
}

// Push records one classified frame and reports whether it completed the
// utterance.
func (b *UtteranceBuffer) Push(frame []byte, speech bool, now time.Time) bool {
	switch {
	case speech:
		b.speaking = true
		b.silenceSince = time.Time{}
		b.data = append(b.data, frame...)
	case b.speaking:
		b.data = append(b.data, frame...)
		if b.silenceSince.IsZero() {
			b.silenceSince = now
		}
		if now.Sub(b.silenceSince) >= b.silenceDuration {
			return true
		}
	default:
		return false
	}
	return b.maxBytes > 0 && len(b.data) >= b.maxBytes
}

// Take returns the buffered audio and resets the buffer.
func (b *UtteranceBuffer) Take() []byte {
	out := b.data
	b.data = nil
	b.speaking = false
	b.silenceSince = time.Time{}
	return out
}

// Reset discards the buffered audio. Calling it repeatedly is harmless.
func (b *UtteranceBuffer) Reset() {
	b.data = nil
	b.speaking = false
	b.silenceSince = time.Time{}
}

func (b *UtteranceBuffer) Len() int                { return len(b.data) }
func (b *UtteranceBuffer) Speaking() bool          { return b.speaking }
func (b *UtteranceBuffer) SilenceSince() time.Time { return b.silenceSince }
