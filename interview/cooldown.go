package interview

import "time"

// DefaultBytesPerSecond is 16 kHz, 16-bit, mono PCM.
const DefaultBytesPerSecond = 32000

// Cooldown gates inbound audio for a quiet window after the system last
// spoke, and sizes the playback wait from synthesized audio length.
type Cooldown struct {
	Window         time.Duration
	Margin         time.Duration
	BytesPerSecond int

	lastResponseAt time.Time
}

// NewCooldown creates a cooldown timer. bytesPerSecond <= 0 falls back to
// DefaultBytesPerSecond.
func NewCooldown(window, margin time.Duration, bytesPerSecond int) *Cooldown {
	if bytesPerSecond <= 0 {
		bytesPerSecond = DefaultBytesPerSecond
	}
	return &Cooldown{Window: window, Margin: margin, BytesPerSecond: bytesPerSecond}
}

// Arm marks now as the moment of the most recent system utterance.
func (c *Cooldown) Arm(now time.Time) { c.lastResponseAt = now }

// LastResponseAt returns the armed timestamp, zero if never armed.
func (c *Cooldown) LastResponseAt() time.Time { return c.lastResponseAt }

// Open reports whether the cooldown window has elapsed at now.
func (c *Cooldown) Open(now time.Time) bool {
	if c.lastResponseAt.IsZero() {
		return true
	}
	return now.Sub(c.lastResponseAt) >= c.Window
}

// PlaybackDuration converts an audio byte length to playback time.
func (c *Cooldown) PlaybackDuration(audioLen int) time.Duration {
	if audioLen <= 0 {
		return 0
	}
	return time.Duration(float64(audioLen) / float64(c.BytesPerSecond) * float64(time.Second))
}

// PlaybackWait returns max(duration + margin, window).
func (c *Cooldown) PlaybackWait(audioLen int) time.Duration {
	wait := c.PlaybackDuration(audioLen) + c.Margin
	if wait < c.Window {
		return c.Window
	}
	return wait
}
