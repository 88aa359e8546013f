package interview

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestCooldown_Open(t *testing.T) {
	c := NewCooldown(time.Second, 500*time.Millisecond, 0)
	base := time.Unix(1000, 0)

	assert.True(t, c.Open(base), "never armed")
	c.Arm(base)
	assert.False(t, c.Open(base))
	assert.False(t, c.Open(base.Add(999*time.Millisecond)))
	assert.True(t, c.Open(base.Add(time.Second)))
	assert.Equal(t, base, c.LastResponseAt())
}

func TestCooldown_PlaybackWait(t *testing.T) {
	c := NewCooldown(2*time.Second, 500*time.Millisecond, DefaultBytesPerSecond)
	assert.Equal(t, 2*time.Second, c.PlaybackWait(0))
	assert.Equal(t, 2*time.Second, c.PlaybackWait(DefaultBytesPerSecond))
	assert.Equal(t, 3500*time.Millisecond, c.PlaybackWait(3*DefaultBytesPerSecond))
	assert.Equal(t, 250*time.Millisecond, c.PlaybackDuration(8000))
}

func TestCooldown_PlaybackWaitProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("wait is max(duration+margin, window)", prop.ForAll(
		func(audioLen int, windowMs int, marginMs int) bool {
			window := time.Duration(windowMs) * time.Millisecond
			margin := time.Duration(marginMs) * time.Millisecond
			c := NewCooldown(window, margin, DefaultBytesPerSecond)

			wait := c.PlaybackWait(audioLen)
			dur := c.PlaybackDuration(audioLen)
			if wait < window || wait < dur+margin {
				return false
			}
			return wait == window || wait == dur+margin
		},
		gen.IntRange(0, 10*DefaultBytesPerSecond),
		gen.IntRange(0, 5000),
		gen.IntRange(0, 2000),
	))

	properties.Property("wait grows with audio length", prop.ForAll(
		func(a, b int) bool {
			c := NewCooldown(time.Second, 500*time.Millisecond, DefaultBytesPerSecond)
			if a > b {
				a, b = b, a
			}
			return c.PlaybackWait(a) <= c.PlaybackWait(b)
		},
		gen.IntRange(0, 20*DefaultBytesPerSecond),
		gen.IntRange(0, 20*DefaultBytesPerSecond),
	))

	properties.TestingRun(t)
}
