package speech

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcmOf(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestPCMDuration(t *testing.T) {
	assert.Equal(t, time.Second, PCMDuration(32000, SampleRate, Channels))
	assert.Equal(t, 500*time.Millisecond, PCMDuration(16000, SampleRate, Channels))
	assert.Equal(t, time.Duration(0), PCMDuration(100, 0, 1))
}

func TestWrapWAV(t *testing.T) {
	pcm := pcmOf(1, -1, 300)
	wav := WrapWAV(pcm, SampleRate, Channels)

	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), binary.LittleEndian.Uint32(wav[4:8]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[20:22]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(wav[22:24]))
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(32000), binary.LittleEndian.Uint32(wav[28:32]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(wav[34:36]))
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[44:])
}

func TestResample(t *testing.T) {
	t.Run("same rate is identity", func(t *testing.T) {
		pcm := pcmOf(1, 2, 3)
		assert.Equal(t, pcm, Resample(pcm, 16000, 16000))
	})

	t.Run("24k to 16k keeps duration", func(t *testing.T) {
		in := make([]byte, 24000*2) // one second
		out := Resample(in, 24000, 16000)
		assert.Len(t, out, 16000*2)
	})

	t.Run("interpolates", func(t *testing.T) {
		// 3 samples at 24k -> 2 samples at 16k: positions 0 and 1.5
		out := Resample(pcmOf(0, 100, 200), 24000, 16000)
		require.Len(t, out, 4)
		assert.Equal(t, int16(0), sample(out, 0))
		assert.Equal(t, int16(150), sample(out, 1))
	})

	t.Run("negative samples", func(t *testing.T) {
		out := Resample(pcmOf(-1000, -2000, -3000), 24000, 16000)
		assert.Equal(t, int16(-2500), sample(out, 1))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, Resample([]byte{1}, 24000, 16000))
	})
}
