package speech

import (
	"encoding/binary"
	"time"
)

// PCMDuration 返回 16-bit PCM 的播放时长
func PCMDuration(n, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	bytesPerSecond := sampleRate * channels * BytesPerSample
	return time.Duration(float64(n) / float64(bytesPerSecond) * float64(time.Second))
}

// WrapWAV 为 16-bit PCM 加上 44 字节 RIFF/WAVE 头
func WrapWAV(pcm []byte, sampleRate, channels int) []byte {
	out := make([]byte, 44+len(pcm))
	byteRate := sampleRate * channels * BytesPerSample
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(channels*BytesPerSample))
	binary.LittleEndian.PutUint16(out[34:36], 16)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)
	return out
}

// Resample 对单声道 16-bit PCM 做线性插值重采样。末尾不足一个样本的字节丢弃。
func Resample(pcm []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 {
		return pcm
	}
	in := len(pcm) / BytesPerSample
	if in == 0 {
		return nil
	}
	outN := int(int64(in) * int64(to) / int64(from))
	out := make([]byte, outN*BytesPerSample)
	ratio := float64(from) / float64(to)
	for i := 0; i < outN; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		a := sample(pcm, idx)
		b := a
		if idx+1 < in {
			b = sample(pcm, idx+1)
		}
		v := float64(a) + (float64(b)-float64(a))*frac
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

func sample(pcm []byte, i int) int16 {
	return int16(binary.LittleEndian.Uint16(pcm[i*2:]))
}
