package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// SilenceThreshold is the RMS amplitude below which a clip is treated as
// silence and never reaches the transcription engine.
const SilenceThreshold = 0.0015

// WhisperSampleRate is the rate whisper.cpp expects its input at.
const WhisperSampleRate = 16000

// Clip is one captured utterance: mono float32 samples in [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate uint32
}

// Duration returns the playback length of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// RMS returns the root-mean-square amplitude of the clip.
func (c Clip) RMS() float64 {
	return RMS(c.Samples)
}

// Silent reports whether the clip's energy is below SilenceThreshold.
// An empty clip is silent.
func (c Clip) Silent() bool {
	return RMS(c.Samples) < SilenceThreshold
}

// RMS returns the root-mean-square amplitude of samples, or 0 for none.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Resample converts the clip to the target rate by linear interpolation.
// A clip already at the target rate is returned unchanged.
func (c Clip) Resample(target uint32) Clip {
	if c.SampleRate == target || c.SampleRate == 0 || target == 0 || len(c.Samples) == 0 {
		return c
	}
	return Clip{Samples: Resample(c.Samples, c.SampleRate, target), SampleRate: target}
}

// Resample linearly interpolates mono samples from one rate to another.
func Resample(samples []float32, from, to uint32) []float32 {
	if from == to || len(samples) == 0 {
		return samples
	}
	n := int(uint64(len(samples)) * uint64(to) / uint64(from))
	if n == 0 {
		return nil
	}
	out := make([]float32, n)
	step := float64(from) / float64(to)
	last := len(samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = samples[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = samples[j] + (samples[j+1]-samples[j])*frac
	}
	return out
}

// WriteWAV stores the clip as a 16-bit PCM mono WAV file, creating the
// parent directory if needed.
func WriteWAV(path string, c Clip) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("audio: create dump dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create wav: %w", err)
	}
	defer func() { _ = f.Close() }()

	rate := int(c.SampleRate)
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: 1,
			SampleRate:  rate,
		},
		Data:           make([]int, len(c.Samples)),
		SourceBitDepth: 16,
	}
	for i, s := range c.Samples {
		buf.Data[i] = floatToPCM16(s)
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audio: encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audio: finalize wav: %w", err)
	}
	return nil
}

func floatToPCM16(s float32) int {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int(s * 32767)
}
