package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/wav"
)

func sine(n int, amp float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = amp * float32(math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	return out
}

func TestRMS(t *testing.T) {
	tests := []struct {
		name    string
		samples []float32
		want    float64
	}{
		{"empty", nil, 0},
		{"zeros", make([]float32, 100), 0},
		{"constant", []float32{0.5, -0.5, 0.5, -0.5}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RMS(tt.samples); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RMS() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestClipSilent(t *testing.T) {
	tests := []struct {
		name string
		clip Clip
		want bool
	}{
		{"empty", Clip{SampleRate: 16000}, true},
		{"digital silence", Clip{Samples: make([]float32, 16000), SampleRate: 16000}, true},
		{"room noise", Clip{Samples: sine(16000, 0.001), SampleRate: 16000}, true},
		{"speech level", Clip{Samples: sine(16000, 0.2), SampleRate: 16000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.clip.Silent(); got != tt.want {
				t.Errorf("Silent() = %v (rms %f), want %v", got, tt.clip.RMS(), tt.want)
			}
		})
	}
}

func TestClipDuration(t *testing.T) {
	c := Clip{Samples: make([]float32, 8000), SampleRate: 16000}
	if got := c.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration() = %v, want 500ms", got)
	}
	if got := (Clip{}).Duration(); got != 0 {
		t.Errorf("Duration() of zero clip = %v, want 0", got)
	}
}

func TestResample(t *testing.T) {
	in := make([]float32, 48000)
	for i := range in {
		in[i] = float32(i) / 48000
	}
	out := Resample(in, 48000, 16000)
	if len(out) != 16000 {
		t.Fatalf("Resample() returned %d samples, want 16000", len(out))
	}
	if out[0] != 0 {
		t.Errorf("out[0] = %f, want 0", out[0])
	}
	// every third source sample lands exactly on an output sample
	if math.Abs(float64(out[100]-in[300])) > 1e-6 {
		t.Errorf("out[100] = %f, want %f", out[100], in[300])
	}
}

func TestResampleUpsampleInterpolates(t *testing.T) {
	out := Resample([]float32{0, 1}, 8000, 16000)
	if len(out) != 4 {
		t.Fatalf("Resample() returned %d samples, want 4", len(out))
	}
	if out[1] != 0.5 {
		t.Errorf("out[1] = %f, want 0.5", out[1])
	}
	if out[3] != 1 {
		t.Errorf("out[3] = %f, want 1 (clamped to last sample)", out[3])
	}
}

func TestClipResampleSameRate(t *testing.T) {
	c := Clip{Samples: []float32{1, 2, 3}, SampleRate: WhisperSampleRate}
	got := c.Resample(WhisperSampleRate)
	if len(got.Samples) != 3 || got.SampleRate != WhisperSampleRate {
		t.Errorf("Resample() at same rate changed the clip: %+v", got)
	}
}

func TestWriteWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dumps", "clip.wav")
	c := Clip{Samples: sine(1600, 0.5), SampleRate: 16000}

	if err := WriteWAV(path, c); err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open written wav: %v", err)
	}
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode written wav: %v", err)
	}
	if dec.SampleRate != 16000 {
		t.Errorf("SampleRate = %d, want 16000", dec.SampleRate)
	}
	if dec.NumChans != 1 {
		t.Errorf("NumChans = %d, want 1", dec.NumChans)
	}
	if len(buf.Data) != len(c.Samples) {
		t.Errorf("decoded %d samples, want %d", len(buf.Data), len(c.Samples))
	}
}

func TestFloatToPCM16Clamps(t *testing.T) {
	if got := floatToPCM16(2); got != 32767 {
		t.Errorf("floatToPCM16(2) = %d, want 32767", got)
	}
	if got := floatToPCM16(-2); got != -32767 {
		t.Errorf("floatToPCM16(-2) = %d, want -32767", got)
	}
}
