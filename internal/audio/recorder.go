package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/gen2brain/malgo"
)

// ErrAlreadyRecording is returned by Start while a capture is running.
var ErrAlreadyRecording = errors.New("audio: already recording")

// Recorder captures the default microphone as mono float32 samples. Frames
// are downmixed as they arrive, so Stop only has to copy the buffer out.
type Recorder struct {
	ctx        *malgo.AllocatedContext
	sampleRate uint32
	channels   uint32

	mu        sync.Mutex
	device    *malgo.Device
	mono      []float32
	recording bool
}

// NewRecorder opens the audio backend. Call Close when done.
func NewRecorder(sampleRate, channels uint32) (*Recorder, error) {
	if channels == 0 {
		channels = 1
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: init context: %w", err)
	}
	return &Recorder{ctx: ctx, sampleRate: sampleRate, channels: channels}, nil
}

// Start opens the capture device and begins buffering. The previous
// recording, if any, is discarded.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.recording {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.mono = r.mono[:0]
	r.recording = true
	r.mu.Unlock()

	device, err := r.openDevice()
	if err != nil {
		r.mu.Lock()
		r.recording = false
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	if !r.recording {
		// Stopped or closed while the device was opening.
		r.mu.Unlock()
		uninit(device)
		return nil
	}
	r.device = device
	r.mu.Unlock()
	return nil
}

func (r *Recorder) openDevice() (*malgo.Device, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = r.channels
	cfg.SampleRate = r.sampleRate

	device, err := malgo.InitDevice(r.ctx.Context, cfg, malgo.DeviceCallbacks{Data: r.onData})
	if err != nil {
		return nil, fmt.Errorf("audio: init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("audio: start capture device: %w", err)
	}
	return device, nil
}

// Stop closes the device and returns what was captured. Stop without a
// matching Start returns an empty clip.
func (r *Recorder) Stop() Clip {
	r.mu.Lock()
	clip := Clip{SampleRate: r.sampleRate}
	if !r.recording {
		r.mu.Unlock()
		return clip
	}
	device := r.detach()
	clip.Samples = slices.Clone(r.mono)
	r.mu.Unlock()

	// The data callback takes r.mu, so the device is torn down unlocked.
	uninit(device)
	return clip
}

// IsRecording reports whether a capture is running.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Close stops any capture and releases the backend. It is safe to call
// more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	device := r.detach()
	ctx := r.ctx
	r.ctx = nil
	r.mu.Unlock()

	uninit(device)
	if ctx == nil {
		return nil
	}
	defer ctx.Free()
	if err := ctx.Uninit(); err != nil {
		return fmt.Errorf("audio: uninit context: %w", err)
	}
	return nil
}

// detach ends the recording and hands back its device. r.mu must be held.
func (r *Recorder) detach() *malgo.Device {
	device := r.device
	r.device = nil
	r.recording = false
	return device
}

func uninit(device *malgo.Device) {
	if device != nil {
		device.Uninit()
	}
}

// onData runs on the backend's thread for every captured period.
func (r *Recorder) onData(_, input []byte, _ uint32) {
	r.mu.Lock()
	if r.recording {
		r.mono = appendMono(r.mono, input, r.channels)
	}
	r.mu.Unlock()
}

// appendMono decodes little-endian float32 frames from data, averages the
// channels of each frame and appends the result to dst. A trailing partial
// frame is dropped.
func appendMono(dst []float32, data []byte, channels uint32) []float32 {
	if channels == 0 {
		channels = 1
	}
	frameBytes := 4 * int(channels)
	for off := 0; off+frameBytes <= len(data); off += frameBytes {
		var sum float32
		for c := 0; c < int(channels); c++ {
			sum += math.Float32frombits(binary.LittleEndian.Uint32(data[off+4*c:]))
		}
		dst = append(dst, sum/float32(channels))
	}
	return dst
}
