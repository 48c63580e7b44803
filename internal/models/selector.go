// Package models resolves which speech-recognition and refinement models to
// load from the user's models directory, and downloads them.
package models

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v4/mem"
)

// ErrNoModel is returned when no candidate model file exists on disk.
var ErrNoModel = errors.New("models: no model available")

// DefaultMemoryGB is assumed when host memory cannot be read.
const DefaultMemoryGB = 32

// Kind distinguishes the two model families the selector resolves.
type Kind int

const (
	KindASR Kind = iota
	KindLLM
)

func (k Kind) String() string {
	switch k {
	case KindASR:
		return "asr"
	case KindLLM:
		return "llm"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Choice is either an explicit file name inside the models directory or
// automatic selection. The zero value is automatic.
type Choice struct {
	File string
}

// Auto is the automatic model choice.
var Auto = Choice{}

// Explicit returns a choice naming a specific file.
func Explicit(name string) Choice {
	return Choice{File: name}
}

// ParseChoice maps a config value to a Choice. "auto" and "" are automatic.
func ParseChoice(s string) Choice {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "auto") {
		return Auto
	}
	return Explicit(s)
}

// IsAuto reports whether the choice defers to automatic selection.
func (c Choice) IsAuto() bool { return c.File == "" }

func (c Choice) String() string {
	if c.IsAuto() {
		return "auto"
	}
	return c.File
}

// asrCandidates is the automatic whisper search order, best quality first.
var asrCandidates = []string{
	"ggml-small.bin",
	"ggml-base.bin",
	"ggml-tiny.bin",
	"ggml-medium.bin",
}

// memoryTier maps an upper memory bound (inclusive, GB) to the preferred
// refinement model for hosts at or below it.
type memoryTier struct {
	maxGB uint64
	model string
}

var memoryLadder = []memoryTier{
	{8, "qwen2.5-0.5b-q4_k_m.gguf"},
	{16, "qwen2.5-1.5b-q4_k_m.gguf"},
	{24, "qwen2.5-3b-q4_k_m.gguf"},
	{40, "qwen3-4b-q4_k_m.gguf"},
	{64, "qwen2.5-7b-q4_k_m.gguf"},
	{96, "qwen3-8b-q4_k_m.gguf"},
	{128, "qwen3-14b-q4_k_m.gguf"},
	{192, "qwen3-30b-a3b-q4_k_m.gguf"},
	{256, "qwen3-32b-q4_k_m.gguf"},
}

// largestModel is preferred above the top of the ladder.
const largestModel = "qwen2.5-72b-q4_k_m.gguf"

// llmFallbacks is searched after the preferred model, most compatible first.
var llmFallbacks = []string{
	"qwen2.5-1.5b-q4_k_m.gguf",
	"qwen2.5-0.5b-q4_k_m.gguf",
	"qwen2.5-3b-q4_k_m.gguf",
	"qwen3-4b-q4_k_m.gguf",
	"qwen2.5-7b-q4_k_m.gguf",
	"qwen3-8b-q4_k_m.gguf",
	"qwen2.5-14b-q4_k_m.gguf",
	"qwen3-14b-q4_k_m.gguf",
	"qwen3-30b-a3b-q4_k_m.gguf",
	"qwen2.5-32b-q4_k_m.gguf",
	"qwen3-32b-q4_k_m.gguf",
	"qwen2.5-72b-q4_k_m.gguf",
	"qwen2.5-coder-1.5b-q4_k_m.gguf",
	"qwen2.5-coder-0.5b-q4_k_m.gguf",
	"qwen2.5-coder-3b-q4_k_m.gguf",
	"qwen2.5-coder-7b-q4_k_m.gguf",
	"qwen2.5-coder-14b-q4_k_m.gguf",
	"qwen2.5-coder-32b-q4_k_m.gguf",
}

// PreferredLLM returns the refinement model for a host with memGB of RAM.
func PreferredLLM(memGB uint64) string {
	for _, tier := range memoryLadder {
		if memGB <= tier.maxGB {
			return tier.model
		}
	}
	return largestModel
}

// LLMCandidates returns the automatic search order for memGB: the preferred
// model, then the fixed fallback list, without duplicates.
func LLMCandidates(memGB uint64) []string {
	preferred := PreferredLLM(memGB)
	out := make([]string, 0, len(llmFallbacks)+1)
	out = append(out, preferred)
	for _, name := range llmFallbacks {
		if name != preferred {
			out = append(out, name)
		}
	}
	return out
}

// ASRCandidates returns the automatic whisper search order.
func ASRCandidates() []string {
	return append([]string(nil), asrCandidates...)
}

// HostMemoryGB returns total physical memory in whole gigabytes.
func HostMemoryGB() (uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("models: read host memory: %w", err)
	}
	return v.Total / 1024 / 1024 / 1024, nil
}

type cacheKey struct {
	kind   Kind
	choice Choice
}

// Selector resolves model choices against a models directory. It only checks
// for file existence and never writes. Results are cached until Forget.
// Safe for concurrent use.
type Selector struct {
	dir    string
	memGB  func() (uint64, error)
	exists func(path string) bool

	mu    sync.Mutex
	cache map[cacheKey]string
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithMemory overrides the host memory probe.
func WithMemory(fn func() (uint64, error)) SelectorOption {
	return func(s *Selector) { s.memGB = fn }
}

// NewSelector returns a Selector over dir.
func NewSelector(dir string, opts ...SelectorOption) *Selector {
	s := &Selector{
		dir:    dir,
		memGB:  HostMemoryGB,
		exists: fileExists,
		cache:  make(map[cacheKey]string),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ASR resolves the whisper model path for choice.
func (s *Selector) ASR(choice Choice) (string, error) {
	return s.resolve(KindASR, choice)
}

// LLM resolves the refinement model path for choice.
func (s *Selector) LLM(choice Choice) (string, error) {
	return s.resolve(KindLLM, choice)
}

// Forget drops cached resolutions, e.g. after a download.
func (s *Selector) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.cache)
}

// MemoryGB returns the host memory used for tiering, falling back to
// DefaultMemoryGB when it cannot be read.
func (s *Selector) MemoryGB() uint64 {
	gb, err := s.memGB()
	if err != nil {
		slog.Debug("models: host memory unavailable, assuming default", "default_gb", DefaultMemoryGB, "error", err)
		return DefaultMemoryGB
	}
	return gb
}

func (s *Selector) resolve(kind Kind, choice Choice) (string, error) {
	key := cacheKey{kind: kind, choice: choice}

	s.mu.Lock()
	if path, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return path, nil
	}
	s.mu.Unlock()

	path, err := s.search(kind, choice)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.cache[key] = path
	s.mu.Unlock()
	return path, nil
}

func (s *Selector) search(kind Kind, choice Choice) (string, error) {
	if !choice.IsAuto() {
		path := filepath.Join(s.dir, choice.File)
		if s.exists(path) {
			return path, nil
		}
		slog.Warn("models: selected model missing, falling back to automatic", "kind", kind, "file", choice.File)
	}

	var candidates []string
	switch kind {
	case KindASR:
		candidates = asrCandidates
	case KindLLM:
		candidates = LLMCandidates(s.MemoryGB())
	default:
		return "", fmt.Errorf("models: unknown kind %v", kind)
	}

	for _, name := range candidates {
		path := filepath.Join(s.dir, name)
		if s.exists(path) {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrNoModel, kind, s.dir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
