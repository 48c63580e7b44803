// Command voxpaste is a push-to-talk dictation daemon: it records while the
// hotkey is held, transcribes with whisper.cpp, optionally polishes the text
// with a local language model and pastes the result into the focused app.
//
// Usage:
//
//	voxpaste [-config path]            run the daemon
//	voxpaste [-config path] init       write the default config file
//	voxpaste [-config path] download   download models interactively
//	voxpaste [-config path] models     show which models would be used
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/chaz8081/voxpaste/internal/audio"
	"github.com/chaz8081/voxpaste/internal/config"
	"github.com/chaz8081/voxpaste/internal/history"
	"github.com/chaz8081/voxpaste/internal/hotkey"
	"github.com/chaz8081/voxpaste/internal/inject"
	"github.com/chaz8081/voxpaste/internal/llm"
	"github.com/chaz8081/voxpaste/internal/models"
	"github.com/chaz8081/voxpaste/internal/observe"
	"github.com/chaz8081/voxpaste/internal/pipeline"
	"github.com/chaz8081/voxpaste/internal/refine"
	"github.com/chaz8081/voxpaste/internal/status"
	"github.com/chaz8081/voxpaste/internal/transcribe"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file (default: ~/.config/voxpaste/config.yaml)")
	flag.Parse()

	if flag.Arg(0) == "init" {
		return cmdInit()
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxpaste: config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "voxpaste: config validation: %v\n", err)
		return 1
	}

	slog.SetDefault(newLogger(cfg.LogLevel))

	switch flag.Arg(0) {
	case "":
		return serve(cfg)
	case "download":
		return cmdDownload(cfg)
	case "models":
		return cmdModels(cfg)
	default:
		fmt.Fprintf(os.Stderr, "voxpaste: unknown command %q (expected init, download or models)\n", flag.Arg(0))
		return 2
	}
}

// serve runs the dictation daemon until SIGINT or SIGTERM.
func serve(cfg *config.Config) int {
	printBanner(cfg)

	selector := models.NewSelector(cfg.ModelsDir)

	asrPath, err := selector.ASR(models.ParseChoice(cfg.ASR.Model))
	if err != nil {
		slog.Error("no whisper model found", "models_dir", cfg.ModelsDir, "err", err)
		fmt.Fprintln(os.Stderr, "Run 'voxpaste download' to fetch one.")
		return 1
	}

	slog.Info("loading whisper model", "path", asrPath)
	modelStart := time.Now()
	transcriber, err := transcribe.NewWhisperTranscriber(asrPath, transcribe.WithLanguage(cfg.ASR.Language))
	if err != nil {
		slog.Error("failed to load whisper model", "path", asrPath, "err", err)
		return 1
	}
	defer func() { _ = transcriber.Close() }()
	slog.Info("whisper model loaded", "elapsed", time.Since(modelStart).Round(time.Millisecond))

	refiner := buildRefiner(cfg, selector)

	recorder, err := audio.NewRecorder(cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		slog.Error("failed to initialize audio recorder", "err", err,
			"hint", "grant microphone access in System Settings > Privacy & Security > Microphone")
		return 1
	}
	defer func() { _ = recorder.Close() }()

	metrics := observe.Discard()
	if cfg.Metrics.Addr != "" {
		shutdown, err := observe.InitProvider(version)
		if err != nil {
			slog.Error("failed to initialize metrics", "err", err)
			return 1
		}
		defer func() { _ = shutdown(context.Background()) }()
		if metrics, err = observe.NewMetrics(otel.GetMeterProvider()); err != nil {
			slog.Error("failed to create metric instruments", "err", err)
			return 1
		}
	}

	store, closeJournal := openHistory(cfg)
	defer closeJournal()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector := inject.NewSystemInjector(
		inject.WithTiming(inject.Timing{
			Attempts:     cfg.Inject.Attempts,
			ClearDelay:   cfg.Inject.ClearDelay,
			WriteDelay:   cfg.Inject.WriteDelay,
			SettleDelay:  cfg.Inject.SettleDelay,
			RetryBackoff: cfg.Inject.RetryBackoff,
		}),
		inject.WithAttemptHook(func(_ int, err error) {
			metrics.RecordInjectAttempt(ctx, err)
		}),
	)

	dispatcher := status.NewDispatcher(64)
	orch := pipeline.New(pipeline.Deps{
		Capture:     recorder,
		Transcriber: transcriber,
		Refiner:     refiner,
		Injector:    injector,
		History:     store,
		Sink:        dispatcher,
	},
		pipeline.WithMetrics(metrics),
		pipeline.WithMinDuration(cfg.Audio.MinDuration),
		pipeline.WithDumpDir(cfg.Audio.DumpDir),
	)

	listener := hotkey.NewListener(cfg.Hotkey.Keys, cfg.Hotkey.Mode, cfg.Hotkey.HistoryKeys)
	cmds := make(chan pipeline.Command, 8)

	// The listener and the stdin reader block in calls that cannot be
	// interrupted; both are reclaimed at process exit.
	go listener.Start()
	go readConsole(ctx, os.Stdin, cmds)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return orch.Run(egCtx, cmds)
	})
	eg.Go(func() error {
		forwardHotkeys(egCtx, listener.Events(), cmds)
		return nil
	})
	if cfg.Metrics.Addr != "" {
		eg.Go(func() error {
			return observe.Serve(egCtx, cfg.Metrics.Addr)
		})
	}

	fmt.Printf("Ready! Press %s to dictate. Type h + Enter for history, c + Enter to clear it. Ctrl+C to quit.\n",
		hotkey.Combo(cfg.Hotkey.Keys))

	// Status rendering stays on the main goroutine.
	dispatcher.Run(egCtx, status.NewConsole(os.Stdout))

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	// Returning exits the process directly, which avoids gohook's C cleanup
	// crash; the OS reclaims the event hook.
	return 0
}

// buildRefiner returns a Refiner with an engine when refinement is enabled
// and a model can be resolved. A missing model is not fatal.
func buildRefiner(cfg *config.Config, selector *models.Selector) *refine.Refiner {
	opts := []refine.Option{
		refine.WithEnabled(cfg.Refine.Enabled),
		refine.WithTimeout(cfg.Refine.Timeout),
	}
	if !cfg.Refine.Enabled {
		slog.Info("refinement disabled")
		return refine.New(nil, opts...)
	}

	path, err := selector.LLM(models.ParseChoice(cfg.Refine.Model))
	if err != nil {
		slog.Warn("no refinement model found, transcripts will be pasted unrefined",
			"models_dir", cfg.ModelsDir, "err", err)
		return refine.New(nil, opts...)
	}

	engine, err := llm.New(llm.Config{
		Provider:    cfg.Refine.Provider,
		ModelPath:   path,
		BaseURL:     cfg.Refine.BaseURL,
		APIKey:      cfg.Refine.APIKey,
		Temperature: cfg.Refine.Temperature,
		MaxTokens:   cfg.Refine.MaxTokens,
	})
	if err != nil {
		slog.Warn("refinement engine unavailable, transcripts will be pasted unrefined", "err", err)
		return refine.New(nil, opts...)
	}
	slog.Info("refinement ready", "provider", cfg.Refine.Provider, "model", engine.Model())
	return refine.New(engine, opts...)
}

// openHistory creates the history store, backed by the sqlite journal when
// history.path is set. Journal failures fall back to memory only.
func openHistory(cfg *config.Config) (*history.Store, func()) {
	if cfg.History.Path == "" {
		return history.New(), func() {}
	}

	journal, err := history.OpenJournal(cfg.History.Path)
	if err != nil {
		slog.Warn("history journal unavailable, keeping history in memory", "path", cfg.History.Path, "err", err)
		return history.New(), func() {}
	}

	store := history.New(history.WithJournal(journal))
	if err := store.Load(); err != nil {
		slog.Warn("failed to load history", "path", cfg.History.Path, "err", err)
	}
	slog.Info("history loaded", "path", cfg.History.Path, "items", store.Len())
	return store, func() { _ = journal.Close() }
}

// commandFor maps a hotkey event to a pipeline command.
func commandFor(t hotkey.EventType) (pipeline.Command, bool) {
	switch t {
	case hotkey.EventStart:
		return pipeline.CommandStart, true
	case hotkey.EventStop:
		return pipeline.CommandStop, true
	case hotkey.EventToggleHistory:
		return pipeline.CommandToggleHistory, true
	default:
		return 0, false
	}
}

// forwardHotkeys relays hotkey events to the orchestrator until ctx is done
// or the listener closes its channel.
func forwardHotkeys(ctx context.Context, events <-chan hotkey.Event, cmds chan<- pipeline.Command) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				slog.Info("hotkey listener stopped")
				return
			}
			cmd, ok := commandFor(ev.Type)
			if !ok {
				continue
			}
			select {
			case cmds <- cmd:
			case <-ctx.Done():
				return
			}
		}
	}
}

// consoleCommand maps a line typed on stdin to a pipeline command.
func consoleCommand(line string) (pipeline.Command, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "h", "history":
		return pipeline.CommandToggleHistory, true
	case "c", "clear":
		return pipeline.CommandClearHistory, true
	default:
		return 0, false
	}
}

// readConsole relays history commands typed on r.
func readConsole(ctx context.Context, r io.Reader, cmds chan<- pipeline.Command) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cmd, ok := consoleCommand(sc.Text())
		if !ok {
			continue
		}
		select {
		case cmds <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		return cfg, nil
	}

	return config.Default(), nil
}

func newLogger(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(level)}))
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	refineDesc := "off"
	if cfg.Refine.Enabled {
		refineDesc = fmt.Sprintf("%s (%s, model %s)", cfg.Refine.Provider, cfg.Refine.BaseURL, cfg.Refine.Model)
	}
	historyDesc := "memory only"
	if cfg.History.Path != "" {
		historyDesc = cfg.History.Path
	}

	fmt.Println("=== voxpaste ===")
	fmt.Printf("  Models:   %s\n", cfg.ModelsDir)
	fmt.Printf("  ASR:      %s (language %s)\n", cfg.ASR.Model, cfg.ASR.Language)
	fmt.Printf("  Refine:   %s\n", refineDesc)
	fmt.Printf("  Hotkey:   %s (%s mode)\n", hotkey.Combo(cfg.Hotkey.Keys), cfg.Hotkey.Mode)
	if len(cfg.Hotkey.HistoryKeys) > 0 {
		fmt.Printf("  History:  %s, %s\n", hotkey.Combo(cfg.Hotkey.HistoryKeys), historyDesc)
	} else {
		fmt.Printf("  History:  %s\n", historyDesc)
	}
	fmt.Printf("  Audio:    %dHz, %dch\n", cfg.Audio.SampleRate, cfg.Audio.Channels)
	fmt.Printf("  Log:      %s\n", cfg.LogLevel)
	fmt.Println("================")
}
