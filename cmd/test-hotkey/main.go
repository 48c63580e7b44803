// Command test-hotkey checks that the configured dictation and history
// combos reach the process. It reads the hotkey section of the voxpaste
// config (or the defaults when no config file exists), prints every event
// with the time since the previous one, and summarizes on exit.
//
// Usage:
//
//	go run ./cmd/test-hotkey [--config path] [--mode hold|toggle]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/voxpaste/internal/config"
	"github.com/chaz8081/voxpaste/internal/hotkey"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", config.DefaultConfigPath(), "path to config file")
	mode := flag.String("mode", "", "override hotkey.mode (hold or toggle)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	case err != nil:
		fmt.Fprintf(os.Stderr, "test-hotkey: %v\n", err)
		return 1
	}
	if *mode != "" {
		cfg.Hotkey.Mode = *mode
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "test-hotkey: %v\n", err)
		return 1
	}

	hk := cfg.Hotkey
	fmt.Printf("dictation %s (%s), history %s; Ctrl+C exits\n",
		hotkey.Combo(hk.Keys), hk.Mode, orNone(hotkey.Combo(hk.HistoryKeys)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener := hotkey.NewListener(hk.Keys, hk.Mode, hk.HistoryKeys)
	go func() {
		<-ctx.Done()
		listener.Stop()
	}()

	counts := make(map[hotkey.EventType]int)
	done := make(chan struct{})
	go func() {
		defer close(done)
		last := time.Now()
		for ev := range listener.Events() {
			now := time.Now()
			counts[ev.Type]++
			fmt.Printf("%s  %-14s +%s\n", now.Format("15:04:05.000"), ev.Type, now.Sub(last).Round(time.Millisecond))
			last = now
		}
	}()

	listener.Start()
	<-done

	fmt.Printf("\nstart=%d stop=%d history=%d\n",
		counts[hotkey.EventStart], counts[hotkey.EventStop], counts[hotkey.EventToggleHistory])
	if counts[hotkey.EventStart] != counts[hotkey.EventStop] {
		fmt.Println("warning: start and stop counts differ")
	}
	return 0
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
