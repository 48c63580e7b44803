// Command test-inject is a manual test for the clipboard paste injector.
// It waits a few seconds, then pastes test text into the focused app.
// Focus a text editor or terminal before the countdown finishes.
//
// Usage:
//
//	go run ./cmd/test-inject [--text "..."] [--settle 350ms] [--attempts 2]
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/chaz8081/voxpaste/internal/inject"
)

func main() {
	text := flag.String("text", "Hello from voxpaste! 你好，世界", "text to paste")
	settle := flag.Duration("settle", inject.DefaultSettleDelay, "delay after the paste chord")
	attempts := flag.Int("attempts", inject.DefaultAttempts, "delivery attempts")
	wait := flag.Int("wait", 3, "countdown in seconds")
	flag.Parse()

	timing := inject.DefaultTiming()
	timing.SettleDelay = *settle
	timing.Attempts = *attempts

	inj := inject.NewSystemInjector(
		inject.WithTiming(timing),
		inject.WithAttemptHook(func(attempt int, err error) {
			if err != nil {
				fmt.Printf("attempt %d failed: %v\n", attempt, err)
				return
			}
			fmt.Printf("attempt %d ok\n", attempt)
		}),
	)

	fmt.Printf("Will paste %q in %d seconds...\n", *text, *wait)
	fmt.Println("Focus a text editor now!")
	for i := *wait; i > 0; i-- {
		fmt.Printf("%d...\n", i)
		time.Sleep(time.Second)
	}

	if err := inj.Inject(*text); err != nil {
		var perr *inject.PermissionError
		if errors.As(err, &perr) {
			fmt.Printf("Permission missing: %s\n", perr.Remedy)
		} else {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}

	fmt.Println("\nDone!")
}
