package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/voxpaste/internal/config"
	"github.com/chaz8081/voxpaste/internal/models"
)

// cmdInit writes the default config file unless one exists.
func cmdInit() int {
	path, err := config.WriteDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "voxpaste: init: %v\n", err)
		return 1
	}
	if path == "" {
		fmt.Printf("Config already exists at %s\n", config.DefaultConfigPath())
		return 0
	}
	fmt.Printf("Config written to %s\n", path)
	return 0
}

// cmdDownload fetches models into the configured models directory.
func cmdDownload(cfg *config.Config) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	selector := models.NewSelector(cfg.ModelsDir)
	if err := models.RunInteractiveDownload(ctx, cfg.ModelsDir, selector.MemoryGB(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "voxpaste: download: %v\n", err)
		return 1
	}
	return cmdModels(cfg)
}

// cmdModels prints the models the daemon would load.
func cmdModels(cfg *config.Config) int {
	selector := models.NewSelector(cfg.ModelsDir)
	memGB := selector.MemoryGB()

	fmt.Printf("Models dir: %s\n", cfg.ModelsDir)
	fmt.Printf("Memory:     %d GB (preferred refinement model %s)\n", memGB, models.PreferredLLM(memGB))

	asrChoice := models.ParseChoice(cfg.ASR.Model)
	if path, err := selector.ASR(asrChoice); err != nil {
		fmt.Printf("ASR:        none for %s\n", asrChoice)
	} else {
		fmt.Printf("ASR:        %s\n", path)
	}

	llmChoice := models.ParseChoice(cfg.Refine.Model)
	if path, err := selector.LLM(llmChoice); err != nil {
		fmt.Printf("Refinement: none for %s (refinement will be skipped)\n", llmChoice)
	} else {
		fmt.Printf("Refinement: %s\n", path)
	}
	return 0
}
