package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/lixenwraith/tonestep/audio"
	"github.com/lixenwraith/tonestep/config"
	"github.com/lixenwraith/tonestep/logging"
	"github.com/lixenwraith/tonestep/player"
	"github.com/lixenwraith/tonestep/service"
	"github.com/lixenwraith/tonestep/voice"
)

var (
	configFlag  = flag.String("config", "", "Path to YAML config file")
	backendFlag = flag.String("backend", "", "Audio backend: speaker, oto, pipe, null")
	logFlag     = flag.String("log", "", "Write logs to this file (discarded when empty)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *backendFlag != "" {
		cfg.Audio.Backend = *backendFlag
	}

	logger, err := setupLogging(cfg, *logFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	notes, err := cfg.Exercise.NoteSet()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid notes: %v\n", err)
		os.Exit(1)
	}

	device, err := audio.NewDevice(cfg.Audio.Backend, cfg.Audio.Buffer, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to select audio backend: %v\n", err)
		os.Exit(1)
	}

	store := voice.NewStore(cfg.Audio.SampleRate, logger)
	manager := player.NewManager(player.Options{
		Device:     device,
		SampleRate: cfg.Audio.SampleRate,
		Timing:     cfg.Timing,
		Mix:        cfg.Mix,
		WrapPhase:  cfg.Audio.WrapPhase,
		Voices:     store,
		Logger:     logger,
	})

	hub := service.NewHub(logger)
	for _, svc := range []service.Service{
		voice.NewService(store, cfg.Voices.Dir, logger),
		player.NewService(manager, notes, cfg.Exercise.Repetitions, false),
	} {
		if err := hub.Register(svc); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to register service: %v\n", err)
			os.Exit(1)
		}
	}
	if err := hub.Start(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start services: %v\n", err)
		os.Exit(1)
	}
	defer hub.Stop()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize screen: %v\n", err)
		os.Exit(1)
	}

	// Restore the terminal before reporting a crash
	defer func() {
		if r := recover(); r != nil {
			screen.Fini()
			fmt.Fprintf(os.Stderr, "\n\x1b[31mTONESTEP CRASHED: %v\x1b[0m\n", r)
			fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()
	defer screen.Fini()

	NewApp(screen, manager, notes, cfg.Exercise.Repetitions, logger).run()
}

// setupLogging returns a zap logger writing to path, or a no-op logger when path is empty
// The terminal UI owns stdout and stderr, so logs never go there
func setupLogging(cfg *config.Config, path string) (*zap.Logger, error) {
	if path == "" {
		return zap.NewNop(), nil
	}
	return logging.New(cfg.Log.Level, cfg.Log.Development, path)
}
