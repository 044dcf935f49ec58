package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/lixenwraith/tonestep/audio"
	"github.com/lixenwraith/tonestep/config"
	"github.com/lixenwraith/tonestep/logging"
	"github.com/lixenwraith/tonestep/player"
	"github.com/lixenwraith/tonestep/server"
	"github.com/lixenwraith/tonestep/service"
	"github.com/lixenwraith/tonestep/voice"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	autostart := flag.Bool("autostart", false, "Start a session with the configured notes on launch")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, *autostart, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, autostart bool, log *zap.Logger) error {
	notes, err := cfg.Exercise.NoteSet()
	if err != nil {
		return fmt.Errorf("invalid notes: %w", err)
	}

	device, err := audio.NewDevice(cfg.Audio.Backend, cfg.Audio.Buffer, log)
	if err != nil {
		return err
	}

	store := voice.NewStore(cfg.Audio.SampleRate, log)
	manager := player.NewManager(player.Options{
		Device:     device,
		SampleRate: cfg.Audio.SampleRate,
		Timing:     cfg.Timing,
		Mix:        cfg.Mix,
		WrapPhase:  cfg.Audio.WrapPhase,
		Voices:     store,
		Logger:     log,
	})

	hub := service.NewHub(log)
	bridge := server.New(manager, log, server.WithHealth(hub.Health))
	for _, svc := range []service.Service{
		voice.NewService(store, cfg.Voices.Dir, log),
		player.NewService(manager, notes, cfg.Exercise.Repetitions, autostart),
		server.NewService(bridge, cfg.Server.Listen, log),
	} {
		if err := hub.Register(svc); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := hub.Start(ctx); err != nil {
		return err
	}
	defer hub.Stop()

	log.Info("tonestep server ready",
		zap.String("listen", cfg.Server.Listen),
		zap.String("backend", device.Name()))

	<-ctx.Done()
	log.Info("shutting down")
	return nil
}
