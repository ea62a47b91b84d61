package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/profile"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/orbitwar/internal/config"
	"github.com/udisondev/orbitwar/internal/gameserver"
	"github.com/udisondev/orbitwar/internal/sim"
	"github.com/udisondev/orbitwar/internal/snapshot"
)

const GameConfigPath = "config/gameserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfgPath := GameConfigPath
	if p := os.Getenv("ORBITWAR_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading game config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
	sim.EnableDebugLogging(logLevel == slog.LevelDebug)

	slog.Info("orbitwar server starting",
		"config", cfgPath,
		"log_level", cfg.LogLevel,
		"ups", cfg.Simulation.UpdatesPerSecond,
		"steps", cfg.Simulation.StepsPerUpdate)

	if stop := startProfile(cfg.Profile); stop != nil {
		defer stop()
	}

	codec, err := snapshot.NewCodec(cfg.Codec)
	if err != nil {
		return fmt.Errorf("snapshot codec: %w", err)
	}

	clients := gameserver.NewClientManager()
	loop, err := sim.NewLoop(cfg.Simulation, gameserver.NewBroadcaster(clients, codec))
	if err != nil {
		return fmt.Errorf("creating simulation: %w", err)
	}
	server := gameserver.NewServer(cfg, loop, clients, codec)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting simulation loop", "interval", cfg.Simulation.TickInterval())
		if err := loop.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("simulation loop: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting game server", "addr", cfg.Addr())
		if err := server.Run(gctx); err != nil {
			return fmt.Errorf("game server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// startProfile starts pkg/profile for mode ("cpu" or "mem") and returns its stop func.
func startProfile(mode string) func() {
	var opt func(*profile.Profile)
	switch mode {
	case "":
		return nil
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfile
	default:
		slog.Warn("unknown profile mode, profiling disabled", "profile", mode)
		return nil
	}
	p := profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook)
	return p.Stop
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
