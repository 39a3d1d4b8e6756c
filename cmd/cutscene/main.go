package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tsani/sixteen-fifty/internal/bridge"
	"github.com/tsani/sixteen-fifty/internal/config"
	"github.com/tsani/sixteen-fifty/internal/event"
	"github.com/tsani/sixteen-fifty/internal/hexmap"
	"github.com/tsani/sixteen-fifty/internal/input"
	"github.com/tsani/sixteen-fifty/internal/loop"
	"github.com/tsani/sixteen-fifty/internal/script"
	"github.com/tsani/sixteen-fifty/internal/script/asset"
	"github.com/tsani/sixteen-fifty/internal/script/expr"
	"github.com/tsani/sixteen-fifty/internal/stage"
	"github.com/tsani/sixteen-fifty/internal/world"
)

var (
	configPath = flag.String("config", "config/cutscene.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting cutscene runner",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("cutscene runner failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("cutscene runner stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	lib, err := asset.Load(cfg.Assets.ScriptsFile, asset.DefaultRegistry())
	if err != nil {
		return err
	}
	start, ok := lib.Event(cfg.Assets.StartEvent)
	if !ok {
		return fmt.Errorf("start event %q not found in %s", cfg.Assets.StartEvent, cfg.Assets.ScriptsFile)
	}
	logger.Info("event library loaded",
		zap.String("file", cfg.Assets.ScriptsFile),
		zap.Int("events", len(lib.Events())),
	)

	grid := hexmap.NewGrid(cfg.Assets.MapWidth, cfg.Assets.MapHeight)
	for _, p := range lib.Entities() {
		if err := grid.AddEntity(p.Name, p.At, p.Facing); err != nil {
			return fmt.Errorf("place entity: %w", err)
		}
	}

	rec := stage.NewRecorder(logger.Named("stage"))
	manager := event.NewManager(logger.Named("events"))
	ctx := &script.Context{
		Stage:     rec,
		Variables: expr.NewStore(),
		Logger:    logger.Named("script"),
	}
	w := world.New(grid, manager, ctx, hexmap.Metrics{OuterRadius: cfg.Assets.HexRadius}, logger.Named("world"))
	defer w.Close()
	for _, p := range lib.Interactables() {
		if err := w.AddInteractable(world.Interactable{Cell: p.At, Event: p.Event}); err != nil {
			return err
		}
	}

	l := loop.New(manager, loop.Config{
		TickRate:         cfg.Engine.TickInterval(),
		MaxInputsPerTick: cfg.Engine.MaxInputsPerTick,
	}, logger.Named("loop"))

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	finished := make(chan struct{})
	var once sync.Once
	manager.OnComplete(func(c event.Completion) {
		if script.Equal(c.Script, start.Script) {
			once.Do(func() { close(finished) })
		}
	})

	rec.Changes.Subscribe(func(c stage.Change) {
		if c.Kind == stage.ChangeDialogueText && c.Text != "" {
			fmt.Fprintf(os.Stdout, "> %s\n", c.Text)
		}
	})

	if cfg.Bridge.Enabled {
		hub := bridge.NewHub(l, w.Click, cfg.Bridge.AllowedOrigins, logger.Named("bridge"))
		defer hub.AttachStage(rec)()
		defer hub.AttachManager(manager)()
		srv := bridge.NewServer(cfg.Bridge.Address, hub, logger.Named("bridge"))
		go func() {
			if err := srv.ListenAndServe(runCtx); err != nil {
				logger.Error("bridge server error", zap.Error(err))
				cancel()
			}
		}()
	} else {
		// each line on stdin is a click on the main panel
		go readClicks(os.Stdin, l, w, logger)
	}

	if err := l.Post(func() {
		if err := w.Begin(start); err != nil {
			logger.Error("failed to begin start event", zap.Error(err))
			cancel()
		}
	}); err != nil {
		return err
	}
	if err := l.Start(runCtx); err != nil {
		return err
	}
	defer l.Stop()

	select {
	case <-finished:
		logger.Info("start event completed", zap.String("event", start.Name))
		if cfg.Bridge.Enabled {
			// keep serving interactables until told to stop
			select {
			case sig := <-sigChan:
				logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			case <-runCtx.Done():
			}
		}
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		l.Stop()
		manager.Abort("shutdown")
	case <-runCtx.Done():
	}
	return nil
}

func readClicks(r io.Reader, l *loop.Loop, w *world.World, logger *zap.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := l.Post(func() { w.Click(input.PointerEvent{}) }); err != nil {
			logger.Warn("dropped click", zap.Error(err))
		}
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
