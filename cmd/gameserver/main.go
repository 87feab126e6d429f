// Command gameserver runs the UO-protocol network core standalone,
// backed by the in-memory event sink (internal/memsink): load config,
// install a signal-driven cancellation context, load the world if one
// exists on disk, bind the listener, and run until shutdown.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/udisondev/la2go/internal/config"
	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/memsink"
	"github.com/udisondev/la2go/internal/server"
)

const defaultConfigPath = "config/gameserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", slog.String("signal", sig.String()))
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := defaultConfigPath
	if p := os.Getenv("LA2GO_GAME_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("gameserver starting", slog.Int("port", cfg.Listener.Port))

	registry := entity.NewRegistry()
	var mobileRef, itemRef int32
	mobileRef = registry.Register(entity.MobileTypeFqn, func(serial entity.Serial) entity.Entity {
		return entity.NewMobile(serial, mobileRef)
	})
	itemRef = registry.Register(entity.ItemTypeFqn, func(serial entity.Serial) entity.Entity {
		return entity.NewItem(serial, itemRef)
	})

	w := server.NewWorld(registry)
	sink := memsink.New(w, "la2go", [4]byte{127, 0, 0, 1})
	srv := server.New(cfg, w, registry, sink)

	if _, err := os.Stat(cfg.Save.SaveDirectory); err == nil {
		if err := srv.LoadWorld(cfg.Save.SaveDirectory); err != nil {
			return fmt.Errorf("loading world: %w", err)
		}
		slog.Info("world loaded", slog.String("dir", cfg.Save.SaveDirectory))
	}

	if err := srv.Listen(); err != nil {
		return fmt.Errorf("binding listener: %w", err)
	}
	slog.Info("listening", slog.String("addr", fmt.Sprintf("%s:%d", cfg.Listener.BindAddress, cfg.Listener.Port)))

	return srv.Run(ctx)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
