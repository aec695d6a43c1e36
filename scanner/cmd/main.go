package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/eaglebank/scanpoint/scanner/internal/config"
	"github.com/eaglebank/scanpoint/scanner/internal/console"
	"github.com/eaglebank/scanpoint/scanner/internal/decoder"
	"github.com/eaglebank/scanpoint/scanner/internal/display"
	"github.com/eaglebank/scanpoint/scanner/internal/frames"
	"github.com/eaglebank/scanpoint/scanner/internal/gateway"
	"github.com/eaglebank/scanpoint/scanner/internal/reconcile"
	"github.com/eaglebank/scanpoint/scanner/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env", "error", err)
	}

	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := reconcile.New(
		decoder.New(),
		gateway.New(cfg.ServerURL, cfg.Timeout),
		display.NewTerminal(os.Stdout, true),
		session.New(),
		reconcile.WithRescanInterval(cfg.RescanInterval),
	)

	var wg sync.WaitGroup
	if cfg.FramesDir != "" {
		src, err := frames.NewDirSource(cfg.FramesDir, true)
		if err != nil {
			slog.Error("frame source unavailable", "error", err)
			os.Exit(1)
		}
		slog.Info("scanning frames", "dir", cfg.FramesDir, "images", src.Len(), "fps", cfg.FPS)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ctrl.Run(ctx, src, cfg.FPS); err != nil {
				slog.Error("decode loop stopped", "error", err)
			}
		}()
	}

	slog.Info("scanner ready", "server", cfg.ServerURL)
	if err := console.New(ctrl, os.Stdout).Run(ctx, os.Stdin); err != nil {
		slog.Error("console stopped", "error", err)
	}

	stop()
	wg.Wait()
	ctrl.Wait()
}
