// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/ZSC714725/clipbot/internal/api"
	"github.com/ZSC714725/clipbot/internal/bot"
	"github.com/ZSC714725/clipbot/internal/config"
	"github.com/ZSC714725/clipbot/internal/ffmpeg"
	"github.com/ZSC714725/clipbot/internal/logger"
	"github.com/ZSC714725/clipbot/internal/media"
	"github.com/ZSC714725/clipbot/internal/messenger"
)

const lockFile = ".clipbot.lock"

func newServeCommand(opts *options) *cobra.Command {
	var bind, ffmpegBin, resolverBin, outputDir string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if bind != "" {
				cfg.Server.Bind = bind
			}
			if ffmpegBin != "" {
				cfg.FFmpeg.Path = ffmpegBin
			}
			if resolverBin != "" {
				cfg.Resolver.Path = resolverBin
			}
			if outputDir != "" {
				cfg.Bot.OutputDir = outputDir
			}
			if opts.debug {
				cfg.Log.Debug = true
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Bind address (overrides config)")
	cmd.Flags().StringVar(&ffmpegBin, "ffmpeg", "", "FFmpeg binary path (overrides config)")
	cmd.Flags().StringVar(&resolverBin, "resolver", "", "youtube-dl compatible binary (overrides config)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for clips in progress (overrides config)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.NewWithWriter("clipbot", os.Stderr, cfg.Log.Debug)

	if err := os.MkdirAll(cfg.Bot.OutputDir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	lock := flock.New(filepath.Join(cfg.Bot.OutputDir, lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another clipbot is already using %s", cfg.Bot.OutputDir)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			log.Warn("release lock: %v", err)
		}
	}()

	validator, err := ffmpeg.NewValidator(cfg.Bot.AllowLinks, cfg.Bot.BlockLinks)
	if err != nil {
		return err
	}

	ff, err := ffmpeg.New(ffmpeg.Config{
		Binary:         cfg.FFmpeg.Path,
		MaxLogLines:    cfg.FFmpeg.MaxLogLines,
		ValidatorInput: validator,
		Logger:         logger.NewWithWriter("ffmpeg", os.Stderr, cfg.Log.Debug),
	})
	if err != nil {
		return fmt.Errorf("ffmpeg init: %w", err)
	}
	log.Info("using %s (version %s)", ff.Binary(), ff.Skills().Version)

	outbox := messenger.NewOutbox(logger.NewWithWriter("messenger", os.Stderr, cfg.Log.Debug))

	b, err := bot.New(bot.Config{
		Messenger:       outbox,
		Resolver:        media.NewYoutubeDL(cfg.Resolver.Path, log),
		FFmpeg:          ff,
		OutputDir:       cfg.Bot.OutputDir,
		RefreshInterval: time.Duration(cfg.Bot.RefreshInterval) * time.Second,
		ClipTimeout:     time.Duration(cfg.Bot.ClipTimeout) * time.Second,
		Logger:          log,
	})
	if err != nil {
		return err
	}

	if !cfg.Log.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    cfg.Server.Bind,
		Handler: api.NewRouter(api.NewHandler(b, ff, outbox)),
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("listening on %s", cfg.Server.Bind)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			b.Close(context.Background())
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown: %v", err)
	}
	if err := b.Close(shutdownCtx); err != nil {
		log.Warn("jobs did not stop in time: %v", err)
	}
	return nil
}
