// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/ZSC714725/clipbot/internal/config"
	"github.com/ZSC714725/clipbot/internal/ffmpeg"
	"github.com/ZSC714725/clipbot/internal/logger"
	"github.com/ZSC714725/clipbot/internal/media"
	"github.com/ZSC714725/clipbot/internal/status"
)

type clipArgs struct {
	link     string
	start    string
	duration string
	output   string
	direct   bool
}

func newClipCommand(opts *options) *cobra.Command {
	var ffmpegBin, resolverBin string
	args := clipArgs{}

	cmd := &cobra.Command{
		Use:   "clip <link> <start> <duration>",
		Short: "Clip a video locally and show progress",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, positional []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if ffmpegBin != "" {
				cfg.FFmpeg.Path = ffmpegBin
			}
			if resolverBin != "" {
				cfg.Resolver.Path = resolverBin
			}
			args.link, args.start, args.duration = positional[0], positional[1], positional[2]

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return runClip(ctx, cfg, args, out, isTerminal(out), logger.NewWithWriter("clipbot", cmd.ErrOrStderr(), cfg.Log.Debug))
		},
	}

	cmd.Flags().StringVarP(&args.output, "output", "o", "", "Output file (default derived from the video title)")
	cmd.Flags().BoolVar(&args.direct, "direct", false, "Treat the link as a direct media URL and skip the resolver")
	cmd.Flags().StringVar(&ffmpegBin, "ffmpeg", "", "FFmpeg binary path (overrides config)")
	cmd.Flags().StringVar(&resolverBin, "resolver", "", "youtube-dl compatible binary (overrides config)")

	return cmd
}

func runClip(ctx context.Context, cfg *config.Config, args clipArgs, w io.Writer, tty bool, log logger.Logger) error {
	validator, err := ffmpeg.NewValidator(cfg.Bot.AllowLinks, cfg.Bot.BlockLinks)
	if err != nil {
		return err
	}
	ff, err := ffmpeg.New(ffmpeg.Config{
		Binary:         cfg.FFmpeg.Path,
		MaxLogLines:    cfg.FFmpeg.MaxLogLines,
		ValidatorInput: validator,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("ffmpeg init: %w", err)
	}
	if !ff.ValidateInput(args.link) {
		return fmt.Errorf("link is not allowed: %s", args.link)
	}

	m := &media.Media{VideoURL: args.link, AudioURL: args.link, Name: filepath.Base(args.link)}
	if !args.direct {
		m, err = media.NewYoutubeDL(cfg.Resolver.Path, log).Resolve(ctx, args.link)
		if err != nil {
			return err
		}
	}

	output := args.output
	if output == "" {
		output = clipName(m.Name)
	}

	runner, err := ff.NewRunner(ff.Clip(ffmpeg.ClipOptions{
		VideoURL: m.VideoURL,
		AudioURL: m.AudioURL,
		Start:    args.start,
		Duration: args.duration,
		Output:   output,
	}))
	if err != nil {
		return err
	}
	log.Debug("running %s", runner)

	s, err := runner.RunWithProgress()
	if err != nil {
		return err
	}
	defer s.Close()

	go func() {
		select {
		case <-ctx.Done():
			runner.Kill()
		case <-runner.Done():
		}
	}()

	p := &progressPrinter{w: w, tty: tty, name: m.Name, last: -1}
	for s.Next() {
		p.update(s.Percent())
	}
	p.finish()

	if err := s.Err(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var exitErr *ffmpeg.ExitError
		if errors.As(err, &exitErr) {
			for _, line := range exitErr.Output {
				log.Debug("%s", line)
			}
		}
		return err
	}

	var size int64
	if info, err := os.Stat(output); err == nil {
		size = info.Size()
	}
	fmt.Fprintf(w, "saved %s (%s)\n", output, status.ReadableSize(size))
	return nil
}

// clipName turns "<title>.<ext>" into "<title>-clip.mp4"
func clipName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = "video"
	}
	return base + "-clip.mp4"
}

// progressPrinter redraws a single line on a terminal and prints one line
// per distinct value otherwise.
type progressPrinter struct {
	w    io.Writer
	tty  bool
	name string
	last int
}

func (p *progressPrinter) update(percent int) {
	if percent == p.last {
		return
	}
	p.last = percent

	line := fmt.Sprintf("%s %s %3d%%", p.name, status.RenderProgressBar(float64(percent)), percent)
	if p.tty {
		fmt.Fprintf(p.w, "\r%s", line)
		return
	}
	fmt.Fprintln(p.w, line)
}

func (p *progressPrinter) finish() {
	if p.tty && p.last >= 0 {
		fmt.Fprintln(p.w)
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
