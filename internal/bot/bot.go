// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZSC714725/clipbot/internal/ffmpeg"
	"github.com/ZSC714725/clipbot/internal/logger"
	"github.com/ZSC714725/clipbot/internal/media"
	"github.com/ZSC714725/clipbot/internal/messenger"

	"github.com/lithammer/shortuuid/v4"
)

// Update is one incoming chat message
type Update struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}

// Config for the Bot
type Config struct {
	Messenger messenger.Messenger
	Resolver  media.Resolver
	FFmpeg    ffmpeg.FFmpeg
	OutputDir string
	// RefreshInterval is how often a clipping job samples ffmpeg progress
	// and edits its status message. 0 disables the refresher.
	RefreshInterval time.Duration
	// ClipTimeout kills ffmpeg after the given time. 0 means no deadline.
	ClipTimeout time.Duration
	Logger      logger.Logger
}

// Bot handles chat commands and owns the clipping jobs they start. All
// collaborators are passed in explicitly.
type Bot struct {
	messenger messenger.Messenger
	resolver  media.Resolver
	ffmpeg    ffmpeg.FFmpeg
	outputDir string
	refresh   time.Duration
	timeout   time.Duration
	logger    logger.Logger

	jobs *store
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
	lock   sync.Mutex
}

// New creates a Bot and the output directory
func New(config Config) (*Bot, error) {
	if config.Messenger == nil || config.Resolver == nil || config.FFmpeg == nil {
		return nil, fmt.Errorf("bot needs a messenger, a resolver and ffmpeg")
	}

	b := &Bot{
		messenger: config.Messenger,
		resolver:  config.Resolver,
		ffmpeg:    config.FFmpeg,
		outputDir: config.OutputDir,
		refresh:   config.RefreshInterval,
		timeout:   config.ClipTimeout,
		logger:    config.Logger,
		jobs:      newStore(),
	}

	if b.logger == nil {
		b.logger = logger.Nop()
	}
	if b.outputDir == "" {
		b.outputDir = "outputs"
	}

	dir, err := filepath.Abs(b.outputDir)
	if err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	b.outputDir = dir

	b.ctx, b.cancel = context.WithCancel(context.Background())

	return b, nil
}

// OutputDir is the absolute directory clips are written to
func (b *Bot) OutputDir() string {
	return b.outputDir
}

// HandleUpdate dispatches a chat message. /clip starts a job in the
// background and returns it; every other message returns a nil job.
// Problems with the request are answered in the chat, not returned.
func (b *Bot) HandleUpdate(ctx context.Context, u Update) (*Job, error) {
	fields := strings.Fields(u.Text)
	if len(fields) == 0 {
		return nil, nil
	}

	switch command(fields[0]) {
	case "/start":
		_, err := b.messenger.SendMessage(ctx, u.ChatID, 0, msgHelp)
		return nil, err
	case "/clip":
		return b.clip(ctx, u, fields[1:])
	}

	b.logger.Debug("chat %d: ignoring %q", u.ChatID, fields[0])
	return nil, nil
}

// command strips a "@botname" suffix
func command(word string) string {
	if i := strings.IndexByte(word, '@'); i > 0 {
		word = word[:i]
	}
	return strings.ToLower(word)
}

func (b *Bot) clip(ctx context.Context, u Update, args []string) (*Job, error) {
	if len(args) < 1 {
		_, err := b.messenger.SendMessage(ctx, u.ChatID, u.MessageID, msgNoLink)
		return nil, err
	}
	if len(args) < 3 {
		_, err := b.messenger.SendMessage(ctx, u.ChatID, u.MessageID, msgNoTimes)
		return nil, err
	}

	req := Request{
		ChatID:    u.ChatID,
		MessageID: u.MessageID,
		Link:      args[0],
		Start:     args[1],
		Duration:  args[2],
	}

	if !b.ffmpeg.ValidateInput(req.Link) {
		_, err := b.messenger.SendMessage(ctx, u.ChatID, u.MessageID, msgLinkForbidden)
		return nil, err
	}

	return b.Submit(ctx, req)
}

// Submit starts a clipping job for an already parsed request
func (b *Bot) Submit(ctx context.Context, req Request) (*Job, error) {
	id := jobID(req)

	b.lock.Lock()
	if b.closed {
		b.lock.Unlock()
		return nil, ErrClosed
	}
	j := newJob(b.ctx, id, req)
	if err := b.jobs.add(j); err != nil {
		b.lock.Unlock()
		j.cancel()
		return nil, err
	}
	// Counted before unlocking so Close waits for it.
	b.wg.Add(1)
	b.lock.Unlock()

	msg, err := b.messenger.SendMessage(ctx, req.ChatID, req.MessageID, j.Info().Text)
	if err != nil {
		j.finish(StateFailed, err.Error())
		b.wg.Done()
		return nil, fmt.Errorf("send status message: %w", err)
	}
	j.mu.Lock()
	j.statusMsg = msg.ID
	j.mu.Unlock()

	b.logger.Info("job %s: clipping %s from %s for %s", id, req.Link, req.Start, req.Duration)

	go func() {
		defer b.wg.Done()
		b.run(j)
	}()

	return j, nil
}

func jobID(req Request) string {
	if req.MessageID == 0 {
		return shortuuid.New()
	}
	return strconv.FormatInt(req.ChatID, 10) + "-" + strconv.FormatInt(req.MessageID, 10)
}

// Job returns a job by id
func (b *Bot) Job(id string) (*Job, error) {
	return b.jobs.get(id)
}

// Jobs returns all jobs oldest first, optionally restricted to one chat
func (b *Bot) Jobs(chatID int64) []*Job {
	return b.jobs.list(chatID)
}

// Cancel cancels a running job
func (b *Bot) Cancel(id string) (*Job, error) {
	j, err := b.jobs.get(id)
	if err != nil {
		return nil, err
	}
	if j.Running() {
		b.logger.Info("job %s: canceled", id)
		j.Cancel()
	}
	return j, nil
}

// Remove forgets a finished job
func (b *Bot) Remove(id string) error {
	return b.jobs.delete(id)
}

// Close cancels every running job and waits for them to wind down or for
// ctx to expire.
func (b *Bot) Close(ctx context.Context) error {
	b.lock.Lock()
	b.closed = true
	b.lock.Unlock()

	for _, j := range b.jobs.list(0) {
		if j.Running() {
			j.Cancel()
		}
	}
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
