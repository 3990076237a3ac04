// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZSC714725/clipbot/internal/ffmpeg"
	"github.com/ZSC714725/clipbot/internal/media"
	"github.com/ZSC714725/clipbot/internal/messenger"
	"github.com/ZSC714725/clipbot/internal/status"
)

// run drives a job from metadata to upload. It returns once the job is
// finished.
func (b *Bot) run(j *Job) {
	req := j.Request

	m, err := b.resolver.Resolve(j.ctx, req.Link)
	if err != nil {
		if j.ctx.Err() != nil {
			b.deleteStatus(j)
			j.finish(StateCanceled, "canceled while resolving metadata")
			return
		}
		b.deleteStatus(j)
		if errors.Is(err, media.ErrPlaylist) {
			b.reply(j, msgPlaylist)
		} else {
			b.logger.Warn("job %s: resolve %s: %v", j.ID, req.Link, err)
			b.reply(j, msgNoMetadata)
		}
		j.finish(StateFailed, err.Error())
		return
	}
	if j.ctx.Err() != nil {
		b.deleteStatus(j)
		j.finish(StateCanceled, "canceled while resolving metadata")
		return
	}

	output := filepath.Join(b.outputDir, fmt.Sprintf("%d-%d.mp4", req.ChatID, req.MessageID))
	if req.MessageID == 0 {
		output = filepath.Join(b.outputDir, j.ID+".mp4")
	}

	runner, err := b.ffmpeg.NewRunner(b.ffmpeg.Clip(ffmpeg.ClipOptions{
		VideoURL: m.VideoURL,
		AudioURL: m.AudioURL,
		Start:    req.Start,
		Duration: req.Duration,
		Output:   output,
	}))
	if err != nil {
		b.deleteStatus(j)
		b.reply(j, msgClipFailed)
		j.finish(StateFailed, err.Error())
		return
	}

	j.mu.Lock()
	j.status.Name = m.Name
	j.output = output
	j.runner = runner
	canceled := j.canceled
	j.mu.Unlock()

	if canceled {
		b.deleteStatus(j)
		j.finish(StateCanceled, "canceled before clipping")
		return
	}

	b.setPhase(j, status.Clipping)

	stop := make(chan struct{})
	if b.refresh > 0 {
		go b.refresher(j, runner, stop)
	}

	var deadline *time.Timer
	if b.timeout > 0 {
		deadline = time.AfterFunc(b.timeout, func() {
			j.mu.Lock()
			j.timedOut = true
			j.mu.Unlock()
			b.logger.Warn("job %s: no result after %s, killing ffmpeg", j.ID, b.timeout)
			runner.Kill()
		})
	}

	cleanup := func() {
		close(stop)
		if deadline != nil {
			deadline.Stop()
		}
	}

	err = runner.RunAsync(
		func() {
			cleanup()
			b.upload(j, output)
		},
		func(message string, code int) {
			cleanup()
			b.failed(j, runner, output, message, code)
		},
	)
	if err != nil {
		cleanup()
		b.failed(j, runner, output, err.Error(), -1)
		return
	}

	// A cancel that raced with the start found no process to kill.
	j.mu.Lock()
	canceled = j.canceled
	j.mu.Unlock()
	if canceled {
		runner.Kill()
	}

	<-j.done
}

func (b *Bot) upload(j *Job, output string) {
	b.setPhase(j, status.Uploading)

	j.mu.Lock()
	name := j.status.Name
	j.mu.Unlock()

	video, err := b.messenger.SendVideo(j.ctx, j.Request.ChatID, j.Request.MessageID, output, name)
	b.deleteStatus(j)
	b.removeOutput(output)

	if err != nil {
		b.logger.Error("job %s: upload: %v", j.ID, err)
		b.reply(j, msgUploadFailed)
		j.finish(StateFailed, err.Error())
		return
	}

	b.logger.Info("job %s: delivered %s (%s)", j.ID, name, status.ReadableSize(video.Size))
	j.finish(StateDone, "")
}

func (b *Bot) failed(j *Job, runner *ffmpeg.Runner, output, message string, code int) {
	j.mu.Lock()
	timedOut := j.timedOut
	j.mu.Unlock()

	if timedOut {
		message = fmt.Sprintf("%s: timed out after %s", message, b.timeout)
	}

	var tail []string
	for _, l := range runner.Log() {
		tail = append(tail, l.Data)
	}
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	b.logger.Error("job %s: %s (exit code %d): %s", j.ID, message, code, strings.Join(tail, " | "))

	b.deleteStatus(j)
	b.reply(j, msgClipFailed)
	b.removeOutput(output)
	j.finish(StateFailed, message)
}

// refresher samples ffmpeg progress until stop is closed. Progress only
// moves forward: samples of lines without a time marker are skipped.
func (b *Bot) refresher(j *Job, runner *ffmpeg.Runner, stop <-chan struct{}) {
	ticker := time.NewTicker(b.refresh)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		p, err := runner.GetProgress()
		if err != nil {
			continue
		}

		j.mu.Lock()
		if j.status.Status != status.Clipping || p <= j.status.Progress {
			j.mu.Unlock()
			continue
		}
		j.status.SetProgress(p)
		b.editStatus(j)
		j.mu.Unlock()
	}
}

func (b *Bot) setPhase(j *Job, phase status.Phase) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.status.Status = phase
	b.editStatus(j)
}

// editStatus must be called with the job lock held, which keeps edits in
// order. Failures are logged and otherwise ignored.
func (b *Bot) editStatus(j *Job) {
	if j.statusMsg == 0 {
		return
	}
	err := b.messenger.EditMessage(j.ctx, j.Request.ChatID, j.statusMsg, j.render())
	switch {
	case err == nil:
	case errors.Is(err, messenger.ErrMessageNotModified):
		b.logger.Debug("job %s: %v", j.ID, err)
	default:
		b.logger.Warn("job %s: edit status message: %v", j.ID, err)
	}
}

func (b *Bot) deleteStatus(j *Job) {
	j.mu.Lock()
	id := j.statusMsg
	j.statusMsg = 0
	j.mu.Unlock()

	if id == 0 {
		return
	}
	if err := b.messenger.DeleteMessage(context.Background(), j.Request.ChatID, id); err != nil {
		b.logger.Warn("job %s: delete status message: %v", j.ID, err)
	}
}

func (b *Bot) reply(j *Job, text string) {
	if _, err := b.messenger.SendMessage(context.Background(), j.Request.ChatID, j.Request.MessageID, text); err != nil {
		b.logger.Error("job %s: send %q: %v", j.ID, text, err)
	}
}

func (b *Bot) removeOutput(output string) {
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		b.logger.Warn("remove %s: %v", output, err)
	}
}
