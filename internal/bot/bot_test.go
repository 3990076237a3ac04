// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ZSC714725/clipbot/internal/ffmpeg"
	"github.com/ZSC714725/clipbot/internal/media"
	"github.com/ZSC714725/clipbot/internal/messenger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ffmpegPrelude = `case "$1" in
-version) echo "ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers"; exit 0;;
-hide_banner) printf ' V..... libx264              H.264\n A..... aac                  AAC\n'; exit 0;;
esac
for a in "$@"; do out="$a"; done
`

const clipOK = `echo "  Duration: 00:00:10.00, start: 0.000000"
echo "out_time=00:00:05.00"
echo "clip" > "$out"
exit 0
`

func newFFmpeg(t *testing.T, body string, v ffmpeg.Validator) ffmpeg.FFmpeg {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+ffmpegPrelude+body), 0o755))
	ff, err := ffmpeg.New(ffmpeg.Config{Binary: path, ValidatorInput: v})
	require.NoError(t, err)
	return ff
}

type fakeResolver struct {
	media *media.Media
	err   error
	block bool
}

func (f *fakeResolver) Resolve(ctx context.Context, link string) (*media.Media, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	m := *f.media
	return &m, nil
}

var clipMedia = &media.Media{
	VideoURL: "https://cdn/video",
	AudioURL: "https://cdn/audio",
	Name:     "clip.mp4",
}

// recorder keeps every edit made through it
type recorder struct {
	*messenger.Outbox
	mu    sync.Mutex
	edits []string
}

func (r *recorder) EditMessage(ctx context.Context, chatID, messageID int64, text string) error {
	r.mu.Lock()
	r.edits = append(r.edits, text)
	r.mu.Unlock()
	return r.Outbox.EditMessage(ctx, chatID, messageID, text)
}

func (r *recorder) Edits() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.edits...)
}

// slowSender holds SendMessage for one chat until released.
type slowSender struct {
	messenger.Messenger
	chat    int64
	entered chan struct{}
	release chan struct{}
}

func (s *slowSender) SendMessage(ctx context.Context, chatID, replyTo int64, text string) (*messenger.Message, error) {
	if chatID == s.chat {
		close(s.entered)
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.Messenger.SendMessage(ctx, chatID, replyTo, text)
}

type fixture struct {
	bot    *Bot
	outbox *recorder
	dir    string
}

func newFixture(t *testing.T, ff ffmpeg.FFmpeg, res media.Resolver, mod func(*Config)) *fixture {
	t.Helper()
	out := &recorder{Outbox: messenger.NewOutbox(nil)}
	dir := t.TempDir()
	cfg := Config{
		Messenger: out,
		Resolver:  res,
		FFmpeg:    ff,
		OutputDir: dir,
	}
	if mod != nil {
		mod(&cfg)
	}
	b, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		b.Close(ctx)
	})
	return &fixture{bot: b, outbox: out, dir: dir}
}

func (f *fixture) messages(t *testing.T, chat int64) []messenger.Message {
	t.Helper()
	msgs, err := f.outbox.Messages(chat)
	require.NoError(t, err)
	return msgs
}

func waitJob(t *testing.T, j *Job) Info {
	t.Helper()
	select {
	case <-j.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("job did not finish in time")
	}
	return j.Info()
}

func TestClipDelivered(t *testing.T) {
	f := newFixture(t, newFFmpeg(t, clipOK, nil), &fakeResolver{media: clipMedia}, nil)

	j, err := f.bot.HandleUpdate(context.Background(), Update{ChatID: 7, MessageID: 3, Text: "/clip https://youtu.be/abc 0:10 5"})
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, "7-3", j.ID)

	info := waitJob(t, j)
	assert.Equal(t, StateDone, info.State)
	assert.Empty(t, info.Error)
	assert.Equal(t, "clip.mp4", info.Status.Name)
	assert.Equal(t, filepath.Join(f.bot.OutputDir(), "7-3.mp4"), info.Output)

	msgs := f.messages(t, 7)
	require.Len(t, msgs, 2)

	assert.Equal(t, messenger.KindText, msgs[0].Kind)
	assert.True(t, msgs[0].Deleted)
	assert.Equal(t, int64(3), msgs[0].ReplyTo)
	assert.Equal(t, "<i>clip.mp4</i>\nUploading", msgs[0].Text)

	assert.Equal(t, messenger.KindVideo, msgs[1].Kind)
	assert.Equal(t, "clip.mp4", msgs[1].Caption)
	assert.Equal(t, int64(3), msgs[1].ReplyTo)
	assert.Equal(t, int64(5), msgs[1].Size)

	assert.Equal(t, []string{
		"<i>clip.mp4</i>\nClipping video",
		"<i>clip.mp4</i>\nUploading",
	}, f.outbox.Edits())

	_, err = os.Stat(info.Output)
	assert.True(t, os.IsNotExist(err))

	args := j.Runner().Args()
	assert.Equal(t, []string{"-progress", "-", "-nostats", "-ss", "0:10", "-i", "https://cdn/video"}, args[1:8])
	assert.Contains(t, strings.Join(args, " "), "-map 0:v -map 1:a")
}

func TestClipFailure(t *testing.T) {
	f := newFixture(t, newFFmpeg(t, "echo 'Conversion failed!'\nexit 1\n", nil), &fakeResolver{media: clipMedia}, nil)

	j, err := f.bot.HandleUpdate(context.Background(), Update{ChatID: 7, MessageID: 4, Text: "/clip https://youtu.be/abc 0:10 5"})
	require.NoError(t, err)

	info := waitJob(t, j)
	assert.Equal(t, StateFailed, info.State)
	assert.Contains(t, info.Error, "error running command")

	msgs := f.messages(t, 7)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Deleted)
	assert.Equal(t, msgClipFailed, msgs[1].Text)
	assert.Equal(t, int64(4), msgs[1].ReplyTo)
}

func TestClipResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"playlist", media.ErrPlaylist, msgPlaylist},
		{"lookup failed", errors.New("exit status 1"), msgNoMetadata},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, newFFmpeg(t, clipOK, nil), &fakeResolver{err: tt.err}, nil)

			j, err := f.bot.HandleUpdate(context.Background(), Update{ChatID: 1, MessageID: 2, Text: "/clip https://youtu.be/list 0 5"})
			require.NoError(t, err)

			info := waitJob(t, j)
			assert.Equal(t, StateFailed, info.State)
			assert.Nil(t, j.Runner())

			msgs := f.messages(t, 1)
			require.Len(t, msgs, 2)
			assert.True(t, msgs[0].Deleted)
			assert.Equal(t, "<i></i>\nExtracting metadata", msgs[0].Text)
			assert.Equal(t, tt.want, msgs[1].Text)
		})
	}
}

func TestHandleUpdateCommands(t *testing.T) {
	v, err := ffmpeg.NewValidator(nil, []string{`^file:`})
	require.NoError(t, err)
	f := newFixture(t, newFFmpeg(t, clipOK, v), &fakeResolver{media: clipMedia}, nil)
	ctx := context.Background()

	tests := []struct {
		text string
		want string
	}{
		{"/start", msgHelp},
		{"/start@clipbot", msgHelp},
		{"/clip", msgNoLink},
		{"/clip https://youtu.be/abc", msgNoTimes},
		{"/clip https://youtu.be/abc 0:10", msgNoTimes},
		{"/clip file:///etc/passwd 0 5", msgLinkForbidden},
	}
	for i, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			chat := int64(100 + i)
			j, err := f.bot.HandleUpdate(ctx, Update{ChatID: chat, MessageID: 1, Text: tt.text})
			require.NoError(t, err)
			assert.Nil(t, j)

			msgs := f.messages(t, chat)
			require.Len(t, msgs, 1)
			assert.Equal(t, tt.want, msgs[0].Text)
		})
	}

	j, err := f.bot.HandleUpdate(ctx, Update{ChatID: 99, MessageID: 1, Text: "hello there"})
	require.NoError(t, err)
	assert.Nil(t, j)
	_, err = f.outbox.Messages(99)
	assert.ErrorIs(t, err, messenger.ErrChatNotFound)

	assert.Empty(t, f.bot.Jobs(0))
}

func TestCancelWhileClipping(t *testing.T) {
	f := newFixture(t, newFFmpeg(t, "exec sleep 30\n", nil), &fakeResolver{media: clipMedia}, nil)

	j, err := f.bot.HandleUpdate(context.Background(), Update{ChatID: 5, MessageID: 6, Text: "/clip https://youtu.be/abc 0 5"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		r := j.Runner()
		return r != nil && r.Running()
	}, 5*time.Second, 10*time.Millisecond)

	_, err = f.bot.Cancel(j.ID)
	require.NoError(t, err)

	info := waitJob(t, j)
	assert.Equal(t, StateCanceled, info.State)
	assert.False(t, j.Runner().Running())

	_, err = f.bot.Cancel("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestCancelWhileResolving(t *testing.T) {
	f := newFixture(t, newFFmpeg(t, clipOK, nil), &fakeResolver{block: true}, nil)

	j, err := f.bot.HandleUpdate(context.Background(), Update{ChatID: 5, MessageID: 7, Text: "/clip https://youtu.be/abc 0 5"})
	require.NoError(t, err)

	_, err = f.bot.Cancel(j.ID)
	require.NoError(t, err)

	info := waitJob(t, j)
	assert.Equal(t, StateCanceled, info.State)
	assert.Nil(t, j.Runner())

	msgs := f.messages(t, 5)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Deleted)
}

func TestClipTimeout(t *testing.T) {
	f := newFixture(t, newFFmpeg(t, "exec sleep 30\n", nil), &fakeResolver{media: clipMedia}, func(c *Config) {
		c.ClipTimeout = 200 * time.Millisecond
	})

	j, err := f.bot.HandleUpdate(context.Background(), Update{ChatID: 8, MessageID: 1, Text: "/clip https://youtu.be/abc 0 5"})
	require.NoError(t, err)

	info := waitJob(t, j)
	assert.Equal(t, StateFailed, info.State)
	assert.Contains(t, info.Error, "timed out")

	msgs := f.messages(t, 8)
	require.Len(t, msgs, 2)
	assert.Equal(t, msgClipFailed, msgs[1].Text)
}

func TestRefresherEditsProgress(t *testing.T) {
	body := `echo "  Duration: 00:00:10.00, start: 0.000000"
echo "out_time=00:00:05.00"
sleep 1
echo "clip" > "$out"
exit 0
`
	f := newFixture(t, newFFmpeg(t, body, nil), &fakeResolver{media: clipMedia}, func(c *Config) {
		c.RefreshInterval = 50 * time.Millisecond
	})

	j, err := f.bot.HandleUpdate(context.Background(), Update{ChatID: 9, MessageID: 1, Text: "/clip https://youtu.be/abc 0 5"})
	require.NoError(t, err)

	info := waitJob(t, j)
	require.Equal(t, StateDone, info.State)
	assert.Equal(t, 50.0, info.Status.Progress)

	assert.Contains(t, f.outbox.Edits(), "<i>clip.mp4</i>\nClipping video\n[██████▎     ] 50%")
	edits := f.outbox.Edits()
	assert.Equal(t, "<i>clip.mp4</i>\nUploading", edits[len(edits)-1])
}

func TestRefresherFollowsProgressBlocks(t *testing.T) {
	body := `echo "  Duration: 00:00:10.00, start: 0.000000"
for s in 2 4 6 8; do
  echo "frame=$((s * 25))"
  echo "fps=25.00"
  echo "out_time=00:00:0${s}.000000"
  echo "speed=1.00x"
  echo "progress=continue"
  sleep 0.3
done
echo "progress=end"
echo "clip" > "$out"
exit 0
`
	f := newFixture(t, newFFmpeg(t, body, nil), &fakeResolver{media: clipMedia}, func(c *Config) {
		c.RefreshInterval = 50 * time.Millisecond
	})

	j, err := f.bot.HandleUpdate(context.Background(), Update{ChatID: 9, MessageID: 1, Text: "/clip https://youtu.be/abc 0 5"})
	require.NoError(t, err)

	info := waitJob(t, j)
	require.Equal(t, StateDone, info.State)
	assert.Greater(t, info.Status.Progress, 0.0)

	var bars []string
	for _, e := range f.outbox.Edits() {
		if strings.HasPrefix(e, "<i>clip.mp4</i>\nClipping video\n[") {
			bars = append(bars, e)
		}
	}
	require.NotEmpty(t, bars)
	assert.False(t, strings.HasSuffix(bars[len(bars)-1], " 0%"))
}

func TestSlowSendDoesNotBlockOtherChats(t *testing.T) {
	slow := &slowSender{chat: 1, entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, newFFmpeg(t, clipOK, nil), &fakeResolver{media: clipMedia}, func(c *Config) {
		slow.Messenger = c.Messenger
		c.Messenger = slow
	})
	ctx := context.Background()

	first := make(chan *Job, 1)
	go func() {
		j, err := f.bot.Submit(ctx, Request{ChatID: 1, MessageID: 1, Link: "https://youtu.be/abc", Start: "0", Duration: "5"})
		assert.NoError(t, err)
		first <- j
	}()
	select {
	case <-slow.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("status message was never sent")
	}

	second := make(chan *Job, 1)
	go func() {
		j, err := f.bot.Submit(ctx, Request{ChatID: 2, MessageID: 1, Link: "https://youtu.be/abc", Start: "0", Duration: "5"})
		assert.NoError(t, err)
		second <- j
	}()

	var other *Job
	select {
	case other = <-second:
	case <-time.After(2 * time.Second):
		t.Fatal("submit for another chat waited on a slow send")
	}
	assert.Len(t, f.bot.Jobs(1), 1)

	close(slow.release)
	j := <-first
	require.NotNil(t, j)
	require.NotNil(t, other)
	assert.Equal(t, StateDone, waitJob(t, j).State)
	assert.Equal(t, StateDone, waitJob(t, other).State)
}

func TestJobRegistry(t *testing.T) {
	f := newFixture(t, newFFmpeg(t, "exec sleep 30\n", nil), &fakeResolver{media: clipMedia}, nil)
	ctx := context.Background()

	u := Update{ChatID: 3, MessageID: 9, Text: "/clip https://youtu.be/abc 0 5"}
	j, err := f.bot.HandleUpdate(ctx, u)
	require.NoError(t, err)

	_, err = f.bot.HandleUpdate(ctx, u)
	assert.ErrorIs(t, err, ErrJobExists)

	other, err := f.bot.Submit(ctx, Request{ChatID: 4, Link: "https://youtu.be/def", Start: "0", Duration: "1"})
	require.NoError(t, err)
	assert.NotEqual(t, "4-0", other.ID)
	assert.NotEmpty(t, other.ID)

	got, err := f.bot.Job(j.ID)
	require.NoError(t, err)
	assert.Same(t, j, got)

	assert.Len(t, f.bot.Jobs(0), 2)
	chat3 := f.bot.Jobs(3)
	require.Len(t, chat3, 1)
	assert.Equal(t, j.ID, chat3[0].ID)

	assert.ErrorIs(t, f.bot.Remove(j.ID), ErrJobRunning)

	f.bot.Cancel(j.ID)
	f.bot.Cancel(other.ID)
	waitJob(t, j)
	waitJob(t, other)

	require.NoError(t, f.bot.Remove(j.ID))
	_, err = f.bot.Job(j.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, f.bot.Remove(j.ID), ErrJobNotFound)
}

func TestClose(t *testing.T) {
	f := newFixture(t, newFFmpeg(t, "exec sleep 30\n", nil), &fakeResolver{media: clipMedia}, nil)
	ctx := context.Background()

	j, err := f.bot.HandleUpdate(ctx, Update{ChatID: 1, MessageID: 1, Text: "/clip https://youtu.be/abc 0 5"})
	require.NoError(t, err)

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, f.bot.Close(closeCtx))

	assert.False(t, j.Running())
	assert.Equal(t, StateCanceled, j.Info().State)

	_, err = f.bot.Submit(ctx, Request{ChatID: 1, MessageID: 2, Link: "x", Start: "0", Duration: "1"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
