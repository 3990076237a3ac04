// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package messenger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxSendEditDelete(t *testing.T) {
	ctx := context.Background()
	o := NewOutbox(nil)

	m, err := o.SendMessage(ctx, 10, 3, "<i>clip</i>")
	require.NoError(t, err)
	assert.Equal(t, int64(10), m.ChatID)
	assert.Equal(t, int64(3), m.ReplyTo)
	assert.Equal(t, KindText, m.Kind)

	require.NoError(t, o.EditMessage(ctx, 10, m.ID, "<i>clip</i>\nClipping video"))
	assert.ErrorIs(t, o.EditMessage(ctx, 10, m.ID, "<i>clip</i>\nClipping video"), ErrMessageNotModified)

	msgs, err := o.Messages(10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "<i>clip</i>\nClipping video", msgs[0].Text)
	assert.False(t, msgs[0].EditedAt.IsZero())

	require.NoError(t, o.DeleteMessage(ctx, 10, m.ID))
	assert.ErrorIs(t, o.DeleteMessage(ctx, 10, m.ID), ErrMessageNotFound)
	assert.ErrorIs(t, o.EditMessage(ctx, 10, m.ID, "late"), ErrMessageNotFound)

	msgs, err = o.Messages(10)
	require.NoError(t, err)
	assert.True(t, msgs[0].Deleted)
}

func TestOutboxUnknownChat(t *testing.T) {
	ctx := context.Background()
	o := NewOutbox(nil)

	_, err := o.Messages(1)
	assert.ErrorIs(t, err, ErrChatNotFound)
	assert.ErrorIs(t, o.EditMessage(ctx, 1, 1, "x"), ErrChatNotFound)
	assert.ErrorIs(t, o.DeleteMessage(ctx, 1, 1), ErrChatNotFound)
}

func TestOutboxRejectsEmptyText(t *testing.T) {
	_, err := NewOutbox(nil).SendMessage(context.Background(), 1, 0, "  ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestOutboxSendVideo(t *testing.T) {
	ctx := context.Background()
	o := NewOutbox(nil)

	path := filepath.Join(t.TempDir(), "1-2.mp4")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	m, err := o.SendVideo(ctx, 1, 2, path, "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, KindVideo, m.Kind)
	assert.Equal(t, int64(10), m.Size)
	assert.Equal(t, "clip.mp4", m.Caption)

	_, err = o.SendVideo(ctx, 1, 2, filepath.Join(t.TempDir(), "missing.mp4"), "")
	assert.Error(t, err)

	assert.Equal(t, []int64{1}, o.Chats())
}

func TestOutboxIDsAreUnique(t *testing.T) {
	ctx := context.Background()
	o := NewOutbox(nil)

	a, err := o.SendMessage(ctx, 1, 0, "a")
	require.NoError(t, err)
	b, err := o.SendMessage(ctx, 2, 0, "b")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, []int64{1, 2}, o.Chats())
}

func TestOutboxCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOutbox(nil).SendMessage(ctx, 1, 0, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
