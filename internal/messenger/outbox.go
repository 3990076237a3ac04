// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package messenger

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ZSC714725/clipbot/internal/logger"
)

// Outbox is an in-memory Messenger. Every chat keeps its full message
// history so it can be read back through the API. Videos are recorded by
// path and size; the file itself is not retained.
type Outbox struct {
	logger logger.Logger

	mu     sync.RWMutex
	chats  map[int64][]*Message
	nextID int64
}

// NewOutbox creates an empty Outbox
func NewOutbox(l logger.Logger) *Outbox {
	if l == nil {
		l = logger.Nop()
	}
	return &Outbox{
		logger: l,
		chats:  make(map[int64][]*Message),
		nextID: 1,
	}
}

func (o *Outbox) add(m *Message) *Message {
	m.ID = o.nextID
	o.nextID++
	m.CreatedAt = time.Now()
	o.chats[m.ChatID] = append(o.chats[m.ChatID], m)
	copied := *m
	return &copied
}

// find must be called with the lock held
func (o *Outbox) find(chatID, messageID int64) (*Message, error) {
	msgs, ok := o.chats[chatID]
	if !ok {
		return nil, ErrChatNotFound
	}
	for _, m := range msgs {
		if m.ID == messageID && !m.Deleted {
			return m, nil
		}
	}
	return nil, ErrMessageNotFound
}

func (o *Outbox) SendMessage(ctx context.Context, chatID, replyTo int64, text string) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	m := o.add(&Message{ChatID: chatID, ReplyTo: replyTo, Kind: KindText, Text: text})
	o.logger.Debug("chat %d: sent message %d", chatID, m.ID)
	return m, nil
}

func (o *Outbox) EditMessage(ctx context.Context, chatID, messageID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	m, err := o.find(chatID, messageID)
	if err != nil {
		return err
	}
	if m.Text == text {
		return ErrMessageNotModified
	}
	m.Text = text
	m.EditedAt = time.Now()
	return nil
}

func (o *Outbox) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	m, err := o.find(chatID, messageID)
	if err != nil {
		return err
	}
	m.Deleted = true
	return nil
}

func (o *Outbox) SendVideo(ctx context.Context, chatID, replyTo int64, path, caption string) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("send video: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	m := o.add(&Message{
		ChatID:  chatID,
		ReplyTo: replyTo,
		Kind:    KindVideo,
		Caption: caption,
		File:    path,
		Size:    info.Size(),
	})
	o.logger.Info("chat %d: sent video %s (%d bytes)", chatID, path, info.Size())
	return m, nil
}

// Messages returns the history of a chat, deleted messages included.
func (o *Outbox) Messages(chatID int64) ([]Message, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	msgs, ok := o.chats[chatID]
	if !ok {
		return nil, ErrChatNotFound
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = *m
	}
	return out, nil
}

// Chats returns the ids of all chats with at least one message.
func (o *Outbox) Chats() []int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ids := make([]int64, 0, len(o.chats))
	for id := range o.chats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
