// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package messenger

import (
	"context"
	"time"
)

// Kind of a delivered message
type Kind string

const (
	KindText  Kind = "text"
	KindVideo Kind = "video"
)

// Message is one message in a chat
type Message struct {
	ChatID    int64     `json:"chat_id"`
	ID        int64     `json:"message_id"`
	ReplyTo   int64     `json:"reply_to,omitempty"`
	Kind      Kind      `json:"kind"`
	Text      string    `json:"text,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	File      string    `json:"file,omitempty"`
	Size      int64     `json:"size_bytes,omitempty"`
	Deleted   bool      `json:"deleted"`
	CreatedAt time.Time `json:"created_at"`
	EditedAt  time.Time `json:"edited_at,omitempty"`
}

// Messenger is the chat transport the bot talks to. Text is HTML.
type Messenger interface {
	SendMessage(ctx context.Context, chatID, replyTo int64, text string) (*Message, error)
	EditMessage(ctx context.Context, chatID, messageID int64, text string) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	SendVideo(ctx context.Context, chatID, replyTo int64, path, caption string) (*Message, error)
}
