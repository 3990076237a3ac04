// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package messenger

import "errors"

var (
	ErrChatNotFound       = errors.New("chat not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrMessageNotModified = errors.New("message is not modified")
	ErrEmptyMessage       = errors.New("message text is empty")
)
