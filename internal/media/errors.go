// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package media

import "errors"

var (
	ErrPlaylist   = errors.New("link points to a playlist")
	ErrNoMediaURL = errors.New("no media url in metadata")
	ErrEmptyLink  = errors.New("empty link")
)
