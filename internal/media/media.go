// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package media

import (
	"context"
	"strings"
)

// Media is a resolved link: direct URLs ffmpeg can read and a file name to
// show the user. VideoURL and AudioURL are equal when the source has a
// single muxed format.
type Media struct {
	VideoURL string `json:"video_url"`
	AudioURL string `json:"audio_url"`
	Name     string `json:"name"`
}

// SeparateAudio reports whether audio comes from its own URL.
func (m *Media) SeparateAudio() bool {
	return m.AudioURL != "" && m.AudioURL != m.VideoURL
}

// Resolver turns a user supplied link into Media.
type Resolver interface {
	Resolve(ctx context.Context, link string) (*Media, error)
}

// fileName builds "<title>.<ext>" with path separators removed.
func fileName(title, ext string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		name = "video"
	}
	if ext != "" {
		name += "." + ext
	}
	return strings.NewReplacer("/", "", "\\", "").Replace(name)
}
