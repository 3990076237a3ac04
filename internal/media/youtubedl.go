// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ZSC714725/clipbot/internal/logger"
)

// YoutubeDL resolves links by running youtube-dl (or a compatible fork
// like yt-dlp) and reading its JSON dump.
type YoutubeDL struct {
	binary string
	logger logger.Logger
}

// NewYoutubeDL creates a resolver for the given binary. The binary is
// looked up lazily so a missing tool only fails the jobs that need it.
func NewYoutubeDL(binary string, l logger.Logger) *YoutubeDL {
	if binary == "" {
		binary = "youtube-dl"
	}
	if l == nil {
		l = logger.Nop()
	}
	return &YoutubeDL{binary: binary, logger: l}
}

type format struct {
	URL    string `json:"url"`
	Vcodec string `json:"vcodec"`
	Acodec string `json:"acodec"`
}

type metadata struct {
	Type             string            `json:"_type"`
	Title            string            `json:"title"`
	Ext              string            `json:"ext"`
	URL              string            `json:"url"`
	RequestedFormats []format          `json:"requested_formats"`
	Entries          []json.RawMessage `json:"entries"`
}

func (y *YoutubeDL) Resolve(ctx context.Context, link string) (*Media, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return nil, ErrEmptyLink
	}

	cmd := exec.CommandContext(ctx, y.binary,
		"--dump-single-json",
		"--youtube-skip-dash-manifest",
		link,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		y.logger.Debug("%s failed for %s: %s", y.binary, link, strings.TrimSpace(stderr.String()))
		return nil, fmt.Errorf("resolve %s: %w", link, err)
	}

	return parseMetadata(out)
}

func parseMetadata(data []byte) (*Media, error) {
	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	if meta.Type == "playlist" || meta.Entries != nil {
		return nil, ErrPlaylist
	}

	m := &Media{Name: fileName(meta.Title, meta.Ext)}

	if len(meta.RequestedFormats) > 0 {
		for _, f := range meta.RequestedFormats {
			switch {
			case f.Vcodec != "" && f.Vcodec != "none" && m.VideoURL == "":
				m.VideoURL = f.URL
			case f.Acodec != "" && f.Acodec != "none" && m.AudioURL == "":
				m.AudioURL = f.URL
			}
		}
		// Formats without codec info: first is video, second audio.
		if m.VideoURL == "" {
			m.VideoURL = meta.RequestedFormats[0].URL
		}
		if m.AudioURL == "" && len(meta.RequestedFormats) > 1 {
			m.AudioURL = meta.RequestedFormats[1].URL
		}
	}

	if m.VideoURL == "" {
		m.VideoURL = meta.URL
	}
	if m.AudioURL == "" {
		m.AudioURL = m.VideoURL
	}
	if m.VideoURL == "" {
		return nil, ErrNoMediaURL
	}

	return m, nil
}
