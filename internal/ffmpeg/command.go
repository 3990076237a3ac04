// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package ffmpeg

import "strings"

// ProgressFlags are inserted right after the executable so ffmpeg writes
// machine readable "key=value" progress blocks to stdout and suppresses its
// regular statistics line. The parse package patterns depend on them.
var ProgressFlags = []string{"-progress", "-", "-nostats"}

// Command is an executable followed by its arguments.
type Command []string

// String joins the tokens with spaces, for diagnostics only.
func (c Command) String() string {
	return strings.Join(c, " ")
}

// withProgress returns [c[0], ProgressFlags..., c[1:]...] in a new slice.
func (c Command) withProgress() Command {
	out := make(Command, 0, len(c)+len(ProgressFlags))
	out = append(out, c[0])
	out = append(out, ProgressFlags...)
	out = append(out, c[1:]...)
	return out
}

// ClipOptions describes one sub-clip extraction.
type ClipOptions struct {
	VideoURL string
	// AudioURL may be empty or equal to VideoURL for muxed sources.
	AudioURL string
	Start    string
	Duration string
	Output   string
}

// ClipCommand builds the ffmpeg invocation that seeks both inputs to Start,
// keeps Duration worth of media and re-encodes to H.264/AAC at Output.
func ClipCommand(binary string, opts ClipOptions) Command {
	cmd := Command{binary, "-ss", opts.Start, "-i", opts.VideoURL}
	if opts.AudioURL != "" && opts.AudioURL != opts.VideoURL {
		cmd = append(cmd,
			"-ss", opts.Start, "-i", opts.AudioURL,
			"-t", opts.Duration,
			"-map", "0:v", "-map", "1:a",
		)
	} else {
		cmd = append(cmd, "-t", opts.Duration)
	}
	cmd = append(cmd,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-y", opts.Output,
	)
	return cmd
}
