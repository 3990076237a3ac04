// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package ffmpeg

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const skillsScript = `case "$1" in
-version)
  echo "ffmpeg version 6.1.1 Copyright (c) 2000-2023 the FFmpeg developers"
  echo "built with gcc 13"
  exit 0
  ;;
-hide_banner)
  echo "Encoders:"
  echo " V..... = Video"
  echo " ------"
  echo " V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC (codec h264)"
  echo " A....D aac                  AAC (Advanced Audio Coding)"
  exit 0
  ;;
esac
exit 0
`

func TestNewProbesSkills(t *testing.T) {
	ff, err := New(Config{Binary: writeScript(t, skillsScript)})
	require.NoError(t, err)

	s := ff.Skills()
	assert.Equal(t, "6.1.1", s.Version)
	assert.True(t, s.HasEncoder("libx264"))
	assert.True(t, s.HasEncoder("aac"))
	assert.NoError(t, ff.ReloadSkills())
}

func TestNewRejectsMissingBinary(t *testing.T) {
	_, err := New(Config{Binary: filepath.Join(t.TempDir(), "ffmpeg")})
	assert.Error(t, err)
}

func TestNewRejectsNonFFmpeg(t *testing.T) {
	_, err := New(Config{Binary: writeScript(t, "echo hello\n")})
	assert.Error(t, err)
}

func TestFFmpegBuildsRunners(t *testing.T) {
	bin := writeScript(t, skillsScript)
	ff, err := New(Config{Binary: bin, MaxLogLines: 5})
	require.NoError(t, err)

	cmd := ff.Clip(ClipOptions{VideoURL: "v", Start: "0", Duration: "1", Output: "o.mp4"})
	assert.Equal(t, ff.Binary(), cmd[0])

	r, err := ff.NewRunner(cmd)
	require.NoError(t, err)
	assert.Equal(t, []string{ff.Binary(), "-progress", "-", "-nostats"}, r.Args()[:4])
	assert.True(t, ff.ValidateInput("https://example.com/v"))
}
