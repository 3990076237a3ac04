// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package ffmpeg

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCommand   = errors.New("empty command")
	ErrNotRunning     = errors.New("command has not been run")
	ErrAlreadyStarted = errors.New("command already started")
)

// ExitError reports a command that ran but exited with a non-zero code.
// Output holds the last lines of its combined stdout/stderr.
type ExitError struct {
	Command []string
	Code    int
	Output  []string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("error running command %s (exit code %d): %s",
		strings.Join(e.Command, " "), e.Code, strings.Join(e.Output, "\n"))
}
