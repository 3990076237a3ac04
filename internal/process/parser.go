// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package process

import "time"

// Parser consumes process output (e.g. FFmpeg -progress lines)
type Parser interface {
	Parse(line string)
	ResetStats()
	ResetLog()
	Log() []Line
}

// Line is a timestamped log line
type Line struct {
	Timestamp time.Time
	Data      string
}

type nullParser struct{}

func (p *nullParser) Parse(line string) {}
func (p *nullParser) ResetStats()       {}
func (p *nullParser) ResetLog()         {}
func (p *nullParser) Log() []Line       { return nil }
