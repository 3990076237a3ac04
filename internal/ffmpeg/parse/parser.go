// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package parse

import (
	"container/ring"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/ZSC714725/clipbot/internal/process"
)

// Progress holds what has been parsed from ffmpeg output so far
type Progress struct {
	Duration float64 `json:"duration_ms"`
	Time     float64 `json:"time_ms"`
	Percent  float64 `json:"percent"`
	Frame    uint64  `json:"frame"`
	Size     uint64  `json:"size_bytes"`
	Speed    float64 `json:"speed"`
	Finished bool    `json:"finished"`
}

// Parser implements process.Parser for ffmpeg "-progress -" output
type Parser interface {
	process.Parser
	Progress() Progress
	// Duration reports the total duration in milliseconds once the first
	// Duration marker has been seen.
	Duration() (float64, bool)
}

type parser struct {
	re struct {
		frame    *regexp.Regexp
		size     *regexp.Regexp
		speed    *regexp.Regexp
		progress *regexp.Regexp
	}

	log      *ring.Ring
	logLines int

	progress    Progress
	hasDuration bool
	lock        sync.RWMutex
}

// Config for the parser
type Config struct {
	LogLines int
}

// New creates a Parser
func New(config Config) Parser {
	p := &parser{
		logLines: config.LogLines,
	}
	if p.logLines <= 0 {
		p.logLines = 100
	}
	p.re.frame = regexp.MustCompile(`^frame=\s*([0-9]+)`)
	p.re.size = regexp.MustCompile(`^total_size=\s*([0-9]+)`)
	p.re.speed = regexp.MustCompile(`^speed=\s*([0-9\.]+)x`)
	p.re.progress = regexp.MustCompile(`^progress=(\w+)`)

	p.log = ring.New(p.logLines)
	return p
}

func (p *parser) Parse(line string) {
	now := time.Now()

	p.lock.Lock()
	defer p.lock.Unlock()

	p.log.Value = process.Line{Timestamp: now, Data: line}
	p.log = p.log.Next()

	// 只记录第一次出现的 Duration，后续输入的 Duration 忽略
	if !p.hasDuration {
		if m, ok := ParseDuration(line); ok {
			p.progress.Duration = float64(m.Milliseconds())
			p.hasDuration = true
			return
		}
	}

	if m, ok := ParseCurrentTime(line); ok {
		p.progress.Time = float64(m.Milliseconds())
		p.progress.Percent = Percentage(p.progress.Duration, p.progress.Time)
		return
	}

	if m := p.re.frame.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			p.progress.Frame = x
		}
		return
	}
	if m := p.re.size.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseUint(m[1], 10, 64); err == nil {
			p.progress.Size = x
		}
		return
	}
	if m := p.re.speed.FindStringSubmatch(line); m != nil {
		if x, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.progress.Speed = x
		}
		return
	}
	if m := p.re.progress.FindStringSubmatch(line); m != nil {
		p.progress.Finished = m[1] == "end"
	}
}

func (p *parser) ResetStats() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.progress = Progress{}
	p.hasDuration = false
}

func (p *parser) ResetLog() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.log = ring.New(p.logLines)
}

func (p *parser) Log() []process.Line {
	var out []process.Line
	p.lock.RLock()
	p.log.Do(func(v interface{}) {
		if v != nil {
			out = append(out, v.(process.Line))
		}
	})
	p.lock.RUnlock()
	return out
}

func (p *parser) Progress() Progress {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.progress
}

func (p *parser) Duration() (float64, bool) {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.progress.Duration, p.hasDuration
}
