// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package ffmpeg

import (
	"fmt"

	"github.com/ZSC714725/clipbot/internal/ffmpeg/parse"
	"github.com/ZSC714725/clipbot/internal/process"
)

// Stream is a pull driven sequence of progress percentages, modelled on
// bufio.Scanner:
//
//	s, err := runner.RunWithProgress()
//	if err != nil { ... }
//	defer s.Close()
//	for s.Next() {
//		fmt.Println(s.Percent())
//	}
//	if err := s.Err(); err != nil { ... }
//
// Each call to Next blocks until the child produces a line that carries new
// progress or the output ends, so the consumer paces the child. The values
// are 0 right after launch, floor(current/total*100) for every out_time
// marker once the duration is known, and 100 after a clean exit. A Stream
// cannot be restarted. Abandoning it without Close leaves the child blocked
// on its output pipe.
//
// A command that cannot be started never yields a Stream: RunWithProgress
// returns that error itself, so Err only ever reports failures of a child
// that did run, as an *ExitError.
type Stream struct {
	runner *Runner
	proc   process.Process
	lines  chan string

	started  bool
	total    float64
	hasTotal bool
	percent  int
	finished bool
	err      error
}

// RunWithProgress starts the command and returns a Stream over its
// progress. A start failure is returned here rather than from the first
// Next, and no Stream is created for it.
func (r *Runner) RunWithProgress() (*Stream, error) {
	lines := make(chan string)

	p, err := r.newProcess(
		func(line string) { lines <- line },
		func(code int, err error) {
			close(lines)
			r.finish()
		},
	)
	if err != nil {
		return nil, err
	}
	if err := r.claim(p); err != nil {
		return nil, err
	}

	if err := p.Start(); err != nil {
		r.finish()
		return nil, fmt.Errorf("failed to start command %s: %w", r.cmd, err)
	}

	return &Stream{runner: r, proc: p, lines: lines}, nil
}

// Next advances to the next percentage. It returns false when the output
// is exhausted or the command failed; Err tells which.
func (s *Stream) Next() bool {
	if s.finished {
		return false
	}
	if !s.started {
		s.started = true
		s.percent = 0
		return true
	}

	for line := range s.lines {
		if !s.hasTotal {
			if m, ok := parse.ParseDuration(line); ok {
				s.total = parse.ToMilliseconds(m, 0)
				s.hasTotal = true
				continue
			}
		}
		if !s.hasTotal {
			continue
		}
		if m, ok := parse.ParseCurrentTime(line); ok {
			s.percent = parse.FloorPercentage(s.total, parse.ToMilliseconds(m, 0))
			return true
		}
	}

	// lines is closed by the watcher after the child was reaped.
	s.finished = true
	code, _ := s.proc.ExitCode()
	if code != 0 {
		s.err = &ExitError{
			Command: s.runner.Args(),
			Code:    code,
			Output:  s.runner.logTail(),
		}
		return false
	}
	s.percent = 100
	return true
}

// Percent is the value produced by the last successful Next.
func (s *Stream) Percent() int {
	return s.percent
}

// Err returns the *ExitError of a failed run, or nil.
func (s *Stream) Err() error {
	return s.err
}

// Close kills the child if it is still running, drains what is left of
// its output and waits for it to be reaped. It is safe to call after the
// stream has been consumed.
func (s *Stream) Close() error {
	err := s.proc.Kill()
	for range s.lines {
	}
	<-s.proc.Done()
	s.finished = true
	return err
}
