// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package ffmpeg

import (
	"context"
	"fmt"
	"sync"

	"github.com/ZSC714725/clipbot/internal/ffmpeg/parse"
	"github.com/ZSC714725/clipbot/internal/logger"
	"github.com/ZSC714725/clipbot/internal/process"
)

// Runner runs one ffmpeg command with progress reporting enabled.
//
// A Runner is single use: either RunAsync or RunWithProgress may be called,
// once. It exclusively owns the process handle it creates; the watcher
// goroutine is the only writer of its state and callers read it through
// GetProgress, Status and Log.
type Runner struct {
	cmd      Command
	logger   logger.Logger
	logLines int
	env      []string
	sampler  process.Sampler

	mu         sync.Mutex
	proc       process.Process
	parser     parse.Parser
	pending    string
	hasPending bool

	done     chan struct{}
	doneOnce sync.Once
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithLogger sets the logger used for process diagnostics
func WithLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLogLines sets how many trailing output lines are kept for reports
func WithLogLines(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.logLines = n
		}
	}
}

// WithEnv sets the child environment. nil inherits the current one.
func WithEnv(env []string) RunnerOption {
	return func(r *Runner) { r.env = env }
}

// WithSampler enables CPU/memory sampling of the child
func WithSampler(s process.Sampler) RunnerOption {
	return func(r *Runner) { r.sampler = s }
}

// NewRunner prepares cmd for execution. The progress flags are inserted
// right after cmd[0]; nothing is started yet.
func NewRunner(cmd Command, opts ...RunnerOption) (*Runner, error) {
	if len(cmd) == 0 || cmd[0] == "" {
		return nil, ErrEmptyCommand
	}
	r := &Runner{
		cmd:      cmd.withProgress(),
		logger:   logger.Nop(),
		logLines: 100,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.parser = parse.New(parse.Config{LogLines: r.logLines})
	return r, nil
}

// Args returns the effective command line, progress flags included.
func (r *Runner) Args() []string {
	return append([]string(nil), r.cmd...)
}

func (r *Runner) String() string {
	return r.cmd.String()
}

func (r *Runner) newProcess(onLine func(string), onExit func(int, error)) (process.Process, error) {
	return process.New(process.Config{
		Binary:  r.cmd[0],
		Args:    r.cmd[1:],
		Env:     r.env,
		Parser:  r.parser,
		OnLine:  onLine,
		OnExit:  onExit,
		Sampler: r.sampler,
		Logger:  r.logger,
	})
}

// claim installs the process handle, failing if the runner was used before.
func (r *Runner) claim(p process.Process) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.proc != nil {
		return ErrAlreadyStarted
	}
	r.proc = p
	return nil
}

func (r *Runner) finish() {
	r.doneOnce.Do(func() { close(r.done) })
}

// RunAsync starts the command and returns without waiting for it. A
// watcher drains the output and, once the child has exited, calls exactly
// one of onSuccess (exit code 0) or onFailure. If the command cannot be
// started onFailure is called with exit code -1.
//
// The only error returned is ErrAlreadyStarted; everything else is
// reported through the callbacks.
func (r *Runner) RunAsync(onSuccess func(), onFailure func(message string, exitCode int)) error {
	if onSuccess == nil {
		onSuccess = func() {}
	}
	if onFailure == nil {
		onFailure = func(string, int) {}
	}

	p, err := r.newProcess(r.offer, func(code int, err error) {
		defer r.finish()
		if code == 0 {
			onSuccess()
			return
		}
		r.logger.Error("command exited with code %d: %s", code, r.cmd)
		onFailure(fmt.Sprintf("error running command %s", r.cmd), code)
	})
	if err != nil {
		return err
	}
	if err := r.claim(p); err != nil {
		return err
	}

	if err := p.Start(); err != nil {
		r.logger.Error("start %s: %v", r.cmd[0], err)
		go func() {
			defer r.finish()
			onFailure(fmt.Sprintf("failed to start command %s: %v", r.cmd, err), -1)
		}()
	}
	return nil
}

// offer keeps the newest line carrying an out_time marker for GetProgress.
// ffmpeg closes every -progress block with a progress= line, so keeping
// the plain newest line would almost never sample a position.
func (r *Runner) offer(line string) {
	if _, ok := parse.ParseCurrentTime(line); !ok {
		return
	}
	r.mu.Lock()
	r.pending = line
	r.hasPending = true
	r.mu.Unlock()
}

// GetProgress samples progress without blocking. It takes the newest
// unread out_time line; if there is none it reports 100 for a child that
// exited cleanly and 0 otherwise. A line read before the total duration
// is known reports 0. The value is
// rounded to two decimals and is not guaranteed to be monotonic.
func (r *Runner) GetProgress() (float64, error) {
	r.mu.Lock()
	p := r.proc
	line, ok := r.pending, r.hasPending
	r.pending, r.hasPending = "", false
	r.mu.Unlock()

	if p == nil {
		return 0, ErrNotRunning
	}

	if !ok {
		if code, exited := p.ExitCode(); exited && code == 0 {
			return 100, nil
		}
		return 0, nil
	}

	total, known := r.parser.Duration()
	if !known {
		return 0, nil
	}
	m, found := parse.ParseCurrentTime(line)
	if !found {
		return 0, nil
	}
	return parse.Percentage(total, parse.ToMilliseconds(m, 0)), nil
}

// Kill terminates the child. The run then completes as a failure.
func (r *Runner) Kill() error {
	r.mu.Lock()
	p := r.proc
	r.mu.Unlock()
	if p == nil {
		return ErrNotRunning
	}
	return p.Kill()
}

// Done is closed once the run has completed and its callback returned.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run has completed or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the child is alive.
func (r *Runner) Running() bool {
	r.mu.Lock()
	p := r.proc
	r.mu.Unlock()
	return p != nil && p.IsRunning()
}

// Status returns the process status. Before a run State is "idle".
func (r *Runner) Status() process.Status {
	r.mu.Lock()
	p := r.proc
	r.mu.Unlock()
	if p == nil {
		return process.Status{State: "idle"}
	}
	return p.Status()
}

// Progress returns everything parsed from the output so far.
func (r *Runner) Progress() parse.Progress {
	return r.parser.Progress()
}

// Log returns the trailing output lines.
func (r *Runner) Log() []process.Line {
	return r.parser.Log()
}

func (r *Runner) logTail() []string {
	lines := r.parser.Log()
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Data
	}
	return out
}
