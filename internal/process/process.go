// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人
//
// Package process wraps exec.Cmd for supervising one external process with
// merged stdout/stderr.

package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"
)

// ErrAlreadyStarted is returned when Start is called more than once.
var ErrAlreadyStarted = errors.New("process already started")

// Process is an owned handle to a single child process run.
//
// The handle is single use: Start launches the child once, a reader
// goroutine drains its combined output line by line and a waiter reaps it.
// Done is closed after the output is drained, the child is reaped and
// OnExit has returned.
type Process interface {
	Start() error
	Stop(wait bool) error
	Kill() error
	IsRunning() bool
	ExitCode() (code int, exited bool)
	Done() <-chan struct{}
	Status() Status
	Command() []string
}

// Config for a process
type Config struct {
	Binary string
	Args   []string
	// Env is passed to the child as is. nil inherits the current environment.
	Env []string
	Dir string

	Parser Parser
	// OnLine is called from the reader goroutine for every output line, after
	// Parser.Parse. Blocking in OnLine blocks the reader and therefore the
	// child once the pipe buffer is full.
	OnLine func(line string)
	OnStart func()
	// OnExit is called exactly once from the waiter goroutine, after all
	// OnLine calls have returned. It is not called when Start fails.
	OnExit        func(code int, err error)
	OnStateChange func(from, to string)

	Sampler Sampler
	Logger  Logger
}

// Status of a process
type Status struct {
	State    string
	Duration time.Duration
	Time     time.Time
	PID      int
	ExitCode int
	Exited   bool
	CPU      struct {
		Current float64
	}
	Memory struct {
		Current uint64
	}
}

// Logger interface
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type stateType string

const (
	stateIdle      stateType = "idle"
	stateStarting  stateType = "starting"
	stateRunning   stateType = "running"
	stateFinishing stateType = "finishing"
	stateFinished  stateType = "finished"
	stateFailed    stateType = "failed"
	stateKilled    stateType = "killed"
)

func (s stateType) String() string { return string(s) }

func (s stateType) IsRunning() bool {
	return s == stateStarting || s == stateRunning || s == stateFinishing
}

var transitions = map[stateType][]stateType{
	stateIdle:      {stateStarting},
	stateStarting:  {stateRunning, stateFailed},
	stateRunning:   {stateFinishing, stateFinished, stateFailed, stateKilled},
	stateFinishing: {stateFinished, stateFailed, stateKilled},
}

type process struct {
	binary string
	args   []string
	env    []string
	dir    string
	cmd    *exec.Cmd
	pid    int

	state struct {
		state stateType
		time  time.Time
		lock  sync.Mutex
	}
	exit struct {
		code   int
		exited bool
		killed bool
		lock   sync.Mutex
	}
	done     chan struct{}
	doneOnce sync.Once

	parser        Parser
	onLine        func(line string)
	onStart       func()
	onExit        func(code int, err error)
	onStateChange func(from, to string)

	killTimer     *time.Timer
	killTimerLock sync.Mutex
	logger        Logger
	sampler       Sampler
}

// New creates a new process
func New(config Config) (Process, error) {
	if len(config.Binary) == 0 {
		return nil, fmt.Errorf("no valid binary given")
	}

	p := &process{
		binary:        config.Binary,
		args:          append([]string(nil), config.Args...),
		env:           config.Env,
		dir:           config.Dir,
		done:          make(chan struct{}),
		parser:        config.Parser,
		onLine:        config.OnLine,
		onStart:       config.OnStart,
		onExit:        config.OnExit,
		onStateChange: config.OnStateChange,
		logger:        config.Logger,
		sampler:       config.Sampler,
	}

	if p.parser == nil {
		p.parser = &nullParser{}
	}
	if p.logger == nil {
		p.logger = &nopLogger{}
	}
	if p.sampler == nil {
		p.sampler = NewNullSampler()
	}

	p.state.state = stateIdle
	p.state.time = time.Now()

	return p, nil
}

func (p *process) setState(state stateType) error {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()

	prev := p.state.state
	allowed := false
	for _, next := range transitions[prev] {
		if next == state {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("can't change from %s to %s", prev, state)
	}

	p.state.state = state
	p.state.time = time.Now()
	if p.onStateChange != nil {
		go p.onStateChange(prev.String(), state.String())
	}
	return nil
}

func (p *process) getState() stateType {
	p.state.lock.Lock()
	defer p.state.lock.Unlock()
	return p.state.state
}

func (p *process) IsRunning() bool {
	return p.getState().IsRunning()
}

func (p *process) Command() []string {
	return append([]string{p.binary}, p.args...)
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) ExitCode() (int, bool) {
	p.exit.lock.Lock()
	defer p.exit.lock.Unlock()
	return p.exit.code, p.exit.exited
}

func (p *process) Status() Status {
	cpu, memory := p.sampler.Current()

	p.state.lock.Lock()
	stateTime := p.state.time
	state := p.state.state
	pid := p.pid
	p.state.lock.Unlock()

	code, exited := p.ExitCode()

	s := Status{
		State:    state.String(),
		Duration: time.Since(stateTime),
		Time:     stateTime,
		PID:      pid,
		ExitCode: code,
		Exited:   exited,
	}
	s.CPU.Current = cpu
	s.Memory.Current = memory
	return s
}

func (p *process) Start() error {
	if err := p.setState(stateStarting); err != nil {
		return ErrAlreadyStarted
	}

	cmd := exec.Command(p.binary, p.args...)
	cmd.Env = p.env
	cmd.Dir = p.dir
	setProcessGroup(cmd)
	// Stdin stays nil so the child reads from the null device.

	pr, pw, err := os.Pipe()
	if err != nil {
		p.fail(err)
		return err
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		p.fail(err)
		return err
	}
	// The child owns the write end now; EOF on pr means it exited.
	pw.Close()

	p.state.lock.Lock()
	p.cmd = cmd
	p.pid = cmd.Process.Pid
	p.state.lock.Unlock()

	if err := p.sampler.Start(p.pid); err != nil {
		p.logger.Debug("usage sampler for pid %d: %v", p.pid, err)
	}

	p.setState(stateRunning)
	p.logger.Debug("started pid %d: %v", p.pid, p.Command())

	if p.onStart != nil {
		go p.onStart()
	}

	go p.reader(pr)

	return nil
}

func (p *process) fail(err error) {
	p.parser.Parse(err.Error())
	p.setState(stateFailed)

	p.exit.lock.Lock()
	p.exit.code = -1
	p.exit.exited = true
	p.exit.lock.Unlock()

	p.closeDone()
}

func (p *process) closeDone() {
	p.doneOnce.Do(func() { close(p.done) })
}

// Stop interrupts the child and kills it if it is still alive after five
// seconds. With wait set it blocks until the process handle is done.
func (p *process) Stop(wait bool) error {
	if p.getState() != stateRunning {
		if wait {
			p.waitIfStarted()
		}
		return nil
	}
	p.setState(stateFinishing)

	p.state.lock.Lock()
	cmd := p.cmd
	p.state.lock.Unlock()

	var err error
	if runtime.GOOS == "windows" {
		err = p.kill(cmd)
	} else {
		err = cmd.Process.Signal(os.Interrupt)
		if err != nil {
			err = p.kill(cmd)
		} else {
			p.killTimerLock.Lock()
			p.killTimer = time.AfterFunc(5*time.Second, func() {
				p.kill(cmd)
			})
			p.killTimerLock.Unlock()
		}
	}

	if err != nil {
		p.parser.Parse(err.Error())
		return err
	}
	if wait {
		<-p.done
	}
	return nil
}

// Kill terminates the child immediately. The waiter observes the abnormal
// exit and reports it through OnExit.
func (p *process) Kill() error {
	if !p.IsRunning() {
		return nil
	}
	p.state.lock.Lock()
	cmd := p.cmd
	p.state.lock.Unlock()
	if cmd == nil {
		return nil
	}
	return p.kill(cmd)
}

func (p *process) kill(cmd *exec.Cmd) error {
	p.exit.lock.Lock()
	p.exit.killed = true
	p.exit.lock.Unlock()

	// Helpers the child spawned share the pipe; they go down with it.
	err := killProcessGroup(cmd)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *process) waitIfStarted() {
	if p.getState() == stateIdle {
		return
	}
	<-p.done
}

func (p *process) reader(r io.ReadCloser) {
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanLine)

	p.parser.ResetStats()
	p.parser.ResetLog()

	for scanner.Scan() {
		line := scanner.Text()
		p.parser.Parse(line)
		if p.onLine != nil {
			p.onLine(line)
		}
	}

	if err := scanner.Err(); err != nil {
		p.logger.Error("reading output of pid %d: %v", p.pid, err)
		// Keep draining so the child never blocks on a full pipe.
		io.Copy(io.Discard, r)
	}

	p.waiter()
}

func (p *process) waiter() {
	err := p.cmd.Wait()

	code := -1
	signaled := true
	if ps := p.cmd.ProcessState; ps != nil {
		code = ps.ExitCode()
		signaled = !ps.Exited()
	}

	p.exit.lock.Lock()
	p.exit.code = code
	p.exit.exited = true
	killed := p.exit.killed
	p.exit.lock.Unlock()

	switch {
	case code == 0:
		p.setState(stateFinished)
	case killed || signaled:
		p.setState(stateKilled)
	default:
		p.setState(stateFailed)
	}

	p.sampler.Stop()

	p.killTimerLock.Lock()
	if p.killTimer != nil {
		p.killTimer.Stop()
		p.killTimer = nil
	}
	p.killTimerLock.Unlock()

	p.logger.Debug("pid %d exited with code %d", p.pid, code)

	if p.onExit != nil {
		p.onExit(code, err)
	}
	p.closeDone()
}

// scanLine splits on \n and \r so carriage-return progress updates are
// delivered as separate lines. Empty lines are skipped.
func scanLine(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		r, w := utf8.DecodeRune(data[start:])
		if r != '\n' && r != '\r' {
			break
		}
		start += w
	}

	for i := start; i < len(data); {
		r, w := utf8.DecodeRune(data[i:])
		if r == '\n' || r == '\r' {
			return i + w, data[start:i], nil
		}
		i += w
	}

	if atEOF && len(data) > start {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

type nopLogger struct{}

func (l *nopLogger) Info(format string, args ...interface{})  {}
func (l *nopLogger) Error(format string, args ...interface{}) {}
func (l *nopLogger) Debug(format string, args ...interface{}) {}
