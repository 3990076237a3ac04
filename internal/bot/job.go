// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package bot

import (
	"context"
	"sync"
	"time"

	"github.com/ZSC714725/clipbot/internal/ffmpeg"
	"github.com/ZSC714725/clipbot/internal/status"
)

// State of a job in the registry
type State string

const (
	StateRunning  State = "running"
	StateDone     State = "done"
	StateFailed   State = "failed"
	StateCanceled State = "canceled"
)

// Request is a parsed /clip command
type Request struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Link      string `json:"link"`
	Start     string `json:"start"`
	Duration  string `json:"duration"`
}

// Job is one clipping job. The mutex guards the status record, the status
// message and the outcome; it is shared by the job goroutine, the
// refresher and the runner's completion callback.
type Job struct {
	ID        string
	Request   Request
	CreatedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	status     status.JobStatus
	statusMsg  int64
	runner     *ffmpeg.Runner
	output     string
	state      State
	err        string
	canceled   bool
	timedOut   bool
	finishedAt time.Time
}

func newJob(parent context.Context, id string, req Request) *Job {
	ctx, cancel := context.WithCancel(parent)
	return &Job{
		ID:        id,
		Request:   req,
		CreatedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		status:    *status.New(id),
		state:     StateRunning,
	}
}

// Info is a point in time copy of a job
type Info struct {
	ID         string           `json:"id"`
	Request    Request          `json:"request"`
	State      State            `json:"state"`
	Error      string           `json:"error,omitempty"`
	Status     status.JobStatus `json:"status"`
	Text       string           `json:"text"`
	Output     string           `json:"output,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	FinishedAt time.Time        `json:"finished_at,omitempty"`
}

// Info returns a snapshot of the job
func (j *Job) Info() Info {
	j.mu.Lock()
	defer j.mu.Unlock()

	return Info{
		ID:         j.ID,
		Request:    j.Request,
		State:      j.state,
		Error:      j.err,
		Status:     j.status,
		Text:       j.render(),
		Output:     j.output,
		CreatedAt:  j.CreatedAt,
		FinishedAt: j.finishedAt,
	}
}

// Runner returns the ffmpeg runner, nil while metadata is being resolved
func (j *Job) Runner() *ffmpeg.Runner {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runner
}

// Done is closed when the job has finished, whatever the outcome
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Running reports whether the job has not finished yet
func (j *Job) Running() bool {
	select {
	case <-j.done:
		return false
	default:
		return true
	}
}

// Cancel stops the job. A job still resolving metadata stops before ffmpeg
// is started; a clipping job has its ffmpeg killed and ends as canceled.
func (j *Job) Cancel() {
	j.mu.Lock()
	j.canceled = true
	r := j.runner
	j.mu.Unlock()

	j.cancel()
	if r != nil {
		r.Kill()
	}
}

// render must be called with the lock held
func (j *Job) render() string {
	if j.status.Status == status.Clipping && j.status.Progress > 0 {
		return status.RenderWithBar(&j.status)
	}
	return status.Render(&j.status)
}

func (j *Job) finish(state State, err string) {
	j.mu.Lock()
	if j.canceled && state == StateFailed {
		state = StateCanceled
	}
	j.state = state
	j.err = err
	j.finishedAt = time.Now()
	j.mu.Unlock()

	j.cancel()
	close(j.done)
}
