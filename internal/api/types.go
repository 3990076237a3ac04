// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package api

import (
	"github.com/ZSC714725/clipbot/internal/bot"
	"github.com/ZSC714725/clipbot/internal/status"
)

// UpdateRequest is an incoming chat message
type UpdateRequest struct {
	ChatID    int64  `json:"chat_id" binding:"required"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text" binding:"required"`
}

// UpdateResponse tells whether the update started a job
type UpdateResponse struct {
	Handled bool `json:"handled"`
	Job     *Job `json:"job,omitempty"`
}

// Job represents a clipping job in API responses
type Job struct {
	ID         string           `json:"id"`
	State      string           `json:"state"`
	Error      string           `json:"error,omitempty"`
	Request    bot.Request      `json:"request"`
	Status     status.JobStatus `json:"status"`
	Text       string           `json:"text"`
	Bar        string           `json:"bar"`
	CreatedAt  int64            `json:"created_at"`
	FinishedAt int64            `json:"finished_at,omitempty"`
	Process    *ProcessState    `json:"process,omitempty"`
	Report     *JobReport       `json:"report,omitempty"`
}

// ProcessState of the ffmpeg run behind a job
type ProcessState struct {
	State    string    `json:"exec"`
	Runtime  int64     `json:"runtime_seconds"`
	PID      int       `json:"pid"`
	ExitCode int       `json:"exit_code"`
	Exited   bool      `json:"exited"`
	Memory   uint64    `json:"memory_bytes"`
	CPU      float64   `json:"cpu_usage"`
	Command  []string  `json:"command"`
	Progress *Progress `json:"progress"`
}

// Progress from the ffmpeg parser
type Progress struct {
	Duration float64 `json:"duration_ms"`
	Time     float64 `json:"time_ms"`
	Percent  float64 `json:"percent"`
	Frame    uint64  `json:"frame"`
	Size     uint64  `json:"size_bytes"`
	Speed    float64 `json:"speed"`
	Finished bool    `json:"finished"`
}

// JobReport holds the trailing ffmpeg output
type JobReport struct {
	Log [][2]string `json:"log"`
}

// ErrorResponse for API errors
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}
