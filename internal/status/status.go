// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package status

// Phase is the human readable stage of a clipping job. Any string is
// accepted; the constants are the ones the bot uses.
type Phase string

const (
	ResolvingMetadata Phase = "Extracting metadata"
	Clipping          Phase = "Clipping video"
	Uploading         Phase = "Uploading"
)

// JobStatus describes one in-flight clipping job. It is a plain record:
// whoever shares it between goroutines has to synchronise access.
type JobStatus struct {
	ID       string  `json:"id"`
	Status   Phase   `json:"status"`
	Progress float64 `json:"progress"`
	Name     string  `json:"name"`
}

// New returns a status in the ResolvingMetadata phase.
func New(id string) *JobStatus {
	return &JobStatus{ID: id, Status: ResolvingMetadata}
}

// SetProgress stores p clamped to [0, 100].
func (s *JobStatus) SetProgress(p float64) {
	switch {
	case p < 0:
		p = 0
	case p > 100:
		p = 100
	}
	s.Progress = p
}
