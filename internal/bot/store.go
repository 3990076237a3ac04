// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package bot

import (
	"sort"
	"sync"
)

// store keeps jobs in memory, running and finished alike, until they are
// removed explicitly.
type store struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

func newStore() *store {
	return &store{jobs: make(map[string]*Job)}
}

func (s *store) add(j *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[j.ID]; exists {
		return ErrJobExists
	}
	s.jobs[j.ID] = j
	return nil
}

func (s *store) get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j, nil
}

// list returns the jobs oldest first. chatID 0 means all chats.
func (s *store) list(chatID int64) []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if chatID != 0 && j.Request.ChatID != chatID {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out
}

func (s *store) delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if j.Running() {
		return ErrJobRunning
	}
	delete(s.jobs, id)
	return nil
}
