// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package ffmpeg

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/ZSC714725/clipbot/internal/ffmpeg/skills"
	"github.com/ZSC714725/clipbot/internal/logger"
	"github.com/ZSC714725/clipbot/internal/process"
)

// RequiredEncoders are the encoders ClipCommand relies on
var RequiredEncoders = []string{"libx264", "aac"}

// FFmpeg manages the FFmpeg binary and builds runners for it
type FFmpeg interface {
	Binary() string
	NewRunner(cmd Command) (*Runner, error)
	Clip(opts ClipOptions) Command
	ValidateInput(address string) bool
	Skills() skills.Skills
	ReloadSkills() error
}

// Config for FFmpeg
type Config struct {
	Binary         string
	MaxLogLines    int
	ValidatorInput Validator
	Logger         logger.Logger
}

type ffmpeg struct {
	binary      string
	validatorIn Validator
	skills      skills.Skills
	logLines    int
	logger      logger.Logger
	skillsLock  sync.RWMutex
}

// New resolves the binary, checks its capabilities and warns about
// missing encoders.
func New(config Config) (FFmpeg, error) {
	binary, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg binary: %w", err)
	}

	f := &ffmpeg{
		binary:   binary,
		logLines: config.MaxLogLines,
		logger:   config.Logger,
	}

	if f.logLines <= 0 {
		f.logLines = 100
	}
	if f.logger == nil {
		f.logger = logger.Nop()
	}

	if config.ValidatorInput != nil {
		f.validatorIn = config.ValidatorInput
	} else {
		f.validatorIn, _ = NewValidator(nil, nil)
	}

	s, err := skills.New(f.binary)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg: %w", err)
	}
	f.skills = s
	f.checkEncoders(s)

	return f, nil
}

func (f *ffmpeg) checkEncoders(s skills.Skills) {
	for _, id := range RequiredEncoders {
		if !s.HasEncoder(id) {
			f.logger.Warn("ffmpeg %s has no %s encoder, clips will fail", s.Version, id)
		}
	}
}

func (f *ffmpeg) Binary() string {
	return f.binary
}

func (f *ffmpeg) NewRunner(cmd Command) (*Runner, error) {
	return NewRunner(cmd,
		WithLogger(f.logger),
		WithLogLines(f.logLines),
		WithSampler(process.NewSysSampler()),
	)
}

func (f *ffmpeg) Clip(opts ClipOptions) Command {
	return ClipCommand(f.binary, opts)
}

func (f *ffmpeg) ValidateInput(address string) bool {
	return f.validatorIn.IsValid(address)
}

func (f *ffmpeg) Skills() skills.Skills {
	f.skillsLock.RLock()
	defer f.skillsLock.RUnlock()
	return f.skills
}

func (f *ffmpeg) ReloadSkills() error {
	s, err := skills.New(f.binary)
	if err != nil {
		return fmt.Errorf("reload skills: %w", err)
	}
	f.skillsLock.Lock()
	f.skills = s
	f.skillsLock.Unlock()
	f.checkEncoders(s)
	return nil
}
