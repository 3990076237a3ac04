// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Encoder is one entry of "ffmpeg -encoders"
type Encoder struct {
	Id   string
	Type string // "video", "audio" or "subtitle"
	Name string
}

// Library represents a linked av library
type Library struct {
	Name     string
	Compiled string
	Linked   string
}

// Skills are the detected capabilities of FFmpeg
type Skills struct {
	Version       string
	Compiler      string
	Configuration string
	Libraries     []Library
	Encoders      []Encoder
}

// HasEncoder reports whether an encoder with the given id is available
func (s Skills) HasEncoder(id string) bool {
	for _, e := range s.Encoders {
		if e.Id == id {
			return true
		}
	}
	return false
}

// New queries the binary for its version and encoders
func New(binary string) (Skills, error) {
	s, err := getVersion(binary)
	if err != nil {
		return Skills{}, fmt.Errorf("can't parse ffmpeg version: %w", err)
	}
	if s.Version == "" {
		return Skills{}, fmt.Errorf("can't parse ffmpeg version")
	}
	s.Encoders = getEncoders(binary)
	return s, nil
}

func getVersion(binary string) (Skills, error) {
	cmd := exec.Command(binary, "-version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return Skills{}, err
	}
	return parseVersion(out), nil
}

var (
	reVersion       = regexp.MustCompile(`^ffmpeg version n?([0-9]+\.[0-9]+(\.[0-9]+)?)`)
	reCompiler      = regexp.MustCompile(`(?m)^\s*built with (.*)$`)
	reConfiguration = regexp.MustCompile(`(?m)^\s*configuration: (.*)$`)
	reLibrary       = regexp.MustCompile(`(?m)^\s*(lib(?:[a-z]+))\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+) /\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+)`)
	reEncoder       = regexp.MustCompile(`^\s([VAS])[F.][S.][X.][B.][D.] ([0-9A-Za-z_-]+)\s+(.*)$`)
)

func parseVersion(data []byte) Skills {
	s := Skills{}
	if m := reVersion.FindSubmatch(data); m != nil {
		s.Version = string(m[1])
		if len(m[2]) == 0 {
			s.Version += ".0"
		}
	}
	if m := reCompiler.FindSubmatch(data); m != nil {
		s.Compiler = string(m[1])
	}
	if m := reConfiguration.FindSubmatch(data); m != nil {
		s.Configuration = string(m[1])
	}
	for _, m := range reLibrary.FindAllSubmatch(data, -1) {
		s.Libraries = append(s.Libraries, Library{
			Name:     string(m[1]),
			Compiled: string(m[2]),
			Linked:   string(m[3]),
		})
	}
	return s
}

func getEncoders(binary string) []Encoder {
	cmd := exec.Command(binary, "-hide_banner", "-encoders")
	stdout, _ := cmd.Output()
	return parseEncoders(stdout)
}

func parseEncoders(data []byte) []Encoder {
	var encoders []Encoder
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := reEncoder.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		e := Encoder{Id: m[2], Name: strings.TrimSpace(m[3])}
		switch m[1] {
		case "V":
			e.Type = "video"
		case "A":
			e.Type = "audio"
		case "S":
			e.Type = "subtitle"
		}
		encoders = append(encoders, e)
	}
	return encoders
}
