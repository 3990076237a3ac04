// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package api

import (
	"github.com/ZSC714725/clipbot/internal/ffmpeg"
	"github.com/ZSC714725/clipbot/internal/ffmpeg/skills"
)

// SkillsLibrary is a linked av library
type SkillsLibrary struct {
	Name     string `json:"name"`
	Compiled string `json:"compiled"`
	Linked   string `json:"linked"`
}

// SkillsEncoder is one available encoder
type SkillsEncoder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SkillsResponse for API
type SkillsResponse struct {
	FFmpeg struct {
		Binary        string          `json:"binary"`
		Version       string          `json:"version"`
		Compiler      string          `json:"compiler"`
		Configuration string          `json:"configuration"`
		Libraries     []SkillsLibrary `json:"libraries"`
	} `json:"ffmpeg"`

	Encoders struct {
		Audio    []SkillsEncoder `json:"audio"`
		Video    []SkillsEncoder `json:"video"`
		Subtitle []SkillsEncoder `json:"subtitle"`
	} `json:"encoders"`

	// Missing lists required encoders this build lacks
	Missing []string `json:"missing"`
}

func skillsToAPI(binary string, s skills.Skills) SkillsResponse {
	resp := SkillsResponse{}

	resp.FFmpeg.Binary = binary
	resp.FFmpeg.Version = s.Version
	resp.FFmpeg.Compiler = s.Compiler
	resp.FFmpeg.Configuration = s.Configuration
	resp.FFmpeg.Libraries = make([]SkillsLibrary, len(s.Libraries))
	for i, lib := range s.Libraries {
		resp.FFmpeg.Libraries[i] = SkillsLibrary{lib.Name, lib.Compiled, lib.Linked}
	}

	resp.Encoders.Audio = []SkillsEncoder{}
	resp.Encoders.Video = []SkillsEncoder{}
	resp.Encoders.Subtitle = []SkillsEncoder{}
	for _, e := range s.Encoders {
		enc := SkillsEncoder{ID: e.Id, Name: e.Name}
		switch e.Type {
		case "audio":
			resp.Encoders.Audio = append(resp.Encoders.Audio, enc)
		case "video":
			resp.Encoders.Video = append(resp.Encoders.Video, enc)
		case "subtitle":
			resp.Encoders.Subtitle = append(resp.Encoders.Subtitle, enc)
		}
	}

	resp.Missing = []string{}
	for _, id := range ffmpeg.RequiredEncoders {
		if !s.HasEncoder(id) {
			resp.Missing = append(resp.Missing, id)
		}
	}

	return resp
}
