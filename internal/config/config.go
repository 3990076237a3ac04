// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg" toml:"ffmpeg"`
	Resolver ResolverConfig `yaml:"resolver" toml:"resolver"`
	Bot      BotConfig      `yaml:"bot" toml:"bot"`
	Log      LogConfig      `yaml:"log" toml:"log"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Bind string `yaml:"bind" toml:"bind"`
}

// FFmpegConfig FFmpeg 配置
type FFmpegConfig struct {
	Path        string `yaml:"path" toml:"path"`
	MaxLogLines int    `yaml:"max_log_lines" toml:"max_log_lines"`
}

// ResolverConfig 链接解析工具配置 (youtube-dl / yt-dlp)
type ResolverConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// BotConfig 机器人配置
type BotConfig struct {
	OutputDir       string   `yaml:"output_dir" toml:"output_dir"`
	RefreshInterval uint64   `yaml:"refresh_interval_seconds" toml:"refresh_interval_seconds"`
	ClipTimeout     uint64   `yaml:"clip_timeout_seconds" toml:"clip_timeout_seconds"`
	AllowLinks      []string `yaml:"allow_links" toml:"allow_links"`
	BlockLinks      []string `yaml:"block_links" toml:"block_links"`
}

// LogConfig 日志配置
type LogConfig struct {
	Debug bool `yaml:"debug" toml:"debug"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Bind: ":8080"},
		FFmpeg:   FFmpegConfig{Path: "ffmpeg", MaxLogLines: 100},
		Resolver: ResolverConfig{Path: "youtube-dl"},
		Bot: BotConfig{
			OutputDir:       "outputs",
			RefreshInterval: 4,
		},
	}
}

// Load 从 YAML 或 TOML 文件加载配置，按扩展名选择格式
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse toml config: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	}

	cfg.fill()
	return cfg, nil
}

// 填充空值
func (c *Config) fill() {
	def := Default()
	if c.Server.Bind == "" {
		c.Server.Bind = def.Server.Bind
	}
	if c.FFmpeg.Path == "" {
		c.FFmpeg.Path = def.FFmpeg.Path
	}
	if c.FFmpeg.MaxLogLines <= 0 {
		c.FFmpeg.MaxLogLines = def.FFmpeg.MaxLogLines
	}
	if c.Resolver.Path == "" {
		c.Resolver.Path = def.Resolver.Path
	}
	if c.Bot.OutputDir == "" {
		c.Bot.OutputDir = def.Bot.OutputDir
	}
}
