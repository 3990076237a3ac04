// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZSC714725/clipbot/internal/config"
)

// options shared by all commands
type options struct {
	configPath string
	debug      bool
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if o.debug {
		cfg.Log.Debug = true
	}
	return cfg, nil
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "clipbot",
		Short:         "Clip sections out of online videos with ffmpeg",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file path (.yaml or .toml)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newClipCommand(opts))
	rootCmd.AddCommand(newJobsCommand())

	return rootCmd
}
