// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZSC714725/clipbot/internal/api"
	"github.com/ZSC714725/clipbot/internal/status"
)

func newJobsCommand() *cobra.Command {
	var server string
	var chat int64

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List the jobs of a running clipbot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			jobs, err := fetchJobs(ctx, http.DefaultClient, server, chat)
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderJobs(jobs))
			return nil
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "Base URL of the clipbot API")
	cmd.Flags().Int64Var(&chat, "chat", 0, "Only show jobs of this chat")

	return cmd
}

func fetchJobs(ctx context.Context, client *http.Client, server string, chat int64) ([]api.Job, error) {
	u, err := url.Parse(strings.TrimRight(server, "/") + "/api/v1/jobs")
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	q := u.Query()
	q.Set("filter", "state")
	if chat != 0 {
		q.Set("chat", strconv.FormatInt(chat, 10))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e api.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Message != "" {
			return nil, fmt.Errorf("list jobs: %s: %s", e.Message, e.Detail)
		}
		return nil, fmt.Errorf("list jobs: unexpected status %s", resp.Status)
	}

	var jobs []api.Job
	if err := json.Unmarshal(body, &jobs); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	return jobs, nil
}

func renderJobs(jobs []api.Job) string {
	headers := []string{"ID", "Chat", "State", "Phase", "Progress", "Name", "CPU", "Memory"}
	aligns := []columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight}

	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		cpu, mem := "-", "-"
		if j.Process != nil && !j.Process.Exited {
			cpu = fmt.Sprintf("%.1f%%", j.Process.CPU)
			mem = status.ReadableSize(int64(j.Process.Memory))
		}
		rows = append(rows, []string{
			j.ID,
			strconv.FormatInt(j.Request.ChatID, 10),
			j.State,
			string(j.Status.Status),
			fmt.Sprintf("%s %3.0f%%", status.RenderProgressBar(j.Status.Progress), j.Status.Progress),
			j.Status.Name,
			cpu,
			mem,
		})
	}
	return renderTable(headers, rows, aligns)
}
