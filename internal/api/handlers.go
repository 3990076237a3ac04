// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ZSC714725/clipbot/internal/bot"
	"github.com/ZSC714725/clipbot/internal/ffmpeg"
	"github.com/ZSC714725/clipbot/internal/messenger"
	"github.com/ZSC714725/clipbot/internal/status"
)

// History gives read access to the messages the bot delivered
type History interface {
	Messages(chatID int64) ([]messenger.Message, error)
	Chats() []int64
}

// Handler holds dependencies
type Handler struct {
	bot     *bot.Bot
	ffmpeg  ffmpeg.FFmpeg
	history History
}

// NewHandler creates API handler
func NewHandler(b *bot.Bot, ff ffmpeg.FFmpeg, history History) *Handler {
	return &Handler{bot: b, ffmpeg: ff, history: history}
}

func errResp(c *gin.Context, code int, msg, detail string) {
	c.JSON(code, ErrorResponse{Code: code, Message: msg, Detail: detail})
}

// Update POST /api/v1/updates
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errResp(c, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	j, err := h.bot.HandleUpdate(c.Request.Context(), bot.Update{
		ChatID:    req.ChatID,
		MessageID: req.MessageID,
		Text:      req.Text,
	})
	if err != nil {
		switch {
		case errors.Is(err, bot.ErrJobExists):
			errResp(c, http.StatusConflict, "Job exists", err.Error())
		case errors.Is(err, bot.ErrClosed):
			errResp(c, http.StatusServiceUnavailable, "Shutting down", err.Error())
		default:
			errResp(c, http.StatusInternalServerError, "Update failed", err.Error())
		}
		return
	}

	if j == nil {
		c.JSON(http.StatusOK, UpdateResponse{Handled: isCommand(req.Text)})
		return
	}

	job := jobToAPI(j, "")
	c.JSON(http.StatusAccepted, UpdateResponse{Handled: true, Job: &job})
}

func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// ListJobs GET /api/v1/jobs
func (h *Handler) ListJobs(c *gin.Context) {
	filter := c.DefaultQuery("filter", "state")

	var chatID int64
	if s := c.Query("chat"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			errResp(c, http.StatusBadRequest, "Invalid chat ID", err.Error())
			return
		}
		chatID = id
	}

	jobs := h.bot.Jobs(chatID)
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, jobToAPI(j, filter))
	}

	c.JSON(http.StatusOK, out)
}

// GetJob GET /api/v1/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	j, err := h.bot.Job(c.Param("id"))
	if err != nil {
		errResp(c, http.StatusNotFound, "Unknown job ID", err.Error())
		return
	}

	c.JSON(http.StatusOK, jobToAPI(j, c.DefaultQuery("filter", "")))
}

// GetReport GET /api/v1/jobs/:id/report
func (h *Handler) GetReport(c *gin.Context) {
	j, err := h.bot.Job(c.Param("id"))
	if err != nil {
		errResp(c, http.StatusNotFound, "Unknown job ID", err.Error())
		return
	}

	c.JSON(http.StatusOK, jobReport(j))
}

// DeleteJob DELETE /api/v1/jobs/:id cancels a running job and removes a
// finished one.
func (h *Handler) DeleteJob(c *gin.Context) {
	id := c.Param("id")

	j, err := h.bot.Job(id)
	if err != nil {
		errResp(c, http.StatusNotFound, "Unknown job ID", err.Error())
		return
	}

	if j.Running() {
		h.bot.Cancel(id)
		c.JSON(http.StatusAccepted, jobToAPI(j, "state"))
		return
	}

	if err := h.bot.Remove(id); err != nil {
		errResp(c, http.StatusConflict, "Delete failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, "OK")
}

// ListChats GET /api/v1/chats
func (h *Handler) ListChats(c *gin.Context) {
	c.JSON(http.StatusOK, h.history.Chats())
}

// GetMessages GET /api/v1/chats/:chat/messages
func (h *Handler) GetMessages(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("chat"), 10, 64)
	if err != nil {
		errResp(c, http.StatusBadRequest, "Invalid chat ID", err.Error())
		return
	}

	msgs, err := h.history.Messages(chatID)
	if err != nil {
		errResp(c, http.StatusNotFound, "Unknown chat", err.Error())
		return
	}

	c.JSON(http.StatusOK, msgs)
}

// Skills GET /api/v1/skills
func (h *Handler) Skills(c *gin.Context) {
	c.JSON(http.StatusOK, skillsToAPI(h.ffmpeg.Binary(), h.ffmpeg.Skills()))
}

// ReloadSkills POST /api/v1/skills/reload
func (h *Handler) ReloadSkills(c *gin.Context) {
	if err := h.ffmpeg.ReloadSkills(); err != nil {
		errResp(c, http.StatusInternalServerError, "Reload failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, skillsToAPI(h.ffmpeg.Binary(), h.ffmpeg.Skills()))
}

func jobToAPI(j *bot.Job, filter string) Job {
	info := j.Info()

	out := Job{
		ID:        info.ID,
		State:     string(info.State),
		Error:     info.Error,
		Request:   info.Request,
		Status:    info.Status,
		Text:      info.Text,
		Bar:       status.RenderProgressBar(info.Status.Progress),
		CreatedAt: info.CreatedAt.Unix(),
	}
	if !info.FinishedAt.IsZero() {
		out.FinishedAt = info.FinishedAt.Unix()
	}

	includeAll := filter == ""
	includeState := includeAll || strings.Contains(filter, "state")
	includeReport := includeAll || strings.Contains(filter, "report")

	r := j.Runner()
	if includeState && r != nil {
		st := r.Status()
		prog := r.Progress()
		out.Process = &ProcessState{
			State:    st.State,
			Runtime:  int64(st.Duration.Seconds()),
			PID:      st.PID,
			ExitCode: st.ExitCode,
			Exited:   st.Exited,
			Memory:   st.Memory.Current,
			CPU:      st.CPU.Current,
			Command:  r.Args(),
			Progress: &Progress{
				Duration: prog.Duration,
				Time:     prog.Time,
				Percent:  prog.Percent,
				Frame:    prog.Frame,
				Size:     prog.Size,
				Speed:    prog.Speed,
				Finished: prog.Finished,
			},
		}
	}

	if includeReport {
		report := jobReport(j)
		out.Report = &report
	}

	return out
}

func jobReport(j *bot.Job) JobReport {
	report := JobReport{Log: [][2]string{}}

	r := j.Runner()
	if r == nil {
		return report
	}

	for _, line := range r.Log() {
		report.Log = append(report.Log, [2]string{
			line.Timestamp.Format("2006-01-02 15:04:05.000"),
			line.Data,
		})
	}
	return report
}
