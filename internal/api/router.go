// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter creates the gin engine with all routes under /api/v1
func NewRouter(handler *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), cors.Default())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, "OK") })

	v1 := r.Group("/api/v1")
	{
		v1.GET("/skills", handler.Skills)
		v1.POST("/skills/reload", handler.ReloadSkills)

		v1.POST("/updates", handler.Update)

		v1.GET("/jobs", handler.ListJobs)
		v1.GET("/jobs/:id", handler.GetJob)
		v1.GET("/jobs/:id/report", handler.GetReport)
		v1.DELETE("/jobs/:id", handler.DeleteJob)

		v1.GET("/chats", handler.ListChats)
		v1.GET("/chats/:chat/messages", handler.GetMessages)
	}

	return r
}
