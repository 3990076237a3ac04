// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package bot

import "errors"

var (
	ErrJobNotFound = errors.New("job not found")
	ErrJobExists   = errors.New("job already exists")
	ErrJobRunning  = errors.New("job is still running")
	ErrClosed      = errors.New("bot is closed")
)

// Messages shown to chat users
const (
	msgHelp          = "send /clip youtube-link 3:20 65 to clip a youtube video where 3:20 is the start time of the clip and 65 is its duration in seconds"
	msgNoLink        = "Youtube link not provided"
	msgNoTimes       = "Start or end time not provided"
	msgLinkForbidden = "Link is not allowed"
	msgPlaylist      = "Playlists cannot be clipped"
	msgNoMetadata    = "Cannot extract url from youtube-dl! Try again later"
	msgClipFailed    = "An error occurred while clipping video!"
	msgUploadFailed  = "An error occurred while uploading video!"
)
