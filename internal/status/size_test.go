// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadableSize(t *testing.T) {
	assert.Equal(t, "0B", ReadableSize(0))
	assert.Equal(t, "0B", ReadableSize(-3))
	assert.Equal(t, "512B", ReadableSize(512))
	assert.Equal(t, "1KB", ReadableSize(1024))
	assert.Equal(t, "1.5KB", ReadableSize(1536))
	assert.Equal(t, "2.33MB", ReadableSize(2446328))
	assert.Equal(t, "1024PB", ReadableSize(1<<60))
}
