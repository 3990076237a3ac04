// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package status

import (
	"math"
	"strconv"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// ReadableSize formats a byte count with binary multiples, e.g. "1.5MB".
func ReadableSize(bytes int64) string {
	if bytes <= 0 {
		return "0B"
	}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(sizeUnits)-1 {
		size /= 1024
		i++
	}
	return strconv.FormatFloat(math.Round(size*100)/100, 'f', -1, 64) + sizeUnits[i]
}
