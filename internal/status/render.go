// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package status

import (
	"fmt"
	"html"
	"math"
	"strings"
)

const (
	barWidth   = 12
	cellPoints = 8
	fullGlyph  = "█"
	padGlyph   = " "
)

// partialGlyphs[i] is a cell filled (i+1)/8.
var partialGlyphs = []string{"▏", "▎", "▍", "▌", "▋", "▊", "▉"}

// Render produces the status message text: the emphasised media name on
// the first line and the phase on the second. The name is HTML escaped.
func Render(s *JobStatus) string {
	return fmt.Sprintf("<i>%s</i>\n%s", html.EscapeString(s.Name), s.Status)
}

// RenderWithBar is Render followed by a progress bar line.
func RenderWithBar(s *JobStatus) string {
	return fmt.Sprintf("%s\n%s %.0f%%", Render(s), RenderProgressBar(s.Progress), s.Progress)
}

// RenderProgressBar draws a bracketed bar of 12 cells, one full cell per
// 8 points and a partial glyph for the remainder.
func RenderProgressBar(percentage float64) string {
	p := int(math.Round(percentage))
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}

	full := p / cellPoints
	if full > barWidth {
		full = barWidth
	}

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.Repeat(fullGlyph, full))
	cells := full
	if rem := p % cellPoints; rem > 0 && cells < barWidth {
		b.WriteString(partialGlyphs[rem-1])
		cells++
	}
	b.WriteString(strings.Repeat(padGlyph, barWidth-cells))
	b.WriteString("]")
	return b.String()
}
