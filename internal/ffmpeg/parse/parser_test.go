// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	m, ok := ParseDuration("  Duration: 00:03:20.12, start: 0.000000, bitrate: 1411 kb/s")
	require.True(t, ok)
	assert.Equal(t, Marker{Hour: 0, Minute: 3, Second: 20, Fraction: 12}, m)
	assert.Equal(t, float64(200012), ToMilliseconds(m, 0))
}

func TestParseCurrentTime(t *testing.T) {
	m, ok := ParseCurrentTime("out_time=01:02:03.456789")
	require.True(t, ok)
	assert.Equal(t, Marker{Hour: 1, Minute: 2, Second: 3, Fraction: 45}, m)
	assert.Equal(t, int64(3723045), m.Milliseconds())
}

func TestParseMisses(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"unrelated", "frame=120"},
		{"duration n/a", "Duration: N/A, bitrate: N/A"},
		{"negative out_time", "out_time=-577014:32:22.775808"},
		{"non numeric", "out_time=0a:00:01.00"},
		{"single digit hours", "out_time=1:00:01.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseCurrentTime(tt.line)
			assert.False(t, ok)
			_, ok = ParseDuration(tt.line)
			assert.False(t, ok)
		})
	}
}

func TestToMillisecondsPrecision(t *testing.T) {
	m := Marker{Minute: 1, Second: 2, Fraction: 3}
	assert.Equal(t, float64(62003), ToMilliseconds(m, 0))
	assert.Equal(t, float64(62003), ToMilliseconds(m, 2))
	assert.Equal(t, float64(62003), ToMilliseconds(m, -1))
}

func TestPercentageRules(t *testing.T) {
	assert.Equal(t, 50.0, Percentage(200000, 100000))
	assert.Equal(t, 50, FloorPercentage(200000, 100000))

	assert.Equal(t, 33.33, Percentage(3, 1))
	assert.Equal(t, 66.67, Percentage(3, 2))
	assert.Equal(t, 66, FloorPercentage(3, 2))

	assert.Equal(t, 0.0, Percentage(0, 100))
	assert.Equal(t, 0, FloorPercentage(0, 100))
}

func TestParserKeepsFirstDuration(t *testing.T) {
	p := New(Config{LogLines: 3})

	_, ok := p.Duration()
	assert.False(t, ok)

	p.Parse("Duration: 00:00:10.00, start: 0.000000")
	p.Parse("Duration: 00:01:00.00, start: 0.000000")
	p.Parse("frame=25")
	p.Parse("total_size=4096")
	p.Parse("out_time=00:00:05.00")
	p.Parse("speed=2.5x")
	p.Parse("progress=end")

	d, ok := p.Duration()
	require.True(t, ok)
	assert.Equal(t, float64(10000), d)

	prog := p.Progress()
	assert.Equal(t, float64(5000), prog.Time)
	assert.Equal(t, 50.0, prog.Percent)
	assert.Equal(t, uint64(25), prog.Frame)
	assert.Equal(t, uint64(4096), prog.Size)
	assert.Equal(t, 2.5, prog.Speed)
	assert.True(t, prog.Finished)

	log := p.Log()
	require.Len(t, log, 3)
	assert.Equal(t, "out_time=00:00:05.00", log[0].Data)
	assert.Equal(t, "progress=end", log[2].Data)

	p.ResetStats()
	p.ResetLog()
	_, ok = p.Duration()
	assert.False(t, ok)
	assert.Empty(t, p.Log())
}

func TestParserTimeBeforeDuration(t *testing.T) {
	p := New(Config{})
	p.Parse("out_time=00:00:05.00")
	assert.Equal(t, 0.0, p.Progress().Percent)
}
