// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// ClipBot - 视频片段剪辑机器人

package parse

import (
	"math"
	"regexp"
	"strconv"
)

// Both patterns rely on ffmpeg being started with "-progress - -nostats":
// the banner carries "Duration:" and the progress block carries "out_time=".
var (
	reDuration = regexp.MustCompile(`Duration: ([0-9]{2}):([0-9]{2}):([0-9]{2})\.([0-9]{2})`)
	reOutTime  = regexp.MustCompile(`out_time=([0-9]{2}):([0-9]{2}):([0-9]{2})\.([0-9]{2})`)
)

// Marker is a timestamp found in ffmpeg output.
type Marker struct {
	Hour     int
	Minute   int
	Second   int
	Fraction int
}

// Milliseconds converts the marker to a single scalar. The fraction is
// added as given, so "00:00:01.50" is 1050, not 1500.
func (m Marker) Milliseconds() int64 {
	return int64(m.Hour)*3600000 + int64(m.Minute)*60000 + int64(m.Second)*1000 + int64(m.Fraction)
}

// ParseDuration finds a "Duration: HH:MM:SS.ff" marker in line.
func ParseDuration(line string) (Marker, bool) {
	return match(reDuration, line)
}

// ParseCurrentTime finds an "out_time=HH:MM:SS.ff" marker in line.
func ParseCurrentTime(line string) (Marker, bool) {
	return match(reOutTime, line)
}

func match(re *regexp.Regexp, line string) (Marker, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return Marker{}, false
	}
	var fields [4]int
	for i := range fields {
		x, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Marker{}, false
		}
		fields[i] = x
	}
	return Marker{Hour: fields[0], Minute: fields[1], Second: fields[2], Fraction: fields[3]}, true
}

// ToMilliseconds converts m and, when precision is positive, rounds the
// result to that many decimals.
func ToMilliseconds(m Marker, precision int) float64 {
	v := float64(m.Milliseconds())
	if precision > 0 {
		return round(v, precision)
	}
	return v
}

// Percentage is current/total*100 rounded to two decimals. It is the
// rule used for instantaneous samples.
func Percentage(total, current float64) float64 {
	if total <= 0 {
		return 0
	}
	return round(current/total*100, 2)
}

// FloorPercentage is current/total*100 rounded down. It is the rule used
// for streamed progress.
func FloorPercentage(total, current float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(current / total * 100))
}

func round(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
