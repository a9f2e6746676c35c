package faculty

import (
	"strings"
	"unicode/utf8"
)

const (
	MinCourse = 1
	MaxCourse = 6
)

// ParseCourse guesses the course from the leading digit of a group code: "3-ИТ-1" is a 3rd year group,
// "ИТ-31" tells nothing. Best effort only: ok is false when no course can be read.
func ParseCourse(code string) (course int, ok bool) {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(code))
	if r < '0'+MinCourse || r > '0'+MaxCourse {
		return 0, false
	}
	return int(r - '0'), true
}
