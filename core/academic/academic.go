// Package academic computes academic years. An academic year starts in September
// and is labeled "{start}-{start+1}".
package academic

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	// StartMonth is the first month of an academic year.
	StartMonth = time.September

	// optionsSpan is the number of years listed on each side of the current one.
	optionsSpan = 2
)

var (
	ErrInvalidYear = errors.New("academic year must have the YYYY-YYYY format with consecutive years")

	yearRegex = regexp.MustCompile(`^(\d{4})-(\d{4})$`)
)

// Year is an academic year identified by its starting calendar year.
type Year int

func (y Year) Start() int { return int(y) }
func (y Year) End() int   { return int(y) + 1 }

func (y Year) String() string {
	return fmt.Sprintf("%d-%d", y.Start(), y.End())
}

// Contains reports whether t falls between September 1st of the start year
// and August 31st of the end year.
func (y Year) Contains(t time.Time) bool {
	return BaseYear(t) == int(y)
}

// Option is a selectable academic year.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// BaseYear returns the starting calendar year of the academic year t falls in.
func BaseYear(t time.Time) int {
	if t.Month() >= StartMonth {
		return t.Year()
	}
	return t.Year() - 1
}

// Current returns the label of the academic year t falls in.
func Current(t time.Time) string {
	return Year(BaseYear(t)).String()
}

// Options returns five consecutive academic years centered on the one t falls in.
func Options(t time.Time) []Option {
	base := BaseYear(t)
	opts := make([]Option, 0, 2*optionsSpan+1)
	for y := base - optionsSpan; y <= base+optionsSpan; y++ {
		label := Year(y).String()
		opts = append(opts, Option{Value: label, Label: label})
	}
	return opts
}

// Parse parses a "YYYY-YYYY" label. The second year must follow the first.
func Parse(s string) (Year, error) {
	m := yearRegex.FindStringSubmatch(s)
	if m == nil {
		return 0, ErrInvalidYear
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if end != start+1 {
		return 0, ErrInvalidYear
	}
	return Year(start), nil
}

// Semester is a half of an academic year.
type Semester string

const (
	Fall   Semester = "fall"
	Spring Semester = "spring"
)

func (s Semester) IsValid() bool {
	return s == Fall || s == Spring
}

// SemesterOf returns the semester t falls in: September to January is fall, the rest is spring.
func SemesterOf(t time.Time) Semester {
	if t.Month() >= StartMonth || t.Month() == time.January {
		return Fall
	}
	return Spring
}
