package academic

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestCurrent(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{name: "october", now: date(2024, time.October, 15), want: "2024-2025"},
		{name: "march", now: date(2025, time.March, 3), want: "2024-2025"},
		{name: "september 1st", now: date(2024, time.September, 1), want: "2024-2025"},
		{name: "august 31st", now: date(2024, time.August, 31), want: "2023-2024"},
		{name: "january", now: date(2025, time.January, 1), want: "2024-2025"},
		{name: "december", now: date(2025, time.December, 31), want: "2025-2026"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Current(tt.now); got != tt.want {
				t.Errorf("Current() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCurrent_allMonths(t *testing.T) {
	for _, y := range []int{1999, 2024, 2100} {
		for m := time.January; m <= time.December; m++ {
			start := y
			if m < time.September {
				start = y - 1
			}
			want := fmt.Sprintf("%d-%d", start, start+1)
			for _, d := range []int{1, 15, 28} {
				if got := Current(date(y, m, d)); got != want {
					t.Errorf("Current(%d-%02d-%02d) = %v, want %v", y, m, d, got, want)
				}
			}
		}
	}
}

func TestOptions(t *testing.T) {
	got := Options(date(2024, time.October, 15))
	want := []Option{
		{Value: "2022-2023", Label: "2022-2023"},
		{Value: "2023-2024", Label: "2023-2024"},
		{Value: "2024-2025", Label: "2024-2025"},
		{Value: "2025-2026", Label: "2025-2026"},
		{Value: "2026-2027", Label: "2026-2027"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Options() = %v, want %v", got, want)
	}

	// the current year is always the center option
	for _, now := range []time.Time{date(2025, time.March, 1), date(2030, time.September, 1), date(2031, time.August, 31)} {
		opts := Options(now)
		if len(opts) != 5 {
			t.Fatalf("Options(%v) returned %d options", now, len(opts))
		}
		if opts[2].Value != Current(now) {
			t.Errorf("Options(%v)[2] = %v, want %v", now, opts[2].Value, Current(now))
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Year
		wantErr bool
	}{
		{in: "2024-2025", want: 2024},
		{in: "1999-2000", want: 1999},
		{in: "2024-2026", wantErr: true},
		{in: "2025-2024", wantErr: true},
		{in: "2024/2025", wantErr: true},
		{in: "24-25", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestYear_Contains(t *testing.T) {
	y := Year(2024)
	if !y.Contains(date(2024, time.September, 1)) || !y.Contains(date(2025, time.August, 31)) {
		t.Error("Contains() should include both bounds")
	}
	if y.Contains(date(2024, time.August, 31)) || y.Contains(date(2025, time.September, 1)) {
		t.Error("Contains() should exclude dates outside of the year")
	}
}

func TestSemesterOf(t *testing.T) {
	tests := []struct {
		month time.Month
		want  Semester
	}{
		{time.September, Fall},
		{time.December, Fall},
		{time.January, Fall},
		{time.February, Spring},
		{time.June, Spring},
		{time.August, Spring},
	}
	for _, tt := range tests {
		if got := SemesterOf(date(2024, tt.month, 10)); got != tt.want {
			t.Errorf("SemesterOf(%v) = %v, want %v", tt.month, got, tt.want)
		}
	}
}
