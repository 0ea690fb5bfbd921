// Package season models the quarterly anime release windows.
package season

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidSeason is returned for names other than winter, spring, summer or fall.
var ErrInvalidSeason = errors.New("invalid season")

// Season is a quarter-year anime release window.
type Season string

const (
	Winter Season = "WINTER"
	Spring Season = "SPRING"
	Summer Season = "SUMMER"
	Fall   Season = "FALL"
)

// Parse accepts a season name in any case.
func Parse(name string) (Season, error) {
	s := Season(strings.ToUpper(strings.TrimSpace(name)))
	switch s {
	case Winter, Spring, Summer, Fall:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSeason, name)
}

// Current returns the season and year containing t.
func Current(t time.Time) (Season, int) {
	switch t.Month() {
	case time.January, time.February, time.March:
		return Winter, t.Year()
	case time.April, time.May, time.June:
		return Spring, t.Year()
	case time.July, time.August, time.September:
		return Summer, t.Year()
	default:
		return Fall, t.Year()
	}
}

// Label renders e.g. "FALL 2025".
func Label(s Season, year int) string {
	return fmt.Sprintf("%s %d", s, year)
}

// Next returns the season following s.
func Next(s Season, year int) (Season, int) {
	switch s {
	case Winter:
		return Spring, year
	case Spring:
		return Summer, year
	case Summer:
		return Fall, year
	default:
		return Winter, year + 1
	}
}
