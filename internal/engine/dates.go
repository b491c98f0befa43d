package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/tartampluch/go-addressbook/internal/config"
)

// MonthNamer supplies localized month names for FormatDate.
type MonthNamer interface {
	MonthName(m time.Month) string
}

// ParseDate parses a stored birth date. Only the exact YYYY-MM-DD layout is accepted.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(config.DateFormatFullDash, s)
	if err != nil {
		return time.Time{}, &ParseError{Value: s, Err: err}
	}
	return t, nil
}

// FormatDate parses s and renders it with an ICU-style pattern such as "d MMMM yyyy".
//
// Supported letters: d, dd, M, MM, MMM, MMMM, y, yy, yyyy. Text between single quotes
// and any other character is copied as is. A nil namer renders English month names.
func FormatDate(s, pattern string, months MonthNamer) (string, error) {
	t, err := ParseDate(s)
	if err != nil {
		return "", err
	}

	monthName := func(m time.Month) string {
		if months != nil {
			if name := months.MonthName(m); name != "" {
				return name
			}
		}
		return m.String()
	}

	var b strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); {
		r := runes[i]

		if r == '\'' {
			end := i + 1
			for end < len(runes) && runes[end] != '\'' {
				end++
			}
			if end == i+1 && end < len(runes) {
				b.WriteRune('\'') // '' is an escaped quote
			} else {
				b.WriteString(string(runes[i+1 : min(end, len(runes))]))
			}
			i = end + 1
			continue
		}

		if r != 'd' && r != 'M' && r != 'y' {
			b.WriteRune(r)
			i++
			continue
		}

		n := 1
		for i+n < len(runes) && runes[i+n] == r {
			n++
		}
		i += n

		switch r {
		case 'd':
			if n >= 2 {
				fmt.Fprintf(&b, "%02d", t.Day())
			} else {
				fmt.Fprintf(&b, "%d", t.Day())
			}
		case 'M':
			switch {
			case n >= 4:
				b.WriteString(monthName(t.Month()))
			case n == 3:
				name := []rune(monthName(t.Month()))
				b.WriteString(string(name[:min(3, len(name))]))
			case n == 2:
				fmt.Fprintf(&b, "%02d", int(t.Month()))
			default:
				fmt.Fprintf(&b, "%d", int(t.Month()))
			}
		case 'y':
			if n == 2 {
				fmt.Fprintf(&b, "%02d", t.Year()%100)
			} else {
				fmt.Fprintf(&b, "%04d", t.Year())
			}
		}
	}
	return b.String(), nil
}

// AgeInYears returns the whole number of 365-day years between the birth date and now.
// The fixed divisor drifts by a day every four years around birthdays; that is accepted.
func AgeInYears(s string, now time.Time) (int, error) {
	t, err := ParseDate(s)
	if err != nil {
		return 0, err
	}
	birth := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
	return int(now.Sub(birth) / (config.DaysPerYear * 24 * time.Hour)), nil
}

// Today returns the current date at midnight in the clock's location.
func Today(c Clock) time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// NextCalendarYear is the year shown on the birthday list's divider.
func NextCalendarYear(c Clock) int {
	return c.Now().Year() + 1
}
