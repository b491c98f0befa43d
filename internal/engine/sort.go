package engine

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/tartampluch/go-addressbook/internal/config"
)

// SortMode selects how the published list is ordered.
type SortMode string

const (
	SortNone         SortMode = "none"         // cache order
	SortAlphabetical SortMode = "alphabetical" // by full name
	SortBirthday     SortMode = "birthday"     // by next upcoming birthday
)

// SortModes lists the accepted modes.
var SortModes = []SortMode{SortNone, SortAlphabetical, SortBirthday}

// ParseSortMode maps a mode name (case-insensitive) to a SortMode.
func ParseSortMode(s string) (SortMode, error) {
	m := SortMode(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(SortModes, m) {
		return "", fmt.Errorf("%s: %q", config.ErrSortUnsupport, s)
	}
	return m, nil
}

// SortPeople orders people according to mode. The input slice is never modified.
func SortPeople(people []Person, mode SortMode, now time.Time) ([]Person, error) {
	switch mode {
	case SortNone:
		return slices.Clone(people), nil
	case SortAlphabetical:
		return SortAlphabetical(people), nil
	case SortBirthday:
		return SortByBirthday(people, now)
	default:
		return nil, fmt.Errorf("%s: %q", config.ErrSortUnsupport, mode)
	}
}

// SortAlphabetical orders by "first last" using ordinal comparison.
// Equal names keep their input order.
func SortAlphabetical(people []Person) []Person {
	out := slices.Clone(people)
	slices.SortStableFunc(out, func(a, b Person) int {
		return strings.Compare(a.FullName(), b.FullName())
	})
	return out
}

// SortByBirthday orders people by their next upcoming birthday relative to now.
//
// People are grouped by birth month and sorted by day inside each month. Months from the
// current one to December come first, then January up to the previous month. Inside the
// current month, days before today are held aside and appended at the very end, since
// their next birthday falls in the following year. Today counts as upcoming.
func SortByBirthday(people []Person, now time.Time) ([]Person, error) {
	type dated struct {
		person Person
		day    int
	}

	byMonth := make(map[time.Month][]dated, 12)
	for _, p := range people {
		t, err := ParseDate(p.Birthday)
		if err != nil {
			return nil, err
		}
		byMonth[t.Month()] = append(byMonth[t.Month()], dated{person: p, day: t.Day()})
	}
	for _, group := range byMonth {
		slices.SortStableFunc(group, func(a, b dated) int { return cmp.Compare(a.day, b.day) })
	}

	currentMonth, currentDay := now.Month(), now.Day()

	months := make([]time.Month, 0, 12)
	for m := currentMonth; m <= time.December; m++ {
		months = append(months, m)
	}
	for m := time.January; m < currentMonth; m++ {
		months = append(months, m)
	}

	out := make([]Person, 0, len(people))
	var beforeToday []Person
	for _, m := range months {
		for _, d := range byMonth[m] {
			if m == currentMonth && d.day < currentDay {
				beforeToday = append(beforeToday, d.person)
				continue
			}
			out = append(out, d.person)
		}
	}
	return append(out, beforeToday...), nil
}

// YearDividerIndex returns the index of the first person in a birthday-sorted list whose
// birthday already passed this year, i.e. where the list wraps into NextCalendarYear.
// It returns -1 when nobody wraps.
func YearDividerIndex(sorted []Person, now time.Time) (int, error) {
	for i, p := range sorted {
		t, err := ParseDate(p.Birthday)
		if err != nil {
			return -1, err
		}
		if t.Month() < now.Month() || (t.Month() == now.Month() && t.Day() < now.Day()) {
			return i, nil
		}
	}
	return -1, nil
}

// Section is a run of people sharing the same initial in an alphabetical list.
type Section struct {
	Letter string
	People []Person
}

// AlphabetSections groups consecutive people by the upper-cased first letter of their first name.
func AlphabetSections(sorted []Person) []Section {
	var sections []Section
	for _, p := range sorted {
		letter := initial(p.FirstName)
		if n := len(sections); n > 0 && sections[n-1].Letter == letter {
			sections[n-1].People = append(sections[n-1].People, p)
			continue
		}
		sections = append(sections, Section{Letter: letter, People: []Person{p}})
	}
	return sections
}

func initial(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return ""
	}
	return string(unicode.ToUpper(r))
}
