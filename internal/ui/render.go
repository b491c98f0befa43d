// Package ui turns pipeline snapshots into terminal output and keeps the HTTP
// feeds in sync with them.
package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tartampluch/go-addressbook/internal/config"
	"github.com/tartampluch/go-addressbook/internal/engine"
	"github.com/tartampluch/go-addressbook/internal/i18n"
)

// Styles holds the lipgloss styles used by the Renderer.
type Styles struct {
	Title   lipgloss.Style
	Name    lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Section lipgloss.Style
	Divider lipgloss.Style
	Label   lipgloss.Style
}

// DefaultStyles returns the palette used by the CLI.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		Name:    lipgloss.NewStyle().Bold(true).Width(28),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Section: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		Divider: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(14),
	}
}

// Renderer draws directory snapshots and person details as text.
type Renderer struct {
	Tr     *i18n.Translator
	Clock  engine.Clock
	Styles Styles

	// DatePattern formats birth dates on the detail view.
	DatePattern string
}

// NewRenderer creates a renderer with the default styles and date pattern.
func NewRenderer(tr *i18n.Translator, clock engine.Clock) *Renderer {
	return &Renderer{
		Tr:          tr,
		Clock:       clock,
		Styles:      DefaultStyles(),
		DatePattern: config.DefaultDisplayPattern,
	}
}

// Directory renders snap narrowed by c.
// Loading shows only the loading line; Failed shows the error and, when stale data exists,
// a notice followed by that data.
func (r *Renderer) Directory(snap engine.Snapshot, c engine.Criteria) string {
	var b strings.Builder
	b.WriteString(r.Styles.Title.Render(r.Tr.Msg(config.TKeyTitle)))
	b.WriteString("\n")

	switch s := snap.State.(type) {
	case engine.Loading[[]engine.Person]:
		b.WriteString(r.Styles.Muted.Render(r.Tr.Msg(config.TKeyLoading)))
		b.WriteString("\n")
		return b.String()
	case engine.Failed[[]engine.Person]:
		b.WriteString(r.Styles.Error.Render(r.Tr.Msg(config.TKeyFailed) + ": " + s.Err.Error()))
		b.WriteString("\n")
		if !s.HasStale {
			return b.String()
		}
		b.WriteString(r.Styles.Warning.Render(r.Tr.Msg(config.TKeyStaleNotice)))
		b.WriteString("\n")
	}

	data, _ := engine.Displayable[[]engine.Person](snap.State)
	people := engine.Filter(data, c)

	if len(people) == 0 {
		key := config.TKeyEmptyList
		if strings.TrimSpace(c.Query) != "" || (c.Department != "" && c.Department != engine.DeptAll) {
			key = config.TKeyEmptySearch
		}
		b.WriteString(r.Styles.Muted.Render(r.Tr.Msg(key)))
		b.WriteString("\n")
		return b.String()
	}

	switch snap.Mode {
	case engine.SortBirthday:
		r.birthdayList(&b, people)
	case engine.SortAlphabetical:
		for _, sec := range engine.AlphabetSections(people) {
			b.WriteString(r.Styles.Section.Render(sec.Letter))
			b.WriteString("\n")
			for _, p := range sec.People {
				b.WriteString(r.row(p, false))
			}
		}
	default:
		for _, p := range people {
			b.WriteString(r.row(p, false))
		}
	}
	return b.String()
}

// birthdayList writes rows with their dates and a divider before the first birthday of next year.
func (r *Renderer) birthdayList(b *strings.Builder, people []engine.Person) {
	divider, err := engine.YearDividerIndex(people, engine.Today(r.Clock))
	if err != nil {
		divider = -1
	}

	for i, p := range people {
		if i == divider {
			b.WriteString(r.Styles.Divider.Render(fmt.Sprintf("──── %d ────", engine.NextCalendarYear(r.Clock))))
			b.WriteString("\n")
		}
		b.WriteString(r.row(p, true))
	}
}

func (r *Renderer) row(p engine.Person, withDate bool) string {
	line := r.Styles.Name.Render(p.FullName()) + " " + r.Styles.Muted.Render(p.UserTag)
	if p.Position != "" {
		line += "  " + p.Position
	}
	if withDate {
		line += "  " + r.Styles.Muted.Render(r.date(p.Birthday, config.ShortDisplayPattern))
	}
	return line + "\n"
}

// date formats s with pattern, showing the raw value when it is not a valid date.
func (r *Renderer) date(s, pattern string) string {
	out, err := engine.FormatDate(s, pattern, r.Tr)
	if err != nil {
		return s
	}
	return out
}

// Person renders the detail view of one record.
func (r *Renderer) Person(p engine.Person) string {
	var b strings.Builder
	b.WriteString(r.Styles.Title.Render(p.FullName()))
	if p.UserTag != "" {
		b.WriteString(" " + r.Styles.Muted.Render(p.UserTag))
	}
	b.WriteString("\n")

	field := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(r.Styles.Label.Render(r.Tr.Msg(key)) + value + "\n")
	}

	field(config.TKeyLblPosition, p.Position)
	field(config.TKeyLblDepartment, r.Tr.DepartmentLabel(p.Department))

	birthday := r.date(p.Birthday, r.DatePattern)
	if age, err := engine.AgeInYears(p.Birthday, r.Clock.Now()); err == nil {
		birthday += "  " + r.Styles.Muted.Render(r.Tr.Age(age))
	}
	field(config.TKeyLblBirthday, birthday)
	field(config.TKeyLblPhone, p.Phone)
	return b.String()
}

// NotFound renders the message shown for an unknown id.
func (r *Renderer) NotFound(id string) string {
	return r.Styles.Error.Render(r.Tr.Msg(config.TKeyNotFound)) + " " + strconv.Quote(id) + "\n"
}

// Departments renders the department labels with their localized names.
func (r *Renderer) Departments(depts []engine.Department) string {
	var b strings.Builder
	b.WriteString(r.Styles.Title.Render(r.Tr.Msg(config.TKeyColDepartment)))
	b.WriteString("\n")
	for _, d := range depts {
		b.WriteString(r.Styles.Label.Render(string(d)) + r.Tr.DepartmentLabel(d) + "\n")
	}
	return b.String()
}
