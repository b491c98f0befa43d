package engine

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"github.com/tartampluch/go-addressbook/internal/config"
)

// CalendarOptions tunes BirthdayCalendar.
type CalendarOptions struct {
	// ReminderTrigger is an ISO8601 duration such as "-P1D". Empty means no alarm.
	ReminderTrigger string

	// FormatSummary allows the caller to inject localized event titles.
	FormatSummary func(name string, age int) string
}

// BirthdayCalendar renders people as an iCalendar feed with one all-day event per person
// for the previous, current and next year. Events before the birth year are omitted.
func BirthdayCalendar(people []Person, now time.Time, opts CalendarOptions) ([]byte, error) {
	cal := ical.NewCalendar()

	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	// RFC 7986 refresh hint
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	// Birthdays follow the local calendar date; only the stamp is UTC.
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	for _, p := range people {
		birthDate, err := ParseDate(p.Birthday)
		if err != nil {
			return nil, err
		}
		for _, e := range birthdayEvents(p, birthDate, now, opts) {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}

	slog.Info(config.MsgGenSuccess,
		config.LogKeyComponent, config.CompEngine,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyTotal, len(people)),
			slog.Int(config.LogKeyEvents, len(cal.Children)),
		),
	)

	// An empty VCALENDAR fails the encoder's validation, yet clients expect a valid feed.
	if len(cal.Children) == 0 {
		return []byte(config.StubVCalendar), nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

func birthdayEvents(p Person, birthDate, now time.Time, opts CalendarOptions) []*ical.Event {
	currentYear := now.Year()
	loc := now.Location()
	name := p.FullName()

	var events []*ical.Event
	for _, y := range []int{currentYear - 1, currentYear, currentYear + 1} {
		if y < birthDate.Year() {
			continue
		}

		event := ical.NewEvent()
		event.Props.SetText(config.PropUID, fmt.Sprintf(config.FormatUID, p.ID, y, config.ICalDomain))

		age := y - birthDate.Year()
		summary := fmt.Sprintf(config.FallbackSummary, name)
		if opts.FormatSummary != nil {
			summary = opts.FormatSummary(name, age)
		}
		event.Props.SetText(config.PropSummary, summary)

		// time.Date normalizes February 29 to March 1 in common years.
		dtStartProp := ical.NewProp(config.PropDTStart)
		dtStartProp.SetDate(time.Date(y, birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, loc))
		event.Props.Set(dtStartProp)

		if opts.ReminderTrigger != "" {
			addAlarm(event, opts.ReminderTrigger, summary)
		}
		events = append(events, event)
	}
	return events
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
