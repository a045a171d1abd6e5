package storage

import (
	"bytes"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/jakobjanot/pg-rrule/recurrence"
	"github.com/jakobjanot/pg-rrule/rrule"
)

// ProdID identifies iCalendar data exported by this module
const ProdID = "-//pg-rrule//Go Recurrence//EN"

// PrepareEvent normalizes ev before insertion: it assigns an ID, rejects a
// missing title or start, checks the recurrence rule with engine and stamps
// Created and Modified with now.
func PrepareEvent(ev *Event, engine *rrule.Engine, now time.Time) error {
	ev.Title = strings.TrimSpace(ev.Title)
	ev.Recurrence = strings.TrimSpace(ev.Recurrence)

	if ev.Title == "" {
		return InvalidInput("title is required", nil)
	}
	if ev.Start.IsZero() {
		return InvalidInput("start is required", nil)
	}
	if ev.Recurrence != "" {
		if _, err := engine.Parse(ev.Recurrence); err != nil {
			return InvalidInput(fmt.Sprintf("invalid recurrence %q", ev.Recurrence), err)
		}
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.Created = now
	ev.Modified = now
	return nil
}

// Series returns the event as a recurrence series for expansion
func (ev *Event) Series() recurrence.Series {
	return recurrence.Series{
		UID:     ev.ID,
		Summary: ev.Title,
		Start:   ev.Start,
		End:     ev.Start,
		Recurrence: recurrence.RecurrenceInfo{
			RRULE:  ev.Recurrence,
			RDATE:  ev.RDates,
			EXDATE: ev.ExDates,
		},
	}
}

// EventFromSeries builds an event from an imported series. The ID is taken
// from the series UID when it is a UUID. Date-only exceptions become the
// instance at the start's wall clock on that day.
func EventFromSeries(s recurrence.Series) Event {
	exdates := slices.Clone(s.Recurrence.EXDATE)
	for _, day := range s.Recurrence.ExcludedDays {
		y, m, d := day.Date()
		exdates = append(exdates, time.Date(y, m, d,
			s.Start.Hour(), s.Start.Minute(), s.Start.Second(), s.Start.Nanosecond(), s.Start.Location()))
	}
	ev := Event{
		Title:      s.Summary,
		Start:      s.Start,
		Recurrence: s.Recurrence.RRULE,
		RDates:     s.Recurrence.RDATE,
		ExDates:    exdates,
	}
	if _, err := uuid.Parse(s.UID); err == nil {
		ev.ID = s.UID
	}
	return ev
}

// ToICS renders the event as a VCALENDAR with a single VEVENT
func (ev *Event) ToICS() (string, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProdID)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, ev.ID)
	stamp := ev.Modified
	if stamp.IsZero() {
		stamp = time.Now()
	}
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, ev.Start)
	event.Props.SetText(ical.PropSummary, ev.Title)
	if ev.Description != "" {
		event.Props.SetText(ical.PropDescription, ev.Description)
	}
	if ev.Location != "" {
		event.Props.SetText(ical.PropLocation, ev.Location)
	}
	if ev.Recurrence != "" {
		// The rule is a structured value; SetText would escape its separators.
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.Value = ev.Recurrence
		event.Props.Set(prop)
	}
	addDateList(event, ical.PropRecurrenceDates, ev.RDates)
	addDateList(event, ical.PropExceptionDates, ev.ExDates)

	cal.Children = append(cal.Children, event.Component)

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.String(), nil
}

func addDateList(event *ical.Event, name string, dates []time.Time) {
	if len(dates) == 0 {
		return
	}
	values := make([]string, len(dates))
	for i, d := range dates {
		values[i] = d.UTC().Format("20060102T150405Z")
	}
	prop := ical.NewProp(name)
	prop.Value = strings.Join(values, ",")
	event.Props.Add(prop)
}

// offsetLayout renders a fixed UTC offset such as "+05:00"
const offsetLayout = "-07:00"

// ZoneName returns the IANA name of loc, or "" when loc is UTC or cannot be
// loaded by name.
func ZoneName(loc *time.Location) string {
	name := loc.String()
	if name == "UTC" || name == "" {
		return ""
	}
	if _, err := time.LoadLocation(name); err != nil {
		return ""
	}
	return name
}

// Zone names the location of t for storage next to its UTC instant, so that
// wall-clock recurrence survives a round trip. Named zones are stored by IANA
// name, anything else by t's UTC offset ("+05:00"). UTC is "".
func Zone(t time.Time) string {
	if name := ZoneName(t.Location()); name != "" {
		return name
	}
	if _, offset := t.Zone(); offset != 0 {
		return t.Format(offsetLayout)
	}
	return ""
}

// InZone places t in zone, an IANA name or a UTC offset as written by Zone.
// Unknown or empty zones leave t in UTC.
func InZone(t time.Time, zone string) time.Time {
	if zone == "" {
		return t.UTC()
	}
	if zone[0] == '+' || zone[0] == '-' {
		ref, err := time.Parse(offsetLayout, zone)
		if err != nil {
			return t.UTC()
		}
		_, offset := ref.Zone()
		return t.In(time.FixedZone(zone, offset))
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}

// SortEvents orders events by start time, then ID
func SortEvents(events []Event) {
	slices.SortFunc(events, func(a, b Event) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
