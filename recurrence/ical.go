package recurrence

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const (
	layoutDate        = "20060102"
	layoutDateTime    = "20060102T150405"
	layoutDateTimeUTC = "20060102T150405Z"
)

// ExtractRecurrenceInfoFromComponent extracts recurrence information from an iCal component.
// Every RDATE and EXDATE property is read, not only the first.
func ExtractRecurrenceInfoFromComponent(comp *ical.Component) (RecurrenceInfo, error) {
	info := RecurrenceInfo{}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
		info.RRULE = strings.TrimPrefix(strings.TrimSpace(prop.Value), "RRULE:")
	}

	for _, prop := range comp.Props.Values(ical.PropRecurrenceDates) {
		times, days, err := parseDateList(prop)
		if err != nil {
			return info, fmt.Errorf("invalid RDATE: %w", err)
		}
		info.RDATE = append(info.RDATE, times...)
		info.RDATE = append(info.RDATE, days...)
	}

	for _, prop := range comp.Props.Values(ical.PropExceptionDates) {
		times, days, err := parseDateList(prop)
		if err != nil {
			return info, fmt.Errorf("invalid EXDATE: %w", err)
		}
		info.EXDATE = append(info.EXDATE, times...)
		info.ExcludedDays = append(info.ExcludedDays, days...)
	}

	if prop := comp.Props.Get(ical.PropRecurrenceID); prop != nil && prop.Value != "" {
		recID, _, err := parseDate(strings.TrimSpace(prop.Value), prop.Params)
		if err != nil {
			return info, fmt.Errorf("invalid RECURRENCE-ID: %w", err)
		}
		info.RecurrenceID = &recID
	}

	return info, nil
}

// ExtractBasicTimeInfoFromComponent extracts start and end times from an iCal component
func ExtractBasicTimeInfoFromComponent(comp *ical.Component) (start, end time.Time, hasTime bool) {
	dtstart, err := comp.Props.DateTime(ical.PropDateTimeStart, time.UTC)
	if err != nil || dtstart.IsZero() {
		return start, end, false
	}
	start = dtstart

	if dtend, err := comp.Props.DateTime(ical.PropDateTimeEnd, time.UTC); err == nil && !dtend.IsZero() {
		end = dtend
		// A DTEND equal to an all-day DTSTART still spans the whole day.
		if isAllDay(comp) && end.Equal(start) {
			end = start.AddDate(0, 0, 1)
		}
		return start, end, true
	}

	if prop := comp.Props.Get(ical.PropDuration); prop != nil {
		d, err := prop.Duration()
		if err != nil {
			return start, end, false
		}
		return start, start.Add(d), true
	}

	// All-day events last one day, timed events are instantaneous.
	if isAllDay(comp) {
		return start, start.AddDate(0, 0, 1), true
	}
	return start, start, true
}

// SeriesFromComponent builds the series of a VEVENT
func SeriesFromComponent(comp *ical.Component) (Series, error) {
	start, end, ok := ExtractBasicTimeInfoFromComponent(comp)
	if !ok {
		return Series{}, errors.New("missing or invalid DTSTART")
	}
	info, err := ExtractRecurrenceInfoFromComponent(comp)
	if err != nil {
		return Series{}, err
	}

	s := Series{Start: start, End: end, Recurrence: info}
	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		s.UID = prop.Value
	}
	if summary, err := comp.Props.Text(ical.PropSummary); err == nil {
		s.Summary = summary
	}
	return s, nil
}

// ReadSeries decodes an iCalendar stream and returns the series of every
// master VEVENT. Override instances (those with RECURRENCE-ID) are skipped.
func ReadSeries(r io.Reader) ([]Series, error) {
	dec := ical.NewDecoder(r)

	var out []Series
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode calendar: %w", err)
		}

		for _, ev := range cal.Events() {
			if ev.Props.Get(ical.PropRecurrenceID) != nil {
				continue
			}
			s, err := SeriesFromComponent(ev.Component)
			if err != nil {
				return nil, fmt.Errorf("event %d: %w", len(out), err)
			}
			out = append(out, s)
		}
	}
	return out, nil
}

func isAllDay(comp *ical.Component) bool {
	prop := comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return false
	}
	return strings.EqualFold(prop.Params.Get(ical.ParamValue), string(ical.ValueDate)) || len(prop.Value) == len(layoutDate)
}

// parseDateList parses the comma separated values of an RDATE or EXDATE
// property, splitting DATE-TIME values from date-only ones. Date-only values
// are returned as midnight UTC.
func parseDateList(prop ical.Prop) (times, days []time.Time, err error) {
	for _, v := range strings.Split(prop.Value, ",") {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		t, dateOnly, err := parseDate(v, prop.Params)
		if err != nil {
			return nil, nil, err
		}
		if dateOnly {
			days = append(days, t)
		} else {
			times = append(times, t)
		}
	}
	return times, days, nil
}

// parseDate parses one DATE or DATE-TIME value. A TZID parameter locates
// floating values; without one they are read as UTC.
func parseDate(value string, params ical.Params) (t time.Time, dateOnly bool, err error) {
	if strings.EqualFold(params.Get(ical.ParamValue), string(ical.ValueDate)) || len(value) == len(layoutDate) {
		d, err := time.Parse(layoutDate, value)
		if err != nil {
			return time.Time{}, false, err
		}
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), true, nil
	}

	if strings.HasSuffix(value, "Z") {
		t, err = time.Parse(layoutDateTimeUTC, value)
		return t, false, err
	}

	loc := time.UTC
	if tzid := params.Get(ical.ParamTimezoneID); tzid != "" {
		l, err := time.LoadLocation(tzid)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("unknown TZID %q: %w", tzid, err)
		}
		loc = l
	}
	t, err = time.ParseInLocation(layoutDateTime, value, loc)
	return t, false, err
}
