package xcal

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/jakobjanot/pg-rrule/rrule"
)

// DefaultProdID identifies documents written by this module
const DefaultProdID = "-//pg-rrule//xCal//EN"

// Event is a VEVENT reduced to the properties that matter for recurrence.
// Expanded instances carry RecurrenceID and no Rule.
type Event struct {
	UID          string
	Summary      string
	Start        time.Time
	Rule         *rrule.Pattern
	RecurrenceID time.Time
}

// Calendar is a VCALENDAR holding events
type Calendar struct {
	ProdID string
	Events []Event
}

// Expand builds a calendar with one instance per occurrence, the way a
// CalDAV server answers an expanded calendar-query.
func Expand(uid, summary string, occurrences []time.Time) *Calendar {
	cal := &Calendar{ProdID: DefaultProdID, Events: make([]Event, 0, len(occurrences))}
	for _, o := range occurrences {
		cal.Events = append(cal.Events, Event{
			UID:          uid,
			Summary:      summary,
			Start:        o,
			RecurrenceID: o,
		})
	}
	return cal
}

// Document renders the calendar as an xCal document
func (c *Calendar) Document() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	root := doc.CreateElement(TagICalendar)
	AddNamespace(doc)

	vcal := root.CreateElement(TagVCalendar)
	props := vcal.CreateElement(TagProperties)
	prodID := c.ProdID
	if prodID == "" {
		prodID = DefaultProdID
	}
	textProperty(props, TagProdID, prodID)
	textProperty(props, TagVersion, "2.0")

	comps := vcal.CreateElement(TagComponents)
	for _, ev := range c.Events {
		comps.AddChild(ev.element())
	}
	return doc
}

// WriteTo writes the indented document to w
func (c *Calendar) WriteTo(w io.Writer) (int64, error) {
	doc := c.Document()
	doc.Indent(2)
	return doc.WriteTo(w)
}

func (ev Event) element() *etree.Element {
	vevent := etree.NewElement(TagVEvent)
	props := vevent.CreateElement(TagProperties)

	if ev.UID != "" {
		textProperty(props, TagUID, ev.UID)
	}
	if ev.Summary != "" {
		textProperty(props, TagSummary, ev.Summary)
	}
	if !ev.Start.IsZero() {
		dateTimeProperty(props, TagDTStart, ev.Start)
	}
	if !ev.RecurrenceID.IsZero() {
		dateTimeProperty(props, TagRecurrenceID, ev.RecurrenceID)
	}
	if ev.Rule != nil {
		props.CreateElement(TagRRule).AddChild(EncodeRecur(ev.Rule))
	}
	return vevent
}

func textProperty(props *etree.Element, name, value string) {
	props.CreateElement(name).CreateElement(TagText).SetText(value)
}

// dateTimeProperty writes t in UTC, or as local time with a TZID parameter
// when t carries a named location.
func dateTimeProperty(props *etree.Element, name string, t time.Time) {
	prop := props.CreateElement(name)
	if tzid := zoneName(t.Location()); tzid != "" {
		prop.CreateElement(TagParameters).CreateElement(TagTZID).CreateElement(TagText).SetText(tzid)
		prop.CreateElement(TagDateTime).SetText(t.Format(layoutDateTime))
		return
	}
	prop.CreateElement(TagDateTime).SetText(t.UTC().Format(layoutDateTimeUTC))
}

// zoneName returns the IANA name of loc, or "" when loc cannot be referenced
// by name (UTC, Local and fixed offsets).
func zoneName(loc *time.Location) string {
	name := loc.String()
	if name == "UTC" || name == "Local" {
		return ""
	}
	if _, err := time.LoadLocation(name); err != nil {
		return ""
	}
	return name
}

// ReadCalendar parses an xCal document from r
func ReadCalendar(r io.Reader) (*Calendar, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, err
	}
	return ParseCalendar(doc)
}

// ParseCalendar extracts the first VCALENDAR of doc
func ParseCalendar(doc *etree.Document) (*Calendar, error) {
	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty document")
	}
	if root.Tag != TagICalendar {
		return nil, fmt.Errorf("invalid root tag: %s", root.Tag)
	}
	vcal := root.SelectElement(TagVCalendar)
	if vcal == nil {
		return nil, errors.New("missing vcalendar element")
	}

	cal := &Calendar{}
	if props := vcal.SelectElement(TagProperties); props != nil {
		cal.ProdID = propertyText(props, TagProdID)
	}

	comps := vcal.SelectElement(TagComponents)
	if comps == nil {
		return cal, nil
	}
	for i, vevent := range comps.SelectElements(TagVEvent) {
		ev, err := parseEvent(vevent)
		if err != nil {
			return nil, fmt.Errorf("vevent %d: %w", i, err)
		}
		cal.Events = append(cal.Events, ev)
	}
	return cal, nil
}

func parseEvent(vevent *etree.Element) (Event, error) {
	var ev Event
	props := vevent.SelectElement(TagProperties)
	if props == nil {
		return ev, nil
	}

	ev.UID = propertyText(props, TagUID)
	ev.Summary = propertyText(props, TagSummary)

	var err error
	if ev.Start, err = propertyTime(props, TagDTStart); err != nil {
		return ev, err
	}
	if ev.RecurrenceID, err = propertyTime(props, TagRecurrenceID); err != nil {
		return ev, err
	}
	if rr := props.SelectElement(TagRRule); rr != nil {
		if ev.Rule, err = DecodeRecur(rr.SelectElement(TagRecur)); err != nil {
			return ev, err
		}
	}
	return ev, nil
}

func propertyText(props *etree.Element, name string) string {
	prop := props.SelectElement(name)
	if prop == nil {
		return ""
	}
	if text := prop.SelectElement(TagText); text != nil {
		return text.Text()
	}
	return ""
}

// propertyTime reads a date or date-time property. The zero time means the
// property is absent.
func propertyTime(props *etree.Element, name string) (time.Time, error) {
	prop := props.SelectElement(name)
	if prop == nil {
		return time.Time{}, nil
	}

	loc := time.UTC
	if params := prop.SelectElement(TagParameters); params != nil {
		if tzid := strings.TrimSpace(propertyText(params, TagTZID)); tzid != "" {
			l, err := time.LoadLocation(tzid)
			if err != nil {
				return time.Time{}, fmt.Errorf("%s: unknown tzid %q: %w", name, tzid, err)
			}
			loc = l
		}
	}

	if dt := prop.SelectElement(TagDateTime); dt != nil {
		v := strings.TrimSpace(dt.Text())
		if strings.HasSuffix(v, "Z") {
			return time.Parse(layoutDateTimeUTC, v)
		}
		return time.ParseInLocation(layoutDateTime, v, loc)
	}
	if d := prop.SelectElement(TagDate); d != nil {
		return time.ParseInLocation(layoutDate, strings.TrimSpace(d.Text()), loc)
	}
	return time.Time{}, fmt.Errorf("%s: missing value", name)
}
