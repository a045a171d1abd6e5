package xcal

import (
	"bytes"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_Document(t *testing.T) {
	p, err := rrule.Parse("FREQ=DAILY;COUNT=3")
	require.NoError(t, err)

	cal := &Calendar{Events: []Event{{
		UID:     "standup",
		Summary: "Standup",
		Start:   time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Rule:    p,
	}}}

	doc := cal.Document()
	s, err := doc.WriteToString()
	require.NoError(t, err)

	want := `<?xml version="1.0" encoding="utf-8"?>` +
		`<icalendar xmlns="urn:ietf:params:xml:ns:icalendar-2.0"><vcalendar>` +
		`<properties><prodid><text>-//pg-rrule//xCal//EN</text></prodid><version><text>2.0</text></version></properties>` +
		`<components><vevent><properties>` +
		`<uid><text>standup</text></uid>` +
		`<summary><text>Standup</text></summary>` +
		`<dtstart><date-time>2024-01-01T09:00:00Z</date-time></dtstart>` +
		`<rrule><recur><freq>DAILY</freq><count>3</count></recur></rrule>` +
		`</properties></vevent></components>` +
		`</vcalendar></icalendar>`
	assert.Equal(t, want, s)
}

func TestExpand_RoundTrip(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	occurrences := []time.Time{
		time.Date(2024, 3, 9, 9, 0, 0, 0, ny),
		time.Date(2024, 3, 10, 9, 0, 0, 0, ny),
		time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	_, err = Expand("standup", "Standup", occurrences).WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<tzid>")
	assert.Contains(t, buf.String(), "America/New_York")

	cal, err := ReadCalendar(&buf)
	require.NoError(t, err)
	assert.Equal(t, DefaultProdID, cal.ProdID)
	require.Len(t, cal.Events, len(occurrences))

	for i, ev := range cal.Events {
		assert.Equal(t, "standup", ev.UID)
		assert.Equal(t, "Standup", ev.Summary)
		assert.Nil(t, ev.Rule)
		assert.True(t, occurrences[i].Equal(ev.Start), "start %d", i)
		assert.True(t, occurrences[i].Equal(ev.RecurrenceID), "recurrence-id %d", i)
	}
	assert.Equal(t, "America/New_York", cal.Events[0].Start.Location().String())
}

func TestReadCalendar_WithRule(t *testing.T) {
	xml := `<?xml version="1.0" encoding="utf-8"?>
<icalendar xmlns="urn:ietf:params:xml:ns:icalendar-2.0">
  <vcalendar>
    <components>
      <vevent>
        <properties>
          <uid><text>thanksgiving</text></uid>
          <dtstart><date>2024-11-28</date></dtstart>
          <rrule>
            <recur>
              <freq>YEARLY</freq>
              <bymonth>11</bymonth>
              <byday>4TH</byday>
            </recur>
          </rrule>
        </properties>
      </vevent>
    </components>
  </vcalendar>
</icalendar>`

	cal, err := ReadCalendar(strings.NewReader(xml))
	require.NoError(t, err)
	require.Len(t, cal.Events, 1)

	ev := cal.Events[0]
	assert.Equal(t, "thanksgiving", ev.UID)
	assert.Equal(t, time.Date(2024, 11, 28, 0, 0, 0, 0, time.UTC), ev.Start)
	require.NotNil(t, ev.Rule)
	assert.Equal(t, "FREQ=YEARLY;BYDAY=4TH;BYMONTH=11", ev.Rule.String())
	assert.True(t, ev.RecurrenceID.IsZero())
}

func TestReadCalendar_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":        ``,
		"wrong root":   `<vcalendar/>`,
		"no vcalendar": `<icalendar/>`,
		"unknown tzid": `<icalendar><vcalendar><components><vevent><properties>
			<dtstart><parameters><tzid><text>Mars/Olympus</text></tzid></parameters><date-time>2024-01-01T09:00:00</date-time></dtstart>
			</properties></vevent></components></vcalendar></icalendar>`,
		"bad rule": `<icalendar><vcalendar><components><vevent><properties>
			<rrule><recur><freq>WRONG</freq></recur></rrule>
			</properties></vevent></components></vcalendar></icalendar>`,
		"missing value": `<icalendar><vcalendar><components><vevent><properties>
			<dtstart></dtstart>
			</properties></vevent></components></vcalendar></icalendar>`,
	}

	for name, xml := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCalendar(strings.NewReader(xml))
			assert.Error(t, err)
		})
	}
}
