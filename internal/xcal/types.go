package xcal

// Tag names used in xCal documents
const (
	TagICalendar    = "icalendar"
	TagVCalendar    = "vcalendar"
	TagVEvent       = "vevent"
	TagProperties   = "properties"
	TagComponents   = "components"
	TagParameters   = "parameters"
	TagText         = "text"
	TagDateTime     = "date-time"
	TagDate         = "date"
	TagRecur        = "recur"
	TagProdID       = "prodid"
	TagVersion      = "version"
	TagUID          = "uid"
	TagSummary      = "summary"
	TagDTStart      = "dtstart"
	TagRecurrenceID = "recurrence-id"
	TagRRule        = "rrule"
	TagTZID         = "tzid"
)

// Value layouts of RFC 6321 section 3.3
const (
	layoutDate          = "2006-01-02"
	layoutDateTime      = "2006-01-02T15:04:05"
	layoutDateTimeUTC   = "2006-01-02T15:04:05Z"
	layoutBasicDate     = "20060102"
	layoutBasicDateTime = "20060102T150405"
)
