/*
Package rrule expands RFC 5545 recurrence rules into occurrence instants.

A rule such as "FREQ=WEEKLY;BYDAY=MO,WE,FR" together with an anchor (the
event's first start) describes an ascending, possibly infinite, sequence of
instants. The anchor is always the first occurrence; later ones keep the
anchor's wall clock and location.

# Supported grammar

FREQ (required), INTERVAL, COUNT, UNTIL, BYDAY, BYMONTHDAY, BYMONTH and WKST.
COUNT and UNTIL are mutually exclusive. Any other key is rejected.

# Querying

Engine exposes the four operations backing the SQL functions of the same
name:

	e := rrule.NewEngine()
	ok := e.IsValid("FREQ=DAILY")                                        // rrule_is_valid
	next, err := e.NextOccurrence("FREQ=DAILY", now, anchor)              // rrule_next_occurrence
	list, err := e.NextOccurrences("FREQ=DAILY", now, 5, anchor)          // rrule_next_occurrences
	month, err := e.Occurrences("FREQ=DAILY", monthStart, monthEnd, anchor) // rrule_occurrences

Each operation bounds its own work. For open-ended consumption use Iterate,
which is lazy and restartable:

	p, _ := rrule.Parse("FREQ=MONTHLY;BYDAY=-1FR")
	for t := range rrule.Iterate(p, anchor) {
		if t.After(horizon) {
			break
		}
		fmt.Println(t)
	}

# Month ends

When the day of month comes from the anchor (plain MONTHLY or YEARLY), a
shorter month clamps to its last day: an event on January 31st recurs on
February 29th in 2024. When the day comes from BYMONTHDAY, months without
that day are skipped.
*/
package rrule
