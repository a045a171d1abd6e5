package xcal

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/jakobjanot/pg-rrule/rrule"
)

// EncodeRecur renders p as a <recur> element. Child order follows the
// RFC 6321 schema, one element per list value.
func EncodeRecur(p *rrule.Pattern) *etree.Element {
	recur := etree.NewElement(TagRecur)
	recur.CreateElement("freq").SetText(p.Freq.String())

	if p.HasUntil() {
		layout := layoutDateTimeUTC
		if p.UntilFloating {
			layout = layoutDateTime
		}
		recur.CreateElement("until").SetText(p.Until.Format(layout))
	}
	if p.Count > 0 {
		recur.CreateElement("count").SetText(strconv.Itoa(p.Count))
	}
	if p.Interval > 1 {
		recur.CreateElement("interval").SetText(strconv.Itoa(p.Interval))
	}
	for _, d := range p.ByDay {
		recur.CreateElement("byday").SetText(d.String())
	}
	for _, d := range p.ByMonthDay {
		recur.CreateElement("bymonthday").SetText(strconv.Itoa(d))
	}
	for _, m := range p.ByMonth {
		recur.CreateElement("bymonth").SetText(strconv.Itoa(int(m)))
	}
	if p.WeekStart != time.Monday {
		recur.CreateElement("wkst").SetText(rrule.WeekdayNum{Weekday: p.WeekStart}.String())
	}
	return recur
}

// RuleText converts a <recur> element into RRULE text. Repeated elements
// are joined into one comma separated list.
func RuleText(recur *etree.Element) (string, error) {
	if recur == nil || recur.Tag != TagRecur {
		return "", fmt.Errorf("expected <%s> element", TagRecur)
	}

	var keys []string
	values := make(map[string][]string)
	for _, child := range recur.ChildElements() {
		key := strings.ToUpper(child.Tag)
		value := strings.TrimSpace(child.Text())
		if key == "UNTIL" {
			value = basicUntil(value)
		}
		if _, ok := values[key]; !ok {
			keys = append(keys, key)
		}
		values[key] = append(values[key], value)
	}

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+strings.Join(values[key], ","))
	}
	return strings.Join(parts, ";"), nil
}

// DecodeRecur parses a <recur> element. Rule errors are the ones returned by
// rrule.Parse.
func DecodeRecur(recur *etree.Element) (*rrule.Pattern, error) {
	text, err := RuleText(recur)
	if err != nil {
		return nil, err
	}
	return rrule.Parse(text)
}

// basicUntil rewrites an xCal UNTIL value into the RRULE basic format.
// Unrecognized values pass through so that the rule parser reports them.
func basicUntil(v string) string {
	if t, err := time.Parse(layoutDateTimeUTC, v); err == nil {
		return t.Format(layoutBasicDateTime) + "Z"
	}
	if t, err := time.Parse(layoutDateTime, v); err == nil {
		return t.Format(layoutBasicDateTime)
	}
	if t, err := time.Parse(layoutDate, v); err == nil {
		return t.Format(layoutBasicDate)
	}
	return v
}
