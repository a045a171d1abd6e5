package rrule

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	untilLayoutUTC      = "20060102T150405Z"
	untilLayoutFloating = "20060102T150405"
	untilLayoutDate     = "20060102"
)

var byDayToken = regexp.MustCompile(`^([+-]?[0-9]{1,2})?([A-Z]{2})$`)

// Parse turns rule text such as "FREQ=WEEKLY;BYDAY=MO,WE,FR" into a validated
// Pattern. Every failure is an *Error of kind KindInvalidRule.
func Parse(text string) (*Pattern, error) {
	body := strings.TrimSpace(text)
	if len(body) >= 6 && strings.EqualFold(body[:6], "RRULE:") {
		body = body[6:]
	}
	if body == "" {
		return nil, invalidRule("empty rule")
	}

	type field struct{ key, value string }
	var fields []field
	seen := make(map[string]bool)
	for _, segment := range strings.Split(body, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			return nil, invalidRule("segment %q is not KEY=VALUE", segment)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, invalidRule("%s has an empty value", key)
		}
		if seen[key] {
			return nil, invalidRule("duplicate key %s", key)
		}
		seen[key] = true
		fields = append(fields, field{key, value})
	}

	p := &Pattern{Interval: 1, WeekStart: time.Monday}

	if !seen["FREQ"] {
		return nil, invalidRule("FREQ is required")
	}
	for _, f := range fields {
		key, value := f.key, f.value
		var err error
		switch key {
		case "FREQ":
			err = parseFreq(p, value)
		case "INTERVAL":
			p.Interval, err = parsePositive(key, value)
		case "COUNT":
			p.Count, err = parsePositive(key, value)
		case "UNTIL":
			err = parseUntil(p, value)
		case "BYDAY":
			p.ByDay, err = parseByDay(value)
		case "BYMONTHDAY":
			p.ByMonthDay, err = parseByMonthDay(value)
		case "BYMONTH":
			p.ByMonth, err = parseByMonth(value)
		case "WKST":
			wd, ok := parseWeekday(value)
			if !ok {
				err = invalidRule("WKST %q is not a weekday", value)
			}
			p.WeekStart = wd
		default:
			err = invalidRule("unsupported key %s", key)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// IsValid reports whether Parse accepts text.
func IsValid(text string) bool {
	_, err := Parse(text)
	return err == nil
}

func parseFreq(p *Pattern, value string) error {
	upper := strings.ToUpper(value)
	for f, name := range frequencyNames {
		if name == upper {
			p.Freq = f
			return nil
		}
	}
	return invalidRule("unsupported frequency %q", value)
}

func parsePositive(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		e := invalidRule("%s %q is not an integer", key, value)
		e.Err = err
		return 0, e
	}
	if n < 1 {
		return 0, invalidRule("%s must be positive, got %d", key, n)
	}
	return n, nil
}

func parseUntil(p *Pattern, value string) error {
	upper := strings.ToUpper(value)
	if t, err := time.Parse(untilLayoutUTC, upper); err == nil {
		p.Until = t
		return nil
	}
	if t, err := time.Parse(untilLayoutFloating, upper); err == nil {
		p.Until = t
		p.UntilFloating = true
		return nil
	}
	t, err := time.Parse(untilLayoutDate, upper)
	if err != nil {
		e := invalidRule("UNTIL %q is not a date or date-time", value)
		e.Err = err
		return e
	}
	// A bare date bounds the whole day.
	p.Until = t.Add(24*time.Hour - time.Second)
	p.UntilFloating = true
	return nil
}

func parseByDay(value string) ([]WeekdayNum, error) {
	tokens := strings.Split(value, ",")
	days := make([]WeekdayNum, 0, len(tokens))
	for _, token := range tokens {
		token = strings.ToUpper(strings.TrimSpace(token))
		m := byDayToken.FindStringSubmatch(token)
		if m == nil {
			return nil, invalidRule("BYDAY token %q is malformed", token)
		}
		wd, ok := parseWeekday(m[2])
		if !ok {
			return nil, invalidRule("BYDAY token %q has unknown weekday", token)
		}
		n := 0
		if m[1] != "" {
			var err error
			n, err = strconv.Atoi(m[1])
			if err != nil || n == 0 || n < -53 || n > 53 {
				return nil, invalidRule("BYDAY token %q has invalid ordinal", token)
			}
		}
		days = append(days, WeekdayNum{Weekday: wd, N: n})
	}
	return days, nil
}

func parseIntList(key, value string, valid func(int) bool) ([]int, error) {
	tokens := strings.Split(value, ",")
	nums := make([]int, 0, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		n, err := strconv.Atoi(token)
		if err != nil {
			e := invalidRule("%s value %q is not an integer", key, token)
			e.Err = err
			return nil, e
		}
		if !valid(n) {
			return nil, invalidRule("%s value %d is out of range", key, n)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

func parseByMonthDay(value string) ([]int, error) {
	return parseIntList("BYMONTHDAY", value, func(n int) bool {
		return n != 0 && n >= -31 && n <= 31
	})
}

func parseByMonth(value string) ([]time.Month, error) {
	nums, err := parseIntList("BYMONTH", value, func(n int) bool {
		return n >= 1 && n <= 12
	})
	if err != nil {
		return nil, err
	}
	months := make([]time.Month, len(nums))
	for i, n := range nums {
		months[i] = time.Month(n)
	}
	return months, nil
}

// validate checks the cross-key constraints that single values cannot.
func (p *Pattern) validate() error {
	if p.Count > 0 && p.HasUntil() {
		return invalidRule("COUNT and UNTIL are mutually exclusive")
	}
	if p.Freq == Weekly && len(p.ByMonthDay) > 0 {
		return invalidRule("BYMONTHDAY cannot be used with FREQ=WEEKLY")
	}
	for _, d := range p.ByDay {
		if d.N == 0 {
			continue
		}
		switch {
		case p.Freq != Monthly && p.Freq != Yearly:
			return invalidRule("BYDAY ordinal %s requires FREQ=MONTHLY or FREQ=YEARLY", d)
		case (p.Freq == Monthly || len(p.ByMonth) > 0) && (d.N > 5 || d.N < -5):
			return invalidRule("BYDAY ordinal %s exceeds the weeks of a month", d)
		}
	}
	return nil
}
