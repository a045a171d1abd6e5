package rrule

import (
	"time"

	"github.com/samber/mo"
)

// Parse parses text, consulting the engine's cache first when one is set.
func (e *Engine) Parse(text string) (*Pattern, error) {
	if e.cache != nil {
		if p, ok := e.cache.Get(text); ok {
			e.logger.Debug("pattern cache hit", "rule", text)
			return p, nil
		}
	}

	p, err := Parse(text)
	if err != nil {
		e.logger.Debug("rejected recurrence rule", "rule", text, "error", err)
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(text, p)
	}
	return p, nil
}

// IsValid reports whether text is an acceptable rule. It never fails.
func (e *Engine) IsValid(text string) bool {
	_, err := e.Parse(text)
	return err == nil
}

// NextOccurrence returns the first occurrence at or after pivot of the rule
// anchored at anchor, or None when the rule ends before reaching pivot.
func (e *Engine) NextOccurrence(rule string, pivot, anchor time.Time) (mo.Option[time.Time], error) {
	p, err := e.Parse(rule)
	if err != nil {
		return mo.None[time.Time](), err
	}
	return e.Next(p, pivot, anchor)
}

// NextOccurrences returns up to n ascending occurrences at or after pivot.
// Fewer are returned when the rule is exhausted first.
func (e *Engine) NextOccurrences(rule string, pivot time.Time, n int, anchor time.Time) ([]time.Time, error) {
	if err := e.checkCount(n); err != nil {
		return nil, err
	}
	p, err := e.Parse(rule)
	if err != nil {
		return nil, err
	}
	return e.NextN(p, pivot, n, anchor)
}

// Occurrences returns every occurrence within the closed window [start, end].
func (e *Engine) Occurrences(rule string, start, end, anchor time.Time) ([]time.Time, error) {
	if start.After(end) {
		return nil, invalidArgument("range start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	p, err := e.Parse(rule)
	if err != nil {
		return nil, err
	}
	return e.Between(p, start, end, anchor)
}

// Next is NextOccurrence for an already parsed pattern.
func (e *Engine) Next(p *Pattern, pivot, anchor time.Time) (mo.Option[time.Time], error) {
	result := mo.None[time.Time]()
	err := e.walk(p, anchor, pivot, func(t time.Time) bool {
		result = mo.Some(t)
		return false
	})
	if err != nil {
		return mo.None[time.Time](), err
	}
	return result, nil
}

// NextN is NextOccurrences for an already parsed pattern.
func (e *Engine) NextN(p *Pattern, pivot time.Time, n int, anchor time.Time) ([]time.Time, error) {
	if err := e.checkCount(n); err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, min(n, 64))
	err := e.walk(p, anchor, pivot, func(t time.Time) bool {
		out = append(out, t)
		return len(out) < n
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Between is Occurrences for an already parsed pattern.
func (e *Engine) Between(p *Pattern, start, end, anchor time.Time) ([]time.Time, error) {
	if start.After(end) {
		return nil, invalidArgument("range start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	var out []time.Time
	var overflow error
	err := e.walk(p, anchor, start, func(t time.Time) bool {
		if t.After(end) {
			return false
		}
		if limit := e.config.MaxRangeOccurrences; limit > 0 && len(out) >= limit {
			overflow = limitExceeded("range yields more than %d occurrences", limit)
			return false
		}
		out = append(out, t)
		return true
	})
	if err != nil {
		return nil, err
	}
	if overflow != nil {
		return nil, overflow
	}
	return out, nil
}

func (e *Engine) checkCount(n int) error {
	if n <= 0 {
		return invalidArgument("count must be positive, got %d", n)
	}
	if e.config.MaxCount > 0 && n > e.config.MaxCount {
		return invalidArgument("count must be between 1 and %d, got %d", e.config.MaxCount, n)
	}
	return nil
}

// walk feeds visit the occurrences at or after from, in order, until visit
// returns false or the sequence ends.
func (e *Engine) walk(p *Pattern, anchor, from time.Time, visit func(time.Time) bool) error {
	it := NewIterator(p, anchor)
	it.seek(from)

	scanned := 0
	for {
		t, ok := it.Next()
		if !ok {
			return nil
		}
		scanned++
		if e.config.MaxScan > 0 && scanned > e.config.MaxScan {
			return limitExceeded("walked more than %d occurrences", e.config.MaxScan)
		}
		if t.Before(from) {
			continue
		}
		if !visit(t) {
			return nil
		}
	}
}
