package sqlite

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/jakobjanot/pg-rrule/storage"
	"modernc.org/sqlite"
)

// SQL function names
const (
	FuncIsValid         = "rrule_is_valid"
	FuncNextOccurrence  = "rrule_next_occurrence"
	FuncNextOccurrences = "rrule_next_occurrences"
	FuncOccurrences     = "rrule_occurrences"
)

var (
	registerOnce sync.Once
	registerErr  error
	funcEngine   atomic.Pointer[rrule.Engine]
)

// RegisterFunctions makes the rrule SQL functions available to every SQLite
// connection opened afterwards. The driver keeps one global registry, so the
// functions are registered once; later calls only swap the engine answering
// them.
//
//	rrule_is_valid(rule)                               -> 0 | 1
//	rrule_next_occurrence(rule, pivot, anchor[, tz])   -> instant | NULL
//	rrule_next_occurrences(rule, pivot, n, anchor[, tz]) -> JSON array
//	rrule_occurrences(rule, start, end, anchor[, tz])  -> JSON array
//
// Instants are text in storage.TimeLayout. tz names the IANA zone the
// anchor's wall clock is kept in.
func RegisterFunctions(engine *rrule.Engine) error {
	funcEngine.Store(engine)
	registerOnce.Do(func() {
		for name, fn := range map[string]func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error){
			FuncIsValid:         isValidFunc,
			FuncNextOccurrence:  nextOccurrenceFunc,
			FuncNextOccurrences: nextOccurrencesFunc,
			FuncOccurrences:     occurrencesFunc,
		} {
			if err := sqlite.RegisterDeterministicScalarFunction(name, -1, fn); err != nil {
				registerErr = fmt.Errorf("register %s: %w", name, err)
				return
			}
		}
	})
	return registerErr
}

func engine() *rrule.Engine {
	if e := funcEngine.Load(); e != nil {
		return e
	}
	return rrule.NewEngine()
}

func isValidFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%s: want 1 argument, got %d", FuncIsValid, len(args))
	}
	rule, ok := args[0].(string)
	if !ok {
		return int64(0), nil
	}
	if engine().IsValid(rule) {
		return int64(1), nil
	}
	return int64(0), nil
}

func nextOccurrenceFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 3 && len(args) != 4 {
		return nil, fmt.Errorf("%s: want 3 or 4 arguments, got %d", FuncNextOccurrence, len(args))
	}
	rule, err := textArg(args, 0)
	if err != nil {
		return nil, err
	}
	pivot, err := timeArg(args, 1)
	if err != nil {
		return nil, err
	}
	anchor, err := anchorArg(args, 2)
	if err != nil {
		return nil, err
	}

	next, err := engine().NextOccurrence(rule, pivot, anchor)
	if err != nil {
		return nil, err
	}
	if t, ok := next.Get(); ok {
		return storage.FormatTime(t), nil
	}
	return nil, nil
}

func nextOccurrencesFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 4 && len(args) != 5 {
		return nil, fmt.Errorf("%s: want 4 or 5 arguments, got %d", FuncNextOccurrences, len(args))
	}
	rule, err := textArg(args, 0)
	if err != nil {
		return nil, err
	}
	pivot, err := timeArg(args, 1)
	if err != nil {
		return nil, err
	}
	n, ok := args[2].(int64)
	if !ok {
		return nil, fmt.Errorf("argument 3: want an integer, got %T", args[2])
	}
	anchor, err := anchorArg(args, 3)
	if err != nil {
		return nil, err
	}

	list, err := engine().NextOccurrences(rule, pivot, int(n), anchor)
	if err != nil {
		return nil, err
	}
	return jsonList(list)
}

func occurrencesFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 4 && len(args) != 5 {
		return nil, fmt.Errorf("%s: want 4 or 5 arguments, got %d", FuncOccurrences, len(args))
	}
	rule, err := textArg(args, 0)
	if err != nil {
		return nil, err
	}
	start, err := timeArg(args, 1)
	if err != nil {
		return nil, err
	}
	end, err := timeArg(args, 2)
	if err != nil {
		return nil, err
	}
	anchor, err := anchorArg(args, 3)
	if err != nil {
		return nil, err
	}

	list, err := engine().Occurrences(rule, start, end, anchor)
	if err != nil {
		return nil, err
	}
	return jsonList(list)
}

func textArg(args []driver.Value, i int) (string, error) {
	switch v := args[i].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("argument %d: want text, got %T", i+1, args[i])
}

func timeArg(args []driver.Value, i int) (time.Time, error) {
	if t, ok := args[i].(time.Time); ok {
		return t, nil
	}
	s, err := textArg(args, i)
	if err != nil {
		return time.Time{}, err
	}
	t, err := storage.ParseTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("argument %d: %w", i+1, err)
	}
	return t, nil
}

// anchorArg reads the anchor at i and places it in the optional zone
// argument following it.
func anchorArg(args []driver.Value, i int) (time.Time, error) {
	anchor, err := timeArg(args, i)
	if err != nil {
		return time.Time{}, err
	}
	if len(args) > i+1 && args[i+1] != nil {
		zone, err := textArg(args, i+1)
		if err != nil {
			return time.Time{}, err
		}
		return storage.InZone(anchor, zone), nil
	}
	return anchor, nil
}

func jsonList(list []time.Time) (driver.Value, error) {
	values := make([]string, len(list))
	for i, t := range list {
		values[i] = storage.FormatTime(t)
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
