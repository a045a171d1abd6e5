package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jakobjanot/pg-rrule/internal/xcal"
	"github.com/jakobjanot/pg-rrule/recurrence"
	"github.com/jakobjanot/pg-rrule/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var ImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Load events from a YAML, iCalendar (.ics) or xCal (.xml) file",
	Long: `Load events into the configured store. A YAML file lists events:

  events:
    - title: Team Standup
      start: 2024-01-01T09:00:00
      timezone: Europe/Copenhagen
      recurrence: FREQ=WEEKLY;BYDAY=MO,WE,FR
      exdates: [2024-01-03T09:00:00]

iCalendar and xCal files contribute every VEVENT with a DTSTART.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := location()
		if err != nil {
			return err
		}
		events, err := readEventFile(args[0], loc)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openStore(ctx, newEngine())
		if err != nil {
			return err
		}
		defer store.Close()

		return importEvents(ctx, cmd.OutOrStdout(), store, events)
	},
}

// eventFile is the YAML import format
type eventFile struct {
	Events []eventEntry `yaml:"events"`
}

type eventEntry struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Location    string   `yaml:"location"`
	Start       string   `yaml:"start"`
	Timezone    string   `yaml:"timezone"`
	Recurrence  string   `yaml:"recurrence"`
	RDates      []string `yaml:"rdates"`
	ExDates     []string `yaml:"exdates"`
}

func (e eventEntry) event(loc *time.Location) (storage.Event, error) {
	if e.Timezone != "" {
		l, err := time.LoadLocation(e.Timezone)
		if err != nil {
			return storage.Event{}, fmt.Errorf("invalid timezone %q: %w", e.Timezone, err)
		}
		loc = l
	}
	start, err := parseTime(e.Start, loc)
	if err != nil {
		return storage.Event{}, fmt.Errorf("start: %w", err)
	}
	rdates, err := parseTimes(e.RDates, loc)
	if err != nil {
		return storage.Event{}, fmt.Errorf("rdates: %w", err)
	}
	exdates, err := parseTimes(e.ExDates, loc)
	if err != nil {
		return storage.Event{}, fmt.Errorf("exdates: %w", err)
	}
	return storage.Event{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Start:       start.In(loc),
		Recurrence:  e.Recurrence,
		RDates:      rdates,
		ExDates:     exdates,
	}, nil
}

func parseTimes(values []string, loc *time.Location) ([]time.Time, error) {
	var out []time.Time
	for _, v := range values {
		t, err := parseTime(v, loc)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// readEventFile decodes path by its extension
func readEventFile(path string, loc *time.Location) ([]storage.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return readYAML(f, loc)
	case ".ics", ".ical":
		return readICS(f)
	case ".xml", ".xcs":
		return readXCal(f)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

func readYAML(r io.Reader, loc *time.Location) ([]storage.Event, error) {
	var file eventFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	events := make([]storage.Event, 0, len(file.Events))
	for i, entry := range file.Events {
		ev, err := entry.event(loc)
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i+1, entry.Title, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func readICS(r io.Reader) ([]storage.Event, error) {
	series, err := recurrence.ReadSeries(r)
	if err != nil {
		return nil, err
	}
	events := make([]storage.Event, len(series))
	for i, s := range series {
		events[i] = storage.EventFromSeries(s)
	}
	return events, nil
}

func readXCal(r io.Reader) ([]storage.Event, error) {
	cal, err := xcal.ReadCalendar(r)
	if err != nil {
		return nil, err
	}
	var events []storage.Event
	for _, ev := range cal.Events {
		if !ev.RecurrenceID.IsZero() {
			continue
		}
		out := storage.Event{Title: ev.Summary, Start: ev.Start}
		if ev.Rule != nil {
			out.Recurrence = ev.Rule.String()
		}
		if _, err := uuid.Parse(ev.UID); err == nil {
			out.ID = ev.UID
		}
		events = append(events, out)
	}
	return events, nil
}

// importEvents stores every event, reporting each one. Invalid events are
// skipped and counted.
func importEvents(ctx context.Context, w io.Writer, store storage.Store, events []storage.Event) error {
	log := Logger()
	failed := 0
	for i := range events {
		ev := &events[i]
		if err := store.CreateEvent(ctx, ev); err != nil {
			failed++
			log.Warn("event rejected", "title", ev.Title, "error", err)
			fmt.Fprintf(w, "skipped  %s: %v\n", ev.Title, err)
			continue
		}
		fmt.Fprintf(w, "imported %s  %s\n", ev.ID, ev.Title)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d events rejected", failed, len(events))
	}
	return nil
}
