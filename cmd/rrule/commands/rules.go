package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/jakobjanot/pg-rrule/internal/xcal"
	"github.com/jakobjanot/pg-rrule/rrule"
	"github.com/spf13/cobra"
)

var ValidateCmd = &cobra.Command{
	Use:   "validate RULE...",
	Short: "Check recurrence rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout(), newEngine(), args)
	},
}

var NextCmd = &cobra.Command{
	Use:   "next RULE",
	Short: "Print the first occurrence at or after --pivot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := readQuery(cmd)
		if err != nil {
			return err
		}
		return runNext(cmd.OutOrStdout(), newEngine(), args[0], q)
	},
}

var UpcomingCmd = &cobra.Command{
	Use:   "upcoming RULE",
	Short: "Print the next N occurrences at or after --pivot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := readQuery(cmd)
		if err != nil {
			return err
		}
		n, _ := cmd.Flags().GetInt("count")
		return runUpcoming(cmd.OutOrStdout(), newEngine(), args[0], q, n)
	},
}

var BetweenCmd = &cobra.Command{
	Use:   "between RULE",
	Short: "Print every occurrence in [--start, --end]",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := readQuery(cmd)
		if err != nil {
			return err
		}
		asXCal, _ := cmd.Flags().GetBool("xcal")
		return runBetween(cmd.OutOrStdout(), newEngine(), args[0], q, asXCal)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{NextCmd, UpcomingCmd, BetweenCmd} {
		cmd.Flags().String("anchor", "", "first occurrence of the event (required)")
		cmd.MarkFlagRequired("anchor")
	}
	NextCmd.Flags().String("pivot", "", "search from this time (default now)")
	UpcomingCmd.Flags().String("pivot", "", "search from this time (default now)")
	UpcomingCmd.Flags().IntP("count", "n", 10, "number of occurrences")
	BetweenCmd.Flags().String("start", "", "range start (required)")
	BetweenCmd.Flags().String("end", "", "range end (required)")
	BetweenCmd.Flags().Bool("xcal", false, "write an RFC 6321 xCal document")
	BetweenCmd.MarkFlagRequired("start")
	BetweenCmd.MarkFlagRequired("end")
}

// query holds the time flags of a rule command
type query struct {
	anchor, pivot, start, end time.Time
}

func readQuery(cmd *cobra.Command) (query, error) {
	loc, err := location()
	if err != nil {
		return query{}, err
	}
	q := query{pivot: time.Now()}
	for name, dst := range map[string]*time.Time{
		"anchor": &q.anchor,
		"pivot":  &q.pivot,
		"start":  &q.start,
		"end":    &q.end,
	} {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		value, _ := cmd.Flags().GetString(name)
		if value == "" {
			continue
		}
		t, err := parseTime(value, loc)
		if err != nil {
			return query{}, fmt.Errorf("--%s: %w", name, err)
		}
		*dst = t
	}
	return q, nil
}

func runValidate(w io.Writer, engine *rrule.Engine, rules []string) error {
	invalid := 0
	for _, rule := range rules {
		if _, err := engine.Parse(rule); err != nil {
			invalid++
			fmt.Fprintf(w, "INVALID  %s  (%v)\n", rule, err)
			continue
		}
		fmt.Fprintf(w, "VALID    %s\n", rule)
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d rules invalid", invalid, len(rules))
	}
	return nil
}

func runNext(w io.Writer, engine *rrule.Engine, rule string, q query) error {
	next, err := engine.NextOccurrence(rule, q.pivot, q.anchor)
	if err != nil {
		return err
	}
	if t, ok := next.Get(); ok {
		fmt.Fprintln(w, t.Format(time.RFC3339))
		return nil
	}
	fmt.Fprintln(w, "none")
	return nil
}

func runUpcoming(w io.Writer, engine *rrule.Engine, rule string, q query, n int) error {
	list, err := engine.NextOccurrences(rule, q.pivot, n, q.anchor)
	if err != nil {
		return err
	}
	printTimes(w, list)
	return nil
}

func runBetween(w io.Writer, engine *rrule.Engine, rule string, q query, asXCal bool) error {
	list, err := engine.Occurrences(rule, q.start, q.end, q.anchor)
	if err != nil {
		return err
	}
	if asXCal {
		_, err := xcal.Expand("rrule-occurrences", rule, list).WriteTo(w)
		return err
	}
	printTimes(w, list)
	return nil
}

func printTimes(w io.Writer, list []time.Time) {
	for _, t := range list {
		fmt.Fprintln(w, t.Format(time.RFC3339))
	}
}
