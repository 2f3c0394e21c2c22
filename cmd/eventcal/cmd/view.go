package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/samber/mo"
	"github.com/spf13/cobra"

	"github.com/Sahilgupta2175/event-calendar/internal/calendar"
	"github.com/Sahilgupta2175/event-calendar/internal/dateutil"
	"github.com/Sahilgupta2175/event-calendar/internal/form"
	"github.com/Sahilgupta2175/event-calendar/internal/ical"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List events, optionally filtered by category, text and date range",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var gridCmd = &cobra.Command{
	Use:   "grid [YYYY-MM]",
	Short: "Show a month as a calendar grid",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGrid,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every event as an iCalendar file",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	for _, c := range []*cobra.Command{listCmd, gridCmd} {
		c.Flags().String("category", "", "only show this category")
		c.Flags().String("search", "", "only show events whose title or description contains this text")
	}
	listCmd.Flags().String("from", "", "first date to include (YYYY-MM-DD, default today)")
	listCmd.Flags().String("to", "", "last date to include (YYYY-MM-DD)")
	listCmd.Flags().Int("days", 7, "days to show when --to is not set; 0 shows everything")

	exportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
}

func categoryFlag(cmd *cobra.Command) (mo.Option[model.Category], error) {
	raw, _ := cmd.Flags().GetString("category")
	if raw == "" || raw == "all" {
		return mo.None[model.Category](), nil
	}
	c := model.Category(raw)
	if !c.Valid() {
		return mo.None[model.Category](), fmt.Errorf("unknown category %q", raw)
	}
	return mo.Some(c), nil
}

func runList(cmd *cobra.Command, args []string) error {
	filter, err := categoryFlag(cmd)
	if err != nil {
		return err
	}
	search, _ := cmd.Flags().GetString("search")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	days, _ := cmd.Flags().GetInt("days")

	today := dateutil.Today(time.Now())
	if from == "" {
		from = dateutil.FormatDate(today)
	} else if err := form.ValidDate(from); err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	if to == "" && days > 0 {
		start, _ := dateutil.ParseDate(from)
		to = dateutil.FormatDate(dateutil.AddDays(start, days-1))
	} else if to != "" {
		if err := form.ValidDate(to); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	events := calendar.InRange(a.events.Query(filter, search), from, to)
	calendar.SortByTime(events)
	fmt.Fprint(cmd.OutOrStdout(), renderList(events))
	return nil
}

func parseMonth(arg string, now time.Time) (int, time.Month, error) {
	if arg == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", arg)
	if err != nil {
		return 0, 0, fmt.Errorf("month must be YYYY-MM, got %q", arg)
	}
	return t.Year(), t.Month(), nil
}

func runGrid(cmd *cobra.Command, args []string) error {
	filter, err := categoryFlag(cmd)
	if err != nil {
		return err
	}
	search, _ := cmd.Flags().GetString("search")

	now := time.Now()
	arg := ""
	if len(args) == 1 {
		arg = args[0]
	}
	year, month, err := parseMonth(arg, now)
	if err != nil {
		return err
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	m := calendar.Build(year, month, a.events.Query(filter, search), now)
	fmt.Fprintln(cmd.OutOrStdout(), renderGrid(m))
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	events := a.events.Snapshot().Instances
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return ical.Encode(cmd.OutOrStdout(), events, time.Now())
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := ical.Encode(f, events, time.Now()); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d events to %s\n", len(events), output)
	return nil
}
