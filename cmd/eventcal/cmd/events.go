package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Sahilgupta2175/event-calendar/internal/form"
	"github.com/Sahilgupta2175/event-calendar/internal/model"
	"github.com/Sahilgupta2175/event-calendar/internal/recurrence"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an event",
	Example: `  eventcal add --title "Dentist" --date 2024-06-10 --time 14:30
  eventcal add --title Gym --date 2024-06-03 --time 18:00 --recurrence weekly --category health
  eventcal add --title "Budget review" --date 2024-06-17 --time 17:00 --recurrence custom --every 3 --unit months`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

var editCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit an event and every instance of its series",
	Long: `Edit replaces the whole series the event belongs to. Only the fields you
pass change; the rest keep their current values.`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

var moveCmd = &cobra.Command{
	Use:   "move <id> <date>",
	Short: "Move an event's series to a new start date",
	Args:  cobra.ExactArgs(2),
	RunE:  runMove,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete an event and every instance of its series",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDelete,
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Replace all events with the demonstration set",
	Args:  cobra.NoArgs,
	RunE:  runSample,
}

func init() {
	for _, c := range []*cobra.Command{addCmd, editCmd} {
		f := c.Flags()
		f.String("title", "", "event title")
		f.String("date", "", "start date (YYYY-MM-DD)")
		f.String("time", "", "start time (HH:MM)")
		f.Int("duration", model.DefaultDuration, "duration in minutes, a multiple of 15")
		f.String("description", "", "event description")
		f.String("category", string(form.DefaultCategory), "work, personal, health, social or other")
		f.String("recurrence", string(model.RecurrenceNone), "none, daily, weekly, monthly or custom")
		f.Int("every", 1, "custom recurrence interval")
		f.String("unit", string(form.DefaultUnit), "custom recurrence unit: days, weeks or months")
	}
	addCmd.MarkFlagRequired("title")
	addCmd.MarkFlagRequired("date")
	addCmd.MarkFlagRequired("time")

	for _, c := range []*cobra.Command{addCmd, editCmd, moveCmd} {
		c.Flags().Bool("force", false, "schedule even if it overlaps another event")
	}
	deleteCmd.Flags().Bool("all", false, "delete every event")
}

// applyFlags copies every flag the user set onto def. Unset flags keep the
// value already in def, so an edit only changes what was asked for.
func applyFlags(flags *pflag.FlagSet, def *model.EventDefinition) {
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if flags.Changed(name) {
			*dst, _ = flags.GetInt(name)
		}
	}

	str("title", &def.Title)
	str("date", &def.Date)
	str("time", &def.Time)
	str("description", &def.Description)
	num("duration", &def.Duration)
	num("every", &def.CustomInterval)

	var category, rec, unit string
	str("category", &category)
	str("recurrence", &rec)
	str("unit", &unit)
	if category != "" {
		def.Category = model.Category(category)
	}
	if rec != "" {
		def.Recurrence = model.Recurrence(rec)
	}
	if unit != "" {
		def.CustomUnit = model.Unit(unit)
	}
	if def.Recurrence == model.RecurrenceCustom && def.CustomInterval == 0 {
		def.CustomInterval = 1
	}
}

func runAdd(cmd *cobra.Command, args []string) error {
	var def model.EventDefinition
	applyFlags(cmd.Flags(), &def)
	def, err := normalize(def, cmd.Flags())
	if err != nil {
		return err
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	added, err := a.events.Create(def)
	if err != nil {
		return explainConflict(err)
	}
	printWritten(cmd, "Added", added)
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	existing, ok := a.events.Get(args[0])
	if !ok {
		return fmt.Errorf("no event with id %s", args[0])
	}
	def := existing.EventDefinition
	applyFlags(cmd.Flags(), &def)
	def, err = normalize(def, cmd.Flags())
	if err != nil {
		return err
	}

	updated, err := a.events.Update(model.Event{EventDefinition: def, ID: existing.ID, CreatedAt: existing.CreatedAt})
	if err != nil {
		return explainConflict(err)
	}
	printWritten(cmd, "Updated", updated)
	return nil
}

func runMove(cmd *cobra.Command, args []string) error {
	id, date := args[0], args[1]
	if err := form.ValidDate(date); err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	moved, err := a.events.Move(id, date, force)
	if err != nil {
		return explainConflict(err)
	}
	printWritten(cmd, "Moved", moved)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) == 1) {
		return fmt.Errorf("pass either an event id or --all")
	}

	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	if all {
		n := a.events.DeleteAll()
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted all %d events\n", n)
		return nil
	}

	n := a.events.Delete(args[0])
	if n == 0 {
		return fmt.Errorf("no event with id %s", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d event(s)\n", n)
	return nil
}

func runSample(cmd *cobra.Command, args []string) error {
	if !cfg.SampleData {
		return fmt.Errorf("sample data is disabled")
	}
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	n := a.events.ResetSample()
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d sample events\n", n)
	return nil
}

// normalize validates def and keeps the --force choice, which the form layer
// does not carry.
func normalize(def model.EventDefinition, flags *pflag.FlagSet) (model.EventDefinition, error) {
	out, err := form.Normalize(def)
	if err != nil {
		return out, err
	}
	out.IgnoreConflicts, _ = flags.GetBool("force")
	return out, nil
}

func printWritten(cmd *cobra.Command, verb string, events []model.Event) {
	w := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintf(w, "%s 0 events (the start date is past the horizon)\n", verb)
		return
	}
	first := events[0]
	rule := recurrence.Describe(first.EventDefinition)
	if rule == "" {
		rule = "one-off"
	}
	fmt.Fprintf(w, "%s %q (%s)\n", verb, first.Title, rule)
	if len(events) == 1 {
		fmt.Fprintf(w, "  %s  %s %s\n", first.ID, first.Date, first.Time)
		return
	}
	fmt.Fprintf(w, "  series %s: %d instances from %s to %s\n",
		first.FamilyID(), len(events), first.Date, events[len(events)-1].Date)
}
