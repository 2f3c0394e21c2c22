package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sahilgupta2175/event-calendar/internal/config"
	"github.com/Sahilgupta2175/event-calendar/internal/database"
	"github.com/Sahilgupta2175/event-calendar/internal/logging"
	"github.com/Sahilgupta2175/event-calendar/internal/sample"
	"github.com/Sahilgupta2175/event-calendar/internal/schedule"
	"github.com/Sahilgupta2175/event-calendar/internal/store"
)

var (
	cfgFile string
	envFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "eventcal",
	Short: "A personal event calendar with recurring events and conflict checks",
	Long: `eventcal keeps a calendar of one-off and recurring events in a local SQLite
database. Recurring events are expanded a year ahead, and overlapping events
are rejected unless you pass --force.

Run "eventcal serve" for the JSON API and live change feed, or use the
subcommands to manage events from the terminal.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/eventcal/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text or json")
	rootCmd.PersistentFlags().String("namespace", "", "storage namespace for the event collection")
	rootCmd.PersistentFlags().Int("horizon", 0, "months ahead to expand recurring events")
	rootCmd.PersistentFlags().Bool("sample-data", true,
		"let serve replace saved data with demonstration events when it is empty or lacks the demo markers; other commands never reseed")

	viper.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("namespace", rootCmd.PersistentFlags().Lookup("namespace"))
	viper.BindPFlag("horizon_months", rootCmd.PersistentFlags().Lookup("horizon"))
	viper.BindPFlag("sample_data", rootCmd.PersistentFlags().Lookup("sample-data"))

	rootCmd.AddCommand(serveCmd, addCmd, editCmd, moveCmd, deleteCmd, listCmd,
		gridCmd, exportCmd, backupCmd, restoreCmd, sampleCmd)
}

// loadConfig fills cfg and logger. Flags the user did not set fall back to
// the environment, the config file and then the defaults.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(viper.GetViper(), cfgFile, envFile)
	if err != nil {
		return err
	}
	logger = logging.Setup(cfg.LogLevel, cfg.LogFormat)
	return nil
}

// app bundles what every command that touches events needs.
type app struct {
	db     *sql.DB
	saved  *store.EventStore
	events *schedule.Store
}

// openApp opens the database and loads the events. Only seedOnStart applies
// the seed-or-load rule; otherwise saved events load as they are, so a user
// who removed the demonstration series keeps their own events.
func openApp(seedOnStart bool) (*app, error) {
	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	opts := []schedule.Option{
		schedule.WithHorizonMonths(cfg.HorizonMonths),
		schedule.WithLogger(logger.With("component", "schedule")),
	}
	if cfg.SampleData {
		opts = append(opts, schedule.WithSeeder(sample.Generator{}))
	}
	saved := store.NewEventStore(db, cfg.Namespace)
	events := schedule.New(saved, opts...)
	if seedOnStart {
		events.Init()
	} else {
		events.Load()
	}

	return &app{db: db, saved: saved, events: events}, nil
}

func (a *app) Close() {
	if err := database.Checkpoint(a.db); err != nil {
		logger.Warn("checkpoint database", "error", err)
	}
	a.db.Close()
}

// explainConflict turns a conflict into a message that tells the user how to
// proceed.
func explainConflict(err error) error {
	var ce *schedule.ConflictError
	if errors.As(err, &ce) {
		return fmt.Errorf("conflicts with %q on %s at %s (%s); pass --force to schedule it anyway",
			ce.With.Title, ce.With.Date, ce.With.Time, ce.With.ID)
	}
	return err
}
