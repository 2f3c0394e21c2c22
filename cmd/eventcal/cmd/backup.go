package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sahilgupta2175/event-calendar/internal/backup"
	"github.com/Sahilgupta2175/event-calendar/internal/store"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write an encrypted snapshot of every event",
	Long: `backup writes an AES-256-GCM encrypted snapshot to backup.dir, using a key
derived from backup.passphrase (or EVENTCAL_BACKUP_PASSPHRASE).`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent backups",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete backups older than backup.retention_days",
	Args:  cobra.NoArgs,
	RunE:  runBackupCleanup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore [file]",
	Short: "Replace every event with an encrypted snapshot (the latest by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRestore,
}

func init() {
	backupListCmd.Flags().Int("limit", 20, "number of backups to show")
	backupCmd.AddCommand(backupListCmd, backupCleanupCmd)
}

// withBackups opens the app and a backup manager over it.
func withBackups(fn func(*app, *backup.Manager) error) error {
	a, err := openApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	m := backup.NewManager(cfg.BackupManagerConfig(), store.NewBackupStore(a.db), a.events, nil,
		logger.With("component", "backup"))
	return fn(a, m)
}

func runBackup(cmd *cobra.Command, args []string) error {
	if cfg.Backup.Dir == "" || cfg.Backup.Passphrase == "" {
		return fmt.Errorf("set backup.dir and backup.passphrase to enable backups")
	}
	return withBackups(func(a *app, m *backup.Manager) error {
		b, err := m.RunNow(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backed up %d events to %s (%s)\n",
			b.EventCount, b.Path, humanize.Bytes(uint64(b.SizeBytes)))
		return nil
	})
}

func runBackupList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	return withBackups(func(a *app, m *backup.Manager) error {
		backups, err := m.List(limit)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No backups yet.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tEVENTS\tSIZE\tFILE")
		for _, b := range backups {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
				b.ID, humanize.Time(b.CreatedAt), b.Status, b.EventCount,
				humanize.Bytes(uint64(b.SizeBytes)), b.Filename)
		}
		return tw.Flush()
	})
}

func runBackupCleanup(cmd *cobra.Command, args []string) error {
	return withBackups(func(a *app, m *backup.Manager) error {
		days := cfg.Backup.RetentionDays
		if days <= 0 {
			days = backup.DefaultRetentionDays
		}
		if err := m.Cleanup(days); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed backups older than %d days\n", days)
		return nil
	})
}

func runRestore(cmd *cobra.Command, args []string) error {
	if cfg.Backup.Passphrase == "" {
		return fmt.Errorf("set backup.passphrase to decrypt backups")
	}
	return withBackups(func(a *app, m *backup.Manager) error {
		var (
			n   int
			err error
		)
		if len(args) == 1 {
			n, err = m.Restore(args[0], cfg.Backup.Passphrase)
		} else {
			n, err = m.RestoreLatest(cfg.Backup.Passphrase)
		}
		switch {
		case errors.Is(err, backup.ErrNoBackup):
			return fmt.Errorf("no completed backup to restore; pass a file path")
		case errors.Is(err, backup.ErrDecrypt):
			return fmt.Errorf("could not decrypt the backup: wrong passphrase or corrupted file")
		case err != nil:
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %d events\n", n)
		return nil
	})
}
