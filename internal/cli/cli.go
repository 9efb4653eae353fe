// Package cli provides the command-line interface for spellbook.
package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/spellbook/internal/backup"
	"github.com/asteroid-belt/spellbook/internal/catalog"
	"github.com/asteroid-belt/spellbook/internal/db"
	"github.com/asteroid-belt/spellbook/internal/spellbooks"
	"github.com/asteroid-belt/spellbook/internal/telemetry"
	"github.com/asteroid-belt/spellbook/pkg/version"
)

var telemetryClient = telemetry.Noop()

var commandStartTime time.Time

var rootCmd = &cobra.Command{
	Use:   "spellbook",
	Short: "Spell catalog and spellbook manager",
	Long: `Spell catalog and spellbook manager

Browse and search a bundled catalog of tabletop RPG spells, and keep named
spellbooks of spell references with prepared flags and notes. Everything is
stored locally in a single SQLite file.

Telemetry:
  Telemetry is anonymous and never records spell notes, spellbook names or
  IP addresses.

  Opt-out with:
  	SPELLBOOK_TELEMETRY_TRACKING_ENABLED=false`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commandStartTime = time.Now()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() != "spellbook" {
			durationMs := time.Since(commandStartTime).Milliseconds()
			hasFlags := cmd.Flags().NFlag() > 0
			telemetryClient.TrackCLICommandExecuted(cmd.CommandPath(), hasFlags, durationMs)
		}
	},
}

func init() {
	rootCmd.AddCommand(spellsCmd)
	rootCmd.AddCommand(booksCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute runs the CLI with fang enhancements.
func Execute(ctx context.Context, tc telemetry.Client) error {
	if tc == nil {
		tc = telemetry.Noop()
	}
	telemetryClient = tc

	return fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Short()),
		fang.WithCommit(version.Commit),
	)
}

// trackCLIError wraps an error with telemetry tracking.
// Call this before returning errors from CLI commands.
func trackCLIError(cmdName string, err error) error {
	if err == nil {
		return nil
	}
	errorType := classifyError(err)
	telemetryClient.TrackCLIError(cmdName, errorType)
	return err
}

// classifyError determines the error type for telemetry.
func classifyError(err error) string {
	var (
		loadErr    *catalog.LoadError
		catParse   *catalog.ParseError
		bkParse    *backup.ParseError
		versionErr *backup.VersionMismatchError
	)
	switch {
	case spellbooks.IsValidationError(err):
		return "validation_error"
	case errors.Is(err, db.ErrSpellbookNotFound):
		return "not_found_error"
	case errors.As(err, &loadErr):
		return "catalog_error"
	case errors.As(err, &catParse), errors.As(err, &bkParse), errors.As(err, &versionErr),
		errors.Is(err, backup.ErrInvalidFormat), errors.Is(err, backup.ErrFileTooLarge):
		return "validation_error"
	}

	errStr := err.Error()
	switch {
	case containsAny(errStr, "config", "configuration"):
		return "config_error"
	case containsAny(errStr, "database", "db"):
		return "database_error"
	case containsAny(errStr, "network", "timeout", "connection"):
		return "network_error"
	case containsAny(errStr, "permission", "access denied"):
		return "permission_error"
	case containsAny(errStr, "not found", "does not exist"):
		return "not_found_error"
	case containsAny(errStr, "invalid", "parse", "format"):
		return "validation_error"
	default:
		return "unknown_error"
	}
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
