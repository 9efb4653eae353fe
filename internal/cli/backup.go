package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/asteroid-belt/spellbook/internal/backup"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Back up all spellbooks to a JSON file",
	Long: `Export every spellbook to a versioned JSON backup named
spellbooks-backup-YYYY-MM-DD.json.

The backup goes to the configured backup directory unless --dir is given. With
--s3-bucket (or backup.s3.bucket in config.yaml) it is uploaded to S3 instead,
using the default AWS credential chain.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore spellbooks from a JSON backup",
	Long: `Import spellbooks from a backup created by 'spellbook export'.

Spellbooks whose id already exists are skipped. Records that fail validation
are reported and the rest are still imported.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	exportDir      string
	exportBucket   string
	exportPrefix   string
	exportToStdout bool
)

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "Directory to write the backup to (default: <data dir>/backups)")
	exportCmd.Flags().StringVar(&exportBucket, "s3-bucket", "", "Upload the backup to this S3 bucket")
	exportCmd.Flags().StringVar(&exportPrefix, "s3-prefix", "", "Key prefix inside the S3 bucket")
	exportCmd.Flags().BoolVar(&exportToStdout, "stdout", false, "Print the backup instead of writing a file")
}

func runExport(cmd *cobra.Command, args []string) error {
	const name = "export"
	ctx := cmd.Context()

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	if exportToStdout {
		doc, err := a.backup.Export(ctx)
		if err != nil {
			return trackCLIError(name, err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), doc)
		return nil
	}

	var sink backup.Sink
	s3cfg := a.cfg.Backup.S3
	if exportBucket != "" {
		s3cfg.Bucket = exportBucket
	}
	if exportPrefix != "" {
		s3cfg.Prefix = exportPrefix
	}

	switch {
	case exportDir != "":
		sink = backup.FileSink{Dir: exportDir}
	case s3cfg.Enabled():
		s3Sink, err := backup.NewS3Sink(ctx, backup.S3Config{
			Bucket:    s3cfg.Bucket,
			Prefix:    s3cfg.Prefix,
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			PathStyle: s3cfg.PathStyle,
		})
		if err != nil {
			return trackCLIError(name, err)
		}
		sink = s3Sink
	default:
		sink = backup.FileSink{Dir: a.cfg.Backup.Dir}
	}

	location, err := a.backup.DownloadAsFile(ctx, sink)
	if err != nil {
		return trackCLIError(name, err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✓ Backup written to "+location))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	const name = "import"

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	result, err := a.backup.ImportFile(cmd.Context(), args[0])
	if err != nil {
		return trackCLIError(name, err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ Imported %d spellbooks", result.Imported)))
	if result.Skipped > 0 {
		_, _ = fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("  %d already present, skipped", result.Skipped)))
	}
	if len(result.Errors) > 0 {
		_, _ = fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("! %d could not be imported:", len(result.Errors))))
		_, _ = fmt.Fprintln(out, "  "+strings.Join(result.Errors, "\n  "))
	}
	return nil
}
