package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vibecheck/vibecheck-dash/internal/api"
	"github.com/vibecheck/vibecheck-dash/internal/config"
	"github.com/vibecheck/vibecheck-dash/internal/export"
	"github.com/vibecheck/vibecheck-dash/internal/view"
)

var (
	exportFormat   string
	exportSeverity string
	exportOutput   string
)

var exportCmd = &cobra.Command{
	Use:   "export <assessment-id>",
	Short: "Export an assessment's findings as CSV or JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd, args[0])
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or json")
	exportCmd.Flags().StringVar(&exportSeverity, "severity", "", "only export findings of this severity")
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "write to this file instead of stdout")
}

func runExport(cmd *cobra.Command, assessmentID string) error {
	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("--format must be csv or json, got %q", exportFormat)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	client, err := api.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	items, err := client.ListFindings(ctx, assessmentID, cfg.FindingsFetchLimit)
	if err != nil {
		return err
	}
	rows := view.Visible(items, view.FindingQuery{Severity: exportSeverity, SortKey: "severity"})
	if len(rows) == 0 {
		return errors.New("no findings matched")
	}

	var payload []byte
	if exportFormat == "json" {
		payload, err = export.ToJSON(rows)
	} else {
		payload, err = export.ToCSV(rows)
	}
	if err != nil {
		return err
	}

	if exportOutput != "" {
		return os.WriteFile(exportOutput, payload, 0o644)
	}
	_, err = cmd.OutOrStdout().Write(payload)
	return err
}
