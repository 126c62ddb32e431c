// Package export serializes the visible findings slice for download. Both
// formatters are pure functions of their input rows.
package export

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/vibecheck/vibecheck-dash/internal/api"
)

// ErrEmptySelection is returned when nothing is exportable: no assessment is
// selected or the current filters leave no rows.
var ErrEmptySelection = errors.New("no findings to export for the current selection")

// csvHeader is the fixed column order of the CSV export.
var csvHeader = []string{
	"id", "severity", "category", "title", "agent",
	"location", "created_at", "description", "remediation",
}

// ToCSV renders the rows as CSV with a header line. Every field is quoted,
// embedded quotes doubled.
func ToCSV(rows []api.Finding) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySelection
	}

	var b strings.Builder
	writeCSVLine(&b, csvHeader)
	for _, f := range rows {
		writeCSVLine(&b, []string{
			f.ID,
			f.Severity,
			f.Category,
			f.Title,
			f.Agent,
			f.Location.Text(),
			formatTime(f.CreatedAt),
			f.Description,
			f.Remediation,
		})
	}
	return []byte(b.String()), nil
}

func writeCSVLine(b *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ToJSON renders the rows as indented JSON.
func ToJSON(rows []api.Finding) ([]byte, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySelection
	}
	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// Filename builds the download attachment name for an export.
func Filename(assessmentID, ext string, now time.Time) string {
	stamp := now.UTC().Format("2006-01-02T15-04-05Z")
	return "findings-" + assessmentID + "-" + stamp + "." + ext
}
