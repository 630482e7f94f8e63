package views

import (
	"strings"
	"time"

	"github.com/careflow/medtrack/internal/domain/medication"
)

// csvHeader is the fixed export header. Column order matches the dashboard
// table, and downstream billing tooling keys on these exact names.
const csvHeader = "Date,Name,Enrollee ID,Address,Diagnosis,Medications,Source,Status,Billed"

// ExportCSV renders the visible record list as comma-joined rows under the
// fixed header. Field values containing commas, quotes, or newlines are
// quoted per RFC 4180 so a nine-column row stays a nine-column row.
func ExportCSV(reqs []medication.Request) string {
	lines := make([]string, 0, len(reqs)+1)
	lines = append(lines, csvHeader)
	for _, req := range reqs {
		billed := "No"
		if req.Billed {
			billed = "Yes"
		}
		row := []string{
			csvField(req.Date),
			csvField(req.Name),
			csvField(req.EnrolleeID),
			csvField(req.Address),
			csvField(req.Diagnosis),
			csvField(req.Medications),
			csvField(string(req.Source)),
			csvField(string(req.Status)),
			billed,
		}
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n")
}

func csvField(v string) string {
	if strings.ContainsAny(v, ",\"\n") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}

// ExportFilename names the download after the export date.
func ExportFilename(now time.Time) string {
	return "medication-requests-" + now.Format("2006-01-02") + ".csv"
}
