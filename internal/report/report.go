// Package report prints run results to the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"mitcircs/internal"
)

type RunSummary struct {
	TraceID     string
	OutputPath  string
	Students    int
	Assessments int
	Dropped     int
	Took        time.Duration
}

// PrintRunSummary lists every student with the unit codes found for them.
func PrintRunSummary(w io.Writer, summary RunSummary, records []internal.StudentRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Row", "Student ID", "Name", "Division", "Assessments", "Unit Codes"})
	table.SetAutoWrapText(false)

	noAssessments := 0
	for _, rec := range records {
		codes := ""
		for i, a := range rec.Assessments {
			if i > 0 {
				codes += ", "
			}
			codes += a.UnitCode
		}
		if len(rec.Assessments) == 0 {
			noAssessments++
		}
		table.Append([]string{
			strconv.Itoa(rec.RowNo),
			rec.StudentID,
			rec.Name,
			rec.Division,
			strconv.Itoa(len(rec.Assessments)),
			codes,
		})
	}
	table.Render()

	ok := color.New(color.FgGreen)
	ok.Fprintf(w, "%s students, %s assessments written to %s\n",
		humanize.Comma(int64(summary.Students)),
		humanize.Comma(int64(summary.Assessments)),
		summary.OutputPath,
	)
	if summary.Dropped > 0 {
		fmt.Fprintf(w, "dropped %d bookkeeping row(s)\n", summary.Dropped)
	}
	if noAssessments > 0 {
		color.New(color.FgYellow).Fprintf(w, "%d student(s) with no complete assessment block, check these by hand\n", noAssessments)
	}
	fmt.Fprintf(w, "trace %s, took %s\n", summary.TraceID, summary.Took.Round(time.Millisecond))
}

// PrintRunHistory renders stored runs, newest first.
func PrintRunHistory(w io.Writer, runs []internal.RunRow, now time.Time) {
	if len(runs) == 0 {
		color.New(color.FgYellow).Fprintln(w, "no runs recorded yet")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Run", "When", "Students", "Assessments", "Input", "Output"})
	table.SetAutoWrapText(false)
	for _, run := range runs {
		table.Append([]string{
			strconv.FormatInt(run.ID, 10),
			when(run.CreatedAt, now),
			humanize.Comma(int64(run.Students)),
			humanize.Comma(int64(run.Assessments)),
			run.InputPath,
			run.OutputPath,
		})
	}
	table.Render()
}

func when(createdAt string, now time.Time) string {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, createdAt); err == nil {
			return humanize.RelTime(t, now, "ago", "from now")
		}
	}
	return createdAt
}
