package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"mitcircs/internal"
)

func init() {
	color.NoColor = true
}

func TestPrintRunSummary(t *testing.T) {
	records := []internal.StudentRecord{
		{RowNo: 1, StudentID: "10234567", Name: "Ada Lovelace", Division: "Biology", Assessments: []internal.AssessmentEntry{{UnitCode: "BIOL21111"}, {UnitCode: "CHEM10101"}}},
		{RowNo: 2, StudentID: "10999999", Name: "Grace Hopper", Division: "None provided"},
	}
	var buf bytes.Buffer
	PrintRunSummary(&buf, RunSummary{TraceID: "abc", OutputPath: "/out/t.xlsx", Students: 2, Assessments: 2, Dropped: 1, Took: 1500 * time.Millisecond}, records)

	out := buf.String()
	assert.Contains(t, out, "BIOL21111, CHEM10101")
	assert.Contains(t, out, "2 students, 2 assessments written to /out/t.xlsx")
	assert.Contains(t, out, "1 student(s) with no complete assessment block")
	assert.Contains(t, out, "dropped 1 bookkeeping row(s)")
	assert.Contains(t, out, "trace abc, took 1.5s")
}

func TestPrintRunHistory(t *testing.T) {
	now := time.Date(2024, time.November, 5, 12, 0, 0, 0, time.UTC)
	runs := []internal.RunRow{{ID: 7, CreatedAt: "2024-11-05 10:00:00", Students: 1200, Assessments: 3, InputPath: "in.xlsx", OutputPath: "out.xlsx"}}

	var buf bytes.Buffer
	PrintRunHistory(&buf, runs, now)
	out := buf.String()
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "2 hours ago")

	buf.Reset()
	PrintRunHistory(&buf, nil, now)
	assert.Contains(t, buf.String(), "no runs recorded yet")
}
