package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mitcircs/internal"
)

func column(t *testing.T, table internal.Table, name string) int {
	t.Helper()
	for i, c := range table.Columns {
		if c == name {
			return i
		}
	}
	t.Fatalf("column %q not found", name)
	return -1
}

func TestProjectJoinsAssessments(t *testing.T) {
	rec := internal.StudentRecord{
		Name: "Ada Lovelace",
		Assessments: []internal.AssessmentEntry{
			{UnitCode: "BIOL21111", Name: "Lab report", OtherInfo: "-", Resubmission: "No", ResubmissionDate: "None given", Status: "Pending"},
			{UnitCode: "CHEM10101", Name: "Exam", OtherInfo: "Moved", Resubmission: "Yes", ResubmissionDate: "20/12/24", Status: "Sat"},
		},
	}
	table := Project([]internal.StudentRecord{rec})
	require.Len(t, table.Rows, 1)
	row := table.Rows[0]

	assert.Equal(t, "BIOL21111\nCHEM10101", row.Cell(column(t, table, ColUnitCode)))
	assert.Equal(t, "Lab report\nExam", row.Cell(column(t, table, ColAssessment)))
	assert.Equal(t, "No\nYes (20/12/24)", row.Cell(column(t, table, ColResubmission)))
	assert.Equal(t, "-\nMoved", row.Cell(column(t, table, ColOtherInfo)))
	assert.Equal(t, "Pending\nSat", row.Cell(column(t, table, ColStatus)))
	assert.Equal(t, "Ada Lovelace", row.Cell(column(t, table, "Full Name")))
}

func TestProjectSingleEntryHasNoNewline(t *testing.T) {
	records := build(t, surveyTable([]string{"3"}, baseAnswers()))
	table := Project(records)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "BIOL21111", table.Rows[0].Cell(column(t, table, ColUnitCode)))
	assert.Equal(t, "Biology, Medicine and Health", table.Rows[0].Cell(column(t, table, "Division")))
}

func TestProjectColumnsAndPlaceholders(t *testing.T) {
	table := Project([]internal.StudentRecord{{}})
	assert.Len(t, table.Columns, 32)
	assert.Equal(t, "Date Submitted", table.Columns[0])
	assert.Equal(t, "Outcome Sent Date", table.Columns[31])

	row := table.Rows[0]
	assert.Equal(t, "Pending Outcome...", row.Cell(column(t, table, "Outcome")))
	assert.Equal(t, "Pending Outcome...", row.Cell(column(t, table, "To Be Sent By (Initials)...")))
	assert.Equal(t, "...", row.Cell(column(t, table, "Notes")))
	assert.Equal(t, "Pending Send...", row.Cell(column(t, table, "Outcome Sent to Student")))
	assert.Equal(t, "", row.Cell(column(t, table, ColUnitCode)))
}

func TestProjectEmpty(t *testing.T) {
	table := Project(nil)
	assert.Empty(t, table.Rows)
	assert.Len(t, table.Columns, 32)
}
