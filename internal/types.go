package internal

import (
	"fmt"
	"strings"
)

// Row is one spreadsheet row. Cells beyond the end of the slice are absent.
type Row []string

func (r Row) Cell(idx int) string {
	if idx < 0 || idx >= len(r) {
		return ""
	}
	return r[idx]
}

// Table is a column-name row followed by data rows aligned by position.
// Column names are not unique.
type Table struct {
	Columns []string
	Rows    []Row
}

type FieldRole int

const (
	RoleDivision FieldRole = iota
	RoleProgramme
	RoleCourseYear
	RoleUnitAssessment
	RoleOtherInfo
	RoleResubmission
	RoleResubFirst
	RoleResubSecond
	RoleSubmissionStatus

	RoleCount = int(RoleSubmissionStatus) + 1
)

var roleNames = [RoleCount]string{
	"division",
	"programme",
	"course_year",
	"unit_assessment",
	"other_info",
	"resubmission",
	"resub_first",
	"resub_second",
	"submission_status",
}

func (r FieldRole) String() string {
	if int(r) < 0 || int(r) >= RoleCount {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

func AllRoles() []FieldRole {
	out := make([]FieldRole, 0, RoleCount)
	for i := 0; i < RoleCount; i++ {
		out = append(out, FieldRole(i))
	}
	return out
}

// ResponseBlock is one assessment slot of the survey: the columns sharing a
// leading number such as "6_".
type ResponseBlock struct {
	Key    string
	Number int
	fields [RoleCount]int
}

func NewResponseBlock(key string, number int) ResponseBlock {
	b := ResponseBlock{Key: key, Number: number}
	for i := range b.fields {
		b.fields[i] = -1
	}
	return b
}

func (b ResponseBlock) Index(role FieldRole) (int, bool) {
	if int(role) < 0 || int(role) >= RoleCount {
		return -1, false
	}
	idx := b.fields[role]
	return idx, idx >= 0
}

// SetIndex records the column for role. It reports false when the role is already mapped.
func (b *ResponseBlock) SetIndex(role FieldRole, idx int) bool {
	if b.fields[role] >= 0 {
		return false
	}
	b.fields[role] = idx
	return true
}

func (b ResponseBlock) Roles() []FieldRole {
	out := make([]FieldRole, 0, RoleCount)
	for i, idx := range b.fields {
		if idx >= 0 {
			out = append(out, FieldRole(i))
		}
	}
	return out
}

func (b ResponseBlock) Len() int {
	return len(b.Roles())
}

// Cells returns the row values for every mapped role, in role order.
func (b ResponseBlock) Cells(row Row) []string {
	out := make([]string, 0, RoleCount)
	for _, idx := range b.fields {
		if idx >= 0 {
			out = append(out, row.Cell(idx))
		}
	}
	return out
}

func (b ResponseBlock) Value(row Row, role FieldRole) string {
	idx, ok := b.Index(role)
	if !ok {
		return ""
	}
	return row.Cell(idx)
}

type AssessmentEntry struct {
	Block            string `json:"block"`
	UnitCode         string `json:"unitCode"`
	Name             string `json:"name"`
	OtherInfo        string `json:"otherInfo"`
	Resubmission     string `json:"resubmission"`
	ResubmissionDate string `json:"resubmissionDate"`
	Status           string `json:"status"`
}

// StudentRecord is one survey response. A student applying for several
// assessments still yields a single record.
type StudentRecord struct {
	RowNo               int               `json:"rowNo"`
	Name                string            `json:"name"`
	StudentID           string            `json:"studentId"`
	Email               string            `json:"email"`
	Submitted           string            `json:"submitted"`
	Programme           string            `json:"programme"`
	CourseYear          string            `json:"courseYear"`
	Division            string            `json:"division"`
	Postgrad            string            `json:"postgrad"`
	AssessmentCount     string            `json:"assessmentCount"`
	Circumstances       string            `json:"circumstances"`
	PeriodAffected      string            `json:"periodAffected"`
	DASS                string            `json:"dass"`
	Advisor             string            `json:"advisor"`
	LateReason          string            `json:"lateReason"`
	Evidence            string            `json:"evidence"`
	EvidenceSummary     string            `json:"evidenceSummary"`
	SupervisorContacted string            `json:"supervisorContacted"`
	Supervisor          string            `json:"supervisor"`
	Tier4Visa           string            `json:"tier4Visa"`
	ProposedDeadline    string            `json:"proposedDeadline"`
	Assessments         []AssessmentEntry `json:"assessments"`
}

func (r StudentRecord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request by student '%s' (ID: %s, DASS: %s) on year %s of programme '%s':\n", r.Name, r.StudentID, r.DASS, r.CourseYear, r.Programme)
	fmt.Fprintf(&b, "  > advisor '%s', supervisor '%s'\n", r.Advisor, r.Supervisor)
	fmt.Fprintf(&b, "  > email:        %s\n", r.Email)
	fmt.Fprintf(&b, "  > tier 4 visa:  %s\n", r.Tier4Visa)
	fmt.Fprintf(&b, "  > submitted on: %s\n", r.Submitted)
	fmt.Fprintf(&b, "dates affected: %s, due to:\n  > '%s'\n", r.PeriodAffected, r.Circumstances)
	fmt.Fprintf(&b, "assessments (%d):\n", len(r.Assessments))
	for i, a := range r.Assessments {
		fmt.Fprintf(&b, "%d. %s\n  ? unit code:     %s\n  ? resubmission:  %s\n  ? proposed date: %s\n  ? status:        %s\n",
			i+1, a.Name, a.UnitCode, a.Resubmission, a.ResubmissionDate, a.Status)
	}
	return b.String()
}

// RunRow is one stored extraction run.
type RunRow struct {
	ID          int64
	TraceID     string
	InputPath   string
	InputHash   string
	OutputPath  string
	Students    int
	Assessments int
	Timings     map[string]float64
	CreatedAt   string
}
