package pipeline

import (
	"strings"

	"mitcircs/internal"
	"mitcircs/internal/util"
)

const (
	ColUnitCode     = "Unit Code"
	ColAssessment   = "Assessment name and submission date"
	ColResubmission = "Is this a resubmission (including date)?"
	ColOtherInfo    = "Other Assessment Info."
	ColStatus       = "Submission Status"

	pendingOutcome = "Pending Outcome..."
	pendingSend    = "Pending Send..."
)

type outputColumn struct {
	name  string
	value func(r internal.StudentRecord) string
}

func constant(s string) func(internal.StudentRecord) string {
	return func(internal.StudentRecord) string { return s }
}

func joined(pick func(a internal.AssessmentEntry) string) func(internal.StudentRecord) string {
	return func(r internal.StudentRecord) string {
		parts := make([]string, 0, len(r.Assessments))
		for _, a := range r.Assessments {
			parts = append(parts, pick(a))
		}
		return strings.Join(parts, "\n")
	}
}

// resubmissionText puts the resubmission deadline, when given, next to the answer.
func resubmissionText(a internal.AssessmentEntry) string {
	if a.ResubmissionDate == "" || a.ResubmissionDate == util.DefaultFallback {
		return a.Resubmission
	}
	return a.Resubmission + " (" + a.ResubmissionDate + ")"
}

var trackerColumns = []outputColumn{
	{"Date Submitted", func(r internal.StudentRecord) string { return r.Submitted }},
	{"Full Name", func(r internal.StudentRecord) string { return r.Name }},
	{"University Email", func(r internal.StudentRecord) string { return r.Email }},
	{"Student ID Number", func(r internal.StudentRecord) string { return r.StudentID }},
	{"Are you applying for a postgraduate dissertation or research project?", func(r internal.StudentRecord) string { return r.Postgrad }},
	{"No. Assessments/Exams", func(r internal.StudentRecord) string { return r.AssessmentCount }},
	{"Division", func(r internal.StudentRecord) string { return r.Division }},
	{"Programme", func(r internal.StudentRecord) string { return r.Programme }},
	{"Year", func(r internal.StudentRecord) string { return r.CourseYear }},
	{ColUnitCode, joined(func(a internal.AssessmentEntry) string { return a.UnitCode })},
	{ColAssessment, joined(func(a internal.AssessmentEntry) string { return a.Name })},
	{ColResubmission, joined(resubmissionText)},
	{ColOtherInfo, joined(func(a internal.AssessmentEntry) string { return a.OtherInfo })},
	{ColStatus, joined(func(a internal.AssessmentEntry) string { return a.Status })},
	{"Academic Advisor(s)", func(r internal.StudentRecord) string { return r.Advisor }},
	{"Reason for Mitigation", func(r internal.StudentRecord) string { return r.Circumstances }},
	{"Period Affected", func(r internal.StudentRecord) string { return r.PeriodAffected }},
	{"Late Application - Reason", func(r internal.StudentRecord) string { return r.LateReason }},
	{"DASS Registration", func(r internal.StudentRecord) string { return r.DASS }},
	{"Evidence Declaration", func(r internal.StudentRecord) string { return r.Evidence }},
	{"Supervisor Aware?", func(r internal.StudentRecord) string { return r.SupervisorContacted }},
	{"Supervisor Name", func(r internal.StudentRecord) string { return r.Supervisor }},
	{"Tier 4 Visa", func(r internal.StudentRecord) string { return r.Tier4Visa }},
	{"Proposed New Deadline", func(r internal.StudentRecord) string { return r.ProposedDeadline }},
	{"Evidence Summary", func(r internal.StudentRecord) string { return r.EvidenceSummary }},
	{"Outcome", constant(pendingOutcome)},
	{"Email Type", constant(util.Ellipsis)},
	{"To Be Sent By (Initials)...", constant(pendingOutcome)},
	{"Notes", constant(util.Ellipsis)},
	{"Panel Notes", constant(util.Ellipsis)},
	{"Outcome Sent to Student", constant(pendingSend)},
	{"Outcome Sent Date", constant(pendingSend)},
}

// WrappedColumns hold one line per assessment.
var WrappedColumns = map[string]struct{}{
	ColUnitCode:     {},
	ColAssessment:   {},
	ColResubmission: {},
	ColOtherInfo:    {},
	ColStatus:       {},
}

func TrackerColumns() []string {
	out := make([]string, len(trackerColumns))
	for i, c := range trackerColumns {
		out[i] = c.name
	}
	return out
}

// Project flattens records into the tracker table, one row per student in
// input order.
func Project(records []internal.StudentRecord) internal.Table {
	table := internal.Table{Columns: TrackerColumns(), Rows: make([]internal.Row, 0, len(records))}
	for _, rec := range records {
		row := make(internal.Row, len(trackerColumns))
		for i, c := range trackerColumns {
			row[i] = c.value(rec)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
