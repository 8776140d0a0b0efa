// Package layout describes where a survey export keeps each answer: the
// suffixes that identify fields inside an assessment block, the column names
// of the per-student questions, and the header phrases used when a column
// name is shared by two questions. Survey revisions move these around, so the
// defaults can be overridden from a YAML file.
package layout

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mitcircs/internal"
)

const (
	KeyName              = "name"
	KeyEmail             = "email"
	KeyStudentID         = "student_id"
	KeySubmitted         = "submitted"
	KeyPostgrad          = "postgrad"
	KeyAssessmentCount   = "assessment_count"
	KeyAdvisor           = "advisor"
	KeyMitigation        = "mitigation"
	KeyPeriodAffected    = "period_affected"
	KeyLateReason        = "late_reason"
	KeySupervisorContact = "supervisor_contact"
	KeyTier4Visa         = "tier4_visa"
	KeyProposedDeadline  = "proposed_deadline"
	KeyDASS              = "dass"
	KeyEvidenceFile      = "evidence_file"
)

type ScalarField struct {
	Key      string `yaml:"key"`
	Label    string `yaml:"label"`
	Column   string `yaml:"column"`
	Required bool   `yaml:"required"`
	// Hint picks between columns sharing a name: the column whose header
	// description contains it wins.
	Hint string `yaml:"hint"`
}

type HeaderMarkers struct {
	Programme  string `yaml:"programme"`
	Year       string `yaml:"year"`
	Evidence   string `yaml:"evidence"`
	Supervisor string `yaml:"supervisor"`
}

func (m HeaderMarkers) All() []string {
	return []string{m.Programme, m.Year, m.Evidence, m.Supervisor}
}

type Layout struct {
	BlockSuffixes  map[string]string `yaml:"block_suffixes"`
	Scalars        []ScalarField     `yaml:"scalars"`
	HeaderMarkers  HeaderMarkers     `yaml:"header_markers"`
	JunkRowMarker  string            `yaml:"junk_row_marker"`
	PreferredSheet string            `yaml:"preferred_sheet"`
}

// Default is the November 2024 survey layout.
func Default() Layout {
	return Layout{
		BlockSuffixes: map[string]string{
			internal.RoleDivision.String():         "_1",
			internal.RoleProgramme.String():        "_2",
			internal.RoleCourseYear.String():       "_3",
			internal.RoleUnitAssessment.String():   "_4",
			internal.RoleOtherInfo.String():        "_Q37",
			internal.RoleResubmission.String():     "_Q165",
			internal.RoleResubFirst.String():       "_1_TEXT",
			internal.RoleResubSecond.String():      "_3_TEXT",
			internal.RoleSubmissionStatus.String(): "_Q163",
		},
		Scalars: []ScalarField{
			{Key: KeyName, Label: "Student Name", Column: "Q1", Required: true},
			{Key: KeyEmail, Label: "Email Address", Column: "Q3", Required: true, Hint: "email"},
			{Key: KeyStudentID, Label: "Student ID", Column: "Q4", Required: true},
			{Key: KeySubmitted, Label: "Date Submitted", Column: "RecordedDate", Required: true},
			{Key: KeyPostgrad, Label: "Is Postgrad. or Research", Column: "Q150", Required: true},
			{Key: KeyAssessmentCount, Label: "Assessment Count", Column: "Q160", Required: true},
			{Key: KeyAdvisor, Label: "Advisor Name", Column: "Q17", Required: true},
			{Key: KeyMitigation, Label: "Details of Mitigation", Column: "Q19", Required: true},
			{Key: KeyPeriodAffected, Label: "Period Affected", Column: "Q20", Required: true},
			{Key: KeyLateReason, Label: "Application Outside of Deadline", Column: "Q21", Required: true},
			{Key: KeySupervisorContact, Label: "Supervisor Spoken To", Column: "Q152", Required: true},
			{Key: KeyTier4Visa, Label: "On Tier 4 Visa?", Column: "Q153", Required: true},
			{Key: KeyProposedDeadline, Label: "Proposed New Submission Date", Column: "Q151", Required: true},
			{Key: KeyDASS, Label: "DASS Registered", Column: "Q2"},
			{Key: KeyEvidenceFile, Label: "Evidence File", Column: "Q164_Name"},
		},
		HeaderMarkers: HeaderMarkers{
			Programme:  "Programme",
			Year:       "Year",
			Evidence:   "submitting evidence with your application",
			Supervisor: "Dissertation supervisor name",
		},
		JunkRowMarker:  "ImportId",
		PreferredSheet: "Sheet0",
	}
}

type fileScalar struct {
	Key      string `yaml:"key"`
	Label    string `yaml:"label"`
	Column   string `yaml:"column"`
	Required *bool  `yaml:"required"`
	Hint     string `yaml:"hint"`
}

type fileLayout struct {
	BlockSuffixes  map[string]string `yaml:"block_suffixes"`
	Scalars        []fileScalar      `yaml:"scalars"`
	HeaderMarkers  HeaderMarkers     `yaml:"header_markers"`
	JunkRowMarker  string            `yaml:"junk_row_marker"`
	PreferredSheet string            `yaml:"preferred_sheet"`
}

// Load overlays the YAML file at path on the default layout. An empty path
// returns the defaults.
func Load(path string) (Layout, error) {
	lay := Default()
	if strings.TrimSpace(path) == "" {
		return lay, nil
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read layout %s: %w", path, err)
	}
	var over fileLayout
	if err := yaml.Unmarshal(blob, &over); err != nil {
		return Layout{}, fmt.Errorf("parse layout %s: %w", path, err)
	}

	for role, suffix := range over.BlockSuffixes {
		if _, ok := lay.BlockSuffixes[role]; !ok {
			return Layout{}, fmt.Errorf("layout %s: unknown block role %q", path, role)
		}
		if suffix != "" {
			lay.BlockSuffixes[role] = suffix
		}
	}

	for _, s := range over.Scalars {
		i := lay.scalarIndex(s.Key)
		if i < 0 {
			lay.Scalars = append(lay.Scalars, ScalarField{Key: s.Key})
			i = len(lay.Scalars) - 1
		}
		f := &lay.Scalars[i]
		if s.Label != "" {
			f.Label = s.Label
		}
		if s.Column != "" {
			f.Column = s.Column
		}
		if s.Required != nil {
			f.Required = *s.Required
		}
		if s.Hint != "" {
			f.Hint = s.Hint
		}
	}

	if over.HeaderMarkers.Programme != "" {
		lay.HeaderMarkers.Programme = over.HeaderMarkers.Programme
	}
	if over.HeaderMarkers.Year != "" {
		lay.HeaderMarkers.Year = over.HeaderMarkers.Year
	}
	if over.HeaderMarkers.Evidence != "" {
		lay.HeaderMarkers.Evidence = over.HeaderMarkers.Evidence
	}
	if over.HeaderMarkers.Supervisor != "" {
		lay.HeaderMarkers.Supervisor = over.HeaderMarkers.Supervisor
	}
	if over.JunkRowMarker != "" {
		lay.JunkRowMarker = over.JunkRowMarker
	}
	if over.PreferredSheet != "" {
		lay.PreferredSheet = over.PreferredSheet
	}

	if err := lay.Validate(); err != nil {
		return Layout{}, fmt.Errorf("layout %s: %w", path, err)
	}
	return lay, nil
}

func (l Layout) Validate() error {
	for _, role := range internal.AllRoles() {
		suffix := l.BlockSuffixes[role.String()]
		if !strings.HasPrefix(suffix, "_") || len(suffix) < 2 {
			return fmt.Errorf("block suffix for %s must start with '_' (got %q)", role, suffix)
		}
	}
	seen := map[string]struct{}{}
	for _, s := range l.Scalars {
		if strings.TrimSpace(s.Key) == "" {
			return fmt.Errorf("scalar field without key")
		}
		if _, dup := seen[s.Key]; dup {
			return fmt.Errorf("scalar field %q listed twice", s.Key)
		}
		seen[s.Key] = struct{}{}
		if strings.TrimSpace(s.Column) == "" {
			return fmt.Errorf("scalar field %q has no column", s.Key)
		}
		if s.Label == "" {
			return fmt.Errorf("scalar field %q has no label", s.Key)
		}
	}
	return nil
}

func (l Layout) Suffix(role internal.FieldRole) string {
	return l.BlockSuffixes[role.String()]
}

func (l Layout) Scalar(key string) (ScalarField, bool) {
	i := l.scalarIndex(key)
	if i < 0 {
		return ScalarField{}, false
	}
	return l.Scalars[i], true
}

func (l Layout) scalarIndex(key string) int {
	for i, s := range l.Scalars {
		if s.Key == key {
			return i
		}
	}
	return -1
}
