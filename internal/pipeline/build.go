package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"mitcircs/internal"
	"mitcircs/internal/layout"
	"mitcircs/internal/logging"
	"mitcircs/internal/util"
)

const (
	// Division of a record with no filled block, so the Division column is
	// never blank.
	noDivision = "None provided"
	notDASS    = "False"
)

// IsBlockFilled reports whether at least minimum of the block cells hold an
// answer. A minimum larger than the block is clamped to the block size.
func IsBlockFilled(cells []string, minimum int) bool {
	if minimum > len(cells) {
		minimum = len(cells)
	}
	provided := 0
	for _, c := range cells {
		if !util.IsMissing(strings.TrimSpace(c)) {
			provided++
		}
	}
	return provided >= minimum
}

type Builder struct {
	layout          layout.Layout
	minimumRequired int
	maxBlockNumber  int
	logger          *zap.Logger
}

func NewBuilder(lay layout.Layout, minimumRequired, maxBlockNumber int, logger *zap.Logger) *Builder {
	logger = logging.OrNop(logger)
	return &Builder{layout: lay, minimumRequired: minimumRequired, maxBlockNumber: maxBlockNumber, logger: logger}
}

// Build turns every response row into one StudentRecord. It fails only when a
// required column is missing from the export.
func (b *Builder) Build(table internal.Table) ([]internal.StudentRecord, error) {
	header, responses := SplitHeader(table)

	columns, err := resolveScalarColumns(table.Columns, header, b.layout, b.logger)
	if err != nil {
		return nil, err
	}
	blocks := LocateBlocks(table.Columns, b.layout, b.maxBlockNumber, b.logger)
	for _, blk := range blocks {
		if b.minimumRequired > blk.Len() {
			b.logger.Warn("minimum responses exceeds block size, clamping",
				zap.String("block", blk.Key),
				zap.Int("minimum", b.minimumRequired),
				zap.Int("fields", blk.Len()),
			)
		}
	}
	resolver := NewHeaderResolver(header, b.logger)

	records := make([]internal.StudentRecord, 0, len(responses))
	for i, row := range responses {
		rec := b.buildRecord(i+1, row, columns, blocks, resolver)
		b.logger.Debug(rec.String())
		records = append(records, rec)
	}
	b.logger.Info("built student records", zap.Int("students", len(records)))
	return records, nil
}

func (b *Builder) buildRecord(rowNo int, row internal.Row, columns map[string]int, blocks BlockLayout, resolver *HeaderResolver) internal.StudentRecord {
	scalar := func(key string) string {
		idx, ok := columns[key]
		if !ok || idx < 0 {
			return util.DefaultFallback
		}
		return util.Normalize(strings.TrimSpace(row.Cell(idx)), util.DefaultFallback)
	}
	markers := b.layout.HeaderMarkers

	rec := internal.StudentRecord{
		RowNo:               rowNo,
		Name:                scalar(layout.KeyName),
		StudentID:           scalar(layout.KeyStudentID),
		Email:               scalar(layout.KeyEmail),
		Submitted:           scalar(layout.KeySubmitted),
		Programme:           resolver.Resolve(row, markers.Programme),
		CourseYear:          resolver.Resolve(row, markers.Year),
		Postgrad:            scalar(layout.KeyPostgrad),
		AssessmentCount:     scalar(layout.KeyAssessmentCount),
		Circumstances:       scalar(layout.KeyMitigation),
		PeriodAffected:      scalar(layout.KeyPeriodAffected),
		DASS:                dassStatus(row, columns),
		Advisor:             scalar(layout.KeyAdvisor),
		LateReason:          scalar(layout.KeyLateReason),
		Evidence:            resolver.Resolve(row, markers.Evidence),
		EvidenceSummary:     evidenceSummary(row, columns),
		SupervisorContacted: scalar(layout.KeySupervisorContact),
		Supervisor:          resolver.Resolve(row, markers.Supervisor),
		Tier4Visa:           scalar(layout.KeyTier4Visa),
		ProposedDeadline:    scalar(layout.KeyProposedDeadline),
		Division:            noDivision,
	}

	divisionSet := false
	for _, blk := range blocks {
		if !IsBlockFilled(blk.Cells(row), b.minimumRequired) {
			continue
		}
		// Every block repeats the division, so the first filled block decides it.
		if !divisionSet {
			rec.Division = util.Normalize(strings.TrimSpace(blk.Value(row, internal.RoleDivision)), noDivision)
			divisionSet = true
		}
		rec.Assessments = append(rec.Assessments, buildEntry(blk, row))
	}
	return rec
}

func buildEntry(blk internal.ResponseBlock, row internal.Row) internal.AssessmentEntry {
	field := func(role internal.FieldRole) string {
		return strings.TrimSpace(blk.Value(row, role))
	}

	unit := field(internal.RoleUnitAssessment)
	code := util.DefaultFallback
	if !util.IsMissing(unit) {
		code = util.ExtractUnitCode(unit)
	}

	date := util.FirstPresent(field(internal.RoleResubFirst), field(internal.RoleResubSecond))

	return internal.AssessmentEntry{
		Block:            blk.Key,
		UnitCode:         code,
		Name:             util.Normalize(unit, util.DefaultFallback),
		OtherInfo:        util.Normalize(field(internal.RoleOtherInfo), "-"),
		Resubmission:     util.Normalize(field(internal.RoleResubmission), util.DefaultFallback),
		ResubmissionDate: util.Normalize(date, util.DefaultFallback),
		Status:           util.Normalize(field(internal.RoleSubmissionStatus), util.DefaultFallback),
	}
}

func dassStatus(row internal.Row, columns map[string]int) string {
	idx, ok := columns[layout.KeyDASS]
	if !ok || idx < 0 {
		return notDASS
	}
	cell := strings.TrimSpace(row.Cell(idx))
	if util.IsMissing(cell) || cell == "0" {
		return notDASS
	}
	return cell
}

func evidenceSummary(row internal.Row, columns map[string]int) string {
	idx, ok := columns[layout.KeyEvidenceFile]
	if !ok || idx < 0 {
		return util.Ellipsis
	}
	return util.Normalize(strings.TrimSpace(row.Cell(idx)), util.Ellipsis)
}
