package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"mitcircs/internal"
	"mitcircs/internal/layout"
	"mitcircs/internal/logging"
	"mitcircs/internal/util"
)

// SplitHeader separates the question-text row from the response rows.
func SplitHeader(table internal.Table) (internal.Row, []internal.Row) {
	if len(table.Rows) == 0 {
		return nil, nil
	}
	return table.Rows[0], table.Rows[1:]
}

// HeaderResolver finds answers by the question text above them instead of
// by column name.
type HeaderResolver struct {
	header internal.Row
	cache  map[string][]int
	logger *zap.Logger
}

func NewHeaderResolver(header internal.Row, logger *zap.Logger) *HeaderResolver {
	logger = logging.OrNop(logger)
	return &HeaderResolver{header: header, cache: map[string][]int{}, logger: logger}
}

// Indices returns the positions whose question text contains marker.
func (h *HeaderResolver) Indices(marker string) []int {
	if idx, ok := h.cache[marker]; ok {
		return idx
	}
	var idx []int
	for i, text := range h.header {
		if strings.Contains(text, marker) {
			idx = append(idx, i)
		}
	}
	h.cache[marker] = idx
	return idx
}

// Resolve returns the first answer present under a question containing
// marker, or an ellipsis when there is none.
func (h *HeaderResolver) Resolve(row internal.Row, marker string) string {
	for _, i := range h.Indices(marker) {
		cell := strings.TrimSpace(row.Cell(i))
		if !util.IsMissing(cell) {
			return cell
		}
	}
	h.logger.Debug("no answer under header", zap.String("marker", marker))
	return util.Ellipsis
}

// resolveScalarColumns maps every scalar field of the layout to one column
// index. Optional fields that are absent map to -1.
func resolveScalarColumns(columns []string, header internal.Row, lay layout.Layout, logger *zap.Logger) (map[string]int, error) {
	byName := map[string][]int{}
	for i, name := range columns {
		byName[strings.TrimSpace(name)] = append(byName[strings.TrimSpace(name)], i)
	}

	out := make(map[string]int, len(lay.Scalars))
	for _, field := range lay.Scalars {
		candidates := byName[field.Column]
		switch len(candidates) {
		case 0:
			if field.Required {
				return nil, &SchemaError{Field: field.Label, Column: field.Column}
			}
			logger.Debug("optional column not present", zap.String("field", field.Label), zap.String("column", field.Column))
			out[field.Key] = -1
		case 1:
			out[field.Key] = candidates[0]
		default:
			out[field.Key] = pickCandidate(field, candidates, header, lay.HeaderMarkers.All(), logger)
		}
	}
	return out, nil
}

// pickCandidate chooses between columns sharing a name. Columns whose question
// matches the field hint win; columns that belong to a header-resolved field
// are dropped.
func pickCandidate(field layout.ScalarField, candidates []int, header internal.Row, markers []string, logger *zap.Logger) int {
	if field.Hint != "" {
		hint := strings.ToLower(field.Hint)
		for _, i := range candidates {
			if strings.Contains(strings.ToLower(header.Cell(i)), hint) {
				return i
			}
		}
	}

	for _, i := range candidates {
		if !containsAny(header.Cell(i), markers) {
			return i
		}
	}

	logger.Warn("ambiguous column, using first match",
		zap.String("field", field.Label),
		zap.String("column", field.Column),
		zap.Ints("candidates", candidates),
	)
	return candidates[0]
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}
