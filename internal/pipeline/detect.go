package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"mitcircs/internal"
	"mitcircs/internal/logging"
)

// DropJunkRows removes survey-platform bookkeeping rows, such as the
// {"ImportId":"QID1"} row of a Qualtrics export. A row is bookkeeping only when
// every non-empty cell is a {"<marker>": ...} object, so free text that merely
// mentions the marker is kept. Row 0 holds the question text and is always kept.
func DropJunkRows(table internal.Table, marker string, logger *zap.Logger) (internal.Table, int) {
	if marker == "" || len(table.Rows) == 0 {
		return table, 0
	}
	logger = logging.OrNop(logger)

	out := internal.Table{Columns: table.Columns, Rows: make([]internal.Row, 0, len(table.Rows))}
	out.Rows = append(out.Rows, table.Rows[0])
	dropped := 0
	for i, row := range table.Rows[1:] {
		if isBookkeepingRow(row, marker) {
			dropped++
			logger.Info("dropped bookkeeping row", zap.Int("row", i+1))
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out, dropped
}

func isBookkeepingRow(row internal.Row, marker string) bool {
	prefix := `{"` + marker + `"`
	seen := false
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		if !strings.HasPrefix(cell, prefix) {
			return false
		}
		seen = true
	}
	return seen
}
