package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mitcircs/internal"
	"mitcircs/internal/config"
	"mitcircs/internal/layout"
	"mitcircs/internal/storage"
)

func testConfig() config.Config {
	return config.Config{MinimumRequiredResponses: 4, MaxBlockNumber: 100, WrapPadding: 10}
}

func writeExport(t *testing.T, dir string, table internal.Table) string {
	t.Helper()
	rows := tableRows(table)
	junk := make([]string, len(table.Columns))
	for i := range junk {
		junk[i] = `{"ImportId":"QID` + table.Columns[i] + `"}`
	}
	rows = append(rows[:2], append([][]string{junk}, rows[2:]...)...)

	path := filepath.Join(dir, "export.xlsx")
	require.NoError(t, os.WriteFile(path, mkXLSX("Sheet0", rows), 0o644))
	return path
}

func TestProcessingServiceRun(t *testing.T) {
	dir := t.TempDir()
	second := with(baseAnswers(), "Q1", "Grace Hopper", "Q4", "10999999",
		"6_1", "Humanities", "6_2", "BA English", "6_3", "1", "6_4", "ENGL10001 essay")
	input := writeExport(t, dir, surveyTable([]string{"3", "6"}, baseAnswers(), second))

	db, err := storage.Open(filepath.Join(dir, "data", "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	svc := NewProcessingService(db, testConfig(), layout.Default(), nil)
	svc.now = func() time.Time { return time.Date(2024, time.November, 5, 9, 0, 0, 0, time.UTC) }

	out := filepath.Join(dir, "out")
	res, err := svc.Run(context.Background(), config.RunOptions{InputPath: input, OutputDir: out})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Students)
	assert.Equal(t, 3, res.Assessments)
	assert.Equal(t, 1, res.Dropped)
	assert.NotEmpty(t, res.TraceID)
	assert.Equal(t, filepath.Join(out, "Mitigating Circumstances Tracker - 2 Students - 05-November-2024.xlsx"), res.OutputPath)

	f, err := excelize.OpenFile(res.OutputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Mitigating Circumstances (2)")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Grace Hopper", rows[2][1])
	assert.Equal(t, "BIOL21111\nENGL10001", rows[2][9])

	run, err := db.GetRunByInputHash(res.InputHash)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, res.RunID, run.ID)
	assert.Equal(t, 3, run.Assessments)
	assert.Contains(t, run.Timings, "totalMs")

	stored, err := db.GetRunRecords(res.RunID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "10999999", stored[1].StudentID)

	again := filepath.Join(dir, "again.xlsx")
	n, err := svc.ExportRun(res.RunID, again)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = os.Stat(again)
	require.NoError(t, err)
}

func TestProcessingServiceRunWithoutDB(t *testing.T) {
	dir := t.TempDir()
	input := writeExport(t, dir, surveyTable([]string{"3"}, baseAnswers()))

	svc := NewProcessingService(nil, testConfig(), layout.Default(), nil)
	res, err := svc.Run(context.Background(), config.RunOptions{InputPath: input, OutputDir: dir})
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RunID)
	assert.Equal(t, 1, res.Students)

	_, err = svc.ExportRun(1, filepath.Join(dir, "x.xlsx"))
	require.Error(t, err)
}

func TestProcessingServiceRunSchemaError(t *testing.T) {
	dir := t.TempDir()
	table := withoutColumn(surveyTable([]string{"3"}, baseAnswers()), "Q4")
	input := writeExport(t, dir, table)

	svc := NewProcessingService(nil, testConfig(), layout.Default(), nil)
	_, err := svc.Run(context.Background(), config.RunOptions{InputPath: input, OutputDir: filepath.Join(dir, "out")})
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProcessingServiceRunCancelled(t *testing.T) {
	dir := t.TempDir()
	input := writeExport(t, dir, surveyTable([]string{"3"}, baseAnswers()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewProcessingService(nil, testConfig(), layout.Default(), nil)
	_, err := svc.Run(ctx, config.RunOptions{InputPath: input, OutputDir: dir})
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessingServiceRunWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	input := writeExport(t, dir, surveyTable([]string{"3"}, baseAnswers()))

	svc := NewProcessingService(nil, testConfig(), layout.Default(), nil)
	svc.now = func() time.Time { return time.Date(2024, time.November, 5, 9, 7, 3, 0, time.UTC) }

	out := filepath.Join(dir, "out")
	res, err := svc.Run(context.Background(), config.RunOptions{InputPath: input, OutputDir: out, WriteLog: true, Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "MitCircLog_09-07-03_05-11-2024.txt"), res.LogPath)

	blob, err := os.ReadFile(res.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(blob), "run finished")
	assert.Contains(t, string(blob), "dropped bookkeeping row")
	assert.Contains(t, string(blob), res.TraceID)
}

func TestProcessingServiceRunNoLogFileByDefault(t *testing.T) {
	dir := t.TempDir()
	input := writeExport(t, dir, surveyTable([]string{"3"}, baseAnswers()))

	svc := NewProcessingService(nil, testConfig(), layout.Default(), nil)
	out := filepath.Join(dir, "out")
	res, err := svc.Run(context.Background(), config.RunOptions{InputPath: input, OutputDir: out})
	require.NoError(t, err)
	assert.Empty(t, res.LogPath)

	logs, err := filepath.Glob(filepath.Join(out, "MitCircLog_*.txt"))
	require.NoError(t, err)
	assert.Empty(t, logs)
}
