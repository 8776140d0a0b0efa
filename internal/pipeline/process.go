package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"mitcircs/internal"
	"mitcircs/internal/config"
	"mitcircs/internal/layout"
	"mitcircs/internal/logging"
	"mitcircs/internal/storage"
	"mitcircs/internal/util"
)

type ProcessingService struct {
	db     *storage.DB
	cfg    config.Config
	layout layout.Layout
	logger *zap.Logger
	now    func() time.Time
}

// NewProcessingService wires a run pipeline. db may be nil, in which case
// runs are not recorded.
func NewProcessingService(db *storage.DB, cfg config.Config, lay layout.Layout, logger *zap.Logger) *ProcessingService {
	logger = logging.OrNop(logger)
	return &ProcessingService{db: db, cfg: cfg, layout: lay, logger: logger, now: time.Now}
}

type RunResult struct {
	RunID       int64
	TraceID     string
	InputHash   string
	OutputPath  string
	LogPath     string
	Students    int
	Assessments int
	Dropped     int
	Records     []internal.StudentRecord
}

func (s *ProcessingService) Run(ctx context.Context, opts config.RunOptions) (RunResult, error) {
	start := time.Now()
	if err := opts.Validate(); err != nil {
		return RunResult{}, err
	}
	traceID := uuid.New().String()
	logger := s.logger
	logPath := ""
	if opts.WriteLog {
		runLog, err := logging.OpenRunLog(opts.OutputDir, opts.Verbose, s.now())
		if err != nil {
			return RunResult{}, errors.Wrap(err, "run log")
		}
		defer runLog.Close()
		logger = runLog.Tee(logger)
		logPath = runLog.Path
	}
	log := logger.With(zap.String("trace", traceID))
	log.Info("run started", zap.String("input", opts.InputPath), zap.String("output", opts.OutputDir))
	if logPath != "" {
		log.Info("writing log", zap.String("path", logPath))
	}

	table, content, err := ReadTable(opts.InputPath, s.layout.PreferredSheet)
	if err != nil {
		log.Error("read failed", zap.Error(err))
		return RunResult{}, err
	}
	readDone := time.Now()

	table, dropped := DropJunkRows(table, s.layout.JunkRowMarker, log)
	if err := ctx.Err(); err != nil {
		return RunResult{}, err
	}

	builder := NewBuilder(s.layout, s.cfg.MinimumRequiredResponses, s.cfg.MaxBlockNumber, log)
	records, err := builder.Build(table)
	if err != nil {
		log.Error("extraction failed", zap.Error(err))
		return RunResult{}, err
	}
	buildDone := time.Now()

	outputPath := OutputFilename(opts.OutputDir, len(records), s.now())
	if err := WriteTrackerXLSX(Project(records), outputPath, s.cfg.WrapPadding, log); err != nil {
		return RunResult{}, err
	}
	writeDone := time.Now()

	result := RunResult{
		TraceID:     traceID,
		InputHash:   util.SHA256Hex(content),
		OutputPath:  outputPath,
		LogPath:     logPath,
		Students:    len(records),
		Assessments: countAssessments(records),
		Dropped:     dropped,
		Records:     records,
	}

	if s.db != nil {
		runID, err := s.db.InsertRun(internal.RunRow{
			TraceID:     traceID,
			InputPath:   opts.InputPath,
			InputHash:   result.InputHash,
			OutputPath:  outputPath,
			Students:    result.Students,
			Assessments: result.Assessments,
			Timings: map[string]float64{
				"readMs":  float64(readDone.Sub(start).Milliseconds()),
				"buildMs": float64(buildDone.Sub(readDone).Milliseconds()),
				"writeMs": float64(writeDone.Sub(buildDone).Milliseconds()),
				"totalMs": float64(time.Since(start).Milliseconds()),
			},
		})
		if err != nil {
			return RunResult{}, errors.Wrap(err, "record run")
		}
		if err := s.db.InsertRecords(runID, records); err != nil {
			return RunResult{}, errors.Wrap(err, "record students")
		}
		result.RunID = runID
	}

	log.Info("run finished",
		zap.Int("students", result.Students),
		zap.Int("assessments", result.Assessments),
		zap.String("output", outputPath),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

// ExportRun writes the tracker again from the records stored for runID.
func (s *ProcessingService) ExportRun(runID int64, outputPath string) (int, error) {
	if s.db == nil {
		return 0, fmt.Errorf("no database configured")
	}
	run, err := s.db.GetRun(runID)
	if err != nil {
		return 0, err
	}
	if run == nil {
		return 0, fmt.Errorf("run not found: id=%d", runID)
	}
	records, err := s.db.GetRunRecords(runID)
	if err != nil {
		return 0, err
	}
	if err := WriteTrackerXLSX(Project(records), outputPath, s.cfg.WrapPadding, s.logger); err != nil {
		return 0, err
	}
	return len(records), nil
}

func countAssessments(records []internal.StudentRecord) int {
	n := 0
	for _, r := range records {
		n += len(r.Assessments)
	}
	return n
}
