package listener

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"mitcircs/internal/config"
	"mitcircs/internal/logging"
	"mitcircs/internal/pipeline"
	"mitcircs/internal/storage"
	"mitcircs/internal/util"
)

const lastCycleKey = "watch.lastCycleAt"

type Service struct {
	db        *storage.DB
	cfg       config.Config
	processor *pipeline.ProcessingService
	logger    *zap.Logger
	// failed remembers content hashes that could not be processed so a bad
	// export is not retried every cycle.
	failed map[string]struct{}
}

func NewService(db *storage.DB, cfg config.Config, processor *pipeline.ProcessingService, logger *zap.Logger) *Service {
	logger = logging.OrNop(logger)
	return &Service{db: db, cfg: cfg, processor: processor, logger: logger, failed: map[string]struct{}{}}
}

type CycleResult struct {
	Seen      int
	Processed int
	Skipped   int
	Failed    int
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	s.logger.Info("watching for survey exports", zap.String("dir", s.cfg.WatchDir), zap.Duration("interval", interval))

	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.logger.Error("watch cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

// RunCycle processes every supported file in the watch directory whose
// content has not been recorded by an earlier run.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	entries, err := os.ReadDir(s.cfg.WatchDir)
	if err != nil {
		return res, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if ctx.Err() != nil {
			return res, nil
		}
		if entry.IsDir() || !config.IsSupportedInput(entry.Name()) {
			continue
		}
		res.Seen++
		path := filepath.Join(s.cfg.WatchDir, entry.Name())

		content, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("cannot read export", zap.String("file", path), zap.Error(err))
			res.Failed++
			continue
		}
		hash := util.SHA256Hex(content)
		if _, bad := s.failed[hash]; bad {
			res.Skipped++
			continue
		}
		prev, err := s.db.GetRunByInputHash(hash)
		if err != nil {
			return res, err
		}
		if prev != nil {
			res.Skipped++
			continue
		}

		result, err := s.processor.Run(ctx, config.RunOptions{
			InputPath: path,
			OutputDir: s.cfg.OutputDir,
			WriteLog:  s.cfg.WriteLog,
			Verbose:   s.cfg.Verbose,
		})
		if err != nil {
			s.logger.Error("export failed", zap.String("file", path), zap.Error(err))
			s.failed[hash] = struct{}{}
			res.Failed++
			continue
		}
		res.Processed++
		s.logger.Info("export processed",
			zap.String("file", path),
			zap.Int64("run", result.RunID),
			zap.Int("students", result.Students),
			zap.String("output", result.OutputPath),
		)
	}

	_ = s.db.SetMetadata(lastCycleKey, time.Now().UTC().Format(time.RFC3339))
	s.logger.Debug("watch cycle done",
		zap.Int("seen", res.Seen),
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
