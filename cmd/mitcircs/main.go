package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mitcircs/internal/config"
	"mitcircs/internal/layout"
	"mitcircs/internal/listener"
	"mitcircs/internal/logging"
	"mitcircs/internal/pipeline"
	"mitcircs/internal/report"
	"mitcircs/internal/storage"
)

var (
	cfg     config.Config
	verbose bool

	inputPath string
	outputDir string
	writeLog  bool

	historyLimit int

	exportRunID int64
	exportOut   string

	watchDir      string
	watchInterval int
)

var rootCmd = &cobra.Command{
	Use:   "mitcircs",
	Short: "Turn mitigating circumstances survey exports into a review tracker",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if verbose {
			cfg.Verbose = true
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract one survey export into a tracker spreadsheet",
	RunE:  runExtraction,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		must(cfg.Require("DB_PATH", cfg.DBPath))
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		runs, err := db.ListRuns(historyLimit)
		if err != nil {
			return err
		}
		report.PrintRunHistory(cmd.OutOrStdout(), runs, time.Now().UTC())
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the tracker again from the records stored for a run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportRunID == 0 || strings.TrimSpace(exportOut) == "" {
			return fmt.Errorf("--run and --out are required")
		}
		must(cfg.Require("DB_PATH", cfg.DBPath))
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		lay, err := layout.Load(cfg.LayoutPath)
		must(err)
		svc := pipeline.NewProcessingService(db, cfg, lay, nil)
		n, err := svc.ExportRun(exportRunID, exportOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d students to %s\n", n, exportOut)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process new exports dropped into a directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		if watchDir != "" {
			cfg.WatchDir = watchDir
		}
		if watchInterval > 0 {
			cfg.WatchIntervalSec = watchInterval
		}
		must(cfg.Require("WATCH_DIR", cfg.WatchDir))
		must(cfg.Require("DB_PATH", cfg.DBPath))
		must(os.MkdirAll(cfg.WatchDir, 0o755))

		logger, err := logging.New(logging.Options{Verbose: cfg.Verbose})
		must(err)
		defer func() { _ = logger.Sync() }()

		lay, err := layout.Load(cfg.LayoutPath)
		must(err)
		db, err := storage.Open(cfg.DBPath)
		must(err)
		defer db.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		processor := pipeline.NewProcessingService(db, cfg, lay, logger)
		return listener.NewService(db, cfg, processor, logger).Run(ctx)
	},
}

func runExtraction(cmd *cobra.Command, args []string) error {
	opts := config.RunOptions{
		InputPath: inputPath,
		OutputDir: outputDir,
		WriteLog:  writeLog || cfg.WriteLog,
		Verbose:   cfg.Verbose,
	}
	if opts.OutputDir == "" {
		opts.OutputDir = cfg.OutputDir
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	must(cfg.Require("DB_PATH", cfg.DBPath))
	logger, err := logging.New(logging.Options{Verbose: opts.Verbose})
	must(err)
	defer func() { _ = logger.Sync() }()

	lay, err := layout.Load(cfg.LayoutPath)
	must(err)
	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	svc := pipeline.NewProcessingService(db, cfg, lay, logger)
	res, err := svc.Run(ctx, opts)
	if err != nil {
		var schemaErr *pipeline.SchemaError
		if errors.As(err, &schemaErr) {
			logger.Error("column name error", zap.String("field", schemaErr.Field), zap.String("column", schemaErr.Column))
		}
		return err
	}

	report.PrintRunSummary(cmd.OutOrStdout(), report.RunSummary{
		TraceID:     res.TraceID,
		OutputPath:  res.OutputPath,
		Students:    res.Students,
		Assessments: res.Assessments,
		Dropped:     res.Dropped,
		Took:        time.Since(start),
	}, res.Records)
	if res.LogPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "log written to %s\n", res.LogPath)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every located column and built record")

	runCmd.Flags().StringVarP(&inputPath, "input", "i", "", "survey export (.xlsx, .csv, .html or .eml)")
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default OUTPUT_DIR)")
	runCmd.Flags().BoolVar(&writeLog, "log", false, "also write a log file to the output directory")
	_ = runCmd.MarkFlagRequired("input")

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")

	exportCmd.Flags().Int64Var(&exportRunID, "run", 0, "run id")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output xlsx path")

	watchCmd.Flags().StringVar(&watchDir, "dir", "", "directory to watch (default WATCH_DIR)")
	watchCmd.Flags().IntVar(&watchInterval, "interval", 0, "seconds between scans (default WATCH_INTERVAL_SEC)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
