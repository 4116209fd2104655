// dispatchd is the dispatch optimizer CLI: run optimizations, serve
// stored results over HTTP, and generate synthetic input data.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/faiberforce/dispatch-optimizer/internal/api"
	"github.com/faiberforce/dispatch-optimizer/internal/config"
	"github.com/faiberforce/dispatch-optimizer/internal/database"
	"github.com/faiberforce/dispatch-optimizer/internal/ingest"
	"github.com/faiberforce/dispatch-optimizer/internal/seed"
	"github.com/faiberforce/dispatch-optimizer/pkg/optimizer"
)

// Exit codes for callers scripting around the CLI.
const (
	exitOK       = 0
	exitConfig   = 1
	exitIngest   = 2
	exitTraining = 3
	exitPartial  = 4
)

// exitError carries a process exit code through cobra's error path.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func fail(code int, err error) error { return &exitError{code: code, err: err} }

var (
	configPath string
	logLevel   string
)

func main() {
	// Missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "dispatchd",
		Short:         "Field-service dispatch optimizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to JSON config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")

	root.AddCommand(newOptimizeCmd(), newServeCmd(), newGenerateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		os.Exit(exitConfig)
	}
}

func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, zerolog.Nop(), fail(exitConfig, err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, zerolog.Nop(), fail(exitConfig, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err))
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()
	return cfg, logger, nil
}

func newOptimizeCmd() *cobra.Command {
	var (
		noSave         bool
		exportPath     string
		warningsPath   string
		reportPath     string
		strictTraining bool
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run one optimization over the configured inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			in, err := ingest.Load(cfg.InputDB, cfg.CSVDir, logger)
			if err != nil {
				return fail(exitIngest, err)
			}

			opts := optimizer.DefaultOptions()
			opts.Config = cfg.EngineConfig()
			opts.Policy = cfg.PolicyOptions()
			opts.Success = cfg.SuccessConfig()
			opts.Duration = cfg.DurationConfig()
			opts.Logger = logger

			res, err := optimizer.Run(ctx, in, opts)
			if err != nil {
				return fail(exitTraining, err)
			}

			if strictTraining {
				warnings := append(append([]string{}, res.SuccessStats.Warnings...), res.DurationStats.Warnings...)
				if len(warnings) > 0 {
					for _, w := range warnings {
						logger.Error().Str("warning", w).Msg("training warning under strict mode")
					}
					return fail(exitTraining, fmt.Errorf("training produced %d warning(s) under --strict-training", len(warnings)))
				}
			}

			report := optimizer.BuildReport(res)
			fmt.Println(report)

			if exportPath != "" {
				if err := ingest.ExportAssignmentsCSV(exportPath, res); err != nil {
					return fail(exitIngest, fmt.Errorf("export assignments: %w", err))
				}
				logger.Info().Str("path", exportPath).Msg("assignment export written")
			}
			if warningsPath != "" {
				if err := ingest.ExportWarningsCSV(warningsPath, res); err != nil {
					return fail(exitIngest, fmt.Errorf("export warnings: %w", err))
				}
				logger.Info().Str("path", warningsPath).Msg("warning export written")
			}
			if reportPath != "" {
				if err := os.WriteFile(reportPath, []byte(report), 0o644); err != nil {
					return fail(exitIngest, fmt.Errorf("write report: %w", err))
				}
				logger.Info().Str("path", reportPath).Msg("report written")
			}

			if !noSave {
				db, err := database.NewDatabase(cfg.ResultsDB)
				if err != nil {
					return fail(exitConfig, fmt.Errorf("open results database: %w", err))
				}
				defer db.Close()
				if err := database.NewRepository(db).SaveResult(res, report); err != nil {
					return fail(exitConfig, fmt.Errorf("save run: %w", err))
				}
				logger.Info().Str("run_id", res.RunID).Str("db", cfg.ResultsDB).Msg("run persisted")
			}

			if res.Partial {
				return fail(exitPartial, fmt.Errorf("run %s aborted, partial results only", res.RunID))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noSave, "no-save", false, "skip persisting the run to the results database")
	cmd.Flags().StringVar(&exportPath, "export", "", "write the optimized assignment table to a CSV file")
	cmd.Flags().StringVar(&warningsPath, "export-warnings", "", "write assignment warnings to a CSV file")
	cmd.Flags().StringVar(&reportPath, "report-file", "", "write the plain-text report to a file")
	cmd.Flags().BoolVar(&strictTraining, "strict-training", false, "fail the run when model training degrades")
	return cmd
}

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored optimization results over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			db, err := database.NewDatabase(cfg.ResultsDB)
			if err != nil {
				return fail(exitConfig, fmt.Errorf("open results database: %w", err))
			}
			defer db.Close()

			logger.Info().Str("port", cfg.Port).Str("db", cfg.ResultsDB).Msg("starting results API")
			srv := api.NewServer(database.NewRepository(db), cfg.Port)
			if err := srv.Start(); err != nil {
				return fail(exitConfig, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port override")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var (
		numDispatches  int
		numTechnicians int
		historyRows    int
		serviceDate    string
		outDB          string
		outCSV         string
		genSeed        int64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate synthetic input data for local runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if outDB == "" && outCSV == "" {
				return fail(exitConfig, fmt.Errorf("at least one of --out-db or --out-csv is required"))
			}

			date := time.Now().AddDate(0, 0, 1).Truncate(24 * time.Hour)
			if serviceDate != "" {
				if date, err = time.Parse("2006-01-02", serviceDate); err != nil {
					return fail(exitConfig, fmt.Errorf("invalid --date: %w", err))
				}
			}

			in := seed.NewGenerator(genSeed).Generate(numDispatches, numTechnicians, historyRows, date)
			logger.Info().
				Int("dispatches", len(in.Dispatches)).
				Int("technicians", len(in.Technicians)).
				Int("calendar_entries", len(in.Calendar)).
				Int("history_rows", len(in.History)).
				Time("service_date", date).
				Msg("synthetic data generated")

			if outDB != "" {
				if err := ingest.WriteDB(outDB, in); err != nil {
					return fail(exitIngest, err)
				}
				logger.Info().Str("path", outDB).Msg("database written")
			}
			if outCSV != "" {
				if err := ingest.WriteCSV(outCSV, in); err != nil {
					return fail(exitIngest, err)
				}
				logger.Info().Str("dir", outCSV).Msg("CSV files written")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&numDispatches, "dispatches", 120, "number of dispatches to generate")
	cmd.Flags().IntVar(&numTechnicians, "technicians", 25, "number of technicians to generate")
	cmd.Flags().IntVar(&historyRows, "history", 2000, "number of historical dispatches to generate")
	cmd.Flags().StringVar(&serviceDate, "date", "", "service date (YYYY-MM-DD), default tomorrow")
	cmd.Flags().StringVar(&outDB, "out-db", "", "write a SQLite input database at this path")
	cmd.Flags().StringVar(&outCSV, "out-csv", "", "write CSV input files into this directory")
	cmd.Flags().Int64Var(&genSeed, "seed", 42, "random seed")
	return cmd
}
