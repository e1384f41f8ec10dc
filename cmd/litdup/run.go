package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"litindex/internal/metrics"
	"litindex/internal/pipeline"
	"litindex/internal/report"
)

var (
	runWorkers     int
	runReportPath  string
	runNoReport    bool
	runCompress    bool
	runMetricsAddr string
	runInstitution string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Detect near-duplicates in every eligible partition",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if runWorkers > 0 {
			cfg.Run.Workers = runWorkers
		}
		if runInstitution != "" {
			cfg.Filter.Institution = runInstitution
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		log := newLogger(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := []pipeline.RunnerOption{pipeline.WithLogger(log)}
		if runMetricsAddr != "" {
			obs := metrics.NewObserver()
			mux := http.NewServeMux()
			mux.Handle("/metrics", obs.Handler())
			srv := &http.Server{Addr: runMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Log("ERROR", "metrics", "metrics server stopped", err.Error())
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			opts = append(opts, pipeline.WithObserver(obs))
			log.Log("INFO", "metrics", "serving metrics", "addr="+runMetricsAddr+"/metrics")
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		runner, err := pipeline.NewRunner(cfg, store, store, opts...)
		if err != nil {
			return err
		}
		summary, runErr := runner.Run(ctx)

		if !runNoReport {
			path := runReportPath
			if path == "" {
				if ws, err := workspacePaths(); err == nil {
					path = ws.ReportPath(summary.RunID, summary.StartedAt, runCompress)
				}
			}
			if path != "" {
				if err := report.Write(path, summary); err != nil {
					fmt.Fprintf(os.Stderr, "%s %v\n", color.YellowString("Warning:"), err)
				} else {
					fmt.Printf("Report: %s\n", path)
				}
			}
		}

		printSummary(summary)
		return runErr
	},
}

func printSummary(s pipeline.RunSummary) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("\n%s\n", cyan("=== Run "+s.RunID+" ==="))
	fmt.Printf("  Partitions: %s, %s, %s\n",
		green(fmt.Sprintf("%d succeeded", s.Succeeded)),
		yellow(fmt.Sprintf("%d skipped", s.Skipped)),
		red(fmt.Sprintf("%d failed", s.Failed)))
	fmt.Printf("  Candidates: %d\n", s.Candidates)
	fmt.Printf("  Records:    %d\n", s.Records)
	if !s.FinishedAt.IsZero() {
		fmt.Printf("  Duration:   %v\n", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	}
	for _, p := range s.Partitions {
		switch p.Status {
		case pipeline.StatusSkipped:
			fmt.Printf("  %s %s: %s\n", yellow("○"), p.Key, p.Reason)
		case pipeline.StatusFailed:
			fmt.Printf("  %s %s: %s\n", red("✗"), p.Key, p.Reason)
		}
	}
}

func init() {
	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", 0, "partition workers (default: config or NumCPU)")
	runCmd.Flags().StringVar(&runReportPath, "report", "", "write the run report here (default: workspace reports dir)")
	runCmd.Flags().BoolVar(&runNoReport, "no-report", false, "do not write a run report")
	runCmd.Flags().BoolVar(&runCompress, "compress", true, "zstd-compress the default workspace report")
	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	runCmd.Flags().StringVar(&runInstitution, "institution", "", "only process this institution")
	rootCmd.AddCommand(runCmd)
}
