package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/internal/async"
	"github.com/Hk-V1/consignee-renamer/internal/entity"
	"github.com/Hk-V1/consignee-renamer/internal/pipeline"
	"github.com/Hk-V1/consignee-renamer/internal/watch"
)

func watchCommand() *cobra.Command {
	var (
		outDir           string
		rulesPath        string
		mode             string
		policy           string
		workers          int
		debounce         time.Duration
		initialScan      bool
		skipUnrecognized bool
	)

	cmd := &cobra.Command{
		Use:   "watch <dir> [dir...]",
		Short: "Watch directories and process archives as they arrive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(rulesPath, mode, policy)
			if err != nil {
				return err
			}
			defer d.logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			historyRepo, closeHistory, err := openHistory(ctx, d)
			if err != nil {
				return err
			}
			defer closeHistory()

			queue := async.NewArchiveQueue(d.proc, d.logger,
				async.WithWorkers(workers),
				async.WithProcessOptions(pipeline.ProcessOptions{SkipUnrecognized: skipUnrecognized}),
				async.WithDoneFunc(func(job async.Job, records []entity.AuditRecord, summary entity.RunSummary, err error) {
					saveRunHistory(context.Background(), d, historyRepo, summary, records)
					if err != nil {
						fmt.Printf("%s: failed (%v)\n", filepath.Base(job.ArchivePath), err)
						return
					}
					fmt.Printf("%s -> %s (%d entries, %d found, %d missing)\n",
						filepath.Base(job.ArchivePath), job.OutputPath(),
						summary.Entries, summary.Found, summary.Missing)
				}),
			)

			paths, errs, err := watch.Start(ctx, watch.Config{
				Roots:        args,
				IgnoreSuffix: async.OutputSuffix,
				InitialScan:  initialScan,
				Debounce:     debounce,
			}, d.logger)
			if err != nil {
				queue.Shutdown(context.Background())
				return err
			}

			d.logger.Info("watching for archives", zap.Strings("roots", args))
			for {
				select {
				case <-ctx.Done():
					shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.Server.ShutdownTimeout)
					queue.Shutdown(shutdownCtx)
					cancel()
					return nil
				case path, ok := <-paths:
					if !ok {
						paths = nil
						continue
					}
					job := async.Job{
						ArchivePath: path,
						OutDir:      outDir,
						SubmittedAt: time.Now(),
						TraceID:     uuid.NewString(),
					}
					if err := queue.Enqueue(ctx, job); err != nil {
						d.logger.Warn("enqueue failed", zap.String("path", path), zap.Error(err))
					}
				case werr, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					d.logger.Warn("watcher error", zap.Error(werr))
				}
			}
		},
	}

	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for output archives (default: alongside each input)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "extraction rules file (default: RULES_PATH)")
	cmd.Flags().StringVar(&mode, "mode", "", "extraction mode override (line-successor or inline-capture)")
	cmd.Flags().StringVar(&policy, "policy", "", "duplicate numbering policy override (probe or occurrence)")
	cmd.Flags().IntVar(&workers, "workers", 1, "number of concurrent archive workers")
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "wait for file writes to settle before processing")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", false, "process archives already present at startup")
	cmd.Flags().BoolVar(&skipUnrecognized, "skip-unrecognized", false, "leave files with unrecognized extensions out of the output")

	return cmd
}
