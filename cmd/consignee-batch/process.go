package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Hk-V1/consignee-renamer/internal/async"
	"github.com/Hk-V1/consignee-renamer/internal/common"
	"github.com/Hk-V1/consignee-renamer/internal/pipeline"
	"github.com/Hk-V1/consignee-renamer/internal/report"
)

func processCommand() *cobra.Command {
	var (
		out              string
		rulesPath        string
		mode             string
		policy           string
		skipUnrecognized bool
		reportFormat     string
		reportOut        string
	)

	cmd := &cobra.Command{
		Use:   "process <archive.zip>",
		Short: "Process one archive and write the renamed copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := common.NewValidator()
			v.Field("report", reportFormat, common.OneOf("table", "csv", "xlsx", "none"))
			if v.HasErrors() {
				return v.Error()
			}

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

			archivePath := args[0]
			outPath := out
			if outPath == "" {
				outPath = async.Job{ArchivePath: archivePath}.OutputPath()
			}

			records, summary, runErr := d.proc.Execute(ctx, archivePath, outPath, pipeline.ProcessOptions{
				SkipUnrecognized: skipUnrecognized,
			})
			saveRunHistory(ctx, d, historyRepo, summary, records)
			if runErr != nil {
				return runErr
			}

			svc := report.NewService(d.logger)
			switch reportFormat {
			case "table":
				fmt.Print(svc.RenderTable(records))
			case "csv", "xlsx":
				target := reportOut
				if target == "" {
					target = strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".report." + reportFormat
				}
				var data []byte
				if reportFormat == "csv" {
					data, err = svc.ExportCSV(records)
				} else {
					data, err = svc.ExportXLSX(records, summary)
				}
				if err != nil {
					return fmt.Errorf("rendering report: %w", err)
				}
				if err := os.WriteFile(target, data, 0o644); err != nil {
					return fmt.Errorf("writing report: %w", err)
				}
				fmt.Printf("Report written to %s\n", target)
			}

			fmt.Printf("Processing complete!\n")
			fmt.Printf("- Entries: %d\n", summary.Entries)
			fmt.Printf("- Consignee found: %d\n", summary.Found)
			fmt.Printf("- Not found: %d\n", summary.Missing)
			fmt.Printf("- Output: %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "output archive path (default: alongside the input)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "extraction rules file (default: RULES_PATH)")
	cmd.Flags().StringVar(&mode, "mode", "", "extraction mode override (line-successor or inline-capture)")
	cmd.Flags().StringVar(&policy, "policy", "", "duplicate numbering policy override (probe or occurrence)")
	cmd.Flags().BoolVar(&skipUnrecognized, "skip-unrecognized", false, "leave files with unrecognized extensions out of the output")
	cmd.Flags().StringVar(&reportFormat, "report", "table", "report format: table, csv, xlsx, or none")
	cmd.Flags().StringVar(&reportOut, "report-out", "", "report file path for csv/xlsx (default: alongside the output)")

	return cmd
}
