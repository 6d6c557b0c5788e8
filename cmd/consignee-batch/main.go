// Command consignee-batch processes archives of shipping documents from the
// command line, either one at a time or by watching directories.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/constants"
	"github.com/Hk-V1/consignee-renamer/internal/acquire"
	"github.com/Hk-V1/consignee-renamer/internal/common"
	"github.com/Hk-V1/consignee-renamer/internal/entity"
	"github.com/Hk-V1/consignee-renamer/internal/extract"
	"github.com/Hk-V1/consignee-renamer/internal/metrics"
	"github.com/Hk-V1/consignee-renamer/internal/pipeline"
	"github.com/Hk-V1/consignee-renamer/internal/repository"
	"github.com/Hk-V1/consignee-renamer/internal/rules"
)

var rootCmd = &cobra.Command{
	Use:   "consignee-batch",
	Short: "Rename shipping documents after their consignee",
	Long: `consignee-batch unpacks a zip of shipping documents, reads the consignee
field out of each file, and writes a new zip whose members carry the
consignee as their file name.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(processCommand())
	rootCmd.AddCommand(watchCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// deps bundles the wired pipeline for one invocation.
type deps struct {
	cfg    *common.Config
	logger *zap.Logger
	rules  rules.Rules
	proc   *pipeline.Processor
}

// buildDeps loads configuration and rules, applying mode and policy flag
// overrides on top of the rules file.
func buildDeps(rulesPath, mode, policy string) (*deps, error) {
	cfg := common.LoadConfig()
	logger, err := common.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	if rulesPath == "" {
		rulesPath = cfg.Pipeline.RulesPath
	}
	r, err := rules.Load(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}

	v := common.NewValidator()
	if mode != "" {
		v.Field("mode", mode, common.OneOf(constants.ExtractionModes()...))
	}
	if policy != "" {
		v.Field("policy", policy, common.OneOf(constants.NumberingPolicies()...))
	}
	if v.HasErrors() {
		return nil, v.Error()
	}
	if mode != "" {
		r.Mode = constants.ExtractionMode(mode)
	}
	if policy != "" {
		r.Policy = constants.NumberingPolicy(policy)
	}

	acquirer := acquire.NewAcquirer(acquire.Config{MaxPDFPages: r.MaxPDFPages}, logger)
	fields, err := extract.New(r, logger)
	if err != nil {
		return nil, fmt.Errorf("compiling extraction rules: %w", err)
	}

	proc := pipeline.NewProcessor(pipeline.Config{
		ScratchRoot: cfg.Pipeline.ScratchRoot,
		KeepStaging: cfg.Pipeline.KeepStaging,
	}, r, acquirer, fields, metrics.NewMetrics(), logger)

	return &deps{cfg: cfg, logger: logger, rules: r, proc: proc}, nil
}

// openHistory connects to the run-history store when a DSN is configured.
// The returned cleanup is safe to call either way.
func openHistory(ctx context.Context, d *deps) (repository.RunRepository, func(), error) {
	if d.cfg.History.DSN == "" {
		return nil, func() {}, nil
	}

	db, pool, err := repository.Open(ctx, repository.Config{
		DSN:             d.cfg.History.DSN,
		MaxConns:        d.cfg.History.MaxConns,
		MaxConnLifetime: d.cfg.History.MaxConnLifetime,
		DialTimeout:     d.cfg.History.DialTimeout,
	}, d.logger)
	if err != nil {
		return nil, func() {}, fmt.Errorf("opening history store: %w", err)
	}
	if err := repository.EnsureSchema(ctx, db); err != nil {
		repository.Close(db, pool, d.logger)
		return nil, func() {}, fmt.Errorf("preparing history schema: %w", err)
	}
	cleanup := func() { repository.Close(db, pool, d.logger) }
	return repository.NewRunRepository(db, d.logger), cleanup, nil
}

func saveRunHistory(ctx context.Context, d *deps, repo repository.RunRepository, summary entity.RunSummary, records []entity.AuditRecord) {
	if repo == nil {
		return
	}
	if err := repo.SaveRun(ctx, summary, records); err != nil {
		d.logger.Warn("history save failed", zap.String("run_id", summary.ID.String()), zap.Error(err))
	}
}
