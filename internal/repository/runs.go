package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/internal/common"
	"github.com/Hk-V1/consignee-renamer/internal/entity"
)

const defaultListLimit = 50

// RunRepository stores run summaries and their audit records.
type RunRepository interface {
	SaveRun(ctx context.Context, summary entity.RunSummary, records []entity.AuditRecord) error
	GetRun(ctx context.Context, id uuid.UUID) (entity.RunSummary, []entity.AuditRecord, error)
	ListRuns(ctx context.Context, limit int) ([]entity.RunSummary, error)
	DeleteRun(ctx context.Context, id uuid.UUID) error
}

type runRepo struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewRunRepository(db *sqlx.DB, logger *zap.Logger) RunRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &runRepo{db: db, logger: logger}
}

// EnsureSchema creates the history tables when they do not exist yet. The
// DDL sticks to types both SQLite and PostgreSQL accept.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			source      TEXT NOT NULL,
			status      TEXT NOT NULL,
			started_at  TIMESTAMP NOT NULL,
			finished_at TIMESTAMP,
			entries     INTEGER NOT NULL DEFAULT 0,
			found       INTEGER NOT NULL DEFAULT 0,
			missing     INTEGER NOT NULL DEFAULT 0,
			output_name TEXT,
			last_error  TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS run_records (
			run_id        TEXT NOT NULL,
			seq           INTEGER NOT NULL,
			original_name TEXT NOT NULL,
			extracted     TEXT NOT NULL,
			found         BOOLEAN NOT NULL,
			final_name    TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

type runRow struct {
	ID         string     `db:"id"`
	Source     string     `db:"source"`
	Status     string     `db:"status"`
	StartedAt  time.Time  `db:"started_at"`
	FinishedAt *time.Time `db:"finished_at"`
	Entries    int        `db:"entries"`
	Found      int        `db:"found"`
	Missing    int        `db:"missing"`
	OutputName *string    `db:"output_name"`
	LastError  *string    `db:"last_error"`
}

func (row runRow) toSummary() (entity.RunSummary, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return entity.RunSummary{}, fmt.Errorf("parse run id: %w", err)
	}
	return entity.RunSummary{
		ID:         id,
		Source:     row.Source,
		Status:     row.Status,
		StartedAt:  row.StartedAt,
		FinishedAt: row.FinishedAt,
		Entries:    row.Entries,
		Found:      row.Found,
		Missing:    row.Missing,
		OutputName: row.OutputName,
		Error:      row.LastError,
	}, nil
}

type recordRow struct {
	RunID        string `db:"run_id"`
	Seq          int    `db:"seq"`
	OriginalName string `db:"original_name"`
	Extracted    string `db:"extracted"`
	Found        bool   `db:"found"`
	FinalName    string `db:"final_name"`
}

// SaveRun replaces any prior snapshot of the run together with its records.
func (r *runRepo) SaveRun(ctx context.Context, summary entity.RunSummary, records []entity.AuditRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := summary.ID.String()
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM run_records WHERE run_id = ?`), id); err != nil {
		return fmt.Errorf("clear run records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM runs WHERE id = ?`), id); err != nil {
		return fmt.Errorf("clear run: %w", err)
	}

	insertRun := tx.Rebind(`
		INSERT INTO runs (id, source, status, started_at, finished_at, entries, found, missing, output_name, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if _, err := tx.ExecContext(ctx, insertRun,
		id,
		summary.Source,
		summary.Status,
		summary.StartedAt,
		summary.FinishedAt,
		summary.Entries,
		summary.Found,
		summary.Missing,
		summary.OutputName,
		summary.Error,
	); err != nil {
		r.logger.Error("failed to save run", zap.String("run_id", id), zap.Error(err))
		return fmt.Errorf("save run: %w", err)
	}

	insertRecord := tx.Rebind(`
		INSERT INTO run_records (run_id, seq, original_name, extracted, found, final_name)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	for _, rec := range records {
		if _, err := tx.ExecContext(ctx, insertRecord,
			id,
			rec.Seq,
			rec.OriginalName,
			rec.Extracted,
			rec.Found,
			rec.FinalName,
		); err != nil {
			r.logger.Error("failed to save run record",
				zap.String("run_id", id),
				zap.Int("seq", rec.Seq),
				zap.Error(err),
			)
			return fmt.Errorf("save run record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save run: %w", err)
	}
	return nil
}

func (r *runRepo) GetRun(ctx context.Context, id uuid.UUID) (entity.RunSummary, []entity.AuditRecord, error) {
	var row runRow
	query := r.db.Rebind(`
		SELECT id, source, status, started_at, finished_at, entries, found, missing, output_name, last_error
		FROM runs
		WHERE id = ?
	`)
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entity.RunSummary{}, nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
		}
		r.logger.Error("failed to get run", zap.String("run_id", id.String()), zap.Error(err))
		return entity.RunSummary{}, nil, fmt.Errorf("get run: %w", err)
	}
	summary, err := row.toSummary()
	if err != nil {
		return entity.RunSummary{}, nil, err
	}

	var recordRows []recordRow
	recordsQuery := r.db.Rebind(`
		SELECT run_id, seq, original_name, extracted, found, final_name
		FROM run_records
		WHERE run_id = ?
		ORDER BY seq
	`)
	if err := r.db.SelectContext(ctx, &recordRows, recordsQuery, id.String()); err != nil {
		r.logger.Error("failed to get run records", zap.String("run_id", id.String()), zap.Error(err))
		return entity.RunSummary{}, nil, fmt.Errorf("get run records: %w", err)
	}

	records := make([]entity.AuditRecord, 0, len(recordRows))
	for _, rec := range recordRows {
		records = append(records, entity.AuditRecord{
			Seq:          rec.Seq,
			OriginalName: rec.OriginalName,
			Extracted:    rec.Extracted,
			Found:        rec.Found,
			FinalName:    rec.FinalName,
		})
	}
	return summary, records, nil
}

func (r *runRepo) ListRuns(ctx context.Context, limit int) ([]entity.RunSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var rows []runRow
	query := r.db.Rebind(`
		SELECT id, source, status, started_at, finished_at, entries, found, missing, output_name, last_error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		r.logger.Error("failed to list runs", zap.Error(err))
		return nil, fmt.Errorf("list runs: %w", err)
	}

	summaries := make([]entity.RunSummary, 0, len(rows))
	for _, row := range rows {
		summary, err := row.toSummary()
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (r *runRepo) DeleteRun(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM run_records WHERE run_id = ?`), id.String()); err != nil {
		return fmt.Errorf("delete run records: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM runs WHERE id = ?`), id.String())
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	return tx.Commit()
}
