package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Hk-V1/consignee-renamer/internal/common"
	"github.com/Hk-V1/consignee-renamer/internal/entity"
	"github.com/Hk-V1/consignee-renamer/internal/repository"
)

// newSQLiteRepo backs the repository with a real in-memory database. One
// connection, so every query sees the same memory instance.
func newSQLiteRepo(t *testing.T) repository.RunRepository {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, repository.EnsureSchema(context.Background(), db))
	return repository.NewRunRepository(db, nil)
}

func TestSQLiteRoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	finished := time.Now().UTC().Truncate(time.Second)
	output := "renamed_files.zip"
	summary := entity.RunSummary{
		ID:         uuid.New(),
		Source:     "shipment.zip",
		Status:     "DONE",
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: &finished,
		Entries:    2,
		Found:      1,
		Missing:    1,
		OutputName: &output,
	}
	records := []entity.AuditRecord{
		{Seq: 1, OriginalName: "inv1.pdf", Extracted: "Acme", Found: true, FinalName: "Acme.pdf"},
		{Seq: 2, OriginalName: "inv2.pdf", Found: false, FinalName: "inv2.pdf"},
	}

	require.NoError(t, repo.SaveRun(ctx, summary, records))

	got, gotRecords, err := repo.GetRun(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.ID, got.ID)
	assert.Equal(t, "shipment.zip", got.Source)
	assert.Equal(t, "DONE", got.Status)
	assert.Equal(t, 2, got.Entries)
	assert.Equal(t, 1, got.Found)
	assert.Equal(t, 1, got.Missing)
	require.NotNil(t, got.OutputName)
	assert.Equal(t, output, *got.OutputName)
	require.NotNil(t, got.FinishedAt)
	assert.WithinDuration(t, finished, *got.FinishedAt, time.Second)
	assert.WithinDuration(t, summary.StartedAt, got.StartedAt, time.Second)
	assert.Nil(t, got.Error)

	require.Len(t, gotRecords, 2)
	assert.Equal(t, "Acme.pdf", gotRecords[0].FinalName)
	assert.Equal(t, "Acme", gotRecords[0].Extracted)
	assert.True(t, gotRecords[0].Found)
	assert.Equal(t, "inv2.pdf", gotRecords[1].FinalName)
	assert.False(t, gotRecords[1].Found)
}

func TestSQLiteSaveRunReplacesSnapshot(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	summary := entity.RunSummary{
		ID:        uuid.New(),
		Source:    "shipment.zip",
		Status:    "PROCESSING",
		StartedAt: time.Now().UTC().Truncate(time.Second),
		Entries:   2,
	}
	require.NoError(t, repo.SaveRun(ctx, summary, []entity.AuditRecord{
		{Seq: 1, OriginalName: "a.txt", Found: true, Extracted: "Acme", FinalName: "Acme.txt"},
		{Seq: 2, OriginalName: "b.txt", FinalName: "b.txt"},
	}))

	failure := "context canceled"
	summary.Status = "FAILED"
	summary.Error = &failure
	require.NoError(t, repo.SaveRun(ctx, summary, []entity.AuditRecord{
		{Seq: 1, OriginalName: "a.txt", Found: true, Extracted: "Acme", FinalName: "Acme.txt"},
	}))

	got, gotRecords, err := repo.GetRun(ctx, summary.ID)
	require.NoError(t, err)
	assert.Equal(t, "FAILED", got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, failure, *got.Error)
	assert.Len(t, gotRecords, 1)
}

func TestSQLiteListRunsNewestFirst(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, source := range []string{"old.zip", "mid.zip", "new.zip"} {
		require.NoError(t, repo.SaveRun(ctx, entity.RunSummary{
			ID:        uuid.New(),
			Source:    source,
			Status:    "DONE",
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		}, nil))
	}

	runs, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new.zip", runs[0].Source)
	assert.Equal(t, "mid.zip", runs[1].Source)

	all, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSQLiteDeleteRun(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	summary := entity.RunSummary{
		ID:        uuid.New(),
		Source:    "shipment.zip",
		Status:    "DONE",
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.SaveRun(ctx, summary, []entity.AuditRecord{
		{Seq: 1, OriginalName: "a.txt", FinalName: "a.txt"},
	}))

	require.NoError(t, repo.DeleteRun(ctx, summary.ID))

	_, _, err := repo.GetRun(ctx, summary.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteRun(ctx, uuid.New()), common.ErrNotFound)
}
