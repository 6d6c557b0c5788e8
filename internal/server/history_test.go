package server

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hk-V1/consignee-renamer/internal/repository"
)

var historyRunColumns = []string{
	"id", "source", "status", "started_at", "finished_at",
	"entries", "found", "missing", "output_name", "last_error",
}

var historyRecordColumns = []string{
	"run_id", "seq", "original_name", "extracted", "found", "final_name",
}

func newHistoryRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	repo := repository.NewRunRepository(sqlx.NewDb(mockDB, "postgres"), nil)
	router, _ := newTestRouter(t, repo, nil)
	return router, mock
}

func TestListHistory(t *testing.T) {
	router, mock := newHistoryRouter(t)

	mock.ExpectQuery("SELECT .+ FROM runs").
		WithArgs(50).
		WillReturnRows(
			sqlmock.NewRows(historyRunColumns).
				AddRow(uuid.New().String(), "shipment.zip", "DONE", time.Now(), time.Now(), 3, 2, 1, "renamed_files.zip", nil),
		)

	w := do(t, router, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp HistoryListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "shipment.zip", resp.Runs[0].Source)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListHistoryExplicitLimit(t *testing.T) {
	router, mock := newHistoryRouter(t)

	mock.ExpectQuery("SELECT .+ FROM runs").
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows(historyRunColumns))

	w := do(t, router, http.MethodGet, "/api/v1/history?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListHistoryBadLimit(t *testing.T) {
	router, mock := newHistoryRouter(t)

	for _, limit := range []string{"abc", "0", "-2"} {
		w := do(t, router, http.MethodGet, "/api/v1/history?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHistoryRun(t *testing.T) {
	router, mock := newHistoryRouter(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM runs").
		WithArgs(id.String()).
		WillReturnRows(
			sqlmock.NewRows(historyRunColumns).
				AddRow(id.String(), "shipment.zip", "DONE", time.Now(), time.Now(), 1, 1, 0, "renamed_files.zip", nil),
		)
	mock.ExpectQuery("SELECT .+ FROM run_records").
		WithArgs(id.String()).
		WillReturnRows(
			sqlmock.NewRows(historyRecordColumns).
				AddRow(id.String(), 1, "inv.txt", "Acme", true, "Acme.txt"),
		)

	w := do(t, router, http.MethodGet, "/api/v1/history/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp RunDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.Run.ID)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Acme.txt", resp.Records[0].FinalName)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHistoryRunNotFound(t *testing.T) {
	router, mock := newHistoryRouter(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT .+ FROM runs").
		WithArgs(id.String()).
		WillReturnError(sql.ErrNoRows)

	w := do(t, router, http.MethodGet, "/api/v1/history/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHistoryRunBadID(t *testing.T) {
	router, _ := newHistoryRouter(t)

	w := do(t, router, http.MethodGet, "/api/v1/history/zzz", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryDisabled(t *testing.T) {
	router, _ := newTestRouter(t, nil, nil)

	w := do(t, router, http.MethodGet, "/api/v1/history", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, router, http.MethodGet, "/api/v1/history/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
