package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Hk-V1/consignee-renamer/internal/archive"
	"github.com/Hk-V1/consignee-renamer/internal/common"
	"github.com/Hk-V1/consignee-renamer/internal/entity"
)

// CreateRunResponse is returned after an archive was unpacked and enumerated.
type CreateRunResponse struct {
	Run     entity.RunSummary    `json:"run"`
	Entries []entity.SourceEntry `json:"entries"`
	Stats   archive.ScanStats    `json:"stats"`
}

// ProcessRunRequest selects which entries to process. An empty selection
// means every entry not processed yet.
type ProcessRunRequest struct {
	Indexes          []int `json:"indexes"`
	SkipUnrecognized bool  `json:"skip_unrecognized"`
}

// ProcessRunResponse carries the audit records of one processing batch.
type ProcessRunResponse struct {
	Run     entity.RunSummary    `json:"run"`
	Records []entity.AuditRecord `json:"records"`
}

// RunDetailResponse is the full view of a tracked run.
type RunDetailResponse struct {
	Run     entity.RunSummary    `json:"run"`
	Records []entity.AuditRecord `json:"records"`
}

// HistoryListResponse lists persisted run summaries, newest first.
type HistoryListResponse struct {
	Runs  []entity.RunSummary `json:"runs"`
	Total int                 `json:"total"`
}

// statusForError maps pipeline and repository errors onto HTTP statuses.
// Archive errors count as client errors: they surface when an upload cannot
// be unpacked.
func statusForError(err error) int {
	var appErr *common.AppError
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, common.ErrNoEligibleEntries):
		return http.StatusUnprocessableEntity
	case errors.As(err, &appErr) && appErr.Code == common.CodeArchive:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}
