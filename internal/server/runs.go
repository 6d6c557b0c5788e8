package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hk-V1/consignee-renamer/constants"
	"github.com/Hk-V1/consignee-renamer/internal/acquire"
	"github.com/Hk-V1/consignee-renamer/internal/common"
	"github.com/Hk-V1/consignee-renamer/internal/pipeline"
	"github.com/Hk-V1/consignee-renamer/internal/report"
	"github.com/Hk-V1/consignee-renamer/internal/repository"
)

// Handler exposes the processing pipeline over HTTP.
type Handler struct {
	proc           *pipeline.Processor
	manager        *RunManager
	history        repository.RunRepository
	report         *report.Service
	caps           acquire.Capabilities
	uploadRoot     string
	maxUploadBytes int64
	outputName     string
	logger         *zap.Logger
}

type HandlerConfig struct {
	UploadRoot     string
	MaxUploadBytes int64
	OutputName     string
	Capabilities   acquire.Capabilities
}

func NewHandler(cfg HandlerConfig, proc *pipeline.Processor, manager *RunManager, history repository.RunRepository, reportSvc *report.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UploadRoot == "" {
		cfg.UploadRoot = os.TempDir()
	}
	if cfg.OutputName == "" {
		cfg.OutputName = constants.DefaultOutputName
	}
	return &Handler{
		proc:           proc,
		manager:        manager,
		history:        history,
		report:         reportSvc,
		caps:           cfg.Capabilities,
		uploadRoot:     cfg.UploadRoot,
		maxUploadBytes: cfg.MaxUploadBytes,
		outputName:     cfg.OutputName,
		logger:         logger,
	}
}

// CreateRun handles POST /api/v1/runs. The uploaded archive is unpacked and
// enumerated; the returned run id addresses all further operations.
func (h *Handler) CreateRun(c *gin.Context) {
	file, err := c.FormFile("archive")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'archive' is required"})
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("archive exceeds upload limit of %d bytes", h.maxUploadBytes),
		})
		return
	}
	if constants.NormalizeExt(filepath.Ext(file.Filename)) != "zip" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "archive must be a .zip file"})
		return
	}

	uploadDir, err := os.MkdirTemp(h.uploadRoot, "upload-")
	if err != nil {
		h.logger.Error("upload dir failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storing upload failed"})
		return
	}
	defer os.RemoveAll(uploadDir)

	archivePath := filepath.Join(uploadDir, filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, archivePath); err != nil {
		h.logger.Error("upload save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storing upload failed"})
		return
	}

	run, err := h.proc.Open(c.Request.Context(), archivePath)
	if err != nil {
		h.logger.Warn("open run failed", zap.String("source", file.Filename), zap.Error(err))
		respondError(c, err)
		return
	}

	h.manager.Add(run)
	h.saveHistory(c, run)

	c.JSON(http.StatusCreated, CreateRunResponse{
		Run:     run.Summary(),
		Entries: run.Entries,
		Stats:   run.Stats,
	})
}

// ProcessRun handles POST /api/v1/runs/:id/process.
func (h *Handler) ProcessRun(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}

	var req ProcessRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	records, err := h.proc.Process(c.Request.Context(), run, pipeline.ProcessOptions{
		Indexes:          req.Indexes,
		SkipUnrecognized: req.SkipUnrecognized,
	})
	if err != nil {
		h.saveHistory(c, run)
		h.logger.Warn("process run failed", zap.String("run_id", run.ID.String()), zap.Error(err))
		respondError(c, err)
		return
	}

	h.saveHistory(c, run)
	c.JSON(http.StatusOK, ProcessRunResponse{Run: run.Summary(), Records: records})
}

// RepackRun handles POST /api/v1/runs/:id/repack.
func (h *Handler) RepackRun(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}

	if err := h.proc.Repack(c.Request.Context(), run); err != nil {
		h.saveHistory(c, run)
		h.logger.Warn("repack run failed", zap.String("run_id", run.ID.String()), zap.Error(err))
		respondError(c, err)
		return
	}

	h.saveHistory(c, run)
	c.JSON(http.StatusOK, gin.H{"run": run.Summary()})
}

// GetRun handles GET /api/v1/runs/:id.
func (h *Handler) GetRun(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, RunDetailResponse{Run: run.Summary(), Records: run.Records()})
}

// ReportRun handles GET /api/v1/runs/:id/report?format=json|csv|xlsx.
func (h *Handler) ReportRun(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "json"))
	v := common.NewValidator()
	v.Field("format", format, common.OneOf("json", "csv", "xlsx"))
	if v.HasErrors() {
		c.JSON(http.StatusBadRequest, gin.H{"error": v.ErrorMessage()})
		return
	}

	records := run.Records()
	switch format {
	case "csv":
		data, err := h.report.ExportCSV(records)
		if err != nil {
			h.logger.Error("report.csv.failed", zap.String("run_id", run.ID.String()), zap.Error(err))
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="report.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	case "xlsx":
		data, err := h.report.ExportXLSX(records, run.Summary())
		if err != nil {
			h.logger.Error("report.xlsx.failed", zap.String("run_id", run.ID.String()), zap.Error(err))
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="report.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		c.JSON(http.StatusOK, RunDetailResponse{Run: run.Summary(), Records: records})
	}
}

// DownloadArchive handles GET /api/v1/runs/:id/archive. Repeated downloads
// are allowed once the run is repacked.
func (h *Handler) DownloadArchive(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}
	if run.OutputPath() == "" {
		respondError(c, fmt.Errorf("%w: output archive is not ready in state %s", common.ErrInvalidState, run.Status()))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", h.outputName))
	c.Header("Content-Type", "application/zip")
	if err := h.proc.Deliver(run, c.Writer); err != nil {
		h.logger.Warn("archive delivery failed", zap.String("run_id", run.ID.String()), zap.Error(err))
		return
	}
	h.saveHistory(c, run)
}

// DeleteRun handles DELETE /api/v1/runs/:id. The run's scratch space is
// released; its history snapshot survives.
func (h *Handler) DeleteRun(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id must be a UUID"})
		return
	}
	run, ok := h.manager.Remove(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	h.saveHistory(c, run)
	if err := run.Close(); err != nil {
		h.logger.Warn("run close failed", zap.String("run_id", id.String()), zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

// Capabilities handles GET /api/v1/capabilities.
func (h *Handler) Capabilities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"acquisition":        h.caps,
		"extraction_modes":   constants.ExtractionModes(),
		"numbering_policies": constants.NumberingPolicies(),
	})
}

func (h *Handler) lookupRun(c *gin.Context) (*pipeline.Run, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "run id must be a UUID"})
		return nil, false
	}
	run, ok := h.manager.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return nil, false
	}
	return run, true
}

func (h *Handler) saveHistory(c *gin.Context, run *pipeline.Run) {
	if h.history == nil {
		return
	}
	if err := h.history.SaveRun(c.Request.Context(), run.Summary(), run.Records()); err != nil {
		h.logger.Warn("history save failed", zap.String("run_id", run.ID.String()), zap.Error(err))
	}
}
