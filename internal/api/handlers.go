// Package api exposes the dashboard's HTTP surface: dataset CRUD, type
// overrides, preprocessing, version history, remote pre-analysis and live
// profiling progress over SSE.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"datalens/domain/core"
	domaindataset "datalens/domain/dataset"
	apperrors "datalens/internal/errors"
	"datalens/internal/dataset"
	"datalens/internal/preprocess"
	"datalens/internal/profile"
	"datalens/ports"

	"github.com/gin-gonic/gin"
)

// Handler bundles the services behind the HTTP surface
type Handler struct {
	processor  *dataset.Processor
	preprocess *preprocess.Service
	analysis   ports.AnalysisClient
	versions   ports.VersionRepository
	hub        *SSEHub
}

// NewHandler creates the API handler
func NewHandler(
	processor *dataset.Processor,
	preprocessSvc *preprocess.Service,
	analysis ports.AnalysisClient,
	versions ports.VersionRepository,
	hub *SSEHub,
) *Handler {
	return &Handler{
		processor:  processor,
		preprocess: preprocessSvc,
		analysis:   analysis,
		versions:   versions,
		hub:        hub,
	}
}

// Register wires all routes onto the gin engine
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/api/events", h.hub.HandleSSE)

	datasets := r.Group("/api/datasets")
	{
		datasets.POST("", h.handleUpload)
		datasets.GET("", h.handleList)
		datasets.GET("/:id", h.handleGet)
		datasets.DELETE("/:id", h.handleDelete)
		datasets.POST("/:id/reprofile", h.handleReprofile)
		datasets.PUT("/:id/columns/:key/type", h.handleOverrideType)
		datasets.GET("/:id/quality", h.handleQuality)
		datasets.GET("/:id/report", h.handleReport)
		datasets.GET("/:id/versions", h.handleVersions)
		datasets.POST("/:id/preprocess", h.handlePreprocess)
	}

	versions := r.Group("/api/versions")
	{
		versions.POST("/:id/analysis", h.handleSubmitAnalysis)
		versions.GET("/:id/analysis", h.handlePollAnalysis)
		versions.PUT("/:id/analysis", h.handleAnalysisCallback)
	}
}

// handleUpload accepts a multipart CSV or xlsx upload and starts profiling
func (h *Handler) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not open uploaded file"})
		return
	}
	defer file.Close()

	upload := &domaindataset.Upload{
		Filename: fileHeader.Filename,
		File:     file,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
	}

	ds, err := h.processor.Upload(c.Request.Context(), upload)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, ds)
}

func (h *Handler) handleList(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)

	datasets, err := h.processor.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": datasets})
}

func (h *Handler) handleGet(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ds, err := h.processor.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

func (h *Handler) handleDelete(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.processor.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) handleReprofile(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ds, err := h.processor.Reprofile(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

// handleOverrideType reclassifies one column and recomputes its statistics
func (h *Handler) handleOverrideType(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, err := core.ParseColumnKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Type string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type field required"})
		return
	}

	ds, err := h.processor.OverrideType(c.Request.Context(), id, key, domaindataset.ColumnType(req.Type))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

func (h *Handler) handleQuality(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ds, err := h.processor.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if ds.Profile == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "dataset has no profile yet"})
		return
	}

	c.JSON(http.StatusOK, profile.ScoreQuality(ds.Profile))
}

func (h *Handler) handleVersions(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	versions, err := h.processor.Versions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// handlePreprocess applies a cleaning method and records a child version
func (h *Handler) handlePreprocess(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Method    string            `json:"method" binding:"required"`
		VersionID string            `json:"version_id"`
		Params    map[string]string `json:"params"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "method field required"})
		return
	}

	result, err := h.preprocess.Apply(c.Request.Context(), id, core.VersionID(req.VersionID), req.Method, req.Params)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// handleSubmitAnalysis forwards an analysis configuration to the remote
// pre-analysis service
func (h *Handler) handleSubmitAnalysis(c *gin.Context) {
	versionID, err := core.ParseVersionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Model        string             `json:"model" binding:"required"`
		TargetColumn string             `json:"target_column"`
		Columns      []string           `json:"columns"`
		Thresholds   map[string]float64 `json:"thresholds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model field required"})
		return
	}

	if _, err := h.versions.GetByID(c.Request.Context(), versionID); err != nil {
		respondError(c, err)
		return
	}

	err = h.analysis.Submit(c.Request.Context(), ports.AnalysisRequest{
		VersionID:    versionID,
		Model:        req.Model,
		TargetColumn: req.TargetColumn,
		Columns:      req.Columns,
		Thresholds:   req.Thresholds,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"version_id": versionID, "status": "submitted"})
}

// handlePollAnalysis blocks until the analysis result lands or the poll
// window closes
func (h *Handler) handlePollAnalysis(c *gin.Context) {
	versionID, err := core.ParseVersionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.analysis.Poll(c.Request.Context(), versionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version_id": versionID, "result": result})
}

// handleAnalysisCallback receives the finished result from the remote
// service and lands it on the version record
func (h *Handler) handleAnalysisCallback(c *gin.Context) {
	versionID, err := core.ParseVersionID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Result string `json:"result" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "result field required"})
		return
	}

	if err := h.versions.SetAnalysisResult(c.Request.Context(), versionID, req.Result); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"version_id": versionID, "status": "stored"})
}

// respondError maps domain and application errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	switch {
	case core.IsNotFoundError(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrFileTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrUnsupportedType),
		errors.Is(err, core.ErrMalformedHeader),
		errors.Is(err, core.ErrUnknownMethod),
		errors.Is(err, core.ErrTypeMismatch),
		errors.Is(err, core.ErrInsufficientData):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrProfileTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrAnalysisPending):
		c.JSON(http.StatusAccepted, gin.H{"error": err.Error(), "status": "pending"})
	default:
		status := http.StatusInternalServerError
		switch apperrors.GetCode(err) {
		case apperrors.CodeValidationError, apperrors.CodeInvalidInput, apperrors.CodeParseError:
			status = http.StatusBadRequest
		case apperrors.CodeNotFound:
			status = http.StatusNotFound
		case apperrors.CodeFileTooLarge:
			status = http.StatusRequestEntityTooLarge
		case apperrors.CodeTimeout:
			status = http.StatusGatewayTimeout
		case apperrors.CodeExternalService:
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{"error": err.Error()})
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	out, err := strconv.Atoi(raw)
	if err != nil || out < 0 {
		return fallback
	}
	return out
}
