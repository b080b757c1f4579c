package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/plate"
	"github.com/Douglasgls/zona-verde-api/internal/service"
)

const imageFormField = "image"

// PlateService is implemented by service.PlateService.
type PlateService interface {
	RecognizeUpload(ctx context.Context, r io.Reader) (plate.Candidate, error)
	Compare(reference, detected string) plate.Score
	CheckSpot(ctx context.Context, in service.CheckSpotInput) (*domain.PlateCheck, error)
	ListChecks(ctx context.Context, filter domain.PlateCheckFilterDTO) ([]domain.PlateCheck, error)
	GetCheck(ctx context.Context, id uuid.UUID) (*domain.PlateCheck, error)
}

// PlateCheckExporter is implemented by export.PlateCheckExporter.
type PlateCheckExporter interface {
	XLSX(checks []domain.PlateCheck) ([]byte, error)
}

type PlateHandler struct {
	plateService PlateService
	exporter     PlateCheckExporter
	logger       *zap.Logger
}

func NewPlateHandler(ps PlateService, exporter PlateCheckExporter, logger *zap.Logger) *PlateHandler {
	return &PlateHandler{plateService: ps, exporter: exporter, logger: logger.Named("plate_handler")}
}

func openImage(c *gin.Context) (io.ReadCloser, bool) {
	fileHeader, err := c.FormFile(imageFormField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'image' is required"})
		return nil, false
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read uploaded image", "details": err.Error()})
		return nil, false
	}
	return f, true
}

// POST /plates/recognize (multipart: image)
func (h *PlateHandler) Recognize(c *gin.Context) {
	f, ok := openImage(c)
	if !ok {
		return
	}
	defer f.Close()

	candidate, err := h.plateService.RecognizeUpload(c.Request.Context(), f)
	if err != nil {
		h.logger.Warn("recognition failed", zap.Error(err))
		respondError(c, err, "plate recognition failed")
		return
	}
	c.JSON(http.StatusOK, candidate)
}

// POST /plates/compare
func (h *PlateHandler) Compare(c *gin.Context) {
	var dto domain.ComparePlatesDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.plateService.Compare(dto.Reference, dto.Detected))
}

// POST /spots/:id/plate-checks (multipart: image)
func (h *PlateHandler) CheckSpot(c *gin.Context) {
	spotID, ok := intParam(c, "id")
	if !ok {
		return
	}
	f, ok := openImage(c)
	if !ok {
		return
	}
	defer f.Close()

	check, err := h.plateService.CheckSpot(c.Request.Context(), service.CheckSpotInput{SpotID: spotID, Image: f})
	if err != nil {
		h.logger.Warn("plate check failed", zap.Int("spot_id", spotID), zap.Error(err))
		respondError(c, err, "plate check failed")
		return
	}
	c.JSON(http.StatusCreated, check)
}

// GET /plate-checks?spot_id=&matched=&from=&to=&limit=
func (h *PlateHandler) ListChecks(c *gin.Context) {
	filter, ok := bindCheckFilter(c)
	if !ok {
		return
	}
	checks, err := h.plateService.ListChecks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "could not list plate checks")
		return
	}
	c.JSON(http.StatusOK, checks)
}

// GET /plate-checks/:id
func (h *PlateHandler) GetCheck(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	check, err := h.plateService.GetCheck(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "could not load plate check")
		return
	}
	c.JSON(http.StatusOK, check)
}

// GET /plate-checks/export (same filters as the list)
func (h *PlateHandler) ExportChecks(c *gin.Context) {
	filter, ok := bindCheckFilter(c)
	if !ok {
		return
	}
	checks, err := h.plateService.ListChecks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "could not list plate checks")
		return
	}
	data, err := h.exporter.XLSX(checks)
	if err != nil {
		respondError(c, err, "could not build export")
		return
	}

	filename := fmt.Sprintf("plate-checks-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func bindCheckFilter(c *gin.Context) (domain.PlateCheckFilterDTO, bool) {
	var filter domain.PlateCheckFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return filter, false
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'to' must not be before 'from'"})
		return filter, false
	}
	return filter, true
}
