package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/service"
)

type SpotHandler struct {
	parkingService *service.ParkingService
}

func NewSpotHandler(ps *service.ParkingService) *SpotHandler {
	return &SpotHandler{parkingService: ps}
}

// POST /spots
func (h *SpotHandler) CreateSpot(c *gin.Context) {
	var dto domain.SpotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	spot, err := h.parkingService.CreateSpot(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err, "could not create spot")
		return
	}
	c.JSON(http.StatusCreated, spot)
}

// GET /spots
func (h *SpotHandler) GetAllSpots(c *gin.Context) {
	spots, err := h.parkingService.ListSpots(c.Request.Context())
	if err != nil {
		respondError(c, err, "could not list spots")
		return
	}
	c.JSON(http.StatusOK, spots)
}

// GET /spots/:id
func (h *SpotHandler) GetSpotByID(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	spot, err := h.parkingService.GetSpot(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "could not load spot")
		return
	}
	c.JSON(http.StatusOK, spot)
}

// PUT /spots/:id
func (h *SpotHandler) UpdateSpot(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var dto domain.SpotDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	spot, err := h.parkingService.UpdateSpot(c.Request.Context(), id, dto)
	if err != nil {
		respondError(c, err, "could not update spot")
		return
	}
	c.JSON(http.StatusOK, spot)
}

// DELETE /spots/:id
func (h *SpotHandler) DeleteSpot(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := h.parkingService.DeleteSpot(c.Request.Context(), id); err != nil {
		respondError(c, err, "could not delete spot")
		return
	}
	c.Status(http.StatusNoContent)
}
