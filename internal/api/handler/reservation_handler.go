package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/service"
)

type ReservationHandler struct {
	parkingService *service.ParkingService
}

func NewReservationHandler(ps *service.ParkingService) *ReservationHandler {
	return &ReservationHandler{parkingService: ps}
}

// POST /reservations
func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	var dto domain.ReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reservation, err := h.parkingService.CreateReservation(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err, "could not create reservation")
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

// GET /reservations?spot_id=&status=&plate=
func (h *ReservationHandler) FindReservations(c *gin.Context) {
	var filter domain.ReservationFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reservations, err := h.parkingService.ListReservations(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "could not list reservations")
		return
	}
	c.JSON(http.StatusOK, reservations)
}

// GET /reservations/:id
func (h *ReservationHandler) GetReservationByID(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	reservation, err := h.parkingService.GetReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "could not load reservation")
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// PUT /reservations/:id
func (h *ReservationHandler) UpdateReservation(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var dto domain.ReservationDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reservation, err := h.parkingService.UpdateReservation(c.Request.Context(), id, dto)
	if err != nil {
		respondError(c, err, "could not update reservation")
		return
	}
	c.JSON(http.StatusOK, reservation)
}

// PATCH /reservations/:id/status
func (h *ReservationHandler) SetReservationStatus(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var dto domain.ReservationStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reservation, err := h.parkingService.SetReservationStatus(c.Request.Context(), id, domain.ReservationStatus(dto.Status))
	if err != nil {
		respondError(c, err, "could not change reservation status")
		return
	}
	c.JSON(http.StatusOK, reservation)
}
