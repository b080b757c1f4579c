package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Douglasgls/zona-verde-api/internal/domain"
	"github.com/Douglasgls/zona-verde-api/internal/service"
)

type DeviceHandler struct {
	parkingService *service.ParkingService
}

func NewDeviceHandler(ps *service.ParkingService) *DeviceHandler {
	return &DeviceHandler{parkingService: ps}
}

// POST /devices
func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	var dto domain.DeviceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	device, err := h.parkingService.RegisterDevice(c.Request.Context(), dto)
	if err != nil {
		respondError(c, err, "could not register device")
		return
	}
	c.JSON(http.StatusOK, device)
}

// GET /devices
func (h *DeviceHandler) GetAllDevices(c *gin.Context) {
	devices, err := h.parkingService.ListDevices(c.Request.Context())
	if err != nil {
		respondError(c, err, "could not list devices")
		return
	}
	c.JSON(http.StatusOK, devices)
}

// GET /devices/:thing_name
func (h *DeviceHandler) GetDeviceByThingName(c *gin.Context) {
	thingName := c.Param("thing_name")
	if thingName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "thing name is required"})
		return
	}
	device, err := h.parkingService.GetDevice(c.Request.Context(), thingName)
	if err != nil {
		respondError(c, err, "could not load device")
		return
	}
	c.JSON(http.StatusOK, device)
}
