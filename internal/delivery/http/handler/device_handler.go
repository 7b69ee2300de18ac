package handler

import (
	"net/http"

	"hydrolink-monitor/internal/device/model"
	"hydrolink-monitor/internal/device/service"
	"hydrolink-monitor/internal/middleware"
	"hydrolink-monitor/pkg/utils"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	service *service.DeviceService
}

func NewDeviceHandler(service *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{service: service}
}

func (h *DeviceHandler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.GET("", h.ListDevices)
		devices.POST("/claim", h.ClaimDevice)
		devices.GET("/:deviceId", h.GetDevice)
		devices.DELETE("/:deviceId", h.UnlinkDevice)
		devices.GET("/:deviceId/settings", h.GetSettings)
		devices.PUT("/:deviceId/settings", h.UpdateSettings)
		devices.POST("/:deviceId/refill", h.ManualRefill)
		devices.POST("/:deviceId/calibrate", h.RequestCalibration)
		devices.GET("/:deviceId/stats", h.GetStats)
	}
}

func (h *DeviceHandler) ListDevices(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	devices, err := h.service.ListDevices(c.Request.Context(), userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved", devices)
}

func (h *DeviceHandler) ClaimDevice(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var request model.ClaimRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	device, err := h.service.Claim(c.Request.Context(), userID, &request)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Device claimed", device)
}

func (h *DeviceHandler) GetDevice(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	device, err := h.service.GetDevice(c.Request.Context(), userID, c.Param("deviceId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device retrieved", device)
}

func (h *DeviceHandler) UnlinkDevice(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.Unlink(c.Request.Context(), userID, c.Param("deviceId")); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device unlinked", nil)
}

func (h *DeviceHandler) GetSettings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	settings, err := h.service.GetSettings(c.Request.Context(), userID, c.Param("deviceId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Settings retrieved", settings)
}

func (h *DeviceHandler) UpdateSettings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var request model.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	settings, err := h.service.UpdateSettings(c.Request.Context(), userID, c.Param("deviceId"), &request)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Settings updated", settings)
}

func (h *DeviceHandler) ManualRefill(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var request model.ManualRefillRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.ManualRefill(c.Request.Context(), userID, c.Param("deviceId"), *request.TargetPercentage); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Refill command sent", nil)
}

func (h *DeviceHandler) RequestCalibration(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if err := h.service.RequestCalibration(c.Request.Context(), userID, c.Param("deviceId")); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "Calibration requested", nil)
}

func (h *DeviceHandler) GetStats(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	stats, err := h.service.GetStats(c.Request.Context(), userID, c.Param("deviceId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Stats retrieved", stats)
}
