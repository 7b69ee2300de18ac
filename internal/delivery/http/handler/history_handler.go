package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"hydrolink-monitor/internal/history"
	"hydrolink-monitor/internal/middleware"
	appErrors "hydrolink-monitor/pkg/errors"
	"hydrolink-monitor/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LinkChecker verifies a device belongs to the calling account before
// any history or notification read.
type LinkChecker interface {
	IsLinked(ctx context.Context, userID uuid.UUID, deviceID string) (bool, error)
}

type HistoryHandler struct {
	repo  history.Repository
	links LinkChecker
}

func NewHistoryHandler(repo history.Repository, links LinkChecker) *HistoryHandler {
	return &HistoryHandler{repo: repo, links: links}
}

func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices/:deviceId/history")
	{
		devices.GET("", h.GetHistory)
		devices.GET("/export", h.ExportHistory)
		devices.DELETE("/:recordId", h.DeleteRecord)
	}
}

func (h *HistoryHandler) authorize(c *gin.Context) (string, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}

	deviceID := c.Param("deviceId")
	linked, err := h.links.IsLinked(c.Request.Context(), userID, deviceID)
	if err != nil {
		respondWithError(c, err)
		return "", false
	}
	if !linked {
		respondWithError(c, appErrors.ErrDeviceNotLinked)
		return "", false
	}

	return deviceID, true
}

func filterFromQuery(c *gin.Context) history.Filter {
	return history.Filter{
		DaysBack: c.Query("days"),
		Type:     c.Query("type"),
		Status:   c.Query("status"),
	}
}

func (h *HistoryHandler) load(c *gin.Context, deviceID string) (*history.Controller, error) {
	controller := history.NewController(h.repo)
	if err := controller.Fetch(c.Request.Context(), deviceID); err != nil {
		return nil, err
	}
	controller.SetFilter(filterFromQuery(c))
	return controller, nil
}

func (h *HistoryHandler) GetHistory(c *gin.Context) {
	deviceID, ok := h.authorize(c)
	if !ok {
		return
	}

	controller, err := h.load(c, deviceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	pageIndex, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	page := controller.RenderPage(pageIndex)

	utils.SuccessResponse(c, http.StatusOK, "History retrieved", page)
}

func (h *HistoryHandler) ExportHistory(c *gin.Context) {
	deviceID, ok := h.authorize(c)
	if !ok {
		return
	}

	controller, err := h.load(c, deviceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filename := fmt.Sprintf("refill-history-%s-%s", deviceID, time.Now().Format("2006-01-02"))

	switch c.DefaultQuery("format", "csv") {
	case "pdf":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", filename))
		c.Header("Content-Type", "application/pdf")
		if err := controller.ExportPDF(c.Writer); err != nil {
			respondWithError(c, err)
		}
	case "csv":
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		c.Header("Content-Type", "text/csv")
		if err := controller.ExportCSV(c.Writer); err != nil {
			respondWithError(c, err)
		}
	default:
		utils.ErrorResponse(c, http.StatusBadRequest, "Unsupported export format")
	}
}

func (h *HistoryHandler) DeleteRecord(c *gin.Context) {
	deviceID, ok := h.authorize(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), deviceID, c.Param("recordId")); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Record deleted", nil)
}
