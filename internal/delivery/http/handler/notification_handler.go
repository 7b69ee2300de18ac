package handler

import (
	"net/http"
	"sync"

	"hydrolink-monitor/internal/middleware"
	"hydrolink-monitor/internal/notification"
	appErrors "hydrolink-monitor/pkg/errors"
	"hydrolink-monitor/pkg/utils"

	"github.com/gin-gonic/gin"
)

// NotificationHandler serves the notification feed. Each device gets a
// long-lived Feed so "load more" continues from where the previous
// page ended, the way the dashboard scrolls.
type NotificationHandler struct {
	store notification.Store
	links LinkChecker

	mu    sync.Mutex
	feeds map[string]*notification.Feed
}

func NewNotificationHandler(store notification.Store, links LinkChecker) *NotificationHandler {
	return &NotificationHandler{
		store: store,
		links: links,
		feeds: make(map[string]*notification.Feed),
	}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/devices/:deviceId/notifications")
	{
		notifications.GET("", h.GetPage)
		notifications.GET("/unread-count", h.GetUnreadCount)
		notifications.PUT("/:key/read", h.MarkRead)
	}
}

func (h *NotificationHandler) authorize(c *gin.Context) (string, bool) {
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

func (h *NotificationHandler) feed(deviceID string, reset bool) *notification.Feed {
	h.mu.Lock()
	defer h.mu.Unlock()

	feed, exists := h.feeds[deviceID]
	if !exists || reset {
		feed = notification.NewFeed(h.store, deviceID)
		h.feeds[deviceID] = feed
	}
	return feed
}

// GetPage returns the next page of the feed. initial=true restarts
// from the newest notification.
func (h *NotificationHandler) GetPage(c *gin.Context) {
	deviceID, ok := h.authorize(c)
	if !ok {
		return
	}

	initial := c.DefaultQuery("initial", "false") == "true"
	feed := h.feed(deviceID, initial)

	notifications, err := feed.LoadPage(c.Request.Context(), initial)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if notifications == nil {
		notifications = []notification.Notification{}
	}

	utils.SuccessResponse(c, http.StatusOK, "Notifications retrieved", gin.H{
		"notifications": notifications,
		"loaded":        feed.Loaded(),
	})
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	deviceID, ok := h.authorize(c)
	if !ok {
		return
	}

	count, err := h.store.CountUnread(c.Request.Context(), deviceID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Unread count retrieved", gin.H{"unread": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	deviceID, ok := h.authorize(c)
	if !ok {
		return
	}

	if err := h.store.MarkRead(c.Request.Context(), deviceID, c.Param("key")); err != nil {
		respondWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Notification marked read", nil)
}
