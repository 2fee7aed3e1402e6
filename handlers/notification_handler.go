package handlers

import (
	"strconv"

	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/NomadCrew/nomadnova-backend/middleware"
	"github.com/NomadCrew/nomadnova-backend/types"
	"github.com/gin-gonic/gin"
)

// NotificationHandler handles API requests related to notifications.
type NotificationHandler struct {
	notificationService NotificationServiceInterface
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(ns NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{notificationService: ns}
}

// GetNotificationsByUser godoc
// @Summary Get notifications for the current user
// @Param limit query int false "Maximum number of notifications to return (default 20, max 100)"
// @Param offset query int false "Offset for pagination"
// @Param unread query bool false "Only unread notifications"
// @Tags notifications
// @Router /v1/notifications [get]
// @Security BearerAuth
func (h *NotificationHandler) GetNotificationsByUser(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.Query("unread"))

	page, err := h.notificationService.List(c.Request.Context(), userID, types.NotificationFilter{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	items := page.Notifications
	if items == nil {
		items = []types.Notification{}
	}
	middleware.NewResponseBuilder(c).SuccessWithPagination(c, items, page.Limit, page.Offset, page.Total)
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.NewResponseBuilder(c).Success(c, "", gin.H{"count": count})
}

// MarkNotificationAsRead godoc
// @Summary Mark a specific notification as read
// @Tags notifications
// @Router /v1/notifications/{id}/read [patch]
// @Security BearerAuth
func (h *NotificationHandler) MarkNotificationAsRead(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	notificationID := c.Param("id")

	if err := h.notificationService.MarkRead(c.Request.Context(), userID, notificationID); err != nil {
		_ = c.Error(err)
		return
	}
	middleware.NewResponseBuilder(c).Success(c, "Notification marked as read", gin.H{"id": notificationID})
}

func (h *NotificationHandler) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	logger.GetLogger().Debugw("Marked notifications as read", "userID", userID, "count", updated)
	middleware.NewResponseBuilder(c).Success(c, "All notifications marked as read", gin.H{"updated": updated})
}

// DeleteNotification godoc
// @Summary Delete a notification
// @Tags notifications
// @Router /v1/notifications/{id} [delete]
// @Security BearerAuth
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	notificationID := c.Param("id")

	if err := h.notificationService.Delete(c.Request.Context(), userID, notificationID); err != nil {
		_ = c.Error(err)
		return
	}
	middleware.NewResponseBuilder(c).Success(c, "Notification deleted", gin.H{"id": notificationID})
}

func (h *NotificationHandler) DeleteAllNotifications(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	deleted, err := h.notificationService.DeleteAll(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	middleware.NewResponseBuilder(c).Success(c, "Notifications deleted", gin.H{"deleted": deleted})
}
