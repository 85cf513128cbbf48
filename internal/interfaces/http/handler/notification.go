package handler

import (
	"time"

	appnotification "github.com/craftmarket/backend/internal/application/notification"
	"github.com/craftmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NotificationHandler handles inbox notification HTTP requests
type NotificationHandler struct {
	BaseHandler
	service *appnotification.Service
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service *appnotification.Service) *NotificationHandler {
	return &NotificationHandler{
		service: service,
	}
}

// ListNotificationsRequest represents the notification listing query parameters
type ListNotificationsRequest struct {
	Page       int  `form:"page" binding:"omitempty,min=1"`
	PageSize   int  `form:"page_size" binding:"omitempty,min=1,max=100"`
	OnlyUnread bool `form:"only_unread"`
}

// NotificationResponse is a notification in API responses
type NotificationResponse struct {
	ID              uuid.UUID  `json:"id"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	IsRead          bool       `json:"is_read"`
	RelatedObjectID *uuid.UUID `json:"related_object_id,omitempty"`
	ActionURL       string     `json:"action_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// MarkAllReadResponse reports how many notifications were marked read
type MarkAllReadResponse struct {
	Marked int64 `json:"marked"`
}

// List returns a page of the caller's notifications, newest first
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ListNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), appnotification.ListInput{
		UserID:     userID,
		OnlyUnread: req.OnlyUnread,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]NotificationResponse, len(result.Notifications))
	for i := range result.Notifications {
		out[i] = toNotificationResponse(&result.Notifications[i])
	}

	h.SuccessWithMeta(c, out, result.Total, result.Page, result.PageSize)
}

// UnreadCount returns the caller's unread notification count
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	count, err := h.service.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, UnreadCountResponse{Count: count})
}

// MarkRead marks a single notification as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), userID, notificationID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MessageResponse{Message: "Notification marked as read"})
}

// MarkAllRead marks every unread notification of the caller as read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	marked, err := h.service.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MarkAllReadResponse{Marked: marked})
}

// Delete removes a read notification
func (h *NotificationHandler) Delete(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, notificationID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

func toNotificationResponse(n *appnotification.NotificationInfo) NotificationResponse {
	return NotificationResponse{
		ID:              n.ID,
		Type:            string(n.Type),
		Title:           n.Title,
		Message:         n.Message,
		IsRead:          n.IsRead,
		RelatedObjectID: n.RelatedObjectID,
		ActionURL:       n.ActionURL,
		CreatedAt:       n.CreatedAt,
	}
}
