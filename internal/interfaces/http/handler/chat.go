package handler

import (
	"time"

	"github.com/craftmarket/backend/internal/application/messaging"
	"github.com/craftmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler handles dialogue and message HTTP requests. Live delivery to
// connected peers happens through the event bus, see ChatRelay.
type ChatHandler struct {
	BaseHandler
	chatService *messaging.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *messaging.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// OpenDialogueRequest opens a dialogue with another user about a listing
type OpenDialogueRequest struct {
	RecipientID uuid.UUID `json:"recipient_id" binding:"required"`
	ListingRef  string    `json:"listing_ref" binding:"required,max=255"`
}

// ListMessagesRequest represents the message listing query parameters
type ListMessagesRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// SendMessageRequest posts a message into a dialogue
type SendMessageRequest struct {
	Text string `json:"text" binding:"required,max=4000"`
}

// PeerResponse describes the other participant of a dialogue
type PeerResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar,omitempty"`
}

// MessageResponseDTO is a chat message in API responses
type MessageResponseDTO struct {
	ID         uuid.UUID `json:"id"`
	DialogueID uuid.UUID `json:"dialogue_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	Text       string    `json:"text"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// DialogueResponse is a dialogue list entry
type DialogueResponse struct {
	ID          uuid.UUID           `json:"id"`
	ListingRef  string              `json:"listing_ref"`
	Peer        PeerResponse        `json:"peer"`
	LastMessage *MessageResponseDTO `json:"last_message,omitempty"`
	UnreadCount int64               `json:"unread_count"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// UnreadCountResponse carries the caller's total unread message count
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkReadResponse reports how many messages a mark-read call affected
type MarkReadResponse struct {
	Marked int64 `json:"marked"`
}

// ListDialogues returns the caller's dialogues ordered by recent activity
func (h *ChatHandler) ListDialogues(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	dialogues, err := h.chatService.ListDialogues(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]DialogueResponse, len(dialogues))
	for i := range dialogues {
		out[i] = toDialogueResponse(&dialogues[i])
	}

	h.Success(c, out)
}

// OpenDialogue opens or returns the dialogue with a recipient about a listing
func (h *ChatHandler) OpenDialogue(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req OpenDialogueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	info, err := h.chatService.OpenDialogue(c.Request.Context(), messaging.OpenDialogueInput{
		UserID:      userID,
		RecipientID: req.RecipientID,
		ListingRef:  req.ListingRef,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toDialogueResponse(info))
}

// ListMessages returns a chronological page of a dialogue's messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	dialogueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid dialogue ID")
		return
	}

	var req ListMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.chatService.ListMessages(c.Request.Context(), messaging.ListMessagesInput{
		UserID:     userID,
		DialogueID: dialogueID,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	messages := make([]MessageResponseDTO, len(result.Messages))
	for i := range result.Messages {
		messages[i] = toMessageResponse(&result.Messages[i])
	}

	h.SuccessWithMeta(c, messages, result.Total, result.Page, result.PageSize)
}

// SendMessage posts a message into a dialogue and relays it to the peer
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	dialogueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid dialogue ID")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	msg, err := h.chatService.SendMessage(c.Request.Context(), messaging.SendMessageInput{
		UserID:     userID,
		DialogueID: dialogueID,
		Text:       req.Text,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toMessageResponse(msg))
}

// MarkRead marks all of the peer's messages in a dialogue as read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	dialogueID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid dialogue ID")
		return
	}

	marked, err := h.chatService.MarkDialogueRead(c.Request.Context(), dialogueID, userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, MarkReadResponse{Marked: marked})
}

// UnreadCount returns the caller's total unread message count
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	count, err := h.chatService.UnreadMessageCount(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, UnreadCountResponse{Count: count})
}

func toMessageResponse(m *messaging.MessageInfo) MessageResponseDTO {
	return MessageResponseDTO{
		ID:         m.ID,
		DialogueID: m.DialogueID,
		SenderID:   m.SenderID,
		Text:       m.Text,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

func toDialogueResponse(d *messaging.DialogueInfo) DialogueResponse {
	resp := DialogueResponse{
		ID:         d.ID,
		ListingRef: d.ListingRef,
		Peer: PeerResponse{
			ID:          d.Peer.ID,
			Email:       d.Peer.Email,
			DisplayName: d.Peer.DisplayName,
			Avatar:      d.Peer.Avatar,
		},
		UnreadCount: d.UnreadCount,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.LastMessage != nil {
		msg := toMessageResponse(d.LastMessage)
		resp.LastMessage = &msg
	}
	return resp
}
