package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/craftmarket/backend/internal/domain/identity"
	"github.com/craftmarket/backend/internal/domain/messaging"
	"github.com/craftmarket/backend/internal/domain/notification"
	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/craftmarket/backend/internal/infrastructure/i18n"
)

// MessageSentHandler turns MessageSent events into new_message inbox
// entries for the recipient, in the recipient's preferred language.
// Repeated messages in the same dialogue coalesce into one unread entry.
type MessageSentHandler struct {
	service  *Service
	userRepo identity.UserRepository
	catalog  *i18n.Catalog
	logger   *zap.Logger
}

// NewMessageSentHandler creates the handler
func NewMessageSentHandler(service *Service, userRepo identity.UserRepository, catalog *i18n.Catalog, logger *zap.Logger) *MessageSentHandler {
	return &MessageSentHandler{
		service:  service,
		userRepo: userRepo,
		catalog:  catalog,
		logger:   logger,
	}
}

// Handle processes a MessageSent event
func (h *MessageSentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	sent, ok := event.(*messaging.MessageSentEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T for %s", event, event.EventType())
	}

	lang := h.catalog.DefaultLanguage()
	recipient, err := h.userRepo.FindByID(ctx, sent.RecipientID)
	if err != nil {
		// Fall back to the default language rather than dropping the entry
		h.logger.Warn("Failed to load notification recipient",
			zap.String("user_id", sent.RecipientID.String()), zap.Error(err))
	} else if recipient.PreferredLanguage != "" {
		lang = recipient.PreferredLanguage
	}

	dialogueID := sent.AggregateID()
	_, err = h.service.Create(ctx, CreateInput{
		UserID:          sent.RecipientID,
		Type:            notification.TypeNewMessage,
		Title:           h.catalog.T(lang, "notification.new_message.title"),
		Message:         h.catalog.T(lang, "notification.new_message.body", sent.SenderEmail, sent.Preview),
		RelatedObjectID: &dialogueID,
		ActionURL:       fmt.Sprintf("/chat/%s", dialogueID),
	})
	if err != nil {
		return fmt.Errorf("failed to create message notification: %w", err)
	}
	return nil
}

// EventTypes returns the event types this handler subscribes to
func (h *MessageSentHandler) EventTypes() []string {
	return []string{messaging.EventTypeMessageSent}
}

var _ shared.EventHandler = (*MessageSentHandler)(nil)
