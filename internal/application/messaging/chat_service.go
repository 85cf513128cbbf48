package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftmarket/backend/internal/domain/identity"
	"github.com/craftmarket/backend/internal/domain/messaging"
	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/craftmarket/backend/internal/infrastructure/cache"
)

const (
	defaultMessagePageSize = 50
	maxMessagePageSize     = 200
)

// UnreadCache caches per-user unread counters. *cache.UnreadCountCache
// satisfies it.
type UnreadCache interface {
	Get(ctx context.Context, kind cache.UnreadKind, userID uuid.UUID) (int64, bool, error)
	Set(ctx context.Context, kind cache.UnreadKind, userID uuid.UUID, count int64) error
	Invalidate(ctx context.Context, kind cache.UnreadKind, userID uuid.UUID) error
}

var _ UnreadCache = (*cache.UnreadCountCache)(nil)

// MessageRecorder counts sent messages for telemetry.
// *telemetry.MarketplaceMetrics satisfies it.
type MessageRecorder interface {
	RecordMessageSent(ctx context.Context)
}

// ChatService implements dialogue and message operations
type ChatService struct {
	dialogueRepo messaging.DialogueRepository
	messageRepo  messaging.MessageRepository
	userRepo     identity.UserRepository
	eventBus     shared.EventPublisher
	unreadCache  UnreadCache
	activity     MessageRecorder
	logger       *zap.Logger
}

// ChatServiceOption customizes a ChatService
type ChatServiceOption func(*ChatService)

// WithUnreadCache attaches an unread counter cache
func WithUnreadCache(c UnreadCache) ChatServiceOption {
	return func(s *ChatService) {
		s.unreadCache = c
	}
}

// WithMessageRecorder attaches a telemetry recorder
func WithMessageRecorder(r MessageRecorder) ChatServiceOption {
	return func(s *ChatService) {
		s.activity = r
	}
}

// NewChatService creates a chat application service
func NewChatService(
	dialogueRepo messaging.DialogueRepository,
	messageRepo messaging.MessageRepository,
	userRepo identity.UserRepository,
	eventBus shared.EventPublisher,
	logger *zap.Logger,
	opts ...ChatServiceOption,
) *ChatService {
	s := &ChatService{
		dialogueRepo: dialogueRepo,
		messageRepo:  messageRepo,
		userRepo:     userRepo,
		eventBus:     eventBus,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenDialogue returns the dialogue between the caller and the recipient
// about a listing, creating it on first contact.
func (s *ChatService) OpenDialogue(ctx context.Context, input OpenDialogueInput) (*DialogueInfo, error) {
	recipient, err := s.userRepo.FindByID(ctx, input.RecipientID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "Recipient not found")
		}
		s.logger.Error("Failed to load dialogue recipient", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to open dialogue")
	}

	existing, err := s.dialogueRepo.FindByParticipantsAndListing(ctx, input.UserID, input.RecipientID, input.ListingRef)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("Failed to look up dialogue", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to open dialogue")
	}
	if existing != nil {
		return s.toDialogueInfo(ctx, existing, input.UserID, recipient)
	}

	dialogue, err := messaging.NewDialogue(input.UserID, input.RecipientID, input.ListingRef)
	if err != nil {
		return nil, err
	}

	if err := s.dialogueRepo.Create(ctx, dialogue); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Lost a race against the recipient opening the same dialogue
			existing, findErr := s.dialogueRepo.FindByParticipantsAndListing(ctx, input.UserID, input.RecipientID, input.ListingRef)
			if findErr == nil && existing != nil {
				return s.toDialogueInfo(ctx, existing, input.UserID, recipient)
			}
		}
		s.logger.Error("Failed to create dialogue", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to open dialogue")
	}

	s.publishEvents(ctx, dialogue)

	return s.toDialogueInfo(ctx, dialogue, input.UserID, recipient)
}

// ListDialogues returns the caller's dialogues, most recently active first,
// each with the peer, the latest message and the unread counter.
func (s *ChatService) ListDialogues(ctx context.Context, userID uuid.UUID) ([]DialogueInfo, error) {
	dialogues, err := s.dialogueRepo.FindByParticipant(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list dialogues", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list dialogues")
	}

	infos := make([]DialogueInfo, 0, len(dialogues))
	for _, d := range dialogues {
		info, err := s.toDialogueInfo(ctx, d, userID, nil)
		if err != nil {
			return nil, err
		}
		infos = append(infos, *info)
	}
	return infos, nil
}

// ListMessages returns a page of the dialogue's messages in chronological
// order. Only participants may read a dialogue.
func (s *ChatService) ListMessages(ctx context.Context, input ListMessagesInput) (*ListMessagesResult, error) {
	dialogue, err := s.loadParticipantDialogue(ctx, input.DialogueID, input.UserID)
	if err != nil {
		return nil, err
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize < 1 {
		pageSize = defaultMessagePageSize
	}
	if pageSize > maxMessagePageSize {
		pageSize = maxMessagePageSize
	}

	messages, total, err := s.messageRepo.FindByDialogue(ctx, dialogue.ID, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to list messages", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list messages")
	}

	result := &ListMessagesResult{
		Messages: make([]MessageInfo, 0, len(messages)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, m := range messages {
		result.Messages = append(result.Messages, toMessageInfo(m))
	}
	return result, nil
}

// SendMessage stores a message in the dialogue and notifies the recipient
// through a MessageSent event
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*MessageInfo, error) {
	dialogue, err := s.loadParticipantDialogue(ctx, input.DialogueID, input.UserID)
	if err != nil {
		return nil, err
	}

	sender, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		s.logger.Error("Failed to load message sender", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to send message")
	}

	message, err := messaging.NewMessage(dialogue.ID, input.UserID, input.Text)
	if err != nil {
		return nil, err
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		s.logger.Error("Failed to store message", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to send message")
	}

	if err := s.dialogueRepo.TouchUpdatedAt(ctx, dialogue.ID); err != nil {
		// The message is already stored; only the list ordering is stale
		s.logger.Warn("Failed to bump dialogue activity", zap.Error(err))
	}

	if err := s.eventBus.Publish(ctx, messaging.NewMessageSentEvent(dialogue, message, sender.Email)); err != nil {
		s.logger.Error("Failed to publish message event", zap.Error(err))
	}

	s.invalidateUnread(ctx, dialogue.OtherParticipant(input.UserID))

	if s.activity != nil {
		s.activity.RecordMessageSent(ctx)
	}

	info := toMessageInfo(message)
	return &info, nil
}

// MarkDialogueRead marks every message sent to the caller in the dialogue
// as read and returns the number of messages affected
func (s *ChatService) MarkDialogueRead(ctx context.Context, dialogueID, userID uuid.UUID) (int64, error) {
	dialogue, err := s.loadParticipantDialogue(ctx, dialogueID, userID)
	if err != nil {
		return 0, err
	}

	affected, err := s.messageRepo.MarkDialogueRead(ctx, dialogue.ID, userID)
	if err != nil {
		s.logger.Error("Failed to mark dialogue read", zap.Error(err))
		return 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to mark dialogue as read")
	}

	if affected > 0 {
		s.invalidateUnread(ctx, userID)
		if err := s.eventBus.Publish(ctx, messaging.NewMessagesReadEvent(dialogue, userID, affected)); err != nil {
			s.logger.Error("Failed to publish read event", zap.Error(err))
		}
	}
	return affected, nil
}

// UnreadMessageCount returns the caller's total unread message count across
// all dialogues. The counter is served from cache when possible.
func (s *ChatService) UnreadMessageCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.unreadCache != nil {
		count, ok, err := s.unreadCache.Get(ctx, cache.UnreadMessages, userID)
		if err != nil {
			s.logger.Warn("Failed to read unread counter cache", zap.Error(err))
		} else if ok {
			return count, nil
		}
	}

	dialogues, err := s.dialogueRepo.FindByParticipant(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count unread messages", zap.Error(err))
		return 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to count unread messages")
	}

	var total int64
	for _, d := range dialogues {
		count, err := s.messageRepo.CountUnread(ctx, d.ID, userID)
		if err != nil {
			s.logger.Error("Failed to count unread messages", zap.Error(err))
			return 0, shared.NewDomainError("INTERNAL_ERROR", "Failed to count unread messages")
		}
		total += count
	}

	if s.unreadCache != nil {
		if err := s.unreadCache.Set(ctx, cache.UnreadMessages, userID, total); err != nil {
			s.logger.Warn("Failed to store unread counter cache", zap.Error(err))
		}
	}
	return total, nil
}

// loadParticipantDialogue loads the dialogue and checks the caller takes
// part in it. Non-participants get the same not-found error as a missing
// dialogue so dialogue IDs cannot be probed.
func (s *ChatService) loadParticipantDialogue(ctx context.Context, dialogueID, userID uuid.UUID) (*messaging.Dialogue, error) {
	dialogue, err := s.dialogueRepo.FindByID(ctx, dialogueID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("DIALOGUE_NOT_FOUND", "Dialogue not found")
		}
		s.logger.Error("Failed to load dialogue", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load dialogue")
	}
	if !dialogue.HasParticipant(userID) {
		return nil, shared.NewDomainError("DIALOGUE_NOT_FOUND", "Dialogue not found")
	}
	return dialogue, nil
}

func (s *ChatService) toDialogueInfo(ctx context.Context, d *messaging.Dialogue, userID uuid.UUID, peer *identity.User) (*DialogueInfo, error) {
	if peer == nil {
		var err error
		peer, err = s.userRepo.FindByID(ctx, d.OtherParticipant(userID))
		if err != nil {
			s.logger.Error("Failed to load dialogue peer",
				zap.String("dialogue_id", d.ID.String()), zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load dialogue")
		}
	}

	last, err := s.messageRepo.LastMessage(ctx, d.ID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to load last message: %w", err)
	}

	unread, err := s.messageRepo.CountUnread(ctx, d.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}

	info := &DialogueInfo{
		ID:         d.ID,
		ListingRef: d.ListingRef,
		Peer: PeerInfo{
			ID:          peer.ID,
			Email:       peer.Email,
			DisplayName: peer.DisplayName,
			Avatar:      peer.Avatar,
		},
		UnreadCount: unread,
		UpdatedAt:   d.UpdatedAt,
	}
	if last != nil {
		msg := toMessageInfo(last)
		info.LastMessage = &msg
	}
	return info, nil
}

func (s *ChatService) invalidateUnread(ctx context.Context, userID uuid.UUID) {
	if s.unreadCache == nil || userID == uuid.Nil {
		return
	}
	if err := s.unreadCache.Invalidate(ctx, cache.UnreadMessages, userID); err != nil {
		s.logger.Warn("Failed to invalidate unread counter", zap.Error(err))
	}
}

func (s *ChatService) publishEvents(ctx context.Context, aggregate *messaging.Dialogue) {
	events := aggregate.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events", zap.Error(err))
	}
	aggregate.ClearDomainEvents()
}
