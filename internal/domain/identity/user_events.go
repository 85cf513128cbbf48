package identity

import (
	"time"

	"github.com/craftmarket/backend/internal/domain/shared"
)

// Aggregate type constant for User
const AggregateTypeUser = "User"

// User domain event types
const (
	EventTypeUserRegistered    = "UserRegistered"
	EventTypeUserEmailVerified = "UserEmailVerified"
	EventTypeUserLocked        = "UserLocked"
)

// UserRegisteredEvent is published when a new account is registered
type UserRegisteredEvent struct {
	shared.BaseDomainEvent
	Email  string     `json:"email"`
	Status UserStatus `json:"status"`
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent
func NewUserRegisteredEvent(user *User) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRegistered, AggregateTypeUser, user.ID),
		Email:           user.Email,
		Status:          user.Status,
	}
}

// UserEmailVerifiedEvent is published when an account confirms its email
type UserEmailVerifiedEvent struct {
	shared.BaseDomainEvent
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
}

// NewUserEmailVerifiedEvent creates a new UserEmailVerifiedEvent
func NewUserEmailVerifiedEvent(user *User) *UserEmailVerifiedEvent {
	return &UserEmailVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserEmailVerified, AggregateTypeUser, user.ID),
		Email:           user.Email,
		VerifiedAt:      time.Now(),
	}
}

// UserLockedEvent is published when an account is locked after repeated
// failed login attempts
type UserLockedEvent struct {
	shared.BaseDomainEvent
	Email       string     `json:"email"`
	LockedUntil *time.Time `json:"locked_until"`
}

// NewUserLockedEvent creates a new UserLockedEvent
func NewUserLockedEvent(user *User) *UserLockedEvent {
	return &UserLockedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserLocked, AggregateTypeUser, user.ID),
		Email:           user.Email,
		LockedUntil:     user.LockedUntil,
	}
}
