// Package identity implements the account use cases: registration with
// email verification, login with lockout, token refresh and logout.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/craftmarket/backend/internal/domain/identity"
	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/craftmarket/backend/internal/infrastructure/auth"
	"github.com/craftmarket/backend/internal/infrastructure/i18n"
	"github.com/craftmarket/backend/internal/infrastructure/mail"
)

// ActivityRecorder receives account activity signals for metrics.
// *telemetry.MarketplaceMetrics satisfies it.
type ActivityRecorder interface {
	RecordRegistration(ctx context.Context)
	RecordLogin(ctx context.Context, status string)
}

// AuthServiceConfig contains tunables for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int
	LockDuration     time.Duration
}

// DefaultAuthServiceConfig locks an account for 15 minutes after 5 failed
// attempts
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

// AuthService handles registration, verification and authentication
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	mailer     mail.Mailer
	catalog    *i18n.Catalog
	eventBus   shared.EventPublisher
	activity   ActivityRecorder
	config     AuthServiceConfig
	logger     *zap.Logger
}

// AuthServiceOption configures optional collaborators
type AuthServiceOption func(*AuthService)

// WithActivityRecorder wires registration and login metrics
func WithActivityRecorder(recorder ActivityRecorder) AuthServiceOption {
	return func(s *AuthService) {
		s.activity = recorder
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	mailer mail.Mailer,
	catalog *i18n.Catalog,
	eventBus shared.EventPublisher,
	config AuthServiceConfig,
	logger *zap.Logger,
	opts ...AuthServiceOption,
) *AuthService {
	s := &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		blacklist:  blacklist,
		mailer:     mailer,
		catalog:    catalog,
		eventBus:   eventBus,
		config:     config,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a pending account and emails a verification code
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Error("Failed to check email existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check email availability")
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
	}

	user, err := identity.NewUser(input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	if input.DisplayName != "" {
		if err := user.SetDisplayName(input.DisplayName); err != nil {
			return nil, err
		}
	}
	if input.PreferredLanguage != "" {
		user.SetPreferredLanguage(input.PreferredLanguage)
	}

	code, err := user.GenerateVerificationCode()
	if err != nil {
		s.logger.Error("Failed to generate verification code", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate verification code")
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
		}
		s.logger.Error("Failed to create user", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create account")
	}

	s.sendVerificationMail(ctx, user, code)
	s.publishEvents(ctx, user)

	if s.activity != nil {
		s.activity.RecordRegistration(ctx)
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email),
	)

	return &RegisterResult{UserID: user.ID, Email: user.Email}, nil
}

// VerifyEmail activates an account with a valid verification code
func (s *AuthService) VerifyEmail(ctx context.Context, input VerifyEmailInput) error {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		return shared.NewDomainError("INVALID_VERIFICATION_CODE", "Verification code is invalid or expired")
	}

	if err := user.VerifyEmail(input.Code); err != nil {
		return err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update user after verification", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to verify email")
	}

	s.publishEvents(ctx, user)

	s.logger.Info("Email verified", zap.String("user_id", user.ID.String()))
	return nil
}

// ResendCode generates and emails a fresh verification code for a pending
// account
func (s *AuthService) ResendCode(ctx context.Context, input ResendCodeInput) error {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		// Do not reveal whether the email is registered
		s.logger.Debug("Resend requested for unknown email")
		return nil
	}
	if user.EmailVerified {
		return shared.NewDomainError("ALREADY_VERIFIED", "Email is already verified")
	}

	code, err := user.GenerateVerificationCode()
	if err != nil {
		s.logger.Error("Failed to generate verification code", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to generate verification code")
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to store new verification code", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to resend verification code")
	}

	s.sendVerificationMail(ctx, user, code)
	return nil
}

// Login authenticates a user and returns a token pair
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		s.recordLogin(ctx, "failed")
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	if !user.CanLogin() {
		s.recordLogin(ctx, "locked")
		switch {
		case user.IsLocked():
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later")
		case user.IsDeactivated():
			return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
		case user.IsPending():
			return nil, shared.NewDomainError("ACCOUNT_PENDING", "Please verify your email address first")
		default:
			return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is not active")
		}
	}

	if !user.VerifyPassword(input.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.Update(ctx, user); err != nil {
			s.logger.Error("Failed to update user after login failure", zap.Error(err))
		}

		if locked {
			s.recordLogin(ctx, "locked")
			s.logger.Warn("Account locked after repeated failures",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", s.config.MaxLoginAttempts),
			)
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}

		s.recordLogin(ctx, "failed")
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	user.RecordLoginSuccess(input.IP)
	if err := s.userRepo.Update(ctx, user); err != nil {
		// Login still succeeds; only the bookkeeping failed
		s.logger.Error("Failed to update user after successful login", zap.Error(err))
	}

	s.recordLogin(ctx, "success")
	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))

	return &LoginResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
		User:                  toUserInfo(user),
	}, nil
}

// RefreshToken exchanges a valid refresh token for a new pair
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*RefreshTokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, mapTokenError(err)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}

	invalidated, err := s.blacklist.IsUserTokenInvalidated(ctx, claims.UserID, claims.GetIssuedAtTime())
	if err != nil {
		s.logger.Warn("Failed to check token invalidation", zap.Error(err))
	} else if invalidated {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Token has been revoked")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}
	if !user.CanLogin() {
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is no longer active")
	}

	tokenPair, err := s.jwtService.RefreshTokenPair(input.RefreshToken, user.IsAdmin)
	if err != nil {
		return nil, mapTokenError(err)
	}

	return &RefreshTokenResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
	}, nil
}

// Logout blacklists the current access token. With AllSessions set, every
// token issued to the user before now is invalidated.
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.AccessJTI != "" {
		if err := s.blacklist.AddToBlacklist(ctx, input.AccessJTI, input.TokenTTL); err != nil {
			s.logger.Error("Failed to blacklist token", zap.Error(err))
			return shared.NewDomainError("INTERNAL_ERROR", "Failed to log out")
		}
	}

	if input.AllSessions {
		ttl := s.jwtService.GetRefreshTokenExpiration()
		if err := s.blacklist.AddUserTokensToBlacklist(ctx, input.UserID.String(), ttl); err != nil {
			s.logger.Error("Failed to invalidate user sessions", zap.Error(err))
			return shared.NewDomainError("INTERNAL_ERROR", "Failed to log out of all sessions")
		}
	}

	s.logger.Info("User logged out",
		zap.String("user_id", input.UserID.String()),
		zap.Bool("all_sessions", input.AllSessions),
	)
	return nil
}

// ChangePassword verifies the old password and stores a new hash. All other
// sessions are invalidated.
func (s *AuthService) ChangePassword(ctx context.Context, input ChangePasswordInput) error {
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return shared.NewDomainError("USER_NOT_FOUND", "User not found")
	}

	if !user.VerifyPassword(input.OldPassword) {
		return shared.NewDomainError("INVALID_CREDENTIALS", "Current password is incorrect")
	}
	if err := user.ChangePassword(input.NewPassword); err != nil {
		return err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to update password", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to update password")
	}

	ttl := s.jwtService.GetRefreshTokenExpiration()
	if err := s.blacklist.AddUserTokensToBlacklist(ctx, user.ID.String(), ttl); err != nil {
		s.logger.Warn("Failed to invalidate sessions after password change", zap.Error(err))
	}

	s.logger.Info("Password changed", zap.String("user_id", input.UserID.String()))
	return nil
}

func (s *AuthService) sendVerificationMail(ctx context.Context, user *identity.User, code string) {
	lang := user.PreferredLanguage
	if lang == "" {
		lang = s.catalog.DefaultLanguage()
	}

	subject := s.catalog.T(lang, "mail.verification.subject")
	body := s.catalog.T(lang, "mail.verification.body", code)

	// Mail delivery must not block or fail the registration flow
	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Error("Failed to send verification mail",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *AuthService) publishEvents(ctx context.Context, user *identity.User) {
	events := user.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish domain events", zap.Error(err))
	}
	user.ClearDomainEvents()
}

func (s *AuthService) recordLogin(ctx context.Context, status string) {
	if s.activity != nil {
		s.activity.RecordLogin(ctx, status)
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrInvalidToken):
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	default:
		return shared.NewDomainError("TOKEN_ERROR", "Failed to validate refresh token")
	}
}
