package handler

import (
	"time"

	appidentity "github.com/craftmarket/backend/internal/application/identity"
	"github.com/craftmarket/backend/internal/domain/identity"
	"github.com/craftmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// UserHandler handles profile and account management HTTP requests
type UserHandler struct {
	BaseHandler
	userService *appidentity.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *appidentity.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// UpdateProfileRequest represents the request body for a profile update.
// Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,max=150"`
	Language    *string `json:"language" binding:"omitempty,max=10"`
}

// AvatarUploadRequest represents the request body for an avatar upload URL
type AvatarUploadRequest struct {
	FileName    string `json:"file_name" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required,max=100"`
}

// AvatarUploadResponse carries the presigned upload URL and storage key
type AvatarUploadResponse struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ConfirmAvatarRequest confirms a completed avatar upload
type ConfirmAvatarRequest struct {
	Key string `json:"key" binding:"required,max=512"`
}

// AvatarDownloadResponse carries a presigned avatar download URL
type AvatarDownloadResponse struct {
	DownloadURL string `json:"download_url"`
}

// ListUsersRequest represents the admin user listing query parameters
type ListUsersRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search" binding:"omitempty,max=254"`
	Status   string `form:"status" binding:"omitempty,oneof=pending active locked deactivated"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at email display_name"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// CreateAdminRequest represents the request body for creating an admin account
type CreateAdminRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// GetProfile returns the authenticated user's profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	info, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAuthUserResponse(*info))
}

// UpdateProfile updates the authenticated user's mutable profile fields
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	info, err := h.userService.UpdateProfile(c.Request.Context(), appidentity.UpdateProfileInput{
		UserID:            userID,
		DisplayName:       req.DisplayName,
		PreferredLanguage: req.Language,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAuthUserResponse(*info))
}

// AvatarUploadURL returns a presigned URL the client uploads its avatar to
func (h *UserHandler) AvatarUploadURL(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req AvatarUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.userService.AvatarUploadURL(c.Request.Context(), appidentity.AvatarUploadInput{
		UserID:      userID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, AvatarUploadResponse{
		UploadURL: result.UploadURL,
		Key:       result.Key,
		ExpiresAt: result.ExpiresAt,
	})
}

// ConfirmAvatar stores the uploaded avatar key on the user's profile
func (h *UserHandler) ConfirmAvatar(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req ConfirmAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	info, err := h.userService.ConfirmAvatar(c.Request.Context(), userID, req.Key)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toAuthUserResponse(*info))
}

// AvatarDownloadURL returns a presigned URL for the user's current avatar
func (h *UserHandler) AvatarDownloadURL(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	url, err := h.userService.AvatarDownloadURL(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, AvatarDownloadResponse{DownloadURL: url})
}

// ListUsers returns a paginated user listing for administrators
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req ListUsersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	input := appidentity.ListUsersInput{
		Keyword:  req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}
	if req.Status != "" {
		status := identity.UserStatus(req.Status)
		input.Status = &status
	}

	result, err := h.userService.ListUsers(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	users := make([]AuthUserResponse, len(result.Users))
	for i, u := range result.Users {
		users[i] = toAuthUserResponse(u)
	}

	h.SuccessWithMeta(c, users, result.Total, result.Page, result.PageSize)
}

// CreateAdmin creates an administrative account
func (h *UserHandler) CreateAdmin(c *gin.Context) {
	var req CreateAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	info, err := h.userService.CreateAdmin(c.Request.Context(), appidentity.CreateAdminInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toAuthUserResponse(*info))
}
