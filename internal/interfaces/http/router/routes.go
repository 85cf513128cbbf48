package router

import (
	"github.com/craftmarket/backend/internal/interfaces/http/handler"
	"github.com/craftmarket/backend/internal/interfaces/http/middleware"
)

// Handlers bundles the HTTP handlers the API exposes
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Chat         *handler.ChatHandler
	Notification *handler.NotificationHandler
	Pages        *handler.PageHandler
	System       *handler.SystemHandler
}

// Marketplace assembles the versioned API route groups. Public endpoints
// (registration, login, pages, system info) must also appear in the JWT
// middleware skip lists, see middleware.DefaultJWTConfig.
func Marketplace(h Handlers) []RouteRegistrar {
	authRoutes := NewDomainGroup("auth", "/auth")
	authRoutes.POST("/register", h.Auth.Register)
	authRoutes.POST("/verify", h.Auth.VerifyEmail)
	authRoutes.POST("/resend-code", h.Auth.ResendCode)
	authRoutes.POST("/login", h.Auth.Login)
	authRoutes.POST("/refresh", h.Auth.RefreshToken)
	authRoutes.POST("/logout", h.Auth.Logout)
	authRoutes.PUT("/password", h.Auth.ChangePassword)

	userRoutes := NewDomainGroup("users", "/users")
	userRoutes.GET("/me", h.User.GetProfile)
	userRoutes.PUT("/me", h.User.UpdateProfile)
	userRoutes.POST("/me/avatar/upload-url", h.User.AvatarUploadURL)
	userRoutes.PUT("/me/avatar", h.User.ConfirmAvatar)
	userRoutes.GET("/me/avatar", h.User.AvatarDownloadURL)

	adminRoutes := NewDomainGroup("admin", "/admin")
	adminRoutes.Use(middleware.RequireAdmin())
	adminRoutes.GET("/users", h.User.ListUsers)
	adminRoutes.POST("/users", h.User.CreateAdmin)

	chatRoutes := NewDomainGroup("chat", "/chat")
	chatRoutes.GET("/dialogues", h.Chat.ListDialogues)
	chatRoutes.POST("/dialogues", h.Chat.OpenDialogue)
	chatRoutes.GET("/dialogues/:id/messages", h.Chat.ListMessages)
	chatRoutes.POST("/dialogues/:id/messages", h.Chat.SendMessage)
	chatRoutes.PUT("/dialogues/:id/read", h.Chat.MarkRead)
	chatRoutes.GET("/unread-count", h.Chat.UnreadCount)

	notificationRoutes := NewDomainGroup("notifications", "/notifications")
	notificationRoutes.GET("", h.Notification.List)
	notificationRoutes.GET("/unread-count", h.Notification.UnreadCount)
	notificationRoutes.PUT("/:id/read", h.Notification.MarkRead)
	notificationRoutes.PUT("/read-all", h.Notification.MarkAllRead)
	notificationRoutes.DELETE("/:id", h.Notification.Delete)

	pageRoutes := NewDomainGroup("pages", "/pages")
	pageRoutes.GET("", h.Pages.List)
	pageRoutes.GET("/:slug", h.Pages.Get)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", h.System.GetSystemInfo)
	systemRoutes.GET("/ping", h.System.Ping)

	return []RouteRegistrar{
		authRoutes,
		userRoutes,
		adminRoutes,
		chatRoutes,
		notificationRoutes,
		pageRoutes,
		systemRoutes,
	}
}
