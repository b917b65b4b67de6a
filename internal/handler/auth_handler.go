package handler

import (
	"net/http"

	"storefront-be/internal/apperror"
	"storefront-be/internal/auth"
	"storefront-be/internal/middleware"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	users        user.Service
	secureCookie bool
}

func NewAuthHandler(users user.Service, secureCookie bool) *AuthHandler {
	return &AuthHandler{users: users, secureCookie: secureCookie}
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/auth")
	g.POST("/register", h.register)
	g.POST("/verify-otp", h.verifyOTP)
	g.POST("/resend-otp", h.resendOTP)
	g.POST("/login", h.login)
	g.POST("/logout", h.logout)
	g.POST("/forgot-password", h.forgotPassword)
	g.POST("/reset-password", h.resetPassword)
	g.GET("/me", h.me, middleware.RequireAuth())
}

func (h *AuthHandler) register(c echo.Context) error {
	var req user.RegisterInput
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	u, err := h.users.Register(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": "verification code sent to " + u.Email,
		"user":    u,
	})
}

func (h *AuthHandler) verifyOTP(c echo.Context) error {
	var req verifyOTPRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	if err := h.users.VerifyOTP(c.Request().Context(), req.Email, req.OTP); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "email verified"})
}

func (h *AuthHandler) resendOTP(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	if err := h.users.ResendOTP(c.Request().Context(), req.Email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "verification code sent"})
}

func (h *AuthHandler) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	token, u, err := h.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}

	c.SetCookie(auth.SessionCookie(token, h.secureCookie))
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"token":   token,
		"user":    u,
	})
}

func (h *AuthHandler) logout(c echo.Context) error {
	c.SetCookie(auth.ExpiredSessionCookie(h.secureCookie))
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *AuthHandler) forgotPassword(c echo.Context) error {
	var req emailRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	if err := h.users.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "reset code sent"})
}

func (h *AuthHandler) resetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	if err := h.users.ResetPassword(c.Request().Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "password updated"})
}

func (h *AuthHandler) me(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return writeError(c, apperror.Unauthenticated())
	}

	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "user": u})
}
