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

type AdminHandler struct {
	users user.Service
}

func NewAdminHandler(users user.Service) *AdminHandler {
	return &AdminHandler{users: users}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/admin", middleware.RequireRole(auth.RoleAdmin))
	g.GET("/users", h.listUsers)
	g.PATCH("/users/:id/block", h.toggleBlock)
}

func (h *AdminHandler) listUsers(c echo.Context) error {
	users, err := h.users.ListUsers(c.Request().Context(), auth.Role(c.QueryParam("role")))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "users": users})
}

func (h *AdminHandler) toggleBlock(c echo.Context) error {
	id, err := utils.ToUint(c.Param("id"))
	if err != nil || id == 0 {
		return writeError(c, apperror.NotFound("user"))
	}

	u, err := h.users.ToggleBlock(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "user": u})
}
