package handler

import (
	"net/http"

	"storefront-be/internal/address"
	"storefront-be/internal/apperror"
	"storefront-be/internal/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type AddressHandler struct {
	addresses address.Service
}

func NewAddressHandler(addresses address.Service) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

func (h *AddressHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/addresses", middleware.RequireAuth())
	g.GET("", h.list)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.PUT("/:id/default", h.setDefault)
}

func addressID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperror.NotFound("address")
	}
	return id, nil
}

func (h *AddressHandler) list(c echo.Context) error {
	list, err := h.addresses.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "addresses": list})
}

func (h *AddressHandler) create(c echo.Context) error {
	var req address.Input
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	a, err := h.addresses.Create(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "address": a})
}

func (h *AddressHandler) update(c echo.Context) error {
	id, err := addressID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req address.Input
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	a, err := h.addresses.Update(c.Request().Context(), id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "address": a})
}

func (h *AddressHandler) delete(c echo.Context) error {
	id, err := addressID(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.addresses.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "address deleted"})
}

func (h *AddressHandler) setDefault(c echo.Context) error {
	id, err := addressID(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.addresses.SetDefault(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "default address updated"})
}
