package handler

import (
	"net/http"

	"storefront-be/internal/cart"
	"storefront-be/internal/middleware"
	"storefront-be/internal/wishlist"

	"github.com/labstack/echo/v4"
)

type CartHandler struct {
	cart     cart.Service
	wishlist wishlist.Service
}

func NewCartHandler(c cart.Service, w wishlist.Service) *CartHandler {
	return &CartHandler{cart: c, wishlist: w}
}

type wishlistRequest struct {
	ProductID string `json:"productId"`
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/cart", middleware.RequireAuth())
	g.GET("", h.get)
	g.POST("", h.add)
	g.PUT("", h.update)
	g.DELETE("/:productId", h.remove)
	g.DELETE("", h.clear)

	w := e.Group("/wishlist", middleware.RequireAuth())
	w.GET("", h.listWishlist)
	w.POST("", h.addWishlist)
	w.DELETE("/:productId", h.removeWishlist)
}

func (h *CartHandler) get(c echo.Context) error {
	res, err := h.cart.Get(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "cart": res})
}

func (h *CartHandler) add(c echo.Context) error {
	var req cart.AddInput
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	res, err := h.cart.Add(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "cart": res})
}

func (h *CartHandler) update(c echo.Context) error {
	var req cart.AddInput
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	res, err := h.cart.UpdateQuantity(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "cart": res})
}

func (h *CartHandler) remove(c echo.Context) error {
	res, err := h.cart.Remove(c.Request().Context(), c.Param("productId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "cart": res})
}

func (h *CartHandler) clear(c echo.Context) error {
	if err := h.cart.Clear(c.Request().Context()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "cart cleared"})
}

func (h *CartHandler) listWishlist(c echo.Context) error {
	items, err := h.wishlist.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "wishlist": items})
}

func (h *CartHandler) addWishlist(c echo.Context) error {
	var req wishlistRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	items, err := h.wishlist.Add(c.Request().Context(), req.ProductID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "wishlist": items})
}

func (h *CartHandler) removeWishlist(c echo.Context) error {
	items, err := h.wishlist.Remove(c.Request().Context(), c.Param("productId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "wishlist": items})
}
