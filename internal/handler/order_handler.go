package handler

import (
	"net/http"

	"storefront-be/internal/auth"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orders order.Service
}

func NewOrderHandler(orders order.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type cancelPaymentRequest struct {
	DBOrderID string `json:"dbOrderId"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/orders", middleware.RequireAuth())

	g.POST("/place-order", h.placeOrder)
	g.POST("/create-razorpay-order", h.createRazorpayOrder)
	g.POST("/razorpay/verify-payment", h.verifyPayment)
	g.POST("/razorpay/cancel-payment", h.cancelPayment)
	g.GET("/my-orders", h.myOrders)

	seller := middleware.RequireRole(auth.RoleSeller)
	g.GET("/seller", h.sellerOrders, seller)
	g.GET("/seller/revenue", h.sellerRevenue, seller)
	g.PUT("/seller/status", h.updateStatus, seller)

	admin := middleware.RequireRole(auth.RoleAdmin)
	g.GET("", h.allOrders, admin)
	g.PUT("/status", h.updateStatus, admin)

	g.GET("/:id", h.detail)
}

// placeOrder ignores any items or total in the body; the order is always
// priced from the stored cart.
func (h *OrderHandler) placeOrder(c echo.Context) error {
	var req order.PlaceInput
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	o, err := h.orders.PlaceOrder(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "order": o})
}

func (h *OrderHandler) createRazorpayOrder(c echo.Context) error {
	var req order.PlaceInput
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	sess, err := h.orders.CreateGatewayOrder(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *OrderHandler) verifyPayment(c echo.Context) error {
	var req order.VerifyInput
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	o, err := h.orders.VerifyPayment(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "order": o})
}

func (h *OrderHandler) cancelPayment(c echo.Context) error {
	var req cancelPaymentRequest
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	o, err := h.orders.CancelPayment(c.Request().Context(), req.DBOrderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"message": "payment cancelled, order kept pending",
		"order":   o,
	})
}

func (h *OrderHandler) myOrders(c echo.Context) error {
	orders, err := h.orders.ListMine(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "orders": orders})
}

func (h *OrderHandler) detail(c echo.Context) error {
	o, err := h.orders.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "order": o})
}

func (h *OrderHandler) sellerOrders(c echo.Context) error {
	orders, err := h.orders.ListForSeller(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "orders": orders})
}

func (h *OrderHandler) sellerRevenue(c echo.Context) error {
	rev, err := h.orders.SellerRevenue(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "revenue": rev})
}

func (h *OrderHandler) allOrders(c echo.Context) error {
	orders, err := h.orders.ListAll(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "orders": orders})
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	var req order.StatusUpdate
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	o, err := h.orders.UpdateStatus(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "order": o})
}
