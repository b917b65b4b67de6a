package handler

import (
	"net/http"

	"storefront-be/internal/apperror"
	"storefront-be/internal/auth"
	"storefront-be/internal/middleware"
	"storefront-be/internal/product"

	"github.com/labstack/echo/v4"
)

type ProductHandler struct {
	products product.Service
}

func NewProductHandler(products product.Service) *ProductHandler {
	return &ProductHandler{products: products}
}

func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/products")
	g.GET("", h.list)
	g.GET("/:id", h.detail)

	seller := middleware.RequireRole(auth.RoleSeller, auth.RoleAdmin)
	g.GET("/seller/mine", h.mine, seller)
	g.POST("", h.create, seller)
	g.PUT("/:id", h.update, seller)
	g.DELETE("/:id", h.delete, seller)

	g.GET("/:id/reviews", h.reviews)
	g.POST("/:id/reviews", h.addReview, middleware.RequireAuth())
	g.DELETE("/:id/reviews/:reviewId", h.deleteReview, middleware.RequireAuth())

	if h.products.ImagesEnabled() {
		g.POST("/:id/images", h.uploadImage, seller)
	}
}

func listOptions(c echo.Context) product.ListOptions {
	return product.ListOptions{
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 20),
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
	}
}

func (h *ProductHandler) list(c echo.Context) error {
	res, err := h.products.List(c.Request().Context(), listOptions(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "products": res})
}

func (h *ProductHandler) mine(c echo.Context) error {
	res, err := h.products.ListMine(c.Request().Context(), listOptions(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "products": res})
}

func (h *ProductHandler) detail(c echo.Context) error {
	p, err := h.products.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "product": p})
}

func (h *ProductHandler) create(c echo.Context) error {
	var req product.CreateInput
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.products.Create(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "product": p})
}

func (h *ProductHandler) update(c echo.Context) error {
	var req product.UpdateInput
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.products.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "product": p})
}

func (h *ProductHandler) delete(c echo.Context) error {
	if err := h.products.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "product deleted"})
}

func (h *ProductHandler) uploadImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return writeError(c, apperror.Validation("image file is required"))
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, apperror.Internal(err))
	}
	defer f.Close()

	p, err := h.products.UploadImage(c.Request().Context(), c.Param("id"), product.ImageFile{
		Filename: fh.Filename,
		Size:     fh.Size,
		Body:     f,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "product": p})
}

func (h *ProductHandler) reviews(c echo.Context) error {
	reviews, err := h.products.ListReviews(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "reviews": reviews})
}

func (h *ProductHandler) addReview(c echo.Context) error {
	var req product.ReviewInput
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}

	rv, err := h.products.AddReview(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "review": rv})
}

func (h *ProductHandler) deleteReview(c echo.Context) error {
	if err := h.products.DeleteReview(c.Request().Context(), c.Param("id"), c.Param("reviewId")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "review deleted"})
}
