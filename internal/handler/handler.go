// Package handler adapts the domain services to echo routes. Every failure
// is rendered as {success:false, status, message}.
package handler

import (
	"strconv"

	"storefront-be/internal/apperror"
	"storefront-be/internal/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Success   bool   `json:"success"`
	Status    int    `json:"status"`
	Message   string `json:"message"`
	Error     string `json:"error,omitempty"`
	ProductID string `json:"productId,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}

	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.Internal(err)
	}

	status := appErr.Kind.Status()
	message := appErr.Message
	if appErr.Kind == apperror.KindInternal {
		logger.FromCtx(c.Request().Context()).Error("request failed",
			zap.String("layer", "handler"),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		message = "internal server error"
	}

	return c.JSON(status, ErrorResponse{
		Success:   false,
		Status:    status,
		Message:   message,
		Error:     appErr.Kind.String(),
		ProductID: appErr.ProductID,
		Retryable: appErr.Retryable(),
	})
}

func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperror.Validation("invalid request body")
	}
	return nil
}

func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return v
}
