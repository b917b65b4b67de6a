package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"storefront-be/internal/auth"
	"storefront-be/internal/order"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, input order.PlaceInput) (*order.Order, error) {
	args := m.Called(ctx, input)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) CreateGatewayOrder(ctx context.Context, input order.PlaceInput) (*order.GatewaySession, error) {
	args := m.Called(ctx, input)
	s, _ := args.Get(0).(*order.GatewaySession)
	return s, args.Error(1)
}

func (m *MockOrderService) VerifyPayment(ctx context.Context, input order.VerifyInput) (*order.Order, error) {
	args := m.Called(ctx, input)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) CancelPayment(ctx context.Context, dbOrderID string) (*order.Order, error) {
	args := m.Called(ctx, dbOrderID)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) ConfirmFromWebhook(ctx context.Context, remoteOrderID, remotePaymentID string) error {
	return m.Called(ctx, remoteOrderID, remotePaymentID).Error(0)
}

func (m *MockOrderService) FailFromWebhook(ctx context.Context, remoteOrderID string) error {
	return m.Called(ctx, remoteOrderID).Error(0)
}

func (m *MockOrderService) Get(ctx context.Context, orderID string) (*order.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) ListMine(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	o, _ := args.Get(0).([]order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) ListForSeller(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	o, _ := args.Get(0).([]order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) SellerRevenue(ctx context.Context) (*order.Revenue, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*order.Revenue)
	return r, args.Error(1)
}

func (m *MockOrderService) ListAll(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	o, _ := args.Get(0).([]order.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, input order.StatusUpdate) (*order.Order, error) {
	args := m.Called(ctx, input)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, input user.RegisterInput) (*user.User, error) {
	args := m.Called(ctx, input)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *MockUserService) VerifyOTP(ctx context.Context, email, otp string) error {
	return m.Called(ctx, email, otp).Error(0)
}

func (m *MockUserService) ResendOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockUserService) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	args := m.Called(ctx, email, password)
	u, _ := args.Get(1).(*user.User)
	return args.String(0), u, args.Error(2)
}

func (m *MockUserService) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockUserService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	return m.Called(ctx, email, otp, newPassword).Error(0)
}

func (m *MockUserService) GetByID(ctx context.Context, id uint) (*user.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context, role auth.Role) ([]user.User, error) {
	args := m.Called(ctx, role)
	u, _ := args.Get(0).([]user.User)
	return u, args.Error(1)
}

func (m *MockUserService) ToggleBlock(ctx context.Context, id uint) (*user.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

// asUser stands in for the session middleware.
func asUser(id uint, role auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if id != 0 {
				ctx := utils.SetUserContext(c.Request().Context(), id, "u@example.com", role)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
