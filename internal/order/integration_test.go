//go:build integration

package order

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront-be/internal/apperror"
	"storefront-be/internal/auth"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts postgres, applies the schema and returns a pool.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	files, err := filepath.Glob(filepath.Join("..", "..", "migrations", "*.sql"))
	require.NoError(t, err)
	sort.Strings(files)
	for _, f := range files {
		schema, err := os.ReadFile(f)
		require.NoError(t, err)
		up := strings.SplitN(string(schema), "-- +migrate Down", 2)[0]
		_, err = conn.ExecContext(ctx, up)
		require.NoError(t, err, f)
	}

	return conn
}

type seeded struct {
	shopperID uint
	sellerID  uint
	prodA     string
	prodB     string
}

func seed(t *testing.T, conn *sql.DB, stockA int) seeded {
	t.Helper()
	ctx := context.Background()
	var s seeded

	require.NoError(t, conn.QueryRowContext(ctx, `
		INSERT INTO users (name, email, phone, password, role, verified)
		VALUES ('Seller', 'seller@example.com', '9000000001', 'x', 'seller', TRUE) RETURNING id`,
	).Scan(&s.sellerID))
	require.NoError(t, conn.QueryRowContext(ctx, `
		INSERT INTO users (name, email, phone, password, role, verified)
		VALUES ('Shopper', 'shopper@example.com', '9000000002', 'x', 'shopper', TRUE) RETURNING id`,
	).Scan(&s.shopperID))

	s.prodA, s.prodB = uuid.NewString(), uuid.NewString()
	_, err := conn.ExecContext(ctx, `
		INSERT INTO products (id, seller_id, name, price, discount_price, stock) VALUES
		($1, $3, 'Lamp', 100, 80, $4),
		($2, $3, 'Rug', 50, NULL, 5)`,
		s.prodA, s.prodB, s.sellerID, stockA)
	require.NoError(t, err)

	_, err = conn.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, 2), ($1, $3, 1)`,
		s.shopperID, s.prodA, s.prodB)
	require.NoError(t, err)

	return s
}

func stockOf(t *testing.T, conn *sql.DB, productID string) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT stock FROM products WHERE id = $1`, productID).Scan(&n))
	return n
}

func cartCount(t *testing.T, conn *sql.DB, userID uint) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM cart_items WHERE user_id = $1`, userID).Scan(&n))
	return n
}

func TestIntegration_CashOnDelivery(t *testing.T) {
	conn := setupTestDB(t)
	s := seed(t, conn, 10)
	svc := NewService(NewRepository(conn), new(MockGateway), nil, nil, "INR")
	ctx := ctxFor(s.shopperID, auth.RoleShopper)

	o, err := svc.PlaceOrder(ctx, PlaceInput{PaymentType: PaymentCOD, Address: home})
	require.NoError(t, err)

	assert.Equal(t, "210", o.TotalPrice.String())
	assert.Len(t, o.Items, 2)
	assert.Equal(t, 8, stockOf(t, conn, s.prodA))
	assert.Equal(t, 4, stockOf(t, conn, s.prodB))
	assert.Equal(t, 0, cartCount(t, conn, s.shopperID))

	stored, err := svc.Get(ctx, o.ID.String())
	require.NoError(t, err)
	assert.Equal(t, home, stored.Address)
	assert.Equal(t, PaymentPending, stored.PaymentStatus)

	_, err = svc.PlaceOrder(ctx, PlaceInput{PaymentType: PaymentCOD, Address: home})
	assert.Equal(t, apperror.KindEmptyCart, apperror.KindOf(err))
}

func TestIntegration_ConcurrentPlacement(t *testing.T) {
	conn := setupTestDB(t)
	s := seed(t, conn, 10)
	svc := NewService(NewRepository(conn), new(MockGateway), nil, nil, "INR")
	ctx := ctxFor(s.shopperID, auth.RoleShopper)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PlaceOrder(ctx, PlaceInput{PaymentType: PaymentCOD, Address: home})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 8, stockOf(t, conn, s.prodA))

	var orders int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM orders WHERE user_id = $1`, s.shopperID).Scan(&orders))
	assert.Equal(t, 1, orders)
}

func TestIntegration_GatewayStockShortAtCapture(t *testing.T) {
	conn := setupTestDB(t)
	s := seed(t, conn, 10)
	gw := new(MockGateway)
	svc := NewService(NewRepository(conn), gw, nil, nil, "INR")
	ctx := ctxFor(s.shopperID, auth.RoleShopper)

	gw.On("CreateOrder", mock.Anything, int64(21000), "INR", mock.Anything).Return(remoteOrder("order_IT1", 21000), nil)
	gw.On("VerifyPaymentSignature", "order_IT1", "pay_IT1", "sig").Return(true)

	sess, err := svc.CreateGatewayOrder(ctx, PlaceInput{Address: home})
	require.NoError(t, err)

	// Someone else buys the last lamps between checkout and capture.
	_, err = conn.Exec(`UPDATE products SET stock = 1 WHERE id = $1`, s.prodA)
	require.NoError(t, err)

	o, err := svc.VerifyPayment(ctx, VerifyInput{
		RemoteOrderID: "order_IT1", RemotePaymentID: "pay_IT1", Signature: "sig", DBOrderID: sess.DBOrderID.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, StatusCancelled, o.OrderStatus)
	assert.Equal(t, 1, stockOf(t, conn, s.prodA))
	assert.Equal(t, 5, stockOf(t, conn, s.prodB))
	assert.Equal(t, 2, cartCount(t, conn, s.shopperID))
}
