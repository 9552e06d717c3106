package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cryptoSpotBot/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "spot-bot-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func testOrder(clientOrderID string, side domain.OrderSide, transactTime time.Time) *domain.Order {
	return &domain.Order{
		OrderID:            12345,
		ClientOrderID:      clientOrderID,
		Symbol:             "BTCUSDC",
		Side:               side,
		OrigQty:            decimal.RequireFromString("0.01000"),
		ExecutedQty:        decimal.RequireFromString("0.01000"),
		CumulativeQuoteQty: decimal.RequireFromString("500.00"),
		Status:             "FILLED",
		Fills: []domain.Fill{
			{
				Price:           decimal.RequireFromString("50000.00"),
				Quantity:        decimal.RequireFromString("0.01000"),
				Commission:      decimal.RequireFromString("0.00001"),
				CommissionAsset: "BTC",
			},
		},
		TransactTime: transactTime,
	}
}

func TestRepository_RecordAndFindOrder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := testOrder("client-1", domain.Buy, time.Now())
	id, err := repo.RecordOrder(ctx, order)
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	found, err := repo.FindRecentBySymbol(ctx, "BTCUSDC", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)

	got := found[0]
	assert.Equal(t, order.OrderID, got.OrderID)
	assert.Equal(t, order.ClientOrderID, got.ClientOrderID)
	assert.Equal(t, domain.Buy, got.Side)
	assert.Equal(t, "FILLED", got.Status)
	assert.True(t, got.OrigQty.Equal(order.OrigQty))
	assert.True(t, got.ExecutedQty.Equal(order.ExecutedQty))
	assert.True(t, got.CumulativeQuoteQty.Equal(order.CumulativeQuoteQty))
	require.Len(t, got.Fills, 1)
	assert.True(t, got.Fills[0].Price.Equal(order.Fills[0].Price))
	assert.Equal(t, "BTC", got.Fills[0].CommissionAsset)
}

func TestRepository_DuplicateClientOrderIDRejected(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.RecordOrder(ctx, testOrder("client-dup", domain.Buy, time.Now()))
	require.NoError(t, err)

	_, err = repo.RecordOrder(ctx, testOrder("client-dup", domain.Buy, time.Now()))
	assert.Error(t, err, "client order IDs are unique per submission")
}

func TestRepository_FindRecentOrderingAndLimit(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().Add(-3 * time.Hour)
	for i := 0; i < 3; i++ {
		order := testOrder(
			"client-"+string(rune('a'+i)),
			domain.Buy,
			base.Add(time.Duration(i)*time.Hour),
		)
		_, err := repo.RecordOrder(ctx, order)
		require.NoError(t, err)
	}

	found, err := repo.FindRecentBySymbol(ctx, "BTCUSDC", 2)
	require.NoError(t, err)
	require.Len(t, found, 2)
	// Newest first.
	assert.Equal(t, "client-c", found[0].ClientOrderID)
	assert.Equal(t, "client-b", found[1].ClientOrderID)
}

func TestRepository_FindRecentUnknownSymbol(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	found, err := repo.FindRecentBySymbol(context.Background(), "ETHUSDT", 10)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRepository_CountTodayBySymbol(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.RecordOrder(ctx, testOrder("today-1", domain.Buy, time.Now()))
	require.NoError(t, err)
	_, err = repo.RecordOrder(ctx, testOrder("today-2", domain.Sell, time.Now()))
	require.NoError(t, err)
	_, err = repo.RecordOrder(ctx, testOrder("last-week", domain.Buy, time.Now().AddDate(0, 0, -7)))
	require.NoError(t, err)

	count, err := repo.CountTodayBySymbol(ctx, "BTCUSDC")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountTodayBySymbol(ctx, "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestNewRepository_RequiresLogger(t *testing.T) {
	_, err := NewRepository(Config{DBPath: "ignored.db"})
	assert.Error(t, err)
}
