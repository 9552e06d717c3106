package binanceclient

import (
	"context"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSpotBot/internal/domain"
	"cryptoSpotBot/internal/ports"
)

type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func testClient() *Client {
	return &Client{logger: &mockLogger{}}
}

func TestTranslateKline(t *testing.T) {
	k := &binance.Kline{
		OpenTime:  1700000000000,
		CloseTime: 1700003599999,
		Open:      "50000.10",
		High:      "50500.00",
		Low:       "49800.25",
		Close:     "50250.50",
		Volume:    "12.345",
	}
	kline, err := translateKline(k, "BTCUSDC", "1h")
	require.NoError(t, err)
	assert.Equal(t, time.UnixMilli(1700000000000), kline.OpenTime)
	assert.Equal(t, time.UnixMilli(1700003599999), kline.CloseTime)
	assert.Equal(t, "BTCUSDC", kline.Symbol)
	assert.Equal(t, "1h", kline.Interval)
	assert.Equal(t, 50000.10, kline.Open)
	assert.Equal(t, 50250.50, kline.Close)
	assert.Equal(t, 12.345, kline.Volume)
}

func TestTranslateKline_InvalidNumber(t *testing.T) {
	k := &binance.Kline{Open: "not-a-number", High: "1", Low: "1", Close: "1", Volume: "1"}
	_, err := translateKline(k, "BTCUSDC", "1h")
	assert.Error(t, err)
}

func TestTranslateOrder(t *testing.T) {
	resp := &binance.CreateOrderResponse{
		Symbol:                   "BTCUSDC",
		OrderID:                  12345,
		ClientOrderID:            "abc-123",
		TransactTime:             1700000000000,
		OrigQuantity:             "0.01000",
		ExecutedQuantity:         "0.01000",
		CummulativeQuoteQuantity: "500.00",
		Status:                   binance.OrderStatusTypeFilled,
		Side:                     binance.SideTypeBuy,
		Fills: []*binance.Fill{
			{Price: "50000.00", Quantity: "0.01000", Commission: "0.00001", CommissionAsset: "BTC"},
		},
	}
	order, err := translateOrder(resp)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), order.OrderID)
	assert.Equal(t, "abc-123", order.ClientOrderID)
	assert.Equal(t, domain.Buy, order.Side)
	assert.Equal(t, "FILLED", order.Status)
	assert.True(t, order.OrigQty.Equal(order.ExecutedQty))
	require.Len(t, order.Fills, 1)
	assert.Equal(t, "BTC", order.Fills[0].CommissionAsset)
	assert.True(t, order.AvgFillPrice().Equal(decimal.NewFromInt(50000)))
}

func TestFilterDecimal(t *testing.T) {
	filter := map[string]interface{}{
		"filterType": "LOT_SIZE",
		"stepSize":   "0.00001000",
		"minQty":     "0.00001000",
	}
	assert.True(t, filterDecimal(filter, "stepSize").Equal(decimal.RequireFromString("0.00001")))
	assert.True(t, filterDecimal(filter, "missing").IsZero())

	filter["stepSize"] = 42 // wrong type
	assert.True(t, filterDecimal(filter, "stepSize").IsZero())
}

func TestHandleError_APICodes(t *testing.T) {
	c := testClient()
	ctx := context.Background()

	tests := []struct {
		name     string
		code     int64
		message  string
		sentinel error
	}{
		{"rate limited", -1003, "too many requests", ports.ErrRateLimited},
		{"timestamp drift", -1021, "timestamp outside recvWindow", ports.ErrConnectionFailed},
		{"filter failure", -1013, "filter failure: LOT_SIZE", ports.ErrInvalidRequest},
		{"order rejected", -2010, "account has insufficient balance", ports.ErrInsufficientFunds},
		{"order rejected other", -2010, "duplicate order sent", ports.ErrOrderPlacementFailed},
		{"order not found", -2013, "order does not exist", ports.ErrNotFound},
		{"bad api key", -2014, "api key format invalid", ports.ErrInvalidAPIKeys},
		{"rejected keys", -2015, "invalid api-key, ip, or permissions", ports.ErrInvalidAPIKeys},
		{"invalid request range", -1102, "mandatory parameter missing", ports.ErrInvalidRequest},
		{"unmapped", -9999, "some new error", ports.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.handleError(ctx, &common.APIError{Code: tt.code, Message: tt.message}, "op")
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestHandleError_ContextAndTransport(t *testing.T) {
	c := testClient()
	ctx := context.Background()

	assert.ErrorIs(t, c.handleError(ctx, context.Canceled, "op"), ports.ErrContextCanceled)
	assert.ErrorIs(t, c.handleError(ctx, context.DeadlineExceeded, "op"), ports.ErrTimeout)
	assert.ErrorIs(t, c.handleError(ctx, assert.AnError, "op"), ports.ErrConnectionFailed)
	assert.NoError(t, c.handleError(ctx, nil, "op"))
}

func TestHandleError_TransientClassification(t *testing.T) {
	c := testClient()
	ctx := context.Background()

	rateLimited := c.handleError(ctx, &common.APIError{Code: -1003, Message: "slow down"}, "op")
	assert.True(t, ports.IsTransient(rateLimited))

	badRequest := c.handleError(ctx, &common.APIError{Code: -1013, Message: "LOT_SIZE"}, "op")
	assert.False(t, ports.IsTransient(badRequest))
}
