package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"

	"cryptoSpotBot/internal/domain"
	"cryptoSpotBot/internal/ports"
)

const testnetBaseURL = "https://testnet.binance.vision"

// Client implements ports.ExchangeClient against the Binance spot REST API.
type Client struct {
	client *binance.Client
	logger ports.Logger
}

// Config holds the parameters for the Binance client.
type Config struct {
	APIKey    string
	SecretKey string
	IsTestnet bool
}

// NewClient creates a Binance spot client and verifies connectivity.
func NewClient(ctx context.Context, cfg Config, logger ports.Logger) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("API key and secret key are required: %w", ports.ErrConfigurationError)
	}

	c := binance.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.IsTestnet {
		c.BaseURL = testnetBaseURL
	}

	client := &Client{client: c, logger: logger}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("initial connectivity check failed: %w", err)
	}

	logger.Info(ctx, "Binance client initialized", map[string]interface{}{
		"testnet": cfg.IsTestnet,
	})
	return client, nil
}

// Ping checks connectivity to the exchange.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, err, "ping")
	}
	return nil
}

// GetAccountSnapshot fetches the current spot account balances.
func (c *Client) GetAccountSnapshot(ctx context.Context) (*domain.AccountSnapshot, error) {
	account, err := c.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "get account")
	}

	snapshot := &domain.AccountSnapshot{
		Balances: make([]domain.AssetBalance, 0, len(account.Balances)),
	}
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			c.logger.Warn(ctx, "Skipping balance with unparsable free amount", map[string]interface{}{
				"asset": b.Asset,
				"free":  b.Free,
			})
			continue
		}
		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			locked = decimal.Zero
		}
		snapshot.Balances = append(snapshot.Balances, domain.AssetBalance{
			Asset:  b.Asset,
			Free:   free,
			Locked: locked,
		})
	}
	return snapshot, nil
}

// GetTickerPrice fetches the latest trade price for a symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := c.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, c.handleError(ctx, err, "get ticker price")
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("no price returned for symbol %s: %w", symbol, ports.ErrNotFound)
	}
	price, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing price '%s' for %s: %w", prices[0].Price, symbol, ports.ErrUnknown)
	}
	return price, nil
}

// GetKlines fetches historical candles for a symbol.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	raw, err := c.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "get klines")
	}

	klines := make([]*domain.Kline, 0, len(raw))
	for _, k := range raw {
		kline, err := translateKline(k, symbol, interval)
		if err != nil {
			return nil, fmt.Errorf("translating kline at open time %d: %w", k.OpenTime, err)
		}
		klines = append(klines, kline)
	}
	return klines, nil
}

// GetSymbolRules fetches the lot-size and notional filters for a symbol.
// Filters are read from the raw filter maps because Binance has renamed the
// notional filter (MIN_NOTIONAL vs NOTIONAL) across API versions.
func (c *Client) GetSymbolRules(ctx context.Context, symbol string) (*domain.SymbolRules, error) {
	info, err := c.client.NewExchangeInfoService().Symbols(symbol).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "get exchange info")
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}
		rules := &domain.SymbolRules{Symbol: symbol}
		for _, f := range s.Filters {
			filterType, _ := f["filterType"].(string)
			switch filterType {
			case "LOT_SIZE":
				rules.StepSize = filterDecimal(f, "stepSize")
				rules.MinQty = filterDecimal(f, "minQty")
				rules.MaxQty = filterDecimal(f, "maxQty")
			case "MIN_NOTIONAL", "NOTIONAL":
				rules.MinNotional = filterDecimal(f, "minNotional")
			}
		}
		if rules.StepSize.Sign() <= 0 {
			return nil, fmt.Errorf("lot size filter missing for %s: %w", symbol, ports.ErrSymbolRulesMissing)
		}
		return rules, nil
	}
	return nil, fmt.Errorf("symbol %s not found in exchange info: %w", symbol, ports.ErrSymbolRulesMissing)
}

// PlaceMarketOrder submits a market order. The quantity must already be
// formatted to the symbol's step precision. The client order ID makes the
// submission identifiable if the response is lost.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side domain.OrderSide, quantity, clientOrderID string) (*domain.Order, error) {
	c.logger.Info(ctx, "Submitting market order", map[string]interface{}{
		"symbol":          symbol,
		"side":            string(side),
		"quantity":        quantity,
		"client_order_id": clientOrderID,
	})

	resp, err := c.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(side)).
		Type(binance.OrderTypeMarket).
		Quantity(quantity).
		NewClientOrderID(clientOrderID).
		Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, "create order")
	}

	order, err := translateOrder(resp)
	if err != nil {
		return nil, fmt.Errorf("translating order response for %s: %w", symbol, err)
	}
	return order, nil
}

// --- Translation helpers ---

func translateKline(k *binance.Kline, symbol, interval string) (*domain.Kline, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open '%s': %w", k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high '%s': %w", k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low '%s': %w", k.Low, err)
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close '%s': %w", k.Close, err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", k.Volume, err)
	}
	return &domain.Kline{
		OpenTime:  time.UnixMilli(k.OpenTime),
		CloseTime: time.UnixMilli(k.CloseTime),
		Symbol:    symbol,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

func translateOrder(resp *binance.CreateOrderResponse) (*domain.Order, error) {
	origQty, err := decimal.NewFromString(resp.OrigQuantity)
	if err != nil {
		return nil, fmt.Errorf("parsing original quantity '%s': %w", resp.OrigQuantity, err)
	}
	executedQty, err := decimal.NewFromString(resp.ExecutedQuantity)
	if err != nil {
		return nil, fmt.Errorf("parsing executed quantity '%s': %w", resp.ExecutedQuantity, err)
	}
	cumQuote, err := decimal.NewFromString(resp.CummulativeQuoteQuantity)
	if err != nil {
		return nil, fmt.Errorf("parsing cumulative quote quantity '%s': %w", resp.CummulativeQuoteQuantity, err)
	}

	fills := make([]domain.Fill, 0, len(resp.Fills))
	for _, f := range resp.Fills {
		price, err := decimal.NewFromString(f.Price)
		if err != nil {
			return nil, fmt.Errorf("parsing fill price '%s': %w", f.Price, err)
		}
		qty, err := decimal.NewFromString(f.Quantity)
		if err != nil {
			return nil, fmt.Errorf("parsing fill quantity '%s': %w", f.Quantity, err)
		}
		commission, err := decimal.NewFromString(f.Commission)
		if err != nil {
			commission = decimal.Zero
		}
		fills = append(fills, domain.Fill{
			Price:           price,
			Quantity:        qty,
			Commission:      commission,
			CommissionAsset: f.CommissionAsset,
		})
	}

	return &domain.Order{
		OrderID:            resp.OrderID,
		ClientOrderID:      resp.ClientOrderID,
		Symbol:             resp.Symbol,
		Side:               domain.OrderSide(resp.Side),
		OrigQty:            origQty,
		ExecutedQty:        executedQty,
		CumulativeQuoteQty: cumQuote,
		Status:             string(resp.Status),
		Fills:              fills,
		TransactTime:       time.UnixMilli(resp.TransactTime),
	}, nil
}

func filterDecimal(filter map[string]interface{}, key string) decimal.Decimal {
	s, ok := filter[key].(string)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// --- Error Handling ---

// handleError maps Binance API errors onto the port sentinel errors so the
// rest of the application can classify them without importing this package.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", operation, ports.ErrContextCanceled)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", operation, ports.ErrTimeout)
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		c.logger.Warn(ctx, "Binance API error", map[string]interface{}{
			"operation": operation,
			"code":      apiErr.Code,
			"message":   apiErr.Message,
		})
		switch {
		case apiErr.Code == -1003:
			return fmt.Errorf("%s: rate limited: %w", operation, ports.ErrRateLimited)
		case apiErr.Code == -1021:
			return fmt.Errorf("%s: timestamp outside recvWindow: %w", operation, ports.ErrConnectionFailed)
		case apiErr.Code == -1013:
			return fmt.Errorf("%s: order filter failure: %w", operation, ports.ErrInvalidRequest)
		case apiErr.Code == -2010:
			if strings.Contains(strings.ToLower(apiErr.Message), "insufficient") {
				return fmt.Errorf("%s: %s: %w", operation, apiErr.Message, ports.ErrInsufficientFunds)
			}
			return fmt.Errorf("%s: %s: %w", operation, apiErr.Message, ports.ErrOrderPlacementFailed)
		case apiErr.Code == -2013:
			return fmt.Errorf("%s: order does not exist: %w", operation, ports.ErrNotFound)
		case apiErr.Code == -2014 || apiErr.Code == -2015:
			return fmt.Errorf("%s: %s: %w", operation, apiErr.Message, ports.ErrInvalidAPIKeys)
		case apiErr.Code <= -1100 && apiErr.Code >= -1130:
			return fmt.Errorf("%s: %s: %w", operation, apiErr.Message, ports.ErrInvalidRequest)
		default:
			return fmt.Errorf("%s: binance error %d (%s): %w", operation, apiErr.Code, apiErr.Message, ports.ErrUnknown)
		}
	}

	// Transport-level failure (DNS, TLS, reset connections).
	c.logger.Warn(ctx, "Exchange request failed", map[string]interface{}{
		"operation": operation,
		"error":     err.Error(),
	})
	return fmt.Errorf("%s: %v: %w", operation, err, ports.ErrConnectionFailed)
}
