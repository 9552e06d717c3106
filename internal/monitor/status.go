// Package monitor exposes a read-only view of the bot for display and
// observability. Nothing here feeds back into trading decisions.
package monitor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"

	"cryptoSpotBot/internal/domain"
	"cryptoSpotBot/internal/indicators"
	"cryptoSpotBot/internal/ports"
)

// Status is a point-in-time snapshot of the bot's state, for display and
// monitoring only; it is never mutated externally.
type Status struct {
	Timestamp    time.Time
	Running      bool
	Position     domain.PositionState
	Tentative    bool // position flipped locally, awaiting reconciliation
	BaseAsset    string
	QuoteAsset   string
	BaseBalance  decimal.Decimal
	QuoteBalance decimal.Decimal
	CurrentPrice float64
	LastSignal   domain.Signal
	Indicators   indicators.Values
	LastOrder    *domain.Order
}

// Monitor renders status snapshots into the audit log.
type Monitor struct {
	logger ports.Logger
}

// New creates a monitor writing through the given logger.
func New(logger ports.Logger) (*Monitor, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for monitor")
	}
	return &Monitor{logger: logger}, nil
}

// LogStatus writes the human-readable per-cycle status block.
func (m *Monitor) LogStatus(ctx context.Context, st Status) {
	var sb strings.Builder
	divider := strings.Repeat("=", 50)

	state := "STOPPED"
	if st.Running {
		state = "RUNNING"
	}
	position := "FLAT"
	if st.Position == domain.PositionLong {
		position = "LONG"
	}
	if st.Tentative {
		position += " (unconfirmed)"
	}

	fmt.Fprintf(&sb, "\n%s\nBOT STATUS at %s\n%s\n", divider, st.Timestamp.Format("2006-01-02 15:04:05"), divider)
	fmt.Fprintf(&sb, "State: %s\n", state)
	fmt.Fprintf(&sb, "Position: %s\n", position)
	fmt.Fprintf(&sb, "Balance: %s %s / %s %s\n", st.BaseBalance.String(), st.BaseAsset, st.QuoteBalance.String(), st.QuoteAsset)
	fmt.Fprintf(&sb, "Current Price: %.2f %s\n", st.CurrentPrice, st.QuoteAsset)

	fmt.Fprintf(&sb, "\nTECHNICAL INDICATORS:\n%s\n", strings.Repeat("-", 20))
	fmt.Fprintf(&sb, "EMA 7: %.2f\n", st.Indicators.EMA7)
	fmt.Fprintf(&sb, "EMA 25: %.2f\n", st.Indicators.EMA25)
	fmt.Fprintf(&sb, "EMA 50: %.2f\n", st.Indicators.EMA50)
	fmt.Fprintf(&sb, "EMA 100: %.2f\n", st.Indicators.EMA100)
	fmt.Fprintf(&sb, "MACD: %.2f\n", st.Indicators.MACD)
	fmt.Fprintf(&sb, "MACD Signal: %.2f\n", st.Indicators.Signal)
	fmt.Fprintf(&sb, "RSI: %.2f\n", st.Indicators.RSI)
	fmt.Fprintf(&sb, "ROI: %.2f%%\n", st.Indicators.ROI*100)

	fmt.Fprintf(&sb, "\nSIGNALS AND TRADES:\n%s\n", strings.Repeat("-", 20))
	fmt.Fprintf(&sb, "Last Signal: %s\n", st.LastSignal)
	if st.LastOrder != nil {
		fmt.Fprintf(&sb, "Last Order:\n- Side: %s\n- Quantity: %s\n- Status: %s\n- Time: %s\n",
			st.LastOrder.Side, st.LastOrder.ExecutedQty.String(), st.LastOrder.Status,
			st.LastOrder.TransactTime.Format("2006-01-02 15:04:05"))
	}

	m.logger.Info(ctx, sb.String())
}

// LogOrder writes the human-readable audit block for one submitted order.
// The trading core guarantees exactly one call per submission.
func (m *Monitor) LogOrder(ctx context.Context, order *domain.Order) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nORDER EXECUTED:\n")
	fmt.Fprintf(&sb, "ID: %d\n", order.OrderID)
	fmt.Fprintf(&sb, "Side: %s\n", order.Side)
	fmt.Fprintf(&sb, "Symbol: %s\n", order.Symbol)
	fmt.Fprintf(&sb, "Quantity: %s\n", order.OrigQty.String())
	if price := order.AvgFillPrice(); !price.IsZero() {
		fmt.Fprintf(&sb, "Price: %s\n", price.String())
	} else {
		fmt.Fprintf(&sb, "Price: MARKET\n")
	}
	fmt.Fprintf(&sb, "Status: %s\n", order.Status)
	fmt.Fprintf(&sb, "Time: %s\n", order.TransactTime.Format("2006-01-02 15:04:05"))
	m.logger.Info(ctx, sb.String())
}

// StartupInfo describes the configuration table rendered once at startup.
type StartupInfo struct {
	Symbol            string
	BaseAsset         string
	QuoteAsset        string
	CandleInterval    string
	TradingPercentage float64
	StopLossPct       float64
	TakeProfitPct     float64
	Testnet           bool
}

// RenderStartupTable prints the startup configuration table to w.
func RenderStartupTable(w io.Writer, info StartupInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("SPOT TRADER CONFIGURATION")
	t.SetStyle(table.StyleRounded)

	env := "production"
	if info.Testnet {
		env = "testnet"
	}
	t.AppendRows([]table.Row{
		{"Symbol", info.Symbol},
		{"Base / Quote", fmt.Sprintf("%s / %s", info.BaseAsset, info.QuoteAsset)},
		{"Candle Interval", info.CandleInterval},
		{"Deployment", fmt.Sprintf("%.1f%% of quote balance", info.TradingPercentage)},
		{"Stop Loss", fmt.Sprintf("%.2f%%", info.StopLossPct)},
		{"Take Profit", fmt.Sprintf("%.2f%%", info.TakeProfitPct)},
		{"Environment", env},
	})
	t.Render()
}
