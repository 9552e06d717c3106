package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cryptoSpotBot/internal/domain"
	"cryptoSpotBot/internal/ports"

	"github.com/shopspring/decimal"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.OrderRepository using SQLite. The orders table
// is an append-only audit trail of every order the bot submitted.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/spot_bot.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, err, ports.ErrDBConnection)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally, the Go driver benefits from a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite order store ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		client_order_id TEXT NOT NULL UNIQUE,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		orig_qty TEXT NOT NULL,
		executed_qty TEXT NOT NULL,
		cumulative_quote_qty TEXT NOT NULL,
		status TEXT NOT NULL,
		fills TEXT NOT NULL DEFAULT '[]',
		transact_time TIMESTAMP NOT NULL,
		recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_orders_symbol_transact_time ON orders (symbol, transact_time);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// fillRecord is the JSON shape fills are stored in. Decimals are kept as
// strings so no precision is lost round-tripping through the database.
type fillRecord struct {
	Price           string `json:"price"`
	Quantity        string `json:"quantity"`
	Commission      string `json:"commission"`
	CommissionAsset string `json:"commissionAsset"`
}

// RecordOrder saves a returned order and returns its assigned row ID.
func (r *Repository) RecordOrder(ctx context.Context, order *domain.Order) (int64, error) {
	const query = `
	INSERT INTO orders (order_id, client_order_id, symbol, side, orig_qty, executed_qty,
	                    cumulative_quote_qty, status, fills, transact_time)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	fills := make([]fillRecord, 0, len(order.Fills))
	for _, f := range order.Fills {
		fills = append(fills, fillRecord{
			Price:           f.Price.String(),
			Quantity:        f.Quantity.String(),
			Commission:      f.Commission.String(),
			CommissionAsset: f.CommissionAsset,
		})
	}
	fillsJSON, err := json.Marshal(fills)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal fills for order %d: %w", order.OrderID, err)
	}

	result, err := r.db.ExecContext(ctx, query,
		order.OrderID, order.ClientOrderID, order.Symbol, string(order.Side),
		order.OrigQty.String(), order.ExecutedQty.String(), order.CumulativeQuoteQty.String(),
		order.Status, string(fillsJSON), order.TransactTime.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert order %d for symbol %s: %w: %w", order.OrderID, order.Symbol, err, ports.ErrQueryFailed)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for order %d: %w", order.OrderID, err)
	}
	r.logger.Debug(ctx, "Order recorded", map[string]interface{}{"rowID": id, "orderID": order.OrderID, "symbol": order.Symbol})
	return id, nil
}

// FindRecentBySymbol retrieves the most recent orders for a symbol, up to a limit.
func (r *Repository) FindRecentBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Order, error) {
	const query = `
	SELECT order_id, client_order_id, symbol, side, orig_qty, executed_qty,
	       cumulative_quote_qty, status, fills, transact_time
	FROM orders
	WHERE symbol = ? ORDER BY transact_time DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders for symbol %s: %w: %w", symbol, err, ports.ErrQueryFailed)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order during FindRecentBySymbol: %w", err)
		}
		orders = append(orders, order)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return orders, nil
}

// CountTodayBySymbol counts the orders submitted today for a symbol.
func (r *Repository) CountTodayBySymbol(ctx context.Context, symbol string) (int, error) {
	const query = `SELECT COUNT(*) FROM orders WHERE symbol = ? AND date(transact_time) = date('now')`
	var count int
	err := r.db.QueryRowContext(ctx, query, symbol).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders today for symbol %s: %w: %w", symbol, err, ports.ErrQueryFailed)
	}
	return count, nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	o := &domain.Order{}
	var side, origQty, executedQty, cumQuote, fillsJSON string
	var transactTime time.Time
	err := s.Scan(
		&o.OrderID, &o.ClientOrderID, &o.Symbol, &side, &origQty, &executedQty,
		&cumQuote, &o.Status, &fillsJSON, &transactTime)
	if err != nil {
		return nil, err
	}
	o.Side = domain.OrderSide(side)
	o.TransactTime = transactTime

	if o.OrigQty, err = decimal.NewFromString(origQty); err != nil {
		return nil, fmt.Errorf("parsing stored orig_qty '%s': %w", origQty, err)
	}
	if o.ExecutedQty, err = decimal.NewFromString(executedQty); err != nil {
		return nil, fmt.Errorf("parsing stored executed_qty '%s': %w", executedQty, err)
	}
	if o.CumulativeQuoteQty, err = decimal.NewFromString(cumQuote); err != nil {
		return nil, fmt.Errorf("parsing stored cumulative_quote_qty '%s': %w", cumQuote, err)
	}

	var fills []fillRecord
	if err := json.Unmarshal([]byte(fillsJSON), &fills); err != nil {
		return nil, fmt.Errorf("unmarshalling stored fills: %w", err)
	}
	for _, f := range fills {
		price, err := decimal.NewFromString(f.Price)
		if err != nil {
			return nil, fmt.Errorf("parsing stored fill price '%s': %w", f.Price, err)
		}
		qty, err := decimal.NewFromString(f.Quantity)
		if err != nil {
			return nil, fmt.Errorf("parsing stored fill quantity '%s': %w", f.Quantity, err)
		}
		commission, err := decimal.NewFromString(f.Commission)
		if err != nil {
			return nil, fmt.Errorf("parsing stored fill commission '%s': %w", f.Commission, err)
		}
		o.Fills = append(o.Fills, domain.Fill{
			Price:           price,
			Quantity:        qty,
			Commission:      commission,
			CommissionAsset: f.CommissionAsset,
		})
	}
	return o, nil
}
