package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/crossarb/crossarb/internal/execution"
	"github.com/crossarb/crossarb/internal/sizing"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreQuote stores a sized opportunity in PostgreSQL. Decimals are
// stored as NUMERIC via their string form so no precision is lost.
func (p *PostgresStorage) StoreQuote(ctx context.Context, q *sizing.Quote) error {
	query := `
		INSERT INTO opportunity_quotes (
			id, base_currency, quote_currency, buy_venue, sell_venue,
			buy_price, buy_limit_price, sell_price, sell_limit_price,
			volume, transfer_fee, gross_profit, net_profit, net_profit_pct,
			quoted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		q.ID,
		q.Pair.Base,
		q.Pair.Quote,
		q.BuyVenue,
		q.SellVenue,
		q.BuyPrice.String(),
		q.BuyLimitPrice.String(),
		q.SellPrice.String(),
		q.SellLimitPrice.String(),
		q.Volume.String(),
		q.TransferFee.String(),
		q.GrossProfit.String(),
		q.NetProfit.String(),
		q.NetProfitPct.String(),
		q.QuotedAt,
	)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}

	p.logger.Debug("quote-stored",
		zap.String("quote-id", q.ID),
		zap.String("pair", q.Pair.String()))
	return nil
}

// StoreExecution stores a paired-order outcome in PostgreSQL.
func (p *PostgresStorage) StoreExecution(ctx context.Context, res *execution.Result) error {
	var buyOrderID, sellOrderID string
	if res.BuyOrder != nil {
		buyOrderID = res.BuyOrder.ID
	}
	if res.SellOrder != nil {
		sellOrderID = res.SellOrder.ID
	}

	query := `
		INSERT INTO executions (
			quote_id, outcome, buy_venue, sell_venue, buy_order_id,
			sell_order_id, volume, net_profit
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		res.Quote.ID,
		string(res.Outcome),
		res.Quote.BuyVenue,
		res.Quote.SellVenue,
		buyOrderID,
		sellOrderID,
		res.Quote.Volume.String(),
		res.Quote.NetProfit.String(),
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	p.logger.Debug("execution-stored",
		zap.String("quote-id", res.Quote.ID),
		zap.String("outcome", string(res.Outcome)))
	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
