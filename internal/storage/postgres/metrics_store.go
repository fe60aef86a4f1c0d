package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/observability"
	"solana-tx-engine/internal/storage"
)

// MetricsStore implements storage.MetricsStore using PostgreSQL.
type MetricsStore struct {
	pool *Pool
}

// NewMetricsStore creates a new MetricsStore.
func NewMetricsStore(pool *Pool) *MetricsStore {
	return &MetricsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MetricsStore = (*MetricsStore)(nil)

const metricsColumns = `
	metrics_id, client_id, vault_pubkey, trade_pubkey, base_mint, quote_mint, signature,
	amount_in, amount_out, txn_fee, swap_fee, txn_pnl, txn_land_time_ms,
	base_token_price, quote_token_price, created_at
`

// Insert adds a new record. Returns ErrDuplicateKey if (client_id, signature) exists.
func (s *MetricsStore) Insert(ctx context.Context, m *domain.TransactionMetrics) (err error) {
	if m == nil || m.ClientID == "" || m.Signature == "" {
		return storage.ErrInvalidInput
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("postgres", "insert_metrics", time.Since(start).Seconds(), err)
	}()

	query := `
		INSERT INTO transactions (` + metricsColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16
		)
		ON CONFLICT (client_id, signature) DO NOTHING
	`

	tag, err := s.pool.Exec(ctx, query,
		m.MetricsID, m.ClientID, m.VaultPubkey, m.TradePubkey, m.BaseMint, m.QuoteMint, m.Signature,
		m.AmountIn, m.AmountOut, m.TxnFee, m.SwapFee, m.TxnPnL, m.TxnLandTimeMs,
		m.BaseTokenPrice, m.QuoteTokenPrice, m.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction metrics: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrDuplicateKey
	}
	return nil
}

// GetBySignature retrieves a record. Returns ErrNotFound if not exists.
func (s *MetricsStore) GetBySignature(ctx context.Context, clientID, signature string) (*domain.TransactionMetrics, error) {
	query := `SELECT ` + metricsColumns + `
		FROM transactions
		WHERE client_id = $1 AND signature = $2
	`

	row := s.pool.QueryRow(ctx, query, clientID, signature)
	m, err := scanMetrics(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction metrics: %w", err)
	}
	return m, nil
}

// ListByClient retrieves all records of a client, ordered by created_at ASC, signature ASC.
func (s *MetricsStore) ListByClient(ctx context.Context, clientID string) ([]*domain.TransactionMetrics, error) {
	query := `SELECT ` + metricsColumns + `
		FROM transactions
		WHERE client_id = $1
		ORDER BY created_at ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("list transaction metrics: %w", err)
	}
	defer rows.Close()

	var result []*domain.TransactionMetrics
	for rows.Next() {
		m, err := scanMetrics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction metrics: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func scanMetrics(row pgx.Row) (*domain.TransactionMetrics, error) {
	var m domain.TransactionMetrics
	err := row.Scan(
		&m.MetricsID, &m.ClientID, &m.VaultPubkey, &m.TradePubkey, &m.BaseMint, &m.QuoteMint, &m.Signature,
		&m.AmountIn, &m.AmountOut, &m.TxnFee, &m.SwapFee, &m.TxnPnL, &m.TxnLandTimeMs,
		&m.BaseTokenPrice, &m.QuoteTokenPrice, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
