package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-tx-engine/internal/domain"
	"solana-tx-engine/internal/observability"
	"solana-tx-engine/internal/storage"
)

// MetricsStore implements storage.MetricsStore on the ClickHouse
// transactions table, used as the analytics copy.
type MetricsStore struct {
	conn *Conn
}

// NewMetricsStore creates a new MetricsStore.
func NewMetricsStore(conn *Conn) *MetricsStore {
	return &MetricsStore{conn: conn}
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
		observability.RecordDBQuery("clickhouse", "insert_metrics", time.Since(start).Seconds(), err)
	}()

	// ReplacingMergeTree would collapse a duplicate; keep append-only semantics.
	exists, err := s.exists(ctx, m.ClientID, m.Signature)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	query := `INSERT INTO transactions (` + metricsColumns + `) VALUES (
		?, ?, ?, ?, ?, ?, ?,
		?, ?, ?, ?, ?, ?,
		?, ?, ?
	)`

	err = s.conn.Exec(ctx, query,
		m.MetricsID, m.ClientID, m.VaultPubkey, m.TradePubkey, m.BaseMint, m.QuoteMint, m.Signature,
		m.AmountIn, m.AmountOut, m.TxnFee, m.SwapFee, m.TxnPnL, m.TxnLandTimeMs,
		m.BaseTokenPrice, m.QuoteTokenPrice, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert transaction metrics: %w", err)
	}
	return nil
}

// GetBySignature retrieves a record. Returns ErrNotFound if not exists.
func (s *MetricsStore) GetBySignature(ctx context.Context, clientID, signature string) (*domain.TransactionMetrics, error) {
	query := `SELECT ` + metricsColumns + `
		FROM transactions FINAL
		WHERE client_id = ? AND signature = ?
		LIMIT 1
	`

	rows, err := s.conn.Query(ctx, query, clientID, signature)
	if err != nil {
		return nil, fmt.Errorf("get transaction metrics: %w", err)
	}
	defer rows.Close()

	records, err := scanMetrics(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, storage.ErrNotFound
	}
	return records[0], nil
}

// ListByClient retrieves all records of a client, ordered by created_at ASC, signature ASC.
func (s *MetricsStore) ListByClient(ctx context.Context, clientID string) ([]*domain.TransactionMetrics, error) {
	query := `SELECT ` + metricsColumns + `
		FROM transactions FINAL
		WHERE client_id = ?
		ORDER BY created_at ASC, signature ASC
	`

	rows, err := s.conn.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("list transaction metrics: %w", err)
	}
	defer rows.Close()

	return scanMetrics(rows)
}

func (s *MetricsStore) exists(ctx context.Context, clientID, signature string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `
		SELECT count(*) FROM transactions FINAL
		WHERE client_id = ? AND signature = ?
	`, clientID, signature).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanMetrics(rows chRows) ([]*domain.TransactionMetrics, error) {
	var result []*domain.TransactionMetrics

	for rows.Next() {
		var m domain.TransactionMetrics
		err := rows.Scan(
			&m.MetricsID, &m.ClientID, &m.VaultPubkey, &m.TradePubkey, &m.BaseMint, &m.QuoteMint, &m.Signature,
			&m.AmountIn, &m.AmountOut, &m.TxnFee, &m.SwapFee, &m.TxnPnL, &m.TxnLandTimeMs,
			&m.BaseTokenPrice, &m.QuoteTokenPrice, &m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metrics row: %w", err)
		}
		result = append(result, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metrics rows: %w", err)
	}

	return result, nil
}
