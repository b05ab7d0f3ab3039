// Package transactions implements the transaction lifecycle: pending
// transactions are created, then executed against live market prices,
// updating the portfolio's positions.
package transactions

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/wardenlabs/warden/internal/domain"
)

// defaultListLimit caps unbounded transaction listings.
const defaultListLimit = 50

// ListFilters narrows GetUserTransactions results. Zero values are ignored.
type ListFilters struct {
	Type      domain.TransactionType
	Status    domain.TransactionStatus
	AssetType string
	Limit     int
	Offset    int
}

// Repository provides data access for transaction records.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new transaction repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const transactionColumns = `id, user_id, portfolio_id, token_id, asset_type, type,
	amount, market_price, status, created_at, completed_at`

// Create persists a new transaction.
func (r *Repository) Create(tx *domain.Transaction) error {
	now := time.Now().UTC()
	tx.CreatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO transactions (id, user_id, portfolio_id, token_id, asset_type, type, amount, market_price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.PortfolioID, tx.TokenID, tx.AssetType,
		string(tx.Type), tx.Amount, tx.MarketPrice, string(tx.Status), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// GetByID fetches a transaction.
// Returns domain.ErrTransactionNotFound when missing.
func (r *Repository) GetByID(transactionID string) (*domain.Transaction, error) {
	row := r.db.QueryRow(
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`,
		transactionID,
	)
	return scanTransaction(row)
}

// Update persists status, market price, and completion time changes.
func (r *Repository) Update(tx *domain.Transaction) error {
	var completedAt interface{}
	if tx.CompletedAt != nil {
		completedAt = tx.CompletedAt.Unix()
	}

	result, err := r.db.Exec(`
		UPDATE transactions SET market_price = ?, status = ?, completed_at = ? WHERE id = ?`,
		tx.MarketPrice, string(tx.Status), completedAt, tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// GetUserTransactions returns a user's transactions, newest first, narrowed
// by the given filters.
func (r *Repository) GetUserTransactions(userID string, filters ListFilters) ([]domain.Transaction, error) {
	conditions := []string{"user_id = ?"}
	args := []interface{}{userID}

	if filters.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filters.Type))
	}
	if filters.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filters.Status))
	}
	if filters.AssetType != "" {
		conditions = append(conditions, "asset_type = ?")
		args = append(args, filters.AssetType)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, filters.Offset)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conditions, " AND ") +
		` ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	return transactions, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var txType, status string
	var marketPrice sql.NullFloat64
	var createdAt int64
	var completedAt sql.NullInt64

	err := row.Scan(&tx.ID, &tx.UserID, &tx.PortfolioID, &tx.TokenID, &tx.AssetType,
		&txType, &tx.Amount, &marketPrice, &status, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Type = domain.TransactionType(txType)
	tx.Status = domain.TransactionStatus(status)
	if marketPrice.Valid {
		tx.MarketPrice = marketPrice.Float64
	}
	tx.CreatedAt = time.Unix(createdAt, 0).UTC()
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		tx.CompletedAt = &t
	}

	return &tx, nil
}
