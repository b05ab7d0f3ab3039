package portfolio

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/wardenlabs/warden/internal/domain"
)

// InvestmentRepository provides data access for positions.
type InvestmentRepository struct {
	db *sql.DB
}

// NewInvestmentRepository creates a new investment repository.
func NewInvestmentRepository(db *sql.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

const investmentColumns = `id, portfolio_id, user_id, token_id, asset_type, amount,
	staked_amount, purchase_price, current_price, status, purchase_date, updated_at`

// Create persists a new investment.
func (r *InvestmentRepository) Create(inv *domain.Investment) error {
	now := time.Now().UTC()
	inv.UpdatedAt = now
	if inv.PurchaseDate.IsZero() {
		inv.PurchaseDate = now
	}
	if inv.Status == "" {
		inv.Status = domain.InvestmentActive
	}

	_, err := r.db.Exec(`
		INSERT INTO investments (`+investmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.PortfolioID, inv.UserID, inv.TokenID, inv.AssetType,
		inv.Amount, inv.StakedAmount, inv.PurchasePrice, inv.CurrentPrice,
		string(inv.Status), inv.PurchaseDate.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert investment: %w", err)
	}

	return nil
}

// Update persists changes to an existing investment.
func (r *InvestmentRepository) Update(inv *domain.Investment) error {
	now := time.Now().UTC()

	result, err := r.db.Exec(`
		UPDATE investments
		SET amount = ?, staked_amount = ?, purchase_price = ?, current_price = ?,
		    status = ?, updated_at = ?
		WHERE id = ?`,
		inv.Amount, inv.StakedAmount, inv.PurchasePrice, inv.CurrentPrice,
		string(inv.Status), now.Unix(), inv.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update investment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrInvestmentNotFound
	}

	inv.UpdatedAt = now
	return nil
}

// ListByPortfolio returns all investments held in a portfolio.
func (r *InvestmentRepository) ListByPortfolio(portfolioID string) ([]domain.Investment, error) {
	rows, err := r.db.Query(
		`SELECT `+investmentColumns+` FROM investments WHERE portfolio_id = ? ORDER BY purchase_date`,
		portfolioID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var investments []domain.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		investments = append(investments, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate investments: %w", err)
	}

	return investments, nil
}

// GetByToken fetches the position a portfolio holds in one asset.
// Returns domain.ErrInvestmentNotFound when the portfolio holds none.
func (r *InvestmentRepository) GetByToken(portfolioID, tokenID string) (*domain.Investment, error) {
	row := r.db.QueryRow(
		`SELECT `+investmentColumns+` FROM investments WHERE portfolio_id = ? AND token_id = ?`,
		portfolioID, tokenID,
	)
	return scanInvestment(row)
}

func scanInvestment(row scanner) (*domain.Investment, error) {
	var inv domain.Investment
	var status string
	var purchaseDate, updatedAt int64

	err := row.Scan(&inv.ID, &inv.PortfolioID, &inv.UserID, &inv.TokenID, &inv.AssetType,
		&inv.Amount, &inv.StakedAmount, &inv.PurchasePrice, &inv.CurrentPrice,
		&status, &purchaseDate, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrInvestmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan investment: %w", err)
	}

	inv.Status = domain.InvestmentStatus(status)
	inv.PurchaseDate = time.Unix(purchaseDate, 0).UTC()
	inv.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &inv, nil
}
