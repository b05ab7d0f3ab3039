package portfolio

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wardenlabs/warden/internal/domain"
)

// Repository provides data access for portfolio records.
//
// Writes go through an optimistic version check: Update only succeeds when
// the caller presents the version it read, so concurrent rebalances of the
// same portfolio cannot silently overwrite each other.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new portfolio repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const portfolioColumns = `id, user_id, name, risk_profile, allocations, version,
	last_risk_score, last_risk_level, created_at, updated_at`

// Create persists a new portfolio. The allocation sum invariant is enforced
// at this boundary: an allocation not totaling 100% never reaches disk.
func (r *Repository) Create(p *domain.Portfolio) error {
	if !p.Allocations.SumsTo100() {
		return &domain.AllocationSumError{Total: p.Allocations.Sum()}
	}

	allocJSON, err := json.Marshal(p.Allocations)
	if err != nil {
		return fmt.Errorf("failed to marshal allocations: %w", err)
	}

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1

	_, err = r.db.Exec(`
		INSERT INTO portfolios (id, user_id, name, risk_profile, allocations, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, string(p.RiskProfile), string(allocJSON), p.Version,
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}

	return nil
}

// GetByID fetches a portfolio scoped to its owner.
// Returns domain.ErrPortfolioNotFound when missing or owned by another user.
func (r *Repository) GetByID(portfolioID, userID string) (*domain.Portfolio, error) {
	row := r.db.QueryRow(
		`SELECT `+portfolioColumns+` FROM portfolios WHERE id = ? AND user_id = ?`,
		portfolioID, userID,
	)
	return scanPortfolio(row)
}

// ListByUser returns all portfolios owned by a user.
func (r *Repository) ListByUser(userID string) ([]domain.Portfolio, error) {
	rows, err := r.db.Query(
		`SELECT `+portfolioColumns+` FROM portfolios WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	return collectPortfolios(rows)
}

// ListAll returns every portfolio. Used by the periodic risk sweep.
func (r *Repository) ListAll() ([]domain.Portfolio, error) {
	rows, err := r.db.Query(`SELECT ` + portfolioColumns + ` FROM portfolios ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	return collectPortfolios(rows)
}

// Update persists changes to a portfolio using the version the caller read.
// Returns domain.ErrVersionConflict when another writer updated the row in
// between, and bumps Version on success.
func (r *Repository) Update(p *domain.Portfolio) error {
	if !p.Allocations.SumsTo100() {
		return &domain.AllocationSumError{Total: p.Allocations.Sum()}
	}

	allocJSON, err := json.Marshal(p.Allocations)
	if err != nil {
		return fmt.Errorf("failed to marshal allocations: %w", err)
	}

	now := time.Now().UTC()

	result, err := r.db.Exec(`
		UPDATE portfolios
		SET name = ?, risk_profile = ?, allocations = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		p.Name, string(p.RiskProfile), string(allocJSON), now.Unix(),
		p.ID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}

	p.Version++
	p.UpdatedAt = now
	return nil
}

// UpdateRiskSnapshot records the latest sweep result on the portfolio row.
// Deliberately not version-checked: the snapshot is observational and must
// not conflict with user-driven updates.
func (r *Repository) UpdateRiskSnapshot(portfolioID string, score float64, level string) error {
	_, err := r.db.Exec(
		`UPDATE portfolios SET last_risk_score = ?, last_risk_level = ? WHERE id = ?`,
		score, level, portfolioID,
	)
	if err != nil {
		return fmt.Errorf("failed to update risk snapshot: %w", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPortfolio(row scanner) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var profile, allocJSON string
	var score sql.NullFloat64
	var level sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(&p.ID, &p.UserID, &p.Name, &profile, &allocJSON, &p.Version,
		&score, &level, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan portfolio: %w", err)
	}

	p.RiskProfile = domain.RiskProfile(profile)
	if err := json.Unmarshal([]byte(allocJSON), &p.Allocations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allocations: %w", err)
	}
	if score.Valid {
		p.LastRiskScore = &score.Float64
	}
	if level.Valid {
		p.LastRiskLevel = level.String
	}
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	p.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &p, nil
}

func collectPortfolios(rows *sql.Rows) ([]domain.Portfolio, error) {
	var portfolios []domain.Portfolio
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate portfolios: %w", err)
	}
	return portfolios, nil
}
