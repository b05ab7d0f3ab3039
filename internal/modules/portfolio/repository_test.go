package portfolio

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/warden/internal/database"
	"github.com/wardenlabs/warden/internal/domain"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	return db
}

func validPortfolio(userID string) *domain.Portfolio {
	alloc, _ := InitialAllocations(domain.ProfileModerate)
	return &domain.Portfolio{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        "Main",
		RiskProfile: domain.ProfileModerate,
		Allocations: alloc,
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.Conn())

	p := validPortfolio("user-1")
	require.NoError(t, repo.Create(p))
	assert.Equal(t, int64(1), p.Version)

	got, err := repo.GetByID(p.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, domain.ProfileModerate, got.RiskProfile)
	assert.True(t, got.Allocations.SumsTo100())
	assert.Nil(t, got.LastRiskScore)
}

func TestRepository_Create_RejectsBadSum(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.Conn())

	p := validPortfolio("user-1")
	p.Allocations = domain.Allocation{domain.AssetCrypto: 50}

	err := repo.Create(p)
	var sumErr *domain.AllocationSumError
	assert.ErrorAs(t, err, &sumErr)
}

func TestRepository_GetByID_ScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.Conn())

	p := validPortfolio("user-1")
	require.NoError(t, repo.Create(p))

	_, err := repo.GetByID(p.ID, "someone-else")
	assert.ErrorIs(t, err, domain.ErrPortfolioNotFound)
}

func TestRepository_Update_VersionConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.Conn())

	p := validPortfolio("user-1")
	require.NoError(t, repo.Create(p))

	// Two readers fetch the same version.
	first, err := repo.GetByID(p.ID, "user-1")
	require.NoError(t, err)
	second, err := repo.GetByID(p.ID, "user-1")
	require.NoError(t, err)

	// First writer wins and bumps the version.
	first.Name = "Renamed"
	require.NoError(t, repo.Update(first))
	assert.Equal(t, int64(2), first.Version)

	// Second writer presents the stale version and loses.
	second.Name = "Conflicting"
	err = repo.Update(second)
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	// The winner's write is intact.
	got, err := repo.GetByID(p.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, int64(2), got.Version)
}

func TestRepository_UpdateRiskSnapshot(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.Conn())

	p := validPortfolio("user-1")
	require.NoError(t, repo.Create(p))

	require.NoError(t, repo.UpdateRiskSnapshot(p.ID, 0.42, "medium"))

	got, err := repo.GetByID(p.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got.LastRiskScore)
	assert.InDelta(t, 0.42, *got.LastRiskScore, 1e-9)
	assert.Equal(t, "medium", got.LastRiskLevel)

	// Snapshot writes do not consume the optimistic version.
	assert.Equal(t, int64(1), got.Version)
}

func TestRepository_ListByUser(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.Conn())

	require.NoError(t, repo.Create(validPortfolio("user-1")))
	require.NoError(t, repo.Create(validPortfolio("user-1")))
	require.NoError(t, repo.Create(validPortfolio("user-2")))

	mine, err := repo.ListByUser("user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	all, err := repo.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestInvestmentRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	pfRepo := NewRepository(db.Conn())
	invRepo := NewInvestmentRepository(db.Conn())

	p := validPortfolio("user-1")
	require.NoError(t, pfRepo.Create(p))

	inv := &domain.Investment{
		ID:            uuid.NewString(),
		PortfolioID:   p.ID,
		UserID:        "user-1",
		TokenID:       "bitcoin",
		AssetType:     domain.AssetCrypto,
		Amount:        2,
		PurchasePrice: 40_000,
	}
	require.NoError(t, invRepo.Create(inv))
	assert.Equal(t, domain.InvestmentActive, inv.Status)

	got, err := invRepo.GetByToken(p.ID, "bitcoin")
	require.NoError(t, err)
	assert.InDelta(t, 2, got.Amount, 1e-9)
	// No live price recorded yet: value falls back to purchase price.
	assert.InDelta(t, 80_000, got.Value(), 1e-9)

	got.CurrentPrice = 50_000
	got.Amount = 1.5
	require.NoError(t, invRepo.Update(got))

	listed, err := invRepo.ListByPortfolio(p.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.InDelta(t, 75_000, listed[0].Value(), 1e-9)

	_, err = invRepo.GetByToken(p.ID, "no-such-token")
	assert.ErrorIs(t, err, domain.ErrInvestmentNotFound)
}
