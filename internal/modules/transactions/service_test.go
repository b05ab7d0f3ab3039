package transactions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenlabs/warden/internal/database"
	"github.com/wardenlabs/warden/internal/domain"
	"github.com/wardenlabs/warden/internal/modules/portfolio"
	"github.com/wardenlabs/warden/pkg/logger"
)

// stubMarketClient serves a fixed price per token.
type stubMarketClient struct {
	prices map[string]float64
	err    error
}

func (s *stubMarketClient) GetHistoricalData(ctx context.Context, tokenID string, days int) (*domain.HistoricalData, error) {
	return nil, nil
}

func (s *stubMarketClient) GetMarketOverview(ctx context.Context) (*domain.MarketSnapshot, error) {
	return nil, nil
}

func (s *stubMarketClient) GetTokenPrice(ctx context.Context, tokenID string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.prices[tokenID], nil
}

type testEnv struct {
	service *Service
	repo    *Repository
	pfRepo  *portfolio.Repository
	invRepo *portfolio.InvestmentRepository
	market  *stubMarketClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "portfolio.db"),
		Profile: database.ProfileStandard,
		Name:    "portfolio",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db.Conn())
	pfRepo := portfolio.NewRepository(db.Conn())
	invRepo := portfolio.NewInvestmentRepository(db.Conn())
	market := &stubMarketClient{prices: map[string]float64{"bitcoin": 50_000, "usdc": 1}}
	log := logger.New(logger.Config{Level: "error"})

	return &testEnv{
		service: NewService(repo, pfRepo, invRepo, market, log),
		repo:    repo,
		pfRepo:  pfRepo,
		invRepo: invRepo,
		market:  market,
	}
}

func (e *testEnv) createPortfolio(t *testing.T, userID string) *domain.Portfolio {
	t.Helper()
	alloc, err := portfolio.InitialAllocations(domain.ProfileModerate)
	require.NoError(t, err)

	p := &domain.Portfolio{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        "Main",
		RiskProfile: domain.ProfileModerate,
		Allocations: alloc,
	}
	require.NoError(t, e.pfRepo.Create(p))
	return p
}

func TestCreateTransaction(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPortfolio(t, "user-1")

	tx, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxBuy, 0.5)
	require.NoError(t, err)

	assert.Equal(t, domain.TxPending, tx.Status)
	assert.NotEmpty(t, tx.ID)

	got, err := env.repo.GetByID(tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxPending, got.Status)
}

func TestCreateTransaction_Validation(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPortfolio(t, "user-1")

	_, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, "short", 1)
	assert.Error(t, err, "unknown type")

	_, err = env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxBuy, 0)
	assert.Error(t, err, "zero amount")

	_, err = env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxBuy, -2)
	assert.Error(t, err, "negative amount")

	_, err = env.service.CreateTransaction("intruder", p.ID, "bitcoin", domain.AssetCrypto, domain.TxBuy, 1)
	assert.ErrorIs(t, err, domain.ErrPortfolioNotFound)
}

func TestExecuteTransaction_BuyCreatesPosition(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPortfolio(t, "user-1")

	tx, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxBuy, 2)
	require.NoError(t, err)

	executed, err := env.service.ExecuteTransaction(context.Background(), tx.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.TxCompleted, executed.Status)
	assert.InDelta(t, 50_000, executed.MarketPrice, 1e-9)
	require.NotNil(t, executed.CompletedAt)

	inv, err := env.invRepo.GetByToken(p.ID, "bitcoin")
	require.NoError(t, err)
	assert.InDelta(t, 2, inv.Amount, 1e-9)
	assert.InDelta(t, 50_000, inv.PurchasePrice, 1e-9)
	assert.Equal(t, domain.InvestmentActive, inv.Status)
}

func TestExecuteTransaction_RepeatedBuysAveragePrice(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPortfolio(t, "user-1")

	tx1, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxBuy, 1)
	require.NoError(t, err)
	_, err = env.service.ExecuteTransaction(context.Background(), tx1.ID)
	require.NoError(t, err)

	// Price doubles before the second buy.
	env.market.prices["bitcoin"] = 100_000

	tx2, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxBuy, 1)
	require.NoError(t, err)
	_, err = env.service.ExecuteTransaction(context.Background(), tx2.ID)
	require.NoError(t, err)

	inv, err := env.invRepo.GetByToken(p.ID, "bitcoin")
	require.NoError(t, err)
	assert.InDelta(t, 2, inv.Amount, 1e-9)
	// (1*50k + 1*100k) / 2
	assert.InDelta(t, 75_000, inv.PurchasePrice, 1e-9)
	assert.InDelta(t, 100_000, inv.CurrentPrice, 1e-9)
}

func TestExecuteTransaction_SellInsufficientBalance(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPortfolio(t, "user-1")

	tx, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxSell, 1)
	require.NoError(t, err)

	_, err = env.service.ExecuteTransaction(context.Background(), tx.ID)
	require.Error(t, err)

	// The transaction is marked failed, not left pending.
	got, getErr := env.repo.GetByID(tx.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TxFailed, got.Status)
}

func TestExecuteTransaction_SellToZeroMarksSold(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPortfolio(t, "user-1")

	buy, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxBuy, 1)
	require.NoError(t, err)
	_, err = env.service.ExecuteTransaction(context.Background(), buy.ID)
	require.NoError(t, err)

	sell, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxSell, 1)
	require.NoError(t, err)
	_, err = env.service.ExecuteTransaction(context.Background(), sell.ID)
	require.NoError(t, err)

	inv, err := env.invRepo.GetByToken(p.ID, "bitcoin")
	require.NoError(t, err)
	assert.InDelta(t, 0, inv.Amount, 1e-9)
	assert.Equal(t, domain.InvestmentSold, inv.Status)
}

func TestExecuteTransaction_StakeAndUnstake(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPortfolio(t, "user-1")

	buy, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxBuy, 2)
	require.NoError(t, err)
	_, err = env.service.ExecuteTransaction(context.Background(), buy.ID)
	require.NoError(t, err)

	stake, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxStake, 1.5)
	require.NoError(t, err)
	_, err = env.service.ExecuteTransaction(context.Background(), stake.ID)
	require.NoError(t, err)

	inv, err := env.invRepo.GetByToken(p.ID, "bitcoin")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, inv.Amount, 1e-9)
	assert.InDelta(t, 1.5, inv.StakedAmount, 1e-9)
	assert.Equal(t, domain.InvestmentStaked, inv.Status)

	unstake, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxUnstake, 1.5)
	require.NoError(t, err)
	_, err = env.service.ExecuteTransaction(context.Background(), unstake.ID)
	require.NoError(t, err)

	inv, err = env.invRepo.GetByToken(p.ID, "bitcoin")
	require.NoError(t, err)
	assert.InDelta(t, 2, inv.Amount, 1e-9)
	assert.InDelta(t, 0, inv.StakedAmount, 1e-9)
	assert.Equal(t, domain.InvestmentActive, inv.Status)
}

func TestExecuteTransaction_OnlyPendingExecutes(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPortfolio(t, "user-1")

	tx, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxBuy, 1)
	require.NoError(t, err)

	_, err = env.service.ExecuteTransaction(context.Background(), tx.ID)
	require.NoError(t, err)

	// Executing again is rejected.
	_, err = env.service.ExecuteTransaction(context.Background(), tx.ID)
	assert.Error(t, err)
}

func TestExecuteTransaction_ProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPortfolio(t, "user-1")

	tx, err := env.service.CreateTransaction("user-1", p.ID, "bitcoin", domain.AssetCrypto, domain.TxBuy, 1)
	require.NoError(t, err)

	env.market.err = &domain.ProviderError{Provider: "coingecko", StatusCode: 502}

	_, err = env.service.ExecuteTransaction(context.Background(), tx.ID)
	require.Error(t, err)

	var pe *domain.ProviderError
	assert.ErrorAs(t, err, &pe)

	// Price fetch failed before any position change: still pending for retry.
	got, getErr := env.repo.GetByID(tx.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TxPending, got.Status)
}

func TestGetUserTransactions_Filters(t *testing.T) {
	env := newTestEnv(t)
	p := env.createPortfolio(t, "user-1")

	for _, tc := range []struct {
		token  string
		class  string
		txType domain.TransactionType
	}{
		{"bitcoin", domain.AssetCrypto, domain.TxBuy},
		{"bitcoin", domain.AssetCrypto, domain.TxBuy},
		{"usdc", domain.AssetStable, domain.TxBuy},
	} {
		_, err := env.service.CreateTransaction("user-1", p.ID, tc.token, tc.class, tc.txType, 1)
		require.NoError(t, err)
	}

	all, err := env.service.GetUserTransactions("user-1", ListFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	stableOnly, err := env.service.GetUserTransactions("user-1", ListFilters{AssetType: domain.AssetStable})
	require.NoError(t, err)
	assert.Len(t, stableOnly, 1)

	limited, err := env.service.GetUserTransactions("user-1", ListFilters{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := env.service.GetUserTransactions("user-2", ListFilters{})
	require.NoError(t, err)
	assert.Empty(t, none)
}
