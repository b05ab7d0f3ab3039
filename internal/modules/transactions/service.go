package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/domain"
	"github.com/wardenlabs/warden/internal/modules/portfolio"
)

// Service manages the transaction lifecycle. Execution fetches the live
// market price and applies the transaction to the portfolio's position;
// position updates follow the one-directional status rules (sold is
// terminal, staked and active flip via stake/unstake).
type Service struct {
	repo    *Repository
	pfRepo  *portfolio.Repository
	invRepo *portfolio.InvestmentRepository
	market  domain.MarketDataClient
	log     zerolog.Logger
}

// NewService creates a new transaction service.
func NewService(repo *Repository, pfRepo *portfolio.Repository, invRepo *portfolio.InvestmentRepository, market domain.MarketDataClient, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		pfRepo:  pfRepo,
		invRepo: invRepo,
		market:  market,
		log:     log.With().Str("service", "transactions").Logger(),
	}
}

// CreateTransaction records a pending transaction after validating its shape
// and the portfolio's ownership.
func (s *Service) CreateTransaction(userID, portfolioID, tokenID, assetType string, txType domain.TransactionType, amount float64) (*domain.Transaction, error) {
	if !txType.Valid() {
		return nil, fmt.Errorf("unknown transaction type: %s", txType)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("transaction amount must be positive, got %f", amount)
	}

	if _, err := s.pfRepo.GetByID(portfolioID, userID); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		PortfolioID: portfolioID,
		TokenID:     tokenID,
		AssetType:   assetType,
		Type:        txType,
		Amount:      amount,
		Status:      domain.TxPending,
	}

	if err := s.repo.Create(tx); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transaction", tx.ID).
		Str("type", string(txType)).
		Float64("amount", amount).
		Msg("Transaction created")

	return tx, nil
}

// ExecuteTransaction executes a pending transaction: fetches the current
// market price, applies the position change, and marks the transaction
// completed. A failed position update marks the transaction failed and
// surfaces the cause.
func (s *Service) ExecuteTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	tx, err := s.repo.GetByID(transactionID)
	if err != nil {
		return nil, err
	}

	if tx.Status != domain.TxPending {
		return nil, fmt.Errorf("transaction %s is not pending (status: %s)", tx.ID, tx.Status)
	}

	price, err := s.market.GetTokenPrice(ctx, tx.TokenID)
	if err != nil {
		return nil, err
	}
	tx.MarketPrice = price

	if err := s.applyToInvestment(tx); err != nil {
		tx.Status = domain.TxFailed
		if updateErr := s.repo.Update(tx); updateErr != nil {
			s.log.Error().Err(updateErr).Str("transaction", tx.ID).Msg("Failed to mark transaction failed")
		}
		return nil, err
	}

	now := time.Now().UTC()
	tx.Status = domain.TxCompleted
	tx.CompletedAt = &now
	if err := s.repo.Update(tx); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("transaction", tx.ID).
		Str("type", string(tx.Type)).
		Float64("price", price).
		Msg("Transaction executed")

	return tx, nil
}

// GetUserTransactions returns a user's transactions with optional filters.
func (s *Service) GetUserTransactions(userID string, filters ListFilters) ([]domain.Transaction, error) {
	return s.repo.GetUserTransactions(userID, filters)
}

// applyToInvestment applies the executed transaction to the portfolio's
// position in the asset.
func (s *Service) applyToInvestment(tx *domain.Transaction) error {
	inv, err := s.invRepo.GetByToken(tx.PortfolioID, tx.TokenID)
	if err != nil && !errors.Is(err, domain.ErrInvestmentNotFound) {
		return err
	}

	switch tx.Type {
	case domain.TxBuy:
		if inv == nil {
			return s.invRepo.Create(&domain.Investment{
				ID:            uuid.NewString(),
				PortfolioID:   tx.PortfolioID,
				UserID:        tx.UserID,
				TokenID:       tx.TokenID,
				AssetType:     tx.AssetType,
				Amount:        tx.Amount,
				PurchasePrice: tx.MarketPrice,
				CurrentPrice:  tx.MarketPrice,
				Status:        domain.InvestmentActive,
			})
		}
		// Repeated buys average the purchase price by position size.
		totalAmount := inv.Amount + tx.Amount
		inv.PurchasePrice = (inv.Amount*inv.PurchasePrice + tx.Amount*tx.MarketPrice) / totalAmount
		inv.Amount = totalAmount
		inv.CurrentPrice = tx.MarketPrice
		inv.Status = domain.InvestmentActive
		return s.invRepo.Update(inv)

	case domain.TxSell:
		if inv == nil || inv.Amount < tx.Amount {
			return fmt.Errorf("insufficient balance: cannot sell %f of %s", tx.Amount, tx.TokenID)
		}
		inv.Amount -= tx.Amount
		inv.CurrentPrice = tx.MarketPrice
		if inv.Amount == 0 && inv.StakedAmount == 0 {
			inv.Status = domain.InvestmentSold
		}
		return s.invRepo.Update(inv)

	case domain.TxStake:
		if inv == nil || inv.Amount < tx.Amount {
			return fmt.Errorf("insufficient balance: cannot stake %f of %s", tx.Amount, tx.TokenID)
		}
		inv.Amount -= tx.Amount
		inv.StakedAmount += tx.Amount
		inv.CurrentPrice = tx.MarketPrice
		inv.Status = domain.InvestmentStaked
		return s.invRepo.Update(inv)

	case domain.TxUnstake:
		if inv == nil || inv.StakedAmount < tx.Amount {
			return fmt.Errorf("insufficient staked amount: cannot unstake %f of %s", tx.Amount, tx.TokenID)
		}
		inv.Amount += tx.Amount
		inv.StakedAmount -= tx.Amount
		inv.CurrentPrice = tx.MarketPrice
		if inv.StakedAmount == 0 {
			inv.Status = domain.InvestmentActive
		}
		return s.invRepo.Update(inv)

	case domain.TxTransfer:
		if inv == nil || inv.Amount < tx.Amount {
			return fmt.Errorf("insufficient balance: cannot transfer %f of %s", tx.Amount, tx.TokenID)
		}
		inv.Amount -= tx.Amount
		inv.CurrentPrice = tx.MarketPrice
		if inv.Amount == 0 && inv.StakedAmount == 0 {
			inv.Status = domain.InvestmentSold
		}
		return s.invRepo.Update(inv)

	default:
		return fmt.Errorf("unknown transaction type: %s", tx.Type)
	}
}
