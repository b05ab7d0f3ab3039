package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardenlabs/warden/internal/domain"
	"github.com/wardenlabs/warden/internal/events"
	"github.com/wardenlabs/warden/internal/modules/portfolio"
	"github.com/wardenlabs/warden/internal/modules/risk"
)

// sweepTimeout bounds one full sweep, market data fetches included.
const sweepTimeout = 10 * time.Minute

// RiskSweepJob reassesses every portfolio's risk on a schedule, records the
// result on the portfolio row, and publishes an event when a portfolio's risk
// level changes bucket.
type RiskSweepJob struct {
	riskService *risk.Service
	pfRepo      *portfolio.Repository
	invRepo     *portfolio.InvestmentRepository
	publisher   events.Publisher
	log         zerolog.Logger
}

// NewRiskSweepJob creates the periodic risk sweep job.
func NewRiskSweepJob(riskService *risk.Service, pfRepo *portfolio.Repository, invRepo *portfolio.InvestmentRepository, publisher events.Publisher, log zerolog.Logger) *RiskSweepJob {
	return &RiskSweepJob{
		riskService: riskService,
		pfRepo:      pfRepo,
		invRepo:     invRepo,
		publisher:   publisher,
		log:         log.With().Str("job", "risk_sweep").Logger(),
	}
}

// Name returns the job name.
func (j *RiskSweepJob) Name() string {
	return "risk_sweep"
}

// Run sweeps all portfolios. Individual portfolio failures are logged and
// skipped so one bad asset cannot block the rest of the sweep.
func (j *RiskSweepJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	portfolios, err := j.pfRepo.ListAll()
	if err != nil {
		return err
	}

	assessed := 0
	for _, p := range portfolios {
		if err := j.sweepPortfolio(ctx, &p); err != nil {
			var emptyErr *domain.EmptyPortfolioError
			if errors.As(err, &emptyErr) {
				continue // nothing to assess yet
			}
			j.log.Error().Err(err).Str("portfolio", p.ID).Msg("Portfolio sweep failed")
			continue
		}
		assessed++
	}

	j.log.Info().
		Int("portfolios", len(portfolios)).
		Int("assessed", assessed).
		Msg("Risk sweep completed")

	return nil
}

func (j *RiskSweepJob) sweepPortfolio(ctx context.Context, p *domain.Portfolio) error {
	investments, err := j.invRepo.ListByPortfolio(p.ID)
	if err != nil {
		return err
	}

	assessment, err := j.riskService.AssessPortfolioRisk(ctx, p.ID, investments)
	if err != nil {
		return err
	}

	previousLevel := p.LastRiskLevel
	if err := j.pfRepo.UpdateRiskSnapshot(p.ID, assessment.OverallScore, string(assessment.OverallLevel)); err != nil {
		return err
	}

	if previousLevel != "" && previousLevel != string(assessment.OverallLevel) {
		j.publisher.Publish(events.Event{
			Type:        events.EventRiskChanged,
			PortfolioID: p.ID,
			UserID:      p.UserID,
			Payload: map[string]interface{}{
				"previous_level": previousLevel,
				"current_level":  assessment.OverallLevel,
				"overall_score":  assessment.OverallScore,
			},
		})
		j.log.Info().
			Str("portfolio", p.ID).
			Str("previous", previousLevel).
			Str("current", string(assessment.OverallLevel)).
			Msg("Portfolio risk level changed")
	}

	return nil
}
