package usecase

import (
	"context"
	"time"

	"github.com/skymall/checkout-api/internal/logging"
)

type RiskDecision string

const (
	DecisionApprove RiskDecision = "approve"
	DecisionReview  RiskDecision = "review"
	DecisionDecline RiskDecision = "decline"
)

type RiskResult struct {
	Score    float64
	Decision RiskDecision
	// FailedOpen marks results produced by the outage fallback rather than a
	// real score.
	FailedOpen bool
}

type FraudConfig struct {
	ReviewThreshold float64
	BlockThreshold  float64
	Timeout         time.Duration
	FailOpen        bool
	FailOpenScore   float64
}

// FraudRiskEngine gates charges on an external scorer. The scorer gets a
// bounded timeout; when it is down the engine either fails open with a low
// default score (availability over strictness, an explicit policy choice) or
// declines, per configuration.
type FraudRiskEngine struct {
	scorer RiskScorer
	cfg    FraudConfig
}

func NewFraudRiskEngine(scorer RiskScorer, cfg FraudConfig) *FraudRiskEngine {
	return &FraudRiskEngine{scorer: scorer, cfg: cfg}
}

func (e *FraudRiskEngine) Check(ctx context.Context, userID string, amountMinor int64, methodType string, attrs map[string]string) RiskResult {
	sctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	score, err := e.scorer.Score(sctx, userID, amountMinor, methodType, attrs)
	if err != nil {
		if e.cfg.FailOpen {
			logging.FromCtx(ctx).Warn("risk scorer unavailable, failing open",
				"user_id", userID, "err", err)
			return RiskResult{Score: e.cfg.FailOpenScore, Decision: e.decide(e.cfg.FailOpenScore), FailedOpen: true}
		}
		logging.FromCtx(ctx).Error("risk scorer unavailable, declining",
			"user_id", userID, "err", err)
		return RiskResult{Score: e.cfg.BlockThreshold, Decision: DecisionDecline, FailedOpen: true}
	}
	return RiskResult{Score: score, Decision: e.decide(score)}
}

func (e *FraudRiskEngine) decide(score float64) RiskDecision {
	switch {
	case score >= e.cfg.BlockThreshold:
		return DecisionDecline
	case score >= e.cfg.ReviewThreshold:
		return DecisionReview
	default:
		return DecisionApprove
	}
}
