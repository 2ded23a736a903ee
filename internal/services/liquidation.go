package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/edgetier/edgetier-ai-go/internal/config"
	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// issuedCode is a pending liquidation confirmation. Only the bcrypt hash is
// kept; the plaintext code exists once, in the generate response.
type issuedCode struct {
	hash      []byte
	expiresAt time.Time
}

// LiquidationService implements the two-step liquidation workflow: generate a
// short-lived one-time code, then verify it to force-close every open
// position. Codes are single-use and per-user; verification is rate limited
// because a 6-digit space invites guessing.
type LiquidationService struct {
	risk       *RiskManager
	bcryptCost int
	codeTTL    time.Duration
	ratePerMin int
	burst      int
	logger     *logrus.Logger

	mu       sync.Mutex
	codes    map[string]issuedCode
	limiters map[string]*rate.Limiter
}

// NewLiquidationService creates the service from configuration.
func NewLiquidationService(cfg config.LiquidationConfig, security config.SecurityConfig, risk *RiskManager, logger *logrus.Logger) (*LiquidationService, error) {
	codeTTL := 5 * time.Minute
	if cfg.CodeTTL != "" {
		d, err := time.ParseDuration(cfg.CodeTTL)
		if err != nil {
			return nil, utils.NewValidationErrorf("invalid liquidation code TTL %q", cfg.CodeTTL)
		}
		codeTTL = d
	}
	burst := cfg.VerifyBurst
	if burst <= 0 {
		burst = 1
	}

	return &LiquidationService{
		risk:       risk,
		bcryptCost: security.BcryptCost,
		codeTTL:    codeTTL,
		ratePerMin: cfg.VerifyRatePerMinute,
		burst:      burst,
		logger:     logger,
		codes:      make(map[string]issuedCode),
		limiters:   make(map[string]*rate.Limiter),
	}, nil
}

// GenerateCode issues a fresh 6-digit confirmation code for the user and
// invalidates any previously issued one. The plaintext is returned to the
// caller exactly once.
func (s *LiquidationService) GenerateCode(userID string) (code string, expiresAt time.Time, err error) {
	if userID == "" {
		return "", time.Time{}, utils.NewValidationError("user id is required")
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", time.Time{}, err
	}
	code = n.Add(n, big.NewInt(1000000)).String()[1:] // zero-padded 6 digits

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.bcryptCost)
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt = time.Now().Add(s.codeTTL)

	s.mu.Lock()
	s.codes[userID] = issuedCode{hash: hash, expiresAt: expiresAt}
	s.mu.Unlock()

	s.logger.WithField("user_id", userID).Warn("Liquidation code issued")
	return code, expiresAt, nil
}

// ErrVerifyRateLimited marks a verification attempt dropped by the per-user
// rate limiter, so the transport layer can answer 429 instead of 403.
var ErrVerifyRateLimited = errors.New("too many verification attempts")

// VerifyAndLiquidate checks the supplied code against the pending one and, on
// match, consumes it and force-closes every open position. A wrong, expired
// or missing code changes nothing: the code (if any) stays pending and no
// position is touched.
func (s *LiquidationService) VerifyAndLiquidate(ctx context.Context, userID, code, reason string) (models.LiquidationResult, error) {
	if userID == "" || code == "" {
		return models.LiquidationResult{}, utils.NewValidationError("user id and code are required")
	}

	if !s.allowAttempt(userID) {
		s.logger.WithField("user_id", userID).Warn("Liquidation verification rate limited")
		return models.LiquidationResult{}, ErrVerifyRateLimited
	}

	s.mu.Lock()
	pending, ok := s.codes[userID]
	if !ok {
		s.mu.Unlock()
		return models.LiquidationResult{Reason: "no pending liquidation code"}, nil
	}
	if time.Now().After(pending.expiresAt) {
		delete(s.codes, userID)
		s.mu.Unlock()
		return models.LiquidationResult{Reason: "liquidation code expired"}, nil
	}
	if bcrypt.CompareHashAndPassword(pending.hash, []byte(code)) != nil {
		s.mu.Unlock()
		return models.LiquidationResult{Reason: "liquidation code mismatch"}, nil
	}
	// Consume before executing: the code must never authorize twice.
	delete(s.codes, userID)
	s.mu.Unlock()

	closed, err := s.risk.Liquidate(ctx)
	if err != nil {
		return models.LiquidationResult{}, err
	}

	now := time.Now().UTC()
	s.logger.WithFields(logrus.Fields{
		"user_id":          userID,
		"closed_positions": closed,
		"reason":           reason,
	}).Warn("Liquidation verified and executed")

	return models.LiquidationResult{
		Success:         true,
		Reason:          reason,
		ClosedPositions: closed,
		ExecutedAt:      &now,
	}, nil
}

// allowAttempt enforces the per-user verification rate limit.
func (s *LiquidationService) allowAttempt(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	limiter, ok := s.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(float64(s.ratePerMin)/60.0), s.burst)
		s.limiters[userID] = limiter
	}
	return limiter.Allow()
}
