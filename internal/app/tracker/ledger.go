package tracker

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studypact/studypact/internal/domain"
	"github.com/studypact/studypact/internal/infra/observability"
)

// ─── Balance Calculator ─────────────────────────────────────────────────────

// Balance returns a user's spendable points: the sum of their ledger
// entries floored at zero. Recomputed from the full ledger on every call
// so historical deletions (task cascades) stay consistent; the internal
// running total may be negative but is never reported as such.
func (s *Service) Balance(user string) (int64, error) {
	if err := s.checkUser(user); err != nil {
		return 0, err
	}
	sum, err := s.db.SumPointsForUser(user)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	if sum < 0 {
		return 0, nil
	}
	return sum, nil
}

// ─── Redemption Processor ───────────────────────────────────────────────────

// Redeem converts banked points into a payout request. The amount must
// be positive and within the current balance; recording the negative
// entry is the entire effect. The points stay on the redeemer's own
// ledger — money flows out, not to the counterpart.
func (s *Service) Redeem(user string, amount int64, reason string) (*domain.LedgerEntry, error) {
	if err := s.checkUser(user); err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	balance, err := s.Balance(user)
	if err != nil {
		return nil, err
	}
	if amount > balance {
		return nil, fmt.Errorf("%w: balance %d, requested %d", domain.ErrInsufficientBalance, balance, amount)
	}

	entry := domain.LedgerEntry{
		ID:        uuid.NewString(),
		User:      user,
		FromUser:  user,
		Reason:    reason,
		Points:    -amount,
		Category:  domain.CategoryRedemption,
		CreatedAt: s.clock.Now(),
	}
	if err := s.db.InsertEntry(entry); err != nil {
		return nil, fmt.Errorf("record redemption: %w", err)
	}

	observability.RedemptionsTotal.Inc()
	observability.RedeemedPointsTotal.Add(float64(amount))
	s.log.Info("points redeemed",
		zap.String("user", user),
		zap.Int64("amount", amount),
		zap.String("reason", reason))
	return &entry, nil
}

// ─── Stats ──────────────────────────────────────────────────────────────────

// UserStats is one user's view of the shared ledger.
type UserStats struct {
	Balance int64                `json:"balance"`
	Logs    []domain.LedgerEntry `json:"logs"`
}

// Stats sweeps, then returns balance and full log history per user,
// logs newest first.
func (s *Service) Stats() (map[string]UserStats, error) {
	if err := s.Sweep(); err != nil {
		return nil, err
	}

	stats := make(map[string]UserStats, 2)
	for _, user := range s.cfg.Users.Users() {
		balance, err := s.Balance(user)
		if err != nil {
			return nil, err
		}
		logs, err := s.db.EntriesForUser(user)
		if err != nil {
			return nil, fmt.Errorf("load logs: %w", err)
		}
		stats[user] = UserStats{Balance: balance, Logs: logs}
	}
	return stats, nil
}
