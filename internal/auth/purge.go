package auth

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// purgeBatchSize bounds how many accounts one transaction removes, so
// the purge job never holds the write lock for long.
const purgeBatchSize = 100

// Purger permanently removes soft-deleted accounts whose retention
// window has elapsed, and sweeps expired refresh token rows.
type Purger struct {
	db       *sql.DB
	logger   *slog.Logger
	interval time.Duration
}

// NewPurger creates a purge job that runs every interval.
func NewPurger(db *sql.DB, interval time.Duration, logger *slog.Logger) *Purger {
	return &Purger{db: db, logger: logger, interval: interval}
}

// Run executes the purge loop until the context is cancelled. One pass
// runs immediately on start so a long-stopped instance catches up.
func (p *Purger) Run(ctx context.Context) {
	p.logger.Info("purge job started", "interval", p.interval.String())

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("purge job stopped")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Purger) runOnce(ctx context.Context) {
	purged, err := p.PurgeAccounts(ctx, time.Now())
	if err != nil {
		p.logger.Error("account purge failed", "error", err)
	} else if purged > 0 {
		p.logger.Info("accounts purged", "count", purged)
	}

	swept, err := p.SweepExpiredTokens(ctx, time.Now())
	if err != nil {
		p.logger.Error("token sweep failed", "error", err)
	} else if swept > 0 {
		p.logger.Info("expired refresh tokens swept", "count", swept)
	}
}

// PurgeAccounts removes accounts that are inactive, soft-deleted, and
// past their purge deadline. Each batch runs in its own transaction:
// token rows go first, then the account row. Returns the total number
// of accounts removed.
func (p *Purger) PurgeAccounts(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for {
		n, err := p.purgeBatch(ctx, now)
		if err != nil {
			return total, err
		}
		total += n
		if n < purgeBatchSize {
			return total, nil
		}
	}
}

func (p *Purger) purgeBatch(ctx context.Context, now time.Time) (int, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning purge transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	accounts := NewAccountRepository(tx)
	tokens := NewTokenRepository(tx)

	eligible, err := accounts.ListPurgeEligible(ctx, now, purgeBatchSize)
	if err != nil {
		return 0, err
	}
	if len(eligible) == 0 {
		return 0, nil
	}

	for _, a := range eligible {
		if _, err := tokens.DeleteForAccount(ctx, a.ID); err != nil {
			return 0, err
		}
		if err := accounts.Delete(ctx, a.ID); err != nil {
			return 0, err
		}
		p.logger.Info("account purged",
			"account_id", a.ID, "org_id", a.OrgID,
			"deleted_at", a.DeletedAt.UTC().Format(time.RFC3339))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing purge batch: %w", err)
	}
	return len(eligible), nil
}

// SweepExpiredTokens deletes refresh token rows past their expiry.
func (p *Purger) SweepExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	return NewTokenRepository(p.db).DeleteExpired(ctx, now)
}
