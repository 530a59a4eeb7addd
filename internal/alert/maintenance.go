package alert

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cse408-project/secureherai-api/internal/repository"
)

// MaintenanceConfig carries the sweep thresholds.
type MaintenanceConfig struct {
	// ExpiryAge is how old an open alert may get before the sweep expires
	// it.
	ExpiryAge time.Duration
	// AccountMaxAge is how long an unverified account survives.
	AccountMaxAge time.Duration
}

const (
	defaultExpiryAge     = 24 * time.Hour
	defaultAccountMaxAge = 30 * 24 * time.Hour
)

// Maintenance holds the background sweeps the scheduler runs. Each sweep
// logs and continues past per-item failures; a partially-completed sweep is
// picked up by the next tick.
type Maintenance struct {
	service *Service
	alerts  repository.AlertRepository
	users   repository.UserRepository
	cfg     MaintenanceConfig
	logger  zerolog.Logger

	now func() time.Time
}

func NewMaintenance(service *Service, alerts repository.AlertRepository, users repository.UserRepository, cfg MaintenanceConfig, logger zerolog.Logger) *Maintenance {
	if cfg.ExpiryAge <= 0 {
		cfg.ExpiryAge = defaultExpiryAge
	}
	if cfg.AccountMaxAge <= 0 {
		cfg.AccountMaxAge = defaultAccountMaxAge
	}
	return &Maintenance{
		service: service,
		alerts:  alerts,
		users:   users,
		cfg:     cfg,
		logger:  logger.With().Str("component", "maintenance").Logger(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// ExpireStaleAlerts transitions open alerts older than the expiry age to
// EXPIRED. Returns how many alerts were expired.
func (m *Maintenance) ExpireStaleAlerts(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.cfg.ExpiryAge)
	stale, err := m.alerts.ListOpenOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, alert := range stale {
		if _, err := m.service.Expire(ctx, alert.ID); err != nil {
			m.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to expire stale alert")
			continue
		}
		expired++
	}

	if expired > 0 {
		m.logger.Info().Int("expired", expired).Msg("stale alert sweep complete")
	}
	return expired, nil
}

// PurgeUnverifiedAccounts removes accounts that never verified within the
// allowed age.
func (m *Maintenance) PurgeUnverifiedAccounts(ctx context.Context) (int64, error) {
	cutoff := m.now().Add(-m.cfg.AccountMaxAge)
	deleted, err := m.users.DeleteUnverifiedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		m.logger.Info().Int64("deleted", deleted).Msg("unverified account sweep complete")
	}
	return deleted, nil
}
