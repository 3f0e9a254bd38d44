// Package watchlist maintains the monitored-company set: a two-state
// machine (untracked/tracked) with hysteresis add/remove thresholds
// and change-triggered alerting.
package watchlist

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/bioma-cli/internal/config"
	"github.com/sells-group/bioma-cli/internal/model"
	"github.com/sells-group/bioma-cli/internal/notify"
	"github.com/sells-group/bioma-cli/internal/store"
)

// Action is the outcome of applying a new score to the watchlist.
type Action string

const (
	ActionAdded    Action = "added"
	ActionRemoved  Action = "removed"
	ActionUpdated  Action = "updated"
	ActionNoAction Action = "no_action"
)

// Rescorer recomputes a company's composite score. Satisfied by
// scoring.Engine.
type Rescorer interface {
	CalculateScore(ctx context.Context, companyID string) (*model.MAScore, error)
}

// Manager applies scoring output to the persisted watchlist and fires
// alerts on significant moves.
type Manager struct {
	store       store.WatchlistStore
	notifier    notify.Notifier
	cfg         config.WatchlistConfig
	concurrency int
	now         func() time.Time
}

// NewManager validates the threshold configuration and returns a
// Manager. The hysteresis band only works when the add threshold sits
// above the remove threshold, so that is enforced here.
func NewManager(st store.WatchlistStore, notifier notify.Notifier, cfg config.WatchlistConfig, concurrency int) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Manager{
		store:       st,
		notifier:    notifier,
		cfg:         cfg,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

// Update applies one fresh score to the watchlist state machine.
//
// Untracked -> Tracked when the score crosses the add threshold (and
// auto-add is on). Tracked -> Untracked when it falls below the remove
// threshold (and auto-remove is on). Between the thresholds a tracked
// company stays tracked; that band is the hysteresis that stops
// borderline companies from flapping on and off.
//
// While tracked, the entry's current score is updated, the peak is
// ratcheted, and an alert fires when the move meets the entry's alert
// delta.
func (m *Manager) Update(ctx context.Context, score *model.MAScore) (Action, *model.AlertNotification, error) {
	entry, err := m.store.GetWatchlistEntry(ctx, score.CompanyID)
	if err != nil && !eris.Is(err, store.ErrNotFound) {
		return ActionNoAction, nil, eris.Wrapf(err, "watchlist: get entry %s", score.CompanyID)
	}

	// Untracked.
	if entry == nil || eris.Is(err, store.ErrNotFound) {
		if !m.cfg.AutoAdd || score.OverallScore < m.cfg.AddThreshold {
			return ActionNoAction, nil, nil
		}
		e := &model.WatchlistEntry{
			CompanyID:     score.CompanyID,
			CompanyName:   score.CompanyName,
			AddedAt:       m.now(),
			CurrentScore:  score.OverallScore,
			ScoreAtAdd:    score.OverallScore,
			PeakScore:     score.OverallScore,
			AlertsEnabled: true,
			AlertDelta:    m.cfg.AlertDelta,
		}
		if err := m.store.UpsertWatchlistEntry(ctx, e); err != nil {
			return ActionNoAction, nil, eris.Wrapf(err, "watchlist: add %s", score.CompanyID)
		}
		zap.L().Info("watchlist: company added",
			zap.String("company_id", score.CompanyID),
			zap.Float64("score", score.OverallScore),
		)
		return ActionAdded, nil, nil
	}

	// Tracked: evaluate the alert against the pre-update score first,
	// so a crash through the remove threshold still notifies.
	alert := m.maybeAlert(ctx, entry, score)

	if m.cfg.AutoRemove && score.OverallScore < m.cfg.RemoveThreshold {
		if err := m.store.DeleteWatchlistEntry(ctx, score.CompanyID); err != nil {
			return ActionNoAction, alert, eris.Wrapf(err, "watchlist: remove %s", score.CompanyID)
		}
		zap.L().Info("watchlist: company removed",
			zap.String("company_id", score.CompanyID),
			zap.Float64("score", score.OverallScore),
			zap.Float64("peak", entry.PeakScore),
		)
		return ActionRemoved, alert, nil
	}

	entry.CurrentScore = score.OverallScore
	entry.PeakScore = math.Max(entry.PeakScore, score.OverallScore)
	if err := m.store.UpsertWatchlistEntry(ctx, entry); err != nil {
		return ActionNoAction, alert, eris.Wrapf(err, "watchlist: update %s", score.CompanyID)
	}
	return ActionUpdated, alert, nil
}

// maybeAlert fires and returns an alert when the score moved by at
// least the entry's delta. Notification failures are logged, not
// propagated; the state transition must not depend on delivery.
func (m *Manager) maybeAlert(ctx context.Context, entry *model.WatchlistEntry, score *model.MAScore) *model.AlertNotification {
	if !entry.AlertsEnabled {
		return nil
	}
	delta := score.OverallScore - entry.CurrentScore
	if math.Abs(delta) < entry.AlertDelta {
		return nil
	}

	alert := &model.AlertNotification{
		ID:            uuid.NewString(),
		CompanyID:     entry.CompanyID,
		CompanyName:   entry.CompanyName,
		PreviousScore: entry.CurrentScore,
		NewScore:      score.OverallScore,
		Delta:         delta,
		Trend:         score.Trend,
		KeySignals:    score.KeySignals,
		Timestamp:     m.now(),
	}

	if err := m.notifier.Notify(ctx, *alert); err != nil {
		zap.L().Error("watchlist: alert delivery failed",
			zap.String("company_id", entry.CompanyID),
			zap.Error(err),
		)
	} else {
		zap.L().Info("watchlist: alert fired",
			zap.String("company_id", entry.CompanyID),
			zap.Float64("delta", delta),
		)
	}
	return alert
}

// CheckAlerts rescores every tracked company concurrently and applies
// the results. Per-company failures are logged and skipped; the sweep
// always completes.
func (m *Manager) CheckAlerts(ctx context.Context, rescorer Rescorer) ([]model.AlertNotification, error) {
	entries, err := m.store.ListWatchlist(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "watchlist: list")
	}
	if len(entries) == 0 {
		return nil, nil
	}

	zap.L().Info("watchlist: alert sweep started", zap.Int("tracked", len(entries)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	var mu sync.Mutex
	var alerts []model.AlertNotification

	for _, entry := range entries {
		g.Go(func() error {
			score, err := rescorer.CalculateScore(gctx, entry.CompanyID)
			if err != nil {
				zap.L().Error("watchlist: rescore failed",
					zap.String("company_id", entry.CompanyID),
					zap.Error(err),
				)
				return nil
			}
			_, alert, err := m.Update(gctx, score)
			if err != nil {
				zap.L().Error("watchlist: update failed",
					zap.String("company_id", entry.CompanyID),
					zap.Error(err),
				)
				return nil
			}
			if alert != nil {
				mu.Lock()
				alerts = append(alerts, *alert)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return alerts, eris.Wrap(err, "watchlist: alert sweep")
	}

	zap.L().Info("watchlist: alert sweep complete",
		zap.Int("tracked", len(entries)),
		zap.Int("alerts", len(alerts)),
	)
	return alerts, nil
}
