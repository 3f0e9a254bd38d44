// Package store defines the persistence boundary for the scoring
// engine and provides Postgres and SQLite implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bioma-cli/internal/config"
	"github.com/sells-group/bioma-cli/internal/model"
)

// ErrNotFound is returned when a company, acquirer, or watchlist entry
// does not exist. Checked with eris.Is.
var ErrNotFound = eris.New("store: not found")

// CompanyProvider serves target-company snapshots to the engine.
type CompanyProvider interface {
	GetCompany(ctx context.Context, id string) (*model.Company, error)
	GetPipeline(ctx context.Context, id string) ([]model.PipelineAsset, error)
	GetPatents(ctx context.Context, id string) ([]model.Patent, error)
	GetFinancials(ctx context.Context, id string) (*model.FinancialSnapshot, error)
	GetInsiderActivity(ctx context.Context, id string) (*model.InsiderActivity, error)
	GetRegulatoryHistory(ctx context.Context, id string) (*model.RegulatoryHistory, error)
	ListCompanyIDs(ctx context.Context) ([]string, error)
}

// AcquirerProvider serves acquirer candidates, patent cliffs, and deal
// history to the matcher.
type AcquirerProvider interface {
	ListAcquirers(ctx context.Context, limit int) ([]model.AcquirerCandidate, error)
	GetAcquirer(ctx context.Context, id string) (*model.AcquirerCandidate, error)
	ListPatentCliffs(ctx context.Context, areas []string, yearsAhead int) ([]model.PatentCliff, error)
	ListHistoricalDeals(ctx context.Context, acquirerID string, yearsBack int) ([]model.HistoricalDeal, error)
}

// ScoreStore persists the composite score time series.
type ScoreStore interface {
	// StoreScore appends one score row.
	StoreScore(ctx context.Context, score *model.MAScore) error
	// PreviousScore returns the most recent persisted score for the
	// company, or (nil, nil) when the company has never been scored.
	PreviousScore(ctx context.Context, companyID string) (*model.MAScore, error)
	// LatestScores returns the newest score per company, highest first.
	LatestScores(ctx context.Context, limit int) ([]model.MAScore, error)
}

// WatchlistStore persists the monitored-company set.
type WatchlistStore interface {
	UpsertWatchlistEntry(ctx context.Context, entry *model.WatchlistEntry) error
	DeleteWatchlistEntry(ctx context.Context, companyID string) error
	GetWatchlistEntry(ctx context.Context, companyID string) (*model.WatchlistEntry, error)
	ListWatchlist(ctx context.Context) ([]model.WatchlistEntry, error)
}

// Importer accepts bulk-loaded reference data.
type Importer interface {
	UpsertCompany(ctx context.Context, data *model.CompanyData) error
	UpsertAcquirers(ctx context.Context, acquirers []model.AcquirerCandidate) error
	UpsertPatentCliffs(ctx context.Context, cliffs []model.PatentCliff) error
	UpsertHistoricalDeals(ctx context.Context, deals []model.HistoricalDeal) error
}

// Store is the full persistence interface.
type Store interface {
	CompanyProvider
	AcquirerProvider
	ScoreStore
	WatchlistStore
	Importer

	Migrate(ctx context.Context) error
	Close() error
}

// Open constructs the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg)
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
