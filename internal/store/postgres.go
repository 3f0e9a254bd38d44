package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bioma-cli/internal/config"
	"github.com/sells-group/bioma-cli/internal/db"
	"github.com/sells-group/bioma-cli/internal/model"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// preparedStatements lists queries to prepare on each new connection for
// the hot paths of batch scoring and watch sweeps.
var preparedStatements = map[string]string{
	"get_company":      `SELECT id, name, ticker, therapeutic_areas, market_cap FROM companies WHERE id = $1`,
	"get_pipeline":     `SELECT pipeline FROM companies WHERE id = $1`,
	"get_patents":      `SELECT patents FROM companies WHERE id = $1`,
	"get_financials":   `SELECT financials FROM companies WHERE id = $1`,
	"get_insider":      `SELECT insider FROM companies WHERE id = $1`,
	"get_regulatory":   `SELECT regulatory FROM companies WHERE id = $1`,
	"insert_score":     `INSERT INTO ma_scores (id, company_id, overall_score, data, config_hash, calculated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"previous_score":   `SELECT data FROM ma_scores WHERE company_id = $1 ORDER BY calculated_at DESC LIMIT 1`,
	"get_watch_entry":  `SELECT company_id, company_name, added_at, current_score, score_at_add, peak_score, alerts_enabled, alert_delta FROM watchlist WHERE company_id = $1`,
	"upsert_watch_entry": `INSERT INTO watchlist (company_id, company_name, added_at, current_score, score_at_add, peak_score, alerts_enabled, alert_delta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			current_score = EXCLUDED.current_score,
			peak_score = EXCLUDED.peak_score,
			alerts_enabled = EXCLUDED.alerts_enabled,
			alert_delta = EXCLUDED.alert_delta`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if cfg.MaxConns > 0 {
		maxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		minConns = cfg.MinConns
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Migrate applies all pending SQL migrations in lexicographic order.
// An advisory lock prevents concurrent migration runs.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "store.migrate"))

	if _, err := s.pool.Exec(ctx, "SELECT pg_advisory_lock(7230441)"); err != nil {
		return eris.Wrap(err, "postgres: acquire migration advisory lock")
	}
	defer func() {
		if _, err := s.pool.Exec(ctx, "SELECT pg_advisory_unlock(7230441)"); err != nil {
			log.Warn("failed to release migration advisory lock", zap.Error(err))
		}
	}()

	if _, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return eris.Wrap(err, "postgres: ensure migration table")
	}

	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return eris.Wrap(err, "postgres: read migration dir")
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		if applied[name] {
			continue
		}
		data, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return eris.Wrapf(err, "postgres: read migration %s", name)
		}
		log.Info("applying migration", zap.String("file", name))
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "postgres: apply migration %s", name)
		}
		if _, err := s.pool.Exec(ctx,
			"INSERT INTO schema_migrations (filename, applied_at) VALUES ($1, now())", name,
		); err != nil {
			return eris.Wrapf(err, "postgres: record migration %s", name)
		}
	}
	return nil
}

func (s *PostgresStore) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// --- CompanyProvider ---

func (s *PostgresStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var c model.Company
	var areasJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, ticker, therapeutic_areas, market_cap FROM companies WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Ticker, &areasJSON, &c.MarketCap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "company %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get company %s", id)
	}
	if err := json.Unmarshal(areasJSON, &c.TherapeuticAreas); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal therapeutic areas")
	}
	return &c, nil
}

// companyDoc reads one JSONB document column from the companies table
// into dest. A NULL column leaves dest untouched.
func (s *PostgresStore) companyDoc(ctx context.Context, id, column string, dest any) error {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM companies WHERE id = $1`, column), id,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "company %s", id)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: get %s for %s", column, id)
	}
	if doc == nil {
		return nil
	}
	if err := json.Unmarshal(doc, dest); err != nil {
		return eris.Wrapf(err, "postgres: unmarshal %s for %s", column, id)
	}
	return nil
}

func (s *PostgresStore) GetPipeline(ctx context.Context, id string) ([]model.PipelineAsset, error) {
	var assets []model.PipelineAsset
	if err := s.companyDoc(ctx, id, "pipeline", &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *PostgresStore) GetPatents(ctx context.Context, id string) ([]model.Patent, error) {
	var patents []model.Patent
	if err := s.companyDoc(ctx, id, "patents", &patents); err != nil {
		return nil, err
	}
	return patents, nil
}

func (s *PostgresStore) GetFinancials(ctx context.Context, id string) (*model.FinancialSnapshot, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT financials FROM companies WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "company %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get financials for %s", id)
	}
	if doc == nil {
		return nil, nil
	}
	var snap model.FinancialSnapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal financials for %s", id)
	}
	return &snap, nil
}

func (s *PostgresStore) GetInsiderActivity(ctx context.Context, id string) (*model.InsiderActivity, error) {
	var activity model.InsiderActivity
	if err := s.companyDoc(ctx, id, "insider", &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *PostgresStore) GetRegulatoryHistory(ctx context.Context, id string) (*model.RegulatoryHistory, error) {
	var history model.RegulatoryHistory
	if err := s.companyDoc(ctx, id, "regulatory", &history); err != nil {
		return nil, err
	}
	return &history, nil
}

func (s *PostgresStore) ListCompanyIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM companies ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list company ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan company id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- AcquirerProvider ---

func (s *PostgresStore) ListAcquirers(ctx context.Context, limit int) ([]model.AcquirerCandidate, error) {
	query := `SELECT data FROM acquirers ORDER BY name`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list acquirers")
	}
	defer rows.Close()

	var acquirers []model.AcquirerCandidate
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan acquirer row")
		}
		var a model.AcquirerCandidate
		if err := json.Unmarshal(doc, &a); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal acquirer")
		}
		acquirers = append(acquirers, a)
	}
	return acquirers, rows.Err()
}

func (s *PostgresStore) GetAcquirer(ctx context.Context, id string) (*model.AcquirerCandidate, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM acquirers WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "acquirer %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get acquirer %s", id)
	}
	var a model.AcquirerCandidate
	if err := json.Unmarshal(doc, &a); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal acquirer %s", id)
	}
	return &a, nil
}

func (s *PostgresStore) ListPatentCliffs(ctx context.Context, areas []string, yearsAhead int) ([]model.PatentCliff, error) {
	if yearsAhead <= 0 {
		yearsAhead = 5
	}
	now := time.Now().UTC()
	cutoff := now.AddDate(yearsAhead, 0, 0)

	query := `SELECT acquirer_id, product, therapeutic_area, annual_revenue, expiry, erosion_rate
		FROM patent_cliffs WHERE expiry > $1 AND expiry <= $2`
	args := []any{now, cutoff}
	if len(areas) > 0 {
		query += ` AND therapeutic_area = ANY($3)`
		args = append(args, areas)
	}
	query += ` ORDER BY expiry`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list patent cliffs")
	}
	defer rows.Close()

	var cliffs []model.PatentCliff
	for rows.Next() {
		var pc model.PatentCliff
		if err := rows.Scan(&pc.AcquirerID, &pc.Product, &pc.TherapeuticArea, &pc.AnnualRevenue, &pc.Expiry, &pc.ErosionRate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan patent cliff")
		}
		cliffs = append(cliffs, pc)
	}
	return cliffs, rows.Err()
}

func (s *PostgresStore) ListHistoricalDeals(ctx context.Context, acquirerID string, yearsBack int) ([]model.HistoricalDeal, error) {
	if yearsBack <= 0 {
		yearsBack = 7
	}
	since := time.Now().UTC().AddDate(-yearsBack, 0, 0)

	rows, err := s.pool.Query(ctx,
		`SELECT data FROM historical_deals WHERE acquirer_id = $1 AND deal_date >= $2 ORDER BY deal_date DESC`,
		acquirerID, since,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list deals for %s", acquirerID)
	}
	defer rows.Close()

	var deals []model.HistoricalDeal
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan deal row")
		}
		var d model.HistoricalDeal
		if err := json.Unmarshal(doc, &d); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal deal")
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// --- ScoreStore ---

func (s *PostgresStore) StoreScore(ctx context.Context, score *model.MAScore) error {
	doc, err := json.Marshal(score)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal score")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO ma_scores (id, company_id, overall_score, data, config_hash, calculated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), score.CompanyID, score.OverallScore, doc, score.ConfigHash, score.CalculatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: store score for %s", score.CompanyID)
	}
	return nil
}

func (s *PostgresStore) PreviousScore(ctx context.Context, companyID string) (*model.MAScore, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM ma_scores WHERE company_id = $1 ORDER BY calculated_at DESC LIMIT 1`,
		companyID,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: previous score for %s", companyID)
	}
	var score model.MAScore
	if err := json.Unmarshal(doc, &score); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal score for %s", companyID)
	}
	return &score, nil
}

func (s *PostgresStore) LatestScores(ctx context.Context, limit int) ([]model.MAScore, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM (
			SELECT DISTINCT ON (company_id) data, overall_score
			FROM ma_scores ORDER BY company_id, calculated_at DESC
		) latest ORDER BY overall_score DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest scores")
	}
	defer rows.Close()

	var scores []model.MAScore
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan score row")
		}
		var score model.MAScore
		if err := json.Unmarshal(doc, &score); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal score")
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

// --- WatchlistStore ---

func (s *PostgresStore) UpsertWatchlistEntry(ctx context.Context, entry *model.WatchlistEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO watchlist (company_id, company_name, added_at, current_score, score_at_add, peak_score, alerts_enabled, alert_delta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			current_score = EXCLUDED.current_score,
			peak_score = EXCLUDED.peak_score,
			alerts_enabled = EXCLUDED.alerts_enabled,
			alert_delta = EXCLUDED.alert_delta`,
		entry.CompanyID, entry.CompanyName, entry.AddedAt, entry.CurrentScore,
		entry.ScoreAtAdd, entry.PeakScore, entry.AlertsEnabled, entry.AlertDelta,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert watchlist entry %s", entry.CompanyID)
	}
	return nil
}

func (s *PostgresStore) DeleteWatchlistEntry(ctx context.Context, companyID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM watchlist WHERE company_id = $1`, companyID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete watchlist entry %s", companyID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "watchlist entry %s", companyID)
	}
	return nil
}

func (s *PostgresStore) GetWatchlistEntry(ctx context.Context, companyID string) (*model.WatchlistEntry, error) {
	var e model.WatchlistEntry
	err := s.pool.QueryRow(ctx,
		`SELECT company_id, company_name, added_at, current_score, score_at_add, peak_score, alerts_enabled, alert_delta
		FROM watchlist WHERE company_id = $1`,
		companyID,
	).Scan(&e.CompanyID, &e.CompanyName, &e.AddedAt, &e.CurrentScore, &e.ScoreAtAdd, &e.PeakScore, &e.AlertsEnabled, &e.AlertDelta)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "watchlist entry %s", companyID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get watchlist entry %s", companyID)
	}
	return &e, nil
}

func (s *PostgresStore) ListWatchlist(ctx context.Context) ([]model.WatchlistEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT company_id, company_name, added_at, current_score, score_at_add, peak_score, alerts_enabled, alert_delta
		FROM watchlist ORDER BY current_score DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list watchlist")
	}
	defer rows.Close()

	var entries []model.WatchlistEntry
	for rows.Next() {
		var e model.WatchlistEntry
		if err := rows.Scan(&e.CompanyID, &e.CompanyName, &e.AddedAt, &e.CurrentScore, &e.ScoreAtAdd, &e.PeakScore, &e.AlertsEnabled, &e.AlertDelta); err != nil {
			return nil, eris.Wrap(err, "postgres: scan watchlist row")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Importer ---

func (s *PostgresStore) UpsertCompany(ctx context.Context, data *model.CompanyData) error {
	if data.Company.ID == "" {
		return eris.New("postgres: company id required")
	}
	areas, err := json.Marshal(data.Company.TherapeuticAreas)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal therapeutic areas")
	}
	pipeline, err := json.Marshal(data.Pipeline)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal pipeline")
	}
	patents, err := json.Marshal(data.Patents)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal patents")
	}
	var financials []byte
	if data.Financials != nil {
		financials, err = json.Marshal(data.Financials)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal financials")
		}
	}
	insider, err := json.Marshal(data.Insider)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal insider activity")
	}
	regulatory, err := json.Marshal(data.Regulatory)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal regulatory history")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO companies (id, name, ticker, therapeutic_areas, market_cap, pipeline, patents, financials, insider, regulatory, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			ticker = EXCLUDED.ticker,
			therapeutic_areas = EXCLUDED.therapeutic_areas,
			market_cap = EXCLUDED.market_cap,
			pipeline = EXCLUDED.pipeline,
			patents = EXCLUDED.patents,
			financials = EXCLUDED.financials,
			insider = EXCLUDED.insider,
			regulatory = EXCLUDED.regulatory,
			updated_at = now()`,
		data.Company.ID, data.Company.Name, data.Company.Ticker, areas, data.Company.MarketCap,
		pipeline, patents, financials, insider, regulatory,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert company %s", data.Company.ID)
	}
	return nil
}

func (s *PostgresStore) UpsertAcquirers(ctx context.Context, acquirers []model.AcquirerCandidate) error {
	if len(acquirers) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(acquirers))
	for _, a := range acquirers {
		doc, err := json.Marshal(a)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal acquirer %s", a.ID)
		}
		rows = append(rows, []any{a.ID, a.Name, string(a.Type), doc})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "acquirers",
		Columns:      []string{"id", "name", "type", "data"},
		ConflictKeys: []string{"id"},
	}, rows)
	return err
}

func (s *PostgresStore) UpsertPatentCliffs(ctx context.Context, cliffs []model.PatentCliff) error {
	if len(cliffs) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(cliffs))
	for _, pc := range cliffs {
		rows = append(rows, []any{pc.AcquirerID, pc.Product, pc.TherapeuticArea, pc.AnnualRevenue, pc.Expiry, pc.ErosionRate})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "patent_cliffs",
		Columns:      []string{"acquirer_id", "product", "therapeutic_area", "annual_revenue", "expiry", "erosion_rate"},
		ConflictKeys: []string{"acquirer_id", "product"},
	}, rows)
	return err
}

func (s *PostgresStore) UpsertHistoricalDeals(ctx context.Context, deals []model.HistoricalDeal) error {
	if len(deals) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(deals))
	for _, d := range deals {
		doc, err := json.Marshal(d)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal deal %s/%s", d.AcquirerID, d.TargetName)
		}
		rows = append(rows, []any{d.AcquirerID, d.TargetName, d.Date, doc})
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "historical_deals",
		Columns:      []string{"acquirer_id", "target_name", "deal_date", "data"},
		ConflictKeys: []string{"acquirer_id", "target_name", "deal_date"},
	}, rows)
	return err
}
