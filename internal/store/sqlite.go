package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bioma-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for
// single-analyst setups where running Postgres is overkill.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS companies (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	ticker            TEXT NOT NULL DEFAULT '',
	therapeutic_areas TEXT NOT NULL DEFAULT '[]',
	market_cap        REAL NOT NULL DEFAULT 0,
	pipeline          TEXT NOT NULL DEFAULT '[]',
	patents           TEXT NOT NULL DEFAULT '[]',
	financials        TEXT,
	insider           TEXT NOT NULL DEFAULT '{}',
	regulatory        TEXT NOT NULL DEFAULT '{}',
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS acquirers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL,
	data       TEXT NOT NULL DEFAULT '{}',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS patent_cliffs (
	acquirer_id      TEXT NOT NULL,
	product          TEXT NOT NULL,
	therapeutic_area TEXT NOT NULL,
	annual_revenue   REAL NOT NULL DEFAULT 0,
	expiry           DATETIME NOT NULL,
	erosion_rate     REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (acquirer_id, product)
);

CREATE TABLE IF NOT EXISTS historical_deals (
	acquirer_id TEXT NOT NULL,
	target_name TEXT NOT NULL,
	deal_date   DATETIME NOT NULL,
	data        TEXT NOT NULL,
	PRIMARY KEY (acquirer_id, target_name, deal_date)
);

CREATE TABLE IF NOT EXISTS ma_scores (
	id            TEXT PRIMARY KEY,
	company_id    TEXT NOT NULL,
	overall_score REAL NOT NULL,
	data          TEXT NOT NULL,
	config_hash   TEXT NOT NULL DEFAULT '',
	calculated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ma_scores_company_time ON ma_scores(company_id, calculated_at DESC);

CREATE TABLE IF NOT EXISTS watchlist (
	company_id     TEXT PRIMARY KEY,
	company_name   TEXT NOT NULL,
	added_at       DATETIME NOT NULL,
	current_score  REAL NOT NULL,
	score_at_add   REAL NOT NULL,
	peak_score     REAL NOT NULL,
	alerts_enabled INTEGER NOT NULL DEFAULT 1,
	alert_delta    REAL NOT NULL DEFAULT 10
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- CompanyProvider ---

func (s *SQLiteStore) GetCompany(ctx context.Context, id string) (*model.Company, error) {
	var c model.Company
	var areasJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, ticker, therapeutic_areas, market_cap FROM companies WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Ticker, &areasJSON, &c.MarketCap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "company %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get company %s", id)
	}
	if err := json.Unmarshal([]byte(areasJSON), &c.TherapeuticAreas); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal therapeutic areas")
	}
	return &c, nil
}

func (s *SQLiteStore) companyDoc(ctx context.Context, id, column string, dest any) error {
	var doc sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT `+column+` FROM companies WHERE id = ?`, id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "company %s", id)
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: get %s for %s", column, id)
	}
	if !doc.Valid || doc.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(doc.String), dest); err != nil {
		return eris.Wrapf(err, "sqlite: unmarshal %s for %s", column, id)
	}
	return nil
}

func (s *SQLiteStore) GetPipeline(ctx context.Context, id string) ([]model.PipelineAsset, error) {
	var assets []model.PipelineAsset
	if err := s.companyDoc(ctx, id, "pipeline", &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

func (s *SQLiteStore) GetPatents(ctx context.Context, id string) ([]model.Patent, error) {
	var patents []model.Patent
	if err := s.companyDoc(ctx, id, "patents", &patents); err != nil {
		return nil, err
	}
	return patents, nil
}

func (s *SQLiteStore) GetFinancials(ctx context.Context, id string) (*model.FinancialSnapshot, error) {
	var doc sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT financials FROM companies WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "company %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get financials for %s", id)
	}
	if !doc.Valid || doc.String == "" {
		return nil, nil
	}
	var snap model.FinancialSnapshot
	if err := json.Unmarshal([]byte(doc.String), &snap); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal financials for %s", id)
	}
	return &snap, nil
}

func (s *SQLiteStore) GetInsiderActivity(ctx context.Context, id string) (*model.InsiderActivity, error) {
	var activity model.InsiderActivity
	if err := s.companyDoc(ctx, id, "insider", &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (s *SQLiteStore) GetRegulatoryHistory(ctx context.Context, id string) (*model.RegulatoryHistory, error) {
	var history model.RegulatoryHistory
	if err := s.companyDoc(ctx, id, "regulatory", &history); err != nil {
		return nil, err
	}
	return &history, nil
}

func (s *SQLiteStore) ListCompanyIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM companies ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list company ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan company id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- AcquirerProvider ---

func (s *SQLiteStore) ListAcquirers(ctx context.Context, limit int) ([]model.AcquirerCandidate, error) {
	query := `SELECT data FROM acquirers ORDER BY name`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list acquirers")
	}
	defer rows.Close()

	var acquirers []model.AcquirerCandidate
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan acquirer row")
		}
		var a model.AcquirerCandidate
		if err := json.Unmarshal([]byte(doc), &a); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal acquirer")
		}
		acquirers = append(acquirers, a)
	}
	return acquirers, rows.Err()
}

func (s *SQLiteStore) GetAcquirer(ctx context.Context, id string) (*model.AcquirerCandidate, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM acquirers WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "acquirer %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get acquirer %s", id)
	}
	var a model.AcquirerCandidate
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal acquirer %s", id)
	}
	return &a, nil
}

func (s *SQLiteStore) ListPatentCliffs(ctx context.Context, areas []string, yearsAhead int) ([]model.PatentCliff, error) {
	if yearsAhead <= 0 {
		yearsAhead = 5
	}
	now := s.now()
	cutoff := now.AddDate(yearsAhead, 0, 0)

	query := `SELECT acquirer_id, product, therapeutic_area, annual_revenue, expiry, erosion_rate
		FROM patent_cliffs WHERE expiry > ? AND expiry <= ?`
	args := []any{now, cutoff}
	if len(areas) > 0 {
		query += ` AND therapeutic_area IN (?` + strings.Repeat(", ?", len(areas)-1) + `)`
		for _, a := range areas {
			args = append(args, a)
		}
	}
	query += ` ORDER BY expiry`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list patent cliffs")
	}
	defer rows.Close()

	var cliffs []model.PatentCliff
	for rows.Next() {
		var pc model.PatentCliff
		if err := rows.Scan(&pc.AcquirerID, &pc.Product, &pc.TherapeuticArea, &pc.AnnualRevenue, &pc.Expiry, &pc.ErosionRate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan patent cliff")
		}
		cliffs = append(cliffs, pc)
	}
	return cliffs, rows.Err()
}

func (s *SQLiteStore) ListHistoricalDeals(ctx context.Context, acquirerID string, yearsBack int) ([]model.HistoricalDeal, error) {
	if yearsBack <= 0 {
		yearsBack = 7
	}
	since := s.now().AddDate(-yearsBack, 0, 0)

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM historical_deals WHERE acquirer_id = ? AND deal_date >= ? ORDER BY deal_date DESC`,
		acquirerID, since,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list deals for %s", acquirerID)
	}
	defer rows.Close()

	var deals []model.HistoricalDeal
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan deal row")
		}
		var d model.HistoricalDeal
		if err := json.Unmarshal([]byte(doc), &d); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal deal")
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// --- ScoreStore ---

func (s *SQLiteStore) StoreScore(ctx context.Context, score *model.MAScore) error {
	doc, err := json.Marshal(score)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal score")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ma_scores (id, company_id, overall_score, data, config_hash, calculated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), score.CompanyID, score.OverallScore, string(doc), score.ConfigHash, score.CalculatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: store score for %s", score.CompanyID)
	}
	return nil
}

func (s *SQLiteStore) PreviousScore(ctx context.Context, companyID string) (*model.MAScore, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM ma_scores WHERE company_id = ? ORDER BY calculated_at DESC LIMIT 1`,
		companyID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: previous score for %s", companyID)
	}
	var score model.MAScore
	if err := json.Unmarshal([]byte(doc), &score); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal score for %s", companyID)
	}
	return &score, nil
}

func (s *SQLiteStore) LatestScores(ctx context.Context, limit int) ([]model.MAScore, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM ma_scores m
		WHERE calculated_at = (SELECT MAX(calculated_at) FROM ma_scores WHERE company_id = m.company_id)
		ORDER BY overall_score DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest scores")
	}
	defer rows.Close()

	var scores []model.MAScore
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score row")
		}
		var score model.MAScore
		if err := json.Unmarshal([]byte(doc), &score); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal score")
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

// --- WatchlistStore ---

func (s *SQLiteStore) UpsertWatchlistEntry(ctx context.Context, entry *model.WatchlistEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO watchlist (company_id, company_name, added_at, current_score, score_at_add, peak_score, alerts_enabled, alert_delta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (company_id) DO UPDATE SET
			company_name = excluded.company_name,
			current_score = excluded.current_score,
			peak_score = excluded.peak_score,
			alerts_enabled = excluded.alerts_enabled,
			alert_delta = excluded.alert_delta`,
		entry.CompanyID, entry.CompanyName, entry.AddedAt, entry.CurrentScore,
		entry.ScoreAtAdd, entry.PeakScore, entry.AlertsEnabled, entry.AlertDelta,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert watchlist entry %s", entry.CompanyID)
	}
	return nil
}

func (s *SQLiteStore) DeleteWatchlistEntry(ctx context.Context, companyID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watchlist WHERE company_id = ?`, companyID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete watchlist entry %s", companyID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "watchlist entry %s", companyID)
	}
	return nil
}

func (s *SQLiteStore) GetWatchlistEntry(ctx context.Context, companyID string) (*model.WatchlistEntry, error) {
	var e model.WatchlistEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT company_id, company_name, added_at, current_score, score_at_add, peak_score, alerts_enabled, alert_delta
		FROM watchlist WHERE company_id = ?`,
		companyID,
	).Scan(&e.CompanyID, &e.CompanyName, &e.AddedAt, &e.CurrentScore, &e.ScoreAtAdd, &e.PeakScore, &e.AlertsEnabled, &e.AlertDelta)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "watchlist entry %s", companyID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get watchlist entry %s", companyID)
	}
	return &e, nil
}

func (s *SQLiteStore) ListWatchlist(ctx context.Context) ([]model.WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT company_id, company_name, added_at, current_score, score_at_add, peak_score, alerts_enabled, alert_delta
		FROM watchlist ORDER BY current_score DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list watchlist")
	}
	defer rows.Close()

	var entries []model.WatchlistEntry
	for rows.Next() {
		var e model.WatchlistEntry
		if err := rows.Scan(&e.CompanyID, &e.CompanyName, &e.AddedAt, &e.CurrentScore, &e.ScoreAtAdd, &e.PeakScore, &e.AlertsEnabled, &e.AlertDelta); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan watchlist row")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- Importer ---

func (s *SQLiteStore) UpsertCompany(ctx context.Context, data *model.CompanyData) error {
	if data.Company.ID == "" {
		return eris.New("sqlite: company id required")
	}
	areas, err := json.Marshal(data.Company.TherapeuticAreas)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal therapeutic areas")
	}
	pipeline, err := json.Marshal(data.Pipeline)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal pipeline")
	}
	patents, err := json.Marshal(data.Patents)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal patents")
	}
	var financials any
	if data.Financials != nil {
		doc, err := json.Marshal(data.Financials)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal financials")
		}
		financials = string(doc)
	}
	insider, err := json.Marshal(data.Insider)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal insider activity")
	}
	regulatory, err := json.Marshal(data.Regulatory)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal regulatory history")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO companies (id, name, ticker, therapeutic_areas, market_cap, pipeline, patents, financials, insider, regulatory, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			ticker = excluded.ticker,
			therapeutic_areas = excluded.therapeutic_areas,
			market_cap = excluded.market_cap,
			pipeline = excluded.pipeline,
			patents = excluded.patents,
			financials = excluded.financials,
			insider = excluded.insider,
			regulatory = excluded.regulatory,
			updated_at = datetime('now')`,
		data.Company.ID, data.Company.Name, data.Company.Ticker, string(areas), data.Company.MarketCap,
		string(pipeline), string(patents), financials, string(insider), string(regulatory),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert company %s", data.Company.ID)
	}
	return nil
}

func (s *SQLiteStore) UpsertAcquirers(ctx context.Context, acquirers []model.AcquirerCandidate) error {
	if len(acquirers) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO acquirers (id, name, type, data, updated_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			data = excluded.data,
			updated_at = datetime('now')`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare acquirer upsert")
	}
	defer stmt.Close()

	for _, a := range acquirers {
		doc, err := json.Marshal(a)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal acquirer %s", a.ID)
		}
		if _, err := stmt.ExecContext(ctx, a.ID, a.Name, string(a.Type), string(doc)); err != nil {
			return eris.Wrapf(err, "sqlite: upsert acquirer %s", a.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit acquirer upsert")
}

func (s *SQLiteStore) UpsertPatentCliffs(ctx context.Context, cliffs []model.PatentCliff) error {
	if len(cliffs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO patent_cliffs (acquirer_id, product, therapeutic_area, annual_revenue, expiry, erosion_rate)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (acquirer_id, product) DO UPDATE SET
			therapeutic_area = excluded.therapeutic_area,
			annual_revenue = excluded.annual_revenue,
			expiry = excluded.expiry,
			erosion_rate = excluded.erosion_rate`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare cliff upsert")
	}
	defer stmt.Close()

	for _, pc := range cliffs {
		if _, err := stmt.ExecContext(ctx, pc.AcquirerID, pc.Product, pc.TherapeuticArea, pc.AnnualRevenue, pc.Expiry, pc.ErosionRate); err != nil {
			return eris.Wrapf(err, "sqlite: upsert cliff %s/%s", pc.AcquirerID, pc.Product)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit cliff upsert")
}

func (s *SQLiteStore) UpsertHistoricalDeals(ctx context.Context, deals []model.HistoricalDeal) error {
	if len(deals) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO historical_deals (acquirer_id, target_name, deal_date, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (acquirer_id, target_name, deal_date) DO UPDATE SET data = excluded.data`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare deal upsert")
	}
	defer stmt.Close()

	for _, d := range deals {
		doc, err := json.Marshal(d)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal deal %s/%s", d.AcquirerID, d.TargetName)
		}
		if _, err := stmt.ExecContext(ctx, d.AcquirerID, d.TargetName, d.Date, string(doc)); err != nil {
			return eris.Wrapf(err, "sqlite: upsert deal %s/%s", d.AcquirerID, d.TargetName)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit deal upsert")
}
