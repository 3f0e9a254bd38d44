package importer

import (
	"context"
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/bioma-cli/internal/model"
	"github.com/sells-group/bioma-cli/internal/store"
)

const dateLayout = "2006-01-02"

// Importer parses workbooks and writes the results through the store.
type Importer struct {
	dest store.Importer
	log  *zap.Logger
}

func New(dest store.Importer) *Importer {
	return &Importer{
		dest: dest,
		log:  zap.L().With(zap.String("component", "importer")),
	}
}

// ImportCompanies loads a company workbook. The workbook needs a
// "companies" sheet; "pipeline", "patents", and "financials" sheets are
// joined on company_id when present. Insider and regulatory data come
// in through JSON import only.
func (imp *Importer) ImportCompanies(ctx context.Context, path string) (int, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "importer: open %s", path)
	}

	companies, err := parseCompanies(f)
	if err != nil {
		return 0, err
	}
	if err := joinPipeline(f, companies); err != nil {
		return 0, err
	}
	if err := joinPatents(f, companies); err != nil {
		return 0, err
	}
	if err := joinFinancials(f, companies); err != nil {
		return 0, err
	}

	count := 0
	for _, data := range companies {
		if err := imp.dest.UpsertCompany(ctx, data); err != nil {
			return count, eris.Wrapf(err, "importer: upsert company %s", data.Company.ID)
		}
		count++
	}
	imp.log.Info("companies imported", zap.Int("count", count), zap.String("file", path))
	return count, nil
}

// ImportCompaniesJSON loads full company snapshots from a JSON file
// holding an array of company documents.
func (imp *Importer) ImportCompaniesJSON(ctx context.Context, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "importer: read %s", path)
	}
	var docs []model.CompanyData
	if err := json.Unmarshal(raw, &docs); err != nil {
		return 0, eris.Wrapf(err, "importer: parse %s", path)
	}
	count := 0
	for i := range docs {
		if err := imp.dest.UpsertCompany(ctx, &docs[i]); err != nil {
			return count, eris.Wrapf(err, "importer: upsert company %s", docs[i].Company.ID)
		}
		count++
	}
	imp.log.Info("companies imported", zap.Int("count", count), zap.String("file", path))
	return count, nil
}

// ImportAcquirers loads the acquirer universe from an "acquirers" sheet.
func (imp *Importer) ImportAcquirers(ctx context.Context, path string) (int, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "importer: open %s", path)
	}
	sh, err := readSheet(f, "acquirers")
	if err != nil {
		return 0, err
	}
	if err := sh.require("id", "name", "type"); err != nil {
		return 0, err
	}

	acquirers := make([]model.AcquirerCandidate, 0, len(sh.rows))
	for i, row := range sh.rows {
		priorities, err := parseWeights(sh.get(row, "strategic_priorities"))
		if err != nil {
			return 0, eris.Wrapf(err, "importer: acquirers row %d", i+2)
		}
		acquirers = append(acquirers, model.AcquirerCandidate{
			ID:                     sh.get(row, "id"),
			Name:                   sh.get(row, "name"),
			Type:                   model.AcquirerType(strings.ToLower(sh.get(row, "type"))),
			TherapeuticAreas:       splitList(sh.get(row, "therapeutic_areas")),
			StrategicPriorities:    priorities,
			PipelineGaps:           splitList(sh.get(row, "pipeline_gaps")),
			Cash:                   parseFloat(sh.get(row, "cash")),
			Debt:                   parseFloat(sh.get(row, "debt")),
			MarketCap:              parseFloat(sh.get(row, "market_cap")),
			RecentAcquisitionSpend: parseFloat(sh.get(row, "recent_acquisition_spend")),
			TechnologyFit:          parseFloat(sh.get(row, "technology_fit")),
		})
	}
	if err := imp.dest.UpsertAcquirers(ctx, acquirers); err != nil {
		return 0, err
	}
	imp.log.Info("acquirers imported", zap.Int("count", len(acquirers)), zap.String("file", path))
	return len(acquirers), nil
}

// ImportPatentCliffs loads acquirer patent expiries from a "cliffs" sheet.
func (imp *Importer) ImportPatentCliffs(ctx context.Context, path string) (int, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "importer: open %s", path)
	}
	sh, err := readSheet(f, "cliffs")
	if err != nil {
		return 0, err
	}
	if err := sh.require("acquirer_id", "product", "expiry"); err != nil {
		return 0, err
	}

	cliffs := make([]model.PatentCliff, 0, len(sh.rows))
	for i, row := range sh.rows {
		expiry, err := parseDate(sh.get(row, "expiry"))
		if err != nil {
			return 0, eris.Wrapf(err, "importer: cliffs row %d", i+2)
		}
		cliffs = append(cliffs, model.PatentCliff{
			AcquirerID:      sh.get(row, "acquirer_id"),
			Product:         sh.get(row, "product"),
			TherapeuticArea: strings.ToLower(sh.get(row, "therapeutic_area")),
			AnnualRevenue:   parseFloat(sh.get(row, "annual_revenue")),
			Expiry:          expiry,
			ErosionRate:     parseFloat(sh.get(row, "erosion_rate")),
		})
	}
	if err := imp.dest.UpsertPatentCliffs(ctx, cliffs); err != nil {
		return 0, err
	}
	imp.log.Info("patent cliffs imported", zap.Int("count", len(cliffs)), zap.String("file", path))
	return len(cliffs), nil
}

// ImportDeals loads acquisition history from a "deals" sheet.
func (imp *Importer) ImportDeals(ctx context.Context, path string) (int, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "importer: open %s", path)
	}
	sh, err := readSheet(f, "deals")
	if err != nil {
		return 0, err
	}
	if err := sh.require("acquirer_id", "target_name", "date"); err != nil {
		return 0, err
	}

	deals := make([]model.HistoricalDeal, 0, len(sh.rows))
	for i, row := range sh.rows {
		date, err := parseDate(sh.get(row, "date"))
		if err != nil {
			return 0, eris.Wrapf(err, "importer: deals row %d", i+2)
		}
		deals = append(deals, model.HistoricalDeal{
			AcquirerID:       sh.get(row, "acquirer_id"),
			TargetName:       sh.get(row, "target_name"),
			TherapeuticAreas: splitList(sh.get(row, "therapeutic_areas")),
			LeadStage:        model.Phase(strings.ToLower(sh.get(row, "lead_stage"))),
			TargetMarketCap:  parseFloat(sh.get(row, "target_market_cap")),
			DealValue:        parseFloat(sh.get(row, "deal_value")),
			Date:             date,
		})
	}
	if err := imp.dest.UpsertHistoricalDeals(ctx, deals); err != nil {
		return 0, err
	}
	imp.log.Info("deals imported", zap.Int("count", len(deals)), zap.String("file", path))
	return len(deals), nil
}

func parseCompanies(f *xlsx.File) (map[string]*model.CompanyData, error) {
	sh, err := readSheet(f, "companies")
	if err != nil {
		return nil, err
	}
	if err := sh.require("id", "name"); err != nil {
		return nil, err
	}

	companies := make(map[string]*model.CompanyData, len(sh.rows))
	for i, row := range sh.rows {
		id := sh.get(row, "id")
		if id == "" {
			return nil, eris.Errorf("importer: companies row %d: empty id", i+2)
		}
		companies[id] = &model.CompanyData{
			Company: model.Company{
				ID:               id,
				Name:             sh.get(row, "name"),
				Ticker:           sh.get(row, "ticker"),
				TherapeuticAreas: splitList(sh.get(row, "therapeutic_areas")),
				MarketCap:        parseFloat(sh.get(row, "market_cap")),
			},
		}
	}
	return companies, nil
}

func joinPipeline(f *xlsx.File, companies map[string]*model.CompanyData) error {
	if _, ok := f.Sheet["pipeline"]; !ok {
		return nil
	}
	sh, err := readSheet(f, "pipeline")
	if err != nil {
		return err
	}
	if err := sh.require("company_id", "name", "phase"); err != nil {
		return err
	}

	for i, row := range sh.rows {
		data, ok := companies[sh.get(row, "company_id")]
		if !ok {
			return eris.Errorf("importer: pipeline row %d: unknown company %q", i+2, sh.get(row, "company_id"))
		}
		asset := model.PipelineAsset{
			Name:              sh.get(row, "name"),
			Phase:             model.Phase(strings.ToLower(sh.get(row, "phase"))),
			Indication:        sh.get(row, "indication"),
			TherapeuticArea:   strings.ToLower(sh.get(row, "therapeutic_area")),
			PatientPopulation: parseInt(sh.get(row, "patient_population")),
		}
		for _, d := range splitList(sh.get(row, "designations")) {
			switch d {
			case "breakthrough":
				asset.Designations.Breakthrough = true
			case "orphan":
				asset.Designations.Orphan = true
			case "fast_track":
				asset.Designations.FastTrack = true
			case "priority_review":
				asset.Designations.PriorityReview = true
			}
		}
		if cell := sh.get(row, "last_updated"); cell != "" {
			t, err := parseDate(cell)
			if err != nil {
				return eris.Wrapf(err, "importer: pipeline row %d", i+2)
			}
			asset.LastUpdated = &t
		}
		data.Pipeline = append(data.Pipeline, asset)
	}
	return nil
}

func joinPatents(f *xlsx.File, companies map[string]*model.CompanyData) error {
	if _, ok := f.Sheet["patents"]; !ok {
		return nil
	}
	sh, err := readSheet(f, "patents")
	if err != nil {
		return err
	}
	if err := sh.require("company_id", "id", "expiry"); err != nil {
		return err
	}

	for i, row := range sh.rows {
		data, ok := companies[sh.get(row, "company_id")]
		if !ok {
			return eris.Errorf("importer: patents row %d: unknown company %q", i+2, sh.get(row, "company_id"))
		}
		expiry, err := parseDate(sh.get(row, "expiry"))
		if err != nil {
			return eris.Wrapf(err, "importer: patents row %d", i+2)
		}
		patent := model.Patent{
			ID:        sh.get(row, "id"),
			Title:     sh.get(row, "title"),
			Expiry:    expiry,
			Claims:    int(parseInt(sh.get(row, "claims"))),
			Citations: int(parseInt(sh.get(row, "citations"))),
		}
		for _, t := range splitList(sh.get(row, "types")) {
			switch t {
			case "composition_of_matter":
				patent.CompositionOfMatter = true
			case "method_of_use":
				patent.MethodOfUse = true
			case "formulation":
				patent.Formulation = true
			}
		}
		data.Patents = append(data.Patents, patent)
	}
	return nil
}

func joinFinancials(f *xlsx.File, companies map[string]*model.CompanyData) error {
	if _, ok := f.Sheet["financials"]; !ok {
		return nil
	}
	sh, err := readSheet(f, "financials")
	if err != nil {
		return err
	}
	if err := sh.require("company_id", "as_of"); err != nil {
		return err
	}

	for i, row := range sh.rows {
		data, ok := companies[sh.get(row, "company_id")]
		if !ok {
			return eris.Errorf("importer: financials row %d: unknown company %q", i+2, sh.get(row, "company_id"))
		}
		asOf, err := parseDate(sh.get(row, "as_of"))
		if err != nil {
			return eris.Wrapf(err, "importer: financials row %d", i+2)
		}
		snap := &model.FinancialSnapshot{
			AsOf:        asOf,
			MarketCap:   parseFloat(sh.get(row, "market_cap")),
			Cash:        parseFloat(sh.get(row, "cash")),
			MonthlyBurn: parseFloat(sh.get(row, "monthly_burn")),
			Revenue:     parseFloat(sh.get(row, "revenue")),
		}
		if cell := sh.get(row, "next_catalyst"); cell != "" {
			t, err := parseDate(cell)
			if err != nil {
				return eris.Wrapf(err, "importer: financials row %d", i+2)
			}
			snap.NextCatalyst = &t
		}
		data.Financials = snap
	}
	return nil
}

// parseWeights parses "oncology:0.9;immunology:0.6" into a priority map.
func parseWeights(cell string) (map[string]float64, error) {
	if cell == "" {
		return nil, nil
	}
	weights := make(map[string]float64)
	for _, part := range strings.Split(cell, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, val, ok := strings.Cut(part, ":")
		if !ok {
			return nil, eris.Errorf("importer: malformed priority %q", part)
		}
		w, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "importer: priority %q", part)
		}
		weights[strings.ToLower(strings.TrimSpace(key))] = w
	}
	return weights, nil
}

func parseFloat(cell string) float64 {
	if cell == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(cell string) int64 {
	if cell == "" {
		return 0
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(cell, ",", ""), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseDate(cell string) (time.Time, error) {
	t, err := time.Parse(dateLayout, cell)
	if err != nil {
		// xlsx date cells sometimes render with a time component.
		t, err = time.Parse("2006-01-02 15:04:05", cell)
	}
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "importer: parse date %q", cell)
	}
	return t.UTC(), nil
}
