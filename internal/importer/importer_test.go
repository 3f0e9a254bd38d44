package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bioma-cli/internal/model"
)

// recordingDest captures everything written through the Importer
// interface.
type recordingDest struct {
	companies []model.CompanyData
	acquirers []model.AcquirerCandidate
	cliffs    []model.PatentCliff
	deals     []model.HistoricalDeal
}

func (r *recordingDest) UpsertCompany(_ context.Context, data *model.CompanyData) error {
	r.companies = append(r.companies, *data)
	return nil
}

func (r *recordingDest) UpsertAcquirers(_ context.Context, acquirers []model.AcquirerCandidate) error {
	r.acquirers = append(r.acquirers, acquirers...)
	return nil
}

func (r *recordingDest) UpsertPatentCliffs(_ context.Context, cliffs []model.PatentCliff) error {
	r.cliffs = append(r.cliffs, cliffs...)
	return nil
}

func (r *recordingDest) UpsertHistoricalDeals(_ context.Context, deals []model.HistoricalDeal) error {
	r.deals = append(r.deals, deals...)
	return nil
}

// writeWorkbook builds an xlsx file where each sheet is a header row
// followed by data rows.
func writeWorkbook(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sh, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, row := range rows {
			r := sh.AddRow()
			for _, cell := range row {
				r.AddCell().Value = cell
			}
		}
	}
	path := filepath.Join(t.TempDir(), "import.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestImportCompanies(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"companies": {
			{"id", "name", "ticker", "therapeutic_areas", "market_cap"},
			{"acme", "Acme Bio", "ACME", "Oncology; Immunology", "450000000"},
			{"beta", "Beta Rx", "", "rare disease", "120,000,000"},
		},
		"pipeline": {
			{"company_id", "name", "phase", "therapeutic_area", "designations", "last_updated"},
			{"acme", "ACM-101", "Phase_3", "Oncology", "fast_track; orphan", "2026-01-15"},
		},
		"patents": {
			{"company_id", "id", "title", "expiry", "claims", "types"},
			{"acme", "US1234567", "Kinase inhibitor compounds", "2034-06-01", "24", "composition_of_matter"},
		},
		"financials": {
			{"company_id", "as_of", "cash", "monthly_burn", "next_catalyst"},
			{"acme", "2026-02-01", "120000000", "8000000", "2026-05-01"},
		},
	})

	dest := &recordingDest{}
	count, err := New(dest).ImportCompanies(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, dest.companies, 2)

	var acme *model.CompanyData
	for i := range dest.companies {
		if dest.companies[i].Company.ID == "acme" {
			acme = &dest.companies[i]
		}
	}
	require.NotNil(t, acme)
	assert.Equal(t, []string{"oncology", "immunology"}, acme.Company.TherapeuticAreas)
	assert.Equal(t, 450e6, acme.Company.MarketCap)

	require.Len(t, acme.Pipeline, 1)
	assert.Equal(t, model.PhaseIII, acme.Pipeline[0].Phase)
	assert.True(t, acme.Pipeline[0].Designations.FastTrack)
	assert.True(t, acme.Pipeline[0].Designations.Orphan)
	require.NotNil(t, acme.Pipeline[0].LastUpdated)

	require.Len(t, acme.Patents, 1)
	assert.True(t, acme.Patents[0].CompositionOfMatter)
	assert.Equal(t, 24, acme.Patents[0].Claims)
	assert.Equal(t, 2034, acme.Patents[0].Expiry.Year())

	require.NotNil(t, acme.Financials)
	assert.Equal(t, 120e6, acme.Financials.Cash)
	require.NotNil(t, acme.Financials.NextCatalyst)
}

func TestImportCompaniesMissingSheet(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"pipeline": {{"company_id", "name", "phase"}},
	})

	_, err := New(&recordingDest{}).ImportCompanies(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "companies" not found`)
}

func TestImportCompaniesMissingColumn(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"companies": {
			{"id", "ticker"},
			{"acme", "ACME"},
		},
	})

	_, err := New(&recordingDest{}).ImportCompanies(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "name"`)
}

func TestImportCompaniesUnknownPipelineCompany(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"companies": {
			{"id", "name"},
			{"acme", "Acme Bio"},
		},
		"pipeline": {
			{"company_id", "name", "phase"},
			{"ghost", "GH-1", "phase_1"},
		},
	})

	_, err := New(&recordingDest{}).ImportCompanies(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline row 2")
	assert.Contains(t, err.Error(), `unknown company "ghost"`)
}

func TestImportCompaniesJSON(t *testing.T) {
	doc := `[
		{
			"company": {"id": "acme", "name": "Acme Bio", "therapeutic_areas": ["oncology"]},
			"pipeline": [{"name": "ACM-101", "phase": "phase_2", "therapeutic_area": "oncology"}],
			"insider": {"purchases": [{"date": "2026-01-10T00:00:00Z", "amount": 250000, "executive": true}]},
			"regulatory": {"pathway": "fast_track"}
		}
	]`
	path := filepath.Join(t.TempDir(), "companies.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	dest := &recordingDest{}
	count, err := New(dest).ImportCompaniesJSON(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, dest.companies, 1)
	assert.Equal(t, "fast_track", dest.companies[0].Regulatory.Pathway)
	require.Len(t, dest.companies[0].Insider.Purchases, 1)
	assert.True(t, dest.companies[0].Insider.Purchases[0].Executive)
}

func TestImportAcquirers(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"acquirers": {
			{"id", "name", "type", "therapeutic_areas", "strategic_priorities", "pipeline_gaps", "cash", "debt"},
			{"bigpharma", "Big Pharma Inc", "Major_Pharma", "oncology; immunology", "oncology:0.9; immunology:0.6", "oncology", "20000000000", "2000000000"},
		},
	})

	dest := &recordingDest{}
	count, err := New(dest).ImportAcquirers(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, dest.acquirers, 1)

	a := dest.acquirers[0]
	assert.Equal(t, model.AcquirerMajorPharma, a.Type)
	assert.Equal(t, 0.9, a.StrategicPriorities["oncology"])
	assert.Equal(t, 0.6, a.StrategicPriorities["immunology"])
	assert.Equal(t, []string{"oncology"}, a.PipelineGaps)
	assert.Equal(t, 20e9, a.Cash)
}

func TestImportAcquirersMalformedPriority(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"acquirers": {
			{"id", "name", "type", "strategic_priorities"},
			{"bigpharma", "Big Pharma Inc", "major_pharma", "oncology=0.9"},
		},
	})

	_, err := New(&recordingDest{}).ImportAcquirers(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquirers row 2")
}

func TestImportPatentCliffs(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"cliffs": {
			{"acquirer_id", "product", "therapeutic_area", "annual_revenue", "expiry", "erosion_rate"},
			{"bigpharma", "Oncozyme", "Oncology", "2000000000", "2027-09-01", "0.8"},
		},
	})

	dest := &recordingDest{}
	count, err := New(dest).ImportPatentCliffs(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, dest.cliffs, 1)

	pc := dest.cliffs[0]
	assert.Equal(t, "oncology", pc.TherapeuticArea)
	assert.Equal(t, 2e9, pc.AnnualRevenue)
	assert.Equal(t, 2027, pc.Expiry.Year())
	assert.Equal(t, 0.8, pc.ErosionRate)
}

func TestImportDeals(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"deals": {
			{"acquirer_id", "target_name", "therapeutic_areas", "lead_stage", "deal_value", "date"},
			{"bigpharma", "OldBio", "oncology", "Phase_3", "1,200,000,000", "2024-03-15"},
		},
	})

	dest := &recordingDest{}
	count, err := New(dest).ImportDeals(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, dest.deals, 1)

	d := dest.deals[0]
	assert.Equal(t, model.PhaseIII, d.LeadStage)
	assert.Equal(t, 1.2e9, d.DealValue)
	assert.Equal(t, []string{"oncology"}, d.TherapeuticAreas)
}

func TestImportDealsBadDate(t *testing.T) {
	path := writeWorkbook(t, map[string][][]string{
		"deals": {
			{"acquirer_id", "target_name", "date"},
			{"bigpharma", "OldBio", "March 2024"},
		},
	})

	_, err := New(&recordingDest{}).ImportDeals(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deals row 2")
}

func TestParseWeights(t *testing.T) {
	weights, err := parseWeights("oncology:0.9; immunology:0.6;")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"oncology": 0.9, "immunology": 0.6}, weights)

	weights, err = parseWeights("")
	require.NoError(t, err)
	assert.Nil(t, weights)

	_, err = parseWeights("oncology:abc")
	require.Error(t, err)
}

func TestParseHelpers(t *testing.T) {
	assert.Equal(t, 1200000.0, parseFloat("1,200,000"))
	assert.Equal(t, 0.0, parseFloat("n/a"))
	assert.Equal(t, int64(2400), parseInt("2,400"))

	d, err := parseDate("2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year())

	d, err = parseDate("2026-03-01 00:00:00")
	require.NoError(t, err)
	assert.Equal(t, 3, int(d.Month()))

	assert.Equal(t, []string{"oncology", "rare disease"}, splitList("Oncology; Rare Disease;"))
	assert.Nil(t, splitList(""))
}
