package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bioma-cli/internal/model"
)

func sampleScore() model.MAScore {
	return model.MAScore{
		CompanyID:    "acme",
		CompanyName:  "Acme Biosciences",
		OverallScore: 72.5,
		Trend:        model.TrendUp,
		TrendDelta:   4.2,
		Confidence:   0.81,
		Components: map[string]model.ComponentScore{
			"pipeline": {Component: "pipeline", Score: 80.0, Weight: 0.25, SignalCount: 2, Trend: model.TrendUp},
			"patent":   {Component: "patent", Score: 65.0, Weight: 0.15, SignalCount: 1, Trend: model.TrendStable},
		},
		KeySignals: []string{"strong pipeline signal (80)"},
		TopAcquirers: []model.AcquirerMatch{
			{AcquirerName: "Vertex Global", MatchScore: 74.0, DealLikelihood: 0.5, EstimatedPremiumPct: 50},
		},
		CalculatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestOutputScores_CSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.csv")
	require.NoError(t, outputScores([]model.MAScore{sampleScore()}, "csv", path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, scoreHeader, records[0])

	row := records[1]
	assert.Equal(t, "acme", row[0])
	assert.Equal(t, "Acme Biosciences", row[1])
	assert.Equal(t, "72.5", row[2])
	assert.Equal(t, "up", row[3])
	// pipeline and patent scored, financial blank.
	assert.Equal(t, "80.0", row[6])
	assert.Equal(t, "65.0", row[7])
	assert.Equal(t, "", row[8])
	assert.Equal(t, "Vertex Global", row[12])
}

func TestOutputScores_XLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.xlsx")
	require.NoError(t, outputScores([]model.MAScore{sampleScore()}, "xlsx", path))

	wb, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := wb.Sheet["scores"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "acme", sheet.Rows[1].Cells[0].Value)
	assert.Equal(t, "72.5", sheet.Rows[1].Cells[2].Value)
}

func TestOutputScores_XLSXRequiresOutputPath(t *testing.T) {
	err := outputScores([]model.MAScore{sampleScore()}, "xlsx", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires --output")
}

func TestOutputScores_UnsupportedFormat(t *testing.T) {
	err := outputScores(nil, "yaml", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestWriteScoreTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScoreTable(&buf, []model.MAScore{sampleScore()}))

	out := buf.String()
	assert.Contains(t, out, "COMPANY")
	assert.Contains(t, out, "Acme Biosciences")
	assert.Contains(t, out, "72.5")
	assert.Contains(t, out, "Vertex Global")
}

func TestWriteScoreTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeScoreTable(&buf, nil))
	assert.Contains(t, buf.String(), "No results.")
}

func TestPrintSingleScore(t *testing.T) {
	var buf bytes.Buffer
	s := sampleScore()
	printSingleScore(&buf, &s)

	out := buf.String()
	assert.Contains(t, out, "Acme Biosciences (acme)")
	assert.Contains(t, out, "72.5 / 100")
	assert.Contains(t, out, "up (+4.2)")
	assert.Contains(t, out, "pipeline")
	assert.Contains(t, out, "strong pipeline signal (80)")
	assert.Contains(t, out, "Vertex Global")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 30))
	assert.Equal(t, "a very long company...", truncate("a very long company name inc", 22))
}

func TestTopAcquirerName(t *testing.T) {
	assert.Equal(t, "Vertex Global", topAcquirerName(sampleScore()))
	assert.Equal(t, "", topAcquirerName(model.MAScore{}))
}

func TestSortedComponentNames(t *testing.T) {
	names := sortedComponentNames(sampleScore().Components)
	assert.Equal(t, []string{"patent", "pipeline"}, names)
}
