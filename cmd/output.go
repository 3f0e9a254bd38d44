package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/bioma-cli/internal/model"
)

var scoreHeader = []string{
	"company_id", "company", "score", "trend", "delta", "confidence",
	"pipeline", "patent", "financial", "insider", "regulatory", "strategic_fit",
	"top_acquirer",
}

func outputScores(scores []model.MAScore, format, outputPath string) error {
	var w *os.File
	if outputPath != "" {
		var err error
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "output: create %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	} else {
		w = os.Stdout
	}

	switch format {
	case "csv":
		return writeScoreCSV(w, scores)
	case "xlsx":
		if outputPath == "" {
			return eris.New("output: --format xlsx requires --output")
		}
		return writeScoreXLSX(outputPath, scores)
	case "table":
		return writeScoreTable(w, scores)
	default:
		return eris.Errorf("output: unsupported format %q", format)
	}
}

func writeScoreTable(w io.Writer, scores []model.MAScore) error {
	if len(scores) == 0 {
		fmt.Fprintln(w, "No results.")
		return nil
	}
	fmt.Fprintf(w, "%-20s %-30s %7s %-8s %7s %6s  %s\n",
		"ID", "COMPANY", "SCORE", "TREND", "DELTA", "CONF", "TOP ACQUIRER")
	for _, s := range scores {
		fmt.Fprintf(w, "%-20s %-30s %7.1f %-8s %+7.1f %6.2f  %s\n",
			s.CompanyID, truncate(s.CompanyName, 30), s.OverallScore,
			s.Trend, s.TrendDelta, s.Confidence, topAcquirerName(s))
	}
	return nil
}

func writeScoreCSV(w io.Writer, scores []model.MAScore) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scoreHeader); err != nil {
		return eris.Wrap(err, "output: write csv header")
	}
	for _, s := range scores {
		if err := cw.Write(scoreRow(s)); err != nil {
			return eris.Wrapf(err, "output: write csv row for %s", s.CompanyID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "output: flush csv")
}

func writeScoreXLSX(path string, scores []model.MAScore) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("scores")
	if err != nil {
		return eris.Wrap(err, "output: add sheet")
	}
	header := sheet.AddRow()
	for _, h := range scoreHeader {
		header.AddCell().SetString(h)
	}
	for _, s := range scores {
		row := sheet.AddRow()
		for _, v := range scoreRow(s) {
			row.AddCell().SetString(v)
		}
	}
	return eris.Wrapf(f.Save(path), "output: save %s", path)
}

func scoreRow(s model.MAScore) []string {
	row := []string{
		s.CompanyID,
		s.CompanyName,
		strconv.FormatFloat(s.OverallScore, 'f', 1, 64),
		string(s.Trend),
		strconv.FormatFloat(s.TrendDelta, 'f', 1, 64),
		strconv.FormatFloat(s.Confidence, 'f', 2, 64),
	}
	for _, name := range []string{"pipeline", "patent", "financial", "insider", "regulatory", "strategic_fit"} {
		if c, ok := s.Components[name]; ok {
			row = append(row, strconv.FormatFloat(c.Score, 'f', 1, 64))
		} else {
			row = append(row, "")
		}
	}
	return append(row, topAcquirerName(s))
}

func topAcquirerName(s model.MAScore) string {
	if len(s.TopAcquirers) == 0 {
		return ""
	}
	return s.TopAcquirers[0].AcquirerName
}

func sortedComponentNames(components map[string]model.ComponentScore) []string {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
