// Package importer bulk-loads reference data (companies, acquirers,
// patent cliffs, deal history) from XLSX workbooks and JSON documents.
package importer

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// sheet holds one parsed worksheet: a header index plus data rows.
type sheet struct {
	columns map[string]int
	rows    [][]string
}

// readSheet loads the named worksheet. The first row is treated as a
// header; column names are lowercased for lookup.
func readSheet(f *xlsx.File, name string) (*sheet, error) {
	ws, ok := f.Sheet[name]
	if !ok {
		return nil, eris.Errorf("importer: sheet %q not found", name)
	}
	if len(ws.Rows) == 0 {
		return &sheet{columns: map[string]int{}}, nil
	}

	columns := make(map[string]int)
	for i, cell := range ws.Rows[0].Cells {
		key := strings.ToLower(strings.TrimSpace(cell.Value))
		if key != "" {
			columns[key] = i
		}
	}

	var rows [][]string
	for _, row := range ws.Rows[1:] {
		cells := make([]string, len(row.Cells))
		empty := true
		for i, cell := range row.Cells {
			cells[i] = strings.TrimSpace(cell.Value)
			if cells[i] != "" {
				empty = false
			}
		}
		if !empty {
			rows = append(rows, cells)
		}
	}
	return &sheet{columns: columns, rows: rows}, nil
}

// get returns the named cell of a row, or "" when the column is absent
// or the row is short.
func (s *sheet) get(row []string, column string) string {
	idx, ok := s.columns[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// require errors unless every named column exists in the header.
func (s *sheet) require(columns ...string) error {
	for _, c := range columns {
		if _, ok := s.columns[c]; !ok {
			return eris.Errorf("importer: missing column %q", c)
		}
	}
	return nil
}

// splitList parses a semicolon-separated cell into trimmed,
// lowercased values.
func splitList(cell string) []string {
	if cell == "" {
		return nil
	}
	parts := strings.Split(cell, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.ToLower(strings.TrimSpace(p)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
