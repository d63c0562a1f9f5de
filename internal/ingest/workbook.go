package ingest

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

var (
	ErrNoSheets      = errors.New("workbook has no sheets")
	ErrSheetNotFound = errors.New("sheet not found")
	ErrEmptySheet    = errors.New("sheet has no header row")
)

var reportSheet = regexp.MustCompile(`(?i)search\s*term|搜索词|搜尋字詞|検索|suchbegriff|t[eé]rmino de b[uú]squeda|terme de recherche|termini? di ricerca`)

// Workbook is one decoded worksheet.
type Workbook struct {
	Sheet  string
	Sheets []string
	Rows   []models.RawRow
}

// ReadWorkbook decodes an xlsx stream. An empty sheet name selects the
// search term sheet, or the first sheet.
func ReadWorkbook(r io.Reader, sheet string) (Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Workbook{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Workbook{}, ErrNoSheets
	}
	name := sheet
	if name == "" {
		name = SelectSheet(sheets)
	} else if !contains(sheets, name) {
		return Workbook{}, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}

	grid, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return Workbook{}, fmt.Errorf("read sheet %q: %w", name, err)
	}
	rows, err := Rows(grid, func(row, col int) bool {
		cell, err := excelize.CoordinatesToCellName(col+1, row+1)
		if err != nil {
			return false
		}
		t, err := f.GetCellType(name, cell)
		if err != nil {
			return false
		}
		// Cells without a type attribute are numbers in OOXML.
		return t == excelize.CellTypeUnset || t == excelize.CellTypeNumber
	})
	if err != nil {
		return Workbook{}, fmt.Errorf("sheet %q: %w", name, err)
	}
	return Workbook{Sheet: name, Sheets: sheets, Rows: rows}, nil
}

// SelectSheet prefers a sheet named like a search term report.
func SelectSheet(names []string) string {
	for _, n := range names {
		if reportSheet.MatchString(n) {
			return n
		}
	}
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

// NumericFunc reports whether the workbook stores the cell at grid position
// (row, col) as a number.
type NumericFunc func(row, col int) bool

// Rows turns a cell grid into raw rows keyed by the first non-empty row.
// Blank header cells are skipped and repeated headers get _1, _2 suffixes.
// Only cells numeric reports as numbers become number cells; a nil numeric
// keeps every cell as text.
func Rows(grid [][]string, numeric NumericFunc) ([]models.RawRow, error) {
	hi := -1
	for i, row := range grid {
		if !emptyRow(row) {
			hi = i
			break
		}
	}
	if hi < 0 {
		return nil, ErrEmptySheet
	}

	header := make([]string, len(grid[hi]))
	used := map[string]int{}
	for j, h := range grid[hi] {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if n, ok := used[h]; ok {
			used[h] = n + 1
			h = h + "_" + strconv.Itoa(n+1)
		} else {
			used[h] = 0
		}
		header[j] = h
	}

	var out []models.RawRow
	for i, row := range grid[hi+1:] {
		if emptyRow(row) {
			continue
		}
		ri := hi + 1 + i
		rr := models.NewRawRow()
		for j, v := range row {
			if j >= len(header) || header[j] == "" {
				continue
			}
			rr.Set(header[j], parseCell(v, numeric != nil && numeric(ri, j)))
		}
		out = append(out, rr)
	}
	return out, nil
}

// parseCell keeps text cells verbatim: "007" stays a string even though it
// reads as a number.
func parseCell(v string, numeric bool) models.Cell {
	t := strings.TrimSpace(v)
	if t == "" {
		return models.Cell{}
	}
	if numeric {
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return models.NumberCell(f)
		}
	}
	return models.StringCell(v)
}

func emptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
