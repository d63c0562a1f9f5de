package ingest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

// buildWorkbook writes sheets of string/number cells into an xlsx buffer.
func buildWorkbook(t *testing.T, sheets map[string][][]any, order ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			vals := row
			require.NoError(t, f.SetSheetRow(name, cell, &vals))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

var reportGrid = [][]any{
	{"Date", "Campaign Name", "Ad Group Name", "Match Type", "Customer Search Term", "Impressions", "Clicks", "Spend", "7 Day Total Sales", "7 Day Total Orders (#)", "Currency"},
	{45292, "Camp A", "AG 1", "BROAD", "blue widget", 400, 20, 15.5, 0, 0, "USD"},
	{45293, "Camp A", "AG 1", "PHRASE", "widget", 100, 5, 10, 50, 2, "USD"},
	{nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil},
	{"", "", "", "", "Total", 500, 25, 25.5, 50, 2, ""},
}

func TestReadWorkbookPicksSearchTermSheet(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"Summary":            {{"Note"}, {"hello"}},
		"Search Term Report": reportGrid,
	}, "Summary", "Search Term Report")

	wb, err := ReadWorkbook(bytes.NewReader(data), "")
	require.NoError(t, err)
	assert.Equal(t, "Search Term Report", wb.Sheet)
	assert.Equal(t, []string{"Summary", "Search Term Report"}, wb.Sheets)
	require.Len(t, wb.Rows, 3, "blank rows are skipped")

	first := wb.Rows[0]
	assert.Equal(t, 45292.0, first.Get("Date").Num)
	assert.Equal(t, "blue widget", first.Get("Customer Search Term").Text())
	assert.Equal(t, 15.5, first.Get("Spend").Num)
}

func TestReadWorkbookExplicitSheet(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"A": {{"Clicks"}, {1}},
		"B": {{"Clicks"}, {2}},
	}, "A", "B")

	wb, err := ReadWorkbook(bytes.NewReader(data), "B")
	require.NoError(t, err)
	assert.Equal(t, 2.0, wb.Rows[0].Get("Clicks").Num)

	_, err = ReadWorkbook(bytes.NewReader(data), "C")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestReadWorkbookRejectsGarbage(t *testing.T) {
	_, err := ReadWorkbook(bytes.NewReader([]byte("not a zip")), "")
	assert.Error(t, err)
}

func TestRowsHeaderHandling(t *testing.T) {
	grid := [][]string{
		{"", ""},
		{"Clicks", "", "Clicks", " Spend "},
		{"1", "ignored", "2", "3.5"},
		{"", "", "", ""},
		{"x"},
	}
	rows, err := Rows(grid, func(row, col int) bool { return row == 2 })
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Clicks", "Clicks_1", "Spend"}, rows[0].Headers())
	assert.Equal(t, 2.0, rows[0].Get("Clicks_1").Num)
	assert.Equal(t, 3.5, rows[0].Get("Spend").Num)
	assert.Equal(t, "x", rows[1].Get("Clicks").Text())
	assert.Equal(t, 1, rows[1].Len())

	_, err = Rows([][]string{{"", " "}}, nil)
	assert.ErrorIs(t, err, ErrEmptySheet)
}

func TestParseCell(t *testing.T) {
	assert.True(t, parseCell("  ", true).IsAbsent())
	assert.Equal(t, 12.0, parseCell("12", true).Num)
	assert.Equal(t, -1.5e3, parseCell("-1.5E3", true).Num)
	assert.Equal(t, "$12", parseCell("$12", true).Str)

	text := parseCell("007", false)
	assert.Equal(t, models.CellString, text.Kind)
	assert.Equal(t, "007", text.Text())
}

func TestReadWorkbookKeepsTextTypedNumbers(t *testing.T) {
	data := buildWorkbook(t, map[string][][]any{
		"Search Terms": {
			{"Customer Search Term", "Clicks"},
			{"007", 3},
			{"1e3", 4},
			{"0885909950805", 5},
		},
	}, "Search Terms")

	wb, err := ReadWorkbook(bytes.NewReader(data), "")
	require.NoError(t, err)
	require.Len(t, wb.Rows, 3)
	for i, want := range []string{"007", "1e3", "0885909950805"} {
		term := wb.Rows[i].Get("Customer Search Term")
		assert.Equal(t, models.CellString, term.Kind, want)
		assert.Equal(t, want, term.Text())

		clicks := wb.Rows[i].Get("Clicks")
		assert.Equal(t, models.CellNumber, clicks.Kind)
		assert.Equal(t, float64(i+3), clicks.Num)
	}
}

func TestSelectSheet(t *testing.T) {
	assert.Equal(t, "搜索词报告", SelectSheet([]string{"概览", "搜索词报告"}))
	assert.Equal(t, "first", SelectSheet([]string{"first", "second"}))
	assert.Equal(t, "", SelectSheet(nil))
}
