package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

const isoDay = "2006-01-02"

// Number coerces a cell into a non-negative number. Strings keep only digits,
// '.' and '-' before parsing; anything unparseable is 0.
func Number(c models.Cell) float64 {
	var v float64
	switch c.Kind {
	case models.CellNumber:
		v = c.Num
	case models.CellString:
		f, err := strconv.ParseFloat(stripNonNumeric(c.Str), 64)
		if err != nil {
			return 0
		}
		v = f
	default:
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func stripNonNumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

var ymd = regexp.MustCompile(`(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)

// dateLayouts are tried after the year-first pattern fails.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006.01.02",
	"2006.1.2",
	"2006年1月2日",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 02, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"2.1.2006",
}

// Date coerces a cell into a YYYY-MM-DD day. Numbers are spreadsheet serial
// days; strings are tried against a year-first pattern and then common
// layouts. When nothing parses the trimmed raw text is returned unchanged.
func Date(c models.Cell) string {
	switch c.Kind {
	case models.CellNumber:
		if t, err := excelize.ExcelDateToTime(c.Num, false); err == nil {
			return t.UTC().Format(isoDay)
		}
		return c.Text()
	case models.CellString:
		return parseDateString(strings.TrimSpace(c.Str))
	default:
		return ""
	}
}

func parseDateString(s string) string {
	if s == "" {
		return ""
	}
	if m := ymd.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		if t.Year() == y && int(t.Month()) == mo && t.Day() == d {
			return t.Format(isoDay)
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(isoDay)
		}
	}
	return s
}

// Text trims a cell and substitutes models.Unknown when it is empty.
func Text(c models.Cell) string {
	if s := strings.TrimSpace(c.Text()); s != "" {
		return s
	}
	return models.Unknown
}
