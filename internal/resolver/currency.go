package resolver

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/AngelCh415/searchterm-insights/internal/models"
)

var currencyHeaders = []string{
	"Currency", "currency", "CURRENCY",
	"货币", "币种", "貨幣", "幣別", "通貨", "通貨コード",
	"Währung", "Devise", "Moneda", "Valuta",
}

var currencyTokens = []string{"currency", "货币", "币种", "貨幣", "幣別", "通貨", "währung", "devise", "moneda", "valuta"}

var (
	isoCode      = regexp.MustCompile(`^[A-Z]{3}$`)
	embeddedCode = regexp.MustCompile(`\b(USD|EUR|GBP|JPY|CNY|CAD|AUD|MXN|BRL|INR|SEK|PLN|TRY|AED|SAR|SGD|EGP|NZD|CHF|HKD|TWD|KRW)\b`)
)

// currencyKeywords are checked in order; CNY comes first because 人民币
// contains no yen sign while "¥" alone reads as JPY.
var currencyKeywords = []struct {
	code  string
	marks []string
}{
	{"CNY", []string{"人民币", "人民幣", "RMB", "元"}},
	{"JPY", []string{"円", "¥"}},
	{"EUR", []string{"€"}},
	{"GBP", []string{"£"}},
	{"INR", []string{"₹"}},
	{"KRW", []string{"₩"}},
	{"USD", []string{"US$", "$"}},
}

// ParseCurrency recognizes an ISO style code, or a symbol or keyword, in a
// cell value.
func ParseCurrency(s string) (string, bool) {
	s = strings.TrimSpace(norm.NFKC.String(s))
	if s == "" {
		return "", false
	}
	up := strings.ToUpper(s)
	if isoCode.MatchString(up) {
		return up, true
	}
	if m := embeddedCode.FindString(up); m != "" {
		return m, true
	}
	for _, k := range currencyKeywords {
		for _, mark := range k.marks {
			if strings.Contains(up, mark) {
				return k.code, true
			}
		}
	}
	return "", false
}

// DetectCurrency returns the first currency found scanning rows in order.
// Later rows never override an earlier detection.
func DetectCurrency(rows []models.RawRow) *string {
	for _, row := range rows {
		if code, ok := detectRow(row); ok {
			return &code
		}
	}
	return nil
}

func detectRow(row models.RawRow) (string, bool) {
	for _, h := range currencyHeaders {
		if code, ok := ParseCurrency(row.Get(h).Text()); ok {
			return code, true
		}
	}
	for _, h := range row.Headers() {
		nh := NormalizeHeader(h)
		for _, tok := range currencyTokens {
			if !strings.Contains(nh, tok) {
				continue
			}
			if code, ok := ParseCurrency(row.Get(h).Text()); ok {
				return code, true
			}
		}
	}
	return "", false
}
