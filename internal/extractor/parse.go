package extractor

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// ErrNoTable is returned when the page has no recognizable dividend table.
var ErrNoTable = errors.New("extractor: dividend table not found")

// ledgerDateLayout is the dd/mm/yyyy form written to the ledger.
const ledgerDateLayout = "02/01/2006"

var (
	moneyPattern = regexp.MustCompile(`R\$\s*(-?[\d.]*\d(?:,\d+)?)`)
	datePattern  = regexp.MustCompile(`\b(\d{2})[./-](\d{2})[./-](\d{4})\b`)
)

// ParseOptions names the parts of the page to read.
type ParseOptions struct {
	// Selector narrows the search to the dividends component. Optional.
	Selector    string
	DateHeader  string
	ValueHeader string
}

// ParseDividendTable returns the value and reference date of the most
// recent row of the dividend history. Tables are matched by header name;
// pages without headers are read in the legacy five-column layout
// (Data Base, Data Pagamento, Cotação Base, Dividend Yield, Rendimento).
func ParseDividendTable(r io.Reader, opts ParseOptions) (value, date string, err error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", "", fmt.Errorf("parse page: %w", err)
	}

	scope := doc.Selection
	if opts.Selector != "" {
		if s := doc.Find(opts.Selector); s.Length() > 0 {
			scope = s
		}
	}

	tables := scope.Filter("table").AddSelection(scope.Find("table"))
	for i := range tables.Nodes {
		value, date, ok := readNamedTable(tables.Eq(i), opts)
		if !ok {
			continue
		}
		return normalizeRow(value, date)
	}

	value, date, ok := readLegacyLayout(scope)
	if !ok {
		return "", "", ErrNoTable
	}
	return normalizeRow(value, date)
}

func readNamedTable(table *goquery.Selection, opts ParseOptions) (string, string, bool) {
	headers := table.Find("thead th")
	if headers.Length() == 0 {
		headers = table.Find("tr").First().Find("th, td")
	}
	dateIdx, valueIdx := -1, -1
	headers.Each(func(i int, h *goquery.Selection) {
		text := cleanText(h.Text())
		if dateIdx < 0 && strings.EqualFold(text, opts.DateHeader) {
			dateIdx = i
		}
		if valueIdx < 0 && strings.EqualFold(text, opts.ValueHeader) {
			valueIdx = i
		}
	})
	if dateIdx < 0 || valueIdx < 0 {
		return "", "", false
	}

	var value, date string
	found := false
	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() <= dateIdx || cells.Length() <= valueIdx {
			return true
		}
		value = cleanText(cells.Eq(valueIdx).Text())
		date = cleanText(cells.Eq(dateIdx).Text())
		found = true
		return false
	})
	return value, date, found
}

// readLegacyLayout walks the leaf texts of the component. The first date
// opens the most recent row; its fifth field is the value.
func readLegacyLayout(scope *goquery.Selection) (string, string, bool) {
	var texts []string
	scope.Find("*").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		if t := cleanText(s.Text()); t != "" {
			texts = append(texts, t)
		}
	})
	for i, t := range texts {
		if !datePattern.MatchString(t) {
			continue
		}
		if i+4 >= len(texts) {
			return "", "", false
		}
		m := moneyPattern.FindStringSubmatch(texts[i+4])
		if m == nil {
			return "", "", false
		}
		return m[1], datePattern.FindString(t), true
	}
	return "", "", false
}

func normalizeRow(value, date string) (string, string, error) {
	v, err := NormalizeValue(value)
	if err != nil {
		return "", "", err
	}
	d, err := NormalizeDate(date)
	if err != nil {
		return "", "", err
	}
	return v, d, nil
}

// NormalizeValue converts a Brazilian currency string such as "R$ 1.234,5"
// to the ledger's decimal-comma form "1234,50". At least two decimal
// places are kept.
func NormalizeValue(s string) (string, error) {
	s = strings.TrimSpace(strings.TrimPrefix(cleanText(s), "R$"))
	if s == "" {
		return "", fmt.Errorf("empty value")
	}
	s = strings.ReplaceAll(s, ".", "")
	s = strings.Replace(s, ",", ".", 1)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("invalid value %q: %w", s, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("negative value %q", s)
	}
	places := int32(2)
	if exp := -d.Exponent(); exp > places {
		places = exp
	}
	return strings.Replace(d.StringFixed(places), ".", ",", 1), nil
}

// NormalizeDate converts dd.mm.yyyy and dd-mm-yyyy to dd/mm/yyyy.
func NormalizeDate(s string) (string, error) {
	m := datePattern.FindStringSubmatch(cleanText(s))
	if m == nil {
		return "", fmt.Errorf("invalid date %q", s)
	}
	date := m[1] + "/" + m[2] + "/" + m[3]
	if _, err := time.Parse(ledgerDateLayout, date); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return date, nil
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
