// Package normalize converts raw scraped portfolio text into typed snapshots.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// NoHoldingsSentinel is the single-cell row the site renders for an empty portfolio.
const NoHoldingsSentinel = "user has no stock holdings yet"

const portfolioSuffix = " Portfolio"

var (
	// percentRe matches a parenthesised "(<value>%)" group.
	percentRe = regexp.MustCompile(`\(([^()]*%)\)`)
	// amountRe is a plain unsigned decimal once currency marks are removed.
	amountRe = regexp.MustCompile(`^([0-9]+\.?[0-9]*|\.[0-9]+)$`)
)

// Account converts a raw page into an AccountSnapshot.
// The value and name are required; holdings rows that are incomplete are skipped.
func Account(raw *models.RawPortfolioPage, url string) (models.AccountSnapshot, error) {
	if raw == nil {
		return models.AccountSnapshot{}, models.Errorf(models.KindMalformedValue, "normalize", url, "empty page")
	}

	value, err := AccountValue(raw.AccountValue)
	if err != nil {
		return models.AccountSnapshot{}, models.NewError(models.KindMalformedValue, "normalize", url, err)
	}

	name := AccountName(raw.DisplayName)
	if name == "" {
		return models.AccountSnapshot{}, models.Errorf(models.KindMalformedValue, "normalize", url, "empty display name %q", raw.DisplayName)
	}

	return models.AccountSnapshot{
		Name:     name,
		Value:    value,
		URL:      strings.TrimSpace(url),
		Holdings: Holdings(raw.Rows),
	}, nil
}

// AccountValue parses currency text such as "$12,345.67" into a non-negative float.
func AccountValue(text string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r == '$' || r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	if cleaned == "" {
		return 0, fmt.Errorf("account value is empty")
	}

	if strings.HasPrefix(cleaned, "-") {
		return 0, fmt.Errorf("account value %q is negative", text)
	}
	if !amountRe.MatchString(cleaned) {
		return 0, fmt.Errorf("account value %q is not a number", text)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("account value %q is not a number", text)
	}
	v := d.InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("account value %q is out of range", text)
	}
	return v, nil
}

// AccountName trims the display name and strips a trailing " Portfolio".
func AccountName(text string) string {
	name := strings.TrimSpace(text)
	name = strings.TrimSuffix(name, portfolioSuffix)
	return strings.TrimSpace(name)
}

// Holdings parses table rows into holdings. Header rows and empty cells are
// dropped; the no-holdings sentinel yields an empty, non-nil slice; rows
// without ticker, last price and percent change are skipped.
func Holdings(rows []models.RawRow) []models.Holding {
	holdings := []models.Holding{}

	for _, row := range rows {
		if row.Header {
			continue
		}

		cells := nonEmpty(row.Cells)
		if len(cells) == 0 {
			continue
		}
		if isSentinel(cells) {
			return []models.Holding{}
		}
		if len(cells) < 3 {
			continue
		}

		holdings = append(holdings, models.Holding{
			Ticker:        cells[0],
			LastPrice:     cells[1],
			PercentChange: PercentChange(cells[2]),
		})
	}

	return holdings
}

// PercentChange extracts "<value>%" from "<label>(<value>%)", using the last
// parenthesised group. Text without the parenthesised form is returned trimmed.
func PercentChange(text string) string {
	groups := percentRe.FindAllStringSubmatch(text, -1)
	if len(groups) == 0 {
		return strings.TrimSpace(text)
	}
	return strings.Join(strings.Fields(groups[len(groups)-1][1]), "")
}

func isSentinel(cells []string) bool {
	for _, c := range cells {
		if strings.EqualFold(c, NoHoldingsSentinel) {
			return true
		}
	}
	return false
}

func nonEmpty(cells []string) []string {
	out := make([]string, 0, len(cells))
	for _, c := range cells {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
