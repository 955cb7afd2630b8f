// Package report renders analyses as Markdown, HTML and PDF.
package report

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
)

const (
	BannerHighValue      = "Congrats! This is a High-Value Opportunity (HVO)!"
	BannerBelowThreshold = "Unfortunately, this opportunity is expected to generate less than $30M in royalties."
)

var printer = message.NewPrinter(language.English)

// FormatMillions renders an amount given in millions as "$1.23M", switching
// to billions from 1000 upward.
func FormatMillions(m float64) string {
	if m < 0 {
		return "-" + FormatMillions(-m)
	}
	if m >= 1000 {
		return fmt.Sprintf("$%.2fB", m/1000)
	}
	return fmt.Sprintf("$%.2fM", m)
}

// FormatUSD renders whole dollars with thousands separators.
func FormatUSD(usd float64) string {
	n := int64(math.Round(usd))
	if n < 0 {
		return printer.Sprintf("-$%d", -n)
	}
	return printer.Sprintf("$%d", n)
}

func FormatPercent(pct float64) string {
	s := fmt.Sprintf("%.2f", pct)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	return s + "%"
}

func FormatFraction(f float64) string { return FormatPercent(f * 100) }

func Banner(c royalty.Classification) string {
	if c == royalty.ClassHighValue {
		return BannerHighValue
	}
	return BannerBelowThreshold
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func sanitizeCell(s string) string {
	return strings.ReplaceAll(sanitize(s), "|", "\\|")
}
