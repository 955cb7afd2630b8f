package report

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
)

const (
	chartWidth  = 760
	chartHeight = 360
	padLeft     = 70
	padRight    = 70
	padTop      = 40
	padBottom   = 50
	chartTicks  = 5
)

const (
	colorMarket     = "#1d4ed8"
	colorPenetrated = "#059669"
	colorRoyalty    = "#d97706"
)

// BuildChartSVG draws market size and penetrated market against the left
// axis and annual royalty against the right axis, all in millions.
func BuildChartSVG(rows []royalty.YearRecord) string {
	if len(rows) == 0 {
		return ""
	}
	var leftMax, rightMax float64
	for _, r := range rows {
		leftMax = math.Max(leftMax, math.Max(r.MarketSizeM, r.PenetratedMarketM))
		rightMax = math.Max(rightMax, r.AnnualRoyaltyM)
	}
	leftMax = niceCeil(leftMax)
	rightMax = niceCeil(rightMax)

	plotW := float64(chartWidth - padLeft - padRight)
	plotH := float64(chartHeight - padTop - padBottom)
	x := func(i int) float64 {
		if len(rows) == 1 {
			return padLeft + plotW/2
		}
		return padLeft + plotW*float64(i)/float64(len(rows)-1)
	}
	y := func(v, top float64) float64 { return padTop + plotH*(1-v/top) }

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" class="royalty-chart" viewBox="0 0 %d %d" width="%d" height="%d" font-family="sans-serif" font-size="11">`,
		chartWidth, chartHeight, chartWidth, chartHeight)
	fmt.Fprintf(&b, `<text x="%d" y="20" font-size="14" font-weight="bold">Market and Royalty Projection ($M)</text>`, padLeft)

	for i := 0; i <= chartTicks; i++ {
		frac := float64(i) / chartTicks
		ty := padTop + plotH*(1-frac)
		fmt.Fprintf(&b, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#e5e7eb"/>`, padLeft, ty, chartWidth-padRight, ty)
		fmt.Fprintf(&b, `<text x="%d" y="%.1f" text-anchor="end" fill="%s">%s</text>`, padLeft-6, ty+4, colorMarket, axisLabel(leftMax*frac))
		fmt.Fprintf(&b, `<text x="%d" y="%.1f" fill="%s">%s</text>`, chartWidth-padRight+6, ty+4, colorRoyalty, axisLabel(rightMax*frac))
	}
	step := max(1, len(rows)/10)
	for i, r := range rows {
		if i%step != 0 && i != len(rows)-1 {
			continue
		}
		fmt.Fprintf(&b, `<text x="%.1f" y="%d" text-anchor="middle">%d</text>`, x(i), chartHeight-padBottom+18, r.Year)
	}

	series := []struct {
		name  string
		color string
		value func(royalty.YearRecord) float64
		top   float64
	}{
		{"Market size", colorMarket, func(r royalty.YearRecord) float64 { return r.MarketSizeM }, leftMax},
		{"Penetrated market", colorPenetrated, func(r royalty.YearRecord) float64 { return r.PenetratedMarketM }, leftMax},
		{"Annual royalty", colorRoyalty, func(r royalty.YearRecord) float64 { return r.AnnualRoyaltyM }, rightMax},
	}
	for si, s := range series {
		pts := make([]string, len(rows))
		for i, r := range rows {
			pts[i] = fmt.Sprintf("%.1f,%.1f", x(i), y(s.value(r), s.top))
		}
		fmt.Fprintf(&b, `<polyline fill="none" stroke="%s" stroke-width="2" points="%s"/>`, s.color, strings.Join(pts, " "))
		lx := padLeft + si*170
		fmt.Fprintf(&b, `<rect x="%d" y="%d" width="12" height="3" fill="%s"/>`, lx, chartHeight-18, s.color)
		fmt.Fprintf(&b, `<text x="%d" y="%d">%s</text>`, lx+16, chartHeight-13, html.EscapeString(s.name))
	}
	b.WriteString(`</svg>`)
	return b.String()
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}

func axisLabel(v float64) string {
	switch {
	case v >= 1000:
		return fmt.Sprintf("%.1fB", v/1000)
	case v >= 10 || v == 0:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
