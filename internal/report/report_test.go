package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joelkehle/techtransfer-royalty/internal/analysis"
	"github.com/joelkehle/techtransfer-royalty/internal/config"
	"github.com/joelkehle/techtransfer-royalty/internal/marketdata"
	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
)

func sampleAnalysis(t *testing.T, mutate func(*analysis.Request)) analysis.Analysis {
	t.Helper()
	req := analysis.Request{
		CaseID:          "2026-0042",
		Product:         "Glucose | Patch",
		RoyaltyRatePct:  5,
		EntryYear:       2026,
		TermYears:       12,
		MarketSizeM:     royalty.Float(500),
		CAGRPct:         royalty.Float(6),
		PenetrationMode: royalty.ModeShaped,
		PenetrationPct:  10,
		DiscountRatePct: royalty.Float(10),
	}
	if mutate != nil {
		mutate(&req)
	}
	a := analysis.New(config.DefaultCurveProfiles(),
		analysis.WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }),
		analysis.WithIDGenerator(func() string { return "proj-xyz" }),
	)
	out, err := a.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return out
}

func TestFormatMillions(t *testing.T) {
	cases := map[float64]string{
		2.65:   "$2.65M",
		999.99: "$999.99M",
		1000:   "$1.00B",
		2500:   "$2.50B",
		-3:     "-$3.00M",
	}
	for in, want := range cases {
		if got := FormatMillions(in); got != want {
			t.Fatalf("FormatMillions(%v)=%q want %q", in, got, want)
		}
	}
}

func TestFormatUSD(t *testing.T) {
	cases := map[float64]string{
		30_000_000:  "$30,000,000",
		2_650_000.4: "$2,650,000",
		999:         "$999",
		-1500:       "-$1,500",
	}
	for in, want := range cases {
		if got := FormatUSD(in); got != want {
			t.Fatalf("FormatUSD(%v)=%q want %q", in, got, want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(10); got != "10%" {
		t.Fatalf("got %q", got)
	}
	if got := FormatPercent(7.5); got != "7.5%" {
		t.Fatalf("got %q", got)
	}
	if got := FormatFraction(0.275); got != "27.5%" {
		t.Fatalf("got %q", got)
	}
}

func TestBanner(t *testing.T) {
	if Banner(royalty.ClassHighValue) != BannerHighValue {
		t.Fatal("expected HVO banner")
	}
	if Banner(royalty.ClassBelowThreshold) != BannerBelowThreshold {
		t.Fatal("expected below-threshold banner")
	}
}

func TestBuildMarkdownSections(t *testing.T) {
	md := BuildMarkdown(sampleAnalysis(t, nil))
	for _, want := range []string{
		"# Royalty Projection Report",
		"- Projection ID: proj-xyz",
		"- Case ID: 2026-0042",
		"- Date: 2026-01-02T03:04:05Z",
		"shaped (refined profile, starting at 10%)",
		"## Summary",
		"## Assumptions",
		"## Annual Breakdown",
		"| 2026 | $530.00M | 10% | $53.00M | **$2.65M** |",
		"## Penetration Curve",
		"| 2035 | decline |",
		"## Sensitivity",
		"## Scenarios",
		"| pessimistic |",
		"- Discounted at 10%:",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "## Market Data") {
		t.Fatal("market data section should be absent without market data")
	}
}

func TestBuildMarkdownBannerFollowsClassification(t *testing.T) {
	high := BuildMarkdown(sampleAnalysis(t, nil))
	if !strings.Contains(high, BannerHighValue) || !strings.Contains(high, "`HIGH_VALUE`") {
		t.Fatalf("expected HVO banner:\n%s", high)
	}
	low := BuildMarkdown(sampleAnalysis(t, func(r *analysis.Request) {
		r.PenetrationMode = royalty.ModeConstant
		r.PenetrationPct = 1
	}))
	if !strings.Contains(low, BannerBelowThreshold) || !strings.Contains(low, "`BELOW_THRESHOLD`") {
		t.Fatalf("expected below-threshold banner:\n%s", low)
	}
	if strings.Contains(low, "## Penetration Curve") {
		t.Fatal("constant penetration has no curve section")
	}
}

func TestBuildMarkdownPlaceholderWarning(t *testing.T) {
	a := sampleAnalysis(t, nil)
	a.MarketData = &marketdata.MarketData{
		Sector:      "software",
		MarketSizeM: 500, CAGRPct: 6, DiscountRatePct: 10,
		Competitors: []string{"Incumbent Corp"},
		Provenance:  marketdata.ProvenancePlaceholder,
	}
	md := BuildMarkdown(a)
	if !strings.Contains(md, "## Market Data") || !strings.Contains(md, "WARNING") {
		t.Fatalf("expected placeholder warning:\n%s", md)
	}
	if !strings.Contains(md, "- Competitors: Incumbent Corp") {
		t.Fatalf("expected competitor list:\n%s", md)
	}
}

func TestBuildMarkdownCustomSequence(t *testing.T) {
	md := BuildMarkdown(sampleAnalysis(t, func(r *analysis.Request) {
		r.PenetrationMode = royalty.ModeConstant
		r.TermYears = 2
		r.Penetration = []float64{0.1, 0.2}
	}))
	if !strings.Contains(md, "custom sequence") {
		t.Fatalf("expected custom sequence note:\n%s", md)
	}
	if strings.Contains(md, "## Sensitivity") {
		t.Fatal("custom sequences carry no sensitivity")
	}
}

func TestBuildChartSVG(t *testing.T) {
	a := sampleAnalysis(t, nil)
	svg := BuildChartSVG(a.Result.Rows)
	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("unexpected svg: %s", svg)
	}
	if n := strings.Count(svg, "<polyline"); n != 3 {
		t.Fatalf("expected 3 series, got %d", n)
	}
	for _, want := range []string{"Market size", "Penetrated market", "Annual royalty", ">2026<"} {
		if !strings.Contains(svg, want) {
			t.Fatalf("svg missing %q", want)
		}
	}
	if BuildChartSVG(nil) != "" {
		t.Fatal("expected empty chart for no rows")
	}
}

func TestNiceCeil(t *testing.T) {
	cases := map[float64]float64{0: 1, 3: 5, 7: 10, 10: 10, 120: 200, 0.3: 0.5}
	for in, want := range cases {
		if got := niceCeil(in); got < want-1e-9 || got > want+1e-9 {
			t.Fatalf("niceCeil(%v)=%v want %v", in, got, want)
		}
	}
}

func TestRenderHTMLEmbedsChartBeforeAssumptions(t *testing.T) {
	a := sampleAnalysis(t, nil)
	doc, err := RenderHTML(BuildMarkdown(a), BuildChartSVG(a.Result.Rows))
	if err != nil {
		t.Fatal(err)
	}
	chart := strings.Index(doc, "royalty-chart")
	assumptions := strings.Index(doc, "Assumptions")
	if chart < 0 || assumptions < 0 || chart > assumptions {
		t.Fatalf("chart should precede assumptions (chart=%d assumptions=%d)", chart, assumptions)
	}
	if !strings.Contains(doc, "<table>") || !strings.Contains(doc, "<title>") {
		t.Fatalf("expected rendered tables and title:\n%s", doc)
	}
}

type fakePDF struct {
	got string
	err error
}

func (f *fakePDF) Render(_ context.Context, html string) ([]byte, error) {
	f.got = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4"), nil
}

func TestRenderFormats(t *testing.T) {
	a := sampleAnalysis(t, nil)
	md, err := Render(context.Background(), a, FormatMarkdown, nil)
	if err != nil || !strings.HasPrefix(string(md), "# Royalty Projection Report") {
		t.Fatalf("markdown render: %v %q", err, md)
	}
	html, err := Render(context.Background(), a, FormatHTML, nil)
	if err != nil || !strings.Contains(string(html), "<svg") {
		t.Fatalf("html render: %v", err)
	}
	fake := &fakePDF{}
	pdf, err := Render(context.Background(), a, FormatPDF, fake)
	if err != nil || string(pdf) != "%PDF-1.4" {
		t.Fatalf("pdf render: %v %q", err, pdf)
	}
	if !strings.Contains(fake.got, "Royalty Projection Report") {
		t.Fatal("pdf renderer should receive the html document")
	}
	if _, err := Render(context.Background(), a, FormatPDF, nil); !errors.Is(err, ErrPDFUnavailable) {
		t.Fatalf("expected ErrPDFUnavailable, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatMarkdown, "MD": FormatMarkdown, "html": FormatHTML, " pdf ": FormatPDF} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q)=%q,%v", in, got, err)
		}
	}
	if _, err := ParseFormat("docx"); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if FormatPDF.ContentType() != "application/pdf" || FormatMarkdown.Extension() != "md" {
		t.Fatal("unexpected format metadata")
	}
}

func TestNewChromiumPDFRendererDefaults(t *testing.T) {
	r := NewChromiumPDFRenderer("/opt/chrome", 0)
	if r.ChromePath != "/opt/chrome" || r.Timeout != 30*time.Second {
		t.Fatalf("unexpected renderer defaults: %+v", r)
	}
}
