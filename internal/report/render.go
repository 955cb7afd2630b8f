package report

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/joelkehle/techtransfer-royalty/internal/analysis"
	"github.com/joelkehle/techtransfer-royalty/internal/telemetry"
)

type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "markdown", "md":
		return FormatMarkdown, nil
	case "html":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want markdown, html or pdf)", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/markdown; charset=utf-8"
	}
}

func (f Format) Extension() string {
	if f == FormatMarkdown {
		return "md"
	}
	return string(f)
}

// Render produces the report for a in the requested format. pdf may be nil
// unless f is FormatPDF.
func Render(ctx context.Context, a analysis.Analysis, f Format, pdf PDFRenderer) ([]byte, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "report.render")
	defer span.End()
	span.SetAttributes(attribute.String("format", string(f)), attribute.String("projection_id", a.ID))

	out, err := render(ctx, a, f, pdf)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
	}
	return out, err
}

func render(ctx context.Context, a analysis.Analysis, f Format, pdf PDFRenderer) ([]byte, error) {
	md := BuildMarkdown(a)
	if f == FormatMarkdown {
		return []byte(md), nil
	}
	doc, err := RenderHTML(md, BuildChartSVG(a.Result.Rows))
	if err != nil {
		return nil, err
	}
	switch f {
	case FormatHTML:
		return []byte(doc), nil
	case FormatPDF:
		if pdf == nil {
			return nil, fmt.Errorf("%w: no renderer configured", ErrPDFUnavailable)
		}
		return pdf.Render(ctx, doc)
	default:
		return nil, fmt.Errorf("unknown report format %q", f)
	}
}
