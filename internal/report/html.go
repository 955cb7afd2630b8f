package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yosssi/gohtml"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const reportCSS = `body{font-family:Georgia,serif;color:#1c1917;background:#fff;margin:0;padding:1rem;}
.report{max-width:960px;margin:0 auto;}
h1,h2{font-family:Helvetica,Arial,sans-serif;}
h2{border-bottom:1px solid #d6d3d1;padding-bottom:0.2rem;margin-top:1.6rem;}
blockquote{margin:0.8rem 0;padding:0.6rem 0.9rem;background:#fef3c7;border-left:4px solid #d97706;}
table{width:100%;border-collapse:collapse;font-size:0.85rem;margin:0.6rem 0;}
th,td{border:1px solid #a8a29e;padding:0.3rem 0.45rem;text-align:left;vertical-align:top;}
thead th{background:#f1f5f9;}
figure.chart{margin:1rem 0;text-align:center;}
figure.chart svg{max-width:100%;height:auto;}
@media print{@page{size:A4;margin:12mm;} body{padding:0;}}`

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts report markdown into a standalone HTML document. A
// non-empty chartSVG is placed ahead of the assumptions section.
func RenderHTML(md, chartSVG string) (string, error) {
	var content bytes.Buffer
	if err := markdown.Convert([]byte(md), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	body := content.String()
	if chartSVG != "" {
		figure := `<figure class="chart">` + chartSVG + `</figure>`
		if i := strings.Index(body, "<h2>Assumptions</h2>"); i >= 0 {
			body = body[:i] + figure + body[i:]
		} else {
			body += figure
		}
	}
	doc := "<!doctype html><html><head><meta charset=\"utf-8\"><title>Royalty Projection Report</title>" +
		"<style>" + reportCSS + "</style></head><body><main class=\"report\">" + body + "</main></body></html>"
	return gohtml.Format(doc), nil
}
