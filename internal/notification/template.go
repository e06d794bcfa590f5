package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// HTMLVariant picks the HTML layout of a report body.
type HTMLVariant string

const (
	// VariantPre wraps the lines in a <pre> block, keeping their spacing.
	VariantPre HTMLVariant = "pre"
	// VariantBreak joins the lines with <br> tags.
	VariantBreak HTMLVariant = "br"
)

// ParseHTMLVariant converts a configuration value to an HTMLVariant.
// The empty string yields VariantPre.
func ParseHTMLVariant(s string) (HTMLVariant, error) {
	switch HTMLVariant(s) {
	case "", VariantPre:
		return VariantPre, nil
	case VariantBreak:
		return VariantBreak, nil
	}
	return "", fmt.Errorf("unknown html variant %q: use pre or br", s)
}

// Header and lines are auto-escaped by html/template.
var (
	preTmpl = template.Must(template.New("pre").Parse(
		`{{if .Header}}<b>{{.Header}}</b>` + "\n" + `{{end}}<pre>{{.Body}}</pre>`))

	// Every newline, including one inside the header, becomes <br>.
	breakTmpl = template.Must(template.New("br").Parse(
		`{{if .Header}}<b>{{range $i, $h := .HeaderLines}}{{if $i}}<br>{{end}}{{$h}}{{end}}</b><br>{{end}}` +
			`{{range $i, $l := .Lines}}{{if $i}}<br>{{end}}{{$l}}{{end}}`))
)

// Report is a composed report body.
type Report struct {
	Format Format
	Body   string
	// Plain is always populated so HTML reports can carry a text fallback.
	Plain string
}

// Compose joins rendered lines under header. The header is used as given;
// an empty header is left out rather than replaced. Composing zero lines
// fails with *EmptyReportError whatever the header and format.
func Compose(header string, lines []string, format Format, variant HTMLVariant) (Report, error) {
	if len(lines) == 0 {
		return Report{}, &EmptyReportError{}
	}

	body := strings.Join(lines, "\n")
	plain := body
	if header != "" {
		plain = header + "\n" + body
	}

	switch format {
	case FormatPlain:
		return Report{Format: FormatPlain, Body: plain, Plain: plain}, nil
	case FormatHTML:
		html, err := buildReportHTML(header, lines, variant)
		if err != nil {
			return Report{}, err
		}
		return Report{Format: FormatHTML, Body: html, Plain: plain}, nil
	}
	return Report{}, fmt.Errorf("unknown report format %q", format)
}

// buildReportHTML renders the HTML template for variant.
func buildReportHTML(header string, lines []string, variant HTMLVariant) (string, error) {
	tmpl := preTmpl
	if variant == VariantBreak {
		tmpl = breakTmpl
	}

	var buf bytes.Buffer
	data := struct {
		Header      string
		HeaderLines []string
		Body        string
		Lines       []string
	}{header, strings.Split(header, "\n"), strings.Join(lines, "\n"), splitLines(lines)}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s report: %w", variant, err)
	}
	return buf.String(), nil
}

// splitLines breaks lines that themselves contain newlines.
func splitLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, strings.Split(l, "\n")...)
	}
	return out
}
