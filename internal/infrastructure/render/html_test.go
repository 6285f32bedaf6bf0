package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"ProviderDirectory/internal/domain"
)

const testTemplate = `<!doctype html>
<html>
<head><title>Provider Directory</title></head>
<body>
<div id="directory"></div>
<script>
/*__EMBEDDED_DATA__*/
</script>
</body>
</html>`

func TestRenderEmbedsPayload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	templatePath := filepath.Join(dir, "template.html")
	outputPath := filepath.Join(dir, "docs", "index.html")
	if err := os.WriteFile(templatePath, []byte(testTemplate), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	payload := domain.Payload{
		GeneratedUTC: "2026-08-30 06:00:00",
		Count:        1,
		Providers:    []domain.Provider{{NPI: "1003000126", Name: "Maria Santos, MD"}},
	}

	writer := NewHTMLWriter(templatePath, outputPath)
	if err := writer.Render(context.Background(), payload); err != nil {
		t.Fatalf("render: %v", err)
	}

	raw, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}

	script := doc.Find("script").First().Text()
	if !strings.Contains(script, "const DIRECTORY_DATA = ") {
		t.Fatalf("embedded assignment missing, script: %q", script)
	}
	if !strings.Contains(script, `"npi":"1003000126"`) {
		t.Fatalf("provider data missing, script: %q", script)
	}
	if strings.Contains(script, Placeholder) {
		t.Fatal("placeholder survived substitution")
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	t.Parallel()

	writer := NewHTMLWriter(filepath.Join(t.TempDir(), "absent.html"), filepath.Join(t.TempDir(), "out.html"))
	if err := writer.Render(context.Background(), domain.Payload{}); err == nil {
		t.Fatal("expected error for missing template")
	}
}
