package render

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"ProviderDirectory/internal/domain"
	"ProviderDirectory/internal/ports"
)

// Placeholder is the token in the HTML template that the serialized
// payload assignment replaces.
const Placeholder = "/*__EMBEDDED_DATA__*/"

// HTMLWriter renders the payload into a self-contained HTML artifact
// by pure string substitution into a template file.
type HTMLWriter struct {
	templatePath string
	outputPath   string
}

var _ ports.Renderer = (*HTMLWriter)(nil)

// NewHTMLWriter wires template and output locations.
func NewHTMLWriter(templatePath, outputPath string) *HTMLWriter {
	return &HTMLWriter{templatePath: templatePath, outputPath: outputPath}
}

// Render embeds the payload as a DIRECTORY_DATA assignment and writes
// the output file, creating its directory if needed.
func (w *HTMLWriter) Render(_ context.Context, payload domain.Payload) error {
	template, err := os.ReadFile(w.templatePath)
	if err != nil {
		return errors.Wrapf(err, "read template %s", w.templatePath)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal payload")
	}

	html := strings.Replace(
		string(template),
		Placeholder,
		"const DIRECTORY_DATA = "+string(data)+";",
		1,
	)

	if dir := filepath.Dir(w.outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create output dir %s", dir)
		}
	}

	if err := os.WriteFile(w.outputPath, []byte(html), 0o644); err != nil {
		return errors.Wrapf(err, "write output %s", w.outputPath)
	}

	return nil
}
