package httpcontroller

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/petalnet/petalnet-go/internal/floradata"
)

//go:embed views/*.html
var viewsFs embed.FS

// TemplateRenderer is a custom HTML template renderer for Echo framework.
type TemplateRenderer struct {
	templates *template.Template
}

// Render executes into a buffer first so a failing template never leaves a
// half written page.
func (t *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	var buf bytes.Buffer
	if err := t.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// templateFunctions returns the functions available in templates
func templateFunctions() template.FuncMap {
	return template.FuncMap{
		"title":   floradata.Title,
		"lower":   strings.ToLower,
		"percent": percent,
		"add":     func(a, b int) int { return a + b },
	}
}

// percent formats a 0..1 confidence as a percentage with one decimal.
func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}

// setupTemplateRenderer configures the template renderer for the server
func (s *Server) setupTemplateRenderer() {
	tmpl := template.Must(template.New("").Funcs(templateFunctions()).ParseFS(viewsFs, "views/*.html"))
	s.Echo.Renderer = &TemplateRenderer{templates: tmpl}
}
