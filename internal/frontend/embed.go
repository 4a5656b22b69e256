package frontend

import (
	"embed"
	"io"
	"text/template"

	"github.com/labstack/echo/v4"
)

//go:embed views
var templateFS embed.FS

const viewsPattern = "views/*.html"

// Template adapts the embedded templates to echo's renderer interface.
type Template struct {
	templates *template.Template
}

func (t *Template) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}
