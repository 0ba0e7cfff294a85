// Package views holds the HTML templates of the echo page.
package views

import (
	"embed"
	"html/template"
	"strings"
)

// Site identity shown in the page and the favicon.
const (
	SiteEmoji = "📟"
	SiteTitle = "Net tester"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"join": strings.Join,
}

// Templates parses the embedded templates. The result is meant for
// gin.Engine.SetHTMLTemplate.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// FaviconSVG renders the site emoji as an SVG icon.
func FaviconSVG() string {
	return `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">` +
		`<text y=".9em" font-size="90">` + SiteEmoji + `</text>` +
		`</svg>`
}
