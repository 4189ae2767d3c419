// Package views holds the HTML templates and the functions they use.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

//go:embed templates/*.html
var files embed.FS

// markdown renderer for post and comment text. Raw HTML in the source is
// dropped from the output, never passed through.
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

func renderMarkdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}

// truncateWords keeps the first n words of s, adding an ellipsis when cut.
func truncateWords(n int, s string) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " …"
}

// FuncMap returns the template functions. mediaURL maps a stored file
// reference to its public URL.
func FuncMap(mediaURL func(ref string) string) template.FuncMap {
	return template.FuncMap{
		"now": func() time.Time {
			return time.Now()
		},
		"markdown": renderMarkdown,
		"truncate": truncateWords,
		"media":    mediaURL,
		"date": func(t time.Time) string {
			return t.Format("2 January 2006")
		},
	}
}

// Load parses every embedded template with funcs.
func Load(funcs template.FuncMap) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}
