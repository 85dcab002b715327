// Package digest renders stored articles as a static HTML page and as a
// plain-text table.
package digest

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"cryptonews/internal/article"
	"cryptonews/internal/atomicio"
)

var page = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; background-color: #121212; color: #e0e0e0; }
        .article-block { margin-bottom: 20px; padding: 10px; border: 1px solid #333; border-radius: 5px; background-color: #1e1e1e; }
        .article-image { max-width: 150px; height: auto; display: block; margin-bottom: 10px; }
        .article-title { font-size: 20px; font-weight: bold; margin: 0; }
        .article-title a { text-decoration: none; color: #4f9d69; }
        .article-title a:hover { text-decoration: underline; }
        .article-description { margin-top: 5px; }
        .article-meta { margin-top: 5px; color: #9e9e9e; font-size: 13px; }
    </style>
</head>
<body>
    <h1>{{.Title}}</h1>
{{- range .Articles}}
    <div class="article-block">
        <div class="article-title"><a href="{{.Link}}">{{.Title}}</a></div>
        {{- if .HasImage}}
        <img src="{{.ContentURL}}" class="article-image" alt="{{.Title}}">
        {{- end}}
        <div class="article-description">{{.Description}}</div>
        <div class="article-meta">Published on: {{if .HasPublishedAt}}{{.PublishedAt}}{{else}}unknown{{end}}{{if .Source}} · {{.Source}}{{end}}</div>
    </div>
{{- else}}
    <p>No articles yet.</p>
{{- end}}
</body>
</html>
`))

// Title heads the rendered page.
const Title = "Crypto News"

// Render writes the HTML page for articles in the order given.
func Render(w io.Writer, articles []article.Article) error {
	err := page.Execute(w, struct {
		Title    string
		Articles []article.Article
	}{Title: Title, Articles: articles})
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}
	return nil
}

// WriteFile renders articles and replaces path atomically.
func WriteFile(path string, articles []article.Article) error {
	var buf bytes.Buffer
	if err := Render(&buf, articles); err != nil {
		return err
	}
	if err := atomicio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write digest: %w", err)
	}
	return nil
}
