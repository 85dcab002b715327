package digest

import (
	"fmt"
	"io"
	"strings"

	"cryptonews/internal/article"

	"github.com/mattn/go-runewidth"
)

const (
	maxTitleWidth  = 60
	maxSourceWidth = 16
)

// Table writes articles as an aligned text table for terminals. Columns are
// measured in display width so wide characters line up.
func Table(w io.Writer, articles []article.Article) error {
	rows := [][]string{{"PUBLISHED", "SOURCE", "TITLE", "LINK"}}
	for _, a := range articles {
		published := a.PublishedAt
		if !a.HasPublishedAt() {
			published = "-"
		}
		rows = append(rows, []string{
			published,
			runewidth.Truncate(a.Source, maxSourceWidth, "…"),
			runewidth.Truncate(a.Title, maxTitleWidth, "…"),
			a.Link,
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		sb.Reset()
		for i, cell := range row {
			if i == len(row)-1 {
				sb.WriteString(cell)
				break
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
			sb.WriteString("  ")
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(sb.String(), " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d articles\n", len(articles))
	return err
}
