package rss

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	blockBreakRe = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|li|h[1-6]|blockquote|tr)>`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	srcRe        = regexp.MustCompile(`src="([^"]+)"`)
)

// StripHTML returns the plain text of an HTML fragment with entities decoded
// and whitespace collapsed. A fragment whose only markup is escaped
// ("&lt;p&gt;...") is unescaped once before parsing; when real tags are
// present, escaped text such as "&lt;div&gt;" is kept as text.
func StripHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if escapedMarkup(s) {
		s = html.UnescapeString(s)
	}
	s = blockBreakRe.ReplaceAllString(s, " ")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapseSpace(html.UnescapeString(tagRe.ReplaceAllString(s, " ")))
	}
	doc.Find("script, style").Remove()
	return collapseSpace(doc.Text())
}

// FirstSentence returns s up to and including the first "." that ends a
// sentence, i.e. is followed by whitespace or the end of the text. Periods
// inside numbers or names ("$67.5k", "Yahoo.com") do not split. Text without
// such a period is returned unchanged.
func FirstSentence(s string) string {
	s = strings.TrimSpace(s)
	for i := 0; i < len(s); i++ {
		if s[i] != '.' {
			continue
		}
		if i+1 == len(s) || isSpace(s[i+1]) {
			return s[:i+1]
		}
	}
	return s
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// escapedMarkup reports whether s carries escaped tags but no real ones.
func escapedMarkup(s string) bool {
	return strings.Contains(s, "&lt;") && !strings.Contains(s, "<")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// descriptionSrc finds the first image src in a description, looking through
// one level of entity escaping ("&lt;img src=&quot;...&quot;&gt;").
func descriptionSrc(s string) string {
	if u := firstSrc(s); u != "" {
		return u
	}
	if strings.Contains(s, "&") {
		return firstSrc(html.UnescapeString(s))
	}
	return ""
}

// firstSrc returns the first src="..." attribute value found in s.
func firstSrc(s string) string {
	m := srcRe.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return html.UnescapeString(m[1])
}
