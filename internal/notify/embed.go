package notify

import (
	"context"
	"fmt"
	"unicode/utf8"

	"cryptonews/internal/article"
	"cryptonews/internal/export"
)

// Payload is the webhook request body.
type Payload struct {
	Embeds []Embed `json:"embeds"`
}

// Embed is one rich message block.
type Embed struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Color       int         `json:"color"`
	Image       *EmbedImage `json:"image,omitempty"`
}

// EmbedImage references the article picture.
type EmbedImage struct {
	URL string `json:"url"`
}

// Render builds the embed for r. The publication date and a read-more link
// are appended to the description and always survive truncation.
func (n *Notifier) Render(ctx context.Context, r export.Record) Embed {
	published := "unknown"
	if r.PublicationDate != nil && *r.PublicationDate != "" {
		published = *r.PublicationDate
	}
	footer := fmt.Sprintf("\n\nPublished on: %s\n[Read more...](%s)", published, r.Link)

	desc := n.summarize(ctx, r.Title, r.Description)
	desc = truncate(desc, maxDescriptionRunes-utf8.RuneCountInString(footer))

	e := Embed{
		Title:       truncate(r.Title, maxTitleRunes),
		Description: truncate(desc+footer, maxDescriptionRunes),
		Color:       n.color(),
	}
	if (article.Article{ContentURL: r.ContentURL}).HasImage() {
		e.Image = &EmbedImage{URL: r.ContentURL}
	}
	return e
}

func (n *Notifier) summarize(ctx context.Context, title, text string) string {
	if n.summarizer == nil || !n.summarizer.Ready() {
		return text
	}
	if utf8.RuneCountInString(text) <= n.cfg.SummaryMinRunes {
		return text
	}
	short, err := n.summarizer.Summarize(ctx, title, text)
	if err != nil || short == "" {
		n.logger.Printf("summary for %q failed, keeping description: %v", title, err)
		return text
	}
	return short
}
