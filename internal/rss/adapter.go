package rss

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cryptonews/internal/article"
	"cryptonews/internal/pubdate"

	"github.com/mmcdole/gofeed"
)

const userAgent = "cryptonews/1.0"

var (
	// ErrMissingLink rejects entries without a link; the link is the
	// article's identity.
	ErrMissingLink = errors.New("entry has no link")
	// ErrNilEntry rejects entries with no item.
	ErrNilEntry = errors.New("entry has no item")
)

// Entry is one raw feed item plus the feed-level data adapters may fall back on.
type Entry struct {
	Item      *gofeed.Item
	FeedImage string
}

// Adapter turns one publisher's feed into canonical articles. New sources are
// added by implementing Adapter and registering it.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]Entry, error)
	Map(e Entry) (article.Article, error)
}

// FeedAdapter is the Adapter for RSS and Atom feeds described by a Source.
type FeedAdapter struct {
	source Source
	parser *gofeed.Parser
}

// NewFeedAdapter creates an adapter for src. A nil client gets a 20 second timeout.
func NewFeedAdapter(src Source, client *http.Client) *FeedAdapter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &FeedAdapter{source: src, parser: parser}
}

// Name returns the publisher name stored on every article.
func (a *FeedAdapter) Name() string {
	return a.source.Name
}

// Source returns the adapter's configuration.
func (a *FeedAdapter) Source() Source {
	return a.source
}

// Fetch pulls and parses the feed.
func (a *FeedAdapter) Fetch(ctx context.Context) ([]Entry, error) {
	feed, err := a.parser.ParseURLWithContext(a.source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", a.source.URL, err)
	}
	return Entries(feed), nil
}

// Entries flattens a parsed feed into entries.
func Entries(feed *gofeed.Feed) []Entry {
	var feedImage string
	if feed.Image != nil {
		feedImage = feed.Image.URL
	}
	entries := make([]Entry, 0, len(feed.Items))
	for _, it := range feed.Items {
		entries = append(entries, Entry{Item: it, FeedImage: feedImage})
	}
	return entries
}

// Map converts an entry into an article. Only a missing link is an error;
// unparseable dates and missing images degrade to "" and article.NoImage.
func (a *FeedAdapter) Map(e Entry) (article.Article, error) {
	it := e.Item
	if it == nil {
		return article.Article{}, ErrNilEntry
	}
	link := strings.TrimSpace(it.Link)
	if link == "" {
		return article.Article{}, ErrMissingLink
	}
	title := strings.TrimSpace(it.Title)
	if title == "" {
		title = link
	}

	return article.Article{
		Title:       title,
		Link:        link,
		Description: a.description(it),
		PublishedAt: pubdate.Normalize(rawPublished(it), a.source.DateFormat),
		ContentURL:  pickImage(e, a.source.Images),
		Delivered:   false,
		Source:      a.source.Name,
	}, nil
}

func (a *FeedAdapter) description(it *gofeed.Item) string {
	if a.source.SkipDescription {
		return ""
	}
	desc := it.Description
	if desc == "" {
		desc = it.Content
	}
	if a.source.HTMLDescription {
		desc = StripHTML(desc)
	} else {
		desc = strings.TrimSpace(desc)
	}
	if a.source.FirstSentence {
		desc = FirstSentence(desc)
	}
	return desc
}

func rawPublished(it *gofeed.Item) string {
	if it.Published != "" {
		return it.Published
	}
	return it.Updated
}

var _ Adapter = (*FeedAdapter)(nil)
