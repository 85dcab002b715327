package rss

import (
	"fmt"
	"strings"

	"cryptonews/internal/config"
	"cryptonews/internal/pubdate"
)

// ImageRule names one place an image URL may be found in an entry.
type ImageRule string

const (
	// ImageMediaContent reads <media:content url="...">, including inside <media:group>.
	ImageMediaContent ImageRule = "media_content"
	// ImageMediaThumbnail reads <media:thumbnail url="..."> or the item image.
	ImageMediaThumbnail ImageRule = "media_thumbnail"
	// ImageEnclosure reads the first <enclosure> or Atom enclosure link.
	ImageEnclosure ImageRule = "enclosure"
	// ImageDescriptionSrc matches src="..." inside the raw description.
	ImageDescriptionSrc ImageRule = "description_src"
	// ImageFeed falls back to the channel image.
	ImageFeed ImageRule = "feed_image"
)

// DefaultImageRules tries every rule in priority order.
var DefaultImageRules = []ImageRule{
	ImageMediaContent,
	ImageMediaThumbnail,
	ImageEnclosure,
	ImageDescriptionSrc,
	ImageFeed,
}

func (r ImageRule) valid() bool {
	for _, known := range DefaultImageRules {
		if r == known {
			return true
		}
	}
	return false
}

// Source describes how one publisher's feed is read.
type Source struct {
	Name string
	URL  string
	// DateFormat is the date family the publisher emits.
	DateFormat pubdate.Family
	// HTMLDescription marks descriptions that carry markup or entities.
	HTMLDescription bool
	// SkipDescription stores an empty description, for feeds whose
	// description is only boilerplate.
	SkipDescription bool
	// FirstSentence keeps the description up to its first ".".
	FirstSentence bool
	// Images lists image rules in priority order. Empty means DefaultImageRules.
	Images  []ImageRule
	Enabled bool
}

// DefaultSources returns the built-in crypto publishers.
func DefaultSources() []Source {
	return []Source{
		{
			Name:       "CoinDesk",
			URL:        "https://www.coindesk.com/arc/outboundfeeds/rss/",
			DateFormat: pubdate.RFC822Numeric,
			Images:     []ImageRule{ImageMediaContent},
			Enabled:    true,
		},
		{
			Name:            "The Defiant",
			URL:             "https://thedefiant.io/api/feed",
			DateFormat:      pubdate.RFC822Named,
			HTMLDescription: true,
			Images:          []ImageRule{ImageMediaThumbnail},
			Enabled:         true,
		},
		{
			Name:            "Investing.com",
			URL:             "https://www.investing.com/rss/news_301.rss",
			DateFormat:      pubdate.Plain,
			SkipDescription: true,
			Images:          []ImageRule{ImageEnclosure},
			Enabled:         true,
		},
		{
			Name:            "Cointelegraph",
			URL:             "https://cointelegraph.com/rss",
			DateFormat:      pubdate.RFC822Numeric,
			HTMLDescription: true,
			Images:          []ImageRule{ImageMediaContent, ImageEnclosure, ImageDescriptionSrc},
			Enabled:         true,
		},
		{
			Name:            "Decrypt",
			URL:             "https://decrypt.co/feed",
			DateFormat:      pubdate.RFC822Numeric,
			HTMLDescription: true,
			Images:          []ImageRule{ImageMediaContent, ImageEnclosure, ImageDescriptionSrc},
			Enabled:         true,
		},
		{
			Name:            "The Block",
			URL:             "https://www.theblock.co/rss.xml",
			DateFormat:      pubdate.RFC822Named,
			HTMLDescription: true,
			Images:          []ImageRule{ImageMediaContent, ImageMediaThumbnail, ImageFeed},
			Enabled:         true,
		},
		{
			Name:            "Bitcoin Magazine",
			URL:             "https://bitcoinmagazine.com/.rss/full/",
			DateFormat:      pubdate.RFC822Named,
			HTMLDescription: true,
			Images:          []ImageRule{ImageMediaContent, ImageMediaThumbnail},
			Enabled:         true,
		},
		{
			Name:            "CryptoSlate",
			URL:             "https://cryptoslate.com/feed/",
			DateFormat:      pubdate.RFC822Numeric,
			HTMLDescription: true,
			Images:          []ImageRule{ImageMediaContent, ImageDescriptionSrc},
			Enabled:         true,
		},
		{
			Name:            "CryptoPotato",
			URL:             "https://cryptopotato.com/feed/",
			DateFormat:      pubdate.RFC822Numeric,
			HTMLDescription: true,
			FirstSentence:   true,
			Images:          []ImageRule{ImageDescriptionSrc, ImageMediaContent},
			Enabled:         true,
		},
		{
			Name:            "NewsBTC",
			URL:             "https://www.newsbtc.com/feed/",
			DateFormat:      pubdate.RFC822Numeric,
			HTMLDescription: true,
			Images:          []ImageRule{ImageMediaContent, ImageDescriptionSrc},
			Enabled:         true,
		},
		{
			Name:            "Bitcoinist",
			URL:             "https://bitcoinist.com/feed/",
			DateFormat:      pubdate.RFC822Numeric,
			HTMLDescription: true,
			Images:          []ImageRule{ImageMediaContent, ImageDescriptionSrc},
			Enabled:         true,
		},
		{
			Name:            "CryptoBriefing",
			URL:             "https://cryptobriefing.com/feed/",
			DateFormat:      pubdate.RFC822Numeric,
			HTMLDescription: true,
			Images:          []ImageRule{ImageEnclosure, ImageDescriptionSrc, ImageFeed},
			Enabled:         true,
		},
	}
}

// MergeSources applies the overrides read from a sources file to base.
// Specs naming an existing source (case-insensitively) change only the
// fields they set; other specs add a new source.
func MergeSources(base []Source, specs []config.SourceSpec) ([]Source, error) {
	out := append([]Source(nil), base...)
	index := make(map[string]int, len(out))
	for i, s := range out {
		index[strings.ToLower(s.Name)] = i
	}

	for _, spec := range specs {
		i, exists := index[strings.ToLower(spec.Name)]
		if !exists {
			if spec.URL == "" {
				return nil, fmt.Errorf("%w: source %q needs a url", config.ErrInvalidSource, spec.Name)
			}
			out = append(out, Source{Name: spec.Name, DateFormat: pubdate.Auto, Enabled: true})
			i = len(out) - 1
			index[strings.ToLower(spec.Name)] = i
		}

		src := &out[i]
		if spec.URL != "" {
			src.URL = spec.URL
		}
		if spec.Enabled != nil {
			src.Enabled = *spec.Enabled
		}
		if spec.DateFormat != "" {
			src.DateFormat = pubdate.Family(spec.DateFormat)
		}
		if spec.HTMLDescription != nil {
			src.HTMLDescription = *spec.HTMLDescription
		}
		if spec.SkipDescription != nil {
			src.SkipDescription = *spec.SkipDescription
		}
		if spec.FirstSentence != nil {
			src.FirstSentence = *spec.FirstSentence
		}
		if len(spec.Images) > 0 {
			rules := make([]ImageRule, 0, len(spec.Images))
			for _, name := range spec.Images {
				rule := ImageRule(name)
				if !rule.valid() {
					return nil, fmt.Errorf("%w: source %q has unknown image rule %q", config.ErrInvalidSource, spec.Name, name)
				}
				rules = append(rules, rule)
			}
			src.Images = rules
		}
	}
	return out, nil
}
