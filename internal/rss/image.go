package rss

import (
	"strings"

	"cryptonews/internal/article"

	ext "github.com/mmcdole/gofeed/extensions"
)

// pickImage walks rules in order and returns the first URL found, or
// article.NoImage.
func pickImage(e Entry, rules []ImageRule) string {
	if len(rules) == 0 {
		rules = DefaultImageRules
	}
	for _, rule := range rules {
		if u := strings.TrimSpace(imageFor(e, rule)); u != "" {
			return u
		}
	}
	return article.NoImage
}

func imageFor(e Entry, rule ImageRule) string {
	it := e.Item
	switch rule {
	case ImageMediaContent:
		return mediaURL(it.Extensions, "content")
	case ImageMediaThumbnail:
		if u := mediaURL(it.Extensions, "thumbnail"); u != "" {
			return u
		}
		if it.Image != nil {
			return it.Image.URL
		}
	case ImageEnclosure:
		for _, enc := range it.Enclosures {
			if enc != nil && enc.URL != "" {
				return enc.URL
			}
		}
	case ImageDescriptionSrc:
		if u := descriptionSrc(it.Description); u != "" {
			return u
		}
		return descriptionSrc(it.Content)
	case ImageFeed:
		return e.FeedImage
	}
	return ""
}

// mediaURL finds the url attribute of the first media:<name> element, either
// directly on the item or nested in a media:group.
func mediaURL(exts ext.Extensions, name string) string {
	media, ok := exts["media"]
	if !ok {
		return ""
	}
	if u := firstURLAttr(media[name]); u != "" {
		return u
	}
	for _, group := range media["group"] {
		if u := firstURLAttr(group.Children[name]); u != "" {
			return u
		}
	}
	return ""
}

func firstURLAttr(elems []ext.Extension) string {
	for _, el := range elems {
		if u := el.Attrs["url"]; u != "" {
			return u
		}
	}
	return ""
}
