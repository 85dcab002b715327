package article

// NoImage is stored as content_url when a source offers no usable image.
const NoImage = "No Image"

// Article is the canonical record every source is normalized into.
type Article struct {
	Title       string
	Link        string
	Description string
	// PublishedAt holds the canonical "2006-01-02 15:04:05" UTC form, or ""
	// when the feed date could not be parsed.
	PublishedAt string
	ContentURL  string
	Delivered   bool
	Source      string
}

// HasPublishedAt reports whether the publication date was parsed.
func (a Article) HasPublishedAt() bool {
	return a.PublishedAt != ""
}

// HasImage reports whether ContentURL points at a real image.
func (a Article) HasImage() bool {
	return a.ContentURL != "" && a.ContentURL != NoImage
}
