package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"cryptonews/internal/article"
	"cryptonews/internal/atomicio"
)

// Record is one article in the handoff file.
type Record struct {
	Title           string  `json:"title"`
	Link            string  `json:"link"`
	Description     string  `json:"description"`
	PublicationDate *string `json:"publication_date"`
	ContentURL      string  `json:"content_url"`
	Delivered       bool    `json:"delivered"`
}

// NewRecord converts a stored article into its handoff form.
func NewRecord(a article.Article) Record {
	r := Record{
		Title:       a.Title,
		Link:        a.Link,
		Description: a.Description,
		ContentURL:  a.ContentURL,
		Delivered:   a.Delivered,
	}
	if a.HasPublishedAt() {
		pub := a.PublishedAt
		r.PublicationDate = &pub
	}
	return r
}

// Article converts r back into an article.
func (r Record) Article() article.Article {
	a := article.Article{
		Title:       r.Title,
		Link:        r.Link,
		Description: r.Description,
		ContentURL:  r.ContentURL,
		Delivered:   r.Delivered,
	}
	if r.PublicationDate != nil {
		a.PublishedAt = *r.PublicationDate
	}
	return a
}

// ReadHandoff reads the handoff file. A missing file returns an error
// matching fs.ErrNotExist.
func ReadHandoff(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read handoff: %w", err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse handoff %s: %w", path, err)
	}
	return records, nil
}

// WriteHandoff replaces the handoff file with records.
func WriteHandoff(path string, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode handoff: %w", err)
	}
	if err := atomicio.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write handoff: %w", err)
	}
	return nil
}

// ClearHandoff empties the handoff file.
func ClearHandoff(path string) error {
	return WriteHandoff(path, nil)
}

// readPending returns records still waiting in the handoff file, treating a
// missing file as empty.
func readPending(path string) ([]Record, error) {
	records, err := ReadHandoff(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return records, err
}
