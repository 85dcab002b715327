package rss

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"cryptonews/internal/article"
)

// Inserter is the part of the article store the ingester writes to.
type Inserter interface {
	InsertIfAbsent(ctx context.Context, a article.Article) (bool, error)
}

// Registry holds adapters in registration order.
type Registry struct {
	adapters []Adapter
	names    map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register adds a. Adapter names must be unique.
func (r *Registry) Register(a Adapter) error {
	key := strings.ToLower(a.Name())
	if _, dup := r.names[key]; dup {
		return fmt.Errorf("adapter %q already registered", a.Name())
	}
	r.names[key] = struct{}{}
	r.adapters = append(r.adapters, a)
	return nil
}

// Adapters returns the registered adapters in order.
func (r *Registry) Adapters() []Adapter {
	return append([]Adapter(nil), r.adapters...)
}

// RegisterSources registers a FeedAdapter for every enabled source.
func RegisterSources(r *Registry, sources []Source, client *http.Client) error {
	for _, src := range sources {
		if !src.Enabled {
			continue
		}
		if err := r.Register(NewFeedAdapter(src, client)); err != nil {
			return err
		}
	}
	return nil
}

// Report summarizes one adapter's run.
type Report struct {
	Source   string
	Fetched  int
	Inserted int
	Skipped  int
	Err      error
}

// Ingester runs every registered adapter and stores what they produce.
type Ingester struct {
	registry *Registry
	store    Inserter
	logger   *log.Logger
}

// NewIngester creates an Ingester.
func NewIngester(registry *Registry, store Inserter, logger *log.Logger) *Ingester {
	return &Ingester{registry: registry, store: store, logger: logger}
}

// Run ingests every source in registration order. A failing source or entry
// is logged and skipped; it never stops the others.
func (in *Ingester) Run(ctx context.Context) []Report {
	adapters := in.registry.Adapters()
	reports := make([]Report, 0, len(adapters))
	for _, a := range adapters {
		if ctx.Err() != nil {
			break
		}
		r := in.ingest(ctx, a)
		if r.Err != nil {
			in.logger.Printf("source %s failed: %v", r.Source, r.Err)
		} else {
			in.logger.Printf("source %s done, fetched=%d inserted=%d skipped=%d", r.Source, r.Fetched, r.Inserted, r.Skipped)
		}
		reports = append(reports, r)
	}
	return reports
}

func (in *Ingester) ingest(ctx context.Context, a Adapter) (r Report) {
	r.Source = a.Name()
	defer func() {
		if p := recover(); p != nil {
			r.Err = fmt.Errorf("adapter panic: %v", p)
		}
	}()

	entries, err := a.Fetch(ctx)
	if err != nil {
		r.Err = err
		return r
	}
	r.Fetched = len(entries)

	for _, e := range entries {
		art, err := mapEntry(a, e)
		if err != nil {
			r.Skipped++
			in.logger.Printf("skip entry from %s (%s): %v", a.Name(), entryLink(e), err)
			continue
		}
		art.Delivered = false
		if art.Source == "" {
			art.Source = a.Name()
		}

		inserted, err := in.store.InsertIfAbsent(ctx, art)
		if err != nil {
			r.Skipped++
			in.logger.Printf("insert %s failed: %v", art.Link, err)
			continue
		}
		if inserted {
			r.Inserted++
		}
	}
	return r
}

// mapEntry calls a.Map, turning a panic into an error for that entry only.
func mapEntry(a Adapter, e Entry) (art article.Article, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("map panic: %v", p)
		}
	}()
	return a.Map(e)
}

func entryLink(e Entry) string {
	if e.Item == nil {
		return "<nil>"
	}
	if e.Item.Link != "" {
		return e.Item.Link
	}
	if e.Item.Title != "" {
		return e.Item.Title
	}
	return "<no link>"
}
