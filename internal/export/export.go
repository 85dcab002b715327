// Package export snapshots undelivered articles into the handoff file and
// flags them as delivered.
package export

import (
	"context"
	"fmt"
	"log"

	"cryptonews/internal/article"
)

// MarkMode selects which rows an export flags as delivered.
type MarkMode string

const (
	// MarkSnapshot flags exactly the links written to the handoff. Rows
	// inserted after the snapshot stay undelivered for the next export.
	MarkSnapshot MarkMode = "snapshot"
	// MarkAll flags every undelivered row, including rows inserted after the
	// snapshot was read, which are then never exported.
	MarkAll MarkMode = "all"
)

// ParseMarkMode converts a config value, defaulting to MarkSnapshot.
func ParseMarkMode(s string) (MarkMode, error) {
	switch MarkMode(s) {
	case "", MarkSnapshot:
		return MarkSnapshot, nil
	case MarkAll:
		return MarkAll, nil
	}
	return "", fmt.Errorf("unknown mark mode %q", s)
}

// Options configures an Exporter.
type Options struct {
	HandoffPath string
	MarkMode    MarkMode
}

// Store is the part of the article store the exporter uses.
type Store interface {
	FetchUndelivered(ctx context.Context) ([]article.Article, error)
	MarkDelivered(ctx context.Context, links []string) (int64, error)
	MarkAllUndeliveredAsDelivered(ctx context.Context) (int64, error)
}

// Result describes one export.
type Result struct {
	// Exported are the records taken from the store by this export, oldest first.
	Exported []Record
	// Pending is the number of records now waiting in the handoff file,
	// including any left over from an earlier export.
	Pending int
	Marked  int64
}

// Exporter moves undelivered articles into the handoff file.
type Exporter struct {
	store  Store
	opts   Options
	logger *log.Logger
}

// NewExporter creates an Exporter.
func NewExporter(store Store, opts Options, logger *log.Logger) *Exporter {
	if opts.MarkMode == "" {
		opts.MarkMode = MarkSnapshot
	}
	return &Exporter{store: store, opts: opts, logger: logger}
}

// Export writes the current undelivered articles to the handoff file, then
// flags them as delivered. Records the notifier has not consumed yet are
// kept ahead of the new ones. With nothing undelivered the store is not
// touched and the handoff file is only created if missing.
func (e *Exporter) Export(ctx context.Context) (Result, error) {
	pending, err := e.store.FetchUndelivered(ctx)
	if err != nil {
		return Result{}, err
	}

	queued, err := readPending(e.opts.HandoffPath)
	if err != nil {
		return Result{}, err
	}

	if len(pending) == 0 {
		if queued == nil {
			if err := WriteHandoff(e.opts.HandoffPath, nil); err != nil {
				return Result{}, err
			}
		}
		e.logger.Println("no new articles to send")
		return Result{Exported: []Record{}, Pending: len(queued)}, nil
	}

	inQueue := make(map[string]bool, len(queued))
	for _, r := range queued {
		inQueue[r.Link] = true
	}
	exported := make([]Record, 0, len(pending))
	links := make([]string, 0, len(pending))
	handoff := append([]Record(nil), queued...)
	for _, a := range pending {
		r := NewRecord(a)
		exported = append(exported, r)
		links = append(links, a.Link)
		if !inQueue[a.Link] {
			inQueue[a.Link] = true
			handoff = append(handoff, r)
		}
	}

	// The handoff is written before any row is flagged: a crash in between
	// leaves rows undelivered and they are exported again, never lost.
	if err := WriteHandoff(e.opts.HandoffPath, handoff); err != nil {
		return Result{}, err
	}

	var marked int64
	switch e.opts.MarkMode {
	case MarkAll:
		marked, err = e.store.MarkAllUndeliveredAsDelivered(ctx)
		if err == nil && marked > int64(len(links)) {
			e.logger.Printf("warning: %d articles inserted during export were marked delivered without being exported", marked-int64(len(links)))
		}
	default:
		marked, err = e.store.MarkDelivered(ctx, links)
	}
	if err != nil {
		return Result{}, fmt.Errorf("flag exported articles: %w", err)
	}

	e.logger.Printf("%d articles updated and written to %s", len(exported), e.opts.HandoffPath)
	return Result{Exported: exported, Pending: len(handoff), Marked: marked}, nil
}
