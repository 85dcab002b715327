// Package storage persists canonical articles keyed by link.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cryptonews/internal/article"
	"cryptonews/internal/config"
)

// ErrUnknownDriver is returned by Open for an unsupported DB_DRIVER.
var ErrUnknownDriver = errors.New("unknown database driver")

// Store is the article table. Links are unique and immutable; delivered only
// ever moves from false to true.
type Store interface {
	// EnsureSchema creates the backing table if it is missing.
	EnsureSchema(ctx context.Context) error
	// InsertIfAbsent stores a unless its link already exists, in which case
	// the existing row is left untouched. It reports whether a row was created.
	InsertIfAbsent(ctx context.Context, a article.Article) (bool, error)
	// FetchUndelivered returns undelivered articles oldest first; articles
	// without a publication date come before dated ones.
	FetchUndelivered(ctx context.Context) ([]article.Article, error)
	// MarkDelivered flags the given links as delivered and returns how many
	// rows changed.
	MarkDelivered(ctx context.Context, links []string) (int64, error)
	// MarkAllUndeliveredAsDelivered flags every undelivered row.
	MarkAllUndeliveredAsDelivered(ctx context.Context) (int64, error)
	// ListRecent returns up to limit articles, newest first, undated last.
	ListRecent(ctx context.Context, limit int) ([]article.Article, error)
	// Get returns the article stored under link.
	Get(ctx context.Context, link string) (article.Article, bool, error)
	Close() error
}

// Open connects to the store selected by cfg.DBDriver and ensures its schema.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (Store, error) {
	switch cfg.DBDriver {
	case "mysql":
		return NewMySQLStore(ctx, cfg, logger)
	case "postgres":
		return NewPostgresStore(ctx, cfg, logger)
	case "memory":
		logger.Println("warning: using in-memory store, articles are lost on exit")
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.DBDriver)
	}
}
