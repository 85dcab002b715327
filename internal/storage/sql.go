package storage

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"

	"cryptonews/internal/article"
)

// markChunk bounds the number of links bound into one UPDATE.
const markChunk = 500

const articleColumns = "title, link, description, publication_date, content_url, delivered, source"

// dialect holds the statements that differ between databases.
type dialect struct {
	name        string
	schema      string
	insert      string
	undelivered string
	recent      string
	bind        func(n int) string
}

// SQLStore is a Store backed by database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *log.Logger
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, logger *log.Logger) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	store := &SQLStore{db: db, dialect: d, logger: logger}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the articles table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	s.logger.Printf("%s articles table ready", s.dialect.name)
	return nil
}

// InsertIfAbsent stores a unless its link is already present.
func (s *SQLStore) InsertIfAbsent(ctx context.Context, a article.Article) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.insert,
		a.Title, a.Link, a.Description, nullString(a.PublishedAt), a.ContentURL, false, a.Source)
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	return n > 0, nil
}

// FetchUndelivered returns undelivered rows, undated first, then oldest first.
func (s *SQLStore) FetchUndelivered(ctx context.Context) ([]article.Article, error) {
	items, err := scanArticles(s.db.QueryContext(ctx, s.dialect.undelivered))
	if err != nil {
		return nil, fmt.Errorf("fetch undelivered: %w", err)
	}
	return items, nil
}

// MarkDelivered updates the links in one transaction.
func (s *SQLStore) MarkDelivered(ctx context.Context, links []string) (int64, error) {
	if len(links) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mark delivered: %w", err)
	}
	defer tx.Rollback()

	var total int64
	for start := 0; start < len(links); start += markChunk {
		end := min(start+markChunk, len(links))
		chunk := links[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, link := range chunk {
			placeholders[i] = s.dialect.bind(i + 1)
			args[i] = link
		}
		q := "UPDATE articles SET delivered = TRUE WHERE delivered = FALSE AND link IN (" + strings.Join(placeholders, ", ") + ")"
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("mark delivered: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("mark delivered: %w", err)
		}
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mark delivered: commit: %w", err)
	}
	s.logger.Printf("marked %d of %d articles delivered", total, len(links))
	return total, nil
}

// MarkAllUndeliveredAsDelivered flags every undelivered row in one statement.
func (s *SQLStore) MarkAllUndeliveredAsDelivered(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE articles SET delivered = TRUE WHERE delivered = FALSE")
	if err != nil {
		return 0, fmt.Errorf("mark all delivered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all delivered: %w", err)
	}
	s.logger.Printf("marked %d articles delivered", n)
	return n, nil
}

// ListRecent returns up to limit rows, newest first, undated last.
func (s *SQLStore) ListRecent(ctx context.Context, limit int) ([]article.Article, error) {
	items, err := scanArticles(s.db.QueryContext(ctx, s.dialect.recent, limit))
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	return items, nil
}

// Get looks up one article by its exact link.
func (s *SQLStore) Get(ctx context.Context, link string) (article.Article, bool, error) {
	q := "SELECT " + articleColumns + " FROM articles WHERE link = " + s.dialect.bind(1)
	items, err := scanArticles(s.db.QueryContext(ctx, q, link))
	if err != nil {
		return article.Article{}, false, fmt.Errorf("get article: %w", err)
	}
	if len(items) == 0 {
		return article.Article{}, false, nil
	}
	return items[0], true, nil
}

func scanArticles(rows *sql.Rows, err error) ([]article.Article, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []article.Article
	for rows.Next() {
		var (
			a   article.Article
			pub sql.NullString
		)
		if err := rows.Scan(&a.Title, &a.Link, &a.Description, &pub, &a.ContentURL, &a.Delivered, &a.Source); err != nil {
			return nil, err
		}
		a.PublishedAt = pub.String
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*SQLStore)(nil)
