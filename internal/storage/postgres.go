package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"strconv"

	"cryptonews/internal/config"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name: "postgres",
	schema: `
CREATE TABLE IF NOT EXISTS articles (
	id BIGSERIAL PRIMARY KEY,
	link TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	publication_date VARCHAR(19) NULL,
	content_url TEXT NOT NULL,
	delivered BOOLEAN NOT NULL DEFAULT FALSE,
	source TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_articles_delivered ON articles (delivered, publication_date);
`,
	insert: `
INSERT INTO articles (` + articleColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (link) DO NOTHING`,
	undelivered: `
SELECT ` + articleColumns + `
FROM articles
WHERE delivered = FALSE
ORDER BY publication_date ASC NULLS FIRST, id ASC`,
	recent: `
SELECT ` + articleColumns + `
FROM articles
ORDER BY publication_date DESC NULLS LAST, id DESC
LIMIT $1`,
	bind: func(n int) string { return "$" + strconv.Itoa(n) },
}

// NewPostgresStore connects with the DB_* settings and ensures the schema.
func NewPostgresStore(ctx context.Context, cfg config.Config, logger *log.Logger) (*SQLStore, error) {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.DBUser, cfg.DBPass),
		Host:     fmt.Sprintf("%s:%d", cfg.DBHost, cfg.DBPort),
		Path:     "/" + cfg.DBName,
		RawQuery: "sslmode=disable",
	}
	return OpenPostgres(ctx, u.String(), logger)
}

// OpenPostgres connects to Postgres using dsn.
func OpenPostgres(ctx context.Context, dsn string, logger *log.Logger) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return newSQLStore(ctx, db, postgresDialect, logger)
}
