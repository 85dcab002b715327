package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"cryptonews/internal/config"

	_ "github.com/go-sql-driver/mysql"
)

// Links compare byte for byte; the table collation would fold case.
var mysqlDialect = dialect{
	name: "mysql",
	schema: `
CREATE TABLE IF NOT EXISTS articles (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	link VARCHAR(768) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL UNIQUE,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	publication_date CHAR(19) NULL,
	content_url TEXT NOT NULL,
	delivered TINYINT(1) NOT NULL DEFAULT 0,
	source VARCHAR(128) NOT NULL DEFAULT '',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	KEY idx_articles_delivered (delivered, publication_date)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;
`,
	// The no-op update leaves the first-seen row intact and reports zero
	// affected rows on conflict.
	insert: `
INSERT INTO articles (` + articleColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE link = link`,
	undelivered: `
SELECT ` + articleColumns + `
FROM articles
WHERE delivered = FALSE
ORDER BY publication_date ASC, id ASC`,
	recent: `
SELECT ` + articleColumns + `
FROM articles
ORDER BY publication_date IS NULL, publication_date DESC, id DESC
LIMIT ?`,
	bind: func(int) string { return "?" },
}

// NewMySQLStore creates the database (if needed), ensures schema, and returns a ready store.
func NewMySQLStore(ctx context.Context, cfg config.Config, logger *log.Logger) (*SQLStore, error) {
	rootDSN := fmt.Sprintf("%s:%s@tcp(%s:%d)/?charset=utf8mb4&parseTime=true&loc=UTC", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort)
	rootDB, err := sql.Open("mysql", rootDSN)
	if err != nil {
		return nil, fmt.Errorf("open root mysql connection: %w", err)
	}
	if err := rootDB.PingContext(ctx); err != nil {
		_ = rootDB.Close()
		return nil, fmt.Errorf("ping root mysql: %w", err)
	}
	createDB := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", cfg.DBName)
	if _, err := rootDB.ExecContext(ctx, createDB); err != nil {
		_ = rootDB.Close()
		return nil, fmt.Errorf("create database: %w", err)
	}
	_ = rootDB.Close()

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	return OpenMySQL(ctx, dsn, logger)
}

// OpenMySQL connects to an existing MySQL database using dsn.
func OpenMySQL(ctx context.Context, dsn string, logger *log.Logger) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql with db: %w", err)
	}
	return newSQLStore(ctx, db, mysqlDialect, logger)
}
