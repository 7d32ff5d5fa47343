package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/itmedclk/HealthNews/internal/domain"
	"github.com/itmedclk/HealthNews/internal/ports"
)

// Store is the relational history store behind idempotence and
// repeat-avoidance. The DSN selects the driver: postgres:// URLs use
// lib/pq, anything else is treated as a sqlite file path.
//
// Timestamps are persisted as RFC3339 UTC strings so range queries
// compare identically on both drivers.
type Store struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	serial  string
}

var _ ports.HistoryStore = (*Store)(nil)

// Open connects to the store described by the DSN.
func Open(dsn string) (*Store, error) {
	if isPostgres(dsn) {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Store{
			db:      db,
			builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
			serial:  "SERIAL PRIMARY KEY",
		}, nil
	}

	if dir := filepath.Dir(dsn); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &Store{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		serial:  "INTEGER PRIMARY KEY AUTOINCREMENT",
	}, nil
}

// NewStore wraps an existing sqlite-compatible connection; used by
// tests.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Question),
		serial:  "INTEGER PRIMARY KEY AUTOINCREMENT",
	}
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// EnsureSchema creates the three history tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS brands (
			id %s,
			brand_name TEXT UNIQUE,
			topics TEXT,
			product_categories TEXT,
			product_subcategories TEXT,
			product_tags TEXT,
			updated_at TEXT
		)`, s.serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS article_history (
			id %s,
			brand_name TEXT,
			article_title TEXT,
			article_url TEXT,
			checked_at TEXT,
			status TEXT,
			reason TEXT,
			UNIQUE(brand_name, article_title, article_url)
		)`, s.serial),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS post_log (
			id %s,
			run_id TEXT,
			brand_name TEXT,
			product_name TEXT,
			article_title TEXT,
			article_url TEXT,
			image_url TEXT,
			caption TEXT,
			scheduled_time TEXT,
			posted_time TEXT,
			status TEXT,
			reason TEXT
		)`, s.serial),
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertBrandTopics inserts or refreshes the brand topic cache row.
func (s *Store) UpsertBrandTopics(ctx context.Context, topics domain.BrandTopics) error {
	query, args, err := s.builder.
		Insert("brands").
		Columns("brand_name", "topics", "product_categories", "product_subcategories", "product_tags", "updated_at").
		Values(topics.BrandName, topics.Topics, topics.Categories, topics.SubCategories, topics.Tags, topics.UpdatedAt).
		Suffix(`ON CONFLICT(brand_name) DO UPDATE SET
			topics=excluded.topics,
			product_categories=excluded.product_categories,
			product_subcategories=excluded.product_subcategories,
			product_tags=excluded.product_tags,
			updated_at=excluded.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build brand upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert brand topics: %w", err)
	}
	return nil
}

// ArticleSeen reports whether the article was already evaluated for
// this brand.
func (s *Store) ArticleSeen(ctx context.Context, brand, title, url string) (bool, error) {
	if brand == "" || title == "" {
		return false, nil
	}

	query, args, err := s.builder.
		Select("1").
		From("article_history").
		Where(sq.Eq{"brand_name": brand, "article_title": title, "article_url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build seen query: %w", err)
	}

	return s.exists(ctx, query, args)
}

// RecordCheck upserts the article evaluation outcome for a brand.
func (s *Store) RecordCheck(ctx context.Context, check domain.ArticleCheck) error {
	if check.BrandName == "" || check.Title == "" {
		return nil
	}

	checkedAt := check.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now()
	}

	query, args, err := s.builder.
		Insert("article_history").
		Columns("brand_name", "article_title", "article_url", "checked_at", "status", "reason").
		Values(check.BrandName, check.Title, check.URL, formatTime(checkedAt), string(check.Status), check.Reason).
		Suffix(`ON CONFLICT(brand_name, article_title, article_url) DO UPDATE SET
			checked_at=excluded.checked_at,
			status=excluded.status,
			reason=excluded.reason`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build check upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record article check: %w", err)
	}
	return nil
}

// AppendPost adds one row to the append-only post log.
func (s *Store) AppendPost(ctx context.Context, record domain.PostRecord) error {
	query, args, err := s.builder.
		Insert("post_log").
		Columns("run_id", "brand_name", "product_name", "article_title", "article_url",
			"image_url", "caption", "scheduled_time", "posted_time", "status", "reason").
		Values(record.RunID, record.BrandName, record.ProductName, record.ArticleTitle, record.ArticleURL,
			record.ImageURL, record.Caption, formatTime(record.ScheduledTime), formatTime(record.PostedTime),
			string(record.Status), record.Reason).
		ToSql()
	if err != nil {
		return fmt.Errorf("build post insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append post record: %w", err)
	}
	return nil
}

// PostedBetween reports whether the brand has a posted record inside
// [from, to).
func (s *Store) PostedBetween(ctx context.Context, brand string, from, to time.Time) (bool, error) {
	return s.statusBetween(ctx, brand, domain.StatusPosted, "posted_time", from, to)
}

// ScheduledBetween reports whether the brand has a scheduled record
// inside [from, to).
func (s *Store) ScheduledBetween(ctx context.Context, brand string, from, to time.Time) (bool, error) {
	return s.statusBetween(ctx, brand, domain.StatusScheduled, "scheduled_time", from, to)
}

func (s *Store) statusBetween(ctx context.Context, brand string, status domain.PostStatus, column string, from, to time.Time) (bool, error) {
	query, args, err := s.builder.
		Select("1").
		From("post_log").
		Where(sq.Eq{"brand_name": brand, "status": string(status)}).
		Where(sq.GtOrEq{column: formatTime(from)}).
		Where(sq.Lt{column: formatTime(to)}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build range query: %w", err)
	}

	return s.exists(ctx, query, args)
}

// LastProductNames returns the names of the brand's most recent
// successful posts, most-recent-first, skipping empty names.
func (s *Store) LastProductNames(ctx context.Context, brand string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	query, args, err := s.builder.
		Select("product_name").
		From("post_log").
		Where(sq.Eq{"brand_name": brand, "status": []string{
			string(domain.StatusPosted), string(domain.StatusScheduled),
		}}).
		Where(sq.NotEq{"product_name": ""}).
		OrderBy("id DESC").
		Limit(uint64(n)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build last products query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query last products: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan product name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return names, nil
}

func (s *Store) exists(ctx context.Context, query string, args []any) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("existence query: %w", err)
	}
	return true, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
