package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// ArticleStore persists staged articles. Uniqueness on original_url and
// content_hash is enforced by the schema.
type ArticleStore struct {
	db *DB
}

var _ ports.ArticleStore = (*ArticleStore)(nil)

// NewArticleStore wires a shared DB.
func NewArticleStore(db *DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// FindDuplicate checks original_url first, then content_hash.
func (s *ArticleStore) FindDuplicate(ctx context.Context, originalURL, contentHash string) (string, bool, error) {
	if originalURL != "" {
		id, found, err := s.findBy(ctx, "original_url", originalURL)
		if err != nil || found {
			return id, found, err
		}
	}
	if contentHash != "" {
		return s.findBy(ctx, "content_hash", contentHash)
	}
	return "", false, nil
}

func (s *ArticleStore) findBy(ctx context.Context, column, value string) (string, bool, error) {
	query, args, err := s.db.Builder().
		Select("id").
		From(ArticlesTable).
		Where(sq.Eq{column: value}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build lookup: %w", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("lookup by %s: %w", column, err)
	}
	return id, true, nil
}

// Insert stores a new article. A uniqueness violation is reported as
// *domain.DuplicateError carrying the existing article's ID when it can be
// resolved.
func (s *ArticleStore) Insert(ctx context.Context, article domain.StagedArticle) error {
	images, err := json.Marshal(nonNil(article.Images))
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	query, args, err := s.db.Builder().
		Insert(ArticlesTable).
		Columns(
			"id", "title", "summary", "content", "content_hash", "original_url",
			"source_name", "source_feed_url", "category", "relevance_score",
			"images", "status", "pub_date", "created_at", "updated_at",
		).
		Values(
			article.ID, article.Title, article.Summary, article.Content, article.ContentHash, article.OriginalURL,
			article.Source.Name, article.Source.FeedURL, article.Category, article.RelevanceScore,
			string(images), string(article.Status), toMillis(article.PubDate), toMillis(article.CreatedAt), toMillis(article.UpdatedAt),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if IsUniqueViolation(err) {
			existing, _, lookupErr := s.FindDuplicate(ctx, article.OriginalURL, article.ContentHash)
			return &domain.DuplicateError{ExistingID: existing, LookupErr: lookupErr}
		}
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// Get loads one article by ID.
func (s *ArticleStore) Get(ctx context.Context, id string) (domain.StagedArticle, error) {
	query, args, err := s.db.Builder().
		Select(
			"id", "title", "summary", "content", "content_hash", "original_url",
			"source_name", "source_feed_url", "category", "relevance_score",
			"images", "status", "pub_date", "created_at", "updated_at",
		).
		From(ArticlesTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return domain.StagedArticle{}, fmt.Errorf("build get: %w", err)
	}

	var (
		a                         domain.StagedArticle
		images, status            string
		pubDate, created, updated int64
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.Title, &a.Summary, &a.Content, &a.ContentHash, &a.OriginalURL,
		&a.Source.Name, &a.Source.FeedURL, &a.Category, &a.RelevanceScore,
		&images, &status, &pubDate, &created, &updated,
	)
	if err != nil {
		return domain.StagedArticle{}, fmt.Errorf("get article %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(images), &a.Images); err != nil {
		return domain.StagedArticle{}, fmt.Errorf("decode images: %w", err)
	}
	a.Status = domain.ArticleStatus(status)
	a.PubDate = fromMillis(pubDate)
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return a, nil
}

// Count returns the number of stored articles matching originalURL, or all
// articles when originalURL is empty.
func (s *ArticleStore) Count(ctx context.Context, originalURL string) (int, error) {
	builder := s.db.Builder().Select("COUNT(*)").From(ArticlesTable)
	if originalURL != "" {
		builder = builder.Where(sq.Eq{"original_url": originalURL})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

func nonNil(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
