package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"crickmic-engine/internal/domain"
)

type ListPostsOpts struct {
	Window  string // 24h | 7d | 30d | all
	MatchID string
	Origin  string
	Limit   int
}

// PostRepo archives committed posts so the history view survives restarts.
type PostRepo struct {
	db *sql.DB
}

func NewPostRepo(db *sql.DB) *PostRepo {
	return &PostRepo{db: db}
}

// SavePosts writes a committed batch in one transaction. Data-URI images are
// moved into the images table and the post keeps a /images/{key} reference.
// The returned copies carry the rewritten image URLs.
func (r *PostRepo) SavePosts(ctx context.Context, posts []domain.GeneratedPost) ([]domain.GeneratedPost, error) {
	if r == nil || r.db == nil || len(posts) == 0 {
		return posts, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]domain.GeneratedPost, 0, len(posts))
	for _, p := range posts {
		key, err := CacheImage(ctx, tx, p.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("cache image for post %s: %w", p.ID, err)
		}
		imageURL := p.ImageURL
		if key != "" {
			imageURL = ImagePath(key)
		}

		_, err = tx.ExecContext(ctx, `
INSERT OR REPLACE INTO posts (id, match_id, match_title, headline, description, hashtags, image_url, image_key, context, origin, generated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			p.ID, p.MatchID, p.MatchTitle, p.Headline, p.Description, p.Hashtags,
			imageURL, key, p.Context, string(p.Origin), p.GeneratedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return nil, fmt.Errorf("insert post %s: %w", p.ID, err)
		}
		p.ImageURL = imageURL
		out = append(out, p)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (r *PostRepo) ListPosts(ctx context.Context, opts ListPostsOpts) ([]domain.GeneratedPost, error) {
	if opts.Limit <= 0 || opts.Limit > 1000 {
		opts.Limit = 200
	}

	q := sq.Select("id", "match_id", "match_title", "headline", "description", "hashtags", "image_url", "context", "origin", "generated_at").
		From("posts").
		OrderBy("generated_at DESC", "rowid DESC").
		Limit(uint64(opts.Limit))

	switch opts.Window {
	case "24h":
		q = q.Where("generated_at >= datetime('now','-24 hours')")
	case "7d":
		q = q.Where("generated_at >= datetime('now','-7 days')")
	case "30d":
		q = q.Where("generated_at >= datetime('now','-30 days')")
	default:
		// all
	}
	if opts.MatchID != "" {
		q = q.Where(sq.Eq{"match_id": opts.MatchID})
	}
	if opts.Origin != "" {
		q = q.Where(sq.Eq{"origin": opts.Origin})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GeneratedPost
	for rows.Next() {
		var p domain.GeneratedPost
		var origin, generatedAt string
		if err := rows.Scan(
			&p.ID,
			&p.MatchID,
			&p.MatchTitle,
			&p.Headline,
			&p.Description,
			&p.Hashtags,
			&p.ImageURL,
			&p.Context,
			&origin,
			&generatedAt,
		); err != nil {
			return nil, err
		}
		p.Origin = domain.Origin(origin)
		p.GeneratedAt, _ = time.ParseInLocation(timeLayout, generatedAt, time.UTC)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeletePost removes one archived post. It returns sql.ErrNoRows when no post has id.
func (r *PostRepo) DeletePost(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CleanupOldPosts removes posts past the retention window and images no post references.
func (r *PostRepo) CleanupOldPosts(ctx context.Context, retentionDays int) (deleted int64, err error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `
DELETE FROM posts
WHERE generated_at < datetime('now', ?);
`, fmt.Sprintf("-%d days", retentionDays))
	if err != nil {
		return 0, fmt.Errorf("cleanup old posts: %w", err)
	}
	n, _ := res.RowsAffected()

	if _, err := r.db.ExecContext(ctx, `
DELETE FROM images
WHERE key NOT IN (SELECT image_key FROM posts WHERE image_key != '');
`); err != nil {
		return n, fmt.Errorf("cleanup orphan images: %w", err)
	}
	return n, nil
}
