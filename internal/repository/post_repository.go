package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/rosterline/backstage/internal/models"
)

type PostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListPostedByPlatform(ctx context.Context, platform string, maxAge time.Duration) ([]*models.Post, error)
}

type postRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) PostRepository {
	return &postRepository{db: db}
}

const postColumns = `id, artist_id, title, status, post_date, instagram_url, tiktok_url, youtube_url, created_at, updated_at`

func (r *postRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var post models.Post
	err := row.Scan(&post.ID, &post.ArtistID, &post.Title, &post.Status, &post.PostDate,
		&post.InstagramURL, &post.TiktokURL, &post.YoutubeURL, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &post, nil
}

// ListPostedByPlatform returns posts with status "posted" and a published URL
// on the given platform. When maxAge > 0 posts older than maxAge are left out.
func (r *postRepository) ListPostedByPlatform(ctx context.Context, platform string, maxAge time.Duration) ([]*models.Post, error) {
	urlColumn := platformURLColumn(platform)
	if urlColumn == "" {
		return nil, nil
	}

	query := `SELECT ` + postColumns + ` FROM posts
		WHERE status = $1
		AND ` + urlColumn + ` IS NOT NULL
		AND ` + urlColumn + ` <> ''`
	args := []interface{}{models.PostStatusPosted}

	if maxAge > 0 {
		query += ` AND post_date >= $2`
		args = append(args, time.Now().Add(-maxAge))
	}
	query += ` ORDER BY post_date DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		var post models.Post
		err := rows.Scan(&post.ID, &post.ArtistID, &post.Title, &post.Status, &post.PostDate,
			&post.InstagramURL, &post.TiktokURL, &post.YoutubeURL, &post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, &post)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return posts, nil
}

func platformURLColumn(platform string) string {
	switch platform {
	case models.PlatformInstagram:
		return "instagram_url"
	case models.PlatformTiktok:
		return "tiktok_url"
	case models.PlatformYoutube:
		return "youtube_url"
	}
	return ""
}
