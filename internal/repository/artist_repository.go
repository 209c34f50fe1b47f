package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/rosterline/backstage/internal/models"
)

type ArtistRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Artist, error)
}

type artistRepository struct {
	db *sql.DB
}

func NewArtistRepository(db *sql.DB) ArtistRepository {
	return &artistRepository{db: db}
}

func (r *artistRepository) GetByID(ctx context.Context, id int64) (*models.Artist, error) {
	query := `SELECT id, name, instagram_handle, tiktok_handle, youtube_channel_id, created_at, updated_at FROM artists WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	var artist models.Artist
	err := row.Scan(&artist.ID, &artist.Name, &artist.InstagramHandle,
		&artist.TiktokHandle, &artist.YoutubeChannelID, &artist.CreatedAt, &artist.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &artist, nil
}
