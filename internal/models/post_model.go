package models

import (
	"database/sql"
	"time"
)

type Post struct {
	ID           int64          `db:"id" json:"id"`
	ArtistID     int64          `db:"artist_id" json:"artist_id"`
	Title        string         `db:"title" json:"title"`
	Status       string         `db:"status" json:"status"`
	PostDate     time.Time      `db:"post_date" json:"post_date"`
	InstagramURL sql.NullString `db:"instagram_url" json:"instagram_url"`
	TiktokURL    sql.NullString `db:"tiktok_url" json:"tiktok_url"`
	YoutubeURL   sql.NullString `db:"youtube_url" json:"youtube_url"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

const (
	PostStatusNotPlanned     = "not planned"
	PostStatusPlanned        = "planned"
	PostStatusAssetsObtained = "assets obtained"
	PostStatusUploaded       = "uploaded"
	PostStatusReady          = "ready"
	PostStatusPosted         = "posted"
)

// PlatformURL returns the published URL for the given platform, or "" when
// the post has not been published there.
func (p *Post) PlatformURL(platform string) string {
	switch platform {
	case PlatformInstagram:
		return p.InstagramURL.String
	case PlatformTiktok:
		return p.TiktokURL.String
	case PlatformYoutube:
		return p.YoutubeURL.String
	}
	return ""
}
