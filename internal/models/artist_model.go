package models

import "time"

type Artist struct {
	ID               int64     `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	InstagramHandle  string    `db:"instagram_handle" json:"instagram_handle"`
	TiktokHandle     string    `db:"tiktok_handle" json:"tiktok_handle"`
	YoutubeChannelID string    `db:"youtube_channel_id" json:"youtube_channel_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
