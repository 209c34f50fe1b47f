package models

import "time"

// Credential is one row of artist_social_auth_status: the OAuth material for
// an (artist, platform) pair. At most one row exists per pair; every write
// goes through an upsert on that key.
type Credential struct {
	ID               int64     `db:"id" json:"id"`
	ArtistID         int64     `db:"artist_id" json:"artist_id"`
	Platform         string    `db:"platform" json:"platform"`
	AccessToken      string    `db:"access_token" json:"access_token"`
	RefreshToken     string    `db:"refresh_token" json:"refresh_token"`
	AccessExpiresAt  time.Time `db:"access_expires_at" json:"access_expires_at"`
	RefreshExpiresAt time.Time `db:"refresh_expires_at" json:"refresh_expires_at"`
	Status           string    `db:"status" json:"status"`
	LastCheckedAt    time.Time `db:"last_checked_at" json:"last_checked_at"`
	TokenJSON        string    `db:"token_json" json:"token_json"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

const (
	CredentialStatusOK        = "ok"
	CredentialStatusExpired   = "expired"
	CredentialStatusMissing   = "missing"
	CredentialStatusDismissed = "dismissed"
)

const (
	PlatformInstagram       = "instagram"
	PlatformTiktok          = "tiktok"
	PlatformYoutube         = "youtube"
	PlatformYoutubeShorts   = "youtube_shorts"
	PlatformYoutubeLongform = "youtube_longform"
)
