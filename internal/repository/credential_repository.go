package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/rosterline/backstage/internal/models"
)

type CredentialRepository interface {
	Get(ctx context.Context, artistID int64, platform string) (*models.Credential, error)
	Upsert(ctx context.Context, cred *models.Credential) error
	SetStatus(ctx context.Context, artistID int64, platform, status string) error
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Get(ctx context.Context, artistID int64, platform string) (*models.Credential, error) {
	query := `SELECT id, artist_id, platform, access_token, refresh_token,
		access_expires_at, refresh_expires_at, status, last_checked_at, token_json, updated_at
		FROM artist_social_auth_status
		WHERE artist_id = $1 AND platform = $2`
	row := r.db.QueryRowContext(ctx, query, artistID, platform)

	var cred models.Credential
	err := row.Scan(&cred.ID, &cred.ArtistID, &cred.Platform, &cred.AccessToken, &cred.RefreshToken,
		&cred.AccessExpiresAt, &cred.RefreshExpiresAt, &cred.Status, &cred.LastCheckedAt,
		&cred.TokenJSON, &cred.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}

	return &cred, nil
}

// Upsert writes the credential keyed on (artist_id, platform). The unique
// constraint on that pair keeps the table at one row per artist per platform.
func (r *credentialRepository) Upsert(ctx context.Context, cred *models.Credential) error {
	query := `
		INSERT INTO artist_social_auth_status (
			artist_id,
			platform,
			access_token,
			refresh_token,
			access_expires_at,
			refresh_expires_at,
			status,
			last_checked_at,
			token_json,
			updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, $8, CURRENT_TIMESTAMP)
		ON CONFLICT (artist_id, platform) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			access_expires_at = EXCLUDED.access_expires_at,
			refresh_expires_at = EXCLUDED.refresh_expires_at,
			status = EXCLUDED.status,
			last_checked_at = CURRENT_TIMESTAMP,
			token_json = EXCLUDED.token_json,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := r.db.ExecContext(ctx, query,
		cred.ArtistID,
		cred.Platform,
		cred.AccessToken,
		cred.RefreshToken,
		cred.AccessExpiresAt,
		cred.RefreshExpiresAt,
		cred.Status,
		cred.TokenJSON,
	)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}

func (r *credentialRepository) SetStatus(ctx context.Context, artistID int64, platform, status string) error {
	query := `
		UPDATE artist_social_auth_status
		SET status = $3,
			last_checked_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE artist_id = $1 AND platform = $2
	`
	_, err := r.db.ExecContext(ctx, query, artistID, platform, status)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}
