package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rosterline/backstage/internal/models"
)

func credKey(artistID int64, platform string) string {
	return fmt.Sprintf("%d:%s", artistID, platform)
}

type fakeCredentialRepo struct {
	creds map[string]*models.Credential
}

func newFakeCredentialRepo(creds ...*models.Credential) *fakeCredentialRepo {
	repo := &fakeCredentialRepo{creds: make(map[string]*models.Credential)}
	for _, cred := range creds {
		repo.creds[credKey(cred.ArtistID, cred.Platform)] = cred
	}
	return repo
}

func (r *fakeCredentialRepo) Get(ctx context.Context, artistID int64, platform string) (*models.Credential, error) {
	return r.creds[credKey(artistID, platform)], nil
}

func (r *fakeCredentialRepo) Upsert(ctx context.Context, cred *models.Credential) error {
	stored := *cred
	r.creds[credKey(cred.ArtistID, cred.Platform)] = &stored
	return nil
}

func (r *fakeCredentialRepo) SetStatus(ctx context.Context, artistID int64, platform, status string) error {
	if cred, ok := r.creds[credKey(artistID, platform)]; ok {
		cred.Status = status
	}
	return nil
}

type fakePostRepo struct {
	posts []*models.Post
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	for _, post := range r.posts {
		if post.ID == id {
			return post, nil
		}
	}
	return nil, nil
}

func (r *fakePostRepo) ListPostedByPlatform(ctx context.Context, platform string, maxAge time.Duration) ([]*models.Post, error) {
	var matched []*models.Post
	for _, post := range r.posts {
		if post.Status != models.PostStatusPosted || post.PlatformURL(platform) == "" {
			continue
		}
		if maxAge > 0 && time.Since(post.PostDate) > maxAge {
			continue
		}
		matched = append(matched, post)
	}
	return matched, nil
}

type fakeSnapshotRepo struct {
	created []*models.MetricSnapshot
	latest  map[int64]time.Time
}

func (r *fakeSnapshotRepo) Create(ctx context.Context, snap *models.MetricSnapshot) (int64, error) {
	r.created = append(r.created, snap)
	return int64(len(r.created)), nil
}

func (r *fakeSnapshotRepo) LatestByPlatform(ctx context.Context, platforms []string) (map[int64]time.Time, error) {
	if r.latest == nil {
		return map[int64]time.Time{}, nil
	}
	return r.latest, nil
}

type fakeArtistRepo struct {
	artists map[int64]*models.Artist
}

func (r *fakeArtistRepo) GetByID(ctx context.Context, id int64) (*models.Artist, error) {
	return r.artists[id], nil
}

func postedAt(id, artistID int64, platform, url string, age time.Duration) *models.Post {
	post := &models.Post{
		ID:       id,
		ArtistID: artistID,
		Status:   models.PostStatusPosted,
		PostDate: time.Now().Add(-age),
	}
	switch platform {
	case models.PlatformInstagram:
		post.InstagramURL = sql.NullString{String: url, Valid: url != ""}
	case models.PlatformTiktok:
		post.TiktokURL = sql.NullString{String: url, Valid: url != ""}
	case models.PlatformYoutube:
		post.YoutubeURL = sql.NullString{String: url, Valid: url != ""}
	}
	return post
}
