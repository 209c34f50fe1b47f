package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	config "github.com/rosterline/backstage/configs"
	"github.com/rosterline/backstage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTiktokVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"video url", "https://www.tiktok.com/@artist/video/7123456789", "7123456789"},
		{"photo url", "https://www.tiktok.com/@artist/photo/7300000000012345678", "7300000000012345678"},
		{"trailing slash", "https://www.tiktok.com/@artist/video/7123456789/", "7123456789"},
		{"query string", "https://www.tiktok.com/@artist/video/7123456789?is_from_webapp=1", "7123456789"},
		{"short link", "https://vm.tiktok.com/ZMabcdef/", ""},
		{"non numeric id", "https://www.tiktok.com/@artist/video/abcdef", ""},
		{"video segment without id", "https://www.tiktok.com/@artist/video", ""},
		{"profile url", "https://www.tiktok.com/@artist", ""},
		{"empty", "", ""},
		{"unparseable", "http://[::1]:namedport", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTiktokVideoID(tt.url))
		})
	}
}

func TestTiktokRetentionScore(t *testing.T) {
	assert.Equal(t, 3600.0, tiktokRetentionScore(7200, 2*time.Hour))
	// age below one hour is clamped to one hour
	assert.Equal(t, 500.0, tiktokRetentionScore(500, 10*time.Minute))
	assert.Equal(t, 0.0, tiktokRetentionScore(0, 48*time.Hour))
}

func TestTiktokShareabilityScore(t *testing.T) {
	assert.Nil(t, tiktokShareabilityScore(10, 0))
	assert.Nil(t, tiktokShareabilityScore(0, -1))

	score := tiktokShareabilityScore(25, 100)
	require.NotNil(t, score)
	assert.Equal(t, 0.25, *score)
}

func newTestTiktokService(creds *fakeCredentialRepo, snaps *fakeSnapshotRepo) *tiktokService {
	cfg := config.Config{TiktokClientKey: "key", TiktokClientSecret: "secret"}
	svc := NewTiktokService(cfg, creds, NewSnapshotWriter(snaps, nil)).(*tiktokService)
	return svc
}

func TestTiktokRefreshTokenFailureMarksExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token expired"}`))
	}))
	defer server.Close()

	cred := &models.Credential{
		ArtistID:     7,
		Platform:     models.PlatformTiktok,
		RefreshToken: "stale",
		Status:       models.CredentialStatusOK,
	}
	creds := newFakeCredentialRepo(cred)

	svc := newTestTiktokService(creds, &fakeSnapshotRepo{})
	svc.tokenURL = server.URL

	_, err := svc.RefreshToken(context.Background(), cred)
	require.Error(t, err)

	stored, _ := creds.Get(context.Background(), 7, models.PlatformTiktok)
	assert.Equal(t, models.CredentialStatusExpired, stored.Status)
}

func TestTiktokRefreshTokenSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","expires_in":86400,"refresh_expires_in":31536000}`))
	}))
	defer server.Close()

	cred := &models.Credential{
		ArtistID:     7,
		Platform:     models.PlatformTiktok,
		RefreshToken: "old-refresh",
		Status:       models.CredentialStatusOK,
	}
	creds := newFakeCredentialRepo(cred)

	svc := newTestTiktokService(creds, &fakeSnapshotRepo{})
	svc.tokenURL = server.URL

	updated, err := svc.RefreshToken(context.Background(), cred)
	require.NoError(t, err)
	assert.Equal(t, "new-access", updated.AccessToken)
	assert.Equal(t, "new-refresh", updated.RefreshToken)

	stored, _ := creds.Get(context.Background(), 7, models.PlatformTiktok)
	assert.Equal(t, "new-access", stored.AccessToken)
	assert.Equal(t, models.CredentialStatusOK, stored.Status)
	assert.Contains(t, stored.TokenJSON, "new-access")
}

func TestTiktokCollectPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer valid-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"videos":[{"id":"7123456789","view_count":1000,"like_count":50,"comment_count":10,"share_count":20}]},"error":{"code":"ok","message":""}}`))
	}))
	defer server.Close()

	cred := &models.Credential{
		ArtistID:        1,
		Platform:        models.PlatformTiktok,
		AccessToken:     "valid-token",
		AccessExpiresAt: time.Now().Add(time.Hour),
		Status:          models.CredentialStatusOK,
	}
	snaps := &fakeSnapshotRepo{}

	svc := newTestTiktokService(newFakeCredentialRepo(cred), snaps)
	svc.videoURL = server.URL

	post := postedAt(42, 1, models.PlatformTiktok, "https://www.tiktok.com/@artist/video/7123456789", 4*time.Hour)
	require.NoError(t, svc.CollectPost(context.Background(), post))

	require.Len(t, snaps.created, 1)
	snap := snaps.created[0]
	assert.Equal(t, int64(42), snap.PostID)
	assert.Equal(t, models.PlatformTiktok, snap.Platform)
	assert.Equal(t, int64(1000), snap.Views)
	assert.Equal(t, int64(20), snap.Shares)
	require.NotNil(t, snap.ShareabilityScore)
	assert.Equal(t, 0.02, *snap.ShareabilityScore)
	require.NotNil(t, snap.RetentionScore)
	assert.InDelta(t, 250.0, *snap.RetentionScore, 1.0)
	assert.NotEmpty(t, snap.RawMetrics)
}

func TestTiktokCollectPostCredentialGates(t *testing.T) {
	svc := newTestTiktokService(newFakeCredentialRepo(), &fakeSnapshotRepo{})
	post := postedAt(1, 9, models.PlatformTiktok, "https://www.tiktok.com/@x/video/123", time.Hour)

	err := svc.CollectPost(context.Background(), post)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tiktok credential")

	expired := &models.Credential{ArtistID: 9, Platform: models.PlatformTiktok, Status: models.CredentialStatusExpired}
	svc = newTestTiktokService(newFakeCredentialRepo(expired), &fakeSnapshotRepo{})

	err = svc.CollectPost(context.Background(), post)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestTiktokCollectPostMalformedURL(t *testing.T) {
	svc := newTestTiktokService(newFakeCredentialRepo(), &fakeSnapshotRepo{})
	post := postedAt(1, 1, models.PlatformTiktok, "https://www.tiktok.com/@x", time.Hour)

	err := svc.CollectPost(context.Background(), post)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to parse video id")
}
