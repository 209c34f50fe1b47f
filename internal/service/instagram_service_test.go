package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	config "github.com/rosterline/backstage/configs"
	"github.com/rosterline/backstage/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePermalink(t *testing.T) {
	assert.Equal(t,
		NormalizePermalink("https://instagram.com/p/ABC"),
		NormalizePermalink("https://instagram.com/p/ABC/"))

	assert.Equal(t,
		NormalizePermalink("https://www.instagram.com/p/ABC/"),
		NormalizePermalink("https://INSTAGRAM.com/p/ABC"))

	assert.Equal(t,
		NormalizePermalink("https://instagram.com/p/ABC/?igsh=xyz"),
		NormalizePermalink("https://instagram.com/p/ABC"))

	// path casing is significant, media shortcodes are case-sensitive
	assert.NotEqual(t,
		NormalizePermalink("https://instagram.com/p/abc"),
		NormalizePermalink("https://instagram.com/p/ABC"))
}

func TestIGEngagementScore(t *testing.T) {
	assert.Equal(t, 0.0, igEngagementScore(0, 0, 0, 0))
	assert.Equal(t, 100.0+2*20+3*10+3*5, igEngagementScore(100, 20, 10, 5))
}

func newTestInstagramService(graphURL string, creds *fakeCredentialRepo, snaps *fakeSnapshotRepo) *instagramService {
	svc := NewInstagramService(config.Config{}, creds, NewSnapshotWriter(snaps, nil)).(*instagramService)
	svc.graphURL = graphURL
	return svc
}

func validIGCredential(artistID int64) *models.Credential {
	return &models.Credential{
		ArtistID:        artistID,
		Platform:        models.PlatformInstagram,
		AccessToken:     "page-token",
		AccessExpiresAt: time.Now().Add(24 * time.Hour),
		Status:          models.CredentialStatusOK,
	}
}

// igGraphStub serves the whole resolution chain for one media item.
func igGraphStub(insights func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/me/accounts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":"page1","name":"Artist Page"}]}`))
	})
	mux.HandleFunc("/page1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"instagram_business_account":{"id":"ig9"}}`))
	})
	mux.HandleFunc("/ig9/media", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":"m1","permalink":"https://www.instagram.com/p/OTHER/","timestamp":"2026-08-01T10:00:00+0000"},
			{"id":"m2","permalink":"https://www.instagram.com/p/ABC/","timestamp":"2026-08-02T10:00:00+0000"}
		]}`))
	})
	mux.HandleFunc("/m2", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"m2","like_count":100,"comments_count":20}`))
	})
	mux.HandleFunc("/m2/insights", insights)
	return httptest.NewServer(mux)
}

func TestInstagramCollectPost(t *testing.T) {
	server := igGraphStub(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"name":"views","values":[{"value":5000}]},
			{"name":"reach","values":[{"value":4000}]},
			{"name":"saved","values":[{"value":10}]},
			{"name":"shares","values":[{"value":5}]},
			{"name":"total_interactions","values":[{"value":135}]}
		]}`))
	})
	defer server.Close()

	snaps := &fakeSnapshotRepo{}
	svc := newTestInstagramService(server.URL, newFakeCredentialRepo(validIGCredential(3)), snaps)

	post := postedAt(11, 3, models.PlatformInstagram, "https://instagram.com/p/ABC", 24*time.Hour)
	require.NoError(t, svc.CollectPost(context.Background(), post))

	require.Len(t, snaps.created, 1)
	snap := snaps.created[0]
	assert.Equal(t, int64(5000), snap.Views)
	assert.Equal(t, int64(4000), snap.Reach)
	assert.Equal(t, int64(10), snap.Saves)
	assert.Equal(t, int64(5), snap.Shares)
	assert.Equal(t, int64(100), snap.Likes)
	assert.Equal(t, int64(20), snap.Comments)
	require.NotNil(t, snap.EngagementScore)
	assert.Equal(t, igEngagementScore(100, 20, 10, 5), *snap.EngagementScore)
}

func TestInstagramInsightsFallback(t *testing.T) {
	var calls []string
	server := igGraphStub(func(w http.ResponseWriter, r *http.Request) {
		metric := r.URL.Query().Get("metric")
		calls = append(calls, metric)
		if strings.Contains(metric, "views") {
			// the Graph API reports unsupported metrics as HTTP 200
			w.Write([]byte(`{"error":{"message":"(#100) metric[0] must be one of the following values... views is not supported","type":"OAuthException","code":100}}`))
			return
		}
		w.Write([]byte(`{"data":[
			{"name":"reach","values":[{"value":300}]},
			{"name":"saved","values":[{"value":7}]}
		]}`))
	})
	defer server.Close()

	snaps := &fakeSnapshotRepo{}
	svc := newTestInstagramService(server.URL, newFakeCredentialRepo(validIGCredential(3)), snaps)

	post := postedAt(11, 3, models.PlatformInstagram, "https://instagram.com/p/ABC/", 24*time.Hour)
	require.NoError(t, svc.CollectPost(context.Background(), post))

	require.Len(t, calls, 2)
	assert.Equal(t, "reach,saved", calls[1])

	require.Len(t, snaps.created, 1)
	snap := snaps.created[0]
	assert.Equal(t, int64(0), snap.Views)
	assert.Equal(t, int64(300), snap.Reach)
	assert.Equal(t, int64(7), snap.Saves)
}

func TestInstagramInsightsOtherErrorAborts(t *testing.T) {
	server := igGraphStub(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`))
	})
	defer server.Close()

	snaps := &fakeSnapshotRepo{}
	svc := newTestInstagramService(server.URL, newFakeCredentialRepo(validIGCredential(3)), snaps)

	post := postedAt(11, 3, models.PlatformInstagram, "https://instagram.com/p/ABC", 24*time.Hour)
	err := svc.CollectPost(context.Background(), post)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid OAuth access token")
	assert.Empty(t, snaps.created)
}

func TestInstagramCollectPostNoMatchingMedia(t *testing.T) {
	server := igGraphStub(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	})
	defer server.Close()

	svc := newTestInstagramService(server.URL, newFakeCredentialRepo(validIGCredential(3)), &fakeSnapshotRepo{})

	post := postedAt(11, 3, models.PlatformInstagram, "https://instagram.com/p/MISSING", 24*time.Hour)
	err := svc.CollectPost(context.Background(), post)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no media matching permalink")
}

func TestInstagramCredentialGate(t *testing.T) {
	dismissed := validIGCredential(3)
	dismissed.Status = models.CredentialStatusDismissed

	svc := newTestInstagramService("http://never-called.invalid", newFakeCredentialRepo(dismissed), &fakeSnapshotRepo{})

	post := postedAt(11, 3, models.PlatformInstagram, "https://instagram.com/p/ABC", 24*time.Hour)
	err := svc.CollectPost(context.Background(), post)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dismissed")
}

// A stale access token must be refreshed before the Graph chain runs, not
// ridden until the API rejects it.
func TestInstagramCollectPostRefreshesExpiringToken(t *testing.T) {
	graph := igGraphStub(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"name":"reach","values":[{"value":300}]},
			{"name":"saved","values":[{"value":7}]}
		]}`))
	})
	defer graph.Close()

	refreshCalls := 0
	refresh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls++
		assert.Equal(t, "ig_refresh_token", r.URL.Query().Get("grant_type"))
		w.Write([]byte(`{"access_token":"fresh-token","token_type":"bearer","expires_in":5184000}`))
	}))
	defer refresh.Close()

	cred := validIGCredential(3)
	cred.AccessExpiresAt = time.Now().Add(-time.Hour)
	creds := newFakeCredentialRepo(cred)

	snaps := &fakeSnapshotRepo{}
	svc := newTestInstagramService(graph.URL, creds, snaps)
	svc.refreshURL = refresh.URL

	post := postedAt(11, 3, models.PlatformInstagram, "https://instagram.com/p/ABC", 24*time.Hour)
	require.NoError(t, svc.CollectPost(context.Background(), post))

	assert.Equal(t, 1, refreshCalls)
	require.Len(t, snaps.created, 1)

	stored, _ := creds.Get(context.Background(), 3, models.PlatformInstagram)
	assert.Equal(t, "fresh-token", stored.AccessToken)
	assert.Equal(t, models.CredentialStatusOK, stored.Status)
}

// The business account can sit on a later page of /me/accounts.
func TestInstagramResolvesAccountAcrossPages(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/me/accounts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") == "pageA" {
			w.Write([]byte(`{"data":[{"id":"page1","name":"Artist Page"}]}`))
			return
		}
		fmt.Fprintf(w, `{"data":[{"id":"pageA","name":"Label Page"}],"paging":{"next":"%s/me/accounts?after=pageA"}}`, server.URL)
	})
	mux.HandleFunc("/pageA", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"pageA"}`))
	})
	mux.HandleFunc("/page1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"instagram_business_account":{"id":"ig9"}}`))
	})

	svc := newTestInstagramService(server.URL, newFakeCredentialRepo(), &fakeSnapshotRepo{})

	igUserID, err := svc.resolveBusinessAccount(context.Background(), "page-token")
	require.NoError(t, err)
	assert.Equal(t, "ig9", igUserID)
}

func TestInstagramRefreshTokenFailureMarksExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Error validating access token","type":"OAuthException","code":190}}`))
	}))
	defer server.Close()

	cred := validIGCredential(3)
	creds := newFakeCredentialRepo(cred)

	svc := NewInstagramService(config.Config{}, creds, NewSnapshotWriter(&fakeSnapshotRepo{}, nil)).(*instagramService)
	svc.refreshURL = server.URL

	_, err := svc.RefreshToken(context.Background(), cred)
	require.Error(t, err)

	stored, _ := creds.Get(context.Background(), 3, models.PlatformInstagram)
	assert.Equal(t, models.CredentialStatusExpired, stored.Status)
}
