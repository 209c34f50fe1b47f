package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"strings"
	"time"

	config "github.com/rosterline/backstage/configs"
	"github.com/rosterline/backstage/internal/models"
	"github.com/rosterline/backstage/internal/repository"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtube "google.golang.org/api/youtube/v3"
	youtubeanalytics "google.golang.org/api/youtubeanalytics/v2"
)

const (
	YoutubeFormShorts   = "shorts"
	YoutubeFormLongform = "longform"
)

type YoutubeService interface {
	AuthURL(state string) string
	AuthCallback(ctx context.Context, artistID int64, code string) error
	CollectPost(ctx context.Context, post *models.Post) error
}

type youtubeService struct {
	cfg config.Config
	cr  repository.CredentialRepository
	ar  repository.ArtistRepository
	sw  *SnapshotWriter
}

func NewYoutubeService(cfg config.Config, cr repository.CredentialRepository, ar repository.ArtistRepository, sw *SnapshotWriter) YoutubeService {
	return &youtubeService{
		cfg: cfg,
		cr:  cr,
		ar:  ar,
		sw:  sw,
	}
}

// ExtractYoutubeVideoID handles youtu.be/<id>, watch?v=<id> and /shorts/<id>
// URL shapes. The form return value says whether the URL shape marks the post
// as a short; malformed input yields ("", "").
func ExtractYoutubeVideoID(rawURL string) (id, form string) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", ""
	}

	host := strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")

	switch {
	case host == "youtu.be":
		if len(segments) > 0 && segments[0] != "" {
			return segments[0], YoutubeFormLongform
		}
	case strings.HasSuffix(host, "youtube.com"):
		if len(segments) >= 2 && segments[0] == "shorts" && segments[1] != "" {
			return segments[1], YoutubeFormShorts
		}
		if len(segments) >= 1 && segments[0] == "watch" {
			if v := parsed.Query().Get("v"); v != "" {
				return v, YoutubeFormLongform
			}
		}
	}

	return "", ""
}

func youtubeShortsScore(views, likes, comments int64) float64 {
	return float64(views)*0.1 + float64(likes)*2 + float64(comments)*3
}

func youtubeLongformScore(likes, comments int64) float64 {
	return float64(likes) + float64(comments)*2
}

func (s *youtubeService) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.YoutubeClientID,
		ClientSecret: s.cfg.YoutubeClientSecret,
		RedirectURL:  s.cfg.YoutubeRedirectURI,
		Scopes: []string{
			"https://www.googleapis.com/auth/youtube.readonly",
			"https://www.googleapis.com/auth/yt-analytics.readonly",
		},
		Endpoint: google.Endpoint,
	}
}

func (s *youtubeService) AuthURL(state string) string {
	return s.oauthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (s *youtubeService) AuthCallback(ctx context.Context, artistID int64, code string) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	conf := s.oauthConfig()
	if conf.ClientID == "" || conf.ClientSecret == "" || conf.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return err
	}

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	if token.RefreshToken == "" {
		err := errors.New("refresh token is empty")
		slog.Info(err.Error())
		return err
	}

	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return err
	}

	cred := &models.Credential{
		ArtistID:        artistID,
		Platform:        models.PlatformYoutube,
		AccessToken:     token.AccessToken,
		RefreshToken:    token.RefreshToken,
		AccessExpiresAt: token.Expiry,
		// Google refresh tokens have no fixed expiry.
		RefreshExpiresAt: time.Now().AddDate(1, 0, 0),
		Status:           models.CredentialStatusOK,
		TokenJSON:        string(tokenJSON),
	}

	return s.cr.Upsert(ctx, cred)
}

// CollectPost reads public counters with the API key, then tries the
// Analytics API with the artist's own OAuth token. Analytics failures are
// logged and dropped; the basic counters always get their snapshot.
func (s *youtubeService) CollectPost(ctx context.Context, post *models.Post) error {
	videoID, form := ExtractYoutubeVideoID(post.YoutubeURL.String)
	if videoID == "" {
		return fmt.Errorf("unable to parse video id from %q", post.YoutubeURL.String)
	}

	ytService, err := youtube.NewService(ctx, option.WithAPIKey(s.cfg.YoutubeAPIKey))
	if err != nil {
		return fmt.Errorf("error creating YouTube service: %w", err)
	}

	resp, err := ytService.Videos.List([]string{"statistics"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("error fetching video statistics: %w", err)
	}
	if len(resp.Items) == 0 {
		return fmt.Errorf("video %s not found", videoID)
	}

	stats := resp.Items[0].Statistics
	if stats == nil {
		return fmt.Errorf("video %s has no statistics part", videoID)
	}
	views := int64(stats.ViewCount)
	likes := int64(stats.LikeCount)
	comments := int64(stats.CommentCount)

	platform := models.PlatformYoutubeLongform
	score := youtubeLongformScore(likes, comments)
	if form == YoutubeFormShorts {
		platform = models.PlatformYoutubeShorts
		score = youtubeShortsScore(views, likes, comments)
	}

	raw, err := json.Marshal(resp.Items[0])
	if err != nil {
		return err
	}

	snap := &models.MetricSnapshot{
		PostID:          post.ID,
		Platform:        platform,
		SnapshotAt:      time.Now().UTC(),
		Views:           views,
		Likes:           likes,
		Comments:        comments,
		EngagementScore: floatPtr(score),
		RawMetrics:      raw,
	}

	avgDuration, retentionRate, err := s.fetchAnalytics(ctx, post, videoID)
	if err != nil {
		log.Printf("YouTube analytics unavailable for post %d: %v", post.ID, err)
	} else {
		snap.AvgViewDuration = avgDuration
		snap.RetentionRate = retentionRate
	}

	return s.sw.Write(ctx, snap)
}

// fetchAnalytics needs the artist's OAuth credential and channel ID. Unlike
// the other adapters it does not gate on credential status; an expired access
// token is handled by the oauth2 token source refreshing from the refresh
// token.
func (s *youtubeService) fetchAnalytics(ctx context.Context, post *models.Post, videoID string) (*float64, *float64, error) {
	cred, err := s.cr.Get(ctx, post.ArtistID, models.PlatformYoutube)
	if err != nil {
		return nil, nil, err
	}
	if cred == nil || cred.RefreshToken == "" {
		return nil, nil, errors.New("no youtube oauth credential on file")
	}

	artist, err := s.ar.GetByID(ctx, post.ArtistID)
	if err != nil {
		return nil, nil, err
	}
	if artist == nil || artist.YoutubeChannelID == "" {
		return nil, nil, errors.New("artist has no youtube channel id")
	}

	tokenSource := s.oauthConfig().TokenSource(ctx, &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.AccessExpiresAt,
	})

	analyticsService, err := youtubeanalytics.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, nil, err
	}

	result, err := analyticsService.Reports.Query().
		Ids("channel==" + artist.YoutubeChannelID).
		StartDate(post.PostDate.Format("2006-01-02")).
		EndDate(time.Now().Format("2006-01-02")).
		Metrics("views,averageViewDuration,averageViewPercentage").
		Filters("video==" + videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, nil, err
	}

	if token, err := tokenSource.Token(); err == nil && token.AccessToken != cred.AccessToken {
		cred.AccessToken = token.AccessToken
		cred.AccessExpiresAt = token.Expiry
		if err := s.cr.Upsert(ctx, cred); err != nil {
			log.Printf("Error persisting refreshed youtube token for artist %d: %v", cred.ArtistID, err)
		}
	}

	if len(result.Rows) == 0 {
		return nil, nil, errors.New("analytics query returned no rows")
	}

	var avgDuration, retentionRate *float64
	for i, header := range result.ColumnHeaders {
		value, ok := result.Rows[0][i].(float64)
		if !ok {
			continue
		}
		switch header.Name {
		case "averageViewDuration":
			avgDuration = floatPtr(value)
		case "averageViewPercentage":
			retentionRate = floatPtr(value / 100)
		}
	}

	return avgDuration, retentionRate, nil
}
