package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/rosterline/backstage/configs"
	"github.com/rosterline/backstage/internal/models"
	"github.com/rosterline/backstage/internal/repository"
	"github.com/rosterline/backstage/internal/transfer"
)

const (
	instagramGraphURL   = "https://graph.facebook.com/v21.0"
	instagramRefreshURL = "https://graph.instagram.com/refresh_access_token"

	// The Graph API reports unsupported insight metrics as HTTP 200 with an
	// error payload carrying this code.
	igUnsupportedMetricCode = 100

	igMediaPageLimit = 50
	igMediaMaxPages  = 5
)

var igInsightMetrics = []string{"views", "reach", "saved", "shares", "total_interactions"}
var igInsightMetricsReduced = []string{"reach", "saved"}

type InstagramService interface {
	RefreshToken(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	CollectPost(ctx context.Context, post *models.Post) error
}

type instagramService struct {
	cfg    config.Config
	cr     repository.CredentialRepository
	sw     *SnapshotWriter
	client *http.Client

	graphURL   string
	refreshURL string
}

func NewInstagramService(cfg config.Config, cr repository.CredentialRepository, sw *SnapshotWriter) InstagramService {
	return &instagramService{
		cfg:        cfg,
		cr:         cr,
		sw:         sw,
		client:     &http.Client{Timeout: 30 * time.Second},
		graphURL:   instagramGraphURL,
		refreshURL: instagramRefreshURL,
	}
}

// NormalizePermalink makes stored and API-reported permalinks comparable:
// lowercase host, no query or fragment, no trailing slash.
func NormalizePermalink(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimRight(strings.TrimSpace(rawURL), "/")
	}

	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Host = strings.TrimPrefix(parsed.Host, "www.")
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	return parsed.String()
}

// igEngagementScore weights saves and shares over comments over likes.
func igEngagementScore(likes, comments, saves, shares int64) float64 {
	return float64(likes) + float64(comments)*2 + float64(saves)*3 + float64(shares)*3
}

func (s *instagramService) RefreshToken(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	requestURL := fmt.Sprintf("%s?grant_type=ig_refresh_token&access_token=%s", s.refreshURL, url.QueryEscape(cred.AccessToken))

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	var result transfer.IGRefreshTokenResponse
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	if resp.StatusCode != http.StatusOK || result.AccessToken == "" {
		if statusErr := s.cr.SetStatus(ctx, cred.ArtistID, cred.Platform, models.CredentialStatusExpired); statusErr != nil {
			slog.Info(statusErr.Error())
		}
		if result.Error != nil {
			return nil, fmt.Errorf("refresh failed: %s", result.Error.Message)
		}
		return nil, fmt.Errorf("refresh failed with status %d", resp.StatusCode)
	}

	cred.AccessToken = result.AccessToken
	cred.RefreshToken = result.AccessToken
	cred.AccessExpiresAt = GetExpiresAt(int(result.ExpiresIn))
	cred.Status = models.CredentialStatusOK
	cred.TokenJSON = string(bodyBytes)

	if err := s.cr.Upsert(ctx, cred); err != nil {
		return nil, err
	}

	return cred, nil
}

// CollectPost walks the Graph API chain: pages the token manages, their
// linked business account, media matching the stored permalink, then
// insights. Nothing is written unless every required step held.
func (s *instagramService) CollectPost(ctx context.Context, post *models.Post) error {
	cred, err := s.cr.Get(ctx, post.ArtistID, models.PlatformInstagram)
	if err != nil {
		return err
	}
	if cred == nil {
		return errors.New("no instagram credential on file")
	}
	if cred.Status != models.CredentialStatusOK {
		return fmt.Errorf("instagram credential status is %q", cred.Status)
	}

	if time.Until(cred.AccessExpiresAt) < 5*time.Minute {
		cred, err = s.RefreshToken(ctx, cred)
		if err != nil {
			return err
		}
	}

	igUserID, err := s.resolveBusinessAccount(ctx, cred.AccessToken)
	if err != nil {
		return err
	}

	media, err := s.findMediaByPermalink(ctx, igUserID, cred.AccessToken, post.InstagramURL.String)
	if err != nil {
		return err
	}

	detail, err := s.fetchMediaDetail(ctx, media.ID, cred.AccessToken)
	if err != nil {
		return err
	}

	insights, raw, err := s.fetchInsights(ctx, media.ID, cred.AccessToken)
	if err != nil {
		return err
	}

	views := insights["views"]
	reach := insights["reach"]
	saves := insights["saved"]
	shares := insights["shares"]

	snap := &models.MetricSnapshot{
		PostID:          post.ID,
		Platform:        models.PlatformInstagram,
		SnapshotAt:      time.Now().UTC(),
		Views:           views,
		Likes:           detail.LikeCount,
		Comments:        detail.CommentsCount,
		Shares:          shares,
		Reach:           reach,
		Saves:           saves,
		EngagementScore: floatPtr(igEngagementScore(detail.LikeCount, detail.CommentsCount, saves, shares)),
		RawMetrics:      raw,
	}

	return s.sw.Write(ctx, snap)
}

// resolveBusinessAccount is the two-hop page lookup: list the pages the token
// manages, following paging, then ask each for its linked
// instagram_business_account.
func (s *instagramService) resolveBusinessAccount(ctx context.Context, accessToken string) (string, error) {
	requestURL := fmt.Sprintf("%s/me/accounts?fields=id,name&access_token=%s", s.graphURL, url.QueryEscape(accessToken))

	seen := 0
	for page := 0; page < igMediaMaxPages && requestURL != ""; page++ {
		var pages transfer.FacebookPagesResponse
		if err := s.getJSON(ctx, requestURL, &pages); err != nil {
			return "", fmt.Errorf("failed to list facebook pages: %w", err)
		}
		if pages.Error != nil {
			return "", fmt.Errorf("failed to list facebook pages: %s", pages.Error.Message)
		}

		for _, fbPage := range pages.Data {
			seen++
			accountURL := fmt.Sprintf("%s/%s?fields=instagram_business_account&access_token=%s", s.graphURL, fbPage.ID, url.QueryEscape(accessToken))

			var account transfer.PageIGAccountResponse
			if err := s.getJSON(ctx, accountURL, &account); err != nil {
				slog.Info(err.Error())
				continue
			}
			if account.InstagramBusinessAccount != nil && account.InstagramBusinessAccount.ID != "" {
				return account.InstagramBusinessAccount.ID, nil
			}
		}

		requestURL = pages.Paging.Next
	}

	if seen == 0 {
		return "", errors.New("token manages no facebook pages")
	}
	return "", errors.New("no linked instagram business account found")
}

func (s *instagramService) findMediaByPermalink(ctx context.Context, igUserID, accessToken, postURL string) (*transfer.IGMedia, error) {
	target := NormalizePermalink(postURL)

	requestURL := fmt.Sprintf("%s/%s/media?fields=id,permalink,timestamp&limit=%d&access_token=%s",
		s.graphURL, igUserID, igMediaPageLimit, url.QueryEscape(accessToken))

	for page := 0; page < igMediaMaxPages && requestURL != ""; page++ {
		var list transfer.IGMediaListResponse
		if err := s.getJSON(ctx, requestURL, &list); err != nil {
			return nil, fmt.Errorf("failed to list media: %w", err)
		}
		if list.Error != nil {
			return nil, fmt.Errorf("failed to list media: %s", list.Error.Message)
		}

		for i := range list.Data {
			if NormalizePermalink(list.Data[i].Permalink) == target {
				return &list.Data[i], nil
			}
		}

		requestURL = list.Paging.Next
	}

	return nil, fmt.Errorf("no media matching permalink %s", target)
}

func (s *instagramService) fetchMediaDetail(ctx context.Context, mediaID, accessToken string) (*transfer.IGMediaDetailResponse, error) {
	requestURL := fmt.Sprintf("%s/%s?fields=like_count,comments_count&access_token=%s", s.graphURL, mediaID, url.QueryEscape(accessToken))

	var detail transfer.IGMediaDetailResponse
	if err := s.getJSON(ctx, requestURL, &detail); err != nil {
		return nil, fmt.Errorf("failed to fetch media detail: %w", err)
	}
	if detail.Error != nil {
		return nil, fmt.Errorf("failed to fetch media detail: %s", detail.Error.Message)
	}

	return &detail, nil
}

// fetchInsights asks for the full metric list first; when the API answers
// with code 100 "not supported" it retries once with the reduced list. Any
// other error aborts the post.
func (s *instagramService) fetchInsights(ctx context.Context, mediaID, accessToken string) (map[string]int64, []byte, error) {
	insights, raw, err := s.fetchInsightMetrics(ctx, mediaID, accessToken, igInsightMetrics)
	if err == nil {
		return insights, raw, nil
	}

	var unsupported *unsupportedMetricError
	if errors.As(err, &unsupported) {
		return s.fetchInsightMetrics(ctx, mediaID, accessToken, igInsightMetricsReduced)
	}

	return nil, nil, err
}

type unsupportedMetricError struct {
	message string
}

func (e *unsupportedMetricError) Error() string {
	return e.message
}

func (s *instagramService) fetchInsightMetrics(ctx context.Context, mediaID, accessToken string, metrics []string) (map[string]int64, []byte, error) {
	requestURL := fmt.Sprintf("%s/%s/insights?metric=%s&access_token=%s",
		s.graphURL, mediaID, strings.Join(metrics, ","), url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, nil, err
	}

	var result transfer.IGInsightsResponse
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		slog.Info(err.Error())
		return nil, nil, err
	}

	if result.Error != nil {
		if result.Error.Code == igUnsupportedMetricCode && strings.Contains(result.Error.Message, "not supported") {
			return nil, nil, &unsupportedMetricError{message: result.Error.Message}
		}
		return nil, nil, fmt.Errorf("insights request failed: %s", result.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("insights request returned status %d", resp.StatusCode)
	}

	values := make(map[string]int64)
	for _, insight := range result.Data {
		if len(insight.Values) > 0 {
			values[insight.Name] = insight.Values[0].Value
		}
	}

	return values, bodyBytes, nil
}

func (s *instagramService) getJSON(ctx context.Context, requestURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}
