package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
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
	tiktokAuthURL     = "https://www.tiktok.com/v2/auth/authorize"
	tiktokTokenURL    = "https://open.tiktokapis.com/v2/oauth/token/"
	tiktokVideoURL    = "https://open.tiktokapis.com/v2/video/query/"
	tiktokUserInfoURL = "https://open.tiktokapis.com/v2/user/info/"
)

type TiktokService interface {
	AuthURL(state, codeChallenge string) string
	AuthCallback(ctx context.Context, artistID int64, code, codeVerifier string) error
	RefreshToken(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	CollectPost(ctx context.Context, post *models.Post) error
}

type tiktokService struct {
	cfg    config.Config
	cr     repository.CredentialRepository
	sw     *SnapshotWriter
	client *http.Client

	tokenURL    string
	videoURL    string
	userInfoURL string
}

func NewTiktokService(cfg config.Config, cr repository.CredentialRepository, sw *SnapshotWriter) TiktokService {
	return &tiktokService{
		cfg:         cfg,
		cr:          cr,
		sw:          sw,
		client:      &http.Client{Timeout: 30 * time.Second},
		tokenURL:    tiktokTokenURL,
		videoURL:    tiktokVideoURL,
		userInfoURL: tiktokUserInfoURL,
	}
}

// ExtractTiktokVideoID pulls the numeric ID following /video/ or /photo/ out
// of a TikTok URL. Malformed input yields "" rather than an error.
func ExtractTiktokVideoID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment != "video" && segment != "photo" {
			continue
		}
		if i+1 >= len(segments) {
			return ""
		}
		id := segments[i+1]
		if id != "" && isDigits(id) {
			return id
		}
		return ""
	}

	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// tiktokRetentionScore is views per hour since posting, with the age clamped
// to at least one hour so fresh posts don't blow the score up.
func tiktokRetentionScore(views int64, age time.Duration) float64 {
	ageHours := age.Hours()
	if ageHours < 1 {
		ageHours = 1
	}
	return float64(views) / ageHours
}

// tiktokShareabilityScore is shares over views; nil when there are no views
// yet so the column stays NULL instead of recording a division artifact.
func tiktokShareabilityScore(shares, views int64) *float64 {
	if views <= 0 {
		return nil
	}
	return floatPtr(float64(shares) / float64(views))
}

func (s *tiktokService) AuthURL(state, codeChallenge string) string {
	params := url.Values{}
	params.Add("client_key", s.cfg.TiktokClientKey)
	params.Add("scope", "user.info.basic,video.list")
	params.Add("response_type", "code")
	params.Add("redirect_uri", s.cfg.TiktokRedirectURI)
	params.Add("state", state)
	params.Add("code_challenge", codeChallenge)
	params.Add("code_challenge_method", "S256")

	return fmt.Sprintf("%s?%s", tiktokAuthURL, params.Encode())
}

func (s *tiktokService) AuthCallback(ctx context.Context, artistID int64, code, codeVerifier string) error {
	if code == "" {
		err := errors.New("code is empty")
		slog.Info(err.Error())
		return err
	}

	data := url.Values{}
	data.Set("client_key", s.cfg.TiktokClientKey)
	data.Set("client_secret", s.cfg.TiktokClientSecret)
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", s.cfg.TiktokRedirectURI)
	data.Set("code_verifier", codeVerifier)

	tokenResponse, raw, err := s.requestToken(ctx, data)
	if err != nil {
		return err
	}

	userInfo, err := s.fetchUserInfo(ctx, tokenResponse.AccessToken)
	if err != nil {
		log.Printf("Error fetching TikTok user info: %v", err)
	} else {
		log.Printf("TikTok account linked: %s", userInfo.Data.User.Username)
	}

	cred := &models.Credential{
		ArtistID:         artistID,
		Platform:         models.PlatformTiktok,
		AccessToken:      tokenResponse.AccessToken,
		RefreshToken:     tokenResponse.RefreshToken,
		AccessExpiresAt:  GetExpiresAt(tokenResponse.ExpiresIn),
		RefreshExpiresAt: GetExpiresAt(tokenResponse.RefreshExpiresIn),
		Status:           models.CredentialStatusOK,
		TokenJSON:        string(raw),
	}

	return s.cr.Upsert(ctx, cred)
}

// RefreshToken exchanges the stored refresh token for a new access token. A
// rejected refresh flips the credential status to expired so later runs skip
// this artist without another round trip to TikTok.
func (s *tiktokService) RefreshToken(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	data := url.Values{}
	data.Set("client_key", s.cfg.TiktokClientKey)
	data.Set("client_secret", s.cfg.TiktokClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", cred.RefreshToken)

	tokenResponse, raw, err := s.requestToken(ctx, data)
	if err != nil {
		if statusErr := s.cr.SetStatus(ctx, cred.ArtistID, cred.Platform, models.CredentialStatusExpired); statusErr != nil {
			log.Printf("Error marking tiktok credential expired for artist %d: %v", cred.ArtistID, statusErr)
		}
		return nil, fmt.Errorf("refresh failed: %w", err)
	}

	cred.AccessToken = tokenResponse.AccessToken
	cred.RefreshToken = tokenResponse.RefreshToken
	cred.AccessExpiresAt = GetExpiresAt(tokenResponse.ExpiresIn)
	cred.RefreshExpiresAt = GetExpiresAt(tokenResponse.RefreshExpiresIn)
	cred.Status = models.CredentialStatusOK
	cred.TokenJSON = string(raw)

	if err := s.cr.Upsert(ctx, cred); err != nil {
		return nil, err
	}

	return cred, nil
}

func (s *tiktokService) requestToken(ctx context.Context, data url.Values) (*transfer.TiktokTokenResponse, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", s.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Info(err.Error())
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		slog.Info("TikTok token endpoint returned non-200 status")
		return nil, nil, fmt.Errorf("TikTok token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResponse transfer.TiktokTokenResponse
	if err := json.Unmarshal(bodyBytes, &tokenResponse); err != nil {
		slog.Info(err.Error())
		return nil, nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	if tokenResponse.AccessToken == "" {
		return nil, nil, fmt.Errorf("TikTok token endpoint returned no access token: %s", tokenResponse.ErrorDescription)
	}

	return &tokenResponse, bodyBytes, nil
}

func (s *tiktokService) fetchUserInfo(ctx context.Context, accessToken string) (*transfer.TiktokUserInfoResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.userInfoURL+"?fields=open_id,avatar_url,display_name,username", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer resp.Body.Close()

	var result transfer.TiktokUserInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return &result, nil
}

// CollectPost resolves the post's video ID and credential, refreshes the
// access token when it is about to lapse, fetches counters and writes one
// snapshot row.
func (s *tiktokService) CollectPost(ctx context.Context, post *models.Post) error {
	videoID := ExtractTiktokVideoID(post.TiktokURL.String)
	if videoID == "" {
		return fmt.Errorf("unable to parse video id from %q", post.TiktokURL.String)
	}

	cred, err := s.cr.Get(ctx, post.ArtistID, models.PlatformTiktok)
	if err != nil {
		return err
	}
	if cred == nil {
		return errors.New("no tiktok credential on file")
	}
	if cred.Status != models.CredentialStatusOK {
		return fmt.Errorf("tiktok credential status is %q", cred.Status)
	}

	if time.Until(cred.AccessExpiresAt) < 5*time.Minute {
		cred, err = s.RefreshToken(ctx, cred)
		if err != nil {
			return err
		}
	}

	metrics, raw, err := s.fetchVideoMetrics(ctx, videoID, cred.AccessToken)
	if err != nil {
		return err
	}

	snap := &models.MetricSnapshot{
		PostID:            post.ID,
		Platform:          models.PlatformTiktok,
		SnapshotAt:        time.Now().UTC(),
		Views:             metrics.ViewCount,
		Likes:             metrics.LikeCount,
		Comments:          metrics.CommentCount,
		Shares:            metrics.ShareCount,
		RetentionScore:    floatPtr(tiktokRetentionScore(metrics.ViewCount, time.Since(post.PostDate))),
		ShareabilityScore: tiktokShareabilityScore(metrics.ShareCount, metrics.ViewCount),
		RawMetrics:        raw,
	}

	return s.sw.Write(ctx, snap)
}

func (s *tiktokService) fetchVideoMetrics(ctx context.Context, videoID, accessToken string) (*transfer.TiktokVideoMetrics, []byte, error) {
	queryRequest := transfer.TiktokVideoQueryRequest{
		Filters: transfer.TiktokVideoFilters{VideoIDs: []string{videoID}},
	}

	jsonData, err := json.Marshal(queryRequest)
	if err != nil {
		return nil, nil, err
	}

	requestURL := s.videoURL + "?fields=id,view_count,like_count,comment_count,share_count"
	req, err := http.NewRequestWithContext(ctx, "POST", requestURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

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

	var result transfer.TiktokVideoQueryResponse
	if err := json.Unmarshal(bodyBytes, &result); err != nil {
		slog.Info(err.Error())
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("TikTok video query returned status %d: %s", resp.StatusCode, result.Error.Message)
	}

	if result.Error.Code != "" && result.Error.Code != "ok" {
		return nil, nil, fmt.Errorf("TikTok video query error: %s", result.Error.Message)
	}

	if len(result.Data.Videos) == 0 {
		return nil, nil, fmt.Errorf("video %s not found in TikTok response", videoID)
	}

	return &result.Data.Videos[0], bodyBytes, nil
}
