package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rosterline/backstage/internal/models"
	"github.com/rosterline/backstage/internal/repository"
	"github.com/rosterline/backstage/internal/transfer"
)

const (
	// Posts within a run are processed one at a time; the cap bounds how many
	// external call chains a single run can open.
	collectorRunCap = 20

	// YouTube posts older than this are no longer polled at all.
	youtubeMaxPostAge = 45 * 24 * time.Hour
)

type CollectorService interface {
	RunPlatform(ctx context.Context, platform string) (*transfer.CollectionSummary, error)
	RunPost(ctx context.Context, postID int64, platform string) (*transfer.CollectionResult, error)
}

type collectorService struct {
	pr repository.PostRepository
	sr repository.SnapshotRepository
	tt TiktokService
	ig InstagramService
	yt YoutubeService
}

func NewCollectorService(
	pr repository.PostRepository,
	sr repository.SnapshotRepository,
	tt TiktokService,
	ig InstagramService,
	yt YoutubeService) CollectorService {
	return &collectorService{
		pr: pr,
		sr: sr,
		tt: tt,
		ig: ig,
		yt: yt,
	}
}

// refreshInterval is the minimum gap between snapshots for a post of the
// given age: daily while the post is fresh, weekly after three days.
func refreshInterval(postAge time.Duration) time.Duration {
	if postAge <= 72*time.Hour {
		return 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

// isDue reports whether the post needs a new snapshot. Posts that were never
// snapshotted are always due.
func isDue(post *models.Post, lastSnapshot time.Time, now time.Time) bool {
	if lastSnapshot.IsZero() {
		return true
	}
	return now.Sub(lastSnapshot) >= refreshInterval(now.Sub(post.PostDate))
}

// snapshotPlatforms maps a collection platform to the platform values its
// snapshots carry. YouTube writes shorts and longform under distinct labels.
func snapshotPlatforms(platform string) []string {
	if platform == models.PlatformYoutube {
		return []string{models.PlatformYoutubeShorts, models.PlatformYoutubeLongform}
	}
	return []string{platform}
}

// RunPlatform selects due posts for one platform and processes them
// sequentially. Per-post failures are recorded in the summary and never
// abort the run.
func (c *collectorService) RunPlatform(ctx context.Context, platform string) (*transfer.CollectionSummary, error) {
	maxAge := time.Duration(0)
	if platform == models.PlatformYoutube {
		maxAge = youtubeMaxPostAge
	}

	posts, err := c.pr.ListPostedByPlatform(ctx, platform, maxAge)
	if err != nil {
		return nil, err
	}

	latest, err := c.sr.LatestByPlatform(ctx, snapshotPlatforms(platform))
	if err != nil {
		return nil, err
	}

	runID, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	summary := &transfer.CollectionSummary{
		RunID:    runID,
		Platform: platform,
	}

	now := time.Now()
	for _, post := range posts {
		if summary.Processed >= collectorRunCap {
			break
		}
		if !isDue(post, latest[post.ID], now) {
			continue
		}

		summary.Processed++

		result := &transfer.CollectionResult{PostID: post.ID}
		if err := c.collectOne(ctx, post, platform); err != nil {
			result.Reason = err.Error()
			log.Printf("Error collecting %s metrics for post %d: %v", platform, post.ID, err)
		} else {
			result.OK = true
			summary.SuccessCount++
		}
		summary.Results = append(summary.Results, result)
	}

	log.Printf("Collection run %s (%s): processed=%d success=%d", runID, platform, summary.Processed, summary.SuccessCount)
	return summary, nil
}

// RunPost drives a single post through the pipeline, skipping the due check.
func (c *collectorService) RunPost(ctx context.Context, postID int64, platform string) (*transfer.CollectionResult, error) {
	post, err := c.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("post %d not found", postID)
	}
	if post.PlatformURL(platform) == "" {
		return nil, fmt.Errorf("post %d has no %s url", postID, platform)
	}

	result := &transfer.CollectionResult{PostID: postID}
	if err := c.collectOne(ctx, post, platform); err != nil {
		result.Reason = err.Error()
		return result, nil
	}

	result.OK = true
	return result, nil
}

func (c *collectorService) collectOne(ctx context.Context, post *models.Post, platform string) error {
	switch platform {
	case models.PlatformTiktok:
		return c.tt.CollectPost(ctx, post)
	case models.PlatformInstagram:
		return c.ig.CollectPost(ctx, post)
	case models.PlatformYoutube:
		return c.yt.CollectPost(ctx, post)
	}
	return errors.New("unknown platform " + platform)
}
