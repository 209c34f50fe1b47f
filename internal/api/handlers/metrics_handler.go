package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/rosterline/backstage/configs"
	"github.com/rosterline/backstage/internal/models"
	"github.com/rosterline/backstage/internal/service"
)

type MetricsHandler struct {
	cs     service.CollectorService
	cfg    config.Config
	client *http.Client
}

func NewMetricsHandler(cs service.CollectorService, cfg config.Config) *MetricsHandler {
	return &MetricsHandler{
		cs:     cs,
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (h *MetricsHandler) TiktokBatch(c *fiber.Ctx) error {
	return h.batch(c, models.PlatformTiktok)
}

func (h *MetricsHandler) InstagramBatch(c *fiber.Ctx) error {
	return h.batch(c, models.PlatformInstagram)
}

func (h *MetricsHandler) YoutubeBatch(c *fiber.Ctx) error {
	return h.batch(c, models.PlatformYoutube)
}

// batch runs the orchestrator for one platform. When a post_id is supplied
// only that post is collected, skipping the due check.
func (h *MetricsHandler) batch(c *fiber.Ctx, platform string) error {
	if postID := QueryInt64(c, "post_id"); postID != 0 {
		result, err := h.cs.RunPost(c.Context(), postID, platform)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"ok":     result.OK,
			"result": result,
		})
	}

	summary, err := h.cs.RunPlatform(c.Context(), platform)
	if err != nil {
		log.Printf("Error running %s collection: %v", platform, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":    false,
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":            true,
		"run_id":        summary.RunID,
		"processed":     summary.Processed,
		"success_count": summary.SuccessCount,
		"errors":        summary.Errors(),
	})
}

func (h *MetricsHandler) TiktokSingle(c *fiber.Ctx) error {
	return h.single(c, models.PlatformTiktok,
		"check that the artist's TikTok account is connected and its credential status is ok")
}

func (h *MetricsHandler) InstagramSingle(c *fiber.Ctx) error {
	return h.single(c, models.PlatformInstagram,
		"check that the page token is valid and the post permalink matches a media item on the linked business account")
}

func (h *MetricsHandler) YoutubeSingle(c *fiber.Ctx) error {
	return h.single(c, models.PlatformYoutube,
		"basic counters need only YOUTUBE_API_KEY; analytics additionally need the artist's OAuth grant and channel id")
}

// single is the manual debugging endpoint: verbose error bodies, one post.
func (h *MetricsHandler) single(c *fiber.Ctx, platform, hint string) error {
	postID := QueryInt64(c, "post_id")
	if postID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"ok":    false,
			"error": "post_id is required",
		})
	}

	result, err := h.cs.RunPost(c.Context(), postID, platform)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"ok":      false,
			"error":   err.Error(),
			"details": fmt.Sprintf("post_id=%d platform=%s", postID, platform),
			"hint":    hint,
		})
	}

	if !result.OK {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"ok":      false,
			"error":   result.Reason,
			"details": fmt.Sprintf("post_id=%d platform=%s", postID, platform),
			"hint":    hint,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":     true,
		"result": result,
	})
}

// CollectAll fans out to the three per-platform batch routes over HTTP with
// the shared secret and aggregates their bodies. 200 only when every
// sub-call reported ok, otherwise 207.
func (h *MetricsHandler) CollectAll(c *fiber.Ctx) error {
	platforms := []string{models.PlatformInstagram, models.PlatformTiktok, models.PlatformYoutube}

	allOK := true
	results := make(map[string]interface{}, len(platforms))

	for _, platform := range platforms {
		body, ok := h.callBatch(c, platform)
		results[platform] = body
		if !ok {
			allOK = false
		}
	}

	status := fiber.StatusOK
	if !allOK {
		status = fiber.StatusMultiStatus
	}

	return c.Status(status).JSON(fiber.Map{
		"ok":      allOK,
		"results": results,
	})
}

func (h *MetricsHandler) callBatch(c *fiber.Ctx, platform string) (interface{}, bool) {
	requestURL := fmt.Sprintf("%s/api/metrics/%s-batch", h.cfg.BaseURL, platform)

	req, err := http.NewRequestWithContext(c.Context(), "GET", requestURL, nil)
	if err != nil {
		return fiber.Map{"ok": false, "error": err.Error()}, false
	}
	req.Header.Set("Authorization", "Bearer "+h.cfg.CronSecret)

	resp, err := h.client.Do(req)
	if err != nil {
		log.Printf("Error calling %s batch: %v", platform, err)
		return fiber.Map{"ok": false, "error": err.Error()}, false
	}
	defer resp.Body.Close()

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fiber.Map{"ok": false, "error": err.Error()}, false
	}

	if resp.StatusCode != http.StatusOK {
		return body, false
	}
	if ok, exists := body["ok"].(bool); exists && !ok {
		return body, false
	}

	return body, true
}
