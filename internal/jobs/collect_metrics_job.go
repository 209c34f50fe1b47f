package job

import (
	"log"

	"github.com/hibiken/asynq"
	"github.com/rosterline/backstage/internal/models"
	"github.com/rosterline/backstage/internal/queue"
)

// CollectMetricsJob is the cron entry point: it fans the three platforms out
// as queue tasks so the worker picks them up one run per platform.
type CollectMetricsJob struct {
	client *asynq.Client
}

func NewCollectMetricsJob(client *asynq.Client) *CollectMetricsJob {
	return &CollectMetricsJob{client: client}
}

func (j *CollectMetricsJob) EnqueueAll() {
	platforms := []string{models.PlatformTiktok, models.PlatformInstagram, models.PlatformYoutube}

	for _, platform := range platforms {
		payload := queue.CollectMetricsPayload{Platform: platform}
		if err := queue.EnqueueCollection(j.client, payload); err != nil {
			log.Printf("Error enqueueing %s collection: %v", platform, err)
		}
	}
}
