package queue

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

func (q *Queue) HandleCollectMetricsTask(ctx context.Context, task *asynq.Task) error {
	var payload CollectMetricsPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	summary, err := q.cs.RunPlatform(ctx, payload.Platform)
	if err != nil {
		log.Printf("Error running %s collection: %v", payload.Platform, err)
		return err
	}

	for _, failed := range summary.Errors() {
		log.Printf("Post %d failed in run %s: %s", failed.PostID, summary.RunID, failed.Reason)
	}

	return nil
}
