package queue

import (
	"github.com/rosterline/backstage/internal/service"
)

type Queue struct {
	cs service.CollectorService
}

func NewQueue(cs service.CollectorService) *Queue {
	return &Queue{cs: cs}
}

const TaskTypeCollectMetrics = "metrics:collect"

type CollectMetricsPayload struct {
	Platform string `json:"platform"`
}
