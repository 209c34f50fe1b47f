package models

import (
	"encoding/json"
	"time"
)

// MetricSnapshot is one row of post_metrics_snapshots. Rows are append-only:
// the pipeline inserts one per successful fetch and never updates or deletes
// them. RawMetrics keeps the untouched provider payload for audit.
type MetricSnapshot struct {
	ID                int64           `db:"id" json:"id"`
	PostID            int64           `db:"post_id" json:"post_id"`
	Platform          string          `db:"platform" json:"platform"`
	SnapshotAt        time.Time       `db:"snapshot_at" json:"snapshot_at"`
	Views             int64           `db:"views" json:"views"`
	Likes             int64           `db:"likes" json:"likes"`
	Comments          int64           `db:"comments" json:"comments"`
	Shares            int64           `db:"shares" json:"shares"`
	Reach             int64           `db:"reach" json:"reach"`
	Saves             int64           `db:"saves" json:"saves"`
	RetentionScore    *float64        `db:"retention_score" json:"retention_score"`
	ShareabilityScore *float64        `db:"shareability_score" json:"shareability_score"`
	EngagementScore   *float64        `db:"engagement_score" json:"engagement_score"`
	AvgViewDuration   *float64        `db:"avg_view_duration" json:"avg_view_duration"`
	RetentionRate     *float64        `db:"retention_rate" json:"retention_rate"`
	RawMetrics        json.RawMessage `db:"raw_metrics" json:"raw_metrics"`
}
