package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/rosterline/backstage/internal/models"
)

type SnapshotRepository interface {
	Create(ctx context.Context, snap *models.MetricSnapshot) (int64, error)
	LatestByPlatform(ctx context.Context, platforms []string) (map[int64]time.Time, error)
}

type snapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Create appends one snapshot row. There is no update path on this table.
func (r *snapshotRepository) Create(ctx context.Context, snap *models.MetricSnapshot) (int64, error) {
	query := `
		INSERT INTO post_metrics_snapshots (
			post_id,
			platform,
			snapshot_at,
			views,
			likes,
			comments,
			shares,
			reach,
			saves,
			retention_score,
			shareability_score,
			engagement_score,
			avg_view_duration,
			retention_rate,
			raw_metrics
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		snap.PostID,
		snap.Platform,
		snap.SnapshotAt,
		snap.Views,
		snap.Likes,
		snap.Comments,
		snap.Shares,
		snap.Reach,
		snap.Saves,
		snap.RetentionScore,
		snap.ShareabilityScore,
		snap.EngagementScore,
		snap.AvgViewDuration,
		snap.RetentionRate,
		[]byte(snap.RawMetrics),
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

// LatestByPlatform returns the most recent snapshot time per post across the
// given platform values. YouTube passes both its shorts and longform labels.
func (r *snapshotRepository) LatestByPlatform(ctx context.Context, platforms []string) (map[int64]time.Time, error) {
	query := `
		SELECT post_id, MAX(snapshot_at)
		FROM post_metrics_snapshots
		WHERE platform = ANY($1)
		GROUP BY post_id
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(platforms))
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	latest := make(map[int64]time.Time)
	for rows.Next() {
		var postID int64
		var at time.Time
		if err := rows.Scan(&postID, &at); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		latest[postID] = at
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return latest, nil
}
