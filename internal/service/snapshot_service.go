package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rosterline/backstage/internal/models"
	"github.com/rosterline/backstage/internal/repository"
)

// RawArchiver stores a raw provider payload under a key.
type RawArchiver interface {
	UploadJSON(ctx context.Context, key string, payload []byte) error
}

// SnapshotWriter appends metric snapshots. The insert is the one write that
// matters; archiving the raw payload to object storage is best-effort and a
// failure there never fails the snapshot.
type SnapshotWriter struct {
	sr      repository.SnapshotRepository
	archive RawArchiver
}

func NewSnapshotWriter(sr repository.SnapshotRepository, archive RawArchiver) *SnapshotWriter {
	return &SnapshotWriter{sr: sr, archive: archive}
}

func (w *SnapshotWriter) Write(ctx context.Context, snap *models.MetricSnapshot) error {
	if snap.SnapshotAt.IsZero() {
		snap.SnapshotAt = time.Now().UTC()
	}

	if _, err := w.sr.Create(ctx, snap); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	if w.archive != nil && len(snap.RawMetrics) > 0 {
		key := fmt.Sprintf("snapshots/%s/%d/%s.json", snap.Platform, snap.PostID, snap.SnapshotAt.UTC().Format("2006-01-02T15-04-05Z"))
		if err := w.archive.UploadJSON(ctx, key, snap.RawMetrics); err != nil {
			log.Printf("Error archiving raw payload for post %d: %v", snap.PostID, err)
		}
	}

	return nil
}
