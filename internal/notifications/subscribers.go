package notifications

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jordanvales/threadswap-backend/pkg/db"
	"github.com/jordanvales/threadswap-backend/pkg/db/models"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
)

// DefaultStaleAfter is how long a subscriber may go unseen before the sweep
// removes it.
const DefaultStaleAfter = 90 * 24 * time.Hour

// SweepResult reports what one invalidation pass did.
type SweepResult struct {
	Removed int64
	Batches int
}

// SubscriberSweeper removes disabled and long-unseen push subscribers. Large
// sweeps are split into store-sized delete batches that run in parallel.
type SubscriberSweeper struct {
	conn       *gorm.DB
	staleAfter time.Duration
	logg       *logger.Logger
}

func NewSubscriberSweeper(conn *gorm.DB, staleAfter time.Duration, logg *logger.Logger) (*SubscriberSweeper, error) {
	if conn == nil {
		return nil, fmt.Errorf("db is required")
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &SubscriberSweeper{conn: conn, staleAfter: staleAfter, logg: logg}, nil
}

// Sweep deletes every disabled subscriber and every subscriber not seen
// since the staleness cutoff.
func (s *SubscriberSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	cutoff := time.Now().UTC().Add(-s.staleAfter)

	var ids []uuid.UUID
	err := s.conn.WithContext(ctx).
		Model(&models.PushSubscriber{}).
		Where("enabled = ? OR last_seen_at < ? OR (last_seen_at IS NULL AND created_at < ?)", false, cutoff, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return SweepResult{}, fmt.Errorf("collecting stale subscribers: %w", err)
	}
	if len(ids) == 0 {
		return SweepResult{}, nil
	}

	var removed atomic.Int64
	var batches atomic.Int32
	err = db.ForEachChunk(ctx, ids, db.MaxBatchOps, func(ctx context.Context, chunk []uuid.UUID) error {
		res := s.conn.WithContext(ctx).
			Where("id IN ?", chunk).
			Delete(&models.PushSubscriber{})
		if res.Error != nil {
			return fmt.Errorf("deleting subscriber batch: %w", res.Error)
		}
		removed.Add(res.RowsAffected)
		batches.Add(1)
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Removed: removed.Load(), Batches: int(batches.Load())}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"removed": result.Removed,
			"batches": result.Batches,
		})
		s.logg.Info(ctx, "stale push subscribers swept")
	}
	return result, nil
}
