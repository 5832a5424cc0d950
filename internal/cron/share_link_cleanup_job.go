package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/sharecart-backend/pkg/logger"
	"github.com/angelmondragon/sharecart-backend/pkg/metrics"
)

const shareLinkCleanupJobName = "share-link-cleanup"

type ShareLinkCleanupJobParams struct {
	Logger  *logger.Logger
	Links   expiredLinkDeleter
	Metrics *metrics.CronJobMetrics
}

// expiredLinkDeleter is satisfied by sharelinks.Store. Visits are never touched.
type expiredLinkDeleter interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ShareLinkCleanupJob removes share links whose expiry has passed.
type ShareLinkCleanupJob struct {
	logg    *logger.Logger
	links   expiredLinkDeleter
	metrics *metrics.CronJobMetrics
	now     func() time.Time
}

func NewShareLinkCleanupJob(params ShareLinkCleanupJobParams) (*ShareLinkCleanupJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Links == nil {
		return nil, fmt.Errorf("share link store required")
	}
	return &ShareLinkCleanupJob{
		logg:    params.Logger,
		links:   params.Links,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

func (j *ShareLinkCleanupJob) Name() string { return shareLinkCleanupJobName }

func (j *ShareLinkCleanupJob) Run(ctx context.Context) error {
	_, err := j.RunCleanup(ctx, j.now().UTC())
	return err
}

// RunCleanup deletes links with expires_at before now and returns how many went.
func (j *ShareLinkCleanupJob) RunCleanup(ctx context.Context, now time.Time) (int64, error) {
	deleted, err := j.links.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("share link cleanup: %w", err)
	}
	j.metrics.AddDeleted(shareLinkCleanupJobName, deleted)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       now,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "share link cleanup complete")
	return deleted, nil
}
