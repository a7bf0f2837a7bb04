package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamhub/kb-api/internal/models"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
	"github.com/teamhub/kb-api/pkg/jobs"
)

type activityRepository interface {
	Create(ctx context.Context, activity *models.Activity) error
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error)
}

type activityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}


// ActivityEvent describes one stream entry to be recorded.
type ActivityEvent struct {
	UserID      string
	Action      models.ActivityAction
	Target      models.ActivityTarget
	TargetID    string
	TargetTitle string
	SpaceID     *string
	Metadata    map[string]interface{}
}

// ActivityService records the activity stream asynchronously through a
// worker queue and serves the feed with a short-lived cache in front.
type ActivityService struct {
	repo      activityRepository
	cache     activityCache
	metrics   *MetricsService
	queue     *jobs.Queue
	logger    *zap.Logger
	feedLimit int
	cacheTTL  time.Duration
}

// ActivityServiceConfig controls feed defaults and queue sizing.
type ActivityServiceConfig struct {
	Workers    int
	BufferSize int
	FeedLimit  int
	CacheTTL   time.Duration
	Metrics    *MetricsService
}

// NewActivityService constructs the service and its backing queue. Call
// Start before enqueuing and Stop on shutdown.
func NewActivityService(repo activityRepository, cache activityCache, logger *zap.Logger, cfg ActivityServiceConfig) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FeedLimit <= 0 {
		cfg.FeedLimit = 50
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}

	s := &ActivityService{
		repo:      repo,
		cache:     cache,
		metrics:   cfg.Metrics,
		logger:    logger,
		feedLimit: cfg.FeedLimit,
		cacheTTL:  cfg.CacheTTL,
	}
	s.queue = jobs.NewQueue("activities", s.handleRecordJob, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the background workers.
func (s *ActivityService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the background workers.
func (s *ActivityService) Stop() {
	s.queue.Stop()
}

// Record enqueues an activity entry. Recording is best effort: a full
// queue or stopped worker pool must never fail the originating request.
func (s *ActivityService) Record(event ActivityEvent) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "activity.record",
		Payload: event,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("dropping activity event",
			zap.String("action", string(event.Action)),
			zap.String("target", string(event.Target)),
			zap.Error(err))
	}
}

func (s *ActivityService) handleRecordJob(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(ActivityEvent)
	if !ok {
		s.logger.Error("unexpected activity job payload", zap.String("job_id", job.ID))
		return nil
	}

	activity := &models.Activity{
		ID:          uuid.NewString(),
		UserID:      event.UserID,
		Action:      event.Action,
		Target:      event.Target,
		TargetID:    event.TargetID,
		TargetTitle: event.TargetTitle,
		SpaceID:     event.SpaceID,
		CreatedAt:   time.Now().UTC(),
	}
	if event.Metadata != nil {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal activity metadata: %w", err)
		}
		activity.Metadata = raw
	}

	if err := s.repo.Create(ctx, activity); err != nil {
		return err
	}
	s.metrics.RecordActivity(string(event.Action))

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, "activities:*"); err != nil {
			s.logger.Warn("failed to invalidate activity cache", zap.Error(err))
		}
	}
	return nil
}

// FeedQuery narrows the activity feed.
type FeedQuery struct {
	UserID    string
	OnlyMine  bool
	TimeRange string
	Limit     int
}

// Feed returns recent activity entries, optionally scoped to the caller
// and a time range of day, week or month.
func (s *ActivityService) Feed(ctx context.Context, query FeedQuery) ([]models.Activity, error) {
	filter := models.ActivityFilter{Limit: query.Limit}
	if filter.Limit <= 0 || filter.Limit > s.feedLimit {
		filter.Limit = s.feedLimit
	}
	if query.OnlyMine {
		filter.UserID = query.UserID
	}

	switch query.TimeRange {
	case "", "all":
	case "day":
		since := time.Now().UTC().Add(-24 * time.Hour)
		filter.Since = &since
	case "week":
		since := time.Now().UTC().Add(-7 * 24 * time.Hour)
		filter.Since = &since
	case "month":
		since := time.Now().UTC().Add(-30 * 24 * time.Hour)
		filter.Since = &since
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "time range must be one of day, week, month, all")
	}

	cacheKey := fmt.Sprintf("activities:feed:%s:%s:%d", filter.UserID, query.TimeRange, filter.Limit)
	if s.cache != nil {
		var cached []models.Activity
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("activity cache read failed", zap.Error(err))
		}
	}

	activities, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, activities, s.cacheTTL); err != nil {
			s.logger.Warn("activity cache write failed", zap.Error(err))
		}
	}
	return activities, nil
}

// Recent returns the newest system-wide entries for the admin dashboard.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = 20
	}
	activities, err := s.repo.List(ctx, models.ActivityFilter{Limit: limit})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	return activities, nil
}
