package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teamhub/kb-api/internal/models"
	appErrors "github.com/teamhub/kb-api/pkg/errors"
	"github.com/teamhub/kb-api/pkg/jobs"
)

type mockActivityRepo struct {
	created    []*models.Activity
	lastFilter models.ActivityFilter
	listResult []models.Activity
}

func (m *mockActivityRepo) Create(ctx context.Context, activity *models.Activity) error {
	m.created = append(m.created, activity)
	return nil
}

func (m *mockActivityRepo) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, error) {
	m.lastFilter = filter
	return m.listResult, nil
}

type mockActivityCache struct {
	feeds           map[string][]models.Activity
	deletedPatterns []string
}

func newMockActivityCache() *mockActivityCache {
	return &mockActivityCache{feeds: make(map[string][]models.Activity)}
}

func (m *mockActivityCache) Get(ctx context.Context, key string, dest interface{}) error {
	cached, ok := m.feeds[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*[]models.Activity) = cached
	return nil
}

func (m *mockActivityCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.feeds[key] = value.([]models.Activity)
	return nil
}

func (m *mockActivityCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletedPatterns = append(m.deletedPatterns, pattern)
	return nil
}

func newActivityServiceForTest() (*ActivityService, *mockActivityRepo, *mockActivityCache) {
	repo := &mockActivityRepo{}
	cache := newMockActivityCache()
	svc := NewActivityService(repo, cache, zap.NewNop(), ActivityServiceConfig{FeedLimit: 50})
	return svc, repo, cache
}

func TestActivityServiceRecordJobPersistsAndInvalidates(t *testing.T) {
	svc, repo, cache := newActivityServiceForTest()

	spaceID := "s1"
	err := svc.handleRecordJob(context.Background(), jobs.Job{
		ID:   "job-1",
		Type: "activity.record",
		Payload: ActivityEvent{
			UserID:      "u1",
			Action:      models.ActionCreated,
			Target:      models.TargetPage,
			TargetID:    "p1",
			TargetTitle: "Onboarding",
			SpaceID:     &spaceID,
		},
	})
	require.NoError(t, err)

	require.Len(t, repo.created, 1)
	created := repo.created[0]
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, models.ActionCreated, created.Action)
	assert.Equal(t, "Onboarding", created.TargetTitle)
	require.NotNil(t, created.SpaceID)
	assert.Equal(t, "s1", *created.SpaceID)
	assert.False(t, created.CreatedAt.IsZero())

	assert.Equal(t, []string{"activities:*"}, cache.deletedPatterns)
}

func TestActivityServiceRecordJobCountsMetric(t *testing.T) {
	repo := &mockActivityRepo{}
	metrics := NewMetricsService()
	svc := NewActivityService(repo, nil, zap.NewNop(), ActivityServiceConfig{FeedLimit: 50, Metrics: metrics})

	err := svc.handleRecordJob(context.Background(), jobs.Job{
		ID:      "job-1",
		Type:    "activity.record",
		Payload: ActivityEvent{UserID: "u1", Action: models.ActionCreated, Target: models.TargetPage, TargetID: "p1"},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.activitiesTotal.WithLabelValues(string(models.ActionCreated))))
}

func TestActivityServiceRecordJobIgnoresForeignPayload(t *testing.T) {
	svc, repo, _ := newActivityServiceForTest()

	err := svc.handleRecordJob(context.Background(), jobs.Job{ID: "job-1", Payload: "not an event"})
	require.NoError(t, err)
	assert.Empty(t, repo.created)
}

func TestActivityServiceRecordBeforeStartDropsEvent(t *testing.T) {
	svc, repo, _ := newActivityServiceForTest()

	svc.Record(ActivityEvent{UserID: "u1", Action: models.ActionViewed, Target: models.TargetPage})
	assert.Empty(t, repo.created)
}

func TestActivityServiceFeedScopesToCaller(t *testing.T) {
	svc, repo, _ := newActivityServiceForTest()
	repo.listResult = []models.Activity{{ID: "a1", UserID: "u1"}}

	activities, err := svc.Feed(context.Background(), FeedQuery{UserID: "u1", OnlyMine: true, TimeRange: "week"})
	require.NoError(t, err)
	assert.Len(t, activities, 1)
	assert.Equal(t, "u1", repo.lastFilter.UserID)
	require.NotNil(t, repo.lastFilter.Since)
	assert.WithinDuration(t, time.Now().UTC().Add(-7*24*time.Hour), *repo.lastFilter.Since, time.Minute)
	assert.Equal(t, 50, repo.lastFilter.Limit)
}

func TestActivityServiceFeedRejectsUnknownTimeRange(t *testing.T) {
	svc, _, _ := newActivityServiceForTest()

	_, err := svc.Feed(context.Background(), FeedQuery{UserID: "u1", TimeRange: "year"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestActivityServiceFeedServedFromCache(t *testing.T) {
	svc, repo, cache := newActivityServiceForTest()
	cache.feeds["activities:feed::all:50"] = []models.Activity{{ID: "cached"}}

	activities, err := svc.Feed(context.Background(), FeedQuery{UserID: "u1", TimeRange: "all"})
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, "cached", activities[0].ID)
	assert.Empty(t, repo.lastFilter.Limit)
}

func TestActivityServiceFeedCachesResult(t *testing.T) {
	svc, repo, cache := newActivityServiceForTest()
	repo.listResult = []models.Activity{{ID: "a1"}}

	_, err := svc.Feed(context.Background(), FeedQuery{UserID: "u1", TimeRange: "all"})
	require.NoError(t, err)
	assert.Contains(t, cache.feeds, "activities:feed::all:50")
}

func TestActivityServiceRecentDefaultsLimit(t *testing.T) {
	svc, repo, _ := newActivityServiceForTest()

	_, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.lastFilter.Limit)
}
