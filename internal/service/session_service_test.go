package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edt-planner/edt-api/internal/dto"
	"github.com/edt-planner/edt-api/internal/models"
	appErrors "github.com/edt-planner/edt-api/pkg/errors"
)

type sessionListerStub struct {
	views  []models.SessionView
	total  int
	calls  int
	filter models.SessionFilter
}

func (s *sessionListerStub) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionView, int, error) {
	s.calls++
	s.filter = filter
	return s.views, s.total, nil
}

type cacheStub struct {
	store map[string]interface{}
}

func newCacheStub() *cacheStub {
	return &cacheStub{store: map[string]interface{}{}}
}

func (c *cacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	value, ok := c.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*cachedSessionPage) = value.(cachedSessionPage)
	return nil
}

func (c *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.store[key] = value
	return nil
}

func sampleViews() []models.SessionView {
	subgroup := "A"
	return []models.SessionView{
		{
			ID:          "s1",
			CourseName:  "Networks",
			CourseType:  "TD",
			ClassName:   "A2",
			TeacherName: "T. One",
			RoomName:    "R15",
			StartTime:   time.Date(2025, time.October, 13, 8, 0, 0, 0, time.UTC),
			EndTime:     time.Date(2025, time.October, 13, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:          "s2",
			CourseName:  "Unix Lab",
			CourseType:  "TP",
			ClassName:   "A2",
			Subgroup:    &subgroup,
			TeacherName: "T. Two",
			RoomName:    "R10",
			StartTime:   time.Date(2025, time.October, 20, 13, 30, 0, 0, time.UTC),
			EndTime:     time.Date(2025, time.October, 20, 15, 30, 0, 0, time.UTC),
		},
	}
}

func TestSessionServiceListMapsViews(t *testing.T) {
	lister := &sessionListerStub{views: sampleViews(), total: 2}
	svc := NewSessionService(lister, nil, nil, zap.NewNop(), SessionServiceConfig{})

	items, total, err := svc.List(context.Background(), dto.SessionQuery{ClassGroupID: "a2"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "Networks", items[0].CourseName)
	assert.Equal(t, "T. One", items[0].Teacher)
	assert.Equal(t, "a2", lister.filter.ClassGroupID)
}

func TestSessionServiceListUsesCache(t *testing.T) {
	lister := &sessionListerStub{views: sampleViews(), total: 2}
	cache := newCacheStub()
	svc := NewSessionService(lister, cache, nil, zap.NewNop(), SessionServiceConfig{CacheTTL: time.Minute})

	query := dto.SessionQuery{TeacherID: "t1"}
	_, _, err := svc.List(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls)

	items, total, err := svc.List(context.Background(), query)
	require.NoError(t, err)
	assert.Equal(t, 1, lister.calls, "second read should come from cache")
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)
}

func TestSessionServiceListNormalisesWeekStart(t *testing.T) {
	lister := &sessionListerStub{}
	svc := NewSessionService(lister, nil, nil, zap.NewNop(), SessionServiceConfig{})

	_, _, err := svc.List(context.Background(), dto.SessionQuery{WeekStart: "2025-10-15"})
	require.NoError(t, err)
	require.NotNil(t, lister.filter.WeekStart)
	assert.Equal(t, time.Date(2025, time.October, 13, 0, 0, 0, 0, time.UTC), *lister.filter.WeekStart)

	_, _, err = svc.List(context.Background(), dto.SessionQuery{WeekStart: "not-a-date"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceExportCSV(t *testing.T) {
	lister := &sessionListerStub{views: sampleViews(), total: 2}
	svc := NewSessionService(lister, nil, nil, zap.NewNop(), SessionServiceConfig{ExportsEnabled: true})

	name, contentType, payload, err := svc.Export(context.Background(), dto.SessionExportQuery{
		Format: "csv",
	})
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, name, ".csv")
	assert.Contains(t, string(payload), "Networks")
	assert.Contains(t, string(payload), "13/10/2025")
}

func TestSessionServiceExportPDF(t *testing.T) {
	lister := &sessionListerStub{views: sampleViews(), total: 2}
	svc := NewSessionService(lister, nil, nil, zap.NewNop(), SessionServiceConfig{ExportsEnabled: true})

	name, contentType, payload, err := svc.Export(context.Background(), dto.SessionExportQuery{
		Format: "pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Contains(t, name, ".pdf")
	assert.True(t, len(payload) > 0)
	assert.Equal(t, "%PDF", string(payload[:4]))
}

func TestSessionServiceExportDisabled(t *testing.T) {
	lister := &sessionListerStub{}
	svc := NewSessionService(lister, nil, nil, zap.NewNop(), SessionServiceConfig{})

	_, _, _, err := svc.Export(context.Background(), dto.SessionExportQuery{Format: "csv"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceExportRejectsUnknownFormat(t *testing.T) {
	lister := &sessionListerStub{}
	svc := NewSessionService(lister, nil, nil, zap.NewNop(), SessionServiceConfig{ExportsEnabled: true})

	_, _, _, err := svc.Export(context.Background(), dto.SessionExportQuery{Format: "xlsx"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
