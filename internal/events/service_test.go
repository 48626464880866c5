package events

import (
	"context"
	"testing"
	"time"

	"sorso/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, event *Event) error {
	args := m.Called(ctx, event)
	if args.Error(0) == nil && event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*Event)
	return e, args.Error(1)
}

func (m *MockRepository) ListActive(ctx context.Context) ([]Event, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]Event)
	return list, args.Error(1)
}

func (m *MockRepository) ListAll(ctx context.Context) ([]Event, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]Event)
	return list, args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Event, error) {
	args := m.Called(ctx, id, updates)
	e, _ := args.Get(0).(*Event)
	return e, args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	return m.Called(ctx, key, dest).Error(0)
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *MockCache) Delete(ctx context.Context, keys ...string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *MockCache) DeletePattern(ctx context.Context, pattern string) error {
	return m.Called(ctx, pattern).Error(0)
}

func (m *MockCache) Exists(ctx context.Context, key string) bool {
	return m.Called(ctx, key).Bool(0)
}

func (m *MockCache) GetOrSet(ctx context.Context, key string, ttl time.Duration, fetcher func() (interface{}, error), dest interface{}) error {
	return m.Called(ctx, key, ttl, fetcher, dest).Error(0)
}

func (m *MockCache) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("derives the weekday code and defaults to active", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil)
		staff := uuid.New()

		blank := "  "
		repo.On("Create", ctx, mock.MatchedBy(func(e *Event) bool {
			return e.Code == "fri" && e.Title == "Venerdì Italiano" && e.Active && e.PosterURL == nil && *e.CreatedBy == staff
		})).Return(nil).Once()

		got, err := svc.Create(ctx, &staff, CreateEventRequest{Title: " Venerdì Italiano ", Date: "2026-10-23", PosterURL: &blank})
		require.NoError(t, err)
		assert.Equal(t, "2026-10-23", got.Date)
		assert.Equal(t, "fri", got.Code)
		repo.AssertExpectations(t)
	})

	t.Run("hidden night", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil)
		hidden := false
		repo.On("Create", ctx, mock.MatchedBy(func(e *Event) bool { return !e.Active && e.Code == "sat" })).Return(nil).Once()

		got, err := svc.Create(ctx, nil, CreateEventRequest{Title: "Closing Party", Date: "2026-10-31", Active: &hidden})
		require.NoError(t, err)
		assert.False(t, got.Active)
	})

	t.Run("rejects bad input before touching the store", func(t *testing.T) {
		repo := new(MockRepository)
		svc := NewService(repo, nil)

		_, err := svc.Create(ctx, nil, CreateEventRequest{Title: "   ", Date: "2026-10-23"})
		assert.ErrorIs(t, err, ErrTitleRequired)
		_, err = svc.Create(ctx, nil, CreateEventRequest{Title: "Venerdì", Date: "23/10/2026"})
		assert.ErrorIs(t, err, ErrInvalidDate)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestUpdateEventRecomputesCode(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	c := new(MockCache)
	svc := NewService(repo, nil)
	svc.SetCacheService(c)

	id := uuid.New()
	date := "2026-10-24"
	repo.On("Update", ctx, id, mock.MatchedBy(func(u map[string]interface{}) bool {
		return u["code"] == "sat" && len(u) == 2
	})).Return(&Event{ID: id, Code: "sat", Title: "Sabato", Date: time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)}, nil).Once()
	c.On("DeletePattern", ctx, constants.PATTERN_INVALIDATE_EVENT_ALL).Return(nil).Once()

	got, err := svc.Update(ctx, id, UpdateEventRequest{Date: &date})
	require.NoError(t, err)
	assert.Equal(t, "sat", got.Code)
	c.AssertExpectations(t)
}

func TestSetActive(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, nil)

	id := uuid.New()
	repo.On("Update", ctx, id, map[string]interface{}{"active": false}).Return(&Event{ID: id, Active: false}, nil).Once()
	repo.On("Update", ctx, mock.Anything, mock.Anything).Return(nil, ErrEventNotFound)

	got, err := svc.SetActive(ctx, id, false)
	require.NoError(t, err)
	assert.False(t, got.Active)

	_, err = svc.SetActive(ctx, uuid.New(), true)
	assert.ErrorIs(t, err, ErrEventNotFound)
}

func TestListActiveServesCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	c := new(MockCache)
	svc := NewService(repo, nil)
	svc.SetCacheService(c)

	c.On("Get", ctx, constants.CACHE_KEY_EVENTS_ACTIVE, mock.Anything).Return(nil).Once()
	_, err := svc.ListActive(ctx)
	require.NoError(t, err)
	repo.AssertNotCalled(t, "ListActive", mock.Anything)
}

func TestCodeForDate(t *testing.T) {
	d, err := ParseDate("2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, "mon", CodeForDate(d))
}
