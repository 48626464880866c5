package events

import (
	"context"
	"strings"

	"sorso/internal/shared/constants"
	"sorso/pkg/cache"
	"sorso/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	SetCacheService(cacheService cache.Service)
	ListActive(ctx context.Context) ([]EventResponse, error)
	ListAll(ctx context.Context) ([]EventResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*EventResponse, error)
	Create(ctx context.Context, userID *uuid.UUID, req CreateEventRequest) (*EventResponse, error)
	Update(ctx context.Context, id uuid.UUID, req UpdateEventRequest) (*EventResponse, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*EventResponse, error)
}

type service struct {
	repo         Repository
	cacheService cache.Service
	log          *logger.Logger
}

func NewService(repo Repository, log *logger.Logger) Service {
	if log == nil {
		log = logger.Discard()
	}
	return &service{repo: repo, log: log.WithComponent("events")}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) invalidate(ctx context.Context) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.DeletePattern(ctx, constants.PATTERN_INVALIDATE_EVENT_ALL); err != nil {
		s.log.ErrorWithContext(ctx, "event cache invalidation failed", err, nil)
	}
}

func (s *service) ListActive(ctx context.Context) ([]EventResponse, error) {
	if s.cacheService != nil {
		var cached []EventResponse
		if err := s.cacheService.Get(ctx, constants.CACHE_KEY_EVENTS_ACTIVE, &cached); err == nil {
			return cached, nil
		}
	}

	list, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := toResponses(list)

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, constants.CACHE_KEY_EVENTS_ACTIVE, out, constants.TTL_EVENTS_ACTIVE); err != nil {
			s.log.DebugWithContext(ctx, "event list not cached", map[string]interface{}{"error": err.Error()})
		}
	}
	return out, nil
}

func (s *service) ListAll(ctx context.Context) ([]EventResponse, error) {
	list, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return toResponses(list), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*EventResponse, error) {
	key := constants.BuildEventDetailKey(id.String())
	if s.cacheService != nil {
		var cached EventResponse
		if err := s.cacheService.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := event.ToResponse()

	if s.cacheService != nil {
		_ = s.cacheService.Set(ctx, key, out, constants.TTL_EVENT_DETAIL)
	}
	return &out, nil
}

func (s *service) Create(ctx context.Context, userID *uuid.UUID, req CreateEventRequest) (*EventResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	date, err := ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	code := req.Code
	if code == "" {
		code = CodeForDate(date)
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	event := &Event{
		Code:      code,
		Title:     title,
		Date:      date,
		PosterURL: normalizePoster(req.PosterURL),
		Active:    active,
		CreatedBy: userID,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}

	createdBy := ""
	if userID != nil {
		createdBy = userID.String()
	}
	s.log.LogEventCreated(ctx, event.ID.String(), createdBy)
	s.invalidate(ctx)

	out := event.ToResponse()
	return &out, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req UpdateEventRequest) (*EventResponse, error) {
	updates := map[string]interface{}{}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		updates["title"] = title
	}
	if req.Date != nil {
		date, err := ParseDate(*req.Date)
		if err != nil {
			return nil, err
		}
		updates["date"] = date
		updates["code"] = CodeForDate(date)
	}
	if req.PosterURL != nil {
		updates["poster_url"] = normalizePoster(req.PosterURL)
	}

	if len(updates) == 0 {
		return s.GetByID(ctx, id)
	}

	event, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)

	out := event.ToResponse()
	return &out, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*EventResponse, error) {
	event, err := s.repo.Update(ctx, id, map[string]interface{}{"active": active})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.log.InfoWithContext(ctx, "event visibility changed", map[string]interface{}{
		"event_id": id.String(),
		"active":   active,
	})

	out := event.ToResponse()
	return &out, nil
}

// normalizePoster maps a blank poster URL to NULL
func normalizePoster(url *string) *string {
	if url == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*url)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
