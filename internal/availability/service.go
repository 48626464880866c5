package availability

import (
	"context"
	"fmt"

	"sorso/internal/events"
	"sorso/internal/packages"
	"sorso/internal/shared/constants"
	"sorso/pkg/cache"
	"sorso/pkg/logger"

	"github.com/google/uuid"
)

// EventLookup is the slice of the events repository this package needs
type EventLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*events.Event, error)
}

type Service interface {
	SetCacheService(cacheService cache.Service)
	ForEvent(ctx context.Context, eventID uuid.UUID) ([]AvailabilityResponse, error)
	CreateRows(ctx context.Context, eventID uuid.UUID, totals Totals) ([]AvailabilityResponse, error)
	UpdateTotals(ctx context.Context, eventID uuid.UUID, totals Totals) ([]AvailabilityResponse, error)
	Invalidate(ctx context.Context, eventID uuid.UUID)
}

type service struct {
	repo         Repository
	events       EventLookup
	cacheService cache.Service
	log          *logger.Logger
}

func NewService(repo Repository, eventLookup EventLookup, log *logger.Logger) Service {
	if log == nil {
		log = logger.Discard()
	}
	return &service{repo: repo, events: eventLookup, log: log.WithComponent("availability")}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// ForEvent returns zero to three rows; packages without a row have no capacity
func (s *service) ForEvent(ctx context.Context, eventID uuid.UUID) ([]AvailabilityResponse, error) {
	load := func() (interface{}, error) {
		if _, err := s.events.GetByID(ctx, eventID); err != nil {
			return nil, err
		}
		rows, err := s.repo.ListByEvent(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("list availability: %w", err)
		}
		return toResponses(rows), nil
	}

	if s.cacheService == nil {
		out, err := load()
		if err != nil {
			return nil, err
		}
		return out.([]AvailabilityResponse), nil
	}

	var out []AvailabilityResponse
	key := constants.BuildAvailabilityKey(eventID.String())
	if err := s.cacheService.GetOrSet(ctx, key, constants.TTL_AVAILABILITY, load, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) CreateRows(ctx context.Context, eventID uuid.UUID, totals Totals) ([]AvailabilityResponse, error) {
	if err := validateTotals(totals); err != nil {
		return nil, err
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	if err := s.repo.CreateRows(ctx, eventID, totals); err != nil {
		return nil, fmt.Errorf("create package rows: %w", err)
	}
	s.Invalidate(ctx, eventID)

	rows, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return toResponses(rows), nil
}

func (s *service) UpdateTotals(ctx context.Context, eventID uuid.UUID, totals Totals) ([]AvailabilityResponse, error) {
	if err := validateTotals(totals); err != nil {
		return nil, err
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	rows, err := s.repo.UpdateTotals(ctx, eventID, totals)
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx, eventID)

	s.log.InfoWithContext(ctx, "package totals updated", map[string]interface{}{
		"event_id": eventID.String(),
		"totals":   totals,
	})
	return toResponses(rows), nil
}

// Invalidate drops the cached availability of one event
func (s *service) Invalidate(ctx context.Context, eventID uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Delete(ctx, constants.BuildAvailabilityKey(eventID.String())); err != nil {
		s.log.ErrorWithContext(ctx, "availability cache invalidation failed", err, map[string]interface{}{"event_id": eventID.String()})
	}
}

func validateTotals(totals Totals) error {
	if len(totals) == 0 {
		return fmt.Errorf("%w: no packages given", ErrInvalidTotals)
	}
	for code, total := range totals {
		if !code.Valid() {
			return fmt.Errorf("%w: %v", ErrInvalidTotals, packages.ErrUnknownPackage)
		}
		if total < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalidTotals, code)
		}
	}
	return nil
}

func toResponses(rows []PackageAvailability) []AvailabilityResponse {
	out := make([]AvailabilityResponse, len(rows))
	for i, row := range rows {
		out[i] = toResponse(row)
	}
	return out
}
