package reservations

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math"
	"math/big"
	"strings"
	"time"

	"sorso/internal/events"
	"sorso/internal/notifications"
	"sorso/internal/packages"
	"sorso/internal/report"
	"sorso/pkg/logger"

	"github.com/google/uuid"
)

// EventLookup is the slice of the events repository this package needs
type EventLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*events.Event, error)
}

// AvailabilityInvalidator drops cached availability after a booking
type AvailabilityInvalidator interface {
	Invalidate(ctx context.Context, eventID uuid.UUID)
}

// AlertNotifier forwards new reservations to the staff
type AlertNotifier interface {
	NotifyReservation(ctx context.Context, alert *notifications.ReservationAlert) error
}

type Service interface {
	Create(ctx context.Context, req CreateReservationRequest) (*ReservationResponse, error)
	ListForEvent(ctx context.Context, eventID uuid.UUID) (*EventReservationsResponse, error)
	ExportPDF(ctx context.Context, eventID uuid.UUID, w io.Writer) (string, error)
}

const alertTimeout = 5 * time.Second

type service struct {
	repo         Repository
	events       EventLookup
	availability AvailabilityInvalidator
	notifier     AlertNotifier
	catalog      *packages.Catalog
	log          *logger.Logger
	now          func() time.Time
}

// NewService builds the reservation service. availability and notifier may be nil.
func NewService(repo Repository, eventLookup EventLookup, availability AvailabilityInvalidator, notifier AlertNotifier, log *logger.Logger) Service {
	if log == nil {
		log = logger.Discard()
	}
	return &service{
		repo:         repo,
		events:       eventLookup,
		availability: availability,
		notifier:     notifier,
		catalog:      packages.Default(),
		log:          log.WithComponent("reservations"),
		now:          time.Now,
	}
}

func (s *service) Create(ctx context.Context, req CreateReservationRequest) (*ReservationResponse, error) {
	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		return nil, events.ErrEventNotFound
	}

	code := packages.Code(req.Package)
	if !s.catalog.Valid(code) {
		return nil, packages.ErrUnknownPackage
	}
	if req.Tables < 1 {
		return nil, ErrInvalidTables
	}

	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, ErrMissingContact
	}

	// The price list is authoritative; a client total is only a cross-check
	total := s.catalog.Total(code, req.Tables)
	if req.Total != nil && math.Abs(*req.Total-total) > 0.005 {
		s.log.LogReservationRejected(ctx, eventID.String(), string(code), req.Tables, "total mismatch")
		return nil, ErrTotalMismatch
	}

	ref, err := s.generateReference()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reservation reference: %w", err)
	}

	reservation := &Reservation{
		Ref:     ref,
		EventID: eventID,
		Package: code,
		Tables:  req.Tables,
		Name:    name,
		Phone:   phone,
		Notes:   strings.TrimSpace(req.Notes),
		Total:   total,
		Status:  StatusConfirmed,
	}

	if err := s.repo.CreateAtomic(ctx, reservation); err != nil {
		s.log.LogReservationRejected(ctx, eventID.String(), string(code), req.Tables, err.Error())
		return nil, err
	}
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = s.now()
	}

	s.log.LogReservationCreated(ctx, reservation.ID.String(), eventID.String(), string(code), reservation.Tables)

	if s.availability != nil {
		s.availability.Invalidate(ctx, eventID)
	}
	s.publishAlert(ctx, reservation)

	resp := toResponse(reservation, s.catalog)
	return &resp, nil
}

// publishAlert never fails the reservation; errors are only logged
func (s *service) publishAlert(ctx context.Context, r *Reservation) {
	if s.notifier == nil {
		return
	}

	alert := notifications.NewReservationAlert()
	alert.ReservationID = r.ID
	alert.Ref = r.Ref
	alert.EventID = r.EventID
	alert.Package = string(r.Package)
	alert.PackageLabel = s.catalog.Label(r.Package)
	alert.Tables = r.Tables
	alert.People = s.catalog.People(r.Tables)
	alert.Total = r.Total
	alert.Name = r.Name
	alert.Phone = r.Phone
	alert.Notes = r.Notes

	if event, err := s.events.GetByID(ctx, r.EventID); err == nil {
		alert.EventTitle = event.Title
		alert.EventDate = event.Date.Format(events.DateLayout)
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
	defer cancel()
	if err := s.notifier.NotifyReservation(actx, alert); err != nil {
		s.log.ErrorWithContext(ctx, "staff alert not published", err, map[string]interface{}{"ref": r.Ref})
	}
}

func (s *service) ListForEvent(ctx context.Context, eventID uuid.UUID) (*EventReservationsResponse, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	out := make([]ReservationResponse, len(list))
	rows := make([]report.Row, len(list))
	for i := range list {
		out[i] = toResponse(&list[i], s.catalog)
		rows[i] = toRow(&list[i])
	}

	return &EventReservationsResponse{
		Event:        event.ToResponse(),
		Reservations: out,
		Summary:      report.Summarize(rows),
	}, nil
}

// ExportPDF renders the reservation list of one night and returns its file name
func (s *service) ExportPDF(ctx context.Context, eventID uuid.UUID, w io.Writer) (string, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return "", err
	}

	list, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return "", fmt.Errorf("list reservations: %w", err)
	}

	rows := make([]report.Row, len(list))
	for i := range list {
		rows[i] = toRow(&list[i])
	}

	if err := report.ReservationsPDF(w, report.EventInfo{Title: event.Title, Date: event.Date}, rows); err != nil {
		return "", err
	}
	return report.Filename(event.Date.Format(events.DateLayout)), nil
}

// generateReference builds SRS-YYYYMMDD-XXXXXX
func (s *service) generateReference() (string, error) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	randomPart := make([]byte, 6)
	for i := range randomPart {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		randomPart[i] = alphabet[n.Int64()]
	}
	return fmt.Sprintf("SRS-%s-%s", s.now().Format("20060102"), randomPart), nil
}
