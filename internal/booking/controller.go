// Package booking drives the guest reservation wizard: pick a night, a zone
// and a number of tables, leave a name and a phone number, and submit through
// the backend's atomic reservation call. Capacity is only ever decided by the
// backend; the controller refuses requests it already knows cannot fit and
// keeps the displayed availability one round trip away from the truth.
package booking

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"sorso/internal/client"
	"sorso/internal/packages"
	"sorso/pkg/eventbus"
	"sorso/pkg/logger"
)

// Backend is the part of the data access wrapper the wizard needs
type Backend interface {
	ListActiveEvents(ctx context.Context) client.Result[[]client.Event]
	GetPackageAvailability(ctx context.Context, eventID string) client.Result[[]client.PackageAvailability]
	CreateReservation(ctx context.Context, in client.ReservationInput) client.Result[client.Reservation]
}

type Contact struct {
	Name  string
	Phone string
	Notes string
}

// AvailabilityUpdate is published on eventbus.AvailabilityRefreshed
type AvailabilityUpdate struct {
	EventID   string
	Remaining map[packages.Code]int
}

// State is a point-in-time copy of the wizard
type State struct {
	Step                Step
	Events              []client.Event
	SelectedEventID     string
	SelectedPackage     packages.Code
	Tables              int
	Contact             Contact
	Remaining           map[packages.Code]int
	LoadingEvents       bool
	LoadingAvailability bool
	Submitting          bool
	NoActiveEvents      bool
	Total               float64
	People              int
	LastReservation     *client.Reservation
}

type Controller struct {
	backend Backend
	catalog *packages.Catalog
	bus     *eventbus.Bus
	log     *logger.Logger

	mu              sync.Mutex
	step            Step
	events          []client.Event
	selectedEvent   string
	selectedPackage packages.Code
	tables          int
	contact         Contact
	remaining       map[packages.Code]int
	availabilityFor string // event the remaining counts belong to
	loadingEvents   bool
	pendingAvail    int
	submitting      bool
	noActiveEvents  bool
	lastReservation *client.Reservation
}

// NewController builds a wizard. bus and log may be nil.
func NewController(backend Backend, catalog *packages.Catalog, bus *eventbus.Bus, log *logger.Logger) *Controller {
	if catalog == nil {
		catalog = packages.Default()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Controller{
		backend:         backend,
		catalog:         catalog,
		bus:             bus,
		log:             log.WithComponent("booking"),
		step:            StepSelectingEvent,
		selectedPackage: catalog.DefaultCode,
		tables:          1,
		remaining:       zeroRemaining(),
	}
}

func zeroRemaining() map[packages.Code]int {
	m := make(map[packages.Code]int, len(packages.Order))
	for _, code := range packages.Order {
		m[code] = 0
	}
	return m
}

func copyRemaining(src map[packages.Code]int) map[packages.Code]int {
	dst := make(map[packages.Code]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// State returns a snapshot safe to read without holding the controller
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := make([]client.Event, len(c.events))
	copy(events, c.events)

	var last *client.Reservation
	if c.lastReservation != nil {
		r := *c.lastReservation
		last = &r
	}

	return State{
		Step:                c.step,
		Events:              events,
		SelectedEventID:     c.selectedEvent,
		SelectedPackage:     c.selectedPackage,
		Tables:              c.tables,
		Contact:             c.contact,
		Remaining:           copyRemaining(c.remaining),
		LoadingEvents:       c.loadingEvents,
		LoadingAvailability: c.pendingAvail > 0,
		Submitting:          c.submitting,
		NoActiveEvents:      c.noActiveEvents,
		Total:               c.catalog.Total(c.selectedPackage, c.tables),
		People:              c.catalog.People(c.tables),
		LastReservation:     last,
	}
}

// LoadActiveEvents refreshes the list of bookable nights. When the selected
// night disappears the first one is selected instead and its availability
// is loaded.
func (c *Controller) LoadActiveEvents(ctx context.Context) ([]client.Event, error) {
	c.mu.Lock()
	c.loadingEvents = true
	c.mu.Unlock()

	res := c.backend.ListActiveEvents(ctx)

	c.mu.Lock()
	c.loadingEvents = false

	if !res.OK {
		c.events = nil
		c.noActiveEvents = false
		c.clearSelectionLocked()
		c.mu.Unlock()
		c.log.Error("loading active events failed", "error", res.Err.Error())
		return nil, fmt.Errorf("%w: %w", ErrLoadEvents, res.Err)
	}

	events := make([]client.Event, 0, len(res.Data))
	for _, e := range res.Data {
		if e.Active {
			events = append(events, e)
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	c.events = events

	if len(events) == 0 {
		c.noActiveEvents = true
		c.clearSelectionLocked()
		c.mu.Unlock()
		return []client.Event{}, nil
	}
	c.noActiveEvents = false

	if c.selectedEvent != "" && c.hasEventLocked(c.selectedEvent) {
		c.mu.Unlock()
		return copyEvents(events), nil
	}

	next := events[0].ID
	c.selectEventLocked(next)
	c.mu.Unlock()

	if _, err := c.LoadAvailability(ctx, next); err != nil && err != ErrStaleResponse {
		return copyEvents(events), err
	}
	return copyEvents(events), nil
}

func copyEvents(src []client.Event) []client.Event {
	out := make([]client.Event, len(src))
	copy(out, src)
	return out
}

func (c *Controller) hasEventLocked(id string) bool {
	for _, e := range c.events {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (c *Controller) clearSelectionLocked() {
	c.selectedEvent = ""
	c.availabilityFor = ""
	c.remaining = zeroRemaining()
	c.step = StepSelectingEvent
}

func (c *Controller) selectEventLocked(id string) {
	if c.selectedEvent != id {
		c.remaining = zeroRemaining()
		c.availabilityFor = ""
	}
	c.selectedEvent = id
	c.step = StepSelectingPackage
}

// SelectEvent picks a night from the loaded list and loads its availability
func (c *Controller) SelectEvent(ctx context.Context, id string) (map[packages.Code]int, error) {
	c.mu.Lock()
	if c.noActiveEvents {
		c.mu.Unlock()
		return nil, ErrNoActiveEvents
	}
	if !c.hasEventLocked(id) {
		c.mu.Unlock()
		return nil, ErrUnknownEvent
	}
	c.selectEventLocked(id)
	c.mu.Unlock()

	return c.LoadAvailability(ctx, id)
}

// LoadAvailability fetches the per-package counters of eventID. The answer
// is dropped with ErrStaleResponse when another night was selected in the
// meantime. A failed refresh keeps the numbers already shown for the same
// night; a failed first load shows every package as empty.
func (c *Controller) LoadAvailability(ctx context.Context, eventID string) (map[packages.Code]int, error) {
	c.mu.Lock()
	c.pendingAvail++
	c.mu.Unlock()

	res := c.backend.GetPackageAvailability(ctx, eventID)

	c.mu.Lock()
	c.pendingAvail--

	if c.selectedEvent != eventID {
		c.mu.Unlock()
		c.log.Debug("discarding stale availability", "event_id", eventID)
		return nil, ErrStaleResponse
	}

	if !res.OK {
		if c.availabilityFor != eventID {
			c.remaining = zeroRemaining()
		}
		out := copyRemaining(c.remaining)
		c.mu.Unlock()
		c.log.Error("loading availability failed", "event_id", eventID, "error", res.Err.Error())
		return out, fmt.Errorf("%w: %w", ErrLoadAvailability, res.Err)
	}

	remaining := zeroRemaining()
	for _, row := range res.Data {
		if _, known := remaining[row.Package]; !known {
			continue
		}
		if left := row.TotalTables - row.BookedTables; left > 0 {
			remaining[row.Package] = left
		}
	}
	c.remaining = remaining
	c.availabilityFor = eventID

	if remaining[c.selectedPackage] <= 0 {
		for _, code := range packages.Order {
			if remaining[code] > 0 {
				c.log.Debug("reassigning sold out package", "from", c.selectedPackage, "to", code)
				c.selectedPackage = code
				break
			}
		}
	}

	out := copyRemaining(remaining)
	c.mu.Unlock()

	c.emit(eventbus.AvailabilityRefreshed, AvailabilityUpdate{EventID: eventID, Remaining: copyRemaining(out)})
	return out, nil
}

// SelectPackage refuses a zone with no tables left
func (c *Controller) SelectPackage(code packages.Code) error {
	if !c.catalog.Valid(code) {
		return fmt.Errorf("%w: %q", packages.ErrUnknownPackage, code)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remaining[code] <= 0 {
		return ErrPackageSoldOut
	}
	c.selectedPackage = code
	if c.selectedEvent != "" {
		c.step = StepEnteringContact
	}
	return nil
}

func (c *Controller) SetTables(n int) error {
	if n < 1 {
		return ErrInvalidTableCount
	}
	c.mu.Lock()
	c.tables = n
	c.mu.Unlock()
	return nil
}

func (c *Controller) SetContact(name, phone, notes string) {
	c.mu.Lock()
	c.contact = Contact{Name: name, Phone: phone, Notes: notes}
	if c.selectedEvent != "" {
		c.step = StepEnteringContact
	}
	c.mu.Unlock()
}

// Total is tables × price of the selected package
func (c *Controller) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.Total(c.selectedPackage, c.tables)
}

func (c *Controller) People() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.People(c.tables)
}

// Submit sends the reservation. Requests that cannot succeed are refused
// before any network call. On success the form is cleared, the night and the
// zone stay selected and availability is fetched again.
func (c *Controller) Submit(ctx context.Context) (client.Reservation, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return client.Reservation{}, ErrSubmitInFlight
	}

	in, err := c.prepareLocked()
	if err != nil {
		if c.selectedEvent != "" {
			c.step = StepEnteringContact
		}
		c.mu.Unlock()
		return client.Reservation{}, err
	}
	c.submitting = true
	c.step = StepSubmitting
	c.mu.Unlock()

	res := c.backend.CreateReservation(ctx, in)

	c.mu.Lock()
	c.submitting = false

	if !res.OK {
		c.step = StepEnteringContact
		c.mu.Unlock()

		if res.Err.CapacityExceeded() {
			c.log.Info("reservation refused, package full", "event_id", in.EventID, "package", in.Package, "tables", in.Tables)
			c.refresh(ctx, in.EventID)
			return client.Reservation{}, ErrSoldOut
		}
		c.log.Error("reservation failed", "event_id", in.EventID, "error", res.Err.Error())
		return client.Reservation{}, &ReservationError{Message: res.Err.Message, Err: res.Err}
	}

	reservation := res.Data
	c.contact = Contact{}
	c.tables = 1
	c.step = StepConfirmed
	c.lastReservation = &reservation
	c.mu.Unlock()

	c.log.Info("reservation confirmed", "reservation_id", reservation.ID, "event_id", in.EventID, "package", in.Package, "tables", in.Tables)
	c.emit(eventbus.ReservationConfirmed, reservation)
	c.refresh(ctx, in.EventID)
	return reservation, nil
}

func (c *Controller) prepareLocked() (client.ReservationInput, error) {
	if c.selectedEvent == "" {
		return client.ReservationInput{}, ErrNoEventSelected
	}
	name := strings.TrimSpace(c.contact.Name)
	phone := strings.TrimSpace(c.contact.Phone)
	if name == "" || phone == "" {
		return client.ReservationInput{}, ErrMissingContact
	}
	if c.tables < 1 {
		return client.ReservationInput{}, ErrInvalidTableCount
	}
	if c.tables > c.remaining[c.selectedPackage] {
		return client.ReservationInput{}, ErrTablesUnavailable
	}

	total := c.catalog.Total(c.selectedPackage, c.tables)
	return client.ReservationInput{
		EventID: c.selectedEvent,
		Package: c.selectedPackage,
		Tables:  c.tables,
		Name:    name,
		Phone:   phone,
		Notes:   strings.TrimSpace(c.contact.Notes),
		Total:   &total,
	}, nil
}

// refresh reloads availability after a submission; its failure does not change the outcome
func (c *Controller) refresh(ctx context.Context, eventID string) {
	if _, err := c.LoadAvailability(ctx, eventID); err != nil && err != ErrStaleResponse {
		c.log.Warn("availability refresh after submit failed", "event_id", eventID, "error", err.Error())
	}
}

func (c *Controller) emit(topic eventbus.Topic, payload interface{}) {
	if c.bus != nil {
		c.bus.Emit(topic, payload)
	}
}
