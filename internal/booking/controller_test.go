package booking

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"sorso/internal/client"
	"sorso/internal/packages"
	"sorso/pkg/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves canned answers. Availability answers for an event listed
// in gates wait until the gate channel is closed.
type fakeBackend struct {
	mu           sync.Mutex
	events       []client.Event
	eventsErr    *client.Error
	rows         map[string][]client.PackageAvailability
	availErr     map[string]*client.Error
	gates        map[string]chan struct{}
	reserveErr   *client.Error
	reserveCalls []client.ReservationInput
	availCalls   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		rows:     make(map[string][]client.PackageAvailability),
		availErr: make(map[string]*client.Error),
		gates:    make(map[string]chan struct{}),
	}
}

func (f *fakeBackend) ListActiveEvents(ctx context.Context) client.Result[[]client.Event] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.eventsErr != nil {
		return client.Result[[]client.Event]{Err: f.eventsErr}
	}
	out := make([]client.Event, len(f.events))
	copy(out, f.events)
	return client.Result[[]client.Event]{OK: true, Data: out}
}

func (f *fakeBackend) GetPackageAvailability(ctx context.Context, eventID string) client.Result[[]client.PackageAvailability] {
	f.mu.Lock()
	f.availCalls++
	gate := f.gates[eventID]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.availErr[eventID]; err != nil {
		return client.Result[[]client.PackageAvailability]{Err: err}
	}
	rows := make([]client.PackageAvailability, len(f.rows[eventID]))
	copy(rows, f.rows[eventID])
	return client.Result[[]client.PackageAvailability]{OK: true, Data: rows}
}

func (f *fakeBackend) CreateReservation(ctx context.Context, in client.ReservationInput) client.Result[client.Reservation] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserveCalls = append(f.reserveCalls, in)
	if f.reserveErr != nil {
		return client.Result[client.Reservation]{Err: f.reserveErr}
	}

	// mimic the atomic procedure: bump booked for the package
	rows := f.rows[in.EventID]
	for i := range rows {
		if rows[i].Package == in.Package {
			rows[i].BookedTables += in.Tables
		}
	}
	return client.Result[client.Reservation]{OK: true, Data: client.Reservation{
		ID:      "res-1",
		Ref:     "SR-0001",
		EventID: in.EventID,
		Package: in.Package,
		Tables:  in.Tables,
		Name:    in.Name,
		Phone:   in.Phone,
		Total:   *in.Total,
		Status:  "confirmed",
	}}
}

func (f *fakeBackend) reservations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reserveCalls)
}

func row(code packages.Code, total, booked int) client.PackageAvailability {
	return client.PackageAvailability{Package: code, TotalTables: total, BookedTables: booked, Remaining: total - booked}
}

// venerdiBackend has "Venerdì Italiano" with premium 20/18
func venerdiBackend() *fakeBackend {
	f := newFakeBackend()
	f.events = []client.Event{
		{ID: "sab", Title: "Sabato Privé", Date: "2026-10-24", Active: true},
		{ID: "ven", Title: "Venerdì Italiano", Date: "2026-10-23", Active: true},
	}
	f.rows["ven"] = []client.PackageAvailability{
		row(packages.Base, 20, 4),
		row(packages.Premium, 20, 18),
		row(packages.Elite, 10, 0),
	}
	f.rows["sab"] = []client.PackageAvailability{
		row(packages.Base, 20, 0),
		row(packages.Premium, 20, 0),
		row(packages.Elite, 20, 0),
	}
	return f
}

func TestLoadActiveEventsSortsAndSelectsFirst(t *testing.T) {
	f := venerdiBackend()
	c := NewController(f, nil, nil, nil)

	events, err := c.LoadActiveEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ven", events[0].ID)

	st := c.State()
	assert.Equal(t, "ven", st.SelectedEventID)
	assert.Equal(t, StepSelectingPackage, st.Step)
	assert.Equal(t, 2, st.Remaining[packages.Premium])
	assert.Equal(t, 16, st.Remaining[packages.Base])
	assert.Equal(t, packages.Premium, st.SelectedPackage)
}

func TestLoadActiveEventsKeepsSelectionStillListed(t *testing.T) {
	f := venerdiBackend()
	c := NewController(f, nil, nil, nil)
	ctx := context.Background()

	_, err := c.LoadActiveEvents(ctx)
	require.NoError(t, err)
	_, err = c.SelectEvent(ctx, "sab")
	require.NoError(t, err)

	_, err = c.LoadActiveEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sab", c.State().SelectedEventID)

	// the selected night disappears
	f.mu.Lock()
	f.events = f.events[1:]
	f.mu.Unlock()

	_, err = c.LoadActiveEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ven", c.State().SelectedEventID)
}

func TestLoadActiveEventsEmptyEntersNoActiveEvents(t *testing.T) {
	f := newFakeBackend()
	c := NewController(f, nil, nil, nil)

	events, err := c.LoadActiveEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)

	st := c.State()
	assert.True(t, st.NoActiveEvents)
	assert.Empty(t, st.SelectedEventID)

	_, err = c.SelectEvent(context.Background(), "ven")
	assert.ErrorIs(t, err, ErrNoActiveEvents)
}

func TestLoadActiveEventsFailureClearsSelection(t *testing.T) {
	f := venerdiBackend()
	c := NewController(f, nil, nil, nil)
	ctx := context.Background()

	_, err := c.LoadActiveEvents(ctx)
	require.NoError(t, err)

	f.mu.Lock()
	f.eventsErr = &client.Error{Status: http.StatusInternalServerError, Message: "boom"}
	f.mu.Unlock()

	events, err := c.LoadActiveEvents(ctx)
	assert.ErrorIs(t, err, ErrLoadEvents)
	assert.Empty(t, events)

	st := c.State()
	assert.Empty(t, st.SelectedEventID)
	assert.Empty(t, st.Events)
	assert.False(t, st.NoActiveEvents)
	assert.Equal(t, "Errore nel caricamento degli eventi", Message(err))
}

func TestFailureAfterEmptyListIsNotNoActiveEvents(t *testing.T) {
	f := newFakeBackend()
	c := NewController(f, nil, nil, nil)
	ctx := context.Background()

	_, err := c.LoadActiveEvents(ctx)
	require.NoError(t, err)
	require.True(t, c.State().NoActiveEvents)

	f.mu.Lock()
	f.eventsErr = &client.Error{Status: http.StatusBadGateway, Message: "upstream down"}
	f.mu.Unlock()

	_, err = c.LoadActiveEvents(ctx)
	assert.ErrorIs(t, err, ErrLoadEvents)
	assert.False(t, c.State().NoActiveEvents, "a failed load is an error state, not an empty programme")
}

func TestLoadAvailabilityIsIdempotent(t *testing.T) {
	f := venerdiBackend()
	c := NewController(f, nil, nil, nil)
	ctx := context.Background()
	_, err := c.LoadActiveEvents(ctx)
	require.NoError(t, err)

	first, err := c.LoadAvailability(ctx, "ven")
	require.NoError(t, err)
	second, err := c.LoadAvailability(ctx, "ven")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMissingRowsMeanNoCapacity(t *testing.T) {
	f := venerdiBackend()
	f.rows["ven"] = []client.PackageAvailability{row(packages.Elite, 5, 7)}
	c := NewController(f, nil, nil, nil)

	_, err := c.LoadActiveEvents(context.Background())
	require.NoError(t, err)

	st := c.State()
	assert.Equal(t, 0, st.Remaining[packages.Base])
	assert.Equal(t, 0, st.Remaining[packages.Premium])
	assert.Equal(t, 0, st.Remaining[packages.Elite], "booked above total clamps to zero")
	assert.Equal(t, packages.Premium, st.SelectedPackage, "nothing to move to")
}

func TestSoldOutPackageIsReassigned(t *testing.T) {
	f := venerdiBackend()
	f.rows["ven"] = []client.PackageAvailability{
		row(packages.Base, 10, 10),
		row(packages.Premium, 20, 20),
		row(packages.Elite, 10, 3),
	}
	c := NewController(f, nil, nil, nil)

	_, err := c.LoadActiveEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, packages.Elite, c.State().SelectedPackage)
}

func TestSelectionWithCapacityIsNotOverridden(t *testing.T) {
	f := venerdiBackend()
	c := NewController(f, nil, nil, nil)
	ctx := context.Background()

	_, err := c.LoadActiveEvents(ctx)
	require.NoError(t, err)
	require.NoError(t, c.SelectPackage(packages.Elite))

	_, err = c.LoadAvailability(ctx, "ven")
	require.NoError(t, err)
	assert.Equal(t, packages.Elite, c.State().SelectedPackage)
}

func TestSelectPackageRejectsSoldOut(t *testing.T) {
	f := venerdiBackend()
	f.rows["ven"][0] = row(packages.Base, 20, 20)
	c := NewController(f, nil, nil, nil)

	_, err := c.LoadActiveEvents(context.Background())
	require.NoError(t, err)

	err = c.SelectPackage(packages.Base)
	assert.ErrorIs(t, err, ErrPackageSoldOut)
	assert.Equal(t, "Zona esaurita", Message(err))
	assert.Equal(t, packages.Premium, c.State().SelectedPackage)

	assert.ErrorIs(t, c.SelectPackage("deluxe"), packages.ErrUnknownPackage)
}

func TestStaleAvailabilityIsDiscarded(t *testing.T) {
	f := venerdiBackend()
	c := NewController(f, nil, nil, nil)
	ctx := context.Background()

	_, err := c.LoadActiveEvents(ctx)
	require.NoError(t, err)

	f.rows["ven"] = []client.PackageAvailability{row(packages.Base, 1, 0), row(packages.Premium, 1, 0), row(packages.Elite, 1, 0)}
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates["ven"] = gate
	f.mu.Unlock()

	staleErr := make(chan error, 1)
	go func() {
		_, err := c.LoadAvailability(ctx, "ven")
		staleErr <- err
	}()

	// wait until the request for "ven" is in flight
	require.Eventually(t, func() bool { return c.State().LoadingAvailability }, time.Second, time.Millisecond)

	remaining, err := c.SelectEvent(ctx, "sab")
	require.NoError(t, err)
	assert.Equal(t, 20, remaining[packages.Premium])

	close(gate)
	assert.ErrorIs(t, <-staleErr, ErrStaleResponse)

	st := c.State()
	assert.Equal(t, "sab", st.SelectedEventID)
	assert.Equal(t, 20, st.Remaining[packages.Base])
	assert.Equal(t, 20, st.Remaining[packages.Premium])
}

func TestFailedRefreshKeepsLastKnownNumbers(t *testing.T) {
	f := venerdiBackend()
	c := NewController(f, nil, nil, nil)
	ctx := context.Background()

	_, err := c.LoadActiveEvents(ctx)
	require.NoError(t, err)

	f.mu.Lock()
	f.availErr["ven"] = &client.Error{Status: http.StatusBadGateway, Message: "upstream"}
	f.availErr["sab"] = &client.Error{Status: http.StatusBadGateway, Message: "upstream"}
	f.mu.Unlock()

	remaining, err := c.LoadAvailability(ctx, "ven")
	assert.ErrorIs(t, err, ErrLoadAvailability)
	assert.Equal(t, 2, remaining[packages.Premium])
	assert.Equal(t, 2, c.State().Remaining[packages.Premium])

	// a new night that never loaded shows nothing
	remaining, err = c.SelectEvent(ctx, "sab")
	assert.ErrorIs(t, err, ErrLoadAvailability)
	for _, code := range packages.Order {
		assert.Zero(t, remaining[code])
	}
}

func TestSubmitPreconditionsMakeNoNetworkCall(t *testing.T) {
	ctx := context.Background()

	t.Run("no event", func(t *testing.T) {
		f := newFakeBackend()
		c := NewController(f, nil, nil, nil)
		c.SetContact("Giulia", "333", "")
		_, err := c.Submit(ctx)
		assert.ErrorIs(t, err, ErrNoEventSelected)
		assert.Equal(t, "Seleziona un evento", Message(err))
		assert.Zero(t, f.reservations())
	})

	cases := []struct {
		name   string
		setup  func(c *Controller)
		expect error
		msg    string
	}{
		{"empty name", func(c *Controller) { c.SetContact("   ", "333 1234567", "") }, ErrMissingContact, "Inserisci nome e numero telefono"},
		{"empty phone", func(c *Controller) { c.SetContact("Giulia", " ", "") }, ErrMissingContact, "Inserisci nome e numero telefono"},
		{"too many tables", func(c *Controller) {
			c.SetContact("Giulia", "333 1234567", "")
			require.NoError(t, c.SetTables(3))
		}, ErrTablesUnavailable, "Tavoli non disponibili per questa zona"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := venerdiBackend()
			c := NewController(f, nil, nil, nil)
			_, err := c.LoadActiveEvents(ctx)
			require.NoError(t, err)

			tc.setup(c)
			_, err = c.Submit(ctx)
			assert.ErrorIs(t, err, tc.expect)
			assert.Equal(t, tc.msg, Message(err))
			assert.Zero(t, f.reservations())
			assert.Equal(t, StepEnteringContact, c.State().Step)
		})
	}
}

func TestSetTablesRejectsZero(t *testing.T) {
	c := NewController(newFakeBackend(), nil, nil, nil)
	assert.ErrorIs(t, c.SetTables(0), ErrInvalidTableCount)
	assert.Equal(t, 1, c.State().Tables)
}

func TestTotalAndPeople(t *testing.T) {
	c := NewController(newFakeBackend(), nil, nil, nil)
	require.NoError(t, c.SetTables(2))
	assert.Equal(t, 260.0, c.Total())
	assert.Equal(t, 12, c.People())
}

func TestVenerdiItalianoScenario(t *testing.T) {
	f := venerdiBackend()
	bus := eventbus.New()
	var confirmed []client.Reservation
	bus.On(eventbus.ReservationConfirmed, func(p interface{}) {
		confirmed = append(confirmed, p.(client.Reservation))
	})

	c := NewController(f, nil, bus, nil)
	ctx := context.Background()

	_, err := c.LoadActiveEvents(ctx)
	require.NoError(t, err)
	_, err = c.SelectEvent(ctx, "ven")
	require.NoError(t, err)
	require.NoError(t, c.SelectPackage(packages.Premium))
	require.NoError(t, c.SetTables(3))
	c.SetContact(" Giulia Rossi ", " 333 1234567 ", " compleanno ")

	_, err = c.Submit(ctx)
	assert.ErrorIs(t, err, ErrTablesUnavailable)
	assert.Zero(t, f.reservations())
	assert.Equal(t, 2, c.State().Remaining[packages.Premium])

	require.NoError(t, c.SetTables(2))
	res, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "res-1", res.ID)

	require.Len(t, f.reserveCalls, 1)
	sent := f.reserveCalls[0]
	assert.Equal(t, "ven", sent.EventID)
	assert.Equal(t, packages.Premium, sent.Package)
	assert.Equal(t, 2, sent.Tables)
	assert.Equal(t, "Giulia Rossi", sent.Name)
	assert.Equal(t, "333 1234567", sent.Phone)
	assert.Equal(t, "compleanno", sent.Notes)
	require.NotNil(t, sent.Total)
	assert.Equal(t, 260.0, *sent.Total)

	st := c.State()
	assert.Equal(t, StepConfirmed, st.Step)
	assert.Equal(t, Contact{}, st.Contact)
	assert.Equal(t, 1, st.Tables)
	assert.Equal(t, "ven", st.SelectedEventID)
	assert.Equal(t, 0, st.Remaining[packages.Premium])
	// premium is now full, so the first zone with tables takes over
	assert.Equal(t, packages.Base, st.SelectedPackage)
	assert.ErrorIs(t, c.SelectPackage(packages.Premium), ErrPackageSoldOut)

	require.Len(t, confirmed, 1)
	assert.Equal(t, "SR-0001", confirmed[0].Ref)
}

func TestSubmitCapacityRejectionIsSoldOut(t *testing.T) {
	f := venerdiBackend()
	f.reserveErr = &client.Error{Status: http.StatusConflict, Code: client.CodeCapacityExceeded, Message: "posti non disponibili"}
	c := NewController(f, nil, nil, nil)
	ctx := context.Background()

	_, err := c.LoadActiveEvents(ctx)
	require.NoError(t, err)
	c.SetContact("Giulia", "333", "")
	calls := f.availCalls

	_, err = c.Submit(ctx)
	assert.ErrorIs(t, err, ErrSoldOut)
	assert.Equal(t, "Posti esauriti per questa zona", Message(err))
	assert.Equal(t, StepEnteringContact, c.State().Step)
	assert.Equal(t, "Giulia", c.State().Contact.Name, "form is kept for another try")
	assert.Equal(t, calls+1, f.availCalls, "availability is fetched again")
}

func TestSubmitOtherFailurePassesMessageThrough(t *testing.T) {
	f := venerdiBackend()
	f.reserveErr = &client.Error{Status: http.StatusUnprocessableEntity, Code: "event_inactive", Message: "event is not open for reservations"}
	c := NewController(f, nil, nil, nil)
	ctx := context.Background()

	_, err := c.LoadActiveEvents(ctx)
	require.NoError(t, err)
	c.SetContact("Giulia", "333", "")

	_, err = c.Submit(ctx)
	assert.ErrorIs(t, err, ErrReservationFailed)
	assert.False(t, errors.Is(err, ErrSoldOut))
	assert.Equal(t, "Errore prenotazione: event is not open for reservations", Message(err))

	var apiErr *client.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
}

// blockingBackend holds CreateReservation until release is closed
type blockingBackend struct {
	*fakeBackend
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) CreateReservation(ctx context.Context, in client.ReservationInput) client.Result[client.Reservation] {
	close(b.entered)
	<-b.release
	return b.fakeBackend.CreateReservation(ctx, in)
}

func TestSecondSubmitWhileInFlight(t *testing.T) {
	b := &blockingBackend{fakeBackend: venerdiBackend(), entered: make(chan struct{}), release: make(chan struct{})}
	c := NewController(b, nil, nil, nil)
	ctx := context.Background()

	_, err := c.LoadActiveEvents(ctx)
	require.NoError(t, err)
	c.SetContact("Giulia", "333", "")

	done := make(chan error, 1)
	go func() {
		_, err := c.Submit(ctx)
		done <- err
	}()
	<-b.entered

	assert.True(t, c.State().Submitting)
	assert.Equal(t, StepSubmitting, c.State().Step)
	_, err = c.Submit(ctx)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(b.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, b.reservations())
}

func TestAvailabilityRefreshedIsPublished(t *testing.T) {
	f := venerdiBackend()
	bus := eventbus.New()
	var updates []AvailabilityUpdate
	bus.On(eventbus.AvailabilityRefreshed, func(p interface{}) {
		updates = append(updates, p.(AvailabilityUpdate))
	})

	c := NewController(f, nil, bus, nil)
	_, err := c.LoadActiveEvents(context.Background())
	require.NoError(t, err)

	require.Len(t, updates, 1)
	assert.Equal(t, "ven", updates[0].EventID)
	assert.Equal(t, 2, updates[0].Remaining[packages.Premium])
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "confirmed", StepConfirmed.String())
	assert.Equal(t, "unknown", Step(42).String())
}
