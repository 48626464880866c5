// Package staff is the console behind the staff area: sign in, manage the
// nights and their table inventory, and read or print the reservations.
// Every operation needs a live session; losing it at any time sends the
// console back to the login state.
package staff

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"sorso/internal/client"
	"sorso/internal/packages"
	"sorso/internal/report"
	"sorso/pkg/eventbus"
	"sorso/pkg/logger"
)

// DefaultBucket holds posters and background media
const DefaultBucket = "sorso-prenotazioni"

// DefaultTableCount is what every package starts with on a new night
const DefaultTableCount = 20

type Backend interface {
	GetSession(ctx context.Context) client.Result[client.SessionInfo]
	SignIn(ctx context.Context, email, password string) client.Result[client.Session]
	SignOut(ctx context.Context) client.Result[struct{}]

	ListEvents(ctx context.Context) client.Result[[]client.Event]
	GetEvent(ctx context.Context, id string) client.Result[client.Event]
	CreateEvent(ctx context.Context, in client.EventInput) client.Result[client.Event]
	SetEventActive(ctx context.Context, id string, active bool) client.Result[client.Event]
	UpdatePosterURL(ctx context.Context, id, posterURL string) client.Result[client.Event]

	GetPackageRows(ctx context.Context, eventID string) client.Result[[]client.PackageAvailability]
	CreatePackageRows(ctx context.Context, eventID string, totals client.Totals) client.Result[[]client.PackageAvailability]
	UpdatePackageTotals(ctx context.Context, eventID string, totals client.Totals) client.Result[[]client.PackageAvailability]

	ListReservations(ctx context.Context, eventID string) client.Result[client.EventReservations]

	Upload(ctx context.Context, bucket, objectPath string, r io.Reader, opts client.UploadOptions) client.Result[client.UploadedObject]
	PublicURL(bucket, objectPath string) string
}

// EventDraft is the staff form for a new night. Nil Totals means 20 tables per package.
type EventDraft struct {
	Title     string
	Date      string // YYYY-MM-DD
	PosterURL string
	Active    bool
	Totals    client.Totals
}

// Report is a night's reservation list with its per-package totals
type Report struct {
	Event        client.Event
	Reservations []client.Reservation
	report.Summary
}

// Rows converts the reservations for printing
func (r *Report) Rows() []report.Row {
	rows := make([]report.Row, 0, len(r.Reservations))
	for _, res := range r.Reservations {
		rows = append(rows, res.Row())
	}
	return rows
}

// EventDetail is what SelectEvent loads
type EventDetail struct {
	Event  client.Event
	Rows   []client.PackageAvailability
	Report *Report
}

type Option func(*Console)

// WithRedirect sets the callback run when the session ends
func WithRedirect(fn func()) Option {
	return func(c *Console) { c.redirect = fn }
}

func WithBucket(bucket string) Option {
	return func(c *Console) { c.bucket = bucket }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Console) { c.log = l }
}

type Console struct {
	backend  Backend
	catalog  *packages.Catalog
	bus      *eventbus.Bus
	log      *logger.Logger
	redirect func()
	bucket   string
	unsub    func()

	mu        sync.Mutex
	active    bool
	events    []client.Event
	selected  string
	rowsFor   string
	rows      []client.PackageAvailability
	report    *Report
	reportFor string
	creating  bool
}

func NewConsole(backend Backend, bus *eventbus.Bus, opts ...Option) *Console {
	c := &Console{
		backend: backend,
		catalog: packages.Default(),
		bus:     bus,
		log:     logger.Discard(),
		bucket:  DefaultBucket,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithComponent("staff")
	return c
}

// Mount checks the session with the backend and starts following session changes
func (c *Console) Mount(ctx context.Context) error {
	c.mu.Lock()
	if c.unsub == nil && c.bus != nil {
		c.unsub = c.bus.On(eventbus.SessionChanged, c.onSessionChanged)
	}
	c.mu.Unlock()

	res := c.backend.GetSession(ctx)
	if !res.OK || !res.Data.Active {
		c.endSession(false)
		if !res.OK {
			return fmt.Errorf("%w: %w", ErrSessionRequired, res.Err)
		}
		return ErrSessionRequired
	}

	c.mu.Lock()
	c.active = true
	c.mu.Unlock()
	return nil
}

// Unmount stops following session changes
func (c *Console) Unmount() {
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// NeedsLogin reports whether the console is showing the login state
func (c *Console) NeedsLogin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.active
}

func (c *Console) onSessionChanged(payload interface{}) {
	change, ok := payload.(eventbus.SessionChange)
	if !ok {
		return
	}
	if change.Active {
		c.mu.Lock()
		c.active = true
		c.mu.Unlock()
		return
	}
	c.endSession(true)
}

// endSession drops everything loaded and optionally runs the redirect
func (c *Console) endSession(redirect bool) {
	c.mu.Lock()
	was := c.active
	c.active = false
	c.events = nil
	c.selected = ""
	c.rowsFor = ""
	c.rows = nil
	c.report = nil
	c.reportFor = ""
	c.mu.Unlock()

	if was {
		c.log.Info("staff session ended")
	}
	if redirect && c.redirect != nil {
		c.redirect()
	}
}

func (c *Console) requireSession() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return ErrSessionRequired
	}
	return nil
}

// fail maps a backend failure; a rejected session ends the console's session too
func (c *Console) fail(op string, apiErr *client.Error) error {
	if apiErr.Unauthorized() {
		c.endSession(false)
		return fmt.Errorf("%w: %w", ErrSessionRequired, apiErr)
	}
	c.log.Error("staff request failed", "op", op, "error", apiErr.Error())
	return fmt.Errorf("%s: %w: %w", op, ErrRequestFailed, apiErr)
}

func (c *Console) SignIn(ctx context.Context, email, password string) error {
	res := c.backend.SignIn(ctx, strings.TrimSpace(email), password)
	if !res.OK {
		if res.Err.Unauthorized() {
			return ErrInvalidCredentials
		}
		return c.fail("sign in", res.Err)
	}

	c.mu.Lock()
	c.active = true
	c.mu.Unlock()
	c.log.Info("staff signed in", "user_id", res.Data.User.ID)
	return nil
}

// Logout ends the session locally even when the backend cannot be reached
func (c *Console) Logout(ctx context.Context) error {
	res := c.backend.SignOut(ctx)
	c.endSession(false)
	if !res.OK && !res.Err.Unauthorized() {
		return fmt.Errorf("sign out: %w: %w", ErrRequestFailed, res.Err)
	}
	return nil
}

// LoadEvents returns every night, active or not, earliest first
func (c *Console) LoadEvents(ctx context.Context) ([]client.Event, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	res := c.backend.ListEvents(ctx)
	if !res.OK {
		return nil, c.fail("list events", res.Err)
	}

	events := res.Data
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date < events[j].Date })

	c.mu.Lock()
	c.events = events
	c.mu.Unlock()
	return copyEvents(events), nil
}

func copyEvents(src []client.Event) []client.Event {
	out := make([]client.Event, len(src))
	copy(out, src)
	return out
}

// Events returns the list from the last LoadEvents
func (c *Console) Events() []client.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyEvents(c.events)
}

// SelectEvent loads the package rows and the reservations of one night.
// Answers for a night deselected meanwhile are dropped.
func (c *Console) SelectEvent(ctx context.Context, id string) (*EventDetail, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()

	event, err := c.event(ctx, id)
	if err != nil {
		return nil, err
	}

	rows := c.backend.GetPackageRows(ctx, id)
	if !rows.OK {
		return nil, c.fail("load packages", rows.Err)
	}
	rep, err := c.fetchReport(ctx, id)
	if err != nil {
		return nil, err
	}
	rep.Event = event

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected != id {
		return nil, ErrStaleResponse
	}
	c.rowsFor = id
	c.rows = rows.Data
	c.report = rep
	c.reportFor = id
	return &EventDetail{Event: event, Rows: copyRows(rows.Data), Report: rep}, nil
}

func copyRows(src []client.PackageAvailability) []client.PackageAvailability {
	out := make([]client.PackageAvailability, len(src))
	copy(out, src)
	return out
}

// event returns the night from the loaded list, asking the backend when it is not there
func (c *Console) event(ctx context.Context, id string) (client.Event, error) {
	c.mu.Lock()
	for _, e := range c.events {
		if e.ID == id {
			c.mu.Unlock()
			return e, nil
		}
	}
	c.mu.Unlock()

	res := c.backend.GetEvent(ctx, id)
	if !res.OK {
		if res.Err.Status == http.StatusNotFound {
			return client.Event{}, ErrEventNotLoaded
		}
		return client.Event{}, c.fail("load event", res.Err)
	}
	return res.Data, nil
}

// replaceEvent swaps an updated night into the loaded list
func (c *Console) replaceEvent(e client.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.events {
		if c.events[i].ID == e.ID {
			c.events[i] = e
		}
	}
	if c.report != nil && c.report.Event.ID == e.ID {
		c.report.Event = e
	}
}

// CreateEvent writes the event and then its three package rows. The two
// writes are not atomic: when the second fails the event stays and a
// *PartialEventError carries its id so the rows can be fixed by hand.
func (c *Console) CreateEvent(ctx context.Context, draft EventDraft) (client.Event, error) {
	if err := c.requireSession(); err != nil {
		return client.Event{}, err
	}

	c.mu.Lock()
	if c.creating {
		c.mu.Unlock()
		return client.Event{}, ErrCreateInFlight
	}
	c.creating = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.creating = false
		c.mu.Unlock()
	}()

	title := strings.TrimSpace(draft.Title)
	night, err := time.Parse("2006-01-02", strings.TrimSpace(draft.Date))
	if title == "" || err != nil {
		return client.Event{}, ErrInvalidDraft
	}
	totals, err := fillTotals(draft.Totals)
	if err != nil {
		return client.Event{}, err
	}

	in := client.EventInput{
		Title:  title,
		Date:   night.Format("2006-01-02"),
		Code:   weekdayCode(night),
		Active: &draft.Active,
	}
	if poster := strings.TrimSpace(draft.PosterURL); poster != "" {
		in.PosterURL = &poster
	}

	created := c.backend.CreateEvent(ctx, in)
	if !created.OK {
		return client.Event{}, c.fail("create event", created.Err)
	}
	event := created.Data

	rows := c.backend.CreatePackageRows(ctx, event.ID, totals)
	if !rows.OK {
		c.log.Error("event created without package rows", "event_id", event.ID, "error", rows.Err.Error())
		if rows.Err.Unauthorized() {
			c.endSession(false)
		}
		return event, &PartialEventError{EventID: event.ID, Err: rows.Err}
	}

	c.mu.Lock()
	c.events = append(c.events, event)
	sort.SliceStable(c.events, func(i, j int) bool { return c.events[i].Date < c.events[j].Date })
	c.mu.Unlock()

	c.log.Info("event created", "event_id", event.ID, "date", event.Date)
	return event, nil
}

// weekdayCode is sun..sat
func weekdayCode(d time.Time) string {
	return strings.ToLower(d.Weekday().String()[:3])
}

// fillTotals applies the default to missing packages and rejects negatives
func fillTotals(in client.Totals) (client.Totals, error) {
	out := make(client.Totals, len(packages.Order))
	for _, code := range packages.Order {
		n, ok := in[code]
		if !ok {
			n = DefaultTableCount
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTotals, code)
		}
		out[code] = n
	}
	return out, nil
}

// packageRows returns the package rows of eventID, fetching them when another night is loaded
func (c *Console) packageRows(ctx context.Context, eventID string) ([]client.PackageAvailability, error) {
	c.mu.Lock()
	if c.rowsFor == eventID {
		rows := copyRows(c.rows)
		c.mu.Unlock()
		return rows, nil
	}
	c.mu.Unlock()

	res := c.backend.GetPackageRows(ctx, eventID)
	if !res.OK {
		return nil, c.fail("load packages", res.Err)
	}
	return res.Data, nil
}

// UpdateAvailabilityTotals sets the three totals of a night. A package
// missing from totals keeps its current total. Nothing is written when any
// total would drop below the tables already booked.
func (c *Console) UpdateAvailabilityTotals(ctx context.Context, eventID string, totals client.Totals) ([]client.PackageAvailability, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	rows, err := c.packageRows(ctx, eventID)
	if err != nil {
		return nil, err
	}
	current := make(map[packages.Code]client.PackageAvailability, len(rows))
	for _, r := range rows {
		current[r.Package] = r
	}

	next := make(client.Totals, len(packages.Order))
	for _, code := range packages.Order {
		n, ok := totals[code]
		if !ok {
			n = current[code].TotalTables
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidTotals, code)
		}
		if booked := current[code].BookedTables; n < booked {
			return nil, &FloorError{Package: code, Label: c.catalog.Label(code), Proposed: n, Booked: booked}
		}
		next[code] = n
	}

	res := c.backend.UpdatePackageTotals(ctx, eventID, next)
	if !res.OK {
		// someone booked between our read and the write
		if floor := c.floorFromDetails(res.Err); floor != nil {
			return nil, floor
		}
		return nil, c.fail("update totals", res.Err)
	}

	c.mu.Lock()
	if c.rowsFor == eventID || c.selected == eventID {
		c.rowsFor = eventID
		c.rows = copyRows(res.Data)
	}
	c.mu.Unlock()

	c.log.Info("package totals updated", "event_id", eventID)
	return res.Data, nil
}

func (c *Console) floorFromDetails(apiErr *client.Error) *FloorError {
	if apiErr.Code != "total_below_booked" || len(apiErr.Details) == 0 {
		return nil
	}
	var violations []struct {
		Package  packages.Code `json:"package"`
		Proposed int           `json:"proposed"`
		Booked   int           `json:"booked"`
	}
	if err := json.Unmarshal(apiErr.Details, &violations); err != nil || len(violations) == 0 {
		return nil
	}
	v := violations[0]
	return &FloorError{Package: v.Package, Label: c.catalog.Label(v.Package), Proposed: v.Proposed, Booked: v.Booked}
}

// ToggleEventActive shows a hidden night or hides a visible one
func (c *Console) ToggleEventActive(ctx context.Context, eventID string) (client.Event, error) {
	if err := c.requireSession(); err != nil {
		return client.Event{}, err
	}

	event, err := c.event(ctx, eventID)
	if err != nil {
		return client.Event{}, err
	}

	res := c.backend.SetEventActive(ctx, eventID, !event.Active)
	if !res.OK {
		return client.Event{}, c.fail("toggle event", res.Err)
	}
	c.replaceEvent(res.Data)
	c.log.Info("event visibility changed", "event_id", eventID, "active", res.Data.Active)
	return res.Data, nil
}

func (c *Console) SavePosterURL(ctx context.Context, eventID, posterURL string) (client.Event, error) {
	if err := c.requireSession(); err != nil {
		return client.Event{}, err
	}

	res := c.backend.UpdatePosterURL(ctx, eventID, strings.TrimSpace(posterURL))
	if !res.OK {
		return client.Event{}, c.fail("save poster", res.Err)
	}
	c.replaceEvent(res.Data)
	return res.Data, nil
}

// UploadPoster stores the image under posters/<event>/ and points the night at its public URL
func (c *Console) UploadPoster(ctx context.Context, eventID, filename string, r io.Reader, contentType string) (client.Event, error) {
	if err := c.requireSession(); err != nil {
		return client.Event{}, err
	}

	objectPath := path.Join("posters", eventID, path.Base("/"+filename))
	up := c.backend.Upload(ctx, c.bucket, objectPath, r, client.UploadOptions{ContentType: contentType, Upsert: true})
	if !up.OK {
		return client.Event{}, c.fail("upload poster", up.Err)
	}

	url := up.Data.PublicURL
	if url == "" {
		url = c.backend.PublicURL(c.bucket, up.Data.Path)
	}
	return c.SavePosterURL(ctx, eventID, url)
}

// ListReservations loads a night's reservations, newest first, with totals per package.
// Listing a night selects it; an answer for a night no longer selected is dropped.
func (c *Console) ListReservations(ctx context.Context, eventID string) (*Report, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.selected = eventID
	c.mu.Unlock()

	rep, err := c.fetchReport(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if rep.Event.ID == "" {
		if rep.Event, err = c.event(ctx, eventID); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected != eventID {
		return nil, ErrStaleResponse
	}
	c.report = rep
	c.reportFor = eventID
	return rep, nil
}

func (c *Console) fetchReport(ctx context.Context, eventID string) (*Report, error) {
	res := c.backend.ListReservations(ctx, eventID)
	if !res.OK {
		return nil, c.fail("list reservations", res.Err)
	}

	list := res.Data.Reservations
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })

	rep := &Report{Event: res.Data.Event, Reservations: list}
	rep.Summary = report.Summarize(rep.Rows())
	return rep, nil
}

// ExportReservations prints the loaded list of eventID as PDF and returns the file name.
// A list loaded for another night is never exported in its place.
func (c *Console) ExportReservations(w io.Writer, eventID string) (string, error) {
	c.mu.Lock()
	rep, loadedFor := c.report, c.reportFor
	c.mu.Unlock()

	if rep == nil {
		return "", ErrNothingToExport
	}
	if loadedFor != eventID {
		return "", fmt.Errorf("%w: loaded list is for %s", ErrStaleResponse, loadedFor)
	}

	info := report.EventInfo{Title: rep.Event.Title, Date: rep.Event.Night()}
	if err := report.ReservationsPDF(w, info, rep.Rows()); err != nil {
		return "", fmt.Errorf("render reservations: %w", err)
	}
	return report.Filename(rep.Event.Date), nil
}

// LoadedReport is the list from the last ListReservations or SelectEvent
func (c *Console) LoadedReport() (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report == nil {
		return nil, ErrNothingToExport
	}
	return c.report, nil
}
