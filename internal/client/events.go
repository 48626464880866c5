package client

import (
	"context"
	"net/http"
)

// ListActiveEvents returns the bookable nights, earliest first
func (c *Client) ListActiveEvents(ctx context.Context) Result[[]Event] {
	return call[[]Event](ctx, c, request{method: http.MethodGet, path: "/events"})
}

func (c *Client) GetEvent(ctx context.Context, id string) Result[Event] {
	return call[Event](ctx, c, request{method: http.MethodGet, path: eventPath(id)})
}

// GetPackageAvailability returns zero to three rows; a missing package has no capacity
func (c *Client) GetPackageAvailability(ctx context.Context, eventID string) Result[[]PackageAvailability] {
	return call[[]PackageAvailability](ctx, c, request{method: http.MethodGet, path: eventPath(eventID, "availability")})
}

func (c *Client) ListPackages(ctx context.Context) Result[Catalog] {
	return call[Catalog](ctx, c, request{method: http.MethodGet, path: "/packages"})
}

// CreateReservation books tables. A full package fails with Err.CapacityExceeded().
func (c *Client) CreateReservation(ctx context.Context, in ReservationInput) Result[Reservation] {
	return call[Reservation](ctx, c, request{method: http.MethodPost, path: "/reservations", body: in})
}

// Staff calls below need a session.

// ListEvents returns every event, inactive ones included
func (c *Client) ListEvents(ctx context.Context) Result[[]Event] {
	return call[[]Event](ctx, c, request{method: http.MethodGet, path: "/staff/events", auth: true})
}

func (c *Client) CreateEvent(ctx context.Context, in EventInput) Result[Event] {
	return call[Event](ctx, c, request{method: http.MethodPost, path: "/staff/events", body: in, auth: true})
}

func (c *Client) UpdateEvent(ctx context.Context, id string, patch EventPatch) Result[Event] {
	return call[Event](ctx, c, request{method: http.MethodPatch, path: "/staff" + eventPath(id), body: patch, auth: true})
}

func (c *Client) UpdatePosterURL(ctx context.Context, id, posterURL string) Result[Event] {
	return c.UpdateEvent(ctx, id, EventPatch{PosterURL: &posterURL})
}

// SetEventActive shows or hides a night; hiding is how events are deleted
func (c *Client) SetEventActive(ctx context.Context, id string, active bool) Result[Event] {
	return call[Event](ctx, c, request{
		method: http.MethodPatch,
		path:   "/staff" + eventPath(id, "active"),
		body:   map[string]bool{"active": active},
		auth:   true,
	})
}

func (c *Client) GetPackageRows(ctx context.Context, eventID string) Result[[]PackageAvailability] {
	return call[[]PackageAvailability](ctx, c, request{method: http.MethodGet, path: "/staff" + eventPath(eventID, "packages"), auth: true})
}

// CreatePackageRows creates the inventory of a new night with nothing booked
func (c *Client) CreatePackageRows(ctx context.Context, eventID string, totals Totals) Result[[]PackageAvailability] {
	return call[[]PackageAvailability](ctx, c, request{
		method: http.MethodPost,
		path:   "/staff" + eventPath(eventID, "packages"),
		body:   map[string]Totals{"totals": totals},
		auth:   true,
	})
}

// UpdatePackageTotals changes totals only; the backend refuses totals below booked
func (c *Client) UpdatePackageTotals(ctx context.Context, eventID string, totals Totals) Result[[]PackageAvailability] {
	return call[[]PackageAvailability](ctx, c, request{
		method: http.MethodPatch,
		path:   "/staff" + eventPath(eventID, "packages"),
		body:   map[string]Totals{"totals": totals},
		auth:   true,
	})
}

// ListReservations returns the night's bookings, newest first
func (c *Client) ListReservations(ctx context.Context, eventID string) Result[EventReservations] {
	return call[EventReservations](ctx, c, request{method: http.MethodGet, path: "/staff" + eventPath(eventID, "reservations"), auth: true})
}

func (c *Client) DownloadReservationsPDF(ctx context.Context, eventID string) Result[Download] {
	return download(ctx, c, request{method: http.MethodGet, path: "/staff" + eventPath(eventID, "reservations", "export"), auth: true})
}
