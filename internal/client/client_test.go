package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sorso/internal/packages"
	"sorso/pkg/eventbus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, message string, data interface{}, code string) {
	body := map[string]interface{}{
		"status":      "success",
		"status_code": status,
		"message":     message,
		"data":        data,
	}
	if status >= http.StatusBadRequest {
		body["status"] = "error"
		body["errors"] = map[string]interface{}{"code": code, "details": nil}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type recorder struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
}

func (r *recorder) record(req *http.Request) string {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	r.bodies = append(r.bodies, string(body))
	return string(body)
}

func (r *recorder) last() (*http.Request, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.requests)
	return r.requests[n-1], r.bodies[n-1]
}

func newTestClient(t *testing.T, handler http.Handler, bus *eventbus.Bus) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{BaseURL: srv.URL + "/", Bus: bus}), srv
}

func TestListActiveEventsDecodesEnvelope(t *testing.T) {
	rec := &recorder{}
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		writeEnvelope(w, http.StatusOK, "Events retrieved", []map[string]interface{}{
			{"id": "ven", "code": "fri", "title": "Venerdì Italiano", "date": "2026-10-23", "active": true},
		}, "")
	}), nil)

	res := c.ListActiveEvents(context.Background())
	require.True(t, res.OK, "%v", res.Err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Venerdì Italiano", res.Data[0].Title)
	assert.Equal(t, time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC), res.Data[0].Night())

	req, _ := rec.last()
	assert.Equal(t, "/api/v1/events", req.URL.Path)
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestCreateReservationCapacityExceeded(t *testing.T) {
	rec := &recorder{}
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		writeEnvelope(w, http.StatusConflict, "posti non disponibili", nil, "capacity_exceeded")
	}), nil)

	total := 390.0
	res := c.CreateReservation(context.Background(), ReservationInput{
		EventID: "ven", Package: packages.Premium, Tables: 3, Name: "Giulia", Phone: "333", Total: &total,
	})
	require.False(t, res.OK)
	assert.True(t, res.Err.CapacityExceeded())
	assert.Equal(t, http.StatusConflict, res.Err.Status)

	req, body := rec.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"event_id":"ven","package":"premium","tables":3,"name":"Giulia","phone":"333","total":390}`, body)
}

func TestCapacityDetectedFromMessageOnly(t *testing.T) {
	err := &Error{Status: http.StatusBadRequest, Message: "ERROR: Posti non disponibili per il pacchetto"}
	assert.True(t, err.CapacityExceeded())
	assert.False(t, (&Error{Message: "event is not open"}).CapacityExceeded())

	var nilErr *Error
	assert.False(t, nilErr.CapacityExceeded())
}

func TestResultUnwrap(t *testing.T) {
	v, err := success(3).Unwrap()
	assert.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = failure[int](&Error{Code: "not_found", Message: "Event not found"}).Unwrap()
	assert.EqualError(t, err, "not_found: Event not found")
}

func TestNetworkFailureIsAResult(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := New(Options{BaseURL: srv.URL})
	res := c.ListPackages(context.Background())
	require.False(t, res.OK)
	assert.Equal(t, CodeNetwork, res.Err.Code)
	assert.Zero(t, res.Err.Status)
}

func TestUndecodableAnswerIsAResult(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}), nil)

	res := c.ListActiveEvents(context.Background())
	require.False(t, res.OK)
	assert.Equal(t, CodeDecode, res.Err.Code)

	c2, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, "ok", "not a list", "")
	}), nil)
	res = c2.ListActiveEvents(context.Background())
	require.False(t, res.OK)
	assert.Equal(t, CodeDecode, res.Err.Code)
}

type panickingTransport struct{}

func (panickingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	panic("transport exploded")
}

func TestPanicIsAResult(t *testing.T) {
	c := New(Options{BaseURL: "http://sorso.invalid", HTTPClient: &http.Client{Transport: panickingTransport{}}})

	res := c.GetPackageAvailability(context.Background(), "ven")
	require.False(t, res.OK)
	assert.Equal(t, CodeInternal, res.Err.Code)
	assert.Contains(t, res.Err.Message, "transport exploded")

	dl := c.DownloadReservationsPDF(context.Background(), "ven")
	require.False(t, dl.OK)
	assert.Equal(t, CodeInternal, dl.Err.Code)
}

func authServer(rec *recorder) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		body := rec.record(r)
		if !strings.Contains(body, `"password":"sorso-staff"`) {
			writeEnvelope(w, http.StatusUnauthorized, "Invalid email or password", nil, "unauthorized")
			return
		}
		writeEnvelope(w, http.StatusOK, "Login successful", map[string]interface{}{
			"user":          map[string]string{"id": "u1", "email": "staff@sorsoclub.it", "role": "staff"},
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    900,
		}, "")
	})
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		writeEnvelope(w, http.StatusOK, "Logged out successfully", nil, "")
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		body := rec.record(r)
		if !strings.Contains(body, "refresh-1") {
			writeEnvelope(w, http.StatusUnauthorized, "Invalid or expired refresh token", nil, "unauthorized")
			return
		}
		writeEnvelope(w, http.StatusOK, "Token refreshed successfully", map[string]interface{}{
			"access_token": "access-2", "refresh_token": "refresh-2", "expires_in": 900,
		}, "")
	})
	mux.HandleFunc("/api/v1/auth/session", func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		active := r.Header.Get("Authorization") != ""
		writeEnvelope(w, http.StatusOK, "Session retrieved", map[string]interface{}{"active": active}, "")
	})
	mux.HandleFunc("/api/v1/staff/events", func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		if r.Header.Get("Authorization") != "Bearer access-1" {
			writeEnvelope(w, http.StatusUnauthorized, "Token expired", nil, "unauthorized")
			return
		}
		writeEnvelope(w, http.StatusOK, "Events retrieved", []interface{}{}, "")
	})
	return mux
}

func TestSignInSignOutEmitSessionChanges(t *testing.T) {
	rec := &recorder{}
	bus := eventbus.New()
	var changes []eventbus.SessionChange
	bus.On(eventbus.SessionChanged, func(p interface{}) {
		changes = append(changes, p.(eventbus.SessionChange))
	})

	c, _ := newTestClient(t, authServer(rec), bus)
	now := time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	res := c.SignIn(context.Background(), "staff@sorsoclub.it", "nope")
	require.False(t, res.OK)
	assert.True(t, res.Err.Unauthorized())
	assert.False(t, c.HasSession())
	assert.Empty(t, changes)

	res = c.SignIn(context.Background(), "staff@sorsoclub.it", "sorso-staff")
	require.True(t, res.OK, "%v", res.Err)
	assert.Equal(t, "access-1", res.Data.AccessToken)
	assert.Equal(t, now.Add(15*time.Minute), res.Data.ExpiresAt)
	require.Len(t, changes, 1)
	assert.Equal(t, eventbus.SessionChange{Active: true, UserID: "u1"}, changes[0])

	events := c.ListEvents(context.Background())
	require.True(t, events.OK, "%v", events.Err)
	req, _ := rec.last()
	assert.Equal(t, "Bearer access-1", req.Header.Get("Authorization"))

	out := c.SignOut(context.Background())
	require.True(t, out.OK)
	_, body := rec.last()
	assert.JSONEq(t, `{"refresh_token":"refresh-1"}`, body)
	assert.False(t, c.HasSession())
	require.Len(t, changes, 2)
	assert.False(t, changes[1].Active)

	// signing out twice does not announce anything new
	c.SignOut(context.Background())
	assert.Len(t, changes, 2)
}

func TestUnauthorizedAnswerEndsSession(t *testing.T) {
	rec := &recorder{}
	bus := eventbus.New()
	ended := 0
	bus.On(eventbus.SessionChanged, func(p interface{}) {
		if !p.(eventbus.SessionChange).Active {
			ended++
		}
	})

	c, _ := newTestClient(t, authServer(rec), bus)
	c.RestoreSession(&Session{AccessToken: "expired", RefreshToken: "refresh-0"})
	require.True(t, c.HasSession())

	res := c.ListEvents(context.Background())
	require.False(t, res.OK)
	assert.True(t, res.Err.Unauthorized())
	assert.False(t, c.HasSession())
	assert.Equal(t, 1, ended)
}

func TestGetSessionAndRefresh(t *testing.T) {
	rec := &recorder{}
	c, _ := newTestClient(t, authServer(rec), nil)

	info := c.GetSession(context.Background())
	require.True(t, info.OK)
	assert.False(t, info.Data.Active)

	refresh := c.RefreshSession(context.Background())
	require.False(t, refresh.OK)
	assert.True(t, refresh.Err.Unauthorized())

	c.RestoreSession(&Session{AccessToken: "access-1", RefreshToken: "refresh-1"})
	refresh = c.RefreshSession(context.Background())
	require.True(t, refresh.OK, "%v", refresh.Err)
	assert.Equal(t, "access-2", c.Session().AccessToken)
	assert.Equal(t, "refresh-2", c.Session().RefreshToken)

	c.RestoreSession(&Session{AccessToken: "a", RefreshToken: "stale"})
	refresh = c.RefreshSession(context.Background())
	require.False(t, refresh.OK)
	assert.False(t, c.HasSession())
}

func TestStaffCallsUseStaffPrefix(t *testing.T) {
	rec := &recorder{}
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		switch {
		case strings.HasSuffix(r.URL.Path, "/packages"):
			writeEnvelope(w, http.StatusOK, "ok", []map[string]interface{}{
				{"package": "base", "total_tables": 30, "booked_tables": 4, "remaining": 26},
			}, "")
		default:
			writeEnvelope(w, http.StatusOK, "ok", map[string]interface{}{"id": "ven", "active": false}, "")
		}
	}), nil)
	c.RestoreSession(&Session{AccessToken: "tok"})
	ctx := context.Background()

	toggled := c.SetEventActive(ctx, "ven", false)
	require.True(t, toggled.OK)
	req, body := rec.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/api/v1/staff/events/ven/active", req.URL.Path)
	assert.JSONEq(t, `{"active":false}`, body)

	rows := c.UpdatePackageTotals(ctx, "ven", Totals{packages.Base: 30, packages.Premium: 20, packages.Elite: 10})
	require.True(t, rows.OK)
	assert.Equal(t, 26, rows.Data[0].Remaining)
	req, body = rec.last()
	assert.Equal(t, "/api/v1/staff/events/ven/packages", req.URL.Path)
	assert.JSONEq(t, `{"totals":{"base":30,"premium":20,"elite":10}}`, body)

	poster := c.UpdatePosterURL(ctx, "ven", "https://cdn/p.jpg")
	require.True(t, poster.OK)
	_, body = rec.last()
	assert.JSONEq(t, `{"poster_url":"https://cdn/p.jpg"}`, body)
}

func TestDownloadReservationsPDF(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeEnvelope(w, http.StatusUnauthorized, "Authorization header required", nil, "unauthorized")
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="prenotazioni_2026-10-23.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.3 fake"))
	}), nil)

	res := c.DownloadReservationsPDF(context.Background(), "ven")
	require.False(t, res.OK)
	assert.True(t, res.Err.Unauthorized())

	c.RestoreSession(&Session{AccessToken: "tok"})
	res = c.DownloadReservationsPDF(context.Background(), "ven")
	require.True(t, res.OK, "%v", res.Err)
	assert.Equal(t, "prenotazioni_2026-10-23.pdf", res.Data.Filename)
	assert.Equal(t, "application/pdf", res.Data.ContentType)
	assert.Equal(t, "%PDF-1.3 fake", string(res.Data.Data))
}

func TestAttachmentName(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{`attachment; filename="prenotazioni_2026-10-23.pdf"`, "prenotazioni_2026-10-23.pdf"},
		{`attachment; filename=prenotazioni.pdf`, "prenotazioni.pdf"},
		{`attachment; filename="serata; privata.pdf"`, "serata; privata.pdf"},
		{`attachment; filename="prenotazioni.pdf"; filename*=UTF-8''prenotazioni_Venerd%C3%AC.pdf`, "prenotazioni_Venerdì.pdf"},
		{`attachment`, ""},
		{``, ""},
		{`attachment; filename="unterminated`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, attachmentName(tt.header), tt.header)
	}
}

func TestPublicURLEscapesSegments(t *testing.T) {
	c := New(Options{BaseURL: "https://sorso.example/"})
	assert.Equal(t,
		"https://sorso.example/storage/public/sorso-prenotazioni/posters/ven/ven%20ita.jpg",
		c.PublicURL("sorso-prenotazioni", "/posters/ven/ven ita.jpg"))
}

func TestListAllFilesRecursiveWalksPages(t *testing.T) {
	// 150 files at the root, one folder holding two more
	root := make([]map[string]interface{}, 0, 151)
	for i := 0; i < 150; i++ {
		root = append(root, map[string]interface{}{"name": fmt.Sprintf("f%03d.jpg", i), "id": fmt.Sprint(i)})
	}
	root = append(root, map[string]interface{}{"name": "posters", "id": nil})
	nested := []map[string]interface{}{
		{"name": "a.jpg", "id": "a"},
		{"name": "b.jpg", "id": "b"},
	}

	var calls int
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		q := r.URL.Query()
		var offset int
		fmt.Sscan(q.Get("offset"), &offset)
		assert.Equal(t, "100", q.Get("limit"))

		items := root
		if q.Get("prefix") == "posters" {
			items = nested
		}
		end := offset + 100
		if end > len(items) {
			end = len(items)
		}
		if offset > len(items) {
			offset = len(items)
		}
		writeEnvelope(w, http.StatusOK, "ok", items[offset:end], "")
	}), nil)
	c.RestoreSession(&Session{AccessToken: "tok"})

	res := c.ListAllFilesRecursive(context.Background(), "sorso-prenotazioni", "")
	require.True(t, res.OK, "%v", res.Err)
	assert.Len(t, res.Data, 152)
	assert.Equal(t, "posters/a.jpg", res.Data[150].Path)
	assert.Equal(t, 3, calls)
}

func TestUploadSendsMultipart(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "flyer.jpg", header.Filename)
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))
		assert.Equal(t, "jpeg-bytes", string(data))
		assert.Equal(t, "posters/ven/flyer.jpg", r.FormValue("path"))
		assert.Equal(t, "true", r.FormValue("upsert"))

		writeEnvelope(w, http.StatusCreated, "Uploaded", map[string]string{
			"path": "posters/ven/flyer.jpg", "public_url": "http://x/storage/public/b/posters/ven/flyer.jpg",
		}, "")
	}), nil)
	c.RestoreSession(&Session{AccessToken: "tok"})

	res := c.Upload(context.Background(), "b", "posters/ven/flyer.jpg", strings.NewReader("jpeg-bytes"),
		UploadOptions{ContentType: "image/jpeg", Upsert: true})
	require.True(t, res.OK, "%v", res.Err)
	assert.Equal(t, "posters/ven/flyer.jpg", res.Data.Path)
}

func TestRemoveReturnsCount(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		writeEnvelope(w, http.StatusOK, "Removed", map[string]int{"removed": 2}, "")
	}), nil)
	c.RestoreSession(&Session{AccessToken: "tok"})

	res := c.Remove(context.Background(), "b", []string{"a.jpg", "b.jpg", "gone.jpg"})
	require.True(t, res.OK)
	assert.Equal(t, 2, res.Data)
}
