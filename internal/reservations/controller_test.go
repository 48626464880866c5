package reservations

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"sorso/internal/events"
	"sorso/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Create(ctx context.Context, req CreateReservationRequest) (*ReservationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReservationResponse), args.Error(1)
}

func (m *MockService) ListForEvent(ctx context.Context, eventID uuid.UUID) (*EventReservationsResponse, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EventReservationsResponse), args.Error(1)
}

func (m *MockService) ExportPDF(ctx context.Context, eventID uuid.UUID, w io.Writer) (string, error) {
	args := m.Called(ctx, eventID, w)
	if args.Error(1) == nil {
		_, _ = w.Write([]byte("%PDF-1.3"))
	}
	return args.String(0), args.Error(1)
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	SetupReservationRoutes(api, api.Group("/staff"), NewController(svc, nil))
	return r
}

func postReservation(t *testing.T, r *gin.Engine, body interface{}) (*httptest.ResponseRecorder, response.StandardApiResponse) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var env response.StandardApiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func validBody() map[string]interface{} {
	return map[string]interface{}{
		"event_id": uuid.NewString(),
		"package":  "premium",
		"tables":   2,
		"name":     "Mario",
		"phone":    "333",
	}
}

func errorCode(env response.StandardApiResponse) string {
	m, _ := env.Errors.(map[string]interface{})
	code, _ := m["code"].(string)
	return code
}

func TestCreateReservation_Created(t *testing.T) {
	svc := new(MockService)
	svc.On("Create", mock.Anything, mock.Anything).Return(&ReservationResponse{Ref: "SRS-20251010-ABCDEF"}, nil)

	w, env := postReservation(t, setupRouter(svc), validBody())

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, response.StatusSuccess, env.Status)
}

func TestCreateReservation_CapacityExceeded(t *testing.T) {
	svc := new(MockService)
	svc.On("Create", mock.Anything, mock.Anything).Return(nil, ErrCapacityExceeded)

	w, env := postReservation(t, setupRouter(svc), validBody())

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "posti non disponibili", env.Message)
	assert.Equal(t, response.CodeCapacityExceeded, errorCode(env))
}

func TestCreateReservation_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{events.ErrEventNotFound, http.StatusNotFound, response.CodeNotFound},
		{ErrEventInactive, http.StatusUnprocessableEntity, response.CodeEventInactive},
		{ErrTotalMismatch, http.StatusBadRequest, response.CodeTotalMismatch},
		{ErrMissingContact, http.StatusBadRequest, response.CodeValidation},
		{assert.AnError, http.StatusInternalServerError, response.CodeInternal},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			svc := new(MockService)
			svc.On("Create", mock.Anything, mock.Anything).Return(nil, tc.err)

			w, env := postReservation(t, setupRouter(svc), validBody())

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, errorCode(env))
		})
	}
}

func TestCreateReservation_ValidationFailsBeforeService(t *testing.T) {
	svc := new(MockService)
	body := validBody()
	body["tables"] = 0

	w, env := postReservation(t, setupRouter(svc), body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.CodeValidation, errorCode(env))
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestExportPDF_Attachment(t *testing.T) {
	svc := new(MockService)
	id := uuid.New()
	svc.On("ExportPDF", mock.Anything, id, mock.Anything).Return("prenotazioni_2025-10-17.pdf", nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/staff/events/"+id.String()+"/reservations/export", nil)
	setupRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "prenotazioni_2025-10-17.pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestListForEvent_BadID(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/staff/events/not-a-uuid/reservations", nil)
	setupRouter(new(MockService)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
