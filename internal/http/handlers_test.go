package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/application"
	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
)

var testEnd = time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)

type stubReservationService struct {
	reserveResult application.ReserveResult
	reserveErr    error
	completeErr   error
	extendResult  application.ExtendResult
	extendErr     error

	lastReserve application.ReserveParams
	lastExtend  application.ExtendParams
	completed   []string
}

func (s *stubReservationService) Reserve(_ context.Context, params application.ReserveParams) (application.ReserveResult, error) {
	s.lastReserve = params
	return s.reserveResult, s.reserveErr
}

func (s *stubReservationService) Complete(_ context.Context, reservationID string) error {
	s.completed = append(s.completed, reservationID)
	return s.completeErr
}

func (s *stubReservationService) Extend(_ context.Context, params application.ExtendParams) (application.ExtendResult, error) {
	s.lastExtend = params
	return s.extendResult, s.extendErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(service *stubReservationService) http.Handler {
	return NewRouter(RouterConfig{
		Reservations: NewReservationHandler(service, discardLogger()),
	})
}

func TestReservationCreate(t *testing.T) {
	t.Parallel()

	t.Run("returns the created reservation", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{
			reserveResult: application.ReserveResult{
				ReservationID: "res-1",
				Copy:          persistence.Copy{ID: 7, Title: "Dune", Location: "Main"},
				End:           testEnd,
			},
		}
		router := newTestRouter(service)

		body := `{"holder_id":"holder-1","title":"Dune","location":"Main","duration":"1_week"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/reservations", strings.NewReader(body))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d: %s", recorder.Code, http.StatusCreated, recorder.Body)
		}
		if service.lastReserve.Duration != application.OneWeek {
			t.Errorf("duration = %s, want %s", service.lastReserve.Duration, application.OneWeek)
		}

		var resp reserveResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ReservationID != "res-1" || resp.CopyID != 7 {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("maps service sentinel errors to HTTP status codes", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name           string
			err            error
			expectedStatus int
			expectedCode   string
		}{
			{"already holding", application.ErrAlreadyHolding, http.StatusConflict, "ALREADY_HOLDING"},
			{"no copy available", application.ErrNoCopyAvailable, http.StatusConflict, "NO_COPY_AVAILABLE"},
			{"unknown title", application.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
			{"rules not accepted", application.ErrRulesNotAccepted, http.StatusForbidden, "RULES_NOT_ACCEPTED"},
		}

		for _, tc := range tests {
			tc := tc
			t.Run(tc.name, func(t *testing.T) {
				t.Parallel()

				router := newTestRouter(&stubReservationService{reserveErr: tc.err})

				body := `{"holder_id":"holder-1","title":"Dune","location":"Main","duration":"1_week"}`
				req := httptest.NewRequest(http.MethodPost, "/v1/reservations", strings.NewReader(body))
				recorder := httptest.NewRecorder()
				router.ServeHTTP(recorder, req)

				if recorder.Code != tc.expectedStatus {
					t.Fatalf("status = %d, want %d", recorder.Code, tc.expectedStatus)
				}
				var resp errorResponse
				if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.ErrorCode != tc.expectedCode {
					t.Errorf("error code = %q, want %q", resp.ErrorCode, tc.expectedCode)
				}
			})
		}
	})

	t.Run("rejects malformed bodies", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&stubReservationService{})

		req := httptest.NewRequest(http.MethodPost, "/v1/reservations", strings.NewReader("{not json"))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
		}
	})

	t.Run("surfaces validation field errors", func(t *testing.T) {
		t.Parallel()

		validation := &application.ValidationError{
			FieldErrors: map[string]string{"duration": "duration must be one of 1_hour, 1_week, 1_month, 3_months, 6_months"},
		}
		router := newTestRouter(&stubReservationService{reserveErr: validation})

		body := `{"holder_id":"holder-1","title":"Dune","location":"Main","duration":"bad"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/reservations", strings.NewReader(body))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusUnprocessableEntity)
		}
		var resp errorResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if _, ok := resp.Errors["duration"]; !ok {
			t.Errorf("errors = %v, want duration entry", resp.Errors)
		}
	})
}

func TestReservationReturn(t *testing.T) {
	t.Parallel()

	service := &stubReservationService{}
	router := newTestRouter(service)

	req := httptest.NewRequest(http.MethodPost, "/v1/reservations/res-1/return", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusNoContent)
	}
	if len(service.completed) != 1 || service.completed[0] != "res-1" {
		t.Errorf("completed = %v, want [res-1]", service.completed)
	}
}

func TestReservationExtend(t *testing.T) {
	t.Parallel()

	t.Run("returns the new end and label", func(t *testing.T) {
		t.Parallel()

		service := &stubReservationService{
			extendResult: application.ExtendResult{NewEnd: testEnd, ExtensionLabel: "1 week"},
		}
		router := newTestRouter(service)

		body := `{"holder_id":"holder-1"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/reservations/res-1/extension", strings.NewReader(body))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		if service.lastExtend.ReservationID != "res-1" || service.lastExtend.HolderID != "holder-1" {
			t.Errorf("extend params = %+v", service.lastExtend)
		}

		var resp extendResponse
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ExtensionLabel != "1 week" {
			t.Errorf("label = %q, want %q", resp.ExtensionLabel, "1 week")
		}
	})

	t.Run("second extension conflicts", func(t *testing.T) {
		t.Parallel()

		router := newTestRouter(&stubReservationService{extendErr: application.ErrAlreadyExtended})

		body := `{"holder_id":"holder-1"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/reservations/res-1/extension", strings.NewReader(body))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusConflict)
		}
	})
}

type stubWaitlistService struct {
	enqueueErr error
	dequeueErr error
	joined     []application.WaitlistParams
	left       []application.WaitlistParams
}

func (s *stubWaitlistService) Enqueue(_ context.Context, params application.WaitlistParams) error {
	s.joined = append(s.joined, params)
	return s.enqueueErr
}

func (s *stubWaitlistService) Dequeue(_ context.Context, params application.WaitlistParams) error {
	s.left = append(s.left, params)
	return s.dequeueErr
}

func TestWaitlistHandlers(t *testing.T) {
	t.Parallel()

	service := &stubWaitlistService{}
	router := NewRouter(RouterConfig{
		Waitlist: NewWaitlistHandler(service, discardLogger()),
	})

	body := `{"holder_id":"holder-1","title":"Dune","location":"Main"}`
	req := httptest.NewRequest(http.MethodPut, "/v1/waitlist", strings.NewReader(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("join status = %d, want %d", recorder.Code, http.StatusNoContent)
	}
	if len(service.joined) != 1 || service.joined[0].HolderID != "holder-1" {
		t.Errorf("joined = %+v", service.joined)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/waitlist", strings.NewReader(body))
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("leave status = %d, want %d", recorder.Code, http.StatusNoContent)
	}
	if len(service.left) != 1 {
		t.Errorf("left = %+v", service.left)
	}
}

type stubHolderService struct {
	holder     persistence.Holder
	registered []application.RegisterHolderParams
	acceptErr  error
	accepted   []string
}

func (s *stubHolderService) Register(_ context.Context, params application.RegisterHolderParams) (persistence.Holder, error) {
	s.registered = append(s.registered, params)
	return s.holder, nil
}

func (s *stubHolderService) AcceptRules(_ context.Context, holderID string) error {
	s.accepted = append(s.accepted, holderID)
	return s.acceptErr
}

type stubReservationLookup struct {
	reservation persistence.Reservation
	err         error
}

func (s *stubReservationLookup) ActiveReservation(_ context.Context, _ string) (persistence.Reservation, error) {
	return s.reservation, s.err
}

func TestHolderHandlers(t *testing.T) {
	t.Parallel()

	t.Run("registers holders", func(t *testing.T) {
		t.Parallel()

		service := &stubHolderService{holder: persistence.Holder{ID: "holder-1", DisplayName: "Ada", Location: "Main"}}
		router := NewRouter(RouterConfig{
			Holders: NewHolderHandler(service, &stubReservationLookup{}, discardLogger()),
		})

		body := `{"holder_id":"holder-1","display_name":"Ada","location":"Main"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/holders", strings.NewReader(body))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d: %s", recorder.Code, http.StatusCreated, recorder.Body)
		}
		if len(service.registered) != 1 {
			t.Fatalf("registered = %+v", service.registered)
		}
	})

	t.Run("accepts rules and reports missing holders", func(t *testing.T) {
		t.Parallel()

		service := &stubHolderService{acceptErr: application.ErrNotFound}
		router := NewRouter(RouterConfig{
			Holders: NewHolderHandler(service, &stubReservationLookup{}, discardLogger()),
		})

		req := httptest.NewRequest(http.MethodPost, "/v1/holders/ghost/rules-acceptance", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusNotFound)
		}
	})

	t.Run("returns the active reservation", func(t *testing.T) {
		t.Parallel()

		lookup := &stubReservationLookup{reservation: persistence.Reservation{
			ID: "res-1", HolderID: "holder-1", CopyID: 7, Title: "Dune", End: testEnd,
		}}
		router := NewRouter(RouterConfig{
			Holders: NewHolderHandler(&stubHolderService{}, lookup, discardLogger()),
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/holders/holder-1/reservation", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		var resp reservationDTO
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ID != "res-1" || resp.CopyID != 7 {
			t.Errorf("response = %+v", resp)
		}
	})
}

type stubCatalogService struct {
	added   []application.AddCopyParams
	copies  []persistence.Copy
	holders []application.HolderSummary
	err     error
}

func (s *stubCatalogService) AddCopy(_ context.Context, params application.AddCopyParams) (persistence.Copy, error) {
	s.added = append(s.added, params)
	return persistence.Copy{ID: 1, Title: params.Title, Location: params.Location, State: persistence.CopyAvailable}, s.err
}

func (s *stubCatalogService) ListAvailableCopies(_ context.Context, _ string) ([]persistence.Copy, error) {
	return s.copies, s.err
}

func (s *stubCatalogService) CurrentHolders(_ context.Context, _, _ string) ([]application.HolderSummary, error) {
	return s.holders, s.err
}

func TestCatalogHandlers(t *testing.T) {
	t.Parallel()

	t.Run("requires location for listing", func(t *testing.T) {
		t.Parallel()

		router := NewRouter(RouterConfig{
			Catalog: NewCatalogHandler(&stubCatalogService{}, discardLogger()),
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/copies", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusBadRequest)
		}
	})

	t.Run("lists available copies", func(t *testing.T) {
		t.Parallel()

		service := &stubCatalogService{copies: []persistence.Copy{
			{ID: 1, Title: "Dune", Location: "Main", State: persistence.CopyAvailable},
		}}
		router := NewRouter(RouterConfig{
			Catalog: NewCatalogHandler(service, discardLogger()),
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/copies?location=Main", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		var resp map[string][]copyDTO
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp["copies"]) != 1 || resp["copies"][0].Title != "Dune" {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("reports current holders", func(t *testing.T) {
		t.Parallel()

		service := &stubCatalogService{holders: []application.HolderSummary{
			{HolderID: "holder-1", DisplayName: "Ada", Title: "Dune", End: testEnd},
		}}
		router := NewRouter(RouterConfig{
			Catalog: NewCatalogHandler(service, discardLogger()),
		})

		req := httptest.NewRequest(http.MethodGet, "/v1/copies/holder?title=Dune&location=Main", nil)
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
		}
		var resp map[string][]holderSummaryDTO
		if err := json.NewDecoder(recorder.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp["holders"]) != 1 || resp["holders"][0].HolderID != "holder-1" {
			t.Errorf("response = %+v", resp)
		}
	})
}
