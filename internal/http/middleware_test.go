package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestRateLimit(t *testing.T) {
	t.Parallel()

	limited := RateLimit(rate.Limit(1), 2, discardLogger())(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

	statuses := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/v1/copies?location=Main", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		recorder := httptest.NewRecorder()
		limited.ServeHTTP(recorder, req)
		statuses = append(statuses, recorder.Code)
	}

	if statuses[0] != http.StatusNoContent || statuses[1] != http.StatusNoContent {
		t.Fatalf("statuses within burst = %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("status beyond burst = %d, want %d", statuses[2], http.StatusTooManyRequests)
	}

	// A different client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/v1/copies?location=Main", nil)
	req.RemoteAddr = "192.0.2.2:1234"
	recorder := httptest.NewRecorder()
	limited.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("fresh client status = %d, want %d", recorder.Code, http.StatusNoContent)
	}
}

func TestRecoverer(t *testing.T) {
	t.Parallel()

	wrapped := Recoverer(discardLogger())(http.HandlerFunc(
		func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))

	req := httptest.NewRequest(http.MethodGet, "/v1/reservations", nil)
	recorder := httptest.NewRecorder()
	wrapped.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusInternalServerError)
	}
}
