package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

func TestLeadConnectorFreeInstants(t *testing.T) {
	start := time.Date(2025, 9, 15, 6, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendars/cal-1/free-slots" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("startDate") != strconv.FormatInt(start.UnixMilli(), 10) {
			t.Errorf("unexpected startDate %s", q.Get("startDate"))
		}
		if q.Get("endDate") != strconv.FormatInt(end.UnixMilli(), 10) {
			t.Errorf("unexpected endDate %s", q.Get("endDate"))
		}
		if q.Get("userId") != "staff-9" {
			t.Errorf("unexpected userId %s", q.Get("userId"))
		}
		if r.Header.Get("Version") != "2021-04-15" {
			t.Errorf("missing Version header")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"2025-09-15": {"slots": ["2025-09-15T10:15:00-06:00", "2025-09-15T12:00:00-06:00", "garbage"]},
			"2025-09-16": {"slots": ["2025-09-16T09:00:00-06:00"]},
			"traceId": "abc-123"
		}`))
	}))
	defer srv.Close()

	src := NewLeadConnectorSource(srv.URL, "2021-04-15", srv.Client())
	out, err := src.FreeInstants(context.Background(), "cal-1", "staff-9", start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 day groups, got %v", out)
	}
	if len(out["2025-09-15"]) != 2 {
		t.Fatalf("expected unparseable slot to be skipped, got %v", out["2025-09-15"])
	}
	want := time.Date(2025, 9, 15, 16, 15, 0, 0, time.UTC)
	if !out["2025-09-15"][0].Equal(want) {
		t.Fatalf("expected %v, got %v", want, out["2025-09-15"][0])
	}
}

func TestLeadConnectorOmitsEmptyStaff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["userId"]; ok {
			t.Errorf("userId should be omitted")
		}
		_, _ = w.Write([]byte(`{"traceId":"x"}`))
	}))
	defer srv.Close()

	src := NewLeadConnectorSource(srv.URL, "2021-04-15", srv.Client())
	out, err := src.FreeInstants(context.Background(), "cal-1", "", time.Now(), time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no slots, got %v", out)
	}
}

func TestLeadConnectorRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	src := NewLeadConnectorSource(srv.URL, "2021-04-15", srv.Client())
	_, err := src.FreeInstants(context.Background(), "cal-1", "", time.Now(), time.Now())
	if !IsRateLimited(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected StatusError, got %T", err)
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"status 503", &StatusError{StatusCode: 503}, false},
		{"google 429", &googleapi.Error{Code: 429}, true},
		{"google reason", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}, true},
		{"google forbidden", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimited(tt.err); got != tt.want {
				t.Fatalf("IsRateLimited(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
