package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"google.golang.org/api/googleapi"
)

// StatusError is a non-2xx answer from a provider API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err is a provider rate-limit response.
func IsRateLimited(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		if ge.Code == http.StatusTooManyRequests {
			return true
		}
		for _, item := range ge.Errors {
			if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
				return true
			}
		}
	}
	return false
}

// LeadConnectorSource reads free slots from the LeadConnector calendars API.
// The client is expected to add authorization.
type LeadConnectorSource struct {
	baseURL    string
	apiVersion string
	client     *http.Client
}

func NewLeadConnectorSource(baseURL, apiVersion string, client *http.Client) *LeadConnectorSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &LeadConnectorSource{baseURL: baseURL, apiVersion: apiVersion, client: client}
}

type freeSlotsDay struct {
	Slots []string `json:"slots"`
}

// FreeInstants calls GET /calendars/{id}/free-slots. The response is an
// object keyed by the provider's own day grouping plus a "traceId" member.
func (s *LeadConnectorSource) FreeInstants(ctx context.Context, calendarID, staffID string, start, end time.Time) (map[string][]time.Time, error) {
	u, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse provider base url: %w", err)
	}
	u = u.JoinPath("calendars", calendarID, "free-slots")
	q := url.Values{}
	q.Set("startDate", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endDate", strconv.FormatInt(end.UnixMilli(), 10))
	if staffID != "" {
		q.Set("userId", staffID)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build free slots request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Version", s.apiVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request free slots: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode free slots: %w", err)
	}

	out := make(map[string][]time.Time, len(payload))
	for key, raw := range payload {
		if key == "traceId" {
			continue
		}
		var day freeSlotsDay
		if err := json.Unmarshal(raw, &day); err != nil {
			continue
		}
		for _, v := range day.Slots {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				continue
			}
			out[key] = append(out[key], t)
		}
	}
	return out, nil
}
