package strava

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const streamsPayload = `{
	"time": {"data": [0, 10, 20], "series_type": "distance", "original_size": 3, "resolution": "high"},
	"distance": {"data": [0, 50.5, 101.2], "series_type": "distance", "original_size": 3, "resolution": "high"},
	"altitude": {"data": [10, 11, 12.5], "series_type": "distance", "original_size": 3, "resolution": "high"},
	"watts": {"data": [200, null, 220], "series_type": "distance", "original_size": 3, "resolution": "high"}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClientWithHTTP(srv.Client(), srv.URL)
	c.rateLimiter.minInterval = 0
	return c
}

func TestGetActivityStreams(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/activities/42/streams" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		w.Header().Set("X-RateLimit-Limit", "200,2000")
		w.Header().Set("X-RateLimit-Usage", "5,50")
		w.Write([]byte(streamsPayload))
	})

	streams, err := c.GetActivityStreams(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetActivityStreams: %v", err)
	}

	if gotQuery != "key_by_type=true&keys=time%2Cdistance%2Cmoving%2Caltitude%2Clatlng%2Cwatts" {
		t.Errorf("query = %s", gotQuery)
	}
	if streams.Len() != 3 {
		t.Errorf("Len() = %d, want 3", streams.Len())
	}
	if !streams.HasAltitude() || !streams.HasWatts() {
		t.Error("expected altitude and watts")
	}
	if streams.Watts.Data[1] != nil {
		t.Errorf("watts[1] = %v, want nil", *streams.Watts.Data[1])
	}
	if streams.Distance.Resolution != "high" || streams.Distance.OriginalSize != 3 {
		t.Errorf("metadata not decoded: %+v", streams.Distance)
	}

	short, daily := c.RateLimitStatus()
	if short != 195 || daily != 1950 {
		t.Errorf("RateLimitStatus() = %d, %d", short, daily)
	}
}

func TestGetActivityStreamsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Record Not Found"}`, http.StatusNotFound)
	})

	_, err := c.GetActivityStreams(context.Background(), 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	_, err := c.GetActivities(context.Background(), time.Time{}, 1, 10)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
}

func TestGetAllActivitiesPaginates(t *testing.T) {
	var pages []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if r.URL.Query().Get("after") != "1700000000" {
			t.Errorf("after = %s", r.URL.Query().Get("after"))
		}
		if page == "1" {
			w.Write([]byte("["))
			for i := 0; i < MaxPerPage; i++ {
				if i > 0 {
					w.Write([]byte(","))
				}
				w.Write([]byte(`{"id": 1, "sport_type": "Ride"}`))
			}
			w.Write([]byte("]"))
			return
		}
		w.Write([]byte(`[{"id": 2, "sport_type": "Run", "commute": true, "start_date_local": "2024-01-30T08:00:00Z"}]`))
	})

	var progress []int
	activities, err := c.GetAllActivities(context.Background(), time.Unix(1700000000, 0), func(n int) {
		progress = append(progress, n)
	})
	if err != nil {
		t.Fatalf("GetAllActivities: %v", err)
	}
	if len(activities) != MaxPerPage+1 {
		t.Fatalf("got %d activities", len(activities))
	}
	if len(pages) != 2 {
		t.Errorf("requested pages %v", pages)
	}
	last := activities[len(activities)-1]
	if !last.Commute || last.SportType != "Run" || last.StartDateLocal.Hour() != 8 {
		t.Errorf("last activity = %+v", last)
	}
	if len(progress) != 2 || progress[1] != MaxPerPage+1 {
		t.Errorf("progress = %v", progress)
	}
}

func TestStreamsMarshalRoundTripKeepsNulls(t *testing.T) {
	streams, err := ParseStreams([]byte(streamsPayload))
	if err != nil {
		t.Fatal(err)
	}
	data, err := streams.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	again, err := ParseStreams(data)
	if err != nil {
		t.Fatal(err)
	}
	if again.Watts.Data[1] != nil || *again.Watts.Data[2] != 220 {
		t.Errorf("watts = %v", again.Watts.Data)
	}
	if again.LatLng != nil || again.Moving != nil {
		t.Error("absent series should stay absent")
	}
}

func TestRateLimiterCancelledWait(t *testing.T) {
	r := NewRateLimiter()
	r.UpdateFromHeaders(http.Header{
		"X-Ratelimit-Limit": []string{"10,1000"},
		"X-Ratelimit-Usage": []string{"10,20"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() = %v, want context.Canceled", err)
	}
}

func TestParsePair(t *testing.T) {
	tests := []struct {
		in    string
		a, b  int
		valid bool
	}{
		{"100,1000", 100, 1000, true},
		{"34, 512", 34, 512, true},
		{"", 0, 0, false},
		{"x,1", 0, 0, false},
		{"7", 0, 0, false},
	}
	for _, tt := range tests {
		a, b, ok := parsePair(tt.in)
		if a != tt.a || b != tt.b || ok != tt.valid {
			t.Errorf("parsePair(%q) = %d, %d, %v", tt.in, a, b, ok)
		}
	}
}
