package strava

import (
	"encoding/json"
	"fmt"
	"time"
)

// Activity is a summary activity as returned by /athlete/activities
type Activity struct {
	ID                   int64     `json:"id"`
	Athlete              Athlete   `json:"athlete"`
	Name                 string    `json:"name"`
	Type                 string    `json:"type"`
	SportType            string    `json:"sport_type"`
	Commute              bool      `json:"commute"`
	StartDate            time.Time `json:"start_date"`
	StartDateLocal       time.Time `json:"start_date_local"` // civil time, serialized with a Z suffix
	Timezone             string    `json:"timezone"`
	Distance             float64   `json:"distance"`             // meters
	MovingTime           int       `json:"moving_time"`          // seconds
	ElapsedTime          int       `json:"elapsed_time"`         // seconds
	TotalElevationGain   float64   `json:"total_elevation_gain"` // meters
	MaxSpeed             float64   `json:"max_speed"`            // m/s
	AverageWatts         float64   `json:"average_watts"`
	WeightedAverageWatts int       `json:"weighted_average_watts"`
	DeviceWatts          bool      `json:"device_watts"`
}

// Athlete is the minimal athlete reference embedded in activities
type Athlete struct {
	ID int64 `json:"id"`
}

// StreamKeys are the stream types requested for every activity
var StreamKeys = []string{"time", "distance", "moving", "altitude", "latlng", "watts"}

// Streams is the key_by_type stream payload. It is also the on-disk cache
// format, so every series keeps its vendor metadata.
type Streams struct {
	Time     *StreamData[int]        `json:"time,omitempty"`
	Distance *StreamData[float64]    `json:"distance,omitempty"`
	Moving   *StreamData[bool]       `json:"moving,omitempty"`
	Altitude *StreamData[float64]    `json:"altitude,omitempty"`
	LatLng   *StreamData[[2]float64] `json:"latlng,omitempty"`
	Watts    *StreamData[*int]       `json:"watts,omitempty"` // null samples when the meter dropped out
}

// StreamData is a single stream series
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// NewStreamData wraps samples with the metadata Strava reports for
// full-resolution series indexed by distance.
func NewStreamData[T any](data []T) *StreamData[T] {
	return &StreamData[T]{
		Data:         data,
		SeriesType:   "distance",
		OriginalSize: len(data),
		Resolution:   "high",
	}
}

// Len returns the number of time samples, or 0 if nil
func (s *Streams) Len() int {
	if s == nil || s.Time == nil {
		return 0
	}
	return len(s.Time.Data)
}

// HasAltitude returns true if altitude data exists
func (s *Streams) HasAltitude() bool {
	return s != nil && s.Altitude != nil && len(s.Altitude.Data) > 0
}

// HasWatts returns true if power data exists
func (s *Streams) HasWatts() bool {
	return s != nil && s.Watts != nil && len(s.Watts.Data) > 0
}

// Marshal encodes the streams in the cache format
func (s *Streams) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding streams: %w", err)
	}
	return data, nil
}

// ParseStreams decodes a cache payload
func ParseStreams(data []byte) (*Streams, error) {
	var s Streams
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding streams: %w", err)
	}
	return &s, nil
}

// TokenResponse represents the OAuth token response from Strava
type TokenResponse struct {
	TokenType    string  `json:"token_type"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    int64   `json:"expires_at"`
	ExpiresIn    int     `json:"expires_in"`
	Athlete      Athlete `json:"athlete"`
}
