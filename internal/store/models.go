package store

import "time"

// Auth represents OAuth tokens for Strava API access
type Auth struct {
	AthleteID    int64     `db:"athlete_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// Sport types as reported by Strava
const (
	SportRide        = "Ride"
	SportVirtualRide = "VirtualRide"
	SportGravelRide  = "GravelRide"
	SportMTBRide     = "MountainBikeRide"
	SportRun         = "Run"
	SportHike        = "Hike"
	SportWalk        = "Walk"
	SportInlineSkate = "InlineSkate"
)

// Activity is an immutable activity summary. Stream is attached once it has
// been fetched or decoded and is nil otherwise.
type Activity struct {
	ID                   int64     `db:"id"`
	Name                 string    `db:"name"`
	SportType            string    `db:"sport_type"`
	Commute              bool      `db:"commute"`
	StartDate            time.Time `db:"start_date"`
	StartDateLocal       time.Time `db:"start_date_local"` // civil time, location is meaningless
	Distance             float64   `db:"distance"`         // meters
	MovingTime           int       `db:"moving_time"`      // seconds
	ElapsedTime          int       `db:"elapsed_time"`     // seconds
	TotalElevationGain   float64   `db:"total_elevation_gain"`
	MaxSpeed             float64   `db:"max_speed"`              // m/s
	AverageWatts         float64   `db:"average_watts"`          // 0 when unknown
	WeightedAverageWatts int       `db:"weighted_average_watts"` // 0 when unknown
	StreamCached         bool      `db:"stream_cached"`

	Stream *Stream `db:"-"`
}

// HasStream reports whether a usable stream is attached
func (a *Activity) HasStream() bool {
	return a.Stream != nil && a.Stream.Len() >= 2 && len(a.Stream.Distance) == a.Stream.Len()
}

// LocalDay returns the civil date the activity started on, as YYYY-MM-DD
func (a *Activity) LocalDay() string {
	return a.StartDateLocal.Format("2006-01-02")
}

// Stream holds the index-aligned samples of one activity. Distance and Time
// are always present; Altitude, Power, LatLng and Moving are nil when the
// recording device did not provide them.
type Stream struct {
	Distance []float64    // cumulative meters, non-decreasing
	Time     []int        // seconds since start, strictly increasing
	Altitude []float64    // meters
	Power    []int        // watts
	LatLng   [][2]float64 // degrees
	Moving   []bool
}

// Len returns the number of samples in the stream, or 0 if nil
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Time)
}

// HasAltitude returns true if altitude data is aligned with the stream
func (s *Stream) HasAltitude() bool {
	return s != nil && len(s.Altitude) > 0 && len(s.Altitude) == len(s.Time)
}

// HasPower returns true if power data is aligned with the stream
func (s *Stream) HasPower() bool {
	return s != nil && len(s.Power) > 0 && len(s.Power) == len(s.Time)
}

// StreamCache is the raw vendor stream payload stored for one activity
type StreamCache struct {
	ActivityID int64     `db:"activity_id"`
	Payload    []byte    `db:"payload"` // JSON keyed by stream type
	Source     string    `db:"source"`  // "strava" or "fit"
	CachedAt   time.Time `db:"cached_at"`
}
