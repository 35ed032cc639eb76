// Package fitimport turns FIT activity files into activity summaries and
// stream caches in the same shape as data synced from Strava.
package fitimport

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/tormoder/fit"

	"strava-stats/internal/store"
	"strava-stats/internal/strava"
)

// Source tags stream caches created from FIT files
const Source = "fit"

var (
	ErrNoSession = errors.New("activity file has no session message")
	ErrNoRecords = errors.New("activity file has no timestamped records")
)

// Imported is a decoded FIT activity
type Imported struct {
	Activity store.Activity
	Streams  *strava.Streams
}

// Decode reads a FIT activity file
func Decode(r io.Reader) (*Imported, error) {
	decoded, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}

	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}

	return FromActivity(activity)
}

// FromActivity converts an already decoded activity file
func FromActivity(act *fit.ActivityFile) (*Imported, error) {
	if len(act.Sessions) == 0 {
		return nil, ErrNoSession
	}
	session := act.Sessions[0]

	streams, start := buildStreams(act.Records)
	if streams == nil {
		return nil, ErrNoRecords
	}
	if t := validTime(session.StartTime); !t.IsZero() {
		start = t
	}

	sport := sportType(session.Sport, session.SubSport)
	local := start.Add(localOffset(act)).UTC()

	a := store.Activity{
		// negative ids never collide with Strava's
		ID:                   -start.Unix(),
		Name:                 fmt.Sprintf("%s %s", sport, local.Format("2006-01-02 15:04")),
		SportType:            sport,
		StartDate:            start.UTC(),
		StartDateLocal:       local,
		Distance:             positive(session.GetTotalDistanceScaled()),
		MovingTime:           int(positive(session.GetTotalTimerTimeScaled())),
		ElapsedTime:          int(positive(session.GetTotalElapsedTimeScaled())),
		TotalElevationGain:   float64(validUint16(session.TotalAscent)),
		MaxSpeed:             positive(session.GetEnhancedMaxSpeedScaled()),
		AverageWatts:         float64(validUint16(session.AvgPower)),
		WeightedAverageWatts: int(validUint16(session.NormalizedPower)),
	}

	if a.MaxSpeed == 0 {
		a.MaxSpeed = positive(session.GetMaxSpeedScaled())
	}
	n := streams.Len()
	if a.Distance == 0 && streams.Distance != nil {
		a.Distance = streams.Distance.Data[n-1]
	}
	if a.ElapsedTime == 0 {
		a.ElapsedTime = streams.Time.Data[n-1]
	}
	if a.MovingTime == 0 {
		a.MovingTime = a.ElapsedTime
	}

	return &Imported{Activity: a, Streams: streams}, nil
}

// buildStreams converts record messages into index-aligned series. Records
// without a valid timestamp or repeating the previous second are skipped;
// gaps in distance, altitude and position carry the last known value.
func buildStreams(records []*fit.RecordMsg) (*strava.Streams, time.Time) {
	var (
		start    time.Time
		times    []int
		distance []float64
		altitude []float64
		latlng   [][2]float64
		watts    []*int
		hasDist  bool
		hasAlt   bool
		hasPos   bool
		hasPower bool
		lastDist float64
		lastPos  [2]float64
	)
	lastTime, firstAlt, firstPos := -1, -1, -1
	lastAlt := math.NaN()

	for _, rec := range records {
		if rec == nil {
			continue
		}
		ts := validTime(rec.Timestamp)
		if ts.IsZero() {
			continue
		}
		if start.IsZero() {
			start = ts
		}
		elapsed := int(ts.Sub(start).Seconds())
		if elapsed <= lastTime {
			continue
		}
		lastTime = elapsed
		times = append(times, elapsed)

		if d := rec.GetDistanceScaled(); isFinite(d) && d >= lastDist {
			lastDist = d
			hasDist = true
		}
		distance = append(distance, lastDist)

		alt := rec.GetEnhancedAltitudeScaled()
		if !isFinite(alt) {
			alt = rec.GetAltitudeScaled()
		}
		if isFinite(alt) {
			lastAlt = alt
			if !hasAlt {
				firstAlt = len(altitude)
			}
			hasAlt = true
		}
		altitude = append(altitude, lastAlt)

		if !rec.PositionLat.Invalid() && !rec.PositionLong.Invalid() {
			lastPos = [2]float64{rec.PositionLat.Degrees(), rec.PositionLong.Degrees()}
			if !hasPos {
				firstPos = len(latlng)
			}
			hasPos = true
		}
		latlng = append(latlng, lastPos)

		if rec.Power != math.MaxUint16 {
			p := int(rec.Power)
			watts = append(watts, &p)
			hasPower = true
		} else {
			watts = append(watts, nil)
		}
	}

	if len(times) == 0 {
		return nil, time.Time{}
	}

	streams := &strava.Streams{Time: strava.NewStreamData(times)}
	if hasDist {
		streams.Distance = strava.NewStreamData(distance)
	}
	if hasAlt {
		backfill(altitude, firstAlt)
		streams.Altitude = strava.NewStreamData(altitude)
	}
	if hasPos {
		for i := 0; i < firstPos; i++ {
			latlng[i] = latlng[firstPos]
		}
		streams.LatLng = strava.NewStreamData(latlng)
	}
	if hasPower {
		streams.Watts = strava.NewStreamData(watts)
	}
	return streams, start
}

// backfill copies the first known value over the leading gap
func backfill(values []float64, first int) {
	for i := 0; i < first; i++ {
		values[i] = values[first]
	}
}

// localOffset is the device's UTC offset, zero when the file does not say
func localOffset(act *fit.ActivityFile) time.Duration {
	if act.Activity == nil {
		return 0
	}
	ts := validTime(act.Activity.Timestamp)
	local := validTime(act.Activity.LocalTimestamp)
	if ts.IsZero() || local.IsZero() {
		return 0
	}
	return local.Sub(ts).Round(15 * time.Minute)
}

func sportType(sport fit.Sport, sub fit.SubSport) string {
	switch sport {
	case fit.SportCycling:
		switch sub {
		case fit.SubSportVirtualActivity:
			return store.SportVirtualRide
		case fit.SubSportMountain:
			return store.SportMTBRide
		}
		return store.SportRide
	case fit.SportRunning:
		return store.SportRun
	case fit.SportHiking:
		return store.SportHike
	case fit.SportWalking:
		return store.SportWalk
	case fit.SportInlineSkating:
		return store.SportInlineSkate
	}
	return "Workout"
}

func validTime(t time.Time) time.Time {
	if t.IsZero() || fit.IsBaseTime(t) {
		return time.Time{}
	}
	return t
}

func validUint16(v uint16) uint16 {
	if v == math.MaxUint16 {
		return 0
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}
