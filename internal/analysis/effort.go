package analysis

import (
	"errors"
	"fmt"
	"math"

	"strava-stats/internal/store"
)

// ErrInvalidTarget is returned when an extractor is built with a target
// outside its supported range. It signals a configuration mistake, never bad
// activity data.
var ErrInvalidTarget = errors.New("invalid effort target")

const (
	// MinTargetDistance is the exclusive lower bound for distance targets in meters
	MinTargetDistance = 100.0
	// MinTargetSeconds is the exclusive lower bound for duration targets
	MinTargetSeconds = 10
	// DistanceTolerance absorbs sample quantization (999.6 m counts as 1000 m)
	DistanceTolerance = 0.5
	// MinEstimatedSeconds discards windows whose estimated time is implausibly short
	MinEstimatedSeconds = 1.0
)

// Effort is the best contiguous window found in one activity's stream
type Effort struct {
	Activity      *store.Activity // not owned, kept for display
	Distance      float64         // meters
	Seconds       int
	DeltaAltitude float64 // meters, end minus start
	IdxStart      int     // inclusive sample index
	IdxEnd        int     // inclusive sample index
	AveragePower  *float64
}

// Speed returns the average speed of the effort in km/h
func (e *Effort) Speed() float64 {
	if e.Seconds <= 0 {
		return 0
	}
	return e.Distance / float64(e.Seconds) * 3.6
}

// Gradient returns the average gradient of the effort in percent
func (e *Effort) Gradient() float64 {
	if e.Distance <= 0 {
		return 0
	}
	return e.DeltaAltitude / e.Distance * 100
}

// TimeForDistance finds the fastest time over a fixed distance
type TimeForDistance struct {
	Target float64 // meters
}

// NewTimeForDistance validates target (meters, must be > 100)
func NewTimeForDistance(target float64) (TimeForDistance, error) {
	if err := checkDistance(target); err != nil {
		return TimeForDistance{}, err
	}
	return TimeForDistance{Target: target}, nil
}

// Find scans the activity stream with two pointers and returns the fastest
// window covering Target meters, or nil if none exists.
func (x TimeForDistance) Find(a *store.Activity) *Effort {
	if !a.HasStream() {
		return nil
	}
	s := a.Stream
	n := s.Len()

	var best *Effort
	bestTime := math.MaxFloat64

	idxStart, idxEnd := 0, 0
	for idxEnd < n {
		windowDistance := s.Distance[idxEnd] - s.Distance[idxStart]
		if windowDistance < x.Target-DistanceTolerance {
			idxEnd++
			continue
		}

		windowTime := float64(s.Time[idxEnd] - s.Time[idxStart])
		estimated := x.Target / windowDistance * windowTime
		if estimated < bestTime && estimated > MinEstimatedSeconds {
			bestTime = estimated
			best = &Effort{
				Activity:      a,
				Distance:      x.Target,
				Seconds:       int(estimated),
				DeltaAltitude: altitudeDelta(s, idxStart, idxEnd),
				IdxStart:      idxStart,
				IdxEnd:        idxEnd,
			}
		}
		idxStart++
	}

	return best
}

// Best returns the fastest effort across activities. On equal times the
// activity that comes first in the list wins.
func (x TimeForDistance) Best(activities []store.Activity) *Effort {
	var best *Effort
	for i := range activities {
		e := x.Find(&activities[i])
		if e != nil && (best == nil || e.Seconds < best.Seconds) {
			best = e
		}
	}
	return best
}

// DistanceForTime finds the longest distance covered in a fixed duration
type DistanceForTime struct {
	Target int // seconds
}

// NewDistanceForTime validates target (seconds, must be > 10)
func NewDistanceForTime(target int) (DistanceForTime, error) {
	if err := checkSeconds(target); err != nil {
		return DistanceForTime{}, err
	}
	return DistanceForTime{Target: target}, nil
}

// Find returns the window with the greatest distance interpolated to exactly
// Target seconds, or nil if the activity is shorter than Target.
func (x DistanceForTime) Find(a *store.Activity) *Effort {
	if !a.HasStream() {
		return nil
	}
	s := a.Stream
	n := s.Len()

	var best *Effort
	bestDistance := -1.0

	idxStart, idxEnd := 0, 0
	for idxEnd < n {
		windowTime := s.Time[idxEnd] - s.Time[idxStart]
		if windowTime < x.Target {
			idxEnd++
			continue
		}

		windowDistance := s.Distance[idxEnd] - s.Distance[idxStart]
		estimated := windowDistance / float64(windowTime) * float64(x.Target)
		if estimated > bestDistance {
			bestDistance = estimated
			best = &Effort{
				Activity:      a,
				Distance:      estimated,
				Seconds:       x.Target,
				DeltaAltitude: altitudeDelta(s, idxStart, idxEnd),
				IdxStart:      idxStart,
				IdxEnd:        idxEnd,
			}
		}
		idxStart++
	}

	return best
}

// Best returns the longest effort across activities, first in list order on ties
func (x DistanceForTime) Best(activities []store.Activity) *Effort {
	var best *Effort
	for i := range activities {
		e := x.Find(&activities[i])
		if e != nil && (best == nil || e.Distance > best.Distance) {
			best = e
		}
	}
	return best
}

// ElevationForDistance finds the steepest sustained climb over a fixed distance
type ElevationForDistance struct {
	Target float64 // meters
}

// NewElevationForDistance validates target (meters, must be > 100)
func NewElevationForDistance(target float64) (ElevationForDistance, error) {
	if err := checkDistance(target); err != nil {
		return ElevationForDistance{}, err
	}
	return ElevationForDistance{Target: target}, nil
}

// Find returns the window spanning Target meters with the largest ascent.
// Activities without altitude data, or without any climbing window, yield nil.
func (x ElevationForDistance) Find(a *store.Activity) *Effort {
	if !a.HasStream() || !a.Stream.HasAltitude() {
		return nil
	}
	s := a.Stream
	n := s.Len()

	var best *Effort
	bestGain := 0.0

	idxStart, idxEnd := 0, 0
	for idxEnd < n {
		windowDistance := s.Distance[idxEnd] - s.Distance[idxStart]
		if windowDistance < x.Target-DistanceTolerance {
			idxEnd++
			continue
		}

		gain := s.Altitude[idxEnd] - s.Altitude[idxStart]
		if gain > bestGain {
			bestGain = gain
			best = &Effort{
				Activity:      a,
				Distance:      x.Target,
				Seconds:       s.Time[idxEnd] - s.Time[idxStart],
				DeltaAltitude: gain,
				IdxStart:      idxStart,
				IdxEnd:        idxEnd,
			}
		}
		idxStart++
	}

	return best
}

// Best returns the effort with the largest ascent across activities
func (x ElevationForDistance) Best(activities []store.Activity) *Effort {
	var best *Effort
	for i := range activities {
		e := x.Find(&activities[i])
		if e != nil && (best == nil || e.DeltaAltitude > best.DeltaAltitude) {
			best = e
		}
	}
	return best
}

// PowerForTime finds the best average power held for a fixed duration
type PowerForTime struct {
	Target int // seconds
}

// NewPowerForTime validates target (seconds, must be > 10)
func NewPowerForTime(target int) (PowerForTime, error) {
	if err := checkSeconds(target); err != nil {
		return PowerForTime{}, err
	}
	return PowerForTime{Target: target}, nil
}

// Find returns the window lasting at least Target seconds with the greatest
// summed power. Activities without a power stream yield nil.
func (x PowerForTime) Find(a *store.Activity) *Effort {
	if !a.HasStream() || !a.Stream.HasPower() {
		return nil
	}
	s := a.Stream
	n := s.Len()

	var best *Effort
	bestTotal := -1

	// total is the running sum of Power[idxStart..idxEnd]
	idxStart, idxEnd := 0, 0
	total := s.Power[0]
	for idxEnd < n {
		windowTime := s.Time[idxEnd] - s.Time[idxStart]
		if windowTime < x.Target {
			idxEnd++
			if idxEnd < n {
				total += s.Power[idxEnd]
			}
			continue
		}

		if total > bestTotal {
			bestTotal = total
			avg := float64(total) / float64(idxEnd-idxStart+1)
			best = &Effort{
				Activity:      a,
				Distance:      s.Distance[idxEnd] - s.Distance[idxStart],
				Seconds:       windowTime,
				DeltaAltitude: altitudeDelta(s, idxStart, idxEnd),
				IdxStart:      idxStart,
				IdxEnd:        idxEnd,
				AveragePower:  &avg,
			}
		}
		total -= s.Power[idxStart]
		idxStart++
	}

	return best
}

// Best returns the effort with the highest average power across activities
func (x PowerForTime) Best(activities []store.Activity) *Effort {
	var best *Effort
	for i := range activities {
		e := x.Find(&activities[i])
		if e != nil && (best == nil || *e.AveragePower > *best.AveragePower) {
			best = e
		}
	}
	return best
}

func altitudeDelta(s *store.Stream, idxStart, idxEnd int) float64 {
	if !s.HasAltitude() {
		return 0
	}
	return s.Altitude[idxEnd] - s.Altitude[idxStart]
}

func checkDistance(target float64) error {
	if !(target > MinTargetDistance) {
		return fmt.Errorf("%w: distance %.1f m must be greater than %.0f m", ErrInvalidTarget, target, MinTargetDistance)
	}
	return nil
}

func checkSeconds(target int) error {
	if target <= MinTargetSeconds {
		return fmt.Errorf("%w: duration %d s must be greater than %d s", ErrInvalidTarget, target, MinTargetSeconds)
	}
	return nil
}
