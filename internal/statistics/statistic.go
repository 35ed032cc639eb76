// Package statistics turns activity lists into named, display-ready values.
//
// Every statistic is a Definition: a Kind tag plus the parameters that kind
// needs. Compute is a pure function of the activity list, so definitions can
// be evaluated in any order or in parallel.
package statistics

import (
	"fmt"
	"math"
	"time"

	"strava-stats/internal/analysis"
	"strava-stats/internal/store"
)

// NotAvailable is displayed when no activity contributes a value
const NotAvailable = "Not available"

// Kind identifies how a statistic is computed
type Kind int

const (
	KindActivityCount Kind = iota
	KindActiveDays
	KindMaxStreak
	KindTotalDistance
	KindAverageDistance
	KindMaxDistance
	KindMaxDistanceInADay
	KindTotalElevation
	KindMaxElevation
	KindMaxElevationInADay
	KindHighestPoint
	KindMaxMovingTime
	KindMaxSpeed
	KindMostActiveMonth
	KindEddington
	KindBestTimeForDistance
	KindBestDistanceForTime
	KindBestElevationForDistance
	KindBestPowerForTime
)

var kindNames = map[Kind]string{
	KindActivityCount:            "activity_count",
	KindActiveDays:               "active_days",
	KindMaxStreak:                "max_streak",
	KindTotalDistance:            "total_distance",
	KindAverageDistance:          "average_distance",
	KindMaxDistance:              "max_distance",
	KindMaxDistanceInADay:        "max_distance_in_a_day",
	KindTotalElevation:           "total_elevation",
	KindMaxElevation:             "max_elevation",
	KindMaxElevationInADay:       "max_elevation_in_a_day",
	KindHighestPoint:             "highest_point",
	KindMaxMovingTime:            "max_moving_time",
	KindMaxSpeed:                 "max_speed",
	KindMostActiveMonth:          "most_active_month",
	KindEddington:                "eddington",
	KindBestTimeForDistance:      "best_time_for_distance",
	KindBestDistanceForTime:      "best_distance_for_time",
	KindBestElevationForDistance: "best_elevation_for_distance",
	KindBestPowerForTime:         "best_power_for_time",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Definition describes one statistic. Meters is used by distance-target
// kinds and Seconds by duration-target kinds; other kinds ignore both.
type Definition struct {
	Name    string
	Kind    Kind
	Meters  float64
	Seconds int
}

// Statistic is a computed, display-ready result
type Statistic struct {
	Name  string
	Kind  Kind
	Value string
	// Activity is the best matching activity, nil for aggregates
	Activity *store.Activity
	// Effort is set for the sliding-window kinds when a candidate was found
	Effort *analysis.Effort
	// Eddington is set for KindEddington
	Eddington *analysis.EddingtonResult
}

// Available reports whether any activity contributed to the value
func (s Statistic) Available() bool {
	return s.Value != NotAvailable
}

// Validate checks the target parameters of sliding-window kinds
func (d Definition) Validate() error {
	var err error
	switch d.Kind {
	case KindBestTimeForDistance:
		_, err = analysis.NewTimeForDistance(d.Meters)
	case KindBestElevationForDistance:
		_, err = analysis.NewElevationForDistance(d.Meters)
	case KindBestDistanceForTime:
		_, err = analysis.NewDistanceForTime(d.Seconds)
	case KindBestPowerForTime:
		_, err = analysis.NewPowerForTime(d.Seconds)
	default:
		if _, ok := kindNames[d.Kind]; !ok {
			return fmt.Errorf("statistic %q: unknown kind %d", d.Name, int(d.Kind))
		}
	}
	if err != nil {
		return fmt.Errorf("statistic %q: %w", d.Name, err)
	}
	return nil
}

// Compute evaluates the definition over activities. The only error is an
// invalid definition; missing data yields NotAvailable.
func (d Definition) Compute(activities []store.Activity) (Statistic, error) {
	if err := d.Validate(); err != nil {
		return Statistic{}, err
	}

	stat := Statistic{Name: d.Name, Kind: d.Kind, Value: NotAvailable}

	switch d.Kind {
	case KindActivityCount:
		stat.Value = fmt.Sprintf("%d", len(activities))

	case KindActiveDays:
		stat.Value = fmt.Sprintf("%d", analysis.ActiveDays(activities))

	case KindMaxStreak:
		stat.Value = fmt.Sprintf("%d", analysis.MaxStreak(activities))

	case KindTotalDistance:
		stat.Value = formatKm(sum(activities, func(a *store.Activity) float64 { return a.Distance }))

	case KindAverageDistance:
		if len(activities) > 0 {
			total := sum(activities, func(a *store.Activity) float64 { return a.Distance })
			stat.Value = formatKm(total / float64(len(activities)))
		}

	case KindMaxDistance:
		if a := maxBy(activities, func(a *store.Activity) float64 { return a.Distance }); a != nil {
			stat.Activity = a
			stat.Value = formatKm(a.Distance)
		}

	case KindTotalElevation:
		stat.Value = formatMeters(sum(activities, func(a *store.Activity) float64 { return a.TotalElevationGain }))

	case KindMaxElevation:
		if a := maxBy(activities, func(a *store.Activity) float64 { return a.TotalElevationGain }); a != nil {
			stat.Activity = a
			stat.Value = formatMeters(a.TotalElevationGain)
		}

	case KindMaxDistanceInADay, KindMaxElevationInADay:
		computeBestDay(&stat, activities)

	case KindHighestPoint:
		computeHighestPoint(&stat, activities)

	case KindMaxMovingTime:
		if a := maxBy(activities, func(a *store.Activity) float64 { return float64(a.MovingTime) }); a != nil {
			stat.Activity = a
			stat.Value = formatSeconds(a.MovingTime)
		}

	case KindMaxSpeed:
		if a := maxBy(activities, func(a *store.Activity) float64 { return a.MaxSpeed }); a != nil {
			stat.Activity = a
			stat.Value = formatSpeed(a.MaxSpeed * 3.6)
		}

	case KindMostActiveMonth:
		computeMostActiveMonth(&stat, activities)

	case KindEddington:
		result := analysis.Eddington(activities)
		stat.Eddington = &result
		stat.Value = fmt.Sprintf("%d km", result.Number)

	case KindBestTimeForDistance:
		x, _ := analysis.NewTimeForDistance(d.Meters)
		if e := x.Best(activities); e != nil {
			stat.setEffort(e, fmt.Sprintf("%s => %s", formatSeconds(e.Seconds), formatSpeed(e.Speed())))
		}

	case KindBestDistanceForTime:
		x, _ := analysis.NewDistanceForTime(d.Seconds)
		if e := x.Best(activities); e != nil {
			stat.setEffort(e, fmt.Sprintf("%s => %s", formatKm(e.Distance), formatSpeed(e.Speed())))
		}

	case KindBestElevationForDistance:
		x, _ := analysis.NewElevationForDistance(d.Meters)
		if e := x.Best(activities); e != nil {
			stat.setEffort(e, fmt.Sprintf("%.2f %%", e.Gradient()))
		}

	case KindBestPowerForTime:
		x, _ := analysis.NewPowerForTime(d.Seconds)
		if e := x.Best(activities); e != nil {
			stat.setEffort(e, fmt.Sprintf("%.0f W", *e.AveragePower))
		}
	}

	return stat, nil
}

func (s *Statistic) setEffort(e *analysis.Effort, value string) {
	s.Effort = e
	s.Activity = e.Activity
	s.Value = value
}

func computeBestDay(stat *Statistic, activities []store.Activity) {
	var best *analysis.DayTotal
	days := analysis.GroupByDay(activities)
	for i := range days {
		d := &days[i]
		if best == nil || dayValue(stat.Kind, d) > dayValue(stat.Kind, best) {
			best = d
		}
	}
	if best == nil {
		return
	}

	stat.Activity = best.Activities[0]
	if stat.Kind == KindMaxDistanceInADay {
		stat.Value = fmt.Sprintf("%s - %s", formatKm(best.Distance), formatDay(best.Day))
	} else {
		stat.Value = fmt.Sprintf("%s - %s", formatMeters(best.Elevation), formatDay(best.Day))
	}
}

func dayValue(kind Kind, d *analysis.DayTotal) float64 {
	if kind == KindMaxDistanceInADay {
		return d.Distance
	}
	return d.Elevation
}

func computeHighestPoint(stat *Statistic, activities []store.Activity) {
	highest := math.Inf(-1)
	for i := range activities {
		a := &activities[i]
		if !a.HasStream() || !a.Stream.HasAltitude() {
			continue
		}
		for _, alt := range a.Stream.Altitude {
			if alt > highest {
				highest = alt
				stat.Activity = a
			}
		}
	}
	if stat.Activity != nil {
		stat.Value = formatMeters(highest)
	}
}

func computeMostActiveMonth(stat *Statistic, activities []store.Activity) {
	type month struct {
		year  int
		month time.Month
	}
	totals := make(map[month]float64)
	var order []month
	for i := range activities {
		t := activities[i].StartDateLocal
		key := month{t.Year(), t.Month()}
		if _, ok := totals[key]; !ok {
			order = append(order, key)
		}
		totals[key] += activities[i].Distance
	}

	var best month
	bestDistance := -1.0
	for _, m := range order {
		if totals[m] > bestDistance {
			best, bestDistance = m, totals[m]
		}
	}
	if bestDistance < 0 {
		return
	}
	stat.Value = fmt.Sprintf("%s %d with %s", best.month, best.year, formatKm(bestDistance))
}

func sum(activities []store.Activity, value func(*store.Activity) float64) float64 {
	total := 0.0
	for i := range activities {
		total += value(&activities[i])
	}
	return total
}

// maxBy returns the first activity holding the maximum value, nil if empty
func maxBy(activities []store.Activity, value func(*store.Activity) float64) *store.Activity {
	var best *store.Activity
	for i := range activities {
		if best == nil || value(&activities[i]) > value(best) {
			best = &activities[i]
		}
	}
	return best
}
