package statistics

import (
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"

	"strava-stats/internal/store"
)

// Well-known running distances in meters
const (
	HalfMarathon = 21097.0
	Marathon     = 42195.0
)

// Section is an ordered list of statistics computed over one activity subset
type Section struct {
	Name       string
	Statistics []Statistic
}

// Filter selects the activities a section is computed over
type Filter func(a *store.Activity) bool

// SectionSpec is the configuration of one section: which activities it
// covers and which statistics it shows, in display order.
type SectionSpec struct {
	Name        string
	Filter      Filter
	Definitions []Definition
}

// Options controls the section layout
type Options struct {
	// CommuteSection splits rides into separate sport and commute sections
	CommuteSection bool
}

// BestTime is the fastest time over meters
func BestTime(meters float64) Definition {
	return Definition{Name: "Best " + DistanceLabel(meters), Kind: KindBestTimeForDistance, Meters: meters}
}

// BestDistance is the longest distance covered in seconds
func BestDistance(seconds int) Definition {
	return Definition{Name: "Best " + DurationLabel(seconds), Kind: KindBestDistanceForTime, Seconds: seconds}
}

// BestGradient is the steepest climb over meters
func BestGradient(meters float64) Definition {
	return Definition{Name: "Max gradient for " + DistanceLabel(meters), Kind: KindBestElevationForDistance, Meters: meters}
}

// BestPower is the highest average power held for seconds
func BestPower(seconds int) Definition {
	return Definition{Name: "Best average power for " + DurationLabel(seconds), Kind: KindBestPowerForTime, Seconds: seconds}
}

const hour = 3600

var (
	runDistances   = []float64{200, 400, 1000, 10000, HalfMarathon, Marathon}
	runDurations   = []int{1 * hour, 2 * hour, 3 * hour, 4 * hour, 5 * hour, 6 * hour}
	runGradients   = []float64{250, 500, 1000, 5000, 10000}
	rideDistances  = []float64{250, 500, 1000, 5000, 10000, 20000, 50000, 100000}
	rideDurations  = []int{1 * hour, 2 * hour, 3 * hour, 4 * hour, 5 * hour}
	rideGradients  = []float64{250, 500, 1000, 5000, 10000, 20000}
	ridePower      = []int{20, 60, 300, 20 * 60, 1 * hour}
	hikeDurations  = []int{1 * hour, 2 * hour, 3 * hour, 4 * hour, 5 * hour, 6 * hour}
	hikeGradients  = []float64{250, 500, 1000, 5000, 10000}
	skateDistances = []float64{200, 400, 1000, 10000, HalfMarathon, Marathon}
	skateDurations = []int{1 * hour, 2 * hour, 3 * hour, 4 * hour}
)

func globalDefinitions() []Definition {
	return []Definition{
		{Name: "Nb activities", Kind: KindActivityCount},
		{Name: "Nb actives days", Kind: KindActiveDays},
		{Name: "Max streak", Kind: KindMaxStreak},
		{Name: "Total distance", Kind: KindTotalDistance},
		{Name: "Total elevation", Kind: KindTotalElevation},
		{Name: "Most active month", Kind: KindMostActiveMonth},
	}
}

// sportDefinitions is the common head of every per-sport section
func sportDefinitions() []Definition {
	return []Definition{
		{Name: "Nb activities", Kind: KindActivityCount},
		{Name: "Nb actives days", Kind: KindActiveDays},
		{Name: "Max streak", Kind: KindMaxStreak},
		{Name: "Total distance", Kind: KindTotalDistance},
		{Name: "Km by activity", Kind: KindAverageDistance},
		{Name: "Max distance", Kind: KindMaxDistance},
		{Name: "Max distance in a day", Kind: KindMaxDistanceInADay},
		{Name: "Total elevation", Kind: KindTotalElevation},
		{Name: "Max elevation", Kind: KindMaxElevation},
		{Name: "Max elevation in a day", Kind: KindMaxElevationInADay},
		{Name: "Highest point", Kind: KindHighestPoint},
		{Name: "Max moving time", Kind: KindMaxMovingTime},
		{Name: "Max speed", Kind: KindMaxSpeed},
		{Name: "Most active month", Kind: KindMostActiveMonth},
		{Name: "Eddington number", Kind: KindEddington},
	}
}

func withEfforts(defs []Definition, distances []float64, durations []int, gradients []float64, power []int) []Definition {
	for _, m := range distances {
		defs = append(defs, BestTime(m))
	}
	for _, s := range durations {
		defs = append(defs, BestDistance(s))
	}
	for _, m := range gradients {
		defs = append(defs, BestGradient(m))
	}
	for _, s := range power {
		defs = append(defs, BestPower(s))
	}
	return defs
}

func isRide(a *store.Activity) bool {
	switch a.SportType {
	case store.SportRide, store.SportVirtualRide, store.SportGravelRide, store.SportMTBRide:
		return true
	}
	return false
}

func isSport(sport string) Filter {
	return func(a *store.Activity) bool { return a.SportType == sport }
}

// Layout returns the ordered section configuration
func Layout(opts Options) []SectionSpec {
	rideDefs := withEfforts(sportDefinitions(), rideDistances, rideDurations, rideGradients, ridePower)

	sections := []SectionSpec{
		{Name: "Global", Filter: func(*store.Activity) bool { return true }, Definitions: globalDefinitions()},
	}

	if opts.CommuteSection {
		sections = append(sections,
			SectionSpec{
				Name:        "Ride",
				Filter:      func(a *store.Activity) bool { return isRide(a) && !a.Commute },
				Definitions: rideDefs,
			},
			SectionSpec{
				Name:        "Commute",
				Filter:      func(a *store.Activity) bool { return isRide(a) && a.Commute },
				Definitions: rideDefs,
			},
		)
	} else {
		sections = append(sections, SectionSpec{Name: "Ride", Filter: isRide, Definitions: rideDefs})
	}

	return append(sections,
		SectionSpec{
			Name:        "Run",
			Filter:      isSport(store.SportRun),
			Definitions: withEfforts(sportDefinitions(), runDistances, runDurations, runGradients, nil),
		},
		SectionSpec{
			Name:        "Hike",
			Filter:      isSport(store.SportHike),
			Definitions: withEfforts(sportDefinitions(), nil, hikeDurations, hikeGradients, nil),
		},
		SectionSpec{
			Name:        "Inline skate",
			Filter:      isSport(store.SportInlineSkate),
			Definitions: withEfforts(sportDefinitions(), skateDistances, skateDurations, nil, nil),
		},
	)
}

// Select returns the activities the section covers, preserving order
func (s SectionSpec) Select(activities []store.Activity) []store.Activity {
	selected := make([]store.Activity, 0, len(activities))
	for i := range activities {
		if s.Filter == nil || s.Filter(&activities[i]) {
			selected = append(selected, activities[i])
		}
	}
	return selected
}

// Compute evaluates every definition of the section in parallel. A
// definition that fails validation is left out of the section and its error
// is joined into the returned error; the remaining statistics are still
// returned in definition order.
func (s SectionSpec) Compute(ctx context.Context, activities []store.Activity) (Section, error) {
	selected := s.Select(activities)

	results := make([]Statistic, len(s.Definitions))
	errs := make([]error, len(s.Definitions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, def := range s.Definitions {
		i, def := i, def
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = def.Compute(selected)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Section{Name: s.Name}, err
	}

	section := Section{Name: s.Name, Statistics: make([]Statistic, 0, len(results))}
	for i := range results {
		if errs[i] == nil {
			section.Statistics = append(section.Statistics, results[i])
		}
	}
	return section, errors.Join(errs...)
}

// Build computes every section of the layout. Invalid definitions are
// reported through the joined error without dropping the other statistics.
func Build(ctx context.Context, activities []store.Activity, opts Options) ([]Section, error) {
	layout := Layout(opts)
	sections := make([]Section, 0, len(layout))
	var errs []error
	for _, spec := range layout {
		section, err := spec.Compute(ctx, activities)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			errs = append(errs, err)
		}
		sections = append(sections, section)
	}
	return sections, errors.Join(errs...)
}
