package analysis

import (
	"math"
	"sort"
	"time"

	"strava-stats/internal/store"
)

// DayTotal aggregates the activities that started on one local calendar day
type DayTotal struct {
	Day        time.Time // midnight UTC of the civil date
	Distance   float64   // meters
	Elevation  float64   // meters
	Activities []*store.Activity
}

// GroupByDay sums distance and elevation per local start date.
// The result is ordered by day, oldest first.
func GroupByDay(activities []store.Activity) []DayTotal {
	index := make(map[time.Time]int)
	var days []DayTotal

	for i := range activities {
		a := &activities[i]
		day := civilDay(a.StartDateLocal)
		pos, ok := index[day]
		if !ok {
			pos = len(days)
			index[day] = pos
			days = append(days, DayTotal{Day: day})
		}
		days[pos].Distance += a.Distance
		days[pos].Elevation += a.TotalElevationGain
		days[pos].Activities = append(days[pos].Activities, a)
	}

	sort.SliceStable(days, func(i, j int) bool {
		return days[i].Day.Before(days[j].Day)
	})
	return days
}

// EddingtonResult holds the Eddington number and the histogram it was read from
type EddingtonResult struct {
	Number int
	// Counts[d] is the number of days with at least d+1 km
	Counts []int
}

// Eddington computes the largest E such that E distinct days each have at
// least E km. Daily distances are summed per local date and floored to whole
// kilometers.
func Eddington(activities []store.Activity) EddingtonResult {
	days := GroupByDay(activities)

	dailyKm := make([]int, 0, len(days))
	maxKm := 0
	for _, d := range days {
		km := int(math.Floor(d.Distance / 1000))
		dailyKm = append(dailyKm, km)
		if km > maxKm {
			maxKm = km
		}
	}

	counts := make([]int, maxKm)
	for _, km := range dailyKm {
		for i := 0; i < km; i++ {
			counts[i]++
		}
	}

	// counts never increases with d, so the first hit from the top is the maximum
	number := 0
	for d := len(counts); d >= 1; d-- {
		if counts[d-1] >= d {
			number = d
			break
		}
	}

	return EddingtonResult{Number: number, Counts: counts}
}

// MaxStreak returns the longest run of consecutive local days with at least
// one activity. An empty list yields 0.
func MaxStreak(activities []store.Activity) int {
	if len(activities) == 0 {
		return 0
	}

	first := civilDay(activities[0].StartDateLocal)
	last := first
	for i := range activities {
		day := civilDay(activities[i].StartDateLocal)
		if day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}

	present := make([]bool, daysBetween(first, last)+1)
	for i := range activities {
		present[daysBetween(first, civilDay(activities[i].StartDateLocal))] = true
	}

	best, current := 0, 0
	for _, p := range present {
		if p {
			current++
			if current > best {
				best = current
			}
		} else {
			current = 0
		}
	}
	return best
}

// ActiveDays counts the distinct local days with at least one activity
func ActiveDays(activities []store.Activity) int {
	seen := make(map[time.Time]struct{})
	for i := range activities {
		seen[civilDay(activities[i].StartDateLocal)] = struct{}{}
	}
	return len(seen)
}

// civilDay drops the clock and zone, keeping the civil date as written
func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
