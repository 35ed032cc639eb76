package analysis

import (
	"reflect"
	"testing"
	"time"

	"strava-stats/internal/store"
)

func activityOn(id int64, day time.Time, meters float64) store.Activity {
	return store.Activity{ID: id, StartDateLocal: day, Distance: meters}
}

func day(n int) time.Time {
	return time.Date(2023, 12, 30, 8, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestEddington(t *testing.T) {
	tests := []struct {
		name       string
		activities []store.Activity
		wantNumber int
		wantCounts []int
	}{
		{
			name: "one activity per day",
			activities: []store.Activity{
				activityOn(1, day(0), 1000),
				activityOn(2, day(1), 2000),
				activityOn(3, day(2), 3000),
				activityOn(4, day(3), 4000),
			},
			wantNumber: 2,
			wantCounts: []int{4, 3, 2, 1},
		},
		{
			name: "two activities summed on one day",
			activities: []store.Activity{
				activityOn(1, day(0), 2000),
				activityOn(2, day(0).Add(6*time.Hour), 2000),
				activityOn(3, day(1), 4000),
				activityOn(4, day(2), 4000),
				activityOn(5, day(3), 4000),
			},
			wantNumber: 4,
			wantCounts: []int{4, 4, 4, 4},
		},
		{
			name: "partial kilometers are floored",
			activities: []store.Activity{
				activityOn(1, day(0), 1999),
				activityOn(2, day(1), 999),
			},
			wantNumber: 1,
			wantCounts: []int{1},
		},
		{
			name:       "no activities",
			activities: nil,
			wantNumber: 0,
			wantCounts: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Eddington(tt.activities)
			if got.Number != tt.wantNumber {
				t.Errorf("Number = %d, want %d", got.Number, tt.wantNumber)
			}
			if !reflect.DeepEqual(got.Counts, tt.wantCounts) {
				t.Errorf("Counts = %v, want %v", got.Counts, tt.wantCounts)
			}
		})
	}
}

func TestMaxStreak(t *testing.T) {
	tests := []struct {
		name string
		days []int
		want int
	}{
		{"empty", nil, 0},
		{"single day", []int{0}, 1},
		{"gap then longer run", []int{0, 1, 2, 4, 5, 6, 7}, 4},
		{"same day twice", []int{0, 0, 1}, 2},
		{"unordered input", []int{5, 1, 2, 0}, 3},
		{"across year boundary", []int{1, 2, 3}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var activities []store.Activity
			for i, d := range tt.days {
				activities = append(activities, activityOn(int64(i), day(d), 5000))
			}
			if got := MaxStreak(activities); got != tt.want {
				t.Errorf("MaxStreak = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMaxStreak_LateEveningStaysOnLocalDay(t *testing.T) {
	activities := []store.Activity{
		activityOn(1, time.Date(2024, 3, 30, 23, 50, 0, 0, time.UTC), 1000),
		activityOn(2, time.Date(2024, 3, 31, 0, 10, 0, 0, time.UTC), 1000),
		activityOn(3, time.Date(2024, 4, 1, 23, 59, 0, 0, time.UTC), 1000),
	}
	if got := MaxStreak(activities); got != 3 {
		t.Errorf("MaxStreak = %d, want 3", got)
	}
}

func TestGroupByDay(t *testing.T) {
	activities := []store.Activity{
		{ID: 1, StartDateLocal: day(2), Distance: 1000, TotalElevationGain: 10},
		{ID: 2, StartDateLocal: day(0), Distance: 3000, TotalElevationGain: 5},
		{ID: 3, StartDateLocal: day(2).Add(2 * time.Hour), Distance: 500, TotalElevationGain: 1},
	}

	days := GroupByDay(activities)
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(days))
	}
	if days[0].Distance != 3000 {
		t.Errorf("first day distance = %v, want 3000", days[0].Distance)
	}
	if days[1].Distance != 1500 || days[1].Elevation != 11 {
		t.Errorf("second day = %v m / %v m, want 1500 / 11", days[1].Distance, days[1].Elevation)
	}
	if len(days[1].Activities) != 2 || days[1].Activities[0].ID != 1 {
		t.Errorf("second day activities = %v", days[1].Activities)
	}

	if got := ActiveDays(activities); got != 2 {
		t.Errorf("ActiveDays = %d, want 2", got)
	}
}
