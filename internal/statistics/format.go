package statistics

import (
	"fmt"
	"time"
)

// formatSeconds renders a duration as "01m 12s", or "01h 02m 03s" past an hour
func formatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02dh %02dm %02ds", h, m, s)
	}
	return fmt.Sprintf("%02dm %02ds", m, s)
}

func formatSpeed(kmh float64) string {
	return fmt.Sprintf("%.2f km/h", kmh)
}

func formatKm(meters float64) string {
	return fmt.Sprintf("%.2f km", meters/1000)
}

func formatMeters(meters float64) string {
	return fmt.Sprintf("%.2f m", meters)
}

// formatDay renders a civil date with its weekday and month names
func formatDay(day time.Time) string {
	return day.Format("Monday 02 January 2006")
}

// DistanceLabel names a distance target the way section tables do
func DistanceLabel(meters float64) string {
	switch {
	case meters == HalfMarathon:
		return "half Marathon"
	case meters == Marathon:
		return "Marathon"
	case meters <= 1000 || int(meters)%1000 != 0:
		return fmt.Sprintf("%d m", int(meters))
	default:
		return fmt.Sprintf("%d km", int(meters)/1000)
	}
}

// DurationLabel names a duration target the way section tables do
func DurationLabel(seconds int) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%d s", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%d min", seconds/60)
	case seconds%3600 == 0:
		return fmt.Sprintf("%d h", seconds/3600)
	default:
		return fmt.Sprintf("%d h %02d min", seconds/3600, (seconds%3600)/60)
	}
}
