package fitimport

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"

	"strava-stats/internal/store"
)

var start = time.Date(2024, 5, 4, 6, 0, 0, 0, time.UTC)

func record(offset int, meters float64, alt float64, power uint16) *fit.RecordMsg {
	rec := fit.NewRecordMsg()
	rec.Timestamp = start.Add(time.Duration(offset) * time.Second)
	if !math.IsNaN(meters) {
		rec.Distance = uint32(meters * 100)
	}
	if !math.IsNaN(alt) {
		rec.EnhancedAltitude = uint32((alt + 500) * 5)
	}
	rec.Power = power
	return rec
}

func rideFile() *fit.ActivityFile {
	session := fit.NewSessionMsg()
	session.Sport = fit.SportCycling
	session.StartTime = start
	session.TotalDistance = 30000 // 300 m
	session.TotalTimerTime = 25000
	session.TotalElapsedTime = 30000
	session.TotalAscent = 12
	session.AvgPower = 210

	return &fit.ActivityFile{
		Sessions: []*fit.SessionMsg{session},
		Records: []*fit.RecordMsg{
			record(0, 0, math.NaN(), 200),
			record(10, 100, 101, math.MaxUint16),
			record(10, 100, 101, 250), // duplicate second, dropped
			record(20, math.NaN(), 102, 220),
			record(30, 300, 104, 230),
		},
	}
}

func TestFromActivity(t *testing.T) {
	imported, err := FromActivity(rideFile())
	require.NoError(t, err)

	a := imported.Activity
	require.Equal(t, -start.Unix(), a.ID)
	require.Equal(t, store.SportRide, a.SportType)
	require.Equal(t, start, a.StartDate)
	require.Equal(t, start, a.StartDateLocal)
	require.InDelta(t, 300, a.Distance, 1e-9)
	require.Equal(t, 25, a.MovingTime)
	require.Equal(t, 30, a.ElapsedTime)
	require.Equal(t, 12.0, a.TotalElevationGain)
	require.Equal(t, 210.0, a.AverageWatts)
	require.Equal(t, "Ride 2024-05-04 06:00", a.Name)

	s := imported.Streams
	require.Equal(t, []int{0, 10, 20, 30}, s.Time.Data)
	require.Equal(t, []float64{0, 100, 100, 300}, s.Distance.Data)
	require.Equal(t, []float64{101, 101, 102, 104}, s.Altitude.Data)
	require.Nil(t, s.LatLng)

	require.Len(t, s.Watts.Data, 4)
	require.Equal(t, 200, *s.Watts.Data[0])
	require.Nil(t, s.Watts.Data[1])
	require.Equal(t, 230, *s.Watts.Data[3])
}

func TestFromActivityFallsBackToRecords(t *testing.T) {
	file := rideFile()
	session := fit.NewSessionMsg()
	session.Sport = fit.SportRunning
	file.Sessions = []*fit.SessionMsg{session}

	imported, err := FromActivity(file)
	require.NoError(t, err)
	require.Equal(t, store.SportRun, imported.Activity.SportType)
	require.InDelta(t, 300, imported.Activity.Distance, 1e-9)
	require.Equal(t, 30, imported.Activity.ElapsedTime)
	require.Equal(t, 30, imported.Activity.MovingTime)
	require.Equal(t, 0.0, imported.Activity.TotalElevationGain)
}

func TestFromActivityLocalTime(t *testing.T) {
	file := rideFile()
	activity := fit.NewActivityMsg()
	activity.Timestamp = start.Add(time.Hour)
	activity.LocalTimestamp = start.Add(3 * time.Hour)
	file.Activity = activity

	imported, err := FromActivity(file)
	require.NoError(t, err)
	require.Equal(t, start.Add(2*time.Hour), imported.Activity.StartDateLocal)
}

func TestFromActivityErrors(t *testing.T) {
	_, err := FromActivity(&fit.ActivityFile{})
	require.ErrorIs(t, err, ErrNoSession)

	_, err = FromActivity(&fit.ActivityFile{Sessions: []*fit.SessionMsg{fit.NewSessionMsg()}})
	require.ErrorIs(t, err, ErrNoRecords)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a fit file")))
	require.Error(t, err)
}

func TestSportType(t *testing.T) {
	require.Equal(t, store.SportVirtualRide, sportType(fit.SportCycling, fit.SubSportVirtualActivity))
	require.Equal(t, store.SportMTBRide, sportType(fit.SportCycling, fit.SubSportMountain))
	require.Equal(t, store.SportHike, sportType(fit.SportHiking, fit.SubSportGeneric))
	require.Equal(t, store.SportInlineSkate, sportType(fit.SportInlineSkating, fit.SubSportGeneric))
	require.Equal(t, "Workout", sportType(fit.SportSwimming, fit.SubSportGeneric))
}
