package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	parquetlocal "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"strava-stats/internal/analysis"
	"strava-stats/internal/statistics"
	"strava-stats/internal/store"
)

func testSections() []statistics.Section {
	ride := &store.Activity{
		ID:             42,
		Name:           "Col, du Galibier",
		StartDateLocal: time.Date(2024, 7, 14, 9, 30, 0, 0, time.UTC),
	}
	return []statistics.Section{
		{
			Name: "Global",
			Statistics: []statistics.Statistic{
				{Name: "Nb activities", Value: "12"},
			},
		},
		{
			Name: "Ride",
			Statistics: []statistics.Statistic{
				{Name: "Max gradient for 1000 m", Value: "9.40 %", Activity: ride},
				{Name: "Best average power for 20 min", Value: statistics.NotAvailable},
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, testSections()))

	want := "section,name,value,activity_id,activity_name,date\n" +
		"Global,Nb activities,12,,,\n" +
		"Ride,Max gradient for 1000 m,9.40 %,42,\"Col, du Galibier\",2024-07-14\n" +
		"Ride,Best average power for 20 min,Not available,,,\n"
	require.Equal(t, want, buf.String())
}

func TestWriteEddingtonCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteEddingtonCSV(&buf, analysis.EddingtonResult{Number: 2, Counts: []int{4, 3, 1}})
	require.NoError(t, err)
	require.Equal(t, "km,days\n1,4\n2,3\n3,1\n", buf.String())
}

func TestWriteParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statistics.parquet")
	require.NoError(t, WriteParquet(path, testSections()))

	fr, err := parquetlocal.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(Row), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.EqualValues(t, 3, pr.GetNumRows())
	rows := make([]Row, pr.GetNumRows())
	require.NoError(t, pr.Read(&rows))
	require.Equal(t, Rows(testSections()), rows)
}

func TestRowsEmpty(t *testing.T) {
	require.Empty(t, Rows(nil))
}
