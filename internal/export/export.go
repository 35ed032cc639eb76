// Package export writes computed statistics to CSV and Parquet files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	parquetlocal "github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"strava-stats/internal/analysis"
	"strava-stats/internal/statistics"
)

// Header is the column layout shared by the CSV and Parquet exports
var Header = []string{"section", "name", "value", "activity_id", "activity_name", "date"}

// Row is one exported statistic
type Row struct {
	Section      string `parquet:"name=section, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Name         string `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Value        string `parquet:"name=value, type=BYTE_ARRAY, convertedtype=UTF8"`
	ActivityID   int64  `parquet:"name=activity_id, type=INT64"`
	ActivityName string `parquet:"name=activity_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Date         string `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// Rows flattens sections in display order. Statistics without a best
// activity have ActivityID 0 and empty name and date.
func Rows(sections []statistics.Section) []Row {
	var rows []Row
	for _, section := range sections {
		for _, stat := range section.Statistics {
			row := Row{Section: section.Name, Name: stat.Name, Value: stat.Value}
			if stat.Activity != nil {
				row.ActivityID = stat.Activity.ID
				row.ActivityName = stat.Activity.Name
				row.Date = stat.Activity.LocalDay()
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func (r Row) record() []string {
	id := ""
	if r.ActivityID != 0 {
		id = strconv.FormatInt(r.ActivityID, 10)
	}
	return []string{r.Section, r.Name, r.Value, id, r.ActivityName, r.Date}
}

// WriteCSV writes every statistic of sections with a header line
func WriteCSV(w io.Writer, sections []statistics.Section) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range Rows(sections) {
		if err := cw.Write(row.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEddingtonCSV writes one km,days line per distance threshold, where
// days is the number of days with at least km kilometers.
func WriteEddingtonCSV(w io.Writer, result analysis.EddingtonResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"km", "days"}); err != nil {
		return err
	}
	for i, days := range result.Counts {
		if err := cw.Write([]string{strconv.Itoa(i + 1), strconv.Itoa(days)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteParquet writes the same rows as WriteCSV to a Snappy-compressed
// Parquet file at path.
func WriteParquet(path string, sections []statistics.Section) error {
	fw, err := parquetlocal.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}

	pw, err := writer.NewParquetWriter(fw, new(Row), 4)
	if err != nil {
		fw.Close()
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range Rows(sections) {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			fw.Close()
			return fmt.Errorf("writing parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("finishing parquet file: %w", err)
	}
	return fw.Close()
}
