package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"cdx-overlay-lab/internal/domain"
)

const dateLayout = "2006-01-02"

// ReadSeriesCSV parses a two-column "date,value" series. A header row is
// detected and skipped. An empty or "NA" value field becomes NaN so that
// signal files with gaps round-trip cleanly.
func ReadSeriesCSV(r io.Reader) ([]domain.SeriesPoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2

	var points []domain.SeriesPoint
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}
		row++

		date, err := time.Parse(dateLayout, strings.TrimSpace(record[0]))
		if err != nil {
			if row == 1 {
				continue // header
			}
			return nil, fmt.Errorf("parse date %q at row %d: %w", record[0], row, err)
		}

		value, err := parseValue(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("parse value %q at row %d: %w", record[1], row, err)
		}

		points = append(points, domain.SeriesPoint{Date: date, Value: value})
	}
	return points, nil
}

func parseValue(s string) (float64, error) {
	if s == "" || strings.EqualFold(s, "na") || strings.EqualFold(s, "nan") {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// WriteSeriesCSV writes a series in the same "date,value" format that
// ReadSeriesCSV accepts. Missing values are written as empty fields.
func WriteSeriesCSV(w io.Writer, points []domain.SeriesPoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "value"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range points {
		value := ""
		if !domain.IsMissing(p.Value) {
			value = strconv.FormatFloat(p.Value, 'g', -1, 64)
		}
		if err := writer.Write([]string{p.Date.Format(dateLayout), value}); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
