package marketdata

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"cdx-overlay-lab/internal/domain"
)

func points(values ...float64) []domain.SeriesPoint {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	out := make([]domain.SeriesPoint, len(values))
	for i, v := range values {
		out[i] = domain.SeriesPoint{Date: base.AddDate(0, 0, i), Value: v}
	}
	return out
}

func TestValidateSeries(t *testing.T) {
	if err := ValidateSeries(points(100, 101, 99), SpreadBounds); err != nil {
		t.Errorf("valid series rejected: %v", err)
	}

	if err := ValidateSeries(nil, SpreadBounds); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("got err %v, want %v", err, ErrEmptySeries)
	}

	dup := points(100, 101)
	dup[1].Date = dup[0].Date
	if err := ValidateSeries(dup, SpreadBounds); !errors.Is(err, ErrDuplicateDate) {
		t.Errorf("got err %v, want %v", err, ErrDuplicateDate)
	}

	unsorted := points(100, 101)
	unsorted[1].Date = unsorted[0].Date.AddDate(0, 0, -1)
	if err := ValidateSeries(unsorted, SpreadBounds); !errors.Is(err, ErrUnsortedDates) {
		t.Errorf("got err %v, want %v", err, ErrUnsortedDates)
	}

	if err := ValidateSeries(points(100, math.NaN()), SpreadBounds); !errors.Is(err, ErrMissingValue) {
		t.Errorf("got err %v, want %v", err, ErrMissingValue)
	}

	if err := ValidateSeries(points(15, 250), VIXBounds); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("got err %v, want %v", err, ErrOutOfBounds)
	}
	if err := ValidateSeries(points(-5), SpreadBounds); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("got err %v, want %v", err, ErrOutOfBounds)
	}
}

func TestAlign(t *testing.T) {
	signal := points(1, 2, 3, 4)
	spread := points(100, 101, 102, 103)

	// Knock a date out of each side and blank one spread value.
	signal = append(signal[:1], signal[2:]...) // drop day 1
	spread[3].Value = math.NaN()

	gotSignal, gotSpread := Align(signal, spread)

	if len(gotSignal) != 2 || len(gotSpread) != 2 {
		t.Fatalf("got %d/%d rows, want 2/2", len(gotSignal), len(gotSpread))
	}
	for i := range gotSignal {
		if !gotSignal[i].Date.Equal(gotSpread[i].Date) {
			t.Errorf("row %d dates differ", i)
		}
	}
	if gotSignal[0].Value != 1 || gotSignal[1].Value != 3 {
		t.Errorf("signal values = %v, %v, want 1, 3", gotSignal[0].Value, gotSignal[1].Value)
	}
	if gotSpread[1].Value != 102 {
		t.Errorf("spread[1] = %v, want 102", gotSpread[1].Value)
	}
}

func TestAlign_KeepsMissingSignal(t *testing.T) {
	signal := points(1, math.NaN(), 3)
	spread := points(100, 101, 102)

	gotSignal, gotSpread := Align(signal, spread)
	if len(gotSignal) != 3 {
		t.Fatalf("got %d rows, want 3", len(gotSignal))
	}
	if !math.IsNaN(gotSignal[1].Value) {
		t.Errorf("signal[1] = %v, want NaN preserved", gotSignal[1].Value)
	}
	if gotSpread[1].Value != 101 {
		t.Errorf("spread[1] = %v, want 101", gotSpread[1].Value)
	}
}

func TestGenerateMarketData(t *testing.T) {
	cfg := DefaultSampleConfig()
	data := GenerateMarketData(cfg)

	cdx := data[domain.DatasetCDX]
	if len(cdx) != cfg.Periods {
		t.Fatalf("cdx has %d points, want %d", len(cdx), cfg.Periods)
	}
	if err := ValidateSeries(cdx, SpreadBounds); err != nil {
		t.Errorf("generated cdx series invalid: %v", err)
	}
	if err := ValidateSeries(data[domain.DatasetVIX], VIXBounds); err != nil {
		t.Errorf("generated vix series invalid: %v", err)
	}
	if err := ValidateSeries(data[domain.DatasetETF], PriceBounds); err != nil {
		t.Errorf("generated etf series invalid: %v", err)
	}

	for _, p := range data[domain.DatasetVIX] {
		if p.Value < 8.0 {
			t.Fatalf("vix %v below floor", p.Value)
		}
	}

	// Same seed, same series.
	again := GenerateMarketData(cfg)
	for i := range cdx {
		if cdx[i] != again[domain.DatasetCDX][i] {
			t.Fatalf("generation not deterministic at %d", i)
		}
	}

	// Different seed, different path.
	other := GenerateMarketData(SampleConfig{StartDate: cfg.StartDate, Periods: cfg.Periods, Seed: cfg.Seed + 100})
	same := true
	for i := range cdx {
		if cdx[i].Value != other[domain.DatasetCDX][i].Value {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical cdx series")
	}
}

func TestSeriesCSVRoundTrip(t *testing.T) {
	series := points(100.5, math.NaN(), 99)

	var buf bytes.Buffer
	if err := WriteSeriesCSV(&buf, series); err != nil {
		t.Fatalf("WriteSeriesCSV: %v", err)
	}

	got, err := ReadSeriesCSV(&buf)
	if err != nil {
		t.Fatalf("ReadSeriesCSV: %v", err)
	}
	if len(got) != len(series) {
		t.Fatalf("got %d points, want %d", len(got), len(series))
	}
	for i := range series {
		if !got[i].Date.Equal(series[i].Date) {
			t.Errorf("date[%d] = %v, want %v", i, got[i].Date, series[i].Date)
		}
		if domain.IsMissing(series[i].Value) {
			if !domain.IsMissing(got[i].Value) {
				t.Errorf("value[%d] = %v, want NaN", i, got[i].Value)
			}
			continue
		}
		if got[i].Value != series[i].Value {
			t.Errorf("value[%d] = %v, want %v", i, got[i].Value, series[i].Value)
		}
	}
}

func TestReadSeriesCSV_NAValues(t *testing.T) {
	in := "date,value\n2024-05-01,100\n2024-05-02,NA\n2024-05-03,\n"
	got, err := ReadSeriesCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadSeriesCSV: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d points, want 3", len(got))
	}
	if !math.IsNaN(got[1].Value) || !math.IsNaN(got[2].Value) {
		t.Errorf("NA values not parsed as NaN: %v, %v", got[1].Value, got[2].Value)
	}
}

func TestReadSeriesCSV_BadRow(t *testing.T) {
	if _, err := ReadSeriesCSV(strings.NewReader("2024-05-01,abc\n")); err == nil {
		t.Error("unparseable value accepted")
	}
	if _, err := ReadSeriesCSV(strings.NewReader("date,value\nnot-a-date,1\n")); err == nil {
		t.Error("unparseable date accepted")
	}
}
