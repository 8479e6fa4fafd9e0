package domain

import "time"

// DatasetEntry describes a registered market data series.
// Corresponds to the datasets table.
type DatasetEntry struct {
	DatasetID    string // deterministic hash of instrument, tenor, source
	Instrument   string // e.g. "CDX.NA.IG", "VIX", "HYG"
	Tenor        string // "5Y", "10Y", empty when not applicable
	Source       string // e.g. "file", "stream"
	RegisteredAt time.Time
	StartDate    time.Time
	EndDate      time.Time
	RowCount     int
	LastUpdated  time.Time
}
