package signals

import (
	"errors"
	"fmt"
	"sort"

	"cdx-overlay-lab/internal/domain"
)

var (
	ErrUnknownSignal  = errors.New("unknown signal")
	ErrMissingDataset = errors.New("required market dataset missing")
)

// ComputeFunc produces one signal series from keyed market data.
type ComputeFunc func(data map[string][]domain.SeriesPoint, cfg domain.SignalConfig) ([]domain.SeriesPoint, error)

// Entry describes one registered signal: its identifier, the market
// datasets it consumes, and its typed compute function.
type Entry struct {
	Name        string
	Description string
	Requires    []string
	Compute     ComputeFunc
}

// Registry is the closed catalog of available signals. Entries are fixed
// at construction so that a misnamed signal or missing dataset is caught
// when a run is configured, not midway through a computation.
type Registry struct {
	entries map[string]Entry
}

// NewRegistry builds the catalog with the three pilot signals.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]Entry)}

	r.register(Entry{
		Name:        domain.SignalCDXETFBasis,
		Description: "flow-driven mispricing between CDX and ETF-implied spreads",
		Requires:    []string{domain.DatasetCDX, domain.DatasetETF},
		Compute: func(data map[string][]domain.SeriesPoint, cfg domain.SignalConfig) ([]domain.SeriesPoint, error) {
			return ComputeCDXETFBasis(data[domain.DatasetCDX], data[domain.DatasetETF], cfg)
		},
	})
	r.register(Entry{
		Name:        domain.SignalCDXVIXGap,
		Description: "cross-asset risk sentiment gap between credit spreads and equity vol",
		Requires:    []string{domain.DatasetCDX, domain.DatasetVIX},
		Compute: func(data map[string][]domain.SeriesPoint, cfg domain.SignalConfig) ([]domain.SeriesPoint, error) {
			return ComputeCDXVIXGap(data[domain.DatasetCDX], data[domain.DatasetVIX], cfg)
		},
	})
	r.register(Entry{
		Name:        domain.SignalSpreadMomentum,
		Description: "volatility-adjusted short-term momentum in CDX spreads",
		Requires:    []string{domain.DatasetCDX},
		Compute: func(data map[string][]domain.SeriesPoint, cfg domain.SignalConfig) ([]domain.SeriesPoint, error) {
			return ComputeSpreadMomentum(data[domain.DatasetCDX], cfg)
		},
	})

	return r
}

func (r *Registry) register(e Entry) {
	r.entries[e.Name] = e
}

// Get returns the entry for name.
func (r *Registry) Get(name string) (Entry, error) {
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("signal %q: %w", name, ErrUnknownSignal)
	}
	return e, nil
}

// Names returns all registered signal names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compute validates the entry's data requirements against the supplied
// market data and runs its compute function.
func (r *Registry) Compute(name string, data map[string][]domain.SeriesPoint, cfg domain.SignalConfig) ([]domain.SeriesPoint, error) {
	e, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	for _, key := range e.Requires {
		if _, ok := data[key]; !ok {
			return nil, fmt.Errorf("signal %q needs dataset %q: %w", name, key, ErrMissingDataset)
		}
	}
	return e.Compute(data, cfg)
}

// ComputeAll runs every registered signal against the supplied market
// data, failing on the first signal whose requirements are not met.
func (r *Registry) ComputeAll(data map[string][]domain.SeriesPoint, cfg domain.SignalConfig) (map[string][]domain.SeriesPoint, error) {
	out := make(map[string][]domain.SeriesPoint, len(r.entries))
	for _, name := range r.Names() {
		series, err := r.Compute(name, data, cfg)
		if err != nil {
			return nil, err
		}
		out[name] = series
	}
	return out, nil
}
