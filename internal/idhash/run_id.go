package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"cdx-overlay-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(signal_id|start_date|end_date|steps|entry|exit|size|cost|max_hold|dv01)
// Returns hex-encoded hash (64 characters).
//
// The same signal over the same date range with the same configuration
// always maps to the same run_id, which lets stores deduplicate repeated
// runs instead of accumulating copies.
func ComputeRunID(
	signalID string,
	startDate string,
	endDate string,
	steps int,
	cfg domain.BacktestConfig,
) string {
	maxHold := ""
	if cfg.MaxHoldingDays != nil {
		maxHold = fmt.Sprintf("%d", *cfg.MaxHoldingDays)
	}

	data := fmt.Sprintf("%s|%s|%s|%d|%g|%g|%g|%g|%s|%g",
		signalID,
		startDate,
		endDate,
		steps,
		cfg.EntryThreshold,
		cfg.ExitThreshold,
		cfg.PositionSize,
		cfg.TransactionCostBps,
		maxHold,
		cfg.DV01PerMillion,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeDatasetID computes a deterministic dataset registry key.
// Formula: SHA256(instrument|tenor|source)
func ComputeDatasetID(instrument, tenor, source string) string {
	data := fmt.Sprintf("%s|%s|%s", instrument, tenor, source)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
