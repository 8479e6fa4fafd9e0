package domain

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestPerformanceMetrics_MarshalJSON(t *testing.T) {
	m := PerformanceMetrics{
		SharpeRatio: 1.25,
		HitRate:     math.NaN(),
		TradeCount:  3,
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	s := string(out)
	if !strings.Contains(s, `"sharpe_ratio":1.25`) {
		t.Errorf("Expected sharpe_ratio 1.25, got %s", s)
	}
	if !strings.Contains(s, `"hit_rate":null`) {
		t.Errorf("Expected null hit_rate for NaN, got %s", s)
	}
	if !strings.Contains(s, `"trade_count":3`) {
		t.Errorf("Expected trade_count 3, got %s", s)
	}
}

func TestPerformanceMetrics_MarshalAllNaN(t *testing.T) {
	m := PerformanceMetrics{
		SharpeRatio:  math.NaN(),
		SortinoRatio: math.NaN(),
		CalmarRatio:  math.NaN(),
		HitRate:      math.NaN(),
		WinLossRatio: math.NaN(),
	}
	if _, err := json.Marshal(m); err != nil {
		t.Fatalf("Marshal with NaN sentinels must not fail: %v", err)
	}
}
