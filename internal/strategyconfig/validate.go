package strategyconfig

import (
	"fmt"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Filter ===
	for name, f := range map[string]FilterSpec{"filter.catalyst": cfg.Filter.Catalyst, "filter.no_news": cfg.Filter.NoNews} {
		if f.MinVolume < 0 {
			return ValidationError{name + ".min_volume", "must be >= 0"}
		}
		if f.MinPremium < 0 {
			return ValidationError{name + ".min_premium", "must be >= 0"}
		}
		if f.MaxCandidates < 0 {
			return ValidationError{name + ".max_candidates", "must be >= 0"}
		}
	}

	// === Matching ===
	m := cfg.Matching
	if err := validateScore(m.FuzzyThreshold, "matching.fuzzy_threshold"); err != nil {
		return err
	}
	if err := validateScore(m.UniverseThreshold, "matching.universe_threshold"); err != nil {
		return err
	}
	if m.ContainmentMinLength < 1 {
		return ValidationError{"matching.containment_min_length", "must be >= 1"}
	}
	if m.DebugFloor < 0 || m.DebugFloor > 1 {
		return ValidationError{"matching.debug_floor", "must be in range [0, 1]"}
	}
	if len(m.NoiseTable.Phrases) > 0 && m.NoiseTable.Version == "" {
		return ValidationError{"matching.noise_table.version", "required when phrases are set"}
	}

	// === Windows ===
	if err := validateWindow(cfg.CatalystWindow, "catalyst_window"); err != nil {
		return err
	}
	if err := validateWindow(cfg.NewsWindow, "news_window"); err != nil {
		return err
	}

	// === Trade ===
	t := cfg.Trade
	if t.HoldingDays < 1 {
		return ValidationError{"trade.holding_days", "must be >= 1"}
	}
	if t.PriceBufferDays < 0 {
		return ValidationError{"trade.price_buffer_days", "must be >= 0"}
	}
	if t.InitialCapital <= 0 {
		return ValidationError{"trade.initial_capital", "must be > 0"}
	}
	if t.TradeSizeFraction <= 0 || t.TradeSizeFraction > 1 {
		return ValidationError{"trade.trade_size_fraction", "must be in range (0, 1]"}
	}

	// === Run ===
	if cfg.Run.Workers < 1 || cfg.Run.Workers > 64 {
		return ValidationError{"run.workers", "must be in range [1, 64]"}
	}
	if cfg.Run.CandidateTimeoutSeconds < 0 {
		return ValidationError{"run.candidate_timeout_seconds", "must be >= 0"}
	}

	// === Inputs ===
	if cfg.Inputs.FlowCSV == "" {
		return ValidationError{"inputs.flow_csv", "required"}
	}
	if cfg.Inputs.StudiesCSV == "" {
		return ValidationError{"inputs.studies_csv", "required"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 낮은 매칭 임계값 경고
	if cfg.Matching.FuzzyThreshold < 70 {
		warnings = append(warnings, Warning{
			Code:    "LOW_FUZZY_THRESHOLD",
			Message: "fuzzy_threshold < 70: unrelated sponsors will start to match",
		})
	}

	// no-news 후보 무제한 경고
	if cfg.Filter.NoNews.MaxCandidates == 0 {
		warnings = append(warnings, Warning{
			Code:    "UNBOUNDED_NO_NEWS",
			Message: "filter.no_news.max_candidates = 0: every candidate triggers an SEC submissions request",
		})
	}

	// SEC rate limit 대비 과도한 워커 경고
	if cfg.Run.Workers > 8 {
		warnings = append(warnings, Warning{
			Code:    "MANY_WORKERS",
			Message: "run.workers > 8: providers are rate limited, extra workers mostly wait",
		})
	}

	// 타임아웃 없음
	if cfg.Run.CandidateTimeoutSeconds == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_TIMEOUT",
			Message: "run.candidate_timeout_seconds = 0: a stuck provider call blocks its worker",
		})
	}

	return warnings
}

// === Helper Functions ===

// validateScore는 0~100 스케일 임계값 검증
func validateScore(v float64, field string) error {
	if v <= 0 || v > 100 {
		return ValidationError{field, "must be in range (0, 100]"}
	}
	return nil
}

func validateWindow(w WindowConfig, field string) error {
	if w.LookbackDays < 0 {
		return ValidationError{field + ".lookback_days", "must be >= 0"}
	}
	if w.LookforwardDays < 0 {
		return ValidationError{field + ".lookforward_days", "must be >= 0"}
	}
	return nil
}
