package strategyconfig

import (
	"time"

	"github.com/wonny/catalyst/internal/matching"
)

// Config는 카탈리스트 백테스트 전략의 전체 설정
// ⭐ SSOT: 실행 단위 파라미터는 이 구조체로만 전달 (전역 상태 금지)
type Config struct {
	Meta           Meta         `yaml:"meta" json:"meta"`
	Filter         Filter       `yaml:"filter" json:"filter"`
	Matching       Matching     `yaml:"matching" json:"matching"`
	CatalystWindow WindowConfig `yaml:"catalyst_window" json:"catalyst_window"`
	NewsWindow     WindowConfig `yaml:"news_window" json:"news_window"`
	Trade          Trade        `yaml:"trade" json:"trade"`
	Run            Run          `yaml:"run" json:"run"`
	Inputs         Inputs       `yaml:"inputs" json:"inputs"`
	Output         Output       `yaml:"output" json:"output"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Filter 변형별 후보 필터
type Filter struct {
	Catalyst FilterSpec `yaml:"catalyst" json:"catalyst"`
	NoNews   FilterSpec `yaml:"no_news" json:"no_news"`
}

// FilterSpec selects candidate trades from the raw flow
type FilterSpec struct {
	MinVolume     float64 `yaml:"min_volume" json:"min_volume"`
	MinPremium    float64 `yaml:"min_premium" json:"min_premium"`
	SortByVolume  bool    `yaml:"sort_by_volume" json:"sort_by_volume"`
	MaxCandidates int     `yaml:"max_candidates" json:"max_candidates"` // 0 = 제한 없음
}

// Matching 이름 매칭 정책
type Matching struct {
	FuzzyThreshold       float64    `yaml:"fuzzy_threshold" json:"fuzzy_threshold"`       // 0~100
	UniverseThreshold    float64    `yaml:"universe_threshold" json:"universe_threshold"` // 0~100
	ContainmentMinLength int        `yaml:"containment_min_length" json:"containment_min_length"`
	DebugFloor           float64    `yaml:"debug_floor" json:"debug_floor"` // 0~1, match debug 출력 하한
	NoiseTable           NoiseTable `yaml:"noise_table" json:"noise_table"`
}

// NoiseTable 버전 관리되는 noise word 목록 (비어 있으면 기본값)
type NoiseTable struct {
	Version string   `yaml:"version" json:"version"`
	Phrases []string `yaml:"phrases" json:"phrases"`
}

// WindowConfig 카탈리스트 탐지 윈도우 (일 단위, 양끝 포함)
type WindowConfig struct {
	LookbackDays    int `yaml:"lookback_days" json:"lookback_days"`
	LookforwardDays int `yaml:"lookforward_days" json:"lookforward_days"`
}

// Trade 시뮬레이션 파라미터
type Trade struct {
	HoldingDays       int     `yaml:"holding_days" json:"holding_days"`
	PriceBufferDays   int     `yaml:"price_buffer_days" json:"price_buffer_days"`
	InitialCapital    float64 `yaml:"initial_capital" json:"initial_capital"`
	TradeSizeFraction float64 `yaml:"trade_size_fraction" json:"trade_size_fraction"`
}

// Run 실행 파라미터
type Run struct {
	Workers                 int `yaml:"workers" json:"workers"`
	CandidateTimeoutSeconds int `yaml:"candidate_timeout_seconds" json:"candidate_timeout_seconds"`
}

// Inputs 입력 CSV 경로
type Inputs struct {
	FlowCSV    string `yaml:"flow_csv" json:"flow_csv"`
	StudiesCSV string `yaml:"studies_csv" json:"studies_csv"`
}

// Output 결과 파일 경로 (비어 있으면 생략)
type Output struct {
	ResultsCSV  string `yaml:"results_csv" json:"results_csv"`
	ResultsJSON string `yaml:"results_json" json:"results_json"`
	SignalsJSON string `yaml:"signals_json" json:"signals_json"`
}

// MatchThreshold returns fuzzy_threshold on the 0~1 scale
func (m Matching) MatchThreshold() float64 {
	return m.FuzzyThreshold / 100.0
}

// UniverseRatio returns universe_threshold on the 0~1 scale
func (m Matching) UniverseRatio() float64 {
	return m.UniverseThreshold / 100.0
}

// Table returns the configured noise table, or the built-in one when no phrases are set
func (n NoiseTable) Table() matching.NoiseTable {
	if len(n.Phrases) == 0 {
		return matching.DefaultNoiseTable()
	}
	return matching.NoiseTable{Version: n.Version, Phrases: n.Phrases}
}

// CandidateTimeout returns the per-candidate timeout (0 = none)
func (r Run) CandidateTimeout() time.Duration {
	return time.Duration(r.CandidateTimeoutSeconds) * time.Second
}

// RunSnapshot 실행 스냅샷 (재현성용)
type RunSnapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StrategyID string    `json:"strategy_id"`
	NoiseTable string    `json:"noise_table_version"`
	CreatedAt  time.Time `json:"created_at"`
}
