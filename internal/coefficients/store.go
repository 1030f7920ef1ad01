package coefficients

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/internal/engineconfig"
)

// Required table file names inside the coefficient directory
const (
	WardTableFile      = "ward_coefficients.csv"
	GuidelineTableFile = "management_guidelines.csv"
	ScenarioTableFile  = "macro_scenarios.csv"
)

// Options 로드 옵션
type Options struct {
	DataDir         string
	CalibrationPath string // 선택, 없으면 기본값
	LoanProfile     string // 빈 값 = 캘리브레이션 선택 유지
	GradeScheme     string
}

// Tables 읽기 전용 계수 테이블 + 엔진 설정
// ⭐ SSOT: 프로세스당 1회 로드, 이후 변경 없음 (동시 읽기 안전)
type Tables struct {
	config          engineconfig.Config
	usingDefaults   bool
	calibrationYAML []byte

	wards         map[string]contracts.WardCoefficients
	wardOrder     []string // 주소 스캔 순서 (긴 이름 우선)
	guidelines    []contracts.ManagementGuideline
	scenarios     map[string]contracts.MacroScenario
	scenarioNames []string // 파일 순서
}

// Load reads the three required tables and the optional calibration file
func Load(opts Options, log zerolog.Logger) (*Tables, error) {
	log = log.With().Str("component", "coefficients.store").Logger()

	cfg, raw, usingDefaults, err := engineconfig.LoadCalibration(opts.CalibrationPath)
	if err != nil {
		return nil, err
	}
	cfg = cfg.WithVariants(opts.LoanProfile, opts.GradeScheme)

	wards, err := loadWards(filepath.Join(opts.DataDir, WardTableFile))
	if err != nil {
		return nil, err
	}
	guidelines, err := loadGuidelines(filepath.Join(opts.DataDir, GuidelineTableFile))
	if err != nil {
		return nil, err
	}
	scenarios, err := loadScenarios(filepath.Join(opts.DataDir, ScenarioTableFile))
	if err != nil {
		return nil, err
	}

	t, err := New(cfg, wards, guidelines, scenarios)
	if err != nil {
		return nil, err
	}
	t.usingDefaults = usingDefaults
	t.calibrationYAML = raw

	log.Info().
		Str("dir", opts.DataDir).
		Int("wards", len(wards)).
		Int("guidelines", len(guidelines)).
		Strs("scenarios", t.scenarioNames).
		Bool("using_defaults", usingDefaults).
		Str("loan_profile", cfg.Loan.Profile).
		Str("grade_scheme", cfg.Grade.Scheme).
		Msg("coefficient tables loaded")

	return t, nil
}

// New builds Tables from in-memory rows (scenario order is kept as given)
func New(cfg engineconfig.Config, wards []contracts.WardCoefficients, guidelines []contracts.ManagementGuideline, scenarios []contracts.MacroScenario) (*Tables, error) {
	if err := engineconfig.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("macro scenarios: at least one scenario required")
	}

	t := &Tables{
		config:        cfg,
		usingDefaults: true,
		wards:         make(map[string]contracts.WardCoefficients, len(wards)),
		scenarios:     make(map[string]contracts.MacroScenario, len(scenarios)),
	}

	for _, w := range wards {
		if _, dup := t.wards[w.Ward]; dup {
			return nil, fmt.Errorf("ward coefficients: duplicate ward %q", w.Ward)
		}
		t.wards[w.Ward] = w
		t.wardOrder = append(t.wardOrder, w.Ward)
	}
	// 「港北区」 같은 긴 이름이 「港区」보다 먼저 매칭되도록
	sort.SliceStable(t.wardOrder, func(i, j int) bool {
		li, lj := len([]rune(t.wardOrder[i])), len([]rune(t.wardOrder[j]))
		if li != lj {
			return li > lj
		}
		return t.wardOrder[i] < t.wardOrder[j]
	})

	t.guidelines = append(t.guidelines, guidelines...)
	sort.SliceStable(t.guidelines, func(i, j int) bool { return t.guidelines[i].AgeMin < t.guidelines[j].AgeMin })

	for _, s := range scenarios {
		if _, dup := t.scenarios[s.Name]; dup {
			return nil, fmt.Errorf("macro scenarios: duplicate scenario %q", s.Name)
		}
		t.scenarios[s.Name] = s
		t.scenarioNames = append(t.scenarioNames, s.Name)
	}
	if _, ok := t.scenarios[cfg.Scenario.GradeScenario]; !ok {
		return nil, fmt.Errorf("macro scenarios: grade scenario %q not defined", cfg.Scenario.GradeScenario)
	}

	return t, nil
}

// Config returns the engine configuration (value copy)
func (t *Tables) Config() engineconfig.Config {
	return t.config
}

// UsingDefaults reports whether the calibration file was absent
func (t *Tables) UsingDefaults() bool {
	return t.usingDefaults
}

// CalibrationYAML returns the raw calibration file (nil when defaults are used)
func (t *Tables) CalibrationYAML() []byte {
	return t.calibrationYAML
}

// Ward returns the coefficient row for a ward
func (t *Tables) Ward(name string) (contracts.WardCoefficients, bool) {
	w, ok := t.wards[name]
	return w, ok
}

// Wards returns every ward row in scan order
func (t *Tables) Wards() []contracts.WardCoefficients {
	out := make([]contracts.WardCoefficients, 0, len(t.wardOrder))
	for _, name := range t.wardOrder {
		out = append(out, t.wards[name])
	}
	return out
}

// ResolveWard scans free-text address for a known ward name
func (t *Tables) ResolveWard(address string) (contracts.WardCoefficients, bool) {
	if address == "" {
		return contracts.WardCoefficients{}, false
	}
	for _, name := range t.wardOrder {
		if containsWard(address, name) {
			return t.wards[name], true
		}
	}
	return contracts.WardCoefficients{}, false
}

// containsWard 구 이름이 지명 시작 위치에 있을 때만 매칭.
// 「大阪市中央区」「横浜市港北区」처럼 다른 지명에 이어진 경우는 제외 (「東京都」 뒤는 허용)
func containsWard(address, name string) bool {
	for from := 0; from < len(address); {
		i := strings.Index(address[from:], name)
		if i < 0 {
			return false
		}
		i += from
		prefix := address[:i]
		if prefix == "" || strings.HasSuffix(prefix, "東京都") {
			return true
		}
		if r, _ := utf8.DecodeLastRuneInString(prefix); !unicode.IsLetter(r) {
			return true
		}
		from = i + len(name)
	}
	return false
}

// GuidelineFor returns the repair-reserve guideline for a building age
func (t *Tables) GuidelineFor(age int) (contracts.ManagementGuideline, bool) {
	for _, g := range t.guidelines {
		if g.Contains(age) {
			return g, true
		}
	}
	return contracts.ManagementGuideline{}, false
}

// Guidelines returns the age-bracket list sorted by AgeMin
func (t *Tables) Guidelines() []contracts.ManagementGuideline {
	return append([]contracts.ManagementGuideline(nil), t.guidelines...)
}

// Scenario returns a named macro scenario
func (t *Tables) Scenario(name string) (contracts.MacroScenario, bool) {
	s, ok := t.scenarios[name]
	return s, ok
}

// Scenarios returns a fresh name → scenario map
func (t *Tables) Scenarios() map[string]contracts.MacroScenario {
	out := make(map[string]contracts.MacroScenario, len(t.scenarios))
	for k, v := range t.scenarios {
		out[k] = v
	}
	return out
}

// ScenarioNames returns scenario names in table order
func (t *Tables) ScenarioNames() []string {
	return append([]string(nil), t.scenarioNames...)
}

// === 테이블별 로더 ===

func loadWards(path string) ([]contracts.WardCoefficients, error) {
	const table = "ward_coefficients"
	rows, err := readTable(table, path, []string{"ward", "tier", "rent_cagr", "inventory_trend", "tower_friendly"})
	if err != nil {
		return nil, err
	}

	out := make([]contracts.WardCoefficients, 0, len(rows))
	for _, r := range rows {
		w := contracts.WardCoefficients{Ward: r.str("ward")}
		if w.Ward == "" {
			return nil, rowErr(table, path, r, fmt.Errorf("column %q is empty", "ward"))
		}
		if w.Tier, err = contracts.ParseTier(r.str("tier")); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		if w.RentCAGR, err = r.number("rent_cagr"); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		if w.InventoryTrend, err = r.number("inventory_trend"); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		if w.TowerFriendly, err = r.flag("tower_friendly"); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		if w.InterestBeta, err = r.optNumber("interest_beta"); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		out = append(out, w)
	}
	return out, nil
}

func loadGuidelines(path string) ([]contracts.ManagementGuideline, error) {
	const table = "management_guidelines"
	rows, err := readTable(table, path, []string{"age_min", "age_max", "repair_reserve_per_sqm"})
	if err != nil {
		return nil, err
	}

	out := make([]contracts.ManagementGuideline, 0, len(rows))
	for _, r := range rows {
		var g contracts.ManagementGuideline
		if g.AgeMin, err = r.integer("age_min"); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		if g.AgeMax, err = r.optInteger("age_max"); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		if g.AgeMax != nil && *g.AgeMax < g.AgeMin {
			return nil, rowErr(table, path, r, fmt.Errorf("age_max %d < age_min %d", *g.AgeMax, g.AgeMin))
		}
		if g.RepairReservePerSqm, err = r.number("repair_reserve_per_sqm"); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		if g.RepairReservePerSqm <= 0 {
			return nil, rowErr(table, path, r, fmt.Errorf("repair_reserve_per_sqm must be > 0"))
		}
		out = append(out, g)
	}
	return out, nil
}

func loadScenarios(path string) ([]contracts.MacroScenario, error) {
	const table = "macro_scenarios"
	rows, err := readTable(table, path, []string{"scenario", "cpi_rate", "rent_increase_rate", "interest_rate_10y", "construction_cost_rate"})
	if err != nil {
		return nil, err
	}

	out := make([]contracts.MacroScenario, 0, len(rows))
	for _, r := range rows {
		s := contracts.MacroScenario{Name: r.str("scenario")}
		if s.Name == "" {
			return nil, rowErr(table, path, r, fmt.Errorf("column %q is empty", "scenario"))
		}
		if s.CPIRate, err = r.number("cpi_rate"); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		if s.RentIncreaseRate, err = r.number("rent_increase_rate"); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		if s.InterestRate10Y, err = r.number("interest_rate_10y"); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		if s.ConstructionCostRate, err = r.number("construction_cost_rate"); err != nil {
			return nil, rowErr(table, path, r, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func rowErr(table, path string, r row, err error) error {
	return &TableError{Table: table, Path: path, Line: r.line, Err: err}
}
