package engineconfig

import (
	"time"

	"github.com/wonny/kantei/internal/contracts"
)

// Config 평가 엔진 전체 상수
// ⭐ SSOT: 엔진 상수는 전역 변수가 아니라 이 값으로만 주입
// 생성 후 수정 금지 (값으로 전달, 슬라이스/맵은 읽기 전용)
type Config struct {
	Meta         Meta             `yaml:"meta" json:"meta"`
	HorizonYears int              `yaml:"horizon_years" json:"horizon_years"`
	Features     FeatureConfig    `yaml:"features" json:"features"`
	Tiers        TierParams       `yaml:"tiers" json:"tiers"`
	Valuation    ValuationConfig  `yaml:"valuation" json:"valuation"`
	Scenario     ScenarioConfig   `yaml:"scenario" json:"scenario"`
	Loan         LoanConfig       `yaml:"loan" json:"loan"`
	Grade        GradeConfig      `yaml:"grade" json:"grade"`
	Simulation   SimulationConfig `yaml:"simulation" json:"simulation"`
}

// Meta 캘리브레이션 메타 정보
type Meta struct {
	Version string `yaml:"version" json:"version"`
	Notes   string `yaml:"notes" json:"notes"`
}

// FeatureConfig 특징량 추출 기본값
type FeatureConfig struct {
	FallbackBuildingAge int   `yaml:"fallback_building_age" json:"fallback_building_age"`
	ManYenMultiplier    int64 `yaml:"man_yen_multiplier" json:"man_yen_multiplier"`
	// MaxListingPrice 절댓값이 이보다 큰 가격은 해석 불가로 취급 (0 → 센티널)
	MaxListingPrice int64 `yaml:"max_listing_price" json:"max_listing_price"`
}

// MaxListingPriceLimit MaxListingPrice 상한. 10년 예측 후에도 int64 / float64 정수 정밀도 안에 머무름
const MaxListingPriceLimit int64 = 1 << 50

// TierParam 티어별 파라미터
type TierParam struct {
	CapRate      float64 `yaml:"cap_rate" json:"cap_rate"`
	InterestBeta float64 `yaml:"interest_beta" json:"interest_beta"`
}

// TierParams Tier1 < Tier2 < Tier3 순으로 cap rate 상승
type TierParams struct {
	Tier1 TierParam `yaml:"tier1" json:"tier1"`
	Tier2 TierParam `yaml:"tier2" json:"tier2"`
	Tier3 TierParam `yaml:"tier3" json:"tier3"`
}

// For returns the parameters of a tier; unknown tiers use Tier3
func (p TierParams) For(t contracts.Tier) TierParam {
	switch t {
	case contracts.Tier1:
		return p.Tier1
	case contracts.Tier2:
		return p.Tier2
	default:
		return p.Tier3
	}
}

// ValuationConfig 현재가 보정 체인
type ValuationConfig struct {
	ContractRatio  float64            `yaml:"contract_ratio" json:"contract_ratio"`
	LiquidityBands []LiquidityBand    `yaml:"liquidity_bands" json:"liquidity_bands"`
	Depreciation   DepreciationConfig `yaml:"depreciation" json:"depreciation"`
	Management     ManagementConfig   `yaml:"management" json:"management"`
	TaxBand        TaxBandConfig      `yaml:"tax_band" json:"tax_band"`
	Hazard         HazardConfig       `yaml:"hazard" json:"hazard"`
	Tower          TowerConfig        `yaml:"tower" json:"tower"`
}

// LiquidityBand 가격 구간 하한(포함)과 패널티
type LiquidityBand struct {
	MinPrice int64   `yaml:"min_price" json:"min_price"`
	Penalty  float64 `yaml:"penalty" json:"penalty"`
}

// DepreciationConfig 10년 누적 감가
type DepreciationConfig struct {
	AnnualRate            float64 `yaml:"annual_rate" json:"annual_rate"`
	OldBuildingAge        int     `yaml:"old_building_age" json:"old_building_age"`
	OldBuildingMultiplier float64 `yaml:"old_building_multiplier" json:"old_building_multiplier"`
	Tier1Mitigation       float64 `yaml:"tier1_mitigation" json:"tier1_mitigation"`
	NewBuildingAge        int     `yaml:"new_building_age" json:"new_building_age"`
	NewBuildingMitigation float64 `yaml:"new_building_mitigation" json:"new_building_mitigation"`
	MaxCumulative         float64 `yaml:"max_cumulative" json:"max_cumulative"`

	// WalkAdjustment 역 도보 거리에 따른 감가 완화 조정 (시뮬레이션의 표시용 조정과 별개)
	WalkAdjustment WalkDepreciationAdjustment `yaml:"walk_adjustment" json:"walk_adjustment"`
}

// WalkDepreciationAdjustment 도보 MinWalkMinutes 이상이면 완화 계수에 Mitigation 가산 (음수 = 감가 확대)
type WalkDepreciationAdjustment struct {
	Enabled        bool    `yaml:"enabled" json:"enabled"`
	MinWalkMinutes int     `yaml:"min_walk_minutes" json:"min_walk_minutes"`
	Mitigation     float64 `yaml:"mitigation" json:"mitigation"`
}

// ManagementConfig 수선적립금 부족 패널티
type ManagementConfig struct {
	PenaltyPerShortfall float64 `yaml:"penalty_per_shortfall" json:"penalty_per_shortfall"`
	MaxPenalty          float64 `yaml:"max_penalty" json:"max_penalty"`
}

// TaxBandConfig 주택론 감세 대상 면적 [MinArea, MaxArea)
type TaxBandConfig struct {
	MinArea float64 `yaml:"min_area" json:"min_area"`
	MaxArea float64 `yaml:"max_area" json:"max_area"`
	Bonus   float64 `yaml:"bonus" json:"bonus"`
}

// HazardConfig 해저드 패널티
type HazardConfig struct {
	RedPenalty    float64 `yaml:"red_penalty" json:"red_penalty"`
	YellowPenalty float64 `yaml:"yellow_penalty" json:"yellow_penalty"`
}

// TowerConfig 타워/대규모 보정
type TowerConfig struct {
	LargeScaleUnits   int     `yaml:"large_scale_units" json:"large_scale_units"` // 초과
	HighRiseFloor     int     `yaml:"high_rise_floor" json:"high_rise_floor"`     // 초과
	Bonus             float64 `yaml:"bonus" json:"bonus"`
	SmallScaleUnits   int     `yaml:"small_scale_units" json:"small_scale_units"` // 미만
	SmallScalePenalty float64 `yaml:"small_scale_penalty" json:"small_scale_penalty"`
}

// ScenarioConfig 10년 시나리오 예측
type ScenarioConfig struct {
	ReferenceRate float64 `yaml:"reference_rate" json:"reference_rate"`
	CapRateMin    float64 `yaml:"cap_rate_min" json:"cap_rate_min"`
	CapRateMax    float64 `yaml:"cap_rate_max" json:"cap_rate_max"`

	ReferenceRentCAGR float64 `yaml:"reference_rent_cagr" json:"reference_rent_cagr"`
	RentCoefMin       float64 `yaml:"rent_coef_min" json:"rent_coef_min"`
	RentCoefMax       float64 `yaml:"rent_coef_max" json:"rent_coef_max"`

	LandShare        float64 `yaml:"land_share" json:"land_share"`
	LandAppreciation float64 `yaml:"land_appreciation" json:"land_appreciation"`

	SupplySensitivity float64 `yaml:"supply_sensitivity" json:"supply_sensitivity"`
	SupplyMin         float64 `yaml:"supply_min" json:"supply_min"`
	SupplyMax         float64 `yaml:"supply_max" json:"supply_max"`

	NewBuildingAge  int `yaml:"new_building_age" json:"new_building_age"`
	LargeScaleUnits int `yaml:"large_scale_units" json:"large_scale_units"`

	Relocation     RelocationConfig     `yaml:"relocation" json:"relocation"`
	CentralPremium CentralPremiumConfig `yaml:"central_premium" json:"central_premium"`
	Eco            EcoConfig            `yaml:"eco" json:"eco"`

	GradeScenario string `yaml:"grade_scenario" json:"grade_scenario"`
}

// RelocationConfig 이전 수혜구 + 역근접 보너스
type RelocationConfig struct {
	Wards          []string `yaml:"wards" json:"wards"`
	MaxWalkMinutes int      `yaml:"max_walk_minutes" json:"max_walk_minutes"`
	Bonus          float64  `yaml:"bonus" json:"bonus"`
}

// CentralPremiumConfig 도심 초고가 유동성 패널티
type CentralPremiumConfig struct {
	Wards          []string `yaml:"wards" json:"wards"`
	PriceThreshold int64    `yaml:"price_threshold" json:"price_threshold"` // 초과
	Penalty        float64  `yaml:"penalty" json:"penalty"`
}

// EcoConfig 에너지 효율/리노베이션 키워드 보너스
type EcoConfig struct {
	Keywords []string `yaml:"keywords" json:"keywords"`
	Bonus    float64  `yaml:"bonus" json:"bonus"`
}

// LoanProfile 대출 조건 (이름 있는 변형)
type LoanProfile struct {
	AnnualRate float64 `yaml:"annual_rate" json:"annual_rate"`
	TermMonths int     `yaml:"term_months" json:"term_months"`
}

// LoanConfig 잔债 계산 조건
// 원본에서 0.8%와 1.0%가 혼재 → 프로파일로 노출, 제품 오너 확정 전까지 선택식
type LoanConfig struct {
	Profile       string                 `yaml:"profile" json:"profile"`
	Profiles      map[string]LoanProfile `yaml:"profiles" json:"profiles"`
	ElapsedMonths int                    `yaml:"elapsed_months" json:"elapsed_months"`
}

// Active returns the selected loan profile
func (l LoanConfig) Active() LoanProfile {
	return l.Profiles[l.Profile]
}

// GradeBand MinRatio 이상이면 Grade (하한 포함)
type GradeBand struct {
	Grade    contracts.Grade `yaml:"grade" json:"grade"`
	MinRatio float64         `yaml:"min_ratio" json:"min_ratio"`
}

// GradeConfig 등급 임계값 스킴
// 원본에서 10/5/0%와 10/0%가 혼재 → 스킴으로 노출
type GradeConfig struct {
	Scheme  string                 `yaml:"scheme" json:"scheme"`
	Schemes map[string][]GradeBand `yaml:"schemes" json:"schemes"`
}

// Active returns the bands of the selected scheme
func (g GradeConfig) Active() []GradeBand {
	return g.Schemes[g.Scheme]
}

// SimulationConfig 연도별 표시용 시뮬레이션
type SimulationConfig struct {
	WalkDisplay WalkDisplayAdjustment `yaml:"walk_display" json:"walk_display"`
}

// WalkDisplayAdjustment 표시용 연간 드리프트 (감가 조정과 별개 신호)
type WalkDisplayAdjustment struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	NearWalkMinutes int     `yaml:"near_walk_minutes" json:"near_walk_minutes"` // 이하
	NearDrift       float64 `yaml:"near_drift" json:"near_drift"`
	FarWalkMinutes  int     `yaml:"far_walk_minutes" json:"far_walk_minutes"` // 초과
	FarDrift        float64 `yaml:"far_drift" json:"far_drift"`
}

// Snapshot 감사용 설정 스냅샷
type Snapshot struct {
	ConfigHash      string    `json:"config_hash"`
	CalibrationYAML string    `json:"calibration_yaml,omitempty"`
	UsingDefaults   bool      `json:"using_defaults"`
	LoanProfile     string    `json:"loan_profile"`
	GradeScheme     string    `json:"grade_scheme"`
	CreatedAt       time.Time `json:"created_at"`
}
