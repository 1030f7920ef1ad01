package contracts

// MacroScenario 매크로 시나리오 파라미터
type MacroScenario struct {
	Name                 string  `json:"name"`
	CPIRate              float64 `json:"cpi_rate"`
	RentIncreaseRate     float64 `json:"rent_increase_rate"`
	InterestRate10Y      float64 `json:"interest_rate_10y"`
	ConstructionCostRate float64 `json:"construction_cost_rate"`
}

// Default scenario names
const (
	ScenarioOptimistic  = "optimistic"
	ScenarioNeutral     = "neutral"
	ScenarioPessimistic = "pessimistic"
)

// ValuationResult 현재 적정가 산출 결과
type ValuationResult struct {
	CurrentValue    int64    `json:"current_estimated_value"`
	RiskFactors     []string `json:"risk_factors"`
	PositiveFactors []string `json:"positive_factors"`
	Sentinel        bool     `json:"-"` // listing price <= 0
}

// ZeroValuation 가격 없음(<=0) 센티널
func ZeroValuation() ValuationResult {
	return ValuationResult{
		RiskFactors:     []string{},
		PositiveFactors: []string{},
		Sentinel:        true,
	}
}

// Driver 10년 가격을 결정한 평가 방식
type Driver string

const (
	DriverIncome Driver = "income"
	DriverCost   Driver = "cost"
	DriverNone   Driver = "none"
)

// ScenarioForecast 시나리오별 10년 후 가격
type ScenarioForecast struct {
	Scenario      string  `json:"-"`
	Price         int64   `json:"price"`
	ChangeRatePct float64 `json:"change_rate_pct"`
	DriverLabel   string  `json:"driver_label"`
	Driver        Driver  `json:"-"`
	IncomePrice   float64 `json:"-"`
	CostPrice     float64 `json:"-"`
	CapRate       float64 `json:"-"`
}

// Grade 투자 등급
type Grade string

const (
	GradeS Grade = "S"
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
)

// ProfitBucket 수익 확률 버킷
type ProfitBucket string

const (
	ProfitHigh ProfitBucket = "high"
	ProfitMid  ProfitBucket = "mid"
	ProfitLow  ProfitBucket = "low"
)

// Bucket maps a grade to its profit-probability bucket
func (g Grade) Bucket() ProfitBucket {
	switch g {
	case GradeS, GradeA:
		return ProfitHigh
	case GradeB:
		return ProfitMid
	default:
		return ProfitLow
	}
}

// GradeResult 암묵 이익과 등급
type GradeResult struct {
	ImpliedGainAmount int64        `json:"implied_gain_amount"`
	ImpliedGainRatio  float64      `json:"implied_gain_ratio"`
	Grade             Grade        `json:"grade"`
	ProfitBucket      ProfitBucket `json:"profit_bucket"`
}

// ZeroGrade 센티널 등급 (C / low)
func ZeroGrade() GradeResult {
	return GradeResult{Grade: GradeC, ProfitBucket: ProfitLow}
}

// Appraisal 한 레코드에 대한 전체 파이프라인 결과
// ⭐ SSOT: 호출자 레코드에 병합되는 유일한 결과 구조체
type Appraisal struct {
	Features   PropertyFeatures            `json:"features"`
	Valuation  ValuationResult             `json:"valuation"`
	Forecasts  map[string]ScenarioForecast `json:"forecast_10y"`
	Grade      GradeResult                 `json:"grade"`
	ConfigHash string                      `json:"config_hash"`
}

// Sentinel reports whether this is the zero result for a non-positive price
func (a Appraisal) Sentinel() bool {
	return a.Valuation.Sentinel
}
