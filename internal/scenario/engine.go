package scenario

import (
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/internal/engineconfig"
	"github.com/wonny/kantei/internal/grade"
	"github.com/wonny/kantei/internal/loan"
)

// Driver labels
const (
	LabelIncome = "収益還元法"
	LabelCost   = "原価法"
	LabelNone   = "評価不可"
)

// WardLookup 구 계수 조회 (coefficients.Tables 가 구현)
type WardLookup interface {
	Ward(name string) (contracts.WardCoefficients, bool)
}

// Result 시나리오별 예측 + 등급
type Result struct {
	Forecasts map[string]contracts.ScenarioForecast
	Order     []string // 이름 정렬
	Grade     contracts.GradeResult
}

// Engine 10년 시나리오 예측
// ⭐ SSOT: 수익환원/원가 하이브리드와 포인트 보정은 여기서만
type Engine struct {
	cfg        engineconfig.Config
	wards      WardLookup
	loan       *loan.Calculator
	classifier *grade.Classifier
	log        zerolog.Logger
}

// NewEngine creates a scenario forecast engine
func NewEngine(cfg engineconfig.Config, wards WardLookup, calc *loan.Calculator, classifier *grade.Classifier, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:        cfg,
		wards:      wards,
		loan:       calc,
		classifier: classifier,
		log:        log.With().Str("component", "scenario.engine").Logger(),
	}
}

// Forecast projects every scenario and derives the grade from the grade scenario
func (e *Engine) Forecast(f contracts.PropertyFeatures, v contracts.ValuationResult, scenarios map[string]contracts.MacroScenario) Result {
	res := Result{
		Forecasts: make(map[string]contracts.ScenarioForecast, len(scenarios)),
		Order:     sortedNames(scenarios),
		Grade:     contracts.ZeroGrade(),
	}

	// 센티널: 모든 시나리오 0
	if v.CurrentValue <= 0 {
		for _, name := range res.Order {
			res.Forecasts[name] = contracts.ScenarioForecast{Scenario: name, DriverLabel: LabelNone, Driver: contracts.DriverNone}
		}
		return res
	}

	ward, _ := e.wards.Ward(f.Ward)
	for _, name := range res.Order {
		fc := e.project(f, ward, v.CurrentValue, scenarios[name])
		fc.Scenario = name
		res.Forecasts[name] = fc
	}

	gradeName := e.cfg.Scenario.GradeScenario
	neutral, ok := res.Forecasts[gradeName]
	if !ok {
		e.log.Warn().Str("scenario", gradeName).Msg("grade scenario missing, grade defaults to C")
		return res
	}
	gain := float64(neutral.Price) - e.loan.Residual(float64(v.CurrentValue))
	res.Grade = e.classifier.Result(gain, v.CurrentValue)

	e.log.Debug().
		Int64("current_value", v.CurrentValue).
		Int64("grade_price", neutral.Price).
		Float64("implied_gain_ratio", res.Grade.ImpliedGainRatio).
		Str("grade", string(res.Grade.Grade)).
		Msg("scenarios forecast")

	return res
}

// project 단일 시나리오. 가격 = max(수익, 원가) 후 포인트 보정
func (e *Engine) project(f contracts.PropertyFeatures, ward contracts.WardCoefficients, current int64, s contracts.MacroScenario) contracts.ScenarioForecast {
	capRate := e.CapRate(f, ward, s)
	income := e.incomePrice(f, ward, s, capRate)
	cost := e.costPrice(f, ward, current, s)

	out := contracts.ScenarioForecast{
		IncomePrice: income,
		CostPrice:   cost,
		CapRate:     capRate,
	}

	price := income
	out.Driver, out.DriverLabel = contracts.DriverIncome, LabelIncome
	if cost > income {
		price = cost
		out.Driver, out.DriverLabel = contracts.DriverCost, LabelCost
	}

	price *= e.pointCorrection(f, ward, price)

	out.Price = decimal.NewFromFloat(price).Round(0).IntPart()
	out.ChangeRatePct = decimal.NewFromFloat(float64(out.Price-current) / float64(current) * 100).Round(1).InexactFloat64()
	return out
}

// CapRate returns the scenario-adjusted cap rate, clamped to [CapRateMin, CapRateMax]
func (e *Engine) CapRate(f contracts.PropertyFeatures, ward contracts.WardCoefficients, s contracts.MacroScenario) float64 {
	sc := e.cfg.Scenario
	tier := e.cfg.Tiers.For(f.Tier)

	beta := tier.InterestBeta
	if ward.InterestBeta != nil {
		beta = *ward.InterestBeta
	}
	shift := (s.InterestRate10Y - sc.ReferenceRate) * beta
	return clamp(tier.CapRate+shift, sc.CapRateMin, sc.CapRateMax)
}

// incomePrice 월세를 (임대료 상승률 × 구 성장계수)로 연복리 투영 후 연 환산 / cap rate
func (e *Engine) incomePrice(f contracts.PropertyFeatures, ward contracts.WardCoefficients, s contracts.MacroScenario, capRate float64) float64 {
	if f.EstimatedRent <= 0 || capRate <= 0 {
		return 0
	}
	growth := s.RentIncreaseRate * e.rentCoefficient(ward)
	rent := f.EstimatedRent * math.Pow(1+growth, float64(e.cfg.HorizonYears))
	return math.Max(0, rent*12/capRate)
}

// rentCoefficient 구 임대료 CAGR / 기준 CAGR, 미해결 구는 1.0
func (e *Engine) rentCoefficient(ward contracts.WardCoefficients) float64 {
	sc := e.cfg.Scenario
	if ward.Ward == "" || sc.ReferenceRentCAGR <= 0 {
		return 1
	}
	return clamp(ward.RentCAGR/sc.ReferenceRentCAGR, sc.RentCoefMin, sc.RentCoefMax)
}

// costPrice 토지 + (감가 후) 건물 × 건축비 인플레 × 공급 제약 계수
func (e *Engine) costPrice(f contracts.PropertyFeatures, ward contracts.WardCoefficients, current int64, s contracts.MacroScenario) float64 {
	sc := e.cfg.Scenario
	years := float64(e.cfg.HorizonYears)
	value := float64(current)

	land := value * sc.LandShare * (1 + sc.LandAppreciation)

	building := value * (1 - sc.LandShare)
	if !e.newAndLarge(f) {
		dep := e.cfg.Valuation.Depreciation.AnnualRate * years
		building *= math.Max(0, 1-dep)
	}
	building *= math.Pow(1+s.ConstructionCostRate, years)

	return math.Max(0, (land+building)*e.SupplyScalar(ward))
}

// SupplyScalar 재고 추세가 타이트(음수)할수록 >1. 미해결 구는 1.0
func (e *Engine) SupplyScalar(ward contracts.WardCoefficients) float64 {
	sc := e.cfg.Scenario
	if ward.Ward == "" {
		return 1
	}
	return clamp(1-ward.InventoryTrend*sc.SupplySensitivity, sc.SupplyMin, sc.SupplyMax)
}

func (e *Engine) newAndLarge(f contracts.PropertyFeatures) bool {
	sc := e.cfg.Scenario
	return f.BuildingAge <= sc.NewBuildingAge && f.UnitsOr(0) > sc.LargeScaleUnits
}

// pointCorrection 이전 수혜구 역근접 → 도심 초고가 → 에코 키워드 순으로 곱함
func (e *Engine) pointCorrection(f contracts.PropertyFeatures, ward contracts.WardCoefficients, price float64) float64 {
	sc := e.cfg.Scenario
	m := 1.0

	if contains(sc.Relocation.Wards, ward.Ward) && f.WalkMinutes != nil && *f.WalkMinutes <= sc.Relocation.MaxWalkMinutes {
		m *= 1 + sc.Relocation.Bonus
	}
	if contains(sc.CentralPremium.Wards, ward.Ward) && price*m > float64(sc.CentralPremium.PriceThreshold) {
		m *= 1 - sc.CentralPremium.Penalty
	}
	if hasKeyword(f.FreeText, sc.Eco.Keywords) {
		m *= 1 + sc.Eco.Bonus
	}
	return m
}

func sortedNames(scenarios map[string]contracts.MacroScenario) []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func contains(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasKeyword(texts, keywords []string) bool {
	for _, t := range texts {
		lower := strings.ToLower(t)
		for _, k := range keywords {
			if k != "" && strings.Contains(lower, strings.ToLower(k)) {
				return true
			}
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
