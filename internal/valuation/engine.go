package valuation

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/internal/engineconfig"
)

// Tables 구 계수 / 관리 가이드라인 조회 (coefficients.Tables 가 구현)
type Tables interface {
	Ward(name string) (contracts.WardCoefficients, bool)
	GuidelineFor(age int) (contracts.ManagementGuideline, bool)
}

// Step 보정 체인의 한 단계 (감사/표시용)
type Step struct {
	Name       string  `json:"name"`
	Multiplier float64 `json:"multiplier"`
	Price      float64 `json:"price"` // 적용 후
}

// Engine 현재 적정가 산출
// ⭐ SSOT: 매물가 → 성약 추정가 보정 체인은 여기서만
type Engine struct {
	cfg    engineconfig.Config
	tables Tables
	log    zerolog.Logger
}

// NewEngine creates a valuation engine
func NewEngine(cfg engineconfig.Config, tables Tables, log zerolog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		tables: tables,
		log:    log.With().Str("component", "valuation.engine").Logger(),
	}
}

// Value computes the current fair value
func (e *Engine) Value(f contracts.PropertyFeatures) contracts.ValuationResult {
	res, _ := e.ValueWithSteps(f)
	return res
}

// ValueWithSteps computes the current fair value and returns every applied step
func (e *Engine) ValueWithSteps(f contracts.PropertyFeatures) (contracts.ValuationResult, []Step) {
	// 1. 가격 없음 / 상한 초과 → 센티널
	if f.ListingPrice <= 0 || f.ListingPrice > e.cfg.Features.MaxListingPrice {
		return contracts.ZeroValuation(), nil
	}

	c := chain{price: float64(f.ListingPrice), risks: []string{}, positives: []string{}}
	vc := e.cfg.Valuation
	ward, _ := e.tables.Ward(f.Ward)

	// 2. 매물가 → 성약가
	c.apply("contract_ratio", vc.ContractRatio)

	// 3. 유동성 (보정 후 절대가 기준)
	if band, ok := liquidityBand(vc.LiquidityBands, int64(c.price)); ok && band.Penalty > 0 {
		c.apply("liquidity", 1-band.Penalty)
		c.risk(fmt.Sprintf("流動性ディスカウント -%s (%s以上)", pct(band.Penalty), manYen(band.MinPrice)))
	}

	// 4. 10년 누적 감가
	dep := e.depreciation(f, &c)
	c.apply("depreciation", 1-dep)
	if dep > 0 {
		c.risk(fmt.Sprintf("10年減価 -%s (築%d年)", pct(dep), f.BuildingAge))
	}

	// 5. 관리 품질
	if penalty, guideline := e.managementPenalty(f); penalty > 0 {
		c.apply("management", 1-penalty)
		c.risk(fmt.Sprintf("修繕積立金不足 -%s (%.0f円/㎡ < 目安%.0f円/㎡)", pct(penalty), *f.RepairReservePerSqm, guideline))
	}

	// 6. 감세 대상 면적
	if f.FloorArea != nil && *f.FloorArea >= vc.TaxBand.MinArea && *f.FloorArea < vc.TaxBand.MaxArea && vc.TaxBand.Bonus != 0 {
		c.apply("tax_band", 1+vc.TaxBand.Bonus)
		c.positive(fmt.Sprintf("住宅ローン控除対象面積 +%s (%.1f㎡)", pct(vc.TaxBand.Bonus), *f.FloorArea))
	}

	// 7. 해저드
	switch f.HazardLevel {
	case contracts.HazardRed:
		if vc.Hazard.RedPenalty > 0 {
			c.apply("hazard", 1-vc.Hazard.RedPenalty)
			c.risk(fmt.Sprintf("ハザード(レッド) -%s", pct(vc.Hazard.RedPenalty)))
		}
	case contracts.HazardYellow:
		if vc.Hazard.YellowPenalty > 0 {
			c.apply("hazard", 1-vc.Hazard.YellowPenalty)
			c.risk(fmt.Sprintf("ハザード(イエロー) -%s", pct(vc.Hazard.YellowPenalty)))
		}
	}

	// 8. 타워 / 소규모
	if f.TotalUnits != nil {
		units := *f.TotalUnits
		tc := vc.Tower
		switch {
		case ward.TowerFriendly && units > tc.LargeScaleUnits && f.FloorOr(0) > tc.HighRiseFloor:
			c.apply("tower", 1+tc.Bonus)
			c.positive(fmt.Sprintf("タワー/大規模 +%s (%d戸, %d階)", pct(tc.Bonus), units, f.FloorOr(0)))
		case !ward.TowerFriendly && units < tc.SmallScaleUnits:
			c.apply("small_scale", 1-tc.SmallScalePenalty)
			c.risk(fmt.Sprintf("小規模物件 -%s (%d戸)", pct(tc.SmallScalePenalty), units))
		}
	}

	res := contracts.ValuationResult{
		CurrentValue:    roundYen(c.price),
		RiskFactors:     c.risks,
		PositiveFactors: c.positives,
	}

	e.log.Debug().
		Int64("listing_price", f.ListingPrice).
		Int64("current_value", res.CurrentValue).
		Float64("depreciation", dep).
		Int("steps", len(c.steps)).
		Msg("valuation computed")

	return res, c.steps
}

// Depreciation returns the clamped 10-year cumulative depreciation for f
func (e *Engine) Depreciation(f contracts.PropertyFeatures) float64 {
	return e.depreciation(f, nil)
}

// depreciation 완화 계수는 가산 (가격에 곱하지 않음). 누적은 [0, MaxCumulative]
func (e *Engine) depreciation(f contracts.PropertyFeatures, c *chain) float64 {
	dc := e.cfg.Valuation.Depreciation

	annual := dc.AnnualRate
	if f.BuildingAge > dc.OldBuildingAge {
		annual *= dc.OldBuildingMultiplier
		c.risk(fmt.Sprintf("築古 減価加速 ×%.1f", dc.OldBuildingMultiplier))
	}

	mitigation := 0.0
	if f.Tier == contracts.Tier1 && dc.Tier1Mitigation != 0 {
		mitigation += dc.Tier1Mitigation
		c.positive(fmt.Sprintf("Tier1 減価緩和 %s", pct(dc.Tier1Mitigation)))
	}
	if f.BuildingAge <= dc.NewBuildingAge && dc.NewBuildingMitigation != 0 {
		mitigation += dc.NewBuildingMitigation
		c.positive(fmt.Sprintf("築浅 減価緩和 %s", pct(dc.NewBuildingMitigation)))
	}
	if wa := dc.WalkAdjustment; wa.Enabled && f.WalkMinutes != nil && *f.WalkMinutes >= wa.MinWalkMinutes {
		mitigation += wa.Mitigation
		c.risk(fmt.Sprintf("駅遠 減価調整 %+.0f%% (徒歩%d分)", wa.Mitigation*100, *f.WalkMinutes))
	}

	multiplier := math.Max(0, 1-mitigation)
	cumulative := annual * float64(e.cfg.HorizonYears) * multiplier
	return clamp(cumulative, 0, dc.MaxCumulative)
}

// managementPenalty 수선적립금/㎡ 가 가이드라인 미만이면 부족률 × 계수 (상한 있음)
func (e *Engine) managementPenalty(f contracts.PropertyFeatures) (penalty, guideline float64) {
	if f.RepairReservePerSqm == nil {
		return 0, 0
	}
	g, ok := e.tables.GuidelineFor(f.BuildingAge)
	if !ok || g.RepairReservePerSqm <= 0 {
		return 0, 0
	}
	actual := *f.RepairReservePerSqm
	if actual >= g.RepairReservePerSqm {
		return 0, g.RepairReservePerSqm
	}
	mc := e.cfg.Valuation.Management
	shortfall := (g.RepairReservePerSqm - actual) / g.RepairReservePerSqm
	return math.Min(shortfall*mc.PenaltyPerShortfall, mc.MaxPenalty), g.RepairReservePerSqm
}

// liquidityBand 하한 포함, 가장 높은 하한의 구간
func liquidityBand(bands []engineconfig.LiquidityBand, price int64) (engineconfig.LiquidityBand, bool) {
	var (
		found engineconfig.LiquidityBand
		ok    bool
	)
	for _, b := range bands {
		if price >= b.MinPrice {
			found, ok = b, true
		}
	}
	return found, ok
}

// chain 누적 가격과 팩터 문자열
type chain struct {
	price     float64
	steps     []Step
	risks     []string
	positives []string
}

func (c *chain) apply(name string, multiplier float64) {
	c.price *= multiplier
	c.steps = append(c.steps, Step{Name: name, Multiplier: multiplier, Price: c.price})
}

// risk/positive 는 nil 체인(Depreciation 단독 호출)에서 무시
func (c *chain) risk(s string) {
	if c != nil {
		c.risks = append(c.risks, s)
	}
}

func (c *chain) positive(s string) {
	if c != nil {
		c.positives = append(c.positives, s)
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// roundYen 엔 단위 반올림 (half away from zero)
func roundYen(v float64) int64 {
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

func pct(ratio float64) string {
	return decimal.NewFromFloat(ratio * 100).Round(1).String() + "%"
}

func manYen(yen int64) string {
	return fmt.Sprintf("%d万円", yen/10_000)
}
