package scenario

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/internal/engineconfig"
	"github.com/wonny/kantei/internal/grade"
	"github.com/wonny/kantei/internal/loan"
)

type fakeWards map[string]contracts.WardCoefficients

func (f fakeWards) Ward(name string) (contracts.WardCoefficients, bool) {
	w, ok := f[name]
	return w, ok
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func testWards() fakeWards {
	return fakeWards{
		"港区":   {Ward: "港区", Tier: contracts.Tier1, RentCAGR: 0.022, InventoryTrend: -0.5, TowerFriendly: true, InterestBeta: floatp(0.5)},
		"千代田区": {Ward: "千代田区", Tier: contracts.Tier1, RentCAGR: 0.018, InventoryTrend: -0.6, TowerFriendly: true},
		"練馬区":  {Ward: "練馬区", Tier: contracts.Tier3, RentCAGR: 0.008, InventoryTrend: 0.2},
	}
}

func defaultScenarios() map[string]contracts.MacroScenario {
	return map[string]contracts.MacroScenario{
		contracts.ScenarioOptimistic:  {Name: contracts.ScenarioOptimistic, CPIRate: 0.020, RentIncreaseRate: 0.020, InterestRate10Y: 0.010, ConstructionCostRate: 0.025},
		contracts.ScenarioNeutral:     {Name: contracts.ScenarioNeutral, CPIRate: 0.015, RentIncreaseRate: 0.010, InterestRate10Y: 0.015, ConstructionCostRate: 0.015},
		contracts.ScenarioPessimistic: {Name: contracts.ScenarioPessimistic, CPIRate: 0.010, RentIncreaseRate: 0.000, InterestRate10Y: 0.025, ConstructionCostRate: 0.005},
	}
}

func newTestEngine(cfg engineconfig.Config) *Engine {
	return NewEngine(cfg, testWards(), loan.NewCalculator(cfg.Loan), grade.NewClassifier(cfg.Grade), zerolog.Nop())
}

func referenceFeatures() contracts.PropertyFeatures {
	return contracts.PropertyFeatures{
		ListingPrice:  85_000_000,
		Ward:          "港区",
		Tier:          contracts.Tier1,
		WalkMinutes:   intp(5),
		FloorArea:     floatp(70.5),
		Floor:         intp(20),
		TotalUnits:    intp(400),
		BuildingAge:   8,
		EstimatedRent: 85_000_000 * 0.035 / 12,
		RentBackedOut: true,
	}
}

func TestForecast_ReferenceExample(t *testing.T) {
	e := newTestEngine(engineconfig.Default())

	res := e.Forecast(referenceFeatures(), contracts.ValuationResult{CurrentValue: 79_751_902}, defaultScenarios())

	assert.Equal(t, []string{"neutral", "optimistic", "pessimistic"}, res.Order)
	require.Len(t, res.Forecasts, 3)

	opt := res.Forecasts[contracts.ScenarioOptimistic]
	neu := res.Forecasts[contracts.ScenarioNeutral]
	pes := res.Forecasts[contracts.ScenarioPessimistic]

	assert.InDelta(t, 129_595_387, float64(opt.Price), 1)
	assert.Equal(t, contracts.DriverIncome, opt.Driver)
	assert.InDelta(t, 99_608_097, float64(neu.Price), 1)
	assert.Equal(t, contracts.DriverIncome, neu.Driver)
	assert.InDelta(t, 88_441_573, float64(pes.Price), 1)
	assert.Equal(t, contracts.DriverCost, pes.Driver, "rent flat + higher cap rate → replacement cost binds")
	assert.Equal(t, LabelCost, pes.DriverLabel)

	for name, fc := range res.Forecasts {
		assert.Equal(t, name, fc.Scenario)
		assert.GreaterOrEqual(t, fc.Price, int64(0))
	}
	assert.GreaterOrEqual(t, opt.Price, pes.Price)
	assert.InDelta(t, 62.5, opt.ChangeRatePct, 0.05)

	// 중립 가격 − 10년 후 잔債 (0.8%, 35년)
	assert.InDelta(t, 40_413_062, float64(res.Grade.ImpliedGainAmount), 2)
	assert.InDelta(t, 0.5067, res.Grade.ImpliedGainRatio, 1e-4)
	assert.Equal(t, contracts.GradeS, res.Grade.Grade)
	assert.Equal(t, contracts.ProfitHigh, res.Grade.ProfitBucket)
}

func TestForecast_Sentinel(t *testing.T) {
	e := newTestEngine(engineconfig.Default())

	res := e.Forecast(contracts.PropertyFeatures{}, contracts.ZeroValuation(), defaultScenarios())

	require.Len(t, res.Forecasts, 3)
	for _, fc := range res.Forecasts {
		assert.Zero(t, fc.Price)
		assert.Zero(t, fc.ChangeRatePct)
		assert.Equal(t, contracts.DriverNone, fc.Driver)
	}
	assert.Equal(t, contracts.ZeroGrade(), res.Grade)
}

func TestCapRate_AlwaysClamped(t *testing.T) {
	e := newTestEngine(engineconfig.Default())

	for _, tier := range []contracts.Tier{contracts.Tier1, contracts.Tier2, contracts.Tier3} {
		for _, beta := range []*float64{nil, floatp(0), floatp(2.5), floatp(10)} {
			for rate := -0.50; rate <= 0.50; rate += 0.01 {
				ward := contracts.WardCoefficients{Ward: "x", Tier: tier, InterestBeta: beta}
				c := e.CapRate(contracts.PropertyFeatures{Tier: tier}, ward, contracts.MacroScenario{InterestRate10Y: rate})
				assert.GreaterOrEqual(t, c, 0.01)
				assert.LessOrEqual(t, c, 0.15)
			}
		}
	}
}

func TestCapRate_WardBetaOverridesTier(t *testing.T) {
	e := newTestEngine(engineconfig.Default())
	s := contracts.MacroScenario{InterestRate10Y: 0.03}
	f := contracts.PropertyFeatures{Tier: contracts.Tier1}

	// Tier1 기본 beta 0.6
	assert.InDelta(t, 0.035+0.02*0.6, e.CapRate(f, contracts.WardCoefficients{}, s), 1e-12)
	assert.InDelta(t, 0.035+0.02*0.5, e.CapRate(f, testWards()["港区"], s), 1e-12)
}

func TestForecast_CostApproachNewAndLarge(t *testing.T) {
	cfg := engineconfig.Default()
	e := newTestEngine(cfg)

	// 수익환원을 0으로 만들어 원가법만 비교
	base := contracts.PropertyFeatures{Ward: "練馬区", Tier: contracts.Tier3, BuildingAge: 5, TotalUnits: intp(201)}
	s := map[string]contracts.MacroScenario{"flat": {Name: "flat"}}
	v := contracts.ValuationResult{CurrentValue: 100_000_000}

	newLarge := e.Forecast(base, v, s).Forecasts["flat"]

	old := base
	old.BuildingAge = 11
	depreciated := e.Forecast(old, v, s).Forecasts["flat"]

	supply := 1 - 0.2*0.05
	assert.InDelta(t, (65_000_000*1.05+35_000_000)*supply, float64(newLarge.Price), 1)
	assert.InDelta(t, (65_000_000*1.05+35_000_000*0.85)*supply, float64(depreciated.Price), 1)
	assert.Equal(t, contracts.DriverCost, newLarge.Driver)
}

func TestForecast_UnresolvedWardIsNeutral(t *testing.T) {
	e := newTestEngine(engineconfig.Default())
	s := map[string]contracts.MacroScenario{"flat": {Name: "flat"}}

	f := contracts.PropertyFeatures{Tier: contracts.Tier3, BuildingAge: 20}
	fc := e.Forecast(f, contracts.ValuationResult{CurrentValue: 10_000_000}, s).Forecasts["flat"]

	// 공급 계수 1.0, 임대료 없음 → 원가법
	assert.InDelta(t, 6_500_000*1.05+3_500_000*0.85, float64(fc.Price), 1)
}

func TestForecast_PointCorrections(t *testing.T) {
	cfg := engineconfig.Default()
	e := newTestEngine(cfg)
	neutral := map[string]contracts.MacroScenario{contracts.ScenarioNeutral: defaultScenarios()[contracts.ScenarioNeutral]}

	t.Run("central premium penalty and eco bonus", func(t *testing.T) {
		f := contracts.PropertyFeatures{
			ListingPrice:  400_000_000,
			Ward:          "千代田区",
			Tier:          contracts.Tier1,
			WalkMinutes:   intp(8),
			BuildingAge:   20,
			TotalUnits:    intp(50),
			EstimatedRent: 400_000_000 * 0.035 / 12,
			FreeText:      []string{"2022年 Renovated, 南向き"},
		}
		fc := e.Forecast(f, contracts.ValuationResult{CurrentValue: 360_000_000}, neutral).Forecasts[contracts.ScenarioNeutral]

		assert.InDelta(t, 440_374_557, fc.IncomePrice, 1)
		assert.InDelta(t, 440_374_557*0.95*1.02, float64(fc.Price), 2)
	})

	t.Run("relocation bonus needs walk within limit", func(t *testing.T) {
		f := referenceFeatures()
		v := contracts.ValuationResult{CurrentValue: 79_751_902}

		near := e.Forecast(f, v, neutral).Forecasts[contracts.ScenarioNeutral]
		f.WalkMinutes = intp(6)
		far := e.Forecast(f, v, neutral).Forecasts[contracts.ScenarioNeutral]
		f.WalkMinutes = nil
		unknown := e.Forecast(f, v, neutral).Forecasts[contracts.ScenarioNeutral]

		assert.InDelta(t, float64(far.Price)*1.03, float64(near.Price), 2)
		assert.Equal(t, far.Price, unknown.Price)
	})
}

func TestForecast_GenericScenarioSet(t *testing.T) {
	e := newTestEngine(engineconfig.Default())

	scenarios := defaultScenarios()
	scenarios["stagflation"] = contracts.MacroScenario{Name: "stagflation", CPIRate: 0.04, RentIncreaseRate: 0.005, InterestRate10Y: 0.04, ConstructionCostRate: 0.04}
	scenarios["deflation"] = contracts.MacroScenario{Name: "deflation", CPIRate: -0.01, RentIncreaseRate: -0.01, InterestRate10Y: 0.002, ConstructionCostRate: -0.01}

	res := e.Forecast(referenceFeatures(), contracts.ValuationResult{CurrentValue: 79_751_902}, scenarios)
	assert.Len(t, res.Forecasts, 5)
	assert.Equal(t, contracts.GradeS, res.Grade.Grade)
}

func TestForecast_MissingGradeScenario(t *testing.T) {
	e := newTestEngine(engineconfig.Default())

	res := e.Forecast(referenceFeatures(), contracts.ValuationResult{CurrentValue: 79_751_902},
		map[string]contracts.MacroScenario{"bull": {Name: "bull", RentIncreaseRate: 0.03}})

	assert.Len(t, res.Forecasts, 1)
	assert.Equal(t, contracts.ZeroGrade(), res.Grade)
}

func TestForecast_LoanProfileChangesGrade(t *testing.T) {
	f := referenceFeatures()
	v := contracts.ValuationResult{CurrentValue: 79_751_902}

	std := newTestEngine(engineconfig.Default()).Forecast(f, v, defaultScenarios())
	cons := newTestEngine(engineconfig.Default().WithVariants(engineconfig.LoanProfileConservative, "")).Forecast(f, v, defaultScenarios())

	assert.Less(t, cons.Grade.ImpliedGainAmount, std.Grade.ImpliedGainAmount)
	assert.Equal(t, std.Forecasts, cons.Forecasts, "loan profile only affects the grade")
}

func TestForecast_Deterministic(t *testing.T) {
	e := newTestEngine(engineconfig.Default())
	f := referenceFeatures()
	f.FreeText = []string{"ZEH"}
	v := contracts.ValuationResult{CurrentValue: 79_751_902}

	first := e.Forecast(f, v, defaultScenarios())
	second := e.Forecast(f, v, defaultScenarios())
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("forecast not deterministic (-first +second):\n%s", diff)
	}
}
