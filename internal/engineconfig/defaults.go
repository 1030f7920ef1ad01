package engineconfig

import "github.com/wonny/kantei/internal/contracts"

// Loan profile names
const (
	LoanProfileStandard     = "standard"     // 0.8%
	LoanProfileConservative = "conservative" // 1.0%
)

// Grade scheme names
const (
	GradeSchemeThreeBand = "three_band" // 10/5/0%
	GradeSchemeTwoBand   = "two_band"   // 10/0%
)

// Default returns the built-in calibration.
// 매 호출마다 새 슬라이스/맵을 만들어 반환 (오버레이가 원본을 오염시키지 않도록)
func Default() Config {
	return Config{
		Meta: Meta{
			Version: "builtin",
		},
		HorizonYears: 10,
		Features: FeatureConfig{
			FallbackBuildingAge: 15,
			ManYenMultiplier:    10_000,
			MaxListingPrice:     1_000_000_000_000, // 1兆円
		},
		Tiers: TierParams{
			Tier1: TierParam{CapRate: 0.035, InterestBeta: 0.6},
			Tier2: TierParam{CapRate: 0.045, InterestBeta: 0.8},
			Tier3: TierParam{CapRate: 0.055, InterestBeta: 1.0},
		},
		Valuation: ValuationConfig{
			ContractRatio: 0.96,
			LiquidityBands: []LiquidityBand{
				{MinPrice: 0, Penalty: 0},
				{MinPrice: 50_000_000, Penalty: 0.02},
				{MinPrice: 100_000_000, Penalty: 0.05},
				{MinPrice: 200_000_000, Penalty: 0},
			},
			Depreciation: DepreciationConfig{
				AnnualRate:            0.015,
				OldBuildingAge:        30,
				OldBuildingMultiplier: 1.3,
				Tier1Mitigation:       0.5,
				NewBuildingAge:        10,
				NewBuildingMitigation: 0.2,
				MaxCumulative:         0.99,
				WalkAdjustment: WalkDepreciationAdjustment{
					Enabled:        true,
					MinWalkMinutes: 15,
					Mitigation:     -0.2,
				},
			},
			Management: ManagementConfig{
				PenaltyPerShortfall: 0.10,
				MaxPenalty:          0.05,
			},
			TaxBand: TaxBandConfig{
				MinArea: 40,
				MaxArea: 50,
				Bonus:   0.02,
			},
			Hazard: HazardConfig{
				RedPenalty:    0.10,
				YellowPenalty: 0.03,
			},
			Tower: TowerConfig{
				LargeScaleUnits:   200,
				HighRiseFloor:     15,
				Bonus:             0.05,
				SmallScaleUnits:   30,
				SmallScalePenalty: 0.02,
			},
		},
		Scenario: ScenarioConfig{
			ReferenceRate:     0.01,
			CapRateMin:        0.01,
			CapRateMax:        0.15,
			ReferenceRentCAGR: 0.01,
			RentCoefMin:       0.5,
			RentCoefMax:       2.0,
			LandShare:         0.65,
			LandAppreciation:  0.05,
			SupplySensitivity: 0.05,
			SupplyMin:         0.9,
			SupplyMax:         1.1,
			NewBuildingAge:    10,
			LargeScaleUnits:   200,
			Relocation: RelocationConfig{
				Wards:          []string{"品川区", "港区", "江東区"},
				MaxWalkMinutes: 5,
				Bonus:          0.03,
			},
			CentralPremium: CentralPremiumConfig{
				Wards:          []string{"千代田区", "中央区", "港区"},
				PriceThreshold: 300_000_000,
				Penalty:        0.05,
			},
			Eco: EcoConfig{
				Keywords: []string{"省エネ", "ZEH", "断熱", "太陽光", "リノベーション", "リフォーム", "renovation", "renovated"},
				Bonus:    0.02,
			},
			GradeScenario: contracts.ScenarioNeutral,
		},
		Loan: LoanConfig{
			Profile: LoanProfileStandard,
			Profiles: map[string]LoanProfile{
				LoanProfileStandard:     {AnnualRate: 0.008, TermMonths: 420},
				LoanProfileConservative: {AnnualRate: 0.010, TermMonths: 420},
			},
			ElapsedMonths: 120,
		},
		Grade: GradeConfig{
			Scheme: GradeSchemeThreeBand,
			Schemes: map[string][]GradeBand{
				GradeSchemeThreeBand: {
					{Grade: contracts.GradeS, MinRatio: 0.10},
					{Grade: contracts.GradeA, MinRatio: 0.05},
					{Grade: contracts.GradeB, MinRatio: 0.0},
				},
				GradeSchemeTwoBand: {
					{Grade: contracts.GradeS, MinRatio: 0.10},
					{Grade: contracts.GradeB, MinRatio: 0.0},
				},
			},
		},
		Simulation: SimulationConfig{
			WalkDisplay: WalkDisplayAdjustment{
				Enabled:         true,
				NearWalkMinutes: 3,
				NearDrift:       0.003,
				FarWalkMinutes:  10,
				FarDrift:        -0.003,
			},
		},
	}
}

// WithVariants returns a copy with the named loan profile and grade scheme selected.
// 빈 문자열은 현재 선택 유지
func (c Config) WithVariants(loanProfile, gradeScheme string) Config {
	if loanProfile != "" {
		c.Loan.Profile = loanProfile
	}
	if gradeScheme != "" {
		c.Grade.Scheme = gradeScheme
	}
	return c
}

// clone deep-copies the slices and maps so a YAML overlay never writes through to base
func (c Config) clone() Config {
	out := c
	out.Valuation.LiquidityBands = append([]LiquidityBand(nil), c.Valuation.LiquidityBands...)
	out.Scenario.Relocation.Wards = append([]string(nil), c.Scenario.Relocation.Wards...)
	out.Scenario.CentralPremium.Wards = append([]string(nil), c.Scenario.CentralPremium.Wards...)
	out.Scenario.Eco.Keywords = append([]string(nil), c.Scenario.Eco.Keywords...)

	out.Loan.Profiles = make(map[string]LoanProfile, len(c.Loan.Profiles))
	for k, v := range c.Loan.Profiles {
		out.Loan.Profiles[k] = v
	}
	out.Grade.Schemes = make(map[string][]GradeBand, len(c.Grade.Schemes))
	for k, v := range c.Grade.Schemes {
		out.Grade.Schemes[k] = append([]GradeBand(nil), v...)
	}
	return out
}
