package engineconfig

import (
	"fmt"
	"sort"
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
	if cfg.HorizonYears < 1 {
		return ValidationError{"horizon_years", "must be >= 1"}
	}

	// === Features ===
	if cfg.Features.FallbackBuildingAge < 0 {
		return ValidationError{"features.fallback_building_age", "must be >= 0"}
	}
	if cfg.Features.ManYenMultiplier <= 0 {
		return ValidationError{"features.man_yen_multiplier", "must be > 0"}
	}
	if cfg.Features.MaxListingPrice <= 0 || cfg.Features.MaxListingPrice > MaxListingPriceLimit {
		return ValidationError{"features.max_listing_price", fmt.Sprintf("must be in (0, %d]", MaxListingPriceLimit)}
	}

	// === Tiers ===
	for name, p := range map[string]TierParam{"tiers.tier1": cfg.Tiers.Tier1, "tiers.tier2": cfg.Tiers.Tier2, "tiers.tier3": cfg.Tiers.Tier3} {
		if p.CapRate <= 0 || p.CapRate >= 1 {
			return ValidationError{name + ".cap_rate", "must be in (0, 1)"}
		}
		if p.InterestBeta < 0 {
			return ValidationError{name + ".interest_beta", "must be >= 0"}
		}
	}
	if !(cfg.Tiers.Tier1.CapRate <= cfg.Tiers.Tier2.CapRate && cfg.Tiers.Tier2.CapRate <= cfg.Tiers.Tier3.CapRate) {
		return ValidationError{"tiers", "cap_rate must not decrease from tier1 to tier3"}
	}

	// === Valuation ===
	v := cfg.Valuation
	if v.ContractRatio <= 0 || v.ContractRatio > 1 {
		return ValidationError{"valuation.contract_ratio", "must be in (0, 1]"}
	}
	if len(v.LiquidityBands) == 0 {
		return ValidationError{"valuation.liquidity_bands", "required"}
	}
	if !sort.SliceIsSorted(v.LiquidityBands, func(i, j int) bool {
		return v.LiquidityBands[i].MinPrice < v.LiquidityBands[j].MinPrice
	}) {
		return ValidationError{"valuation.liquidity_bands", "must be sorted by min_price"}
	}
	for i, b := range v.LiquidityBands {
		if err := validatePctRange(b.Penalty, fmt.Sprintf("valuation.liquidity_bands[%d].penalty", i)); err != nil {
			return err
		}
	}

	d := v.Depreciation
	if d.AnnualRate < 0 || d.AnnualRate > 1 {
		return ValidationError{"valuation.depreciation.annual_rate", "must be in [0, 1]"}
	}
	if d.OldBuildingMultiplier < 1 {
		return ValidationError{"valuation.depreciation.old_building_multiplier", "must be >= 1"}
	}
	if d.MaxCumulative <= 0 || d.MaxCumulative > 0.99 {
		return ValidationError{"valuation.depreciation.max_cumulative", "must be in (0, 0.99]"}
	}
	if err := validatePctRange(d.Tier1Mitigation, "valuation.depreciation.tier1_mitigation"); err != nil {
		return err
	}
	if err := validatePctRange(d.NewBuildingMitigation, "valuation.depreciation.new_building_mitigation"); err != nil {
		return err
	}
	if d.WalkAdjustment.Mitigation < -1 || d.WalkAdjustment.Mitigation > 1 {
		return ValidationError{"valuation.depreciation.walk_adjustment.mitigation", "must be in [-1, 1]"}
	}

	if err := validatePctRange(v.Management.PenaltyPerShortfall, "valuation.management.penalty_per_shortfall"); err != nil {
		return err
	}
	if err := validatePctRange(v.Management.MaxPenalty, "valuation.management.max_penalty"); err != nil {
		return err
	}
	if v.TaxBand.MinArea >= v.TaxBand.MaxArea {
		return ValidationError{"valuation.tax_band", "min_area must be < max_area"}
	}
	if err := validatePctRange(v.Hazard.RedPenalty, "valuation.hazard.red_penalty"); err != nil {
		return err
	}
	if err := validatePctRange(v.Hazard.YellowPenalty, "valuation.hazard.yellow_penalty"); err != nil {
		return err
	}
	if err := validatePctRange(v.Tower.SmallScalePenalty, "valuation.tower.small_scale_penalty"); err != nil {
		return err
	}

	// === Scenario ===
	s := cfg.Scenario
	if s.CapRateMin <= 0 || s.CapRateMin >= s.CapRateMax {
		return ValidationError{"scenario.cap_rate_min", "must satisfy 0 < cap_rate_min < cap_rate_max"}
	}
	if s.ReferenceRentCAGR <= 0 {
		return ValidationError{"scenario.reference_rent_cagr", "must be > 0"}
	}
	if s.RentCoefMin > s.RentCoefMax {
		return ValidationError{"scenario.rent_coef", "min must be <= max"}
	}
	if s.LandShare < 0 || s.LandShare > 1 {
		return ValidationError{"scenario.land_share", "must be in [0, 1]"}
	}
	if s.SupplyMin <= 0 || s.SupplyMin > s.SupplyMax {
		return ValidationError{"scenario.supply", "must satisfy 0 < supply_min <= supply_max"}
	}
	if s.GradeScenario == "" {
		return ValidationError{"scenario.grade_scenario", "required"}
	}

	// === Loan ===
	p, ok := cfg.Loan.Profiles[cfg.Loan.Profile]
	if !ok {
		return ValidationError{"loan.profile", fmt.Sprintf("unknown profile %q", cfg.Loan.Profile)}
	}
	if p.AnnualRate < 0 {
		return ValidationError{"loan.profiles." + cfg.Loan.Profile + ".annual_rate", "must be >= 0"}
	}
	if p.TermMonths < 1 {
		return ValidationError{"loan.profiles." + cfg.Loan.Profile + ".term_months", "must be >= 1"}
	}
	if cfg.Loan.ElapsedMonths < 0 || cfg.Loan.ElapsedMonths > p.TermMonths {
		return ValidationError{"loan.elapsed_months", "must be in [0, term_months]"}
	}

	// === Grade ===
	bands, ok := cfg.Grade.Schemes[cfg.Grade.Scheme]
	if !ok {
		return ValidationError{"grade.scheme", fmt.Sprintf("unknown scheme %q", cfg.Grade.Scheme)}
	}
	if len(bands) == 0 {
		return ValidationError{"grade.schemes." + cfg.Grade.Scheme, "must not be empty"}
	}
	// 임계값은 내림차순
	for i := 1; i < len(bands); i++ {
		if bands[i].MinRatio >= bands[i-1].MinRatio {
			return ValidationError{
				Field:   fmt.Sprintf("grade.schemes.%s[%d]", cfg.Grade.Scheme, i),
				Message: "min_ratio must be strictly descending",
			}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	// 미해결 질문: 대출 금리/등급 임계값의 정본이 확정되지 않음
	warnings = append(warnings, Warning{
		Code: "UNCONFIRMED_LOAN_PROFILE",
		Message: fmt.Sprintf("loan profile %q (%.2f%%) selected; authoritative rate pending product-owner decision",
			cfg.Loan.Profile, cfg.Loan.Active().AnnualRate*100),
	})
	warnings = append(warnings, Warning{
		Code:    "UNCONFIRMED_GRADE_SCHEME",
		Message: fmt.Sprintf("grade scheme %q selected; authoritative thresholds pending product-owner decision", cfg.Grade.Scheme),
	})

	if cfg.Valuation.ContractRatio < 0.9 {
		warnings = append(warnings, Warning{
			Code:    "AGGRESSIVE_CONTRACT_DISCOUNT",
			Message: "contract_ratio < 0.90: asking-to-contract gap larger than typical",
		})
	}

	if cfg.Scenario.LandAppreciation > 0.3 {
		warnings = append(warnings, Warning{
			Code:    "OPTIMISTIC_LAND",
			Message: "land_appreciation > 30% over horizon",
		})
	}

	if !cfg.Valuation.Depreciation.WalkAdjustment.Enabled || !cfg.Simulation.WalkDisplay.Enabled {
		warnings = append(warnings, Warning{
			Code:    "WALK_ADJUSTMENT_DISABLED",
			Message: "one of the walk-distance adjustments is disabled; confirm both signals before merging",
		})
	}

	return warnings
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
