package contracts

import (
	"fmt"
	"strings"
)

// Tier 입지 등급 (도심 → 교외)
type Tier string

const (
	Tier1 Tier = "Tier1" // 도심 핵심구
	Tier2 Tier = "Tier2" // 준도심
	Tier3 Tier = "Tier3" // 교외, 미해결 주소의 기본값
)

// ParseTier accepts "Tier1", "tier1", "1" style values
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tier1", "1":
		return Tier1, nil
	case "tier2", "2":
		return Tier2, nil
	case "tier3", "3":
		return Tier3, nil
	}
	return "", fmt.Errorf("unknown tier %q", s)
}

// HazardLevel 해저드맵 리스크 수준
type HazardLevel int

const (
	HazardNone   HazardLevel = 0
	HazardYellow HazardLevel = 1 // 경계구역
	HazardRed    HazardLevel = 2 // 특별경계구역
)

// PropertyFeatures 정규화된 물건 특징량
// ⭐ SSOT: 엔진은 원시 레코드가 아니라 이 구조체만 읽음
// nil 포인터 = 입력에 없거나 파싱 불가
type PropertyFeatures struct {
	ListingPrice int64  `json:"listing_price"` // 엔
	Ward         string `json:"ward,omitempty"`
	Tier         Tier   `json:"tier"`
	Address      string `json:"address,omitempty"`
	StationText  string `json:"station_text,omitempty"`

	WalkMinutes *int     `json:"walk_minutes,omitempty"`
	FloorArea   *float64 `json:"floor_area_sqm,omitempty"`
	Floor       *int     `json:"floor,omitempty"`
	TotalUnits  *int     `json:"total_units,omitempty"`

	BuildYear    *int `json:"build_year,omitempty"`
	BuildingAge  int  `json:"building_age"`
	AgeDefaulted bool `json:"age_defaulted"`

	ManagementFee        *int64   `json:"management_fee,omitempty"` // 월액
	RepairReserve        *int64   `json:"repair_reserve,omitempty"` // 월액
	ManagementCostPerSqm *float64 `json:"management_cost_per_sqm,omitempty"`
	RepairReservePerSqm  *float64 `json:"repair_reserve_per_sqm,omitempty"`

	EstimatedRent float64 `json:"estimated_rent"` // 월액
	RentBackedOut bool    `json:"rent_backed_out"`

	HazardLevel HazardLevel `json:"hazard_level"`
	FreeText    []string    `json:"free_text,omitempty"`
}

// WalkOr returns walk minutes or the fallback when unknown
func (f PropertyFeatures) WalkOr(fallback int) int {
	if f.WalkMinutes == nil {
		return fallback
	}
	return *f.WalkMinutes
}

// UnitsOr returns total units or the fallback when unknown
func (f PropertyFeatures) UnitsOr(fallback int) int {
	if f.TotalUnits == nil {
		return fallback
	}
	return *f.TotalUnits
}

// FloorOr returns the floor or the fallback when unknown
func (f PropertyFeatures) FloorOr(fallback int) int {
	if f.Floor == nil {
		return fallback
	}
	return *f.Floor
}

// WardCoefficients 구별 계수 행
type WardCoefficients struct {
	Ward           string   `json:"ward"`
	Tier           Tier     `json:"tier"`
	RentCAGR       float64  `json:"rent_cagr"`
	InventoryTrend float64  `json:"inventory_trend"` // 음수 = 재고 감소 (공급 타이트)
	TowerFriendly  bool     `json:"tower_friendly"`
	InterestBeta   *float64 `json:"interest_beta,omitempty"` // nil = 티어 기본값
}

// ManagementGuideline 築年数 구간별 수선적립금 가이드라인 (엔/㎡/월)
type ManagementGuideline struct {
	AgeMin              int     `json:"age_min"`
	AgeMax              *int    `json:"age_max,omitempty"` // nil = 상한 없음
	RepairReservePerSqm float64 `json:"repair_reserve_per_sqm"`
}

// Contains reports whether age falls in [AgeMin, AgeMax]
func (g ManagementGuideline) Contains(age int) bool {
	if age < g.AgeMin {
		return false
	}
	return g.AgeMax == nil || age <= *g.AgeMax
}
