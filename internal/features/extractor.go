package features

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/internal/engineconfig"
)

// WardResolver 주소 → 구 계수 조회 (coefficients.Tables 가 구현)
type WardResolver interface {
	Ward(name string) (contracts.WardCoefficients, bool)
	ResolveWard(address string) (contracts.WardCoefficients, bool)
}

// Extractor 원시 레코드 → PropertyFeatures 정규화
// ⭐ SSOT: 별칭/단위 해석은 여기서만. 엔진은 정규화된 특징량만 읽음
type Extractor struct {
	cfg      engineconfig.Config
	wards    WardResolver
	asOfYear int
	log      zerolog.Logger
}

// NewExtractor creates an extractor. asOfYear <= 0 uses the current year (고정 후 재사용)
func NewExtractor(cfg engineconfig.Config, wards WardResolver, asOfYear int, log zerolog.Logger) *Extractor {
	if asOfYear <= 0 {
		asOfYear = time.Now().Year()
	}
	return &Extractor{
		cfg:      cfg,
		wards:    wards,
		asOfYear: asOfYear,
		log:      log.With().Str("component", "features.extractor").Logger(),
	}
}

// AsOfYear returns the reference year used for building age
func (e *Extractor) AsOfYear() int {
	return e.asOfYear
}

// Extract normalizes one record. 파싱 불가 필드는 nil, 에러를 반환하지 않음
func (e *Extractor) Extract(raw map[string]any) contracts.PropertyFeatures {
	f := contracts.PropertyFeatures{Tier: contracts.Tier3}

	f.ListingPrice = e.listingPrice(raw)

	// 위치
	if v, ok := lookup(raw, FieldAddress); ok {
		f.Address = str(v)
	}
	if v, ok := lookup(raw, FieldStation); ok {
		f.StationText = str(v)
	}
	e.resolveWard(raw, &f)

	f.WalkMinutes = nonNegativeInt(lookup(raw, FieldWalkMinutes))
	if f.WalkMinutes == nil && f.StationText != "" {
		f.WalkMinutes = walkFromStation(f.StationText)
	}

	// 건물
	f.FloorArea = positiveFloat(lookup(raw, FieldFloorArea))
	f.Floor = nonNegativeInt(lookup(raw, FieldFloor))
	f.TotalUnits = nonNegativeInt(lookup(raw, FieldTotalUnits))
	e.buildingAge(raw, &f)

	// 관리비 / 수선적립금
	f.ManagementFee = nonNegativeYen(lookup(raw, FieldManagementFee))
	f.RepairReserve = nonNegativeYen(lookup(raw, FieldRepairReserve))
	if f.FloorArea != nil {
		area := *f.FloorArea
		if f.ManagementFee != nil && f.RepairReserve != nil {
			v := float64(*f.ManagementFee+*f.RepairReserve) / area
			f.ManagementCostPerSqm = &v
		}
		if f.RepairReserve != nil {
			v := float64(*f.RepairReserve) / area
			f.RepairReservePerSqm = &v
		}
	}

	e.rent(raw, &f)
	f.HazardLevel = hazard(lookup(raw, FieldHazardRisk))
	f.FreeText = e.freeText(raw)

	e.log.Debug().
		Int64("price", f.ListingPrice).
		Str("ward", f.Ward).
		Str("tier", string(f.Tier)).
		Int("age", f.BuildingAge).
		Bool("age_defaulted", f.AgeDefaulted).
		Bool("rent_backed_out", f.RentBackedOut).
		Msg("features extracted")

	return f
}

// listingPrice |price| > MaxListingPrice 는 해석 불가와 같이 0
func (e *Extractor) listingPrice(raw map[string]any) int64 {
	if v, ok := lookup(raw, FieldListingPrice); ok {
		if p, parsed := yen(v); parsed {
			return e.boundedPrice(p)
		}
	}
	if v, ok := lookup(raw, FieldPriceManYen); ok {
		if s, isStr := v.(string); isStr && strings.ContainsAny(halfWidth(s), "億万") {
			if p, parsed := yen(s); parsed {
				return e.boundedPrice(p)
			}
		}
		if n, parsed := number(v); parsed {
			if p, ok := roundInt64(n * float64(e.cfg.Features.ManYenMultiplier)); ok {
				return e.boundedPrice(p)
			}
		}
	}
	return 0
}

func (e *Extractor) boundedPrice(p int64) int64 {
	limit := e.cfg.Features.MaxListingPrice
	if limit > 0 && (p > limit || p < -limit) {
		e.log.Debug().Int64("price", p).Int64("limit", limit).Msg("listing price out of range, treated as unparseable")
		return 0
	}
	return p
}

// resolveWard 명시적 ward 키 → 주소 스캔 순. 미해결이면 Tier3
func (e *Extractor) resolveWard(raw map[string]any, f *contracts.PropertyFeatures) {
	if e.wards == nil {
		return
	}
	if v, ok := lookup(raw, FieldWard); ok {
		name := str(v)
		if w, found := e.wards.Ward(name); found {
			f.Ward, f.Tier = w.Ward, w.Tier
			return
		}
		if w, found := e.wards.ResolveWard(name); found {
			f.Ward, f.Tier = w.Ward, w.Tier
			return
		}
	}
	if w, found := e.wards.ResolveWard(f.Address); found {
		f.Ward, f.Tier = w.Ward, w.Tier
	}
}

func (e *Extractor) buildingAge(raw map[string]any, f *contracts.PropertyFeatures) {
	if year := nonNegativeInt(lookup(raw, FieldBuildYear)); year != nil && *year >= 1800 && *year <= e.asOfYear+5 {
		f.BuildYear = year
		f.BuildingAge = max(0, e.asOfYear-*year)
		return
	}
	if age := nonNegativeInt(lookup(raw, FieldBuildingAge)); age != nil {
		f.BuildingAge = *age
		return
	}
	f.BuildingAge = e.cfg.Features.FallbackBuildingAge
	f.AgeDefaulted = true
}

// rent 입력값 우선, 없으면 listing_price × tier cap rate / 12
func (e *Extractor) rent(raw map[string]any, f *contracts.PropertyFeatures) {
	if r := positiveFloat(lookup(raw, FieldEstimatedRent)); r != nil {
		f.EstimatedRent = *r
		return
	}
	if f.ListingPrice <= 0 {
		return
	}
	capRate := e.cfg.Tiers.For(f.Tier).CapRate
	f.EstimatedRent = float64(f.ListingPrice) * capRate / 12
	f.RentBackedOut = true
}

func hazard(v any, ok bool) contracts.HazardLevel {
	if !ok {
		return contracts.HazardNone
	}
	if s, isStr := v.(string); isStr {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "red", "レッド":
			return contracts.HazardRed
		case "yellow", "イエロー":
			return contracts.HazardYellow
		}
	}
	n, parsed := number(v)
	if !parsed {
		return contracts.HazardNone
	}
	switch int(n) {
	case 1:
		return contracts.HazardYellow
	case 2:
		return contracts.HazardRed
	}
	return contracts.HazardNone
}

func (e *Extractor) freeText(raw map[string]any) []string {
	var out []string
	for _, key := range Aliases[FieldFreeText] {
		for _, s := range texts(raw[key]) {
			if t := plainText(s); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
