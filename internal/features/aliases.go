package features

// Field 정규화된 입력 개념
type Field string

const (
	FieldListingPrice  Field = "listing_price"
	FieldPriceManYen   Field = "price_man_yen"
	FieldWalkMinutes   Field = "walk_minutes"
	FieldStation       Field = "station"
	FieldFloorArea     Field = "floor_area"
	FieldBuildYear     Field = "build_year"
	FieldBuildingAge   Field = "building_age"
	FieldFloor         Field = "floor"
	FieldTotalUnits    Field = "total_units"
	FieldManagementFee Field = "management_fee"
	FieldRepairReserve Field = "repair_reserve"
	FieldEstimatedRent Field = "estimated_rent"
	FieldHazardRisk    Field = "hazard_risk"
	FieldAddress       Field = "address"
	FieldWard          Field = "ward"
	FieldFreeText      Field = "free_text"
)

// Aliases 입력 키 별칭 표
// ⭐ SSOT: 스크래핑 레코드 키 → 정규 필드 매핑은 여기서만 정의
// 앞에 있는 키가 우선 (FieldFreeText 는 예외: 모든 키를 모음)
//
//	listing_price  : listing_price, price, price_yen          (엔, "8,500万円" 같은 문자열 허용)
//	price_man_yen  : price_man, price_man_yen, man_yen        (만엔 정수, ×ManYenMultiplier)
//	walk_minutes   : walk_minutes, walk                        (없으면 station 문자열의 「徒歩N分」)
//	station        : station, station_text, access
//	floor_area     : floor_area, area_sqm, exclusive_area      (㎡)
//	build_year     : build_year, year_built                    ("2018年3月" 허용)
//	building_age   : building_age                              (build_year 없을 때만)
//	floor          : floor, floor_number                       ("20階" 허용)
//	total_units    : total_units, units
//	management_fee : management_fee, kanrihi                   (월액 엔)
//	repair_reserve : repair_reserve, shuzen                    (월액 엔)
//	estimated_rent : estimated_rent, rent                      (월액 엔, 없으면 역산)
//	hazard_risk    : hazard_risk, hazard_level                 (0/1/2 또는 none/yellow/red)
//	address        : address, location
//	ward           : ward
//	free_text      : description, notes, remarks, features    (HTML 허용, 텍스트만 추출)
var Aliases = map[Field][]string{
	FieldListingPrice:  {"listing_price", "price", "price_yen"},
	FieldPriceManYen:   {"price_man", "price_man_yen", "man_yen"},
	FieldWalkMinutes:   {"walk_minutes", "walk"},
	FieldStation:       {"station", "station_text", "access"},
	FieldFloorArea:     {"floor_area", "area_sqm", "exclusive_area"},
	FieldBuildYear:     {"build_year", "year_built"},
	FieldBuildingAge:   {"building_age"},
	FieldFloor:         {"floor", "floor_number"},
	FieldTotalUnits:    {"total_units", "units"},
	FieldManagementFee: {"management_fee", "kanrihi"},
	FieldRepairReserve: {"repair_reserve", "shuzen"},
	FieldEstimatedRent: {"estimated_rent", "rent"},
	FieldHazardRisk:    {"hazard_risk", "hazard_level"},
	FieldAddress:       {"address", "location"},
	FieldWard:          {"ward"},
	FieldFreeText:      {"description", "notes", "remarks", "features"},
}

// lookup returns the first non-nil value among the aliases of f
func lookup(raw map[string]any, f Field) (any, bool) {
	for _, key := range Aliases[f] {
		if v, ok := raw[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
