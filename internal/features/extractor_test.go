package features

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kantei/internal/coefficients"
	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/internal/engineconfig"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	tables, err := coefficients.Load(coefficients.Options{DataDir: "../../config/coefficients"}, zerolog.Nop())
	require.NoError(t, err)
	return NewExtractor(tables.Config(), tables, 2026, zerolog.Nop())
}

func TestExtract_ReferenceRecord(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract(map[string]any{
		"price":          85_000_000,
		"address":        "東京都港区芝浦4丁目",
		"walk_minutes":   5,
		"area_sqm":       70.5,
		"year_built":     2018,
		"management_fee": 15000,
		"repair_reserve": 12000,
		"total_units":    400,
		"floor_number":   20,
	})

	assert.Equal(t, int64(85_000_000), f.ListingPrice)
	assert.Equal(t, "港区", f.Ward)
	assert.Equal(t, contracts.Tier1, f.Tier)
	require.NotNil(t, f.WalkMinutes)
	assert.Equal(t, 5, *f.WalkMinutes)
	require.NotNil(t, f.FloorArea)
	assert.InDelta(t, 70.5, *f.FloorArea, 1e-9)
	assert.Equal(t, 8, f.BuildingAge)
	assert.False(t, f.AgeDefaulted)
	assert.Equal(t, 400, f.UnitsOr(0))
	assert.Equal(t, 20, f.FloorOr(0))

	require.NotNil(t, f.ManagementCostPerSqm)
	assert.InDelta(t, 27000/70.5, *f.ManagementCostPerSqm, 1e-9)
	require.NotNil(t, f.RepairReservePerSqm)
	assert.InDelta(t, 12000/70.5, *f.RepairReservePerSqm, 1e-9)

	// Tier1 cap 3.5%
	assert.True(t, f.RentBackedOut)
	assert.InDelta(t, 85_000_000*0.035/12, f.EstimatedRent, 1e-6)
}

func TestExtract_PriceAliases(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name string
		raw  map[string]any
		want int64
	}{
		{"yen integer", map[string]any{"listing_price": 42_000_000}, 42_000_000},
		{"yen float from JSON", map[string]any{"price": 42_000_000.0}, 42_000_000},
		{"yen with separators", map[string]any{"price": "42,000,000円"}, 42_000_000},
		{"man-yen text", map[string]any{"price": "8,500万円"}, 85_000_000},
		{"oku and man text", map[string]any{"price": "1億2000万円"}, 120_000_000},
		{"full-width digits", map[string]any{"price": "８５００万円"}, 85_000_000},
		{"man-yen integer", map[string]any{"price_man": 8500}, 85_000_000},
		{"man-yen json number", map[string]any{"price_man_yen": json.Number("6980")}, 69_800_000},
		{"yen wins over man-yen", map[string]any{"price": 1000, "price_man": 9999}, 1000},
		{"unparseable", map[string]any{"price": "応相談"}, 0},
		{"absent", map[string]any{}, 0},
		{"negative kept for sentinel", map[string]any{"price": -5}, -5},
		{"at max listing price", map[string]any{"price": 1_000_000_000_000}, 1_000_000_000_000},
		{"above max listing price", map[string]any{"price": 1_000_000_000_001}, 0},
		{"beyond int64 float", map[string]any{"price": 8e18}, 0},
		{"beyond int64 range", map[string]any{"price": 1e19}, 0},
		{"huge negative", map[string]any{"price": -1e19}, 0},
		{"huge json number", map[string]any{"price": json.Number("100000000000000000000")}, 0},
		{"huge oku text", map[string]any{"price": "999999999億円"}, 0},
		{"huge man-yen integer", map[string]any{"price_man": 1e15}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Extract(tt.raw).ListingPrice)
		})
	}
}

func TestExtract_UnresolvedAddressDefaultsToTier3(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract(map[string]any{"price": 30_000_000, "address": "神奈川県川崎市中原区"})
	assert.Empty(t, f.Ward)
	assert.Equal(t, contracts.Tier3, f.Tier)
	assert.InDelta(t, 30_000_000*0.055/12, f.EstimatedRent, 1e-6)

	// 다른 시의 동명 구는 도쿄 구로 해석하지 않음
	for _, addr := range []string{"大阪府大阪市中央区心斎橋", "北海道札幌市中央区", "神奈川県横浜市港北区日吉"} {
		f := e.Extract(map[string]any{"price": 85_000_000, "address": addr})
		assert.Empty(t, f.Ward, addr)
		assert.Equal(t, contracts.Tier3, f.Tier, addr)
	}
}

func TestExtract_ExplicitWardKey(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract(map[string]any{"price": 1, "ward": "世田谷区", "address": "東京都港区"})
	assert.Equal(t, "世田谷区", f.Ward)
	assert.Equal(t, contracts.Tier2, f.Tier)
}

func TestExtract_BuildingAge(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name      string
		raw       map[string]any
		wantAge   int
		defaulted bool
	}{
		{"build_year", map[string]any{"build_year": 2000}, 26, false},
		{"year_built text", map[string]any{"year_built": "2018年3月"}, 8, false},
		{"future year clamps to zero", map[string]any{"build_year": 2028}, 0, false},
		{"explicit age", map[string]any{"building_age": 33}, 33, false},
		{"garbage year falls back", map[string]any{"build_year": "不明"}, 15, true},
		{"absent falls back", map[string]any{}, 15, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := e.Extract(tt.raw)
			assert.Equal(t, tt.wantAge, f.BuildingAge)
			assert.Equal(t, tt.defaulted, f.AgeDefaulted)
		})
	}
}

func TestExtract_MalformedOptionalFieldsBecomeNil(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract(map[string]any{
		"price":          50_000_000,
		"floor_area":     "不明",
		"floor":          true,
		"total_units":    -3,
		"management_fee": "要確認",
		"repair_reserve": 9000,
		"hazard_risk":    "unknown",
	})

	assert.Nil(t, f.FloorArea)
	assert.Nil(t, f.Floor)
	assert.Nil(t, f.TotalUnits)
	assert.Nil(t, f.ManagementFee)
	require.NotNil(t, f.RepairReserve)
	assert.Nil(t, f.ManagementCostPerSqm, "needs both fees and an area")
	assert.Nil(t, f.RepairReservePerSqm, "needs an area")
	assert.Equal(t, contracts.HazardNone, f.HazardLevel)
}

func TestExtract_WalkFromStationText(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract(map[string]any{"station": "JR山手線「田町」駅 徒歩７分"})
	require.NotNil(t, f.WalkMinutes)
	assert.Equal(t, 7, *f.WalkMinutes)

	f = e.Extract(map[string]any{"station": "徒歩7分", "walk": 3})
	assert.Equal(t, 3, *f.WalkMinutes, "explicit walk wins")

	f = e.Extract(map[string]any{"station": "バス10分"})
	assert.Nil(t, f.WalkMinutes)
}

func TestExtract_SuppliedRent(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract(map[string]any{"price": 50_000_000, "estimated_rent": 210_000})
	assert.False(t, f.RentBackedOut)
	assert.InDelta(t, 210_000, f.EstimatedRent, 1e-9)

	f = e.Extract(map[string]any{"price": 0})
	assert.Zero(t, f.EstimatedRent)
	assert.False(t, f.RentBackedOut)
}

func TestExtract_Hazard(t *testing.T) {
	e := newTestExtractor(t)

	assert.Equal(t, contracts.HazardRed, e.Extract(map[string]any{"hazard_risk": 2}).HazardLevel)
	assert.Equal(t, contracts.HazardYellow, e.Extract(map[string]any{"hazard_level": "1"}).HazardLevel)
	assert.Equal(t, contracts.HazardRed, e.Extract(map[string]any{"hazard_risk": "Red"}).HazardLevel)
	assert.Equal(t, contracts.HazardNone, e.Extract(map[string]any{"hazard_risk": 7}).HazardLevel)
}

func TestExtract_FreeTextStripsHTML(t *testing.T) {
	e := newTestExtractor(t)

	f := e.Extract(map[string]any{
		"description": "<p>南向き<br>2020年<b>リノベーション</b>済</p>",
		"notes":       []any{"ペット可", 3, "  "},
		"remarks":     "ZEH-M Oriented",
	})

	assert.Equal(t, []string{"南向き2020年リノベーション済", "ペット可", "ZEH-M Oriented"}, f.FreeText)
}

func TestExtract_NilResolver(t *testing.T) {
	e := NewExtractor(engineconfig.Default(), nil, 2026, zerolog.Nop())

	f := e.Extract(map[string]any{"price": 10_000_000, "address": "東京都港区"})
	assert.Equal(t, contracts.Tier3, f.Tier)
}

func TestNewExtractor_DefaultsAsOfYear(t *testing.T) {
	e := NewExtractor(engineconfig.Default(), nil, 0, zerolog.Nop())
	assert.GreaterOrEqual(t, e.AsOfYear(), 2024)
}
