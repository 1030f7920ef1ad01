package simulation

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/internal/engineconfig"
	"github.com/wonny/kantei/internal/loan"
)

// Point 연도별 표시값 (엔)
type Point struct {
	Year        int   `json:"year"`
	Price       int64 `json:"price"`
	LoanBalance int64 `json:"loan_balance"`
	Equity      int64 `json:"equity"`
	RealPrice   int64 `json:"real_price"` // CPI 디플레이트
}

// Path 시나리오 하나의 연도별 경로
type Path struct {
	Scenario  string  `json:"scenario"`
	WalkDrift float64 `json:"walk_drift"` // 연율
	Points    []Point `json:"points"`
}

// EquitySimulator 연도별 가격 / 잔債 / 에쿼티 시뮬레이션 (표시용)
// 도보 표시 조정은 감가 쪽 도보 조정과 별개 신호. 예측 가격 자체는 바꾸지 않음
type EquitySimulator struct {
	cfg  engineconfig.Config
	loan *loan.Calculator
	log  zerolog.Logger
}

// NewEquitySimulator creates a simulator
func NewEquitySimulator(cfg engineconfig.Config, calc *loan.Calculator, log zerolog.Logger) *EquitySimulator {
	return &EquitySimulator{
		cfg:  cfg,
		loan: calc,
		log:  log.With().Str("component", "simulation.equity").Logger(),
	}
}

// WalkDrift returns the annual display drift for a walk distance
func (s *EquitySimulator) WalkDrift(f contracts.PropertyFeatures) float64 {
	wd := s.cfg.Simulation.WalkDisplay
	if !wd.Enabled || f.WalkMinutes == nil {
		return 0
	}
	switch walk := *f.WalkMinutes; {
	case walk <= wd.NearWalkMinutes:
		return wd.NearDrift
	case walk > wd.FarWalkMinutes:
		return wd.FarDrift
	}
	return 0
}

// Simulate builds a yearly path per scenario from the current value to the forecast price.
// 센티널(현재가 <= 0)은 빈 맵
func (s *EquitySimulator) Simulate(f contracts.PropertyFeatures, v contracts.ValuationResult, forecasts map[string]contracts.ScenarioForecast, scenarios map[string]contracts.MacroScenario) map[string]Path {
	out := make(map[string]Path, len(forecasts))
	if v.CurrentValue <= 0 {
		return out
	}

	horizon := s.cfg.HorizonYears
	drift := s.WalkDrift(f)
	current := float64(v.CurrentValue)

	for name, fc := range forecasts {
		cpi := scenarios[name].CPIRate
		ratio := float64(fc.Price) / current

		points := make([]Point, 0, horizon+1)
		for y := 0; y <= horizon; y++ {
			t := float64(y) / float64(horizon)

			var price float64
			if ratio > 0 {
				price = current * math.Pow(ratio, t)
			} else {
				price = current * (1 - t)
			}
			price *= math.Pow(1+drift, float64(y))

			pt := Point{
				Year:        y,
				Price:       yen(price),
				LoanBalance: yen(s.loan.BalanceAt(current, y*12)),
				RealPrice:   yen(price / math.Pow(1+cpi, float64(y))),
			}
			pt.Equity = pt.Price - pt.LoanBalance
			points = append(points, pt)
		}
		out[name] = Path{Scenario: name, WalkDrift: drift, Points: points}
	}

	s.log.Debug().
		Int64("current_value", v.CurrentValue).
		Float64("walk_drift", drift).
		Int("paths", len(out)).
		Msg("equity simulated")

	return out
}

func yen(v float64) int64 {
	return decimal.NewFromFloat(v).Round(0).IntPart()
}
