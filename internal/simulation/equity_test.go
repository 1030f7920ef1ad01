package simulation

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/internal/engineconfig"
	"github.com/wonny/kantei/internal/loan"
)

func intp(v int) *int { return &v }

func newTestSimulator(cfg engineconfig.Config) *EquitySimulator {
	return NewEquitySimulator(cfg, loan.NewCalculator(cfg.Loan), zerolog.Nop())
}

func TestWalkDrift(t *testing.T) {
	s := newTestSimulator(engineconfig.Default())

	tests := []struct {
		name string
		walk *int
		want float64
	}{
		{"unknown", nil, 0},
		{"near inclusive", intp(3), 0.003},
		{"one minute", intp(1), 0.003},
		{"middle", intp(4), 0},
		{"ten is not far", intp(10), 0},
		{"far", intp(11), -0.003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.WalkDrift(contracts.PropertyFeatures{WalkMinutes: tt.walk}), 1e-12)
		})
	}

	cfg := engineconfig.Default()
	cfg.Simulation.WalkDisplay.Enabled = false
	assert.Zero(t, newTestSimulator(cfg).WalkDrift(contracts.PropertyFeatures{WalkMinutes: intp(1)}))
}

func TestSimulate_PathEndpoints(t *testing.T) {
	cfg := engineconfig.Default()
	s := newTestSimulator(cfg)

	v := contracts.ValuationResult{CurrentValue: 80_000_000}
	forecasts := map[string]contracts.ScenarioForecast{
		contracts.ScenarioNeutral: {Scenario: contracts.ScenarioNeutral, Price: 100_000_000},
	}
	scenarios := map[string]contracts.MacroScenario{
		contracts.ScenarioNeutral: {Name: contracts.ScenarioNeutral, CPIRate: 0.015},
	}

	paths := s.Simulate(contracts.PropertyFeatures{WalkMinutes: intp(7)}, v, forecasts, scenarios)
	require.Contains(t, paths, contracts.ScenarioNeutral)

	p := paths[contracts.ScenarioNeutral]
	require.Len(t, p.Points, cfg.HorizonYears+1)

	first, last := p.Points[0], p.Points[len(p.Points)-1]
	assert.Equal(t, int64(80_000_000), first.Price)
	assert.Equal(t, int64(80_000_000), first.LoanBalance)
	assert.Zero(t, first.Equity)
	assert.Equal(t, first.Price, first.RealPrice)

	assert.Equal(t, int64(100_000_000), last.Price, "no drift → path ends at forecast price")
	calc := loan.NewCalculator(cfg.Loan)
	assert.InDelta(t, calc.Residual(80_000_000), float64(last.LoanBalance), 1)
	assert.Equal(t, last.Price-last.LoanBalance, last.Equity)
	assert.Less(t, last.RealPrice, last.Price)

	for i := 1; i < len(p.Points); i++ {
		assert.Greater(t, p.Points[i].Price, p.Points[i-1].Price)
		assert.Less(t, p.Points[i].LoanBalance, p.Points[i-1].LoanBalance)
	}
}

func TestSimulate_WalkDriftBendsDisplayPath(t *testing.T) {
	s := newTestSimulator(engineconfig.Default())

	v := contracts.ValuationResult{CurrentValue: 50_000_000}
	forecasts := map[string]contracts.ScenarioForecast{"flat": {Price: 50_000_000}}

	near := s.Simulate(contracts.PropertyFeatures{WalkMinutes: intp(2)}, v, forecasts, nil)["flat"]
	far := s.Simulate(contracts.PropertyFeatures{WalkMinutes: intp(20)}, v, forecasts, nil)["flat"]

	assert.InDelta(t, 0.003, near.WalkDrift, 1e-12)
	assert.Greater(t, near.Points[10].Price, int64(50_000_000))
	assert.Less(t, far.Points[10].Price, int64(50_000_000))
}

func TestSimulate_Sentinel(t *testing.T) {
	s := newTestSimulator(engineconfig.Default())

	paths := s.Simulate(contracts.PropertyFeatures{}, contracts.ZeroValuation(), map[string]contracts.ScenarioForecast{"neutral": {}}, nil)
	assert.NotNil(t, paths)
	assert.Empty(t, paths)
}
