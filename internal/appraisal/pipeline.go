package appraisal

import (
	"fmt"
	"maps"

	"github.com/rs/zerolog"

	"github.com/wonny/kantei/internal/coefficients"
	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/internal/engineconfig"
	"github.com/wonny/kantei/internal/features"
	"github.com/wonny/kantei/internal/grade"
	"github.com/wonny/kantei/internal/loan"
	"github.com/wonny/kantei/internal/scenario"
	"github.com/wonny/kantei/internal/simulation"
	"github.com/wonny/kantei/internal/valuation"
)

// Output keys merged back into the caller's record
const (
	KeyCurrentValue      = "current_estimated_value"
	KeyForecast          = "forecast_10y"
	KeyImpliedGainAmount = "implied_gain_amount"
	KeyImpliedGainRatio  = "implied_gain_ratio"
	KeyGrade             = "grade"
	KeyProfitBucket      = "profit_bucket"
	KeyRiskFactors       = "risk_factors"
	KeyPositiveFactors   = "positive_factors"
	KeyConfigHash        = "appraisal_config_hash"
)

// Pipeline 특징 추출 → 현재가 → 시나리오 예측 → 등급
// ⭐ SSOT: 엔진 조립은 여기서만. 로드 후 불변이라 동시 호출 안전
type Pipeline struct {
	tables     *coefficients.Tables
	cfg        engineconfig.Config
	configHash string

	extractor *features.Extractor
	valuation *valuation.Engine
	scenario  *scenario.Engine
	simulator *simulation.EquitySimulator

	log zerolog.Logger
}

// NewPipeline wires every engine against the loaded tables.
// asOfYear <= 0 uses the current year for building age.
func NewPipeline(tables *coefficients.Tables, asOfYear int, log zerolog.Logger) (*Pipeline, error) {
	cfg := tables.Config()
	hash, err := engineconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash engine config: %w", err)
	}

	calc := loan.NewCalculator(cfg.Loan)
	p := &Pipeline{
		tables:     tables,
		cfg:        cfg,
		configHash: hash,
		extractor:  features.NewExtractor(cfg, tables, asOfYear, log),
		valuation:  valuation.NewEngine(cfg, tables, log),
		scenario:   scenario.NewEngine(cfg, tables, calc, grade.NewClassifier(cfg.Grade), log),
		simulator:  simulation.NewEquitySimulator(cfg, calc, log),
		log:        log.With().Str("component", "appraisal.pipeline").Logger(),
	}

	p.log.Info().
		Str("config_hash", hash).
		Str("loan_profile", cfg.Loan.Profile).
		Str("grade_scheme", cfg.Grade.Scheme).
		Int("as_of_year", p.extractor.AsOfYear()).
		Msg("pipeline ready")

	return p, nil
}

// ConfigHash identifies the engine configuration behind every result
func (p *Pipeline) ConfigHash() string {
	return p.configHash
}

// Config returns the engine configuration
func (p *Pipeline) Config() engineconfig.Config {
	return p.cfg
}

// Tables returns the loaded coefficient tables
func (p *Pipeline) Tables() *coefficients.Tables {
	return p.tables
}

// Appraise runs the full pipeline on one raw record. Never fails:
// 불량 필드는 기본값, 가격 <= 0 은 센티널
func (p *Pipeline) Appraise(record map[string]any) contracts.Appraisal {
	f := p.extractor.Extract(record)
	v := p.valuation.Value(f)
	res := p.scenario.Forecast(f, v, p.tables.Scenarios())

	return contracts.Appraisal{
		Features:   f,
		Valuation:  v,
		Forecasts:  res.Forecasts,
		Grade:      res.Grade,
		ConfigHash: p.configHash,
	}
}

// Simulate builds the yearly equity paths for an appraisal
func (p *Pipeline) Simulate(a contracts.Appraisal) map[string]simulation.Path {
	return p.simulator.Simulate(a.Features, a.Valuation, a.Forecasts, p.tables.Scenarios())
}

// Steps returns the valuation adjustment chain for an appraisal
func (p *Pipeline) Steps(a contracts.Appraisal) []valuation.Step {
	_, steps := p.valuation.ValueWithSteps(a.Features)
	return steps
}

// Merge returns a copy of record with the appraisal output keys set.
// 입력 맵은 변경하지 않음
func Merge(record map[string]any, a contracts.Appraisal) map[string]any {
	out := make(map[string]any, len(record)+9)
	maps.Copy(out, record)

	forecasts := make(map[string]contracts.ScenarioForecast, len(a.Forecasts))
	maps.Copy(forecasts, a.Forecasts)

	out[KeyCurrentValue] = a.Valuation.CurrentValue
	out[KeyForecast] = forecasts
	out[KeyImpliedGainAmount] = a.Grade.ImpliedGainAmount
	out[KeyImpliedGainRatio] = a.Grade.ImpliedGainRatio
	out[KeyGrade] = string(a.Grade.Grade)
	out[KeyProfitBucket] = string(a.Grade.ProfitBucket)
	out[KeyRiskFactors] = nonNil(a.Valuation.RiskFactors)
	out[KeyPositiveFactors] = nonNil(a.Valuation.PositiveFactors)
	out[KeyConfigHash] = a.ConfigHash
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
