package grade

import (
	"math"

	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/internal/engineconfig"
)

// Classifier 암묵 이익률 → 등급 / 수익 확률 버킷
// ⭐ SSOT: 등급 임계값은 engineconfig 의 선택된 스킴에서만 읽음
type Classifier struct {
	scheme string
	bands  []engineconfig.GradeBand // MinRatio 내림차순 (Validate 보장)
}

// NewClassifier creates a classifier for the active grade scheme
func NewClassifier(cfg engineconfig.GradeConfig) *Classifier {
	return &Classifier{
		scheme: cfg.Scheme,
		bands:  append([]engineconfig.GradeBand(nil), cfg.Active()...),
	}
}

// Scheme returns the active scheme name
func (c *Classifier) Scheme() string {
	return c.scheme
}

// Classify maps a ratio to a grade. 하한 포함, 어느 구간에도 없으면 C
func (c *Classifier) Classify(ratio float64) (contracts.Grade, contracts.ProfitBucket) {
	if math.IsNaN(ratio) {
		return contracts.GradeC, contracts.GradeC.Bucket()
	}
	for _, b := range c.bands {
		if ratio >= b.MinRatio {
			return b.Grade, b.Grade.Bucket()
		}
	}
	return contracts.GradeC, contracts.GradeC.Bucket()
}

// Result builds a GradeResult from an implied gain and the current value
func (c *Classifier) Result(impliedGain float64, currentValue int64) contracts.GradeResult {
	if currentValue <= 0 {
		return contracts.ZeroGrade()
	}
	ratio := impliedGain / float64(currentValue)
	g, bucket := c.Classify(ratio)
	return contracts.GradeResult{
		ImpliedGainAmount: int64(math.Round(impliedGain)),
		ImpliedGainRatio:  ratio,
		Grade:             g,
		ProfitBucket:      bucket,
	}
}
