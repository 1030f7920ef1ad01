// Package loan implements the fixed-payment amortization schedule.
//
// ⭐ SSOT: 잔債 계산은 이 패키지에서만. 현재가 보정, 암묵 이익, 시뮬레이션 모두 여기를 호출
package loan

import (
	"math"

	"github.com/wonny/kantei/internal/engineconfig"
)

// MonthlyPayment returns the constant annuity payment.
// annualRate == 0 이면 원금 균등 (principal / totalMonths)
func MonthlyPayment(principal, annualRate float64, totalMonths int) float64 {
	if principal <= 0 || totalMonths <= 0 {
		return 0
	}
	if annualRate == 0 {
		return principal / float64(totalMonths)
	}
	r := annualRate / 12
	growth := math.Pow(1+r, float64(totalMonths))
	return principal * r * growth / (growth - 1)
}

// RemainingBalance returns the principal left after elapsedMonths payments.
//
//	B(k) = P(1+r)^k − M((1+r)^k − 1)/r
//
// elapsed <= 0 → principal, elapsed >= total → 0, 결과는 0 미만이 되지 않음
func RemainingBalance(principal, annualRate float64, totalMonths, elapsedMonths int) float64 {
	if principal <= 0 || totalMonths <= 0 {
		return 0
	}
	if elapsedMonths <= 0 {
		return principal
	}
	if elapsedMonths >= totalMonths {
		return 0
	}

	if annualRate == 0 {
		return math.Max(0, principal*(1-float64(elapsedMonths)/float64(totalMonths)))
	}

	r := annualRate / 12
	payment := MonthlyPayment(principal, annualRate, totalMonths)
	growth := math.Pow(1+r, float64(elapsedMonths))
	balance := principal*growth - payment*(growth-1)/r
	return math.Max(0, balance)
}

// Calculator binds the configured loan profile so every caller uses the same terms
type Calculator struct {
	profile       engineconfig.LoanProfile
	profileName   string
	elapsedMonths int
}

// NewCalculator creates a calculator for the active loan profile
func NewCalculator(cfg engineconfig.LoanConfig) *Calculator {
	return &Calculator{
		profile:       cfg.Active(),
		profileName:   cfg.Profile,
		elapsedMonths: cfg.ElapsedMonths,
	}
}

// Profile returns the active profile name and terms
func (c *Calculator) Profile() (string, engineconfig.LoanProfile) {
	return c.profileName, c.profile
}

// ElapsedMonths returns the configured holding period
func (c *Calculator) ElapsedMonths() int {
	return c.elapsedMonths
}

// Residual returns the balance after the configured holding period
func (c *Calculator) Residual(principal float64) float64 {
	return c.BalanceAt(principal, c.elapsedMonths)
}

// BalanceAt returns the balance after the given number of months under the active profile
func (c *Calculator) BalanceAt(principal float64, elapsedMonths int) float64 {
	return RemainingBalance(principal, c.profile.AnnualRate, c.profile.TermMonths, elapsedMonths)
}
