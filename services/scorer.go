package services

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"property-valuation/models"
)

// MonthlyPayment is the standard amortised repayment for the borrowed part of
// the price. It fails with ErrDegenerateRate when the monthly rate is zero.
func MonthlyPayment(purchasePrice float64, params models.ValuationParameters) (float64, error) {
	r := params.MortgageInterestRate / 1200
	n := float64(params.MortgageLength * 12)
	principal := math.Max(purchasePrice-float64(params.MaxDeposit), 0)

	if r == 0 {
		return 0, fmt.Errorf("rate %v: %w", params.MortgageInterestRate, ErrDegenerateRate)
	}

	growth := math.Pow(1+r, n)
	return principal * r * growth / (growth - 1), nil
}

// Score returns the annual return on the cash invested, as a percentage
// rounded to two decimals.
func Score(purchasePrice, estimatedRent float64, params models.ValuationParameters) (float64, error) {
	payment, err := MonthlyPayment(purchasePrice, params)
	if err != nil {
		return 0, err
	}

	netRent := float64(params.RentIncrease - params.RentDeduction)
	netAnnual := (estimatedRent + netRent - payment) * 12
	cost := float64(params.MaxDeposit + params.InvestmentIncrease - params.InvestmentDeduction)
	if cost == 0 {
		return 0, ErrDegenerateCost
	}

	roi := 100 * netAnnual / cost
	if math.IsNaN(roi) || math.IsInf(roi, 0) {
		return 0, fmt.Errorf("roi %v for term %d years: %w", roi, params.MortgageLength, ErrDegenerateRate)
	}

	return round2HalfEven(roi), nil
}

// round2HalfEven rounds the exact binary value of f to two decimals, breaking
// exact ties toward the even digit. 2.675 is stored just below the tie and
// becomes 2.67.
func round2HalfEven(f float64) float64 {
	text := new(big.Float).SetFloat64(f).Text('f', 2)
	d, err := decimal.NewFromString(text)
	if err != nil {
		return f
	}
	rounded, _ := d.Float64()
	return rounded
}
