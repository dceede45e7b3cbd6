package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-valuation/models"
)

func baseParams() models.ValuationParameters {
	return models.ValuationParameters{
		MinDeposit:           20000,
		MaxDeposit:           40000,
		MortgageLength:       25,
		MortgageInterestRate: 3,
	}
}

func TestScoreWorkedExample(t *testing.T) {
	roi, err := Score(200000, 1000, baseParams())
	require.NoError(t, err)
	assert.Equal(t, 7.24, roi)
}

func TestMonthlyPayment(t *testing.T) {
	payment, err := MonthlyPayment(200000, baseParams())
	require.NoError(t, err)
	assert.InDelta(t, 758.74, payment, 0.01)
}

func TestScoreZeroRate(t *testing.T) {
	p := baseParams()
	p.MortgageInterestRate = 0

	_, err := Score(200000, 1000, p)
	assert.ErrorIs(t, err, ErrDegenerateRate)
}

func TestScoreZeroCost(t *testing.T) {
	p := baseParams()
	p.MaxDeposit = 0

	_, err := Score(200000, 1000, p)
	assert.ErrorIs(t, err, ErrDegenerateCost)

	p.MaxDeposit = 5000
	p.InvestmentDeduction = 5000
	_, err = Score(200000, 1000, p)
	assert.ErrorIs(t, err, ErrDegenerateCost)
}

func TestScoreZeroTermIsDegenerate(t *testing.T) {
	p := baseParams()
	p.MortgageLength = 0

	_, err := Score(200000, 1000, p)
	assert.ErrorIs(t, err, ErrDegenerateRate)
}

func TestScoreDepositCoversPrice(t *testing.T) {
	p := baseParams()
	p.MaxDeposit = 250000

	roi, err := Score(200000, 1000, p)
	require.NoError(t, err)
	// no borrowing: 12000 / 250000
	assert.Equal(t, 4.8, roi)
}

func TestScoreAdjustments(t *testing.T) {
	p := baseParams()
	p.MaxDeposit = 250000
	p.RentIncrease = 300
	p.RentDeduction = 100
	p.InvestmentIncrease = 10000
	p.InvestmentDeduction = 20000

	roi, err := Score(200000, 1000, p)
	require.NoError(t, err)
	// (1000 + 200) * 12 / 240000
	assert.Equal(t, 6.0, roi)
}

func TestRound2HalfEvenUsesBinaryValue(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{7.245, 7.24}, // stored as 7.24499...
		{2.675, 2.67}, // stored as 2.67499...
		{1.005, 1},    // stored as 1.00499...
		{0.125, 0.12}, // exact tie, even digit kept
		{0.375, 0.38}, // exact tie, rounds up to even
		{-7.245, -7.24},
		{7.2449, 7.24},
		{7.2451, 7.25},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, round2HalfEven(tt.in), "%v", tt.in)
	}
}
