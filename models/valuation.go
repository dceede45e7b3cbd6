package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ValuationParameters are the financing assumptions applied to every candidate.
// MinDeposit is carried for cache-key identity only; scoring uses MaxDeposit.
type ValuationParameters struct {
	MinDeposit           int
	MaxDeposit           int
	MortgageLength       int
	MortgageInterestRate float64
	InvestmentIncrease   int
	InvestmentDeduction  int
	RentIncrease         int
	RentDeduction        int
}

// String is the canonical serialization used in cache keys.
func (p ValuationParameters) String() string {
	return fmt.Sprintf("ValuationParameters(min_deposit=%d, max_deposit=%d, mortgage_length=%d, "+
		"mortgage_interest_rate=%s, investment_increase=%d, investment_deduction=%d, "+
		"rent_increase=%d, rent_deduction=%d)",
		p.MinDeposit, p.MaxDeposit, p.MortgageLength, formatDecimal(p.MortgageInterestRate),
		p.InvestmentIncrease, p.InvestmentDeduction, p.RentIncrease, p.RentDeduction)
}

// Valuation is a purchase listing with its interpolated rent and ROI percentage.
type Valuation struct {
	Property              Property
	EstimatedRentalIncome float64
	ReturnOnInvestment    float64
}

// RankingReport summarises a ranked valuation list.
type RankingReport struct {
	TotalCandidates int
	PositiveROI     int
	AverageROI      float64
	MinROI          float64
	MaxROI          float64
	AverageRent     float64
	AveragePrice    float64
	Best            *Valuation
	Top             []Valuation
	ByArea          map[string]int
}

// formatDecimal renders floats the way they appear in cache keys: shortest
// form, always with a fractional part ("3.0", "0.25").
func formatDecimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
