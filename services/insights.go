package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"property-valuation/models"
	"property-valuation/utils"
)

const topN = 5

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate expects valuations already ranked by ROI.
func (s *InsightService) Generate(valuations []models.Valuation) *models.RankingReport {
	report := &models.RankingReport{
		ByArea: make(map[string]int),
	}

	if len(valuations) == 0 {
		return report
	}

	report.TotalCandidates = len(valuations)
	report.MinROI = valuations[0].ReturnOnInvestment
	report.MaxROI = valuations[0].ReturnOnInvestment

	var roiTotal, rentTotal, priceTotal float64
	for i := range valuations {
		v := valuations[i]
		roiTotal += v.ReturnOnInvestment
		rentTotal += v.EstimatedRentalIncome
		priceTotal += v.Property.Price
		if v.ReturnOnInvestment > 0 {
			report.PositiveROI++
		}
		if v.ReturnOnInvestment < report.MinROI {
			report.MinROI = v.ReturnOnInvestment
		}
		if v.ReturnOnInvestment > report.MaxROI {
			report.MaxROI = v.ReturnOnInvestment
		}
		if area := areaOf(v.Property.DisplayAddress); area != "" {
			report.ByArea[area]++
		}
	}

	n := float64(len(valuations))
	report.AverageROI = round2(roiTotal / n)
	report.AverageRent = round2(rentTotal / n)
	report.AveragePrice = round2(priceTotal / n)

	best := valuations[0]
	report.Best = &best
	if len(valuations) > topN {
		report.Top = valuations[:topN]
	} else {
		report.Top = valuations
	}

	s.logger.Debug("[insights] %d candidates, %d with positive ROI", report.TotalCandidates, report.PositiveROI)
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.RankingReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  PROPERTY VALUATION RANKING\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Candidates ranked      : \033[1m%d\033[0m\n", r.TotalCandidates)
	fmt.Fprintf(w, "  With positive ROI      : \033[1m%d\033[0m\n", r.PositiveROI)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Return on Investment\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.TotalCandidates > 0 {
		fmt.Fprintf(w, "  Average ROI   : \033[1;32m%.2f%%\033[0m\n", r.AverageROI)
		fmt.Fprintf(w, "  Minimum ROI   : \033[1;32m%.2f%%\033[0m\n", r.MinROI)
		fmt.Fprintf(w, "  Maximum ROI   : \033[1;32m%.2f%%\033[0m\n", r.MaxROI)
		fmt.Fprintf(w, "  Average rent  : \033[1;32m%s pcm\033[0m\n", FormatPounds(r.AverageRent))
		fmt.Fprintf(w, "  Average price : \033[1;32m%s\033[0m\n", FormatPounds(r.AveragePrice))
	} else {
		fmt.Fprintf(w, "  No candidates could be scored\n")
	}
	fmt.Fprintln(w)

	if r.Best != nil {
		fmt.Fprintf(w, "\033[1;33m  Best Candidate\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.Best.Property.DisplayAddress, 50))
		fmt.Fprintf(w, "  Price : %s | Rent : %s pcm\n",
			FormatPounds(r.Best.Property.Price), FormatPounds(r.Best.EstimatedRentalIncome))
		fmt.Fprintf(w, "  ROI   : \033[1;31m%.2f%%\033[0m\n", r.Best.ReturnOnInvestment)
		fmt.Fprintf(w, "  Link  : %s\n", r.Best.Property.Href())
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Top %d by ROI\033[0m\n", topN)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Top) == 0 {
		fmt.Fprintf(w, "  Nothing to rank\n")
	} else {
		for i, v := range r.Top {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%6.2f%%\033[0m\n",
				i+1, truncate(v.Property.DisplayAddress, 38), v.ReturnOnInvestment)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Candidates by Area\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.ByArea) == 0 {
		fmt.Fprintf(w, "  No area data\n")
	} else {
		type areaCount struct {
			area  string
			count int
		}
		var areas []areaCount
		for a, cnt := range r.ByArea {
			areas = append(areas, areaCount{a, cnt})
		}
		sort.Slice(areas, func(i, j int) bool {
			if areas[i].count != areas[j].count {
				return areas[i].count > areas[j].count
			}
			return areas[i].area < areas[j].area
		})
		for _, ac := range areas {
			bar := strings.Repeat("█", ac.count)
			fmt.Fprintf(w, "  %-30s %s (%d)\n", truncate(ac.area, 28), bar, ac.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// FormatPounds renders a whole-pound amount with thousands separators, e.g. "£1,234".
// Pence are truncated.
func FormatPounds(v float64) string {
	whole := decimal.NewFromFloat(v).Truncate(0)
	sign := ""
	if whole.IsNegative() {
		sign = "-"
		whole = whole.Neg()
	}
	digits := whole.String()
	var b strings.Builder
	for i, ch := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}
	return sign + "£" + b.String()
}

// areaOf returns the last comma-separated part of an address, usually the town or postcode district.
func areaOf(address string) string {
	parts := strings.Split(address, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}

func round2(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return v
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
