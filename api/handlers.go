package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"property-valuation/models"
	"property-valuation/services"
)

// propertiesRequest is the body of POST /properties_data. Every field is
// required; pointers let zero values through.
type propertiesRequest struct {
	MinPrice             *int     `json:"min_price" binding:"required"`
	MaxPrice             *int     `json:"max_price" binding:"required"`
	MinBedrooms          *int     `json:"min_bedrooms" binding:"required"`
	MaxBedrooms          *int     `json:"max_bedrooms" binding:"required"`
	MinDeposit           *int     `json:"min_deposit" binding:"required,gte=0"`
	MaxDeposit           *int     `json:"max_deposit" binding:"required,gte=0"`
	MortgageLength       *int     `json:"mortgage_length" binding:"required,gt=0"`
	MortgageInterestRate *float64 `json:"mortgage_interest_rate" binding:"required"`
	InvestmentIncrease   *int     `json:"investment_increase" binding:"required"`
	InvestmentDeduction  *int     `json:"investment_deduction" binding:"required"`
	RentIncrease         *int     `json:"rent_increase" binding:"required"`
	RentDeduction        *int     `json:"rent_deduction" binding:"required"`
	Identifier           string   `json:"identifier" binding:"required"`
	DisplayName          string   `json:"display_name" binding:"required"`
}

type propertyRow struct {
	Rank          int     `json:"rank"`
	Address       string  `json:"address"`
	Price         string  `json:"price"`
	EstimatedRent string  `json:"estimated_rent"`
	ROI           string  `json:"roi"`
	Longitude     float64 `json:"longitude"`
	Latitude      float64 `json:"latitude"`
	Image         string  `json:"image"`
	Href          string  `json:"href"`
}

type locationRow struct {
	DisplayName string `json:"display_name"`
	Identifier  string `json:"identifier"`
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) debugLogs(c *gin.Context) {
	c.JSON(http.StatusOK, s.logger.History())
}

func (s *Server) getLocations(c *gin.Context) {
	query := strings.TrimSpace(c.Query("query"))
	if query == "" {
		c.JSON(http.StatusOK, []locationRow{})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
	defer cancel()

	locations, err := s.locations.FindLocations(ctx, query)
	if err != nil {
		s.logger.Error("[api] Location lookup for %q failed: %v", query, err)
		writeError(c, http.StatusInternalServerError, "location lookup failed")
		return
	}

	rows := make([]locationRow, 0, len(locations))
	for _, l := range locations {
		rows = append(rows, locationRow{DisplayName: l.DisplayName, Identifier: l.Identifier})
	}
	s.logger.Info("[api] Got %d location suggestions for %q", len(rows), query)
	c.JSON(http.StatusOK, rows)
}

func (s *Server) postPropertiesData(c *gin.Context) {
	var req propertiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	search, params, err := s.toSearch(req)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
	defer cancel()

	valuations, err := s.valuator.RankProperties(ctx, search, params)
	if err != nil {
		s.logger.Error("[api] Valuation for %s failed: %v", search.Location.DisplayName, err)
		writeError(c, http.StatusInternalServerError, "valuation failed")
		return
	}

	s.logger.Info("[api] Got %d property valuations for %s", len(valuations), search.Location.DisplayName)
	c.JSON(http.StatusOK, toRows(valuations, s.opts.TopResults))
}

func (s *Server) toSearch(req propertiesRequest) (models.SearchParameters, models.ValuationParameters, error) {
	price, err := models.NewIntRange(req.MinPrice, req.MaxPrice)
	if err != nil {
		return models.SearchParameters{}, models.ValuationParameters{}, err
	}
	bedrooms, err := models.NewIntRange(req.MinBedrooms, req.MaxBedrooms)
	if err != nil {
		return models.SearchParameters{}, models.ValuationParameters{}, err
	}

	search, err := models.NewSearchParameters(
		models.Location{DisplayName: req.DisplayName, Identifier: req.Identifier},
		s.opts.SearchRadius,
		price,
		bedrooms,
		nil,
		models.AllPropertyTypes,
		nil,
		[]models.DontShow{models.DontShowSharedOwnership},
		models.AllFurnishTypes,
		models.CategoryBuy,
	)
	if err != nil {
		return models.SearchParameters{}, models.ValuationParameters{}, err
	}

	params := models.ValuationParameters{
		MinDeposit:           *req.MinDeposit,
		MaxDeposit:           *req.MaxDeposit,
		MortgageLength:       *req.MortgageLength,
		MortgageInterestRate: *req.MortgageInterestRate,
		InvestmentIncrease:   *req.InvestmentIncrease,
		InvestmentDeduction:  *req.InvestmentDeduction,
		RentIncrease:         *req.RentIncrease,
		RentDeduction:        *req.RentDeduction,
	}
	return search, params, nil
}

// toRows renders the best n valuations for the browser table.
func toRows(valuations []models.Valuation, n int) []propertyRow {
	if len(valuations) > n {
		valuations = valuations[:n]
	}
	rows := make([]propertyRow, 0, len(valuations))
	for i, v := range valuations {
		rows = append(rows, propertyRow{
			Rank:          i + 1,
			Address:       v.Property.DisplayAddress,
			Price:         services.FormatPounds(v.Property.Price),
			EstimatedRent: services.FormatPounds(v.EstimatedRentalIncome),
			ROI:           decimal.NewFromFloat(v.ReturnOnInvestment).StringFixed(2) + "%",
			Longitude:     v.Property.GeoLocation.Longitude,
			Latitude:      v.Property.GeoLocation.Latitude,
			Image:         v.Property.ImageURL,
			Href:          v.Property.Href(),
		})
	}
	return rows
}

func writeError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
