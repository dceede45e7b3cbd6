package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Category distinguishes purchase listings from rental listings. It is a
// closed set: only CategoryBuy and CategoryRent are valid.
type Category string

const (
	CategoryBuy  Category = "buy"
	CategoryRent Category = "rent"
)

// ParseCategory converts a serialized category into a Category.
func ParseCategory(s string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryBuy:
		return CategoryBuy, nil
	case CategoryRent:
		return CategoryRent, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

func (c Category) Valid() bool {
	return c == CategoryBuy || c == CategoryRent
}

// Channel is the portal channel suffix used in listing links.
func (c Category) Channel() string {
	if c == CategoryBuy {
		return "RES_BUY"
	}
	return "RES_LET"
}

// GeoLocation is a WGS84 coordinate pair.
type GeoLocation struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether both coordinates are finite and within range.
func (g GeoLocation) Valid() bool {
	if math.IsNaN(g.Latitude) || math.IsNaN(g.Longitude) {
		return false
	}
	return g.Latitude >= -90 && g.Latitude <= 90 && g.Longitude >= -180 && g.Longitude <= 180
}

// Property is a cleaned listing. Price is the monthly rent for rentals and
// the asking price for purchases.
type Property struct {
	Identifier     string
	DisplayAddress string
	Price          float64
	GeoLocation    GeoLocation
	Category       Category
	ImageURL       string
}

// Href returns the canonical portal link for the listing.
func (p Property) Href() string {
	return fmt.Sprintf("https://www.rightmove.co.uk/properties/%s#/?channel=%s", p.Identifier, p.Category.Channel())
}

// RawCard holds the unprocessed values read from one search result card.
type RawCard struct {
	Href     string
	RawPrice string
	ImageURL string
}

// RawMetadata holds one entry of the page's embedded listing model.
type RawMetadata struct {
	ID             string
	DisplayAddress string
	Latitude       *float64
	Longitude      *float64
}

// RawPage is everything scraped from a single search results page before cleaning.
type RawPage struct {
	URL       string
	Category  Category
	Cards     []RawCard
	Metadata  []RawMetadata
	ScrapedAt time.Time
}

// Location is a typeahead suggestion resolving free text to a portal location identifier.
type Location struct {
	DisplayName    string
	Identifier     string
	NormalisedName string
}
