package models

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	buyBaseURL  = "https://www.rightmove.co.uk/property-for-sale/find.html?"
	rentBaseURL = "https://www.rightmove.co.uk/property-to-rent/find.html?"
)

type PropertyType string

const (
	PropertyFlat         PropertyType = "flat"
	PropertyDetached     PropertyType = "detached"
	PropertySemiDetached PropertyType = "semi-detached"
	PropertyTerraced     PropertyType = "terraced"
	PropertyBungalow     PropertyType = "bungalow"
	PropertyParkHome     PropertyType = "park-home"
	PropertyLand         PropertyType = "land"
	// PropertyStudentHalls only matches rentals.
	PropertyStudentHalls PropertyType = "private-halls"
)

// AllPropertyTypes lists every property type the portal accepts.
var AllPropertyTypes = []PropertyType{
	PropertyFlat, PropertyDetached, PropertySemiDetached, PropertyTerraced,
	PropertyBungalow, PropertyParkHome, PropertyLand, PropertyStudentHalls,
}

type MustHave string

const (
	MustHaveAuction         MustHave = "auction"
	MustHaveGarden          MustHave = "garden"
	MustHaveParking         MustHave = "parking"
	MustHaveNewHome         MustHave = "newHome"
	MustHaveRetirement      MustHave = "retirement"
	MustHaveSharedOwnership MustHave = "sharedOwnership"
)

type DontShow string

const (
	DontShowNewHome         DontShow = "newHome"
	DontShowRetirement      DontShow = "retirement"
	DontShowSharedOwnership DontShow = "sharedOwnership"
)

// FurnishType filters rentals only; it is ignored for purchase searches.
type FurnishType string

const (
	FurnishFurnished     FurnishType = "furnished"
	FurnishPartFurnished FurnishType = "partFurnished"
	FurnishUnfurnished   FurnishType = "unfurnished"
)

var AllFurnishTypes = []FurnishType{FurnishFurnished, FurnishPartFurnished, FurnishUnfurnished}

var (
	ErrNegativeBound  = errors.New("range bound cannot be negative")
	ErrInvertedRange  = errors.New("range minimum cannot be greater than the maximum")
	ErrNegativeRadius = errors.New("radius cannot be negative")
	ErrNegativeDays   = errors.New("maximum days since added cannot be negative")
)

// IntRange is an inclusive bound where either end may be open (nil).
type IntRange struct {
	Min *int
	Max *int
}

// NewIntRange validates and builds a range.
func NewIntRange(min, max *int) (IntRange, error) {
	if min != nil && *min < 0 {
		return IntRange{}, fmt.Errorf("minimum %d: %w", *min, ErrNegativeBound)
	}
	if max != nil && *max < 0 {
		return IntRange{}, fmt.Errorf("maximum %d: %w", *max, ErrNegativeBound)
	}
	if min != nil && max != nil && *min > *max {
		return IntRange{}, fmt.Errorf("%d > %d: %w", *min, *max, ErrInvertedRange)
	}
	return IntRange{Min: min, Max: max}, nil
}

// Bounded is a convenience constructor for a closed range.
func Bounded(min, max int) (IntRange, error) {
	return NewIntRange(&min, &max)
}

func (r IntRange) String() string {
	return fmt.Sprintf("IntRange(min=%s, max=%s)", optInt(r.Min), optInt(r.Max))
}

// SearchParameters describes one portal search. Values are immutable once
// built; ToBuy and ToRent return modified copies.
type SearchParameters struct {
	Location          Location
	Radius            float64
	Price             IntRange
	Bedrooms          IntRange
	MaxDaysSinceAdded *int
	PropertyTypes     []PropertyType
	MustHave          []MustHave
	DontShow          []DontShow
	FurnishTypes      []FurnishType
	Category          Category
}

// NewSearchParameters validates the inputs and normalises the filter sets
// (deduplicated, sorted by value) so URLs are canonical.
func NewSearchParameters(
	location Location,
	radius float64,
	price, bedrooms IntRange,
	maxDaysSinceAdded *int,
	propertyTypes []PropertyType,
	mustHave []MustHave,
	dontShow []DontShow,
	furnishTypes []FurnishType,
	category Category,
) (SearchParameters, error) {
	if radius < 0 {
		return SearchParameters{}, ErrNegativeRadius
	}
	if maxDaysSinceAdded != nil && *maxDaysSinceAdded < 0 {
		return SearchParameters{}, ErrNegativeDays
	}
	if !category.Valid() {
		return SearchParameters{}, fmt.Errorf("search parameters: unknown category %q", category)
	}
	return SearchParameters{
		Location:          location,
		Radius:            radius,
		Price:             price,
		Bedrooms:          bedrooms,
		MaxDaysSinceAdded: maxDaysSinceAdded,
		PropertyTypes:     sortedSet(propertyTypes),
		MustHave:          sortedSet(mustHave),
		DontShow:          sortedSet(dontShow),
		FurnishTypes:      sortedSet(furnishTypes),
		Category:          category,
	}, nil
}

func (p SearchParameters) ToBuy() SearchParameters {
	p.Category = CategoryBuy
	return p
}

func (p SearchParameters) ToRent() SearchParameters {
	p.Category = CategoryRent
	return p
}

// URL returns the canonical search URL for the parameters' category.
func (p SearchParameters) URL() string {
	var b strings.Builder
	if p.Category == CategoryRent {
		b.WriteString(rentBaseURL)
	} else {
		b.WriteString(buyBaseURL)
	}

	b.WriteString("locationIdentifier=" + p.Location.Identifier + "&")
	b.WriteString("radius=" + formatDecimal(p.Radius) + "&")
	if p.Category != CategoryRent {
		b.WriteString("minPrice=" + optInt(p.Price.Min) + "&")
		b.WriteString("maxPrice=" + optInt(p.Price.Max) + "&")
	}
	b.WriteString("minBedrooms=" + optInt(p.Bedrooms.Min) + "&")
	b.WriteString("maxBedrooms=" + optInt(p.Bedrooms.Max) + "&")
	b.WriteString("maxDaysSinceAdded=" + optInt(p.MaxDaysSinceAdded) + "&")
	b.WriteString("propertyTypes=" + joinValues(p.PropertyTypes) + "&")
	b.WriteString("mustHave=" + joinValues(p.MustHave) + "&")
	b.WriteString("dontShow=" + joinValues(p.DontShow) + "&")
	if p.Category == CategoryRent {
		b.WriteString("furnishTypes=" + joinValues(p.FurnishTypes) + "&")
		b.WriteString("includeLetAgreed=true")
	} else {
		b.WriteString("includeSSTC=false")
	}
	return b.String()
}

// PageURL returns URL() with pagination. Index 0 omits the index parameter.
func (p SearchParameters) PageURL(index, perPage int) string {
	if index <= 0 {
		return fmt.Sprintf("%s&numberOfPropertiesPerPage=%d", p.URL(), perPage)
	}
	return fmt.Sprintf("%s&index=%d&numberOfPropertiesPerPage=%d", p.URL(), index, perPage)
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func sortedSet[T ~string](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinValues[T ~string](in []T) string {
	parts := make([]string, len(in))
	for i, v := range in {
		parts[i] = string(v)
	}
	return strings.Join(parts, ",")
}
