package services

import (
	"encoding/json"
	"fmt"

	"property-valuation/models"
)

// Cache payloads are JSON arrays. Every field is mandatory on decode, so the
// records use pointers to tell a missing key from a zero value.

type geoRecord struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type propertyRecord struct {
	Identifier       *string    `json:"identifier"`
	DisplayAddress   *string    `json:"display_address"`
	Price            *float64   `json:"price"`
	GeoLocation      *geoRecord `json:"geo_location"`
	PurchaseCategory *string    `json:"purchase_category,omitempty"`
	Category         *string    `json:"category,omitempty"`
	ImageURL         *string    `json:"image_url"`
}

type valuationRecord struct {
	propertyRecord
	EstimatedRentalIncome *float64 `json:"estimated_rental_income"`
	ReturnOnInvestment    *float64 `json:"return_on_investment"`
}

type locationRecord struct {
	DisplayName    *string `json:"display_name"`
	Identifier     *string `json:"identifier"`
	NormalisedName *string `json:"normalised_name"`
}

// EncodeValuations serialises a ranked list for the cache.
func EncodeValuations(valuations []models.Valuation) (string, error) {
	records := make([]valuationRecord, len(valuations))
	for i, v := range valuations {
		rent, roi := v.EstimatedRentalIncome, v.ReturnOnInvestment
		records[i] = valuationRecord{
			propertyRecord:        toPropertyRecord(v.Property),
			EstimatedRentalIncome: &rent,
			ReturnOnInvestment:    &roi,
		}
	}
	return marshal(records)
}

// DecodeValuations is the inverse of EncodeValuations. Any schema violation
// yields ErrMalformedPayload.
func DecodeValuations(payload string) ([]models.Valuation, error) {
	var records []*valuationRecord
	if err := unmarshal(payload, &records); err != nil {
		return nil, err
	}

	out := make([]models.Valuation, 0, len(records))
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("record %d is null: %w", i, ErrMalformedPayload)
		}
		p, err := fromPropertyRecord(r.propertyRecord)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if r.EstimatedRentalIncome == nil {
			return nil, missing(i, "estimated_rental_income")
		}
		if r.ReturnOnInvestment == nil {
			return nil, missing(i, "return_on_investment")
		}
		out = append(out, models.Valuation{
			Property:              p,
			EstimatedRentalIncome: *r.EstimatedRentalIncome,
			ReturnOnInvestment:    *r.ReturnOnInvestment,
		})
	}
	return out, nil
}

// EncodeProperties serialises search results for the listing cache.
func EncodeProperties(properties []models.Property) (string, error) {
	records := make([]propertyRecord, len(properties))
	for i, p := range properties {
		records[i] = toPropertyRecord(p)
	}
	return marshal(records)
}

func DecodeProperties(payload string) ([]models.Property, error) {
	var records []*propertyRecord
	if err := unmarshal(payload, &records); err != nil {
		return nil, err
	}

	out := make([]models.Property, 0, len(records))
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("record %d is null: %w", i, ErrMalformedPayload)
		}
		p, err := fromPropertyRecord(*r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func EncodeLocations(locations []models.Location) (string, error) {
	records := make([]locationRecord, len(locations))
	for i, l := range locations {
		l := l
		records[i] = locationRecord{
			DisplayName:    &l.DisplayName,
			Identifier:     &l.Identifier,
			NormalisedName: &l.NormalisedName,
		}
	}
	return marshal(records)
}

func DecodeLocations(payload string) ([]models.Location, error) {
	var records []*locationRecord
	if err := unmarshal(payload, &records); err != nil {
		return nil, err
	}

	out := make([]models.Location, 0, len(records))
	for i, r := range records {
		switch {
		case r == nil:
			return nil, fmt.Errorf("record %d is null: %w", i, ErrMalformedPayload)
		case r.DisplayName == nil:
			return nil, missing(i, "display_name")
		case r.Identifier == nil:
			return nil, missing(i, "identifier")
		case r.NormalisedName == nil:
			return nil, missing(i, "normalised_name")
		}
		out = append(out, models.Location{
			DisplayName:    *r.DisplayName,
			Identifier:     *r.Identifier,
			NormalisedName: *r.NormalisedName,
		})
	}
	return out, nil
}

func toPropertyRecord(p models.Property) propertyRecord {
	id, addr, price, img := p.Identifier, p.DisplayAddress, p.Price, p.ImageURL
	lat, lon := p.GeoLocation.Latitude, p.GeoLocation.Longitude
	category := string(p.Category)
	return propertyRecord{
		Identifier:       &id,
		DisplayAddress:   &addr,
		Price:            &price,
		GeoLocation:      &geoRecord{Latitude: &lat, Longitude: &lon},
		PurchaseCategory: &category,
		ImageURL:         &img,
	}
}

func fromPropertyRecord(r propertyRecord) (models.Property, error) {
	category := r.PurchaseCategory
	if category == nil {
		category = r.Category
	}

	switch {
	case r.Identifier == nil:
		return models.Property{}, missingField("identifier")
	case r.DisplayAddress == nil:
		return models.Property{}, missingField("display_address")
	case r.Price == nil:
		return models.Property{}, missingField("price")
	case r.GeoLocation == nil:
		return models.Property{}, missingField("geo_location")
	case r.GeoLocation.Latitude == nil:
		return models.Property{}, missingField("geo_location.latitude")
	case r.GeoLocation.Longitude == nil:
		return models.Property{}, missingField("geo_location.longitude")
	case category == nil:
		return models.Property{}, missingField("purchase_category")
	case r.ImageURL == nil:
		return models.Property{}, missingField("image_url")
	}

	c, err := models.ParseCategory(*category)
	if err != nil {
		return models.Property{}, fmt.Errorf("%v: %w", err, ErrMalformedPayload)
	}

	return models.Property{
		Identifier:     *r.Identifier,
		DisplayAddress: *r.DisplayAddress,
		Price:          *r.Price,
		GeoLocation: models.GeoLocation{
			Latitude:  *r.GeoLocation.Latitude,
			Longitude: *r.GeoLocation.Longitude,
		},
		Category: c,
		ImageURL: *r.ImageURL,
	}, nil
}

func marshal(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return string(b), nil
}

func unmarshal(payload string, v any) error {
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("%v: %w", err, ErrMalformedPayload)
	}
	return nil
}

func missingField(name string) error {
	return fmt.Errorf("missing %s: %w", name, ErrMalformedPayload)
}

func missing(i int, name string) error {
	return fmt.Errorf("record %d: %w", i, missingField(name))
}
