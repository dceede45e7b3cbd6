package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"property-valuation/models"
	"property-valuation/utils"
)

var (
	// idRegexp captures the listing id from a card link
	idRegexp = regexp.MustCompile(`/properties/(\d+)`)
	// buyPriceRegexp captures an asking price such as "£250,000"
	buyPriceRegexp = regexp.MustCompile(`£([\d,]+)`)
	// rentPriceRegexp captures a monthly rent such as "£1,250 pcm"
	rentPriceRegexp = regexp.MustCompile(`£([\d,]+)\s*pcm`)
)

type cardValues struct {
	price float64
	image string
}

// Cleaner joins scraped result cards with the page's embedded listing model
// and produces validated Properties.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean processes raw pages in order. A listing is kept when its card has an
// id and a parseable price and its metadata carries valid coordinates.
// Identifiers seen on an earlier page are skipped.
func (c *Cleaner) Clean(pages ...models.RawPage) []models.Property {
	seen := make(map[string]struct{})
	var result []models.Property
	total := 0

	for _, page := range pages {
		cards := c.parseCards(page)
		total += len(page.Metadata)

		for _, m := range page.Metadata {
			id := strings.TrimSpace(m.ID)
			card, ok := cards[id]
			if !ok {
				continue
			}
			if _, dup := seen[id]; dup {
				c.logger.Debug("[cleaner] Duplicate listing skipped: %s", id)
				continue
			}
			if m.Latitude == nil || m.Longitude == nil {
				c.logger.Warn("[cleaner] Dropping listing %s without coordinates", id)
				continue
			}
			geo := models.GeoLocation{Latitude: *m.Latitude, Longitude: *m.Longitude}
			if !geo.Valid() {
				c.logger.Warn("[cleaner] Dropping listing %s with invalid coordinates %v", id, geo)
				continue
			}
			seen[id] = struct{}{}

			result = append(result, models.Property{
				Identifier:     id,
				DisplayAddress: normaliseText(m.DisplayAddress),
				Price:          card.price,
				GeoLocation:    geo,
				Category:       page.Category,
				ImageURL:       card.image,
			})
		}
	}

	if result == nil {
		result = []models.Property{}
	}
	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped %d)",
		total, len(result), total-len(result))
	return result
}

func (c *Cleaner) parseCards(page models.RawPage) map[string]cardValues {
	out := make(map[string]cardValues, len(page.Cards))
	for _, card := range page.Cards {
		id := parseID(card.Href)
		if id == "" {
			c.logger.Debug("[cleaner] Card without listing id: %q", card.Href)
			continue
		}
		price, ok := parsePrice(card.RawPrice, page.Category)
		if !ok {
			c.logger.Debug("[cleaner] Card %s without price: %q", id, card.RawPrice)
			continue
		}
		image := ""
		if page.Category == models.CategoryBuy {
			image = strings.TrimSpace(card.ImageURL)
		}
		out[id] = cardValues{price: price, image: image}
	}
	return out
}

func parseID(href string) string {
	m := idRegexp.FindStringSubmatch(href)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// parsePrice extracts the sterling amount from card text. Rentals must be
// quoted per calendar month.
// Examples:
//
//	"£250,000" (buy) → 250000
//	"£1,250 pcm" (rent) → 1250
//	"£295 pw" (rent) → not parsed
func parsePrice(raw string, category models.Category) (float64, bool) {
	re := buyPriceRegexp
	if category == models.CategoryRent {
		re = rentPriceRegexp
	}
	m := re.FindStringSubmatch(raw)
	if len(m) < 2 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	s = strings.TrimSpace(s)
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r)
	})
	return strings.Join(fields, " ")
}
