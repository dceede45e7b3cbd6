package rightmove

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"property-valuation/models"
	"property-valuation/utils"
)

const (
	defaultTypeaheadBase = "https://www.rightmove.co.uk/typeAhead/uknostreet"
	userAgent            = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type typeaheadResponse struct {
	TypeAheadLocations []struct {
		DisplayName          string `json:"displayName"`
		LocationIdentifier   string `json:"locationIdentifier"`
		NormalisedSearchTerm string `json:"normalisedSearchTerm"`
	} `json:"typeAheadLocations"`
}

// LocationClient queries the portal's typeahead endpoint.
type LocationClient struct {
	baseURL    string
	httpClient *http.Client
	retry      *utils.RetryConfig
	logger     *utils.Logger
}

// NewLocationClient creates a client. An empty baseURL selects the live endpoint.
func NewLocationClient(baseURL string, timeout time.Duration, retry *utils.RetryConfig, logger *utils.Logger) *LocationClient {
	if baseURL == "" {
		baseURL = defaultTypeaheadBase
	}
	return &LocationClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry,
		logger:     logger,
	}
}

// TypeaheadURL builds the lookup URL: the input is upper-cased and split into
// two-character path segments, e.g. "London" → ".../LO/ND/ON".
func (c *LocationClient) TypeaheadURL(input string) string {
	upper := []rune(strings.ToUpper(input))
	segments := make([]string, 0, (len(upper)+1)/2)
	for i := 0; i < len(upper); i += 2 {
		end := i + 2
		if end > len(upper) {
			end = len(upper)
		}
		segments = append(segments, escapeSegment(string(upper[i:end])))
	}
	return c.baseURL + "/" + strings.Join(segments, "/")
}

// escapeSegment percent-encodes everything except unreserved characters and "/".
func escapeSegment(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	return strings.ReplaceAll(e, "%2F", "/")
}

// FetchLocations implements services.LocationFetcher.
func (c *LocationClient) FetchLocations(ctx context.Context, query string) ([]models.Location, error) {
	u := c.TypeaheadURL(query)

	var locations []models.Location
	err := c.retry.Do(ctx, "typeahead", func(ctx context.Context) error {
		var err error
		locations, err = c.fetch(ctx, u)
		return err
	})
	if err != nil {
		return nil, err
	}
	return locations, nil
}

func (c *LocationClient) fetch(ctx context.Context, u string) ([]models.Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Info("[rightmove] Sending GET request to %s", u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.Info("[rightmove] Received response with status code %d", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("typeahead returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload typeaheadResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	locations := make([]models.Location, 0, len(payload.TypeAheadLocations))
	for _, l := range payload.TypeAheadLocations {
		locations = append(locations, models.Location{
			DisplayName:    l.DisplayName,
			Identifier:     l.LocationIdentifier,
			NormalisedName: l.NormalisedSearchTerm,
		})
	}
	return locations, nil
}
