package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"property-valuation/models"
)

// CSVWriter exports ranked valuations to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	rank   int
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"rank", "identifier", "address", "price", "estimated_rent", "roi_percent",
		"latitude", "longitude", "image_url", "href",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteValuations appends rows in the given order. Ranks continue across calls.
func (c *CSVWriter) WriteValuations(valuations []models.Valuation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, v := range valuations {
		c.rank++
		p := v.Property
		row := []string{
			strconv.Itoa(c.rank),
			p.Identifier,
			p.DisplayAddress,
			strconv.FormatFloat(p.Price, 'f', 0, 64),
			strconv.FormatFloat(v.EstimatedRentalIncome, 'f', 2, 64),
			strconv.FormatFloat(v.ReturnOnInvestment, 'f', 2, 64),
			strconv.FormatFloat(p.GeoLocation.Latitude, 'f', -1, 64),
			strconv.FormatFloat(p.GeoLocation.Longitude, 'f', -1, 64),
			p.ImageURL,
			p.Href(),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
