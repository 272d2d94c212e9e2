// Package offacts provides a client for the Open Food Facts product API.
package offacts

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Measure is a nutriment value that the API may encode as a JSON number,
// a numeric string, or omit entirely.
type Measure struct {
	Value   float64
	Defined bool
}

// UnmarshalJSON accepts numbers and numeric strings; null and empty
// strings leave the measure undefined.
func (m *Measure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// Non-numeric string, treat as undefined rather than failing
			// the whole product decode.
			return nil
		}
		m.Value = v
		m.Defined = true
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	m.Value = v
	m.Defined = true
	return nil
}

// Nutriments holds the per-100g nutrition values used by the panel.
type Nutriments struct {
	EnergyKcal Measure `json:"energy-kcal"`
	EnergyKj   Measure `json:"energy"`
	Fat        Measure `json:"fat"`
	Sugars     Measure `json:"sugars"`
	Proteins   Measure `json:"proteins"`
	Salt       Measure `json:"salt"`
	Sodium     Measure `json:"sodium"`
}

// Product represents a single Open Food Facts product entry.
type Product struct {
	Code            string     `json:"code"`
	ProductName     string     `json:"product_name"`
	Brands          string     `json:"brands"`
	Nutriments      Nutriments `json:"nutriments"`
	IngredientsText string     `json:"ingredients_text"`
	ServingSize     string     `json:"serving_size"`
}

// productResponse is the envelope of the product-by-code endpoint.
// Status 1 means found, 0 means unknown barcode.
type productResponse struct {
	Status  int      `json:"status"`
	Code    string   `json:"code"`
	Product *Product `json:"product"`
}

// searchResponse is the envelope of the free-text search endpoint.
type searchResponse struct {
	Count    int       `json:"count"`
	Products []Product `json:"products"`
}

// Config holds configuration for the Open Food Facts client.
type Config struct {
	BaseURL     string        `json:"base_url"`
	Timeout     time.Duration `json:"timeout"`
	RateLimitMS int           `json:"rate_limit_ms"` // Milliseconds between requests
	UserAgent   string        `json:"user_agent"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "https://world.openfoodfacts.org",
		Timeout:     30 * time.Second,
		RateLimitMS: 100,
		UserAgent:   "ARNutri-Go/1.0",
	}
}
