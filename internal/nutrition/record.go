// Package nutrition builds display-ready nutrition records from resolved
// product data or from the synthetic estimate policy.
package nutrition

import (
	"fmt"
	"math"

	"github.com/nutriscan/arnutri-go/internal/offacts"
)

// Unit conversion factor from kilojoules to kilocalories.
const kjPerKcal = 4.184

const maxIngredientsLen = 100

// Field is one labeled line on a nutrition panel. Field order is
// significant for rendering.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Record is the resolved fact sheet for one product. Records are immutable
// once created and are shared between the cache and any panels rendering
// them.
type Record struct {
	SourceID   string  `json:"source_id"`
	Title      string  `json:"title"`
	Fields     []Field `json:"fields"`
	IsEstimate bool    `json:"is_estimate"`
}

// Field returns the value for a label, or false when the record has no
// such line.
func (r *Record) Field(label string) (string, bool) {
	for _, f := range r.Fields {
		if f.Label == label {
			return f.Value, true
		}
	}
	return "", false
}

// FromProduct normalizes an Open Food Facts product into a Record keyed by
// sourceID. Every field is independently optional; missing values render
// as "N/A" so the panel layout stays stable.
func FromProduct(sourceID string, product *offacts.Product) *Record {
	title := product.ProductName
	if title == "" {
		title = "Unknown Product"
	}

	fields := []Field{
		{Label: "Name", Value: orNA(product.ProductName)},
		{Label: "Brand", Value: orNA(product.Brands)},
		{Label: "Energy", Value: formatEnergy(product.Nutriments)},
		{Label: "Fat", Value: formatGrams(product.Nutriments.Fat)},
		{Label: "Sugars", Value: formatGrams(product.Nutriments.Sugars)},
		{Label: "Proteins", Value: formatGrams(product.Nutriments.Proteins)},
	}

	// Salt wins over sodium when both are reported; only one line is
	// emitted.
	if product.Nutriments.Salt.Defined {
		fields = append(fields, Field{Label: "Salt", Value: formatGrams(product.Nutriments.Salt)})
	} else if product.Nutriments.Sodium.Defined {
		fields = append(fields, Field{Label: "Sodium", Value: formatGrams(product.Nutriments.Sodium)})
	}

	if product.IngredientsText != "" {
		fields = append(fields, Field{Label: "Ingredients", Value: truncateIngredients(product.IngredientsText)})
	}
	if product.ServingSize != "" {
		fields = append(fields, Field{Label: "Serving", Value: product.ServingSize})
	}

	return &Record{
		SourceID: sourceID,
		Title:    title,
		Fields:   fields,
	}
}

// formatEnergy prefers a kcal value and falls back to deriving kcal from
// kilojoules.
func formatEnergy(n offacts.Nutriments) string {
	if n.EnergyKcal.Defined {
		return fmt.Sprintf("%d kcal", int(math.Round(n.EnergyKcal.Value)))
	}
	if n.EnergyKj.Defined {
		return fmt.Sprintf("%d kcal", int(math.Round(n.EnergyKj.Value/kjPerKcal)))
	}
	return "N/A"
}

func formatGrams(m offacts.Measure) string {
	if !m.Defined {
		return "N/A"
	}
	return fmt.Sprintf("%.1fg", m.Value)
}

func truncateIngredients(text string) string {
	runes := []rune(text)
	if len(runes) <= maxIngredientsLen {
		return text
	}
	return string(runes[:maxIngredientsLen]) + "..."
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
