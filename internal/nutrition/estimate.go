package nutrition

import (
	"fmt"
	"strings"
)

// estimateRule classifies a food name by substring containment. Rules are
// evaluated in order and the first match wins, so broader keywords must
// come after narrower ones.
type estimateRule struct {
	keywords []string
	energy   int
	fat      float64
	sugars   float64
	proteins float64
}

var estimateRules = []estimateRule{
	{keywords: []string{"chip", "crisp", "snack"}, energy: 150, fat: 10.0, sugars: 1.5, proteins: 2.0},
	{keywords: []string{"chocolate", "candy"}, energy: 200, fat: 12.0, sugars: 20.0, proteins: 2.5},
	{keywords: []string{"soda", "cola"}, energy: 120, fat: 0.0, sugars: 30.0, proteins: 0.0},
	{keywords: []string{"water", "bottle"}, energy: 0, fat: 0.0, sugars: 0.0, proteins: 0.0},
}

var defaultEstimate = estimateRule{energy: 100, fat: 5.0, sugars: 3.0, proteins: 3.0}

// Estimate synthesizes a nutrition record for a food name that could not
// be resolved remotely. Estimates are deterministic for a given name and
// are flagged so the UI can mark the values as guesses.
func Estimate(sourceID, foodName string) *Record {
	rule := classifyFood(foodName)

	return &Record{
		SourceID:   sourceID,
		Title:      "Estimated Nutrition",
		IsEstimate: true,
		Fields: []Field{
			{Label: "Name", Value: foodName},
			{Label: "Energy", Value: fmt.Sprintf("%d kcal", rule.energy)},
			{Label: "Fat", Value: fmt.Sprintf("%.1fg", rule.fat)},
			{Label: "Sugars", Value: fmt.Sprintf("%.1fg", rule.sugars)},
			{Label: "Proteins", Value: fmt.Sprintf("%.1fg", rule.proteins)},
			{Label: "Note", Value: "Estimated values"},
		},
	}
}

func classifyFood(foodName string) estimateRule {
	lower := strings.ToLower(foodName)
	for _, rule := range estimateRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule
			}
		}
	}
	return defaultEstimate
}
