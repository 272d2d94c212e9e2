// Package vision guesses a food item from camera frames when no barcode
// is available and feeds the guess into the search pipeline.
package vision

import (
	"context"
	"strings"
)

// Prediction is one classifier result.
type Prediction struct {
	ClassName   string  `json:"class_name"`
	Probability float64 `json:"probability"`
}

// Classifier turns an encoded camera frame into labeled predictions.
// Implementations wrap the browser-side image model.
type Classifier interface {
	Classify(ctx context.Context, frame []byte) ([]Prediction, error)
}

// foodKeywords marks classifier labels that plausibly describe food or
// food packaging. Labels are matched by substring containment.
var foodKeywords = []string{
	"food", "snack", "chip", "crisp", "fruit", "vegetable", "meat", "drink", "beverage",
	"chocolate", "candy", "sweet", "cookie", "cracker", "bread", "cereal", "yogurt",
	"milk", "juice", "soda", "water", "coffee", "tea", "sandwich", "burger", "pizza",
	"pasta", "rice", "bean", "nut", "cake", "pie", "ice cream", "dessert", "soup",
	"salad", "sauce", "oil", "vinegar", "sugar", "salt", "pepper", "spice", "herb",
	"package", "box", "bag", "bottle", "can", "container", "wrapper", "packet",
	"doritos", "lays", "cheetos", "pringles", "oreo", "kitkat", "snickers", "popcorn",
	"cola", "pepsi", "sprite", "fanta", "mountain dew", "redbull", "monster", "coke",
	"packaged", "processed", "junk", "fast", "frozen", "dried", "instant", "ready",
	"nestle", "kraft", "hershey", "nabisco", "frito", "kellogg", "heinz", "campbell",
	"coca", "mars", "general", "mills", "unilever", "danone", "mondelez",
}

// IsFoodItem reports whether a classifier label looks like food.
func IsFoodItem(label string) bool {
	lower := strings.ToLower(label)
	for _, keyword := range foodKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// FirstFood returns the first food-like prediction, preserving classifier
// ranking.
func FirstFood(predictions []Prediction) (Prediction, bool) {
	for _, p := range predictions {
		if IsFoodItem(p.ClassName) {
			return p, true
		}
	}
	return Prediction{}, false
}
