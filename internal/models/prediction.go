package models

import "fmt"

// Prediction is one ranked (label, confidence) pair returned by a classifier
type Prediction struct {
	ClassName   string  `json:"className"`
	Probability float64 `json:"probability"`
}

// Percent formats the probability as a percentage with two decimals, e.g. "93.00%"
func (p Prediction) Percent() string {
	return FormatPercent(p.Probability)
}

func FormatPercent(probability float64) string {
	return fmt.Sprintf("%.2f%%", probability*100)
}
