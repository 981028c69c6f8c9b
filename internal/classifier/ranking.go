package classifier

import (
	"math"
	"sort"

	"github.com/Rorical/RoriLens/internal/models"
)

// Rank sorts predictions by probability (stable on ties), clamps each
// probability into [0,1], drops empty labels and keeps the first topK.
func Rank(preds []models.Prediction, topK int) []models.Prediction {
	ranked := make([]models.Prediction, 0, len(preds))
	for _, p := range preds {
		if p.ClassName == "" || math.IsNaN(p.Probability) {
			continue
		}
		p.Probability = math.Max(0, math.Min(1, p.Probability))
		ranked = append(ranked, p)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// TopK pairs scores with labels and ranks them. Scores beyond the label
// list are ignored.
func TopK(scores []float64, labels []string, k int) []models.Prediction {
	n := len(scores)
	if len(labels) < n {
		n = len(labels)
	}

	preds := make([]models.Prediction, n)
	for i := 0; i < n; i++ {
		preds[i] = models.Prediction{ClassName: labels[i], Probability: scores[i]}
	}
	return Rank(preds, k)
}

// Softmax converts raw logits into probabilities
func Softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}

	maxLogit := float64(logits[0])
	for _, v := range logits[1:] {
		maxLogit = math.Max(maxLogit, float64(v))
	}

	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(float64(v) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
