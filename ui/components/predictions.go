package components

import (
	"fmt"
	"strings"

	"github.com/Rorical/RoriLens/internal/models"
	"github.com/Rorical/RoriLens/ui/styles"
)

// FormatPredictions is the plain ranked list, one "label: percent" per line
func FormatPredictions(predictions []models.Prediction) string {
	var b strings.Builder
	for _, p := range predictions {
		fmt.Fprintf(&b, "%s: %s\n", p.ClassName, p.Percent())
	}
	return b.String()
}

// RenderPredictions draws the ranked list in the order given
func RenderPredictions(predictions []models.Prediction) string {
	if len(predictions) == 0 {
		return ""
	}

	var b strings.Builder
	labelStyle := styles.LabelStyle()
	probabilityStyle := styles.ProbabilityStyle()

	b.WriteString(styles.TitleStyle().Render("Predictions") + "\n")
	for _, p := range predictions {
		line := p.ClassName + "  " + probabilityStyle.Render(p.Percent())
		b.WriteString(labelStyle.Render(line) + "\n")
	}
	return b.String()
}
