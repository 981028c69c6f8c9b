package components

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Rorical/RoriLens/internal/models"
)

var catDog = []models.Prediction{
	{ClassName: "cat", Probability: 0.93},
	{ClassName: "dog", Probability: 0.04},
}

func TestFormatPredictions(t *testing.T) {
	assert.Equal(t, "cat: 93.00%\ndog: 4.00%\n", FormatPredictions(catDog))
	assert.Empty(t, FormatPredictions(nil))
}

func TestRenderPredictions(t *testing.T) {
	out := RenderPredictions(catDog)

	cat := strings.Index(out, "cat")
	dog := strings.Index(out, "dog")
	assert.True(t, cat >= 0 && dog > cat, "ranked order kept")
	assert.Contains(t, out, "93.00%")
	assert.Contains(t, out, "4.00%")
	assert.Empty(t, RenderPredictions(nil))
}

func TestRenderPreview(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}

	out := RenderPreview(img, 10, 10)
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 3, "40x20 fits 10x5 pixels, three half-block rows")
	assert.Equal(t, 10, strings.Count(lines[0], halfBlock))

	assert.Empty(t, RenderPreview(nil, 10, 10))
	assert.Empty(t, RenderPreview(img, 0, 10))
}

func TestHexColor(t *testing.T) {
	assert.Equal(t, "#ff8000", string(hexColor(color.NRGBA{R: 255, G: 128, A: 255})))
	assert.Equal(t, "#000000", string(hexColor(color.NRGBA{R: 255, G: 255, B: 255, A: 0})))
}

func TestRenderHelp(t *testing.T) {
	ready := models.SessionSnapshot{
		Phase:       models.PhaseReady,
		ModelReady:  true,
		ImageSource: "x",
		Preview:     image.NewRGBA(image.Rect(0, 0, 1, 1)),
	}
	assert.Contains(t, RenderHelp(ready), "tab classify")

	ready.ImageSource = ""
	assert.NotContains(t, RenderHelp(ready), "tab classify")

	ready.Mode = models.ModeURL
	assert.Contains(t, RenderHelp(ready), ImageSourceHint)
	ready.Mode = models.ModeFile
	assert.NotContains(t, RenderHelp(ready), ImageSourceHint)
}

func TestRenderLoadError(t *testing.T) {
	out := RenderLoadError(errors.New("model file missing"), 80, 24)
	assert.Contains(t, out, "model file missing")
	assert.Contains(t, out, "Esc to restart")
}

func TestRenderInputPlaceholder(t *testing.T) {
	assert.Contains(t, RenderInput("", models.ModeURL, true, 60), "Image URL")
	assert.Contains(t, RenderInput("", models.ModeFile, true, 60), "image file")
	assert.Contains(t, RenderInput("cat.jpg", models.ModeFile, true, 60), "cat.jpg")
}
