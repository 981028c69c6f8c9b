package onnx

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriLens/internal/classifier"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestPreprocess_NCHW(t *testing.T) {
	md := &Metadata{
		InputShape: []int64{1, 3, 4, 4},
		Layout:     LayoutNCHW,
		Mean:       []float32{0.5, 0.5, 0.5},
		Std:        []float32{0.5, 0.5, 0.5},
	}

	data := Preprocess(solid(10, 7, color.RGBA{R: 255, A: 255}), md)
	require.Len(t, data, 3*4*4)

	for i := 0; i < 16; i++ {
		assert.InDelta(t, 1.0, data[i], 1e-2, "red plane")
		assert.InDelta(t, -1.0, data[16+i], 1e-2, "green plane")
		assert.InDelta(t, -1.0, data[32+i], 1e-2, "blue plane")
	}
}

func TestPreprocess_NHWC(t *testing.T) {
	md := &Metadata{
		InputShape: []int64{1, 2, 3, 3},
		Layout:     LayoutNHWC,
		Mean:       []float32{0, 0, 0},
		Std:        []float32{1, 1, 1},
	}

	data := Preprocess(solid(5, 5, color.RGBA{B: 255, A: 255}), md)
	require.Len(t, data, 2*3*3)

	for px := 0; px < 6; px++ {
		assert.InDelta(t, 0.0, data[px*3], 1e-2)
		assert.InDelta(t, 0.0, data[px*3+1], 1e-2)
		assert.InDelta(t, 1.0, data[px*3+2], 1e-2)
	}
}

func TestPreprocess_Interpolations(t *testing.T) {
	for name := range interpolations {
		t.Run(name, func(t *testing.T) {
			md := &Metadata{
				InputShape:    []int64{1, 3, 4, 4},
				Layout:        LayoutNCHW,
				Interpolation: name,
				Mean:          []float32{0, 0, 0},
				Std:           []float32{1, 1, 1},
			}

			data := Preprocess(solid(9, 9, color.RGBA{G: 255, A: 255}), md)
			require.Len(t, data, 3*4*4)
			for i := 0; i < 16; i++ {
				assert.InDelta(t, 0.0, data[i], 2e-2)
				assert.InDelta(t, 1.0, data[16+i], 2e-2)
			}
		})
	}
}

func TestScoresToPredictions(t *testing.T) {
	md := &Metadata{Classes: []string{"cat", "dog", "bird"}}

	preds := scoresToPredictions([]float32{0.04, 0.93, 0.03}, md, 2)
	require.Len(t, preds, 2)
	assert.Equal(t, "dog", preds[0].ClassName)
	assert.InDelta(t, 0.93, preds[0].Probability, 1e-6)
	assert.Equal(t, "cat", preds[1].ClassName)

	md.Softmax = true
	preds = scoresToPredictions([]float32{1, 3, 2}, md, classifier.DefaultTopK)
	require.Len(t, preds, 3)
	assert.Equal(t, []string{"dog", "bird", "cat"}, []string{preds[0].ClassName, preds[1].ClassName, preds[2].ClassName})

	var sum float64
	for _, p := range preds {
		sum += p.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestNewLoader_RequiresPaths(t *testing.T) {
	_, err := NewLoader(classifier.Options{Backend: "onnx"})
	require.Error(t, err)
	assert.True(t, classifier.IsKind(err, classifier.KindConfiguration))

	l, err := NewLoader(classifier.Options{Backend: "onnx", ModelPath: "m.onnx", MetadataPath: "m.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "onnx", l.Name())
}
