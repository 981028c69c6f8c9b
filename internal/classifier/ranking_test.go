package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriLens/internal/models"
)

func TestRank(t *testing.T) {
	preds := []models.Prediction{
		{ClassName: "dog", Probability: 0.04},
		{ClassName: "cat", Probability: 0.93},
		{ClassName: "", Probability: 0.5},
		{ClassName: "fox", Probability: math.NaN()},
		{ClassName: "wolf", Probability: 1.7},
		{ClassName: "hen", Probability: -0.2},
	}

	ranked := Rank(preds, 0)
	require.Len(t, ranked, 4)
	assert.Equal(t, models.Prediction{ClassName: "wolf", Probability: 1}, ranked[0])
	assert.Equal(t, "cat", ranked[1].ClassName)
	assert.Equal(t, "dog", ranked[2].ClassName)
	assert.Equal(t, models.Prediction{ClassName: "hen", Probability: 0}, ranked[3])

	assert.Len(t, Rank(preds, 2), 2)
	// input is not modified
	assert.Equal(t, 1.7, preds[4].Probability)
}

func TestRank_StableOnTies(t *testing.T) {
	ranked := Rank([]models.Prediction{
		{ClassName: "a", Probability: 0.5},
		{ClassName: "b", Probability: 0.5},
		{ClassName: "c", Probability: 0.5},
	}, 3)
	assert.Equal(t, "a", ranked[0].ClassName)
	assert.Equal(t, "b", ranked[1].ClassName)
	assert.Equal(t, "c", ranked[2].ClassName)
}

func TestTopK_MoreScoresThanLabels(t *testing.T) {
	preds := TopK([]float64{0.1, 0.2, 0.7}, []string{"x", "y"}, 5)
	require.Len(t, preds, 2)
	assert.Equal(t, "y", preds[0].ClassName)
}

func TestSoftmax(t *testing.T) {
	out := Softmax([]float32{1000, 1000})
	assert.InDelta(t, 0.5, out[0], 1e-9)
	assert.InDelta(t, 0.5, out[1], 1e-9)
	assert.Empty(t, Softmax(nil))
}

type namedLoader struct{ name string }

func (l namedLoader) Name() string { return l.name }
func (l namedLoader) Load(ctx context.Context) (Model, error) { return nil, errors.New("unused") }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("b", func(opts Options) (Loader, error) { return namedLoader{"b"}, nil })
	r.Register("a", func(opts Options) (Loader, error) { return namedLoader{"a"}, nil })

	assert.Equal(t, []string{"a", "b"}, r.List())

	l, err := r.NewLoader(Options{Backend: "b"})
	require.NoError(t, err)
	assert.Equal(t, "b", l.Name())

	_, err = r.NewLoader(Options{Backend: "tflite"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConfiguration))
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("wrapped: %w", NewModelLoadError("onnx", cause))

	assert.True(t, IsKind(err, KindModelLoad))
	assert.False(t, IsKind(err, KindClassification))
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, &Error{Kind: KindModelLoad})
	assert.Contains(t, err.Error(), "backend=onnx")

	assert.False(t, IsKind(cause, KindModelLoad))
	assert.Equal(t, 3, Options{}.EffectiveTopK())
	assert.Equal(t, 5, Options{TopK: 5}.EffectiveTopK())
}
