// Package classifier defines the inference backend contract used by the
// core session: a Loader acquires an opaque Model once, and the Model turns
// a decoded image into a ranked list of predictions.
package classifier

import (
	"context"
	"image"
	"time"

	"github.com/Rorical/RoriLens/internal/models"
)

// DefaultTopK matches the number of classes the reference MobileNet demo shows
const DefaultTopK = 3

// Loader acquires a model handle. Load is called once per session lifetime.
type Loader interface {
	Name() string
	Load(ctx context.Context) (Model, error)
}

// Model is an opaque handle to a loaded classifier
type Model interface {
	// Classify returns predictions sorted by probability, highest first
	Classify(ctx context.Context, img image.Image) ([]models.Prediction, error)
	Close() error
}

// Options carries everything a backend factory may need. Backends ignore
// fields that do not apply to them.
type Options struct {
	Backend      string
	ModelPath    string        // onnx: model file
	MetadataPath string        // onnx: YAML/JSON metadata
	LabelsPath   string        // onnx: one label per line, overrides metadata classes
	LibraryPath  string        // onnx: onnxruntime shared library
	APIKey       string        // openai
	BaseURL      string        // openai
	Model        string        // openai: vision model name
	TopK         int           // number of predictions to keep
	Timeout      time.Duration // per-request timeout
}

// EffectiveTopK returns TopK or the default when unset
func (o Options) EffectiveTopK() int {
	if o.TopK <= 0 {
		return DefaultTopK
	}
	return o.TopK
}
