// Package onnx runs a local image-classification model through onnxruntime.
package onnx

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/Rorical/RoriLens/internal/classifier"
	"github.com/Rorical/RoriLens/internal/models"
)

const backendName = "onnx"

// Loader loads an ONNX model described by a metadata file
type Loader struct {
	opts classifier.Options
}

// NewLoader validates opts and returns a loader; nothing is read until Load
func NewLoader(opts classifier.Options) (classifier.Loader, error) {
	if opts.ModelPath == "" {
		return nil, classifier.NewConfigurationError(backendName, "model_path", "model path is required")
	}
	if opts.MetadataPath == "" {
		return nil, classifier.NewConfigurationError(backendName, "metadata_path", "metadata path is required")
	}
	return &Loader{opts: opts}, nil
}

// Register adds the onnx backend to a registry
func Register(r *classifier.Registry) {
	r.Register(backendName, NewLoader)
}

func (l *Loader) Name() string {
	return backendName
}

func (l *Loader) Load(ctx context.Context) (classifier.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, classifier.NewModelLoadError(backendName, err)
	}

	md, err := LoadMetadata(l.opts.MetadataPath, l.opts.LabelsPath)
	if err != nil {
		return nil, classifier.NewModelLoadError(backendName, err)
	}
	if _, err := os.Stat(l.opts.ModelPath); err != nil {
		return nil, classifier.NewModelLoadError(backendName, fmt.Errorf("model file: %w", err))
	}

	ownsEnv := false
	if !ort.IsInitialized() {
		if l.opts.LibraryPath != "" {
			ort.SetSharedLibraryPath(l.opts.LibraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, classifier.NewModelLoadError(backendName, fmt.Errorf("failed to initialize ONNX environment: %w", err))
		}
		ownsEnv = true
	}

	m, err := newModel(l.opts, md, ownsEnv)
	if err != nil {
		if ownsEnv {
			ort.DestroyEnvironment()
		}
		return nil, classifier.NewModelLoadError(backendName, err)
	}

	if err := ctx.Err(); err != nil {
		m.Close()
		return nil, classifier.NewModelLoadError(backendName, err)
	}
	return m, nil
}

// Model owns one onnxruntime session and its bound tensors. Classify calls
// are serialized because the tensors are reused between runs.
type Model struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	metadata     *Metadata
	topK         int
	ownsEnv      bool
}

func newModel(opts classifier.Options, md *Metadata, ownsEnv bool) (*Model, error) {
	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(md.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(md.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{md.InputName}, []string{md.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Model{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		metadata:     md,
		topK:         opts.EffectiveTopK(),
		ownsEnv:      ownsEnv,
	}, nil
}

func (m *Model) Classify(ctx context.Context, img image.Image) ([]models.Prediction, error) {
	if img == nil {
		return nil, classifier.NewClassificationError(backendName, fmt.Errorf("no image"))
	}

	input := Preprocess(img, m.metadata)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, classifier.NewClassificationError(backendName, fmt.Errorf("model is closed"))
	}
	if err := ctx.Err(); err != nil {
		return nil, classifier.NewClassificationError(backendName, err)
	}

	copy(m.inputTensor.GetData(), input)
	if err := m.session.Run(); err != nil {
		return nil, classifier.NewClassificationError(backendName, fmt.Errorf("inference failed: %w", err))
	}

	return scoresToPredictions(m.outputTensor.GetData(), m.metadata, m.topK), nil
}

func scoresToPredictions(output []float32, md *Metadata, topK int) []models.Prediction {
	var scores []float64
	if md.Softmax {
		scores = classifier.Softmax(output)
	} else {
		scores = make([]float64, len(output))
		for i, v := range output {
			scores[i] = float64(v)
		}
	}
	return classifier.TopK(scores, md.Classes, topK)
}

func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inputTensor != nil {
		m.inputTensor.Destroy()
		m.inputTensor = nil
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
		m.outputTensor = nil
	}
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.ownsEnv {
		m.ownsEnv = false
		return ort.DestroyEnvironment()
	}
	return nil
}
