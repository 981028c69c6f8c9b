package onnx

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/nfnt/resize"
	"gopkg.in/yaml.v3"

	"github.com/Rorical/RoriLens/internal/classifier"
)

const (
	LayoutNCHW = "NCHW"
	LayoutNHWC = "NHWC"
)

// DefaultInterpolation is used when the metadata names none
const DefaultInterpolation = "bilinear"

var interpolations = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"mitchell": resize.MitchellNetravali,
	"lanczos2": resize.Lanczos2,
	"lanczos":  resize.Lanczos3,
	"lanczos3": resize.Lanczos3,
}

// Metadata describes the model's tensors and labels. JSON metadata files
// are accepted too since JSON is valid YAML.
type Metadata struct {
	InputName     string    `yaml:"input_name" json:"input_name"`
	OutputName    string    `yaml:"output_name" json:"output_name"`
	InputShape    []int64   `yaml:"input_shape" json:"input_shape"`
	OutputShape   []int64   `yaml:"output_shape" json:"output_shape"`
	Classes       []string  `yaml:"classes" json:"classes"`
	Layout        string    `yaml:"layout" json:"layout"`
	Interpolation string    `yaml:"interpolation" json:"interpolation"`
	Mean          []float32 `yaml:"mean" json:"mean"`
	Std           []float32 `yaml:"std" json:"std"`
	Softmax       bool      `yaml:"softmax" json:"softmax"`
}

// LoadMetadata reads model metadata and optionally replaces its classes
// with the contents of a labels file.
func LoadMetadata(path, labelsPath string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var md Metadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if labelsPath != "" {
		labels, err := readLabels(labelsPath)
		if err != nil {
			return nil, err
		}
		md.Classes = labels
	}

	md.applyDefaults()
	if err := md.Validate(); err != nil {
		return nil, err
	}
	return &md, nil
}

func (md *Metadata) applyDefaults() {
	if md.InputName == "" {
		md.InputName = "input"
	}
	if md.OutputName == "" {
		md.OutputName = "output"
	}
	md.Layout = strings.ToUpper(md.Layout)
	if md.Layout == "" {
		md.Layout = LayoutNCHW
	}
	if len(md.Mean) == 0 {
		md.Mean = []float32{0, 0, 0}
	}
	if len(md.Std) == 0 {
		md.Std = []float32{1, 1, 1}
	}
	if len(md.OutputShape) == 0 && len(md.Classes) > 0 {
		md.OutputShape = []int64{1, int64(len(md.Classes))}
	}
	md.Interpolation = strings.ToLower(md.Interpolation)
	if md.Interpolation == "" {
		md.Interpolation = DefaultInterpolation
	}
}

// Validate checks the metadata is usable for a single-image classifier
func (md *Metadata) Validate() error {
	if len(md.InputShape) != 4 {
		return classifier.NewConfigurationError("onnx", "input_shape", fmt.Sprintf("expected 4 dimensions, got %d", len(md.InputShape)))
	}
	if md.Layout != LayoutNCHW && md.Layout != LayoutNHWC {
		return classifier.NewConfigurationError("onnx", "layout", "must be NCHW or NHWC")
	}
	if md.channelDim() != 3 {
		return classifier.NewConfigurationError("onnx", "input_shape", "expected 3 color channels")
	}
	if _, ok := interpolations[md.Interpolation]; !ok {
		return classifier.NewConfigurationError("onnx", "interpolation", fmt.Sprintf("unknown interpolation %q", md.Interpolation))
	}
	if len(md.Classes) == 0 {
		return classifier.NewConfigurationError("onnx", "classes", "no class labels")
	}
	if len(md.Mean) != 3 || len(md.Std) != 3 {
		return classifier.NewConfigurationError("onnx", "mean/std", "expected 3 values each")
	}
	for _, s := range md.Std {
		if s == 0 {
			return classifier.NewConfigurationError("onnx", "std", "must be non-zero")
		}
	}
	return nil
}

// InputSize returns the model's expected width and height
func (md *Metadata) InputSize() (width, height int) {
	if md.Layout == LayoutNHWC {
		return int(md.InputShape[2]), int(md.InputShape[1])
	}
	return int(md.InputShape[3]), int(md.InputShape[2])
}

// interpolationFunc returns the resize filter, bilinear when unset
func (md *Metadata) interpolationFunc() resize.InterpolationFunction {
	if f, ok := interpolations[md.Interpolation]; ok {
		return f
	}
	return resize.Bilinear
}

func (md *Metadata) channelDim() int64 {
	if md.Layout == LayoutNHWC {
		return md.InputShape[3]
	}
	return md.InputShape[1]
}

func readLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}

	var labels []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan labels: %w", err)
	}
	return labels, nil
}
