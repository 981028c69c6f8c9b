// Package openai classifies images with an OpenAI-compatible vision model.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sashabaranov/go-openai"

	"github.com/Rorical/RoriLens/internal/classifier"
	"github.com/Rorical/RoriLens/internal/models"
)

const (
	backendName  = "openai"
	DefaultModel = "gpt-4o-mini"

	// uploads are downscaled to fit this box before encoding
	maxUploadSide = 512
)

const systemPrompt = `You are an image classifier. Reply with JSON only, in the form
{"predictions":[{"className":"<label>","probability":<number between 0 and 1>}]}
ordered from most to least likely. Use short ImageNet-style labels.`

// Loader creates a chat client and verifies the configured model exists
type Loader struct {
	opts   classifier.Options
	client *openai.Client
}

// NewLoader builds a loader from opts; the API key is required
func NewLoader(opts classifier.Options) (classifier.Loader, error) {
	if opts.APIKey == "" {
		return nil, classifier.NewConfigurationError(backendName, "api_key", "API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}

	return &Loader{
		opts:   opts,
		client: openai.NewClientWithConfig(clientConfig),
	}, nil
}

// Register adds the openai backend to a registry
func Register(r *classifier.Registry) {
	r.Register(backendName, NewLoader)
}

func (l *Loader) Name() string {
	return backendName
}

func (l *Loader) Load(ctx context.Context) (classifier.Model, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	if _, err := l.client.GetModel(ctx, l.opts.Model); err != nil {
		return nil, classifier.NewModelLoadError(backendName, fmt.Errorf("model %s: %w", l.opts.Model, err))
	}

	return &Model{
		loader: l,
		model:  l.opts.Model,
		topK:   l.opts.EffectiveTopK(),
	}, nil
}

func (l *Loader) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.opts.Timeout > 0 {
		return context.WithTimeout(ctx, l.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// Model is a verified remote vision model
type Model struct {
	loader *Loader
	model  string
	topK   int
}

type classifyResponse struct {
	Predictions []models.Prediction `json:"predictions"`
}

func (m *Model) Classify(ctx context.Context, img image.Image) ([]models.Prediction, error) {
	if img == nil {
		return nil, classifier.NewClassificationError(backendName, fmt.Errorf("no image"))
	}

	dataURL, err := encodeDataURL(img)
	if err != nil {
		return nil, classifier.NewClassificationError(backendName, err)
	}

	ctx, cancel := m.loader.withTimeout(ctx)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: m.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: fmt.Sprintf("Return the top %d classes for this image.", m.topK),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := m.loader.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, classifier.NewClassificationError(backendName, fmt.Errorf("OpenAI API error: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, classifier.NewClassificationError(backendName, fmt.Errorf("empty response"))
	}

	preds, err := parsePredictions(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, classifier.NewClassificationError(backendName, err)
	}
	return classifier.Rank(preds, m.topK), nil
}

func (m *Model) Close() error {
	return nil
}

func parsePredictions(content string) ([]models.Prediction, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var parsed classifyResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("invalid predictions JSON: %w", err)
	}
	if len(parsed.Predictions) == 0 {
		return nil, fmt.Errorf("no predictions in response")
	}
	return parsed.Predictions, nil
}

func encodeDataURL(img image.Image) (string, error) {
	fitted := imaging.Fit(img, maxUploadSide, maxUploadSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fitted, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
