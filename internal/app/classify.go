package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rorical/RoriLens/internal/classifier"
	"github.com/Rorical/RoriLens/internal/imagesource"
	"github.com/Rorical/RoriLens/internal/models"
)

// ClassifyOnce loads the configured model, classifies a single source and
// releases everything again. Without an explicit mode, input that looks like
// a URL is fetched and anything else is treated as a file path.
func ClassifyOnce(ctx context.Context, opts Options, input string) ([]models.Prediction, error) {
	classifierOpts, _, err := LoadSettings(opts)
	if err != nil {
		return nil, err
	}

	mode := DetectMode(input)
	if opts.Mode != "" {
		mode, _ = models.ParseInputMode(opts.Mode)
	}

	loader, err := NewRegistry().NewLoader(classifierOpts)
	if err != nil {
		return nil, err
	}

	blobs := imagesource.NewBlobStore()
	selector := imagesource.NewSelector(blobs)
	resolver := imagesource.NewResolver(blobs, classifierOpts.Timeout)

	var (
		src imagesource.Source
		ok  bool
	)
	if mode == models.ModeFile {
		src, ok, err = selector.FromFile(input)
		if err != nil {
			return nil, err
		}
	} else {
		src, ok = selector.FromURL(input)
	}
	if !ok {
		return nil, classifier.NewInvalidImageSourceError(input, fmt.Errorf("no image selected"))
	}
	defer selector.Release(src)

	// Decode before paying for the model load
	img, _, err := resolver.Resolve(ctx, src)
	if err != nil {
		return nil, err
	}

	model, err := loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	defer model.Close()

	preds, err := model.Classify(ctx, img)
	if err != nil {
		if !classifier.IsKind(err, classifier.KindClassification) {
			err = classifier.NewClassificationError(loader.Name(), err)
		}
		return nil, err
	}
	return classifier.Rank(preds, classifierOpts.EffectiveTopK()), nil
}

// DetectMode guesses the input mode for a one-shot source
func DetectMode(input string) models.InputMode {
	lower := strings.ToLower(strings.TrimSpace(input))
	for _, prefix := range []string{"http://", "https://", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return models.ModeURL
		}
	}
	return models.ModeFile
}
