package models

import "image"

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

type InputMode string

const (
	ModeURL  InputMode = "url"
	ModeFile InputMode = "file"
)

// ParseInputMode accepts "url" or "file"; anything else is rejected
func ParseInputMode(s string) (InputMode, bool) {
	switch InputMode(s) {
	case ModeURL, ModeFile:
		return InputMode(s), true
	}
	return "", false
}

// SessionSnapshot is a read-only copy of the core session pushed to the UI
type SessionSnapshot struct {
	Phase          Phase
	Mode           InputMode
	Backend        string
	ModelReady     bool
	ImageSource    string       // URL or blob reference, empty when absent
	SourceLabel    string       // human-friendly name (file name or URL)
	Generation     uint64       // bumped on every image source change
	Preview        image.Image  // decoded image, nil until resolved
	PreviewError   error        // set when the source could not be fetched or decoded
	Predictions    []Prediction // replaced wholesale on each classification
	Classifying    bool
	ModelLoadError error
	ClassifyError  error
	SelectError    error // set when the last selection could not be read
}

// HasImage reports whether an image source is currently selected
func (s SessionSnapshot) HasImage() bool {
	return s.ImageSource != ""
}

// CanClassify reports whether the classify action may be offered
func (s SessionSnapshot) CanClassify() bool {
	return s.Phase == PhaseReady && s.ModelReady && s.HasImage() && !s.Classifying
}
