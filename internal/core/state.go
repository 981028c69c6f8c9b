package core

import (
	"fmt"
	"image"
	"sync"

	"github.com/Rorical/RoriLens/internal/classifier"
	"github.com/Rorical/RoriLens/internal/imagesource"
	"github.com/Rorical/RoriLens/internal/models"
)

// SessionState is the single record behind the view. Every transition is a
// method here; the service event loop is the only caller that mutates it.
//
// Results of asynchronous work carry the lifetime or generation they were
// started under and are dropped when that token is stale.
type SessionState struct {
	mu           sync.RWMutex
	phase        models.Phase
	mode         models.InputMode
	backend      string
	lifetime     uint64 // bumped on every (re)start
	generation   uint64 // bumped on every image source change
	model        classifier.Model
	source       *imagesource.Source
	preview      image.Image
	previewErr   error
	predictions  []models.Prediction
	classifying  bool
	modelLoadErr error
	classifyErr  error
	selectErr    error
}

// ClassifyRequest is what an in-flight classification needs
type ClassifyRequest struct {
	Generation uint64
	Model      classifier.Model
	Image      image.Image
}

func NewSessionState(mode models.InputMode) *SessionState {
	return &SessionState{
		phase: models.PhaseLoading,
		mode:  mode,
	}
}

// Reset clears everything but the input mode and the tokens, handing back
// the model and source so the caller can release them.
func (s *SessionState) Reset() (classifier.Model, *imagesource.Source) {
	s.mu.Lock()
	defer s.mu.Unlock()

	model, source := s.model, s.source
	s.phase = models.PhaseLoading
	s.model = nil
	s.source = nil
	s.preview = nil
	s.previewErr = nil
	s.predictions = nil
	s.classifying = false
	s.modelLoadErr = nil
	s.classifyErr = nil
	s.selectErr = nil
	s.generation++
	return model, source
}

// BeginLoad enters Loading for a new lifetime and returns its token
func (s *SessionState) BeginLoad(backend string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = models.PhaseLoading
	s.backend = backend
	s.lifetime++
	return s.lifetime
}

// FinishLoad stores the model. It reports false when the result belongs to
// an older lifetime or a model is already present; the caller then owns
// the handle.
func (s *SessionState) FinishLoad(lifetime uint64, model classifier.Model) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lifetime != s.lifetime || s.phase != models.PhaseLoading || s.model != nil {
		return false
	}
	s.model = model
	s.phase = models.PhaseReady
	return true
}

func (s *SessionState) FailLoad(lifetime uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lifetime != s.lifetime || s.phase != models.PhaseLoading {
		return false
	}
	s.phase = models.PhaseError
	s.modelLoadErr = err
	return true
}

// SetSource replaces the image source (nil clears it). Predictions,
// preview and notices are cleared and any running classification becomes
// stale. Only allowed while Ready.
func (s *SessionState) SetSource(src *imagesource.Source) (uint64, *imagesource.Source, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseReady {
		return 0, nil, false
	}

	prev := s.source
	s.source = src
	s.preview = nil
	s.previewErr = nil
	s.predictions = nil
	s.classifying = false
	s.classifyErr = nil
	s.selectErr = nil
	s.generation++
	return s.generation, prev, true
}

// SetSelectError records why the last selection produced no source
func (s *SessionState) SetSelectError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectErr = err
}

// SetPreview stores the decoded image (or the failure) for generation gen
func (s *SessionState) SetPreview(gen uint64, img image.Image, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.source == nil {
		return false
	}
	s.preview = img
	s.previewErr = err
	return true
}

// BeginClassify marks a classification in flight. It refuses unless Ready
// with a model and a source; a source whose preview never decoded fails
// right away with an invalid-image-source notice.
func (s *SessionState) BeginClassify() (ClassifyRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseReady || s.model == nil || s.source == nil || s.classifying {
		return ClassifyRequest{}, false
	}

	if s.preview == nil {
		cause := s.previewErr
		if cause == nil {
			cause = fmt.Errorf("image is still loading")
		}
		if classifier.IsKind(cause, classifier.KindInvalidImageSource) {
			s.classifyErr = cause
		} else {
			s.classifyErr = classifier.NewInvalidImageSourceError(s.source.Label, cause)
		}
		return ClassifyRequest{}, false
	}

	s.classifying = true
	s.classifyErr = nil
	return ClassifyRequest{Generation: s.generation, Model: s.model, Image: s.preview}, true
}

// FinishClassify replaces the predictions wholesale
func (s *SessionState) FinishClassify(gen uint64, preds []models.Prediction) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || !s.classifying {
		return false
	}
	s.predictions = append([]models.Prediction(nil), preds...)
	s.classifying = false
	s.classifyErr = nil
	return true
}

// FailClassify keeps the image and previous predictions and raises a notice
func (s *SessionState) FailClassify(gen uint64, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || !s.classifying {
		return false
	}
	s.classifying = false
	s.classifyErr = err
	return true
}

// DismissNotice clears scoped notices. It returns true when the visible
// notice was a model load failure, which calls for a full restart.
func (s *SessionState) DismissNotice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == models.PhaseError {
		return true
	}
	s.classifyErr = nil
	s.selectErr = nil
	return false
}

// Source returns a copy of the current source, or nil
func (s *SessionState) Source() *imagesource.Source {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.source == nil {
		return nil
	}
	src := *s.source
	return &src
}

func (s *SessionState) Mode() models.InputMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *SessionState) Model() classifier.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

func (s *SessionState) Snapshot() models.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.SessionSnapshot{
		Phase:          s.phase,
		Mode:           s.mode,
		Backend:        s.backend,
		ModelReady:     s.model != nil,
		Generation:     s.generation,
		Preview:        s.preview,
		PreviewError:   s.previewErr,
		Predictions:    append([]models.Prediction(nil), s.predictions...),
		Classifying:    s.classifying,
		ModelLoadError: s.modelLoadErr,
		ClassifyError:  s.classifyErr,
		SelectError:    s.selectErr,
	}
	if s.source != nil {
		snap.ImageSource = s.source.Ref
		snap.SourceLabel = s.source.Label
	}
	return snap
}
