package core

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Rorical/RoriLens/internal/classifier"
	"github.com/Rorical/RoriLens/internal/eventbus"
	"github.com/Rorical/RoriLens/internal/imagesource"
	"github.com/Rorical/RoriLens/internal/models"
)

var catDog = []models.Prediction{
	{ClassName: "cat", Probability: 0.93},
	{ClassName: "dog", Probability: 0.04},
}

type fakeModel struct {
	mu     sync.Mutex
	preds  []models.Prediction
	err    error
	block  chan struct{}
	calls  atomic.Int32
	closed atomic.Bool
}

func (m *fakeModel) Classify(ctx context.Context, img image.Image) ([]models.Prediction, error) {
	m.calls.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.preds, m.err
}

func (m *fakeModel) Close() error {
	m.closed.Store(true)
	return nil
}

type fakeLoader struct {
	model *fakeModel
	errs  []error // consumed one per Load; nil entries succeed
	gate  chan struct{}
	loads atomic.Int32
}

func (l *fakeLoader) Name() string { return "fake" }

func (l *fakeLoader) Load(ctx context.Context) (classifier.Model, error) {
	n := int(l.loads.Add(1)) - 1
	if l.gate != nil {
		select {
		case <-l.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if n < len(l.errs) && l.errs[n] != nil {
		return nil, classifier.NewModelLoadError("fake", l.errs[n])
	}
	return l.model, nil
}

type harness struct {
	t       *testing.T
	service *LensService
	bus     *eventbus.EventBus
	blobs   *imagesource.BlobStore
	dir     string
}

func newHarness(t *testing.T, mode models.InputMode, loader *fakeLoader) *harness {
	t.Helper()
	return startHarness(t, mode, loader, nil)
}

// newWatchedHarness runs in file mode with a real file watcher
func newWatchedHarness(t *testing.T, loader *fakeLoader) *harness {
	t.Helper()
	watcher, err := imagesource.NewFileWatcher()
	require.NoError(t, err)
	return startHarness(t, models.ModeFile, loader, watcher)
}

func startHarness(t *testing.T, mode models.InputMode, loader *fakeLoader, watcher *imagesource.FileWatcher) *harness {
	t.Helper()

	eb := eventbus.NewEventBus()
	blobs := imagesource.NewBlobStore()
	svc := NewLensService(ServiceOptions{
		Mode:      mode,
		NewLoader: func() (classifier.Loader, error) { return loader, nil },
		Selector:  imagesource.NewSelector(blobs),
		Resolver:  imagesource.NewResolver(blobs, 2*time.Second),
		Watcher:   watcher,
	}, eb)

	h := &harness{t: t, service: svc, bus: eb, blobs: blobs, dir: t.TempDir()}
	t.Cleanup(func() {
		svc.Stop()
		eb.Close()
	})
	svc.Start()
	return h
}

func (h *harness) send(event eventbus.UIEvent) {
	h.t.Helper()
	require.NoError(h.t, h.bus.SendToCore(event))
}

// waitFor consumes state updates until one satisfies cond
func (h *harness) waitFor(what string, cond func(models.SessionSnapshot) bool) models.SessionSnapshot {
	h.t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case event := <-h.bus.CoreToUI():
			if update, ok := event.(eventbus.StateUpdateEvent); ok && cond(update.Session) {
				return update.Session
			}
		case <-timeout:
			h.t.Fatalf("timed out waiting for %s; last state %+v", what, h.service.Snapshot())
		}
	}
}

func (h *harness) writeImage(name string, w, hgt int) string {
	h.t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, hgt))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})

	var buf bytes.Buffer
	require.NoError(h.t, png.Encode(&buf, img))
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

// selectImage selects path and waits for its preview to decode
func (h *harness) selectImage(path string) models.SessionSnapshot {
	h.t.Helper()
	h.send(eventbus.SelectSourceEvent{Input: path})
	return h.waitFor("preview of "+path, func(s models.SessionSnapshot) bool {
		return s.SourceLabel == filepath.Base(path) && s.Preview != nil
	})
}

func ready(s models.SessionSnapshot) bool { return s.Phase == models.PhaseReady && s.ModelReady }

func hasPredictions(s models.SessionSnapshot) bool { return len(s.Predictions) > 0 }

var errNetwork = errors.New("network unreachable")
