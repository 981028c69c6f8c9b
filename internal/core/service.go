package core

import (
	"context"
	"log"
	"sync"

	"github.com/Rorical/RoriLens/internal/classifier"
	"github.com/Rorical/RoriLens/internal/eventbus"
	"github.com/Rorical/RoriLens/internal/imagesource"
	"github.com/Rorical/RoriLens/internal/models"
)

// LoaderFunc builds a fresh loader. It runs at the start of every session
// lifetime, so a restart picks up configuration changes.
type LoaderFunc func() (classifier.Loader, error)

// LensService owns the session state and runs all model and image I/O off
// the UI goroutine. Completed work is posted back onto the event loop,
// which is the only place state changes.
type LensService struct {
	newLoader   LoaderFunc
	loaderName  string
	selector    *imagesource.Selector
	resolver    *imagesource.Resolver
	watcher     *imagesource.FileWatcher // nil when file watching is unavailable
	state       *SessionState
	eventBus    *eventbus.EventBus
	ctx         context.Context
	cancel      context.CancelFunc
	completions chan func()
	loopDone    chan struct{}
	started     bool
	stopOnce    sync.Once

	loadCancel     context.CancelFunc
	previewCancel  context.CancelFunc
	classifyCancel context.CancelFunc
}

// ServiceOptions wires the collaborators of a LensService
type ServiceOptions struct {
	Mode      models.InputMode
	NewLoader LoaderFunc
	Selector  *imagesource.Selector
	Resolver  *imagesource.Resolver
	Watcher   *imagesource.FileWatcher
}

func NewLensService(opts ServiceOptions, eb *eventbus.EventBus) *LensService {
	ctx, cancel := context.WithCancel(context.Background())

	return &LensService{
		newLoader:   opts.NewLoader,
		selector:    opts.Selector,
		resolver:    opts.Resolver,
		watcher:     opts.Watcher,
		state:       NewSessionState(opts.Mode),
		eventBus:    eb,
		ctx:         ctx,
		cancel:      cancel,
		completions: make(chan func(), 16),
		loopDone:    make(chan struct{}),
	}
}

// Start kicks off the model load and runs the core logic in a goroutine
func (cs *LensService) Start() {
	cs.started = true
	cs.startLoad()
	go cs.eventLoop()
}

// Stop cancels in-flight work, waits for the loop and releases the model
func (cs *LensService) Stop() {
	cs.stopOnce.Do(func() {
		cs.cancel()
		if cs.started {
			<-cs.loopDone
		}
		cs.drainCompletions()

		model, source := cs.state.Reset()
		cs.release(model, source)
		if cs.watcher != nil {
			if err := cs.watcher.Close(); err != nil {
				log.Printf("Failed to close file watcher: %v", err)
			}
		}
	})
}

// drainCompletions runs work that was posted but never picked up by the
// loop, so loaded models end up in state and get released
func (cs *LensService) drainCompletions() {
	for {
		select {
		case done := <-cs.completions:
			done()
		default:
			return
		}
	}
}

// Snapshot returns the current session state
func (cs *LensService) Snapshot() models.SessionSnapshot {
	return cs.state.Snapshot()
}

func (cs *LensService) eventLoop() {
	defer close(cs.loopDone)

	var fileChanges <-chan string
	if cs.watcher != nil {
		fileChanges = cs.watcher.Changes()
	}

	for {
		select {
		case <-cs.ctx.Done():
			return
		case event, ok := <-cs.eventBus.UIToCore():
			if !ok {
				return
			}
			cs.handleUIEvent(event)
		case done := <-cs.completions:
			done()
		case path := <-fileChanges:
			cs.handleFileChanged(path)
		}
	}
}

func (cs *LensService) handleUIEvent(event eventbus.UIEvent) {
	switch e := event.(type) {
	case eventbus.SelectSourceEvent:
		cs.handleSelect(e.Input)
	case eventbus.ClassifyEvent:
		cs.handleClassify()
	case eventbus.DismissNoticeEvent:
		cs.handleDismiss()
	}
}

// post hands a completion back to the event loop. It reports false once
// the service is stopping; the completion is then never run.
func (cs *LensService) post(done func()) bool {
	if cs.ctx.Err() != nil {
		return false
	}
	select {
	case cs.completions <- done:
		return true
	case <-cs.ctx.Done():
		return false
	}
}

func (cs *LensService) startLoad() {
	loader, err := cs.newLoader()
	name := cs.loaderName
	if loader != nil {
		name = loader.Name()
		cs.loaderName = name
	}

	lifetime := cs.state.BeginLoad(name)
	cs.pushStateToUI()

	if err != nil {
		log.Printf("Classifier backend unavailable: %v", err)
		if !classifier.IsKind(err, classifier.KindModelLoad) {
			err = classifier.NewModelLoadError(name, err)
		}
		cs.state.FailLoad(lifetime, err)
		cs.pushStateToUI()
		return
	}

	ctx, cancel := context.WithCancel(cs.ctx)
	cs.loadCancel = cancel

	go func() {
		model, err := loader.Load(ctx)
		posted := cs.post(func() {
			if err != nil {
				log.Printf("Model load failed: %v", err)
				if cs.state.FailLoad(lifetime, err) {
					cs.pushStateToUI()
				}
				return
			}
			if !cs.state.FinishLoad(lifetime, model) {
				model.Close()
				return
			}
			log.Printf("Model loaded with %s backend", name)
			cs.pushStateToUI()
		})
		if !posted && model != nil {
			model.Close()
		}
	}()
}

func (cs *LensService) handleSelect(input string) {
	var (
		src    *imagesource.Source
		selErr error
	)

	switch cs.state.Mode() {
	case models.ModeFile:
		s, ok, err := cs.selector.FromFile(input)
		if err != nil {
			selErr = err
		} else if ok {
			src = &s
		}
	default:
		if s, ok := cs.selector.FromURL(input); ok {
			src = &s
		}
	}

	cs.applySource(src, selErr)
}

func (cs *LensService) handleFileChanged(path string) {
	current := cs.state.Source()
	if current == nil || current.Path != path {
		return
	}

	src, ok, err := cs.selector.Load(path)
	if !ok {
		cs.applySource(nil, err)
		return
	}
	cs.applySource(&src, nil)
}

// applySource is the single path for every source change
func (cs *LensService) applySource(src *imagesource.Source, selErr error) {
	gen, prev, ok := cs.state.SetSource(src)
	if !ok {
		// not Ready: input is blocked
		if src != nil {
			cs.selector.Release(*src)
		}
		return
	}

	cancelIfSet(&cs.classifyCancel)
	cancelIfSet(&cs.previewCancel)
	if prev != nil {
		cs.selector.Release(*prev)
	}
	if selErr != nil {
		log.Printf("Image selection failed: %v", selErr)
		cs.state.SetSelectError(selErr)
	}
	cs.watch(src)
	cs.pushStateToUI()

	if src != nil {
		cs.startPreview(gen, *src)
	}
}

func (cs *LensService) watch(src *imagesource.Source) {
	if cs.watcher == nil {
		return
	}
	path := ""
	if src != nil {
		path = src.Path
	}
	if err := cs.watcher.Watch(path); err != nil {
		log.Printf("Failed to watch %s: %v", path, err)
	}
}

func (cs *LensService) startPreview(gen uint64, src imagesource.Source) {
	ctx, cancel := context.WithCancel(cs.ctx)
	cs.previewCancel = cancel

	go func() {
		defer cancel()
		img, _, err := cs.resolver.Resolve(ctx, src)
		cs.post(func() {
			if err != nil {
				log.Printf("Preview unavailable for %s: %v", src.Label, err)
			}
			if cs.state.SetPreview(gen, img, err) {
				cs.pushStateToUI()
			}
		})
	}()
}

func (cs *LensService) handleClassify() {
	req, ok := cs.state.BeginClassify()
	if !ok {
		cs.pushStateToUI()
		return
	}
	cs.pushStateToUI()

	ctx, cancel := context.WithCancel(cs.ctx)
	cs.classifyCancel = cancel
	backend := cs.loaderName

	go func() {
		defer cancel()
		preds, err := req.Model.Classify(ctx, req.Image)
		cs.post(func() {
			if err != nil {
				if !classifier.IsKind(err, classifier.KindClassification) && !classifier.IsKind(err, classifier.KindInvalidImageSource) {
					err = classifier.NewClassificationError(backend, err)
				}
				if cs.state.FailClassify(req.Generation, err) {
					log.Printf("Classification failed: %v", err)
					cs.pushStateToUI()
				}
				return
			}
			if cs.state.FinishClassify(req.Generation, preds) {
				cs.pushStateToUI()
			}
		})
	}()
}

func (cs *LensService) handleDismiss() {
	if !cs.state.DismissNotice() {
		cs.pushStateToUI()
		return
	}
	cs.restart()
}

// restart throws the whole session away and loads again, the equivalent of
// reloading the page
func (cs *LensService) restart() {
	log.Printf("Restarting session")
	cancelIfSet(&cs.loadCancel)
	cancelIfSet(&cs.previewCancel)
	cancelIfSet(&cs.classifyCancel)

	model, source := cs.state.Reset()
	cs.release(model, source)
	cs.watch(nil)
	cs.startLoad()
}

func (cs *LensService) release(model classifier.Model, source *imagesource.Source) {
	if model != nil {
		if err := model.Close(); err != nil {
			log.Printf("Failed to close model: %v", err)
		}
	}
	if source != nil {
		cs.selector.Release(*source)
	}
}

func (cs *LensService) pushStateToUI() {
	if err := cs.eventBus.SendToUI(eventbus.StateUpdateEvent{
		Session: cs.state.Snapshot(),
	}); err != nil {
		log.Printf("Error sending state to UI: %v", err)
	}
}

func cancelIfSet(cancel *context.CancelFunc) {
	if *cancel != nil {
		(*cancel)()
		*cancel = nil
	}
}
