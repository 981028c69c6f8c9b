package app

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriLens/internal/classifier"
	"github.com/Rorical/RoriLens/internal/classifier/providers/onnx"
	"github.com/Rorical/RoriLens/internal/classifier/providers/openai"
	"github.com/Rorical/RoriLens/internal/config"
	"github.com/Rorical/RoriLens/internal/core"
	"github.com/Rorical/RoriLens/internal/dispatcher"
	"github.com/Rorical/RoriLens/internal/eventbus"
	"github.com/Rorical/RoriLens/internal/imagesource"
	"github.com/Rorical/RoriLens/internal/models"
	"github.com/Rorical/RoriLens/internal/update"
)

const defaultFetchTimeout = 30 * time.Second

// Options are command-line overrides applied on top of the active profile
type Options struct {
	Profile string
	Mode    string
	TopK    int
}

// Application manages the complete application lifecycle
type Application struct {
	eventBus   *eventbus.EventBus
	dispatcher *dispatcher.EventDispatcher
	service    *core.LensService
	model      *AppModel
	logFile    io.Closer
}

type AppModel struct {
	appModel   models.AppModel
	dispatcher *dispatcher.EventDispatcher
}

// NewRegistry returns a registry with every built-in backend
func NewRegistry() *classifier.Registry {
	registry := classifier.NewRegistry()
	onnx.Register(registry)
	openai.Register(registry)
	return registry
}

// LoadSettings reads the active profile and applies opts on top of it
func LoadSettings(opts Options) (classifier.Options, models.InputMode, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return classifier.Options{}, "", err
	}
	if opts.Profile != "" {
		if err := cfg.UseProfile(opts.Profile); err != nil {
			return classifier.Options{}, "", err
		}
	}

	mode := cfg.InputMode()
	if opts.Mode != "" {
		parsed, ok := models.ParseInputMode(opts.Mode)
		if !ok {
			return classifier.Options{}, "", fmt.Errorf("invalid mode '%s': use 'url' or 'file'", opts.Mode)
		}
		mode = parsed
	}

	classifierOpts := cfg.ClassifierOptions()
	if opts.TopK > 0 {
		classifierOpts.TopK = opts.TopK
	}
	return classifierOpts, mode, nil
}

func NewApplication(opts Options) (*Application, error) {
	if opts.Mode != "" {
		if _, ok := models.ParseInputMode(opts.Mode); !ok {
			return nil, fmt.Errorf("invalid mode '%s': use 'url' or 'file'", opts.Mode)
		}
	}

	logFile, err := setupLogging()
	if err != nil {
		return nil, err
	}

	// A broken config still starts the UI; the loader reports it
	classifierOpts, mode, err := LoadSettings(opts)
	if err != nil {
		log.Printf("Failed to load settings: %v", err)
		mode, _ = models.ParseInputMode(opts.Mode)
		if mode == "" {
			mode = models.ModeURL
		}
	}

	fetchTimeout := classifierOpts.Timeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}

	// Create event bus
	eb := eventbus.NewEventBus()
	disp := dispatcher.NewEventDispatcher(eb)

	blobs := imagesource.NewBlobStore()
	registry := NewRegistry()

	var watcher *imagesource.FileWatcher
	if mode == models.ModeFile {
		if watcher, err = imagesource.NewFileWatcher(); err != nil {
			log.Printf("File watching disabled: %v", err)
		}
	}

	service := core.NewLensService(core.ServiceOptions{
		Mode:      mode,
		NewLoader: newLoaderFunc(registry, opts),
		Selector:  imagesource.NewSelector(blobs),
		Resolver:  imagesource.NewResolver(blobs, fetchTimeout),
		Watcher:   watcher,
	}, eb)

	snapshot := service.Snapshot()
	model := &AppModel{
		appModel: models.AppModel{
			Session: snapshot,
			Status:  update.StatusFor(snapshot),
		},
		dispatcher: disp,
	}

	return &Application{
		eventBus:   eb,
		dispatcher: disp,
		service:    service,
		model:      model,
		logFile:    logFile,
	}, nil
}

// newLoaderFunc re-reads the configuration on every session start, so a
// restart after a failed load picks up edits to the profile
func newLoaderFunc(registry *classifier.Registry, opts Options) core.LoaderFunc {
	return func() (classifier.Loader, error) {
		classifierOpts, _, err := LoadSettings(opts)
		if err != nil {
			return nil, classifier.NewConfigurationError("", "config", err.Error())
		}
		return registry.NewLoader(classifierOpts)
	}
}

func (app *Application) Start() error {
	// Start background services
	app.service.Start()

	// Run UI
	p := tea.NewProgram(app.model, tea.WithAltScreen())
	_, err := p.Run()

	return err
}

func (app *Application) Stop() {
	app.service.Stop()
	app.dispatcher.Stop()
	app.eventBus.Close()
	if app.logFile != nil {
		app.logFile.Close()
	}
}

// setupLogging keeps log output off the terminal while the UI owns it.
// With RORILENS_DEBUG set, logs go to that file (or rorilens.log).
func setupLogging() (io.Closer, error) {
	path := os.Getenv("RORILENS_DEBUG")
	if path == "" {
		log.SetOutput(io.Discard)
		return nil, nil
	}
	if path == "1" || path == "true" {
		path = "rorilens.log"
	}

	f, err := tea.LogToFile(path, "rorilens")
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
