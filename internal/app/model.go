package app

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriLens/internal/models"
	"github.com/Rorical/RoriLens/internal/update"
	"github.com/Rorical/RoriLens/ui/components"
	"github.com/Rorical/RoriLens/ui/styles"
)

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		update.TickCmd(),
		m.dispatcher.ListenForCoreEvents(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle core events and continue listening
	if coreEvent, ok := msg.(update.CoreEventMsg); ok {
		cmd := update.HandleCoreEvent(&m.appModel, coreEvent)
		return m, tea.Batch(cmd, m.dispatcher.ListenForCoreEvents())
	}

	// Handle other events through the event bus
	eventBus := m.dispatcher.GetEventBus()
	cmd := update.HandleUpdateWithEventBus(&m.appModel, msg, eventBus)

	return m, cmd
}

func (m *AppModel) View() string {
	session := m.appModel.Session
	width, height := m.appModel.Width, m.appModel.Height

	switch session.Phase {
	case models.PhaseLoading:
		return components.RenderLoading(session.Backend, m.appModel.LoadingDots, width, height)
	case models.PhaseError:
		return components.RenderLoadError(session.ModelLoadError, width, height)
	}

	var b strings.Builder

	b.WriteString(styles.TitleStyle().Render("RoriLens"))
	b.WriteString(styles.HintStyle().Render(session.Backend))
	b.WriteString("\n\n")

	if session.HasImage() {
		b.WriteString(styles.HintStyle().Render(session.SourceLabel) + "\n")
		switch {
		case session.Preview != nil:
			b.WriteString(m.preview() + "\n\n")
		case session.PreviewError != nil:
			b.WriteString(components.RenderPreviewUnavailable(session.SourceLabel) + "\n")
		}
	}

	b.WriteString(components.RenderNotice(session.SelectError, width))
	b.WriteString(components.RenderNotice(session.ClassifyError, width))
	if preds := components.RenderPredictions(session.Predictions); preds != "" {
		b.WriteString(preds + "\n")
	}

	b.WriteString(components.RenderInput(m.appModel.Input, session.Mode, true, width))
	b.WriteString("\n")
	b.WriteString(components.RenderHelp(session))
	b.WriteString("\n")
	b.WriteString(components.RenderStatus(m.appModel.Status, update.Busy(session), m.appModel.LoadingDots, width))

	return b.String()
}

// preview renders the thumbnail once per image and terminal size
func (m *AppModel) preview() string {
	session := m.appModel.Session
	cols, rows := components.PreviewSize(m.appModel.Width, m.appModel.Height)

	key := fmt.Sprintf("%d:%dx%d", session.Generation, cols, rows)
	if key != m.appModel.PreviewKey {
		m.appModel.Preview = components.RenderPreview(session.Preview, cols, rows)
		m.appModel.PreviewKey = key
	}
	return m.appModel.Preview
}
