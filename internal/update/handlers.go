package update

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriLens/internal/eventbus"
	"github.com/Rorical/RoriLens/internal/models"
)

// HandleKeyMsgWithEventBus handles keyboard input using event bus. While the
// model loads, everything but quit is ignored.
func HandleKeyMsgWithEventBus(appModel *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	if keyMsg.Type == tea.KeyCtrlC {
		return tea.Quit
	}

	switch appModel.Session.Phase {
	case models.PhaseLoading:
		return nil
	case models.PhaseError:
		// Only the full-screen notice is showing
		if keyMsg.Type == tea.KeyEsc || keyMsg.Type == tea.KeyEnter {
			send(appModel, eb, eventbus.DismissNoticeEvent{})
		}
		return nil
	}

	switch keyMsg.Type {
	case tea.KeyEnter:
		// The source is the text as typed
		if send(appModel, eb, eventbus.SelectSourceEvent{Input: appModel.Input}) {
			appModel.Status = "Loading image"
		}
	case tea.KeyTab:
		if appModel.Session.CanClassify() {
			if send(appModel, eb, eventbus.ClassifyEvent{}) {
				// The field empties; the committed source stays selected
				appModel.Input = ""
				appModel.Status = "Classifying"
			}
		}
	case tea.KeyEsc:
		if hasNotice(appModel.Session) {
			send(appModel, eb, eventbus.DismissNoticeEvent{})
		} else {
			appModel.Input = ""
		}
	case tea.KeyCtrlU:
		appModel.Input = ""
	case tea.KeyBackspace:
		if runes := []rune(appModel.Input); len(runes) > 0 {
			appModel.Input = string(runes[:len(runes)-1])
		}
	case tea.KeySpace:
		appModel.Input += " "
	case tea.KeyRunes:
		appModel.Input += string(keyMsg.Runes)
	}
	return nil
}

func send(appModel *models.AppModel, eb *eventbus.EventBus, event eventbus.UIEvent) bool {
	if err := eb.SendToCore(event); err != nil {
		appModel.Status = "Error sending event: " + err.Error()
		return false
	}
	return true
}

func hasNotice(session models.SessionSnapshot) bool {
	return session.ClassifyError != nil || session.SelectError != nil
}

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(appModel *models.AppModel, coreEventMsg CoreEventMsg) tea.Cmd {
	switch event := coreEventMsg.Event.(type) {
	case eventbus.StateUpdateEvent:
		// Core is the single source of truth for the session
		appModel.Session = event.Session
		appModel.Status = StatusFor(event.Session)
	}

	return nil
}

// StatusFor derives the status bar text from the session
func StatusFor(session models.SessionSnapshot) string {
	switch session.Phase {
	case models.PhaseLoading:
		return "Loading model"
	case models.PhaseError:
		return "Model failed to load"
	}

	switch {
	case session.Classifying:
		return "Classifying"
	case !session.HasImage():
		if session.Mode == models.ModeFile {
			return "Ready: choose an image file"
		}
		return "Ready: enter an image URL"
	case session.Preview == nil && session.PreviewError == nil:
		return "Loading image"
	case session.PreviewError != nil:
		return "Preview unavailable"
	case len(session.Predictions) > 0:
		return "Done"
	}
	return "Ready"
}

// Busy reports whether the status bar should animate
func Busy(session models.SessionSnapshot) bool {
	if session.Phase == models.PhaseLoading || session.Classifying {
		return true
	}
	return session.HasImage() && session.Preview == nil && session.PreviewError == nil
}

type TickMsg time.Time

func TickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func HandleWindowSizeMsg(appModel *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
}

func HandleTickMsg(appModel *models.AppModel) tea.Cmd {
	// Only handle UI animations - loading dots
	if Busy(appModel.Session) {
		appModel.LoadingDots = (appModel.LoadingDots + 1) % 4
	} else {
		appModel.LoadingDots = 0
	}
	return TickCmd()
}
