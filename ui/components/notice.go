package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Rorical/RoriLens/internal/models"
	"github.com/Rorical/RoriLens/ui/styles"
)

// RenderLoading fills the screen while the model loads
func RenderLoading(backend string, loadingDots int, width, height int) string {
	text := "Loading model" + strings.Repeat(".", loadingDots)
	if backend != "" {
		text += "\n" + styles.HintStyle().Render("backend: "+backend)
	}
	return place(text, width, height)
}

// RenderLoadError is the full-screen notice shown when the model could not
// be loaded. Dismissing it restarts the session.
func RenderLoadError(err error, width, height int) string {
	message := "unknown error"
	if err != nil {
		message = err.Error()
	}

	panel := styles.ErrorPanelStyle(width).Render(
		styles.TitleStyle().Render("Could not load the model") + "\n\n" +
			message + "\n\n" +
			styles.HintStyle().Render("Press Esc to restart · ctrl+c to quit"),
	)
	return place(panel, width, height)
}

// RenderNotice draws a dismissible inline notice
func RenderNotice(err error, width int) string {
	if err == nil {
		return ""
	}
	return styles.NoticeStyle(width).Render(err.Error()+"  (esc to dismiss)") + "\n"
}

// RenderPreviewUnavailable replaces the thumbnail when a source won't decode
func RenderPreviewUnavailable(label string) string {
	return styles.HintStyle().Render("Preview unavailable for "+label) + "\n"
}

// ImageSourceHint is a free stock-photo site for trying URL mode
const ImageSourceHint = "https://picsum.photos/images"

// RenderHelp lists the keys that do something right now. URL mode also
// points at a place to find images.
func RenderHelp(session models.SessionSnapshot) string {
	keys := []string{"enter select"}
	if session.CanClassify() {
		keys = append(keys, "tab classify")
	}
	keys = append(keys, "esc clear", "ctrl+c quit")
	help := styles.HintStyle().Render(strings.Join(keys, " · "))

	if session.Mode == models.ModeURL {
		help += "\n" + styles.HintStyle().Render("Need an image? Picsum Photos: "+ImageSourceHint)
	}
	return help
}

func place(content string, width, height int) string {
	if width <= 0 || height <= 0 {
		return content
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
