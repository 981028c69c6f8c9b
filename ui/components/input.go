package components

import (
	"github.com/Rorical/RoriLens/internal/models"
	"github.com/Rorical/RoriLens/ui/styles"
)

// RenderInput draws the source field for the session's input mode
func RenderInput(input string, mode models.InputMode, enabled bool, width int) string {
	inputStyle := styles.InputStyle(width)
	if !enabled {
		inputStyle = styles.DisabledInputStyle(width)
	}

	if input == "" {
		return inputStyle.Render(styles.PlaceholderStyle().Render(Placeholder(mode)))
	}
	return inputStyle.Render(input + "▏")
}

func Placeholder(mode models.InputMode) string {
	if mode == models.ModeFile {
		return "Path to an image file (globs allowed)"
	}
	return "Image URL"
}
