package components

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/disintegration/imaging"
)

// upper half block: foreground is the top pixel, background the bottom one
const halfBlock = "▀"

// RenderPreview draws img as a thumbnail of at most cols x rows cells, two
// pixels per cell
func RenderPreview(img image.Image, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}

	thumb := imaging.Fit(img, cols, rows*2, imaging.Box)
	bounds := thumb.Bounds()

	var b strings.Builder
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 2 {
		if y > bounds.Min.Y {
			b.WriteString("\n")
		}
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(hexColor(thumb.NRGBAAt(x, y)))
			if y+1 < bounds.Max.Y {
				style = style.Background(hexColor(thumb.NRGBAAt(x, y+1)))
			}
			b.WriteString(style.Render(halfBlock))
		}
	}
	return b.String()
}

func hexColor(c color.NRGBA) lipgloss.Color {
	// flatten onto black
	a := uint32(c.A)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x",
		uint32(c.R)*a/255, uint32(c.G)*a/255, uint32(c.B)*a/255))
}

// PreviewSize picks a thumbnail box for a terminal of the given size
func PreviewSize(width, height int) (int, int) {
	cols := min(width-4, 64)
	rows := min(height/2, 16)
	return max(cols, 0), max(rows, 0)
}
