package onnx

import (
	"image"

	"github.com/nfnt/resize"
)

// Preprocess resizes img to the model input with the metadata's filter and
// writes normalized RGB values into a flat tensor buffer in its layout.
func Preprocess(img image.Image, md *Metadata) []float32 {
	width, height := md.InputSize()
	resized := resize.Resize(uint(width), uint(height), img, md.interpolationFunc())

	bounds := resized.Bounds()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rgb := [3]float32{
				float32(r) / 65535.0,
				float32(g) / 65535.0,
				float32(b) / 65535.0,
			}

			pixel := y*width + x
			for c := 0; c < 3; c++ {
				v := (rgb[c] - md.Mean[c]) / md.Std[c]
				if md.Layout == LayoutNHWC {
					data[pixel*3+c] = v
				} else {
					data[c*plane+pixel] = v
				}
			}
		}
	}
	return data
}
