package envmap

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// ToRGBA tonemaps the linear envmap into an 8-bit image
func (img *Image) ToRGBA(gamma float64) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			out.SetRGBA(x, y, core.ToRGBA(img.At(y, x), gamma))
		}
	}
	return out
}

// EncodePNG writes the tonemapped envmap as PNG
func (img *Image) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, img.ToRGBA(core.DisplayGamma)); err != nil {
		return fmt.Errorf("encoding envmap png: %w", err)
	}
	return nil
}

// WritePNG saves the envmap to path, creating parent directories
func (img *Image) WritePNG(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating envmap directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating envmap file: %w", err)
	}
	defer file.Close()
	return img.EncodePNG(file)
}
