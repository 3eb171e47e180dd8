package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/envmap"
)

// ImageData contains loaded image data as linear Vec3 colors
type ImageData struct {
	Width  int
	Height int
	Pixels []core.Vec3
}

// LoadImage loads a PNG, JPEG or WebP image and linearizes it with the
// display gamma
func LoadImage(filename string) (*ImageData, error) {
	img, err := openImage(filename)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}

// DecodeImage decodes PNG, JPEG or WebP data (auto-detected from the header)
func DecodeImage(r io.Reader) (*ImageData, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromImage(img), nil
}

func openImage(filename string) (image.Image, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// FromImage linearizes a decoded image
func FromImage(img image.Image) *ImageData {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixels := make([]core.Vec3, width*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			pixels[y*width+x] = core.FromRGBA(r, g, b, core.DisplayGamma)
		}
	}

	return &ImageData{
		Width:  width,
		Height: height,
		Pixels: pixels,
	}
}

// ToEnvmap wraps the pixels as an equirectangular envmap
func (d *ImageData) ToEnvmap(upperHemi bool) (*envmap.Image, error) {
	if d.Width < 2 || d.Height < 2 {
		return nil, fmt.Errorf("%w: got %dx%d", envmap.ErrInvalidSize, d.Height, d.Width)
	}
	img := envmap.NewImage(d.Height, d.Width)
	if upperHemi {
		img.PolarMax = math.Pi / 2
	}
	copy(img.Pixels, d.Pixels)
	return img, nil
}

// LoadEnvmap loads an 8-bit equirectangular envmap from disk
func LoadEnvmap(filename string, upperHemi bool) (*envmap.Image, error) {
	data, err := LoadImage(filename)
	if err != nil {
		return nil, err
	}
	return data.ToEnvmap(upperHemi)
}

// LoadEnvmapResized loads an envmap and resamples it bilinearly to
// height x width before linearizing
func LoadEnvmapResized(filename string, height, width int, upperHemi bool) (*envmap.Image, error) {
	if height < 2 || width < 2 {
		return nil, fmt.Errorf("%w: got %dx%d", envmap.ErrInvalidSize, height, width)
	}
	src, err := openImage(filename)
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA64(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return FromImage(dst).ToEnvmap(upperHemi)
}
