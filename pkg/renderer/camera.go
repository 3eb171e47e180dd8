package renderer

import (
	"math"

	"github.com/df07/go-sg-renderer/pkg/core"
)

// CameraConfig describes a pinhole look-at camera
type CameraConfig struct {
	Center      core.Vec3 // Eye position
	LookAt      core.Vec3 // Point the camera faces
	Up          core.Vec3 // Approximate up direction
	Width       int       // Image width in pixels
	AspectRatio float64   // Width / height
	VFov        float64   // Vertical field of view in degrees
}

// Camera generates primary rays through pixel centers
type Camera struct {
	config      CameraConfig
	height      int
	origin      core.Vec3
	pixel00     core.Vec3 // Center of the top-left pixel
	pixelDeltaU core.Vec3
	pixelDeltaV core.Vec3
	forward     core.Vec3
}

// NewCamera creates a camera from the configuration
func NewCamera(config CameraConfig) *Camera {
	height := max(1, int(math.Round(float64(config.Width)/config.AspectRatio)))

	theta := config.VFov * math.Pi / 180
	viewportHeight := 2 * math.Tan(theta/2)
	viewportWidth := viewportHeight * float64(config.Width) / float64(height)

	w := config.Center.Subtract(config.LookAt).Normalize()
	u := config.Up.Cross(w).Normalize()
	v := w.Cross(u)

	viewportU := u.Multiply(viewportWidth)
	viewportV := v.Multiply(-viewportHeight)
	pixelDeltaU := viewportU.Multiply(1 / float64(config.Width))
	pixelDeltaV := viewportV.Multiply(1 / float64(height))

	upperLeft := config.Center.Subtract(w).
		Subtract(viewportU.Multiply(0.5)).
		Subtract(viewportV.Multiply(0.5))

	return &Camera{
		config:      config,
		height:      height,
		origin:      config.Center,
		pixel00:     upperLeft.Add(pixelDeltaU.Add(pixelDeltaV).Multiply(0.5)),
		pixelDeltaU: pixelDeltaU,
		pixelDeltaV: pixelDeltaV,
		forward:     w.Negate(),
	}
}

// GetRay returns the unit-direction ray through the center of pixel (i, j),
// with j counted from the top of the image
func (c *Camera) GetRay(i, j int) core.Ray {
	pixel := c.pixel00.
		Add(c.pixelDeltaU.Multiply(float64(i))).
		Add(c.pixelDeltaV.Multiply(float64(j)))
	direction := pixel.Subtract(c.origin)
	return core.NewRay(c.origin, direction.Multiply(1/direction.Length()))
}

// GetCameraForward returns the viewing direction
func (c *Camera) GetCameraForward() core.Vec3 {
	return c.forward
}

// Width returns the image width in pixels
func (c *Camera) Width() int {
	return c.config.Width
}

// Height returns the image height in pixels
func (c *Camera) Height() int {
	return c.height
}
