// Package telemetry writes rendering diagnostics as CSV and summarizes
// shading results for structured logs.
package telemetry

import (
	"github.com/df07/go-sg-renderer/pkg/core"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// PixelRecord is one shaded pixel.
type PixelRecord struct {
	X         int     `csv:"x"`
	Y         int     `csv:"y"`
	DiffuseR  float64 `csv:"diffuse_r"`
	DiffuseG  float64 `csv:"diffuse_g"`
	DiffuseB  float64 `csv:"diffuse_b"`
	SpecularR float64 `csv:"specular_r"`
	SpecularG float64 `csv:"specular_g"`
	SpecularB float64 `csv:"specular_b"`
	Shadow    float64 `csv:"vis_shadow"` // Luminance of the shadow value
	Indirect  float64 `csv:"indirect"`   // Luminance of the indirect contribution
}

// NewPixelRecord flattens per-pixel shading outputs
func NewPixelRecord(x, y int, diffuse, specular, shadow, indirect core.Vec3) PixelRecord {
	return PixelRecord{
		X:         x,
		Y:         y,
		DiffuseR:  diffuse.X,
		DiffuseG:  diffuse.Y,
		DiffuseB:  diffuse.Z,
		SpecularR: specular.X,
		SpecularG: specular.Y,
		SpecularB: specular.Z,
		Shadow:    shadow.Luminance(),
		Indirect:  indirect.Luminance(),
	}
}

// LobeRecord is one canonical light lobe.
type LobeRecord struct {
	Index     int     `csv:"lobe"`
	AxisX     float64 `csv:"axis_x"`
	AxisY     float64 `csv:"axis_y"`
	AxisZ     float64 `csv:"axis_z"`
	Sharpness float64 `csv:"sharpness"`
	AmpR      float64 `csv:"amplitude_r"`
	AmpG      float64 `csv:"amplitude_g"`
	AmpB      float64 `csv:"amplitude_b"`
}

// LobeRecords canonicalizes a light rig for export
func LobeRecords(lobes []sg.Lobe) []LobeRecord {
	records := make([]LobeRecord, len(lobes))
	for i, l := range sg.CanonicalSet(lobes) {
		records[i] = LobeRecord{
			Index:     i,
			AxisX:     l.Axis.X,
			AxisY:     l.Axis.Y,
			AxisZ:     l.Axis.Z,
			Sharpness: l.Sharpness,
			AmpR:      l.Amplitude.X,
			AmpG:      l.Amplitude.Y,
			AmpB:      l.Amplitude.Z,
		}
	}
	return records
}
