package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/df07/go-sg-renderer/pkg/config"
	"github.com/df07/go-sg-renderer/pkg/sg"
)

// OutputManager handles structured render output with CSV logging.
type OutputManager struct {
	dir       string
	pixelFile *os.File

	// Track if headers have been written
	pixelHeaderWritten bool
}

// NewOutputManager creates the output directory and opens pixels.csv.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "pixels.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating pixels.csv: %w", err)
	}
	return &OutputManager{dir: dir, pixelFile: f}, nil
}

// Dir returns the output directory.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WritePixels appends pixel records to pixels.csv.
func (om *OutputManager) WritePixels(records []PixelRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}

	if !om.pixelHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.pixelFile); err != nil {
			return fmt.Errorf("writing pixels: %w", err)
		}
		om.pixelHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.pixelFile); err != nil {
			return fmt.Errorf("writing pixels: %w", err)
		}
	}
	return nil
}

// WriteLobes writes the light rig to lobes.csv.
func (om *OutputManager) WriteLobes(lobes []sg.Lobe) error {
	if om == nil {
		return nil
	}
	f, err := os.Create(filepath.Join(om.dir, "lobes.csv"))
	if err != nil {
		return fmt.Errorf("creating lobes.csv: %w", err)
	}
	defer f.Close()

	if err := gocsv.Marshal(LobeRecords(lobes), f); err != nil {
		return fmt.Errorf("writing lobes: %w", err)
	}
	return nil
}

// Close closes all open files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	if err := om.pixelFile.Close(); err != nil {
		return fmt.Errorf("closing pixels.csv: %w", err)
	}
	return nil
}
