package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"terra-lod/internal/lod"
	"terra-lod/internal/terrain"
)

// Settings is the full runtime configuration, loadable from YAML.
type Settings struct {
	// Terrain area covered by the root chunk.
	Bounds lod.Bounds `yaml:"bounds"`

	Lod     lod.Config     `yaml:"lod"`
	Terrain terrain.Params `yaml:"terrain"`

	// Background pool sizing. Workers 0 means one per CPU.
	Workers         int `yaml:"workers"`
	JobQueueSize    int `yaml:"job_queue_size"`
	ResultQueueSize int `yaml:"result_queue_size"`

	// Directory for the compressed mesh cache; empty disables caching.
	CacheDir string `yaml:"cache_dir"`

	Viewer ViewerSettings `yaml:"viewer"`
}

// ViewerSettings drives the headless viewer flight path.
type ViewerSettings struct {
	Height       float32 `yaml:"height"`
	OrbitRadius  float32 `yaml:"orbit_radius"`
	OrbitSpeed   float32 `yaml:"orbit_speed"`   // radians per second
	ApproachSpan float32 `yaml:"approach_span"` // radial oscillation amplitude
	ApproachRate float32 `yaml:"approach_rate"` // radians per second
}

// Default returns settings matching the built-in demo terrain.
func Default() Settings {
	return Settings{
		Bounds:          lod.Bounds{MinX: -1000, MaxX: 1000, MinZ: -1000, MaxZ: 1000},
		Lod:             lod.DefaultConfig(),
		Terrain:         terrain.DefaultParams(),
		Workers:         0,
		JobQueueSize:    1024,
		ResultQueueSize: 256,
		Viewer: ViewerSettings{
			Height:       120,
			OrbitRadius:  900,
			OrbitSpeed:   0.1,
			ApproachSpan: 850,
			ApproachRate: 0.05,
		},
	}
}

// Load reads settings from a YAML file. Fields absent from the file keep
// their defaults.
func Load(path string) (Settings, error) {
	s := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks cross-field consistency.
func (s Settings) Validate() error {
	if err := s.Lod.Validate(); err != nil {
		return err
	}
	if s.Bounds.MinX >= s.Bounds.MaxX || s.Bounds.MinZ >= s.Bounds.MaxZ {
		return fmt.Errorf("config: degenerate bounds %+v", s.Bounds)
	}
	if s.Workers < 0 {
		return fmt.Errorf("config: workers %d, must be >= 0", s.Workers)
	}
	if s.JobQueueSize < 1 || s.ResultQueueSize < 1 {
		return fmt.Errorf("config: queue sizes must be >= 1 (job %d, result %d)", s.JobQueueSize, s.ResultQueueSize)
	}
	return nil
}
