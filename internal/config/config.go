// Package config handles overlay configuration loading and management.
package config

import "time"

// Config holds all overlay settings. Instances are treated as immutable
// values: updates go through Merge, which returns a new Config.
type Config struct {
	Display  DisplayConfig  `yaml:"display"`
	Shadows  ShadowConfig   `yaml:"shadows"`
	Lighting LightingConfig `yaml:"lighting"`
	Limits   LimitsConfig   `yaml:"limits"`
	Culling  CullingConfig  `yaml:"culling"`
	LOD      LODConfig      `yaml:"lod"`
	Perf     PerfConfig     `yaml:"performance"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DisplayConfig holds settings for the demo window standing in for the
// host map canvas.
type DisplayConfig struct {
	Width  int  `yaml:"width"`
	Height int  `yaml:"height"`
	VSync  bool `yaml:"vsync"`
}

// ShadowConfig holds shadow mapping settings.
type ShadowConfig struct {
	Enabled bool   `yaml:"enabled"`
	Quality string `yaml:"quality"` // low, medium, high, ultra
}

// LightingConfig holds sun and ambient light settings.
type LightingConfig struct {
	AmbientIntensity float32 `yaml:"ambient_intensity"`
	SunIntensity     float32 `yaml:"sun_intensity"`
}

// LimitsConfig bounds how many records each pipeline keeps per ingestion.
type LimitsConfig struct {
	MaxTrees     int `yaml:"max_trees"`
	MaxBuildings int `yaml:"max_buildings"`
}

// CullingConfig holds spatial culling settings. Distances are in world
// units (meters at the overlay origin, see internal/geo).
type CullingConfig struct {
	Enabled        bool    `yaml:"enabled"`
	MaxDistance    float32 `yaml:"max_distance"`
	CellSize       float32 `yaml:"cell_size"`
	FrustumPadding float32 `yaml:"frustum_padding"`
}

// LODConfig holds level-of-detail distance bands and the adaptive
// quality controller settings.
type LODConfig struct {
	HighDistance   float32 `yaml:"high_distance"`
	MediumDistance float32 `yaml:"medium_distance"`
	LowDistance    float32 `yaml:"low_distance"`
	Adaptive       bool    `yaml:"adaptive"`
	TargetFPS      float64 `yaml:"target_fps"`
	MinFPS         float64 `yaml:"min_fps"`
}

// PerfConfig holds performance sampling settings.
type PerfConfig struct {
	SampleInterval   time.Duration `yaml:"sample_interval"`
	LowFPSWarning    float64       `yaml:"low_fps_warning"`
	FrameTimeWarning time.Duration `yaml:"frame_time_warning"`
	HeapWarningMB    float64       `yaml:"heap_warning_mb"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() Config {
	return Config{
		Display: DisplayConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Shadows: ShadowConfig{
			Enabled: true,
			Quality: "high",
		},
		Lighting: LightingConfig{
			AmbientIntensity: 0.4,
			SunIntensity:     1.0,
		},
		Limits: LimitsConfig{
			MaxTrees:     50000,
			MaxBuildings: 10000,
		},
		Culling: CullingConfig{
			Enabled:        true,
			MaxDistance:    1200,
			CellSize:       100,
			FrustumPadding: 10,
		},
		LOD: LODConfig{
			HighDistance:   50,
			MediumDistance: 200,
			LowDistance:    1000,
			Adaptive:       true,
			TargetFPS:      55,
			MinFPS:         30,
		},
		Perf: PerfConfig{
			SampleInterval:   time.Second,
			LowFPSWarning:    20,
			FrameTimeWarning: 50 * time.Millisecond,
			HeapWarningMB:    512,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
