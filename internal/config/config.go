package config

import (
	"fmt"
	"strings"
	"time"

	"dualcam/internal/composite"
	"dualcam/internal/compositor"
	"dualcam/internal/frame"
	"dualcam/internal/logging"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. DUALCAM_OUTPUT_WIDTH
const EnvPrefix = "DUALCAM"

// AppConfig is the full application configuration
type AppConfig struct {
	Output  OutputConfig  `mapstructure:"output"`
	Layout  LayoutConfig  `mapstructure:"layout"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Capture CaptureConfig `mapstructure:"capture"`
	Preview PreviewConfig `mapstructure:"preview"`
	Log     LogConfig     `mapstructure:"log"`
}

// OutputConfig describes the composited frame
type OutputConfig struct {
	Width        int    `mapstructure:"width" validate:"gt=0"`
	Height       int    `mapstructure:"height" validate:"gt=0"`
	Orientation  string `mapstructure:"orientation" validate:"oneof=portrait portrait_upside_down landscape_left landscape_right face_up face_down unknown"`
	OrientInputs bool   `mapstructure:"orient_inputs"`
	Interpolator string `mapstructure:"interpolator" validate:"oneof=bilinear catmullrom nearest"`
}

// LayoutConfig selects the composition layout
type LayoutConfig struct {
	Name      string  `mapstructure:"name" validate:"oneof=stacked pip"`
	PiPSize   float64 `mapstructure:"pip_size" validate:"gt=0,lte=1"`
	PiPCorner string  `mapstructure:"pip_corner" validate:"oneof=top_left top_right bottom_left bottom_right"`
}

// PoolConfig sizes the output buffer pool. MaxBuffers 0 means unbounded;
// otherwise it covers MinBuffers and the pool floor of 3.
type PoolConfig struct {
	MinBuffers int `mapstructure:"min_buffers" validate:"gte=0"`
	Burst      int `mapstructure:"burst" validate:"gte=0"`
	MaxBuffers int `mapstructure:"max_buffers" validate:"omitempty,gte=3,gtefield=MinBuffers"`
}

// CaptureConfig drives the simulated camera producers of the harness
type CaptureConfig struct {
	FPS          int           `mapstructure:"fps" validate:"gt=0,lte=240"`
	Duration     time.Duration `mapstructure:"duration" validate:"gte=0"`
	SourceWidth  int           `mapstructure:"source_width" validate:"gt=0"`
	SourceHeight int           `mapstructure:"source_height" validate:"gt=0"`
	// DropRate is the probability that a camera skips a delivery
	DropRate float64 `mapstructure:"drop_rate" validate:"gte=0,lt=1"`
}

// PreviewConfig enables the HTTP preview server
type PreviewConfig struct {
	Addr        string `mapstructure:"addr"`
	JPEGQuality int    `mapstructure:"jpeg_quality" validate:"gte=1,lte=100"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// InitConfig creates a viper instance with defaults, an optional config
// file and environment overrides
func InitConfig(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefault(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}
	return v, nil
}

func setDefault(v *viper.Viper) {
	v.SetDefault("output.width", 1080)
	v.SetDefault("output.height", 1920)
	v.SetDefault("output.orientation", string(frame.OrientationPortrait))
	v.SetDefault("output.orient_inputs", false)
	v.SetDefault("output.interpolator", "bilinear")

	v.SetDefault("layout.name", composite.LayoutStacked)
	v.SetDefault("layout.pip_size", composite.DefaultPiPSize)
	v.SetDefault("layout.pip_corner", string(composite.CornerTopRight))

	v.SetDefault("pool.min_buffers", 3)
	v.SetDefault("pool.burst", 2)
	v.SetDefault("pool.max_buffers", 0)

	v.SetDefault("capture.fps", 30)
	v.SetDefault("capture.duration", 10*time.Second)
	v.SetDefault("capture.source_width", 1920)
	v.SetDefault("capture.source_height", 1080)
	v.SetDefault("capture.drop_rate", 0.05)

	v.SetDefault("preview.addr", "")
	v.SetDefault("preview.jpeg_quality", 80)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 7)
}

// GetApplicationConfig unmarshals and validates the configuration
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Load is InitConfig followed by GetApplicationConfig
func Load(path string) (*AppConfig, error) {
	v, err := InitConfig(path)
	if err != nil {
		return nil, err
	}
	return GetApplicationConfig(v)
}

// Compositor maps the configuration onto compositor settings
func (c *AppConfig) Compositor() compositor.Config {
	return compositor.Config{
		Width:        c.Output.Width,
		Height:       c.Output.Height,
		Orientation:  frame.Orientation(c.Output.Orientation),
		OrientInputs: c.Output.OrientInputs,
		Interpolator: c.Output.Interpolator,
		Layout:       c.Layout.Name,
		PiP: composite.PiPOptions{
			Size:   c.Layout.PiPSize,
			Corner: composite.Corner(c.Layout.PiPCorner),
		},
		MinBuffers: c.Pool.MinBuffers,
		Burst:      c.Pool.Burst,
		MaxBuffers: c.Pool.MaxBuffers,
	}
}

// Logging maps the configuration onto logger options
func (c *AppConfig) Logging(name string) logging.Options {
	return logging.Options{
		Name:       name,
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}
