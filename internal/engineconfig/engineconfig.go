package engineconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file, relative to the process working directory.
const ConfigPath = "config/carsim.yaml"

// EnvPrefix prefixes environment overrides, e.g. CARSIM_ASSET_URL.
const EnvPrefix = "CARSIM"

type Window struct {
	Width      int    `mapstructure:"width" yaml:"width"`
	Height     int    `mapstructure:"height" yaml:"height"`
	Title      string `mapstructure:"title" yaml:"title"`
	Fullscreen bool   `mapstructure:"fullscreen" yaml:"fullscreen"`
	TargetFPS  int    `mapstructure:"targetFPS" yaml:"targetFPS"`
}

type Asset struct {
	URL      string `mapstructure:"url" yaml:"url"`
	CacheDir string `mapstructure:"cacheDir" yaml:"cacheDir"`
	// ModelScale is applied to the rig when drawing the loaded model.
	ModelScale float64 `mapstructure:"modelScale" yaml:"modelScale"`
	DrawModel  bool    `mapstructure:"drawModel" yaml:"drawModel"`
	// MaxBytes caps each download and each file extracted from a bundle.
	MaxBytes int64 `mapstructure:"maxBytes" yaml:"maxBytes"`
}

type Physics struct {
	Gravity   [3]float64 `mapstructure:"gravity" yaml:"gravity"`
	FixedStep float64    `mapstructure:"fixedStep" yaml:"fixedStep"`
	// MeasuredDelta steps by the frame time instead of FixedStep.
	MeasuredDelta bool    `mapstructure:"measuredDelta" yaml:"measuredDelta"`
	MaxStep       float64 `mapstructure:"maxStep" yaml:"maxStep"`
}

type Vehicle struct {
	ForceScale    float64 `mapstructure:"forceScale" yaml:"forceScale"`
	ThrottleForce float64 `mapstructure:"throttleForce" yaml:"throttleForce"`
}

type Render struct {
	ShowFPS      bool `mapstructure:"showFPS" yaml:"showFPS"`
	ShowMemAlloc bool `mapstructure:"showMemAlloc" yaml:"showMemAlloc"`
	GridVisible  bool `mapstructure:"gridVisible" yaml:"gridVisible"`
	Proxies      bool `mapstructure:"proxies" yaml:"proxies"`
}

type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

type Stream struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// Config is the full runtime configuration. Persisted across runs as YAML.
type Config struct {
	Window  Window  `mapstructure:"window" yaml:"window"`
	Asset   Asset   `mapstructure:"asset" yaml:"asset"`
	Physics Physics `mapstructure:"physics" yaml:"physics"`
	Vehicle Vehicle `mapstructure:"vehicle" yaml:"vehicle"`
	Render  Render  `mapstructure:"render" yaml:"render"`
	Log     Log     `mapstructure:"log" yaml:"log"`
	Stream  Stream  `mapstructure:"stream" yaml:"stream"`
}

// Default returns the built-in configuration (grid and proxies on, overlays off).
func Default() Config {
	return Config{
		Window: Window{Width: 1280, Height: 720, Title: "carsim", TargetFPS: 60},
		Asset: Asset{
			URL:        "./model/scene.gltf",
			CacheDir:   "assets/cache",
			ModelScale: 50,
			DrawModel:  true,
			MaxBytes:   512 << 20,
		},
		Physics: Physics{
			Gravity:   [3]float64{0, -9.82, 0},
			FixedStep: 1.0 / 60,
			MaxStep:   0.1,
		},
		Vehicle: Vehicle{ForceScale: 100, ThrottleForce: 50},
		Render:  Render{GridVisible: true, Proxies: true},
		Log:     Log{Level: "info", File: "logs/carsim.log"},
		Stream:  Stream{Addr: "127.0.0.1:8765"},
	}
}

// WithDefaults returns c with unset numeric settings filled from Default.
// Non-positive step sizes, forces and size caps count as unset. Gravity is
// only filled when the whole physics section is zero, since zero gravity is
// a valid setting.
func (c Config) WithDefaults() Config {
	d := Default()
	if c.Physics == (Physics{}) {
		c.Physics = d.Physics
	}
	if c.Physics.FixedStep <= 0 {
		c.Physics.FixedStep = d.Physics.FixedStep
	}
	if c.Physics.MaxStep <= 0 {
		c.Physics.MaxStep = d.Physics.MaxStep
	}
	if c.Vehicle.ForceScale <= 0 {
		c.Vehicle.ForceScale = d.Vehicle.ForceScale
	}
	if c.Vehicle.ThrottleForce <= 0 {
		c.Vehicle.ThrottleForce = d.Vehicle.ThrottleForce
	}
	if c.Asset.MaxBytes <= 0 {
		c.Asset.MaxBytes = d.Asset.MaxBytes
	}
	return c
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("window.width", d.Window.Width)
	v.SetDefault("window.height", d.Window.Height)
	v.SetDefault("window.title", d.Window.Title)
	v.SetDefault("window.fullscreen", d.Window.Fullscreen)
	v.SetDefault("window.targetFPS", d.Window.TargetFPS)

	v.SetDefault("asset.url", d.Asset.URL)
	v.SetDefault("asset.cacheDir", d.Asset.CacheDir)
	v.SetDefault("asset.modelScale", d.Asset.ModelScale)
	v.SetDefault("asset.drawModel", d.Asset.DrawModel)
	v.SetDefault("asset.maxBytes", d.Asset.MaxBytes)

	v.SetDefault("physics.gravity", d.Physics.Gravity[:])
	v.SetDefault("physics.fixedStep", d.Physics.FixedStep)
	v.SetDefault("physics.measuredDelta", d.Physics.MeasuredDelta)
	v.SetDefault("physics.maxStep", d.Physics.MaxStep)

	v.SetDefault("vehicle.forceScale", d.Vehicle.ForceScale)
	v.SetDefault("vehicle.throttleForce", d.Vehicle.ThrottleForce)

	v.SetDefault("render.showFPS", d.Render.ShowFPS)
	v.SetDefault("render.showMemAlloc", d.Render.ShowMemAlloc)
	v.SetDefault("render.gridVisible", d.Render.GridVisible)
	v.SetDefault("render.proxies", d.Render.Proxies)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("stream.enabled", d.Stream.Enabled)
	v.SetDefault("stream.addr", d.Stream.Addr)
}

// Load reads the YAML file at path over the defaults, then applies CARSIM_*
// environment overrides. A missing file is not an error; a malformed one is.
// An empty path uses ConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		path = ConfigPath
	}
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return Default(), fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Default(), fmt.Errorf("error decoding config: %w", err)
	}
	return cfg, nil
}

func isNotExist(err error) bool {
	var nf viper.ConfigFileNotFoundError
	return errors.As(err, &nf) || errors.Is(err, os.ErrNotExist)
}

// Save writes cfg as YAML to path, creating the directory if needed.
// An empty path uses ConfigPath.
func Save(path string, cfg Config) error {
	if path == "" {
		path = ConfigPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
