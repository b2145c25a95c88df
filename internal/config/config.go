package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/logging"
	"github.com/mrzor/gazeshm/internal/shm"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GAZESHM_"

// Provider kinds.
const (
	ProviderVarjo  = "varjo"
	ProviderSim    = "sim"
	ProviderReplay = "replay"
)

// DefaultRegionName is the region name consumers look for.
const DefaultRegionName = "VarjoApp"

// Config is the gazeshm configuration.
type Config struct {
	Region        RegionConfig      `yaml:"region" envPrefix:"REGION_"`
	Provider      ProviderConfig    `yaml:"provider" envPrefix:"PROVIDER_"`
	StatsInterval time.Duration     `yaml:"stats_interval" env:"STATS_INTERVAL"`
	Calibration   CalibrationConfig `yaml:"calibration" envPrefix:"CALIBRATION_"`
	StopOnEnter   bool              `yaml:"stop_on_enter" env:"STOP_ON_ENTER"`
	Log           LogConfig         `yaml:"log" envPrefix:"LOG_"`
	Metrics       MetricsConfig     `yaml:"metrics" envPrefix:"METRICS_"`
	// Attributes are name=expr pairs evaluated into span attributes.
	Attributes []string `yaml:"attributes" env:"ATTRIBUTES" envSeparator:";"`

	// CustomAttributes is Attributes parsed. Filled by Validate.
	CustomAttributes []CustomAttribute `yaml:"-"`
}

// RegionConfig names the shared region.
type RegionConfig struct {
	Name string `yaml:"name" env:"NAME"`
	// Dir overrides the Unix directory holding the region file.
	Dir string `yaml:"dir" env:"DIR"`
}

// ProviderConfig selects and configures the gaze data source.
type ProviderConfig struct {
	Kind   string       `yaml:"kind" env:"KIND"`
	Varjo  VarjoConfig  `yaml:"varjo" envPrefix:"VARJO_"`
	Sim    SimConfig    `yaml:"sim" envPrefix:"SIM_"`
	Replay ReplayConfig `yaml:"replay" envPrefix:"REPLAY_"`
}

// VarjoConfig configures the hardware provider.
type VarjoConfig struct {
	// Library is the runtime DLL name or path. Empty uses VarjoLib.dll
	// from the DLL search path.
	Library string `yaml:"library" env:"LIBRARY"`
}

// SimConfig configures the synthetic provider.
type SimConfig struct {
	Rate        float64 `yaml:"rate" env:"RATE"`
	GazeAllowed bool    `yaml:"gaze_allowed" env:"GAZE_ALLOWED"`
	Seed        uint64  `yaml:"seed" env:"SEED"`
}

// ReplayConfig configures the recording provider.
type ReplayConfig struct {
	Path     string `yaml:"path" env:"PATH"`
	Loop     bool   `yaml:"loop" env:"LOOP"`
	Realtime bool   `yaml:"realtime" env:"REALTIME"`
}

// CalibrationConfig controls the startup calibration check.
type CalibrationConfig struct {
	// MinQuality is low, medium or high. Empty disables the check.
	MinQuality string `yaml:"min_quality" env:"MIN_QUALITY"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address, for example ":9464". Empty disables it.
	Addr string `yaml:"addr" env:"ADDR"`
}

// CustomAttribute is a span attribute computed from an expression.
type CustomAttribute struct {
	Name       string
	Expression string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Region: RegionConfig{Name: DefaultRegionName},
		Provider: ProviderConfig{
			Kind: ProviderVarjo,
			Sim: SimConfig{
				Rate:        200,
				GazeAllowed: true,
				Seed:        1,
			},
		},
		StatsInterval: 10 * time.Second,
		StopOnEnter:   true,
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatAuto,
		},
	}
}

// LoadFile merges a YAML file into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnvironment overrides c with GAZESHM_* variables from environ.
// Variables that are not set leave the current value alone.
func (c *Config) ApplyEnvironment(environ map[string]string) error {
	if environ == nil {
		environ = map[string]string{}
	}
	if err := env.ParseWithOptions(c, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}

// Validate checks every setting and parses Attributes.
func (c *Config) Validate() error {
	var errs []error

	if err := shm.ValidateName(c.Region.Name); err != nil {
		errs = append(errs, fmt.Errorf("region.name: %w", err))
	}

	switch c.Provider.Kind {
	case ProviderVarjo, ProviderSim:
	case ProviderReplay:
		if c.Provider.Replay.Path == "" {
			errs = append(errs, errors.New("provider.replay.path is required for the replay provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("provider.kind must be one of: %s, %s, %s", ProviderVarjo, ProviderSim, ProviderReplay))
	}

	if c.Provider.Sim.Rate <= 0 {
		errs = append(errs, fmt.Errorf("provider.sim.rate must be positive, got %v", c.Provider.Sim.Rate))
	}
	if c.StatsInterval < 0 {
		errs = append(errs, fmt.Errorf("stats_interval must not be negative, got %s", c.StatsInterval))
	}
	if _, err := c.MinCalibrationQuality(); err != nil {
		errs = append(errs, fmt.Errorf("calibration.min_quality: %w", err))
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			errs = append(errs, fmt.Errorf("metrics.addr: %w", err))
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if err := logging.ValidateFormat(c.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}

	attrs, err := ParseAttributes(c.Attributes)
	if err != nil {
		errs = append(errs, err)
	}
	c.CustomAttributes = attrs

	return errors.Join(errs...)
}

// MinCalibrationQuality returns the configured minimum and whether the
// calibration check is enabled.
func (c *Config) MinCalibrationQuality() (device.EyeCalibrationQuality, error) {
	if strings.TrimSpace(c.Calibration.MinQuality) == "" {
		return device.QualityInvalid, nil
	}
	return device.ParseEyeCalibrationQuality(c.Calibration.MinQuality)
}

// ParseAttributes parses name=expr pairs. The expression may itself
// contain '='.
func ParseAttributes(specs []string) ([]CustomAttribute, error) {
	attrs := make([]CustomAttribute, 0, len(specs))
	for _, spec := range specs {
		name, expression, ok := strings.Cut(spec, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(expression) == "" {
			return nil, fmt.Errorf("invalid attribute format %q (expected name=expression)", spec)
		}
		attrs = append(attrs, CustomAttribute{Name: name, Expression: expression})
	}
	return attrs, nil
}

// Options is the parsed command line.
type Options struct {
	ConfigPath  string
	ShowVersion bool
	flags       *pflag.FlagSet
	values      flagValues
}

type flagValues struct {
	region         string
	regionDir      string
	provider       string
	varjoLibrary   string
	simRate        float64
	simGazeAllowed bool
	simSeed        uint64
	replayPath     string
	replayLoop     bool
	replayRealtime bool
	statsInterval  time.Duration
	minQuality     string
	stopOnEnter    bool
	logLevel       string
	logFormat      string
	metricsAddr    string
	attributes     []string
}

// NewFlagSet declares the gazeshm flags on a new flag set.
func NewFlagSet(name string) (*pflag.FlagSet, *Options) {
	o := &Options{}
	v := &o.values
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringVarP(&o.ConfigPath, "config", "c", "", "YAML config file (env: GAZESHM_CONFIG)")
	fs.BoolVar(&o.ShowVersion, "version", false, "print version and exit")
	fs.StringVarP(&v.region, "region", "r", DefaultRegionName, "shared memory region name")
	fs.StringVar(&v.regionDir, "region-dir", "", "directory holding the region file (unix only)")
	fs.StringVarP(&v.provider, "provider", "p", ProviderVarjo, "gaze source: varjo, sim or replay")
	fs.StringVar(&v.varjoLibrary, "varjo-library", "", "Varjo runtime DLL name or path")
	fs.Float64Var(&v.simRate, "sim-rate", 200, "sim provider frame rate in Hz")
	fs.BoolVar(&v.simGazeAllowed, "sim-gaze-allowed", true, "sim provider grants gaze permission")
	fs.Uint64Var(&v.simSeed, "sim-seed", 1, "sim provider blink schedule seed")
	fs.StringVar(&v.replayPath, "replay", "", "recording played by the replay provider")
	fs.BoolVar(&v.replayLoop, "replay-loop", false, "rewind the recording at end of file")
	fs.BoolVar(&v.replayRealtime, "replay-realtime", false, "pace the recording by capture time")
	fs.DurationVar(&v.statsInterval, "stats-interval", 10*time.Second, "progress log interval, 0 disables")
	fs.StringVar(&v.minQuality, "min-calibration-quality", "", "request calibration below this quality (low, medium, high)")
	fs.BoolVar(&v.stopOnEnter, "stop-on-enter", true, "stop when Enter is pressed on a terminal")
	fs.StringVar(&v.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&v.logFormat, "log-format", logging.FormatAuto, "log format: auto, text, json")
	fs.StringVar(&v.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fs.StringArrayVarP(&v.attributes, "attribute", "a", nil, "span attribute as name=expression (repeatable)")
	o.flags = fs
	return fs, o
}

// apply copies explicitly set flags into c.
func (o *Options) apply(c *Config) {
	v := &o.values
	set := func(name string, fn func()) {
		if o.flags.Changed(name) {
			fn()
		}
	}
	set("region", func() { c.Region.Name = v.region })
	set("region-dir", func() { c.Region.Dir = v.regionDir })
	set("provider", func() { c.Provider.Kind = v.provider })
	set("varjo-library", func() { c.Provider.Varjo.Library = v.varjoLibrary })
	set("sim-rate", func() { c.Provider.Sim.Rate = v.simRate })
	set("sim-gaze-allowed", func() { c.Provider.Sim.GazeAllowed = v.simGazeAllowed })
	set("sim-seed", func() { c.Provider.Sim.Seed = v.simSeed })
	set("replay", func() { c.Provider.Replay.Path = v.replayPath })
	set("replay-loop", func() { c.Provider.Replay.Loop = v.replayLoop })
	set("replay-realtime", func() { c.Provider.Replay.Realtime = v.replayRealtime })
	set("stats-interval", func() { c.StatsInterval = v.statsInterval })
	set("min-calibration-quality", func() { c.Calibration.MinQuality = v.minQuality })
	set("stop-on-enter", func() { c.StopOnEnter = v.stopOnEnter })
	set("log-level", func() { c.Log.Level = v.logLevel })
	set("log-format", func() { c.Log.Format = v.logFormat })
	set("metrics-addr", func() { c.Metrics.Addr = v.metricsAddr })
	set("attribute", func() { c.Attributes = append(c.Attributes, v.attributes...) })
}

// Load parses args and layers defaults, the config file, the environment
// and explicitly set flags, in that order. It returns pflag.ErrHelp when
// help was requested.
func Load(name string, args []string, environ map[string]string) (*Config, *Options, error) {
	fs, opts := NewFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}
	if rest := fs.Args(); len(rest) > 0 {
		return nil, opts, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if opts.ShowVersion {
		return nil, opts, nil
	}

	cfg := Default()

	path := opts.ConfigPath
	if path == "" {
		path = environ[EnvPrefix+"CONFIG"]
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, opts, err
		}
	}

	if err := cfg.ApplyEnvironment(environ); err != nil {
		return nil, opts, err
	}
	opts.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, opts, err
	}
	return cfg, opts, nil
}
