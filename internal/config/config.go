// Package config defines the configuration of a drone-power run and loads it
// from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/iwvelando/drone-power/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for drone-power.
type Configuration struct {
	Input           InputConfig           `yaml:"input"`
	Solver          SolverConfig          `yaml:"solver"`
	Differentiation DifferentiationConfig `yaml:"differentiation"`
	Integration     IntegrationConfig     `yaml:"integration"`
	Maneuver        ManeuverConfig        `yaml:"maneuver"`
	Generate        GenerateConfig        `yaml:"generate"`
	Plot            PlotConfig            `yaml:"plot"`
	Store           StoreConfig           `yaml:"store"`
	Logging         LoggingConfig         `yaml:"logging,omitempty"`
	Output          OutputConfig          `yaml:"output,omitempty"`
	Server          ServerConfig          `yaml:"server,omitempty"`
}

// InputConfig locates the case file.
type InputConfig struct {
	File string `yaml:"file"`
}

// SolverConfig holds the Newton-Raphson settings written into generated cases.
type SolverConfig struct {
	DefaultTolerance     float64 `yaml:"defaultTolerance"`
	DefaultMaxIterations int     `yaml:"defaultMaxIterations"`
}

// DifferentiationConfig holds the centered difference step.
type DifferentiationConfig struct {
	Step float64 `yaml:"step"`
}

// IntegrationConfig holds the Romberg depth.
type IntegrationConfig struct {
	RombergLevels int `yaml:"rombergLevels"`
}

// ManeuverConfig describes the velocity ramp.
type ManeuverConfig struct {
	Duration      float64 `yaml:"duration"`      // seconds
	StartVelocity float64 `yaml:"startVelocity"` // m/s
	Samples       int     `yaml:"samples"`
}

// GenerateConfig controls the synthetic case generator.
type GenerateConfig struct {
	Count int   `yaml:"count"`
	Seed  int64 `yaml:"seed"` // 0 seeds from the clock
}

// PlotConfig controls chart rendering.
type PlotConfig struct {
	Directory string `yaml:"directory"` // empty disables plots
}

// StoreConfig controls the results store.
type StoreConfig struct {
	DSN string `yaml:"dsn"` // empty disables the store
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// ServerConfig defines runtime parameters for the HTTP server.
type ServerConfig struct {
	Address       string `yaml:"address"`
	MaxUploadSize string `yaml:"maxUploadSize"`
}

// Default returns a configuration populated with the built-in defaults.
func Default() *Configuration {
	return &Configuration{
		Input: InputConfig{File: constants.DefaultInputFile},
		Solver: SolverConfig{
			DefaultTolerance:     constants.DefaultTolerance,
			DefaultMaxIterations: constants.DefaultMaxIterations,
		},
		Differentiation: DifferentiationConfig{Step: constants.DefaultDifferentiationStep},
		Integration:     IntegrationConfig{RombergLevels: constants.DefaultRombergLevels},
		Maneuver: ManeuverConfig{
			Duration:      constants.DefaultManeuverDuration,
			StartVelocity: constants.DefaultStartVelocity,
			Samples:       constants.DefaultProfileSamples,
		},
		Generate: GenerateConfig{Count: constants.DefaultGenerateCount},
		Output:   OutputConfig{Format: constants.OutputFormatPretty},
		Server: ServerConfig{
			Address:       constants.DefaultServerAddress,
			MaxUploadSize: fmt.Sprintf("%d", constants.DefaultMaxUploadSizeBytes),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("input.file", d.Input.File)
	v.SetDefault("solver.defaultTolerance", d.Solver.DefaultTolerance)
	v.SetDefault("solver.defaultMaxIterations", d.Solver.DefaultMaxIterations)
	v.SetDefault("differentiation.step", d.Differentiation.Step)
	v.SetDefault("integration.rombergLevels", d.Integration.RombergLevels)
	v.SetDefault("maneuver.duration", d.Maneuver.Duration)
	v.SetDefault("maneuver.startVelocity", d.Maneuver.StartVelocity)
	v.SetDefault("maneuver.samples", d.Maneuver.Samples)
	v.SetDefault("generate.count", d.Generate.Count)
	v.SetDefault("generate.seed", d.Generate.Seed)
	v.SetDefault("plot.directory", "")
	v.SetDefault("store.dsn", "")
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("server.maxUploadSize", d.Server.MaxUploadSize)
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. An empty path or a missing file yields the defaults.
// Environment variables prefixed with DRONE_POWER_ override file values, e.g.
// DRONE_POWER_INTEGRATION_ROMBERGLEVELS.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file, %s", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file, %s", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}
