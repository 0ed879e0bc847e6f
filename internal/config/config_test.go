package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/drone-power/pkg/constants"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadConfigurationDefaults(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
	}{
		{"Empty path", ""},
		{"Non-existent config file", filepath.Join(t.TempDir(), "missing.yaml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf, err := LoadConfiguration(tt.configPath)
			if err != nil {
				t.Fatalf("LoadConfiguration() error = %v", err)
			}
			if conf.Integration.RombergLevels != constants.DefaultRombergLevels {
				t.Errorf("RombergLevels = %d, expected %d", conf.Integration.RombergLevels, constants.DefaultRombergLevels)
			}
			if conf.Differentiation.Step != constants.DefaultDifferentiationStep {
				t.Errorf("Step = %v, expected %v", conf.Differentiation.Step, constants.DefaultDifferentiationStep)
			}
			if conf.Maneuver.Duration != constants.DefaultManeuverDuration {
				t.Errorf("Duration = %v, expected %v", conf.Maneuver.Duration, constants.DefaultManeuverDuration)
			}
			if conf.Input.File != constants.DefaultInputFile {
				t.Errorf("Input.File = %s, expected %s", conf.Input.File, constants.DefaultInputFile)
			}
			if conf.Output.Format != constants.OutputFormatPretty {
				t.Errorf("Output.Format = %s, expected %s", conf.Output.Format, constants.OutputFormatPretty)
			}
		})
	}
}

func TestLoadConfigurationOverrides(t *testing.T) {
	path := writeConfig(t, `input:
  file: cases.txt
differentiation:
  step: 0.005
integration:
  rombergLevels: 8
maneuver:
  duration: 20
  startVelocity: 2.5
  samples: 50
plot:
  directory: plots
store:
  dsn: results.db
logging:
  level: debug
  format: console
  outputFile: /tmp/drone-power.log
output:
  format: csv
server:
  address: 127.0.0.1:9000
  maxUploadSize: 2M
`)

	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Input.File != "cases.txt" {
		t.Errorf("Input.File = %s, expected cases.txt", conf.Input.File)
	}
	if conf.Differentiation.Step != 0.005 {
		t.Errorf("Step = %v, expected 0.005", conf.Differentiation.Step)
	}
	if conf.Integration.RombergLevels != 8 {
		t.Errorf("RombergLevels = %d, expected 8", conf.Integration.RombergLevels)
	}
	if conf.Maneuver.Duration != 20 || conf.Maneuver.StartVelocity != 2.5 || conf.Maneuver.Samples != 50 {
		t.Errorf("Maneuver = %+v, expected overrides", conf.Maneuver)
	}
	if conf.Plot.Directory != "plots" {
		t.Errorf("Plot.Directory = %s, expected plots", conf.Plot.Directory)
	}
	if conf.Store.DSN != "results.db" {
		t.Errorf("Store.DSN = %s, expected results.db", conf.Store.DSN)
	}
	if conf.Logging.Level != "debug" || conf.Logging.Format != "console" || conf.Logging.OutputFile != "/tmp/drone-power.log" {
		t.Errorf("Logging = %+v, expected overrides", conf.Logging)
	}
	if conf.Output.Format != "csv" {
		t.Errorf("Output.Format = %s, expected csv", conf.Output.Format)
	}
	if conf.Server.Address != "127.0.0.1:9000" || conf.Server.MaxUploadSize != "2M" {
		t.Errorf("Server = %+v, expected overrides", conf.Server)
	}
	// Untouched sections keep their defaults.
	if conf.Generate.Count != constants.DefaultGenerateCount {
		t.Errorf("Generate.Count = %d, expected %d", conf.Generate.Count, constants.DefaultGenerateCount)
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	t.Setenv("DRONE_POWER_INTEGRATION_ROMBERGLEVELS", "9")
	t.Setenv("DRONE_POWER_OUTPUT_FORMAT", "json")

	conf, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if conf.Integration.RombergLevels != 9 {
		t.Errorf("RombergLevels = %d, expected env override 9", conf.Integration.RombergLevels)
	}
	if conf.Output.Format != "json" {
		t.Errorf("Output.Format = %s, expected env override json", conf.Output.Format)
	}
}

func TestLoadConfigurationInvalidYAML(t *testing.T) {
	path := writeConfig(t, "integration: [unclosed\n")
	if _, err := LoadConfiguration(path); err == nil {
		t.Errorf("LoadConfiguration() expected error but got none")
	}
}

func TestNormalize(t *testing.T) {
	conf := &Configuration{
		Differentiation: DifferentiationConfig{Step: -1},
		Integration:     IntegrationConfig{RombergLevels: 0},
		Maneuver:        ManeuverConfig{Duration: 0, StartVelocity: 0, Samples: 1},
	}

	warnings := conf.Normalize()
	if len(warnings) != 4 {
		t.Errorf("Normalize() returned %d warnings, expected 4: %v", len(warnings), warnings)
	}

	d := Default()
	if conf.Differentiation.Step != d.Differentiation.Step {
		t.Errorf("Step = %v, expected default %v", conf.Differentiation.Step, d.Differentiation.Step)
	}
	if conf.Integration.RombergLevels != d.Integration.RombergLevels {
		t.Errorf("RombergLevels = %d, expected default %d", conf.Integration.RombergLevels, d.Integration.RombergLevels)
	}
	if conf.Maneuver != d.Maneuver {
		t.Errorf("Maneuver = %+v, expected default %+v", conf.Maneuver, d.Maneuver)
	}
	if conf.Input.File != d.Input.File || conf.Output.Format != d.Output.Format || conf.Server.Address != d.Server.Address {
		t.Errorf("Normalize() left empty fields: %+v", conf)
	}

	if warnings := Default().Normalize(); len(warnings) != 0 {
		t.Errorf("Normalize() on defaults returned warnings: %v", warnings)
	}
}

func TestValidateConfiguration(t *testing.T) {
	tests := []struct {
		name          string
		modify        func(*Configuration)
		expectedCount int
	}{
		{"Defaults", func(*Configuration) {}, 0},
		{"Tiny step", func(c *Configuration) { c.Differentiation.Step = 1e-7 }, 1},
		{"Huge step", func(c *Configuration) { c.Differentiation.Step = 1 }, 1},
		{"Deep table", func(c *Configuration) { c.Integration.RombergLevels = 20 }, 1},
		{"Few samples", func(c *Configuration) { c.Maneuver.Samples = 3 }, 1},
		{"Empty generator", func(c *Configuration) { c.Generate.Count = 0 }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := Default()
			tt.modify(conf)
			warnings := conf.ValidateConfiguration()
			if len(warnings) != tt.expectedCount {
				t.Errorf("ValidateConfiguration() returned %d warnings, expected %d: %v", len(warnings), tt.expectedCount, warnings)
			}
		})
	}
}
