package application

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	emissions "windfarm-impact/internal/emissions/domain"
	fuelmix "windfarm-impact/internal/fuelmix/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IMPACT_CONFIG", "")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Site.Name != "King Pine" || cfg.Site.NameplateMW != 1000 || cfg.Input.LocationID != 4001 {
		t.Fatalf("unexpected defaults: %+v", cfg.Site)
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("engine config: %v", err)
	}
	if engineCfg.ThresholdPrice != 4 || engineCfg.Mode != emissions.ModeMarginalRate {
		t.Fatalf("unexpected engine config: %+v", engineCfg)
	}
	if cfg.FallbackFuel() != fuelmix.FuelNaturalGas {
		t.Fatalf("fallback: %q", cfg.FallbackFuel())
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "impact.yaml", `
site:
  name: Test Ridge
  nameplate_mw: 250
engine:
  threshold_price: 0
  mode: avoided-mass
  rates:
    Natural Gas: 900
output:
  formats: [csv, pdf]
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Site.Name != "Test Ridge" || cfg.Site.NameplateMW != 250 {
		t.Fatalf("site not applied: %+v", cfg.Site)
	}
	if cfg.Input.LocationID != 4001 {
		t.Fatalf("defaults should survive partial files, got location %d", cfg.Input.LocationID)
	}
	if !cfg.HasFormat(FormatPDF) || cfg.HasFormat(FormatXLSX) {
		t.Fatalf("formats: %v", cfg.Output.Formats)
	}
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("engine config: %v", err)
	}
	if engineCfg.Mode != emissions.ModeAvoidedMass || engineCfg.ThresholdPrice != 0 {
		t.Fatalf("engine config: %+v", engineCfg)
	}
	if rate, _ := engineCfg.Rates.Rate(fuelmix.FuelNaturalGas); rate != 900 {
		t.Fatalf("rate override: %v", rate)
	}
	if rate, _ := engineCfg.Rates.Rate(fuelmix.FuelOil); rate != 3374.668 {
		t.Fatalf("untouched rate: %v", rate)
	}
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "impact.toml", `
log_level = "debug"

[input]
grid_source = "eia"
year = 2020

[engine]
strict = true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Input.GridSource != GridSourceEIA || cfg.Input.Year != 2020 || !cfg.Engine.Strict || cfg.LogLevel != "debug" {
		t.Fatalf("toml not applied: %+v", cfg)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("IMPACT_THRESHOLD_PRICE", "7.5")
	t.Setenv("IMPACT_LOCATION_ID", "4002")
	t.Setenv("IMPACT_FORMATS", "csv, png")
	t.Setenv("IMPACT_NAMEPLATE_MW", "not-a-number")
	cfg, err := LoadConfig(writeFile(t, "impact.yaml", "engine:\n  threshold_price: 1\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.ThresholdPrice != 7.5 || cfg.Input.LocationID != 4002 {
		t.Fatalf("env overrides not applied: %+v %+v", cfg.Engine, cfg.Input)
	}
	if len(cfg.Output.Formats) != 2 || cfg.Output.Formats[1] != FormatPNG {
		t.Fatalf("formats: %v", cfg.Output.Formats)
	}
	if cfg.Site.NameplateMW != 1000 {
		t.Fatalf("bad numeric env should keep value, got %v", cfg.Site.NameplateMW)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"grid source", func(c *Config) { c.Input.GridSource = "pjm" }, ErrUnknownSource},
		{"generation source", func(c *Config) { c.Input.GenerationSource = "nrel" }, ErrUnknownSource},
		{"format", func(c *Config) { c.Output.Formats = []string{"docx"} }, ErrUnknownFormat},
		{"mode", func(c *Config) { c.Engine.Mode = "hybrid" }, emissions.ErrInvalidMode},
		{"fallback", func(c *Config) { c.Engine.FallbackFuel = " " }, fuelmix.ErrEmptyFallbackFuel},
		{"rate", func(c *Config) { c.Engine.Rates = map[string]float64{"Coal": -1} }, emissions.ErrInvalidRate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not exist, got %v", err)
	}
}
