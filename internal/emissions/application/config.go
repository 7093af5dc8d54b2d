package application

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	emissions "windfarm-impact/internal/emissions/domain"
	fuelmix "windfarm-impact/internal/fuelmix/domain"
	pricingisone "windfarm-impact/internal/pricing/infrastructure/isone"
)

// Grid and generation source names.
const (
	GridSourceISONE       = "isone"
	GridSourceEIA         = "eia"
	GenerationSourceSAM   = "sam"
	GenerationSourceVER   = "ver"
	DefaultReferenceYear  = 2021
	DefaultNameplateMW    = 1000
	defaultOutputDir      = "out"
	defaultGridCacheFile  = "data/grid_2021.csv"
	defaultPriceCacheFile = "data/lmp_2021.csv"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
	FormatPNG  = "png"
)

var (
	// ErrUnknownSource is returned for an unsupported grid or generation source.
	ErrUnknownSource = errors.New("impact config: unknown source")
	// ErrUnknownFormat is returned for an unsupported output format.
	ErrUnknownFormat = errors.New("impact config: unknown output format")
)

// SiteConfig describes the proposed wind farm.
type SiteConfig struct {
	Name        string  `yaml:"name" toml:"name"`
	Latitude    float64 `yaml:"latitude" toml:"latitude"`
	Longitude   float64 `yaml:"longitude" toml:"longitude"`
	NameplateMW float64 `yaml:"nameplate_mw" toml:"nameplate_mw"`
}

// InputConfig locates the raw data providers.
type InputConfig struct {
	GridSource       string `yaml:"grid_source" toml:"grid_source"`
	FuelMixDir       string `yaml:"fuel_mix_dir" toml:"fuel_mix_dir"`
	LMPDir           string `yaml:"lmp_dir" toml:"lmp_dir"`
	LocationID       int    `yaml:"location_id" toml:"location_id"`
	GenerationSource string `yaml:"generation_source" toml:"generation_source"`
	SAMFile          string `yaml:"sam_file" toml:"sam_file"`
	VERFile          string `yaml:"ver_file" toml:"ver_file"`
	VERColumn        string `yaml:"ver_column" toml:"ver_column"`
	EIAAPIKey        string `yaml:"eia_api_key" toml:"eia_api_key"`
	EIABaseURL       string `yaml:"eia_base_url" toml:"eia_base_url"`
	EIAConcurrency   int    `yaml:"eia_concurrency" toml:"eia_concurrency"`
	Year             int    `yaml:"year" toml:"year"`
}

// CacheConfig locates the normalized intermediate tables.
type CacheConfig struct {
	GridFile  string `yaml:"grid_file" toml:"grid_file"`
	PriceFile string `yaml:"price_file" toml:"price_file"`
	Refresh   bool   `yaml:"refresh" toml:"refresh"`
}

// EngineConfig holds the allocation parameters.
type EngineConfig struct {
	ThresholdPrice float64            `yaml:"threshold_price" toml:"threshold_price"`
	Mode           string             `yaml:"mode" toml:"mode"`
	FallbackFuel   string             `yaml:"fallback_fuel" toml:"fallback_fuel"`
	Strict         bool               `yaml:"strict" toml:"strict"`
	Rates          map[string]float64 `yaml:"rates" toml:"rates"`
}

// OutputConfig controls report files and metrics.
type OutputConfig struct {
	Dir         string   `yaml:"dir" toml:"dir"`
	Formats     []string `yaml:"formats" toml:"formats"`
	MetricsFile string   `yaml:"metrics_file" toml:"metrics_file"`
}

// DatabaseConfig enables run persistence when DSN is set.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" toml:"dsn"`
}

// Config is the run configuration.
type Config struct {
	Site     SiteConfig     `yaml:"site" toml:"site"`
	Input    InputConfig    `yaml:"input" toml:"input"`
	Cache    CacheConfig    `yaml:"cache" toml:"cache"`
	Engine   EngineConfig   `yaml:"engine" toml:"engine"`
	Output   OutputConfig   `yaml:"output" toml:"output"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	LogLevel string         `yaml:"log_level" toml:"log_level"`
}

// DefaultConfig returns the King Pine defaults.
func DefaultConfig() Config {
	return Config{
		Site: SiteConfig{
			Name:        "King Pine",
			Latitude:    46.918,
			Longitude:   -68.169,
			NameplateMW: DefaultNameplateMW,
		},
		Input: InputConfig{
			GridSource:       GridSourceISONE,
			FuelMixDir:       filepath.FromSlash("data/genfuelmix_2021"),
			LMPDir:           filepath.FromSlash("data/lmp_2021"),
			LocationID:       pricingisone.DefaultLocationID,
			GenerationSource: GenerationSourceSAM,
			SAMFile:          filepath.FromSlash("data/sam_king_pine.csv"),
			EIAConcurrency:   8,
			Year:             DefaultReferenceYear,
		},
		Cache: CacheConfig{
			GridFile:  filepath.FromSlash(defaultGridCacheFile),
			PriceFile: filepath.FromSlash(defaultPriceCacheFile),
		},
		Engine: EngineConfig{
			ThresholdPrice: emissions.DefaultThresholdPrice,
			Mode:           string(emissions.ModeMarginalRate),
			FallbackFuel:   string(fuelmix.DefaultFallbackFuel),
		},
		Output: OutputConfig{
			Dir:     defaultOutputDir,
			Formats: []string{FormatCSV, FormatXLSX, FormatPDF, FormatPNG},
		},
		LogLevel: "info",
	}
}

// LoadConfig reads path over the defaults, then applies IMPACT_* environment
// overrides. An empty path falls back to IMPACT_CONFIG. Files ending in .toml
// are decoded as TOML, everything else as YAML.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv("IMPACT_CONFIG")
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return cfg, fmt.Errorf("impact config: %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("impact config: %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Site.Name = getenvDefault("IMPACT_SITE_NAME", c.Site.Name)
	c.Site.NameplateMW = getenvFloatDefault("IMPACT_NAMEPLATE_MW", c.Site.NameplateMW)
	c.Input.GridSource = getenvDefault("IMPACT_GRID_SOURCE", c.Input.GridSource)
	c.Input.FuelMixDir = getenvDefault("IMPACT_FUEL_MIX_DIR", c.Input.FuelMixDir)
	c.Input.LMPDir = getenvDefault("IMPACT_LMP_DIR", c.Input.LMPDir)
	c.Input.LocationID = getenvIntDefault("IMPACT_LOCATION_ID", c.Input.LocationID)
	c.Input.GenerationSource = getenvDefault("IMPACT_GENERATION_SOURCE", c.Input.GenerationSource)
	c.Input.SAMFile = getenvDefault("IMPACT_SAM_FILE", c.Input.SAMFile)
	c.Input.VERFile = getenvDefault("IMPACT_VER_FILE", c.Input.VERFile)
	c.Input.EIAAPIKey = getenvDefault("IMPACT_EIA_API_KEY", c.Input.EIAAPIKey)
	c.Input.Year = getenvIntDefault("IMPACT_YEAR", c.Input.Year)
	c.Cache.GridFile = getenvDefault("IMPACT_GRID_CACHE", c.Cache.GridFile)
	c.Cache.PriceFile = getenvDefault("IMPACT_PRICE_CACHE", c.Cache.PriceFile)
	c.Engine.ThresholdPrice = getenvFloatDefault("IMPACT_THRESHOLD_PRICE", c.Engine.ThresholdPrice)
	c.Engine.Mode = getenvDefault("IMPACT_MODE", c.Engine.Mode)
	c.Engine.FallbackFuel = getenvDefault("IMPACT_FALLBACK_FUEL", c.Engine.FallbackFuel)
	c.Output.Dir = getenvDefault("IMPACT_OUTPUT_DIR", c.Output.Dir)
	c.Output.MetricsFile = getenvDefault("IMPACT_METRICS_FILE", c.Output.MetricsFile)
	if formats := splitCSV(os.Getenv("IMPACT_FORMATS")); len(formats) > 0 {
		c.Output.Formats = formats
	}
	c.Database.DSN = getenvDefault("IMPACT_PG_DSN", c.Database.DSN)
	c.LogLevel = getenvDefault("IMPACT_LOG_LEVEL", c.LogLevel)
}

// Validate checks source names, formats and engine parameters.
func (c Config) Validate() error {
	switch c.Input.GridSource {
	case GridSourceISONE, GridSourceEIA:
	default:
		return fmt.Errorf("%w: grid %q", ErrUnknownSource, c.Input.GridSource)
	}
	switch c.Input.GenerationSource {
	case GenerationSourceSAM, GenerationSourceVER:
	default:
		return fmt.Errorf("%w: generation %q", ErrUnknownSource, c.Input.GenerationSource)
	}
	for _, f := range c.Output.Formats {
		switch f {
		case FormatCSV, FormatXLSX, FormatPDF, FormatPNG:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}
	if c.Site.NameplateMW < 0 {
		return errors.New("impact config: nameplate_mw must be non-negative")
	}
	if strings.TrimSpace(c.Engine.FallbackFuel) == "" {
		return fuelmix.ErrEmptyFallbackFuel
	}
	_, err := c.EngineConfig()
	return err
}

// EngineConfig builds the allocation engine configuration.
func (c Config) EngineConfig() (emissions.Config, error) {
	mode, err := emissions.ParseMode(c.Engine.Mode)
	if err != nil {
		return emissions.Config{}, err
	}
	cfg := emissions.DefaultConfig()
	cfg.ThresholdPrice = c.Engine.ThresholdPrice
	cfg.Mode = mode
	cfg.Strict = c.Engine.Strict
	if len(c.Engine.Rates) > 0 {
		overrides := make(map[fuelmix.FuelCategory]float64, len(c.Engine.Rates))
		for fuel, rate := range c.Engine.Rates {
			overrides[fuelmix.FuelCategory(fuel)] = rate
		}
		rates, err := cfg.Rates.With(overrides)
		if err != nil {
			return emissions.Config{}, err
		}
		cfg.Rates = rates
	}
	if err := cfg.Validate(); err != nil {
		return emissions.Config{}, err
	}
	return cfg, nil
}

// FallbackFuel returns the configured fallback marginal fuel.
func (c Config) FallbackFuel() fuelmix.FuelCategory {
	return fuelmix.FuelCategory(strings.TrimSpace(c.Engine.FallbackFuel))
}

// HasFormat reports whether f is among the output formats.
func (c Config) HasFormat(f string) bool {
	for _, v := range c.Output.Formats {
		if v == f {
			return true
		}
	}
	return false
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	if value == "" {
		return nil
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
