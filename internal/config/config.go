package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"archscan/internal/quality"
	"archscan/internal/scanners"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "archscan.yaml"

type Config struct {
	Project      Project      `yaml:"project"`
	Repositories []Repository `yaml:"repositories" validate:"dive"`
	Scanners     Scanners     `yaml:"scanners"`
	Logging      Logging      `yaml:"logging"`
	Storage      Storage      `yaml:"storage"`
	Quality      Quality      `yaml:"quality"`
}

type Project struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Root        string `yaml:"root" validate:"required"`
	Description string `yaml:"description"`
}

// Repository is an extra source root scanned with the project.
type Repository struct {
	Name string `yaml:"name" validate:"required"`
	Path string `yaml:"path" validate:"required"`
	URL  string `yaml:"url" validate:"omitempty,url"`
}

type Scanners struct {
	Mode        string                    `yaml:"mode" validate:"oneof=auto groups explicit"`
	Enabled     []string                  `yaml:"enabled"`
	Groups      []string                  `yaml:"groups"`
	Concurrency int                       `yaml:"concurrency" validate:"gte=1,lte=64"`
	Timeout     string                    `yaml:"timeout"`
	Config      map[string]map[string]any `yaml:"config"`
}

type Logging struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type Storage struct {
	Path string `yaml:"path" validate:"required"`
}

type Quality struct {
	MinCoverage float64 `yaml:"min_coverage" validate:"gte=0,lte=100"`
	// MaxErrors below zero disables the error limit.
	MaxErrors int `yaml:"max_errors" validate:"gte=-1"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Project:  Project{Root: "."},
		Scanners: Scanners{Mode: scanners.ModeAuto, Concurrency: 1},
		Logging:  Logging{Level: "info", Format: "text"},
		Storage:  Storage{Path: ".archscan/archscan.db"},
		Quality:  Quality{MaxErrors: -1},
	}
}

// Load reads .env, then the YAML file at path on top of the defaults, then
// ARCHSCAN_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ARCHSCAN_ROOT"); v != "" {
		cfg.Project.Root = v
	}
	if v := os.Getenv("ARCHSCAN_PROJECT_NAME"); v != "" {
		cfg.Project.Name = v
	}
	if v := os.Getenv("ARCHSCAN_SCANNER_MODE"); v != "" {
		cfg.Scanners.Mode = v
	}
	if v := os.Getenv("ARCHSCAN_SCANNERS"); v != "" {
		cfg.Scanners.Enabled = splitList(v)
	}
	if v := os.Getenv("ARCHSCAN_GROUPS"); v != "" {
		cfg.Scanners.Groups = splitList(v)
	}
	if v := os.Getenv("ARCHSCAN_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scanners.Concurrency = n
		}
	}
	if v := os.Getenv("ARCHSCAN_TIMEOUT"); v != "" {
		cfg.Scanners.Timeout = v
	}
	if v := os.Getenv("ARCHSCAN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ARCHSCAN_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := os.Getenv("ARCHSCAN_DB"); v != "" {
		cfg.Storage.Path = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the scanner selection. Every problem
// is reported, joined.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var fields validator.ValidationErrors
		if !errors.As(err, &fields) {
			return err
		}
		for _, f := range fields {
			errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", f.Namespace(), f.Tag(), f.Value()))
		}
	}
	if _, err := c.ScannerTimeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Selection(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ScannerTimeout parses scanners.timeout. Empty means no limit.
func (c *Config) ScannerTimeout() (time.Duration, error) {
	if c.Scanners.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Scanners.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("scanners.timeout: invalid duration %q", c.Scanners.Timeout)
	}
	return d, nil
}

// Selection resolves the scanner mode into an allow-list of ids. A nil list
// selects every scanner.
func (c *Config) Selection() ([]string, error) {
	ids, err := scanners.Resolve(c.Scanners.Mode, c.Scanners.Enabled, c.Scanners.Groups)
	if err != nil {
		return nil, fmt.Errorf("scanners: %w", err)
	}
	return ids, nil
}

// RepositoryPaths lists the extra source roots, relative to the project root
// unless absolute.
func (c *Config) RepositoryPaths() []string {
	var paths []string
	for _, r := range c.Repositories {
		paths = append(paths, r.Path)
	}
	return paths
}

// ScannerConfig flattens the per-scanner settings into the map handed to the
// scan context, keyed by scanner id.
func (c *Config) ScannerConfig() map[string]any {
	out := make(map[string]any, len(c.Scanners.Config))
	for id, settings := range c.Scanners.Config {
		out[id] = settings
	}
	return out
}

// Gate builds the quality gate from the quality section.
func (c *Config) Gate() quality.Gate {
	return quality.Gate{MinCoverage: c.Quality.MinCoverage, MaxErrors: c.Quality.MaxErrors}
}
