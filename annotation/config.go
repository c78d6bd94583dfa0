package annotation

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// DatabaseURLEnv overrides storage.dsn when set
const DatabaseURLEnv = "APONTADOR_DATABASE_URL"

const (
	StorageCSV      = "csv"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

type Config struct {
	Meta struct {
		Description string `yaml:"description"`
	} `yaml:"meta"`
	Images   ConfigImages           `yaml:"images"`
	Display  ConfigDisplay          `yaml:"display"`
	Storage  ConfigStorage          `yaml:"storage"`
	Raters   map[string]*ConfigRater `yaml:"raters"`
	Language string                 `yaml:"language"`

	// BaseDir is the directory relative paths are resolved against
	BaseDir string `yaml:"-"`
}

type ConfigImages struct {
	Dir     string `yaml:"dir"`
	Pattern string `yaml:"pattern"`
	// Overlay locates the CAM overlay of an item, {id} is replaced by the item id
	Overlay string `yaml:"overlay"`
}

type ConfigDisplay struct {
	Width     int     `yaml:"width"`
	Radius    int     `yaml:"radius"`
	Fill      string  `yaml:"fill"`
	FillAlpha float64 `yaml:"fill_alpha"`
	Stroke    string  `yaml:"stroke"`
	StrokePx  int     `yaml:"stroke_px"`
}

type ConfigStorage struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type ConfigRater struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

const (
	MinDisplayWidth = 400
	MaxDisplayWidth = 1200
	MinRadius       = 10
	MaxRadius       = 120
)

var raterKeyRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

func LoadConfig(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	ret, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("while parsing config '%s': %w", filename, err)
	}
	ret.BaseDir = filepath.Dir(filename)

	envFile := filepath.Join(ret.BaseDir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("while loading '%s': %w", envFile, err)
		}
	}
	if dsn := os.Getenv(DatabaseURLEnv); dsn != "" {
		ret.Storage.DSN = dsn
	}
	if ret.Storage.Driver == StoragePostgres && ret.Storage.DSN == "" {
		return nil, fmt.Errorf("storage driver postgres needs storage.dsn or %s", DatabaseURLEnv)
	}
	return ret, nil
}

// ParseConfig decodes a YAML config, fills in defaults and validates it
func ParseConfig(data []byte) (*Config, error) {
	var ret Config
	if err := yaml.Unmarshal(data, &ret); err != nil {
		return nil, err
	}
	ret.BaseDir = "."
	ret.setDefaults()
	if err := ret.validate(); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (c *Config) setDefaults() {
	if c.Images.Dir == "" {
		c.Images.Dir = "test"
	}
	if c.Images.Pattern == "" {
		c.Images.Pattern = "*/*.*"
	}
	if c.Display.Width == 0 {
		c.Display.Width = 900
	}
	if c.Display.Radius == 0 {
		c.Display.Radius = 40
	}
	if c.Display.Fill == "" {
		c.Display.Fill = "#ffd700"
	}
	if c.Display.FillAlpha == 0 {
		c.Display.FillAlpha = 0.2
	}
	if c.Display.Stroke == "" {
		c.Display.Stroke = "#ffd700"
	}
	if c.Display.StrokePx == 0 {
		c.Display.StrokePx = 2
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageCSV
	}
	if c.Storage.Path == "" {
		switch c.Storage.Driver {
		case StorageSQLite:
			c.Storage.Path = "annotations.db"
		default:
			c.Storage.Path = "clicks"
		}
	}
	if c.Language == "" {
		c.Language = "en"
	}
	for key, rater := range c.Raters {
		if rater == nil {
			rater = &ConfigRater{}
			c.Raters[key] = rater
		}
		if rater.Name == "" {
			rater.Name = key
		}
	}
}

func (c *Config) validate() error {
	if len(c.Raters) == 0 {
		return fmt.Errorf("no raters specified")
	}
	seen := map[string]string{}
	for _, key := range c.RaterKeys() {
		if !raterKeyRegexp.MatchString(key) {
			return fmt.Errorf("rater key '%s' must be lowercase letters, digits, '.', '_' or '-'", key)
		}
		names := append([]string{key, c.Raters[key].Name}, c.Raters[key].Aliases...)
		for _, name := range names {
			name = strings.ToLower(strings.TrimSpace(name))
			if other, ok := seen[name]; ok && other != key {
				return fmt.Errorf("alias '%s' is used by raters '%s' and '%s'", name, other, key)
			}
			seen[name] = key
		}
	}
	if c.Display.Width < MinDisplayWidth || c.Display.Width > MaxDisplayWidth {
		return fmt.Errorf("display.width must be between %d and %d, got %d", MinDisplayWidth, MaxDisplayWidth, c.Display.Width)
	}
	if c.Display.Radius < MinRadius || c.Display.Radius > MaxRadius {
		return fmt.Errorf("display.radius must be between %d and %d, got %d", MinRadius, MaxRadius, c.Display.Radius)
	}
	if c.Display.FillAlpha < 0 || c.Display.FillAlpha > 1 {
		return fmt.Errorf("display.fill_alpha must be between 0 and 1, got %g", c.Display.FillAlpha)
	}
	for field, hex := range map[string]string{"fill": c.Display.Fill, "stroke": c.Display.Stroke} {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("display.%s: '%s' is not a hex colour", field, hex)
		}
	}
	switch c.Storage.Driver {
	case StorageCSV, StorageSQLite, StoragePostgres:
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	if c.Images.Overlay != "" && !strings.Contains(c.Images.Overlay, "{id}") {
		return fmt.Errorf("images.overlay must contain {id}")
	}
	return nil
}

// RaterKeys returns the configured rater keys in a stable order
func (c *Config) RaterKeys() []string {
	keys := make([]string, 0, len(c.Raters))
	for key := range c.Raters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ResolveRater finds the rater key for an alias, a key or a display name, ignoring case
func (c *Config) ResolveRater(alias string) (string, bool) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if alias == "" {
		return "", false
	}
	for _, key := range c.RaterKeys() {
		rater := c.Raters[key]
		if alias == key || alias == strings.ToLower(rater.Name) {
			return key, true
		}
		for _, a := range rater.Aliases {
			if alias == strings.ToLower(strings.TrimSpace(a)) {
				return key, true
			}
		}
	}
	return "", false
}

// Resolve makes a path from the config relative to the config directory
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.BaseDir, p)
}

// ImagesDir is the resolved images directory
func (c *Config) ImagesDir() string {
	return c.Resolve(c.Images.Dir)
}
