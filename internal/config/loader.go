package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are filled by Defaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`

	// Per-architecture metadata directories. Empty means <artifact dir>/model_data.
	MDXMetadataDir    string `json:"mdx_metadata_dir" yaml:"mdx_metadata_dir" toml:"mdx_metadata_dir"`
	VRMetadataDir     string `json:"vr_metadata_dir" yaml:"vr_metadata_dir" toml:"vr_metadata_dir"`
	DemucsMetadataDir string `json:"demucs_metadata_dir" yaml:"demucs_metadata_dir" toml:"demucs_metadata_dir"`
	VRParamsDir       string `json:"vr_params_dir" yaml:"vr_params_dir" toml:"vr_params_dir"`

	SeparatorCmd  []string `json:"separator_cmd" yaml:"separator_cmd" toml:"separator_cmd"`
	ReclaimCmd    []string `json:"reclaim_cmd" yaml:"reclaim_cmd" toml:"reclaim_cmd"`
	DefaultDevice string   `json:"default_device" yaml:"default_device" toml:"default_device"`

	LogLevel string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	Verbose  bool     `json:"verbose" yaml:"verbose" toml:"verbose"`
	MaxWait  Duration `json:"max_wait" yaml:"max_wait" toml:"max_wait"`

	CORSEnabled bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

const (
	DefaultAddr      = ":8080"
	DefaultModelsDir = "~/models/audio-separator"
	DefaultMaxWait   = 30 * time.Second
)

// Defaults fills unspecified fields.
func (c *Config) Defaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.DefaultDevice == "" {
		c.DefaultDevice = "auto"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MaxWait <= 0 {
		c.MaxWait = Duration(DefaultMaxWait)
	}
}

// ApplyEnv overlays STEMD_* environment variables onto fields that are still
// unset. Values from a config file win.
func (c *Config) ApplyEnv() {
	setStr := func(dst *string, key string) {
		if *dst == "" {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				*dst = v
			}
		}
	}
	setStr(&c.Addr, "STEMD_ADDR")
	setStr(&c.ModelsDir, "STEMD_MODELS_DIR")
	setStr(&c.MDXMetadataDir, "STEMD_MDX_METADATA_DIR")
	setStr(&c.VRMetadataDir, "STEMD_VR_METADATA_DIR")
	setStr(&c.DemucsMetadataDir, "STEMD_DEMUCS_METADATA_DIR")
	setStr(&c.VRParamsDir, "STEMD_VR_PARAMS_DIR")
	setStr(&c.DefaultDevice, "STEMD_DEVICE")
	setStr(&c.LogLevel, "STEMD_LOG_LEVEL")
	if len(c.SeparatorCmd) == 0 {
		c.SeparatorCmd = strings.Fields(os.Getenv("STEMD_SEPARATOR_CMD"))
	}
	if len(c.ReclaimCmd) == 0 {
		c.ReclaimCmd = strings.Fields(os.Getenv("STEMD_RECLAIM_CMD"))
	}
	if c.MaxWait <= 0 {
		if d, err := time.ParseDuration(os.Getenv("STEMD_MAX_WAIT")); err == nil && d > 0 {
			c.MaxWait = Duration(d)
		}
	}
	if !c.Verbose {
		c.Verbose, _ = strconv.ParseBool(os.Getenv("STEMD_VERBOSE"))
	}
	if len(c.CORSOrigins) == 0 {
		if v := os.Getenv("STEMD_CORS_ORIGINS"); v != "" {
			c.CORSEnabled = true
			for _, o := range strings.Split(v, ",") {
				if o = strings.TrimSpace(o); o != "" {
					c.CORSOrigins = append(c.CORSOrigins, o)
				}
			}
		}
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
