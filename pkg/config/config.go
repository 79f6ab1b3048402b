package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for sitearchive
type Config struct {
	Source  SourceConfig  `mapstructure:"source"`
	Archive ArchiveConfig `mapstructure:"archive"`
}

// SourceConfig describes where the live site is cloned from.
type SourceConfig struct {
	Repo  string `mapstructure:"repo"`
	Ref   string `mapstructure:"ref"`
	Depth int    `mapstructure:"depth"`
}

// ArchiveConfig controls how the cloned tree is turned into a previous version.
type ArchiveConfig struct {
	OutputDir     string `mapstructure:"output_dir"`
	PreviousRoute string `mapstructure:"previous_route"`
	Manifest      string `mapstructure:"manifest"`
	SearchScript  string `mapstructure:"search_script"`
	Include       string `mapstructure:"include"`
	DomainMapping string `mapstructure:"domain_mapping"`
}

// DefaultRepo is the live ATT&CK website source.
const DefaultRepo = "https://github.com/mitre-attack/attack-website.git"

var defaultConfig = Config{
	Source: SourceConfig{
		Repo:  DefaultRepo,
		Ref:   "",
		Depth: 0,
	},
	Archive: ArchiveConfig{
		OutputDir:     ".",
		PreviousRoute: "previous",
		Manifest:      "archives.json",
		SearchScript:  "theme/scripts/search.js",
		Include:       "**/*.html",
		DomainMapping: "CNAME",
	},
}

// Default returns a copy of the built-in configuration.
func Default() Config {
	return defaultConfig
}

// Load reads configuration from defaults, an optional config file and
// SITEARCHIVE_* environment variables. When explicitPath is set the file must
// exist; otherwise sitearchive.yaml / .sitearchive.yaml are looked up in the
// working directory and $HOME and silently skipped when absent.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SITEARCHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", explicitPath, err)
		}
	} else if err := readDiscovered(v); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.repo", defaultConfig.Source.Repo)
	v.SetDefault("source.ref", defaultConfig.Source.Ref)
	v.SetDefault("source.depth", defaultConfig.Source.Depth)
	v.SetDefault("archive.output_dir", defaultConfig.Archive.OutputDir)
	v.SetDefault("archive.previous_route", defaultConfig.Archive.PreviousRoute)
	v.SetDefault("archive.manifest", defaultConfig.Archive.Manifest)
	v.SetDefault("archive.search_script", defaultConfig.Archive.SearchScript)
	v.SetDefault("archive.include", defaultConfig.Archive.Include)
	v.SetDefault("archive.domain_mapping", defaultConfig.Archive.DomainMapping)
}

func readDiscovered(v *viper.Viper) error {
	for _, name := range []string{"sitearchive", ".sitearchive"} {
		probe := viper.New()
		probe.SetConfigName(name)
		probe.SetConfigType("yaml")
		probe.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			probe.AddConfigPath(home)
		}
		if err := probe.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				continue
			}
			return fmt.Errorf("failed to read config: %w", err)
		}
		v.SetConfigFile(probe.ConfigFileUsed())
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", probe.ConfigFileUsed(), err)
		}
		return nil
	}
	return nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.Repo) == "" {
		return fmt.Errorf("source.repo is required")
	}
	if c.Source.Depth < 0 {
		return fmt.Errorf("source.depth must not be negative, got %d", c.Source.Depth)
	}
	route := strings.Trim(c.Archive.PreviousRoute, "/")
	if route == "" || strings.Contains(route, "/") {
		return fmt.Errorf("archive.previous_route must be a single path segment, got %q", c.Archive.PreviousRoute)
	}
	c.Archive.PreviousRoute = route
	if c.Archive.OutputDir == "" {
		c.Archive.OutputDir = "."
	}
	if c.Archive.Manifest == "" {
		return fmt.Errorf("archive.manifest is required")
	}
	if c.Archive.SearchScript == "" {
		return fmt.Errorf("archive.search_script is required")
	}
	if c.Archive.Include == "" {
		return fmt.Errorf("archive.include is required")
	}
	if c.Archive.DomainMapping == "" {
		return fmt.Errorf("archive.domain_mapping is required")
	}
	return nil
}
