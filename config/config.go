// Package config loads library configuration from a YAML file with
// environment-variable overrides. A missing file is not an error; env vars
// alone can configure everything.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from "15m"-style strings in
// both YAML and environment variables.
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	parsed, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds everything the library needs to connect and behave.
type Config struct {
	Discord    DiscordConfig    `yaml:"discord"`
	Resolution ResolutionConfig `yaml:"resolution"`
	Components ComponentsConfig `yaml:"components"`
}

// DiscordConfig holds connection and registration settings.
type DiscordConfig struct {
	Token string `yaml:"token" env:"DISCORD_TOKEN"`
	AppID string `yaml:"app_id" env:"DISCORD_APP_ID"`
	// DebugGuildID redirects global commands to one guild for instant
	// registration updates during development.
	DebugGuildID string `yaml:"debug_guild_id" env:"DISCORD_DEBUG_GUILD_ID"`
}

// ResolutionConfig tunes the entity resolution policy.
type ResolutionConfig struct {
	// ResolveNotFetch prefers the interaction's resolved payload over
	// cache and network.
	ResolveNotFetch bool `yaml:"resolve_not_fetch" env:"SLASH_RESOLVE_NOT_FETCH"`
	// FetchIfNotGet falls back to an API fetch on cache misses.
	FetchIfNotGet bool `yaml:"fetch_if_not_get" env:"SLASH_FETCH_IF_NOT_GET"`
}

// ComponentsConfig tunes component-callback bookkeeping.
type ComponentsConfig struct {
	// CallbackTTL is how long a component callback stays registered.
	CallbackTTL Duration `yaml:"callback_ttl" env:"SLASH_COMPONENT_TTL"`
}

// Default returns the configuration used when file and environment are
// silent.
func Default() *Config {
	return &Config{
		Resolution: ResolutionConfig{ResolveNotFetch: true},
		Components: ComponentsConfig{CallbackTTL: Duration(15 * time.Minute)},
	}
}

// Load reads the YAML file at path (skipped when path is empty or the file
// is absent), then applies environment overrides. A .env file in the
// working directory is honored first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings a standalone bot needs. A library embedding
// on an already-open session may skip it.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord token is not set")
	}
	return nil
}
