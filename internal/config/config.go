// Package config loads the settings of github-digest from a config file,
// environment variables and a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = ".github-digest"
	configType = "yaml"
	envPrefix  = "DIGEST"
)

// Defaults.
const (
	DefaultTicketPrefix = "CHE"
	DefaultTicketAPIURL = "https://api.linear.app/graphql"
	DefaultTimezone     = "Local"
	DefaultFormat       = "text"
	DefaultConcurrency  = 4
)

// Config is the top-level configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	GitHub      GitHubConfig `mapstructure:"github"`
	Ticket      TicketConfig `mapstructure:"ticket"`
	Timezone    string       `mapstructure:"timezone"`
	Format      string       `mapstructure:"format"`
	Concurrency int          `mapstructure:"concurrency"`
}

// GitHubConfig holds the GitHub credentials and scope.
type GitHubConfig struct {
	Token string `mapstructure:"token"`
	Org   string `mapstructure:"org"`
	User  string `mapstructure:"user"`
}

// TicketConfig holds the ticket system settings.
type TicketConfig struct {
	Prefix string `mapstructure:"prefix"`
	APIURL string `mapstructure:"api_url"`
	Token  string `mapstructure:"token"`
}

// Load reads configuration from defaults, an optional config file, the
// environment and a .env file in the working directory. If configPath is
// empty the file is searched in CWD and $HOME. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Conventional variable names are honoured next to the prefixed ones.
	if err := v.BindEnv("github.token", "DIGEST_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}
	if err := v.BindEnv("ticket.token", "DIGEST_TICKET_TOKEN", "LINEAR_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("github.token", "")
	v.SetDefault("github.org", "")
	v.SetDefault("github.user", "")
	v.SetDefault("ticket.prefix", DefaultTicketPrefix)
	v.SetDefault("ticket.api_url", DefaultTicketAPIURL)
	v.SetDefault("ticket.token", "")
	v.SetDefault("timezone", DefaultTimezone)
	v.SetDefault("format", DefaultFormat)
	v.SetDefault("concurrency", DefaultConcurrency)
}

// Validate checks values that cannot be fixed up later.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the time zone the target date is interpreted in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// HasTicketSystem returns true if ticket titles can be looked up.
func (c *Config) HasTicketSystem() bool {
	return c.Ticket.Token != "" && c.Ticket.APIURL != ""
}
