package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Server struct {
	Port              string `mapstructure:"port"`
	RequestTimeoutSec int    `mapstructure:"request_timeout_sec"`
}

// Providers holds one optional credential per premium upstream. An empty key
// means that provider is simply not registered.
type Providers struct {
	PolygonKey      string `mapstructure:"polygon_key"`
	FinnhubKey      string `mapstructure:"finnhub_key"`
	AlphaVantageKey string `mapstructure:"alpha_vantage_key"`
	Primary         string `mapstructure:"primary"`
}

type Config struct {
	Server    Server    `mapstructure:"server"`
	Providers Providers `mapstructure:"providers"`
}

// Load reads tickerpulse.yaml (from path, ./config or .) with environment
// overrides under the TICKERPULSE_ prefix, e.g. TICKERPULSE_SERVER_PORT.
// The provider key variables also bind to their conventional names
// (POLYGON_API_KEY, FINNHUB_API_KEY, ALPHA_VANTAGE_KEY) so keys stay out of
// config files. A missing config file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.request_timeout_sec", 10)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("tickerpulse")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TICKERPULSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, env := range map[string]string{
		"providers.polygon_key":       "POLYGON_API_KEY",
		"providers.finnhub_key":       "FINNHUB_API_KEY",
		"providers.alpha_vantage_key": "ALPHA_VANTAGE_KEY",
		"providers.primary":           "PRIMARY_PROVIDER",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
