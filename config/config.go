package config

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	e "perfdash/data/extensions"
)

const (
	EnvPrefix = "PERFDASH"

	SourceCSV          = "csv"
	SourceAlphaVantage = "alphavantage"
	SourceYahoo        = "yahoo"
	SourceAlpaca       = "alpaca"
)

var Sources = []string{SourceCSV, SourceAlphaVantage, SourceYahoo, SourceAlpaca}

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Addr               string        `mapstructure:"addr"`
	Source             string        `mapstructure:"source"`
	CsvPath            string        `mapstructure:"csv_path"`
	AlphaVantageApiKey string        `mapstructure:"alphavantage_api_key"`
	AlpacaApiKey       string        `mapstructure:"alpaca_api_key"`
	AlpacaSecretKey    string        `mapstructure:"alpaca_secret_key"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	CorsOrigins        []string      `mapstructure:"cors_origins"`
	DefaultStart       string        `mapstructure:"default_start"`
}

// LoadDotEnv reads a .env file into the environment if one exists
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf(".env not loaded: %v", err)
	}
}

// NewViper returns a viper instance with every key defaulted and bound to PERFDASH_ env vars
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("source", SourceYahoo)
	v.SetDefault("csv_path", "")
	v.SetDefault("alphavantage_api_key", "")
	v.SetDefault("alpaca_api_key", "")
	v.SetDefault("alpaca_secret_key", "")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("cache_ttl", 15*time.Minute)
	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("default_start", "2019-01-01")

	// the unprefixed provider variables still work
	_ = v.BindEnv("alphavantage_api_key", EnvPrefix+"_ALPHAVANTAGE_API_KEY", "ALPHAVANTAGE_API_KEY")
	_ = v.BindEnv("alpaca_api_key", EnvPrefix+"_ALPACA_API_KEY", "APCA_API_KEY_ID")
	_ = v.BindEnv("alpaca_secret_key", EnvPrefix+"_ALPACA_SECRET_KEY", "APCA_API_SECRET_KEY")

	return v
}

// Load unmarshals and validates the configuration held by v
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error reading configuration: %w", err)
	}

	cfg.Source = strings.ToLower(strings.TrimSpace(cfg.Source))
	cfg.CorsOrigins = cleanOrigins(cfg.CorsOrigins)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if !slices.Contains(Sources, c.Source) {
		return fmt.Errorf("%w: unknown source %q, expected one of %v", ErrInvalidConfig, c.Source, strings.Join(Sources, ", "))
	}

	switch c.Source {
	case SourceCSV:
		if c.CsvPath == "" {
			return fmt.Errorf("%w: csv source needs csv_path", ErrInvalidConfig)
		}
	case SourceAlphaVantage:
		if c.AlphaVantageApiKey == "" {
			return fmt.Errorf("%w: alphavantage source needs alphavantage_api_key", ErrInvalidConfig)
		}
	case SourceAlpaca:
		if c.AlpacaApiKey == "" || c.AlpacaSecretKey == "" {
			return fmt.Errorf("%w: alpaca source needs alpaca_api_key and alpaca_secret_key", ErrInvalidConfig)
		}
	}

	if c.RequestTimeout < 0 || c.CacheTTL < 0 {
		return fmt.Errorf("%w: durations cannot be negative", ErrInvalidConfig)
	}

	if _, err := e.ParseShort(c.DefaultStart); err != nil {
		return fmt.Errorf("%w: default_start: %v", ErrInvalidConfig, err)
	}

	return nil
}

// DefaultRange is default_start to the start of tomorrow, so today's close is included
func (c Config) DefaultRange(now time.Time) (time.Time, time.Time) {
	start, err := e.ParseShort(c.DefaultStart)
	if err != nil {
		start = time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return start, e.TruncateDay(now).AddDate(0, 0, 1)
}

// env values arrive as one comma separated string
func cleanOrigins(origins []string) []string {
	res := make([]string, 0, len(origins))
	for _, o := range origins {
		res = append(res, e.SplitList(o)...)
	}
	return res
}
