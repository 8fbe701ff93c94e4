// Package config loads application configuration from file, environment, and
// defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"notedup/internal/similarity"
)

// Config holds all application configuration.
type Config struct {
	App        App        `mapstructure:"app"`
	History    History    `mapstructure:"history"`
	Similarity Similarity `mapstructure:"similarity"`
	Generation Generation `mapstructure:"generation"`
}

// App holds general application configuration.
type App struct {
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// History configures the article history store.
type History struct {
	// Backend selects the persister: "json" (single document file) or
	// "sqlite".
	Backend string `mapstructure:"backend"`
}

// Similarity configures the duplicate-detection thresholds and weights.
type Similarity struct {
	// Threshold is the quick-check duplicate threshold used by the
	// generation pipeline. Empirically chosen; tune freely.
	Threshold float64            `mapstructure:"threshold"`
	Weights   similarity.Weights `mapstructure:"weights"`
}

// Generation configures the retry coordinator.
type Generation struct {
	MaxRetries int `mapstructure:"max_retries"`
}

var globalConfig *Config

// Load reads configuration once; later calls return the cached config.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".notedup")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.SetEnvPrefix("NOTEDUP")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the loaded configuration, loading defaults if Load was never
// called explicitly.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load config, using defaults: %v\n", err)
			return defaultConfig()
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached configuration. Test helper.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", "data")

	viper.SetDefault("history.backend", "json")

	viper.SetDefault("similarity.threshold", 0.6)
	defaults := similarity.DefaultWeights()
	viper.SetDefault("similarity.weights.sequence_similarity", defaults.Sequence)
	viper.SetDefault("similarity.weights.cosine_similarity", defaults.Cosine)
	viper.SetDefault("similarity.weights.jaccard_similarity", defaults.Jaccard)
	viper.SetDefault("similarity.weights.keyword_similarity", defaults.Keyword)
	viper.SetDefault("similarity.weights.structure_similarity", defaults.Structure)

	viper.SetDefault("generation.max_retries", 3)
}

func defaultConfig() *Config {
	return &Config{
		App:        App{LogLevel: "info", DataDir: "data"},
		History:    History{Backend: "json"},
		Similarity: Similarity{Threshold: 0.6, Weights: similarity.DefaultWeights()},
		Generation: Generation{MaxRetries: 3},
	}
}

func validateConfig(config *Config) error {
	switch config.History.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("invalid history backend %q (expected json or sqlite)", config.History.Backend)
	}

	if config.Similarity.Threshold < 0 || config.Similarity.Threshold > 1 {
		return fmt.Errorf("similarity threshold must be in [0,1], got %f", config.Similarity.Threshold)
	}
	if err := config.Similarity.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid similarity weights: %w", err)
	}

	if config.Generation.MaxRetries < 1 {
		return fmt.Errorf("generation max_retries must be at least 1, got %d", config.Generation.MaxRetries)
	}
	return nil
}
