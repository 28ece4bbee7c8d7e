package cmd

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/ai/gemini"
	"github.com/spigell/gigmatch/internal/logger"
)

const (
	app       = "gigmatch"
	envPrefix = "GIGMATCH"
)

type Config struct {
	Store    *StoreConfig    `mapstructure:"store"`
	AI       *AIConfig       `mapstructure:"ai"`
	Matching *MatchingConfig `mapstructure:"matching"`
	Indexer  *IndexerConfig  `mapstructure:"indexer"`
	Server   *ServerConfig   `mapstructure:"server"`
}

type StoreConfig struct {
	// Driver is postgres or rest.
	Driver     string `mapstructure:"driver"`
	URL        string `mapstructure:"url"`
	URLFile    string `mapstructure:"url-file"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	MaxConns   int32  `mapstructure:"max-conns"`
	Migrate    bool   `mapstructure:"migrate"`
}

type AIConfig struct {
	Gemini *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey         string                 `mapstructure:"api-key"`
	APIKeyFile     string                 `mapstructure:"api-key-file"`
	Model          string                 `mapstructure:"model"`
	EmbeddingModel string                 `mapstructure:"embedding-model"`
	Dimensions     int                    `mapstructure:"dimensions"`
	MaxRetries     int                    `mapstructure:"max-retries"`
	MaxLogLength   int                    `mapstructure:"max-log-length"`
	Prompt         gemini.PromptOverrides `mapstructure:"prompt"`
}

type MatchingConfig struct {
	DefaultLimit       int            `mapstructure:"default-limit"`
	Threshold          float64        `mapstructure:"threshold"`
	StrictFilters      bool           `mapstructure:"strict-filters"`
	Explain            bool           `mapstructure:"explain"`
	ExplainConcurrency int            `mapstructure:"explain-concurrency"`
	Timeouts           TimeoutsConfig `mapstructure:"timeouts"`
}

type TimeoutsConfig struct {
	Embedding   time.Duration `mapstructure:"embedding"`
	Store       time.Duration `mapstructure:"store"`
	Explanation time.Duration `mapstructure:"explanation"`
}

type IndexerConfig struct {
	Schedule string        `mapstructure:"schedule"`
	Batch    int           `mapstructure:"batch"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Addr    string `mapstructure:"addr"`
	// Indexer runs the index scheduler next to the HTTP API.
	Indexer bool   `mapstructure:"indexer"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "gigmatch ranks freelancers for client jobs by embedding similarity, availability and location",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is gigmatch.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults()
}

// setDefaults registers every key so that GIGMATCH_* variables are picked up by Unmarshal.
func setDefaults() {
	viper.SetDefault("store.driver", "postgres")
	viper.SetDefault("store.url", "")
	viper.SetDefault("store.url-file", "")
	viper.SetDefault("store.api-key", "")
	viper.SetDefault("store.api-key-file", "")
	viper.SetDefault("store.max-conns", 10)
	viper.SetDefault("store.migrate", false)

	viper.SetDefault("ai.gemini.api-key", "")
	viper.SetDefault("ai.gemini.api-key-file", "")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.embedding-model", "gemini-embedding-001")
	viper.SetDefault("ai.gemini.dimensions", gemini.DefaultDimensions)
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("ai.gemini.prompt.tone", "")
	viper.SetDefault("ai.gemini.prompt.language", "")
	viper.SetDefault("ai.gemini.prompt.user-instructions", "")

	viper.SetDefault("matching.default-limit", 5)
	viper.SetDefault("matching.threshold", 0.5)
	viper.SetDefault("matching.strict-filters", true)
	viper.SetDefault("matching.explain", true)
	viper.SetDefault("matching.explain-concurrency", 4)
	viper.SetDefault("matching.timeouts.embedding", "10s")
	viper.SetDefault("matching.timeouts.store", "10s")
	viper.SetDefault("matching.timeouts.explanation", "30s")

	viper.SetDefault("indexer.schedule", "@every 1h")
	viper.SetDefault("indexer.batch", 50)
	viper.SetDefault("indexer.timeout", "30s")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.indexer", false)
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// version needs no configuration.
	if versionCmd.CalledAs() != "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Without an explicit --config the file is optional and env variables are enough.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("config is empty")
	}

	if config.Store == nil {
		config.Store = &StoreConfig{}
	}
	if config.AI == nil || config.AI.Gemini == nil {
		return nil, errors.New("ai.gemini section is required")
	}
	if config.Matching == nil {
		config.Matching = &MatchingConfig{}
	}
	if config.Indexer == nil {
		config.Indexer = &IndexerConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	if t := config.Matching.Threshold; t < -1 || t > 1 {
		return nil, fmt.Errorf("matching.threshold must be between -1 and 1, got %v", t)
	}

	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}
