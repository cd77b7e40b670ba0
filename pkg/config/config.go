package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig          `mapstructure:"telegram"`
	Database DatabaseConfig          `mapstructure:"database"`
	OpenAI   OpenAIConfig            `mapstructure:"openai"`
	Engine   EngineConfig            `mapstructure:"engine"`
	Typing   map[string]TypingConfig `mapstructure:"typing"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type EngineConfig struct {
	MemoryLimit         int     `mapstructure:"memory_limit"`
	GenerationTimeoutMs int     `mapstructure:"generation_timeout_ms"`
	TrustDeltaNormal    float64 `mapstructure:"trust_delta_normal"`
	TrustDeltaCrisis    float64 `mapstructure:"trust_delta_crisis"`
	Timezone            string  `mapstructure:"timezone"`
	SessionIdleMinutes  int     `mapstructure:"session_idle_minutes"`
	SweepIntervalMin    int     `mapstructure:"sweep_interval_minutes"`
}

// TypingConfig is a named typing profile, keyed by therapist personality.
type TypingConfig struct {
	BaseDelayMs          int  `mapstructure:"base_delay_ms"`
	CharacterVariationMs int  `mapstructure:"character_variation_ms"`
	PunctuationPauseMs   int  `mapstructure:"punctuation_pause_ms"`
	ThinkingPauses       bool `mapstructure:"thinking_pauses_enabled"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 400)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("engine.memory_limit", 5)
	v.SetDefault("engine.generation_timeout_ms", 20000)
	v.SetDefault("engine.trust_delta_normal", 0.1)
	v.SetDefault("engine.trust_delta_crisis", 0.2)
	v.SetDefault("engine.timezone", "UTC")
	v.SetDefault("engine.session_idle_minutes", 30)
	v.SetDefault("engine.sweep_interval_minutes", 5)
	v.SetDefault("typing.default.base_delay_ms", 45)
	v.SetDefault("typing.default.character_variation_ms", 30)
	v.SetDefault("typing.default.punctuation_pause_ms", 350)
	v.SetDefault("typing.default.thinking_pauses_enabled", true)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	return &config, nil
}
