package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Redis        RedisConfig
	Orchestrator OrchestratorConfig
	Correlation  CorrelationConfig
	Cache        CacheConfig
	Modules      []ModuleConfig
	Logging      LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type OrchestratorConfig struct {
	ProbeTimeoutSec  int
	MaxAttempts      int
	InitialBackoffMS int
	MaxBackoffMS     int
	GracePeriodSec   int
	CallsPerMinute   int
}

type CorrelationConfig struct {
	LexicalWeight       float64
	TemporalWeight      float64
	CorroborationWeight float64
	LinkThreshold       float64
	DistinctThreshold   float64
	EvidenceSaturation  int
}

type CacheConfig struct {
	ReportTTLMinutes int
}

// ModuleConfig declares one external evidence module reachable over HTTP.
type ModuleConfig struct {
	ID           string
	Endpoint     string
	APIKey       string
	Capabilities []string
	TimeoutSec   int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/osint-brain")

	viper.SetEnvPrefix("OSINT_BRAIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("orchestrator.probeTimeoutSec", 10)
	viper.SetDefault("orchestrator.maxAttempts", 3)
	viper.SetDefault("orchestrator.initialBackoffMS", 200)
	viper.SetDefault("orchestrator.maxBackoffMS", 5000)
	viper.SetDefault("orchestrator.gracePeriodSec", 2)
	viper.SetDefault("orchestrator.callsPerMinute", 60)

	viper.SetDefault("correlation.lexicalWeight", 0.4)
	viper.SetDefault("correlation.temporalWeight", 0.3)
	viper.SetDefault("correlation.corroborationWeight", 0.3)
	viper.SetDefault("correlation.linkThreshold", 0.75)
	viper.SetDefault("correlation.distinctThreshold", 0.25)
	viper.SetDefault("correlation.evidenceSaturation", 3)

	viper.SetDefault("cache.reportTTLMinutes", 30)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
