package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server          ServerConfig
	GRPC            GRPCConfig
	Worker          WorkerConfig
	Weather         WeatherConfig
	Alert           AlertConfig
	Mail            MailConfig
	Kafka           KafkaConfig
	Redis           RedisConfig
	DB              DatabaseConfig
	Logging         LoggingConfig
	ShutdownTimeout time.Duration
}

type GRPCConfig struct {
	Port int
}

type ServerConfig struct {
	Host          string
	Port          int
	RateLimitRPS  int
	AllowedOrigin string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type WeatherConfig struct {
	Enabled      bool
	BaseURL      string
	APIKey       string
	PollInterval time.Duration
	Timeout      time.Duration
}

type AlertConfig struct {
	SchedulerEnabled bool
	RunInterval      time.Duration
	RunTimeout       time.Duration
	Cooldown         time.Duration
	Workers          int
	CommitRetries    int
	LockTTL          time.Duration
}

type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", "localhost"),
			Port:          getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS:  getEnvInt("RATE_LIMIT_RPS", 5),
			AllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
		},
		GRPC: GRPCConfig{
			Port: getEnvInt("GRPC_PORT", 50051),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Weather: WeatherConfig{
			Enabled:      getEnvBool("WEATHER_ENABLED", false),
			BaseURL:      getEnv("WEATHER_BASE_URL", "https://api.openweathermap.org"),
			APIKey:       getEnv("OPENWEATHER_API_KEY", ""),
			PollInterval: getEnvDuration("WEATHER_POLL_INTERVAL", 30*time.Minute),
			Timeout:      getEnvDuration("WEATHER_TIMEOUT", 15*time.Second),
		},
		Alert: AlertConfig{
			SchedulerEnabled: getEnvBool("ALERT_SCHEDULER_ENABLED", true),
			RunInterval:      getEnvDuration("ALERT_RUN_INTERVAL", 15*time.Minute),
			RunTimeout:       getEnvDuration("ALERT_RUN_TIMEOUT", 10*time.Minute),
			Cooldown:         getEnvDuration("ALERT_COOLDOWN", 6*time.Hour),
			Workers:          getEnvInt("ALERT_WORKERS", 1),
			CommitRetries:    getEnvInt("ALERT_COMMIT_RETRIES", 3),
			LockTTL:          getEnvDuration("ALERT_LOCK_TTL", 15*time.Minute),
		},
		Mail: MailConfig{
			Enabled:  getEnvBool("MAIL_ENABLED", false),
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("ALERT_EMAIL_USER", ""),
			Password: getEnv("ALERT_EMAIL_PASS", ""),
			From:     getEnv("ALERT_EMAIL_FROM", getEnv("ALERT_EMAIL_USER", "")),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: parseList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getEnv("KAFKA_ALERT_TOPIC", "flood-alerts"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  getEnvDuration("REDIS_LOCK_TTL", 15*time.Minute),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/flood-alerts.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	if c.Server.RateLimitRPS < 1 {
		return fmt.Errorf("RATE_LIMIT_RPS must be at least 1")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}

	if c.Weather.PollInterval < time.Minute {
		return fmt.Errorf("weather poll interval must be at least 1 minute")
	}
	if c.Weather.Enabled && c.Weather.APIKey == "" {
		return fmt.Errorf("WEATHER_ENABLED is true but OPENWEATHER_API_KEY is not set")
	}

	if c.Alert.Cooldown <= 0 {
		return fmt.Errorf("ALERT_COOLDOWN must be positive")
	}
	if c.Alert.RunInterval < time.Minute {
		return fmt.Errorf("alert run interval must be at least 1 minute")
	}
	if c.Alert.RunTimeout <= 0 {
		return fmt.Errorf("ALERT_RUN_TIMEOUT must be positive")
	}
	if c.Alert.Workers < 1 {
		return fmt.Errorf("ALERT_WORKERS must be at least 1")
	}
	if c.Alert.CommitRetries < 0 {
		return fmt.Errorf("ALERT_COMMIT_RETRIES must not be negative")
	}

	if c.Mail.Enabled {
		if c.Mail.Host == "" || c.Mail.From == "" {
			return fmt.Errorf("MAIL_ENABLED is true but SMTP_HOST or ALERT_EMAIL_FROM is not set")
		}
	}

	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("KAFKA_ENABLED is true but KAFKA_BROKERS or KAFKA_ALERT_TOPIC is empty")
	}

	// the lock must outlive a full run or a second instance could start mid-run
	if c.Alert.LockTTL < c.Alert.RunTimeout {
		return fmt.Errorf("ALERT_LOCK_TTL (%s) must be at least ALERT_RUN_TIMEOUT (%s)", c.Alert.LockTTL, c.Alert.RunTimeout)
	}
	if c.Redis.Enabled && c.Redis.LockTTL < c.Alert.RunTimeout {
		return fmt.Errorf("REDIS_LOCK_TTL (%s) must be at least ALERT_RUN_TIMEOUT (%s)", c.Redis.LockTTL, c.Alert.RunTimeout)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
