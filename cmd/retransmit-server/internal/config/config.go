// Package config provides configuration management for the retransmission server.
// It loads settings from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the retransmission server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Kafka      KafkaConfig
	Retransmit RetransmitConfig
	Log        LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver   string // mysql, postgres, sqlite3
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefix   string // Table prefix (default: "retransmit_")
	Migrate  bool   // Apply embedded migrations on startup
}

// KafkaConfig holds the broker clusters, one per data center.
type KafkaConfig struct {
	Clusters map[string][]string // Cluster name -> seed brokers
	PoolSize int                 // Clients per cluster
}

// RetransmitConfig holds engine settings.
type RetransmitConfig struct {
	Concurrency   int           // Partitions resolved at the same time
	CallTimeout   time.Duration // Bound of every broker and store call
	Namespace     string        // Log name prefix
	GroupPattern  string        // Consumer group pattern
	PollAttempts  int           // Convergence checks for wait=true
	PollBaseDelay time.Duration // First wait between checks
	PollMaxDelay  time.Duration // Maximum wait between checks
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string // debug, info, warn, error
	Pretty bool   // Human-readable console output instead of JSON
}

// Load loads configuration from environment variables.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	clusters, err := ParseClusters(getEnv("KAFKA_CLUSTERS", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "mysql"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "retransmit"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "retransmit"),
			Prefix:   getEnv("DB_PREFIX", "retransmit_"),
			Migrate:  getEnvBool("DB_MIGRATE", true),
		},
		Kafka: KafkaConfig{
			Clusters: clusters,
			PoolSize: getEnvInt("KAFKA_POOL_SIZE", 4),
		},
		Retransmit: RetransmitConfig{
			Concurrency:   getEnvInt("RETRANSMIT_CONCURRENCY", 16),
			CallTimeout:   getEnvDuration("RETRANSMIT_CALL_TIMEOUT", 10*time.Second),
			Namespace:     getEnv("RETRANSMIT_NAMESPACE", ""),
			GroupPattern:  getEnv("RETRANSMIT_GROUP_PATTERN", "{topic}_{subscription}"),
			PollAttempts:  getEnvInt("RETRANSMIT_POLL_ATTEMPTS", 20),
			PollBaseDelay: getEnvDuration("RETRANSMIT_POLL_BASE_DELAY", 500*time.Millisecond),
			PollMaxDelay:  getEnvDuration("RETRANSMIT_POLL_MAX_DELAY", 30*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
	}

	// Validate required fields
	if len(cfg.Kafka.Clusters) == 0 {
		return nil, fmt.Errorf("KAFKA_CLUSTERS environment variable is required")
	}
	if cfg.Database.Password == "" && strings.ToLower(cfg.Database.Driver) != "sqlite3" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is required")
	}
	if cfg.Retransmit.Concurrency <= 0 {
		return nil, fmt.Errorf("RETRANSMIT_CONCURRENCY must be > 0, got %d", cfg.Retransmit.Concurrency)
	}

	return cfg, nil
}

// ClusterNames returns the configured cluster names, sorted.
func (c *KafkaConfig) ClusterNames() []string {
	names := make([]string, 0, len(c.Clusters))
	for name := range c.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseClusters parses "dc1=host1:9092,host2:9092;dc2=host3:9092".
// An empty value yields no clusters.
func ParseClusters(value string) (map[string][]string, error) {
	clusters := make(map[string][]string)
	for _, entry := range strings.Split(value, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		name, brokers, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid KAFKA_CLUSTERS entry %q, expected name=broker[,broker]", entry)
		}
		if _, dup := clusters[name]; dup {
			return nil, fmt.Errorf("duplicate cluster %q in KAFKA_CLUSTERS", name)
		}

		var seeds []string
		for _, broker := range strings.Split(brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				seeds = append(seeds, broker)
			}
		}
		if len(seeds) == 0 {
			return nil, fmt.Errorf("cluster %q has no brokers", name)
		}
		clusters[name] = seeds
	}
	return clusters, nil
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves environment variable as boolean or returns default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration retrieves environment variable as duration ("10s", "500ms") or returns default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
