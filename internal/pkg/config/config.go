package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration
type Config struct {
	Environment string

	Database DatabaseConfig
	Cache    CacheConfig
	Queue    QueueConfig
	Storage  StorageConfig
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	LogLevel        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // minutes
	MaxConnIdleTime int // minutes
}

// CacheConfig holds Redis cache settings
type CacheConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	DialTimeout  int // seconds
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	PoolSize     int
	MinIdleConns int
}

// QueueConfig holds Asynq / Redis queue settings
type QueueConfig struct {
	RedisHost      string
	RedisPort      int
	RedisPassword  string
	RedisDB        int
	DialTimeout    int // seconds
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	Concurrency    int
	StrictPriority bool
	MaxRetries     int
}

// StorageConfig holds local report storage settings
type StorageConfig struct {
	BasePath    string
	MaxFileSize int64 // MB
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found, using environment variables only")
		}
	}

	viper.SetDefault("ENV", "development")

	// Database defaults
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 5432)
	viper.SetDefault("DB_NAME", "offcuttrack")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_LOG_LEVEL", "silent")
	viper.SetDefault("DB_MAX_CONNECTIONS", 25)
	viper.SetDefault("DB_MIN_CONNECTIONS", 5)
	viper.SetDefault("DB_MAX_CONN_LIFETIME", 60)
	viper.SetDefault("DB_MAX_CONN_IDLE_TIME", 10)

	// Redis defaults (shared by cache and queue)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_DIAL_TIMEOUT", 5)
	viper.SetDefault("REDIS_READ_TIMEOUT", 3)
	viper.SetDefault("REDIS_WRITE_TIMEOUT", 3)
	viper.SetDefault("REDIS_POOL_SIZE", 10)
	viper.SetDefault("REDIS_MIN_IDLE_CONNS", 2)

	// Worker defaults
	viper.SetDefault("WORKER_CONCURRENCY", 10)
	viper.SetDefault("WORKER_MAX_RETRIES", 3)
	viper.SetDefault("WORKER_STRICT_PRIORITY", false)

	// Storage defaults
	viper.SetDefault("STORAGE_BASE_PATH", "/tmp/offcut-reports")
	viper.SetDefault("MAX_FILE_SIZE_MB", 50)

	viper.AutomaticEnv()

	cfg := &Config{
		Environment: viper.GetString("ENV"),
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Database:        viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			LogLevel:        viper.GetString("DB_LOG_LEVEL"),
			MaxConnections:  viper.GetInt("DB_MAX_CONNECTIONS"),
			MinConnections:  viper.GetInt("DB_MIN_CONNECTIONS"),
			MaxConnLifetime: viper.GetInt("DB_MAX_CONN_LIFETIME"),
			MaxConnIdleTime: viper.GetInt("DB_MAX_CONN_IDLE_TIME"),
		},
		Cache: CacheConfig{
			Host:         viper.GetString("REDIS_HOST"),
			Port:         viper.GetInt("REDIS_PORT"),
			Password:     viper.GetString("REDIS_PASSWORD"),
			DB:           viper.GetInt("REDIS_DB"),
			DialTimeout:  viper.GetInt("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:  viper.GetInt("REDIS_READ_TIMEOUT"),
			WriteTimeout: viper.GetInt("REDIS_WRITE_TIMEOUT"),
			PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
			MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
		},
		Queue: QueueConfig{
			RedisHost:      viper.GetString("REDIS_HOST"),
			RedisPort:      viper.GetInt("REDIS_PORT"),
			RedisPassword:  viper.GetString("REDIS_PASSWORD"),
			RedisDB:        viper.GetInt("REDIS_DB"),
			DialTimeout:    viper.GetInt("REDIS_DIAL_TIMEOUT"),
			ReadTimeout:    viper.GetInt("REDIS_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("REDIS_WRITE_TIMEOUT"),
			Concurrency:    viper.GetInt("WORKER_CONCURRENCY"),
			StrictPriority: viper.GetBool("WORKER_STRICT_PRIORITY"),
			MaxRetries:     viper.GetInt("WORKER_MAX_RETRIES"),
		},
		Storage: StorageConfig{
			BasePath:    viper.GetString("STORAGE_BASE_PATH"),
			MaxFileSize: viper.GetInt64("MAX_FILE_SIZE_MB"),
		},
	}

	if cfg.Database.User == "" {
		return nil, fmt.Errorf("DB_USER is required")
	}
	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	return cfg, nil
}

// DSN constructs the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisAddr constructs the Redis address for the cache
func (c *CacheConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LogConfig logs the configuration (hiding sensitive data)
func (c *Config) LogConfig() {
	log.Printf("Configuration loaded:")
	log.Printf("  Environment: %s", c.Environment)
	log.Printf("  Database: %s:%d/%s", c.Database.Host, c.Database.Port, c.Database.Database)
	log.Printf("  Redis: %s:%d (DB: %d)", c.Cache.Host, c.Cache.Port, c.Cache.DB)
	log.Printf("  Worker Concurrency: %d", c.Queue.Concurrency)
	log.Printf("  Storage: %s", c.Storage.BasePath)
}
