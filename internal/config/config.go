package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for our application
type Config struct {
	Port        string
	Origin      string
	Environment string
	Location    *time.Location
	Log         LogConfig
	Identity    IdentityConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	MQTT        MQTTConfig
	Timing      TimingConfig
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string
	Format string
}

// IdentityConfig selects and configures the identity provider.
type IdentityConfig struct {
	Mode                      string // "local" or "remote"
	JWTSecret                 string
	JWTRefreshSecret          string
	JWTExpirationMinutes      int
	JWTRefreshExpirationHours int
	RemoteURL                 string
	RemoteAnonKey             string
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogQueries      bool
}

// RedisConfig holds the settings KV connection.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// MQTTConfig holds the notification broker connection.
type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// TimingConfig holds the simulated latencies and device timeouts.
type TimingConfig struct {
	AIDelay                time.Duration
	VoiceReplyDelay        time.Duration
	EmergencyAutoCancel    time.Duration
	EmergencyContactNotify time.Duration
	LocationTimeout        time.Duration
	LocationMaxAge         time.Duration
	NotificationTTL        time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "healthbridge"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	if err := loadPool(&dbConfig); err != nil {
		return nil, err
	}

	jwtExpMinutes, err := strconv.Atoi(getEnv("JWT_EXPIRATION_MINUTES", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_MINUTES: %w", err)
	}

	jwtRefreshExpHours, err := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_REFRESH_EXPIRATION_HOURS: %w", err)
	}

	mode := getEnv("IDENTITY_MODE", "local")
	if mode != "local" && mode != "remote" {
		return nil, fmt.Errorf("invalid IDENTITY_MODE %q: want local or remote", mode)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	timing, err := loadTiming()
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(getEnv("APP_TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}

	return &Config{
		Port:        getEnv("PORT", "3001"),
		Origin:      getEnv("ORIGIN", "http://localhost:5173"),
		Environment: getEnv("APP_ENV", "development"),
		Location:    loc,
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Identity: IdentityConfig{
			Mode:                      mode,
			JWTSecret:                 getEnv("JWT_SECRET", "default_jwt_secret"),
			JWTRefreshSecret:          getEnv("JWT_REFRESH_SECRET", "default_refresh_secret"),
			JWTExpirationMinutes:      jwtExpMinutes,
			JWTRefreshExpirationHours: jwtRefreshExpHours,
			RemoteURL:                 getEnv("IDENTITY_REMOTE_URL", ""),
			RemoteAnonKey:             getEnv("IDENTITY_REMOTE_ANON_KEY", ""),
		},
		Database: dbConfig,
		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		MQTT: MQTTConfig{
			Enabled:     getEnv("MQTT_ENABLED", "false") == "true",
			Broker:      getEnv("MQTT_BROKER", "tcp://localhost:1883"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "healthbridge-server"),
			Username:    getEnv("MQTT_USERNAME", ""),
			Password:    getEnv("MQTT_PASSWORD", ""),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "healthbridge"),
		},
		Timing: timing,
	}, nil
}

func loadTiming() (TimingConfig, error) {
	var t TimingConfig
	fields := []struct {
		key  string
		def  string
		unit time.Duration
		dst  *time.Duration
	}{
		{"AI_DELAY_MS", "2000", time.Millisecond, &t.AIDelay},
		{"VOICE_REPLY_DELAY_MS", "1500", time.Millisecond, &t.VoiceReplyDelay},
		{"EMERGENCY_AUTO_CANCEL_SECONDS", "300", time.Second, &t.EmergencyAutoCancel},
		{"EMERGENCY_CONTACT_NOTIFY_DELAY_MS", "2000", time.Millisecond, &t.EmergencyContactNotify},
		{"LOCATION_TIMEOUT_MS", "10000", time.Millisecond, &t.LocationTimeout},
		{"LOCATION_MAX_AGE_MS", "60000", time.Millisecond, &t.LocationMaxAge},
		{"NOTIFICATION_TTL_SECONDS", "10", time.Second, &t.NotificationTTL},
	}
	for _, f := range fields {
		n, err := strconv.Atoi(getEnv(f.key, f.def))
		if err != nil {
			return t, fmt.Errorf("invalid %s: %w", f.key, err)
		}
		if n < 0 {
			return t, fmt.Errorf("invalid %s: must not be negative", f.key)
		}
		*f.dst = time.Duration(n) * f.unit
	}
	return t, nil
}

func loadPool(db *DatabaseConfig) error {
	var err error
	if db.MaxOpenConns, err = strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "10")); err != nil {
		return fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	if db.MaxIdleConns, err = strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5")); err != nil {
		return fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	if db.ConnMaxLifetime, err = time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", "30m")); err != nil {
		return fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}
	db.LogQueries = getEnv("DB_LOG_QUERIES", "false") == "true"
	return nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
