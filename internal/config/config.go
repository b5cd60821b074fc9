package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL  string
	LiveFeedURL string
	SessionFile string

	HTTPTimeout time.Duration

	// Live feed retry policy. MaxReconnects == 0 means retry forever.
	ReconnectDelay time.Duration
	MaxReconnects  int

	// How long the transient "removing" marker stays on a picked-up order.
	PickupClearDelay time.Duration

	AuditLogFile string

	LogLevel  string
	LogFormat string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		APIBaseURL:       getEnv("SOVY_API_URL", "http://localhost:5000/api"),
		LiveFeedURL:      getEnv("SOVY_WS_URL", "ws://localhost:5000/ws"),
		SessionFile:      getEnv("SOVY_SESSION_FILE", defaultSessionFile()),
		HTTPTimeout:      getDuration("SOVY_HTTP_TIMEOUT", 15*time.Second),
		ReconnectDelay:   getDuration("SOVY_RECONNECT_DELAY", 5*time.Second),
		MaxReconnects:    getInt("SOVY_MAX_RECONNECTS", 0),
		PickupClearDelay: getDuration("SOVY_PICKUP_CLEAR_DELAY", 2*time.Second),
		AuditLogFile:     getEnv("SOVY_AUDIT_LOG", "sovy-activity.log"),
		LogLevel:         getEnv("SOVY_LOG_LEVEL", "info"),
		LogFormat:        getEnv("SOVY_LOG_FORMAT", "text"),
	}
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sovy-session.json"
	}
	return filepath.Join(home, ".sovy-session.json")
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}
