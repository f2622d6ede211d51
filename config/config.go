package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the coordinator configuration. Most values have local
// defaults so the service runs out of the box against the demo catalog
// and the simulated wallet provider.
type Config struct {
	ListenAddr  string
	CatalogPath string

	// Persistent store selection: "file", "redis" or "mysql".
	StoreBackend string
	StateDir     string // file backend: one JSON document per key

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Wallet provider: "sim" for the in-process simulator, "bridge" for a
	// remote wallet bridge reachable over websocket.
	WalletProvider     string
	WalletBridgeURL    string
	SimAddress         string
	SimBalance         string // decimal, e.g. "0.05"
	SimSettleLatency   time.Duration
	SimFailureRate     float64 // 0..1, fraction of settlements that fail
	ConfirmSecret      string  // manual-confirmation secret, hashed at startup
	SpeakerTransport   bool    // play audio locally through the speaker
	MediaDir           string  // local audio files for the speaker transport

	// MinIO object storage for track audio; optional. When unset the
	// catalog's direct audio URLs are used as-is.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	LogLevel      string
	LogOutputPath string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvFloat gets an environment variable as float64 or returns a default value.
func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ListenAddr:  getEnv("LISTEN_ADDR", ":8080"),
		CatalogPath: getEnv("CATALOG_PATH", ""),

		StoreBackend: getEnv("STORE_BACKEND", "file"),
		StateDir:     getEnv("STATE_DIR", "state"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "cassette"),

		WalletProvider:   getEnv("WALLET_PROVIDER", "sim"),
		WalletBridgeURL:  getEnv("WALLET_BRIDGE_URL", "ws://127.0.0.1:8546/wallet"),
		SimAddress:       getEnv("SIM_ADDRESS", "0x71C7656EC7ab88b098defB751B7401B5f6d8976F"),
		SimBalance:       getEnv("SIM_BALANCE", "0.05"),
		SimSettleLatency: time.Duration(getEnvInt("SIM_SETTLE_LATENCY_MS", 2000)) * time.Millisecond,
		SimFailureRate:   getEnvFloat("SIM_FAILURE_RATE", 0),
		ConfirmSecret:    getEnv("CONFIRM_SECRET", "1234"),
		SpeakerTransport: getEnvBool("SPEAKER_TRANSPORT", false),
		MediaDir:         getEnv("MEDIA_DIR", "media"),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "cassette"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogOutputPath: getEnv("LOG_OUTPUT_PATH", ""),
	}
}
