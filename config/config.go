package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppMode        string
	APIBaseURL     string
	ChatSocketURL  string
	CallSocketURL  string
	AccessToken    string
	CacheDSN       string
	RingTimeoutSec int

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PresignTTL int

	StunURL string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppMode:        getEnv("APP_MODE", "development"),
		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8000/api"),
		ChatSocketURL:  getEnv("CHAT_SOCKET_URL", "ws://localhost:8000/chat"),
		CallSocketURL:  getEnv("CALL_SOCKET_URL", "ws://localhost:8000/call"),
		AccessToken:    getEnv("ACCESS_TOKEN", ""),
		CacheDSN:       getEnv("CACHE_DSN", "talkio.db"),
		RingTimeoutSec: getEnvAsInt("RING_TIMEOUT_SEC", 10),
		S3Region:       getEnv("S3_REGION", ""),
		S3Bucket:       getEnv("S3_BUCKET", ""),
		S3AccessKey:    getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3PresignTTL:   getEnvAsInt("S3_PRESIGN_TTL_SEC", 900),
		StunURL:        getEnv("STUN_URL", "stun:stun.l.google.com:19302"),
	}
}

// RingTimeout returns the outgoing-call ring timeout as a duration.
func (c *Config) RingTimeout() time.Duration {
	return time.Duration(c.RingTimeoutSec) * time.Second
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
