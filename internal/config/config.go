package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	insecureSecretPlaceholder = "change_me_in_production"
	exampleSecretPlaceholder  = "replace_with_at_least_32_random_characters"
	minSecretKeyLength        = 32

	LocalStoreFile   = "file"
	LocalStoreRedis  = "redis"
	LocalStoreMemory = "memory"
)

type Config struct {
	Port             string
	DBPath           string
	SecretKey        string
	Location         *time.Location
	CookieSecure     bool
	LogMode          string
	LocalStore       string
	LocalStoreDir    string
	RedisAddr        string
	RedisChannel     string
	ResendAPIKey     string
	ResendBaseURL    string
	MailFrom         string
	PublicBaseURL    string
	DailyMessageTime string
}

func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", file, err)
		}
	}

	secretKey, err := ResolveSecretKey()
	if err != nil {
		return Config{}, err
	}

	localStore := strings.ToLower(Get("LOCAL_STORE", LocalStoreFile))
	switch localStore {
	case LocalStoreFile, LocalStoreRedis, LocalStoreMemory:
	default:
		return Config{}, fmt.Errorf("unsupported LOCAL_STORE %q", localStore)
	}
	redisAddr := Get("REDIS_ADDR", "")
	if localStore == LocalStoreRedis && redisAddr == "" {
		return Config{}, errors.New("LOCAL_STORE=redis requires REDIS_ADDR")
	}

	dailyMessageTime := Get("DAILY_MESSAGE_TIME", "08:00")
	if _, err := time.Parse("15:04", dailyMessageTime); err != nil {
		return Config{}, fmt.Errorf("invalid DAILY_MESSAGE_TIME %q: %w", dailyMessageTime, err)
	}

	return Config{
		Port:             Get("PORT", "8080"),
		DBPath:           Get("DB_PATH", filepath.Join("data", "easypeasy.db")),
		SecretKey:        secretKey,
		Location:         LoadLocation(Get("TZ", "UTC")),
		CookieSecure:     Bool("COOKIE_SECURE", false),
		LogMode:          Get("LOG_MODE", "development"),
		LocalStore:       localStore,
		LocalStoreDir:    Get("LOCAL_STORE_DIR", filepath.Join("data", "devices")),
		RedisAddr:        redisAddr,
		RedisChannel:     Get("REDIS_CHANNEL", "easypeasy:realtime"),
		ResendAPIKey:     Get("RESEND_API_KEY", ""),
		ResendBaseURL:    Get("RESEND_BASE_URL", "https://api.resend.com"),
		MailFrom:         Get("MAIL_FROM", "EasyPeasy <onboarding@resend.dev>"),
		PublicBaseURL:    strings.TrimRight(Get("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		DailyMessageTime: dailyMessageTime,
	}, nil
}

func ResolveSecretKey() (string, error) {
	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	if secret == "" {
		return "", errors.New("SECRET_KEY is required")
	}
	if secret == insecureSecretPlaceholder || secret == exampleSecretPlaceholder {
		return "", errors.New("SECRET_KEY uses an insecure placeholder")
	}
	if len(secret) < minSecretKeyLength {
		return "", fmt.Errorf("SECRET_KEY must be at least %d characters", minSecretKeyLength)
	}
	return secret, nil
}

func LoadLocation(name string) *time.Location {
	location, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return location
}

func Get(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func Bool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
