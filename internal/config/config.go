package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the web app and its providers.
type Config struct {
	ListenAddr            string
	PublicBaseURL         string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModel           string
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayBaseURL       string
	RazorpayWebhookSecret string
	CheckoutURL           string
	PrefillName           string
	PrefillEmail          string
	PaymentSelfReport     bool
	OutputDir             string
	ShutdownTimeout       time.Duration
	MySQLDSN              string
	AdminUsername         string
	AdminPassword         string
	TelegramBotToken      string
	TelegramChatID        int64
	S3Endpoint            string
	S3Region              string
	S3AccessKey           string
	S3SecretKey           string
	S3Bucket              string
	S3UsePathStyle        bool
	S3Prefix              string
}

// Load reads configuration from environment variables, applying sane defaults.
// Provider secrets are optional here; calls that need them fail at use time.
func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	const defaultRazorpayBaseURL = "https://api.razorpay.com"

	cfg := Config{
		ListenAddr:            getEnv("LISTEN_ADDR", ":8080"),
		PublicBaseURL:         strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:         os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4"),
		RazorpayKeyID:         os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
		RazorpayBaseURL:       normalizeBaseURL(getEnv("RAZORPAY_BASE_URL", defaultRazorpayBaseURL), defaultRazorpayBaseURL),
		RazorpayWebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		CheckoutURL:           getEnv("RAZORPAY_CHECKOUT_URL", "https://api.razorpay.com/v1/checkout/embedded"),
		PrefillName:           getEnv("CHECKOUT_PREFILL_NAME", "Dhruva"),
		PrefillEmail:          getEnv("CHECKOUT_PREFILL_EMAIL", "test@example.com"),
		PaymentSelfReport:     getBool("PAYMENT_SELF_REPORT", true),
		OutputDir:             getEnv("OUTPUT_DIR", "plans"),
		ShutdownTimeout:       time.Second * time.Duration(getInt("SHUTDOWN_TIMEOUT_SECONDS", 10)),
		MySQLDSN:              os.Getenv("MYSQL_DSN"),
		AdminUsername:         getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:         getEnv("ADMIN_PASSWORD", "change-me"),
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:        getInt64("TELEGRAM_NOTIFY_CHAT_ID", 0),
		S3Endpoint:            os.Getenv("S3_ENDPOINT"),
		S3Region:              os.Getenv("S3_REGION"),
		S3AccessKey:           os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:           os.Getenv("S3_SECRET_KEY"),
		S3Bucket:              os.Getenv("S3_BUCKET"),
		S3UsePathStyle:        getBool("S3_USE_PATH_STYLE", false),
		S3Prefix:              getEnv("S3_PREFIX", "plans"),
	}

	return cfg, nil
}

// Missing lists the provider secrets that are not set. The app still starts without them.
func (c Config) Missing() []string {
	var missing []string
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.RazorpayKeyID == "" {
		missing = append(missing, "RAZORPAY_KEY_ID")
	}
	if c.RazorpayKeySecret == "" {
		missing = append(missing, "RAZORPAY_KEY_SECRET")
	}
	return missing
}

// S3Enabled reports whether plans should be stored in a bucket instead of local disk.
func (c Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// SecureCookies reports whether the public URL is served over TLS.
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(c.PublicBaseURL, "https://")
}

// NotifyEnabled reports whether operator notifications go to Telegram.
func (c Config) NotifyEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

func normalizeBaseURL(raw string, fallback string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fallback
	}

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	if parsed.Host == "" {
		parsed.Host = parsed.Path
		parsed.Path = ""
	}

	return strings.TrimRight(parsed.String(), "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// loadEnvFile applies the first .env found. Running without one is fine: the process
// environment alone is enough.
func loadEnvFile() error {
	candidates := []string{}
	if custom, ok := os.LookupEnv("CONFIG_ENV_PATH"); ok && custom != "" {
		candidates = append(candidates, custom)
	}
	candidates = append(candidates,
		filepath.Join("configs", ".env"),
		".env",
	)

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("access env file %s: %w", path, err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
		return nil
	}
	return nil
}
