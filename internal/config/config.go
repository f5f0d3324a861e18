package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=proptrack port=5432 sslmode=disable"

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	JWTTTL      time.Duration
	CORSOrigins string

	RedisAddr     string // boş ise cache devre dışı
	RedisPassword string
	CacheTTL      time.Duration

	Location *time.Location

	// Görüntüleme çakışma politikası
	ViewingConflictMode string // "buffer" veya "strict"
	ViewingLookBack     time.Duration
	ViewingMinGap       time.Duration

	InquiryRateLimit int // dakika başına, IP bazlı
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] .env dosyası bulunamadı, ortam değişkenleri kullanılıyor")
	}

	cfg := &Config{
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:         getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:           getEnv("JWT_SECRET", ""),
		JWTTTL:              time.Duration(getEnvInt("JWT_TTL_HOURS", 24)) * time.Hour,
		CORSOrigins:         getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		CacheTTL:            time.Duration(getEnvInt("CACHE_TTL_SECONDS", 120)) * time.Second,
		ViewingConflictMode: strings.ToLower(getEnv("VIEWING_CONFLICT_MODE", "buffer")),
		ViewingLookBack:     time.Duration(getEnvInt("VIEWING_LOOKBACK_MINUTES", 240)) * time.Minute,
		ViewingMinGap:       time.Duration(getEnvInt("VIEWING_MIN_GAP_MINUTES", 0)) * time.Minute,
		InquiryRateLimit:    getEnvInt("INQUIRY_RATE_LIMIT", 10),
	}

	tz := getEnv("TIMEZONE", "Asia/Dubai")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("[WARN] TIMEZONE %q yüklenemedi (%v), UTC kullanılıyor", tz, err)
		loc = time.UTC
	}
	cfg.Location = loc

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN varsayılan değer kullanılıyor, production için mutlaka kendi Postgres bağlantı bilgisini tanımla.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS varsayılan değer kullanılıyor, production için mutlaka kendi domain'ini tanımla.")
	}
	if cfg.RedisAddr == "" {
		log.Println("[INFO] REDIS_ADDR tanımlı değil, cache kapalı")
	}

	return cfg
}

// Validate, uygulamanın ayağa kalkmasını engelleyecek ayar hatalarını döner.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment değişkeni tanımlanmamış! Production için zorunludur.")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET en az 32 karakter olmalıdır! Güvenlik riski.")
	}
	if c.ViewingConflictMode != "buffer" && c.ViewingConflictMode != "strict" {
		return fmt.Errorf("VIEWING_CONFLICT_MODE 'buffer' veya 'strict' olmalı, gelen: %q", c.ViewingConflictMode)
	}
	if c.ViewingLookBack < 0 || c.ViewingMinGap < 0 {
		return fmt.Errorf("VIEWING_LOOKBACK_MINUTES ve VIEWING_MIN_GAP_MINUTES negatif olamaz")
	}
	if c.InquiryRateLimit <= 0 {
		return fmt.Errorf("INQUIRY_RATE_LIMIT 0'dan büyük olmalı")
	}
	return nil
}

// AllowedOrigins virgülle ayrılmış CORS listesini temizleyip döner.
func (c *Config) AllowedOrigins() string {
	origins := strings.Split(c.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return strings.Join(origins, ",")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[WARN] %s sayı değil (%q), varsayılan %d kullanılıyor", key, v, def)
		return def
	}
	return n
}
