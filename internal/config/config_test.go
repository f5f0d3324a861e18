package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		JWTSecret:           strings.Repeat("s", 32),
		ViewingConflictMode: "buffer",
		ViewingLookBack:     240 * time.Minute,
		InquiryRateLimit:    10,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"strict mode", func(c *Config) { c.ViewingConflictMode = "strict" }, false},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"short secret", func(c *Config) { c.JWTSecret = "short" }, true},
		{"unknown mode", func(c *Config) { c.ViewingConflictMode = "loose" }, true},
		{"negative gap", func(c *Config) { c.ViewingMinGap = -time.Minute }, true},
		{"zero rate limit", func(c *Config) { c.InquiryRateLimit = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	c := &Config{CORSOrigins: "https://a.example, https://b.example ,http://localhost:5173"}
	if got := c.AllowedOrigins(); got != "https://a.example,https://b.example,http://localhost:5173" {
		t.Fatalf("unexpected origins %q", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("PROPTRACK_TEST_INT", "15")
	if got := getEnvInt("PROPTRACK_TEST_INT", 1); got != 15 {
		t.Fatalf("expected 15, got %d", got)
	}
	t.Setenv("PROPTRACK_TEST_INT", "fifteen")
	if got := getEnvInt("PROPTRACK_TEST_INT", 1); got != 1 {
		t.Fatalf("invalid value should fall back to default, got %d", got)
	}
}
