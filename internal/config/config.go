// Package config builds the explicit configuration passed to every component
// at construction. No package-level mutable state: main loads it once and
// hands pieces down.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string

	Rabbit RabbitConfig
	Google GoogleConfig
	SMTP   SMTPConfig

	WatchRenewInterval time.Duration
}

type RabbitConfig struct {
	User string
	Pass string
	Host string
	Port string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// PubSubTopic is the full topic name the watch registration points at,
	// e.g. projects/my-project/topics/lead-inbox.
	PubSubTopic string
	// WatchLabelIDs restricts the watch to the mailbox labels the campaign
	// platform delivers into.
	WatchLabelIDs []string
	// Accounts are the mailboxes the renewal worker keeps alive.
	Accounts []string
}

type SMTPConfig struct {
	Host    string
	Port    int
	User    string
	Pass    string
	AlertTo string
}

func Load() Config {
	return Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Rabbit: RabbitConfig{
			User: getenv("RABBITMQ_USER", "guest"),
			Pass: getenv("RABBITMQ_PASS", "guest"),
			Host: getenv("RABBITMQ_HOST", "localhost"),
			Port: getenv("RABBITMQ_PORT", "5672"),
		},
		Google: GoogleConfig{
			ClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret:  os.Getenv("GOOGLE_CLIENT_SECRET"),
			PubSubTopic:   os.Getenv("GOOGLE_PUBSUB_TOPIC"),
			WatchLabelIDs: splitList(getenv("GOOGLE_WATCH_LABELS", "INBOX")),
			Accounts:      splitList(os.Getenv("GOOGLE_ACCOUNTS")),
		},
		SMTP: SMTPConfig{
			Host:    os.Getenv("MAIL_HOST"),
			Port:    getenvInt("MAIL_PORT", 587),
			User:    os.Getenv("MAIL_USER"),
			Pass:    os.Getenv("MAIL_PASS"),
			AlertTo: os.Getenv("ALERT_EMAIL"),
		},
		WatchRenewInterval: getenvDuration("WATCH_RENEW_INTERVAL", 12*time.Hour),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
