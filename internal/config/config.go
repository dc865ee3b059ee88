package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const defaultRSSURLs = "https://b.hatena.ne.jp/hotentry/it.rss"

type Config struct {
	Port                 string
	LogMode              string
	ProjectID            string `validate:"required"`
	Region               string `validate:"required"`
	GenAIModel           string `validate:"required"`
	MisskeyHost          string `validate:"required,hostname_rfc1123|hostname_port"`
	MisskeyToken         string `validate:"required"`
	MisskeyVisibility    string `validate:"oneof=public home followers specified"`
	MisskeyBaseURL       string `validate:"omitempty,url"`
	PostTimeoutSeconds   int    `validate:"gt=0"`
	DiscordBotToken      string
	DiscordChannelID     string   `validate:"omitempty,numeric"`
	DiscordHistoryLimit  int      `validate:"gt=0,lte=100"`
	SummaryWindowMinutes int      `validate:"gt=0"`
	RSSURLs              []string `validate:"dive,url"`
	RSSTimeoutSeconds    int      `validate:"gt=0"`
	SummaryCron          string
}

func Load() Config {
	return Config{
		Port:                 getEnv("PORT", "8080"),
		LogMode:              getEnv("LOG_MODE", "development"),
		ProjectID:            getEnv("PROJECT_ID", ""),
		Region:               getEnv("REGION", ""),
		GenAIModel:           getEnv("GENAI_MODEL", "gemini-2.5-flash"),
		MisskeyHost:          getEnv("MISSKEY_HOST", ""),
		MisskeyToken:         getEnv("MISSKEY_TOKEN", ""),
		MisskeyVisibility:    getEnv("MISSKEY_VISIBILITY", "followers"),
		MisskeyBaseURL:       getEnv("MISSKEY_BASE_URL", ""),
		PostTimeoutSeconds:   getEnvInt("POST_TIMEOUT_SECONDS", 5),
		DiscordBotToken:      getEnv("DISCORD_BOT_TOKEN", ""),
		DiscordChannelID:     getEnv("DISCORD_CHANNEL_ID", ""),
		DiscordHistoryLimit:  getEnvInt("DISCORD_HISTORY_LIMIT", 100),
		SummaryWindowMinutes: getEnvInt("SUMMARY_WINDOW_MINUTES", 60),
		RSSURLs:              splitList(getEnv("RSS_URLS", defaultRSSURLs)),
		RSSTimeoutSeconds:    getEnvInt("RSS_TIMEOUT_SECONDS", 30),
		SummaryCron:          getEnv("SUMMARY_CRON", ""),
	}
}

// Validate reports missing or malformed settings. PROJECT_ID, REGION and the
// Misskey credentials are mandatory; everything else has a usable default.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (c Config) PostTimeout() time.Duration {
	return time.Duration(c.PostTimeoutSeconds) * time.Second
}

func (c Config) RSSTimeout() time.Duration {
	return time.Duration(c.RSSTimeoutSeconds) * time.Second
}

func (c Config) SummaryWindow() time.Duration {
	return time.Duration(c.SummaryWindowMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
