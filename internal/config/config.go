package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// APIBaseURL is the translation backend base URL for direct requests
	// and synthesis calls.
	APIBaseURL string
	// ChannelURL is the websocket endpoint for the live channel, derived
	// from APIBaseURL by protocol substitution unless overridden.
	ChannelURL string
	// VoiceStyle is the default synthesis style requested from the backend.
	VoiceStyle string
	// HistoryLimit caps the number of retained conversation entries.
	HistoryLimit int
	// ReconnectDelay is the fixed wait before a channel reconnect attempt.
	ReconnectDelay time.Duration
}

// VoiceStyles maps synthesis style names to the backend voice identifiers.
var VoiceStyles = map[string]string{
	"professional_female":   "aurora",
	"professional_male":     "atlas",
	"conversational_female": "bella",
	"conversational_male":   "caleb",
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file")
	}

	base := os.Getenv("BABELFISH_API_URL")
	if base == "" {
		base = "http://localhost:8000"
	}

	channel := os.Getenv("BABELFISH_CHANNEL_URL")
	if channel == "" {
		channel = DeriveChannelURL(base)
	}

	style := os.Getenv("BABELFISH_VOICE_STYLE")
	if style == "" {
		style = "professional_female"
	}
	if _, ok := VoiceStyles[style]; !ok {
		log.Printf("Warning: unknown voice style %q - falling back to professional_female", style)
		style = "professional_female"
	}

	limit := 10
	if v := os.Getenv("BABELFISH_HISTORY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	delay := 3 * time.Second
	if v := os.Getenv("BABELFISH_RECONNECT_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			delay = d
		}
	}

	log.Printf("config: BABELFISH_API_URL=%s channel=%s", base, channel)
	return Config{
		APIBaseURL:     base,
		ChannelURL:     channel,
		VoiceStyle:     style,
		HistoryLimit:   limit,
		ReconnectDelay: delay,
	}
}

// DeriveChannelURL maps an HTTP base URL to its websocket counterpart:
// http becomes ws, https becomes wss, and the channel path is /ws.
func DeriveChannelURL(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "ws://localhost:8000/ws"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String()
}
