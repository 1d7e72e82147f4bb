package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the namespace prefix for all Scribe environment variables.
const EnvPrefix = "SCRIBE_"

// Config holds all application configuration. Secrets (API keys, OAuth
// client secret) are loaded exclusively from environment variables and never
// appear in the config file.
type Config struct {
	SiteURL         string `yaml:"site_url"`
	ListenAddr      string `yaml:"listen_addr"`
	UploadPath      string `yaml:"upload_path"`
	DevelopmentMode bool   `yaml:"development_mode"`
	DevSessionID    string `yaml:"dev_session_id"`

	SourceLanguage   string            `yaml:"source_language"`
	TargetLanguages  []string          `yaml:"target_languages"`
	LanguageChannels map[string]string `yaml:"language_channels"`

	SlackAuthURL    string   `yaml:"slack_auth_url"`
	SlackTokenURL   string   `yaml:"slack_token_url"`
	SlackAPIURL     string   `yaml:"slack_api_url"`
	SlackTeamID     string   `yaml:"slack_team_id"`
	SlackClientID   string   `yaml:"slack_client_id"`
	SlackUserScopes []string `yaml:"slack_user_scopes"`

	PseudoTranslate     bool   `yaml:"pseudo_translate"`
	TranscriptionEngine string `yaml:"transcription_engine"`
	WhisperModel        string `yaml:"whisper_model"`
	DeepgramModel       string `yaml:"deepgram_model"`

	// Secrets — env vars only, never serialized to YAML.
	SlackClientSecret string `yaml:"-"`
	DeepLAPIKey       string `yaml:"-"`
	OpenAIAPIKey      string `yaml:"-"`
	DeepgramAPIKey    string `yaml:"-"`
}

func defaults() Config {
	return Config{
		SiteURL:         "http://localhost:8000",
		ListenAddr:      ":8000",
		UploadPath:      "/tmp/scribe",
		DevSessionID:    "867-5309",
		SourceLanguage:  "en",
		TargetLanguages: []string{"es", "fr", "it", "ru", "pt"},
		SlackAuthURL:    "https://slack.com/oauth/v2/authorize",
		SlackTokenURL:   "https://slack.com/api/openid.connect.token",
		SlackAPIURL:     "https://slack.com/api",
		SlackUserScopes: []string{
			"channels:read",
			"chat:write",
			"identify",
			"pins:write",
			"team:read",
			"users.profile:read",
		},
		TranscriptionEngine: "whisper",
		WhisperModel:        "whisper-1",
		DeepgramModel:       "nova-2",
	}
}

// Load reads configuration from a YAML file (if it exists), applies
// environment variable overrides, loads secrets, and validates the result.
// It returns the config, any validation warnings, and an error if the file
// exists but cannot be read or parsed.
func Load(path string) (Config, []string, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, nil, fmt.Errorf("read config file: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	loadSecrets(&cfg)

	warnings := validate(&cfg)
	return cfg, warnings, nil
}

// RedirectURL is the fixed OAuth callback address registered with Slack.
func (c *Config) RedirectURL() string {
	return strings.TrimRight(c.SiteURL, "/") + "/auth/redirect"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "SITE_URL"); v != "" {
		cfg.SiteURL = v
	}
	if v := os.Getenv(EnvPrefix + "LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvPrefix + "UPLOAD_PATH"); v != "" {
		cfg.UploadPath = v
	}
	if v := os.Getenv(EnvPrefix + "DEVELOPMENT_MODE"); v != "" {
		cfg.DevelopmentMode = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "DEV_SESSION_ID"); v != "" {
		cfg.DevSessionID = v
	}
	if v := os.Getenv(EnvPrefix + "SOURCE_LANGUAGE"); v != "" {
		cfg.SourceLanguage = v
	}
	if v := os.Getenv(EnvPrefix + "TARGET_LANGUAGES"); v != "" {
		cfg.TargetLanguages = parseList(v)
	}
	if v := os.Getenv(EnvPrefix + "LANGUAGE_CHANNELS"); v != "" {
		cfg.LanguageChannels = parseMap(v)
	}
	if v := os.Getenv(EnvPrefix + "SLACK_AUTH_URL"); v != "" {
		cfg.SlackAuthURL = v
	}
	if v := os.Getenv(EnvPrefix + "SLACK_TOKEN_URL"); v != "" {
		cfg.SlackTokenURL = v
	}
	if v := os.Getenv(EnvPrefix + "SLACK_API_URL"); v != "" {
		cfg.SlackAPIURL = v
	}
	if v := os.Getenv(EnvPrefix + "SLACK_TEAM_ID"); v != "" {
		cfg.SlackTeamID = v
	}
	if v := os.Getenv(EnvPrefix + "SLACK_CLIENT_ID"); v != "" {
		cfg.SlackClientID = v
	}
	if v := os.Getenv(EnvPrefix + "SLACK_USER_SCOPES"); v != "" {
		cfg.SlackUserScopes = parseList(v)
	}
	if v := os.Getenv(EnvPrefix + "PSEUDO_TRANSLATE"); v != "" {
		cfg.PseudoTranslate = parseBool(v)
	}
	if v := os.Getenv(EnvPrefix + "TRANSCRIPTION_ENGINE"); v != "" {
		cfg.TranscriptionEngine = v
	}
	if v := os.Getenv(EnvPrefix + "WHISPER_MODEL"); v != "" {
		cfg.WhisperModel = v
	}
	if v := os.Getenv(EnvPrefix + "DEEPGRAM_MODEL"); v != "" {
		cfg.DeepgramModel = v
	}
}

func loadSecrets(cfg *Config) {
	cfg.SlackClientSecret = os.Getenv(EnvPrefix + "SLACK_CLIENT_SECRET")
	cfg.DeepLAPIKey = os.Getenv(EnvPrefix + "DEEPL_API_KEY")
	cfg.OpenAIAPIKey = os.Getenv(EnvPrefix + "OPENAI_API_KEY")
	cfg.DeepgramAPIKey = os.Getenv(EnvPrefix + "DEEPGRAM_API_KEY")
}

func validate(cfg *Config) []string {
	var warnings []string

	if cfg.SlackClientID == "" || cfg.SlackClientSecret == "" {
		warnings = append(warnings, "Slack OAuth client not configured — sign-in will fail. Set "+EnvPrefix+"SLACK_CLIENT_ID and "+EnvPrefix+"SLACK_CLIENT_SECRET.")
	}
	if !cfg.PseudoTranslate && cfg.DeepLAPIKey == "" {
		warnings = append(warnings, "DeepL API key not configured — translation will fail. Set "+EnvPrefix+"DEEPL_API_KEY or enable pseudo_translate.")
	}
	switch cfg.TranscriptionEngine {
	case "whisper":
		if cfg.OpenAIAPIKey == "" {
			warnings = append(warnings, "OpenAI API key not configured — transcription will fail. Set "+EnvPrefix+"OPENAI_API_KEY.")
		}
	case "deepgram":
		if cfg.DeepgramAPIKey == "" {
			warnings = append(warnings, "Deepgram API key not configured — transcription will fail. Set "+EnvPrefix+"DEEPGRAM_API_KEY.")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("Unknown transcription_engine %q — expected whisper or deepgram.", cfg.TranscriptionEngine))
	}
	for _, lang := range cfg.TargetLanguages {
		if cfg.LanguageChannels[lang] == "" {
			warnings = append(warnings, fmt.Sprintf("No default channel configured for language %q.", lang))
		}
	}

	return warnings
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}

// parseMap parses "es=C123,fr=C456" style language/channel pairs.
func parseMap(raw string) map[string]string {
	result := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || key == "" {
			continue
		}
		result[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return result
}
