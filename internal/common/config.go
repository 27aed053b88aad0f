package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	App        AppConfig        `toml:"app"`
	Logging    LoggingConfig    `toml:"logging"`
	Storage    StorageConfig    `toml:"storage"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	HTTP       HTTPConfig       `toml:"http"`
	Sources    SourcesConfig    `toml:"sources"`
	Weather    WeatherConfig    `toml:"weather"`
	AirQuality AirQualityConfig `toml:"air_quality"`
	Earthquake EarthquakeConfig `toml:"earthquake"`
	Gemini     GeminiConfig     `toml:"gemini"`
	Claude     ClaudeConfig     `toml:"claude"`
	LLM        LLMConfig        `toml:"llm"`
	Translator TranslatorConfig `toml:"translator"`
	Speech     SpeechConfig     `toml:"speech"`
	Media      MediaConfig      `toml:"media"`
	Upload     UploadConfig     `toml:"upload"`
	Schedule   ScheduleConfig   `toml:"schedule"`
}

type AppConfig struct {
	Name     string `toml:"name" validate:"required"`
	Timezone string `toml:"timezone" validate:"required"` // IANA zone used for target dates and the schedule
	Location string `toml:"location"`                     // free text written to metadata.location
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"`
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // default "15:04:05"
	Dir        string   `toml:"dir"`         // log directory when "file" output is enabled
}

type StorageConfig struct {
	DataDir string       `toml:"data_dir" validate:"required"` // run artifacts: yaml, txt, md, html, mp3, mp4
	Badger  BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type PipelineConfig struct {
	ReuseArtifacts bool `toml:"reuse_artifacts"` // skip a stage when its artifact already exists
	Concurrency    int  `toml:"concurrency" validate:"min=1,max=32"`
	UploadEnabled  bool `toml:"upload_enabled"`
}

// HTTPConfig controls every outbound scrape and API request
type HTTPConfig struct {
	UserAgent         string  `toml:"user_agent" validate:"required"`
	Timeout           string  `toml:"timeout"`             // per request, e.g. "10s"
	RequestsPerSecond float64 `toml:"requests_per_second"` // shared limiter across sources
	MaxAttempts       int     `toml:"max_attempts" validate:"min=1"`
	InitialBackoff    string  `toml:"initial_backoff"`
	BackoffFactor     float64 `toml:"backoff_factor" validate:"gte=1"`
}

type SourcesConfig struct {
	Outlets []OutletConfig `toml:"outlets" validate:"dive"`
}

// OutletConfig describes one news outlet. Caps and category allow-lists are data, not code.
type OutletConfig struct {
	Name            string        `toml:"name" validate:"required"`
	Priority        string        `toml:"priority" validate:"oneof=P0 P1 P2"`
	Kind            string        `toml:"kind" validate:"oneof=html feed"`
	Pages           []string      `toml:"pages"`       // HTML listing pages
	Feeds           []string      `toml:"feeds"`       // RSS feeds, one per category
	AllowPaths      []string      `toml:"allow_paths"` // path segments an article link must contain; empty = any
	ArticleSelector string        `toml:"article_selector"`
	TitleSelector   string        `toml:"title_selector"`
	SummarySelector string        `toml:"summary_selector"`
	DateSelector    string        `toml:"date_selector"`
	Checked         int           `toml:"checked" validate:"min=0"`   // containers inspected per page, 0 = all
	MaxItems        int           `toml:"max_items" validate:"min=1"` // per outlet, or per feed for kind=feed
	Fallback        *OutletConfig `toml:"fallback"`                   // used when every feed fails
}

type WeatherConfig struct {
	Enabled           bool   `toml:"enabled"`
	URL               string `toml:"url"`
	SourceURL         string `toml:"source_url"` // link written into the weather item
	TempSelector      string `toml:"temp_selector"`
	ConditionSelector string `toml:"condition_selector"`
	HumiditySelector  string `toml:"humidity_selector"`
	RainSelector      string `toml:"rain_selector"`
}

type AirQualityConfig struct {
	Enabled      bool    `toml:"enabled"`
	IQAirAPIKey  string  `toml:"iqair_api_key"`
	IQAirURL     string  `toml:"iqair_url"`
	OpenMeteoURL string  `toml:"open_meteo_url"`
	Latitude     float64 `toml:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64 `toml:"longitude" validate:"gte=-180,lte=180"`
	SourceURL    string  `toml:"source_url"`
	RateLimit    int     `toml:"rate_limit"` // requests per second per client
}

type EarthquakeConfig struct {
	Enabled  bool   `toml:"enabled"`
	FeedURL  string `toml:"feed_url"`
	MaxItems int    `toml:"max_items"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	MaxRetries  int     `toml:"max_retries"` // rate-limit retries inside the provider
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
	MaxRetries  int     `toml:"max_retries"`
	Temperature float32 `toml:"temperature"`
}

// LLMProvider names a text generation backend
type LLMProvider string

const (
	LLMProviderGemini LLMProvider = "gemini"
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider" validate:"oneof=gemini claude"`
}

type TranslatorConfig struct {
	Model        string   `toml:"model"`                               // empty = provider default
	BatchSize    int      `toml:"batch_size" validate:"min=1"`         // items per section sent to the model
	MaxAttempts  int      `toml:"max_attempts" validate:"min=1,max=5"` // generation attempts per section
	Timeout      string   `toml:"timeout"`                             // per generation call
	SectionOrder []string `toml:"section_order"`                       // canonical read order by section name
}

type SpeechConfig struct {
	Command string `toml:"command" validate:"required"`
	Voice   string `toml:"voice" validate:"required"`
	Rate    string `toml:"rate"` // edge-tts rate, e.g. "+10%"
	Timeout string `toml:"timeout"`
}

type MediaConfig struct {
	FFmpegPath        string `toml:"ffmpeg_path" validate:"required"`
	Encoder           string `toml:"encoder"` // empty = detect
	VideoBitrate      string `toml:"video_bitrate"`
	AudioCodec        string `toml:"audio_codec"`
	DefaultBackground string `toml:"default_background"`
	Timeout           string `toml:"timeout"`
}

type UploadConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RefreshToken string   `toml:"refresh_token"`
	Privacy      string   `toml:"privacy" validate:"oneof=private unlisted public"`
	CategoryID   string   `toml:"category_id"`
	Tags         []string `toml:"tags"`
	Language     string   `toml:"language"`
	Timeout      string   `toml:"timeout"`
}

type ScheduleConfig struct {
	Cron string `toml:"cron"` // standard 5-field expression evaluated in App.Timezone
}

// NewDefaultConfig creates a configuration with default values.
// The outlet catalog reproduces the production source list.
func NewDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "todayvn",
			Timezone: "Asia/Ho_Chi_Minh",
			Location: "Ho Chi Minh City (Saigon Pearl)",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
			Dir:        "./logs",
		},
		Storage: StorageConfig{
			DataDir: "./data",
			Badger: BadgerConfig{
				Path: "./data/ledger",
			},
		},
		Pipeline: PipelineConfig{
			ReuseArtifacts: true,
			Concurrency:    4,
			UploadEnabled:  false,
		},
		HTTP: HTTPConfig{
			UserAgent:         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
			Timeout:           "10s",
			RequestsPerSecond: 5,
			MaxAttempts:       3,
			InitialBackoff:    "1s",
			BackoffFactor:     2.0,
		},
		Sources: SourcesConfig{
			Outlets: DefaultOutlets(),
		},
		Weather: WeatherConfig{
			Enabled:           true,
			URL:               "https://nchmf.gov.vn/kttvsiteE/vi-VN/1/vung-tau-tp-ho-chi-minh-w31.html",
			SourceURL:         "https://www.nchmf.gov.vn/en/portal/portal/hcm-weather",
			TempSelector:      ".text-weather-location .list-info-wt li:nth-child(1) .uk-width-3-4",
			ConditionSelector: ".text-weather-location .list-info-wt li:nth-child(2) .uk-width-3-4",
			HumiditySelector:  ".text-weather-location .list-info-wt li:nth-child(3) .uk-width-3-4",
		},
		AirQuality: AirQualityConfig{
			Enabled:      true,
			IQAirURL:     "http://api.airvisual.com/v2",
			OpenMeteoURL: "https://air-quality-api.open-meteo.com/v1",
			Latitude:     10.78069,
			Longitude:    106.69944,
			SourceURL:    "https://www.iqair.com/vietnam/ho-chi-minh-city/ho-chi-minh-city/vinhomes-central-park-2",
			RateLimit:    2,
		},
		Earthquake: EarthquakeConfig{
			Enabled:  true,
			FeedURL:  "http://igp-vast.vn/index.php/en/earthquake-news?format=feed",
			MaxItems: 3,
		},
		Gemini: GeminiConfig{
			Model:       "gemma-3-27b-it",
			Timeout:     "2m",
			MaxRetries:  2,
			Temperature: 0.3,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   4096,
			Timeout:     "2m",
			MaxRetries:  2,
			Temperature: 0.3,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Translator: TranslatorConfig{
			BatchSize:   6,
			MaxAttempts: 2,
			Timeout:     "90s",
			SectionOrder: []string{
				SectionSafety,
				SectionHealth,
				SectionGovernment,
				"Tuổi Trẻ",
				"VnExpress",
			},
		},
		Speech: SpeechConfig{
			Command: "edge-tts",
			Voice:   "ko-KR-SunHiNeural",
			Timeout: "5m",
		},
		Media: MediaConfig{
			FFmpegPath:        "ffmpeg",
			VideoBitrate:      "5000k",
			AudioCodec:        "aac",
			DefaultBackground: "assets/default_bg.png",
			Timeout:           "30m",
		},
		Upload: UploadConfig{
			Privacy:    "unlisted",
			CategoryID: "25",
			Tags:       []string{"베트남", "베트남뉴스", "호치민", "오늘의베트남뉴스"},
			Language:   "ko",
			Timeout:    "30m",
		},
		Schedule: ScheduleConfig{
			Cron: "0 7 * * *",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Secrets use their conventional names so a .env file can supply them.
func applyEnvOverrides(config *Config) {
	if level := os.Getenv("TODAYVN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if dir := os.Getenv("TODAYVN_DATA_DIR"); dir != "" {
		config.Storage.DataDir = dir
	}
	if path := os.Getenv("TODAYVN_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if tz := os.Getenv("TODAYVN_TIMEZONE"); tz != "" {
		config.App.Timezone = tz
	}
	if concurrency := os.Getenv("TODAYVN_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Pipeline.Concurrency = c
		}
	}
	if upload := os.Getenv("TODAYVN_UPLOAD_ENABLED"); upload != "" {
		if b, err := strconv.ParseBool(upload); err == nil {
			config.Pipeline.UploadEnabled = b
		}
	}
	if schedule := os.Getenv("TODAYVN_SCHEDULE"); schedule != "" {
		config.Schedule.Cron = schedule
	}

	// LLM configuration
	if provider := os.Getenv("TODAYVN_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(strings.ToLower(provider))
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if model := os.Getenv("TODAYVN_TRANSLATOR_MODEL"); model != "" {
		config.Translator.Model = model
	}

	// Data sources
	if key := os.Getenv("IQAIR_API_KEY"); key != "" {
		config.AirQuality.IQAirAPIKey = key
	}

	// Upload credentials
	if id := os.Getenv("YOUTUBE_CLIENT_ID"); id != "" {
		config.Upload.ClientID = id
	}
	if secret := os.Getenv("YOUTUBE_CLIENT_SECRET"); secret != "" {
		config.Upload.ClientSecret = secret
	}
	if token := os.Getenv("YOUTUBE_REFRESH_TOKEN"); token != "" {
		config.Upload.RefreshToken = token
	}
	if privacy := os.Getenv("TODAYVN_UPLOAD_PRIVACY"); privacy != "" {
		config.Upload.Privacy = privacy
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, logLevel, dataDir string, noUpload bool) {
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
	if dataDir != "" {
		config.Storage.DataDir = dataDir
	}
	if noUpload {
		config.Pipeline.UploadEnabled = false
	}
}

// Validate checks struct constraints, durations, the timezone and the schedule
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"http.timeout":         c.HTTP.Timeout,
		"http.initial_backoff": c.HTTP.InitialBackoff,
		"gemini.timeout":       c.Gemini.Timeout,
		"claude.timeout":       c.Claude.Timeout,
		"translator.timeout":   c.Translator.Timeout,
		"speech.timeout":       c.Speech.Timeout,
		"media.timeout":        c.Media.Timeout,
		"upload.timeout":       c.Upload.Timeout,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", name, value)
		}
	}

	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.App.Timezone, err)
	}

	if err := ValidateSchedule(c.Schedule.Cron); err != nil {
		return err
	}

	return nil
}

// Location returns the configured timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidateSchedule validates a standard 5-field cron expression
func ValidateSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return nil
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ParseDuration parses value, returning fallback when it is empty or malformed
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
