package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"NewsCollector/internal/domain"
)

const (
	defaultTimezone = "UTC"

	configPathEnv      = "NEWS_COLLECTOR_CONFIG"
	databasePathEnv    = "DATABASE_PATH"
	chatGPTAPIKeyEnv   = "CHATGPT_API_KEY"
	chatGPTModelEnv    = "CHATGPT_MODEL"
	gmailCredentialEnv = "GMAIL_CREDENTIALS_FILE"
	gmailTokenEnv      = "GMAIL_TOKEN_FILE"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	HTTP      HTTPConfig      `yaml:"http"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Gmail     GmailConfig     `yaml:"gmail"`
	ChatGPT   ChatGPTConfig   `yaml:"chatgpt"`
	Feeds     []FeedConfig    `yaml:"feeds"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// LoggingConfig controls slog verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig tunes the outbound HTTP client shared by all fetchers.
type HTTPConfig struct {
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

// Timeout returns the configured timeout as a duration.
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// SchedulerConfig defines the sweep cadences.
type SchedulerConfig struct {
	PrimaryCron string         `yaml:"primaryCron"`
	CustomCron  string         `yaml:"customCron"`
	CleanupCron string         `yaml:"cleanupCron"`
	Timezone    string         `yaml:"timezone"`
	Concurrency int            `yaml:"concurrency"`
	location    *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// GmailConfig locates the stored Google API credentials.
type GmailConfig struct {
	CredentialsFile string `yaml:"credentialsFile"`
	TokenFile       string `yaml:"tokenFile"`
}

// ChatGPTConfig defines how to contact the summarization API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// FeedConfig describes one primary RSS feed, fetched on every primary sweep.
type FeedConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	MaxItems int    `yaml:"maxItems"`
}

// SourceConfig describes one custom source. Kind-specific settings live on
// their own tagged block so a typo cannot silently vanish into a free-form
// map.
type SourceConfig struct {
	Name               string             `yaml:"name"`
	URL                string             `yaml:"url"`
	Kind               string             `yaml:"kind"`
	Language           string             `yaml:"language"`
	Category           string             `yaml:"category"`
	Tags               []string           `yaml:"tags"`
	FetchIntervalHours int                `yaml:"fetchIntervalHours"`
	MaxItems           int                `yaml:"maxItems"`
	Disabled           bool               `yaml:"disabled"`
	Gmail              *GmailFilterConfig `yaml:"gmail"`
}

// GmailFilterConfig narrows the mail search for gmail sources.
type GmailFilterConfig struct {
	From            string   `yaml:"from"`
	SubjectKeywords []string `yaml:"subjectKeywords"`
	ExcludeKeywords []string `yaml:"excludeKeywords"`
	DaysBack        int      `yaml:"daysBack"`
}

// Load reads YAML configuration (if present), applies environment overrides,
// and validates the source list. Only invalid source definitions fail the
// load; everything else falls back to defaults with a logged notice.
func Load() (Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if err := cfg.validateSources(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// PrimarySources converts the feed list into always-due RSS sources.
func (c Config) PrimarySources() []domain.Source {
	sources := make([]domain.Source, 0, len(c.Feeds))
	for _, feed := range c.Feeds {
		sources = append(sources, domain.Source{
			Name:     feed.Name,
			URL:      feed.URL,
			Kind:     domain.KindRSS,
			MaxItems: feed.MaxItems,
			Enabled:  true,
		})
	}
	return sources
}

// CustomSources converts the configured custom sources into descriptors.
func (c Config) CustomSources() []domain.Source {
	sources := make([]domain.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		converted := domain.Source{
			Name:               src.Name,
			URL:                src.URL,
			Kind:               domain.SourceKind(src.Kind),
			Language:           src.Language,
			Category:           src.Category,
			Tags:               src.Tags,
			FetchIntervalHours: src.FetchIntervalHours,
			MaxItems:           src.MaxItems,
			Enabled:            !src.Disabled,
		}
		if src.Gmail != nil {
			converted.Gmail = &domain.GmailFilter{
				From:            src.Gmail.From,
				SubjectKeywords: src.Gmail.SubjectKeywords,
				ExcludeKeywords: src.Gmail.ExcludeKeywords,
				DaysBack:        src.Gmail.DaysBack,
			}
		}
		sources = append(sources, converted)
	}
	return sources
}

var validKinds = map[string]bool{
	"":                            true, // resolved by the classifier
	string(domain.KindRSS):        true,
	string(domain.KindGeneric):    true,
	string(domain.KindSubstack):   true,
	string(domain.KindNewsletter): true,
	string(domain.KindMailchimp):  true,
	string(domain.KindBlog):       true,
	string(domain.KindGmail):      true,
}

func (c Config) validateSources() error {
	seen := map[string]bool{}
	for _, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("config: source without a name")
		}
		if seen[src.Name] {
			return fmt.Errorf("config: duplicate source name %q", src.Name)
		}
		seen[src.Name] = true

		if !validKinds[src.Kind] {
			return fmt.Errorf("config: source %q has unknown kind %q", src.Name, src.Kind)
		}

		if src.Kind == string(domain.KindGmail) {
			if src.Gmail == nil {
				return fmt.Errorf("config: gmail source %q needs a gmail filter block", src.Name)
			}
			if src.Gmail.From == "" && len(src.Gmail.SubjectKeywords) == 0 {
				return fmt.Errorf("config: gmail source %q matches nothing", src.Name)
			}
			continue
		}

		if src.URL == "" {
			return fmt.Errorf("config: source %q has no url", src.Name)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
	if v := os.Getenv(gmailCredentialEnv); v != "" {
		c.Gmail.CredentialsFile = v
	}
	if v := os.Getenv(gmailTokenEnv); v != "" {
		c.Gmail.TokenFile = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}
	if override.Database.Path != "" {
		base.Database = override.Database
	}
	if override.HTTP.TimeoutSeconds > 0 {
		base.HTTP = override.HTTP
	}

	if override.Scheduler.PrimaryCron != "" {
		base.Scheduler.PrimaryCron = override.Scheduler.PrimaryCron
	}
	if override.Scheduler.CustomCron != "" {
		base.Scheduler.CustomCron = override.Scheduler.CustomCron
	}
	if override.Scheduler.CleanupCron != "" {
		base.Scheduler.CleanupCron = override.Scheduler.CleanupCron
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.Concurrency > 0 {
		base.Scheduler.Concurrency = override.Scheduler.Concurrency
	}

	if override.Gmail.CredentialsFile != "" {
		base.Gmail.CredentialsFile = override.Gmail.CredentialsFile
	}
	if override.Gmail.TokenFile != "" {
		base.Gmail.TokenFile = override.Gmail.TokenFile
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}
	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "newscollector.db"},
		HTTP:     HTTPConfig{TimeoutSeconds: 30},
		Scheduler: SchedulerConfig{
			PrimaryCron: "0 * * * *",
			CustomCron:  "*/30 * * * *",
			CleanupCron: "0 2 * * *",
			Timezone:    defaultTimezone,
			Concurrency: 4,
			location:    tz,
		},
		Gmail: GmailConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You summarize news articles and newsletters.",
		},
		Feeds: []FeedConfig{
			{Name: "techcrunch", URL: "https://techcrunch.com/feed/"},
			{Name: "ars-technica", URL: "https://feeds.arstechnica.com/arstechnica/index"},
			{Name: "the-verge", URL: "https://www.theverge.com/rss/index.xml"},
			{Name: "hacker-news", URL: "https://news.ycombinator.com/rss"},
		},
	}
}
