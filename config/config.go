package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	openAIKeyEnv    = "OPENAI_API_KEY"
	webflowKeyEnv   = "WEBFLOW_API_KEY"
	webflowSiteEnv  = "WEBFLOW_SITE_ID"
	sheetsDocEnv    = "GOOGLE_SHEETS_DOC_ID"
	sheetsCredsEnv  = "GOOGLE_SHEETS_CREDENTIALS_FILE"
	s3BucketEnv     = "S3_BUCKET"
	s3RegionEnv     = "S3_REGION"
	chatbotURLEnv   = "CHATBOT_URL"
	publishedURLEnv = "PUBLISHED_URL_BASE"
)

// ProviderWebflow and ProviderSheets name the two publish targets.
const (
	ProviderWebflow = "webflow"
	ProviderSheets  = "sheets"
)

// Duration wraps time.Duration so YAML can carry values like "30s" or "5m".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds everything the run needs beyond the command-line flags.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	LLM      LLMConfig      `yaml:"llm"`
	Image    ImageConfig    `yaml:"image"`
	Retry    RetryConfig    `yaml:"retry"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Webflow  WebflowConfig  `yaml:"webflow"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	S3       S3Config       `yaml:"s3"`

	// References lists local documents uploaded once per run as generation context.
	References []string `yaml:"references"`
	LedgerPath string   `yaml:"ledger_path"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LLMConfig describes the generative-text service.
type LLMConfig struct {
	APIKey              string  `yaml:"api_key"`
	BaseURL             string  `yaml:"base_url"`
	Model               string  `yaml:"model"`
	BodyTemperature     float64 `yaml:"body_temperature"`
	MetadataTemperature float64 `yaml:"metadata_temperature"`
	SocialTemperature   float64 `yaml:"social_temperature"`
	PromptPath          string  `yaml:"prompt_path"`
}

// ImageConfig describes the generative-image service.
type ImageConfig struct {
	Model string `yaml:"model"`
	Size  string `yaml:"size"`
}

// RetryConfig bounds remote-call retries.
type RetryConfig struct {
	MaxAttempts uint64   `yaml:"max_attempts"`
	Backoff     Duration `yaml:"backoff"`
}

// WorkflowConfig tunes the run loop.
type WorkflowConfig struct {
	Cooldown   Duration `yaml:"cooldown"`
	Draft      bool     `yaml:"draft"`
	Featured   bool     `yaml:"featured"`
	ChatbotURL string   `yaml:"chatbot_url"`
}

// WebflowConfig wires the structured-CMS publish target.
type WebflowConfig struct {
	Token            string `yaml:"token"`
	SiteID           string `yaml:"site_id"`
	CollectionID     string `yaml:"collection_id"`
	CategoryID       string `yaml:"category_id"`
	AuthorID         string `yaml:"author_id"`
	APIBaseURL       string `yaml:"api_base_url"`
	PublishedURLBase string `yaml:"published_url_base"`
}

// SheetsConfig wires the spreadsheet publish target.
type SheetsConfig struct {
	DocID            string `yaml:"doc_id"`
	Worksheet        string `yaml:"worksheet"`
	CredentialsFile  string `yaml:"credentials_file"`
	PublishedURLBase string `yaml:"published_url_base"`
}

// S3Config enables the sheets image sub-variant when a bucket is set.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv(webflowKeyEnv); v != "" {
		c.Webflow.Token = v
	}
	if v := os.Getenv(webflowSiteEnv); v != "" {
		c.Webflow.SiteID = v
	}
	if v := os.Getenv(sheetsDocEnv); v != "" {
		c.Sheets.DocID = v
	}
	if v := os.Getenv(sheetsCredsEnv); v != "" {
		c.Sheets.CredentialsFile = v
	}
	if v := os.Getenv(s3BucketEnv); v != "" {
		c.S3.Bucket = v
	}
	if v := os.Getenv(s3RegionEnv); v != "" {
		c.S3.Region = v
	}
	if v := os.Getenv(chatbotURLEnv); v != "" {
		c.Workflow.ChatbotURL = v
	}
	if v := os.Getenv(publishedURLEnv); v != "" {
		c.Webflow.PublishedURLBase = v
	}
}

// Validate checks everything the selected provider needs before the run starts.
func (c Config) Validate(provider string) error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm api key missing; set %s or llm.api_key", openAIKeyEnv)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	switch provider {
	case ProviderWebflow:
		if c.Webflow.Token == "" {
			return fmt.Errorf("webflow token missing; set %s or webflow.token", webflowKeyEnv)
		}
		if c.Webflow.SiteID == "" || c.Webflow.CollectionID == "" {
			return fmt.Errorf("webflow.site_id and webflow.collection_id are required")
		}
	case ProviderSheets:
		if c.Sheets.DocID == "" {
			return fmt.Errorf("sheets doc id missing; set %s or sheets.doc_id", sheetsDocEnv)
		}
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", provider, ProviderWebflow, ProviderSheets)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		LLM: LLMConfig{
			Model:               "gpt-4o",
			BodyTemperature:     0.7,
			MetadataTemperature: 0.8,
			SocialTemperature:   0.6,
		},
		Image: ImageConfig{Model: "gpt-image-1", Size: "1024x1024"},
		Retry: RetryConfig{MaxAttempts: 3, Backoff: Duration(30 * time.Second)},
		Workflow: WorkflowConfig{
			Cooldown: Duration(5 * time.Minute),
			Draft:    true,
			Featured: true,
		},
		Webflow: WebflowConfig{
			APIBaseURL:       "https://api.webflow.com/v2",
			PublishedURLBase: "https://www.example.com/blog/",
		},
		Sheets: SheetsConfig{
			Worksheet:        "posts",
			PublishedURLBase: "https://www.example.com/blog/",
		},
		S3:         S3Config{Region: "us-east-1"},
		LedgerPath: "summaries.txt",
	}
}
