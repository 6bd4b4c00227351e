package model

import (
	"fmt"
	"time"
)

// Provider names the closed set of supported model backends
type Provider string

const (
	ProviderAzure  Provider = "azure"
	ProviderGemini Provider = "gemini"
)

// AzureConfig holds the options required for the Azure OpenAI provider.
// All four fields are required.
type AzureConfig struct {
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	APIVersion string `yaml:"api_version" mapstructure:"api_version"`
	Deployment string `yaml:"deployment" mapstructure:"deployment"`
}

// Validate reports the first missing required option
func (c *AzureConfig) Validate() error {
	switch {
	case c.Endpoint == "":
		return fmt.Errorf("azure endpoint is required")
	case c.APIKey == "":
		return fmt.Errorf("azure API key is required")
	case c.APIVersion == "":
		return fmt.Errorf("azure API version is required")
	case c.Deployment == "":
		return fmt.Errorf("azure deployment name is required")
	}
	return nil
}

// Fingerprint identifies the effective client configuration
func (c *AzureConfig) Fingerprint() string {
	return fmt.Sprintf("azure|%s|%s|%s|%s", c.Endpoint, c.APIKey, c.APIVersion, c.Deployment)
}

// GeminiConfig holds the options required for the Gemini provider
type GeminiConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url,omitempty" mapstructure:"base_url"` // override for tests/proxies
}

// Validate reports the first missing required option
func (c *GeminiConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("gemini API key is required")
	}
	if c.Model == "" {
		return fmt.Errorf("gemini model name is required")
	}
	return nil
}

// Fingerprint identifies the effective client configuration
func (c *GeminiConfig) Fingerprint() string {
	return fmt.Sprintf("gemini|%s|%s|%s", c.BaseURL, c.APIKey, c.Model)
}

// ProviderConfig is the tagged union of per-provider settings.
// Exactly one of Azure/Gemini is set, selected by Name.
type ProviderConfig struct {
	Name   Provider      `yaml:"name" mapstructure:"name"`
	Azure  *AzureConfig  `yaml:"azure,omitempty" mapstructure:"azure"`
	Gemini *GeminiConfig `yaml:"gemini,omitempty" mapstructure:"gemini"`

	// InvokeTimeout bounds a single model invocation
	InvokeTimeout time.Duration `yaml:"invoke_timeout" mapstructure:"invoke_timeout"`
}

// Validate checks that the selected provider's options are complete
func (c *ProviderConfig) Validate() error {
	switch c.Name {
	case ProviderAzure:
		if c.Azure == nil {
			return fmt.Errorf("azure configuration block is required")
		}
		return c.Azure.Validate()
	case ProviderGemini:
		if c.Gemini == nil {
			return fmt.Errorf("gemini configuration block is required")
		}
		return c.Gemini.Validate()
	default:
		return fmt.Errorf("unknown provider: %q (supported: azure, gemini)", c.Name)
	}
}

// Fingerprint identifies the effective client configuration, used by the
// invocation gateway to decide when a cached client must be rebuilt.
func (c *ProviderConfig) Fingerprint() string {
	switch c.Name {
	case ProviderAzure:
		if c.Azure != nil {
			return c.Azure.Fingerprint()
		}
	case ProviderGemini:
		if c.Gemini != nil {
			return c.Gemini.Fingerprint()
		}
	}
	return "invalid"
}

// SearchConfig controls the evidence aggregator
type SearchConfig struct {
	// MaxConcurrent bounds in-flight backend searches across the whole
	// process, independent of claim-level parallelism.
	MaxConcurrent int64 `yaml:"max_concurrent" mapstructure:"max_concurrent"`

	// Timeout bounds a single backend search
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// MaxResults caps merged results per claim
	MaxResults int `yaml:"max_results" mapstructure:"max_results"`

	// PerBackend caps results requested from one backend call
	PerBackend int `yaml:"per_backend" mapstructure:"per_backend"`

	// CacheTTL is how long backend responses stay cached (0 disables)
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// RatePerHost is the per-host request rate for backend calls
	RatePerHost float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`

	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// ConcurrencyConfig controls worker counts
type ConcurrencyConfig struct {
	// MaxWorkers bounds simultaneously running claim pipelines
	MaxWorkers int `yaml:"max_workers" mapstructure:"max_workers"`

	// SearchWorkers is the size of the shared pool that isolates
	// blocking search I/O
	SearchWorkers int `yaml:"search_workers" mapstructure:"search_workers"`

	// ValidationWorkers bounds concurrent source accessibility checks
	ValidationWorkers int `yaml:"validation_workers" mapstructure:"validation_workers"`

	// BatchTimeout bounds an entire batch run
	BatchTimeout time.Duration `yaml:"batch_timeout" mapstructure:"batch_timeout"`
}

// AuthorityConfig drives source authority classification
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	JSONPath string `yaml:"json" mapstructure:"json"`
	MDPath   string `yaml:"md,omitempty" mapstructure:"md"`
	Verbose  bool   `yaml:"verbose" mapstructure:"verbose"`
}

// ValidationConfig controls source accessibility checking
type ValidationConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxURLs int           `yaml:"max_urls" mapstructure:"max_urls"`
}

// Config is the complete application configuration
type Config struct {
	Provider    ProviderConfig    `yaml:"provider" mapstructure:"provider"`
	Search      SearchConfig      `yaml:"search" mapstructure:"search"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Validation  ValidationConfig  `yaml:"validation" mapstructure:"validation"`
	Authority   AuthorityConfig   `yaml:"authority" mapstructure:"authority"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:          ProviderGemini,
			Gemini:        &GeminiConfig{Model: "gemini-2.5-flash"},
			InvokeTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			MaxConcurrent: 4,
			Timeout:       20 * time.Second,
			MaxResults:    12,
			PerBackend:    4,
			CacheTTL:      15 * time.Minute,
			RatePerHost:   2,
			UserAgent:     "Veracity/0.1 (+https://github.com/pmordasov/veracity)",
		},
		Concurrency: ConcurrencyConfig{
			MaxWorkers:        5,
			SearchWorkers:     8,
			ValidationWorkers: 8,
			BatchTimeout:      5 * time.Minute,
		},
		Validation: ValidationConfig{
			Enabled: true,
			Timeout: 10 * time.Second,
			MaxURLs: 6,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"gov.uk", "europa.eu", "un.org", "who.int", "nasa.gov",
				"nih.gov", "census.gov", "sec.gov",
			},
			SecondaryDomains: []string{
				"wikipedia.org", "britannica.com", "reuters.com", "apnews.com",
				"bbc.com", "bbc.co.uk", "nytimes.com", "nature.com",
			},
		},
		Output: OutputConfig{
			JSONPath: "verdicts.json",
		},
	}
}
