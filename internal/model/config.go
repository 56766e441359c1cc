package model

import (
	"errors"
	"time"
)

// Config holds every tunable of a slant run
type Config struct {
	Detection    DetectionConfig    `yaml:"detection" mapstructure:"detection"`
	Lexicon      LexiconConfig      `yaml:"lexicon" mapstructure:"lexicon"`
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
	History      HistoryConfig      `yaml:"history" mapstructure:"history"`
}

// DetectionConfig holds the weighting and windowing knobs of the engine
type DetectionConfig struct {
	Window            int     `yaml:"window" mapstructure:"window"`                             // Max token gap between co-occurring terms
	GroupWeight       float64 `yaml:"group_weight" mapstructure:"group_weight"`                 // Raw weight per group-term match
	GroupCap          float64 `yaml:"group_cap" mapstructure:"group_cap"`                       // Max total raw weight from group terms
	TermWeight        float64 `yaml:"term_weight" mapstructure:"term_weight"`                   // Raw weight per trait-term match
	PatternWeight     float64 `yaml:"pattern_weight" mapstructure:"pattern_weight"`             // Raw weight per pattern firing
	SevereWeight      float64 `yaml:"severe_weight" mapstructure:"severe_weight"`               // Raw weight per backhanded/cluster firing
	Threshold         float64 `yaml:"threshold" mapstructure:"threshold"`                       // Minimum compressed score to flag a category
	MaxFiringsPerRule int     `yaml:"max_firings_per_rule" mapstructure:"max_firings_per_rule"` // Firings of one rule counted per category
	ContextWidth      int     `yaml:"context_width" mapstructure:"context_width"`               // Characters of context on each side of a highlight
}

// LexiconConfig selects the lexicon table
type LexiconConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // Empty means the built-in table
}

// HTTPConfig controls URL inputs
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS   bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the report cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls batch parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig throttles URL fetches per host
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// LLMConfig configures the optional rewrite advisor
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "openai" or "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
	IncludeText   bool `yaml:"include_text" mapstructure:"include_text"` // Embed the analysed text in JSON reports
}

// HistoryConfig controls the scan history database
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// DefaultDetectionConfig returns the calibrated engine defaults
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		Window:            12,
		GroupWeight:       0.03,
		GroupCap:          0.1,
		TermWeight:        0.15,
		PatternWeight:     0.4,
		SevereWeight:      0.5,
		Threshold:         0.1,
		MaxFiringsPerRule: 3,
		ContextWidth:      30,
	}
}

// DefaultConfig returns sensible defaults for every section
func DefaultConfig() *Config {
	return &Config{
		Detection: DefaultDetectionConfig(),
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Slant/0.1 (+https://github.com/ppiankov/slant)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         5,
		},
		LLM: LLMConfig{
			Timeout:   30,
			MaxTokens: 800,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

// Configuration validation errors
var (
	ErrInvalidWindow    = errors.New("invalid detection window: must be positive")
	ErrInvalidWeight    = errors.New("invalid detection weight: must be non-negative")
	ErrInvalidThreshold = errors.New("invalid detection threshold: must be in [0,1)")
	ErrInvalidFiringCap = errors.New("invalid max firings per rule: must be positive")
	ErrInvalidContext   = errors.New("invalid context width: must be non-negative")
	ErrInvalidWorkers   = errors.New("invalid worker count: must be positive")
	ErrInvalidTimeout   = errors.New("invalid http timeout: must be positive")
)

// Validate checks the detection knobs
func (d DetectionConfig) Validate() error {
	if d.Window <= 0 {
		return ErrInvalidWindow
	}
	for _, w := range []float64{d.GroupWeight, d.GroupCap, d.TermWeight, d.PatternWeight, d.SevereWeight} {
		if w < 0 {
			return ErrInvalidWeight
		}
	}
	if d.Threshold < 0 || d.Threshold >= 1 {
		return ErrInvalidThreshold
	}
	if d.MaxFiringsPerRule <= 0 {
		return ErrInvalidFiringCap
	}
	if d.ContextWidth < 0 {
		return ErrInvalidContext
	}
	return nil
}

// Validate checks the whole configuration
func (c *Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return err
	}
	if c.Concurrency.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.HTTP.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	return nil
}
