// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "deep-research/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// AIConfig holds shared settings for stages that call the Claude API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-3-5-sonnet-latest").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the Exa API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// ExcerptChars caps the search-time content excerpt length (default 5000).
	ExcerptChars int `json:"excerpt_chars" yaml:"excerpt_chars"`
}

// FetchConfig holds settings for the full-text fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is the Firecrawl API key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxContentChars caps the extracted article text length (default 100000).
	MaxContentChars int `json:"max_content_chars" yaml:"max_content_chars"`
}

// ResearchConfig holds settings for the research loop controller.
type ResearchConfig struct {
	// MaxIterations is the iteration budget. Zero skips straight to
	// synthesis over an empty session.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// ResultsPerSearch is the number of results requested per search (default 5).
	ResultsPerSearch int `json:"results_per_search" yaml:"results_per_search"`

	// ParallelFetches bounds concurrent full-text fetches within one
	// iteration. Values below 2 fetch sequentially. Source ordering is
	// preserved either way.
	ParallelFetches int `json:"parallel_fetches" yaml:"parallel_fetches"`

	// DateFrom and DateTo bound publication dates for every search in the
	// session. The model may narrow the window per iteration but these
	// apply whenever it does not.
	DateFrom time.Time `json:"date_from,omitempty" yaml:"date_from,omitempty"`
	DateTo   time.Time `json:"date_to,omitempty" yaml:"date_to,omitempty"`
}

// StoreConfig holds settings for the session archive.
type StoreConfig struct {
	// DataDir is the base directory for session data (contains index/).
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MaxResults is the default maximum number of source-search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// ServerConfig holds settings for the read-only HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default "127.0.0.1:8475").
	Addr string `json:"addr" yaml:"addr"`
}

// Config groups all stage configurations.
type Config struct {
	AI       AIConfig       `json:"ai" yaml:"ai"`
	Search   SearchConfig   `json:"search" yaml:"search"`
	Fetch    FetchConfig    `json:"fetch" yaml:"fetch"`
	Research ResearchConfig `json:"research" yaml:"research"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}
