package agentic

import "time"

// Config holds the immutable parameters of one run. It is supplied by the
// caller at loop construction and never mutated afterwards.
type Config struct {
	MaxTurns   int           // upper bound on model queries
	Timeout    time.Duration // wall-clock budget for the whole run
	MaxCostUSD float64       // cumulative spend ceiling across model calls

	Tier        Tier    // model class to request from the client
	Temperature float32 // forwarded per query
	MaxTokens   int     // per-query output token cap

	// AllowedTools restricts which registry entries are visible to the model
	// this run. Nil means all registered tools are visible.
	AllowedTools []string

	// ParallelToolCalls lets tool invocations requested in one model turn
	// execute concurrently. Results fold back in request order either way.
	ParallelToolCalls bool

	EnableCompaction     bool
	CompactionThreshold  float64 // fraction of context capacity, 0 < t <= 1
	CompactionKeepRecent int     // turns preserved verbatim, must be >= 1

	MaxRetriesPerTool int
	RetryOnError      bool

	// ModelRetryPolicy governs the loop's own retries of failed model
	// queries. Zero value means DefaultModelRetryPolicy.
	ModelRetryPolicy *RetryPolicy

	// Hooks are side-effecting observers invoked synchronously at defined
	// points. They never alter control flow. Nil is the no-op default.
	Hooks Hooks
}

// DefaultConfig returns the default run parameters.
func DefaultConfig() Config {
	return Config{
		MaxTurns:             25,
		Timeout:              300 * time.Second,
		MaxCostUSD:           1.0,
		Tier:                 TierSmart,
		Temperature:          0.2,
		MaxTokens:            4096,
		ParallelToolCalls:    true,
		EnableCompaction:     true,
		CompactionThreshold:  0.8,
		CompactionKeepRecent: 8,
		MaxRetriesPerTool:    2,
		RetryOnError:         true,
	}
}

// Validate checks the configuration against the registry the run will use.
// All violations are reported as *ConfigError.
func (c Config) Validate(reg ToolRegistry) error {
	if c.MaxTurns <= 0 {
		return &ConfigError{Field: "MaxTurns", Reason: "must be positive"}
	}
	if c.Timeout <= 0 {
		return &ConfigError{Field: "Timeout", Reason: "must be positive"}
	}
	if c.MaxCostUSD <= 0 {
		return &ConfigError{Field: "MaxCostUSD", Reason: "must be positive"}
	}
	if !c.Tier.Valid() {
		return &ConfigError{Field: "Tier", Reason: "unknown tier: " + string(c.Tier)}
	}
	if c.MaxTokens < 0 {
		return &ConfigError{Field: "MaxTokens", Reason: "must not be negative"}
	}
	if c.MaxRetriesPerTool < 0 {
		return &ConfigError{Field: "MaxRetriesPerTool", Reason: "must not be negative"}
	}
	if c.EnableCompaction {
		if c.CompactionThreshold <= 0 || c.CompactionThreshold > 1 {
			return &ConfigError{Field: "CompactionThreshold", Reason: "must be in (0, 1]"}
		}
		if c.CompactionKeepRecent < 1 {
			return &ConfigError{Field: "CompactionKeepRecent", Reason: "must be at least 1"}
		}
	}
	if c.AllowedTools != nil {
		if _, err := reg.Restrict(c.AllowedTools); err != nil {
			return &ConfigError{Field: "AllowedTools", Reason: err.Error()}
		}
	}
	return nil
}
