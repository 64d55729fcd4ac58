package config

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "anthropic",
			Model:       "claude-sonnet-4-20250514",
			MaxRetries:  3,
			TimeoutSecs: 120,
		},
		Agent: AgentConfig{
			SystemPrompt: "You are a helpful assistant. Use the available tools when they help answer the request.",
			MaxTokens:    4096,
			Temperature:  0.7,
			MaxToolCalls: 20,
			HistoryLimit: 50,
			SummarizeAt:  80000,
		},
		Intercept: InterceptConfig{
			Overflow: "drop_oldest",
		},
		Cache: CacheConfig{
			Enabled: true,
			Backend: "sqlite",
			TTLSecs: 7 * 24 * 60 * 60,
		},
		Security: SecurityConfig{
			PIIFiltering: PIIFilterConfig{
				Enabled:      true,
				FilterEmails: true,
				FilterPhones: true,
				FilterCards:  true,
				FilterIPs:    false,
				FilterSSN:    true,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
