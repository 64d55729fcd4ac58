package config

// Config is the top-level application configuration.
type Config struct {
	LLM         LLMConfig       `json:"llm" yaml:"llm" envPrefix:"LLM_"`
	FallbackLLM *LLMConfig      `json:"fallback_llm,omitempty" yaml:"fallback_llm,omitempty" envPrefix:"FALLBACK_LLM_"`
	Agent       AgentConfig     `json:"agent" yaml:"agent" envPrefix:"AGENT_"`
	Intercept   InterceptConfig `json:"intercept" yaml:"intercept" envPrefix:"INTERCEPT_"`
	Cache       CacheConfig     `json:"cache" yaml:"cache" envPrefix:"CACHE_"`
	Telegram    TelegramConfig  `json:"telegram" yaml:"telegram" envPrefix:"TELEGRAM_"`
	Security    SecurityConfig  `json:"security" yaml:"security" envPrefix:"SECURITY_"`
	Log         LogConfig       `json:"log" yaml:"log" envPrefix:"LOG_"`
}

type LLMConfig struct {
	Provider    string `json:"provider" yaml:"provider" env:"PROVIDER"`
	Model       string `json:"model" yaml:"model" env:"MODEL"`
	APIKey      string `json:"api_key,omitempty" yaml:"api_key,omitempty" env:"API_KEY"`
	BaseURL     string `json:"base_url,omitempty" yaml:"base_url,omitempty" env:"BASE_URL"`
	MaxRetries  int    `json:"max_retries" yaml:"max_retries" env:"MAX_RETRIES"`
	TimeoutSecs int    `json:"timeout_secs" yaml:"timeout_secs" env:"TIMEOUT_SECS"`
}

type AgentConfig struct {
	SystemPrompt string  `json:"system_prompt" yaml:"system_prompt" env:"SYSTEM_PROMPT"`
	MaxTokens    int     `json:"max_tokens" yaml:"max_tokens" env:"MAX_TOKENS"`
	Temperature  float64 `json:"temperature" yaml:"temperature" env:"TEMPERATURE"`
	MaxToolCalls int     `json:"max_tool_calls" yaml:"max_tool_calls" env:"MAX_TOOL_CALLS"`
	HistoryLimit int     `json:"history_limit" yaml:"history_limit" env:"HISTORY_LIMIT"`
	SummarizeAt  int     `json:"summarize_at" yaml:"summarize_at" env:"SUMMARIZE_AT"`
	WorkspaceDir string  `json:"workspace_dir,omitempty" yaml:"workspace_dir,omitempty" env:"WORKSPACE_DIR"`
}

// InterceptConfig bounds observer queues. QueueLimit 0 means unbounded.
type InterceptConfig struct {
	QueueLimit int    `json:"queue_limit" yaml:"queue_limit" env:"QUEUE_LIMIT"`
	Overflow   string `json:"overflow" yaml:"overflow" env:"OVERFLOW"`
	Debug      bool   `json:"debug" yaml:"debug" env:"DEBUG"`
}

type CacheConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" env:"ENABLED"`
	Backend  string `json:"backend" yaml:"backend" env:"BACKEND"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty" env:"PATH"`
	RedisURL string `json:"redis_url,omitempty" yaml:"redis_url,omitempty" env:"REDIS_URL"`
	TTLSecs  int    `json:"ttl_secs" yaml:"ttl_secs" env:"TTL_SECS"`
}

type TelegramConfig struct {
	Token  string `json:"token,omitempty" yaml:"token,omitempty" env:"TOKEN"`
	ChatID int64  `json:"chat_id,omitempty" yaml:"chat_id,omitempty" env:"CHAT_ID"`
}

// Enabled reports whether a bot token and a destination chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

type SecurityConfig struct {
	PIIFiltering PIIFilterConfig `json:"pii_filtering" yaml:"pii_filtering" envPrefix:"PII_"`
}

type PIIFilterConfig struct {
	Enabled      bool `json:"enabled" yaml:"enabled" env:"ENABLED"`
	FilterEmails bool `json:"filter_emails" yaml:"filter_emails" env:"FILTER_EMAILS"`
	FilterPhones bool `json:"filter_phones" yaml:"filter_phones" env:"FILTER_PHONES"`
	FilterCards  bool `json:"filter_cards" yaml:"filter_cards" env:"FILTER_CARDS"`
	FilterIPs    bool `json:"filter_ips" yaml:"filter_ips" env:"FILTER_IPS"`
	FilterSSN    bool `json:"filter_ssn" yaml:"filter_ssn" env:"FILTER_SSN"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" env:"LEVEL"`
	Format string `json:"format" yaml:"format" env:"FORMAT"`
}
