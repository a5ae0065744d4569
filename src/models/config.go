package models

// MConfig Structure
type MConfig struct {
	Name        string           `yaml:"name"`
	Host        string           `yaml:"host"`
	Port        int              `yaml:"port"`
	LogLevel    string           `yaml:"log_level"`
	CORSOrigins []string         `yaml:"cors_origins"`
	Gateway     MGatewayConfig   `yaml:"gateway"`
	Security    MSecurityConfig  `yaml:"security"`
	RateLimit   MRateLimitConfig `yaml:"rate_limit"`
	Stream      MStreamConfig    `yaml:"stream"`
}

type MGatewayConfig struct {
	BaseURL           string `yaml:"base_url"`
	AccountID         string `yaml:"account_id"`
	RequestTimeout    int    `yaml:"timeout"`
	MaxRetries        int    `yaml:"retries"`
	RetryDelaySeconds int    `yaml:"retry_delay_seconds"`
	SkipTLSVerify     bool   `yaml:"insecure_skip_verify"`
}

type MSecurityConfig struct {
	APIKeyHeader string `yaml:"api_key_header"`
	APIKey       string `yaml:"api_key"`
}

type MRateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

type MStreamConfig struct {
	UpdateIntervalSeconds int `yaml:"update_interval_seconds"`
	ErrorBackoffSeconds   int `yaml:"error_backoff_seconds"`
}
