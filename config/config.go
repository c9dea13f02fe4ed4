package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderMistral  = "mistral"
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"

	MarketYahoo    = "yahoo"
	MarketLongport = "longport"
)

var defaultBaseURLs = map[string]string{
	ProviderMistral:  "https://api.mistral.ai/v1",
	ProviderDeepSeek: "https://api.deepseek.com",
	ProviderOpenAI:   "https://api.openai.com/v1",
}

var defaultModels = map[string]string{
	ProviderMistral:  "mistral-medium-latest",
	ProviderDeepSeek: "deepseek-chat",
	ProviderOpenAI:   "gpt-4o-mini",
}

type Config struct {
	DataDir       string `json:"data_dir"`
	ChartDir      string `json:"chart_dir"`
	HistoryDBPath string `json:"history_db_path"`

	LLMProvider  string `json:"llm_provider"`
	LLMModel     string `json:"llm_model"`
	LLMBaseURL   string `json:"llm_base_url"`
	LLMMaxTokens int    `json:"llm_max_tokens"`

	MarketDataProvider   string   `json:"market_data_provider"`
	RequestTimeout       Duration `json:"request_timeout"`
	MaxConcurrentFetches int      `json:"max_concurrent_fetches"`
	HeadlinesEnabled     bool     `json:"headlines_enabled"`

	RouterStrict bool   `json:"router_strict"`
	SymbolsFile  string `json:"symbols_file"`

	HTTPAddr string `json:"http_addr"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
	Debug    bool   `json:"debug"`

	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`

	// Credentials are read from the environment only and never written to the config file.
	MistralAPIKey       string `json:"-"`
	DeepSeekAPIKey      string `json:"-"`
	OpenAIAPIKey        string `json:"-"`
	FinnhubAPIKey       string `json:"-"`
	LongportAppKey      string `json:"-"`
	LongportAppSecret   string `json:"-"`
	LongportAccessToken string `json:"-"`
}

// Duration marshals as a Go duration string ("20s") in the JSON config file.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	cfg := DefaultConfigWithRoot(currentDir)

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.LoadFromEnv()
	return cfg
}

func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		DataDir:  filepath.Join(root, "data"),
		ChartDir: filepath.Join(root, "data", "charts"),

		LLMProvider:  ProviderMistral,
		LLMModel:     defaultModels[ProviderMistral],
		LLMBaseURL:   defaultBaseURLs[ProviderMistral],
		LLMMaxTokens: 1024,

		MarketDataProvider:   MarketYahoo,
		RequestTimeout:       Duration(20 * time.Second),
		MaxConcurrentFetches: 4,
		HeadlinesEnabled:     true,

		HTTPAddr: "127.0.0.1:8080",
		LogLevel: "info",

		EinoDebugPort: 52538,
	}
}

// LoadFromEnv applies environment overrides on top of the current values.
func (c *Config) LoadFromEnv() {
	if val := os.Getenv("DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("CHART_DIR"); val != "" {
		c.ChartDir = val
	}
	if val := os.Getenv("HISTORY_DB_PATH"); val != "" {
		c.HistoryDBPath = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		provider := strings.ToLower(strings.TrimSpace(val))
		if provider != c.LLMProvider {
			c.LLMProvider = provider
			c.LLMModel = defaultModels[provider]
			c.LLMBaseURL = defaultBaseURLs[provider]
		}
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.LLMModel = val
	}
	if val := os.Getenv("LLM_BASE_URL"); val != "" {
		c.LLMBaseURL = val
	}
	if val := os.Getenv("LLM_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.LLMMaxTokens = v
		}
	}

	if val := os.Getenv("MARKET_DATA_PROVIDER"); val != "" {
		c.MarketDataProvider = strings.ToLower(strings.TrimSpace(val))
	}
	if val := os.Getenv("REQUEST_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.RequestTimeout = Duration(d)
		}
	}
	if val := os.Getenv("MAX_CONCURRENT_FETCHES"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxConcurrentFetches = v
		}
	}
	if val := os.Getenv("HEADLINES_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.HeadlinesEnabled = enabled
		}
	}

	if val := os.Getenv("ROUTER_STRICT"); val != "" {
		if strict, err := strconv.ParseBool(val); err == nil {
			c.RouterStrict = strict
		}
	}
	if val := os.Getenv("SYMBOLS_FILE"); val != "" {
		c.SymbolsFile = val
	}
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		c.HTTPAddr = val
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("LOG_FILE"); val != "" {
		c.LogFile = val
	}
	if val := os.Getenv("STOCKAGENT_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}

	c.MistralAPIKey = os.Getenv("MISTRAL_API_KEY")
	c.DeepSeekAPIKey = os.Getenv("DEEPSEEK_API_KEY")
	c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.FinnhubAPIKey = os.Getenv("STOCKAGENT_FINNHUB_API_KEY")
	c.LongportAppKey = os.Getenv("LONGPORT_APP_KEY")
	c.LongportAppSecret = os.Getenv("LONGPORT_APP_SECRET")
	c.LongportAccessToken = os.Getenv("LONGPORT_ACCESS_TOKEN")
}

// clearCredentials drops the values that must only come from the environment.
func (c *Config) clearCredentials() {
	c.MistralAPIKey = ""
	c.DeepSeekAPIKey = ""
	c.OpenAIAPIKey = ""
	c.FinnhubAPIKey = ""
	c.LongportAppKey = ""
	c.LongportAppSecret = ""
	c.LongportAccessToken = ""
}

// LLMAPIKey returns the credential for the configured model provider.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case ProviderDeepSeek:
		return c.DeepSeekAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	default:
		return c.MistralAPIKey
	}
}

// LLMKeyEnv names the environment variable holding the model credential.
func (c *Config) LLMKeyEnv() string {
	switch c.LLMProvider {
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "MISTRAL_API_KEY"
	}
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderMistral, ProviderDeepSeek, ProviderOpenAI:
	default:
		return fmt.Errorf("llm_provider must be one of mistral, deepseek, openai (got %q)", c.LLMProvider)
	}
	if strings.TrimSpace(c.LLMModel) == "" {
		return fmt.Errorf("llm_model is required")
	}
	switch c.MarketDataProvider {
	case MarketYahoo, MarketLongport:
	default:
		return fmt.Errorf("market_data_provider must be yahoo or longport (got %q)", c.MarketDataProvider)
	}
	if c.RequestTimeout.Std() <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.MaxConcurrentFetches < 1 || c.MaxConcurrentFetches > 16 {
		return fmt.Errorf("max_concurrent_fetches must be between 1 and 16")
	}
	if c.LLMMaxTokens < 0 {
		return fmt.Errorf("llm_max_tokens must not be negative")
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.ChartDir}
	if c.HistoryDBPath != "" {
		dirs = append(dirs, filepath.Dir(c.HistoryDBPath))
	}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
