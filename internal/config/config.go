package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendPaper = "paper"
	BackendEVM   = "evm"
)

type GlobalFlags struct {
	ConfigPath    string
	JSON          bool
	Plain         bool
	EnableIntents string
	Timeout       string
	Retries       int
	Backend       string
	RPCURL        string
	Address       string
	KeySource     string
	Store         string
	Session       string
	LogLevel      string
	NoLLM         bool
}

type Settings struct {
	OutputMode    string
	EnableIntents []string
	Timeout       time.Duration
	Retries       int
	MaxStale      time.Duration

	Backend         string
	ChainID         int64
	RPCURL          string
	Address         string
	KeySource       string
	Validator       string
	SymphonyURL     string
	ReceiptTimeout  time.Duration
	MaxFeeGwei      string
	MaxPriorityGwei string
	SlippageBps     int64
	MaxPriceImpact  float64

	StoreDriver   string
	StorePath     string
	StoreLockPath string
	RedisURL      string
	AuditPath     string
	AuditLockPath string

	LLMBaseURL     string
	LLMModel       string
	LLMAPIKey      string
	LLMTemperature float64
	LLMDisabled    bool

	BinanceAPIKey    string
	BinanceSecretKey string
	BinanceBaseURL   string

	NATSURL     string
	NATSSubject string

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	SessionID string
}

type fileConfig struct {
	Output        string   `yaml:"output"`
	Timeout       string   `yaml:"timeout"`
	Retries       *int     `yaml:"retries"`
	EnableIntents []string `yaml:"enable_intents"`
	Chain         struct {
		Backend         string   `yaml:"backend"`
		ChainID         int64    `yaml:"chain_id"`
		RPCURL          string   `yaml:"rpc_url"`
		Address         string   `yaml:"address"`
		KeySource       string   `yaml:"key_source"`
		Validator       string   `yaml:"validator"`
		SymphonyURL     string   `yaml:"symphony_url"`
		ReceiptTimeout  string   `yaml:"receipt_timeout"`
		MaxFeeGwei      string   `yaml:"max_fee_gwei"`
		MaxPriorityGwei string   `yaml:"max_priority_fee_gwei"`
		SlippageBps     *int64   `yaml:"slippage_bps"`
		MaxPriceImpact  *float64 `yaml:"max_price_impact"`
	} `yaml:"chain"`
	Store struct {
		Driver    string `yaml:"driver"`
		Path      string `yaml:"path"`
		LockPath  string `yaml:"lock_path"`
		RedisURL  string `yaml:"redis_url"`
		MaxStale  string `yaml:"max_stale"`
		AuditPath string `yaml:"audit_path"`
		AuditLock string `yaml:"audit_lock_path"`
	} `yaml:"store"`
	LLM struct {
		BaseURL     string   `yaml:"base_url"`
		Model       string   `yaml:"model"`
		APIKey      string   `yaml:"api_key"`
		APIKeyEnv   string   `yaml:"api_key_env"`
		Temperature *float64 `yaml:"temperature"`
		Disabled    *bool    `yaml:"disabled"`
	} `yaml:"llm"`
	Providers struct {
		Binance struct {
			APIKey       string `yaml:"api_key"`
			APIKeyEnv    string `yaml:"api_key_env"`
			SecretKeyEnv string `yaml:"secret_key_env"`
			BaseURL      string `yaml:"base_url"`
		} `yaml:"binance"`
	} `yaml:"providers"`
	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`
	Log struct {
		Level      string `yaml:"level"`
		Format     string `yaml:"format"`
		File       string `yaml:"file"`
		MaxSizeMB  *int   `yaml:"max_size_mb"`
		MaxBackups *int   `yaml:"max_backups"`
		MaxAgeDays *int   `yaml:"max_age_days"`
	} `yaml:"log"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.Timeout <= 0 {
		settings.Timeout = 15 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.MaxStale < 0 {
		settings.MaxStale = 5 * time.Minute
	}
	if settings.SlippageBps <= 0 || settings.SlippageBps >= 10_000 {
		return Settings{}, fmt.Errorf("slippage_bps must be between 1 and 9999")
	}
	if settings.MaxPriceImpact <= 0 {
		return Settings{}, fmt.Errorf("max_price_impact must be positive")
	}
	switch settings.Backend {
	case BackendPaper, BackendEVM:
	default:
		return Settings{}, fmt.Errorf("backend must be paper or evm")
	}
	switch settings.StoreDriver {
	case "sqlite", "redis", "memory":
	default:
		return Settings{}, fmt.Errorf("store must be sqlite, redis or memory")
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	dataDir, err := defaultDataDir()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		OutputMode:     "plain",
		Timeout:        15 * time.Second,
		Retries:        2,
		MaxStale:       5 * time.Minute,
		Backend:        BackendPaper,
		ChainID:        1329,
		KeySource:      "auto",
		ReceiptTimeout: 2 * time.Minute,
		SlippageBps:    100,
		MaxPriceImpact: 5,
		StoreDriver:    "sqlite",
		StorePath:      filepath.Join(dataDir, "store.db"),
		StoreLockPath:  filepath.Join(dataDir, "store.lock"),
		AuditPath:      filepath.Join(dataDir, "audit.db"),
		AuditLockPath:  filepath.Join(dataDir, "audit.lock"),
		LLMBaseURL:     "https://api.openai.com/v1",
		LLMModel:       "gpt-4o-mini",
		LLMTemperature: 0.7,
		NATSURL:        "nats://127.0.0.1:4222",
		NATSSubject:    "seichat.chat",
		LogLevel:       "warn",
		LogFormat:      "console",
		LogMaxSizeMB:   10,
		LogMaxBackups:  3,
		LogMaxAgeDays:  14,
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "seichat", "config.yaml"), nil
}

func defaultDataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(base, "seichat"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	setString(&settings.OutputMode, strings.ToLower(cfg.Output))
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if len(cfg.EnableIntents) > 0 {
		settings.EnableIntents = cfg.EnableIntents
	}

	setString(&settings.Backend, strings.ToLower(cfg.Chain.Backend))
	if cfg.Chain.ChainID != 0 {
		settings.ChainID = cfg.Chain.ChainID
	}
	setString(&settings.RPCURL, cfg.Chain.RPCURL)
	setString(&settings.Address, cfg.Chain.Address)
	setString(&settings.KeySource, cfg.Chain.KeySource)
	setString(&settings.Validator, cfg.Chain.Validator)
	setString(&settings.SymphonyURL, cfg.Chain.SymphonyURL)
	setString(&settings.MaxFeeGwei, cfg.Chain.MaxFeeGwei)
	setString(&settings.MaxPriorityGwei, cfg.Chain.MaxPriorityGwei)
	if cfg.Chain.ReceiptTimeout != "" {
		d, err := time.ParseDuration(cfg.Chain.ReceiptTimeout)
		if err != nil {
			return fmt.Errorf("config chain.receipt_timeout: %w", err)
		}
		settings.ReceiptTimeout = d
	}
	if cfg.Chain.SlippageBps != nil {
		settings.SlippageBps = *cfg.Chain.SlippageBps
	}
	if cfg.Chain.MaxPriceImpact != nil {
		settings.MaxPriceImpact = *cfg.Chain.MaxPriceImpact
	}

	setString(&settings.StoreDriver, strings.ToLower(cfg.Store.Driver))
	setString(&settings.StorePath, cfg.Store.Path)
	setString(&settings.StoreLockPath, cfg.Store.LockPath)
	setString(&settings.RedisURL, cfg.Store.RedisURL)
	setString(&settings.AuditPath, cfg.Store.AuditPath)
	setString(&settings.AuditLockPath, cfg.Store.AuditLock)
	if cfg.Store.MaxStale != "" {
		d, err := time.ParseDuration(cfg.Store.MaxStale)
		if err != nil {
			return fmt.Errorf("config store.max_stale: %w", err)
		}
		settings.MaxStale = d
	}

	setString(&settings.LLMBaseURL, cfg.LLM.BaseURL)
	setString(&settings.LLMModel, cfg.LLM.Model)
	setString(&settings.LLMAPIKey, cfg.LLM.APIKey)
	if cfg.LLM.APIKeyEnv != "" {
		settings.LLMAPIKey = os.Getenv(cfg.LLM.APIKeyEnv)
	}
	if cfg.LLM.Temperature != nil {
		settings.LLMTemperature = *cfg.LLM.Temperature
	}
	if cfg.LLM.Disabled != nil {
		settings.LLMDisabled = *cfg.LLM.Disabled
	}

	setString(&settings.BinanceAPIKey, cfg.Providers.Binance.APIKey)
	if cfg.Providers.Binance.APIKeyEnv != "" {
		settings.BinanceAPIKey = os.Getenv(cfg.Providers.Binance.APIKeyEnv)
	}
	if cfg.Providers.Binance.SecretKeyEnv != "" {
		settings.BinanceSecretKey = os.Getenv(cfg.Providers.Binance.SecretKeyEnv)
	}
	setString(&settings.BinanceBaseURL, cfg.Providers.Binance.BaseURL)

	setString(&settings.NATSURL, cfg.NATS.URL)
	setString(&settings.NATSSubject, cfg.NATS.Subject)

	setString(&settings.LogLevel, cfg.Log.Level)
	setString(&settings.LogFormat, cfg.Log.Format)
	setString(&settings.LogFile, cfg.Log.File)
	if cfg.Log.MaxSizeMB != nil {
		settings.LogMaxSizeMB = *cfg.Log.MaxSizeMB
	}
	if cfg.Log.MaxBackups != nil {
		settings.LogMaxBackups = *cfg.Log.MaxBackups
	}
	if cfg.Log.MaxAgeDays != nil {
		settings.LogMaxAgeDays = *cfg.Log.MaxAgeDays
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("SEICHAT_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("SEICHAT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("SEICHAT_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("SEICHAT_ENABLE_INTENTS"); v != "" {
		settings.EnableIntents = splitList(v)
	}
	if v := os.Getenv("SEICHAT_BACKEND"); v != "" {
		settings.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("SEICHAT_CHAIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			settings.ChainID = n
		}
	}
	if v := os.Getenv("SEICHAT_RPC_URL"); v != "" {
		settings.RPCURL = v
	}
	if v := os.Getenv("SEICHAT_ADDRESS"); v != "" {
		settings.Address = v
	}
	if v := os.Getenv("SEICHAT_KEY_SOURCE"); v != "" {
		settings.KeySource = v
	}
	if v := os.Getenv("SEICHAT_VALIDATOR"); v != "" {
		settings.Validator = v
	}
	if v := os.Getenv("SEICHAT_SYMPHONY_URL"); v != "" {
		settings.SymphonyURL = v
	}
	if v := os.Getenv("SEICHAT_SLIPPAGE_BPS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			settings.SlippageBps = n
		}
	}
	if v := os.Getenv("SEICHAT_MAX_PRICE_IMPACT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			settings.MaxPriceImpact = f
		}
	}
	if v := os.Getenv("SEICHAT_STORE"); v != "" {
		settings.StoreDriver = strings.ToLower(v)
	}
	if v := os.Getenv("SEICHAT_STORE_PATH"); v != "" {
		settings.StorePath = v
	}
	if v := os.Getenv("SEICHAT_STORE_LOCK_PATH"); v != "" {
		settings.StoreLockPath = v
	}
	if v := os.Getenv("SEICHAT_REDIS_URL"); v != "" {
		settings.RedisURL = v
	}
	if v := os.Getenv("SEICHAT_AUDIT_PATH"); v != "" {
		settings.AuditPath = v
	}
	if v := os.Getenv("SEICHAT_LLM_BASE_URL"); v != "" {
		settings.LLMBaseURL = v
	}
	if v := os.Getenv("SEICHAT_LLM_MODEL"); v != "" {
		settings.LLMModel = v
	}
	if v := os.Getenv("SEICHAT_LLM_API_KEY"); v != "" {
		settings.LLMAPIKey = v
	} else if settings.LLMAPIKey == "" {
		settings.LLMAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("SEICHAT_BINANCE_API_KEY"); v != "" {
		settings.BinanceAPIKey = v
	}
	if v := os.Getenv("SEICHAT_BINANCE_SECRET_KEY"); v != "" {
		settings.BinanceSecretKey = v
	}
	if v := os.Getenv("SEICHAT_NATS_URL"); v != "" {
		settings.NATSURL = v
	}
	if v := os.Getenv("SEICHAT_NATS_SUBJECT"); v != "" {
		settings.NATSSubject = v
	}
	if v := os.Getenv("SEICHAT_LOG_LEVEL"); v != "" {
		settings.LogLevel = v
	}
	if v := os.Getenv("SEICHAT_LOG_FORMAT"); v != "" {
		settings.LogFormat = v
	}
	if v := os.Getenv("SEICHAT_LOG_FILE"); v != "" {
		settings.LogFile = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if strings.TrimSpace(flags.EnableIntents) != "" {
		settings.EnableIntents = splitList(flags.EnableIntents)
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	setString(&settings.Backend, strings.ToLower(strings.TrimSpace(flags.Backend)))
	setString(&settings.RPCURL, strings.TrimSpace(flags.RPCURL))
	setString(&settings.Address, strings.TrimSpace(flags.Address))
	setString(&settings.KeySource, strings.TrimSpace(flags.KeySource))
	setString(&settings.StoreDriver, strings.ToLower(strings.TrimSpace(flags.Store)))
	setString(&settings.SessionID, strings.TrimSpace(flags.Session))
	setString(&settings.LogLevel, strings.TrimSpace(flags.LogLevel))
	if flags.NoLLM {
		settings.LLMDisabled = true
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}
	return nil
}
