package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/emperorhan/chainaudit/internal/domain/model"
)

const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Store    StoreConfig
	Redis    RedisConfig
	RPC      RPCConfig
	Registry RegistryConfig
	Pipeline PipelineConfig
	Sources  SourcesConfig
	Alert    AlertConfig
	Tracing  TracingConfig
}

type ServerConfig struct {
	Port      int
	AdminPort int
}

type LogConfig struct {
	Level string
}

type StoreConfig struct {
	Backend string
	DB      DBConfig
}

type DBConfig struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	StatementTimeoutMS int
	PoolStatsInterval  time.Duration
}

type RedisConfig struct {
	Enabled      bool
	URL          string
	StreamKey    string
	StreamMaxLen int64
	CacheTTL     time.Duration
}

type RPCConfig struct {
	Chain              model.Chain
	URL                string
	Timeout            time.Duration
	RPS                float64
	Burst              int
	BreakerFailures    int
	BreakerOpenTimeout time.Duration
	CodeCacheTTL       time.Duration
}

type RegistryConfig struct {
	Administrator model.Address
	// PipelineAuditor is the identity pipeline write-back submits as. It
	// defaults to the administrator.
	PipelineAuditor model.Address
}

type PipelineConfig struct {
	StageTimeout      time.Duration
	WriteBackTimeout  time.Duration
	EnrichmentTimeout time.Duration
	FieldTimeout      time.Duration
	HeuristicSeed     string
	ResultCacheSize   int

	PredictiveScoringEnabled bool
	SentimentEnabled         bool
	VulnerabilityScanEnabled bool
}

type SourcesConfig struct {
	DexScreenerURL string
	DexScreenerRPS float64
	SentimentURL   string
	Timeout        time.Duration
}

type AlertConfig struct {
	SlackWebhookURL string
	WebhookURL      string
	Cooldown        time.Duration
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:      getEnvInt("HTTP_PORT", 8080),
			AdminPort: getEnvInt("ADMIN_PORT", 8081),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", StoreBackendMemory)),
			DB: DBConfig{
				URL:                getEnv("DB_URL", ""),
				MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 25),
				MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
				ConnMaxLifetime:    getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
				StatementTimeoutMS: getEnvInt("DB_STATEMENT_TIMEOUT_MS", 30_000),
				PoolStatsInterval:  getEnvDuration("DB_POOL_STATS_INTERVAL", 15*time.Second),
			},
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			URL:          getEnv("REDIS_URL", "redis://localhost:6379"),
			StreamKey:    getEnv("REDIS_EVENT_STREAM", "chainaudit:events"),
			StreamMaxLen: int64(getEnvInt("REDIS_EVENT_STREAM_MAXLEN", 100_000)),
			CacheTTL:     getEnvDuration("REDIS_AUDIT_CACHE_TTL", time.Hour),
		},
		RPC: RPCConfig{
			Chain:              model.Chain(strings.ToLower(getEnv("CHAIN", string(model.ChainEthereum)))),
			URL:                getEnv("RPC_URL", "http://localhost:8545"),
			Timeout:            getEnvDuration("RPC_TIMEOUT", 10*time.Second),
			RPS:                getEnvFloat("RPC_RATE_LIMIT", 20),
			Burst:              getEnvInt("RPC_RATE_BURST", 40),
			BreakerFailures:    getEnvInt("RPC_BREAKER_FAILURES", 5),
			BreakerOpenTimeout: getEnvDuration("RPC_BREAKER_OPEN_TIMEOUT", 30*time.Second),
			CodeCacheTTL:       getEnvDuration("RPC_CODE_CACHE_TTL", 10*time.Minute),
		},
		Pipeline: PipelineConfig{
			StageTimeout:             getEnvDuration("PIPELINE_STAGE_TIMEOUT", 10*time.Second),
			WriteBackTimeout:         getEnvDuration("PIPELINE_WRITE_BACK_TIMEOUT", 5*time.Second),
			EnrichmentTimeout:        getEnvDuration("PIPELINE_ENRICHMENT_TIMEOUT", 5*time.Second),
			FieldTimeout:             getEnvDuration("METADATA_FIELD_TIMEOUT", 5*time.Second),
			HeuristicSeed:            getEnv("HEURISTIC_SEED", "chainaudit"),
			ResultCacheSize:          getEnvInt("RESULT_CACHE_SIZE", 10_000),
			PredictiveScoringEnabled: getEnvBool("ENRICH_PREDICTIVE_SCORING", true),
			SentimentEnabled:         getEnvBool("ENRICH_SENTIMENT", false),
			VulnerabilityScanEnabled: getEnvBool("ENRICH_VULNERABILITY_SCAN", true),
		},
		Sources: SourcesConfig{
			DexScreenerURL: getEnv("DEXSCREENER_URL", "https://api.dexscreener.com"),
			DexScreenerRPS: getEnvFloat("DEXSCREENER_RATE_LIMIT", 5),
			SentimentURL:   getEnv("SENTIMENT_URL", ""),
			Timeout:        getEnvDuration("SOURCE_TIMEOUT", 5*time.Second),
		},
		Alert: AlertConfig{
			SlackWebhookURL: getEnv("ALERT_SLACK_WEBHOOK_URL", ""),
			WebhookURL:      getEnv("ALERT_WEBHOOK_URL", ""),
			Cooldown:        getEnvDuration("ALERT_COOLDOWN", 30*time.Minute),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvBool("OTEL_TRACING_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio: getEnvFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}

	admin, err := parseAddressEnv("ADMINISTRATOR_ADDRESS")
	if err != nil {
		return nil, err
	}
	cfg.Registry.Administrator = admin
	if raw := getEnv("PIPELINE_AUDITOR_ADDRESS", ""); raw != "" {
		auditor, err := parseAddressEnv("PIPELINE_AUDITOR_ADDRESS")
		if err != nil {
			return nil, err
		}
		cfg.Registry.PipelineAuditor = auditor
	} else {
		cfg.Registry.PipelineAuditor = admin
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseAddressEnv(key string) (model.Address, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return model.ZeroAddress, fmt.Errorf("%s is required", key)
	}
	addr, err := model.ParseAddress(raw)
	if err != nil {
		return model.ZeroAddress, fmt.Errorf("%s: %w", key, err)
	}
	return addr, nil
}

func (c *Config) validate() error {
	if model.IsZero(c.Registry.Administrator) {
		return fmt.Errorf("ADMINISTRATOR_ADDRESS must not be the zero address")
	}
	if model.IsZero(c.Registry.PipelineAuditor) {
		return fmt.Errorf("PIPELINE_AUDITOR_ADDRESS must not be the zero address")
	}
	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if c.Store.DB.URL == "" {
			return fmt.Errorf("DB_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreBackendMemory, StoreBackendPostgres, c.Store.Backend)
	}
	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required when REDIS_ENABLED=true")
	}
	if !c.RPC.Chain.Valid() {
		return fmt.Errorf("CHAIN %q is not supported", c.RPC.Chain)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 || c.Server.AdminPort <= 0 || c.Server.AdminPort > 65535 {
		return fmt.Errorf("HTTP_PORT and ADMIN_PORT must be in [1, 65535]")
	}
	if c.Server.Port == c.Server.AdminPort {
		return fmt.Errorf("HTTP_PORT and ADMIN_PORT must differ")
	}

	positive := []struct {
		key string
		d   time.Duration
	}{
		{"RPC_TIMEOUT", c.RPC.Timeout},
		{"PIPELINE_STAGE_TIMEOUT", c.Pipeline.StageTimeout},
		{"PIPELINE_WRITE_BACK_TIMEOUT", c.Pipeline.WriteBackTimeout},
		{"PIPELINE_ENRICHMENT_TIMEOUT", c.Pipeline.EnrichmentTimeout},
		{"METADATA_FIELD_TIMEOUT", c.Pipeline.FieldTimeout},
		{"SOURCE_TIMEOUT", c.Sources.Timeout},
		{"ALERT_COOLDOWN", c.Alert.Cooldown},
	}
	for _, p := range positive {
		if p.d <= 0 {
			return fmt.Errorf("%s must be positive", p.key)
		}
	}

	if c.Pipeline.SentimentEnabled && c.Sources.SentimentURL == "" {
		return fmt.Errorf("SENTIMENT_URL is required when ENRICH_SENTIMENT=true")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be in [0, 1]")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("750ms", "2m"). A bare integer
// is read as seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
