package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`
	AdminAddr  string `env:"ADMIN_ADDR" envDefault:":9091"`

	// Token verification.
	JWKSURL     string        `env:"JWKS_URL"`
	JWKSTimeout time.Duration `env:"JWKS_TIMEOUT" envDefault:"10s"`
	Audience    string        `env:"TENANT_AUDIENCE" envDefault:"watchtower"`
	ClockSkew   time.Duration `env:"CLOCK_SKEW" envDefault:"300s"`
	ContextTTL  time.Duration `env:"TENANT_CACHE_TTL" envDefault:"30s"`
	NegativeTTL time.Duration `env:"NEGATIVE_CACHE_TTL" envDefault:"5s"`
	SkipPaths   []string      `env:"TENANT_SKIP_PATHS" envSeparator:"," envDefault:"/health,/metrics"`
	AdminKey    string        `env:"ADMIN_KEY"`
	PlanRanking []string      `env:"PLAN_RANKING" envSeparator:","`

	// Fallback (web session) contexts.
	DefaultTenantID string `env:"DEFAULT_TENANT_ID" envDefault:"default_company"`
	DefaultLimits   string `env:"DEFAULT_LIMITS" envDefault:"campaigns_per_month:10,concurrent_campaigns:2"`

	// Token issuance proxy.
	TenantTokenURL     string        `env:"TENANT_TOKEN_URL"`
	TenantClientID     string        `env:"TENANT_CLIENT_ID"`
	TenantClientSecret string        `env:"TENANT_CLIENT_SECRET"`
	ValidateClientCred bool          `env:"TENANT_VALIDATE_CLIENT_CREDENTIALS" envDefault:"false"`
	TokenFetchTimeout  time.Duration `env:"TOKEN_FETCH_TIMEOUT" envDefault:"10s"`

	// Usage counters and audit log.
	UsageTTL            time.Duration `env:"USAGE_TTL" envDefault:"5m"`
	AuditRetention      time.Duration `env:"AUDIT_RETENTION" envDefault:"24h"`
	AuditRedactedFields string        `env:"AUDIT_REDACTED_FIELDS" envDefault:"email,phone,password"`

	// Backing stores.
	RedisAddr   string `env:"REDIS_ADDR,required"`
	PostgresURL string `env:"POSTGRES_URL,required"`

	// Campaign launch queue.
	KafkaBrokers       []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaCampaignTopic string   `env:"KAFKA_CAMPAIGN_TOPIC" envDefault:"campaigns.launch"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ParseLimits parses a "name:value" comma-separated list, the format used by
// DEFAULT_LIMITS.
func ParseLimits(s string) (map[string]int64, error) {
	limits := make(map[string]int64)
	if strings.TrimSpace(s) == "" {
		return limits, nil
	}
	for _, pair := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			return nil, fmt.Errorf("malformed limit %q, want name:value", pair)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed limit value in %q: %w", pair, err)
		}
		limits[strings.TrimSpace(name)] = n
	}
	return limits, nil
}
