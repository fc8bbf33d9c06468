package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration. Limit values and threshold
// policies are supplied to the engine at call time; nothing here affects
// ledger invariants.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool
	JWTSecret    string

	// Domain rate limiter.
	TransferCooldown time.Duration
	DailyTransferCap int64
	RateLimitWindow  time.Duration

	// Pending transfer workflow.
	PendingTransferTTL time.Duration
	SweepInterval      time.Duration

	// Transfer event pool.
	PoolWorkers        int
	PoolQueueSize      int
	SettlementRetries  int
	SettlementBackoff  time.Duration

	// Governance.
	ProposalTTL time.Duration
	thresholds  map[domain.BodyKind]domain.ThresholdPolicy

	// Notification collaborator.
	KafkaBrokers []string
	KafkaTopic   string

	// Display-only currency metadata.
	CurrencyName   string
	CurrencySymbol string

	departments []domain.Department
}

// fallbackDepartments is the hard-coded department table used when the
// configuration source is unavailable or empty.
var fallbackDepartments = []domain.Department{
	{Key: "treasury", Name: "Treasury Department", Prefix: 951},
	{Key: "culture", Name: "Culture Department", Prefix: 952},
	{Key: "security", Name: "Security Department", Prefix: 953},
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("TRANSFER_COOLDOWN", "60s")
	viper.SetDefault("DAILY_TRANSFER_CAP", 1000)
	viper.SetDefault("RATE_LIMIT_WINDOW", "24h")
	viper.SetDefault("PENDING_TRANSFER_TTL", "48h")
	viper.SetDefault("SWEEP_INTERVAL", "1m")
	viper.SetDefault("TRANSFER_POOL_WORKERS", 4)
	viper.SetDefault("TRANSFER_POOL_QUEUE", 256)
	viper.SetDefault("TRANSFER_MAX_RETRIES", 5)
	viper.SetDefault("TRANSFER_RETRY_BACKOFF", "500ms")
	viper.SetDefault("PROPOSAL_TTL", "72h")
	viper.SetDefault("COUNCIL_THRESHOLD", string(domain.PolicyMajority))
	viper.SetDefault("STATE_COUNCIL_THRESHOLD", string(domain.PolicySupermajority))
	viper.SetDefault("SUPREME_ASSEMBLY_THRESHOLD", string(domain.PolicyUnanimous))
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_TOPIC", "engine_notifications")
	viper.SetDefault("CURRENCY_NAME", "points")
	viper.SetDefault("CURRENCY_SYMBOL", "pt")
	viper.SetDefault("DEPARTMENTS_FILE", "")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if !cfg.IsProduction && cfg.JWTSecret == "" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	var err error
	if cfg.TransferCooldown, err = parseDuration("TRANSFER_COOLDOWN"); err != nil {
		return nil, err
	}
	cfg.DailyTransferCap = viper.GetInt64("DAILY_TRANSFER_CAP")
	if cfg.RateLimitWindow, err = parseDuration("RATE_LIMIT_WINDOW"); err != nil {
		return nil, err
	}
	if cfg.PendingTransferTTL, err = parseDuration("PENDING_TRANSFER_TTL"); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = parseDuration("SWEEP_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.SettlementBackoff, err = parseDuration("TRANSFER_RETRY_BACKOFF"); err != nil {
		return nil, err
	}
	if cfg.ProposalTTL, err = parseDuration("PROPOSAL_TTL"); err != nil {
		return nil, err
	}

	cfg.PoolWorkers = viper.GetInt("TRANSFER_POOL_WORKERS")
	cfg.PoolQueueSize = viper.GetInt("TRANSFER_POOL_QUEUE")
	cfg.SettlementRetries = viper.GetInt("TRANSFER_MAX_RETRIES")

	cfg.thresholds = map[domain.BodyKind]domain.ThresholdPolicy{}
	for body, key := range map[domain.BodyKind]string{
		domain.BodyCouncil:         "COUNCIL_THRESHOLD",
		domain.BodyStateCouncil:    "STATE_COUNCIL_THRESHOLD",
		domain.BodySupremeAssembly: "SUPREME_ASSEMBLY_THRESHOLD",
	} {
		policy := domain.ThresholdPolicy(strings.ToUpper(viper.GetString(key)))
		if !domain.ValidPolicy(policy) {
			return nil, fmt.Errorf("invalid threshold policy %q for %s", policy, key)
		}
		cfg.thresholds[body] = policy
	}

	if brokers := viper.GetString("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	cfg.KafkaTopic = viper.GetString("KAFKA_TOPIC")

	cfg.CurrencyName = viper.GetString("CURRENCY_NAME")
	cfg.CurrencySymbol = viper.GetString("CURRENCY_SYMBOL")

	cfg.departments = loadDepartments(viper.GetString("DEPARTMENTS_FILE"))

	return cfg, nil
}

// ThresholdFor returns the voting threshold policy configured for a body.
func (c *Config) ThresholdFor(body domain.BodyKind) domain.ThresholdPolicy {
	if p, ok := c.thresholds[body]; ok {
		return p
	}
	return domain.PolicyMajority
}

// Departments returns the configured department table, falling back to the
// built-in table when no configuration source is available.
func (c *Config) Departments() []domain.Department {
	if len(c.departments) == 0 {
		return fallbackDepartments
	}
	return c.departments
}

// loadDepartments reads the department mapping from a YAML file. Any failure
// degrades to the fallback table rather than refusing to start.
func loadDepartments(path string) []domain.Department {
	if path == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: could not read departments file %s: %v. Using fallback table.\n", path, err)
		return nil
	}

	var depts []domain.Department
	if err := v.UnmarshalKey("departments", &depts); err != nil {
		log.Printf("Warning: could not parse departments file %s: %v. Using fallback table.\n", path, err)
		return nil
	}
	return depts
}

func parseDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}
