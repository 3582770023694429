package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	platformstrings "safestep/pkg/platform/strings"
)

// Identity attributes an EC can be keyed on. A deployment picks exactly one.
const (
	IdentityEmail = "email"
	IdentityPhone = "phone"
)

// Link policies for existing contacts.
const (
	// LinkPolicyGuard skips staging a responsibility when the pair is already
	// linked in storage or in the current batch.
	LinkPolicyGuard = "guard"
	// LinkPolicyAlways stages a responsibility for every valid record.
	LinkPolicyAlways = "always"
)

// Config is the full process configuration, read once at startup.
type Config struct {
	ServiceName string `env:"INTAKE_SERVICE_NAME" envDefault:"ec-intake"`
	LogLevel    string `env:"INTAKE_LOG_LEVEL"    envDefault:"info"`
	LogFormat   string `env:"INTAKE_LOG_FORMAT"   envDefault:"json"`
	MetricsAddr string `env:"INTAKE_METRICS_ADDR" envDefault:":9090"`

	Intake   Intake
	Store    Store
	Queue    Queue
	Notify   Notify
	Redis    RedisConfig
	AWS      AWS
	Postgres Postgres
}

// Intake controls record processing semantics.
type Intake struct {
	IdentityAttribute string `env:"INTAKE_IDENTITY_ATTRIBUTE" envDefault:"email"`
	LinkPolicy        string `env:"INTAKE_LINK_POLICY"        envDefault:"guard"`
	RulesFile         string `env:"INTAKE_RULES_FILE"`
	Concurrency       int    `env:"INTAKE_CONCURRENCY"        envDefault:"8"`
	NotifyConcurrency int    `env:"INTAKE_NOTIFY_CONCURRENCY" envDefault:"4"`
}

// Store names the logical stores and the driver that backs them.
type Store struct {
	Driver              string `env:"INTAKE_STORE_DRIVER"               envDefault:"memory"`
	ContactTable        string `env:"INTAKE_EC_TABLE"                   envDefault:"emergency_contacts"`
	ContactIndex        string `env:"INTAKE_EC_INDEX"                   envDefault:"email_index"`
	ResponsibilityTable string `env:"INTAKE_RESPONSIBILITY_TABLE"       envDefault:"responsibilities"`
	GreenIndex          string `env:"INTAKE_RESPONSIBILITY_GREEN_INDEX" envDefault:"green_id_index"`
	EnsureSchema        bool   `env:"INTAKE_ENSURE_SCHEMA"              envDefault:"false"`
}

// Queue selects the delivery mechanism feeding the processor.
type Queue struct {
	Driver       string        `env:"INTAKE_QUEUE_DRIVER"  envDefault:"kafka"`
	BatchSize    int           `env:"INTAKE_BATCH_SIZE"    envDefault:"10"`
	KafkaBrokers []string      `env:"KAFKA_BROKERS"        envDefault:"localhost:9092" envSeparator:","`
	KafkaTopic   string        `env:"KAFKA_TOPIC"          envDefault:"green-referrals"`
	KafkaGroup   string        `env:"KAFKA_GROUP"          envDefault:"ec-intake"`
	KafkaDLQ     string        `env:"KAFKA_DLQ_TOPIC"      envDefault:"green-referrals-dlq"`
	SQSQueueURL  string        `env:"SQS_QUEUE_URL"`
	SQSWaitTime  time.Duration `env:"SQS_WAIT_TIME"        envDefault:"20s"`
}

// Notify configures templated email delivery.
type Notify struct {
	Driver   string `env:"INTAKE_NOTIFY_DRIVER" envDefault:"log"`
	Source   string `env:"EMAIL_SOURCE"         envDefault:"no-reply@safe-step.net"`
	Template string `env:"EMAIL_TEMPLATE_NAME"  envDefault:"ec-responsibility-pending"`
}

// RedisConfig configures the optional identity cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT"  envDefault:"3s"`
	IdentityTTL  time.Duration `env:"REDIS_IDENTITY_TTL"   envDefault:"1h"`
}

// AWS configures the SDK clients used by the dynamodb, sqs and ses drivers.
type AWS struct {
	Region          string `env:"AWS_REGION"                  envDefault:"eu-west-1"`
	Endpoint        string `env:"AWS_ENDPOINT"`
	AccessKeyID     string `env:"INTAKE_AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"INTAKE_AWS_SECRET_ACCESS_KEY"`
}

// Postgres configures the postgres store driver.
type Postgres struct {
	DSN      string `env:"DATABASE_URL"`
	MaxConns int    `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	MaxIdle  int    `env:"DATABASE_MAX_IDLE"  envDefault:"5"`
}

// FromEnv builds a Config from environment variables and checks enum fields so
// main can fail fast on a typo.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Queue.KafkaBrokers = platformstrings.Dedupe(cfg.Queue.KafkaBrokers, nil)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field and enum constraints.
func (c Config) Validate() error {
	switch c.Intake.IdentityAttribute {
	case IdentityEmail, IdentityPhone:
	default:
		return fmt.Errorf("unknown identity attribute %q", c.Intake.IdentityAttribute)
	}
	switch c.Intake.LinkPolicy {
	case LinkPolicyGuard, LinkPolicyAlways:
	default:
		return fmt.Errorf("unknown link policy %q", c.Intake.LinkPolicy)
	}
	switch c.Store.Driver {
	case "memory", "dynamodb":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store driver")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Queue.Driver {
	case "kafka":
		if len(c.Queue.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for the kafka queue driver")
		}
	case "sqs":
		if c.Queue.SQSQueueURL == "" {
			return fmt.Errorf("SQS_QUEUE_URL is required for the sqs queue driver")
		}
	default:
		return fmt.Errorf("unknown queue driver %q", c.Queue.Driver)
	}
	switch c.Notify.Driver {
	case "log", "ses":
	default:
		return fmt.Errorf("unknown notify driver %q", c.Notify.Driver)
	}
	if c.Queue.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	return nil
}
