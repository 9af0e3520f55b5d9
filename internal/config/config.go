package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envStoreBackend          = "STORE_BACKEND"
	envSQLitePath            = "SQLITE_PATH"
	envDatabaseURL           = "DATABASE_URL"
	envDBMaxConns            = "DB_MAX_CONNS"
	envDBMinConns            = "DB_MIN_CONNS"
	envRedisAddr             = "REDIS_ADDR"
	envRedisPassword         = "REDIS_PASSWORD"
	envRedisDB               = "REDIS_DB"
	envRedisPrefix           = "REDIS_PREFIX"
	envEtcdEndpoints         = "ETCD_ENDPOINTS"
	envEtcdPrefix            = "ETCD_PREFIX"
	envS3Bucket              = "S3_BUCKET"
	envS3Prefix              = "S3_PREFIX"
	envS3Endpoint            = "S3_ENDPOINT"
	envAWSRegion             = "REGION"
	envAWSAccessKeyID        = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey    = "AWS_SECRET_ACCESS_KEY"
	envSessionSecret         = "SESSION_SECRET"
	envSessionTTL            = "SESSION_TTL"
	envAPIKeySalt            = "API_KEY_SALT"
	envKeyCacheTTL           = "KEY_CACHE_TTL"
	envSimFailureRate        = "SIM_FAILURE_RATE"
	envSimLatencyMin         = "SIM_LATENCY_MIN"
	envSimLatencyMax         = "SIM_LATENCY_MAX"
	envSimConcurrency        = "SIM_CONCURRENCY"
	envLogLevel              = "LOG_LEVEL"
	envLogFormat             = "LOG_FORMAT"
	envBootstrapEmail        = "BOOTSTRAP_ADMIN_EMAIL"
	envBootstrapPassword     = "BOOTSTRAP_ADMIN_PASSWORD"
	envBootstrapName         = "BOOTSTRAP_ADMIN_NAME"
	envAuditDatabaseURL      = "AUDIT_DATABASE_URL"
	envMaintenanceInterval   = "MAINTENANCE_INTERVAL"
	envProfilingEnabled      = "ENABLE_PROFILING"
)

const (
	defaultServerPort         = "8080"
	defaultServerReadTimeout  = 10 * time.Second
	defaultServerWriteTimeout = 10 * time.Second
	defaultServerShutdown     = 10 * time.Second
	defaultStoreBackend       = BackendMemory
	defaultSQLitePath         = "crm.db"
	defaultDBMaxConns         = 25
	defaultDBMinConns         = 5
	defaultRedisPrefix        = "crm:"
	defaultEtcdPrefix         = "/crm/"
	defaultS3Prefix           = "kv/"
	defaultSessionTTL         = 24 * time.Hour
	defaultKeyCacheTTL        = 5 * time.Minute
	defaultSimFailureRate     = 0.02
	defaultSimLatencyMin      = 0
	defaultSimLatencyMax      = 0
	defaultSimConcurrency     = 4
	defaultLogLevel           = "info"
	defaultLogFormat          = "json"
	defaultBootstrapName      = "Administrator"
	defaultMaintenance        = time.Minute
	minSessionSecretLength    = 32
	minUniqueCharsInSecret    = 16
	minRepeatedCharThreshold  = 4
	maxRepeatedChars          = 2
	minAPIKeySaltLength       = 16
)

// Store backends accepted by STORE_BACKEND
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendEtcd     = "etcd"
	BackendS3       = "s3"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	AWS       AWSConfig
	Session   SessionConfig
	APIKeys   APIKeyConfig
	Simulator SimulatorConfig
	Log       LogConfig
	Bootstrap BootstrapConfig
	App       AppConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type StoreConfig struct {
	Backend       string
	SQLitePath    string
	DatabaseURL   string
	MaxConns      int
	MinConns      int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	EtcdEndpoints []string
	EtcdPrefix    string
	S3Bucket      string
	S3Prefix      string
	S3Endpoint    string
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

type APIKeyConfig struct {
	Salt     string
	CacheTTL time.Duration
}

type SimulatorConfig struct {
	FailureRate float64
	LatencyMin  time.Duration
	LatencyMax  time.Duration
	Concurrency int
}

type LogConfig struct {
	Level  string
	Format string
}

// BootstrapConfig seeds an owner account on an empty directory.
// Email empty disables seeding.
type BootstrapConfig struct {
	Email    string
	Password string
	Name     string
}

type AppConfig struct {
	AuditDatabaseURL    string
	MaintenanceInterval time.Duration
	ProfilingEnabled    bool
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv(envStoreBackend, defaultStoreBackend)),
			SQLitePath:    getEnv(envSQLitePath, defaultSQLitePath),
			DatabaseURL:   os.Getenv(envDatabaseURL),
			MaxConns:      getIntEnv(envDBMaxConns, defaultDBMaxConns),
			MinConns:      getIntEnv(envDBMinConns, defaultDBMinConns),
			RedisAddr:     os.Getenv(envRedisAddr),
			RedisPassword: os.Getenv(envRedisPassword),
			RedisDB:       getIntEnv(envRedisDB, 0),
			RedisPrefix:   getEnv(envRedisPrefix, defaultRedisPrefix),
			EtcdEndpoints: getListEnv(envEtcdEndpoints),
			EtcdPrefix:    getEnv(envEtcdPrefix, defaultEtcdPrefix),
			S3Bucket:      os.Getenv(envS3Bucket),
			S3Prefix:      getEnv(envS3Prefix, defaultS3Prefix),
			S3Endpoint:    os.Getenv(envS3Endpoint),
		},
		AWS: AWSConfig{
			Region:          os.Getenv(envAWSRegion),
			AccessKeyID:     os.Getenv(envAWSAccessKeyID),
			SecretAccessKey: os.Getenv(envAWSSecretAccessKey),
		},
		Session: SessionConfig{
			Secret: os.Getenv(envSessionSecret),
			TTL:    getDurationEnv(envSessionTTL, defaultSessionTTL),
		},
		APIKeys: APIKeyConfig{
			Salt:     os.Getenv(envAPIKeySalt),
			CacheTTL: getDurationEnv(envKeyCacheTTL, defaultKeyCacheTTL),
		},
		Simulator: SimulatorConfig{
			FailureRate: getFloatEnv(envSimFailureRate, defaultSimFailureRate),
			LatencyMin:  getDurationEnv(envSimLatencyMin, defaultSimLatencyMin),
			LatencyMax:  getDurationEnv(envSimLatencyMax, defaultSimLatencyMax),
			Concurrency: getIntEnv(envSimConcurrency, defaultSimConcurrency),
		},
		Log: LogConfig{
			Level:  getEnv(envLogLevel, defaultLogLevel),
			Format: getEnv(envLogFormat, defaultLogFormat),
		},
		Bootstrap: BootstrapConfig{
			Email:    os.Getenv(envBootstrapEmail),
			Password: os.Getenv(envBootstrapPassword),
			Name:     getEnv(envBootstrapName, defaultBootstrapName),
		},
		App: AppConfig{
			AuditDatabaseURL:    os.Getenv(envAuditDatabaseURL),
			MaintenanceInterval: getDurationEnv(envMaintenanceInterval, defaultMaintenance),
			ProfilingEnabled:    getBoolEnv(envProfilingEnabled),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf(errInvalidConfigurationFmt, err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf(errPortRequired)
	}

	if err := c.Store.validate(c.AWS); err != nil {
		return err
	}

	if c.Session.Secret == "" {
		return errors.New(messages.requiredEnvNotSet(envSessionSecret))
	}

	if len(c.Session.Secret) < minSessionSecretLength {
		return fmt.Errorf(errSessionSecretMinLengthFmt, minSessionSecretLength)
	}

	if !hasMinimumEntropy(c.Session.Secret) {
		return fmt.Errorf(errSessionSecretLowEntropy)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf(errSessionTTLInvalid)
	}

	if len(c.APIKeys.Salt) < minAPIKeySaltLength {
		return fmt.Errorf(errAPIKeySaltMinLengthFmt, minAPIKeySaltLength)
	}

	if c.Simulator.FailureRate < 0 || c.Simulator.FailureRate > 1 {
		return fmt.Errorf(errFailureRateRangeFmt, c.Simulator.FailureRate)
	}

	if c.Simulator.LatencyMin < 0 || c.Simulator.LatencyMax < c.Simulator.LatencyMin {
		return fmt.Errorf(errLatencyRangeFmt, c.Simulator.LatencyMin, c.Simulator.LatencyMax)
	}

	if c.Simulator.Concurrency < 1 {
		return fmt.Errorf(errConcurrencyInvalid)
	}

	if c.Bootstrap.Email != "" && c.Bootstrap.Password == "" {
		return errors.New(messages.requiredEnvNotSet(envBootstrapPassword))
	}

	if c.App.MaintenanceInterval <= 0 {
		return fmt.Errorf(errMaintenanceIntervalInvalid)
	}

	return nil
}

func (s *StoreConfig) validate(aws AWSConfig) error {
	switch s.Backend {
	case BackendMemory:
		return nil
	case BackendSQLite:
		if s.SQLitePath == "" {
			return errors.New(messages.requiredForBackend(envSQLitePath, s.Backend))
		}
	case BackendPostgres:
		if s.DatabaseURL == "" {
			return errors.New(messages.requiredForBackend(envDatabaseURL, s.Backend))
		}
		if s.MaxConns < s.MinConns {
			return fmt.Errorf(errDBConnsRangeFmt, s.MinConns, s.MaxConns)
		}
	case BackendRedis:
		if s.RedisAddr == "" {
			return errors.New(messages.requiredForBackend(envRedisAddr, s.Backend))
		}
	case BackendEtcd:
		if len(s.EtcdEndpoints) == 0 {
			return errors.New(messages.requiredForBackend(envEtcdEndpoints, s.Backend))
		}
	case BackendS3:
		if s.S3Bucket == "" {
			return errors.New(messages.requiredForBackend(envS3Bucket, s.Backend))
		}
		if aws.Region == "" {
			return errors.New(messages.requiredForBackend(envAWSRegion, s.Backend))
		}
	default:
		return fmt.Errorf(errUnknownBackendFmt, s.Backend)
	}
	return nil
}

// Address returns the listen address for the HTTP server
func (c *ServerConfig) Address() string {
	return ":" + c.Port
}

func hasMinimumEntropy(secret string) bool {
	if len(secret) < minSessionSecretLength {
		return false
	}

	charCounts := make(map[rune]int)
	for _, char := range secret {
		charCounts[char]++
	}

	uniqueChars := len(charCounts)
	if uniqueChars < minUniqueCharsInSecret {
		return false
	}

	repeatedChars := 0
	for _, count := range charCounts {
		if count > len(secret)/minRepeatedCharThreshold {
			repeatedChars++
		}
	}

	return repeatedChars <= maxRepeatedChars
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}
