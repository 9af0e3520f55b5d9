package config

import "fmt"

const (
	errPortRequired               = "PORT must be set"
	errSessionSecretMinLengthFmt  = "SESSION_SECRET must be at least %d characters"
	errSessionSecretLowEntropy    = "SESSION_SECRET has insufficient entropy (appears non-random). Use a cryptographically secure random string."
	errSessionTTLInvalid          = "SESSION_TTL must be positive"
	errAPIKeySaltMinLengthFmt     = "API_KEY_SALT must be at least %d characters"
	errFailureRateRangeFmt        = "SIM_FAILURE_RATE must be within [0, 1], got %v"
	errLatencyRangeFmt            = "SIM_LATENCY_MIN/MAX must satisfy 0 <= min <= max, got %s..%s"
	errConcurrencyInvalid         = "SIM_CONCURRENCY must be at least 1"
	errMaintenanceIntervalInvalid = "MAINTENANCE_INTERVAL must be positive"
	errDBConnsRangeFmt            = "DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)"
	errUnknownBackendFmt          = "unknown STORE_BACKEND %q"
	errInvalidConfigurationFmt    = "invalid configuration: %w"
	errRequiredEnvNotSetFmt       = "required environment variable %s is not set"
	errRequiredForBackendFmt      = "%s must be set when STORE_BACKEND=%s"
)

type messageBuilders struct {
	requiredEnvNotSet  func(string) string
	requiredForBackend func(string, string) string
}

func newMessageBuilders() messageBuilders {
	return messageBuilders{
		requiredEnvNotSet: func(key string) string {
			return fmt.Sprintf(errRequiredEnvNotSetFmt, key)
		},
		requiredForBackend: func(key, backend string) string {
			return fmt.Sprintf(errRequiredForBackendFmt, key, backend)
		},
	}
}

var messages = newMessageBuilders()
