package ratelimit

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// EndpointConfig is the limit for requests matching Pattern and Method.
type EndpointConfig struct {
	Pattern string        // path pattern, see MatchEndpoint
	Method  string        // HTTP method (GET, POST, etc.)
	Limit   int           // Maximum requests per window
	Window  time.Duration // Time window
	Burst   int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	enabled := getEnvBool("RATE_LIMIT_ENABLED", true)
	if !enabled {
		return &Config{
			Enabled: false,
		}
	}

	return &Config{
		Enabled:         enabled,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 1000),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         getEnvDuration("RATE_LIMIT_IDLE_TTL", time.Hour),
		Whitelist:       parseIPList(getEnvString("RATE_LIMIT_WHITELIST", "")),
		Blacklist:       parseIPList(getEnvString("RATE_LIMIT_BLACKLIST", "")),
		EndpointConfigs: DefaultEndpointConfigs(getEnvInt("RATE_LIMIT_TRANSFORM_LIMIT", 30)),
	}
}

// DefaultEndpointConfigs returns the endpoint tiers. transformLimit is the number of AI
// rewrites a client may request per minute.
func DefaultEndpointConfigs(transformLimit int) []EndpointConfig {
	burst := transformLimit / 5
	if burst < 1 {
		burst = 1
	}
	return []EndpointConfig{
		// Tier 1: AI rewrites, each one a model call
		{Pattern: "/cvs/*/transforms", Method: "POST", Limit: transformLimit, Window: time.Minute, Burst: burst},

		// Tier 2: CV lifecycle
		{Pattern: "/cvs", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Pattern: "/cvs/*/duplicate", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Pattern: "/cvs/*", Method: "DELETE", Limit: 60, Window: time.Minute, Burst: 10},

		// Tier 3: field edits arrive per keystroke batch
		{Pattern: "/cvs/", Method: "POST", Limit: 600, Window: time.Minute, Burst: 60},
		{Pattern: "/cvs/", Method: "PUT", Limit: 600, Window: time.Minute, Burst: 60},
		{Pattern: "/cvs/", Method: "DELETE", Limit: 600, Window: time.Minute, Burst: 60},

		// Tier 4: reads use the default limit, /health is unlimited
	}
}

// getEnvString gets an environment variable as a string with a default value.
func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as a boolean with a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration gets an environment variable as a duration with a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of client addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
