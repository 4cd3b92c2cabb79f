package ratelimit

import (
	"strings"
)

// unlimited is returned for endpoints that are never limited.
var unlimited = EndpointConfig{Pattern: "/health", Method: "GET"}

// MatchEndpoint returns the configuration for a request, or nil if none applies.
//
// Patterns are matched segment by segment, where "*" matches any one segment, so
// "/cvs/*/transforms" matches "/cvs/42/transforms". A pattern ending in "/" matches
// every path below it. Whole-path patterns win over prefix patterns; within each kind
// the first match in configs wins.
func MatchEndpoint(path string, method string, configs []EndpointConfig) *EndpointConfig {
	if path == unlimited.Pattern && method == unlimited.Method {
		cfg := unlimited
		return &cfg
	}

	segments := split(path)

	for i := range configs {
		config := &configs[i]
		if config.Method == method && !strings.HasSuffix(config.Pattern, "/") &&
			matchSegments(split(config.Pattern), segments, false) {
			return config
		}
	}

	for i := range configs {
		config := &configs[i]
		if config.Method == method && strings.HasSuffix(config.Pattern, "/") &&
			matchSegments(split(config.Pattern), segments, true) {
			return config
		}
	}

	return nil
}

func split(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// matchSegments reports whether path matches pattern. With prefix set, path may be
// longer than pattern but must have at least one more segment.
func matchSegments(pattern, path []string, prefix bool) bool {
	if prefix {
		if len(path) <= len(pattern) {
			return false
		}
	} else if len(path) != len(pattern) {
		return false
	}
	for i, seg := range pattern {
		if seg != "*" && seg != path[i] {
			return false
		}
	}
	return true
}
