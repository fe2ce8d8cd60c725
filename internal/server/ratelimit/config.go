package ratelimit

import (
	"strings"
	"time"
)

// Rule limits requests whose path starts with Prefix and whose method is Method
type Rule struct {
	Prefix string
	Method string
	Limit  int           // maximum requests per Window; 0 means unlimited
	Window time.Duration // refill period
	Burst  int           // bucket capacity, defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	IdleTimeout     time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	Rules           []Rule
}

// unlimitedPaths are never limited
var unlimitedPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// DiagnosisRules limits every endpoint that calls the evaluation backend or a transcription service
func DiagnosisRules(limit int, window time.Duration, burst int) []Rule {
	return []Rule{
		{Prefix: "/v1/diagnoses/", Method: "POST", Limit: limit, Window: window, Burst: burst},
		{Prefix: "/v1/transcripts/", Method: "POST", Limit: limit, Window: window, Burst: burst},
	}
}

// NewConfig builds a configuration with the diagnosis rules and the given default limit
func NewConfig(defaultLimit int, defaultWindow time.Duration, rules []Rule, whitelist, blacklist []string) Config {
	return Config{
		Enabled:         true,
		DefaultLimit:    defaultLimit,
		DefaultWindow:   defaultWindow,
		CleanupInterval: 5 * time.Minute,
		IdleTimeout:     time.Hour,
		Whitelist:       ipSet(whitelist),
		Blacklist:       ipSet(blacklist),
		Rules:           rules,
	}
}

// match returns the rule applying to a request. The longest matching prefix wins;
// requests matching no rule get the default limit.
func (c Config) match(path, method string) Rule {
	if unlimitedPaths[path] {
		return Rule{}
	}

	var best *Rule
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Method != method || !strings.HasPrefix(path, r.Prefix) {
			continue
		}
		if best == nil || len(r.Prefix) > len(best.Prefix) {
			best = r
		}
	}
	if best != nil {
		return *best
	}
	return Rule{Prefix: "*", Method: "*", Limit: c.DefaultLimit, Window: c.DefaultWindow, Burst: c.DefaultLimit}
}

func ipSet(ips []string) map[string]bool {
	result := make(map[string]bool, len(ips))
	for _, ip := range ips {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
