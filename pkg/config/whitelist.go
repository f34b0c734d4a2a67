package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// URLWhitelist restricts which hosts the agent may navigate to. Patterns
// are glob expressions matched against the target's host (for example
// "*.example.com" or "docs.python.org"); a pattern containing "/" is
// matched against host and path together. An empty whitelist allows
// every URL.
type URLWhitelist struct {
	patterns []glob.Glob
	sources  []string
}

// NewURLWhitelist compiles the given patterns. Returns an error naming
// the first pattern that fails to compile.
func NewURLWhitelist(patterns []string) (*URLWhitelist, error) {
	w := &URLWhitelist{}
	for _, pattern := range patterns {
		compiled, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid whitelist pattern %q: %w", pattern, err)
		}
		w.patterns = append(w.patterns, compiled)
		w.sources = append(w.sources, pattern)
	}
	return w, nil
}

// Allows reports whether the agent may navigate to rawURL. URLs that do
// not parse are rejected when any pattern is configured.
func (w *URLWhitelist) Allows(rawURL string) bool {
	if len(w.patterns) == 0 {
		return true
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return false
	}

	host := strings.ToLower(parsed.Host)
	hostAndPath := host + parsed.Path

	for i, pattern := range w.patterns {
		target := host
		if strings.Contains(w.sources[i], "/") {
			target = hostAndPath
		}
		if pattern.Match(target) {
			return true
		}
	}
	return false
}

// Empty reports whether no patterns are configured.
func (w *URLWhitelist) Empty() bool {
	return len(w.patterns) == 0
}
