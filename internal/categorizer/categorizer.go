// Package categorizer classifies a foreground window sample into a
// productivity category and score using ordered rule tables.
package categorizer

import (
	"strings"
	"sync"

	"worktrack/internal/event"
)

type Result struct {
	Category string
	Score    int
	Kind     event.ActivityKind
}

// Categorizer holds the application and URL rule tables. Rules can be added
// or overridden at runtime; lookups are otherwise pure.
type Categorizer struct {
	mu       sync.RWMutex
	apps     []Rule
	domains  []Rule
	browsers []string
}

// New returns a categorizer seeded with the built-in tables.
func New() *Categorizer {
	c := &Categorizer{
		apps:     append([]Rule(nil), defaultAppRules...),
		domains:  append([]Rule(nil), defaultDomainRules...),
		browsers: append([]string(nil), defaultBrowsers...),
	}
	return c
}

// Categorize maps (appName, title, url) to a category. First match wins:
// exact app rule, substring app rule, browser (URL rules or generic),
// development heuristics, then Other.
func (c *Categorizer) Categorize(appName, title, url string) Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	name := strings.ToLower(strings.TrimSpace(appName))
	lowerTitle := strings.ToLower(strings.TrimSpace(title))
	lowerURL := strings.ToLower(strings.TrimSpace(url))
	kind := kindFor(name)
	if c.isBrowser(name, lowerTitle) || lowerURL != "" {
		kind = event.KindBrowser
	}

	for _, r := range c.apps {
		if name == r.Pattern || lowerTitle == r.Pattern {
			return Result{Category: r.Category, Score: r.Score, Kind: kind}
		}
	}

	for _, r := range c.apps {
		if strings.Contains(name, r.Pattern) || strings.Contains(lowerTitle, r.Pattern) {
			return Result{Category: r.Category, Score: r.Score, Kind: kind}
		}
	}

	if kind == event.KindBrowser {
		if lowerURL != "" {
			for _, r := range c.domains {
				if strings.Contains(lowerURL, r.Pattern) {
					return Result{Category: r.Category, Score: r.Score, Kind: event.KindBrowser}
				}
			}
		}
		return Result{Category: CategoryBrowser, Score: browserScore, Kind: event.KindBrowser}
	}

	for _, hint := range devHints {
		if strings.Contains(lowerTitle, hint) {
			return Result{Category: CategoryDevelopment, Score: developmentScore, Kind: kind}
		}
	}

	return Result{Category: CategoryOther, Score: defaultScore, Kind: kind}
}

func (c *Categorizer) isBrowser(name, title string) bool {
	if strings.Contains(title, "http://") || strings.Contains(title, "https://") {
		return true
	}
	for _, b := range c.browsers {
		if strings.Contains(name, b) {
			return true
		}
	}
	return false
}

func kindFor(name string) event.ActivityKind {
	for _, s := range systemApps {
		if name == s {
			return event.KindSystem
		}
	}
	return event.KindApplication
}

// Set adds or overrides an application rule. An existing pattern keeps its
// position in the table; a new one is appended.
func (c *Categorizer) Set(pattern, category string, score int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apps = upsert(c.apps, pattern, category, score)
}

// SetDomain adds or overrides a URL rule.
func (c *Categorizer) SetDomain(pattern, category string, score int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.domains = upsert(c.domains, pattern, category, score)
}

// Rules returns a copy of the application rules in match order.
func (c *Categorizer) Rules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Rule(nil), c.apps...)
}

func upsert(rules []Rule, pattern, category string, score int) []Rule {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return rules
	}
	r := Rule{Pattern: pattern, Category: category, Score: ClampScore(score)}
	for i := range rules {
		if rules[i].Pattern == pattern {
			rules[i] = r
			return rules
		}
	}
	return append(rules, r)
}

func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
