// Package glossary provides the static technical-term dictionary used
// as the last resolution tier and by the development backend.
package glossary

import "strings"

// Entry is one dictionary record.
type Entry struct {
	Term           string
	Explanation    string
	Category       string
	BusinessImpact string
	RelatedTerms   []string
}

// Glossary is a fixed in-memory term table with case-insensitive lookup.
type Glossary struct {
	entries map[string]Entry
	order   []string
}

// New builds a Glossary from the given entries.
func New(entries []Entry) *Glossary {
	g := &Glossary{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		key := normalize(e.Term)
		if _, dup := g.entries[key]; !dup {
			g.order = append(g.order, key)
		}
		g.entries[key] = e
	}
	return g
}

// Lookup resolves a phrase against the table. Exact match wins; failing
// that, substring containment in either direction. The second return is
// false when nothing matched.
func (g *Glossary) Lookup(phrase string) (Entry, bool) {
	key := normalize(phrase)
	if key == "" {
		return Entry{}, false
	}
	if e, ok := g.entries[key]; ok {
		return e, true
	}
	for _, k := range g.order {
		if strings.Contains(key, k) || strings.Contains(k, key) {
			return g.entries[k], true
		}
	}
	return Entry{}, false
}

// Len reports the number of entries.
func (g *Glossary) Len() int { return len(g.order) }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Default returns the built-in enterprise terminology table.
func Default() *Glossary {
	return New([]Entry{
		{
			Term:           "microservices",
			Explanation:    "An architecture style that decomposes an application into small, independently deployable services that communicate over well-defined APIs.",
			Category:       "Architecture",
			BusinessImpact: "Enables teams to ship and scale features independently, at the cost of operational complexity.",
			RelatedTerms:   []string{"containerization", "api gateway", "service mesh"},
		},
		{
			Term:           "kubernetes",
			Explanation:    "An open-source platform that automates deployment, scaling, and management of containerized workloads.",
			Category:       "Infrastructure",
			BusinessImpact: "Standardizes operations across environments and reduces manual infrastructure work.",
			RelatedTerms:   []string{"containers", "orchestration", "helm"},
		},
		{
			Term:           "api gateway",
			Explanation:    "A single entry point that routes, secures, and rate-limits client traffic to backend services.",
			Category:       "Architecture",
			BusinessImpact: "Centralizes cross-cutting concerns so individual services stay simple.",
			RelatedTerms:   []string{"microservices", "reverse proxy", "rate limiting"},
		},
		{
			Term:           "devops",
			Explanation:    "A practice that merges software development and IT operations to shorten delivery cycles through automation and shared ownership.",
			Category:       "Process",
			BusinessImpact: "Faster, more reliable releases and tighter feedback loops between teams.",
			RelatedTerms:   []string{"ci/cd", "infrastructure as code", "sre"},
		},
		{
			Term:           "technical debt",
			Explanation:    "The implied future cost of rework caused by choosing an expedient solution now instead of a better long-term approach.",
			Category:       "Process",
			BusinessImpact: "Slows feature delivery over time until deliberately paid down.",
			RelatedTerms:   []string{"refactoring", "legacy code"},
		},
		{
			Term:           "service mesh",
			Explanation:    "A dedicated infrastructure layer that handles service-to-service communication, observability, and security transparently.",
			Category:       "Infrastructure",
			BusinessImpact: "Offloads networking concerns from application code in large service fleets.",
			RelatedTerms:   []string{"microservices", "sidecar", "mtls"},
		},
		{
			Term:           "ci/cd",
			Explanation:    "Continuous integration and continuous delivery: automatically building, testing, and releasing every change.",
			Category:       "Process",
			BusinessImpact: "Cuts release risk by making deployments small, frequent, and repeatable.",
			RelatedTerms:   []string{"devops", "pipelines", "automation"},
		},
	})
}
