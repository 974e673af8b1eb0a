package validator

import "sort"

// Registry maps rule keys to Rule implementations.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// DefaultRegistry returns a registry holding every built-in rule.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range BuiltinRules() {
		r.Register(rule)
	}
	return r
}

// Register adds a rule, replacing any rule with the same key.
func (r *Registry) Register(rule Rule) {
	r.rules[rule.Key()] = rule
}

// Get returns the rule for a key, or nil if not found.
func (r *Registry) Get(key string) Rule {
	return r.rules[key]
}

// All returns every registered rule ordered by key.
func (r *Registry) All() []Rule {
	keys := make([]string, 0, len(r.rules))
	for k := range r.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Rule, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.rules[k])
	}
	return out
}
