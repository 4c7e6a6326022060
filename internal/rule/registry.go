package rule

import (
	"errors"
	"fmt"
	"sync"
)

// Selection sentinel meaning "every registered rule".
const SelectAll = "all"

var (
	errUnknownRule   = errors.New("unknown rule")
	errDuplicateRule = errors.New("rule already registered")
	errFrozen        = errors.New("registry is frozen")
	errNotFrozen     = errors.New("registry must be frozen before selection")
)

// Registry is the process-wide rule catalog. It has a two-phase lifecycle:
// Register during startup, then Freeze before any audit task launches. A
// frozen registry is read-only and safe to share across all device tasks
// without locking on the hot path.
type Registry struct {
	mu     sync.Mutex
	frozen bool
	rules  map[string]Rule
	order  []string
}

// NewRegistry returns an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds a rule. Fails on duplicates and after Freeze.
func (r *Registry) Register(rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: cannot register %s", errFrozen, rule.Name())
	}

	name := rule.Name()
	if _, exists := r.rules[name]; exists {
		return fmt.Errorf("%w: %s", errDuplicateRule, name)
	}

	r.rules[name] = rule
	r.order = append(r.order, name)

	return nil
}

// Freeze ends the registration phase. Idempotent.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Names returns all registered rule names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

// Select resolves a rule name list into rule instances, preserving the
// requested order. The SelectAll sentinel expands to every registered rule in
// registration order. Unknown names fail before any connection is opened.
func (r *Registry) Select(names []string) ([]Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.frozen {
		return nil, errNotFrozen
	}

	resolved := names
	for _, name := range names {
		if name == SelectAll {
			resolved = r.order
			break
		}
	}

	if len(resolved) == 0 {
		resolved = r.order
	}

	rules := make([]Rule, 0, len(resolved))
	seen := make(map[string]bool, len(resolved))

	for _, name := range resolved {
		if seen[name] {
			continue
		}
		seen[name] = true

		rule, ok := r.rules[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", errUnknownRule, name)
		}

		rules = append(rules, rule)
	}

	return rules, nil
}
