package bt

import (
	"fmt"
	"sort"
	"sync"
)

// ActionFactory builds an ActionFunc from definition params.
type ActionFactory func(params map[string]any) (ActionFunc, error)

// ConditionFactory builds a Predicate from definition params.
type ConditionFactory func(params map[string]any) (Predicate, error)

// Registry maps leaf names used in tree definitions to the functions that implement them.
type Registry interface {
	RegisterAction(name string, factory ActionFactory)
	RegisterCondition(name string, factory ConditionFactory)

	NewAction(name string, params map[string]any) (ActionFunc, error)
	NewCondition(name string, params map[string]any) (Predicate, error)

	Actions() []string
	Conditions() []string
}

type reg struct {
	mu    sync.RWMutex
	acts  map[string]ActionFactory
	conds map[string]ConditionFactory
}

// NewRegistry returns an empty registry.
func NewRegistry() Registry {
	return &reg{
		acts:  make(map[string]ActionFactory),
		conds: make(map[string]ConditionFactory),
	}
}

func (r *reg) RegisterAction(name string, factory ActionFactory) {
	r.mu.Lock()
	r.acts[name] = factory
	r.mu.Unlock()
}

func (r *reg) RegisterCondition(name string, factory ConditionFactory) {
	r.mu.Lock()
	r.conds[name] = factory
	r.mu.Unlock()
}

func (r *reg) NewAction(name string, params map[string]any) (ActionFunc, error) {
	r.mu.RLock()
	f := r.acts[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: action %s", ErrUnknownLeaf, name)
	}
	return f(params)
}

func (r *reg) NewCondition(name string, params map[string]any) (Predicate, error) {
	r.mu.RLock()
	f := r.conds[name]
	r.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("%w: condition %s", ErrUnknownLeaf, name)
	}
	return f(params)
}

func (r *reg) Actions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.acts)
}

func (r *reg) Conditions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.conds)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Action adapts a fixed ActionFunc into a factory that ignores params.
func Action(fn ActionFunc) ActionFactory {
	return func(map[string]any) (ActionFunc, error) { return fn, nil }
}

// Condition adapts a fixed Predicate into a factory that ignores params.
func Condition(pred Predicate) ConditionFactory {
	return func(map[string]any) (Predicate, error) { return pred, nil }
}
