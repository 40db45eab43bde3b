package domain

import "context"

// Resource names a fit resource pool.
type Resource string

// Resource pools.
const (
	ResourceCPU       Resource = "cpu"
	ResourcePowergrid Resource = "powergrid"
)

// ResourceStats reports consumption against output.
type ResourceStats struct {
	Used   float64
	Output float64
}

// SlotStats reports occupied slots against available ones.
type SlotStats struct {
	Used  int
	Total int
}

// RuleView provides read-only access to a fit for rule evaluation.
type RuleView interface {
	Items() []*Item
	Ship() *Item
	Character() *Item
	Skill(typeID TypeID) (*Item, bool)
	Value(item *Item, attr AttrID) (float64, error)
	Resource(res Resource) ResourceStats
	LaunchedDrones() SlotStats
}

// Rule defines a restriction evaluated against a fit.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine(rules ...Rule) *RulesEngine {
	e := &RulesEngine{}
	for _, r := range rules {
		e.Register(r)
	}
	return e
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	if rule == nil {
		return
	}
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in evaluation order.
func (e *RulesEngine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
