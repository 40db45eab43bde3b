// Package calculator resolves attribute values lazily and keeps them
// consistent with the dependency index.
package calculator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"fitcore/internal/bus"
	"fitcore/internal/register"
	"fitcore/pkg/domain"
)

// Index is the part of the dependency index the calculator reads.
type Index interface {
	Affectors(target *domain.Item) []register.Affector
	Affectees(a register.Affector) []*domain.Item
	Triggered(item *domain.Item, attr domain.AttrID) []register.Affector
	TriggeredByItem(item *domain.Item) []register.Affector
}

// Logger receives per-evaluation warnings.
type Logger interface {
	Warn(msg string, args ...any)
}

// ObserveFunc receives the outcome and duration of every value computation.
type ObserveFunc func(success bool, duration time.Duration)

// Option configures a Calculator.
type Option func(*Calculator)

// WithObserver installs a computation observer.
func WithObserver(fn ObserveFunc) Option {
	return func(c *Calculator) {
		if fn != nil {
			c.observe = fn
		}
	}
}

// limitedPrecision lists attributes rounded to two decimals.
var limitedPrecision = map[domain.AttrID]struct{}{
	domain.AttrCPU:         {},
	domain.AttrPower:       {},
	domain.AttrCPUOutput:   {},
	domain.AttrPowerOutput: {},
}

type valueKey struct {
	item *domain.Item
	attr domain.AttrID
}

// Calculator caches resolved values per item and attribute. Reads that feed
// a computation are recorded as reverse edges so invalidation reaches every
// dependent value.
type Calculator struct {
	catalog domain.Catalog
	index   Index
	roles   register.Roles
	broker  *bus.Broker
	logger  Logger
	observe ObserveFunc

	values map[valueKey]float64
	// keys whose last computation failed; kept so a later fix notifies readers
	failed map[valueKey]struct{}
	known  *register.KeyedSet[*domain.Item, domain.AttrID]

	dependents   *register.KeyedSet[valueKey, valueKey]
	dependencies *register.KeyedSet[valueKey, valueKey]
	// affector to the values it was folded into, and back
	contributions *register.KeyedSet[register.Affector, valueKey]
	contributors  *register.KeyedSet[valueKey, register.Affector]

	computing map[valueKey]struct{}
}

// New constructs a calculator publishing value changes on broker.
func New(catalog domain.Catalog, index Index, roles register.Roles, broker *bus.Broker, logger Logger, opts ...Option) *Calculator {
	c := &Calculator{
		catalog:       catalog,
		index:         index,
		roles:         roles,
		broker:        broker,
		logger:        logger,
		observe:       func(bool, time.Duration) {},
		values:        make(map[valueKey]float64),
		failed:        make(map[valueKey]struct{}),
		known:         register.NewKeyedSet[*domain.Item, domain.AttrID](),
		dependents:    register.NewKeyedSet[valueKey, valueKey](),
		dependencies:  register.NewKeyedSet[valueKey, valueKey](),
		contributions: register.NewKeyedSet[register.Affector, valueKey](),
		contributors:  register.NewKeyedSet[valueKey, register.Affector](),
		computing:     make(map[valueKey]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe attaches the calculator to the bus. The dependency index must
// already be subscribed.
func (c *Calculator) Subscribe(b *bus.Broker) {
	b.Subscribe(c,
		bus.KindItemAdded,
		bus.KindItemRemoved,
		bus.KindEffectsStarted,
		bus.KindEffectsStopped,
		bus.KindAttrValueChanged,
		bus.KindAttrValueChangedOverride,
	)
}

// Value returns the resolved value of attr on item.
func (c *Calculator) Value(item *domain.Item, attr domain.AttrID) (float64, error) {
	if v, ok := item.Override(attr); ok {
		return v, nil
	}
	key := valueKey{item: item, attr: attr}
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	if _, busy := c.computing[key]; busy {
		return 0, &domain.ModificationCalculationError{Reason: fmt.Sprintf("circular dependency on attribute %d", attr)}
	}
	c.computing[key] = struct{}{}
	started := time.Now()
	v, err := c.compute(key)
	delete(c.computing, key)
	c.known.Add(item, attr)
	c.observe(err == nil, time.Since(started))
	if err != nil {
		c.failed[key] = struct{}{}
		return 0, err
	}
	delete(c.failed, key)
	c.values[key] = v
	return v, nil
}

// Cached reports whether a value is currently cached.
func (c *Calculator) Cached(item *domain.Item, attr domain.AttrID) bool {
	_, ok := c.values[valueKey{item: item, attr: attr}]
	return ok
}

func (c *Calculator) compute(key valueKey) (float64, error) {
	meta, maxAttr, def := c.attribute(key.attr)
	base, hasBase := key.item.Type().BaseValue(key.attr)
	if !hasBase && def != nil {
		base, hasBase = *def, true
	}

	var mods []contribution
	for _, a := range c.index.Affectors(key.item) {
		if a.Modifier.TargetAttr != key.attr {
			continue
		}
		c.contributions.Add(a, key)
		c.contributors.Add(key, a)
		op, raw, err := c.evaluate(key, a)
		if err == nil {
			raw, err = op.Normalize(raw)
		}
		if err != nil {
			c.logger.Warn("modification dropped", "type_id", a.Item.TypeID(), "attr_id", key.attr, "error", err)
			continue
		}
		mods = append(mods, contribution{
			class:    op.Class(),
			value:    raw,
			penalize: !domain.PenaltyImmune(a.Item.CategoryID()),
		})
	}

	value, ok := fold(base, hasBase, mods, meta)
	if !ok {
		return 0, &domain.MissingAttributeError{TypeID: key.item.TypeID(), AttrID: key.attr}
	}
	if maxAttr != 0 {
		if limit, err := c.read(key, key.item, maxAttr); err == nil && value > limit {
			value = limit
		}
	}
	if _, ok := limitedPrecision[key.attr]; ok {
		value = math.Round(value*100) / 100
	}
	return value, nil
}

// attribute returns fold flags, the cap attribute and the default value.
// Attributes absent from the catalog fold as stackable and high-is-good
// without a default.
func (c *Calculator) attribute(id domain.AttrID) (attrMeta, domain.AttrID, *float64) {
	attr, err := c.catalog.Attribute(id)
	if err != nil || attr == nil {
		return attrMeta{stackable: true, highIsGood: true}, 0, nil
	}
	return attrMeta{stackable: attr.Stackable, highIsGood: attr.HighIsGood}, attr.MaxAttrID, attr.DefaultValue
}

func (c *Calculator) evaluate(key valueKey, a register.Affector) (domain.Operator, float64, error) {
	mod := a.Modifier
	switch mod.Source {
	case domain.SourceAttribute:
		v, err := c.read(key, a.Item, mod.SourceAttr)
		if err != nil {
			return 0, 0, &domain.ModificationCalculationError{Reason: fmt.Sprintf("source attribute %d", mod.SourceAttr), Err: err}
		}
		return mod.Operator, v, nil
	case domain.SourceProcedure:
		op, v, err := mod.Procedure.Evaluate(procedureView{calc: c, carrier: a.Item})
		if err != nil {
			if errors.Is(err, domain.ErrModificationCalculation) {
				return 0, 0, err
			}
			return 0, 0, &domain.ModificationCalculationError{Reason: "procedure " + mod.Procedure.Name(), Err: err}
		}
		if !op.Valid() {
			return 0, 0, &domain.ModificationCalculationError{Reason: fmt.Sprintf("procedure %s returned %s", mod.Procedure.Name(), op)}
		}
		return op, v, nil
	default:
		return 0, 0, &domain.ModificationCalculationError{Reason: fmt.Sprintf("unknown modifier source %d", mod.Source)}
	}
}

// read resolves a source value on behalf of reader and records the edge.
func (c *Calculator) read(reader valueKey, item *domain.Item, attr domain.AttrID) (float64, error) {
	source := valueKey{item: item, attr: attr}
	c.dependents.Add(source, reader)
	c.dependencies.Add(reader, source)
	c.known.Add(item, attr)
	return c.Value(item, attr)
}

// procedureView serves procedure reads. Reads are not recorded as edges;
// procedures declare their triggers instead.
type procedureView struct {
	calc    *Calculator
	carrier *domain.Item
}

func (v procedureView) Value(role domain.Role, attr domain.AttrID) (float64, error) {
	var item *domain.Item
	switch role {
	case domain.RoleCarrier:
		item = v.carrier
	case domain.RoleShip:
		item = v.calc.roles.Ship()
	case domain.RoleCharacter:
		item = v.calc.roles.Character()
	case domain.RoleOther:
		item = v.carrier.Other()
	}
	if item == nil {
		return 0, &domain.ModificationCalculationError{Reason: fmt.Sprintf("no %s item", role)}
	}
	return v.calc.Value(item, attr)
}

// Notify implements bus.Subscriber.
func (c *Calculator) Notify(msg bus.Message) {
	switch m := msg.(type) {
	case bus.ItemAdded:
		c.invalidateAffectors(c.index.TriggeredByItem(m.Item))
	case bus.ItemRemoved:
		keys := make([]valueKey, 0, c.known.Len(m.Item))
		for _, attr := range c.known.Slice(m.Item) {
			keys = append(keys, valueKey{item: m.Item, attr: attr})
		}
		c.invalidate(keys...)
		c.known.RemoveKey(m.Item)
		c.invalidateAffectors(c.index.TriggeredByItem(m.Item))
	case bus.EffectsStarted:
		var keys []valueKey
		for _, e := range m.Effects {
			for _, mod := range e.Modifiers {
				for _, target := range c.index.Affectees(register.Affector{Item: m.Item, Modifier: mod}) {
					keys = append(keys, valueKey{item: target, attr: mod.TargetAttr})
				}
			}
		}
		c.invalidate(keys...)
	case bus.EffectsStopped:
		var keys []valueKey
		for _, e := range m.Effects {
			for _, mod := range e.Modifiers {
				keys = append(keys, c.contributions.Slice(register.Affector{Item: m.Item, Modifier: mod})...)
			}
		}
		c.invalidate(keys...)
	case bus.AttrValueChanged:
		c.invalidateAffectors(c.index.Triggered(m.Item, m.AttrID))
	case bus.AttrValueChangedOverride:
		c.invalidate(valueKey{item: m.Item, attr: m.AttrID})
		c.invalidateAffectors(c.index.Triggered(m.Item, m.AttrID))
	}
}

// invalidateAffectors drops every value the affectors contributed to or
// currently reach.
func (c *Calculator) invalidateAffectors(affectors []register.Affector) {
	if len(affectors) == 0 {
		return
	}
	var keys []valueKey
	for _, a := range affectors {
		keys = append(keys, c.contributions.Slice(a)...)
		for _, target := range c.index.Affectees(a) {
			keys = append(keys, valueKey{item: target, attr: a.Modifier.TargetAttr})
		}
	}
	c.invalidate(keys...)
}

// invalidate drops keys and everything that read them, then announces each
// value that was cached or had failed.
func (c *Calculator) invalidate(keys ...valueKey) {
	if len(keys) == 0 {
		return
	}
	visited := make(map[valueKey]struct{})
	var changed []valueKey
	for _, key := range keys {
		c.drop(key, visited, &changed)
	}
	for _, key := range changed {
		c.broker.Publish(bus.AttrValueChanged{Item: key.item, AttrID: key.attr})
	}
}

func (c *Calculator) drop(key valueKey, visited map[valueKey]struct{}, changed *[]valueKey) {
	if _, ok := visited[key]; ok {
		return
	}
	visited[key] = struct{}{}
	_, cached := c.values[key]
	_, failed := c.failed[key]
	delete(c.values, key)
	delete(c.failed, key)
	if cached || failed {
		*changed = append(*changed, key)
	}
	for _, source := range c.dependencies.Slice(key) {
		c.dependents.Remove(source, key)
		c.forgetIfUnused(source)
	}
	c.dependencies.RemoveKey(key)
	for _, a := range c.contributors.Slice(key) {
		c.contributions.Remove(a, key)
	}
	c.contributors.RemoveKey(key)
	for _, reader := range c.dependents.Slice(key) {
		c.drop(reader, visited, changed)
	}
	c.forgetIfUnused(key)
}

// forgetIfUnused removes key from the known set once nothing is cached for
// it and nothing reads it.
func (c *Calculator) forgetIfUnused(key valueKey) {
	if _, ok := c.values[key]; ok {
		return
	}
	if _, ok := c.failed[key]; ok {
		return
	}
	if c.dependents.Len(key) > 0 {
		return
	}
	c.known.Remove(key.item, key.attr)
}

// Empty reports whether no value, edge or contribution is held.
func (c *Calculator) Empty() bool {
	return len(c.values) == 0 &&
		len(c.failed) == 0 &&
		c.known.Empty() &&
		c.dependents.Empty() &&
		c.dependencies.Empty() &&
		c.contributions.Empty() &&
		c.contributors.Empty()
}
