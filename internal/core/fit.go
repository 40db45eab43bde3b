package core

import (
	"context"
	"fmt"
	"time"

	"fitcore/internal/bus"
	"fitcore/internal/calculator"
	"fitcore/internal/register"
	"fitcore/internal/stats"
	"fitcore/pkg/domain"
)

// Fit is the aggregate root of one assembly. Every mutation goes through it
// so the dependency index, the value cache and the stats registers follow.
// A Fit is not safe for concurrent use.
type Fit struct {
	opts    options
	catalog domain.Catalog
	rules   *RulesEngine

	broker *bus.Broker
	index  *register.Register
	calc   *calculator.Calculator
	stats  *stats.Stats

	ship      *domain.Item
	character *domain.Item
	items     []*domain.Item
	skills    map[domain.TypeID]*domain.Item
}

var (
	_ register.Roles  = (*Fit)(nil)
	_ stats.Fit       = (*Fit)(nil)
	_ domain.RuleView = (*Fit)(nil)
)

// NewFit creates an empty fit. A nil rules engine disables restriction
// checks.
func NewFit(cat domain.Catalog, rules *RulesEngine, opts ...Option) *Fit {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if rules == nil {
		rules = domain.NewRulesEngine()
	}
	f := &Fit{
		opts:    o,
		catalog: cat,
		rules:   rules,
		broker:  bus.NewBroker(),
		skills:  make(map[domain.TypeID]*domain.Item),
	}
	f.index = register.New(f, o.logger)
	f.calc = calculator.New(cat, f.index, f, f.broker, o.logger,
		calculator.WithObserver(func(success bool, d time.Duration) {
			o.metrics.Observe(context.Background(), OpResolveAttr, success, d)
		}),
	)
	f.stats = stats.New(f)
	f.index.Subscribe(f.broker)
	f.calc.Subscribe(f.broker)
	f.stats.Subscribe(f.broker)
	return f
}

// Subscribe attaches s to the fit's change notifications. Subscribers run
// after the index, the resolver and the stats registers.
func (f *Fit) Subscribe(s bus.Subscriber, kinds ...bus.Kind) {
	f.broker.Subscribe(s, kinds...)
}

// Ship returns the ship, nil when none is set.
func (f *Fit) Ship() *domain.Item { return f.ship }

// Character returns the character, nil when none is set.
func (f *Fit) Character() *domain.Item { return f.character }

// Items returns every item in the fit in insertion order.
func (f *Fit) Items() []*domain.Item {
	out := make([]*domain.Item, len(f.items))
	copy(out, f.items)
	return out
}

// Skill returns the fit's skill of the given type.
func (f *Fit) Skill(typeID domain.TypeID) (*domain.Item, bool) {
	s, ok := f.skills[typeID]
	return s, ok
}

// Has reports whether item belongs to the fit.
func (f *Fit) Has(item *domain.Item) bool {
	return item != nil && item.Owner() == f
}

// Value returns the resolved value of attr on item.
func (f *Fit) Value(item *domain.Item, attr domain.AttrID) (float64, error) {
	if !f.Has(item) {
		return 0, fmt.Errorf("%w: %v", domain.ErrItemNotInFit, item)
	}
	return f.calc.Value(item, attr)
}

// Resource returns usage against output of a resource pool.
func (f *Fit) Resource(res domain.Resource) domain.ResourceStats { return f.stats.Resource(res) }

// LaunchedDrones returns launched drones against the character's limit.
func (f *Fit) LaunchedDrones() domain.SlotStats { return f.stats.LaunchedDrones() }

// Consumers returns the online modules drawing from a resource pool.
func (f *Fit) Consumers(res domain.Resource) map[*domain.Item]float64 {
	return f.stats.Consumers(res)
}

// Empty reports whether the index and the resolver hold no state.
func (f *Fit) Empty() bool {
	return f.index.Empty() && f.calc.Empty()
}

// Validate evaluates the restriction rules. Blocking violations are
// returned as RuleViolationError alongside the full result.
func (f *Fit) Validate(ctx context.Context) (Result, error) {
	var res Result
	err := f.opts.observe(ctx, OpValidate, func(ctx context.Context) error {
		var err error
		res, err = f.rules.Evaluate(ctx, f)
		if err != nil {
			return err
		}
		if res.HasBlocking() {
			return RuleViolationError{Result: res}
		}
		return nil
	})
	return res, err
}

// AddItem puts item into the fit. Ships, characters and charges have
// dedicated entry points.
func (f *Fit) AddItem(ctx context.Context, item *domain.Item) error {
	return f.opts.observe(ctx, OpAddItem, func(context.Context) error {
		if item == nil {
			return fmt.Errorf("%w: nil item", domain.ErrInvalidKind)
		}
		switch item.Kind() {
		case domain.KindShip, domain.KindCharacter, domain.KindCharge:
			return fmt.Errorf("%w: %s cannot be added directly", domain.ErrInvalidKind, item.Kind())
		}
		return f.add(item)
	})
}

// RemoveItem takes item out of the fit. A loaded charge leaves with its
// module.
func (f *Fit) RemoveItem(ctx context.Context, item *domain.Item) error {
	return f.opts.observe(ctx, OpRemoveItem, func(context.Context) error {
		if !f.Has(item) {
			return fmt.Errorf("%w: %v", domain.ErrItemNotInFit, item)
		}
		switch {
		case item == f.ship:
			f.remove(item)
			f.ship = nil
		case item == f.character:
			f.remove(item)
			f.character = nil
		case item.Kind() == domain.KindCharge:
			f.remove(item)
			item.Unlink()
		default:
			charge := item.Other()
			if charge == nil || charge.Kind() != domain.KindCharge {
				f.remove(item)
				return nil
			}
			f.broker.PublishBulk(append(f.departure(charge), f.departure(item)...))
			item.Unlink()
			f.detach(charge)
			f.detach(item)
		}
		return nil
	})
}

// SetShip replaces the ship. Nil removes the current one.
func (f *Fit) SetShip(ctx context.Context, ship *domain.Item) error {
	return f.opts.observe(ctx, OpSetShip, func(context.Context) error {
		return f.setRole(&f.ship, ship, domain.KindShip)
	})
}

// SetCharacter replaces the character. Nil removes the current one.
func (f *Fit) SetCharacter(ctx context.Context, character *domain.Item) error {
	return f.opts.observe(ctx, OpSetCharacter, func(context.Context) error {
		return f.setRole(&f.character, character, domain.KindCharacter)
	})
}

func (f *Fit) setRole(slot **domain.Item, item *domain.Item, kind domain.ItemKind) error {
	if item != nil {
		if item.Kind() != kind {
			return fmt.Errorf("%w: expected %s, got %s", domain.ErrInvalidKind, kind, item.Kind())
		}
		if err := f.admit(item); err != nil {
			return err
		}
	}
	old := *slot
	var msgs []bus.Message
	if old != nil {
		msgs = f.departure(old)
	}
	// The role is filled before delivery so awaiting affectors find it.
	*slot = item
	if item != nil {
		arrival, err := f.attach(item)
		if err != nil {
			*slot = old
			return err
		}
		msgs = append(msgs, arrival...)
	}
	f.broker.PublishBulk(msgs)
	if old != nil {
		f.detach(old)
	}
	return nil
}

// SetState moves item to state and publishes the resulting state and
// effect transitions. A loaded charge follows its module.
func (f *Fit) SetState(ctx context.Context, item *domain.Item, state domain.State) error {
	return f.opts.observe(ctx, OpSetState, func(context.Context) error {
		if !f.Has(item) {
			return fmt.Errorf("%w: %v", domain.ErrItemNotInFit, item)
		}
		if !state.Valid() || state > item.MaxState() {
			return fmt.Errorf("%w: %s above max %s for %s", domain.ErrInvalidState, state, item.MaxState(), item)
		}
		msgs := f.transition(item, state)
		if charge := item.Other(); charge != nil && charge.Kind() == domain.KindCharge && item.Kind().IsModule() {
			msgs = append(msgs, f.transition(charge, min(state, charge.MaxState()))...)
		}
		f.broker.PublishBulk(msgs)
		return nil
	})
}

// transition applies state to item and returns the notifications
// describing the change.
func (f *Fit) transition(item *domain.Item, state domain.State) []bus.Message {
	old := item.State()
	if old == state {
		return nil
	}
	before := item.RunningEffects()
	_ = item.SetState(state)
	started, stopped := diffEffects(before, item.RunningEffects())

	var msgs []bus.Message
	if state > old {
		msgs = append(msgs, bus.StatesActivated{Item: item, States: domain.StatesBetween(old, state)})
		if len(started) > 0 {
			msgs = append(msgs, bus.EffectsStarted{Item: item, Effects: started})
		}
		return msgs
	}
	if len(stopped) > 0 {
		msgs = append(msgs, bus.EffectsStopped{Item: item, Effects: stopped})
	}
	return append(msgs, bus.StatesDeactivated{Item: item, States: domain.StatesBetween(state, old)})
}

// SetEffectMode changes how an effect of item follows its state.
func (f *Fit) SetEffectMode(ctx context.Context, item *domain.Item, effect domain.EffectID, mode domain.EffectMode) error {
	return f.opts.observe(ctx, OpSetEffectMode, func(context.Context) error {
		if !f.Has(item) {
			return fmt.Errorf("%w: %v", domain.ErrItemNotInFit, item)
		}
		before := item.RunningEffects()
		item.SetEffectMode(effect, mode)
		started, stopped := diffEffects(before, item.RunningEffects())
		var msgs []bus.Message
		if len(stopped) > 0 {
			msgs = append(msgs, bus.EffectsStopped{Item: item, Effects: stopped})
		}
		if len(started) > 0 {
			msgs = append(msgs, bus.EffectsStarted{Item: item, Effects: started})
		}
		f.broker.PublishBulk(msgs)
		return nil
	})
}

// LoadCharge links charge to module and adds it to the fit, replacing any
// charge already loaded.
func (f *Fit) LoadCharge(ctx context.Context, module, charge *domain.Item) error {
	return f.opts.observe(ctx, OpLoadCharge, func(context.Context) error {
		if !f.Has(module) {
			return fmt.Errorf("%w: %v", domain.ErrItemNotInFit, module)
		}
		if !module.Kind().IsModule() {
			return fmt.Errorf("%w: %s", domain.ErrNotChargeable, module)
		}
		if charge == nil || charge.Kind() != domain.KindCharge {
			return fmt.Errorf("%w: expected charge, got %v", domain.ErrInvalidKind, charge)
		}
		if charge.Owner() != nil || charge.Other() != nil {
			return fmt.Errorf("%w: %s", domain.ErrItemAlreadyAdded, charge)
		}
		f.bind(charge)
		_ = charge.SetState(min(module.State(), charge.MaxState()))
		if err := f.admit(charge); err != nil {
			return err
		}
		old := module.Other()
		var msgs []bus.Message
		if old != nil {
			msgs = f.departure(old)
			module.Unlink()
		}
		if err := module.Link(charge); err != nil {
			f.relink(module, old)
			return err
		}
		arrival, err := f.attach(charge)
		if err != nil {
			module.Unlink()
			f.relink(module, old)
			return err
		}
		f.broker.PublishBulk(append(msgs, arrival...))
		if old != nil {
			f.detach(old)
		}
		return nil
	})
}

// UnloadCharge removes the charge loaded into module, if any.
func (f *Fit) UnloadCharge(ctx context.Context, module *domain.Item) error {
	return f.opts.observe(ctx, OpUnloadCharge, func(context.Context) error {
		if !f.Has(module) {
			return fmt.Errorf("%w: %v", domain.ErrItemNotInFit, module)
		}
		charge := module.Other()
		if charge == nil {
			return nil
		}
		f.remove(charge)
		module.Unlink()
		return nil
	})
}

// SetAttrOverride pins attr on item to value regardless of modifications.
func (f *Fit) SetAttrOverride(ctx context.Context, item *domain.Item, attr domain.AttrID, value float64) error {
	return f.opts.observe(ctx, OpSetAttrOverride, func(context.Context) error {
		if !f.Has(item) {
			return fmt.Errorf("%w: %v", domain.ErrItemNotInFit, item)
		}
		item.SetOverride(attr, value)
		f.broker.Publish(bus.AttrValueChangedOverride{Item: item, AttrID: attr})
		return nil
	})
}

// ClearAttrOverride releases a pinned attribute.
func (f *Fit) ClearAttrOverride(ctx context.Context, item *domain.Item, attr domain.AttrID) error {
	return f.opts.observe(ctx, OpClearAttrOverride, func(context.Context) error {
		if !f.Has(item) {
			return fmt.Errorf("%w: %v", domain.ErrItemNotInFit, item)
		}
		if item.ClearOverride(attr) {
			f.broker.Publish(bus.AttrValueChangedOverride{Item: item, AttrID: attr})
		}
		return nil
	})
}

// SetSkillLevel changes the trained level of a skill.
func (f *Fit) SetSkillLevel(ctx context.Context, skill *domain.Item, level int) error {
	return f.opts.observe(ctx, OpSetSkillLevel, func(context.Context) error {
		if skill == nil || skill.Kind() != domain.KindSkill {
			return fmt.Errorf("%w: expected skill, got %v", domain.ErrInvalidKind, skill)
		}
		if level < 0 || level > 5 {
			return fmt.Errorf("skill level %d out of range", level)
		}
		skill.SetSkillLevel(level)
		skill.SetOverride(domain.AttrSkillLevel, float64(level))
		if f.Has(skill) {
			f.broker.Publish(bus.AttrValueChangedOverride{Item: skill, AttrID: domain.AttrSkillLevel})
		}
		return nil
	})
}

// add admits, attaches and announces item.
func (f *Fit) add(item *domain.Item) error {
	if err := f.admit(item); err != nil {
		return err
	}
	msgs, err := f.attach(item)
	if err != nil {
		return err
	}
	f.broker.PublishBulk(msgs)
	return nil
}

// remove announces the departure of item, then detaches it.
func (f *Fit) remove(item *domain.Item) {
	f.broker.PublishBulk(f.departure(item))
	f.detach(item)
}

// bind resolves the catalog type of item once.
func (f *Fit) bind(item *domain.Item) {
	if item.Type() != nil {
		return
	}
	t, err := f.catalog.Type(item.TypeID())
	if err != nil {
		f.opts.logger.Debug("item type not in catalog", "type_id", item.TypeID(), "error", err)
		return
	}
	item.Bind(t)
}

// admit checks item may join the fit without changing the fit.
func (f *Fit) admit(item *domain.Item) error {
	if item.Owner() != nil {
		return fmt.Errorf("%w: %s", domain.ErrItemAlreadyAdded, item)
	}
	if item.Kind() == domain.KindSkill {
		if _, dup := f.skills[item.TypeID()]; dup {
			return fmt.Errorf("%w: skill %d already in fit", domain.ErrItemAlreadyAdded, item.TypeID())
		}
	}
	f.bind(item)
	if item.State() > item.MaxState() {
		return fmt.Errorf("%w: %s above max %s for %s", domain.ErrInvalidState, item.State(), item.MaxState(), item)
	}
	return nil
}

// attach records item as part of the fit and returns the messages
// announcing it.
func (f *Fit) attach(item *domain.Item) ([]bus.Message, error) {
	if err := item.Attach(f); err != nil {
		return nil, err
	}
	if item.Kind() == domain.KindSkill {
		f.skills[item.TypeID()] = item
		item.SetOverride(domain.AttrSkillLevel, float64(item.SkillLevel()))
	}
	f.items = append(f.items, item)

	msgs := []bus.Message{
		bus.ItemAdded{Item: item},
		bus.StatesActivated{Item: item, States: append([]domain.State{domain.StateOffline}, domain.StatesBetween(domain.StateOffline, item.State())...)},
	}
	if running := item.RunningEffects(); len(running) > 0 {
		msgs = append(msgs, bus.EffectsStarted{Item: item, Effects: running})
	}
	return msgs, nil
}

// departure returns the messages announcing that item leaves.
func (f *Fit) departure(item *domain.Item) []bus.Message {
	var msgs []bus.Message
	if running := item.RunningEffects(); len(running) > 0 {
		msgs = append(msgs, bus.EffectsStopped{Item: item, Effects: running})
	}
	return append(msgs,
		bus.StatesDeactivated{Item: item, States: append([]domain.State{domain.StateOffline}, domain.StatesBetween(domain.StateOffline, item.State())...)},
		bus.ItemRemoved{Item: item},
	)
}

// detach drops item from the fit once its departure was delivered.
func (f *Fit) detach(item *domain.Item) {
	item.Detach()
	if item.Kind() == domain.KindSkill && f.skills[item.TypeID()] == item {
		delete(f.skills, item.TypeID())
	}
	for i, it := range f.items {
		if it == item {
			f.items = append(f.items[:i], f.items[i+1:]...)
			break
		}
	}
}

// relink restores the link between module and the charge it held.
func (f *Fit) relink(module, old *domain.Item) {
	if old != nil {
		_ = module.Link(old)
	}
}

// diffEffects returns the effects present only in after, and only in
// before.
func diffEffects(before, after []*domain.Effect) (started, stopped []*domain.Effect) {
	was := make(map[*domain.Effect]struct{}, len(before))
	for _, e := range before {
		was[e] = struct{}{}
	}
	now := make(map[*domain.Effect]struct{}, len(after))
	for _, e := range after {
		now[e] = struct{}{}
		if _, ok := was[e]; !ok {
			started = append(started, e)
		}
	}
	for _, e := range before {
		if _, ok := now[e]; !ok {
			stopped = append(stopped, e)
		}
	}
	return started, stopped
}
