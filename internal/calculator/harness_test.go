package calculator

import (
	"fmt"
	"testing"

	"fitcore/internal/bus"
	"fitcore/internal/register"
	"fitcore/pkg/domain"
)

const (
	attrTarget domain.AttrID = 10
	attrSource domain.AttrID = 20
	attrExtra  domain.AttrID = 21
	attrCap    domain.AttrID = 22
)

type fakeCatalog struct {
	attrs map[domain.AttrID]*domain.Attribute
}

func (c fakeCatalog) Type(id domain.TypeID) (*domain.ItemType, error) {
	return nil, domain.NotFoundError{Entity: "type", ID: int64(id)}
}

func (c fakeCatalog) Attribute(id domain.AttrID) (*domain.Attribute, error) {
	if a, ok := c.attrs[id]; ok {
		return a, nil
	}
	return nil, domain.NotFoundError{Entity: "attribute", ID: int64(id)}
}

func (c fakeCatalog) Effect(id domain.EffectID) (*domain.Effect, error) {
	return nil, domain.NotFoundError{Entity: "effect", ID: int64(id)}
}

func attributes(list ...*domain.Attribute) fakeCatalog {
	c := fakeCatalog{attrs: make(map[domain.AttrID]*domain.Attribute)}
	for _, a := range list {
		c.attrs[a.ID] = a
	}
	return c
}

type captureLogger struct {
	warnings []string
}

func (l *captureLogger) Warn(msg string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintln(append([]any{msg}, args...)...))
}

type testFit struct {
	ship, character *domain.Item
	broker          *bus.Broker
	index           *register.Register
	calc            *Calculator
	log             *captureLogger
	changes         []bus.AttrValueChanged
}

func (f *testFit) Ship() *domain.Item      { return f.ship }
func (f *testFit) Character() *domain.Item { return f.character }

func (f *testFit) Notify(msg bus.Message) {
	if m, ok := msg.(bus.AttrValueChanged); ok {
		f.changes = append(f.changes, m)
	}
}

func newTestFit(cat domain.Catalog) *testFit {
	f := &testFit{broker: bus.NewBroker(), log: &captureLogger{}}
	f.index = register.New(f, f.log)
	f.index.Subscribe(f.broker)
	f.calc = New(cat, f.index, f, f.broker, f.log)
	f.calc.Subscribe(f.broker)
	f.broker.Subscribe(f, bus.KindAttrValueChanged)
	return f
}

func (f *testFit) add(items ...*domain.Item) {
	for _, it := range items {
		f.broker.PublishBulk([]bus.Message{
			bus.ItemAdded{Item: it},
			bus.EffectsStarted{Item: it, Effects: it.RunningEffects()},
		})
	}
}

func (f *testFit) remove(items ...*domain.Item) {
	for _, it := range items {
		f.broker.PublishBulk([]bus.Message{
			bus.EffectsStopped{Item: it, Effects: it.RunningEffects()},
			bus.ItemRemoved{Item: it},
		})
	}
}

func (f *testFit) setShip(ship *domain.Item) {
	f.ship = ship
	f.add(ship)
}

func (f *testFit) override(it *domain.Item, attr domain.AttrID, v float64) {
	it.SetOverride(attr, v)
	f.broker.Publish(bus.AttrValueChangedOverride{Item: it, AttrID: attr})
}

func (f *testFit) value(t *testing.T, it *domain.Item, attr domain.AttrID) float64 {
	t.Helper()
	v, err := f.calc.Value(it, attr)
	if err != nil {
		t.Fatalf("value of %d on %s: %v", attr, it, err)
	}
	return v
}

func itemType(id domain.TypeID, cat domain.CategoryID, attrs map[domain.AttrID]float64, mods ...*domain.Modifier) *domain.ItemType {
	return &domain.ItemType{
		ID:         id,
		GroupID:    domain.GroupID(id),
		CategoryID: cat,
		Attrs:      attrs,
		Effects:    []*domain.Effect{{ID: domain.EffectID(id), Category: domain.EffectPassive, Modifiers: mods}},
	}
}

func newItem(t *domain.ItemType, kind domain.ItemKind) *domain.Item {
	it := domain.NewItem(t.ID, kind)
	it.Bind(t)
	return it
}

func shipWith(attrs map[domain.AttrID]float64) *domain.Item {
	return newItem(itemType(1, domain.CategoryShip, attrs), domain.KindShip)
}

func moduleWith(id domain.TypeID, attrs map[domain.AttrID]float64, mods ...*domain.Modifier) *domain.Item {
	return newItem(itemType(id, domain.CategoryModule, attrs, mods...), domain.KindModuleLow)
}

func onShip(op domain.Operator) *domain.Modifier {
	return domain.NewAttributeModifier(domain.FilterItem, domain.DomainShip, attrTarget, op, attrSource)
}
