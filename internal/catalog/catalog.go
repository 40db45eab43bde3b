// Package catalog builds the read-only static data used by fits.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"fitcore/pkg/domain"
)

// Procedures resolves procedure names referenced by modifiers.
type Procedures interface {
	Procedure(name string) (domain.Procedure, bool)
}

// ProcedureMap is a static Procedures lookup.
type ProcedureMap map[string]domain.Procedure

// Procedure implements Procedures.
func (m ProcedureMap) Procedure(name string) (domain.Procedure, bool) {
	p, ok := m[name]
	return p, ok
}

// Catalog implements domain.Catalog over an immutable snapshot.
type Catalog struct {
	types   map[domain.TypeID]*domain.ItemType
	attrs   map[domain.AttrID]*domain.Attribute
	effects map[domain.EffectID]*domain.Effect
}

var _ domain.Catalog = (*Catalog)(nil)

// New validates data and builds a catalog. Every problem found is reported;
// a catalog is never returned partially built.
func New(data Data, procs Procedures) (*Catalog, error) {
	c := &Catalog{
		types:   make(map[domain.TypeID]*domain.ItemType, len(data.Types)),
		attrs:   make(map[domain.AttrID]*domain.Attribute, len(data.Attributes)),
		effects: make(map[domain.EffectID]*domain.Effect, len(data.Effects)),
	}
	var errs []error
	for _, a := range data.Attributes {
		if _, dup := c.attrs[a.ID]; dup {
			errs = append(errs, fmt.Errorf("attribute %d: duplicate id", a.ID))
			continue
		}
		attr := &domain.Attribute{ID: a.ID, MaxAttrID: a.MaxAttrID, HighIsGood: a.HighIsGood, Stackable: a.Stackable}
		if a.Default != nil {
			v := *a.Default
			attr.DefaultValue = &v
		}
		c.attrs[a.ID] = attr
	}
	for _, e := range data.Effects {
		if _, dup := c.effects[e.ID]; dup {
			errs = append(errs, fmt.Errorf("effect %d: duplicate id", e.ID))
			continue
		}
		effect, err := buildEffect(e, procs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.effects[e.ID] = effect
	}
	for _, t := range data.Types {
		if _, dup := c.types[t.ID]; dup {
			errs = append(errs, fmt.Errorf("type %d: duplicate id", t.ID))
			continue
		}
		itemType, err := c.buildType(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.types[t.ID] = itemType
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func buildEffect(e EffectData, procs Procedures) (*domain.Effect, error) {
	if e.Category > domain.EffectSystem {
		return nil, fmt.Errorf("effect %d: unknown category %d", e.ID, e.Category)
	}
	effect := &domain.Effect{ID: e.ID, Category: e.Category}
	var errs []error
	for _, m := range e.Modifiers {
		mod, err := buildModifier(e.ID, m, procs)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		effect.Modifiers = append(effect.Modifiers, mod)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return effect, nil
}

func buildModifier(effect domain.EffectID, m ModifierData, procs Procedures) (*domain.Modifier, error) {
	filter, err := domain.ParseFilterKind(m.Filter)
	if err != nil {
		return nil, &domain.InvalidModifierError{EffectID: effect, Field: "filter", Reason: err.Error()}
	}
	dom, err := domain.ParseDomain(m.Domain)
	if err != nil {
		return nil, &domain.InvalidModifierError{EffectID: effect, Field: "domain", Reason: err.Error()}
	}
	var mod *domain.Modifier
	if m.Procedure != "" {
		var proc domain.Procedure
		var ok bool
		if procs != nil {
			proc, ok = procs.Procedure(m.Procedure)
		}
		if !ok {
			return nil, fmt.Errorf("effect %d: %w %q", effect, domain.ErrUnknownProcedure, m.Procedure)
		}
		mod = domain.NewProcedureModifier(filter, dom, m.TargetAttr, proc)
	} else {
		op, err := domain.ParseOperator(m.Operator)
		if err != nil {
			return nil, &domain.InvalidModifierError{EffectID: effect, Field: "operator", Reason: err.Error()}
		}
		mod = domain.NewAttributeModifier(filter, dom, m.TargetAttr, op, m.SourceAttr)
	}
	mod.GroupID = m.Group
	mod.SkillID = m.Skill
	if err := mod.Validate(); err != nil {
		var invalid *domain.InvalidModifierError
		if errors.As(err, &invalid) {
			invalid.EffectID = effect
		}
		return nil, err
	}
	return mod, nil
}

func (c *Catalog) buildType(t TypeData) (*domain.ItemType, error) {
	itemType := &domain.ItemType{
		ID:         t.ID,
		GroupID:    t.GroupID,
		CategoryID: t.CategoryID,
		Attrs:      make(map[domain.AttrID]float64, len(t.Attrs)),
	}
	for attr, v := range t.Attrs {
		itemType.Attrs[attr] = v
	}
	for _, id := range t.Effects {
		effect, ok := c.effects[id]
		if !ok {
			return nil, fmt.Errorf("type %d: %w", t.ID, domain.NotFoundError{Entity: "effect", ID: int64(id)})
		}
		itemType.Effects = append(itemType.Effects, effect)
	}
	itemType.RequiredSkills = requiredSkills(itemType.Attrs)
	return itemType, nil
}

// requiredSkills reads the skill requirement attribute pairs.
func requiredSkills(attrs map[domain.AttrID]float64) map[domain.TypeID]int {
	var out map[domain.TypeID]int
	for _, pair := range domain.RequiredSkillAttrs {
		skill, ok := attrs[pair[0]]
		if !ok || skill <= 0 {
			continue
		}
		if out == nil {
			out = make(map[domain.TypeID]int)
		}
		out[domain.TypeID(skill)] = int(attrs[pair[1]])
	}
	return out
}

// Type implements domain.Catalog.
func (c *Catalog) Type(id domain.TypeID) (*domain.ItemType, error) {
	if t, ok := c.types[id]; ok {
		return t, nil
	}
	return nil, domain.NotFoundError{Entity: "type", ID: int64(id)}
}

// Attribute implements domain.Catalog.
func (c *Catalog) Attribute(id domain.AttrID) (*domain.Attribute, error) {
	if a, ok := c.attrs[id]; ok {
		return a, nil
	}
	return nil, domain.NotFoundError{Entity: "attribute", ID: int64(id)}
}

// Effect implements domain.Catalog.
func (c *Catalog) Effect(id domain.EffectID) (*domain.Effect, error) {
	if e, ok := c.effects[id]; ok {
		return e, nil
	}
	return nil, domain.NotFoundError{Entity: "effect", ID: int64(id)}
}

// TypeIDs returns the ids of all types in ascending order.
func (c *Catalog) TypeIDs() []domain.TypeID {
	ids := make([]domain.TypeID, 0, len(c.types))
	for id := range c.types {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
