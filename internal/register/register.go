// Package register indexes which affectors currently reach which items.
package register

import (
	"errors"

	"fitcore/internal/bus"
	"fitcore/pkg/domain"
)

// Affector pairs a source item with one of its active modifiers.
type Affector struct {
	Item     *domain.Item
	Modifier *domain.Modifier
}

// Roles exposes the fit's role holders.
type Roles interface {
	Ship() *domain.Item
	Character() *domain.Item
}

// Logger receives per-affector warnings.
type Logger interface {
	Warn(msg string, args ...any)
}

type domainGroup struct {
	dom   domain.Domain
	group domain.GroupID
}

type domainSkill struct {
	dom   domain.Domain
	skill domain.TypeID
}

type triggerKey struct {
	role domain.Role
	attr domain.AttrID
}

type slot uint8

const (
	slotDirectActive slot = iota + 1
	slotDirectAwaiting
	slotDomain
	slotDomainGroup
	slotDomainSkill
	slotOwnerSkill
)

// placement records where an affector was stored so removal is the exact
// inverse of registration.
type placement struct {
	slot  slot
	item  *domain.Item
	dom   domain.Domain
	group domain.GroupID
	skill domain.TypeID
}

// Register is the affector/affectee index of one fit.
type Register struct {
	roles  Roles
	logger Logger

	affectees           map[*domain.Item]struct{}
	affecteeDomain      *KeyedSet[domain.Domain, *domain.Item]
	affecteeDomainGroup *KeyedSet[domainGroup, *domain.Item]
	affecteeDomainSkill *KeyedSet[domainSkill, *domain.Item]
	affecteeOwnerSkill  *KeyedSet[domain.TypeID, *domain.Item]

	// keyed by target item
	directActive *KeyedSet[*domain.Item, Affector]
	// keyed by source item
	directAwaiting      *KeyedSet[*domain.Item, Affector]
	affectorDomain      *KeyedSet[domain.Domain, Affector]
	affectorDomainGroup *KeyedSet[domainGroup, Affector]
	affectorDomainSkill *KeyedSet[domainSkill, Affector]
	affectorOwnerSkill  *KeyedSet[domain.TypeID, Affector]

	placements map[Affector]placement
	triggers   *KeyedSet[triggerKey, Affector]
}

// New constructs an empty register bound to the fit roles.
func New(roles Roles, logger Logger) *Register {
	return &Register{
		roles:               roles,
		logger:              logger,
		affectees:           make(map[*domain.Item]struct{}),
		affecteeDomain:      NewKeyedSet[domain.Domain, *domain.Item](),
		affecteeDomainGroup: NewKeyedSet[domainGroup, *domain.Item](),
		affecteeDomainSkill: NewKeyedSet[domainSkill, *domain.Item](),
		affecteeOwnerSkill:  NewKeyedSet[domain.TypeID, *domain.Item](),
		directActive:        NewKeyedSet[*domain.Item, Affector](),
		directAwaiting:      NewKeyedSet[*domain.Item, Affector](),
		affectorDomain:      NewKeyedSet[domain.Domain, Affector](),
		affectorDomainGroup: NewKeyedSet[domainGroup, Affector](),
		affectorDomainSkill: NewKeyedSet[domainSkill, Affector](),
		affectorOwnerSkill:  NewKeyedSet[domain.TypeID, Affector](),
		placements:          make(map[Affector]placement),
		triggers:            NewKeyedSet[triggerKey, Affector](),
	}
}

// Subscribe attaches the register to the bus. It must subscribe before any
// consumer that reads the index while handling the same messages.
func (r *Register) Subscribe(b *bus.Broker) {
	b.Subscribe(r, bus.KindItemAdded, bus.KindItemRemoved, bus.KindEffectsStarted, bus.KindEffectsStopped)
}

// Notify implements bus.Subscriber.
func (r *Register) Notify(msg bus.Message) {
	switch m := msg.(type) {
	case bus.ItemAdded:
		r.RegisterAffectee(m.Item)
	case bus.ItemRemoved:
		r.UnregisterAffectee(m.Item)
	case bus.EffectsStarted:
		for _, e := range m.Effects {
			for _, mod := range e.Modifiers {
				r.RegisterAffector(Affector{Item: m.Item, Modifier: mod})
			}
		}
	case bus.EffectsStopped:
		for _, e := range m.Effects {
			for _, mod := range e.Modifiers {
				r.UnregisterAffector(Affector{Item: m.Item, Modifier: mod})
			}
		}
	}
}

// RegisterAffectee makes item targetable and promotes awaiting direct
// affectors whose target role it fills.
func (r *Register) RegisterAffectee(item *domain.Item) {
	if _, ok := r.affectees[item]; ok {
		return
	}
	r.affectees[item] = struct{}{}
	r.indexAffectee(item, true)
	r.enableAwaiting(item)
}

// UnregisterAffectee is the inverse of RegisterAffectee. Direct affectors
// that reached item through a role go back to awaiting.
func (r *Register) UnregisterAffectee(item *domain.Item) {
	if _, ok := r.affectees[item]; !ok {
		return
	}
	r.indexAffectee(item, false)
	delete(r.affectees, item)
	r.disableActive(item)
}

func (r *Register) indexAffectee(item *domain.Item, add bool) {
	dom := item.ModifierDomain()
	skills := item.RequiredSkills()
	if dom != domain.DomainNone {
		toggle(r.affecteeDomain, dom, item, add)
		if group := item.GroupID(); group != 0 {
			toggle(r.affecteeDomainGroup, domainGroup{dom: dom, group: group}, item, add)
		}
		for skill := range skills {
			toggle(r.affecteeDomainSkill, domainSkill{dom: dom, skill: skill}, item, add)
		}
	}
	if item.OwnerModifiable() {
		for skill := range skills {
			toggle(r.affecteeOwnerSkill, skill, item, add)
		}
	}
}

func toggle[K comparable, V comparable](s *KeyedSet[K, V], k K, v V, add bool) {
	if add {
		s.Add(k, v)
		return
	}
	s.Remove(k, v)
}

func (r *Register) enableAwaiting(target *domain.Item) {
	var role domain.Domain
	switch target {
	case r.roles.Ship():
		role = domain.DomainShip
	case r.roles.Character():
		role = domain.DomainCharacter
	}
	var promote []Affector
	if role != domain.DomainNone {
		for _, source := range r.directAwaiting.Keys() {
			for a := range r.directAwaiting.Values(source) {
				if a.Modifier.Domain == role {
					promote = append(promote, a)
				}
			}
		}
	}
	if source := target.Other(); source != nil {
		for a := range r.directAwaiting.Values(source) {
			if a.Modifier.Domain == domain.DomainOther {
				promote = append(promote, a)
			}
		}
	}
	for _, a := range promote {
		r.directAwaiting.Remove(a.Item, a)
		r.directActive.Add(target, a)
		r.placements[a] = placement{slot: slotDirectActive, item: target}
	}
}

func (r *Register) disableActive(target *domain.Item) {
	for _, a := range r.directActive.Slice(target) {
		switch a.Modifier.Domain {
		case domain.DomainShip, domain.DomainCharacter, domain.DomainOther:
			r.directActive.Remove(target, a)
			r.directAwaiting.Add(a.Item, a)
			r.placements[a] = placement{slot: slotDirectAwaiting, item: a.Item}
		}
	}
}

// RegisterAffector indexes a. Malformed affectors are logged and left out.
func (r *Register) RegisterAffector(a Affector) {
	if _, ok := r.placements[a]; ok {
		return
	}
	p, err := r.place(a)
	if err != nil {
		r.logMalformed(a, err)
		return
	}
	r.store(a, p, true)
	r.placements[a] = p
	if a.Modifier.Source == domain.SourceProcedure {
		for _, t := range a.Modifier.Procedure.Triggers() {
			r.triggers.Add(triggerKey{role: t.Role, attr: t.AttrID}, a)
		}
	}
}

// UnregisterAffector removes a from wherever it was stored.
func (r *Register) UnregisterAffector(a Affector) {
	p, ok := r.placements[a]
	if !ok {
		return
	}
	r.store(a, p, false)
	delete(r.placements, a)
	if a.Modifier.Source == domain.SourceProcedure {
		for _, t := range a.Modifier.Procedure.Triggers() {
			r.triggers.Remove(triggerKey{role: t.Role, attr: t.AttrID}, a)
		}
	}
}

func (r *Register) store(a Affector, p placement, add bool) {
	switch p.slot {
	case slotDirectActive:
		toggle(r.directActive, p.item, a, add)
	case slotDirectAwaiting:
		toggle(r.directAwaiting, p.item, a, add)
	case slotDomain:
		toggle(r.affectorDomain, p.dom, a, add)
	case slotDomainGroup:
		toggle(r.affectorDomainGroup, domainGroup{dom: p.dom, group: p.group}, a, add)
	case slotDomainSkill:
		toggle(r.affectorDomainSkill, domainSkill{dom: p.dom, skill: p.skill}, a, add)
	case slotOwnerSkill:
		toggle(r.affectorOwnerSkill, p.skill, a, add)
	}
}

func (r *Register) place(a Affector) (placement, error) {
	mod := a.Modifier
	switch mod.Filter {
	case domain.FilterItem:
		return r.placeDirect(a)
	case domain.FilterDomain:
		dom, err := r.contextize(a)
		if err != nil {
			return placement{}, err
		}
		return placement{slot: slotDomain, dom: dom}, nil
	case domain.FilterDomainGroup:
		dom, err := r.contextize(a)
		if err != nil {
			return placement{}, err
		}
		return placement{slot: slotDomainGroup, dom: dom, group: mod.GroupID}, nil
	case domain.FilterDomainSkillrq:
		dom, err := r.contextize(a)
		if err != nil {
			return placement{}, err
		}
		return placement{slot: slotDomainSkill, dom: dom, skill: resolveSkill(a)}, nil
	case domain.FilterOwnerSkillrq:
		if mod.Domain != domain.DomainCharacter {
			return placement{}, &domain.FilteredDomainError{Domain: mod.Domain}
		}
		return placement{slot: slotOwnerSkill, skill: resolveSkill(a)}, nil
	default:
		return placement{}, &domain.ModifierTypeError{Filter: mod.Filter}
	}
}

func (r *Register) placeDirect(a Affector) (placement, error) {
	var target *domain.Item
	switch a.Modifier.Domain {
	case domain.DomainSelf:
		return placement{slot: slotDirectActive, item: a.Item}, nil
	case domain.DomainCharacter:
		target = r.roles.Character()
	case domain.DomainShip:
		target = r.roles.Ship()
	case domain.DomainOther:
		target = a.Item.Other()
	default:
		return placement{}, &domain.DirectDomainError{Domain: a.Modifier.Domain}
	}
	if target != nil && r.isAffectee(target) {
		return placement{slot: slotDirectActive, item: target}, nil
	}
	return placement{slot: slotDirectAwaiting, item: a.Item}, nil
}

// contextize turns the modifier domain of a filtered affector into the
// concrete domain it reaches.
func (r *Register) contextize(a Affector) (domain.Domain, error) {
	switch a.Modifier.Domain {
	case domain.DomainSelf:
		switch a.Item {
		case r.roles.Ship():
			return domain.DomainShip, nil
		case r.roles.Character():
			return domain.DomainCharacter, nil
		}
		return domain.DomainNone, domain.FilteredSelfReferenceError{}
	case domain.DomainShip, domain.DomainCharacter:
		return a.Modifier.Domain, nil
	default:
		return domain.DomainNone, &domain.FilteredDomainError{Domain: a.Modifier.Domain}
	}
}

func resolveSkill(a Affector) domain.TypeID {
	if a.Modifier.SkillID == domain.SelfTypeID {
		return a.Item.TypeID()
	}
	return a.Modifier.SkillID
}

func (r *Register) logMalformed(a Affector, err error) {
	field := "domain"
	var typeErr *domain.ModifierTypeError
	if errors.As(err, &typeErr) {
		field = "filter"
	}
	r.logger.Warn("malformed modifier", "type_id", a.Item.TypeID(), "field", field, "error", err)
}

func (r *Register) isAffectee(item *domain.Item) bool {
	_, ok := r.affectees[item]
	return ok
}

// Affectors returns every affector currently reaching target.
func (r *Register) Affectors(target *domain.Item) []Affector {
	out := r.directActive.Slice(target)
	dom := target.ModifierDomain()
	skills := target.RequiredSkills()
	if dom != domain.DomainNone {
		out = append(out, r.affectorDomain.Slice(dom)...)
		if group := target.GroupID(); group != 0 {
			out = append(out, r.affectorDomainGroup.Slice(domainGroup{dom: dom, group: group})...)
		}
		for skill := range skills {
			out = append(out, r.affectorDomainSkill.Slice(domainSkill{dom: dom, skill: skill})...)
		}
	}
	if target.OwnerModifiable() {
		for skill := range skills {
			out = append(out, r.affectorOwnerSkill.Slice(skill)...)
		}
	}
	return out
}

// Affectees returns every item a currently reaches. Awaiting and unindexed
// affectors reach nothing.
func (r *Register) Affectees(a Affector) []*domain.Item {
	p, ok := r.placements[a]
	if !ok {
		return nil
	}
	switch p.slot {
	case slotDirectActive:
		return []*domain.Item{p.item}
	case slotDomain:
		return r.affecteeDomain.Slice(p.dom)
	case slotDomainGroup:
		return r.affecteeDomainGroup.Slice(domainGroup{dom: p.dom, group: p.group})
	case slotDomainSkill:
		return r.affecteeDomainSkill.Slice(domainSkill{dom: p.dom, skill: p.skill})
	case slotOwnerSkill:
		return r.affecteeOwnerSkill.Slice(p.skill)
	default:
		return nil
	}
}

// Triggered returns the procedural affectors that declared a trigger on
// attr of item in any role item currently holds for them.
func (r *Register) Triggered(item *domain.Item, attr domain.AttrID) []Affector {
	var out []Affector
	for a := range r.triggers.Values(triggerKey{role: domain.RoleCarrier, attr: attr}) {
		if a.Item == item {
			out = append(out, a)
		}
	}
	if item == r.roles.Ship() {
		out = append(out, r.triggers.Slice(triggerKey{role: domain.RoleShip, attr: attr})...)
	}
	if item == r.roles.Character() {
		out = append(out, r.triggers.Slice(triggerKey{role: domain.RoleCharacter, attr: attr})...)
	}
	if other := item.Other(); other != nil {
		for a := range r.triggers.Values(triggerKey{role: domain.RoleOther, attr: attr}) {
			if a.Item == other {
				out = append(out, a)
			}
		}
	}
	return out
}

// TriggeredByItem returns the procedural affectors with a trigger on any
// attribute of item.
func (r *Register) TriggeredByItem(item *domain.Item) []Affector {
	seen := make(map[Affector]struct{})
	var out []Affector
	attrs := make(map[domain.AttrID]struct{})
	for _, k := range r.triggers.Keys() {
		attrs[k.attr] = struct{}{}
	}
	for attr := range attrs {
		for _, a := range r.Triggered(item, attr) {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	return out
}

// Awaiting returns the direct affectors of source waiting for a target.
func (r *Register) Awaiting(source *domain.Item) []Affector {
	return r.directAwaiting.Slice(source)
}

// Indexed reports whether a is stored anywhere in the register.
func (r *Register) Indexed(a Affector) bool {
	_, ok := r.placements[a]
	return ok
}

// Empty reports whether no item or affector is referenced.
func (r *Register) Empty() bool {
	return len(r.affectees) == 0 &&
		len(r.placements) == 0 &&
		r.affecteeDomain.Empty() &&
		r.affecteeDomainGroup.Empty() &&
		r.affecteeDomainSkill.Empty() &&
		r.affecteeOwnerSkill.Empty() &&
		r.directActive.Empty() &&
		r.directAwaiting.Empty() &&
		r.affectorDomain.Empty() &&
		r.affectorDomainGroup.Empty() &&
		r.affectorDomainSkill.Empty() &&
		r.affectorOwnerSkill.Empty() &&
		r.triggers.Empty()
}
