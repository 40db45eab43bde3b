package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Item is an instance of a catalog type placed into a fit.
//
// Setters on Item change raw state only. Once an item is attached to a fit,
// changes must go through the fit so that indices and cached values follow.
type Item struct {
	id         uuid.UUID
	typeID     TypeID
	kind       ItemKind
	state      State
	itemType   *ItemType
	other      *Item
	skillLevel int
	modes      map[EffectID]EffectMode
	overrides  map[AttrID]float64
	owner      any
}

// NewItem creates an offline item of the given type and kind.
func NewItem(typeID TypeID, kind ItemKind) *Item {
	return &Item{
		id:     uuid.New(),
		typeID: typeID,
		kind:   kind,
	}
}

// NewSkill creates a skill item trained to level.
func NewSkill(typeID TypeID, level int) *Item {
	it := NewItem(typeID, KindSkill)
	it.skillLevel = level
	return it
}

func (it *Item) String() string {
	return fmt.Sprintf("%s(%d)#%s", it.kind, it.typeID, it.id.String()[:8])
}

// ID returns the unique instance id.
func (it *Item) ID() uuid.UUID { return it.id }

// TypeID returns the catalog type id.
func (it *Item) TypeID() TypeID { return it.typeID }

// Kind returns the item kind.
func (it *Item) Kind() ItemKind { return it.kind }

// State returns the current state.
func (it *Item) State() State { return it.state }

// Type returns the bound catalog type, nil when the catalog had none.
func (it *Item) Type() *ItemType { return it.itemType }

// Other returns the linked companion item (module to charge and back).
func (it *Item) Other() *Item { return it.other }

// SkillLevel returns the trained level of a skill item.
func (it *Item) SkillLevel() int { return it.skillLevel }

// ModifierDomain returns the domain the item is placed in for filtered
// modification.
func (it *Item) ModifierDomain() Domain { return it.kind.ModifierDomain() }

// OwnerModifiable reports whether owner skill requirement modifiers reach
// the item.
func (it *Item) OwnerModifiable() bool { return it.kind.OwnerModifiable() }

// GroupID returns the type group, zero when the type is unknown.
func (it *Item) GroupID() GroupID {
	if it.itemType == nil {
		return 0
	}
	return it.itemType.GroupID
}

// CategoryID returns the type category, zero when the type is unknown.
func (it *Item) CategoryID() CategoryID {
	if it.itemType == nil {
		return 0
	}
	return it.itemType.CategoryID
}

// RequiredSkills returns the skill requirements of the type.
func (it *Item) RequiredSkills() map[TypeID]int {
	if it.itemType == nil {
		return nil
	}
	return it.itemType.RequiredSkills
}

// EffectMode returns the mode of an effect on this item.
func (it *Item) EffectMode(id EffectID) EffectMode {
	return it.modes[id]
}

// Override returns an overridden attribute value.
func (it *Item) Override(attr AttrID) (float64, bool) {
	v, ok := it.overrides[attr]
	return v, ok
}

// EffectRunning reports whether e runs on the item in its current state.
func (it *Item) EffectRunning(e *Effect) bool {
	return it.effectRunningAt(e, it.state)
}

func (it *Item) effectRunningAt(e *Effect, s State) bool {
	switch it.modes[e.ID] {
	case EffectModeForceRun:
		return true
	case EffectModeForceStop:
		return false
	}
	required, ok := e.Category.RequiredState()
	return ok && s >= required
}

// RunningEffects returns the effects of the type that run in the current
// state and modes, in type order.
func (it *Item) RunningEffects() []*Effect {
	if it.itemType == nil {
		return nil
	}
	var out []*Effect
	for _, e := range it.itemType.Effects {
		if it.EffectRunning(e) {
			out = append(out, e)
		}
	}
	return out
}

// MaxState returns the highest state the item can be put into.
func (it *Item) MaxState() State {
	if it.kind == KindShip || it.kind == KindCharacter || it.kind == KindSkill {
		return StateOffline
	}
	return it.itemType.MaxState()
}

// Bind attaches the catalog type. A nil type leaves the item without
// attributes and effects.
func (it *Item) Bind(t *ItemType) { it.itemType = t }

// SetState sets the raw state.
func (it *Item) SetState(s State) error {
	if !s.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidState, s)
	}
	it.state = s
	return nil
}

// SetEffectMode sets the raw mode of an effect.
func (it *Item) SetEffectMode(id EffectID, mode EffectMode) {
	if mode == EffectModeStateCompliance {
		delete(it.modes, id)
		return
	}
	if it.modes == nil {
		it.modes = make(map[EffectID]EffectMode)
	}
	it.modes[id] = mode
}

// SetOverride pins an attribute to a value.
func (it *Item) SetOverride(attr AttrID, value float64) {
	if it.overrides == nil {
		it.overrides = make(map[AttrID]float64)
	}
	it.overrides[attr] = value
}

// ClearOverride removes a pinned attribute value. It reports whether one
// was set.
func (it *Item) ClearOverride(attr AttrID) bool {
	if _, ok := it.overrides[attr]; !ok {
		return false
	}
	delete(it.overrides, attr)
	return true
}

// SetSkillLevel sets the raw level of a skill item.
func (it *Item) SetSkillLevel(level int) {
	it.skillLevel = level
}

// Link establishes the symmetric companion relation between it and other.
// Each side holds at most one link.
func (it *Item) Link(other *Item) error {
	if other == nil || other == it {
		return fmt.Errorf("cannot link %s to itself or nil", it)
	}
	if it.other != nil || other.other != nil {
		return fmt.Errorf("%s or %s is already linked", it, other)
	}
	it.other = other
	other.other = it
	return nil
}

// Unlink tears down the companion relation on both sides and returns the
// former companion.
func (it *Item) Unlink() *Item {
	other := it.other
	if other != nil {
		other.other = nil
	}
	it.other = nil
	return other
}

// Attach marks the item as owned by a container.
func (it *Item) Attach(owner any) error {
	if it.owner != nil {
		return fmt.Errorf("%w: %s", ErrItemAlreadyAdded, it)
	}
	it.owner = owner
	return nil
}

// Detach clears the owner mark.
func (it *Item) Detach() { it.owner = nil }

// Owner returns the container the item is attached to.
func (it *Item) Owner() any { return it.owner }
