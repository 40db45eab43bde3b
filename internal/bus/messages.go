// Package bus delivers fit change notifications synchronously to subscribers.
package bus

import "fitcore/pkg/domain"

// Kind identifies a message type.
type Kind uint8

// Message kinds.
const (
	KindItemAdded Kind = iota + 1
	KindItemRemoved
	KindStatesActivated
	KindStatesDeactivated
	KindEffectsStarted
	KindEffectsStopped
	KindAttrValueChanged
	KindAttrValueChangedOverride
)

func (k Kind) String() string {
	switch k {
	case KindItemAdded:
		return "item_added"
	case KindItemRemoved:
		return "item_removed"
	case KindStatesActivated:
		return "states_activated"
	case KindStatesDeactivated:
		return "states_deactivated"
	case KindEffectsStarted:
		return "effects_started"
	case KindEffectsStopped:
		return "effects_stopped"
	case KindAttrValueChanged:
		return "attr_value_changed"
	case KindAttrValueChangedOverride:
		return "attr_value_changed_override"
	default:
		return "unknown"
	}
}

// Message is a structural change notification.
type Message interface {
	Kind() Kind
}

// ItemAdded is published once an item became part of the fit.
type ItemAdded struct {
	Item *domain.Item
}

// ItemRemoved is published while an item leaves the fit. The item is still
// reachable through fit roles during delivery.
type ItemRemoved struct {
	Item *domain.Item
}

// StatesActivated lists states an item entered.
type StatesActivated struct {
	Item   *domain.Item
	States []domain.State
}

// StatesDeactivated lists states an item left.
type StatesDeactivated struct {
	Item   *domain.Item
	States []domain.State
}

// EffectsStarted lists effects that began running on an item.
type EffectsStarted struct {
	Item    *domain.Item
	Effects []*domain.Effect
}

// EffectsStopped lists effects that stopped running on an item.
type EffectsStopped struct {
	Item    *domain.Item
	Effects []*domain.Effect
}

// AttrValueChanged reports that a resolved value may have changed.
type AttrValueChanged struct {
	Item   *domain.Item
	AttrID domain.AttrID
}

// AttrValueChangedOverride reports that an attribute override was set or
// cleared.
type AttrValueChangedOverride struct {
	Item   *domain.Item
	AttrID domain.AttrID
}

func (ItemAdded) Kind() Kind                { return KindItemAdded }
func (ItemRemoved) Kind() Kind              { return KindItemRemoved }
func (StatesActivated) Kind() Kind          { return KindStatesActivated }
func (StatesDeactivated) Kind() Kind        { return KindStatesDeactivated }
func (EffectsStarted) Kind() Kind           { return KindEffectsStarted }
func (EffectsStopped) Kind() Kind           { return KindEffectsStopped }
func (AttrValueChanged) Kind() Kind         { return KindAttrValueChanged }
func (AttrValueChangedOverride) Kind() Kind { return KindAttrValueChangedOverride }
