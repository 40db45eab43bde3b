package domain

import "fmt"

// State is the ordered activation level of an item.
type State uint8

// Item states, lowest first.
const (
	StateOffline State = iota
	StateOnline
	StateActive
	StateOverload
)

var stateNames = [...]string{"offline", "online", "active", "overload"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// ParseState returns the state named s.
func ParseState(s string) (State, bool) {
	for i, name := range stateNames {
		if name == s {
			return State(i), true
		}
	}
	return 0, false
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	return s <= StateOverload
}

// StatesBetween returns the states in the half-open range (from, to], in
// ascending order. It is empty when to <= from.
func StatesBetween(from, to State) []State {
	if to <= from {
		return nil
	}
	out := make([]State, 0, int(to-from))
	for s := from + 1; s <= to; s++ {
		out = append(out, s)
	}
	return out
}

// EffectCategory classifies when an effect runs.
type EffectCategory uint8

// Effect categories.
const (
	EffectPassive  EffectCategory = 0
	EffectActive   EffectCategory = 1
	EffectTarget   EffectCategory = 2
	EffectArea     EffectCategory = 3
	EffectOnline   EffectCategory = 4
	EffectOverload EffectCategory = 5
	EffectDungeon  EffectCategory = 6
	EffectSystem   EffectCategory = 7
)

// RequiredState returns the minimum item state at which effects of the
// category run. The second result is false for categories that never run
// on a fit.
func (c EffectCategory) RequiredState() (State, bool) {
	switch c {
	case EffectPassive, EffectSystem:
		return StateOffline, true
	case EffectOnline:
		return StateOnline, true
	case EffectActive, EffectTarget:
		return StateActive, true
	case EffectOverload:
		return StateOverload, true
	default:
		return 0, false
	}
}

// EffectMode controls whether an effect follows item state.
type EffectMode uint8

// Effect modes.
const (
	EffectModeStateCompliance EffectMode = iota
	EffectModeForceRun
	EffectModeForceStop
)

func (m EffectMode) String() string {
	switch m {
	case EffectModeStateCompliance:
		return "state_compliance"
	case EffectModeForceRun:
		return "force_run"
	case EffectModeForceStop:
		return "force_stop"
	default:
		return fmt.Sprintf("effect_mode(%d)", uint8(m))
	}
}

// ItemKind tells where an item sits in a fit.
type ItemKind uint8

// Item kinds.
const (
	KindShip ItemKind = iota + 1
	KindCharacter
	KindSkill
	KindImplant
	KindBooster
	KindModuleHigh
	KindModuleMid
	KindModuleLow
	KindRig
	KindSubsystem
	KindCharge
	KindDrone
	KindStance
	KindEffectBeacon
)

var kindNames = map[ItemKind]string{
	KindShip:         "ship",
	KindCharacter:    "character",
	KindSkill:        "skill",
	KindImplant:      "implant",
	KindBooster:      "booster",
	KindModuleHigh:   "module_high",
	KindModuleMid:    "module_mid",
	KindModuleLow:    "module_low",
	KindRig:          "rig",
	KindSubsystem:    "subsystem",
	KindCharge:       "charge",
	KindDrone:        "drone",
	KindStance:       "stance",
	KindEffectBeacon: "effect_beacon",
}

func (k ItemKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseItemKind returns the kind named s.
func ParseItemKind(s string) (ItemKind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return 0, false
}

// IsModule reports whether the kind occupies a module slot.
func (k ItemKind) IsModule() bool {
	return k == KindModuleHigh || k == KindModuleMid || k == KindModuleLow
}

// ModifierDomain returns the domain items of this kind are placed in for
// filtered modification, or DomainNone.
func (k ItemKind) ModifierDomain() Domain {
	switch k {
	case KindModuleHigh, KindModuleMid, KindModuleLow, KindRig, KindSubsystem, KindCharge, KindStance:
		return DomainShip
	case KindSkill, KindImplant, KindBooster:
		return DomainCharacter
	default:
		return DomainNone
	}
}

// OwnerModifiable reports whether owner skill requirement modifiers reach
// items of this kind.
func (k ItemKind) OwnerModifiable() bool {
	return k == KindDrone || k == KindCharge
}

// Domain is the logical slot a modifier targets or an item sits in.
type Domain uint8

// Domains.
const (
	DomainNone Domain = iota
	DomainSelf
	DomainCharacter
	DomainShip
	DomainOther
)

func (d Domain) String() string {
	switch d {
	case DomainNone:
		return "none"
	case DomainSelf:
		return "self"
	case DomainCharacter:
		return "character"
	case DomainShip:
		return "ship"
	case DomainOther:
		return "other"
	default:
		return fmt.Sprintf("domain(%d)", uint8(d))
	}
}
