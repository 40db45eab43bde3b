package domain

import "fmt"

// FilterKind selects which items a modifier reaches.
type FilterKind uint8

// Affectee filters.
const (
	FilterItem FilterKind = iota + 1
	FilterDomain
	FilterDomainGroup
	FilterDomainSkillrq
	FilterOwnerSkillrq
)

var filterNames = map[FilterKind]string{
	FilterItem:          "item",
	FilterDomain:        "domain",
	FilterDomainGroup:   "domain_group",
	FilterDomainSkillrq: "domain_skillrq",
	FilterOwnerSkillrq:  "owner_skillrq",
}

func (f FilterKind) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return fmt.Sprintf("filter(%d)", uint8(f))
}

// ParseFilterKind maps a filter name to its value.
func ParseFilterKind(name string) (FilterKind, error) {
	for f, n := range filterNames {
		if n == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown affectee filter %q", name)
}

// ParseDomain maps a modifier domain name to its value.
func ParseDomain(name string) (Domain, error) {
	switch name {
	case "self":
		return DomainSelf, nil
	case "character":
		return DomainCharacter, nil
	case "ship":
		return DomainShip, nil
	case "other":
		return DomainOther, nil
	default:
		return DomainNone, fmt.Errorf("unknown domain %q", name)
	}
}

// SourceKind tells how a modifier produces its value.
type SourceKind uint8

// Modifier value sources.
const (
	SourceAttribute SourceKind = iota + 1
	SourceProcedure
)

// Modifier is an immutable modification rule carried by an effect. Its
// identity is its address: the same rule on two items yields two distinct
// affectors.
type Modifier struct {
	Filter     FilterKind
	Domain     Domain
	GroupID    GroupID
	SkillID    TypeID
	TargetAttr AttrID
	Operator   Operator

	Source     SourceKind
	SourceAttr AttrID
	Procedure  Procedure
}

// NewAttributeModifier builds a modifier reading its value from the
// carrier's SourceAttr.
func NewAttributeModifier(filter FilterKind, dom Domain, target AttrID, op Operator, source AttrID) *Modifier {
	return &Modifier{
		Filter:     filter,
		Domain:     dom,
		TargetAttr: target,
		Operator:   op,
		Source:     SourceAttribute,
		SourceAttr: source,
	}
}

// NewProcedureModifier builds a modifier whose value and operator come from
// a procedure.
func NewProcedureModifier(filter FilterKind, dom Domain, target AttrID, proc Procedure) *Modifier {
	return &Modifier{
		Filter:     filter,
		Domain:     dom,
		TargetAttr: target,
		Source:     SourceProcedure,
		Procedure:  proc,
	}
}

// WithGroup returns a copy of m restricted to a target group.
func (m Modifier) WithGroup(group GroupID) *Modifier {
	m.GroupID = group
	return &m
}

// WithSkill returns a copy of m restricted to targets requiring a skill.
func (m Modifier) WithSkill(skill TypeID) *Modifier {
	m.SkillID = skill
	return &m
}

// Validate checks the modifier against the vocabulary. Failures are fatal
// for the effect carrying the modifier. Domain and filter combinations that
// are representable but unsupported surface later, per affector.
func (m *Modifier) Validate() error {
	if _, ok := filterNames[m.Filter]; !ok {
		return &InvalidModifierError{Field: "filter", Reason: m.Filter.String()}
	}
	switch m.Domain {
	case DomainSelf, DomainCharacter, DomainShip, DomainOther:
	default:
		return &InvalidModifierError{Field: "domain", Reason: m.Domain.String()}
	}
	switch m.Filter {
	case FilterDomainGroup:
		if m.GroupID == 0 {
			return &InvalidModifierError{Field: "group", Reason: "domain_group filter without group"}
		}
	case FilterDomainSkillrq, FilterOwnerSkillrq:
		if m.SkillID == 0 {
			return &InvalidModifierError{Field: "skill", Reason: m.Filter.String() + " filter without skill"}
		}
	}
	if m.TargetAttr == 0 {
		return &InvalidModifierError{Field: "target_attr", Reason: "missing"}
	}
	switch m.Source {
	case SourceAttribute:
		if !m.Operator.Valid() {
			return &InvalidModifierError{Field: "operator", Reason: m.Operator.String()}
		}
		if m.SourceAttr == 0 {
			return &InvalidModifierError{Field: "source_attr", Reason: "missing"}
		}
	case SourceProcedure:
		if m.Procedure == nil {
			return &InvalidModifierError{Field: "procedure", Reason: "missing"}
		}
	default:
		return &InvalidModifierError{Field: "source", Reason: fmt.Sprintf("kind %d", m.Source)}
	}
	return nil
}
