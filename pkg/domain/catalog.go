package domain

// ItemType is the static description of an item type.
type ItemType struct {
	ID             TypeID
	GroupID        GroupID
	CategoryID     CategoryID
	Attrs          map[AttrID]float64
	Effects        []*Effect
	RequiredSkills map[TypeID]int
}

// BaseValue returns the unmodified value of attr on the type.
func (t *ItemType) BaseValue(attr AttrID) (float64, bool) {
	if t == nil {
		return 0, false
	}
	v, ok := t.Attrs[attr]
	return v, ok
}

// MaxState returns the highest state any effect of the type can run in.
func (t *ItemType) MaxState() State {
	max := StateOffline
	if t == nil {
		return max
	}
	for _, e := range t.Effects {
		if s, ok := e.Category.RequiredState(); ok && s > max {
			max = s
		}
	}
	return max
}

// Attribute is the static description of an attribute.
type Attribute struct {
	ID           AttrID
	MaxAttrID    AttrID
	DefaultValue *float64
	HighIsGood   bool
	Stackable    bool
}

// Effect groups the modifiers an item applies while the effect runs.
type Effect struct {
	ID        EffectID
	Category  EffectCategory
	Modifiers []*Modifier
}

// Catalog is the read-only static data source. Lookups of absent ids fail
// with an error matching ErrNotFound.
type Catalog interface {
	Type(id TypeID) (*ItemType, error)
	Attribute(id AttrID) (*Attribute, error)
	Effect(id EffectID) (*Effect, error)
}
