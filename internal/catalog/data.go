package catalog

import (
	"encoding/json"
	"fmt"
	"io"

	"fitcore/pkg/domain"
)

// Data is the serialized catalog snapshot shared by every source.
type Data struct {
	Types      []TypeData      `json:"types"`
	Attributes []AttributeData `json:"attributes"`
	Effects    []EffectData    `json:"effects"`
}

// TypeData describes one item type.
type TypeData struct {
	ID         domain.TypeID             `json:"id"`
	GroupID    domain.GroupID            `json:"group_id"`
	CategoryID domain.CategoryID         `json:"category_id"`
	Attrs      map[domain.AttrID]float64 `json:"attributes,omitempty"`
	Effects    []domain.EffectID         `json:"effects,omitempty"`
}

// AttributeData describes one attribute.
type AttributeData struct {
	ID         domain.AttrID `json:"id"`
	MaxAttrID  domain.AttrID `json:"max_attr_id,omitempty"`
	Default    *float64      `json:"default,omitempty"`
	HighIsGood bool          `json:"high_is_good"`
	Stackable  bool          `json:"stackable"`
}

// EffectData describes one effect and its modifiers.
type EffectData struct {
	ID        domain.EffectID       `json:"id"`
	Category  domain.EffectCategory `json:"category"`
	Modifiers []ModifierData        `json:"modifiers,omitempty"`
}

// ModifierData is the serialized form of a modifier. A modifier either
// names an operator and source attribute or a registered procedure.
type ModifierData struct {
	Filter     string         `json:"filter"`
	Domain     string         `json:"domain"`
	Group      domain.GroupID `json:"group,omitempty"`
	Skill      domain.TypeID  `json:"skill,omitempty"`
	TargetAttr domain.AttrID  `json:"target_attr"`
	Operator   string         `json:"operator,omitempty"`
	SourceAttr domain.AttrID  `json:"source_attr,omitempty"`
	Procedure  string         `json:"procedure,omitempty"`
}

// Decode reads a JSON catalog snapshot.
func Decode(r io.Reader) (Data, error) {
	var data Data
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&data); err != nil {
		return Data{}, fmt.Errorf("decode catalog: %w", err)
	}
	return data, nil
}

// Encode writes data as indented JSON.
func Encode(w io.Writer, data Data) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
