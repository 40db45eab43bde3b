package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fit lifecycle and lookups.
var (
	ErrNotFound                = errors.New("not found")
	ErrMissingAttribute        = errors.New("missing attribute")
	ErrModificationCalculation = errors.New("modification calculation failed")
	ErrInvalidModifier         = errors.New("invalid modifier")
	ErrItemAlreadyAdded        = errors.New("item already added to a fit")
	ErrItemNotInFit            = errors.New("item is not in the fit")
	ErrInvalidState            = errors.New("invalid item state")
	ErrInvalidKind             = errors.New("invalid item kind for operation")
	ErrNotChargeable           = errors.New("item cannot hold a charge")
	ErrUnknownProcedure        = errors.New("unknown procedure")
)

// NotFoundError reports a catalog id that does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// Is matches ErrNotFound.
func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// MissingAttributeError is returned by value lookups when neither a base
// value nor any surviving modification can produce one.
type MissingAttributeError struct {
	TypeID TypeID
	AttrID AttrID
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("attribute %d is missing on item type %d", e.AttrID, e.TypeID)
}

// Is matches ErrMissingAttribute.
func (e *MissingAttributeError) Is(target error) bool {
	return target == ErrMissingAttribute
}

// ModificationCalculationError reports a single modification that could not
// be evaluated.
type ModificationCalculationError struct {
	Reason string
	Err    error
}

func (e *ModificationCalculationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("modification calculation failed: %s: %v", e.Reason, e.Err)
	}
	return "modification calculation failed: " + e.Reason
}

func (e *ModificationCalculationError) Unwrap() error { return e.Err }

// Is matches ErrModificationCalculation.
func (e *ModificationCalculationError) Is(target error) bool {
	return target == ErrModificationCalculation
}

// DirectDomainError reports a direct modifier with an unsupported domain.
type DirectDomainError struct {
	Domain Domain
}

func (e *DirectDomainError) Error() string {
	return fmt.Sprintf("unsupported domain %s for direct modification", e.Domain)
}

// FilteredDomainError reports a filtered modifier with an unsupported domain.
type FilteredDomainError struct {
	Domain Domain
}

func (e *FilteredDomainError) Error() string {
	return fmt.Sprintf("unsupported domain %s for filtered modification", e.Domain)
}

// FilteredSelfReferenceError reports a filtered modifier referring to self
// from an item that is neither the ship nor the character.
type FilteredSelfReferenceError struct{}

func (FilteredSelfReferenceError) Error() string {
	return "filtered self reference from item that is neither ship nor character"
}

// ModifierTypeError reports a filter kind the index does not handle.
type ModifierTypeError struct {
	Filter FilterKind
}

func (e *ModifierTypeError) Error() string {
	return fmt.Sprintf("unknown affectee filter %s", e.Filter)
}

// InvalidModifierError rejects a modifier while its effect is attached to
// the catalog.
type InvalidModifierError struct {
	EffectID EffectID
	Field    string
	Reason   string
}

func (e *InvalidModifierError) Error() string {
	return fmt.Sprintf("effect %d: invalid modifier %s: %s", e.EffectID, e.Field, e.Reason)
}

// Is matches ErrInvalidModifier.
func (e *InvalidModifierError) Is(target error) bool {
	return target == ErrInvalidModifier
}
