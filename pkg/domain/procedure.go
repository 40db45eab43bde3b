package domain

// Role names an item relative to the carrier of a procedural modifier.
type Role uint8

// Roles.
const (
	RoleCarrier Role = iota + 1
	RoleShip
	RoleCharacter
	RoleOther
)

func (r Role) String() string {
	switch r {
	case RoleCarrier:
		return "carrier"
	case RoleShip:
		return "ship"
	case RoleCharacter:
		return "character"
	case RoleOther:
		return "other"
	default:
		return "unknown"
	}
}

// ParseRole maps a role name to its value.
func ParseRole(name string) (Role, bool) {
	switch name {
	case "carrier", "self":
		return RoleCarrier, true
	case "ship":
		return RoleShip, true
	case "character":
		return RoleCharacter, true
	case "other":
		return RoleOther, true
	default:
		return 0, false
	}
}

// Trigger declares an attribute read by a procedure. A change of the
// attribute on the item in Role re-evaluates the procedure.
type Trigger struct {
	Role   Role
	AttrID AttrID
}

// FitView exposes resolved values of items relative to a procedure's
// carrier.
type FitView interface {
	Value(role Role, attr AttrID) (float64, error)
}

// Procedure computes a modification that cannot be expressed as a plain
// attribute read. Every value it reads through the view must be listed in
// Triggers.
type Procedure interface {
	Name() string
	Triggers() []Trigger
	Evaluate(view FitView) (Operator, float64, error)
}
