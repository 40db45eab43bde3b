package domain

import (
	"fmt"
	"sort"
)

// Operator is the way a modification folds into an attribute value.
type Operator uint8

// Operators.
const (
	OpPreAssign Operator = iota + 1
	OpPrePercent
	OpPreMul
	OpPreDiv
	OpModAdd
	OpModSub
	OpPostPercent
	OpPostMul
	OpPostDiv
	OpPostAssign
)

var operatorNames = map[Operator]string{
	OpPreAssign:   "pre_assign",
	OpPrePercent:  "pre_percent",
	OpPreMul:      "pre_mul",
	OpPreDiv:      "pre_div",
	OpModAdd:      "mod_add",
	OpModSub:      "mod_sub",
	OpPostPercent: "post_percent",
	OpPostMul:     "post_mul",
	OpPostDiv:     "post_div",
	OpPostAssign:  "post_assign",
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("operator(%d)", uint8(o))
}

// Valid reports whether o belongs to the operator vocabulary.
func (o Operator) Valid() bool {
	_, ok := operatorNames[o]
	return ok
}

// ParseOperator maps an operator name to its value.
func ParseOperator(name string) (Operator, error) {
	for op, n := range operatorNames {
		if n == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown operator %q", name)
}

// OperatorNames lists the vocabulary in precedence order.
func OperatorNames() []string {
	ops := make([]Operator, 0, len(operatorNames))
	for op := range operatorNames {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.String()
	}
	return out
}

// OpClass is a precedence class. Classes are applied in ascending order.
type OpClass uint8

// Precedence classes.
const (
	ClassPreAssign OpClass = iota
	ClassPrePercent
	ClassPreMul
	ClassAdd
	ClassPostPercent
	ClassPostMul
	ClassPostAssign
	classCount
)

// OpClasses lists precedence classes in application order.
func OpClasses() []OpClass {
	out := make([]OpClass, classCount)
	for i := range out {
		out[i] = OpClass(i)
	}
	return out
}

// Class returns the precedence class of the operator.
func (o Operator) Class() OpClass {
	switch o {
	case OpPreAssign:
		return ClassPreAssign
	case OpPrePercent:
		return ClassPrePercent
	case OpPreMul, OpPreDiv:
		return ClassPreMul
	case OpModAdd, OpModSub:
		return ClassAdd
	case OpPostPercent:
		return ClassPostPercent
	case OpPostMul, OpPostDiv:
		return ClassPostMul
	default:
		return ClassPostAssign
	}
}

// Assigns reports whether the class replaces the running value.
func (c OpClass) Assigns() bool {
	return c == ClassPreAssign || c == ClassPostAssign
}

// Additive reports whether the class sums its contributions.
func (c OpClass) Additive() bool {
	return c == ClassAdd
}

// Penalizable reports whether contributions of the class are subject to
// the stacking penalty on non-stackable attributes.
func (c OpClass) Penalizable() bool {
	switch c {
	case ClassPrePercent, ClassPreMul, ClassPostPercent, ClassPostMul:
		return true
	default:
		return false
	}
}

// Normalize turns a raw modification value into the form its class folds:
// multipliers for multiplicative classes, signed terms for the additive
// class, and the value itself for assignments.
func (o Operator) Normalize(value float64) (float64, error) {
	switch o {
	case OpPrePercent, OpPostPercent:
		return 1 + value/100, nil
	case OpPreDiv, OpPostDiv:
		if value == 0 {
			return 0, &ModificationCalculationError{Reason: "division by zero"}
		}
		return 1 / value, nil
	case OpModSub:
		return -value, nil
	case OpPreAssign, OpPreMul, OpModAdd, OpPostMul, OpPostAssign:
		return value, nil
	default:
		return 0, &ModificationCalculationError{Reason: fmt.Sprintf("unknown operator %s", o)}
	}
}
