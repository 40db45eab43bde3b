package calculator

import "fitcore/pkg/domain"

// contribution is one normalized modification.
type contribution struct {
	class    domain.OpClass
	value    float64
	penalize bool
}

// attrMeta carries the attribute flags the fold depends on.
type attrMeta struct {
	stackable  bool
	highIsGood bool
}

// fold applies contributions to base in precedence order. The second
// result is false when no value exists: no base was given and no
// assignment produced one.
func fold(base float64, hasBase bool, mods []contribution, meta attrMeta) (float64, bool) {
	classes := domain.OpClasses()
	byClass := make([][]contribution, len(classes))
	for _, m := range mods {
		byClass[m.class] = append(byClass[m.class], m)
	}
	value := base
	have := hasBase
	for _, class := range classes {
		group := byClass[class]
		if len(group) == 0 {
			continue
		}
		switch {
		case class.Assigns():
			value = pickAssignment(group, meta.highIsGood)
			have = true
		case class.Additive():
			for _, m := range group {
				value += m.value
			}
		default:
			value *= multiply(group, class.Penalizable() && !meta.stackable)
		}
	}
	return value, have
}

func pickAssignment(group []contribution, highIsGood bool) float64 {
	picked := group[0].value
	for _, m := range group[1:] {
		if (highIsGood && m.value > picked) || (!highIsGood && m.value < picked) {
			picked = m.value
		}
	}
	return picked
}

func multiply(group []contribution, penalized bool) float64 {
	product := 1.0
	var chain []float64
	for _, m := range group {
		if penalized && m.penalize {
			chain = append(chain, m.value)
			continue
		}
		product *= m.value
	}
	if len(chain) > 0 {
		product *= penalize(chain)
	}
	return product
}
