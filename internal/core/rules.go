package core

import (
	"context"
	"fmt"

	"fitcore/pkg/domain"
)

// Built-in rule names.
const (
	RuleCPU              = "cpu"
	RulePowergrid        = "powergrid"
	RuleShipTypeGroup    = "ship_type_group"
	RuleLaunchedDrones   = "launched_drones"
	RuleSkillRequirement = "skill_requirement"
)

// DefaultRules returns the built-in restriction set.
func DefaultRules() []Rule {
	return []Rule{
		resourceRule{name: RuleCPU, res: domain.ResourceCPU},
		resourceRule{name: RulePowergrid, res: domain.ResourcePowergrid},
		shipTypeGroupRule{},
		launchedDronesRule{},
		skillRequirementRule{},
	}
}

// NewDefaultRulesEngine builds a rules engine with the built-in rules.
func NewDefaultRulesEngine() *RulesEngine {
	return domain.NewRulesEngine(DefaultRules()...)
}

func violation(rule string, sev Severity, item *domain.Item, format string, args ...any) Violation {
	return Violation{
		Rule:     rule,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		ItemID:   item.ID().String(),
		TypeID:   item.TypeID(),
	}
}

// resourceRule blocks every online consumer once a pool is overused.
type resourceRule struct {
	name string
	res  domain.Resource
}

func (r resourceRule) Name() string { return r.name }

func (r resourceRule) Evaluate(_ context.Context, view RuleView) (Result, error) {
	var result Result
	stats := view.Resource(r.res)
	if stats.Used <= stats.Output {
		return result, nil
	}
	use := domain.AttrCPU
	if r.res == domain.ResourcePowergrid {
		use = domain.AttrPower
	}
	for _, it := range view.Items() {
		if !it.Kind().IsModule() || it.State() < domain.StateOnline {
			continue
		}
		v, err := view.Value(it, use)
		if err != nil || v <= 0 {
			continue
		}
		result.Violations = append(result.Violations, violation(r.name, SeverityBlock, it,
			"%s usage %.2f exceeds output %.2f", r.res, stats.Used, stats.Output))
	}
	return result, nil
}

var (
	canFitShipTypes = []domain.AttrID{
		domain.AttrCanFitShipType1, domain.AttrCanFitShipType2,
		domain.AttrCanFitShipType3, domain.AttrCanFitShipType4,
	}
	canFitShipGroups = []domain.AttrID{
		domain.AttrCanFitShipGroup1, domain.AttrCanFitShipGroup2,
		domain.AttrCanFitShipGroup3, domain.AttrCanFitShipGroup4,
	}
)

// shipTypeGroupRule blocks items restricted to ship types or groups the
// current ship does not belong to.
type shipTypeGroupRule struct{}

func (shipTypeGroupRule) Name() string { return RuleShipTypeGroup }

func (shipTypeGroupRule) Evaluate(_ context.Context, view RuleView) (Result, error) {
	var result Result
	ship := view.Ship()
	for _, it := range view.Items() {
		if it == ship || it.Type() == nil {
			continue
		}
		types := restrictionValues(it.Type(), canFitShipTypes)
		groups := restrictionValues(it.Type(), canFitShipGroups)
		if len(types) == 0 && len(groups) == 0 {
			continue
		}
		if ship != nil {
			if _, ok := types[int64(ship.TypeID())]; ok {
				continue
			}
			if _, ok := groups[int64(ship.GroupID())]; ok {
				continue
			}
		}
		result.Violations = append(result.Violations, violation(RuleShipTypeGroup, SeverityBlock, it,
			"%s cannot be fitted to this ship", it))
	}
	return result, nil
}

func restrictionValues(t *domain.ItemType, attrs []domain.AttrID) map[int64]struct{} {
	out := make(map[int64]struct{})
	for _, a := range attrs {
		if v, ok := t.BaseValue(a); ok && v != 0 {
			out[int64(v)] = struct{}{}
		}
	}
	return out
}

// launchedDronesRule blocks every launched drone past the control limit.
type launchedDronesRule struct{}

func (launchedDronesRule) Name() string { return RuleLaunchedDrones }

func (launchedDronesRule) Evaluate(_ context.Context, view RuleView) (Result, error) {
	var result Result
	slots := view.LaunchedDrones()
	if slots.Used <= slots.Total {
		return result, nil
	}
	for _, it := range view.Items() {
		if it.Kind() != domain.KindDrone || it.State() < domain.StateOnline {
			continue
		}
		result.Violations = append(result.Violations, violation(RuleLaunchedDrones, SeverityBlock, it,
			"%d drones launched, limit %d", slots.Used, slots.Total))
	}
	return result, nil
}

// skillRequirementRule warns about items whose required skills are missing
// or undertrained.
type skillRequirementRule struct{}

func (skillRequirementRule) Name() string { return RuleSkillRequirement }

func (skillRequirementRule) Evaluate(_ context.Context, view RuleView) (Result, error) {
	var result Result
	for _, it := range view.Items() {
		for skillID, level := range it.RequiredSkills() {
			have := 0
			if skill, ok := view.Skill(skillID); ok {
				have = skill.SkillLevel()
			}
			if have >= level {
				continue
			}
			result.Violations = append(result.Violations, violation(RuleSkillRequirement, SeverityWarn, it,
				"requires skill %d at level %d, have %d", skillID, level, have))
		}
	}
	return result, nil
}
