// Package propulsion contributes the velocity boost of propulsion modules
// and a restriction keeping at most one of them active.
package propulsion

import (
	"context"
	"fmt"

	"fitcore/internal/core"
	"fitcore/pkg/domain"
)

// ProcedureName is the name catalog modifiers use to refer to the boost.
const ProcedureName = "propulsion_velocity_boost"

// RuleName identifies the single active propulsion restriction.
const RuleName = "propulsion_single_active"

// Plugin is the propulsion reference plugin.
type Plugin struct{}

// New constructs a propulsion plugin instance.
func New() Plugin { return Plugin{} }

// Name returns the plugin identifier.
func (Plugin) Name() string { return "propulsion" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "1.0.0" }

// Register wires the boost procedure and the restriction.
func (Plugin) Register(registry *core.PluginRegistry) error {
	if err := registry.RegisterProcedure(VelocityBoost{}); err != nil {
		return err
	}
	registry.RegisterRule(singleActiveRule{})
	return nil
}

// VelocityBoost raises the ship's maximum velocity by
// speed_factor * speed_boost_factor / mass percent.
type VelocityBoost struct{}

var _ domain.Procedure = VelocityBoost{}

// Name implements domain.Procedure.
func (VelocityBoost) Name() string { return ProcedureName }

// Triggers implements domain.Procedure.
func (VelocityBoost) Triggers() []domain.Trigger {
	return []domain.Trigger{
		{Role: domain.RoleCarrier, AttrID: domain.AttrSpeedFactor},
		{Role: domain.RoleCarrier, AttrID: domain.AttrSpeedBoostFactor},
		{Role: domain.RoleShip, AttrID: domain.AttrMass},
	}
}

// Evaluate implements domain.Procedure.
func (VelocityBoost) Evaluate(view domain.FitView) (domain.Operator, float64, error) {
	factor, err := view.Value(domain.RoleCarrier, domain.AttrSpeedFactor)
	if err != nil {
		return 0, 0, err
	}
	thrust, err := view.Value(domain.RoleCarrier, domain.AttrSpeedBoostFactor)
	if err != nil {
		return 0, 0, err
	}
	mass, err := view.Value(domain.RoleShip, domain.AttrMass)
	if err != nil {
		return 0, 0, err
	}
	if mass == 0 {
		return 0, 0, &domain.ModificationCalculationError{Reason: "ship mass is zero"}
	}
	return domain.OpPostPercent, factor * thrust / mass, nil
}

// singleActiveRule blocks every active propulsion module once more than one
// is running.
type singleActiveRule struct{}

func (singleActiveRule) Name() string { return RuleName }

func (singleActiveRule) Evaluate(_ context.Context, view core.RuleView) (core.Result, error) {
	var active []*domain.Item
	for _, it := range view.Items() {
		if boosts(it) {
			active = append(active, it)
		}
	}
	var result core.Result
	if len(active) < 2 {
		return result, nil
	}
	for _, it := range active {
		result.Violations = append(result.Violations, core.Violation{
			Rule:     RuleName,
			Severity: core.SeverityBlock,
			Message:  fmt.Sprintf("%d propulsion modules active, at most one allowed", len(active)),
			ItemID:   it.ID().String(),
			TypeID:   it.TypeID(),
		})
	}
	return result, nil
}

// boosts reports whether a running effect of it applies the boost.
func boosts(it *domain.Item) bool {
	for _, e := range it.RunningEffects() {
		for _, m := range e.Modifiers {
			if m.Procedure != nil && m.Procedure.Name() == ProcedureName {
				return true
			}
		}
	}
	return false
}
