package propulsion

import (
	"context"
	"errors"
	"math"
	"testing"

	"fitcore/internal/catalog"
	"fitcore/internal/core"
	"fitcore/pkg/domain"
)

type staticView map[domain.Role]map[domain.AttrID]float64

func (v staticView) Value(role domain.Role, attr domain.AttrID) (float64, error) {
	if val, ok := v[role][attr]; ok {
		return val, nil
	}
	return 0, &domain.MissingAttributeError{AttrID: attr}
}

func TestPluginNameVersion(t *testing.T) {
	p := New()
	if p.Name() != "propulsion" {
		t.Fatalf("expected name propulsion, got %s", p.Name())
	}
	if p.Version() == "" {
		t.Fatalf("expected non-empty version")
	}
}

func TestVelocityBoostEvaluate(t *testing.T) {
	view := staticView{
		domain.RoleCarrier: {domain.AttrSpeedFactor: 100, domain.AttrSpeedBoostFactor: 1500000},
		domain.RoleShip:    {domain.AttrMass: 1000000},
	}
	op, v, err := VelocityBoost{}.Evaluate(view)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if op != domain.OpPostPercent || v != 150 {
		t.Fatalf("expected post_percent 150, got %s %v", op, v)
	}
	if len(VelocityBoost{}.Triggers()) != 3 {
		t.Fatalf("expected three triggers")
	}
}

func TestVelocityBoostErrors(t *testing.T) {
	zeroMass := staticView{
		domain.RoleCarrier: {domain.AttrSpeedFactor: 100, domain.AttrSpeedBoostFactor: 10},
		domain.RoleShip:    {domain.AttrMass: 0},
	}
	if _, _, err := (VelocityBoost{}).Evaluate(zeroMass); !errors.Is(err, domain.ErrModificationCalculation) {
		t.Fatalf("expected calculation error, got %v", err)
	}
	noShip := staticView{domain.RoleCarrier: {domain.AttrSpeedFactor: 100, domain.AttrSpeedBoostFactor: 10}}
	if _, _, err := (VelocityBoost{}).Evaluate(noShip); !errors.Is(err, domain.ErrMissingAttribute) {
		t.Fatalf("expected missing attribute, got %v", err)
	}
}

const (
	shipType   domain.TypeID   = 100
	moduleType domain.TypeID   = 200
	boostEff   domain.EffectID = 6730
)

func snapshot() catalog.Data {
	return catalog.Data{
		Attributes: []catalog.AttributeData{
			{ID: domain.AttrMass, Stackable: true},
			{ID: domain.AttrSpeedFactor, HighIsGood: true, Stackable: true},
			{ID: domain.AttrMaxVelocity, HighIsGood: true},
			{ID: domain.AttrSpeedBoostFactor, HighIsGood: true, Stackable: true},
		},
		Effects: []catalog.EffectData{{
			ID:       boostEff,
			Category: domain.EffectActive,
			Modifiers: []catalog.ModifierData{{
				Filter:     "item",
				Domain:     "ship",
				TargetAttr: domain.AttrMaxVelocity,
				Procedure:  ProcedureName,
			}},
		}},
		Types: []catalog.TypeData{
			{ID: shipType, GroupID: 25, CategoryID: domain.CategoryShip, Attrs: map[domain.AttrID]float64{
				domain.AttrMaxVelocity: 200,
				domain.AttrMass:        1000000,
			}},
			{ID: moduleType, GroupID: 46, CategoryID: domain.CategoryModule, Attrs: map[domain.AttrID]float64{
				domain.AttrSpeedFactor:      100,
				domain.AttrSpeedBoostFactor: 1500000,
			}, Effects: []domain.EffectID{boostEff}},
		},
	}
}

func newFit(t *testing.T) *core.Fit {
	t.Helper()
	engine := core.NewEngine()
	if _, err := engine.InstallPlugin(New()); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := engine.LoadCatalog(context.Background(), catalog.StaticSource(snapshot())); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	fit, err := engine.NewFit()
	if err != nil {
		t.Fatalf("new fit: %v", err)
	}
	return fit
}

func velocity(t *testing.T, fit *core.Fit) float64 {
	t.Helper()
	v, err := fit.Value(fit.Ship(), domain.AttrMaxVelocity)
	if err != nil {
		t.Fatalf("max velocity: %v", err)
	}
	return v
}

func TestBoostFollowsModuleStateAndShipMass(t *testing.T) {
	ctx := context.Background()
	fit := newFit(t)
	if err := fit.SetShip(ctx, domain.NewItem(shipType, domain.KindShip)); err != nil {
		t.Fatalf("set ship: %v", err)
	}
	ab := domain.NewItem(moduleType, domain.KindModuleMid)
	if err := fit.AddItem(ctx, ab); err != nil {
		t.Fatalf("add module: %v", err)
	}
	if got := velocity(t, fit); got != 200 {
		t.Fatalf("offline module should not boost, got %v", got)
	}
	if err := fit.SetState(ctx, ab, domain.StateActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if got := velocity(t, fit); math.Abs(got-500) > 1e-9 {
		t.Fatalf("expected 500, got %v", got)
	}
	if err := fit.SetAttrOverride(ctx, fit.Ship(), domain.AttrMass, 2000000); err != nil {
		t.Fatalf("override mass: %v", err)
	}
	if got := velocity(t, fit); math.Abs(got-350) > 1e-9 {
		t.Fatalf("expected 350 after mass change, got %v", got)
	}
	if err := fit.SetState(ctx, ab, domain.StateOnline); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if got := velocity(t, fit); got != 200 {
		t.Fatalf("expected base velocity, got %v", got)
	}
}

func TestSingleActiveRuleBlocksSecondModule(t *testing.T) {
	ctx := context.Background()
	fit := newFit(t)
	if err := fit.SetShip(ctx, domain.NewItem(shipType, domain.KindShip)); err != nil {
		t.Fatalf("set ship: %v", err)
	}
	first := domain.NewItem(moduleType, domain.KindModuleMid)
	second := domain.NewItem(moduleType, domain.KindModuleMid)
	for _, m := range []*domain.Item{first, second} {
		if err := fit.AddItem(ctx, m); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := fit.SetState(ctx, first, domain.StateActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := fit.Validate(ctx); err != nil {
		t.Fatalf("one active module should validate, got %v", err)
	}
	if err := fit.SetState(ctx, second, domain.StateActive); err != nil {
		t.Fatalf("activate: %v", err)
	}
	res, err := fit.Validate(ctx)
	var blocked core.RuleViolationError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected rule violation, got %v", err)
	}
	if got := len(res.ByRule(RuleName)); got != 2 {
		t.Fatalf("expected both modules flagged, got %d", got)
	}
}
