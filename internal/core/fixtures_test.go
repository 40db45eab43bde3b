package core

import (
	"context"
	"testing"

	"fitcore/internal/catalog"
	"fitcore/pkg/domain"
)

const (
	attrDamageMult   domain.AttrID = 64
	attrCPUBonus     domain.AttrID = 1001
	attrChargeFactor domain.AttrID = 1002

	effOnline  domain.EffectID = 16
	effSkill   domain.EffectID = 100
	effCharge  domain.EffectID = 200
	effOverMul domain.EffectID = 300

	typeShip       domain.TypeID = 600
	typeModule     domain.TypeID = 700
	typeRestricted domain.TypeID = 701
	typeCharge     domain.TypeID = 800
	typeDrone      domain.TypeID = 900
	typeCharacter  domain.TypeID = 1373
	typeGunnery    domain.TypeID = 3300

	groupShip domain.GroupID = 25
)

func fixtureData() catalog.Data {
	return catalog.Data{
		Attributes: []catalog.AttributeData{
			{ID: domain.AttrPowerOutput, HighIsGood: true, Stackable: true},
			{ID: domain.AttrPower, Stackable: true},
			{ID: domain.AttrCPUOutput, HighIsGood: true, Stackable: true},
			{ID: domain.AttrCPU, Stackable: true},
			{ID: attrDamageMult, HighIsGood: true},
			{ID: domain.AttrRequiredSkill1, Stackable: true},
			{ID: domain.AttrRequiredSkill1Lv, Stackable: true},
			{ID: domain.AttrSkillLevel, HighIsGood: true, Stackable: true},
			{ID: domain.AttrMaxActiveDrones, HighIsGood: true, Stackable: true},
			{ID: domain.AttrCanFitShipGroup1, Stackable: true},
			{ID: attrCPUBonus, Stackable: true},
			{ID: attrChargeFactor, HighIsGood: true, Stackable: true},
		},
		Effects: []catalog.EffectData{
			{ID: effOnline, Category: domain.EffectOnline},
			{ID: effSkill, Category: domain.EffectPassive, Modifiers: []catalog.ModifierData{{
				Filter: "domain_skillrq", Domain: "ship", Skill: domain.SelfTypeID,
				TargetAttr: domain.AttrCPU, Operator: "post_percent", SourceAttr: attrCPUBonus,
			}}},
			{ID: effCharge, Category: domain.EffectPassive, Modifiers: []catalog.ModifierData{{
				Filter: "item", Domain: "other",
				TargetAttr: attrDamageMult, Operator: "post_mul", SourceAttr: attrChargeFactor,
			}}},
			{ID: effOverMul, Category: domain.EffectOverload},
		},
		Types: []catalog.TypeData{
			{ID: typeShip, GroupID: groupShip, CategoryID: domain.CategoryShip, Attrs: map[domain.AttrID]float64{
				domain.AttrCPUOutput:   100,
				domain.AttrPowerOutput: 50,
			}},
			{ID: typeModule, GroupID: 59, CategoryID: domain.CategoryModule, Attrs: map[domain.AttrID]float64{
				domain.AttrCPU:              30,
				domain.AttrPower:            10,
				attrDamageMult:              2,
				domain.AttrRequiredSkill1:   float64(typeGunnery),
				domain.AttrRequiredSkill1Lv: 1,
			}, Effects: []domain.EffectID{effOnline, effOverMul}},
			{ID: typeRestricted, GroupID: 60, CategoryID: domain.CategoryModule, Attrs: map[domain.AttrID]float64{
				domain.AttrCPU:              80,
				domain.AttrCanFitShipGroup1: 26,
			}, Effects: []domain.EffectID{effOnline}},
			{ID: typeCharge, GroupID: 85, CategoryID: domain.CategoryCharge, Attrs: map[domain.AttrID]float64{
				attrChargeFactor: 1.5,
			}, Effects: []domain.EffectID{effCharge}},
			{ID: typeDrone, GroupID: 100, CategoryID: domain.CategoryDrone, Effects: []domain.EffectID{effOnline}},
			{ID: typeCharacter, GroupID: 1, CategoryID: 1, Attrs: map[domain.AttrID]float64{
				domain.AttrMaxActiveDrones: 2,
			}},
			{ID: typeGunnery, GroupID: 255, CategoryID: domain.CategorySkill, Attrs: map[domain.AttrID]float64{
				domain.AttrSkillLevel: 0,
				attrCPUBonus:          -10,
			}, Effects: []domain.EffectID{effSkill}},
		},
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := NewEngine(opts...)
	if err := e.LoadCatalog(context.Background(), catalog.StaticSource(fixtureData())); err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return e
}

// newTestFit returns a fit with a ship already set.
func newTestFit(t *testing.T, opts ...Option) *Fit {
	t.Helper()
	fit, err := newTestEngine(t).NewFit(opts...)
	if err != nil {
		t.Fatalf("new fit: %v", err)
	}
	if err := fit.SetShip(context.Background(), domain.NewItem(typeShip, domain.KindShip)); err != nil {
		t.Fatalf("set ship: %v", err)
	}
	return fit
}

func mustAdd(t *testing.T, fit *Fit, items ...*domain.Item) {
	t.Helper()
	for _, it := range items {
		if err := fit.AddItem(context.Background(), it); err != nil {
			t.Fatalf("add %s: %v", it, err)
		}
	}
}

func mustState(t *testing.T, fit *Fit, state domain.State, items ...*domain.Item) {
	t.Helper()
	for _, it := range items {
		if err := fit.SetState(context.Background(), it, state); err != nil {
			t.Fatalf("set state of %s: %v", it, err)
		}
	}
}

func value(t *testing.T, fit *Fit, item *domain.Item, attr domain.AttrID) float64 {
	t.Helper()
	v, err := fit.Value(item, attr)
	if err != nil {
		t.Fatalf("value of %d on %s: %v", attr, item, err)
	}
	return v
}

type captureLogger struct{ calls []string }

func (c *captureLogger) Debug(msg string, _ ...any) { c.calls = append(c.calls, "d:"+msg) }
func (c *captureLogger) Info(msg string, _ ...any)  { c.calls = append(c.calls, "i:"+msg) }
func (c *captureLogger) Warn(msg string, _ ...any)  { c.calls = append(c.calls, "w:"+msg) }
func (c *captureLogger) Error(msg string, _ ...any) { c.calls = append(c.calls, "e:"+msg) }

func (c *captureLogger) count(prefix string) int {
	n := 0
	for _, call := range c.calls {
		if len(call) >= len(prefix) && call[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
