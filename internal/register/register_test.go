package register

import (
	"fmt"
	"strings"
	"testing"

	"fitcore/internal/bus"
	"fitcore/pkg/domain"
)

type roles struct {
	ship, character *domain.Item
}

func (r *roles) Ship() *domain.Item      { return r.ship }
func (r *roles) Character() *domain.Item { return r.character }

type captureLogger struct {
	warnings []string
}

func (l *captureLogger) Warn(msg string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprint(append([]any{msg}, args...)...))
}

func newItem(typeID domain.TypeID, kind domain.ItemKind, group domain.GroupID, skills ...domain.TypeID) *domain.Item {
	it := domain.NewItem(typeID, kind)
	req := make(map[domain.TypeID]int, len(skills))
	for _, s := range skills {
		req[s] = 1
	}
	it.Bind(&domain.ItemType{ID: typeID, GroupID: group, CategoryID: domain.CategoryModule, RequiredSkills: req})
	return it
}

func newRegister() (*Register, *roles, *captureLogger) {
	rl := &roles{}
	log := &captureLogger{}
	return New(rl, log), rl, log
}

func contains(items []*domain.Item, want *domain.Item) bool {
	for _, it := range items {
		if it == want {
			return true
		}
	}
	return false
}

func containsAffector(list []Affector, want Affector) bool {
	for _, a := range list {
		if a == want {
			return true
		}
	}
	return false
}

func TestDomainGroupFilterReachesMatchingGroupOnly(t *testing.T) {
	r, _, _ := newRegister()
	source := newItem(1, domain.KindModuleLow, 50)
	hit := newItem(2, domain.KindModuleMid, 35)
	miss := newItem(3, domain.KindModuleMid, 3)
	for _, it := range []*domain.Item{source, hit, miss} {
		r.RegisterAffectee(it)
	}
	a := Affector{Item: source, Modifier: domain.NewAttributeModifier(domain.FilterDomainGroup, domain.DomainShip, 10, domain.OpPostPercent, 20).WithGroup(35)}
	r.RegisterAffector(a)

	affectees := r.Affectees(a)
	if len(affectees) != 1 || affectees[0] != hit {
		t.Fatalf("expected only group 35 item, got %v", affectees)
	}
	if !containsAffector(r.Affectors(hit), a) {
		t.Fatalf("expected affector on group 35 item")
	}
	if containsAffector(r.Affectors(miss), a) {
		t.Fatalf("group 3 item must not be affected")
	}
}

func TestDirectOtherAwaitsLinkedItem(t *testing.T) {
	r, _, _ := newRegister()
	module := newItem(1, domain.KindModuleHigh, 0)
	charge := newItem(2, domain.KindCharge, 0)
	r.RegisterAffectee(module)
	a := Affector{Item: module, Modifier: domain.NewAttributeModifier(domain.FilterItem, domain.DomainOther, 10, domain.OpPostMul, 20)}
	r.RegisterAffector(a)

	if !containsAffector(r.Awaiting(module), a) {
		t.Fatalf("expected affector awaiting without a charge")
	}
	if len(r.Affectees(a)) != 0 {
		t.Fatalf("awaiting affector must reach nothing")
	}

	if err := module.Link(charge); err != nil {
		t.Fatalf("link: %v", err)
	}
	r.RegisterAffectee(charge)
	if len(r.Awaiting(module)) != 0 {
		t.Fatalf("expected affector promoted once the charge is present")
	}
	if got := r.Affectees(a); len(got) != 1 || got[0] != charge {
		t.Fatalf("expected charge as affectee, got %v", got)
	}
	if !containsAffector(r.Affectors(charge), a) {
		t.Fatalf("expected charge affected")
	}

	r.UnregisterAffectee(charge)
	module.Unlink()
	if !containsAffector(r.Awaiting(module), a) {
		t.Fatalf("expected affector back in awaiting after charge left")
	}
	if containsAffector(r.Affectors(charge), a) {
		t.Fatalf("departed charge must not stay affected")
	}

	r.UnregisterAffector(a)
	r.UnregisterAffectee(module)
	if !r.Empty() {
		t.Fatalf("expected empty register")
	}
}

func TestDirectShipWaitsForShipRole(t *testing.T) {
	r, rl, _ := newRegister()
	module := newItem(1, domain.KindModuleLow, 0)
	r.RegisterAffectee(module)
	a := Affector{Item: module, Modifier: domain.NewAttributeModifier(domain.FilterItem, domain.DomainShip, 37, domain.OpPostPercent, 20)}
	r.RegisterAffector(a)
	if !containsAffector(r.Awaiting(module), a) {
		t.Fatalf("expected awaiting affector without ship")
	}

	ship := newItem(100, domain.KindShip, 25)
	rl.ship = ship
	r.RegisterAffectee(ship)
	if !containsAffector(r.Affectors(ship), a) {
		t.Fatalf("expected affector promoted onto ship")
	}

	r.UnregisterAffectee(ship)
	rl.ship = nil
	if !containsAffector(r.Awaiting(module), a) {
		t.Fatalf("expected affector demoted when ship left")
	}
	// Registering the affector again is a no-op.
	r.RegisterAffector(a)
	if len(r.Awaiting(module)) != 1 {
		t.Fatalf("duplicate registration must not double-register")
	}
}

func TestSelfFilterContextizedFromShip(t *testing.T) {
	r, rl, log := newRegister()
	ship := newItem(100, domain.KindShip, 25)
	rl.ship = ship
	module := newItem(1, domain.KindModuleLow, 7)
	r.RegisterAffectee(ship)
	r.RegisterAffectee(module)

	fromShip := Affector{Item: ship, Modifier: domain.NewAttributeModifier(domain.FilterDomain, domain.DomainSelf, 10, domain.OpModAdd, 20)}
	r.RegisterAffector(fromShip)
	if !contains(r.Affectees(fromShip), module) {
		t.Fatalf("ship self filter should reach ship domain items")
	}

	fromModule := Affector{Item: module, Modifier: domain.NewAttributeModifier(domain.FilterDomain, domain.DomainSelf, 10, domain.OpModAdd, 20)}
	r.RegisterAffector(fromModule)
	if r.Indexed(fromModule) {
		t.Fatalf("self filter from a module must be rejected")
	}
	if len(log.warnings) != 1 {
		t.Fatalf("expected one warning, got %v", log.warnings)
	}
}

func TestMalformedAffectorsAreIsolated(t *testing.T) {
	cases := []struct {
		name  string
		mod   *domain.Modifier
		field string
	}{
		{"direct domain", &domain.Modifier{Filter: domain.FilterItem, Domain: domain.Domain(99), TargetAttr: 10, Operator: domain.OpModAdd, Source: domain.SourceAttribute, SourceAttr: 20}, "domain"},
		{"filtered other", domain.NewAttributeModifier(domain.FilterDomainGroup, domain.DomainOther, 10, domain.OpModAdd, 20).WithGroup(3), "domain"},
		{"owner ship", domain.NewAttributeModifier(domain.FilterOwnerSkillrq, domain.DomainShip, 10, domain.OpModAdd, 20).WithSkill(5), "domain"},
		{"unknown filter", &domain.Modifier{Filter: domain.FilterKind(42), Domain: domain.DomainShip, TargetAttr: 10, Operator: domain.OpModAdd, Source: domain.SourceAttribute, SourceAttr: 20}, "filter"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _, log := newRegister()
			source := newItem(77, domain.KindModuleLow, 3)
			r.RegisterAffectee(source)
			bad := Affector{Item: source, Modifier: tc.mod}
			good := Affector{Item: source, Modifier: domain.NewAttributeModifier(domain.FilterItem, domain.DomainSelf, 11, domain.OpModAdd, 20)}
			r.RegisterAffector(bad)
			r.RegisterAffector(good)

			if r.Indexed(bad) {
				t.Fatalf("malformed affector must be left out")
			}
			if !r.Indexed(good) {
				t.Fatalf("well-formed affector on the same item must be indexed")
			}
			if len(log.warnings) != 1 {
				t.Fatalf("expected exactly one warning, got %v", log.warnings)
			}
			if !strings.Contains(log.warnings[0], "77") || !strings.Contains(log.warnings[0], tc.field) {
				t.Fatalf("warning should name type and field: %s", log.warnings[0])
			}
			r.UnregisterAffector(bad)
			if len(log.warnings) != 1 {
				t.Fatalf("unregistering an unindexed affector must not log")
			}
		})
	}
}

func TestSkillRequirementFilters(t *testing.T) {
	r, rl, _ := newRegister()
	character := newItem(1373, domain.KindCharacter, 1)
	rl.character = character
	skill := newItem(3300, domain.KindSkill, 255)
	module := newItem(10, domain.KindModuleHigh, 53, 3300)
	other := newItem(11, domain.KindModuleHigh, 53, 3301)
	drone := newItem(12, domain.KindDrone, 100, 3300)
	for _, it := range []*domain.Item{character, skill, module, other, drone} {
		r.RegisterAffectee(it)
	}

	shipSkill := Affector{Item: skill, Modifier: domain.NewAttributeModifier(domain.FilterDomainSkillrq, domain.DomainShip, 64, domain.OpPostPercent, 292).WithSkill(domain.SelfTypeID)}
	owner := Affector{Item: skill, Modifier: domain.NewAttributeModifier(domain.FilterOwnerSkillrq, domain.DomainCharacter, 64, domain.OpPostPercent, 292).WithSkill(domain.SelfTypeID)}
	r.RegisterAffector(shipSkill)
	r.RegisterAffector(owner)

	if got := r.Affectees(shipSkill); len(got) != 1 || got[0] != module {
		t.Fatalf("expected module requiring 3300, got %v", got)
	}
	if got := r.Affectees(owner); len(got) != 1 || got[0] != drone {
		t.Fatalf("expected owner-modifiable drone, got %v", got)
	}
	if containsAffector(r.Affectors(other), shipSkill) {
		t.Fatalf("module without the requirement must not be affected")
	}
	if !containsAffector(r.Affectors(drone), owner) || containsAffector(r.Affectors(drone), shipSkill) {
		t.Fatalf("drone should only see the owner modifier")
	}
}

type speedProcedure struct{}

func (speedProcedure) Name() string { return "speed" }
func (speedProcedure) Triggers() []domain.Trigger {
	return []domain.Trigger{
		{Role: domain.RoleCarrier, AttrID: domain.AttrSpeedFactor},
		{Role: domain.RoleShip, AttrID: domain.AttrMass},
	}
}
func (speedProcedure) Evaluate(domain.FitView) (domain.Operator, float64, error) {
	return domain.OpPostPercent, 1, nil
}

func TestTriggeredResolvesRoles(t *testing.T) {
	r, rl, _ := newRegister()
	ship := newItem(100, domain.KindShip, 25)
	rl.ship = ship
	module := newItem(1, domain.KindModuleMid, 46)
	r.RegisterAffectee(ship)
	r.RegisterAffectee(module)
	a := Affector{Item: module, Modifier: domain.NewProcedureModifier(domain.FilterItem, domain.DomainShip, domain.AttrMaxVelocity, speedProcedure{})}
	r.RegisterAffector(a)

	if got := r.Triggered(ship, domain.AttrMass); len(got) != 1 || got[0] != a {
		t.Fatalf("expected ship mass trigger, got %v", got)
	}
	if got := r.Triggered(module, domain.AttrSpeedFactor); len(got) != 1 {
		t.Fatalf("expected carrier trigger, got %v", got)
	}
	if got := r.Triggered(module, domain.AttrMass); len(got) != 0 {
		t.Fatalf("module mass is not a trigger, got %v", got)
	}
	r.UnregisterAffector(a)
	if got := r.Triggered(ship, domain.AttrMass); len(got) != 0 {
		t.Fatalf("expected trigger removed with affector")
	}
}

func TestNotifyDrivesRegistration(t *testing.T) {
	r, _, _ := newRegister()
	b := bus.NewBroker()
	r.Subscribe(b)
	module := newItem(1, domain.KindModuleLow, 7)
	effect := &domain.Effect{ID: 1, Modifiers: []*domain.Modifier{
		domain.NewAttributeModifier(domain.FilterItem, domain.DomainSelf, 10, domain.OpModAdd, 20),
	}}
	b.PublishBulk([]bus.Message{
		bus.ItemAdded{Item: module},
		bus.EffectsStarted{Item: module, Effects: []*domain.Effect{effect}},
	})
	if len(r.Affectors(module)) != 1 {
		t.Fatalf("expected self affector indexed")
	}
	b.PublishBulk([]bus.Message{
		bus.EffectsStopped{Item: module, Effects: []*domain.Effect{effect}},
		bus.ItemRemoved{Item: module},
	})
	if !r.Empty() {
		t.Fatalf("expected empty register after removal")
	}
}

func TestTriggeredByItemDeduplicates(t *testing.T) {
	r, rl, _ := newRegister()
	ship := newItem(100, domain.KindShip, 25)
	rl.ship = ship
	r.RegisterAffectee(ship)
	a := Affector{Item: ship, Modifier: domain.NewProcedureModifier(domain.FilterItem, domain.DomainSelf, domain.AttrMaxVelocity, speedProcedure{})}
	r.RegisterAffector(a)
	// The ship is both carrier and ship role holder.
	if got := r.TriggeredByItem(ship); len(got) != 1 {
		t.Fatalf("expected one affector, got %v", got)
	}
}
