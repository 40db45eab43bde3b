// Package stats aggregates fit-wide figures from resolved attribute values.
package stats

import (
	"fitcore/internal/bus"
	"fitcore/internal/memo"
	"fitcore/pkg/domain"
)

// Fit is the read surface the registers aggregate over.
type Fit interface {
	Items() []*domain.Item
	Ship() *domain.Item
	Character() *domain.Item
	Value(item *domain.Item, attr domain.AttrID) (float64, error)
}

// resource pairs the consumption and output attributes of a pool.
type resource struct {
	use, output domain.AttrID
}

var resources = map[domain.Resource]resource{
	domain.ResourceCPU:       {use: domain.AttrCPU, output: domain.AttrCPUOutput},
	domain.ResourcePowergrid: {use: domain.AttrPower, output: domain.AttrPowerOutput},
}

// Stats memoizes resource and drone registers. Any bus message drops every
// memoized figure.
type Stats struct {
	fit       Fit
	resources map[domain.Resource]*memo.Value[domain.ResourceStats]
	drones    *memo.Value[domain.SlotStats]
	all       memo.Set
}

// New builds the registers over fit.
func New(fit Fit) *Stats {
	s := &Stats{fit: fit, resources: make(map[domain.Resource]*memo.Value[domain.ResourceStats], len(resources))}
	for name, res := range resources {
		v := memo.New(func() domain.ResourceStats { return s.resource(res) })
		s.resources[name] = v
		s.all = append(s.all, v)
	}
	s.drones = memo.New(s.launchedDrones)
	s.all = append(s.all, s.drones)
	return s
}

// Subscribe attaches the registers to every message kind.
func (s *Stats) Subscribe(b *bus.Broker) {
	b.Subscribe(s,
		bus.KindItemAdded,
		bus.KindItemRemoved,
		bus.KindStatesActivated,
		bus.KindStatesDeactivated,
		bus.KindEffectsStarted,
		bus.KindEffectsStopped,
		bus.KindAttrValueChanged,
		bus.KindAttrValueChangedOverride,
	)
}

// Notify implements bus.Subscriber.
func (s *Stats) Notify(bus.Message) { s.all.Invalidate() }

// Resource returns usage against output for a pool. Unknown pools report
// zero.
func (s *Stats) Resource(name domain.Resource) domain.ResourceStats {
	v, ok := s.resources[name]
	if !ok {
		return domain.ResourceStats{}
	}
	return v.Get()
}

// LaunchedDrones returns drones at online or above against the character's
// drone control limit.
func (s *Stats) LaunchedDrones() domain.SlotStats { return s.drones.Get() }

// Consumers returns the online modules using the pool, with their usage.
func (s *Stats) Consumers(name domain.Resource) map[*domain.Item]float64 {
	res, ok := resources[name]
	if !ok {
		return nil
	}
	out := make(map[*domain.Item]float64)
	for _, it := range s.fit.Items() {
		if !it.Kind().IsModule() || it.State() < domain.StateOnline {
			continue
		}
		if v, err := s.fit.Value(it, res.use); err == nil && v != 0 {
			out[it] = v
		}
	}
	return out
}

func (s *Stats) resource(res resource) domain.ResourceStats {
	var out domain.ResourceStats
	for _, it := range s.fit.Items() {
		if !it.Kind().IsModule() || it.State() < domain.StateOnline {
			continue
		}
		if v, err := s.fit.Value(it, res.use); err == nil {
			out.Used += v
		}
	}
	if ship := s.fit.Ship(); ship != nil {
		if v, err := s.fit.Value(ship, res.output); err == nil {
			out.Output = v
		}
	}
	return out
}

func (s *Stats) launchedDrones() domain.SlotStats {
	var out domain.SlotStats
	for _, it := range s.fit.Items() {
		if it.Kind() == domain.KindDrone && it.State() >= domain.StateOnline {
			out.Used++
		}
	}
	if char := s.fit.Character(); char != nil {
		if v, err := s.fit.Value(char, domain.AttrMaxActiveDrones); err == nil {
			out.Total = int(v)
		}
	}
	return out
}
