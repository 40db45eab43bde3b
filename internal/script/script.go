// Package script runs procedural modifiers written in Lua.
//
// A script defines a global function `evaluate()` returning an operator name
// and a value, and a global `triggers` table listing the {role, attr_id}
// pairs it reads. Inside `evaluate` the host function `attr(role, attr_id)`
// returns the resolved value of an attribute on the carrier, ship,
// character or other item.
package script

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Shopify/go-lua"

	"fitcore/pkg/domain"
)

// Procedure is a compiled Lua procedural modifier. It is safe for use by
// several fits at once; each evaluation runs on its own interpreter state.
type Procedure struct {
	name     string
	source   string
	triggers []domain.Trigger
	pool     sync.Pool
}

var _ domain.Procedure = (*Procedure)(nil)

// runtime is one interpreter bound to the view of the evaluation using it.
type runtime struct {
	state   *lua.State
	view    domain.FitView
	hostErr error
}

// Compile parses source and checks it defines `evaluate` and a valid
// `triggers` table.
func Compile(name, source string) (*Procedure, error) {
	p := &Procedure{name: name, source: source}
	rt, err := p.newRuntime()
	if err != nil {
		return nil, err
	}
	triggers, err := readTriggers(rt.state)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", name, err)
	}
	p.triggers = triggers
	p.pool.Put(rt)
	return p, nil
}

func (p *Procedure) newRuntime() (*runtime, error) {
	rt := &runtime{state: lua.NewState()}
	lua.OpenLibraries(rt.state)
	rt.state.Register("attr", rt.attr)
	if err := lua.LoadString(rt.state, p.source); err != nil {
		return nil, fmt.Errorf("script %s: %w", p.name, err)
	}
	if err := rt.state.ProtectedCall(0, 0, 0); err != nil {
		return nil, fmt.Errorf("script %s: %w", p.name, err)
	}
	rt.state.Global("evaluate")
	isFunc := rt.state.IsFunction(-1)
	rt.state.Pop(1)
	if !isFunc {
		return nil, fmt.Errorf("script %s: evaluate is not defined", p.name)
	}
	return rt, nil
}

// attr implements the `attr(role, attr_id)` host function.
func (rt *runtime) attr(state *lua.State) int {
	roleName := lua.CheckString(state, 1)
	attrID := lua.CheckInteger(state, 2)
	role, ok := domain.ParseRole(roleName)
	if !ok {
		lua.ArgumentError(state, 1, "unknown role "+roleName)
		return 0
	}
	v, err := rt.view.Value(role, domain.AttrID(attrID))
	if err != nil {
		rt.hostErr = err
		lua.Errorf(state, "%s", err.Error())
		return 0
	}
	state.PushNumber(v)
	return 1
}

func readTriggers(state *lua.State) ([]domain.Trigger, error) {
	state.Global("triggers")
	defer state.Pop(1)
	if state.IsNil(-1) {
		return nil, nil
	}
	if !state.IsTable(-1) {
		return nil, errors.New("triggers must be a table")
	}
	var out []domain.Trigger
	for i := 1; i <= state.RawLength(-1); i++ {
		state.RawGetInt(-1, i)
		if !state.IsTable(-1) {
			state.Pop(1)
			return nil, fmt.Errorf("trigger %d must be a {role, attr_id} table", i)
		}
		state.RawGetInt(-1, 1)
		roleName, _ := state.ToString(-1)
		state.RawGetInt(-2, 2)
		attrID, isNum := state.ToInteger(-1)
		state.Pop(3)
		role, ok := domain.ParseRole(roleName)
		if !ok || !isNum || attrID <= 0 {
			return nil, fmt.Errorf("trigger %d: invalid role %q or attribute", i, roleName)
		}
		out = append(out, domain.Trigger{Role: role, AttrID: domain.AttrID(attrID)})
	}
	return out, nil
}

// Name implements domain.Procedure.
func (p *Procedure) Name() string { return p.name }

// Triggers implements domain.Procedure.
func (p *Procedure) Triggers() []domain.Trigger { return p.triggers }

// Evaluate implements domain.Procedure.
func (p *Procedure) Evaluate(view domain.FitView) (domain.Operator, float64, error) {
	rt, _ := p.pool.Get().(*runtime)
	if rt == nil {
		var err error
		if rt, err = p.newRuntime(); err != nil {
			return 0, 0, err
		}
	}
	rt.view, rt.hostErr = view, nil
	defer func() {
		rt.view = nil
		rt.state.SetTop(0)
		p.pool.Put(rt)
	}()

	state := rt.state
	state.Global("evaluate")
	if err := state.ProtectedCall(0, 2, 0); err != nil {
		if rt.hostErr != nil {
			return 0, 0, rt.hostErr
		}
		return 0, 0, &domain.ModificationCalculationError{Reason: "script " + p.name, Err: err}
	}
	opName, _ := state.ToString(-2)
	value, ok := state.ToNumber(-1)
	if !ok {
		return 0, 0, &domain.ModificationCalculationError{Reason: fmt.Sprintf("script %s returned a non-numeric value", p.name)}
	}
	op, err := domain.ParseOperator(opName)
	if err != nil {
		return 0, 0, &domain.ModificationCalculationError{Reason: "script " + p.name, Err: err}
	}
	return op, value, nil
}

// LoadDir compiles every `*.lua` file in dir. Procedures are named after the
// file without its extension.
func LoadDir(dir string) ([]*Procedure, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make([]*Procedure, 0, len(paths))
	for _, path := range paths {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), ".lua")
		p, err := Compile(name, string(src))
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
