// Command fitcheck resolves a fit description against the configured catalog
// and reports resource usage and restriction violations as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"fitcore/internal/config"
	"fitcore/internal/core"
	"fitcore/pkg/domain"
	"fitcore/plugins/propulsion"
)

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitUsage    = 2
	exitBlocking = 3
)

var exitFunc = os.Exit

// fitFile is the on-disk fit description.
type fitFile struct {
	Ship      domain.TypeID         `json:"ship"`
	Character domain.TypeID         `json:"character,omitempty"`
	Skills    map[domain.TypeID]int `json:"skills,omitempty"`
	Items     []itemEntry           `json:"items,omitempty"`
}

type itemEntry struct {
	Type   domain.TypeID `json:"type"`
	Kind   string        `json:"kind"`
	State  string        `json:"state,omitempty"`
	Charge domain.TypeID `json:"charge,omitempty"`
}

type resourceReport struct {
	Used   float64 `json:"used"`
	Output float64 `json:"output"`
}

type violationReport struct {
	Rule     string          `json:"rule"`
	Severity domain.Severity `json:"severity"`
	Message  string          `json:"message"`
	TypeID   domain.TypeID   `json:"type_id,omitempty"`
}

type report struct {
	CPU        resourceReport    `json:"cpu"`
	Powergrid  resourceReport    `json:"powergrid"`
	Drones     domain.SlotStats  `json:"launched_drones"`
	Valid      bool              `json:"valid"`
	Violations []violationReport `json:"violations"`
}

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fitcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var fitPath string
	fs.StringVar(&fitPath, "fit", "", "path to fit description json")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fitPath == "" {
		_, _ = fmt.Fprintln(stderr, "fitcheck: -fit is required")
		return exitUsage
	}
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "fitcheck: %v\n", err)
		return exitError
	}
	ctx := context.Background()
	engine, err := core.NewEngineFromConfig(ctx, cfg, []core.Plugin{propulsion.New()})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "fitcheck: %v\n", err)
		return exitError
	}
	defer func() { _ = engine.Close() }()

	rep, err := run(ctx, engine, fitPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "fitcheck: %v\n", err)
		return exitError
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return exitError
	}
	if !rep.Valid {
		return exitBlocking
	}
	return exitOK
}

func run(ctx context.Context, engine *core.Engine, path string) (report, error) {
	ff, err := readFit(path)
	if err != nil {
		return report{}, err
	}
	fit, err := buildFit(ctx, engine, ff)
	if err != nil {
		return report{}, err
	}
	result, err := fit.Validate(ctx)
	var blocking core.RuleViolationError
	if err != nil && !errors.As(err, &blocking) {
		return report{}, err
	}
	cpu, pg := fit.Resource(domain.ResourceCPU), fit.Resource(domain.ResourcePowergrid)
	rep := report{
		CPU:        resourceReport{Used: cpu.Used, Output: cpu.Output},
		Powergrid:  resourceReport{Used: pg.Used, Output: pg.Output},
		Drones:     fit.LaunchedDrones(),
		Valid:      err == nil,
		Violations: make([]violationReport, 0, len(result.Violations)),
	}
	for _, v := range result.Violations {
		rep.Violations = append(rep.Violations, violationReport{Rule: v.Rule, Severity: v.Severity, Message: v.Message, TypeID: v.TypeID})
	}
	return rep, nil
}

func readFit(path string) (fitFile, error) {
	f, err := os.Open(path) // #nosec G304 -- path is supplied by the operator on the command line
	if err != nil {
		return fitFile{}, err
	}
	defer func() { _ = f.Close() }()
	var ff fitFile
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ff); err != nil {
		return fitFile{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if ff.Ship == 0 {
		return fitFile{}, fmt.Errorf("%s: ship is required", path)
	}
	return ff, nil
}

func buildFit(ctx context.Context, engine *core.Engine, ff fitFile) (*core.Fit, error) {
	fit, err := engine.NewFit()
	if err != nil {
		return nil, err
	}
	if err := fit.SetShip(ctx, domain.NewItem(ff.Ship, domain.KindShip)); err != nil {
		return nil, err
	}
	if ff.Character != 0 {
		if err := fit.SetCharacter(ctx, domain.NewItem(ff.Character, domain.KindCharacter)); err != nil {
			return nil, err
		}
	}
	skills := make([]domain.TypeID, 0, len(ff.Skills))
	for id := range ff.Skills {
		skills = append(skills, id)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i] < skills[j] })
	for _, id := range skills {
		if err := fit.AddItem(ctx, domain.NewSkill(id, ff.Skills[id])); err != nil {
			return nil, err
		}
	}
	for i, entry := range ff.Items {
		if err := addEntry(ctx, fit, entry); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return fit, nil
}

func addEntry(ctx context.Context, fit *core.Fit, entry itemEntry) error {
	kind, ok := domain.ParseItemKind(entry.Kind)
	if !ok {
		return fmt.Errorf("unknown kind %q", entry.Kind)
	}
	item := domain.NewItem(entry.Type, kind)
	if err := fit.AddItem(ctx, item); err != nil {
		return err
	}
	if entry.Charge != 0 {
		if err := fit.LoadCharge(ctx, item, domain.NewItem(entry.Charge, domain.KindCharge)); err != nil {
			return err
		}
	}
	if entry.State == "" {
		return nil
	}
	state, ok := domain.ParseState(entry.State)
	if !ok {
		return fmt.Errorf("unknown state %q", entry.State)
	}
	return fit.SetState(ctx, item, state)
}
