package recipe

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/blang/semver/v4"
	"gopkg.in/yaml.v3"
)

// ErrNoBuildTargets is returned when a recipe's declared architectures
// have an empty intersection with the host architecture and available
// cross toolchains (spec.md §4.6).
var ErrNoBuildTargets = fmt.Errorf("recipe: no supported build targets")

// document is the on-disk YAML shape boulder recipes are written in.
// Only the fields the core consumes are modeled here; the full recipe
// schema is an external collaborator (spec.md §1).
type document struct {
	Version       string              `yaml:"version"`
	Options       Options             `yaml:"options"`
	Architectures []Architecture      `yaml:"architectures"`
	CrossTargets  []crossTargetDoc    `yaml:"crossTargets"`
	Upstreams     []upstreamDoc       `yaml:"upstreams"`
	Pgo           *pgoDoc             `yaml:"pgo"`
	Setup         string              `yaml:"setup"`
	Build         string              `yaml:"build"`
	Install       string              `yaml:"install"`
	Check         string              `yaml:"check"`
	Workload      string              `yaml:"workload"`
	Profiles      map[string]stepsDoc `yaml:"profiles"`
}

type stepsDoc struct {
	Setup    string `yaml:"setup"`
	Build    string `yaml:"build"`
	Install  string `yaml:"install"`
	Check    string `yaml:"check"`
	Workload string `yaml:"workload"`
}

type crossTargetDoc struct {
	From Architecture `yaml:"from"`
	To   Architecture `yaml:"to"`
}

type upstreamDoc struct {
	URI  string `yaml:"uri"`
	Hash string `yaml:"hash"`
	Git  string `yaml:"git"`
	Ref  string `yaml:"ref"`
}

type pgoDoc struct {
	SampleArgs []string `yaml:"sampleArgs"`
}

// Recipe is a loaded recipe: its parsed structure plus the original
// source text, retained verbatim for breakpoint-line resolution
// (spec.md §4.9).
type Recipe struct {
	Source    string
	Version   *semver.Version
	Options   Options
	Upstreams []Upstream
	Pgo       *Pgo

	doc document
}

// Load reads and parses the recipe at path.
func Load(path string) (*Recipe, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipe: reading %s: %w", path, err)
	}
	return Parse(string(raw))
}

// Parse decodes recipe source text, without touching the filesystem.
func Parse(source string) (*Recipe, error) {
	var doc document
	if err := yaml.Unmarshal([]byte(source), &doc); err != nil {
		return nil, fmt.Errorf("recipe: parsing: %w", err)
	}

	r := &Recipe{
		Source:  source,
		Options: doc.Options,
		doc:     doc,
	}

	if doc.Version != "" {
		v, err := semver.ParseTolerant(doc.Version)
		if err != nil {
			return nil, fmt.Errorf("recipe: version %q: %w", doc.Version, err)
		}
		r.Version = &v
	}

	for _, u := range doc.Upstreams {
		switch {
		case u.Git != "":
			r.Upstreams = append(r.Upstreams, Upstream{Git: &GitUpstream{URL: u.Git, Ref: u.Ref}})
		default:
			r.Upstreams = append(r.Upstreams, Upstream{URI: &URIUpstream{URI: u.URI, Hash: u.Hash}})
		}
	}

	if doc.Pgo != nil {
		r.Pgo = &Pgo{Enabled: true, SampleArgs: doc.Pgo.SampleArgs}
	}

	return r, nil
}

// HostArchitecture returns the architecture name boulder uses for the
// machine it is running on.
func HostArchitecture() Architecture {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	default:
		return Architecture(runtime.GOARCH)
	}
}

// crossToolchainAvailable reports whether a cross compiler for the given
// target pair is present on PATH, using the standard <arch>-linux-gnu-
// prefix convention.
var crossToolchainAvailable = func(to Architecture) bool {
	_, err := exec.LookPath(fmt.Sprintf("%s-linux-gnu-gcc", to))
	return err == nil
}

// BuildTargets derives the set of supported BuildTargets: the host's
// native architecture if declared, plus any declared cross targets whose
// toolchain is available (spec.md §4.6).
func (r *Recipe) BuildTargets() []BuildTarget {
	host := HostArchitecture()
	var targets []BuildTarget

	for _, arch := range r.doc.Architectures {
		if arch == host {
			targets = append(targets, NewNative(host))
		}
	}

	for _, ct := range r.doc.CrossTargets {
		if ct.From != host {
			continue
		}
		if !crossToolchainAvailable(ct.To) {
			continue
		}
		targets = append(targets, NewCross(ct.From, ct.To))
	}

	return targets
}

// BuildTargetProfileKey returns the profile key used to look up this
// target's step scripts: nil for the implicit root profile (the host's
// native build, keyed at zero indentation in the source), or the cross
// target's string form for an indented, named profile block.
func (r *Recipe) BuildTargetProfileKey(target BuildTarget) *string {
	if target.Kind == Native {
		return nil
	}
	key := target.String()
	return &key
}

// StepScript returns the raw script text configured for step on target,
// or "" if the recipe doesn't define one.
func (r *Recipe) StepScript(target BuildTarget, step Step) string {
	key := r.BuildTargetProfileKey(target)

	steps := stepsDoc{
		Setup:    r.doc.Setup,
		Build:    r.doc.Build,
		Install:  r.doc.Install,
		Check:    r.doc.Check,
		Workload: r.doc.Workload,
	}
	if key != nil {
		if p, ok := r.doc.Profiles[*key]; ok {
			steps = p
		} else {
			steps = stepsDoc{}
		}
	}

	switch step {
	case Setup:
		return steps.Setup
	case Build:
		return steps.Build
	case Install:
		return steps.Install
	case Check:
		return steps.Check
	case Workload:
		return steps.Workload
	default:
		return ""
	}
}
