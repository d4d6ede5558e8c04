// Package recipe models a parsed boulder recipe: its options, upstream
// sources, per-target step scripts and optional PGO declaration, plus the
// BuildTarget/Step/PgoStage/Script/Command value types the rest of the
// build engine is built around.
package recipe

import "fmt"

// Architecture is a CPU architecture tag, e.g. "x86_64" or "aarch64".
type Architecture string

// BuildTarget is either a native build for one architecture, or a cross
// build from one architecture to another. Its String form is also the
// key used to look up per-target step scripts in the recipe source.
type BuildTarget struct {
	From Architecture // for Native, From == To
	To   Architecture
	Kind BuildTargetKind
}

// BuildTargetKind tags which shape of BuildTarget this is.
type BuildTargetKind uint8

const (
	Native BuildTargetKind = iota
	Cross
)

// NewNative returns a Native(arch) build target.
func NewNative(arch Architecture) BuildTarget {
	return BuildTarget{From: arch, To: arch, Kind: Native}
}

// NewCross returns a Cross(from, to) build target.
func NewCross(from, to Architecture) BuildTarget {
	return BuildTarget{From: from, To: to, Kind: Cross}
}

func (t BuildTarget) String() string {
	switch t.Kind {
	case Native:
		return string(t.To)
	case Cross:
		return fmt.Sprintf("%s->%s", t.From, t.To)
	default:
		return "unknown"
	}
}

// Step is one canonical build phase.
type Step int

const (
	Prepare Step = iota
	Setup
	Build
	Install
	Check
	Workload
)

// Steps lists the canonical step order: Prepare, Setup, Build, Install,
// Check, Workload (spec.md §8, invariant 6).
var Steps = []Step{Prepare, Setup, Build, Install, Check, Workload}

func (s Step) String() string {
	switch s {
	case Prepare:
		return "prepare"
	case Setup:
		return "setup"
	case Build:
		return "build"
	case Install:
		return "install"
	case Check:
		return "check"
	case Workload:
		return "workload"
	default:
		return "unknown"
	}
}

// Key is the recipe YAML key this step's script is read from, or ""
// for Prepare, which is synthesized internally and never a user key.
func (s Step) Key() string {
	switch s {
	case Setup, Build, Install, Check, Workload:
		return s.String()
	default:
		return ""
	}
}

// Abbrev is the two-character tag used in log annotation (spec.md §4.10).
func (s Step) Abbrev() string {
	switch s {
	case Prepare:
		return "pr"
	case Setup:
		return "su"
	case Build:
		return "bu"
	case Install:
		return "in"
	case Check:
		return "ch"
	case Workload:
		return "wl"
	default:
		return "??"
	}
}

// PgoStage is one pass of a profile-guided-optimization build.
type PgoStage int

const (
	Stage1 PgoStage = iota
	Stage2
	StageUse
)

func (s PgoStage) String() string {
	switch s {
	case Stage1:
		return "stage1"
	case Stage2:
		return "stage2"
	case StageUse:
		return "use"
	default:
		return "unknown"
	}
}

// Command is one instruction within a Script: either a shell fragment to
// execute, or an interactive breakpoint.
type Command struct {
	// Content holds the shell fragment when Break is nil.
	Content string
	// Break is non-nil when this command is an interactive breakpoint.
	Break *Breakpoint
}

// Breakpoint is a declarative suspension point inside a script.
type Breakpoint struct {
	// LineNum is the 0-based offset from the step's script body used for
	// display (spec.md §4.9 breakpoint line resolution).
	LineNum int
	// Exit, when true, ends the whole build successfully once the
	// breakpoint shell exits rather than resuming execution.
	Exit bool
}

// Script is the resolved, ready-to-execute form of one step: an
// optional environment prelude, the ordered commands to run, and the
// macro/definition tables resolved against it.
type Script struct {
	Env                 string
	Commands            []Command
	ResolvedActions     map[string]string // identifier -> shell body
	ResolvedDefinitions map[string]string // identifier -> value
	Dependencies        []string
}

// Upstream is one declared source the recipe fetches before building.
// Either a plain URI+hash pair or a git checkout, recovered from
// original_source/ (the distilled spec only says "a set of upstream
// source references").
type Upstream struct {
	Git *GitUpstream
	URI *URIUpstream
}

// GitUpstream is a version-controlled upstream source.
type GitUpstream struct {
	URL string
	Ref string
}

// URIUpstream is a plain downloadable upstream source.
type URIUpstream struct {
	URI  string
	Hash string
}

// Options is the recipe's top-level options table.
type Options struct {
	Networking bool `yaml:"networking"`
}

// Pgo is the recipe's optional profile-guided-optimization declaration.
type Pgo struct {
	Enabled bool
	// SampleArgs is the recipe's pgo sampleArgs list. It is kept on the
	// parsed recipe only; the planner and the runner do not pass it to
	// the Workload step or to any other step.
	SampleArgs []string
}
