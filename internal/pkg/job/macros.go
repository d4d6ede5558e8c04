package job

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"boulder/pkg/recipe"
)

// Macros is the shared macro/definition table boulder scripts are
// resolved against: named action bodies substituted for %{id} markers,
// named definitions substituted for ${id} markers, per-action package
// dependencies, and per-PGO-stage compiler flag preludes.
type Macros struct {
	Actions            map[string]string
	Definitions        map[string]string
	ActionDependencies map[string][]string
	StageFlags         map[recipe.PgoStage]string
}

type macrosFile struct {
	Actions            map[string]string   `yaml:"actions"`
	Definitions        map[string]string   `yaml:"definitions"`
	ActionDependencies map[string][]string `yaml:"actionDependencies"`
	StageFlags         map[string]string   `yaml:"stageFlags"`
}

// LoadMacros reads every *.yaml file in dir and merges them into one
// Macros table, later files (in lexical order) overriding earlier ones —
// the same layered-macro-directory convention boulder's real macros
// store uses.
func LoadMacros(dir string) (*Macros, error) {
	m := &Macros{
		Actions:            map[string]string{},
		Definitions:        map[string]string{},
		ActionDependencies: map[string][]string{},
		StageFlags:         map[recipe.PgoStage]string{},
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("macros: reading %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && (filepath.Ext(e.Name()) == ".yaml" || filepath.Ext(e.Name()) == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("macros: reading %s: %w", name, err)
		}

		var f macrosFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("macros: parsing %s: %w", name, err)
		}

		for k, v := range f.Actions {
			m.Actions[k] = v
		}
		for k, v := range f.Definitions {
			m.Definitions[k] = v
		}
		for k, v := range f.ActionDependencies {
			m.ActionDependencies[k] = v
		}
		for k, v := range f.StageFlags {
			stage, ok := parseStageName(k)
			if ok {
				m.StageFlags[stage] = v
			}
		}
	}

	return m, nil
}

func parseStageName(name string) (recipe.PgoStage, bool) {
	switch name {
	case "stage1":
		return recipe.Stage1, true
	case "stage2":
		return recipe.Stage2, true
	case "use":
		return recipe.StageUse, true
	default:
		return 0, false
	}
}
