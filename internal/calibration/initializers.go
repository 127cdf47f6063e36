package calibration

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pi-kappa-devel/structural-schooling/internal/model"
)

// defaultInitializerKey is the fallback entry of an initializer table, at
// both the setup and the income-group level.
const defaultInitializerKey = "default"

// defaultGroupKey is defaultInitializerKey typed as an income group.
const defaultGroupKey = model.IncomeGroup(defaultInitializerKey)

// Initializers maps setup names to per-income-group starting parameter
// values for the outer search. Setups without an entry of their own fall
// back to the "default" setup entry, and income groups without an entry fall
// back to the "default" group entry.
type Initializers map[string]map[model.IncomeGroup]map[model.ParamName]float64

// DefaultInitializers returns the built-in starting values used when no
// table is supplied.
func DefaultInitializers() Initializers {
	return Initializers{
		defaultInitializerKey: {
			defaultGroupKey: {
				model.ParamSubsistence:   1.0,
				model.ParamLeisureScale:  1.0,
				model.ParamSchoolingCost: 1.0,
				model.ParamZArAh:         1.0,
				model.ParamZMrMh:         1.0,
				model.ParamZSrSh:         1.0,
				model.ParamZArSr:         1.0,
				model.ParamZMrSr:         1.0,
			},
		},
	}
}

// For returns the starting values for the named setup and income group. The
// setup's own table is consulted first, then the default table; within each
// table the group entry wins over the default group entry.
func (in Initializers) For(setup string, group model.IncomeGroup) (map[model.ParamName]float64, error) {
	for _, key := range []string{setup, defaultInitializerKey} {
		table, ok := in[key]
		if !ok {
			continue
		}
		if values, ok := table[group]; ok {
			return values, nil
		}
		if values, ok := table[defaultGroupKey]; ok {
			return values, nil
		}
	}
	return nil, fmt.Errorf("no initializer for setup %q and group %q and no %q entry",
		setup, group, defaultInitializerKey)
}

// LoadInitializers reads an initializer table from a JSON file. The file
// maps setup names (or "default") to income groups (or "default") to
// parameter name/value pairs.
func LoadInitializers(path string) (Initializers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read initializers: %w", err)
	}
	var raw map[string]map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse initializers %s: %w", path, err)
	}
	table := make(Initializers, len(raw))
	for setup, groups := range raw {
		groupTable := make(map[model.IncomeGroup]map[model.ParamName]float64, len(groups))
		for group, values := range groups {
			entry := make(map[model.ParamName]float64, len(values))
			for name, v := range values {
				entry[model.ParamName(name)] = v
			}
			groupTable[model.IncomeGroup(group)] = entry
		}
		table[setup] = groupTable
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("initializers %s: %w", path, err)
	}
	return table, nil
}

// Validate checks that every entry names known setups, known income groups,
// and known parameters.
func (in Initializers) Validate() error {
	known := make(map[model.ParamName]bool, len(model.ParamOrder))
	for _, name := range model.ParamOrder {
		known[name] = true
	}
	for setup, groups := range in {
		if setup != defaultInitializerKey {
			if _, err := LookupSetup(setup); err != nil {
				return err
			}
		}
		for group, values := range groups {
			if group != defaultGroupKey && !group.Valid() {
				return fmt.Errorf("setup %q: unknown income group %q", setup, group)
			}
			for name := range values {
				if !known[name] {
					return fmt.Errorf("setup %q, group %q: unknown parameter %q", setup, group, name)
				}
			}
		}
	}
	return nil
}
