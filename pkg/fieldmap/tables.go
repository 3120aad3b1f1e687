package fieldmap

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed lookups.yaml
var defaultTablesYAML []byte

// Table translates one field's external vocabulary into internal values
type Table struct {
	Values      map[string]string `yaml:"values"`
	Fallback    string            `yaml:"fallback"`
	Passthrough bool              `yaml:"passthrough"`
}

// Lookup maps value. An empty result means the field should be cleared.
func (t Table) Lookup(value string) string {
	if mapped, ok := t.Values[value]; ok {
		return mapped
	}
	if t.Passthrough {
		return value
	}
	return t.Fallback
}

// EmployeeRange is one inclusive band of the employee-count mapping
type EmployeeRange struct {
	Min   int    `yaml:"min"`
	Max   int    `yaml:"max"` // 0 means unbounded
	Label string `yaml:"label"`
}

// Tables is the full set of lookup tables used by the mapper
type Tables struct {
	Salutation     Table           `yaml:"salutation"`
	Status         Table           `yaml:"status"`
	Source         Table           `yaml:"source"`
	Industry       Table           `yaml:"industry"`
	EmployeeRanges []EmployeeRange `yaml:"employee_ranges"`
}

// DefaultTables returns a fresh copy of the built-in tables
func DefaultTables() Tables {
	t, err := ParseTables(defaultTablesYAML)
	if err != nil {
		panic(fmt.Sprintf("fieldmap: embedded lookup tables are invalid: %v", err))
	}
	return t
}

// LoadTables reads tables from path, or returns the defaults when path is empty
func LoadTables(path string) (Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Tables{}, fmt.Errorf("failed to read lookup tables: %w", err)
	}
	return ParseTables(raw)
}

// ParseTables decodes and validates a YAML table document
func ParseTables(raw []byte) (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Tables{}, fmt.Errorf("failed to parse lookup tables: %w", err)
	}
	if err := t.validate(); err != nil {
		return Tables{}, err
	}
	return t, nil
}

func (t Tables) validate() error {
	if len(t.EmployeeRanges) == 0 {
		return fmt.Errorf("lookup tables: employee_ranges must not be empty")
	}
	prevMax := 0
	for i, r := range t.EmployeeRanges {
		if r.Label == "" {
			return fmt.Errorf("lookup tables: employee range %d has no label", i)
		}
		if r.Min <= prevMax {
			return fmt.Errorf("lookup tables: employee range %q overlaps the previous band", r.Label)
		}
		if r.Max == 0 {
			if i != len(t.EmployeeRanges)-1 {
				return fmt.Errorf("lookup tables: only the last employee range may be unbounded")
			}
			break
		}
		if r.Max < r.Min {
			return fmt.Errorf("lookup tables: employee range %q has max below min", r.Label)
		}
		prevMax = r.Max
	}
	return nil
}

// EmployeeBand returns the label of the band containing n, or "" when n is
// outside every band.
func (t Tables) EmployeeBand(n int) string {
	for _, r := range t.EmployeeRanges {
		if n >= r.Min && (r.Max == 0 || n <= r.Max) {
			return r.Label
		}
	}
	return ""
}
