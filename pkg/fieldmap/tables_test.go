package fieldmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmployeeBand(t *testing.T) {
	tables := DefaultTables()

	tests := []struct {
		n    int
		want string
	}{
		{0, ""},
		{1, "1-10"},
		{10, "1-10"},
		{11, "11-50"},
		{200, "51-200"},
		{500, "201-500"},
		{1000, "501-1000"},
		{1001, "1000+"},
		{1500, "1000+"},
		{-4, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tables.EmployeeBand(tt.n), "employees=%d", tt.n)
	}
}

func TestTableLookup(t *testing.T) {
	tables := DefaultTables()

	assert.Equal(t, "Mr", tables.Salutation.Lookup("Mr."))
	assert.Equal(t, "", tables.Salutation.Lookup("-None-"))
	assert.Equal(t, "", tables.Salutation.Lookup("Sir"))

	assert.Equal(t, "Replied", tables.Status.Lookup("Contacted"))
	assert.Equal(t, "Open", tables.Status.Lookup("Something new"))

	assert.Equal(t, "Exhibition", tables.Source.Lookup("Trade Show"))
	assert.Equal(t, "Advertisement", tables.Source.Lookup("Linkedin"))
	assert.Equal(t, "", tables.Source.Lookup("-None-"))

	assert.Equal(t, "Defense", tables.Industry.Lookup("Government/Military"))
	assert.Equal(t, "Aerospace", tables.Industry.Lookup("Aerospace"))
	assert.Equal(t, "", tables.Industry.Lookup("-None-"))
}

func TestDefaultTables_ReturnsIndependentCopies(t *testing.T) {
	a := DefaultTables()
	a.Status.Values["Contacted"] = "changed"

	b := DefaultTables()
	assert.Equal(t, "Replied", b.Status.Values["Contacted"])
}

func TestParseTables_Validation(t *testing.T) {
	t.Run("Error - no employee ranges", func(t *testing.T) {
		_, err := ParseTables([]byte("status:\n  fallback: Open\n"))
		assert.ErrorContains(t, err, "employee_ranges")
	})

	t.Run("Error - overlapping bands", func(t *testing.T) {
		raw := []byte(`
employee_ranges:
  - {min: 1, max: 10, label: "1-10"}
  - {min: 5, max: 20, label: "5-20"}
`)
		_, err := ParseTables(raw)
		assert.ErrorContains(t, err, "overlaps")
	})

	t.Run("Error - unbounded band not last", func(t *testing.T) {
		raw := []byte(`
employee_ranges:
  - {min: 1, max: 0, label: "1+"}
  - {min: 5, max: 20, label: "5-20"}
`)
		_, err := ParseTables(raw)
		assert.ErrorContains(t, err, "unbounded")
	})

	t.Run("Error - malformed yaml", func(t *testing.T) {
		_, err := ParseTables([]byte("employee_ranges: [oops"))
		assert.ErrorContains(t, err, "failed to parse")
	})
}

func TestLoadTables(t *testing.T) {
	t.Run("Success - empty path uses defaults", func(t *testing.T) {
		tables, err := LoadTables("")
		require.NoError(t, err)
		assert.Len(t, tables.EmployeeRanges, 6)
	})

	t.Run("Success - override file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lookups.yaml")
		raw := []byte(`
status:
  values:
    "Contacted": "Converted"
  fallback: "Lead"
employee_ranges:
  - {min: 1, max: 0, label: "any"}
`)
		require.NoError(t, os.WriteFile(path, raw, 0o600))

		tables, err := LoadTables(path)
		require.NoError(t, err)
		assert.Equal(t, "Converted", tables.Status.Lookup("Contacted"))
		assert.Equal(t, "Lead", tables.Status.Lookup("-None-"))
		assert.Equal(t, "any", tables.EmployeeBand(99999))
	})

	t.Run("Error - missing file", func(t *testing.T) {
		_, err := LoadTables(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read")
	})
}
