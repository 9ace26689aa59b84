package combo_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/combo"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

func TestLoad_Valid(t *testing.T) {
	f, err := combo.Load("testdata/valid.yaml")
	require.NoError(t, err)
	assert.Equal(t, 1, f.Version)
	assert.Len(t, f.Spells, 2)
	require.Len(t, f.Combos, 2)
	assert.Equal(t, "ouverture", f.Combos[0].ID)
	assert.Equal(t, event.Cost{PA: 2}, f.Spells["Épée de Feu"].Cost)
	assert.Equal(t, 10, f.Spells["Épée de Feu"].Gains["Concentration"])
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	_, err := combo.Load("testdata/unsupported_version.yaml")
	require.Error(t, err)
	var valErr *combo.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Contains(t, err.Error(), "unsupported version")
}

func TestLoad_DefinitionErrors(t *testing.T) {
	tests := []struct {
		file    string
		wantMsg string
	}{
		{"testdata/duplicate_id.yaml", "duplicate id"},
		{"testdata/unknown_spell.yaml", `unknown spell "Fulgur"`},
		{"testdata/empty_step.yaml", "spell or cost is required"},
		{"testdata/missing_id.yaml", "id is required"},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.file), func(t *testing.T) {
			_, err := combo.Load(tt.file)
			require.Error(t, err)
			var defErr *combo.DefinitionError
			require.True(t, errors.As(err, &defErr), "got %T", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := combo.Load("testdata/nonexistent.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open definitions file")
	assert.NotContains(t, err.Error(), "testdata")
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := combo.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestLoad_Directory(t *testing.T) {
	_, err := combo.Load(t.TempDir())
	require.Error(t, err)
}

func TestLoadDefinitions(t *testing.T) {
	defs, err := combo.LoadDefinitions("testdata/valid.yaml")
	require.NoError(t, err)

	c, ok := defs.Combo("double_feu")
	require.True(t, ok)
	assert.Equal(t, "double_feu", c.Name, "name defaults to id")
}

func TestLoadBytes_TooLarge(t *testing.T) {
	data := []byte("version: 1\n# " + strings.Repeat("x", combo.MaxFileSize))
	_, err := combo.LoadBytes(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestLoadBytes_InvalidYAML(t *testing.T) {
	_, err := combo.LoadBytes([]byte("version: [1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidate(t *testing.T) {
	pa := func(n int) *event.Cost { return &event.Cost{PA: n} }

	tests := []struct {
		name    string
		file    combo.File
		wantErr string
	}{
		{
			name:    "nothing defined",
			file:    combo.File{Version: 1},
			wantErr: "at least one spell or combo",
		},
		{
			name: "negative spell cost",
			file: combo.File{Version: 1, Spells: map[string]combo.Spell{
				"Bond": {Cost: event.Cost{PM: -1}},
			}},
			wantErr: "must not be negative",
		},
		{
			name: "accent duplicate",
			file: combo.File{Version: 1, Spells: map[string]combo.Spell{
				"Épée de Feu": {Cost: event.Cost{PA: 2}},
				"epee de feu": {Cost: event.Cost{PA: 2}},
			}},
			wantErr: "accents and case",
		},
		{
			name: "zero step cost",
			file: combo.File{Version: 1, Combos: []combo.Combo{
				{ID: "a", Steps: []combo.Step{{Cost: &event.Cost{}}}},
			}},
			wantErr: "cost must be positive",
		},
		{
			name: "no steps",
			file: combo.File{Version: 1, Combos: []combo.Combo{
				{ID: "a"},
			}},
			wantErr: "at least one step",
		},
		{
			name: "too many steps",
			file: combo.File{Version: 1, Combos: []combo.Combo{
				{ID: "a", Steps: make([]combo.Step, combo.MaxSteps+1)},
			}},
			wantErr: "too many steps",
		},
		{
			name: "valid",
			file: combo.File{Version: 1, Combos: []combo.Combo{
				{ID: "a", Steps: []combo.Step{{Cost: pa(1)}, {Cost: pa(2)}}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.file.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefault(t *testing.T) {
	defs := combo.Default()

	combos := defs.Combos()
	require.Len(t, combos, 5)
	assert.Equal(t, "Vol de Vie", combos[0].Name)
	assert.Equal(t, "Combo PA", combos[4].Name)
	assert.Len(t, combos[4].Steps, 4)

	name, sp, ok := defs.Spell("EPEE DE FEU")
	require.True(t, ok)
	assert.Equal(t, "Épée de Feu", name)
	assert.Equal(t, event.Cost{PA: 2}, sp.Cost)

	_, _, ok = defs.Spell("Flèche Explosive")
	assert.False(t, ok)

	assert.Contains(t, defs.SpellNames(), "Charge")
	assert.Equal(t, []string{"combo_4"}, defs.Starting("Épée de Feu", event.Cost{PA: 2}))
	assert.Equal(t, []string{"combo_1", "combo_3"}, defs.Starting("Bond", event.Cost{PM: 1}))
}

func TestDefaultYAML_IsCopy(t *testing.T) {
	a := combo.DefaultYAML()
	a[0] = '!'
	b := combo.DefaultYAML()
	assert.NotEqual(t, a[0], b[0])

	f, err := combo.LoadBytes(b)
	require.NoError(t, err)
	assert.Len(t, f.Combos, 5)
}

func TestStep_Matches(t *testing.T) {
	pa2 := &event.Cost{PA: 2}

	tests := []struct {
		name  string
		step  combo.Step
		spell string
		cost  event.Cost
		want  bool
	}{
		{"cost only", combo.Step{Cost: pa2}, "Anything", event.Cost{PA: 2}, true},
		{"cost differs", combo.Step{Cost: pa2}, "Anything", event.Cost{PA: 3}, false},
		{"spell only, folded", combo.Step{Spell: "Épée de Feu"}, "epee de feu", event.Cost{PA: 9}, true},
		{"spell differs", combo.Step{Spell: "Épée de Feu"}, "Fulgur", event.Cost{PA: 2}, false},
		{"both required", combo.Step{Spell: "Épée de Feu", Cost: pa2}, "Épée de Feu", event.Cost{PA: 3}, false},
		{"empty step", combo.Step{}, "Épée de Feu", event.Cost{PA: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.step.Matches(tt.spell, tt.cost))
		})
	}
}
