package combo

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wakfulog/wakfulog-go/internal/safefile"
	"github.com/wakfulog/wakfulog-go/internal/textfold"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

const (
	// MaxFileSize is the maximum allowed size for a definitions file (1MB).
	MaxFileSize = 1 * 1024 * 1024

	// MaxSpellCount is the maximum number of spells in a definitions file.
	MaxSpellCount = 1000

	// MaxComboCount is the maximum number of combos in a definitions file.
	MaxComboCount = 256

	// MaxSteps is the maximum length of a single combo.
	MaxSteps = 16

	// SupportedVersion is the currently supported file format version.
	SupportedVersion = 1
)

//go:embed default.yaml
var defaultYAML []byte

var defaultDefs = sync.OnceValues(func() (*Definitions, error) {
	f, err := LoadBytes(defaultYAML)
	if err != nil {
		return nil, err
	}
	return New(f)
})

// Default returns the built-in Iop spell table and combos.
func Default() *Definitions {
	d, err := defaultDefs()
	if err != nil {
		panic("combo: invalid built-in definitions: " + err.Error())
	}
	return d
}

// DefaultYAML returns a copy of the built-in definitions file, suitable as a
// starting point for a custom one.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultYAML))
	copy(out, defaultYAML)
	return out
}

// sanitizePathError removes the path from os.PathError so error messages
// do not expose file system paths.
func sanitizePathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", pathErr.Op, pathErr.Err)
	}
	return err
}

// Load reads and parses a definitions file from the given path.
// Non-regular files (FIFOs, devices, symlinks) are rejected.
func Load(path string) (*File, error) {
	f, info, err := safefile.OpenRegular(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open definitions file: %w", sanitizePathError(err))
	}
	defer f.Close()

	if info.Size() == 0 {
		return nil, errors.New("definitions file is empty")
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("definitions file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions file: %w", sanitizePathError(err))
	}
	return LoadBytes(data)
}

// LoadDefinitions loads path and builds Definitions from it.
func LoadDefinitions(path string) (*Definitions, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return New(f)
}

// LoadBytes parses a definitions file from a byte slice.
func LoadBytes(data []byte) (*File, error) {
	if len(data) == 0 {
		return nil, errors.New("definitions file is empty")
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("definitions file too large: %d bytes (max %d)", len(data), MaxFileSize)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate performs schema-level validation. It checks for:
//   - Supported version number
//   - At least one spell or combo, within count limits
//   - Non-negative spell costs
//   - Combo ids present and unique
//   - Steps that name a known spell or a non-empty cost
func (f *File) Validate() error {
	if f.Version != SupportedVersion {
		return &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (only version %d is supported)", f.Version, SupportedVersion),
		}
	}
	if len(f.Spells) == 0 && len(f.Combos) == 0 {
		return &ValidationError{
			Field:   "spells",
			Message: "at least one spell or combo is required",
		}
	}
	if len(f.Spells) > MaxSpellCount {
		return &ValidationError{
			Field:   "spells",
			Message: fmt.Sprintf("too many spells (%d), maximum allowed is %d", len(f.Spells), MaxSpellCount),
		}
	}
	if len(f.Combos) > MaxComboCount {
		return &ValidationError{
			Field:   "combos",
			Message: fmt.Sprintf("too many combos (%d), maximum allowed is %d", len(f.Combos), MaxComboCount),
		}
	}

	names := make([]string, 0, len(f.Spells))
	for name := range f.Spells {
		names = append(names, name)
	}
	sort.Strings(names)

	folded := make(map[string]string, len(names))
	for _, name := range names {
		sp := f.Spells[name]
		if name == "" {
			return &DefinitionError{Kind: "spell", Index: -1, Field: "name", Message: "name is required"}
		}
		key := textfold.Fold(name)
		if prev, ok := folded[key]; ok {
			return &DefinitionError{
				Kind: "spell", Index: -1, ID: name, Field: "name",
				Message: fmt.Sprintf("same name as %q once accents and case are ignored", prev),
			}
		}
		folded[key] = name
		if negative(sp.Cost) {
			return &DefinitionError{Kind: "spell", Index: -1, ID: name, Field: "cost", Message: "cost must not be negative"}
		}
		for gauge := range sp.Gains {
			if gauge == "" {
				return &DefinitionError{Kind: "spell", Index: -1, ID: name, Field: "gains", Message: "gauge name is required"}
			}
		}
	}

	seenIDs := make(map[string]int, len(f.Combos))
	for i, c := range f.Combos {
		if c.ID == "" {
			return &DefinitionError{Kind: "combo", Index: i, Field: "id", Message: "id is required"}
		}
		if prev, exists := seenIDs[c.ID]; exists {
			return &DefinitionError{
				Kind: "combo", Index: i, ID: c.ID, Field: "id",
				Message: fmt.Sprintf("duplicate id (previously defined at combos[%d])", prev),
			}
		}
		seenIDs[c.ID] = i

		if len(c.Steps) == 0 {
			return &DefinitionError{Kind: "combo", Index: i, ID: c.ID, Field: "steps", Message: "at least one step is required"}
		}
		if len(c.Steps) > MaxSteps {
			return &DefinitionError{
				Kind: "combo", Index: i, ID: c.ID, Field: "steps",
				Message: fmt.Sprintf("too many steps (%d), maximum allowed is %d", len(c.Steps), MaxSteps),
			}
		}
		for j, s := range c.Steps {
			field := fmt.Sprintf("steps[%d]", j)
			if s.Spell == "" && s.Cost == nil {
				return &DefinitionError{Kind: "combo", Index: i, ID: c.ID, Field: field, Message: "spell or cost is required"}
			}
			if s.Spell != "" {
				if _, ok := folded[textfold.Fold(s.Spell)]; !ok {
					return &DefinitionError{
						Kind: "combo", Index: i, ID: c.ID, Field: field,
						Message: fmt.Sprintf("unknown spell %q", s.Spell),
					}
				}
			}
			if s.Cost != nil && (s.Cost.IsZero() || negative(*s.Cost)) {
				return &DefinitionError{Kind: "combo", Index: i, ID: c.ID, Field: field, Message: "cost must be positive"}
			}
		}
	}

	return nil
}

func negative(c event.Cost) bool {
	return c.PA < 0 || c.PM < 0 || c.PW < 0
}
