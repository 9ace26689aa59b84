package combo

import "fmt"

// ValidationError represents a schema-level validation error, such as an
// unsupported version or an empty file.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// DefinitionError reports a problem with a single spell or combo entry.
type DefinitionError struct {
	Kind    string // "spell" or "combo"
	Index   int    // 0-based index for combos, -1 for spells
	ID      string // combo id or spell name (may be empty)
	Field   string
	Message string
	Cause   error
}

func (e *DefinitionError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %q: %s: %s", e.Kind, e.ID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s[%d]: %s: %s", e.Kind, e.Index, e.Field, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *DefinitionError) Unwrap() error {
	return e.Cause
}
