// Package translator provides identifier-keyed dispatch from a file's
// configured translator id to the Translator that turns rows into output
// lines, mirroring the corpus's tagged-strategy dispatch pattern.
package translator

import (
	"errors"
	"fmt"

	batchworker "github.com/acme/batchworker"
)

// ErrTranslatorNotRegistered is returned when a file names a translator id
// that was never registered.
var ErrTranslatorNotRegistered = errors.New("translator: identifier not registered")

// ErrAlreadyRegistered is returned by Register when called twice for the
// same id.
var ErrAlreadyRegistered = errors.New("translator: identifier already registered")

// Translator turns a row into one output line. The package-level
// TranslateBatch defaults to per-row application of Translate unless the
// implementation also implements BatchTranslator.
type Translator interface {
	Translate(row batchworker.Row) (string, error)
}

// BatchTranslator is an optional capability a Translator may also
// implement to translate a page more efficiently than row-by-row.
type BatchTranslator interface {
	TranslateBatch(rows []batchworker.Row) ([]string, error)
}

// TranslateBatch applies t to each row, using t's own TranslateBatch if it
// implements BatchTranslator, falling back to per-row Translate otherwise.
func TranslateBatch(t Translator, rows []batchworker.Row) ([]string, error) {
	if b, ok := t.(BatchTranslator); ok {
		return b.TranslateBatch(rows)
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		line, err := t.Translate(row)
		if err != nil {
			return nil, fmt.Errorf("translating row %d: %w", i, err)
		}
		lines[i] = line
	}
	return lines, nil
}

// Registry is a fail-fast, identifier-keyed lookup from translator id to
// Translator, populated once at startup.
type Registry struct {
	translators map[string]Translator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{translators: make(map[string]Translator)}
}

// Register adds t under id. It returns ErrAlreadyRegistered if id was
// already registered.
func (r *Registry) Register(id string, t Translator) error {
	if _, exists := r.translators[id]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, id)
	}
	r.translators[id] = t
	return nil
}

// Lookup returns the Translator registered under id, or
// ErrTranslatorNotRegistered if none was.
func (r *Registry) Lookup(id string) (Translator, error) {
	t, ok := r.translators[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTranslatorNotRegistered, id)
	}
	return t, nil
}
