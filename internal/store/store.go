// Package store persists behavior files for the backend.
package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joeycumines/bt-inspector/internal/protocol"
)

var (
	// ErrNotFound is returned when loading a file id the store does not hold.
	ErrNotFound = errors.New("store: file not found")

	// ErrWouldBlock is returned when another process holds the store lock.
	ErrWouldBlock = errors.New("store: directory is locked by another process")

	// ErrInvalidEntry is returned for ids or names that cannot be stored.
	ErrInvalidEntry = errors.New("store: invalid entry")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Store holds behavior files keyed by id.
type Store interface {
	// List returns every stored file, sorted by name then id.
	List() ([]protocol.FileEntry, error)
	// Load returns a file's data, or ErrNotFound.
	Load(id protocol.FileID) (protocol.FileData, error)
	// Save creates or replaces a file.
	Save(id protocol.FileID, name protocol.FileName, data protocol.FileData) error
	// Close releases the store.
	Close() error
}

// validate is a singleton validator instance
var validate = validator.New()

// entry is the validated form of a file entry. Ids become file names, so path
// separators and leading dots are rejected.
type entry struct {
	ID   string `validate:"required,max=128,printascii,excludesall=/\\:*?<>0x7C,excludes=.."`
	Name string `validate:"required,max=256"`
}

// ValidateName reports whether name is acceptable as a stored file's name,
// applying the same rules as Save.
func ValidateName(name protocol.FileName) error {
	if err := validate.Var(string(name), "required,max=256"); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return fmt.Errorf("%w name %q: failed %s", ErrInvalidEntry, name, ve[0].Tag())
		}
		return fmt.Errorf("%w name %q: %v", ErrInvalidEntry, name, err)
	}
	return nil
}

func validateEntry(id protocol.FileID, name protocol.FileName) error {
	if err := validate.Struct(entry{ID: string(id), Name: string(name)}); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, 0, len(ve))
			for _, e := range ve {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(e.Field()), e.Tag()))
			}
			return fmt.Errorf("%w %q: %s", ErrInvalidEntry, id, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w %q: %v", ErrInvalidEntry, id, err)
	}
	if strings.HasPrefix(string(id), ".") {
		return fmt.Errorf("%w %q: id must not start with a dot", ErrInvalidEntry, id)
	}
	return nil
}
