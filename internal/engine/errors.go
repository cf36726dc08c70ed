package engine

import "errors"

// Engine failures are local and recoverable: either the input is invalid or
// it references an entity the snapshot no longer has. Both leave the ledger
// untouched.
var (
	// ErrValidation marks invalid or missing required input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referential gap: an operation pointed at an
	// entity id that is not in the snapshot. The operation is a no-op.
	ErrNotFound = errors.New("entity not found")
)

func validationErr(err error) error {
	return errors.Join(ErrValidation, err)
}
