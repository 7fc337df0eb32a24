package refs

import (
	"errors"
	"fmt"
)

// Sentinel errors for the reference backend. Call sites wrap these with
// context via fmt.Errorf("...: %w", err); match with errors.Is.
var (
	// ErrNotFound means the name is absent from both the loose and the
	// packed store.
	ErrNotFound = errors.New("reference not found")

	// ErrInvalidName means normalization rejected the input.
	ErrInvalidName = errors.New("invalid reference name")

	// ErrExists means a creation or rename without force targeted an
	// occupied name, or a name that prefix-conflicts with an existing ref.
	ErrExists = errors.New("reference already exists")

	// ErrInvalidTarget means the target OID is not in the object database,
	// or a symbolic target failed normalization.
	ErrInvalidTarget = errors.New("invalid reference target")

	// ErrCorruptedLoose means a loose reference file is unparseable.
	ErrCorruptedLoose = errors.New("corrupted loose reference")

	// ErrPackedRefsCorrupt means the packed-refs file is unparseable.
	ErrPackedRefsCorrupt = errors.New("corrupt packed-refs file")

	// ErrTooNested means symbolic resolution exceeded MaxNestingLevel.
	ErrTooNested = errors.New("symbolic reference chain too deep")
)

// CorruptError reports an unparseable reference file with the path and the
// parse failure. It matches ErrCorruptedLoose or ErrPackedRefsCorrupt
// through errors.Is depending on which store the file belongs to.
type CorruptError struct {
	Path     string
	Reason   string
	sentinel error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Path, e.sentinel, e.Reason)
}

func (e *CorruptError) Is(target error) bool {
	return target == e.sentinel
}

func corruptLoose(path, reason string) error {
	return &CorruptError{Path: path, Reason: reason, sentinel: ErrCorruptedLoose}
}

func corruptPacked(path, reason string) error {
	return &CorruptError{Path: path, Reason: reason, sentinel: ErrPackedRefsCorrupt}
}
