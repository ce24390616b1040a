package database

import (
	"errors"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrInvalidStatus is returned when a caller supplies a run status outside
// the allowed set. It is detected before any write happens.
var ErrInvalidStatus = errors.New("run status must be success, partial, or failure")

// StorageError wraps any non-constraint database failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }
func (e *StorageError) Unwrap() error { return e.Err }

// IntegrityError wraps a constraint violation: duplicate canonical key,
// duplicate (run, product) snapshot, or an orphan foreign key.
type IntegrityError struct {
	Op  string
	Err error
}

func (e *IntegrityError) Error() string { return "integrity violation: " + e.Op + ": " + e.Err.Error() }
func (e *IntegrityError) Unwrap() error { return e.Err }

// isConstraintViolation detects SQLite constraint failures by result code.
// Extended codes (e.g. SQLITE_CONSTRAINT_UNIQUE, 2067) carry the primary
// code in their low byte.
func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
