package repository

import (
	"errors"

	"kidshield/internal/database"
)

var (
	// ErrDuplicate is returned when an insert hits a unique constraint
	ErrDuplicate = errors.New("duplicate record")
	// ErrMissingReference is returned when an insert references a row that does not exist
	ErrMissingReference = errors.New("referenced record does not exist")
)

// classify maps driver constraint errors onto repository sentinels. Other
// errors are returned unchanged.
func classify(db database.DBTX, err error) error {
	switch {
	case err == nil:
		return nil
	case db.GetDialect().IsUniqueViolation(err):
		return errors.Join(ErrDuplicate, err)
	case db.GetDialect().IsForeignKeyViolation(err):
		return errors.Join(ErrMissingReference, err)
	default:
		return err
	}
}
