package workersdk

import (
	"github.com/wippyai/worker-sdk/errors"
)

// ValidEntityID reports whether id can name an entity. Entity ids are
// strictly positive.
func ValidEntityID(id int64) bool {
	return id > 0
}

// CheckEntityID returns an invalid entity id error for ids that are not
// strictly positive.
func CheckEntityID(phase errors.Phase, id int64) error {
	if !ValidEntityID(id) {
		return errors.InvalidEntityID(phase, id)
	}
	return nil
}
