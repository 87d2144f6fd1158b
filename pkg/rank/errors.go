package rank

import "errors"

var (
	// ErrUnknownMode is returned when a sort mode name is not recognized.
	ErrUnknownMode = errors.New("unknown sort mode")

	// ErrUnknownControl is returned for a sort control id with no mode.
	ErrUnknownControl = errors.New("unknown sort control")

	// ErrClusterNotFound is returned when a selected id is not in the board.
	ErrClusterNotFound = errors.New("cluster not found")

	// ErrScoringFailed is returned for a payload the service marked unsuccessful.
	ErrScoringFailed = errors.New("scoring failed")
)
