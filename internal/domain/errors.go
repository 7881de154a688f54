package domain

import "errors"

// ErrStoreDisabled is returned when run history is requested without a database.
var ErrStoreDisabled = errors.New("run store is not configured")
