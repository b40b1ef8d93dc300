package errors

import "errors"

// ErrOptimisticLock the row changed since it was read
var ErrOptimisticLock = errors.New("record was modified by another operation")

// ErrStorageUnavailable the database cannot be reached; runs abort before writing
var ErrStorageUnavailable = errors.New("storage unavailable")
