package models

import "errors"

var (
	// ErrRecordNotFound the record does not exist, or no longer exists
	ErrRecordNotFound = errors.New("record not found")

	// ErrOptimisticLockConflict the stored record version no longer matches the version
	// the caller last read
	ErrOptimisticLockConflict = errors.New("record was modified by someone else")

	// ErrNoSelection an operation needing a selected record was issued with none selected
	ErrNoSelection = errors.New("no record selected")
)
