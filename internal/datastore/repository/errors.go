// Package repository provides the archive's table-level access: one interface per
// aggregate, backed by GORM.
package repository

import "github.com/tphakala/skyarchive/internal/errors"

// Sentinel errors for repository operations. Callers match them with errors.Is
// rather than inspecting GORM errors.
var (
	// ErrObservatoryNotFound indicates the requested observatory does not exist.
	ErrObservatoryNotFound = errors.NewStd("observatory not found")

	// ErrObservationNotFound indicates the requested observation does not exist.
	ErrObservationNotFound = errors.NewStd("observation not found")

	// ErrFileNotFound indicates no file is stored under the repository name.
	ErrFileNotFound = errors.NewStd("file not found")

	// ErrGroupNotFound indicates the requested observation group does not exist.
	ErrGroupNotFound = errors.NewStd("observation group not found")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)

// maxBatchParams keeps IN clauses under SQLite's bound-parameter limit.
const maxBatchParams = 500
