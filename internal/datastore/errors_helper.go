package datastore

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/tphakala/skyarchive/internal/datastore/repository"
	"github.com/tphakala/skyarchive/internal/errors"
)

// dbError creates a database-category error with context pairs.
func dbError(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)
	return withPairs(builder, context).Build()
}

// archiveUnavailable marks a transport failure; the pipeline retries these.
func archiveUnavailable(err error, operation string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryArchiveUnavailable).
		Context("operation", operation)
	return withPairs(builder, context).Build()
}

// validationError creates a validation error for bad caller input.
func validationError(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("datastore").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", fmt.Sprintf("%v", value)).
		Build()
}

// notFoundError wraps a repository sentinel so errors.Is still matches it.
func notFoundError(err error, resource, identifier string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("resource", resource).
		Context("identifier", identifier).
		Build()
}

func withPairs(builder *errors.ErrorBuilder, context []any) *errors.ErrorBuilder {
	for i := 0; i+1 < len(context); i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}
	return builder
}

// classify wraps err from a repository call in the category that decides how
// the pipeline treats it.
func classify(err error, operation string, context ...any) error {
	if err == nil {
		return nil
	}
	var enhanced *errors.EnhancedError
	if errors.As(err, &enhanced) {
		return err
	}
	if errors.Is(err, repository.ErrInvalidInput) {
		return validationError(err.Error(), operation, context)
	}
	if isTransient(err) {
		return archiveUnavailable(err, operation, context...)
	}
	return dbError(err, operation, context...)
}

// transientMarkers are driver messages for failures that a retry may cure.
var transientMarkers = []string{
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"connection refused",
	"connection reset",
	"broken pipe",
	"invalid connection",
	"bad connection",
	"i/o timeout",
	"server has gone away",
	"too many connections",
	"lock wait timeout",
	"deadlock found",
}

func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
