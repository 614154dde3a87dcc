package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrVersionNotFound = errors.New("content version not found")
)

// IsNotFound reports whether err is a record-missing condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrVersionNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsSerializationFailure reports whether err is a transaction conflict
// that is safe to retry. Covers the postgres serialization/deadlock
// SQLSTATEs and sqlite busy errors.
func IsSerializationFailure(err error) bool {
	if err == nil {
		return false
	}

	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 40001") ||
		strings.Contains(msg, "SQLSTATE 40P01") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// IsUniqueViolation reports whether err is a unique-constraint breach.
// The scope+number index turns a double allocation into one of these,
// so the losing transaction can re-run and pick a fresh number.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
