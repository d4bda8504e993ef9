package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
)

// IsUniqueViolation reports whether the provided error references a unique
// violation constraint. When constraintName is provided, the helper looks for
// the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// Classify converts GORM-level failures into coded errors: missing rows become
// NOT_FOUND, everything else is considered transient storage trouble.
func Classify(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFoundMsg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeTransient, err, "storage failure")
}
