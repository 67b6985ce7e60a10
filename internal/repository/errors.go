package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrDuplicate reports a unique-constraint violation.
var ErrDuplicate = errors.New("duplicate record")

// translate maps driver-level integrity errors to ErrDuplicate and leaves
// everything else untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key") {
		return ErrDuplicate
	}
	return err
}
