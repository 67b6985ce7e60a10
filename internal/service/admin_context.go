package service

import (
	"strings"

	"github.com/noah-isme/prezenta-go-api/internal/models"
)

// AdminContext is the verified identity behind an administrative call. It is
// built from the bearer token claims by the HTTP layer.
type AdminContext struct {
	Username string
	Role     string
}

func (a AdminContext) authorize() error {
	if strings.TrimSpace(a.Username) == "" {
		return ErrForbidden
	}
	switch strings.ToLower(a.Role) {
	case models.TeacherRoleAdmin, models.TeacherRoleTeacher:
		return nil
	default:
		return ErrForbidden
	}
}
