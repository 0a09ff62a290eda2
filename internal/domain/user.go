package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of actor kinds.
type Role string

const (
	RoleStudent           Role = "Student"
	RoleDepartmentManager Role = "DepartmentManager"
	RoleGeneralManager    Role = "GeneralManager"
)

// ParseRole converts a raw string into a Role, rejecting anything outside the enum.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleStudent, RoleDepartmentManager, RoleGeneralManager:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// DashboardPath returns the landing route for the role.
func (r Role) DashboardPath() string {
	switch r {
	case RoleStudent:
		return "/student"
	case RoleDepartmentManager:
		return "/department"
	case RoleGeneralManager:
		return "/general"
	}
	panic(fmt.Sprintf("domain: unhandled role %q", string(r)))
}

// User is an authenticated actor: a student or one of the two manager kinds.
type User struct {
	ID           string
	Username     string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	DepartmentID *string
	GPA          *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsManagerOf reports whether the user manages the given department.
func (u *User) IsManagerOf(departmentID *string) bool {
	if u == nil || u.Role != RoleDepartmentManager || u.DepartmentID == nil || departmentID == nil {
		return false
	}
	return *u.DepartmentID == *departmentID
}
