package dto

import (
	"time"

	"github.com/campusvoice/complaint-service/internal/domain"
)

// RegisterRequest payload for student self-registration.
type RegisterRequest struct {
	Username        string   `json:"username" validate:"required,min=3,max=150"`
	Email           string   `json:"email" validate:"required,email,max=254"`
	Name            string   `json:"name" validate:"required,max=255"`
	GPA             *float64 `json:"gpa" validate:"omitempty,gte=0,lte=4"`
	Password        string   `json:"password" validate:"required,min=8,max=128"`
	PasswordConfirm string   `json:"password_confirm" validate:"required"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// PasswordResetRequest starts a reset.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest redeems a reset token.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// UserResponse is the public shape of an account.
type UserResponse struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email"`
	Name         string      `json:"name"`
	Role         domain.Role `json:"role"`
	DepartmentID *string     `json:"department_id"`
	GPA          *float64    `json:"gpa,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token         string       `json:"token"`
	ExpiresAt     time.Time    `json:"expires_at"`
	DashboardPath string       `json:"dashboard_path"`
	User          UserResponse `json:"user"`
}

// ProfileResponse is returned by /auth/me.
type ProfileResponse struct {
	User          UserResponse `json:"user"`
	DashboardPath string       `json:"dashboard_path"`
}

// CreateUserRequest payload for admin account creation.
type CreateUserRequest struct {
	Username     string   `json:"username" validate:"required,min=3,max=150"`
	Email        string   `json:"email" validate:"required,email,max=254"`
	Name         string   `json:"name" validate:"max=255"`
	Password     string   `json:"password" validate:"required,min=8,max=128"`
	Role         string   `json:"role" validate:"required,oneof=Student DepartmentManager GeneralManager"`
	DepartmentID *string  `json:"department_id"`
	GPA          *float64 `json:"gpa" validate:"omitempty,gte=0,lte=4"`
}

// UpdateUserRequest holds optional account changes.
type UpdateUserRequest struct {
	Email        *string  `json:"email" validate:"omitempty,email,max=254"`
	Name         *string  `json:"name" validate:"omitempty,max=255"`
	Role         *string  `json:"role" validate:"omitempty,oneof=Student DepartmentManager GeneralManager"`
	DepartmentID *string  `json:"department_id"`
	GPA          *float64 `json:"gpa" validate:"omitempty,gte=0,lte=4"`
	Password     *string  `json:"password" validate:"omitempty,min=8,max=128"`
}

// DepartmentRequest creates or renames a department.
type DepartmentRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// DepartmentResponse payload.
type DepartmentResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
