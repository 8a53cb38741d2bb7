package dto

import (
	"strings"
	"time"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate aggregates all field errors into one message.
func (r *RegisterRequest) Validate() error {
	var problems []string
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		problems = append(problems, "email must be a valid address")
	}
	if r.Username == "" {
		problems = append(problems, "username is required")
	}
	if len(r.Password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	return joinProblems(problems)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	var problems []string
	if r.Email == "" {
		problems = append(problems, "email is required")
	}
	if r.Password == "" {
		problems = append(problems, "password is required")
	}
	return joinProblems(problems)
}

type RefreshRequest struct {
	Token string `json:"token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenPairResponse struct {
	AccessToken           string    `json:"accessToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshToken          string    `json:"refreshToken"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}

type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &validationError{msg: strings.Join(problems, "; ")}
}
