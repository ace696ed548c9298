package domain

import "fmt"

// Purpose namespaces verification codes so a signup code cannot confirm a reset.
type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeReset  Purpose = "reset"
	PurposeUpdate Purpose = "update"
)

// ParsePurpose validates a purpose received from a caller.
func ParsePurpose(s string) (Purpose, error) {
	switch p := Purpose(s); p {
	case PurposeSignup, PurposeReset, PurposeUpdate:
		return p, nil
	}
	return "", fmt.Errorf("unknown verification purpose %q: %w", s, ErrBadRequest)
}

type SendCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ValidateCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}
