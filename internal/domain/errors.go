package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalid             = errors.New("invalid input")
	ErrPlanLimit           = errors.New("plan limit reached")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrUnavailable         = errors.New("dates unavailable")
)
