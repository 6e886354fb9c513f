package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes and user-facing
// reasons without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrRateLimited  = errors.New("rate limited")
	ErrPersistence  = errors.New("persistence failed")
	ErrInvalidCode  = errors.New("invalid code")
	ErrCodeExpired  = errors.New("code expired")
	ErrDispatch     = errors.New("dispatch failed")
	ErrUnauthorized = errors.New("unauthorized")
)
