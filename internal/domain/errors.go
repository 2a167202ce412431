package domain

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrCredentialNotFound  = errors.New("credential not found")
	ErrUpstreamUnavailable = errors.New("coolify unavailable")
)
