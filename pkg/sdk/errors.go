package renoplan

import "errors"

// Sentinel errors mapped from API response statuses.
// Use errors.Is() to check.
var (
	ErrInvalid      = errors.New("renoplan: invalid request")
	ErrUnauthorized = errors.New("renoplan: missing private key")
	ErrForbidden    = errors.New("renoplan: invalid private key")
	ErrRateLimited  = errors.New("renoplan: engine rate limited")
	ErrServer       = errors.New("renoplan: server error")
)
