package auth

import "errors"

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures, wrong
	// algorithms and wrong token types.  No refresh is attempted.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired comes from Live.  Resolve answers it with the refresh
	// path and never returns it.
	ErrTokenExpired = errors.New("token expired")
	// ErrRefreshExpired means the refresh half is missing, mismatched or past
	// its expiry.  The client must log in again.
	ErrRefreshExpired = errors.New("refresh token expired")
	// ErrRefreshInvalid means the stored refresh token fails verification.
	ErrRefreshInvalid = errors.New("refresh token invalid")
	// ErrTokenNotFound means a well-formed token is not held by any
	// credential row.
	ErrTokenNotFound = errors.New("token not found")
)
