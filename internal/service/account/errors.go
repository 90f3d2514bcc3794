package account

import "errors"

var (
	ErrEmailInUse               = errors.New("account: email already registered")
	ErrInvalidCredentials       = errors.New("account: invalid email or password")
	ErrEmailNotVerified         = errors.New("account: email not verified")
	ErrVerificationTokenInvalid = errors.New("account: verification token is invalid")
	ErrVerificationTokenExpired = errors.New("account: verification token has expired")
	ErrRefreshTokenInvalid      = errors.New("account: refresh token is invalid")
	ErrClientNotFound           = errors.New("account: client not found")
	ErrAddressNotFound          = errors.New("account: address not found")
)
