package apperrors

import (
	"errors"
)

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrCredentialInvalid  = errors.New("credential is invalid")
	ErrLoginFailed        = errors.New("login to identity service failed")

	ErrTextTooShort     = errors.New("text is too short")
	ErrNotEnoughCredits = errors.New("not enough credits")
	ErrUnknownResponse  = errors.New("unknown response")
)
