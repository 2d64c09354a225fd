package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrAuthMissing     = fmt.Errorf("credential missing")
	ErrAuthInvalid     = fmt.Errorf("credential invalid")
	ErrSessionNotFound = fmt.Errorf("session not found")
	ErrUserNotFound    = fmt.Errorf("user not found")
	ErrMessageNotFound = fmt.Errorf("message not found")
	ErrAccessDenied    = fmt.Errorf("access denied")
	ErrInvalidPayload  = fmt.Errorf("invalid payload")
	ErrStorage         = fmt.Errorf("storage failure")
	ErrWorkerPanic     = fmt.Errorf("worker panic")
)

// PublicMessage maps an internal error onto the text carried by an outbound
// error event. Storage internals never leak to the caller.
func PublicMessage(err error) string {
	switch {
	case stderrors.Is(err, ErrSessionNotFound):
		return ErrSessionNotFound.Error()
	case stderrors.Is(err, ErrAccessDenied):
		return ErrAccessDenied.Error()
	case stderrors.Is(err, ErrInvalidPayload):
		return ErrInvalidPayload.Error()
	case stderrors.Is(err, ErrAuthMissing):
		return ErrAuthMissing.Error()
	case stderrors.Is(err, ErrAuthInvalid):
		return ErrAuthInvalid.Error()
	default:
		return "internal error"
	}
}
