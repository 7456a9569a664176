package goIdentity

import "errors"

// UserMessage turns an error returned by a Manager method into text fit for
// an end user. Unknown errors fall back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var oe *OpError
	remoteLogout := errors.As(err, &oe) && oe.Op == "logout"

	switch {
	case remoteLogout:
		return "You have been signed out on this device, but the server could not confirm it."
	case errors.Is(err, ErrInvalidInput):
		return "Please fill in all required fields."
	case errors.Is(err, ErrInvalidCredentials):
		return "Incorrect email or password."
	case errors.Is(err, ErrAccountLocked):
		return "This account is locked. Contact an administrator."
	case errors.Is(err, ErrRateLimited):
		return "Too many attempts. Wait a moment and try again."
	case errors.Is(err, ErrProfileNotFound):
		return "Your account is not registered in this application. Contact an administrator."
	case errors.Is(err, ErrSessionSuperseded):
		return "You were signed out while signing in. Please sign in again."
	case errors.Is(err, ErrSessionMissing), errors.Is(err, ErrNotAuthenticated):
		return "Your session has ended. Please sign in again."
	case errors.Is(err, ErrChallengeCreationFailed):
		return "Could not start verification. Please try again."
	case errors.Is(err, ErrEnrollmentExpired):
		return "The setup session expired. Start the authenticator setup again."
	case errors.Is(err, ErrChallengeExpired):
		return "The verification session expired. Request a new code and try again."
	case errors.Is(err, ErrMFACodeRejected):
		return "The code is incorrect. Check your authenticator app and try again."
	case errors.Is(err, ErrFactorAlreadyExists):
		return "An authenticator is already registered. Disable it before adding a new one."
	case errors.Is(err, ErrFactorIDMissing):
		return "Could not retrieve the authenticator id from the server. Please try again."
	case errors.Is(err, ErrPartialDisable):
		return "Some authenticators could not be removed. Please try again."
	case errors.Is(err, ErrIllegalTransition):
		return "That step is not available right now. Restart the authenticator setup."
	case errors.Is(err, ErrBackendUnavailable):
		return "The sign-in service is unavailable. Try again later."
	default:
		return err.Error()
	}
}

// Retryable reports whether repeating the same action with the same input,
// possibly after a restart of the flow, can succeed without administrator
// help. A wrong code or password is final.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrChallengeExpired),
		errors.Is(err, ErrEnrollmentExpired),
		errors.Is(err, ErrFactorAlreadyExists),
		errors.Is(err, ErrChallengeCreationFailed),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrBackendUnavailable),
		errors.Is(err, ErrPartialDisable),
		errors.Is(err, ErrSessionSuperseded):
		return true
	default:
		return false
	}
}
