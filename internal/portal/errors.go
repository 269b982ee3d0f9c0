package portal

import "fmt"

// Error kinds per pipeline stage. Transport faults (timeouts, DNS, non-JSON
// bodies) collapse into the NetworkError kind of the stage they hit; callers
// branch on kinds, never on raw transport errors.

type AuthErrorKind string

const (
	AuthNetworkError       AuthErrorKind = "network_error"
	AuthInvalidCredentials AuthErrorKind = "invalid_credentials"
	AuthRedirectFailed     AuthErrorKind = "redirect_failed"
)

// AuthError is a login-sequence failure.
type AuthError struct {
	Kind AuthErrorKind
	Msg  string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("auth %s: %s", e.Kind, e.Msg)
}

func (e *AuthError) Unwrap() error { return e.Err }

type FetchErrorKind string

const (
	FetchNetworkError      FetchErrorKind = "network_error"
	FetchEmpty             FetchErrorKind = "empty"
	FetchMalformedResponse FetchErrorKind = "malformed_response"
)

// FetchError is a catalog or history retrieval failure. The Empty kind is
// recoverable: it means no buses are scheduled, not that the call broke.
type FetchError struct {
	Kind FetchErrorKind
	Msg  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Kind, e.Msg)
}

func (e *FetchError) Unwrap() error { return e.Err }

type ReserveErrorKind string

const (
	ReserveNetworkError          ReserveErrorKind = "network_error"
	ReserveLaunchRejected        ReserveErrorKind = "launch_rejected"
	ReserveNoMatchingReservation ReserveErrorKind = "no_matching_reservation"
	ReserveQRNotFound            ReserveErrorKind = "qr_not_found"
)

// ReserveError is a reservation-workflow failure.
type ReserveError struct {
	Kind ReserveErrorKind
	Msg  string
	Err  error
}

func (e *ReserveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reserve %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("reserve %s: %s", e.Kind, e.Msg)
}

func (e *ReserveError) Unwrap() error { return e.Err }
