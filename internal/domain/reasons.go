package domain

import "errors"

// User-facing reasons, in Danish like the rest of the product surface.
// These are the only strings ever returned in a rejection; internal error
// detail stays in the server logs.
const (
	ReasonInvalidEmail    = "Ugyldig email format"
	ReasonInvalidParams   = "Ugyldige parametre"
	ReasonTooManyAttempts = "For mange forsøg. Prøv igen senere."
	ReasonCouldNotCreate  = "Kunne ikke oprette OTP"
	ReasonCouldNotSend    = "Koden kunne ikke sendes. Prøv igen."
	ReasonInvalidCode     = "Ugyldig kode"
	ReasonCodeExpired     = "Koden er udløbet"
	ReasonInvalidAction   = "Ugyldig handling"
	ReasonSomethingWrong  = "Noget gik galt. Prøv igen."
)

// UserError pairs a client-safe reason with a sentinel cause. Handlers show
// Reason to the client; errors.Is still sees the sentinel through Unwrap.
type UserError struct {
	Reason string
	Err    error
}

func (e *UserError) Error() string { return e.Reason }
func (e *UserError) Unwrap() error { return e.Err }

// UserReason extracts the client-safe reason from err, falling back to a
// generic message so internal detail never leaks.
func UserReason(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Reason
	}
	return ReasonSomethingWrong
}
