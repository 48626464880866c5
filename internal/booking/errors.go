package booking

import (
	"errors"
	"fmt"

	"sorso/internal/packages"
)

var (
	ErrNoEventSelected   = errors.New("no event selected")
	ErrUnknownEvent      = errors.New("event not in the active list")
	ErrNoActiveEvents    = errors.New("no active events")
	ErrMissingContact    = errors.New("name and phone are required")
	ErrInvalidTableCount = errors.New("tables must be at least 1")
	ErrTablesUnavailable = errors.New("not enough tables left in this package")
	ErrPackageSoldOut    = errors.New("package sold out")
	ErrSubmitInFlight    = errors.New("a reservation is already being submitted")
	ErrSoldOut           = errors.New("sold out")
	ErrReservationFailed = errors.New("reservation failed")
	ErrStaleResponse     = errors.New("response for an event that is no longer selected")
	ErrLoadEvents        = errors.New("could not load events")
	ErrLoadAvailability  = errors.New("could not load availability")
)

// ReservationError carries the backend's own message for a refused reservation
type ReservationError struct {
	Message string
	Err     error
}

func (e *ReservationError) Error() string {
	return fmt.Sprintf("reservation failed: %s", e.Message)
}

func (e *ReservationError) Is(target error) bool { return target == ErrReservationFailed }

func (e *ReservationError) Unwrap() error { return e.Err }

// Message turns a controller error into the text shown to guests
func Message(err error) string {
	if err == nil {
		return ""
	}

	var resErr *ReservationError
	if errors.As(err, &resErr) {
		return "Errore prenotazione: " + resErr.Message
	}

	switch {
	case errors.Is(err, ErrNoEventSelected), errors.Is(err, ErrUnknownEvent):
		return "Seleziona un evento"
	case errors.Is(err, ErrNoActiveEvents):
		return "Nessun evento disponibile al momento"
	case errors.Is(err, ErrMissingContact):
		return "Inserisci nome e numero telefono"
	case errors.Is(err, ErrInvalidTableCount):
		return "Seleziona almeno un tavolo"
	case errors.Is(err, ErrTablesUnavailable):
		return "Tavoli non disponibili per questa zona"
	case errors.Is(err, ErrPackageSoldOut):
		return "Zona esaurita"
	case errors.Is(err, ErrSoldOut):
		return "Posti esauriti per questa zona"
	case errors.Is(err, ErrSubmitInFlight):
		return "Prenotazione già in corso"
	case errors.Is(err, ErrLoadEvents):
		return "Errore nel caricamento degli eventi"
	case errors.Is(err, ErrLoadAvailability):
		return "Errore nel caricamento della disponibilità"
	case errors.Is(err, packages.ErrUnknownPackage):
		return "Pacchetto non valido"
	}
	return "Errore: " + err.Error()
}
