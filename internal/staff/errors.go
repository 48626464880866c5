package staff

import (
	"errors"
	"fmt"

	"sorso/internal/client"
	"sorso/internal/packages"
)

var (
	ErrSessionRequired    = errors.New("staff session required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidDraft       = errors.New("title and date are required")
	ErrInvalidTotals      = errors.New("totals must not be negative")
	ErrCreateInFlight     = errors.New("an event is already being created")
	ErrEventNotLoaded     = errors.New("event not loaded")
	ErrNothingToExport    = errors.New("no reservations loaded")
	ErrStaleResponse      = errors.New("response for an event that is no longer selected")
	ErrRequestFailed      = errors.New("backend request failed")
)

// FloorError refuses a total below the tables already sold for a package
type FloorError struct {
	Package  packages.Code
	Label    string
	Proposed int
	Booked   int
}

func (e *FloorError) Error() string {
	return fmt.Sprintf("%s: total %d below %d booked tables", e.Package, e.Proposed, e.Booked)
}

// PartialEventError means the event row exists but its package rows could not be written
type PartialEventError struct {
	EventID string
	Err     error
}

var ErrPartialEvent = errors.New("event created without package rows")

func (e *PartialEventError) Error() string {
	return fmt.Sprintf("event %s created without package rows: %v", e.EventID, e.Err)
}

func (e *PartialEventError) Is(target error) bool { return target == ErrPartialEvent }

func (e *PartialEventError) Unwrap() error { return e.Err }

// Message turns a console error into the text shown to staff
func Message(err error) string {
	if err == nil {
		return ""
	}

	var floor *FloorError
	if errors.As(err, &floor) {
		return fmt.Sprintf("%s: non puoi scendere sotto %d", floor.Label, floor.Booked)
	}
	var partial *PartialEventError
	if errors.As(err, &partial) {
		return "Evento creato ma disponibilità non salvata (id " + partial.EventID + ")"
	}

	switch {
	case errors.Is(err, ErrSessionRequired):
		return "Sessione scaduta, accedi di nuovo"
	case errors.Is(err, ErrInvalidCredentials):
		return "Credenziali non valide"
	case errors.Is(err, ErrInvalidDraft):
		return "Inserisci almeno: titolo e data"
	case errors.Is(err, ErrInvalidTotals):
		return "I tavoli non possono essere negativi"
	case errors.Is(err, ErrCreateInFlight):
		return "Creazione evento già in corso"
	case errors.Is(err, ErrNothingToExport):
		return "Nessuna prenotazione da esportare"
	case errors.Is(err, ErrEventNotLoaded):
		return "Evento non trovato"
	case errors.Is(err, ErrStaleResponse):
		return "Evento cambiato, ricarica le prenotazioni"
	}

	var apiErr *client.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return "Errore: " + apiErr.Message
	}
	return "Errore: " + err.Error()
}
