package form

import (
	"context"
	"errors"
	"fmt"
)

// ConsentCheckCount is the number of required consent checkboxes.
const ConsentCheckCount = 6

// ConsentPhase enumerates the consent form machine's states.
type ConsentPhase int

const (
	// ConsentEditing accepts field changes and submission attempts.
	ConsentEditing ConsentPhase = iota
	// ConsentSubmitting has a request in flight.
	ConsentSubmitting
	// ConsentAcknowledged is terminal; the caller shows a transient
	// acknowledgment and navigates to the debrief view.
	ConsentAcknowledged
)

// ConsentForm is the single-page consent state machine: six independent
// checkboxes and three text fields, with submission gated on all of them.
// On server rejection all entered state is kept so the participant can
// correct and retry. Not safe for concurrent use.
type ConsentForm struct {
	submitter ConsentSubmitter

	phase     ConsentPhase
	checks    [ConsentCheckCount]bool
	name      string
	signature string
	date      string
	errMsg    string
	recordID  string
}

func NewConsentForm(submitter ConsentSubmitter) *ConsentForm {
	return &ConsentForm{submitter: submitter}
}

func (f *ConsentForm) Phase() ConsentPhase { return f.phase }

func (f *ConsentForm) Err() string { return f.errMsg }

// RecordID returns the server id after a successful submission.
func (f *ConsentForm) RecordID() string { return f.recordID }

// SetCheck toggles one consent checkbox, numbered 1 through 6.
func (f *ConsentForm) SetCheck(n int, checked bool) error {
	if f.phase == ConsentSubmitting {
		return errSubmitInFlight
	}
	if n < 1 || n > ConsentCheckCount {
		return fmt.Errorf("consent checkbox %d out of range", n)
	}
	f.checks[n-1] = checked
	f.errMsg = ""
	return nil
}

func (f *ConsentForm) SetName(v string) error {
	if f.phase == ConsentSubmitting {
		return errSubmitInFlight
	}
	f.name = v
	f.errMsg = ""
	return nil
}

func (f *ConsentForm) SetSignature(v string) error {
	if f.phase == ConsentSubmitting {
		return errSubmitInFlight
	}
	f.signature = v
	f.errMsg = ""
	return nil
}

func (f *ConsentForm) SetDate(v string) error {
	if f.phase == ConsentSubmitting {
		return errSubmitInFlight
	}
	f.date = v
	f.errMsg = ""
	return nil
}

// CanSubmit reports whether all checkboxes are ticked and all text
// fields are non-empty. Derived from current state on every call.
func (f *ConsentForm) CanSubmit() bool {
	for _, c := range f.checks {
		if !c {
			return false
		}
	}
	return f.name != "" && f.signature != "" && f.date != ""
}

// Submit sends the consent payload. Local gating mirrors the disabled
// submit control; the server remains authoritative for validation.
func (f *ConsentForm) Submit(ctx context.Context) error {
	if f.phase == ConsentSubmitting {
		return errSubmitInFlight
	}
	if !f.CanSubmit() {
		f.errMsg = "Please complete the form."
		return errors.New(f.errMsg)
	}
	f.errMsg = ""
	f.phase = ConsentSubmitting

	payload := ConsentPayload{
		Consent1:        f.checks[0],
		Consent2:        f.checks[1],
		Consent3:        f.checks[2],
		Consent4:        f.checks[3],
		Consent5:        f.checks[4],
		Consent6:        f.checks[5],
		ParticipantName: f.name,
		Signature:       f.signature,
		Date:            f.date,
	}
	id, err := f.submitter.SubmitConsent(ctx, payload)
	if err != nil {
		f.phase = ConsentEditing
		var ne *NetworkError
		if errors.As(err, &ne) {
			f.errMsg = "Network error submitting consent. Please try again."
		} else {
			f.errMsg = err.Error()
		}
		return err
	}

	f.recordID = id
	f.phase = ConsentAcknowledged
	return nil
}
