package services

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/studypipe/studypipe/internal/models"
)

// ConsentStore abstracts persistence operations required by ConsentService.
type ConsentStore interface {
	InsertConsent(cr *models.ConsentRecord) error
	DeleteConsent(id string) (bool, error)
}

// ConsentService validates, sanitizes and stores informed-consent
// submissions. The server-side rules are authoritative: a client that skips
// its local checks still cannot persist a partial record.
type ConsentService struct {
	store ConsentStore
	now   func() time.Time
	idGen func() string
}

func NewConsentService(store ConsentStore) *ConsentService {
	return &ConsentService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return recordID(12) },
	}
}

// ConsentSubmission mirrors the inbound consent payload. Boolean fields are
// pointers so "absent" and "false" both fail the must-be-checked rule with a
// message naming the field.
type ConsentSubmission struct {
	Consent1        *bool  `json:"consent1"`
	Consent2        *bool  `json:"consent2"`
	Consent3        *bool  `json:"consent3"`
	Consent4        *bool  `json:"consent4"`
	Consent5        *bool  `json:"consent5"`
	Consent6        *bool  `json:"consent6"`
	ParticipantName string `json:"participantName"`
	Signature       string `json:"signature"`
	Date            string `json:"date"`

	// Audit fields captured from the request, never from the body.
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// Submit validates the submission and persists a sanitized record. It fails
// before any write; partial consent records are never stored.
func (s *ConsentService) Submit(sub ConsentSubmission) (*models.ConsentRecord, error) {
	checks := []struct {
		name string
		val  *bool
	}{
		{"consent1", sub.Consent1},
		{"consent2", sub.Consent2},
		{"consent3", sub.Consent3},
		{"consent4", sub.Consent4},
		{"consent5", sub.Consent5},
		{"consent6", sub.Consent6},
	}
	for _, c := range checks {
		if c.val == nil || !*c.val {
			return nil, NewInvalidError(fmt.Sprintf("%s must be checked", c.name))
		}
	}
	name := strings.TrimSpace(sub.ParticipantName)
	if utf8.RuneCountInString(name) < 2 {
		return nil, NewInvalidError("participantName is required")
	}
	signature := strings.TrimSpace(sub.Signature)
	if utf8.RuneCountInString(signature) < 2 {
		return nil, NewInvalidError("signature is required")
	}
	if strings.TrimSpace(sub.Date) == "" {
		return nil, NewInvalidError("date is required")
	}
	date, ok := parseDate(sub.Date)
	if !ok {
		return nil, NewInvalidError("date is invalid")
	}

	now := s.now()
	cr := &models.ConsentRecord{
		ID:              s.idGen(),
		Consent1:        true,
		Consent2:        true,
		Consent3:        true,
		Consent4:        true,
		Consent5:        true,
		Consent6:        true,
		ParticipantName: name,
		Signature:       signature,
		Date:            date,
		IPAddress:       sub.IPAddress,
		UserAgent:       sub.UserAgent,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.InsertConsent(cr); err != nil {
		return nil, NewStorageError("store consent: " + err.Error())
	}
	return cr, nil
}

// Delete removes a consent record by id. Deleting an already-deleted id
// reports not found, so repeated deletes are idempotent in effect.
func (s *ConsentService) Delete(id string) error {
	ok, err := s.store.DeleteConsent(id)
	if err != nil {
		return NewStorageError("delete consent: " + err.Error())
	}
	if !ok {
		return NewNotFoundError("Not found")
	}
	return nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// recordID returns a short hex identifier derived from a UUID.
func recordID(n int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
}
