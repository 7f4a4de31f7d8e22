package form

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/studypipe/studypipe/internal/models"
)

// SurveyPayload is the wire shape of a survey submission as the form
// controller builds it: answers as a map, comments keyed by section id
// or "final", and a structural snapshot of the sections.
type SurveyPayload struct {
	Metadata models.SurveyMetadata `json:"metadata"`
	Answers  map[string]int        `json:"answers"`
	Comments map[string]string     `json:"comments"`
	Sections []models.SectionRef   `json:"sections"`
}

// ConsentPayload is the wire shape of a consent submission.
type ConsentPayload struct {
	Consent1        bool   `json:"consent1"`
	Consent2        bool   `json:"consent2"`
	Consent3        bool   `json:"consent3"`
	Consent4        bool   `json:"consent4"`
	Consent5        bool   `json:"consent5"`
	Consent6        bool   `json:"consent6"`
	ParticipantName string `json:"participantName"`
	Signature       string `json:"signature"`
	Date            string `json:"date"`
}

// SurveySubmitter sends an assembled survey payload and returns the
// stored record's id.
type SurveySubmitter interface {
	SubmitSurvey(ctx context.Context, p SurveyPayload) (string, error)
}

// ConsentSubmitter sends a consent payload and returns the stored
// record's id.
type ConsentSubmitter interface {
	SubmitConsent(ctx context.Context, p ConsentPayload) (string, error)
}

// SubmitError is a server rejection. Message carries the server's
// reported reason verbatim so the controllers can display it unchanged.
type SubmitError struct {
	Status  int
	Message string
}

func (e *SubmitError) Error() string { return e.Message }

// NetworkError is a transport failure with no server response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// Client talks to the submission API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) SubmitSurvey(ctx context.Context, p SurveyPayload) (string, error) {
	return c.post(ctx, "/api/surveys", p)
}

func (c *Client) SubmitConsent(ctx context.Context, p ConsentPayload) (string, error) {
	return c.post(ctx, "/api/consent", p)
}

func (c *Client) post(ctx context.Context, path string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		ID      string `json:"id"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.NewDecoder(res.Body).Decode(&parsed)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg := parsed.Error
		if msg == "" {
			msg = parsed.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("Server returned %d", res.StatusCode)
		}
		return "", &SubmitError{Status: res.StatusCode, Message: msg}
	}
	return parsed.ID, nil
}

var (
	_ SurveySubmitter  = (*Client)(nil)
	_ ConsentSubmitter = (*Client)(nil)
)
