package models

import "time"

// ConsentRecord is a signed informed-consent submission. PII should be
// minimized; ipAddress/userAgent are optional audit fields.
type ConsentRecord struct {
	ID              string    `json:"id"`
	Consent1        bool      `json:"consent1"`
	Consent2        bool      `json:"consent2"`
	Consent3        bool      `json:"consent3"`
	Consent4        bool      `json:"consent4"`
	Consent5        bool      `json:"consent5"`
	Consent6        bool      `json:"consent6"`
	ParticipantName string    `json:"participantName"`
	Signature       string    `json:"signature"`
	Date            time.Time `json:"date"`
	IPAddress       string    `json:"ipAddress,omitempty"`
	UserAgent       string    `json:"userAgent,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Answer is one answered survey question, value in 1..5.
type Answer struct {
	QuestionID string `json:"questionId"`
	Value      int    `json:"value"`
}

// SectionRef snapshots one section's structure at submission time, so
// stored records stay interpretable if the survey is later redefined.
type SectionRef struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	QuestionIDs []string `json:"questionIds"`
}

// SurveyMetadata carries submission metadata (title, optional respondent
// link, request IP, submission time).
type SurveyMetadata struct {
	Title        string    `json:"title"`
	RespondentID string    `json:"respondentId,omitempty"`
	IP           string    `json:"ip,omitempty"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// SurveyRecord is a stored survey submission. Answers are always the
// canonical ordered-pairs form; questionId values are unique per record.
// Comments are keyed by section id plus the "final" sentinel.
type SurveyRecord struct {
	ID         string            `json:"id"`
	Metadata   SurveyMetadata    `json:"metadata"`
	Answers    []Answer          `json:"answers"`
	Comments   map[string]string `json:"comments"`
	Sections   []SectionRef      `json:"sections,omitempty"`
	Tags       []string          `json:"tags"`
	Reviewed   bool              `json:"reviewed"`
	ReviewedAt *time.Time        `json:"reviewedAt,omitempty"`
	ReviewedBy string            `json:"reviewedBy,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy so store internals never alias caller state.
func (r *SurveyRecord) Clone() *SurveyRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Answers = append([]Answer(nil), r.Answers...)
	out.Sections = append([]SectionRef(nil), r.Sections...)
	for i, sec := range r.Sections {
		out.Sections[i].QuestionIDs = append([]string(nil), sec.QuestionIDs...)
	}
	out.Tags = append([]string(nil), r.Tags...)
	if r.Comments != nil {
		out.Comments = make(map[string]string, len(r.Comments))
		for k, v := range r.Comments {
			out.Comments[k] = v
		}
	}
	if r.ReviewedAt != nil {
		t := *r.ReviewedAt
		out.ReviewedAt = &t
	}
	return &out
}
