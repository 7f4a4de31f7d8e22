package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/studypipe/studypipe/internal/models"
)

// DefaultSurveyTitle is applied when a submission carries no title.
const DefaultSurveyTitle = "Cloud-Native Disaster Response Platform Survey"

const (
	listLimitDefault = 25
	listLimitMin     = 5
	listLimitMax     = 200
)

// SurveyStore abstracts persistence operations required by SurveyService.
// Get returns nil without error when the id has no record; Replace and
// Delete report absence through their bool.
type SurveyStore interface {
	InsertSurvey(rec *models.SurveyRecord) error
	GetSurvey(id string) (*models.SurveyRecord, error)
	ReplaceSurvey(rec *models.SurveyRecord) (bool, error)
	DeleteSurvey(id string) (bool, error)
	ListSurveys(f SurveyFilter, offset, limit int) ([]*models.SurveyRecord, int, error)
}

// SurveyFilter selects survey records for listing. Nil Reviewed means no
// reviewed filter; empty RespondentID means no respondent filter.
type SurveyFilter struct {
	Reviewed     *bool
	RespondentID string
}

// SurveyService validates, normalizes and stores survey submissions, and
// serves the query and review workflows over them.
type SurveyService struct {
	store SurveyStore
	now   func() time.Time
	idGen func() string
}

func NewSurveyService(store SurveyStore) *SurveyService {
	return &SurveyService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		idGen: func() string { return recordID(12) },
	}
}

// SurveyMetadataPayload mirrors the inbound metadata object.
type SurveyMetadataPayload struct {
	Title        string `json:"title"`
	RespondentID string `json:"respondentId"`
	IP           string `json:"ip"`
	SubmittedAt  string `json:"submittedAt"`
}

// SectionPayload mirrors one inbound sections entry.
type SectionPayload struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	QuestionIDs []string `json:"questionIds"`
}

// SurveySubmission mirrors the inbound survey payload. Unknown fields are
// dropped by the JSON decode, not rejected. Comment values stay raw so type
// errors become validation messages rather than decode failures.
type SurveySubmission struct {
	Metadata *SurveyMetadataPayload     `json:"metadata"`
	Answers  AnswersPayload             `json:"answers"`
	Comments map[string]json.RawMessage `json:"comments"`
	Sections []SectionPayload           `json:"sections"`
	Tags     []string                   `json:"tags"`
	Reviewed bool                       `json:"reviewed"`

	// RequestIP is captured from the request and wins over metadata.ip.
	RequestIP string `json:"-"`
}

// SurveyUpdate mirrors the inbound partial update. Only these fields are
// mutable; anything else in the body is ignored. Answers replacement must
// use the array form.
type SurveyUpdate struct {
	Reviewed   *bool                      `json:"reviewed"`
	ReviewedBy *string                    `json:"reviewedBy"`
	ReviewedAt *string                    `json:"reviewedAt"`
	Comments   map[string]json.RawMessage `json:"comments"`
	Answers    *AnswersPayload            `json:"answers"`
}

// SurveyPage is one page of list results. Total and Pages reflect the whole
// filtered set, not the pagination window.
type SurveyPage struct {
	Page    int                    `json:"page"`
	Limit   int                    `json:"limit"`
	Total   int                    `json:"total"`
	Pages   int                    `json:"pages"`
	Results []*models.SurveyRecord `json:"results"`
}

// Create validates the submission against the schema rules, normalizes the
// answers to the ordered-pairs form and persists the record. All failures
// are detected before the write; messages accumulate and are joined by the
// caller-facing error.
func (s *SurveyService) Create(sub SurveySubmission) (*models.SurveyRecord, error) {
	var msgs []string

	submittedAt := s.now()
	if sub.Metadata != nil && strings.TrimSpace(sub.Metadata.SubmittedAt) != "" {
		if t, ok := parseDate(sub.Metadata.SubmittedAt); ok {
			submittedAt = t
		} else {
			msgs = append(msgs, "metadata.submittedAt must be a valid date")
		}
	}

	if !sub.Answers.Present() {
		msgs = append(msgs, "answers is required")
	} else {
		msgs = append(msgs, validateAnswerEntries(sub.Answers.Entries())...)
	}
	msgs = append(msgs, validateComments(sub.Comments)...)
	for i, sec := range sub.Sections {
		if strings.TrimSpace(sec.ID) == "" {
			msgs = append(msgs, fmt.Sprintf("sections[%d].id is required", i))
		}
	}
	if len(msgs) > 0 {
		return nil, NewInvalidError(strings.Join(msgs, "; "))
	}

	answers := sub.Answers.Normalize()
	// Storage invariant, enforced independently of the schema check above.
	if dup := duplicateQuestionID(answers); dup != "" {
		return nil, NewInvalidError("Duplicate questionId found in answers")
	}

	meta := models.SurveyMetadata{Title: DefaultSurveyTitle, SubmittedAt: submittedAt}
	if sub.Metadata != nil {
		if t := strings.TrimSpace(sub.Metadata.Title); t != "" {
			meta.Title = t
		}
		meta.RespondentID = sub.Metadata.RespondentID
		meta.IP = sub.Metadata.IP
	}
	if sub.RequestIP != "" {
		meta.IP = sub.RequestIP
	}

	now := s.now()
	rec := &models.SurveyRecord{
		ID:        s.idGen(),
		Metadata:  meta,
		Answers:   answers,
		Comments:  decodeComments(sub.Comments),
		Sections:  convertSections(sub.Sections),
		Tags:      sub.Tags,
		Reviewed:  sub.Reviewed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if err := s.store.InsertSurvey(rec); err != nil {
		return nil, NewStorageError("store survey: " + err.Error())
	}
	return rec, nil
}

// Get returns the record for id or a not-found error.
func (s *SurveyService) Get(id string) (*models.SurveyRecord, error) {
	rec, err := s.store.GetSurvey(id)
	if err != nil {
		return nil, NewStorageError("get survey: " + err.Error())
	}
	if rec == nil {
		return nil, NewNotFoundError("Survey not found")
	}
	return rec, nil
}

// List returns one page of records matching the filter, newest submission
// first. Page is floored to 1 and limit clamped to [5,200].
func (s *SurveyService) List(f SurveyFilter, page, limit int) (*SurveyPage, error) {
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = listLimitDefault
	}
	if limit < listLimitMin {
		limit = listLimitMin
	}
	if limit > listLimitMax {
		limit = listLimitMax
	}
	results, total, err := s.store.ListSurveys(f, (page-1)*limit, limit)
	if err != nil {
		return nil, NewStorageError("list surveys: " + err.Error())
	}
	if results == nil {
		results = []*models.SurveyRecord{}
	}
	return &SurveyPage{
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   (total + limit - 1) / limit,
		Results: results,
	}, nil
}

// Update applies a partial update to the mutable fields. Comments are
// shallow-merged, answers are replaced wholesale after re-validation, and
// reviewedAt is auto-set when reviewed transitions to true without an
// explicit timestamp. The record is re-validated fully before the write.
func (s *SurveyService) Update(id string, upd SurveyUpdate) (*models.SurveyRecord, error) {
	var replacement []models.Answer
	if upd.Answers != nil {
		if upd.Answers.FromMap() || !upd.Answers.Present() {
			return nil, NewInvalidError("Invalid answers payload")
		}
		if msgs := validateAnswerEntries(upd.Answers.Entries()); len(msgs) > 0 {
			return nil, NewInvalidError("Invalid answers payload")
		}
		replacement = upd.Answers.Normalize()
		// Replacement re-enforces the same uniqueness invariant as creation.
		if dup := duplicateQuestionID(replacement); dup != "" {
			return nil, NewInvalidError("Invalid answers payload")
		}
	}
	if msgs := validateComments(upd.Comments); len(msgs) > 0 {
		return nil, NewInvalidError(strings.Join(msgs, "; "))
	}
	var reviewedAt *time.Time
	if upd.ReviewedAt != nil {
		t, ok := parseDate(*upd.ReviewedAt)
		if !ok {
			return nil, NewInvalidError("reviewedAt is invalid")
		}
		reviewedAt = &t
	}

	rec, err := s.store.GetSurvey(id)
	if err != nil {
		return nil, NewStorageError("get survey: " + err.Error())
	}
	if rec == nil {
		return nil, NewNotFoundError("Survey not found")
	}

	if upd.Reviewed != nil {
		wasReviewed := rec.Reviewed
		rec.Reviewed = *upd.Reviewed
		if *upd.Reviewed && !wasReviewed && reviewedAt == nil {
			t := s.now()
			reviewedAt = &t
		}
	}
	if reviewedAt != nil {
		rec.ReviewedAt = reviewedAt
	}
	if upd.ReviewedBy != nil {
		rec.ReviewedBy = *upd.ReviewedBy
	}
	if len(upd.Comments) > 0 {
		if rec.Comments == nil {
			rec.Comments = map[string]string{}
		}
		for k, v := range decodeComments(upd.Comments) {
			rec.Comments[k] = v
		}
	}
	if replacement != nil {
		rec.Answers = replacement
	}
	rec.UpdatedAt = s.now()

	ok, err := s.store.ReplaceSurvey(rec)
	if err != nil {
		return nil, NewStorageError("update survey: " + err.Error())
	}
	if !ok {
		return nil, NewNotFoundError("Survey not found")
	}
	return rec, nil
}

// Delete removes a survey by id; repeated deletes report not found.
func (s *SurveyService) Delete(id string) error {
	ok, err := s.store.DeleteSurvey(id)
	if err != nil {
		return NewStorageError("delete survey: " + err.Error())
	}
	if !ok {
		return NewNotFoundError("Survey not found")
	}
	return nil
}

func validateAnswerEntries(entries []AnswerEntry) []string {
	var msgs []string
	seen := map[string]bool{}
	for i, e := range entries {
		qid, ok := decodeString(e.QuestionID)
		if !ok || qid == "" {
			msgs = append(msgs, fmt.Sprintf("answers[%d].questionId must be a string", i))
			continue
		}
		if seen[qid] {
			msgs = append(msgs, fmt.Sprintf("answers[%d].questionId %q is duplicated", i, qid))
		}
		seen[qid] = true
		if v, ok := scoreInt(e.Value); !ok || v < 1 || v > 5 {
			msgs = append(msgs, fmt.Sprintf("answers[%d].value must be an integer between 1 and 5", i))
		}
	}
	return msgs
}

func validateComments(comments map[string]json.RawMessage) []string {
	var msgs []string
	for k, raw := range comments {
		if _, ok := decodeString(raw); !ok {
			msgs = append(msgs, fmt.Sprintf("comments.%s must be a string", k))
		}
	}
	return msgs
}

func decodeComments(comments map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(comments))
	for k, raw := range comments {
		if s, ok := decodeString(raw); ok {
			out[k] = s
		}
	}
	return out
}

func convertSections(in []SectionPayload) []models.SectionRef {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.SectionRef, 0, len(in))
	for _, sec := range in {
		qids := sec.QuestionIDs
		if qids == nil {
			qids = []string{}
		}
		out = append(out, models.SectionRef{ID: sec.ID, Title: sec.Title, QuestionIDs: qids})
	}
	return out
}

func duplicateQuestionID(answers []models.Answer) string {
	seen := map[string]bool{}
	for _, a := range answers {
		if seen[a.QuestionID] {
			return a.QuestionID
		}
		seen[a.QuestionID] = true
	}
	return ""
}
