package services

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/studypipe/studypipe/internal/models"
)

type stubSurveyStore struct {
	records    []*models.SurveyRecord
	lastOffset int
	lastLimit  int
	lastFilter SurveyFilter
}

func (s *stubSurveyStore) InsertSurvey(rec *models.SurveyRecord) error {
	s.records = append(s.records, rec.Clone())
	return nil
}

func (s *stubSurveyStore) GetSurvey(id string) (*models.SurveyRecord, error) {
	for _, r := range s.records {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return nil, nil
}

func (s *stubSurveyStore) ReplaceSurvey(rec *models.SurveyRecord) (bool, error) {
	for i, r := range s.records {
		if r.ID == rec.ID {
			s.records[i] = rec.Clone()
			return true, nil
		}
	}
	return false, nil
}

func (s *stubSurveyStore) DeleteSurvey(id string) (bool, error) {
	for i, r := range s.records {
		if r.ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *stubSurveyStore) ListSurveys(f SurveyFilter, offset, limit int) ([]*models.SurveyRecord, int, error) {
	s.lastFilter = f
	s.lastOffset = offset
	s.lastLimit = limit
	return []*models.SurveyRecord{}, len(s.records), nil
}

func decodeSubmission(t *testing.T, raw string) SurveySubmission {
	t.Helper()
	var sub SurveySubmission
	if err := json.Unmarshal([]byte(raw), &sub); err != nil {
		t.Fatalf("decode submission: %v", err)
	}
	return sub
}

func newTestSurveyService(store *stubSurveyStore) *SurveyService {
	svc := NewSurveyService(store)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	svc.idGen = func() string { return "SURVEY1" }
	return svc
}

func TestSurveyCreateMapForm(t *testing.T) {
	store := &stubSurveyStore{}
	svc := newTestSurveyService(store)

	sub := decodeSubmission(t, `{
		"metadata": {"respondentId": "r-9"},
		"answers": {"u1": 3, "u2": 5},
		"comments": {"usability": "fine", "final": ""},
		"sections": [{"id": "usability", "title": "Usability", "questionIds": ["u1", "u2"]}],
		"ignored": "dropped"
	}`)
	rec, err := svc.Create(sub)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if rec.ID != "SURVEY1" || rec.Metadata.Title != DefaultSurveyTitle {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Metadata.RespondentID != "r-9" {
		t.Fatalf("respondentId not kept: %+v", rec.Metadata)
	}
	got := map[string]int{}
	for _, a := range rec.Answers {
		got[a.QuestionID] = a.Value
	}
	if len(got) != 2 || got["u1"] != 3 || got["u2"] != 5 {
		t.Fatalf("unexpected answers: %+v", rec.Answers)
	}
	if rec.Comments["usability"] != "fine" {
		t.Fatalf("comments not decoded: %+v", rec.Comments)
	}
	if v, ok := rec.Comments["final"]; !ok || v != "" {
		t.Fatalf("explicit empty comment must be kept: %+v", rec.Comments)
	}
	if len(store.records) != 1 {
		t.Fatalf("record not stored")
	}
}

func TestSurveyCreateRoundTripPreservesAnswerSet(t *testing.T) {
	store := &stubSurveyStore{}
	svc := newTestSurveyService(store)

	sub := decodeSubmission(t, `{"answers": [{"questionId":"a","value":3},{"questionId":"b","value":5}]}`)
	created, err := svc.Create(sub)
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	fetched, err := svc.Get(created.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if len(fetched.Answers) != 2 {
		t.Fatalf("unexpected answers: %+v", fetched.Answers)
	}
	set := map[string]int{}
	for _, a := range fetched.Answers {
		set[a.QuestionID] = a.Value
	}
	if set["a"] != 3 || set["b"] != 5 {
		t.Fatalf("round trip lost answers: %+v", set)
	}
}

func TestSurveyCreateRejectsMissingAndMalformed(t *testing.T) {
	svc := newTestSurveyService(&stubSurveyStore{})

	if _, err := svc.Create(decodeSubmission(t, `{}`)); err == nil || !strings.Contains(err.Error(), "answers is required") {
		t.Fatalf("expected missing answers error, got %v", err)
	}

	_, err := svc.Create(decodeSubmission(t, `{
		"answers": [{"questionId":"a","value":9},{"questionId":2,"value":3}],
		"comments": {"usability": 7}
	}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"between 1 and 5", "questionId must be a string", "comments.usability must be a string", "; "} {
		if !strings.Contains(msg, want) {
			t.Fatalf("joined message missing %q: %s", want, msg)
		}
	}
}

func TestSurveyCreateRejectsDuplicateQuestionID(t *testing.T) {
	svc := newTestSurveyService(&stubSurveyStore{})
	_, err := svc.Create(decodeSubmission(t, `{"answers": [{"questionId":"a","value":3},{"questionId":"a","value":4}]}`))
	se, ok := AsServiceError(err)
	if !ok || se.Code != ErrorInvalid {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestSurveyListClampsPagination(t *testing.T) {
	store := &stubSurveyStore{}
	svc := newTestSurveyService(store)
	for i := 0; i < 12; i++ {
		store.records = append(store.records, &models.SurveyRecord{ID: string(rune('a' + i))})
	}

	page, err := svc.List(SurveyFilter{}, 2, 5)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if store.lastOffset != 5 || store.lastLimit != 5 {
		t.Fatalf("unexpected window: offset=%d limit=%d", store.lastOffset, store.lastLimit)
	}
	if page.Page != 2 || page.Limit != 5 || page.Total != 12 || page.Pages != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}

	if _, err := svc.List(SurveyFilter{}, 0, 1000); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if store.lastOffset != 0 || store.lastLimit != 200 {
		t.Fatalf("limit not clamped: offset=%d limit=%d", store.lastOffset, store.lastLimit)
	}

	if _, err := svc.List(SurveyFilter{}, 1, 1); err != nil {
		t.Fatalf("List error: %v", err)
	}
	if store.lastLimit != 5 {
		t.Fatalf("limit floor not applied: %d", store.lastLimit)
	}
}

func TestSurveyUpdateReviewedSetsTimestamp(t *testing.T) {
	store := &stubSurveyStore{}
	svc := newTestSurveyService(store)
	created, err := svc.Create(decodeSubmission(t, `{"answers": {"a": 2}, "comments": {"final": "ok"}}`))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	later := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return later }
	reviewed := true
	rec, err := svc.Update(created.ID, SurveyUpdate{Reviewed: &reviewed})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if !rec.Reviewed || rec.ReviewedAt == nil || !rec.ReviewedAt.Equal(later) {
		t.Fatalf("reviewedAt not auto-set: %+v", rec)
	}
	if len(rec.Answers) != 1 || rec.Comments["final"] != "ok" {
		t.Fatalf("answers/comments must be untouched: %+v", rec)
	}
	if !rec.UpdatedAt.Equal(later) || !rec.CreatedAt.Before(later) {
		t.Fatalf("timestamps wrong: created=%v updated=%v", rec.CreatedAt, rec.UpdatedAt)
	}
}

func TestSurveyUpdateMergesComments(t *testing.T) {
	store := &stubSurveyStore{}
	svc := newTestSurveyService(store)
	created, err := svc.Create(decodeSubmission(t, `{"answers": {"a": 2}, "comments": {"usability": "old", "final": "keep"}}`))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	var upd SurveyUpdate
	if err := json.Unmarshal([]byte(`{"comments": {"usability": "new", "extra": "added"}, "unknownField": 1}`), &upd); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	rec, err := svc.Update(created.ID, upd)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if rec.Comments["usability"] != "new" || rec.Comments["final"] != "keep" || rec.Comments["extra"] != "added" {
		t.Fatalf("comments not shallow-merged: %+v", rec.Comments)
	}
}

func TestSurveyUpdateReplacesAnswers(t *testing.T) {
	store := &stubSurveyStore{}
	svc := newTestSurveyService(store)
	created, err := svc.Create(decodeSubmission(t, `{"answers": {"a": 2}}`))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	var upd SurveyUpdate
	if err := json.Unmarshal([]byte(`{"answers": [{"questionId":"b","value":4}]}`), &upd); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	rec, err := svc.Update(created.ID, upd)
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if len(rec.Answers) != 1 || rec.Answers[0].QuestionID != "b" || rec.Answers[0].Value != 4 {
		t.Fatalf("answers not replaced: %+v", rec.Answers)
	}

	for _, raw := range []string{
		`{"answers": {"b": 4}}`,
		`{"answers": [{"questionId":"b","value":9}]}`,
		`{"answers": [{"questionId":"b","value":4},{"questionId":"b","value":2}]}`,
	} {
		var bad SurveyUpdate
		if err := json.Unmarshal([]byte(raw), &bad); err != nil {
			t.Fatalf("decode update: %v", err)
		}
		if _, err := svc.Update(created.ID, bad); err == nil || !strings.Contains(err.Error(), "Invalid answers payload") {
			t.Fatalf("expected invalid answers payload for %s, got %v", raw, err)
		}
	}
}

func TestSurveyUpdateAndDeleteMissing(t *testing.T) {
	svc := newTestSurveyService(&stubSurveyStore{})
	reviewed := true
	if _, err := svc.Update("nope", SurveyUpdate{Reviewed: &reviewed}); err == nil {
		t.Fatalf("expected not found")
	} else if se, ok := AsServiceError(err); !ok || se.Code != ErrorNotFound {
		t.Fatalf("expected not found code, got %v", err)
	}
	if err := svc.Delete("nope"); err == nil {
		t.Fatalf("expected not found")
	}
}
