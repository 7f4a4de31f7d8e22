package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/studypipe/studypipe/internal/models"
	"github.com/studypipe/studypipe/internal/services"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dsn := "file:" + filepath.ToSlash(filepath.Join(t.TempDir(), "studypipe_test.db"))
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := RunMigrations(sqlDB, ""); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	store, err := NewSQLiteStore(sqlDB)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestSQLiteStoreSurveyRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	reviewedAt := time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)
	rec := &models.SurveyRecord{
		ID: "s1",
		Metadata: models.SurveyMetadata{
			Title:        "T",
			RespondentID: "r-1",
			IP:           "203.0.113.5",
			SubmittedAt:  time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		},
		Answers:    []models.Answer{{QuestionID: "a", Value: 3}, {QuestionID: "b", Value: 5}},
		Comments:   map[string]string{"usability": "fine", "final": ""},
		Sections:   []models.SectionRef{{ID: "usability", Title: "Usability", QuestionIDs: []string{"a", "b"}}},
		Tags:       []string{"pilot"},
		Reviewed:   true,
		ReviewedAt: &reviewedAt,
		ReviewedBy: "reviewer",
		CreatedAt:  time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		UpdatedAt:  time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
	}
	if err := store.InsertSurvey(rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := store.GetSurvey("s1")
	if err != nil || got == nil {
		t.Fatalf("get: %+v err=%v", got, err)
	}
	if got.Metadata.RespondentID != "r-1" || got.Metadata.IP != "203.0.113.5" {
		t.Fatalf("metadata lost: %+v", got.Metadata)
	}
	if len(got.Answers) != 2 || got.Answers[0].QuestionID != "a" || got.Answers[1].Value != 5 {
		t.Fatalf("answers lost: %+v", got.Answers)
	}
	if v, ok := got.Comments["final"]; !ok || v != "" {
		t.Fatalf("empty comment lost: %+v", got.Comments)
	}
	if len(got.Sections) != 1 || len(got.Sections[0].QuestionIDs) != 2 {
		t.Fatalf("sections lost: %+v", got.Sections)
	}
	if !got.Reviewed || got.ReviewedAt == nil || !got.ReviewedAt.Equal(reviewedAt) || got.ReviewedBy != "reviewer" {
		t.Fatalf("review fields lost: %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("createdAt lost: %v", got.CreatedAt)
	}

	if missing, err := store.GetSurvey("nope"); err != nil || missing != nil {
		t.Fatalf("missing survey should be nil,nil: %+v err=%v", missing, err)
	}
}

func TestSQLiteStorePaginationAndFilters(t *testing.T) {
	store := newTestSQLiteStore(t)
	seedSurveys(t, store, 12)

	results, total, err := store.ListSurveys(services.SurveyFilter{}, 5, 5)
	if err != nil {
		t.Fatalf("ListSurveys: %v", err)
	}
	if total != 12 || len(results) != 5 {
		t.Fatalf("total=%d len=%d", total, len(results))
	}
	want := []string{"s07", "s06", "s05", "s04", "s03"}
	for i, rec := range results {
		if rec.ID != want[i] {
			t.Fatalf("position %d: got %s want %s", i, rec.ID, want[i])
		}
	}

	reviewed := false
	results, total, err = store.ListSurveys(services.SurveyFilter{Reviewed: &reviewed}, 0, 50)
	if err != nil || total != 6 {
		t.Fatalf("reviewed filter: total=%d err=%v", total, err)
	}
	for _, rec := range results {
		if rec.Reviewed {
			t.Fatalf("reviewed record leaked: %s", rec.ID)
		}
	}
}

func TestSQLiteStoreReplaceAndDelete(t *testing.T) {
	store := newTestSQLiteStore(t)
	seedSurveys(t, store, 1)

	rec, err := store.GetSurvey("s01")
	if err != nil || rec == nil {
		t.Fatalf("get: %v", err)
	}
	rec.Reviewed = true
	rec.Comments = map[string]string{"final": "done"}
	if ok, err := store.ReplaceSurvey(rec); !ok || err != nil {
		t.Fatalf("replace: ok=%v err=%v", ok, err)
	}
	got, _ := store.GetSurvey("s01")
	if !got.Reviewed || got.Comments["final"] != "done" {
		t.Fatalf("replace not applied: %+v", got)
	}

	if ok, _ := store.DeleteSurvey("s01"); !ok {
		t.Fatalf("delete should succeed")
	}
	if ok, _ := store.DeleteSurvey("s01"); ok {
		t.Fatalf("second delete should report missing")
	}
	rec.ID = "s01"
	if ok, _ := store.ReplaceSurvey(rec); ok {
		t.Fatalf("replace of deleted record should report missing")
	}
}

func TestSQLiteStoreConsentLifecycle(t *testing.T) {
	store := newTestSQLiteStore(t)
	cr := &models.ConsentRecord{
		ID:       "c1",
		Consent1: true, Consent2: true, Consent3: true,
		Consent4: true, Consent5: true, Consent6: true,
		ParticipantName: "Jordan",
		Signature:       "Jordan",
		Date:            time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		IPAddress:       "203.0.113.9",
		UserAgent:       "test-agent",
		CreatedAt:       time.Now().UTC(),
		UpdatedAt:       time.Now().UTC(),
	}
	if err := store.InsertConsent(cr); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if ok, err := store.DeleteConsent("c1"); !ok || err != nil {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if ok, _ := store.DeleteConsent("c1"); ok {
		t.Fatalf("second delete should report missing")
	}
}
