package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/studypipe/studypipe/internal/models"
	"github.com/studypipe/studypipe/internal/services"
)

// SQLiteStore persists submissions in SQLite. Document-shaped fields
// (answers, comments, sections, tags) are stored as JSON columns; all
// timestamps are RFC3339Nano in UTC so lexical and chronological order
// agree.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) InsertConsent(cr *models.ConsentRecord) error {
	_, err := s.db.Exec(`INSERT INTO consents
      (id, consent1, consent2, consent3, consent4, consent5, consent6,
       participant_name, signature, date, ip_address, user_agent, created_at, updated_at)
      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cr.ID,
		boolToInt64(cr.Consent1), boolToInt64(cr.Consent2), boolToInt64(cr.Consent3),
		boolToInt64(cr.Consent4), boolToInt64(cr.Consent5), boolToInt64(cr.Consent6),
		cr.ParticipantName, cr.Signature, formatTime(cr.Date),
		toNullString(cr.IPAddress), toNullString(cr.UserAgent),
		formatTime(cr.CreatedAt), formatTime(cr.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert consent: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteConsent(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM consents WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete consent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete consent: %w", err)
	}
	return n > 0, nil
}

const surveyColumns = `id, title, respondent_id, ip, submitted_at, answers, comments,
      sections, tags, reviewed, reviewed_at, reviewed_by, created_at, updated_at`

func (s *SQLiteStore) InsertSurvey(rec *models.SurveyRecord) error {
	answers, comments, sections, tags, err := encodeSurveyDocs(rec)
	if err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO surveys (`+surveyColumns+`)
      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Metadata.Title, toNullString(rec.Metadata.RespondentID),
		toNullString(rec.Metadata.IP), formatTime(rec.Metadata.SubmittedAt),
		answers, comments, sections, tags,
		boolToInt64(rec.Reviewed), formatNullTime(rec.ReviewedAt), toNullString(rec.ReviewedBy),
		formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSurvey(id string) (*models.SurveyRecord, error) {
	row := s.db.QueryRow(`SELECT `+surveyColumns+` FROM surveys WHERE id = ?`, id)
	rec, err := scanSurvey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get survey: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) ReplaceSurvey(rec *models.SurveyRecord) (bool, error) {
	answers, comments, sections, tags, err := encodeSurveyDocs(rec)
	if err != nil {
		return false, fmt.Errorf("replace survey: %w", err)
	}
	res, err := s.db.Exec(`UPDATE surveys SET
      title = ?, respondent_id = ?, ip = ?, submitted_at = ?, answers = ?, comments = ?,
      sections = ?, tags = ?, reviewed = ?, reviewed_at = ?, reviewed_by = ?, updated_at = ?
      WHERE id = ?`,
		rec.Metadata.Title, toNullString(rec.Metadata.RespondentID),
		toNullString(rec.Metadata.IP), formatTime(rec.Metadata.SubmittedAt),
		answers, comments, sections, tags,
		boolToInt64(rec.Reviewed), formatNullTime(rec.ReviewedAt), toNullString(rec.ReviewedBy),
		formatTime(rec.UpdatedAt), rec.ID)
	if err != nil {
		return false, fmt.Errorf("replace survey: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("replace survey: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) DeleteSurvey(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM surveys WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete survey: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete survey: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListSurveys(f services.SurveyFilter, offset, limit int) ([]*models.SurveyRecord, int, error) {
	var where []string
	var args []any
	if f.Reviewed != nil {
		where = append(where, "reviewed = ?")
		args = append(args, boolToInt64(*f.Reviewed))
	}
	if f.RespondentID != "" {
		where = append(where, "respondent_id = ?")
		args = append(args, f.RespondentID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM surveys`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count surveys: %w", err)
	}

	rows, err := s.db.Query(`SELECT `+surveyColumns+` FROM surveys`+clause+
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list surveys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*models.SurveyRecord{}
	for rows.Next() {
		rec, err := scanSurvey(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list surveys: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list surveys: %w", err)
	}
	return out, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSurvey(row rowScanner) (*models.SurveyRecord, error) {
	var (
		rec                         models.SurveyRecord
		respondent, ip              sql.NullString
		answers, comments           sql.NullString
		sections, tags              sql.NullString
		reviewed                    int64
		reviewedAt, reviewedBy      sql.NullString
		submitted, created, updated string
	)
	if err := row.Scan(&rec.ID, &rec.Metadata.Title, &respondent, &ip, &submitted,
		&answers, &comments, &sections, &tags,
		&reviewed, &reviewedAt, &reviewedBy, &created, &updated); err != nil {
		return nil, err
	}
	rec.Metadata.RespondentID = respondent.String
	rec.Metadata.IP = ip.String
	rec.Metadata.SubmittedAt = parseTime(submitted)
	rec.Answers = decodeJSONCol[[]models.Answer](answers)
	if rec.Answers == nil {
		rec.Answers = []models.Answer{}
	}
	rec.Comments = decodeJSONCol[map[string]string](comments)
	if rec.Comments == nil {
		rec.Comments = map[string]string{}
	}
	rec.Sections = decodeJSONCol[[]models.SectionRef](sections)
	rec.Tags = decodeJSONCol[[]string](tags)
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	rec.Reviewed = int64ToBool(reviewed)
	if reviewedAt.Valid {
		t := parseTime(reviewedAt.String)
		rec.ReviewedAt = &t
	}
	rec.ReviewedBy = reviewedBy.String
	rec.CreatedAt = parseTime(created)
	rec.UpdatedAt = parseTime(updated)
	return &rec, nil
}

func encodeSurveyDocs(rec *models.SurveyRecord) (answers, comments, sections, tags sql.NullString, err error) {
	if answers, err = encodeJSON(rec.Answers); err != nil {
		return
	}
	if comments, err = encodeJSON(rec.Comments); err != nil {
		return
	}
	if sections, err = encodeJSON(rec.Sections); err != nil {
		return
	}
	tags, err = encodeJSON(rec.Tags)
	return
}

func boolToInt64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func int64ToBool(v int64) bool { return v != 0 }

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func decodeJSONCol[T any](ns sql.NullString) T {
	var out T
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return out
	}
	// Corrupt columns decode to the zero value rather than failing reads.
	_ = json.Unmarshal([]byte(ns.String), &out)
	return out
}

var (
	_ services.ConsentStore = (*SQLiteStore)(nil)
	_ services.SurveyStore  = (*SQLiteStore)(nil)
)
