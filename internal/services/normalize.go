package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/studypipe/studypipe/internal/models"
)

// AnswerEntry is one raw inbound answer before coercion and validation.
// QuestionID and Value stay raw so the validator can report type errors
// instead of failing the whole JSON decode.
type AnswerEntry struct {
	QuestionID json.RawMessage
	Value      json.RawMessage
}

// AnswersPayload accepts both wire shapes for survey answers: an ordered
// array of {questionId, value} pairs, or an object map from questionId to
// value. Normalize always yields the pair form. Map input is emitted in
// sorted-key order, which is not the on-screen question order; callers that
// need question ordering send the array form or use the sections snapshot.
type AnswersPayload struct {
	entries []AnswerEntry
	fromMap bool
	present bool
}

func (p *AnswersPayload) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*p = AnswersPayload{}
		return nil
	}
	switch trimmed[0] {
	case '[':
		var arr []struct {
			QuestionID json.RawMessage `json:"questionId"`
			Value      json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return err
		}
		entries := make([]AnswerEntry, 0, len(arr))
		for _, a := range arr {
			entries = append(entries, AnswerEntry{QuestionID: a.QuestionID, Value: a.Value})
		}
		*p = AnswersPayload{entries: entries, present: true}
		return nil
	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return err
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]AnswerEntry, 0, len(m))
		for _, k := range keys {
			qid, err := json.Marshal(k)
			if err != nil {
				return err
			}
			entries = append(entries, AnswerEntry{QuestionID: qid, Value: m[k]})
		}
		*p = AnswersPayload{entries: entries, fromMap: true, present: true}
		return nil
	default:
		return errors.New("answers must be an array or object")
	}
}

// Present reports whether the answers field appeared in the payload at all
// (an empty array is present; a missing or null field is not).
func (p AnswersPayload) Present() bool { return p.present }

// FromMap reports whether the payload used the object-map shape.
func (p AnswersPayload) FromMap() bool { return p.fromMap }

func (p AnswersPayload) Entries() []AnswerEntry { return p.entries }

// Normalize converts the payload to the canonical ordered-pairs form,
// coercing each value to an integer. Coercion failure is not surfaced here;
// range validation downstream is the enforcement point.
func (p AnswersPayload) Normalize() []models.Answer {
	out := make([]models.Answer, 0, len(p.entries))
	for _, e := range p.entries {
		qid, _ := decodeString(e.QuestionID)
		v, ok := scoreInt(e.Value)
		if !ok {
			v = truncateScore(e.Value)
		}
		out = append(out, models.Answer{QuestionID: qid, Value: v})
	}
	return out
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// scoreInt parses a raw answer value as an exact integer. Numeric strings
// are accepted ("3"), fractional numbers are not.
func scoreInt(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if i, err := num.Int64(); err == nil {
			return int(i), true
		}
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

// truncateScore is the lossy fallback used only by Normalize.
func truncateScore(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f)
	}
	return 0
}
