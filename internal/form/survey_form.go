package form

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studypipe/studypipe/internal/models"
)

// SurveyTitle is the questionnaire title sent with every submission.
const SurveyTitle = "Cloud-Native Disaster Response Platform Survey"

// FinalCommentKey is the sentinel comment key for overall feedback not
// tied to any section.
const FinalCommentKey = "final"

// SurveyPhase enumerates the survey form machine's states.
type SurveyPhase int

const (
	// SurveyEditing shows one section; navigation and answering are live.
	SurveyEditing SurveyPhase = iota
	// SurveySubmitting has a request in flight; all events are rejected.
	SurveySubmitting
	// SurveySubmitted is terminal for the current response; state has
	// been reset and the caller may navigate away.
	SurveySubmitted
)

var errSubmitInFlight = errors.New("a submission is already in flight")

// SurveyForm is the multi-section survey state machine. All mutation
// goes through event methods; everything else is derived from current
// state. It is not safe for concurrent use.
type SurveyForm struct {
	sections   []Section
	submitter  SurveySubmitter
	requireAll bool
	now        func() time.Time

	phase    SurveyPhase
	active   int
	answers  map[string]int
	comments map[string]string
	errMsg   string
	lastID   string
}

func NewSurveyForm(sections []Section, submitter SurveySubmitter) *SurveyForm {
	return &SurveyForm{
		sections:   sections,
		submitter:  submitter,
		requireAll: true,
		now:        time.Now,
		answers:    map[string]int{},
		comments:   map[string]string{},
	}
}

// SetRequireAll toggles the completion gate on Next and Submit. Enabled
// by default.
func (f *SurveyForm) SetRequireAll(v bool) { f.requireAll = v }

func (f *SurveyForm) Phase() SurveyPhase { return f.phase }

func (f *SurveyForm) ActiveIndex() int { return f.active }

func (f *SurveyForm) ActiveSection() Section { return f.sections[f.active] }

// Err returns the inline error message currently shown, empty when none.
func (f *SurveyForm) Err() string { return f.errMsg }

// LastID returns the server id of the most recent successful submission.
func (f *SurveyForm) LastID() string { return f.lastID }

// Answer records a selected value for a question. Unanswered questions
// are absent from state, never stored as zero.
func (f *SurveyForm) Answer(questionID string, value int) error {
	if f.phase == SurveySubmitting {
		return errSubmitInFlight
	}
	if value < 1 || value > 5 {
		return fmt.Errorf("answer value must be between 1 and 5, got %d", value)
	}
	if !f.knownQuestion(questionID) {
		return fmt.Errorf("unknown question %q", questionID)
	}
	f.answers[questionID] = value
	f.errMsg = ""
	f.phase = SurveyEditing
	return nil
}

// Comment sets free text for a section id or FinalCommentKey. An empty
// string is kept as an explicitly entered empty comment.
func (f *SurveyForm) Comment(key, text string) error {
	if f.phase == SurveySubmitting {
		return errSubmitInFlight
	}
	if key != FinalCommentKey && !f.knownSection(key) {
		return fmt.Errorf("unknown comment key %q", key)
	}
	f.comments[key] = text
	return nil
}

// Next advances to the following section. With the completion gate on,
// the current section must be fully answered.
func (f *SurveyForm) Next() error {
	if f.phase == SurveySubmitting {
		return errSubmitInFlight
	}
	if f.requireAll {
		if missing := f.missingInSection(f.active); len(missing) > 0 {
			f.errMsg = fmt.Sprintf("Please answer all questions in this section before continuing. Missing: %d", len(missing))
			return errors.New(f.errMsg)
		}
	}
	f.errMsg = ""
	if f.active < len(f.sections)-1 {
		f.active++
	}
	return nil
}

// Back returns to the previous section. Backward navigation is never
// gated.
func (f *SurveyForm) Back() error {
	if f.phase == SurveySubmitting {
		return errSubmitInFlight
	}
	f.errMsg = ""
	if f.active > 0 {
		f.active--
	}
	return nil
}

// Goto jumps directly to a section, as from the section overview.
func (f *SurveyForm) Goto(index int) error {
	if f.phase == SurveySubmitting {
		return errSubmitInFlight
	}
	if index < 0 || index >= len(f.sections) {
		return fmt.Errorf("section index %d out of range", index)
	}
	f.errMsg = ""
	f.active = index
	return nil
}

// Submit validates the whole form, sends it, and resets state on
// success. On server rejection the machine returns to editing with the
// server's message shown verbatim; on a gate failure the view jumps to
// the first incomplete section.
func (f *SurveyForm) Submit(ctx context.Context) error {
	if f.phase == SurveySubmitting {
		return errSubmitInFlight
	}
	if f.requireAll {
		if missing := f.MissingIDs(); len(missing) > 0 {
			f.errMsg = fmt.Sprintf("Please answer all questions before submitting. Missing: %d", len(missing))
			f.active = f.sectionOf(missing[0])
			return errors.New(f.errMsg)
		}
	}
	f.errMsg = ""
	f.phase = SurveySubmitting

	id, err := f.submitter.SubmitSurvey(ctx, f.buildPayload())
	if err != nil {
		f.phase = SurveyEditing
		var ne *NetworkError
		if errors.As(err, &ne) {
			f.errMsg = "Network error submitting survey. Please try again."
		} else {
			f.errMsg = err.Error()
		}
		return err
	}

	f.lastID = id
	f.answers = map[string]int{}
	f.comments = map[string]string{}
	f.active = 0
	f.phase = SurveySubmitted
	return nil
}

// AnsweredCount reports how many questions in a section have answers.
func (f *SurveyForm) AnsweredCount(index int) int {
	if index < 0 || index >= len(f.sections) {
		return 0
	}
	n := 0
	for _, q := range f.sections[index].Questions {
		if _, ok := f.answers[q.ID]; ok {
			n++
		}
	}
	return n
}

// SectionComplete reports whether every question in a section has an
// answer.
func (f *SurveyForm) SectionComplete(index int) bool {
	return len(f.missingInSection(index)) == 0
}

// AllComplete reports whether every question across all sections has an
// answer.
func (f *SurveyForm) AllComplete() bool { return len(f.MissingIDs()) == 0 }

// MissingIDs returns unanswered question ids in section order. The
// section definitions are the authoritative ordering, never map
// iteration order.
func (f *SurveyForm) MissingIDs() []string {
	var missing []string
	for i := range f.sections {
		missing = append(missing, f.missingInSection(i)...)
	}
	return missing
}

func (f *SurveyForm) buildPayload() SurveyPayload {
	answers := make(map[string]int, len(f.answers))
	for k, v := range f.answers {
		answers[k] = v
	}
	comments := make(map[string]string, len(f.comments))
	for k, v := range f.comments {
		comments[k] = v
	}
	snapshots := make([]models.SectionRef, len(f.sections))
	for i, s := range f.sections {
		snapshots[i] = s.Snapshot()
	}
	return SurveyPayload{
		Metadata: models.SurveyMetadata{Title: SurveyTitle, SubmittedAt: f.now().UTC()},
		Answers:  answers,
		Comments: comments,
		Sections: snapshots,
	}
}

func (f *SurveyForm) missingInSection(index int) []string {
	if index < 0 || index >= len(f.sections) {
		return nil
	}
	var missing []string
	for _, q := range f.sections[index].Questions {
		if _, ok := f.answers[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

func (f *SurveyForm) sectionOf(questionID string) int {
	for i, s := range f.sections {
		for _, q := range s.Questions {
			if q.ID == questionID {
				return i
			}
		}
	}
	return 0
}

func (f *SurveyForm) knownQuestion(id string) bool {
	for _, s := range f.sections {
		for _, q := range s.Questions {
			if q.ID == id {
				return true
			}
		}
	}
	return false
}

func (f *SurveyForm) knownSection(id string) bool {
	for _, s := range f.sections {
		if s.ID == id {
			return true
		}
	}
	return false
}
