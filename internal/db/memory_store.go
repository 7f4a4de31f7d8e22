package db

import (
	"sort"
	"sync"

	"github.com/studypipe/studypipe/internal/models"
	"github.com/studypipe/studypipe/internal/services"
)

// MemoryStore is the in-memory submission store. It backs tests and the
// memory driver; records are deep-copied on the way in and out so callers
// never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	consents map[string]*models.ConsentRecord
	surveys  map[string]*models.SurveyRecord
	order    []string // survey ids in insertion order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		consents: map[string]*models.ConsentRecord{},
		surveys:  map[string]*models.SurveyRecord{},
	}
}

func (s *MemoryStore) InsertConsent(cr *models.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *cr
	s.consents[cr.ID] = &copy
	return nil
}

func (s *MemoryStore) DeleteConsent(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consents[id]; !ok {
		return false, nil
	}
	delete(s.consents, id)
	return true, nil
}

// GetConsent is used by tests; the API has no consent read endpoint.
func (s *MemoryStore) GetConsent(id string) *models.ConsentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cr, ok := s.consents[id]
	if !ok {
		return nil
	}
	copy := *cr
	return &copy
}

func (s *MemoryStore) InsertSurvey(rec *models.SurveyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surveys[rec.ID] = rec.Clone()
	s.order = append(s.order, rec.ID)
	return nil
}

func (s *MemoryStore) GetSurvey(id string) (*models.SurveyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.surveys[id].Clone(), nil
}

func (s *MemoryStore) ReplaceSurvey(rec *models.SurveyRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.surveys[rec.ID]; !ok {
		return false, nil
	}
	s.surveys[rec.ID] = rec.Clone()
	return true, nil
}

func (s *MemoryStore) DeleteSurvey(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.surveys[id]; !ok {
		return false, nil
	}
	delete(s.surveys, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *MemoryStore) ListSurveys(f services.SurveyFilter, offset, limit int) ([]*models.SurveyRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]*models.SurveyRecord, 0, len(s.order))
	for _, id := range s.order {
		rec := s.surveys[id]
		if f.Reviewed != nil && rec.Reviewed != *f.Reviewed {
			continue
		}
		if f.RespondentID != "" && rec.Metadata.RespondentID != f.RespondentID {
			continue
		}
		matched = append(matched, rec)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]*models.SurveyRecord, 0, end-offset)
	for _, rec := range matched[offset:end] {
		out = append(out, rec.Clone())
	}
	return out, total, nil
}

var (
	_ services.ConsentStore = (*MemoryStore)(nil)
	_ services.SurveyStore  = (*MemoryStore)(nil)
)
