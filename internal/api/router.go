package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/studypipe/studypipe/internal/services"
)

// Router exposes the consent and survey services over JSON HTTP. The
// services are authoritative for validation; the router only translates
// between the wire and the service layer.
type Router struct {
	consents *services.ConsentService
	surveys  *services.SurveyService
	logger   *zap.Logger
}

func NewRouter(consents *services.ConsentService, surveys *services.SurveyService, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{consents: consents, surveys: surveys, logger: logger}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", rt.handleHealth)
	mux.HandleFunc("/api/consent", rt.handleConsent)      // POST
	mux.HandleFunc("/api/consent/", rt.handleConsentByID) // DELETE /api/consent/{id}
	mux.HandleFunc("/api/surveys", rt.handleSurveys)      // POST, GET
	mux.HandleFunc("/api/surveys/", rt.handleSurveyByID)  // GET, PATCH, DELETE
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) handleConsent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	var sub services.ConsentSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
		return
	}
	sub.IPAddress = clientIP(r)
	sub.UserAgent = r.UserAgent()
	rec, err := rt.consents.Submit(sub)
	if err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": rec.ID, "message": "Consent stored"})
}

func (rt *Router) handleConsentByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/api/consent/")
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
		return
	}
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if err := rt.consents.Delete(id); err != nil {
		rt.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

func (rt *Router) handleSurveys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var sub services.SurveySubmission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
			return
		}
		sub.RequestIP = clientIP(r)
		rec, err := rt.surveys.Create(sub)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": rec.ID, "message": "Survey saved"})
	case http.MethodGet:
		q := r.URL.Query()
		var f services.SurveyFilter
		if q.Has("reviewed") {
			b := q.Get("reviewed") == "true"
			f.Reviewed = &b
		}
		f.RespondentID = q.Get("respondentId")
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		result, err := rt.surveys.List(f, page, limit)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) handleSurveyByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r.URL.Path, "/api/surveys/")
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
		return
	}
	switch r.Method {
	case http.MethodGet:
		rec, err := rt.surveys.Get(id)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodPatch:
		var upd services.SurveyUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON payload"})
			return
		}
		rec, err := rt.surveys.Update(id, upd)
		if err != nil {
			rt.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := rt.surveys.Delete(id); err != nil {
			rt.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "message": "Deleted"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

// writeError maps the service taxonomy onto HTTP statuses. Storage and
// unexpected faults are logged and answered with a generic message so no
// internal detail leaks to clients.
func (rt *Router) writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		switch se.Code {
		case services.ErrorInvalid:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": se.Message})
			return
		case services.ErrorNotFound:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": se.Message})
			return
		}
	}
	rt.logger.Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(path, prefix string) (string, bool) {
	id := strings.TrimPrefix(path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
