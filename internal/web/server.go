// Package web provides a simple approvals web UI for stagehand.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/metalagman/stagehand/internal/spec"
	"github.com/metalagman/stagehand/internal/store"
)

// Server provides the web UI handlers and state.
type Server struct {
	store *store.Store
}

// NewServer creates a new web server.
func NewServer(st *store.Store) (*Server, error) {
	return &Server{store: st}, nil
}

//go:embed templates/*.html
var templatesFS embed.FS

// Routes returns the router for the web UI.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("POST /breakpoints/{id}/decision", s.handleDecision)
	return mux
}

type breakpointView struct {
	ID       string
	RunID    string
	Title    string
	Question string
	Context  string
	RaisedAt string
}

type indexView struct {
	Pending []breakpointView
	Runs    []store.RunRecord
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	tmpl, err := template.ParseFS(templatesFS, "templates/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	pending, err := s.store.ListPendingBreakpoints(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	runs, err := s.store.ListRuns(r.Context(), 20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	view := indexView{Runs: runs}
	for _, bp := range pending {
		view.Pending = append(view.Pending, breakpointView{
			ID:       bp.BreakpointID,
			RunID:    bp.RunID,
			Title:    bp.Title,
			Question: bp.Question,
			Context:  indentJSON(bp.ContextJSON),
			RaisedAt: bp.RaisedAt,
		})
	}

	if err := tmpl.Execute(w, view); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	action := r.FormValue("action")
	note := r.FormValue("note")

	var decision spec.DecisionAction
	switch action {
	case "proceed":
		decision = spec.DecisionProceed
	case "reject":
		decision = spec.DecisionReject
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}

	if err := s.store.RecordDecision(r.Context(), id, string(decision), note, ""); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func indentJSON(raw string) string {
	if raw == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return raw
	}
	return string(out)
}
