// ABOUTME: Web UI server with embedded templates
// ABOUTME: Serves the dashboard, CSV export, lead webhook, chat polling and live events
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/viz"
)

//go:embed templates/*
var templatesFS embed.FS

type Server struct {
	repo        *crm.Repository
	templates   *template.Template
	generator   *viz.GraphGenerator
	hub         *Hub
	log         *logrus.Entry
	unsubscribe func()
}

func NewServer(repo *crm.Repository, logger *logrus.Logger) (*Server, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	funcMap := template.FuncMap{
		"percent": func(n, total int) int {
			if total == 0 {
				return 0
			}
			return n * 100 / total
		},
		"stageName": func(l models.Lead) string {
			_, stage := repo.FunnelAndStageName(l)
			return stage
		},
		"assignee": repo.AssigneeName,
		"ts": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04")
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		repo:      repo,
		templates: tmpl,
		generator: viz.NewGraphGenerator(repo),
		hub:       NewHub(logger),
		log:       logger.WithField("component", "web"),
	}
	s.unsubscribe = repo.Subscribe(s.hub.Publish)
	return s, nil
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /leads", s.handleLeads)
	mux.HandleFunc("GET /export.csv", s.handleExport)
	mux.HandleFunc("GET /graph", s.handleGraph)
	mux.HandleFunc("POST /webhooks/funnels/{id}", s.handleWebhook)
	mux.HandleFunc("GET /leads/{id}/messages", s.handleMessages)
	mux.Handle("GET /ws", s.hub)
	return mux
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("starting web server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close detaches from the repository and drops websocket clients.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.hub.Close()
}

type funnelView struct {
	Funnel models.Funnel
	Total  int
	Stages []stageView
}

type stageView struct {
	Stage models.Stage
	Leads []models.Lead
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var funnels []funnelView
	for _, f := range s.repo.Funnels() {
		fv := funnelView{Funnel: f}
		for _, st := range f.SortedStages() {
			leads := s.repo.LeadsByStage(f.ID, st.ID)
			fv.Total += len(leads)
			fv.Stages = append(fv.Stages, stageView{Stage: st, Leads: leads})
		}
		funnels = append(funnels, fv)
	}

	data := map[string]interface{}{
		"Title":           "Dashboard",
		"ContentTemplate": "dashboard-content",
		"Stats":           s.repo.Stats(),
		"Funnels":         funnels,
	}
	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) handleLeads(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	leads := s.repo.Leads()
	if query != "" {
		leads = s.repo.SearchLeads(query)
	}

	data := map[string]interface{}{
		"Title":           "Leads",
		"ContentTemplate": "leads-content",
		"Query":           query,
		"Leads":           leads,
	}
	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.WithError(err).WithField("template", name).Error("template error")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	exp := s.repo.ExportCSV(r.URL.Query().Get("funnel"))
	w.Header().Set("Content-Type", exp.MIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	if _, err := w.Write([]byte(exp.Content)); err != nil {
		s.log.WithError(err).Debug("error writing export")
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	dot, err := s.generator.GeneratePipelineGraph(r.URL.Query().Get("funnel"))
	if errors.Is(err, crm.ErrFunnelNotFound) {
		http.Error(w, "Funnel not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(dot))
}

// WebhookLead is the body accepted by the funnel webhook.
type WebhookLead struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	f, err := s.repo.Funnel(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Funnel not found")
		return
	}
	if f.Webhook == nil || !f.Webhook.Active {
		writeError(w, http.StatusForbidden, "Webhook is not active for this funnel")
		return
	}

	var in WebhookLead
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	lead, err := s.repo.AddLead(models.Lead{
		Name:     in.Name,
		Phone:    in.Phone,
		Email:    strings.TrimSpace(in.Email),
		Notes:    in.Notes,
		FunnelID: f.ID,
		Source:   models.SourceWebhook,
	})
	if errors.Is(err, crm.ErrMissingField) {
		writeError(w, http.StatusBadRequest, "Name and phone are required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.WithFields(logrus.Fields{"funnel_id": f.ID, "lead_id": lead.ID}).Info("lead received via webhook")
	writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.repo.Lead(id); err != nil {
		writeError(w, http.StatusNotFound, "Lead not found")
		return
	}
	messages := s.repo.ChatHistory(id)
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
