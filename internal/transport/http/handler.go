package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"EvolutionProfiles/internal/domain"
	"EvolutionProfiles/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	service    service.Service
	enrichWait time.Duration
	gatherer   prometheus.Gatherer
}

// NewHandler builds the HTTP handler. enrichWait bounds how long a profile
// request waits for the GitHub identity; gatherer may be nil to disable /metrics.
func NewHandler(svc service.Service, enrichWait time.Duration, gatherer prometheus.Gatherer) *Handler {
	return &Handler{
		service:    svc,
		enrichWait: enrichWait,
		gatherer:   gatherer,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Route("/people", func(r chi.Router) {
		r.Post("/add", h.AddPerson)
		r.Get("/get", h.GetPerson)
	})

	r.Route("/proposals", func(r chi.Router) {
		r.Post("/add", h.AddProposal)
		r.Get("/get", h.GetProposal)
	})

	r.Route("/profile", func(r chi.Router) {
		r.Get("/get", h.GetProfile)
		r.Get("/select", h.SelectProposal)
	})

	r.Get("/health", h.Health)
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

func (h *Handler) AddPerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	person, err := h.service.AddPerson(r.Context(), req.toDomain())
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"person": mapPerson(person),
	})
}

func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "username is required")
		return
	}

	person, err := h.service.GetPerson(r.Context(), username)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mapPerson(person))
}

func (h *Handler) AddProposal(w http.ResponseWriter, r *http.Request) {
	var req createProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	proposal, err := h.service.AddProposal(r.Context(), req.toDomain())
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"proposal": mapProposal(proposal),
	})
}

func (h *Handler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("proposal_id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "proposal_id is required")
		return
	}

	proposal, err := h.service.GetProposal(r.Context(), id)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, mapProposal(proposal))
}

// GetProfile renders a profile screen. It waits up to enrichWait for the
// GitHub identity and renders without it otherwise; the screen is closed on
// return so a late identity is dropped.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "username is required")
		return
	}

	screen, done, err := h.service.OpenProfile(r.Context(), username)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}
	defer screen.Close()

	if h.enrichWait > 0 {
		timer := time.NewTimer(h.enrichWait)
		select {
		case <-done:
		case <-timer.C:
		case <-r.Context().Done():
		}
		timer.Stop()
	}

	respondJSON(w, http.StatusOK, mapProfile(screen.Snapshot()))
}

func (h *Handler) SelectProposal(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	username := query.Get("username")
	if username == "" {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "username is required")
		return
	}

	section, err := strconv.Atoi(query.Get("section"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "section must be an integer")
		return
	}
	row, err := strconv.Atoi(query.Get("row"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "row must be an integer")
		return
	}

	proposal, err := h.service.SelectProposal(r.Context(), username, section, row)
	if err != nil {
		h.handleDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"proposal": mapProposal(proposal),
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Health(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "UNHEALTHY", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrProposalExists):
		respondError(w, http.StatusConflict, "PROPOSAL_EXISTS", "proposal already exists")
	case errors.Is(err, domain.ErrSectionOutOfRange), errors.Is(err, domain.ErrRowOutOfRange):
		respondError(w, http.StatusNotFound, "NO_SUCH_ROW", err.Error())
	case errors.Is(err, domain.ErrPersonNotFound), errors.Is(err, domain.ErrProposalNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}
