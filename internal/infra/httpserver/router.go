package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalysis "github.com/bryanwahyu/reqanalyzer/internal/application/analysis"
	domai "github.com/bryanwahyu/reqanalyzer/internal/domain/ai"
	domain "github.com/bryanwahyu/reqanalyzer/internal/domain/analysis"
	"github.com/bryanwahyu/reqanalyzer/internal/domain/faults"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/cache"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/health"
	"github.com/bryanwahyu/reqanalyzer/internal/infra/ragtracker"
	"github.com/bryanwahyu/reqanalyzer/internal/middleware"
)

type Router struct {
	svc          *appanalysis.Service
	requirements domain.RequirementSource
	analyses     domain.Repository
	faults       faults.Repository
	tracker      *ragtracker.Tracker
	monitor      *health.Monitor
	cache        *cache.LRU
}

func NewRouter(
	svc *appanalysis.Service,
	requirements domain.RequirementSource,
	analyses domain.Repository,
	faultRepo faults.Repository,
	tracker *ragtracker.Tracker,
	monitor *health.Monitor,
	resultCache *cache.LRU,
) http.Handler {
	r := &Router{
		svc:          svc,
		requirements: requirements,
		analyses:     analyses,
		faults:       faultRepo,
		tracker:      tracker,
		monitor:      monitor,
		cache:        resultCache,
	}
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Post("/analysis", r.wrap(r.handleAnalyze))
		rt.Get("/analysis", r.wrap(r.handleAnalysisList))
		rt.Get("/analysis/{requirementID}/latest", r.wrap(r.handleAnalysisLatest))
		rt.Get("/analysis/{requirementID}/faults", r.wrap(r.handleFaults))
		rt.Get("/rag/summary", r.wrap(r.handleRAGSummary))
		rt.Get("/rag/recommendations", r.wrap(r.handleRAGRecommendations))
		rt.Get("/rag/export", r.wrap(r.handleRAGExport))
		rt.Get("/backends", r.wrap(r.handleBackends))
		rt.Get("/performance", r.wrap(r.handlePerformance))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			if errors.Is(err, domai.ErrQuotaExceeded) {
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
				return
			}
			var ae *domain.Error
			if errors.As(err, &ae) {
				http.Error(w, ae.Error(), statusForKind(ae.Kind))
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.ErrKindValidation:
		return http.StatusBadRequest
	case domain.ErrKindTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrKindBackendUnavailable:
		return http.StatusServiceUnavailable
	case domain.ErrKindMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// POST /v1/{tenant}/analysis
// Body: {"requirement_id": "<id>"} to analyze a stored requirement, or an
// inline context: {"text": "...", "tables": [...], "paragraphs": [...]}.
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		return domain.NewError(domain.ErrKindValidation, err.Error(), "")
	}

	var body struct {
		RequirementID string                     `json:"requirement_id"`
		Text          string                     `json:"text"`
		Tables        []domain.SupplementalTable `json:"tables"`
		Paragraphs    []string                   `json:"paragraphs"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return domain.NewError(domain.ErrKindValidation, fmt.Sprintf("bad request body: %v", err), "")
	}

	var rc *domain.RequirementContext
	if body.RequirementID != "" {
		if err := middleware.ValidateRequirementID(body.RequirementID); err != nil {
			return domain.NewError(domain.ErrKindValidation, err.Error(), "")
		}
		stored, err := r.requirements.Get(req.Context(), tenant, body.RequirementID)
		if err != nil {
			return err
		}
		if stored == nil {
			return sql.ErrNoRows
		}
		rc = stored
	} else {
		if err := middleware.ValidateRequirementText(body.Text); err != nil {
			return domain.NewError(domain.ErrKindValidation, err.Error(), "")
		}
		rc = &domain.RequirementContext{
			ID:         "inline",
			Text:       body.Text,
			Tables:     body.Tables,
			Paragraphs: body.Paragraphs,
		}
	}

	middleware.IncrementAnalyses()
	progress := func(stage domain.Stage, detail string) {
		switch stage {
		case domain.StageFallback:
			middleware.IncrementAnalysesFallback()
		case domain.StageDone:
			if detail == "cache hit" {
				middleware.IncrementAnalysesCached()
			}
		}
	}

	res, err := r.svc.Analyze(req.Context(), tenant, *rc, progress)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(res)
}

// GET /v1/{tenant}/analysis?page=&page_size=
func (r *Router) handleAnalysisList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.analyses.Paginate(req.Context(), tenant, middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/analysis/{requirementID}/latest
func (r *Router) handleAnalysisLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	reqID := chi.URLParam(req, "requirementID")

	rec, err := r.analyses.LatestByRequirement(req.Context(), tenant, reqID)
	if err != nil {
		return err
	}
	if rec == nil {
		return sql.ErrNoRows
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(rec)
}

// GET /v1/{tenant}/analysis/{requirementID}/faults?limit=20
func (r *Router) handleFaults(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	reqID := chi.URLParam(req, "requirementID")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.faults.ListByRequirement(req.Context(), tenant, reqID, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/rag/summary?workspace=
func (r *Router) handleRAGSummary(w http.ResponseWriter, req *http.Request) error {
	workspace := req.URL.Query().Get("workspace")
	if workspace == "" {
		workspace = r.svc.WorkspaceID
	}
	if err := middleware.ValidateWorkspaceID(workspace); err != nil {
		return domain.NewError(domain.ErrKindValidation, err.Error(), "")
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(r.tracker.Summary(workspace))
}

// GET /v1/{tenant}/rag/recommendations
func (r *Router) handleRAGRecommendations(w http.ResponseWriter, req *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"recommendations": r.tracker.Recommendations(),
	})
}

// GET /v1/{tenant}/rag/export
func (r *Router) handleRAGExport(w http.ResponseWriter, req *http.Request) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, err := w.Write([]byte(r.tracker.ExportText()))
	return err
}

// GET /v1/{tenant}/backends
func (r *Router) handleBackends(w http.ResponseWriter, req *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(r.monitor.States())
}

// GET /v1/{tenant}/performance
func (r *Router) handlePerformance(w http.ResponseWriter, req *http.Request) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"cache":   r.cache.Stats(),
		"process": middleware.GetMetrics(),
	})
}
