package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	apphealth "github.com/bryanwahyu/sellerpulse/internal/application/health"
	"github.com/bryanwahyu/sellerpulse/internal/application/syncs"
	"github.com/bryanwahyu/sellerpulse/internal/domain/customers"
	"github.com/bryanwahyu/sellerpulse/internal/middleware"
)

// Syncer runs syncs on behalf of the HTTP triggers
type Syncer interface {
	Run(ctx context.Context, customerID string, syncType syncs.SyncType) (*syncs.Report, error)
	RunAll(ctx context.Context, syncType syncs.SyncType) ([]syncs.CronResult, error)
}

// Options for NewRouter. Checkers back GET /health.
type Options struct {
	Syncs       Syncer
	Health      *apphealth.Service
	APIKeys     map[string]string
	CronSecret  string
	Limiter     *middleware.RateLimiter
	CORSOrigins []string
	Checkers    map[string]middleware.HealthChecker
}

type Router struct {
	syncs  Syncer
	health *apphealth.Service
}

func NewRouter(opts Options) http.Handler {
	r := &Router{syncs: opts.Syncs, health: opts.Health}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(30, 5, 10*time.Minute)
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(rt chi.Router) {
			rt.Use(middleware.APIKeyAuth(opts.APIKeys))
			rt.With(middleware.RateLimitMiddleware(limiter)).Post("/sync", r.wrap(r.handleSync))
			rt.Route("/customers/{customerID}", func(c chi.Router) {
				c.Use(middleware.RequireCustomer)
				c.Get("/health", r.wrap(r.handleOverview))
				c.Get("/advertising/campaigns", r.wrap(r.handleCampaigns))
				c.Get("/advertising/keywords", r.wrap(r.handleKeywords))
				c.Get("/competitors", r.wrap(r.handleCompetitors))
				c.Get("/rankings", r.wrap(r.handleRankings))
				c.Get("/sync-errors", r.wrap(r.handleSyncErrors))
			})
		})
		v1.Group(func(rt chi.Router) {
			rt.Use(middleware.SystemAuth(opts.CronSecret))
			rt.Post("/cron/sync", r.wrap(r.handleCronSync))
		})
	})

	return mux
}

// statusError carries an explicit HTTP status out of a handler
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &statusError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, args...)}
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var se *statusError
		switch {
		case errors.As(err, &se):
			http.Error(w, se.msg, se.status)
		case errors.Is(err, customers.ErrNotFound):
			http.Error(w, "customer not found", http.StatusNotFound)
		case errors.Is(err, syncs.ErrInvalidSyncType):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			log.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

type syncRequest struct {
	CustomerID string `json:"customerId"`
	SyncType   string `json:"syncType"`
}

// decodeOptional accepts an empty body
func decodeOptional(req *http.Request, v any) error {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// POST /v1/sync
// Body: {"customerId": "...", "syncType": "main|complete|extended"}
// The run outlives a disconnecting client; the report comes back when done.
func (r *Router) handleSync(w http.ResponseWriter, req *http.Request) error {
	var body syncRequest
	if err := decodeOptional(req, &body); err != nil {
		return err
	}
	body.CustomerID = middleware.SanitizeString(body.CustomerID)
	if err := middleware.ValidateCustomerID(body.CustomerID); err != nil {
		return badRequest("%v", err)
	}
	syncType, err := syncs.ParseSyncType(body.SyncType)
	if err != nil {
		return err
	}
	if body.CustomerID != middleware.GetCustomerFromContext(req.Context()) {
		return &statusError{status: http.StatusForbidden, msg: "api key does not belong to this customer"}
	}

	rep, err := r.syncs.Run(context.WithoutCancel(req.Context()), body.CustomerID, syncType)
	if err != nil {
		return err
	}
	return writeJSON(w, rep)
}

// POST /v1/cron/sync
// Body (optional): {"syncType": "..."}; defaults to main for every active customer.
func (r *Router) handleCronSync(w http.ResponseWriter, req *http.Request) error {
	var body syncRequest
	if err := decodeOptional(req, &body); err != nil {
		return err
	}
	syncType, err := syncs.ParseSyncType(body.SyncType)
	if err != nil {
		return err
	}
	results, err := r.syncs.RunAll(context.WithoutCancel(req.Context()), syncType)
	if err != nil {
		return err
	}
	return writeJSON(w, results)
}

// GET /v1/customers/{customerID}/health
func (r *Router) handleOverview(w http.ResponseWriter, req *http.Request) error {
	ov, err := r.health.Overview(req.Context(), chi.URLParam(req, "customerID"))
	if err != nil {
		return err
	}
	return writeJSON(w, ov)
}

// GET /v1/customers/{customerID}/advertising/campaigns
func (r *Router) handleCampaigns(w http.ResponseWriter, req *http.Request) error {
	rows, err := r.health.CampaignPerformance(req.Context(), chi.URLParam(req, "customerID"))
	if err != nil {
		return err
	}
	return writeJSON(w, rows)
}

// GET /v1/customers/{customerID}/advertising/keywords
func (r *Router) handleKeywords(w http.ResponseWriter, req *http.Request) error {
	rows, err := r.health.KeywordPerformance(req.Context(), chi.URLParam(req, "customerID"))
	if err != nil {
		return err
	}
	return writeJSON(w, rows)
}

// GET /v1/customers/{customerID}/competitors
func (r *Router) handleCompetitors(w http.ResponseWriter, req *http.Request) error {
	rows, err := r.health.Competitors(req.Context(), chi.URLParam(req, "customerID"))
	if err != nil {
		return err
	}
	return writeJSON(w, rows)
}

// GET /v1/customers/{customerID}/rankings
func (r *Router) handleRankings(w http.ResponseWriter, req *http.Request) error {
	rows, err := r.health.KeywordRankings(req.Context(), chi.URLParam(req, "customerID"))
	if err != nil {
		return err
	}
	return writeJSON(w, rows)
}

// GET /v1/customers/{customerID}/sync-errors?limit=20
func (r *Router) handleSyncErrors(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.health.SyncErrors(req.Context(), chi.URLParam(req, "customerID"), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, list)
}
