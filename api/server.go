/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. httplog:    Structured request logging (slog, ECS schema)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/employees/*      Records, comparisons, predictions per employee
  /api/compare          Cross-employee comparison
  /api/increases/*      Salary-increase definitions
  /api/config           Engine configuration
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-engine"),
	)

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee records and per-employee engine operations
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetEmployee)
				r.Get("/balances", h.GetBalances)
				r.Get("/calendar", h.GetCalendar)
				r.Post("/calendar", h.ImportCalendar)
				r.Post("/time-entries", h.ImportTimeEntries)

				r.Route("/periods", func(r chi.Router) {
					r.Get("/", h.ListPeriods)
					r.Post("/", h.ImportPeriod)
					r.Get("/{label}", h.GetPeriod)
					r.Get("/{label}/decomposition", h.Decompose)
					r.Get("/{label}/benchmark", h.Benchmark)
				})

				r.Get("/compare", h.ComparePeriods)
				r.Post("/retroactive", h.RunRetroactive)
				r.Get("/predictions", h.ListPredictions)
				r.Post("/predictions", h.CreatePrediction)
				r.Post("/scenarios", h.RunScenarios)
			})
		})

		// Cross-employee comparison
		r.Get("/compare", h.CompareEmployees)

		// Increase definitions
		r.Route("/increases", func(r chi.Router) {
			r.Get("/", h.ListIncreases)
			r.Post("/", h.CreateIncrease)
		})

		// Engine configuration
		r.Put("/config", h.LoadConfig)

		// Demo scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"service":"payroll-engine","docs":"/api"}`))
	})

	return r
}
