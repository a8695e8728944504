package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"homedash-backend/application/services"
	"homedash-backend/interfaces/http/rest/handlers"
	"homedash-backend/interfaces/http/rest/middleware"
	pkgerrors "homedash-backend/pkg/errors"
)

// Router creates and configures the HTTP router
type Router struct {
	layoutService *services.LayoutService
	logger        *zap.Logger
	debug         bool
	enableCORS    bool
}

// NewRouter creates a new router instance. CORS is optional: deployments
// fronted by a gateway that owns the CORS policy switch it off here.
func NewRouter(layoutService *services.LayoutService, logger *zap.Logger, debug, enableCORS bool) *Router {
	return &Router{
		layoutService: layoutService,
		logger:        logger,
		debug:         debug,
		enableCORS:    enableCORS,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	// CORS configuration
	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.homedash.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	errorHandler := pkgerrors.NewErrorHandler(rt.logger, rt.debug)
	layoutHandler := handlers.NewLayoutHandler(rt.layoutService, errorHandler, rt.logger)
	widgetHandler := handlers.NewWidgetHandler(rt.layoutService, errorHandler, rt.logger)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate())

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/layout", layoutHandler.GetLayout)
			r.Get("/layout/state", layoutHandler.GetSaveState)
			r.Post("/flush", layoutHandler.FlushLayout)
			r.Get("/widget-types", layoutHandler.GetWidgetTypes)

			r.Route("/widgets", func(r chi.Router) {
				r.Post("/", widgetHandler.AddWidget)
				r.Delete("/{widgetID}", widgetHandler.RemoveWidget)
				r.Put("/{widgetID}/placement", widgetHandler.UpdatePlacement)
				r.Put("/{widgetID}/position", widgetHandler.UpdatePosition)
				r.Patch("/{widgetID}/settings", widgetHandler.UpdateSettings)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
