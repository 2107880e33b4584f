package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/lakbayhq/lakbay-api/internal/api/auth"
	"github.com/lakbayhq/lakbay-api/internal/api/export"
	"github.com/lakbayhq/lakbay-api/internal/api/itinerary"
)

// Config contains the handler dependencies for the router setup.
type Config struct {
	AuthHandler            *auth.Handler
	ItineraryHandler       *itinerary.Handler
	ExportHandler          *export.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
}

// SetupRouter wires the API routes. Server-wide middleware (request ID,
// logger, recoverer) is applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Group(func(r chi.Router) {
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.Refresh)
		})

		// Everything else requires a valid access token.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Route("/itineraries", func(r chi.Router) {
				r.Post("/", cfg.ItineraryHandler.CreateItinerary)
				r.Get("/", cfg.ItineraryHandler.GetItineraries)

				r.Route("/{itineraryID}", func(r chi.Router) {
					r.Get("/", cfg.ItineraryHandler.GetItinerary)
					r.Delete("/", cfg.ItineraryHandler.DeleteItinerary)
					r.Post("/generate", cfg.ItineraryHandler.GenerateItinerary)
					r.Get("/save-state", cfg.ItineraryHandler.GetSaveState)
					r.Get("/export", cfg.ExportHandler.ExportItinerary)

					r.Route("/days/{day}", func(r chi.Router) {
						r.Get("/", cfg.ItineraryHandler.GetDay)
						r.Post("/reorder", cfg.ItineraryHandler.ReorderActivity)
						r.Post("/substitute", cfg.ItineraryHandler.SubstituteActivity)
					})
				})
			})
		})
	})

	return r
}
