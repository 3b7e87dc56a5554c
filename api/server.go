/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/agencies/*       Public agency and slot listings
  /api/slots/*          Public booking
  /api/appointments/*   Token-guarded self-service
  /api/pages/*          Public content pages
  /api/admin/*          JWT-guarded back office
  /metrics              Prometheus collectors

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Admin login and JWT middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osengo/booking-engine/metrics"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(countRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(h.cfg.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Public: agencies and their open slots
		r.Route("/agencies", func(r chi.Router) {
			r.Get("/", h.ListAgencies)
			r.Get("/{id}/slots", h.ListAgencySlots)
		})

		// Public: booking
		r.Post("/slots/{id}/book", h.Book)

		// Public: token-guarded self-service
		r.Route("/appointments", func(r chi.Router) {
			r.Get("/view", h.ViewAppointment)
			r.Post("/cancel", h.CancelAppointment)
			r.Post("/reschedule", h.RescheduleAppointment)
		})

		// Public: content pages
		r.Route("/pages", func(r chi.Router) {
			r.Get("/", h.ListPages)
			r.Get("/{slug}", h.GetPage)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.Login)

			r.Group(func(r chi.Router) {
				r.Use(AdminJWT(h.cfg.AdminJWTSecret))

				r.Route("/appointments", func(r chi.Router) {
					r.Get("/", h.ListAppointments)
					r.Post("/{id}/accept", h.AcceptAppointment)
					r.Post("/{id}/reject", h.RejectAppointment)
				})

				r.Route("/slots", func(r chi.Router) {
					r.Post("/", h.CreateSlots)
					r.Delete("/{id}", h.DeleteSlot)
				})

				r.Route("/agencies", func(r chi.Router) {
					r.Post("/", h.CreateAgency)
					r.Put("/{id}", h.UpdateAgency)
					r.Delete("/{id}", h.DeleteAgency)
				})

				r.Route("/pages", func(r chi.Router) {
					r.Post("/", h.SavePage)
					r.Delete("/{id}", h.DeletePage)
				})

				r.Get("/export", h.ExportCSV)
				r.Get("/dashboard", h.Dashboard)
			})
		})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// countRequests feeds every handled request into the HTTP counter, labelled
// by the matched chi route pattern so path parameters do not explode the
// label cardinality.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Inc()
	})
}
