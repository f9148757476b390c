package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter mounts the API routes with request logging. CORS wraps the whole
// router: mux middleware never sees preflight requests, which match no route.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(requestLogger(h.Log))

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	api.HandleFunc("/standings", h.Standings).Methods(http.MethodGet)
	api.HandleFunc("/teams/{id}/solkoff-details", h.SolkoffDetails).Methods(http.MethodGet)
	api.HandleFunc("/teams/{id}/history", h.TeamHistory).Methods(http.MethodGet)
	api.HandleFunc("/playoff-pairs", h.PlayoffPairs).Methods(http.MethodGet)
	api.HandleFunc("/current-stage", h.CurrentStage).Methods(http.MethodGet)
	api.HandleFunc("/analyze/{team1}/{team2}", h.Analyze).Methods(http.MethodGet)
	api.HandleFunc("/refresh", h.Refresh).Methods(http.MethodPost)

	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})(r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestLogger(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start).String(),
			}).Debug("request")
		})
	}
}
