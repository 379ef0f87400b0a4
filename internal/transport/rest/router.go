package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/evalify/evalify-evaluator/internal/service"
	"github.com/evalify/evalify-evaluator/internal/transport/rest/handler"
	"github.com/evalify/evalify-evaluator/internal/transport/rest/middleware"
	"github.com/evalify/evalify-evaluator/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService *service.AuthService
	Engine      *service.Engine
	WSHandler   *ws.Handler
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	authHandler := handler.NewAuthHandler(c.AuthService)
	evalHandler := handler.NewEvaluationHandler(c.Engine)

	authMW := middleware.NewAuthMiddleware(c.AuthService)

	r.Use(corsMiddleware)

	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/token", authHandler.Token).Methods("POST", "OPTIONS")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Evaluation routes (require service auth)
	evalRoutes := v1.NewRoute().Subrouter()
	evalRoutes.Use(authMW.RequireService)

	evalRoutes.HandleFunc("/evaluations", evalHandler.Submit).Methods("POST", "OPTIONS")
	evalRoutes.HandleFunc("/evaluations/{quizId}/progress", evalHandler.Progress).Methods("GET", "OPTIONS")
	evalRoutes.HandleFunc("/evaluations/{quizId}/results", evalHandler.Results).Methods("GET", "OPTIONS")

	// WebSocket route (token via query param)
	evalRoutes.HandleFunc("/evaluations/{quizId}/progress/watch", c.WSHandler.Watch).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
