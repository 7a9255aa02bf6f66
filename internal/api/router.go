package api

import (
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "onlinellm-gateway/backend/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter creates the chi router. apiKey gates the completion routes;
// requestTimeout bounds each completion request (0 disables it).
func NewRouter(completionHandler *CompletionHandler, apiKey string, requestTimeout time.Duration) *chi.Mux {
	r := chi.NewRouter()

	// --- Global Middleware ---
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- Public Routes ---
	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	r.Get("/healthz", Healthz)

	// --- Azure OpenAI compatible routes ---
	r.Route("/openai/deployments/{model_name}", func(r chi.Router) {
		r.Use(RequireAPIKey(apiKey))
		if requestTimeout > 0 {
			r.Use(middleware.Timeout(requestTimeout))
		}

		r.Post("/chat/completions", completionHandler.HandleChatCompletions)
	})

	return r
}
