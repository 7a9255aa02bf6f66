package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	app_errors "onlinellm-gateway/backend/internal/errors"
	"onlinellm-gateway/backend/internal/interfaces"
	"onlinellm-gateway/backend/internal/model"
)

// maxBodyBytes bounds inbound request bodies.
const maxBodyBytes = 4 << 20

// CompletionHandler serves the chat-completion endpoint.
type CompletionHandler struct {
	service interfaces.CompletionService
}

func NewCompletionHandler(svc interfaces.CompletionService) *CompletionHandler {
	return &CompletionHandler{service: svc}
}

// HandleChatCompletions godoc
// @Summary      Create a chat completion
// @Description  Forwards the conversation to the configured Azure OpenAI deployment. Models whose name contains the online marker (default "_onlinellm") are enriched with web search snippets first.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        model_name  path      string                   true  "Model name (used when the body omits model)"
// @Param        request     body      model.CompletionRequest  true  "Chat completion request"
// @Success      200         {object}  model.CompletionResponse
// @Failure      400         {object}  ErrorResponse
// @Failure      401         {object}  ErrorResponse
// @Failure      502         {object}  ErrorResponse
// @Router       /openai/deployments/{model_name}/chat/completions [post]
func (h *CompletionHandler) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req model.CompletionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondWithError(w, r, fmt.Errorf("%w: invalid request body: %s", app_errors.ErrValidation, err.Error()))
		return
	}
	if req.Model == "" {
		req.Model = chi.URLParam(r, "model_name")
	}

	if err := validateRequest(&req); err != nil {
		respondWithError(w, r, err)
		return
	}

	slog.Info("Received chat completion request",
		"request_id", RequestIDFromContext(r.Context()),
		"model", req.Model,
		"messages", len(req.Messages),
	)

	resp, err := h.service.Complete(r.Context(), &req)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// Healthz godoc
// @Summary      Liveness probe
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /healthz [get]
func Healthz(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
