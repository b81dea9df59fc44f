package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"nflstats/internal/tools"

	"github.com/gorilla/mux"
)

// maxArgsBytes bounds a tool-call request body
const maxArgsBytes = 64 << 10

// Handler contains dependencies for HTTP handlers
type Handler struct {
	registry *tools.Registry
	hub      *Hub
	health   HealthFunc
}

// NewHandler creates a new handler
func NewHandler(registry *tools.Registry, hub *Hub, health HealthFunc) *Handler {
	return &Handler{registry: registry, hub: hub, health: health}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}

	resp := map[string]interface{}{
		"status":  "healthy",
		"service": "nflstats",
	}
	if h.hub != nil {
		resp["live_clients"] = h.hub.ClientCount()
	}
	respondJSON(w, http.StatusOK, resp)
}

// ListTools returns every registered tool and its parameters
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tools": h.registry.Specs(),
	})
}

// CallTool runs a tool with the JSON object body as arguments
func (h *Handler) CallTool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !h.registry.Has(name) {
		respondError(w, http.StatusNotFound, "Unknown tool", nil)
		return
	}

	args := tools.Args{}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxArgsBytes))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Arguments must be a JSON object", err)
		return
	}

	result, err := h.registry.Call(r.Context(), name, args)
	if err != nil {
		var argErr *tools.ArgError
		switch {
		case errors.Is(err, tools.ErrUnknownTool):
			respondError(w, http.StatusNotFound, "Unknown tool", err)
		case errors.As(err, &argErr):
			respondError(w, http.StatusBadRequest, "Invalid arguments", err)
		default:
			respondError(w, http.StatusInternalServerError, "Tool failed", err)
		}
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}
