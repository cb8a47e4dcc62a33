package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/graphql-go/graphql"
)

const maxBodyBytes = 1 << 20

type GraphQLHandler struct {
	Schema   graphql.Schema
	Verifier TokenVerifier
}

type graphQLRequest struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

func (h *GraphQLHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(Session(h.Verifier))
		r.Post("/graphql", h.serve)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"errors": []map[string]string{{"message": msg}}})
}

func (h *GraphQLHandler) serve(w http.ResponseWriter, r *http.Request) {
	var req graphQLRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res := graphql.Do(graphql.Params{
		Schema:         h.Schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
	// errors raised by resolvers are part of a 200 response; only requests
	// that never executed get 400
	code := http.StatusOK
	if res.HasErrors() && res.Data == nil {
		code = http.StatusBadRequest
	}
	writeJSON(w, code, res)
}
