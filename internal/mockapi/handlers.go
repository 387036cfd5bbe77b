package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/leapconnect/pkg/transport"
)

// Handlers serves the people endpoints.
type Handlers struct {
	store    *Store
	username string
	password string
	signer   *transport.Signer
	logger   *slog.Logger
}

// List handles GET /customers/{customerId}/people.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	filters := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			filters[k] = v[0]
		}
	}
	writeJSON(w, http.StatusOK, h.store.List(chi.URLParam(r, "customerId"), filters))
}

// Get handles GET /customers/{customerId}/people/{id}.
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := h.store.Get(chi.URLParam(r, "customerId"), chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "person not found"})
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Create handles POST /customers/{customerId}/people. It answers 201 with the
// new item's URL in the Location header and an empty body.
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var p Person
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be a JSON object"})
		return
	}
	if p == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be a JSON object"})
		return
	}

	customer := chi.URLParam(r, "customerId")
	id := h.store.Create(customer, p)

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	w.Header().Set("Location", scheme+"://"+r.Host+r.URL.EscapedPath()+"/"+id)
	w.WriteHeader(http.StatusCreated)

	h.logger.Debug("created person", slog.String("customer", customer), slog.String("id", id))
}

// Authenticate accepts basic credentials or a valid HMAC signature.
func (h *Handlers) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); ok {
			if user != h.username || pass != h.password {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if h.signer == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err := h.signer.Verify(r, body, signatureSkew); err != nil {
			h.logger.Debug("rejected signature", slog.String("error", err.Error()))
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
