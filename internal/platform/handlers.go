package platform

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-formflow/pkg/apispec"
	"github.com/goliatone/go-formflow/pkg/embed"
	"github.com/goliatone/go-formflow/pkg/submit"
)

const maxPayloadBytes = 1 << 20

// API serves the collaborator endpoints under a path prefix.
type API struct {
	backend   *Backend
	prefix    string
	serverURL string
	logger    *zap.Logger
}

// APIOption configures an API.
type APIOption func(*API)

// WithPrefix mounts the endpoints below prefix (default "/api").
func WithPrefix(prefix string) APIOption {
	return func(a *API) {
		a.prefix = "/" + strings.Trim(prefix, "/")
		if a.prefix == "/" {
			a.prefix = ""
		}
	}
}

// WithServerURL sets the server URL advertised in generated API documents.
func WithServerURL(url string) APIOption {
	return func(a *API) {
		a.serverURL = url
	}
}

// WithAPILogger sets the handler logger.
func WithAPILogger(logger *zap.Logger) APIOption {
	return func(a *API) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAPI builds the handlers for backend.
func NewAPI(backend *Backend, opts ...APIOption) *API {
	a := &API{backend: backend, prefix: "/api", logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Register adds the API routes to mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+a.prefix+"/forms/{id}", a.handleForm)
	mux.HandleFunc("GET "+a.prefix+"/forms/{id}/verify-domain", a.handleVerify)
	mux.HandleFunc("POST "+a.prefix+"/forms/{id}/submit", a.handleSubmit)
	mux.HandleFunc("GET "+a.prefix+"/forms/{id}/openapi.json", a.handleDocument)
}

// Handler returns a mux serving only the API routes.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.Register(mux)
	return mux
}

type errorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

type verifyResponse struct {
	Verified bool   `json:"verified"`
	Domain   string `json:"domain"`
}

func (a *API) handleForm(w http.ResponseWriter, r *http.Request) {
	form, err := a.backend.Form(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeFormError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, form)
}

func (a *API) handleVerify(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("domain"))
	if raw == "" {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "domain query parameter is required"})
		return
	}
	domain, err := embed.NormalizeDomain(raw)
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid domain"})
		return
	}
	ok, err := a.backend.CheckDomainVerification(r.Context(), r.PathValue("id"), domain)
	if err != nil {
		a.logger.Error("verify domain", zap.String("domain", domain), zap.Error(err))
		a.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "verification failed"})
		return
	}
	a.writeJSON(w, http.StatusOK, verifyResponse{Verified: ok, Domain: domain})
}

func (a *API) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submit.Payload
	dec := json.NewDecoder(io.LimitReader(r.Body, maxPayloadBytes))
	if err := dec.Decode(&payload); err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "invalid payload"})
		return
	}

	resp, err := a.backend.Submit(r.Context(), r.PathValue("id"), payload)
	if err != nil {
		var dataErr *apispec.DataError
		if errors.As(err, &dataErr) {
			a.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Message: "submission data is invalid",
				Errors:  dataErr.FieldErrors(),
			})
			return
		}
		if errors.Is(err, ErrFormMismatch) {
			a.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "payload form does not match"})
			return
		}
		a.writeFormError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleDocument(w http.ResponseWriter, r *http.Request) {
	form, err := a.backend.Form(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeFormError(w, err)
		return
	}
	doc, err := apispec.Document(r.Context(), form, apispec.WithServerURL(a.serverURL))
	if err != nil {
		a.logger.Error("build api document", zap.String("form_id", form.ID), zap.Error(err))
		a.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "could not describe form"})
		return
	}
	a.writeJSON(w, http.StatusOK, doc)
}

func (a *API) writeFormError(w http.ResponseWriter, err error) {
	if errors.Is(err, embed.ErrFormNotFound) {
		a.writeJSON(w, http.StatusNotFound, errorResponse{Message: "form not found"})
		return
	}
	a.logger.Error("backend failure", zap.Error(err))
	a.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "internal error"})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("write response", zap.Error(err))
	}
}
