// Package httpbind adapts a Dispatcher to HTTP. It derives the operation
// name from the URL, flattens query strings, form fields and JSON bodies
// into the primary parameter map and request headers into the header map,
// and writes the result or the categorized failure as a JSON envelope with
// the failure kind mapped to an HTTP status.
//
// The dispatcher never sees the request; it consumes only the two
// flattened maps, so any other transport can be bound the same way.
package httpbind

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/opcall/opcall"
)

// Handler serves one dispatcher over HTTP.
type Handler struct {
	dispatcher *opcall.Dispatcher
	logger     *slog.Logger
}

// NewHandler creates a handler for the dispatcher.
func NewHandler(d *opcall.Dispatcher) *Handler {
	return &Handler{dispatcher: d}
}

// WithLogger sets the logger used for write failures. If not set,
// slog.Default() is used.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// Router returns a chi router serving every operation under
// /{operation} for GET and POST.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/{operation}", h.ServeHTTP)
	r.Post("/{operation}", h.ServeHTTP)
	return r
}

// ServeHTTP invokes the operation named by the last URL path segment.
//
// Primary parameters come from the query string, from an
// x-www-form-urlencoded body, or from a flat JSON object body; later
// sources win on key collisions. Header parameters come from the request
// headers under their canonical MIME names (e.g. "X-Tenant").
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	operation := chi.URLParam(r, "operation")
	if operation == "" {
		operation = path.Base(r.URL.Path)
	}

	params, err := flattenParams(r)
	if err != nil {
		h.writeFailure(w, opcall.BadRequestf("malformed request body: %v", err))
		return
	}

	result, err := h.dispatcher.Invoke(r.Context(), operation, params, flattenHeaders(r.Header))
	if err != nil {
		h.writeFailure(w, opcall.AsFailure(err))
		return
	}
	h.writeResult(w, result)
}

// flattenParams builds the primary parameter map. Multi-valued keys keep
// their first value.
func flattenParams(r *http.Request) (map[string]string, error) {
	params := make(map[string]string)
	flattenValues(params, r.URL.Query())

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case ct == "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		flattenValues(params, r.PostForm)
	case ct == "application/json" || strings.HasSuffix(ct, "+json"):
		if r.Body == nil {
			break
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, err
		}
		for k, v := range body {
			params[k] = v
		}
	}

	return params, nil
}

func flattenValues(dst map[string]string, src url.Values) {
	for k, vs := range src {
		if len(vs) > 0 {
			dst[k] = vs[0]
		}
	}
}

func flattenHeaders(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			headers[k] = vs[0]
		}
	}
	return headers
}

// response is the envelope for successful invocations.
type response struct {
	Result any `json:"result"`
}

// errorBody is the envelope for categorized failures.
type errorBody struct {
	Error failureJSON `json:"error"`
}

type failureJSON struct {
	Kind    opcall.Kind `json:"kind"`
	Message string      `json:"message"`
}

func (h *Handler) writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response{Result: result}); err != nil {
		h.log().Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *Handler) writeFailure(w http.ResponseWriter, f *opcall.Failure) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.Kind.HTTPStatus())
	if err := json.NewEncoder(w).Encode(errorBody{Error: failureJSON{Kind: f.Kind, Message: f.Message}}); err != nil {
		h.log().Error("failed to encode error response",
			slog.String("kind", string(f.Kind)),
			slog.Any("error", err))
	}
}

func (h *Handler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}
