package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// DefaultRequestIDHeader is the header read when the request-id middleware
// is configured without one
const DefaultRequestIDHeader = "X-Request-ID"

// RequestIDConfig represents the configuration for request id middleware
type RequestIDConfig struct {
	Header string `yaml:"header"`
}

// RequestIDMiddleware takes the request id from a header or generates one,
// and echoes it back on the response
type RequestIDMiddleware struct {
	header string
}

// NewRequestIDMiddleware creates a new request id middleware
func NewRequestIDMiddleware(config RequestIDConfig) *RequestIDMiddleware {
	header := config.Header
	if header == "" {
		header = DefaultRequestIDHeader
	}
	return &RequestIDMiddleware{header: header}
}

// Wrap wraps an http.HandlerFunc with this middleware
func (m *RequestIDMiddleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(m.header)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(m.header, id)

		params := GetMiddlewareParams(r)
		params[RequestIDParam] = id
		next.ServeHTTP(w, SetMiddlewareParams(r, params))
	}
}

// Name returns the name of this middleware
func (m *RequestIDMiddleware) Name() string {
	return "request-id(" + m.header + ")"
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
