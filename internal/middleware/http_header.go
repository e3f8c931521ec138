package middleware

import (
	"fmt"
	"net/http"
)

// HTTPHeaderConfig represents the configuration for HTTP header middleware
type HTTPHeaderConfig struct {
	Header    string `yaml:"header"`    // HTTP header to read
	Parameter string `yaml:"parameter"` // request parameter to set
	Required  bool   `yaml:"required"`
}

// HTTPHeaderMiddleware copies one request header into the request parameters
type HTTPHeaderMiddleware struct {
	config HTTPHeaderConfig
}

// NewHTTPHeaderMiddleware creates a new HTTP header middleware
func NewHTTPHeaderMiddleware(config HTTPHeaderConfig) *HTTPHeaderMiddleware {
	return &HTTPHeaderMiddleware{config: config}
}

// Wrap wraps an http.HandlerFunc with this middleware
func (m *HTTPHeaderMiddleware) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		value := r.Header.Get(m.config.Header)
		if value == "" {
			if m.config.Required {
				writeError(w, fmt.Sprintf("required header '%s' is missing", m.config.Header), http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		params := GetMiddlewareParams(r)
		params[m.config.Parameter] = value
		next.ServeHTTP(w, SetMiddlewareParams(r, params))
	}
}

// Name returns the name of this middleware
func (m *HTTPHeaderMiddleware) Name() string {
	return fmt.Sprintf("http-header(%s->%s)", m.config.Header, m.config.Parameter)
}
