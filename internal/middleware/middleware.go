package middleware

import (
	"context"
	"net/http"
)

// RequestIDParam is the parameter the server reads as the default request id
const RequestIDParam = "request_id"

type paramsKey struct{}

// Middleware wraps the handlers of the connection endpoints
type Middleware interface {
	Wrap(next http.HandlerFunc) http.HandlerFunc

	// Name returns the name of the middleware for logging
	Name() string
}

// Chain is an ordered list of middleware. The first entry sees the request first.
type Chain []Middleware

// Wrap wraps next with every middleware of the chain
func (c Chain) Wrap(next http.HandlerFunc) http.HandlerFunc {
	h := next
	for i := len(c) - 1; i >= 0; i-- {
		h = c[i].Wrap(h)
	}
	return h
}

// GetMiddlewareParams returns a copy of the parameters collected so far
func GetMiddlewareParams(r *http.Request) map[string]interface{} {
	params := make(map[string]interface{})
	if existing, ok := r.Context().Value(paramsKey{}).(map[string]interface{}); ok {
		for k, v := range existing {
			params[k] = v
		}
	}
	return params
}

// SetMiddlewareParams returns a shallow copy of r carrying params
func SetMiddlewareParams(r *http.Request, params map[string]interface{}) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), paramsKey{}, params))
}

// RequestID returns the request id parameter, or "" when no middleware set one
func RequestID(r *http.Request) string {
	if v, ok := GetMiddlewareParams(r)[RequestIDParam].(string); ok {
		return v
	}
	return ""
}
