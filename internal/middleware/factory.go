package middleware

import (
	"fmt"
	"log"

	"github.com/shogotsuneto/presto-driver/internal/config"
	"gopkg.in/yaml.v3"
)

// CreateMiddleware creates a middleware instance from configuration
func CreateMiddleware(mc config.MiddlewareConfig) (Middleware, error) {
	switch mc.Type {
	case "http-header":
		var cfg HTTPHeaderConfig
		if err := decodeConfig(mc.Type, mc.Config, &cfg); err != nil {
			return nil, err
		}
		if cfg.Header == "" {
			return nil, fmt.Errorf("http-header middleware requires 'header' field")
		}
		if cfg.Parameter == "" {
			return nil, fmt.Errorf("http-header middleware requires 'parameter' field")
		}
		return NewHTTPHeaderMiddleware(cfg), nil
	case "request-id":
		var cfg RequestIDConfig
		if err := decodeConfig(mc.Type, mc.Config, &cfg); err != nil {
			return nil, err
		}
		return NewRequestIDMiddleware(cfg), nil
	default:
		return nil, fmt.Errorf("unknown middleware type: %s", mc.Type)
	}
}

// decodeConfig converts the generic config map into out through YAML so
// field types follow the struct tags
func decodeConfig(kind string, raw map[string]interface{}, out interface{}) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal %s config: %w", kind, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s config: %w", kind, err)
	}
	return nil
}

// CreateMiddlewareChain creates a middleware chain from server configuration
func CreateMiddlewareChain(serverConfig *config.ServerConfig) (Chain, error) {
	if serverConfig == nil || len(serverConfig.Middleware) == 0 {
		return Chain{}, nil
	}

	chain := make(Chain, 0, len(serverConfig.Middleware))
	for i, mc := range serverConfig.Middleware {
		m, err := CreateMiddleware(mc)
		if err != nil {
			return nil, fmt.Errorf("failed to create middleware at index %d: %w", i, err)
		}
		log.Printf("Middleware enabled: %s", m.Name())
		chain = append(chain, m)
	}
	return chain, nil
}
