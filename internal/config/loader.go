package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort         = 8080
	DefaultEngine       = "trino"
	DefaultSource       = "sqltools"
	DefaultBatchSize    = 1000
	DefaultPreviewLimit = 50
)

// ConnectionProfile represents the stored credentials and settings of one connection
type ConnectionProfile struct {
	ID                string            `yaml:"id"`
	Name              string            `yaml:"name"`
	Server            string            `yaml:"server"`  // engine coordinator host
	Port              int               `yaml:"port"`    // defaults to 8080
	Catalog           string            `yaml:"catalog"` // default catalog for the session
	Schema            string            `yaml:"schema"`  // default schema for the session
	Username          string            `yaml:"username"`
	Password          string            `yaml:"password"` // enables basic auth when set
	SSL               bool              `yaml:"ssl"`
	Source            string            `yaml:"source"` // reported to the engine as the query source
	Engine            string            `yaml:"engine"` // "trino" or "presto"
	AccessToken       string            `yaml:"access_token"`
	SessionProperties map[string]string `yaml:"session_properties"`
	BatchSize         int               `yaml:"batch_size"`    // rows per data callback
	PreviewLimit      int               `yaml:"preview_limit"` // default page size for table previews
}

// Address returns host:port of the engine coordinator
func (p ConnectionProfile) Address() string {
	return net.JoinHostPort(p.Server, strconv.Itoa(p.Port))
}

// ConnectionsConfig represents the connections configuration
type ConnectionsConfig struct {
	Connections []ConnectionProfile `yaml:"connections"`
}

// Find returns the profile with the given id
func (c *ConnectionsConfig) Find(id string) (ConnectionProfile, bool) {
	for _, p := range c.Connections {
		if p.ID == id {
			return p, true
		}
	}
	return ConnectionProfile{}, false
}

// MiddlewareConfig represents the configuration for a single middleware
type MiddlewareConfig struct {
	Type   string                 `yaml:"type"`
	Config map[string]interface{} `yaml:"config"`
}

// ServerConfig represents the server configuration
type ServerConfig struct {
	Middleware []MiddlewareConfig `yaml:"middleware"`
}

// LoadConnectionsConfig loads connection profiles from a YAML file.
// ${VAR} references are expanded from the environment before parsing.
func LoadConnectionsConfig(path string) (*ConnectionsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read connections config file %s: %w", path, err)
	}

	return ParseConnectionsConfig([]byte(os.ExpandEnv(string(data))))
}

// ParseConnectionsConfig parses, defaults and validates connection profiles
func ParseConnectionsConfig(data []byte) (*ConnectionsConfig, error) {
	var config ConnectionsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse connections config YAML: %w", err)
	}

	if len(config.Connections) == 0 {
		return nil, fmt.Errorf("at least one connection must be defined")
	}

	seen := make(map[string]bool)
	for i := range config.Connections {
		p := &config.Connections[i]
		applyDefaults(p)

		if p.ID == "" {
			return nil, fmt.Errorf("connection at index %d must have an id", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate connection id %s", p.ID)
		}
		seen[p.ID] = true

		if p.Server == "" {
			return nil, fmt.Errorf("connection %s must have a server", p.ID)
		}
		if p.Username == "" {
			return nil, fmt.Errorf("connection %s must have a username", p.ID)
		}
		if p.Password != "" && !p.SSL {
			return nil, fmt.Errorf("connection %s sets a password but not ssl; basic auth is only sent over https", p.ID)
		}
		if p.Port <= 0 || p.Port > 65535 {
			return nil, fmt.Errorf("connection %s has invalid port %d", p.ID, p.Port)
		}
		switch p.Engine {
		case "trino", "presto":
		default:
			return nil, fmt.Errorf("connection %s has unsupported engine %q", p.ID, p.Engine)
		}
	}

	return &config, nil
}

func applyDefaults(p *ConnectionProfile) {
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if p.Engine == "" {
		p.Engine = DefaultEngine
	}
	if p.Source == "" {
		p.Source = DefaultSource
	}
	if p.BatchSize <= 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.PreviewLimit <= 0 {
		p.PreviewLimit = DefaultPreviewLimit
	}
	if p.Name == "" {
		p.Name = p.ID
	}
}

// LoadServerConfig loads server configuration from a YAML file
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read server config file %s: %w", path, err)
	}

	var config ServerConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse server config YAML: %w", err)
	}

	for i, m := range config.Middleware {
		if m.Type == "" {
			return nil, fmt.Errorf("middleware at index %d must have a type", i)
		}
	}

	return &config, nil
}
