package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/shogotsuneto/presto-driver/internal/db"
	"github.com/shogotsuneto/presto-driver/internal/driver"
	"github.com/shogotsuneto/presto-driver/internal/engine"
	"github.com/shogotsuneto/presto-driver/internal/host"
	"github.com/shogotsuneto/presto-driver/internal/middleware"
	"github.com/shogotsuneto/presto-driver/internal/query"
)

type queryRequest struct {
	Query     string `json:"query"`
	RequestID string `json:"requestId"`
}

type childrenRequest struct {
	Item   host.Item  `json:"item"`
	Parent *host.Item `json:"parent"`
}

type searchRequest struct {
	ItemType    host.ContextValue `json:"itemType"`
	Search      string            `json:"search"`
	ExtraParams host.SearchParams `json:"extraParams"`
}

type recordsRequest struct {
	Table     host.Item `json:"table"`
	Limit     int       `json:"limit"`
	Page      int       `json:"page"`
	RequestID string    `json:"requestId"`
}

type describeRequest struct {
	Table     host.Item `json:"table"`
	RequestID string    `json:"requestId"`
}

type resultsResponse struct {
	Results []host.Result `json:"results"`
}

type itemsResponse struct {
	Items []host.Item `json:"items"`
}

type connectionInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Server  string `json:"server"`
	Catalog string `json:"catalog,omitempty"`
	Schema  string `json:"schema,omitempty"`
	Engine  string `json:"engine"`
	Open    bool   `json:"open"`
	Healthy bool   `json:"healthy"`
}

// handleRoot handles requests to the root path
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "presto-driver",
		"status":  "running",
		"endpoints": map[string]string{
			"/health":                       "GET - Health check",
			"/connections":                  "GET - List configured connections",
			"/connections/{id}/open":        "POST - Open the engine connection",
			"/connections/{id}/close":       "POST - Close the engine connection",
			"/connections/{id}/test":        "POST - Test the engine connection",
			"/connections/{id}/query":       "POST - Run SQL statements",
			"/connections/{id}/children":    "POST - Explorer children of an item",
			"/connections/{id}/search":      "POST - Search tables, views and columns",
			"/connections/{id}/completions": "GET - Static completions",
			"/connections/{id}/records":     "POST - Preview table records",
			"/connections/{id}/describe":    "POST - Describe a table",
			"/metrics":                      "GET - Prometheus metrics",
		},
	})
}

// handleHealth reports unhealthy when any open connection failed its last test
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	healthy := true
	connections := make(map[string]map[string]bool, len(s.drivers))
	for id, d := range s.drivers {
		conn := d.Connection()
		open, ok := conn.IsOpen(), conn.IsHealthy()
		if open && !ok {
			healthy = false
		}
		connections[id] = map[string]bool{"open": open, "healthy": ok}
	}

	status, statusCode := "healthy", http.StatusOK
	if !healthy {
		status, statusCode = "unhealthy", http.StatusServiceUnavailable
	}

	s.writeJSON(w, statusCode, map[string]interface{}{
		"status":      status,
		"connections": connections,
	})
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	list := make([]connectionInfo, 0, len(s.connections.Connections))
	for _, p := range s.connections.Connections {
		conn := s.drivers[p.ID].Connection()
		list = append(list, connectionInfo{
			ID:      p.ID,
			Name:    p.Name,
			Server:  p.Address(),
			Catalog: p.Catalog,
			Schema:  p.Schema,
			Engine:  p.Engine,
			Open:    conn.IsOpen(),
			Healthy: conn.IsHealthy(),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"connections": list})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request, d *driver.Driver) {
	if err := d.Open(r.Context()); err != nil {
		s.writeDriverError(w, "open", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "open"})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request, d *driver.Driver) {
	if err := d.Close(r.Context()); err != nil {
		s.writeDriverError(w, "close", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request, d *driver.Driver) {
	if err := d.TestConnection(r.Context()); err != nil {
		s.writeDriverError(w, "test", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request, d *driver.Driver) {
	var req queryRequest
	if !s.decode(w, r, &req) {
		return
	}

	results, err := d.Query(r.Context(), req.Query, host.QueryOptions{RequestID: requestID(r, req.RequestID)})
	if err != nil {
		s.writeDriverError(w, "query", err)
		return
	}
	s.writeJSON(w, http.StatusOK, resultsResponse{Results: results})
}

func (s *Server) handleChildren(w http.ResponseWriter, r *http.Request, d *driver.Driver) {
	var req childrenRequest
	if !s.decode(w, r, &req) {
		return
	}

	items, err := d.GetChildrenForItem(r.Context(), req.Item, req.Parent)
	if err != nil {
		s.writeDriverError(w, "children", err)
		return
	}
	s.writeJSON(w, http.StatusOK, itemsResponse{Items: items})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request, d *driver.Driver) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}

	items, err := d.SearchItems(r.Context(), req.ItemType, req.Search, req.ExtraParams)
	if err != nil {
		s.writeDriverError(w, "search", err)
		return
	}
	s.writeJSON(w, http.StatusOK, itemsResponse{Items: items})
}

func (s *Server) handleCompletions(w http.ResponseWriter, r *http.Request, d *driver.Driver) {
	completions, err := d.GetStaticCompletions(r.Context())
	if err != nil {
		s.writeDriverError(w, "completions", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"completions": completions})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request, d *driver.Driver) {
	var req recordsRequest
	if !s.decode(w, r, &req) {
		return
	}

	results, err := d.ShowRecords(r.Context(), req.Table, driver.ShowRecordsOptions{
		Limit:     req.Limit,
		Page:      req.Page,
		RequestID: requestID(r, req.RequestID),
	})
	if err != nil {
		s.writeDriverError(w, "records", err)
		return
	}
	s.writeJSON(w, http.StatusOK, resultsResponse{Results: results})
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request, d *driver.Driver) {
	var req describeRequest
	if !s.decode(w, r, &req) {
		return
	}

	results, err := d.DescribeTable(r.Context(), req.Table, requestID(r, req.RequestID))
	if err != nil {
		s.writeDriverError(w, "describe", err)
		return
	}
	s.writeJSON(w, http.StatusOK, resultsResponse{Results: results})
}

// decode reads the JSON request body into v. An empty body leaves v zeroed.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.writeErrorResponse(w, "Invalid JSON in request body", http.StatusBadRequest)
		return false
	}
	return true
}

func requestID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return middleware.RequestID(r)
}

func (s *Server) writeDriverError(w http.ResponseWriter, op string, err error) {
	statusCode := statusFor(err)
	if statusCode >= http.StatusInternalServerError {
		log.Printf("Driver %s error: %v", op, err)
	}
	s.writeErrorResponse(w, err.Error(), statusCode)
}

func statusFor(err error) int {
	switch {
	case query.IsClientError(err), errors.Is(err, engine.ErrUnsupportedEngine):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
