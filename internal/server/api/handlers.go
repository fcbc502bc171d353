package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/logger"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/observability"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/server/graph"
)

// DefaultEgoDepth is used when a network request carries no depth
const DefaultEgoDepth = 2

// Server holds the HTTP server dependencies
type Server struct {
	repo    graph.Repository
	metrics *observability.Collector
}

// New creates a new API server
func New(repo graph.Repository, metrics *observability.Collector) *Server {
	return &Server{repo: repo, metrics: metrics}
}

// Routes mounts every endpoint on r
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/people", s.CreatePerson)
		r.Post("/people/bulk", s.BulkCreatePeople)
		r.Get("/people", s.SearchPeople)
		r.Get("/people/by-email", s.FindPersonByEmail)
		r.Get("/people/{id}", s.GetPerson)
		r.Post("/people/{id}/organizations", s.AddPersonToOrganization)
		r.Post("/people/{id}/manager", s.AddReportingRelationship)
		r.Post("/interactions", s.LogInteraction)

		r.Post("/organizations", s.CreateOrganization)
		r.Get("/organizations", s.SearchOrganizations)
		r.Get("/organizations/by-name", s.FindOrganizationByName)
		r.Get("/organizations/{id}", s.GetOrganization)

		r.Post("/contracts", s.CreateContract)
		r.Get("/contracts", s.ContractsByAgency)
		r.Get("/contracts/{name}", s.GetContract)

		r.Post("/relationships", s.CreateRelationship)
		r.Get("/entities/{id}/relationships", s.GetRelationships)
		r.Get("/entities/{id}/network", s.EgoNetwork)
		r.Get("/paths", s.ShortestPath)

		r.Get("/stats", s.NetworkStatistics)
		r.Get("/incumbents", s.IncumbentsAtAgency)
		r.Get("/teaming", s.TeamingCandidates)

		r.Delete("/graph", s.ClearDatabase)
	})
}

// Instrument records request counts and latency per route pattern
func (s *Server) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTP(r.Method, route, strconv.Itoa(status), time.Since(start))
	})
}

// HealthCheck handles GET /health
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": s.repo.Backend(),
	})
}

// IDResponse is returned by upserts
type IDResponse struct {
	ID string `json:"id"`
}

// CreatePerson handles POST /api/people
func (s *Server) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req graph.PersonInput
	if !decode(w, r, &req) {
		return
	}
	id, err := s.repo.CreateOrUpdatePerson(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IDResponse{ID: id})
}

// BulkPeopleRequest is the request body for a bulk person import
type BulkPeopleRequest struct {
	People []graph.PersonInput `json:"people"`
}

// BulkCreatePeople handles POST /api/people/bulk. Item failures are reported
// in the body; the request itself still succeeds.
func (s *Server) BulkCreatePeople(w http.ResponseWriter, r *http.Request) {
	var req BulkPeopleRequest
	if !decode(w, r, &req) {
		return
	}
	result, err := s.repo.BulkCreatePeople(r.Context(), req.People)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetPerson handles GET /api/people/{id}
func (s *Server) GetPerson(w http.ResponseWriter, r *http.Request) {
	p, err := s.repo.GetPerson(r.Context(), chi.URLParam(r, "id"))
	writeLookup(w, r, p, err)
}

// FindPersonByEmail handles GET /api/people/by-email?email=
func (s *Server) FindPersonByEmail(w http.ResponseWriter, r *http.Request) {
	p, err := s.repo.FindPersonByEmail(r.Context(), r.URL.Query().Get("email"))
	writeLookup(w, r, p, err)
}

// SearchPeople handles GET /api/people?q=&limit=
func (s *Server) SearchPeople(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	people, err := s.repo.SearchPeople(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"people": nonNil(people),
		"count":  len(people),
	})
}

// MembershipRequest is the request body for POST /api/people/{id}/organizations
type MembershipRequest struct {
	OrganizationID string `json:"organization_id"`
	Title          string `json:"title,omitempty"`
	StartDate      string `json:"start_date,omitempty"`
}

// AddPersonToOrganization records a WORKS_AT edge
func (s *Server) AddPersonToOrganization(w http.ResponseWriter, r *http.Request) {
	var req MembershipRequest
	if !decode(w, r, &req) {
		return
	}
	err := graph.AddPersonToOrganization(r.Context(), s.repo,
		chi.URLParam(r, "id"), req.OrganizationID, req.Title, req.StartDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"created": true})
}

// ManagerRequest is the request body for POST /api/people/{id}/manager
type ManagerRequest struct {
	ManagerID string `json:"manager_id"`
}

// AddReportingRelationship records a REPORTS_TO edge from the person to
// their manager
func (s *Server) AddReportingRelationship(w http.ResponseWriter, r *http.Request) {
	var req ManagerRequest
	if !decode(w, r, &req) {
		return
	}
	err := graph.AddReportingRelationship(r.Context(), s.repo, chi.URLParam(r, "id"), req.ManagerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"created": true})
}

// InteractionRequest is the request body for POST /api/interactions
type InteractionRequest struct {
	PersonA string `json:"person_a"`
	PersonB string `json:"person_b"`
	Type    string `json:"type"`
	Date    string `json:"date,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// LogInteraction records an INTERACTED_WITH edge
func (s *Server) LogInteraction(w http.ResponseWriter, r *http.Request) {
	var req InteractionRequest
	if !decode(w, r, &req) {
		return
	}
	err := graph.LogInteraction(r.Context(), s.repo, req.PersonA, req.PersonB, req.Type, req.Date, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"created": true})
}

// CreateOrganization handles POST /api/organizations
func (s *Server) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req graph.OrganizationInput
	if !decode(w, r, &req) {
		return
	}
	id, err := s.repo.CreateOrUpdateOrganization(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IDResponse{ID: id})
}

// GetOrganization handles GET /api/organizations/{id}
func (s *Server) GetOrganization(w http.ResponseWriter, r *http.Request) {
	o, err := s.repo.GetOrganization(r.Context(), chi.URLParam(r, "id"))
	writeLookup(w, r, o, err)
}

// FindOrganizationByName handles GET /api/organizations/by-name?name=
func (s *Server) FindOrganizationByName(w http.ResponseWriter, r *http.Request) {
	o, err := s.repo.FindOrganizationByName(r.Context(), r.URL.Query().Get("name"))
	writeLookup(w, r, o, err)
}

// SearchOrganizations handles GET /api/organizations?q=&limit=
func (s *Server) SearchOrganizations(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	orgs, err := s.repo.SearchOrganizations(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"organizations": nonNil(orgs),
		"count":         len(orgs),
	})
}

// CreateContract handles POST /api/contracts
func (s *Server) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req graph.ContractInput
	if !decode(w, r, &req) {
		return
	}
	name, err := s.repo.CreateOrUpdateContract(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, IDResponse{ID: name})
}

// GetContract handles GET /api/contracts/{name}
func (s *Server) GetContract(w http.ResponseWriter, r *http.Request) {
	c, err := s.repo.GetContract(r.Context(), chi.URLParam(r, "name"))
	writeLookup(w, r, c, err)
}

// ContractsByAgency handles GET /api/contracts?agency=&naics=&limit=
func (s *Server) ContractsByAgency(w http.ResponseWriter, r *http.Request) {
	filter, ok := contractFilter(w, r)
	if !ok {
		return
	}
	contracts, err := s.repo.ContractsByAgency(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"contracts": nonNil(contracts),
		"count":     len(contracts),
	})
}

// CreateRelationship handles POST /api/relationships
func (s *Server) CreateRelationship(w http.ResponseWriter, r *http.Request) {
	var req graph.EdgeInput
	if !decode(w, r, &req) {
		return
	}
	if err := s.repo.CreateRelationship(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]bool{"created": true})
}

// GetRelationships handles GET /api/entities/{id}/relationships
func (s *Server) GetRelationships(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	edges, err := s.repo.GetRelationships(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entity_id":     id,
		"relationships": nonNil(edges),
		"count":         len(edges),
	})
}

// EgoNetwork handles GET /api/entities/{id}/network?depth=
func (s *Server) EgoNetwork(w http.ResponseWriter, r *http.Request) {
	depth, ok := queryInt(w, r, "depth", DefaultEgoDepth)
	if !ok {
		return
	}
	sub, err := s.repo.EgoNetwork(r.Context(), chi.URLParam(r, "id"), depth)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ShortestPath handles GET /api/paths?from=&to=. A missing path is a 200
// with a null path.
func (s *Server) ShortestPath(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, to := query.Get("from"), query.Get("to")
	if from == "" || to == "" {
		http.Error(w, "from and to are required", http.StatusBadRequest)
		return
	}
	path, err := s.repo.ShortestPath(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"found":  path != nil,
		"length": path.Length(),
		"path":   path,
	})
}

// NetworkStatistics handles GET /api/stats
func (s *Server) NetworkStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.repo.NetworkStatistics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// IncumbentsAtAgency handles GET /api/incumbents?agency=&naics=&limit=
func (s *Server) IncumbentsAtAgency(w http.ResponseWriter, r *http.Request) {
	filter, ok := contractFilter(w, r)
	if !ok {
		return
	}
	incumbents, err := s.repo.IncumbentsAtAgency(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agency":     filter.Agency,
		"incumbents": nonNil(incumbents),
	})
}

// TeamingCandidates handles GET /api/teaming?agency=&naics=&min_contracts=&limit=
func (s *Server) TeamingCandidates(w http.ResponseWriter, r *http.Request) {
	filter, ok := contractFilter(w, r)
	if !ok {
		return
	}
	minContracts, ok := queryInt(w, r, "min_contracts", 1)
	if !ok {
		return
	}
	candidates, err := s.repo.TeamingCandidates(r.Context(), filter, minContracts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"candidates": nonNil(candidates),
	})
}

// ClearDatabase handles DELETE /api/graph?confirm=true
func (s *Server) ClearDatabase(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		http.Error(w, "pass confirm=true to delete every entity and relationship", http.StatusBadRequest)
		return
	}
	if err := s.repo.ClearDatabase(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	logger.Warn("graph cleared over HTTP", "request_id", middleware.GetReqID(r.Context()))
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func queryInt(w http.ResponseWriter, r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid %s parameter", key), http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

func contractFilter(w http.ResponseWriter, r *http.Request) (graph.ContractFilter, bool) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return graph.ContractFilter{}, false
	}
	query := r.URL.Query()
	return graph.ContractFilter{
		Agency: query.Get("agency"),
		NAICS:  query.Get("naics"),
		Limit:  limit,
	}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeLookup answers a single-entity lookup. Not found is an empty result,
// not an error.
func writeLookup[T any](w http.ResponseWriter, r *http.Request, v *T, err error) {
	if graph.IsNotFound(err) {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// writeError maps engine error kinds to status codes. Storage detail is
// logged and never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case graph.IsValidation(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case graph.IsConsistency(err):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case graph.IsNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	case graph.IsTimeout(err):
		logger.Error("graph store timed out", "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
		http.Error(w, "graph store timed out", http.StatusGatewayTimeout)
	default:
		logger.Error("graph store failure", "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "err", err)
		http.Error(w, "graph store unavailable", http.StatusInternalServerError)
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
