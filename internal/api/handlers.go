package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/leapstack-labs/leapflow/internal/dag"
	"github.com/leapstack-labs/leapflow/internal/state"
	"github.com/leapstack-labs/leapflow/pkg/plan"
)

// defaultRunLimit bounds /runs responses when no limit is given.
const defaultRunLimit = 20

var errNoStore = errors.New("state store not configured")

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PlanResponse is the body of GET /api/v1/plan.
type PlanResponse struct {
	Pipeline  string      `json:"pipeline"`
	StepCount int         `json:"step_count"`
	Steps     []plan.Step `json:"steps"`
}

// GraphNode is a single step in the graph view.
type GraphNode struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// GraphEdge points from a dependency to the step that requires it.
type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GraphResponse is the body of GET /api/v1/graph. Levels groups step IDs
// by dependency depth; steps within a level are mutually independent.
type GraphResponse struct {
	Pipeline string      `json:"pipeline"`
	Nodes    []GraphNode `json:"nodes"`
	Edges    []GraphEdge `json:"edges"`
	Levels   [][]string  `json:"levels"`
}

// RunsResponse is the body of GET /api/v1/runs.
type RunsResponse struct {
	Runs []*state.Run `json:"runs"`
}

// RunDetailResponse is the body of GET /api/v1/runs/{id}.
type RunDetailResponse struct {
	Run   *state.Run       `json:"run"`
	Steps []*state.StepRun `json:"steps"`
}

// Routes builds the router for the API server.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/plan", s.handlePlan)
		r.Get("/graph", s.handleGraph)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleRun)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handlePlan(w http.ResponseWriter, _ *http.Request) {
	p, err := s.compile()
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	s.writeJSON(w, http.StatusOK, PlanResponse{
		Pipeline:  s.pipeline,
		StepCount: len(p.Steps),
		Steps:     p.Steps,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, _ *http.Request) {
	p, err := s.compile()
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	g := dag.NewGraph()
	for i := range p.Steps {
		g.AddNode(p.Steps[i].ID, &p.Steps[i])
	}

	nodes := make([]GraphNode, len(p.Steps))
	edges := make([]GraphEdge, 0)
	for i, st := range p.Steps {
		nodes[i] = GraphNode{ID: st.ID, Type: string(st.Type), Name: st.Name}
		for _, dep := range st.DependsOn {
			if err := g.AddEdge(dep, st.ID); err != nil {
				s.writeError(w, http.StatusInternalServerError, err)
				return
			}
			edges = append(edges, GraphEdge{From: dep, To: st.ID})
		}
	}

	levels, err := g.Levels()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, GraphResponse{
		Pipeline: s.pipeline,
		Nodes:    nodes,
		Edges:    edges,
		Levels:   levels,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	limit := defaultRunLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []*state.Run{}
	}

	s.writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, errNoStore)
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(id)
	if err != nil {
		if errors.Is(err, state.ErrRunNotFound) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	steps, err := s.store.GetStepRuns(id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, RunDetailResponse{Run: run, Steps: steps})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
