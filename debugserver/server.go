// Package debugserver exposes a read/drive HTTP surface over a running
// rotation.Character: resource and state snapshots, and endpoints that
// advance either rotation driver by a bounded number of steps. It is
// local inspection tooling, never imported by the rotation package itself.
package debugserver

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/kaelbyte/rotation-kernel/rotation"
)

// Server wraps a single character for inspection over HTTP.
type Server struct {
	character *rotation.Character
}

// New returns a Server inspecting character.
func New(character *rotation.Character) *Server {
	return &Server{character: character}
}

// Router builds the mux.Router serving this debug surface, including an
// embedded swagger UI at /debug/swagger/.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/debug/timer", s.handleTimer).Methods("GET")
	r.HandleFunc("/debug/resources", s.handleResources).Methods("GET")
	r.HandleFunc("/debug/states", s.handleStates).Methods("GET")
	r.HandleFunc("/debug/operations", s.handleOperations).Methods("GET")
	r.HandleFunc("/debug/step/greedy", s.handleStepGreedy).Methods("POST")
	r.HandleFunc("/debug/step/meta", s.handleStepMeta).Methods("POST")
	r.HandleFunc("/debug/swagger/doc.json", handleSwaggerDoc).Methods("GET")
	r.PathPrefix("/debug/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/debug/swagger/doc.json"),
	))
	return r
}

func writeDebugJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("⚠️ debugserver: failed to encode response: %v", err)
	}
}

func writeDebugError(w http.ResponseWriter, status int, msg string) {
	writeDebugJSON(w, status, map[string]any{"success": false, "error": msg})
}

// timerResponse is the /debug/timer payload.
type timerResponse struct {
	Now       float64 `json:"now"`
	TotalTime float64 `json:"total_time,omitempty"`
	HasCap    bool    `json:"has_cap"`
}

// TimerHandler godoc
// @Summary      Read the character's current simulated time
// @Produce      json
// @Success      200  {object}  timerResponse
// @Router       /debug/timer [get]
func (s *Server) handleTimer(w http.ResponseWriter, r *http.Request) {
	total, hasCap := s.character.Timer.TotalTime()
	writeDebugJSON(w, http.StatusOK, timerResponse{
		Now:       s.character.Timer.Now(),
		TotalTime: total,
		HasCap:    hasCap,
	})
}

// resourceSnapshot is one entry of the /debug/resources payload.
type resourceSnapshot struct {
	ID           string  `json:"id"`
	Current      float64 `json:"current"`
	UpperLimit   float64 `json:"upper_limit"`
	ConsumeTotal float64 `json:"consume_total"`
}

// ResourcesHandler godoc
// @Summary      List every registered resource's current snapshot
// @Produce      json
// @Success      200  {array}  resourceSnapshot
// @Router       /debug/resources [get]
func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	snapshots := make([]resourceSnapshot, 0, len(s.character.ResourceIDs()))
	for _, id := range s.character.ResourceIDs() {
		res, ok := s.character.Resource(id)
		if !ok {
			continue
		}
		snapshots = append(snapshots, resourceSnapshot{
			ID:           res.ID,
			Current:      res.Current(),
			UpperLimit:   res.UpperLimit,
			ConsumeTotal: res.ConsumeTotal(),
		})
	}
	writeDebugJSON(w, http.StatusOK, snapshots)
}

// stateSnapshot is one entry of the /debug/states payload.
type stateSnapshot struct {
	ID         string `json:"id"`
	Current    int    `json:"current"`
	UpperLimit int    `json:"upper_limit"`
}

// StatesHandler godoc
// @Summary      List every registered state's current stack count
// @Produce      json
// @Success      200  {array}  stateSnapshot
// @Router       /debug/states [get]
func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	all := s.character.States.All()
	snapshots := make([]stateSnapshot, 0, len(all))
	for _, st := range all {
		snapshots = append(snapshots, stateSnapshot{
			ID:         st.ID,
			Current:    st.Current(),
			UpperLimit: st.UpperLimit,
		})
	}
	writeDebugJSON(w, http.StatusOK, snapshots)
}

// operationSnapshot is one entry of the /debug/operations payload.
type operationSnapshot struct {
	ID       string  `json:"id"`
	BaseTime float64 `json:"base_time"`
	Counter  int     `json:"counter"`
}

// OperationsHandler godoc
// @Summary      List every registered operation and its execution counter
// @Produce      json
// @Success      200  {array}  operationSnapshot
// @Router       /debug/operations [get]
func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	ops := s.character.Operations()
	snapshots := make([]operationSnapshot, 0, len(ops))
	for _, op := range ops {
		snapshots = append(snapshots, operationSnapshot{ID: op.ID, BaseTime: op.BaseTime, Counter: op.Counter()})
	}
	writeDebugJSON(w, http.StatusOK, snapshots)
}

type stepRequest struct {
	MaxSteps   int      `json:"max_steps"`
	OpPriority []string `json:"op_priority,omitempty"`
	Full       bool     `json:"full,omitempty"`
}

type stepResponse struct {
	Records []*rotation.OperationRecord `json:"records,omitempty"`
	Full    []*rotation.FullRecord      `json:"full_records,omitempty"`
}

// StepGreedyHandler godoc
// @Summary      Advance the character with driver B (greedy single-op loop)
// @Accept       json
// @Produce      json
// @Param        request  body      stepRequest   true  "step bound, optional op priority order, and full=true for a resource snapshot per record"
// @Success      200      {object}  stepResponse
// @Failure      400      {string}  string  "malformed request"
// @Router       /debug/step/greedy [post]
func (s *Server) handleStepGreedy(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDebugError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxSteps <= 0 {
		writeDebugError(w, http.StatusBadRequest, "max_steps must be positive")
		return
	}
	if req.Full {
		full := s.character.BuildRotationGreedyOpsFull(req.MaxSteps, req.OpPriority)
		log.Printf("🔁 debugserver: greedy driver ran %d steps (full)", len(full))
		writeDebugJSON(w, http.StatusOK, stepResponse{Full: full})
		return
	}
	records := s.character.BuildRotationGreedyOps(req.MaxSteps, req.OpPriority)
	log.Printf("🔁 debugserver: greedy driver ran %d steps", len(records))
	writeDebugJSON(w, http.StatusOK, stepResponse{Records: records})
}

// StepMetaHandler godoc
// @Summary      Advance the character with driver A (priority meta-operation loop)
// @Accept       json
// @Produce      json
// @Param        request  body      stepRequest   true  "step bound, full=true for a resource snapshot per record"
// @Success      200      {object}  stepResponse
// @Failure      400      {string}  string  "malformed request"
// @Router       /debug/step/meta [post]
func (s *Server) handleStepMeta(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDebugError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MaxSteps <= 0 {
		writeDebugError(w, http.StatusBadRequest, "max_steps must be positive")
		return
	}
	if req.Full {
		full := s.character.BuildRotationFromMetaFull(req.MaxSteps)
		log.Printf("🔁 debugserver: meta driver ran %d steps (full)", len(full))
		writeDebugJSON(w, http.StatusOK, stepResponse{Full: full})
		return
	}
	records := s.character.BuildRotationFromMeta(req.MaxSteps)
	log.Printf("🔁 debugserver: meta driver ran %d steps", len(records))
	writeDebugJSON(w, http.StatusOK, stepResponse{Records: records})
}

func handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(swaggerDoc))
}
