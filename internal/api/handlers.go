package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/toddgeist/ralph-wiggum-cursor/pkg/guardrail"
	"github.com/toddgeist/ralph-wiggum-cursor/pkg/thrash"
)

// version is set via -ldflags at build time.
var version = "dev"

// SetVersion sets the version string (called from main).
func SetVersion(v string) {
	version = v
}

// HealthResponse is the response for /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// VersionResponse is the response for /version.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse summarizes the iteration session.
type StatusResponse struct {
	Iteration  int       `json:"iteration"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	GutterRisk string    `json:"gutter_risk"`
	LastTest   *TestView `json:"last_test,omitempty"`
}

// TestView is the last observed test outcome.
type TestView struct {
	ExitCode  int       `json:"exit_code"`
	TimedOut  bool      `json:"timed_out,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BudgetResponse summarizes context-budget consumption.
type BudgetResponse struct {
	AllocatedTokens int    `json:"allocated_tokens"`
	CapacityTokens  int    `json:"capacity_tokens"`
	WarnTokens      int    `json:"warn_tokens"`
	CriticalTokens  int    `json:"critical_tokens"`
	Status          string `json:"status"`
}

// FailuresResponse lists journaled failure records.
type FailuresResponse struct {
	Failures []thrash.FailureRecord `json:"failures"`
	Total    int                    `json:"total"`
}

// GuardrailsResponse lists the persisted rule set.
type GuardrailsResponse struct {
	Core    []guardrail.Guardrail `json:"core"`
	Learned []guardrail.Guardrail `json:"learned"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: version, Service: "ralph"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.store.Load()

	risk, err := s.detector.Risk()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := StatusResponse{
		Iteration:  st.Iteration,
		Status:     st.Status.String(),
		StartedAt:  st.StartedAt,
		GutterRisk: risk.String(),
	}
	if last := s.store.LoadLastTest(); last != nil {
		resp.LastTest = &TestView{
			ExitCode:  last.ExitCode,
			TimedOut:  last.TimedOut,
			Timestamp: last.Timestamp,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	allocated, err := s.tracker.Allocated()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status, err := s.tracker.Status()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	thresholds := s.tracker.Thresholds()
	writeJSON(w, http.StatusOK, BudgetResponse{
		AllocatedTokens: allocated,
		CapacityTokens:  thresholds.CapacityTokens,
		WarnTokens:      thresholds.WarnTokens(),
		CriticalTokens:  thresholds.CriticalTokens(),
		Status:          status.String(),
	})
}

func (s *Server) handleFailures(w http.ResponseWriter, r *http.Request) {
	failures, err := s.detector.Failures()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, FailuresResponse{Failures: failures, Total: len(failures)})
}

func (s *Server) handleGuardrails(w http.ResponseWriter, r *http.Request) {
	set := s.guardrails.Load()
	writeJSON(w, http.StatusOK, GuardrailsResponse{Core: set.Core, Learned: set.Learned})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
